package wiiart

import (
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Provider lists the files held in an archive, such as an Xbox 360 STFS/CON
// package, keyed by their slash separated path within it.
type Provider interface {
	Files(path string) (map[string][]byte, error)
}

// DirProvider is a Provider for a plain directory tree.
type DirProvider struct{}

// Files returns the contents of every regular, non-hidden, file under path.
func (DirProvider) Files(path string) (map[string][]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("wiiart: not a directory")
	}

	files := make(map[string][]byte)
	if err := filepath.Walk(path, func(file string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.Name()[0] == '.' && file != path {
			if info.Mode().IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() || info.Size() > maxTextureSize {
			return nil
		}

		rel, err := filepath.Rel(path, file)
		if err != nil {
			return err
		}

		b, err := ioutil.ReadFile(file)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = b

		return nil
	}); err != nil {
		return nil, err
	}
	return files, nil
}

// ExportArchive writes every .tpl and .png_wii texture that p finds in path
// to destDir as a PNG image, keeping the layout of the archive. It returns
// the number of files exported.
func (c *Converter) ExportArchive(ctx context.Context, p Provider, path, destDir string) (int, error) {
	files, err := p.Files(path)
	if err != nil {
		return 0, err
	}

	names := make([]string, 0, len(files))
	for name := range files {
		if _, err := containerOf(name); err != nil {
			continue
		}
		if rel := filepath.Clean(filepath.FromSlash(name)); filepath.IsAbs(rel) || strings.HasPrefix(rel, "..") {
			c.logger.Warn("skipping path outside archive", "name", name)
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	c.logger.Debug("archive listed", "path", path, "files", len(files), "textures", len(names))

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	jobs := make(chan job)
	errc := make(chan error, 1)
	go func() {
		defer close(jobs)
		defer close(errc)
		for _, name := range names {
			j := job{
				src:  name,
				data: files[name],
				dest: pngName(filepath.Join(destDir, filepath.FromSlash(name))),
			}
			select {
			case jobs <- j:
			case <-ctx.Done():
				errc <- errCancelled
				return
			}
		}
	}()

	return c.run(ctx, cancelFunc, jobs, []<-chan error{errc})
}
