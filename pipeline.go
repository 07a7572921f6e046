package wiiart

import (
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Ignore any texture file greater than 16 MB
const maxTextureSize = 16 << (10 * 2)

var errCancelled = errors.New("wiiart: cancelled")

type job struct {
	src  string
	data []byte // read from src when nil
	dest string
}

func pngName(file string) string {
	return strings.TrimSuffix(file, filepath.Ext(file)) + ".png"
}

func (c *Converter) findTextures(ctx context.Context, base string) (<-chan job, <-chan error, error) {
	out := make(chan job)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
			if info.Name()[0] == '.' && file != base {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a normal file
			if !info.Mode().IsRegular() {
				return nil
			}

			if info.Size() > maxTextureSize {
				c.logger.Warn("skipping large file", "path", file, "size", info.Size())
				return nil
			}

			if _, err := containerOf(file); err != nil {
				return nil
			}

			select {
			case out <- job{src: file, dest: pngName(file)}:
			case <-ctx.Done():
				return errCancelled
			}

			return nil
		})
	}()
	return out, errc, nil
}

func (c *Converter) textureWorker(ctx context.Context, in <-chan job, done func()) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for j := range in {
			if ctx.Err() != nil {
				errc <- errCancelled
				return
			}

			b := j.data
			if b == nil {
				var err error
				if b, err = ioutil.ReadFile(j.src); err != nil {
					errc <- err
					return
				}
			}

			t, err := c.decode(j.src, b)
			if err != nil {
				errc <- err
				return
			}

			if err := os.MkdirAll(filepath.Dir(j.dest), 0o755); err != nil {
				errc <- err
				return
			}

			if err := c.writePNG(j.dest, t.Image); err != nil {
				errc <- err
				return
			}
			c.logger.Info("exported", "src", j.src, "dest", j.dest)
			done()
		}
	}()
	return errc, nil
}

// waitForPipeline returns the first error from errs. It calls cancel on that
// error and keeps reading until every channel is closed, so no stage is
// still running when it returns.
func waitForPipeline(cancel context.CancelFunc, errs ...<-chan error) error {
	var first error
	for err := range mergeErrors(errs...) {
		if err != nil && first == nil {
			first = err
			cancel()
		}
	}
	return first
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// run converts every job from jobs with Options.Workers workers and returns
// the number converted. cancelFunc must cancel ctx, which the producer of
// jobs also watches.
func (c *Converter) run(ctx context.Context, cancelFunc context.CancelFunc, jobs <-chan job, errcList []<-chan error) (int, error) {
	var mu sync.Mutex
	var n int
	done := func() {
		mu.Lock()
		n++
		mu.Unlock()
	}

	for i := 0; i < c.opts.Workers; i++ {
		errc, err := c.textureWorker(ctx, jobs, done)
		if err != nil {
			return 0, err
		}
		errcList = append(errcList, errc)
	}

	err := waitForPipeline(cancelFunc, errcList...)

	mu.Lock()
	defer mu.Unlock()
	return n, err
}

// Scan walks path and writes a PNG image next to every .tpl and .png_wii file
// found. It returns the number of files exported.
func (c *Converter) Scan(ctx context.Context, path string) (int, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	jobs, errc, err := c.findTextures(ctx, dir)
	if err != nil {
		return 0, err
	}

	n, err := c.run(ctx, cancelFunc, jobs, []<-chan error{errc})
	c.logger.Debug("scan finished", "path", dir, "exported", n)
	return n, err
}
