package wiiart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/wiiart/hmx"
	"github.com/bodgit/wiiart/tpl"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Container identifies how a texture file is wrapped.
type Container string

// Supported containers.
const (
	ContainerTPL    Container = "TPL"
	ContainerPNGWii Container = "PNG_WII"
)

// Stat describes a texture file without its pixels.
type Stat struct {
	Path      string    `json:"path"`
	Container Container `json:"container"`
	Format    string    `json:"format"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	DataSize  int       `json:"dataSize"`
	Key       string    `json:"key"`
}

func containerOf(path string) (Container, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tpl":
		return ContainerTPL, nil
	case ".png_wii":
		return ContainerPNGWii, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownContainer, path)
}

func toNRGBA(m image.Image) *image.NRGBA {
	b := m.Bounds()
	nm := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nm, nm.Rect, m, b.Min, draw.Src)
	return nm
}

// normalize returns the file contents b as they are decoded, with the byte
// order of .png_wii pixel data fixed up if requested.
func (c *Converter) normalize(container Container, b []byte) []byte {
	if container == ContainerPNGWii && c.opts.SwapBytes {
		return hmx.SwapBytes(b)
	}
	return b
}

// toTPL returns the normalized contents b as a TPL file, rewrapping .png_wii
// data.
func (c *Converter) toTPL(container Container, b []byte) ([]byte, error) {
	if container != ContainerPNGWii {
		return b, nil
	}
	cfg, err := hmx.ReadConfig(b)
	if err != nil {
		return nil, err
	}
	return hmx.ToTPL(b, cfg)
}

// decode decodes the texture file contents b read from path, consulting the
// cache first.
func (c *Converter) decode(path string, b []byte) (*Texture, error) {
	container, err := containerOf(path)
	if err != nil {
		return nil, err
	}

	// Key the bytes actually decoded so options that change the result
	// never share a cache entry
	b = c.normalize(container, b)
	key := Key(b)
	if c.db != nil {
		t, err := c.db.Find(key)
		if err != nil {
			return nil, err
		}
		if t != nil {
			c.logger.Debug("cache hit", "path", path, "key", key)
			if err := c.db.Store(key, path, t); err != nil {
				return nil, err
			}
			return t, nil
		}
	}

	b, err = c.toTPL(container, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	f, err := tpl.FormatOf(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m, err := tpl.DecodeBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t := &Texture{Format: f, Image: m}

	c.logger.Debug("decoded", "path", path, "format", f, "width", m.Rect.Dx(), "height", m.Rect.Dy())

	if c.db != nil {
		if err := c.db.Store(key, path, t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// DecodeFile decodes the .tpl or .png_wii file at path.
func (c *Converter) DecodeFile(path string) (*Texture, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.decode(path, b)
}

func (c *Converter) writePNG(dest string, m *image.NRGBA) error {
	var out image.Image = m
	if c.opts.PaletteSize > 0 {
		p := c.quantizer.Quantize(make(color.Palette, 0, c.opts.PaletteSize), m)
		pm := image.NewPaletted(m.Rect, p)
		draw.FloydSteinberg.Draw(pm, pm.Rect, m, image.Point{})
		out = pm
	}

	b := new(bytes.Buffer)
	if err := png.Encode(b, out); err != nil {
		return err
	}
	return ioutil.WriteFile(dest, b.Bytes(), 0o644)
}

// ExportPNG decodes the texture file at src and writes it to dest as a PNG
// image.
func (c *Converter) ExportPNG(src, dest string) error {
	t, err := c.DecodeFile(src)
	if err != nil {
		return err
	}
	if err := c.writePNG(dest, t.Image); err != nil {
		return err
	}
	c.logger.Info("exported", "src", src, "dest", dest)
	return nil
}

// EncodeFile decodes the image at src and writes it to dest as a texture in
// format f, resized to width by height. A zero width or height keeps the
// source dimension, or the default artwork size for .png_wii destinations.
func (c *Converter) EncodeFile(src, dest string, f tpl.Format, width, height int) error {
	container, err := containerOf(dest)
	if err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(src), filepath.Ext(dest)) {
		return fmt.Errorf("%w: %s", ErrSameFormat, filepath.Ext(dest))
	}

	file, err := os.Open(src)
	if err != nil {
		return err
	}
	defer file.Close()

	m, kind, err := image.Decode(file)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	c.logger.Debug("decoded source", "path", src, "type", kind, "bounds", m.Bounds())

	if width == 0 {
		width = m.Bounds().Dx()
		if container == ContainerPNGWii {
			width = hmx.DefaultConfig.Width
		}
	}
	if height == 0 {
		height = m.Bounds().Dy()
		if container == ContainerPNGWii {
			height = hmx.DefaultConfig.Height
		}
	}

	nm := image.NewNRGBA(image.Rect(0, 0, width, height))
	if m.Bounds().Size() == nm.Rect.Size() {
		draw.Draw(nm, nm.Rect, m, m.Bounds().Min, draw.Src)
	} else {
		c.scaler.Scale(nm, nm.Rect, m, m.Bounds(), draw.Src, nil)
	}

	b, err := tpl.EncodeBytes(nm, f)
	if err != nil {
		return err
	}

	if container == ContainerPNGWii {
		header, err := hmx.NewHMXHeader(hmx.Config{Width: width, Height: height, Format: f})
		if err != nil {
			return err
		}
		if b, err = hmx.FromTPL(b, header); err != nil {
			return err
		}
	}

	if err := ioutil.WriteFile(dest, b, 0o644); err != nil {
		return err
	}
	c.logger.Info("encoded", "src", src, "dest", dest, "format", f, "width", width, "height", height)
	return nil
}

// Stat returns the container, format and dimensions of the texture file at
// path. Pixel data is not decoded.
func (c *Converter) Stat(path string) (*Stat, error) {
	container, err := containerOf(path)
	if err != nil {
		return nil, err
	}

	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b = c.normalize(container, b)
	key := Key(b)

	if b, err = c.toTPL(container, b); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	f, err := tpl.FormatOf(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	w, h, err := tpl.DimensionsOf(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	size, err := tpl.DataSize(f, w, h)
	if err != nil {
		return nil, err
	}

	return &Stat{
		Path:      path,
		Container: container,
		Format:    f.String(),
		Width:     w,
		Height:    h,
		DataSize:  size,
		Key:       key,
	}, nil
}
