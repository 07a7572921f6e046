package tpl

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"io/ioutil"
)

func init() {
	image.RegisterFormat("tpl", "\x00\x20\xaf\x30", Decode, DecodeConfig)
}

// ParseContainer reads the container header and the texture descriptor
// table. Only containers holding exactly one texture are accepted.
func ParseContainer(b []byte) (*Header, []Descriptor, error) {
	h, err := readHeader(b)
	if err != nil {
		return nil, nil, err
	}
	if h.Magic != Magic {
		return nil, nil, fmt.Errorf("%w: %#08x", ErrInvalidMagic, h.Magic)
	}
	switch {
	case h.NTextures == 0:
		return nil, nil, ErrNoTexture
	case h.NTextures > 1:
		return nil, nil, fmt.Errorf("%w: %d textures", ErrUnsupportedMultiTexture, h.NTextures)
	}

	descriptors := make([]Descriptor, 0, h.NTextures)
	for i := 0; i < int(h.NTextures); i++ {
		d, err := readDescriptor(b, headerSize+i*descriptorSize)
		if err != nil {
			return nil, nil, err
		}
		descriptors = append(descriptors, d)
	}
	return h, descriptors, nil
}

type decoder struct {
	b       []byte
	desc    Descriptor
	texture *TextureHeader
	format  *texelFormat
	palette []color.NRGBA
}

func (d *decoder) readHeaders(b []byte) error {
	_, descriptors, err := ParseContainer(b)
	if err != nil {
		return err
	}
	d.b = b
	d.desc = descriptors[0]

	if d.texture, err = readTextureHeader(b, int(d.desc.HeaderOffset)); err != nil {
		return err
	}

	var ok bool
	if d.format, ok = texelFormats[d.texture.Format]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownFormat, uint32(d.texture.Format))
	}
	return nil
}

// pixelData returns the packed pixel data, checking there is enough of it.
func (d *decoder) pixelData() ([]byte, error) {
	w, h := int(d.texture.Width), int(d.texture.Height)
	start := int(d.texture.DataOffset)
	n := d.format.dataSize(w, h)
	if start > len(d.b) || len(d.b)-start < n {
		return nil, fmt.Errorf("%w: %s %dx%d needs %d bytes at offset %#x", ErrTruncatedInput, d.texture.Format, w, h, n, start)
	}
	return d.b[start : start+n], nil
}

func (d *decoder) decode() (*image.NRGBA, error) {
	data, err := d.pixelData()
	if err != nil {
		return nil, err
	}

	if d.format.indexMask != 0 {
		if err := d.readPalette(); err != nil {
			return nil, err
		}
	}

	w, h := int(d.texture.Width), int(d.texture.Height)
	m := image.NewNRGBA(image.Rect(0, 0, w, h))

	if d.texture.Format == CMP {
		decodeCMP(m, data)
		return m, nil
	}

	convert := d.format.toColor
	if err := d.format.walk(w, h, func(i, x, y int) error {
		if x >= w || y >= h {
			return nil
		}
		v := d.format.read(data, i)
		if convert != nil {
			m.SetNRGBA(x, y, convert(v))
			return nil
		}
		v &= d.format.indexMask
		if int(v) >= len(d.palette) {
			return fmt.Errorf("%w: index %d at (%d,%d), palette has %d entries", ErrPaletteIndexOutOfRange, v, x, y, len(d.palette))
		}
		m.SetNRGBA(x, y, d.palette[v])
		return nil
	}); err != nil {
		return nil, err
	}

	return m, nil
}

// DecodeBytes decodes the single texture held in b.
func DecodeBytes(b []byte) (*image.NRGBA, error) {
	var d decoder
	if err := d.readHeaders(b); err != nil {
		return nil, err
	}
	return d.decode()
}

// Decode reads a TPL file from r and returns its texture as an image.Image.
func Decode(r io.Reader) (image.Image, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(b)
}

// DecodeConfig returns the color model and dimensions of a TPL texture
// without decoding the pixel data.
func DecodeConfig(r io.Reader) (image.Config, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return image.Config{}, err
	}
	w, h, err := DimensionsOf(b)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      w,
		Height:     h,
	}, nil
}

// Inspect returns the texture header of the single texture in b.
func Inspect(b []byte) (*TextureHeader, error) {
	_, descriptors, err := ParseContainer(b)
	if err != nil {
		return nil, err
	}
	return readTextureHeader(b, int(descriptors[0].HeaderOffset))
}

// FormatOf returns the pixel format of the texture in b. Pixel data is not
// read.
func FormatOf(b []byte) (Format, error) {
	t, err := Inspect(b)
	if err != nil {
		return 0, err
	}
	if _, ok := texelFormats[t.Format]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownFormat, uint32(t.Format))
	}
	return t.Format, nil
}

// DimensionsOf returns the width and height of the texture in b.
func DimensionsOf(b []byte) (int, int, error) {
	t, err := Inspect(b)
	if err != nil {
		return 0, 0, err
	}
	return int(t.Width), int(t.Height), nil
}

// IsTPL reports whether b starts with the TPL magic.
func IsTPL(b []byte) bool {
	return bytes.HasPrefix(b, []byte{0x00, 0x20, 0xaf, 0x30})
}

// DataOffsetOf returns the offset of the pixel data of the texture in b.
func DataOffsetOf(b []byte) (int, error) {
	t, err := Inspect(b)
	if err != nil {
		return 0, err
	}
	if int(t.DataOffset) > len(b) {
		return 0, fmt.Errorf("%w: data offset %#x", ErrTruncatedInput, t.DataOffset)
	}
	return int(t.DataOffset), nil
}
