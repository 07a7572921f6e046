package tpl

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"io"
)

// DataOffset is where pixel data starts in encoded files, directly after
// the texture header.
const DataOffset = headerSize + descriptorSize + textureHeaderSize

type encoder struct {
	w      io.Writer
	format Format
}

func toNRGBA(m image.Image) *image.NRGBA {
	if nm, ok := m.(*image.NRGBA); ok && nm.Rect.Min == (image.Point{}) {
		return nm
	}
	b := m.Bounds()
	nm := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nm, nm.Rect, m, b.Min, draw.Src)
	return nm
}

// pack returns the pixel data of m in format t.
func pack(m *image.NRGBA, t *texelFormat) []byte {
	w, h := m.Rect.Dx(), m.Rect.Dy()
	data := make([]byte, t.dataSize(w, h))
	_ = t.walk(w, h, func(i, x, y int) error {
		// Padding is left as zero, transparent black
		if x < w && y < h {
			t.write(data, i, t.fromColor(m.NRGBAAt(x, y)))
		}
		return nil
	})
	return data
}

func (e *encoder) encode(m *image.NRGBA) error {
	t := texelFormats[e.format]

	w, h := m.Rect.Dx(), m.Rect.Dy()
	if w > 0xffff || h > 0xffff {
		return fmt.Errorf("tpl: image is too large: %dx%d", w, h)
	}

	header, err := HeaderBytes(&TextureHeader{
		Height:     uint16(h),
		Width:      uint16(w),
		Format:     e.format,
		DataOffset: DataOffset,
		Filter:     [2]uint32{1, 1},
	})
	if err != nil {
		return err
	}

	if _, err := e.w.Write(header); err != nil {
		return err
	}
	_, err = e.w.Write(pack(m, t))
	return err
}

// Encode writes the Image m to w as a single texture TPL file in format f.
func Encode(w io.Writer, m image.Image, f Format) error {
	if _, ok := texelFormats[f]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownFormat, uint32(f))
	}
	if !f.Encodable() {
		return fmt.Errorf("%w: %s", ErrUnsupportedEncodeFormat, f)
	}

	e := encoder{w: w, format: f}

	return e.encode(toNRGBA(m))
}

// EncodeBytes returns m encoded as a single texture TPL file in format f.
func EncodeBytes(m image.Image, f Format) ([]byte, error) {
	b := new(bytes.Buffer)
	if err := Encode(b, m, f); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// PixelData returns only the packed pixel data of m in format f, as found
// after the headers of an encoded file.
func PixelData(m image.Image, f Format) ([]byte, error) {
	if _, ok := texelFormats[f]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, uint32(f))
	}
	if !f.Encodable() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncodeFormat, f)
	}
	return pack(toNRGBA(m), texelFormats[f]), nil
}
