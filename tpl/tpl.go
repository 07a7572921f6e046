/*
Package tpl implements a decoder and encoder for the TPL texture container
used by the Nintendo Wii and GameCube.

A TPL file starts with a 12 byte header followed by a table of texture
descriptors, each pointing at a texture header and optionally a palette
header. Pixel data is stored in tiles that are visited row by row, with the
pixels inside each tile also stored row by row. The tile size depends on the
pixel format. Only single texture containers are supported.

All formats can be decoded. I4, I8, IA4, IA8, RGB565, RGB5A3 and RGBA8 can
also be encoded.
*/
package tpl

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/bodgit/wiiart/layout"
)

// Magic is the first four bytes of every TPL file.
const Magic uint32 = 0x0020af30

const (
	headerSize        = 0x0c
	descriptorSize    = 0x08
	textureHeaderSize = 0x24
)

var (
	// ErrTruncatedInput is returned when the input is shorter than a
	// header or the pixel data it describes
	ErrTruncatedInput = layout.ErrTruncated
	// ErrInvalidMagic is returned when the input is not a TPL file
	ErrInvalidMagic = errors.New("tpl: invalid magic")
	// ErrNoTexture is returned when the container holds no textures
	ErrNoTexture = errors.New("tpl: no texture")
	// ErrUnsupportedMultiTexture is returned for containers holding more
	// than one texture
	ErrUnsupportedMultiTexture = errors.New("tpl: more than one texture is not supported")
	// ErrUnknownFormat is returned for an unrecognised pixel format
	ErrUnknownFormat = errors.New("tpl: unknown format")
	// ErrUnsupportedEncodeFormat is returned when encoding to a palette
	// or compressed format
	ErrUnsupportedEncodeFormat = errors.New("tpl: format cannot be encoded")
	// ErrMissingPalette is returned when an indexed texture has no palette
	ErrMissingPalette = errors.New("tpl: missing palette")
	// ErrPaletteIndexOutOfRange is returned when a pixel refers to a
	// palette entry that does not exist
	ErrPaletteIndexOutOfRange = errors.New("tpl: palette index out of range")
)

// Format is the pixel format code stored in a texture header.
type Format uint32

// Pixel formats.
const (
	I4     Format = 0x00
	I8     Format = 0x01
	IA4    Format = 0x02
	IA8    Format = 0x03
	RGB565 Format = 0x04
	RGB5A3 Format = 0x05
	RGBA8  Format = 0x06
	CI4    Format = 0x08
	CI8    Format = 0x09
	CI14X2 Format = 0x0a
	CMP    Format = 0x0e
)

var formatNames = map[Format]string{
	I4:     "I4",
	I8:     "I8",
	IA4:    "IA4",
	IA8:    "IA8",
	RGB565: "RGB565",
	RGB5A3: "RGB5A3",
	RGBA8:  "RGBA8",
	CI4:    "CI4",
	CI8:    "CI8",
	CI14X2: "CI14X2",
	CMP:    "CMP",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Format(%d)", uint32(f))
}

// ParseFormat returns the format with the given name, ignoring case.
func ParseFormat(name string) (Format, error) {
	for f, s := range formatNames {
		if strings.EqualFold(s, name) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Formats returns every supported format in code order.
func Formats() []Format {
	return []Format{I4, I8, IA4, IA8, RGB565, RGB5A3, RGBA8, CI4, CI8, CI14X2, CMP}
}

// Encodable reports whether textures of format f can be encoded.
func (f Format) Encodable() bool {
	t, ok := texelFormats[f]
	return ok && t.fromColor != nil
}

// BitsPerPixel returns the storage size of one texel of format f, or 0 for
// an unknown format.
func BitsPerPixel(f Format) int {
	if t, ok := texelFormats[f]; ok {
		return t.bits
	}
	return 0
}

// DataSize returns the number of bytes of pixel data for a w by h texture
// of format f, including tile padding.
func DataSize(f Format, w, h int) (int, error) {
	t, ok := texelFormats[f]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownFormat, uint32(f))
	}
	return t.dataSize(w, h), nil
}

// Palette entry format codes, these differ from the texture format codes.
const (
	paletteIA8    = 0
	paletteRGB565 = 1
	paletteRGB5A3 = 2
)

var (
	headerSchema = layout.New("header", binary.BigEndian,
		layout.Uint32("magic"),
		layout.Uint32("ntextures"),
		layout.Uint32("header_size"),
	)
	descriptorSchema = layout.New("descriptor", binary.BigEndian,
		layout.Uint32("header_offset"),
		layout.Uint32("palette_offset"),
	)
	textureHeaderSchema = layout.New("texture", binary.BigEndian,
		layout.Uint16("height"),
		layout.Uint16("width"),
		layout.Uint32("format"),
		layout.Uint32("data_offset"),
		layout.Array(layout.Uint32("wrap"), 2),
		layout.Array(layout.Uint32("filter"), 2),
		layout.Float32("lod_bias"),
		layout.Uint8("edge_lod"),
		layout.Uint8("min_lod"),
		layout.Uint8("max_lod"),
		layout.Uint8("unpacked"),
	)
	paletteHeaderSchema = layout.New("palette", binary.BigEndian,
		layout.Uint16("nitems"),
		layout.Uint8("unpacked"),
		layout.Uint8("pad"),
		layout.Uint32("format"),
		layout.Uint32("offset"),
	)
)

// Header is the container header.
type Header struct {
	Magic      uint32
	NTextures  uint32
	HeaderSize uint32
}

// Descriptor locates the headers of one texture.
type Descriptor struct {
	HeaderOffset  uint32
	PaletteOffset uint32
}

// TextureHeader describes one texture.
type TextureHeader struct {
	Height     uint16
	Width      uint16
	Format     Format
	DataOffset uint32
	Wrap       [2]uint32
	Filter     [2]uint32
	LODBias    float32
	EdgeLOD    uint8
	MinLOD     uint8
	MaxLOD     uint8
	Unpacked   uint8
}

// PaletteHeader describes the palette of an indexed texture.
type PaletteHeader struct {
	NItems   uint16
	Unpacked uint8
	Format   uint32
	Offset   uint32
}

func (h *Header) record() *layout.Record {
	return headerSchema.NewRecord().
		MustSet("magic", h.Magic).
		MustSet("ntextures", h.NTextures).
		MustSet("header_size", h.HeaderSize)
}

func (d *Descriptor) record() *layout.Record {
	return descriptorSchema.NewRecord().
		MustSet("header_offset", d.HeaderOffset).
		MustSet("palette_offset", d.PaletteOffset)
}

func (t *TextureHeader) record() *layout.Record {
	return textureHeaderSchema.NewRecord().
		MustSet("height", t.Height).
		MustSet("width", t.Width).
		MustSet("format", uint32(t.Format)).
		MustSet("data_offset", t.DataOffset).
		MustSet("wrap", t.Wrap[:]).
		MustSet("filter", t.Filter[:]).
		MustSet("lod_bias", t.LODBias).
		MustSet("edge_lod", t.EdgeLOD).
		MustSet("min_lod", t.MinLOD).
		MustSet("max_lod", t.MaxLOD).
		MustSet("unpacked", t.Unpacked)
}

func readHeader(b []byte) (*Header, error) {
	r, err := layout.Unpack(headerSchema, b, 0)
	if err != nil {
		return nil, err
	}
	return &Header{
		Magic:      uint32(r.Uint("magic")),
		NTextures:  uint32(r.Uint("ntextures")),
		HeaderSize: uint32(r.Uint("header_size")),
	}, nil
}

func readDescriptor(b []byte, off int) (Descriptor, error) {
	r, err := layout.Unpack(descriptorSchema, b, off)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{
		HeaderOffset:  uint32(r.Uint("header_offset")),
		PaletteOffset: uint32(r.Uint("palette_offset")),
	}, nil
}

func readTextureHeader(b []byte, off int) (*TextureHeader, error) {
	r, err := layout.Unpack(textureHeaderSchema, b, off)
	if err != nil {
		return nil, err
	}
	t := &TextureHeader{
		Height:     uint16(r.Uint("height")),
		Width:      uint16(r.Uint("width")),
		Format:     Format(r.Uint("format")),
		DataOffset: uint32(r.Uint("data_offset")),
		LODBias:    r.Float("lod_bias"),
		EdgeLOD:    uint8(r.Uint("edge_lod")),
		MinLOD:     uint8(r.Uint("min_lod")),
		MaxLOD:     uint8(r.Uint("max_lod")),
		Unpacked:   uint8(r.Uint("unpacked")),
	}
	for i, v := range r.Uints("wrap") {
		t.Wrap[i] = uint32(v)
	}
	for i, v := range r.Uints("filter") {
		t.Filter[i] = uint32(v)
	}
	return t, nil
}

func readPaletteHeader(b []byte, off int) (*PaletteHeader, error) {
	r, err := layout.Unpack(paletteHeaderSchema, b, off)
	if err != nil {
		return nil, err
	}
	return &PaletteHeader{
		NItems:   uint16(r.Uint("nitems")),
		Unpacked: uint8(r.Uint("unpacked")),
		Format:   uint32(r.Uint("format")),
		Offset:   uint32(r.Uint("offset")),
	}, nil
}

// HeaderBytes returns the container header, a single texture descriptor and
// the texture header for t, padded with zeroes to t.DataOffset. Pixel data
// can be appended directly.
func HeaderBytes(t *TextureHeader) ([]byte, error) {
	const headerOffset = headerSize + descriptorSize

	if t.DataOffset < headerOffset+textureHeaderSize {
		return nil, fmt.Errorf("tpl: data offset %#x overlaps texture header", t.DataOffset)
	}

	h := Header{Magic: Magic, NTextures: 1, HeaderSize: headerSize}
	d := Descriptor{HeaderOffset: headerOffset}

	b := make([]byte, 0, t.DataOffset)
	for _, r := range []*layout.Record{h.record(), d.record(), t.record()} {
		p, err := r.Pack()
		if err != nil {
			return nil, err
		}
		b = append(b, p...)
	}
	return append(b, make([]byte, int(t.DataOffset)-len(b))...), nil
}
