package tpl

import (
	"encoding/binary"
	"image/color"
)

// texelFormat describes how one pixel format is tiled and converted.
type texelFormat struct {
	tileWidth, tileHeight int
	bits                  int // per texel

	read  func(b []byte, i int) uint32
	write func(b []byte, i int, v uint32)

	// nil for indexed formats
	toColor func(v uint32) color.NRGBA
	// nil when the format cannot be encoded
	fromColor func(c color.NRGBA) uint32

	indexMask uint32 // non-zero for indexed formats
}

var texelFormats = map[Format]*texelFormat{
	I4: {
		tileWidth: 8, tileHeight: 8, bits: 4,
		read: read4, write: write4,
		toColor: i4ToColor, fromColor: colorToI4,
	},
	I8: {
		tileWidth: 8, tileHeight: 4, bits: 8,
		read: read8, write: write8,
		toColor: i8ToColor, fromColor: colorToI8,
	},
	IA4: {
		tileWidth: 8, tileHeight: 4, bits: 8,
		read: read8, write: write8,
		toColor: ia4ToColor, fromColor: colorToIA4,
	},
	IA8: {
		tileWidth: 4, tileHeight: 4, bits: 16,
		read: read16, write: write16,
		toColor: ia8ToColor, fromColor: colorToIA8,
	},
	RGB565: {
		tileWidth: 4, tileHeight: 4, bits: 16,
		read: read16, write: write16,
		toColor: rgb565ToColor, fromColor: colorToRGB565,
	},
	RGB5A3: {
		tileWidth: 4, tileHeight: 4, bits: 16,
		read: read16, write: write16,
		toColor: rgb5a3ToColor, fromColor: colorToRGB5A3,
	},
	RGBA8: {
		tileWidth: 4, tileHeight: 4, bits: 32,
		read: readRGBA8, write: writeRGBA8,
		toColor: argbToColor, fromColor: colorToARGB,
	},
	CI4: {
		tileWidth: 8, tileHeight: 8, bits: 4,
		read:      read4,
		indexMask: 0xf,
	},
	CI8: {
		tileWidth: 8, tileHeight: 4, bits: 8,
		read:      read8,
		indexMask: 0xff,
	},
	CI14X2: {
		tileWidth: 4, tileHeight: 4, bits: 16,
		read:      read16,
		indexMask: 0x3fff,
	},
	CMP: {
		tileWidth: 8, tileHeight: 8, bits: 4,
	},
}

// paletteFormats maps palette entry format codes to the texel format used
// to convert each entry.
var paletteFormats = map[uint32]Format{
	paletteIA8:    IA8,
	paletteRGB565: RGB565,
	paletteRGB5A3: RGB5A3,
}

// align rounds v up to a multiple of n.
func align(v, n int) int {
	if m := v % n; m != 0 {
		return v + n - m
	}
	return v
}

// dataSize returns the number of bytes of pixel data for a w by h texture.
func (t *texelFormat) dataSize(w, h int) int {
	return align(w, t.tileWidth) * align(h, t.tileHeight) * t.bits / 8
}

// walk calls fn for every texel in storage order with its index and the
// pixel position it maps to. Positions outside w by h are included so that
// the index keeps counting through padding.
func (t *texelFormat) walk(w, h int, fn func(i, x, y int) error) error {
	i := 0
	for ty := 0; ty < h; ty += t.tileHeight {
		for tx := 0; tx < w; tx += t.tileWidth {
			for y := ty; y < ty+t.tileHeight; y++ {
				for x := tx; x < tx+t.tileWidth; x++ {
					if err := fn(i, x, y); err != nil {
						return err
					}
					i++
				}
			}
		}
	}
	return nil
}

// Even texels use the upper nibble.
func read4(b []byte, i int) uint32 {
	v := b[i>>1]
	if i&1 == 0 {
		return uint32(v >> 4)
	}
	return uint32(v & 0x0f)
}

func write4(b []byte, i int, v uint32) {
	if i&1 == 0 {
		b[i>>1] = b[i>>1]&0x0f | byte(v&0x0f)<<4
	} else {
		b[i>>1] = b[i>>1]&0xf0 | byte(v&0x0f)
	}
}

func read8(b []byte, i int) uint32 {
	return uint32(b[i])
}

func write8(b []byte, i int, v uint32) {
	b[i] = byte(v)
}

func read16(b []byte, i int) uint32 {
	return uint32(binary.BigEndian.Uint16(b[i<<1:]))
}

func write16(b []byte, i int, v uint32) {
	binary.BigEndian.PutUint16(b[i<<1:], uint16(v))
}

// RGBA8 tiles are 64 bytes; the first 32 hold an A,R pair for each of the 16
// pixels and the second 32 a G,B pair. Texels are returned as 0xAARRGGBB.
func rgba8Offsets(i int) (int, int) {
	base := (i >> 4) * 64
	j := (i & 15) << 1
	return base + j, base + 32 + j
}

func readRGBA8(b []byte, i int) uint32 {
	ar, gb := rgba8Offsets(i)
	return uint32(b[ar])<<24 | uint32(b[ar+1])<<16 | uint32(b[gb])<<8 | uint32(b[gb+1])
}

func writeRGBA8(b []byte, i int, v uint32) {
	ar, gb := rgba8Offsets(i)
	b[ar], b[ar+1] = byte(v>>24), byte(v>>16)
	b[gb], b[gb+1] = byte(v>>8), byte(v)
}

// expand scales an n-bit value to 8 bits.
func expand(v uint32, n uint) uint8 {
	max := uint32(1)<<n - 1
	return uint8((v & max) * 255 / max)
}

// reduce is the inverse of expand, rounding to the nearest n-bit value so
// that reduce(expand(v)) == v.
func reduce(c uint8, n uint) uint32 {
	max := uint32(1)<<n - 1
	return (uint32(c)*max + 127) / 255
}

func intensity(c color.NRGBA) uint8 {
	return uint8((uint32(c.R) + uint32(c.G) + uint32(c.B)) / 3)
}

func i4ToColor(v uint32) color.NRGBA {
	i := expand(v, 4)
	return color.NRGBA{i, i, i, i}
}

func colorToI4(c color.NRGBA) uint32 {
	return reduce(intensity(c), 4)
}

func i8ToColor(v uint32) color.NRGBA {
	i := uint8(v)
	return color.NRGBA{i, i, i, 0xff}
}

func colorToI8(c color.NRGBA) uint32 {
	return uint32(intensity(c))
}

func ia4ToColor(v uint32) color.NRGBA {
	i := expand(v, 4)
	return color.NRGBA{i, i, i, expand(v>>4, 4)}
}

func colorToIA4(c color.NRGBA) uint32 {
	return reduce(c.A, 4)<<4 | reduce(intensity(c), 4)
}

func ia8ToColor(v uint32) color.NRGBA {
	i := uint8(v >> 8)
	return color.NRGBA{i, i, i, uint8(v)}
}

func colorToIA8(c color.NRGBA) uint32 {
	return uint32(intensity(c))<<8 | uint32(c.A)
}

func rgb565ToColor(v uint32) color.NRGBA {
	return color.NRGBA{
		expand(v>>11, 5),
		expand(v>>5, 6),
		expand(v, 5),
		0xff,
	}
}

func colorToRGB565(c color.NRGBA) uint32 {
	return reduce(c.R, 5)<<11 | reduce(c.G, 6)<<5 | reduce(c.B, 5)
}

func rgb5a3ToColor(v uint32) color.NRGBA {
	if v&0x8000 != 0 {
		return color.NRGBA{
			expand(v>>10, 5),
			expand(v>>5, 5),
			expand(v, 5),
			0xff,
		}
	}
	return color.NRGBA{
		expand(v>>8, 4),
		expand(v>>4, 4),
		expand(v, 4),
		expand(v>>12, 3),
	}
}

// Pixels with alpha above 0xda are stored opaque as RGB555.
func colorToRGB5A3(c color.NRGBA) uint32 {
	if c.A > 0xda {
		return 0x8000 | reduce(c.R, 5)<<10 | reduce(c.G, 5)<<5 | reduce(c.B, 5)
	}
	return reduce(c.A, 3)<<12 | reduce(c.R, 4)<<8 | reduce(c.G, 4)<<4 | reduce(c.B, 4)
}

func argbToColor(v uint32) color.NRGBA {
	return color.NRGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), uint8(v >> 24)}
}

func colorToARGB(c color.NRGBA) uint32 {
	return uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}
