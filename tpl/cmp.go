package tpl

import (
	"encoding/binary"
	"image"
	"image/color"
)

// blend mixes two RGB565 colors channel by channel with weights w0 and w1.
func blend(w0, w1 uint32, c0, c1 uint16) uint16 {
	mix := func(shift, mask uint32) uint32 {
		a := uint32(c0) >> shift & mask
		b := uint32(c1) >> shift & mask
		return (w0*a + w1*b) / (w0 + w1) & mask << shift
	}
	return uint16(mix(11, 0x1f) | mix(5, 0x3f) | mix(0, 0x1f))
}

// cmpPalette returns the four colors selectable in a block. Without
// punch-through alpha the fourth color of a c0 <= c1 block is opaque black.
func cmpPalette(c0, c1 uint16) [4]color.NRGBA {
	var p [4]color.NRGBA
	p[0] = rgb565ToColor(uint32(c0))
	p[1] = rgb565ToColor(uint32(c1))
	if c0 > c1 {
		p[2] = rgb565ToColor(uint32(blend(2, 1, c0, c1)))
		p[3] = rgb565ToColor(uint32(blend(1, 2, c0, c1)))
	} else {
		p[2] = rgb565ToColor(uint32(blend(1, 1, c0, c1)))
		p[3] = color.NRGBA{0, 0, 0, 0xff}
	}
	return p
}

// cmpOffset returns the offset of the 8 byte sub-block holding pixel (x, y).
// Each 8x8 tile holds four 4x4 sub-blocks in row order.
func cmpOffset(x, y, stride int) int {
	x1, x2 := (x>>2)&1, x>>3
	y1, y2 := (y>>2)&1, y>>3
	return 8*x1 + 16*y1 + 32*x2 + 4*stride*y2
}

func decodeCMP(m *image.NRGBA, data []byte) {
	w, h := m.Rect.Dx(), m.Rect.Dy()
	stride := align(w, 8)

	var (
		last    = -1
		palette [4]color.NRGBA
		bits    uint32
	)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := cmpOffset(x, y, stride)
			if off != last {
				c0 := binary.BigEndian.Uint16(data[off:])
				c1 := binary.BigEndian.Uint16(data[off+2:])
				palette = cmpPalette(c0, c1)
				bits = binary.BigEndian.Uint32(data[off+4:])
				last = off
			}
			i := uint(x&3 + 4*(y&3))
			m.SetNRGBA(x, y, palette[bits>>(30-2*i)&3])
		}
	}
}
