package tpl

import (
	"encoding/binary"
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// container returns a single texture TPL file holding data.
func container(t *testing.T, f Format, w, h int, data []byte) []byte {
	t.Helper()
	b, err := HeaderBytes(&TextureHeader{
		Width:      uint16(w),
		Height:     uint16(h),
		Format:     f,
		DataOffset: DataOffset,
	})
	require.NoError(t, err)
	return append(b, data...)
}

// indexed returns a single texture TPL file with a palette of entries in
// palette format pf appended after the pixel data.
func indexed(t *testing.T, f Format, w, h int, data []byte, pf uint32, entries []uint16) []byte {
	t.Helper()
	b := container(t, f, w, h, data)

	off := len(b)
	binary.BigEndian.PutUint32(b[headerSize+4:], uint32(off))

	ph, err := paletteHeaderSchema.NewRecord().
		MustSet("nitems", len(entries)).
		MustSet("format", pf).
		MustSet("offset", off+12).
		Pack()
	require.NoError(t, err)
	b = append(b, ph...)

	for _, e := range entries {
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], e)
		b = append(b, tmp[:]...)
	}
	return b
}

// randomData returns pixel data for f where every texel is in the canonical
// form the encoder produces.
func randomData(rnd *rand.Rand, f Format, w, h int) []byte {
	t := texelFormats[f]
	data := make([]byte, t.dataSize(w, h))
	rnd.Read(data)

	if f == RGB5A3 {
		for i := 0; i < len(data); i += 2 {
			// Opaque pixels are always stored as RGB555
			if data[i]&0x80 == 0 && data[i]&0x70 == 0x70 {
				data[i] &^= 0x10
			}
		}
	}

	// Padding texels are written as zero
	_ = t.walk(w, h, func(i, x, y int) error {
		if x >= w || y >= h {
			t.write(data, i, 0)
		}
		return nil
	})
	return data
}

func decodeOrFail(t *testing.T, b []byte) *image.NRGBA {
	t.Helper()
	m, err := DecodeBytes(b)
	require.NoError(t, err)
	return m
}
