package hmx

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bodgit/wiiart/tpl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultHeader = []byte{
	0x00, 0x20, 0xaf, 0x30, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x0c, 0x00, 0x00, 0x00, 0x14,
	0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x0e, 0x00, 0x00, 0x00, 0x40,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

func TestHeader(t *testing.T) {
	b, err := Header(DefaultConfig)
	require.NoError(t, err)
	assert.Equal(t, defaultHeader, b)

	for _, cfg := range []Config{
		{Format: tpl.CMP},
		{Width: 70000, Height: 4, Format: tpl.CMP},
		{Width: 4, Height: 0x10000, Format: tpl.CMP},
	} {
		_, err = Header(cfg)
		assert.True(t, errors.Is(err, ErrBadConfig), "%+v", cfg)
	}
}

func TestNewHMXHeader(t *testing.T) {
	b, err := NewHMXHeader(DefaultConfig)
	require.NoError(t, err)
	assert.Len(t, b, HeaderSize)
	assert.Equal(t, []byte{0x01, 0x04, 0x48, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x80, 0x00}, b[:13])

	cfg, err := ReadConfig(b)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig, cfg)

	cfg, err = ReadConfig(make([]byte, HeaderSize))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig, cfg)

	_, err = ReadConfig(b[:10])
	assert.Equal(t, ErrShortHeader, err)

	b, err = NewHMXHeader(Config{Width: 64, Height: 32, Format: tpl.RGBA8})
	require.NoError(t, err)
	cfg, err = ReadConfig(b)
	require.NoError(t, err)
	assert.Equal(t, Config{Width: 64, Height: 32, Format: tpl.RGBA8}, cfg)

	tables := []Config{
		{Width: 8, Height: 8, Format: tpl.I4},
		{Width: 8, Height: 8, Format: tpl.IA8},
		{Width: 8, Height: 8, Format: tpl.CI8},
		{Width: 0, Height: 8, Format: tpl.CMP},
		{Width: 70000, Height: 4, Format: tpl.CMP},
		{Width: 4, Height: 70000, Format: tpl.I8},
		// Bytes per line overflows
		{Width: 16384, Height: 4, Format: tpl.RGBA8},
		{Width: 32768, Height: 4, Format: tpl.RGB5A3},
	}
	for _, cfg := range tables {
		assert.NotPanics(t, func() {
			_, err = NewHMXHeader(cfg)
		})
		assert.True(t, errors.Is(err, ErrBadConfig), "%+v", cfg)
	}

	b, err = NewHMXHeader(Config{Width: 16383, Height: 4, Format: tpl.RGBA8})
	require.NoError(t, err)
	cfg, err = ReadConfig(b)
	require.NoError(t, err)
	assert.Equal(t, 16383, cfg.Width)
}

func TestConvert(t *testing.T) {
	cfg := Config{Width: 8, Height: 8, Format: tpl.CMP}

	// One 8x8 CMP tile, four sub-blocks of solid red
	var pixels []byte
	for i := 0; i < 4; i++ {
		pixels = append(pixels, 0xf8, 0x00, 0xf8, 0x00, 0x00, 0x00, 0x00, 0x00)
	}

	hmxHeader, err := NewHMXHeader(cfg)
	require.NoError(t, err)
	pngWii := append(append([]byte{}, hmxHeader...), pixels...)

	b, err := ToTPL(pngWii, cfg)
	require.NoError(t, err)
	assert.Len(t, b, TPLDataOffset+len(pixels))

	m, err := tpl.DecodeBytes(b)
	require.NoError(t, err)
	r, g, bl, a := m.At(7, 7).RGBA()
	assert.Equal(t, [4]uint32{0xffff, 0, 0, 0xffff}, [4]uint32{r, g, bl, a})

	back, err := FromTPL(b, hmxHeader)
	require.NoError(t, err)
	assert.Equal(t, pngWii, back)

	_, err = ToTPL(pngWii[:HeaderSize-1], cfg)
	assert.Equal(t, ErrShortHeader, err)

	_, err = FromTPL(b, hmxHeader[:4])
	assert.True(t, errors.Is(err, ErrShortHeader))

	_, err = FromTPL([]byte("not a texture"), hmxHeader)
	assert.True(t, errors.Is(err, tpl.ErrTruncatedInput) || errors.Is(err, tpl.ErrInvalidMagic))
}

func TestSwapBytes(t *testing.T) {
	b := append(bytes.Repeat([]byte{0xaa}, HeaderSize), 0x01, 0x02, 0x03, 0x04, 0x05)

	got := SwapBytes(b)
	assert.Equal(t, bytes.Repeat([]byte{0xaa}, HeaderSize), got[:HeaderSize])
	assert.Equal(t, []byte{0x02, 0x01, 0x04, 0x03, 0x05}, got[HeaderSize:])
	assert.Equal(t, byte(0x01), b[HeaderSize], "input is not modified")

	assert.Equal(t, b, SwapBytes(SwapBytes(b)))
	assert.Equal(t, []byte{1, 2}, SwapBytes([]byte{1, 2}))
}
