// Package hmx converts between Harmonix .png_wii album artwork and TPL files.
//
// A .png_wii file is a 32 byte Harmonix texture header followed by TPL pixel
// data with no TPL header of its own. A TPL header is rebuilt from the
// dimensions and pixel size recorded in the Harmonix header.
package hmx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/bodgit/wiiart/layout"
	"github.com/bodgit/wiiart/tpl"
)

// HeaderSize is the size of the Harmonix texture header.
const HeaderSize = 32

// TPLDataOffset is where pixel data starts in the TPL header produced by
// Header.
const TPLDataOffset = 0x40

const wiiTextureFormat = 0x48

var (
	// ErrShortHeader is returned when the input is too small to hold a
	// Harmonix header.
	ErrShortHeader = errors.New("hmx: short header")
	// ErrBadConfig is returned for zero dimensions or a format that cannot
	// be recorded in a Harmonix header.
	ErrBadConfig = errors.New("hmx: bad config")
)

// Harmonix headers only record the bits per pixel, each maps to one format.
var bppFormats = map[int]tpl.Format{
	4:  tpl.CMP,
	8:  tpl.I8,
	16: tpl.RGB5A3,
	32: tpl.RGBA8,
}

// Config describes the texture stored in a .png_wii file.
type Config struct {
	Width, Height int
	Format        tpl.Format
}

// DefaultConfig is the album artwork layout used by Rock Band on the Wii.
var DefaultConfig = Config{
	Width:  256,
	Height: 256,
	Format: tpl.CMP,
}

var headerSchema = layout.New("hmx", binary.LittleEndian,
	layout.Uint8("version"),
	layout.Uint8("bpp"),
	layout.Uint32("format"),
	layout.Uint8("mipmaps"),
	layout.Uint16("width"),
	layout.Uint16("height"),
	layout.Uint16("bpl"),
	layout.Array(layout.Uint8("reserved"), 19),
)

// Both headers record dimensions as 16-bit values.
func checkDimensions(cfg Config) error {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > math.MaxUint16 || cfg.Height > math.MaxUint16 {
		return fmt.Errorf("%w: %dx%d", ErrBadConfig, cfg.Width, cfg.Height)
	}
	return nil
}

// Header returns the 64 byte TPL header placed in front of the pixel data
// from a .png_wii file described by cfg.
func Header(cfg Config) ([]byte, error) {
	if err := checkDimensions(cfg); err != nil {
		return nil, err
	}
	return tpl.HeaderBytes(&tpl.TextureHeader{
		Height:     uint16(cfg.Height),
		Width:      uint16(cfg.Width),
		Format:     cfg.Format,
		DataOffset: TPLDataOffset,
		Filter:     [2]uint32{1, 1},
	})
}

// NewHMXHeader returns a Harmonix header for a texture described by cfg.
func NewHMXHeader(cfg Config) ([]byte, error) {
	if err := checkDimensions(cfg); err != nil {
		return nil, err
	}
	bpp := tpl.BitsPerPixel(cfg.Format)
	if f, ok := bppFormats[bpp]; !ok || f != cfg.Format {
		return nil, fmt.Errorf("%w: format %s", ErrBadConfig, cfg.Format)
	}

	r := headerSchema.NewRecord()
	for _, v := range []struct {
		name  string
		value int
	}{
		{"version", 1},
		{"bpp", bpp},
		{"format", wiiTextureFormat},
		{"width", cfg.Width},
		{"height", cfg.Height},
		{"bpl", cfg.Width * bpp / 8},
	} {
		if err := r.Set(v.name, v.value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
		}
	}
	return r.Pack()
}

// ReadConfig returns the texture described by the Harmonix header of b.
// Headers with no dimensions or an unknown pixel size are assumed to hold
// DefaultConfig.
func ReadConfig(b []byte) (Config, error) {
	if len(b) < HeaderSize {
		return Config{}, ErrShortHeader
	}
	r, err := layout.Unpack(headerSchema, b, 0)
	if err != nil {
		return Config{}, err
	}
	f, ok := bppFormats[int(r.Uint("bpp"))]
	cfg := Config{
		Width:  int(r.Uint("width")),
		Height: int(r.Uint("height")),
		Format: f,
	}
	if !ok || cfg.Width == 0 || cfg.Height == 0 {
		return DefaultConfig, nil
	}
	return cfg, nil
}

// ToTPL replaces the Harmonix header of b with a TPL header for cfg.
func ToTPL(b []byte, cfg Config) ([]byte, error) {
	if len(b) < HeaderSize {
		return nil, ErrShortHeader
	}
	header, err := Header(cfg)
	if err != nil {
		return nil, err
	}
	return append(header, b[HeaderSize:]...), nil
}

// FromTPL strips the headers of a single texture TPL file up to its pixel
// data and prepends hmxHeader, which must be HeaderSize bytes.
func FromTPL(b, hmxHeader []byte) ([]byte, error) {
	if len(hmxHeader) != HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(hmxHeader))
	}
	offset, err := tpl.DataOffsetOf(b)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, HeaderSize+len(b)-offset)
	out = append(out, hmxHeader...)
	return append(out, b[offset:]...), nil
}

// SwapBytes returns a copy of b with every 16-bit word after the Harmonix
// header byte swapped. Artwork from the Xbox 360 and PS3 versions stores
// pixel data little endian.
func SwapBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	if len(out) < HeaderSize {
		return out
	}
	for i := HeaderSize; i+1 < len(out); i += 2 {
		out[i], out[i+1] = out[i+1], out[i]
	}
	return out
}
