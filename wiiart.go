/*
Package wiiart is a library for converting Nintendo Wii texture artwork, TPL
files and Harmonix .png_wii album art, to and from common image formats.
*/
package wiiart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/image/draw"
)

const defaultWorkers = 10

var (
	// ErrUnknownInterpolation is returned for an unrecognised
	// Options.Interpolation value.
	ErrUnknownInterpolation = errors.New("wiiart: unknown interpolation")
	// ErrUnknownContainer is returned for files that are neither TPL nor
	// .png_wii.
	ErrUnknownContainer = errors.New("wiiart: unknown container")
	// ErrSameFormat is returned when converting a file to its own format.
	ErrSameFormat = errors.New("wiiart: source and destination have the same format")
)

var interpolators = map[string]draw.Interpolator{
	"nearest":    draw.NearestNeighbor,
	"approx":     draw.ApproxBiLinear,
	"bilinear":   draw.BiLinear,
	"catmullrom": draw.CatmullRom,
}

// Interpolations returns the names accepted by Options.Interpolation.
func Interpolations() []string {
	return []string{"nearest", "approx", "bilinear", "catmullrom"}
}

// Options controls a Converter.
type Options struct {
	// Workers is the number of files converted concurrently by Scan and
	// ExportArchive, defaults to 10.
	Workers int
	// Interpolation is used when resizing images for encoding, defaults to
	// "bilinear".
	Interpolation string
	// PaletteSize, when non-zero, reduces exported PNG images to a
	// paletted image of at most that many colors.
	PaletteSize int
	// SwapBytes byte swaps .png_wii pixel data before decoding.
	SwapBytes bool
}

// Converter converts artwork, caching decoded textures in an ArtworkDB.
type Converter struct {
	db        *ArtworkDB
	logger    hclog.Logger
	opts      Options
	scaler    draw.Interpolator
	quantizer quantize.MedianCutQuantizer
}

// New returns a Converter. db may be nil to disable caching and logger may be
// nil to disable logging.
func New(db *ArtworkDB, logger hclog.Logger, opts Options) (*Converter, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Interpolation == "" {
		opts.Interpolation = "bilinear"
	}
	scaler, ok := interpolators[strings.ToLower(opts.Interpolation)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInterpolation, opts.Interpolation)
	}
	if opts.PaletteSize < 0 || opts.PaletteSize > 256 {
		return nil, fmt.Errorf("wiiart: palette size %d out of range", opts.PaletteSize)
	}
	return &Converter{
		db:     db,
		logger: logger,
		opts:   opts,
		scaler: scaler,
	}, nil
}

// Close closes the underlying ArtworkDB, if any.
func (c *Converter) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
