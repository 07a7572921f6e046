package tpl

import (
	"encoding/binary"
	"fmt"
	"image/color"
)

// readPalette resolves the palette of an indexed texture into RGBA8 entries.
// Entries are stored linearly as big-endian 16-bit texels.
func (d *decoder) readPalette() error {
	if d.desc.PaletteOffset == 0 {
		return fmt.Errorf("%w: %s texture", ErrMissingPalette, d.texture.Format)
	}

	ph, err := readPaletteHeader(d.b, int(d.desc.PaletteOffset))
	if err != nil {
		return err
	}

	f, ok := paletteFormats[ph.Format]
	if !ok {
		return fmt.Errorf("%w: palette format %d", ErrUnknownFormat, ph.Format)
	}
	convert := texelFormats[f].toColor

	start, n := int(ph.Offset), int(ph.NItems)*2
	if start > len(d.b) || len(d.b)-start < n {
		return fmt.Errorf("%w: %d palette entries at offset %#x", ErrTruncatedInput, ph.NItems, start)
	}

	d.palette = make([]color.NRGBA, ph.NItems)
	for i := range d.palette {
		d.palette[i] = convert(uint32(binary.BigEndian.Uint16(d.b[start+i*2:])))
	}
	return nil
}
