package wiiart

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/bodgit/wiiart/hmx"
	"github.com/bodgit/wiiart/tpl"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConverter(t *testing.T, db *ArtworkDB, opts Options) *Converter {
	t.Helper()
	c, err := New(db, hclog.NewNullLogger(), opts)
	require.NoError(t, err)
	return c
}

func writeTPL(t *testing.T, file string, m image.Image, f tpl.Format) {
	t.Helper()
	b, err := tpl.EncodeBytes(m, f)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, ioutil.WriteFile(file, b, 0o644))
}

func writePNGWii(t *testing.T, file string, m image.Image, f tpl.Format) []byte {
	t.Helper()
	b, err := tpl.EncodeBytes(m, f)
	require.NoError(t, err)
	header, err := hmx.NewHMXHeader(hmx.Config{Width: m.Bounds().Dx(), Height: m.Bounds().Dy(), Format: f})
	require.NoError(t, err)
	b, err = hmx.FromTPL(b, header)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, ioutil.WriteFile(file, b, 0o644))
	return b
}

func readPNG(t *testing.T, file string) image.Image {
	t.Helper()
	f, err := os.Open(file)
	require.NoError(t, err)
	defer f.Close()
	m, err := png.Decode(f)
	require.NoError(t, err)
	return m
}

func assertSamePixels(t *testing.T, want *image.NRGBA, got image.Image) {
	t.Helper()
	require.Equal(t, want.Rect.Size(), got.Bounds().Size())
	b := got.Bounds()
	for y := 0; y < want.Rect.Dy(); y++ {
		for x := 0; x < want.Rect.Dx(); x++ {
			if !assert.Equal(t, want.NRGBAAt(x, y), color.NRGBAModel.Convert(got.At(b.Min.X+x, b.Min.Y+y)), "(%d,%d)", x, y) {
				return
			}
		}
	}
}

func TestNew(t *testing.T) {
	c, err := New(nil, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, defaultWorkers, c.opts.Workers)
	assert.Equal(t, "bilinear", c.opts.Interpolation)
	assert.NoError(t, c.Close())

	for _, name := range Interpolations() {
		_, err := New(nil, nil, Options{Interpolation: name})
		assert.NoError(t, err, name)
	}

	_, err = New(nil, nil, Options{Interpolation: "lanczos"})
	assert.True(t, errors.Is(err, ErrUnknownInterpolation))

	_, err = New(nil, nil, Options{PaletteSize: 257})
	assert.Error(t, err)
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	db := newTestDB(t)
	c := newTestConverter(t, db, Options{})

	want := gradient(16, 8)
	file := filepath.Join(dir, "album.tpl")
	writeTPL(t, file, want, tpl.RGBA8)

	got, err := c.DecodeFile(file)
	require.NoError(t, err)
	assert.Equal(t, tpl.RGBA8, got.Format)
	assert.Equal(t, want, got.Image)

	// A copy of the same texture is served from the cache
	b, err := ioutil.ReadFile(file)
	require.NoError(t, err)
	copied := filepath.Join(dir, "copy.tpl")
	require.NoError(t, ioutil.WriteFile(copied, b, 0o644))

	got, err = c.DecodeFile(copied)
	require.NoError(t, err)
	assert.Equal(t, want, got.Image)

	n, err := db.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	paths, err := db.Sources(Key(b))
	require.NoError(t, err)
	assert.Equal(t, []string{file, copied}, paths)
}

func TestDecodeFileErrors(t *testing.T) {
	dir := t.TempDir()
	c := newTestConverter(t, nil, Options{})

	_, err := c.DecodeFile(filepath.Join(dir, "missing.tpl"))
	assert.True(t, os.IsNotExist(err))

	file := filepath.Join(dir, "album.bmp")
	require.NoError(t, ioutil.WriteFile(file, []byte("BM"), 0o644))
	_, err = c.DecodeFile(file)
	assert.True(t, errors.Is(err, ErrUnknownContainer))

	file = filepath.Join(dir, "bad.tpl")
	require.NoError(t, ioutil.WriteFile(file, make([]byte, 64), 0o644))
	_, err = c.DecodeFile(file)
	assert.True(t, errors.Is(err, tpl.ErrInvalidMagic))

	file = filepath.Join(dir, "short.png_wii")
	require.NoError(t, ioutil.WriteFile(file, make([]byte, 8), 0o644))
	_, err = c.DecodeFile(file)
	assert.True(t, errors.Is(err, hmx.ErrShortHeader))
}

func TestDecodeFilePNGWii(t *testing.T) {
	dir := t.TempDir()

	want := gradient(8, 8)
	file := filepath.Join(dir, "album_keep.png_wii")
	b := writePNGWii(t, file, want, tpl.RGB5A3)

	got, err := newTestConverter(t, nil, Options{}).DecodeFile(file)
	require.NoError(t, err)
	assert.Equal(t, tpl.RGB5A3, got.Format)

	expected, err := tpl.DecodeBytes(mustEncode(t, want, tpl.RGB5A3))
	require.NoError(t, err)
	assert.Equal(t, expected, got.Image)

	swapped := filepath.Join(dir, "swapped.png_wii")
	require.NoError(t, ioutil.WriteFile(swapped, hmx.SwapBytes(b), 0o644))

	got, err = newTestConverter(t, nil, Options{SwapBytes: true}).DecodeFile(swapped)
	require.NoError(t, err)
	assert.Equal(t, expected, got.Image)
}

func TestDecodeFileSwapBytesCache(t *testing.T) {
	dir := t.TempDir()
	db := newTestDB(t)

	file := filepath.Join(dir, "album_keep.png_wii")
	writePNGWii(t, file, gradient(8, 8), tpl.RGB5A3)

	plain, err := newTestConverter(t, db, Options{}).DecodeFile(file)
	require.NoError(t, err)

	swapped, err := newTestConverter(t, db, Options{SwapBytes: true}).DecodeFile(file)
	require.NoError(t, err)
	assert.NotEqual(t, plain.Image, swapped.Image)

	uncached, err := newTestConverter(t, nil, Options{SwapBytes: true}).DecodeFile(file)
	require.NoError(t, err)
	assert.Equal(t, uncached.Image, swapped.Image)

	n, err := db.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Both results are served from the cache afterwards
	again, err := newTestConverter(t, db, Options{}).DecodeFile(file)
	require.NoError(t, err)
	assert.Equal(t, plain.Image, again.Image)

	st, err := newTestConverter(t, db, Options{SwapBytes: true}).Stat(file)
	require.NoError(t, err)
	paths, err := db.Sources(st.Key)
	require.NoError(t, err)
	assert.Equal(t, []string{file}, paths)
}

func mustEncode(t *testing.T, m image.Image, f tpl.Format) []byte {
	t.Helper()
	b, err := tpl.EncodeBytes(m, f)
	require.NoError(t, err)
	return b
}

func TestExportPNG(t *testing.T) {
	dir := t.TempDir()

	want := gradient(8, 8)
	src := filepath.Join(dir, "album.tpl")
	writeTPL(t, src, want, tpl.RGBA8)

	dest := filepath.Join(dir, "album.png")
	require.NoError(t, newTestConverter(t, nil, Options{}).ExportPNG(src, dest))
	assertSamePixels(t, want, readPNG(t, dest))

	dest = filepath.Join(dir, "paletted.png")
	require.NoError(t, newTestConverter(t, nil, Options{PaletteSize: 4}).ExportPNG(src, dest))

	m := readPNG(t, dest)
	pm, ok := m.(*image.Paletted)
	require.True(t, ok, "got %T", m)
	assert.LessOrEqual(t, len(pm.Palette), 4)
	assert.Equal(t, want.Rect, pm.Rect)
}

func TestEncodeFile(t *testing.T) {
	dir := t.TempDir()
	c := newTestConverter(t, nil, Options{Interpolation: "nearest"})

	want := gradient(16, 16)
	src := filepath.Join(dir, "cover.png")
	f, err := os.Create(src)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, want))
	require.NoError(t, f.Close())

	dest := filepath.Join(dir, "cover.tpl")
	require.NoError(t, c.EncodeFile(src, dest, tpl.RGBA8, 0, 0))

	got, err := c.DecodeFile(dest)
	require.NoError(t, err)
	assert.Equal(t, want, got.Image)

	dest = filepath.Join(dir, "small.tpl")
	require.NoError(t, c.EncodeFile(src, dest, tpl.RGB565, 8, 4))

	st, err := c.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, &Stat{
		Path:      dest,
		Container: ContainerTPL,
		Format:    "RGB565",
		Width:     8,
		Height:    4,
		DataSize:  64,
		Key:       st.Key,
	}, st)

	dest = filepath.Join(dir, "cover.png_wii")
	require.NoError(t, c.EncodeFile(src, dest, tpl.RGBA8, 0, 0))

	st, err = c.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, ContainerPNGWii, st.Container)
	assert.Equal(t, "RGBA8", st.Format)
	assert.Equal(t, 256, st.Width)
	assert.Equal(t, 256, st.Height)

	b, err := ioutil.ReadFile(dest)
	require.NoError(t, err)
	assert.Len(t, b, hmx.HeaderSize+256*256*4)

	got, err = c.DecodeFile(dest)
	require.NoError(t, err)
	assert.Equal(t, want.NRGBAAt(0, 0), got.Image.NRGBAAt(0, 0))
	assert.Equal(t, want.NRGBAAt(15, 15), got.Image.NRGBAAt(255, 255))
}

func TestEncodeFileErrors(t *testing.T) {
	dir := t.TempDir()
	c := newTestConverter(t, nil, Options{})

	src := filepath.Join(dir, "cover.png")
	f, err := os.Create(src)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, gradient(8, 8)))
	require.NoError(t, f.Close())

	err = c.EncodeFile(src, filepath.Join(dir, "cover.bmp"), tpl.RGBA8, 0, 0)
	assert.True(t, errors.Is(err, ErrUnknownContainer))

	err = c.EncodeFile(src, filepath.Join(dir, "cover.tpl"), tpl.CMP, 0, 0)
	assert.True(t, errors.Is(err, tpl.ErrUnsupportedEncodeFormat))

	err = c.EncodeFile(src, filepath.Join(dir, "cover.png_wii"), tpl.IA4, 0, 0)
	assert.True(t, errors.Is(err, hmx.ErrBadConfig))

	// Too wide to record the bytes per line in a Harmonix header
	err = c.EncodeFile(src, filepath.Join(dir, "wide.png_wii"), tpl.RGBA8, 16384, 4)
	assert.True(t, errors.Is(err, hmx.ErrBadConfig))

	tplFile := filepath.Join(dir, "cover.tpl")
	writeTPL(t, tplFile, gradient(8, 8), tpl.I8)
	err = c.EncodeFile(tplFile, filepath.Join(dir, "other.tpl"), tpl.I8, 0, 0)
	assert.True(t, errors.Is(err, ErrSameFormat))

	// TPL files are registered with the image package so can be re-encoded
	require.NoError(t, c.EncodeFile(tplFile, filepath.Join(dir, "cover.png_wii"), tpl.I8, 8, 8))
}

func TestStat(t *testing.T) {
	dir := t.TempDir()
	c := newTestConverter(t, nil, Options{})

	file := filepath.Join(dir, "album.tpl")
	writeTPL(t, file, gradient(5, 3), tpl.I4)

	st, err := c.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, ContainerTPL, st.Container)
	assert.Equal(t, "I4", st.Format)
	assert.Equal(t, 5, st.Width)
	assert.Equal(t, 3, st.Height)
	assert.Equal(t, 32, st.DataSize)

	b, err := ioutil.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, Key(b), st.Key)

	_, err = c.Stat(filepath.Join(dir, "album.jpg"))
	assert.True(t, errors.Is(err, ErrUnknownContainer))
}
