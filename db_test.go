package wiiart

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/bodgit/wiiart/tpl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *ArtworkDB {
	t.Helper()
	db, err := NewArtworkDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func gradient(w, h int) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetNRGBA(x, y, color.NRGBA{uint8(x * 255 / w), uint8(y * 255 / h), uint8((x + y) * 8), 0xff})
		}
	}
	return m
}

func TestKey(t *testing.T) {
	assert.Len(t, Key([]byte("texture")), 16)
	assert.Equal(t, Key([]byte("texture")), Key([]byte("texture")))
	assert.NotEqual(t, Key([]byte("texture")), Key([]byte("texturf")))
	assert.Equal(t, "EF46DB3751D8E999", Key(nil))
}

func TestArtworkDB(t *testing.T) {
	db := newTestDB(t)

	got, err := db.Find("missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	want := &Texture{Format: tpl.RGB565, Image: gradient(12, 7)}
	require.NoError(t, db.Store("abc", "a.tpl", want))
	require.NoError(t, db.Store("abc", "b.tpl", want))
	require.NoError(t, db.Store("def", "", &Texture{Format: tpl.I8, Image: gradient(4, 4)}))

	got, err = db.Find("abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Format, got.Format)
	assert.Equal(t, want.Image, got.Image)

	n, err := db.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	paths, err := db.Sources("abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.tpl", "b.tpl"}, paths)

	paths, err = db.Sources("def")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestArtworkDBSubImage(t *testing.T) {
	db := newTestDB(t)

	m := gradient(8, 8)
	sub := m.SubImage(image.Rect(2, 2, 6, 6)).(*image.NRGBA)
	require.NoError(t, db.Store("sub", "", &Texture{Format: tpl.RGBA8, Image: sub}))

	got, err := db.Find("sub")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, image.Rect(0, 0, 4, 4), got.Image.Rect)
	assert.Equal(t, m.NRGBAAt(2, 2), got.Image.NRGBAAt(0, 0))
	assert.Equal(t, m.NRGBAAt(5, 5), got.Image.NRGBAAt(3, 3))
}

func TestArtworkDBReopen(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.db")

	db, err := NewArtworkDB(file)
	require.NoError(t, err)
	require.NoError(t, db.Store("abc", "a.tpl", &Texture{Format: tpl.IA8, Image: gradient(4, 4)}))
	require.NoError(t, db.Close())

	db, err = NewArtworkDB(file)
	require.NoError(t, err)
	defer db.Close()

	got, err := db.Find("abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, tpl.IA8, got.Format)
}
