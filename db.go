package wiiart

import (
	"database/sql"
	"fmt"
	"image"

	"github.com/bodgit/wiiart/tpl"
	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
)

// ArtworkDB caches decoded textures keyed by a hash of the source file.
// Pixels are stored as zstd compressed NRGBA data.
type ArtworkDB struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Texture is a cached decoded texture.
type Texture struct {
	Format tpl.Format
	Image  *image.NRGBA
}

// Key returns the cache key for the contents of a texture file. .png_wii
// files are keyed after any byte swapping.
func Key(b []byte) string {
	return fmt.Sprintf("%016X", xxhash.Sum64(b))
}

// NewArtworkDB opens or creates the sqlite database at file.
func NewArtworkDB(file string) (*ArtworkDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS artwork (id INTEGER PRIMARY KEY NOT NULL, hash TEXT NOT NULL UNIQUE, format INTEGER NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, pixels BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS source (artwork_id INTEGER NOT NULL, path TEXT NOT NULL, UNIQUE(artwork_id, path), FOREIGN KEY(artwork_id) REFERENCES artwork(id))"); err != nil {
		db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		db.Close()
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}

	return &ArtworkDB{
		db:  db,
		enc: enc,
		dec: dec,
	}, nil
}

// Close closes the database.
func (db *ArtworkDB) Close() error {
	db.dec.Close()
	if err := db.enc.Close(); err != nil {
		db.db.Close()
		return err
	}
	return db.db.Close()
}

// Find returns the texture cached under key, or nil if there isn't one.
func (db *ArtworkDB) Find(key string) (*Texture, error) {
	var format, width, height int
	var pixels []byte
	switch err := db.db.QueryRow("SELECT format, width, height, pixels FROM artwork WHERE hash = ?", key).Scan(&format, &width, &height, &pixels); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		pix, err := db.dec.DecodeAll(pixels, nil)
		if err != nil {
			return nil, fmt.Errorf("wiiart: artwork %s: %w", key, err)
		}
		if len(pix) != width*height*4 {
			return nil, fmt.Errorf("wiiart: artwork %s: have %d bytes of pixels, want %d", key, len(pix), width*height*4)
		}
		return &Texture{
			Format: tpl.Format(format),
			Image: &image.NRGBA{
				Pix:    pix,
				Stride: width * 4,
				Rect:   image.Rect(0, 0, width, height),
			},
		}, nil
	default:
		return nil, err
	}
}

func (db *ArtworkDB) addArtwork(key string, t *Texture) (int64, error) {
	var id int64
	switch err := db.db.QueryRow("SELECT id FROM artwork WHERE hash = ?", key).Scan(&id); err {
	case sql.ErrNoRows:
		m := t.Image
		if m.Rect.Min != (image.Point{}) || m.Stride != m.Rect.Dx()*4 {
			m = toNRGBA(m)
		}
		result, err := db.db.Exec("INSERT OR IGNORE INTO artwork (hash, format, width, height, pixels) VALUES (?, ?, ?, ?, ?)", key, uint32(t.Format), m.Rect.Dx(), m.Rect.Dy(), db.enc.EncodeAll(m.Pix, nil))
		if err != nil {
			return 0, err
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			// Lost a race with another writer
			return db.addArtwork(key, t)
		}
		return result.LastInsertId()
	case nil:
		return id, nil
	default:
		return 0, err
	}
}

// Store caches t under key and records path as a source of it.
func (db *ArtworkDB) Store(key, path string, t *Texture) error {
	id, err := db.addArtwork(key, t)
	if err != nil {
		return err
	}
	if path == "" {
		return nil
	}
	if _, err := db.db.Exec("INSERT OR IGNORE INTO source (artwork_id, path) VALUES (?, ?)", id, path); err != nil {
		return err
	}
	return nil
}

// Sources returns every path the texture cached under key was decoded or
// served from.
func (db *ArtworkDB) Sources(key string) ([]string, error) {
	rows, err := db.db.Query("SELECT s.path FROM source AS s JOIN artwork AS a ON s.artwork_id = a.id WHERE a.hash = ? ORDER BY s.path", key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

// Count returns the number of cached textures.
func (db *ArtworkDB) Count() (int, error) {
	var n int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM artwork").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
