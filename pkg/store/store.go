// Package store persists download history in a SQLite database.
//
// Two relations are kept: images, keyed by content hash, and completed_posts,
// keyed by post url. Both are append-only.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wallgrab/pkg/models"

	_ "modernc.org/sqlite"
)

// ErrStoreUnavailable means the backing file could not be opened or created
var ErrStoreUnavailable = errors.New("store unavailable")

const schema = `
CREATE TABLE IF NOT EXISTS images (
    channel      TEXT NOT NULL,
    title        TEXT NOT NULL,
    url          TEXT NOT NULL,
    filename     TEXT NOT NULL,
    content_hash TEXT PRIMARY KEY,
    saved_at     DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_images_url ON images(url);

CREATE TABLE IF NOT EXISTS completed_posts (
    url          TEXT PRIMARY KEY,
    completed_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// Image is a persisted record together with its save time
type Image struct {
	models.Record
	SavedAt time.Time `json:"saved_at"`
}

// Stats summarizes the store contents
type Stats struct {
	Images         int `json:"images"`
	CompletedPosts int `json:"completed_posts"`
	Channels       int `json:"channels"`
}

// Store is the SQLite backed download history
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and applies the schema.
// Every failure wraps ErrStoreUnavailable.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadKnownHashes returns every recorded content hash
func (s *Store) LoadKnownHashes(ctx context.Context) (models.Set, error) {
	return s.loadSet(ctx, `SELECT content_hash FROM images`)
}

// LoadCompletedPostURLs returns every completed post url
func (s *Store) LoadCompletedPostURLs(ctx context.Context) (models.Set, error) {
	return s.loadSet(ctx, `SELECT url FROM completed_posts`)
}

// LoadFetchedImageURLs returns every url that has a saved image
func (s *Store) LoadFetchedImageURLs(ctx context.Context) (models.Set, error) {
	return s.loadSet(ctx, `SELECT DISTINCT url FROM images`)
}

func (s *Store) loadSet(ctx context.Context, query string) (models.Set, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := models.NewSet()
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		set.Add(v)
	}
	return set, rows.Err()
}

// RecordImage appends a record. A hash that is already present leaves the
// existing row untouched and returns models.ErrDuplicateHash.
func (s *Store) RecordImage(ctx context.Context, rec models.Record) error {
	if strings.TrimSpace(rec.ContentHash) == "" {
		return fmt.Errorf("record for %s has no content hash", rec.URL)
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO images (channel, title, url, filename, content_hash, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Channel, rec.Title, rec.URL, rec.Filename, rec.ContentHash, time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrDuplicateHash
	}
	return nil
}

// RecordCompletedPost marks url as completed. Repeated calls are no-ops.
func (s *Store) RecordCompletedPost(ctx context.Context, url string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO completed_posts (url, completed_at) VALUES (?, ?)`,
		url, time.Now().UTC(),
	)
	return err
}

// Stats counts images, completed posts and distinct channels
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	row := s.db.QueryRowContext(ctx, `
		SELECT
		    (SELECT COUNT(*) FROM images),
		    (SELECT COUNT(*) FROM completed_posts),
		    (SELECT COUNT(DISTINCT channel) FROM images)`)
	if err := row.Scan(&st.Images, &st.CompletedPosts, &st.Channels); err != nil {
		return Stats{}, err
	}
	return st, nil
}

// Recent returns the n most recently saved images, newest first
func (s *Store) Recent(ctx context.Context, n int) ([]Image, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel, title, url, filename, content_hash, saved_at
		 FROM images ORDER BY saved_at DESC, rowid DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.Channel, &img.Title, &img.URL, &img.Filename, &img.ContentHash, &img.SavedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}
