// Package ocrcache persists successful recognitions in SQLite so repeated
// runs over the same subtitles skip the engine.
package ocrcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mgpai22/vobsub2srt/internal/ocr"
)

const schema = `CREATE TABLE IF NOT EXISTS recognitions (
    provider   TEXT NOT NULL,
    language   TEXT NOT NULL,
    model      TEXT NOT NULL,
    settings   TEXT NOT NULL,
    hash       TEXT NOT NULL,
    text       TEXT NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (provider, language, model, settings, hash)
)`

// fixed width so stored times compare as strings
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store manages the recognition cache backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultPath is the cache location under the user cache directory.
func DefaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "vobsub2srt", "ocr-cache.db")
}

// Open initializes or connects to the cache database.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key ocr.CacheKey) (string, bool, error) {
	var text string
	err := s.db.QueryRowContext(
		ctx,
		`SELECT text FROM recognitions
         WHERE provider = ? AND language = ? AND model = ? AND settings = ? AND hash = ?`,
		key.Provider, key.Language, key.Model, key.Settings, key.Hash,
	).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query cache: %w", err)
	}
	return text, true, nil
}

func (s *Store) Put(ctx context.Context, key ocr.CacheKey, text string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO recognitions (provider, language, model, settings, hash, text, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (provider, language, model, settings, hash)
         DO UPDATE SET text = excluded.text, created_at = excluded.created_at`,
		key.Provider, key.Language, key.Model, key.Settings, key.Hash, text,
		time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}

// Count returns the number of cached recognitions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM recognitions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return n, nil
}

// Prune removes entries older than maxAge and returns how many were removed.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(timeLayout)
	res, err := s.db.ExecContext(ctx, "DELETE FROM recognitions WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return res.RowsAffected()
}
