package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const createResponsesSQL = `
CREATE TABLE IF NOT EXISTS responses (
  key        TEXT    PRIMARY KEY,
  body       BLOB    NOT NULL,
  stored_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_responses_stored_at ON responses(stored_at);
`

const (
	getResponseSQL    = `SELECT body, stored_at FROM responses WHERE key = ?`
	upsertResponseSQL = `INSERT INTO responses (key, body, stored_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET body = excluded.body, stored_at = excluded.stored_at`
	purgeResponsesSQL = `DELETE FROM responses WHERE stored_at < ?`
)

// SQLiteStore is a file-backed response cache that survives restarts.
type SQLiteStore struct {
	db     *sql.DB
	maxAge time.Duration
	now    func() time.Time
}

// OpenSQLite opens (creating if needed) the cache database at path. Use
// ":memory:" for a throwaway cache.
func OpenSQLite(path string, maxAge time.Duration) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("cache db open: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createResponsesSQL); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("close cache db", "error", closeErr)
		}
		return nil, fmt.Errorf("cache db schema: %w", err)
	}
	return NewSQLiteStore(db, maxAge), nil
}

// NewSQLiteStore wraps an already opened database that has the responses table.
func NewSQLiteStore(db *sql.DB, maxAge time.Duration) *SQLiteStore {
	return &SQLiteStore{db: db, maxAge: maxAge, now: time.Now}
}

// Get returns the cached body for key if it has not expired.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		body     []byte
		storedAt int64
	)
	err := s.db.QueryRowContext(ctx, getResponseSQL, key).Scan(&body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.maxAge > 0 && s.now().Sub(time.Unix(0, storedAt)) >= s.maxAge {
		return nil, ErrNotFound
	}
	return body, nil
}

// Set stores body under key.
func (s *SQLiteStore) Set(ctx context.Context, key string, body []byte) error {
	_, err := s.db.ExecContext(ctx, upsertResponseSQL, key, body, s.now().UnixNano())
	return err
}

// Purge deletes expired rows and returns how many were removed.
func (s *SQLiteStore) Purge(ctx context.Context) (int, error) {
	if s.maxAge <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.maxAge).UnixNano()
	res, err := s.db.ExecContext(ctx, purgeResponsesSQL, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
