// Package sqlitestore persists snapshots in a local SQLite database, one row
// per storage key. Each write records a fresh revision id so callers can
// audit snapshot churn.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-persist"
)

const schema = `
CREATE TABLE IF NOT EXISTS persist_items (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	revision   TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

type config struct {
	driver      string
	busyTimeout int
	synchronous string
}

// Option customises Open behaviour.
type Option func(*config)

// WithDriver sets the database/sql driver name. Default: "sqlite".
func WithDriver(name string) Option {
	return func(c *config) {
		c.driver = name
	}
}

// WithBusyTimeout sets the busy_timeout pragma in milliseconds.
func WithBusyTimeout(ms int) Option {
	return func(c *config) {
		c.busyTimeout = ms
	}
}

// Store is a persist.Storage backend over a SQLite database. Results settle
// immediately because database/sql blocks.
type Store struct {
	db *sql.DB
}

var _ persist.Storage = (*Store)(nil)

// Open opens (creating when missing) the database at path, applies WAL and
// busy-timeout pragmas, and ensures the snapshot table exists.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := config{driver: "sqlite", busyTimeout: 10_000, synchronous: "NORMAL"}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	db, err := sql.Open(cfg.driver, path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %q: %w", path, err)
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout),
		fmt.Sprintf("PRAGMA synchronous = %s", cfg.synchronous),
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlitestore: %s: %w", pragma, err)
		}
	}

	store, err := NewWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewWithDB wraps an already-open database, ensuring the snapshot table
// exists. Ownership of db stays with the caller unless Close is used.
func NewWithDB(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlitestore: db is required")
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlitestore: ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

// GetItem implements persist.Storage.
func (s *Store) GetItem(ctx context.Context, key string) *persist.Result[string] {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM persist_items WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return persist.Fail[string](persist.ErrNotFound)
	}
	if err != nil {
		return persist.Fail[string](fmt.Errorf("sqlitestore: get %q: %w", key, err))
	}
	return persist.Immediate(value)
}

// SetItem implements persist.Storage.
func (s *Store) SetItem(ctx context.Context, key, value string) *persist.Result[struct{}] {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO persist_items (key, value, revision, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	value      = excluded.value,
	revision   = excluded.revision,
	updated_at = excluded.updated_at`,
		key, value, uuid.NewString(), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return persist.Fail[struct{}](fmt.Errorf("sqlitestore: set %q: %w", key, err))
	}
	return persist.Immediate(struct{}{})
}

// Revision reports the revision id recorded by the most recent SetItem for
// key.
func (s *Store) Revision(ctx context.Context, key string) (string, error) {
	var revision string
	err := s.db.QueryRowContext(ctx, `SELECT revision FROM persist_items WHERE key = ?`, key).Scan(&revision)
	if errors.Is(err, sql.ErrNoRows) {
		return "", persist.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sqlitestore: revision %q: %w", key, err)
	}
	return revision, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
