// Package filestore persists snapshots as one file per storage key inside a
// directory. Writes go through a temp file plus rename so readers never
// observe partial content.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/goliatone/go-persist"
)

// Store maps each storage key to dir/<escaped-key>. Results settle
// immediately.
type Store struct {
	dir string
}

var _ persist.Storage = (*Store)(nil)

// New ensures dir exists and returns a Store rooted there.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("filestore: dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: mkdir %q: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key))
}

// GetItem implements persist.Storage.
func (s *Store) GetItem(_ context.Context, key string) *persist.Result[string] {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return persist.Fail[string](persist.ErrNotFound)
	}
	if err != nil {
		return persist.Fail[string](fmt.Errorf("filestore: read %q: %w", key, err))
	}
	return persist.Immediate(string(data))
}

// SetItem implements persist.Storage.
func (s *Store) SetItem(_ context.Context, key, value string) *persist.Result[struct{}] {
	tmp, err := os.CreateTemp(s.dir, ".persist-*")
	if err != nil {
		return persist.Fail[struct{}](fmt.Errorf("filestore: temp for %q: %w", key, err))
	}
	name := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(name)
		return persist.Fail[struct{}](fmt.Errorf("filestore: write %q: %w", key, err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return persist.Fail[struct{}](fmt.Errorf("filestore: close temp for %q: %w", key, err))
	}
	if err := os.Rename(name, s.path(key)); err != nil {
		os.Remove(name)
		return persist.Fail[struct{}](fmt.Errorf("filestore: rename %q: %w", key, err))
	}
	return persist.Immediate(struct{}{})
}
