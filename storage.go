package persist

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound reports that a storage key holds no value. Backends return it
// so the snapshot reader can tell absence apart from failure.
var ErrNotFound = errors.New("persist: item not found")

// Storage is the key-value medium snapshots are written to. Implementations
// may settle results immediately (in-process stores) or asynchronously
// (remote stores); the bridge handles both under the same contract.
type Storage interface {
	GetItem(ctx context.Context, key string) *Result[string]
	SetItem(ctx context.Context, key, value string) *Result[struct{}]
}

// MemoryStorage is a synchronous in-process Storage backed by a map. It is
// intended for tests, examples, and embedded use; it makes no durability
// assumptions.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: map[string]string{}}
}

func (s *MemoryStorage) GetItem(_ context.Context, key string) *Result[string] {
	s.mu.RLock()
	value, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return Fail[string](ErrNotFound)
	}
	return Immediate(value)
}

func (s *MemoryStorage) SetItem(_ context.Context, key, value string) *Result[struct{}] {
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()
	return Immediate(struct{}{})
}

// DeferStorage wraps inner so every operation settles asynchronously. It
// exists to exercise the pending branch of the Result contract against any
// backend, including synchronous ones.
func DeferStorage(inner Storage) Storage {
	return deferredStorage{inner: inner}
}

type deferredStorage struct {
	inner Storage
}

func (s deferredStorage) GetItem(ctx context.Context, key string) *Result[string] {
	return Defer(func() (string, error) {
		return s.inner.GetItem(ctx, key).Wait(ctx)
	})
}

func (s deferredStorage) SetItem(ctx context.Context, key, value string) *Result[struct{}] {
	return Defer(func() (struct{}, error) {
		return s.inner.SetItem(ctx, key, value).Wait(ctx)
	})
}
