package persist

import (
	"context"
	"errors"
	"fmt"
)

// Snapshot maps cell identifiers to their serialized-or-raw persisted
// values. Exactly one snapshot exists per configured storage key. Stored
// content that is absent, null, or malformed normalizes to an empty
// snapshot; the blob written back is always a mapping.
type Snapshot map[string]any

// ReadSnapshot fetches and decodes the current snapshot. When the backend
// settles immediately so does the result; a pending backend read yields a
// result that applies the same normalization once it settles. Missing items
// and malformed content are absorbed into an empty snapshot, so the settled
// error is always nil.
func (p *Persister) ReadSnapshot(ctx context.Context) *Result[Snapshot] {
	if p.storage == nil {
		return Immediate(Snapshot{})
	}
	res := p.storage.GetItem(ctx, p.key)
	if raw, err, ok := res.Peek(); ok {
		return Immediate(p.decodeSnapshot(raw, err))
	}
	return Defer(func() (Snapshot, error) {
		raw, err := res.Wait(ctx)
		return p.decodeSnapshot(raw, err), nil
	})
}

func (p *Persister) decodeSnapshot(raw string, err error) Snapshot {
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.logger.LogStorage(StorageLogEvent{
				Op:  OpRead,
				Key: p.key,
				Err: fmt.Errorf("persist: read %q: %w", p.key, err),
			})
		}
		return Snapshot{}
	}
	if raw == "" {
		return Snapshot{}
	}
	snapshot, err := p.codec.Unmarshal([]byte(raw))
	if err != nil {
		p.logger.LogStorage(StorageLogEvent{
			Op:  OpRead,
			Key: p.key,
			Err: fmt.Errorf("persist: decode %q: %w", p.key, err),
		})
		return Snapshot{}
	}
	if snapshot == nil {
		return Snapshot{}
	}
	return snapshot
}

// WriteSnapshot serializes snapshot and stores it under the configured key.
// Writes are best-effort: marshal failures, a panicking backend, and
// deferred writes that settle with an error are all logged and dropped
// without blocking or notifying the caller.
func (p *Persister) WriteSnapshot(ctx context.Context, snapshot Snapshot) {
	if p.storage == nil {
		return
	}
	defer func() {
		if cause := recover(); cause != nil {
			p.logger.LogStorage(StorageLogEvent{
				Op:  OpWrite,
				Key: p.key,
				Err: fmt.Errorf("persist: write %q: panic: %v", p.key, cause),
			})
		}
	}()

	if snapshot == nil {
		snapshot = Snapshot{}
	}
	data, err := p.codec.Marshal(snapshot)
	if err != nil {
		p.logger.LogStorage(StorageLogEvent{
			Op:  OpWrite,
			Key: p.key,
			Err: fmt.Errorf("persist: encode %q: %w", p.key, err),
		})
		return
	}

	res := p.storage.SetItem(ctx, p.key, string(data))
	if res == nil {
		return
	}
	if _, err, ok := res.Peek(); ok {
		if err != nil {
			p.logger.LogStorage(StorageLogEvent{
				Op:  OpWrite,
				Key: p.key,
				Err: fmt.Errorf("persist: write %q: %w", p.key, err),
			})
		}
		return
	}
	// Consume the deferred outcome so a failed async write is logged
	// instead of leaking.
	go func() {
		if _, err := res.Wait(ctx); err != nil {
			p.logger.LogStorage(StorageLogEvent{
				Op:  OpWrite,
				Key: p.key,
				Err: fmt.Errorf("persist: write %q: %w", p.key, err),
			})
		}
	}()
}
