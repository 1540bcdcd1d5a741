// Package hook fans cell persistence events out to registered observers so
// callers can audit or mirror snapshot activity without touching the
// synchronization path.
package hook

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Operation identifiers for persistence events.
const (
	// OpRestore fires when a persisted value is pushed into an
	// initializing cell.
	OpRestore = "restore"
	// OpPersist fires after a cell's entry is written into the snapshot.
	OpPersist = "persist"
	// OpRemove fires after a reset-to-default deletes a cell's entry.
	OpRemove = "remove"
)

// Event describes one cell-level persistence occurrence.
type Event struct {
	Op         string
	StorageKey string
	CellKey    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Hook receives normalized persistence events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []Hook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks, returning a joined error if any
// fail. It normalizes the event first and short-circuits when the operation
// or either key is missing.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := Normalize(event)
	if normalized.Op == "" || normalized.StorageKey == "" || normalized.CellKey == "" {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hk := range h {
		if hk == nil {
			continue
		}
		if err := hk.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// Normalize trims identifiers, clones metadata, and ensures a timestamp is
// present.
func Normalize(event Event) Event {
	normalized := event
	normalized.Op = strings.TrimSpace(event.Op)
	normalized.StorageKey = strings.TrimSpace(event.StorageKey)
	normalized.CellKey = strings.TrimSpace(event.CellKey)
	normalized.Metadata = cloneMap(event.Metadata)
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
