package persist

import (
	"context"
	"fmt"

	"github.com/goliatone/go-persist/pkg/hook"
)

// Trigger identifies why the engine attached an effect to a cell.
type Trigger string

const (
	// TriggerGet marks an attachment caused by the cell initializing.
	TriggerGet Trigger = "get"
	// TriggerSet marks an attachment caused by an explicit set.
	TriggerSet Trigger = "set"
)

// Node carries the engine-side identity of one cell.
type Node struct {
	Key string
}

// Attachment is everything the reactive engine hands the effect for one
// cell: identity, the attach trigger, a handle to push a value into the
// cell, and a way to subscribe to future external sets. It lives only for
// the duration of the attach call plus the callbacks it registers.
type Attachment struct {
	Node    Node
	Trigger Trigger
	SetSelf func(value any)
	OnSet   func(handler func(newValue any))
}

// Effect is the per-cell unit of behavior the engine invokes on attach.
type Effect func(Attachment)

// DefaultValue is the reset sentinel: setting a cell to it reverts the cell
// to its non-persisted default and removes its snapshot entry. It is a
// distinct tagged type so nil and zero values remain legal cell values.
type DefaultValue struct{}

// IsDefaultValue reports whether value is the reset sentinel.
func IsDefaultValue(value any) bool {
	switch value.(type) {
	case DefaultValue, *DefaultValue:
		return true
	}
	return false
}

// SerializeFunc converts a live cell value into its persisted form.
type SerializeFunc func(value any) (any, error)

// DeserializeFunc converts a persisted entry back into a live cell value.
type DeserializeFunc func(stored any) (any, error)

// EffectOption configures one Effect produced by Persister.Effect.
type EffectOption func(*effectConfig)

type effectConfig struct {
	serialize   SerializeFunc
	deserialize DeserializeFunc
}

// WithSerializer applies fn to every value before it enters the snapshot.
func WithSerializer(fn SerializeFunc) EffectOption {
	return func(cfg *effectConfig) {
		cfg.serialize = fn
	}
}

// WithDeserializer applies fn to the stored entry before it is pushed back
// into the cell on initialization.
func WithDeserializer(fn DeserializeFunc) EffectOption {
	return func(cfg *effectConfig) {
		cfg.deserialize = fn
	}
}

// Effect builds the per-cell synchronization effect. On an initializing
// attachment it restores the cell from the snapshot, synchronously when the
// read settles immediately and via a continuation otherwise. It then
// subscribes to external sets; each set awaits the current snapshot, folds
// the new value in, and writes the whole snapshot back. Nothing in either
// path panics into the engine.
func (p *Persister) Effect(opts ...EffectOption) Effect {
	cfg := effectConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if p.storage == nil {
		// Degraded mode: no backend was injected, so the effect must not
		// read, write, or touch the cell.
		return func(Attachment) {}
	}

	return func(att Attachment) {
		ctx := context.Background()
		cell := att.Node.Key

		if att.Trigger == TriggerGet && att.SetSelf != nil {
			res := p.ReadSnapshot(ctx)
			if snapshot, _, ok := res.Peek(); ok {
				p.restore(ctx, snapshot, cell, cfg, att.SetSelf)
			} else {
				go func() {
					snapshot, err := res.Wait(ctx)
					if err != nil {
						return
					}
					p.restore(ctx, snapshot, cell, cfg, att.SetSelf)
				}()
			}
		}

		if att.OnSet != nil {
			att.OnSet(func(newValue any) {
				p.apply(ctx, cell, newValue, cfg)
			})
		}
	}
}

func (p *Persister) restore(ctx context.Context, snapshot Snapshot, cell string, cfg effectConfig, setSelf func(any)) {
	stored, ok := snapshot[cell]
	if !ok {
		// Missing key is not an error; the cell keeps its own default.
		return
	}
	if cfg.deserialize != nil {
		value, err := cfg.deserialize(stored)
		if err != nil {
			p.logger.LogStorage(StorageLogEvent{
				Op:   OpRestore,
				Key:  p.key,
				Cell: cell,
				Err:  fmt.Errorf("persist: deserialize %q: %w", cell, err),
			})
			return
		}
		stored = value
	}
	setSelf(stored)
	p.notify(ctx, hook.Event{Op: hook.OpRestore, StorageKey: p.key, CellKey: cell})
}

// apply runs one subscribed set: await the current snapshot, fold the new
// value in, write the whole snapshot back. The write never starts before its
// own read completes; there is no ordering across cells sharing the
// snapshot, so concurrent sets race last-write-wins on the blob.
func (p *Persister) apply(ctx context.Context, cell string, newValue any, cfg effectConfig) {
	snapshot, err := p.ReadSnapshot(ctx).Wait(ctx)
	if err != nil || snapshot == nil {
		snapshot = Snapshot{}
	}

	if IsDefaultValue(newValue) {
		if _, ok := snapshot[cell]; ok {
			delete(snapshot, cell)
		}
		p.WriteSnapshot(ctx, snapshot)
		p.notify(ctx, hook.Event{Op: hook.OpRemove, StorageKey: p.key, CellKey: cell})
		return
	}

	if !p.allow(cell, newValue, snapshot) {
		return
	}

	entry := newValue
	if cfg.serialize != nil {
		serialized, err := cfg.serialize(newValue)
		if err != nil {
			p.logger.LogStorage(StorageLogEvent{
				Op:   OpPersist,
				Key:  p.key,
				Cell: cell,
				Err:  fmt.Errorf("persist: serialize %q: %w", cell, err),
			})
			return
		}
		entry = serialized
	}
	snapshot[cell] = entry
	p.WriteSnapshot(ctx, snapshot)
	p.notify(ctx, hook.Event{Op: hook.OpPersist, StorageKey: p.key, CellKey: cell})
}
