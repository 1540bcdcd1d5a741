package persist

import (
	"context"

	"github.com/goliatone/go-persist/pkg/hook"
)

// DefaultKey is the storage key used when neither WithKey nor WithKeyFunc is
// supplied.
const DefaultKey = "go-persist"

// Persister pairs one storage key with one backend and produces per-cell
// Effects against that pairing. Configuration is resolved exactly once in
// New; independently constructed Persisters share nothing.
type Persister struct {
	key     string
	storage Storage
	codec   Codec
	logger  StorageLogger
	hooks   hook.Hooks
	rule    *rule
}

type persisterConfig struct {
	key     string
	keyFunc func() string
	storage Storage
	codec   Codec
	logger  StorageLogger
	hooks   hook.Hooks
	rule    string
}

// Option configures a Persister at construction time.
type Option func(*persisterConfig)

// WithKey fixes the storage key.
func WithKey(key string) Option {
	return func(cfg *persisterConfig) {
		cfg.key = key
	}
}

// WithKeyFunc derives the storage key by invoking fn exactly once inside
// New. Every New call re-invokes it, so a side-effecting fn yields distinct
// keys per construction, never per cell attachment.
func WithKeyFunc(fn func() string) Option {
	return func(cfg *persisterConfig) {
		cfg.keyFunc = fn
	}
}

// WithStorage injects the storage backend. Without one the Persister runs
// degraded: every Effect it produces is a no-op that never reads, writes, or
// touches the cell.
func WithStorage(storage Storage) Option {
	return func(cfg *persisterConfig) {
		cfg.storage = storage
	}
}

// WithCodec overrides the default JSON snapshot codec.
func WithCodec(codec Codec) Option {
	return func(cfg *persisterConfig) {
		cfg.codec = codec
	}
}

// WithLogger attaches a logger for absorbed failures.
func WithLogger(logger StorageLogger) Option {
	return func(cfg *persisterConfig) {
		cfg.logger = logger
	}
}

// WithHooks appends observers notified after restore, persist, and remove
// operations. Hook errors are logged, never propagated.
func WithHooks(hooks ...hook.Hook) Option {
	return func(cfg *persisterConfig) {
		cfg.hooks = append(cfg.hooks, hooks...)
	}
}

// WithRule installs an expression evaluated before each persisted entry with
// key, value, and snapshot bound; a false result skips that entry. A rule
// that fails to compile is logged and ignored.
func WithRule(expression string) Option {
	return func(cfg *persisterConfig) {
		cfg.rule = expression
	}
}

// New resolves configuration and returns a ready Persister.
func New(opts ...Option) *Persister {
	cfg := persisterConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	key := cfg.key
	if cfg.keyFunc != nil {
		key = cfg.keyFunc()
	}
	if key == "" {
		key = DefaultKey
	}

	p := &Persister{
		key:     key,
		storage: cfg.storage,
		codec:   cfg.codec,
		logger:  cfg.logger,
		hooks:   cfg.hooks,
	}
	if p.codec == nil {
		p.codec = JSONCodec()
	}
	if p.logger == nil {
		p.logger = noopStorageLogger{}
	}
	if cfg.rule != "" {
		compiled, err := compileRule(cfg.rule)
		if err != nil {
			p.logger.LogStorage(StorageLogEvent{Op: OpRule, Key: key, Err: err})
		} else {
			p.rule = compiled
		}
	}
	return p
}

// Key reports the storage key resolved at construction.
func (p *Persister) Key() string {
	return p.key
}

// Degraded reports whether the Persister was constructed without a storage
// backend and therefore produces no-op Effects.
func (p *Persister) Degraded() bool {
	return p.storage == nil
}

func (p *Persister) notify(ctx context.Context, event hook.Event) {
	if !p.hooks.Enabled() {
		return
	}
	if err := p.hooks.Notify(ctx, event); err != nil {
		p.logger.LogStorage(StorageLogEvent{Op: OpHook, Key: p.key, Cell: event.CellKey, Err: err})
	}
}
