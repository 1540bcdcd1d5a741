package persist

// Operation identifiers attached to log events.
const (
	OpRead    = "read"
	OpWrite   = "write"
	OpRestore = "restore"
	OpPersist = "persist"
	OpRemove  = "remove"
	OpRule    = "rule"
	OpHook    = "hook"
)

// StorageLogEvent describes an absorbed failure for logging. The bridge
// never surfaces storage errors to the reactive engine, so the logger is the
// only place they become visible.
type StorageLogEvent struct {
	Op   string
	Key  string
	Cell string
	Err  error
}

// StorageLogger records events the bridge absorbs instead of raising.
type StorageLogger interface {
	LogStorage(StorageLogEvent)
}

// StorageLoggerFunc adapts a function to StorageLogger.
type StorageLoggerFunc func(StorageLogEvent)

// LogStorage implements StorageLogger.
func (f StorageLoggerFunc) LogStorage(event StorageLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopStorageLogger struct{}

func (noopStorageLogger) LogStorage(StorageLogEvent) {}
