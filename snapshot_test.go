package persist

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestReadSnapshotMalformedContent(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	if _, err := storage.SetItem(ctx, "demo", "not-json").Wait(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var events []StorageLogEvent
	persister := New(
		WithKey("demo"),
		WithStorage(storage),
		WithLogger(StorageLoggerFunc(func(event StorageLogEvent) {
			events = append(events, event)
		})),
	)

	snapshot, err := persister.ReadSnapshot(ctx).Wait(ctx)
	if err != nil {
		t.Fatalf("read must absorb decode failures, got %v", err)
	}
	if len(snapshot) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snapshot)
	}
	if len(events) != 1 || events[0].Op != OpRead {
		t.Fatalf("expected one read log event, got %+v", events)
	}

	// Subsequent writes overwrite the malformed blob with valid data.
	cell := attachCell(t, persister.Effect(), "count", TriggerSet)
	cell.set(1)
	if blob := storedBlob(t, storage, "demo"); blob != `{"count":1}` {
		t.Fatalf("expected valid blob after write, got %s", blob)
	}
}

func TestReadSnapshotNormalizesNonMappings(t *testing.T) {
	ctx := context.Background()
	for _, raw := range []string{"", "null", "5", `"text"`, "[1,2]"} {
		storage := NewMemoryStorage()
		if raw != "" {
			if _, err := storage.SetItem(ctx, "demo", raw).Wait(ctx); err != nil {
				t.Fatalf("seed %q: %v", raw, err)
			}
		}
		persister := New(WithKey("demo"), WithStorage(storage))
		snapshot, err := persister.ReadSnapshot(ctx).Wait(ctx)
		if err != nil {
			t.Fatalf("raw %q: %v", raw, err)
		}
		if len(snapshot) != 0 {
			t.Fatalf("raw %q: expected empty snapshot, got %v", raw, snapshot)
		}
	}
}

func TestReadSnapshotPendingBackend(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	if _, err := storage.SetItem(ctx, "demo", `{"count":5}`).Wait(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}

	persister := New(WithKey("demo"), WithStorage(DeferStorage(storage)))
	snapshot, err := persister.ReadSnapshot(ctx).Wait(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if snapshot["count"] != float64(5) {
		t.Fatalf("expected count=5, got %v", snapshot)
	}
}

type failingSetStorage struct {
	err      error
	deferred bool
}

func (s failingSetStorage) GetItem(context.Context, string) *Result[string] {
	return Fail[string](ErrNotFound)
}

func (s failingSetStorage) SetItem(context.Context, string, string) *Result[struct{}] {
	if s.deferred {
		return Defer(func() (struct{}, error) {
			return struct{}{}, s.err
		})
	}
	return Fail[struct{}](s.err)
}

func TestWriteSnapshotStorageFailureIsAbsorbed(t *testing.T) {
	ctx := context.Background()
	var events []StorageLogEvent
	persister := New(
		WithKey("demo"),
		WithStorage(failingSetStorage{err: errors.New("disk full")}),
		WithLogger(StorageLoggerFunc(func(event StorageLogEvent) {
			events = append(events, event)
		})),
	)

	persister.WriteSnapshot(ctx, Snapshot{"count": 1})
	if len(events) != 1 || events[0].Op != OpWrite {
		t.Fatalf("expected one write log event, got %+v", events)
	}
}

func TestWriteSnapshotDeferredFailureIsConsumed(t *testing.T) {
	ctx := context.Background()
	events := make(chan StorageLogEvent, 1)
	persister := New(
		WithKey("demo"),
		WithStorage(failingSetStorage{err: errors.New("disk full"), deferred: true}),
		WithLogger(StorageLoggerFunc(func(event StorageLogEvent) {
			events <- event
		})),
	)

	persister.WriteSnapshot(ctx, Snapshot{"count": 1})
	select {
	case event := <-events:
		if event.Op != OpWrite {
			t.Fatalf("expected write event, got %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("deferred write failure was never logged")
	}
}

type marshalFailCodec struct{}

func (marshalFailCodec) Marshal(Snapshot) ([]byte, error) {
	return nil, fmt.Errorf("unencodable")
}

func (marshalFailCodec) Unmarshal([]byte) (Snapshot, error) {
	return Snapshot{}, nil
}

func TestWriteSnapshotMarshalFailureSkipsStorage(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	var events []StorageLogEvent
	persister := New(
		WithKey("demo"),
		WithStorage(storage),
		WithCodec(marshalFailCodec{}),
		WithLogger(StorageLoggerFunc(func(event StorageLogEvent) {
			events = append(events, event)
		})),
	)

	persister.WriteSnapshot(ctx, Snapshot{"count": 1})
	if len(events) != 1 || events[0].Op != OpWrite {
		t.Fatalf("expected one write log event, got %+v", events)
	}
	if _, err := storage.GetItem(ctx, "demo").Wait(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("marshal failure must not reach storage, got %v", err)
	}
}

type panickyStorage struct{}

func (panickyStorage) GetItem(context.Context, string) *Result[string] {
	return Fail[string](ErrNotFound)
}

func (panickyStorage) SetItem(context.Context, string, string) *Result[struct{}] {
	panic("backend exploded")
}

func TestWriteSnapshotRecoversBackendPanic(t *testing.T) {
	ctx := context.Background()
	var events []StorageLogEvent
	persister := New(
		WithKey("demo"),
		WithStorage(panickyStorage{}),
		WithLogger(StorageLoggerFunc(func(event StorageLogEvent) {
			events = append(events, event)
		})),
	)

	persister.WriteSnapshot(ctx, Snapshot{"count": 1})
	if len(events) != 1 || events[0].Op != OpWrite {
		t.Fatalf("expected one write log event, got %+v", events)
	}
}

func TestWriteSnapshotNilMapWritesEmptyMapping(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	persister := New(WithKey("demo"), WithStorage(storage))

	persister.WriteSnapshot(ctx, nil)
	if blob := storedBlob(t, storage, "demo"); blob != "{}" {
		t.Fatalf("expected empty mapping, got %s", blob)
	}
}
