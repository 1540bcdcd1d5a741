package hook_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-persist/pkg/hook"
)

func TestHooksFanOutToAllHooks(t *testing.T) {
	var first, second int
	hooks := hook.Hooks{
		hook.HookFunc(func(context.Context, hook.Event) error {
			first++
			return nil
		}),
		nil,
		hook.HookFunc(func(context.Context, hook.Event) error {
			second++
			return nil
		}),
	}

	event := hook.Event{Op: hook.OpPersist, StorageKey: "demo", CellKey: "count"}
	if err := hooks.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if first != 1 || second != 1 {
		t.Fatalf("expected both hooks notified, got %d/%d", first, second)
	}
}

func TestHooksJoinErrors(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	hooks := hook.Hooks{
		hook.HookFunc(func(context.Context, hook.Event) error { return errA }),
		hook.HookFunc(func(context.Context, hook.Event) error { return errB }),
	}

	err := hooks.Notify(nil, hook.Event{Op: hook.OpRemove, StorageKey: "demo", CellKey: "count"})
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected joined errors, got %v", err)
	}
}

func TestHooksDropIncompleteEvents(t *testing.T) {
	var calls int
	hooks := hook.Hooks{
		hook.HookFunc(func(context.Context, hook.Event) error {
			calls++
			return errors.New("should not happen")
		}),
	}

	for _, event := range []hook.Event{
		{StorageKey: "demo", CellKey: "count"},
		{Op: hook.OpPersist, CellKey: "count"},
		{Op: hook.OpPersist, StorageKey: "demo"},
		{Op: "  ", StorageKey: "demo", CellKey: "count"},
	} {
		if err := hooks.Notify(context.Background(), event); err != nil {
			t.Fatalf("incomplete event must be dropped, got %v", err)
		}
	}
	if calls != 0 {
		t.Fatalf("expected no notifications, got %d", calls)
	}
}

func TestNormalizeStampsTimestampAndClonesMetadata(t *testing.T) {
	metadata := map[string]any{"source": "test"}
	normalized := hook.Normalize(hook.Event{
		Op:         " persist ",
		StorageKey: "demo",
		CellKey:    "count",
		Metadata:   metadata,
	})

	if normalized.Op != hook.OpPersist {
		t.Fatalf("expected trimmed op, got %q", normalized.Op)
	}
	if normalized.OccurredAt.IsZero() {
		t.Fatal("expected a timestamp")
	}
	metadata["source"] = "mutated"
	if normalized.Metadata["source"] != "test" {
		t.Fatal("metadata must be cloned")
	}
}

func TestNormalizeKeepsExplicitTimestamp(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	normalized := hook.Normalize(hook.Event{Op: hook.OpRestore, StorageKey: "demo", CellKey: "count", OccurredAt: at})
	if !normalized.OccurredAt.Equal(at) {
		t.Fatalf("expected %v, got %v", at, normalized.OccurredAt)
	}
}

func TestNilHookFuncIsSafe(t *testing.T) {
	var fn hook.HookFunc
	if err := fn.Notify(context.Background(), hook.Event{}); err != nil {
		t.Fatalf("nil func must be a no-op, got %v", err)
	}
}
