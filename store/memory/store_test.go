package memory

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/stepflow/checkpoint"
	"github.com/xraph/stepflow/id"
)

func TestLifecycle(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"Migrate", func() error { return s.Migrate(ctx) }},
		{"Ping", func() error { return s.Ping(ctx) }},
		{"Close", func() error { return s.Close() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); err != nil {
				t.Fatalf("%s returned error: %v", tt.name, err)
			}
		})
	}
}

// ──────────────────────────────────────────────────
// Checkpoint tests
// ──────────────────────────────────────────────────

func TestCheckpointSaveLoad(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	wid := id.NewWorkflowRunID()

	if err := s.Save(ctx, wid, 2, map[string]any{"order": "o-1", "items": []any{"a"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cp, err := s.Load(ctx, wid)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cp == nil {
		t.Fatal("expected checkpoint")
	}
	if cp.WorkflowID.String() != wid.String() {
		t.Errorf("WorkflowID = %s, want %s", cp.WorkflowID, wid)
	}
	if cp.StepIndex != 2 {
		t.Errorf("StepIndex = %d, want 2", cp.StepIndex)
	}
	if cp.Properties["order"] != "o-1" {
		t.Errorf("order = %v", cp.Properties["order"])
	}
	if cp.SavedAt.IsZero() {
		t.Error("SavedAt not set")
	}
}

func TestCheckpointOverwrite(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	wid := id.NewWorkflowRunID()

	_ = s.Save(ctx, wid, 0, map[string]any{"n": 1})
	_ = s.Save(ctx, wid, 1, map[string]any{"n": 2})

	cp, _ := s.Load(ctx, wid)
	if cp.StepIndex != 1 || cp.Properties["n"] != 2 {
		t.Errorf("got index %d props %v, want latest save", cp.StepIndex, cp.Properties)
	}
}

func TestCheckpointLoadMissing(t *testing.T) {
	t.Parallel()
	s := New()

	cp, err := s.Load(context.Background(), id.NewWorkflowRunID())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cp != nil {
		t.Errorf("expected nil checkpoint, got %+v", cp)
	}
}

func TestCheckpointClear(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	wid := id.NewWorkflowRunID()

	_ = s.Save(ctx, wid, 0, nil)
	if err := s.Clear(ctx, wid); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if cp, _ := s.Load(ctx, wid); cp != nil {
		t.Error("checkpoint survived Clear")
	}
	if err := s.Clear(ctx, wid); err != nil {
		t.Errorf("Clear of missing checkpoint: %v", err)
	}
}

func TestCheckpointIsolation(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	wid := id.NewWorkflowRunID()

	props := map[string]any{"list": []any{"a"}}
	_ = s.Save(ctx, wid, 0, props)
	props["list"].([]any)[0] = "mutated-after-save"

	cp, _ := s.Load(ctx, wid)
	if cp.Properties["list"].([]any)[0] != "a" {
		t.Error("store shares state with the caller's map")
	}

	cp.Properties["list"].([]any)[0] = "mutated-after-load"
	again, _ := s.Load(ctx, wid)
	if again.Properties["list"].([]any)[0] != "a" {
		t.Error("store shares state with a loaded checkpoint")
	}
}

func TestCheckpointList(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []id.ID
	for i := range 3 {
		at := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return at }
		wid := id.NewWorkflowRunID()
		ids = append(ids, wid)
		_ = s.Save(ctx, wid, i, nil)
	}

	all, err := s.List(ctx, checkpoint.ListOpts{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List = %d checkpoints, want 3", len(all))
	}
	for i, cp := range all {
		if cp.WorkflowID.String() != ids[i].String() {
			t.Errorf("List[%d] = %s, want %s", i, cp.WorkflowID, ids[i])
		}
	}

	page, _ := s.List(ctx, checkpoint.ListOpts{Offset: 1, Limit: 1})
	if len(page) != 1 || page[0].WorkflowID.String() != ids[1].String() {
		t.Errorf("page = %v, want second checkpoint", page)
	}
	if past, _ := s.List(ctx, checkpoint.ListOpts{Offset: 5}); len(past) != 0 {
		t.Errorf("offset past end returned %d", len(past))
	}
}

// ──────────────────────────────────────────────────
// Idempotency tests
// ──────────────────────────────────────────────────

func TestIdempotencyMark(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	if seen, _ := s.Seen(ctx, "k"); seen {
		t.Fatal("unmarked key reported as seen")
	}
	if err := s.Mark(ctx, "k", 0); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if seen, _ := s.Seen(ctx, "k"); !seen {
		t.Error("marked key not seen")
	}
}

func TestIdempotencyExpiry(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	_ = s.Mark(ctx, "k", time.Minute)

	if seen, _ := s.Seen(ctx, "k"); !seen {
		t.Fatal("mark expired early")
	}
	now = now.Add(time.Minute)
	if seen, _ := s.Seen(ctx, "k"); seen {
		t.Error("mark did not expire")
	}
}

func TestIdempotencyExpiredReadKeepsRenewedMark(t *testing.T) {
	s := New()
	ctx := context.Background()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := start
	s.now = func() time.Time { return clock }
	_ = s.Mark(ctx, "k", time.Minute)

	// The first clock read inside Seen happens between its read and write
	// locks; renew the mark there, as a concurrent Mark would.
	clock = start.Add(2 * time.Minute)
	renewed := false
	s.now = func() time.Time {
		if !renewed {
			renewed = true
			_ = s.Mark(ctx, "k", time.Hour)
		}
		return clock
	}

	if seen, _ := s.Seen(ctx, "k"); seen {
		t.Fatal("expired read reported as seen")
	}
	if seen, _ := s.Seen(ctx, "k"); !seen {
		t.Error("renewed mark was deleted by the expired read")
	}
}

func TestIdempotencyForget(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	_ = s.Mark(ctx, "k", 0)
	if err := s.Forget(ctx, "k"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if seen, _ := s.Seen(ctx, "k"); seen {
		t.Error("forgotten key still seen")
	}
}
