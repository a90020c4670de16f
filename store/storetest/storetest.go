// Package storetest checks a store.Store implementation against the
// behavior every backend shares. Backends call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/stepflow/checkpoint"
	"github.com/xraph/stepflow/id"
	"github.com/xraph/stepflow/store"
)

// Factory returns an empty, migrated store. It may register cleanups on t.
type Factory func(t *testing.T) store.Store

// Run executes the shared suite. Property values are limited to strings,
// bools, lists and maps so every codec reproduces them exactly.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"Ping", testPing},
		{"MigrateIdempotent", testMigrateIdempotent},
		{"SaveLoad", testSaveLoad},
		{"SaveOverwrites", testSaveOverwrites},
		{"LoadMissing", testLoadMissing},
		{"Clear", testClear},
		{"ClearMissing", testClearMissing},
		{"ListOrderAndPaging", testList},
		{"IdempotencyMark", testIdempotencyMark},
		{"IdempotencyExpiry", testIdempotencyExpiry},
		{"IdempotencyForget", testIdempotencyForget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func testPing(t *testing.T, s store.Store) {
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func testMigrateIdempotent(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("first Migrate: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func testSaveLoad(t *testing.T, s store.Store) {
	ctx := context.Background()
	wid := id.NewWorkflowRunID()
	props := map[string]any{
		"order":  "o-1",
		"paid":   true,
		"lines":  []any{"a", "b"},
		"nested": map[string]any{"k": "v"},
	}

	before := time.Now().Add(-time.Second)
	if err := s.Save(ctx, wid, 2, props); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cp, err := s.Load(ctx, wid)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cp == nil {
		t.Fatal("Load returned no checkpoint")
	}
	if cp.WorkflowID.String() != wid.String() {
		t.Errorf("WorkflowID = %s, want %s", cp.WorkflowID, wid)
	}
	if cp.StepIndex != 2 {
		t.Errorf("StepIndex = %d, want 2", cp.StepIndex)
	}
	if cp.SavedAt.Before(before) {
		t.Errorf("SavedAt = %v, want after %v", cp.SavedAt, before)
	}
	if cp.Properties["order"] != "o-1" || cp.Properties["paid"] != true {
		t.Errorf("Properties = %v", cp.Properties)
	}
	lines, ok := cp.Properties["lines"].([]any)
	if !ok || len(lines) != 2 || lines[0] != "a" {
		t.Errorf("lines = %#v", cp.Properties["lines"])
	}
	nested, ok := cp.Properties["nested"].(map[string]any)
	if !ok || nested["k"] != "v" {
		t.Errorf("nested = %#v", cp.Properties["nested"])
	}
}

func testSaveOverwrites(t *testing.T, s store.Store) {
	ctx := context.Background()
	wid := id.NewWorkflowRunID()

	if err := s.Save(ctx, wid, 0, map[string]any{"step": "a"}); err != nil {
		t.Fatalf("Save 0: %v", err)
	}
	if err := s.Save(ctx, wid, 1, map[string]any{"step": "b"}); err != nil {
		t.Fatalf("Save 1: %v", err)
	}

	cp, err := s.Load(ctx, wid)
	if err != nil || cp == nil {
		t.Fatalf("Load = %v, %v", cp, err)
	}
	if cp.StepIndex != 1 || cp.Properties["step"] != "b" {
		t.Errorf("checkpoint = step %d %v, want step 1 with b", cp.StepIndex, cp.Properties)
	}

	all, err := s.List(ctx, checkpoint.ListOpts{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	n := 0
	for _, c := range all {
		if c.WorkflowID.String() == wid.String() {
			n++
		}
	}
	if n != 1 {
		t.Errorf("List holds %d checkpoints for the run, want 1", n)
	}
}

func testLoadMissing(t *testing.T, s store.Store) {
	cp, err := s.Load(context.Background(), id.NewWorkflowRunID())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cp != nil {
		t.Errorf("Load = %+v, want nil", cp)
	}
}

func testClear(t *testing.T, s store.Store) {
	ctx := context.Background()
	wid := id.NewWorkflowRunID()

	if err := s.Save(ctx, wid, 0, map[string]any{"k": "v"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Clear(ctx, wid); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	cp, err := s.Load(ctx, wid)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cp != nil {
		t.Error("checkpoint survived Clear")
	}
	all, err := s.List(ctx, checkpoint.ListOpts{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, c := range all {
		if c.WorkflowID.String() == wid.String() {
			t.Error("cleared checkpoint still listed")
		}
	}
}

func testClearMissing(t *testing.T, s store.Store) {
	if err := s.Clear(context.Background(), id.NewWorkflowRunID()); err != nil {
		t.Errorf("Clear of unknown run: %v", err)
	}
}

func testList(t *testing.T, s store.Store) {
	ctx := context.Background()
	ids := make([]id.ID, 3)
	for i := range ids {
		ids[i] = id.NewWorkflowRunID()
		if err := s.Save(ctx, ids[i], i, map[string]any{"n": "x"}); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	all, err := s.List(ctx, checkpoint.ListOpts{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List returned %d, want 3", len(all))
	}
	for i, cp := range all {
		if cp.WorkflowID.String() != ids[i].String() {
			t.Errorf("List[%d] = %s, want %s", i, cp.WorkflowID, ids[i])
		}
	}

	page, err := s.List(ctx, checkpoint.ListOpts{Offset: 1, Limit: 1})
	if err != nil {
		t.Fatalf("List page: %v", err)
	}
	if len(page) != 1 || page[0].WorkflowID.String() != ids[1].String() {
		t.Errorf("page = %v, want [%s]", page, ids[1])
	}

	past, err := s.List(ctx, checkpoint.ListOpts{Offset: 10})
	if err != nil {
		t.Fatalf("List past end: %v", err)
	}
	if len(past) != 0 {
		t.Errorf("List past end returned %d", len(past))
	}
}

func testIdempotencyMark(t *testing.T, s store.Store) {
	ctx := context.Background()
	key := id.NewWorkflowRunID().String() + ":charge"

	seen, err := s.Seen(ctx, key)
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if seen {
		t.Fatal("fresh key reported as seen")
	}
	if err := s.Mark(ctx, key, 0); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if seen, err = s.Seen(ctx, key); err != nil || !seen {
		t.Errorf("Seen after Mark = %v, %v", seen, err)
	}
	if err := s.Mark(ctx, key, time.Hour); err != nil {
		t.Errorf("second Mark: %v", err)
	}
}

func testIdempotencyForget(t *testing.T, s store.Store) {
	ctx := context.Background()
	key := id.NewWorkflowRunID().String() + ":reserve"

	if err := s.Forget(ctx, key); err != nil {
		t.Fatalf("Forget of unknown key: %v", err)
	}
	if err := s.Mark(ctx, key, 0); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if err := s.Forget(ctx, key); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if seen, err := s.Seen(ctx, key); err != nil || seen {
		t.Errorf("Seen after Forget = %v, %v", seen, err)
	}
}

func testIdempotencyExpiry(t *testing.T, s store.Store) {
	ctx := context.Background()
	key := id.NewWorkflowRunID().String() + ":notify"

	if err := s.Mark(ctx, key, time.Second); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		seen, err := s.Seen(ctx, key)
		if err != nil {
			t.Fatalf("Seen: %v", err)
		}
		if !seen {
			return
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Error("mark did not expire")
}
