package workflow_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/xraph/stepflow/id"
	"github.com/xraph/stepflow/workflow"
)

func TestContext_Properties(t *testing.T) {
	wctx := workflow.NewContext(context.Background(), id.Nil, "")

	wctx.Set("a", 1)
	if !wctx.Has("a") {
		t.Fatal("Has(a) = false after Set")
	}
	if v, ok := workflow.Value[int](wctx, "a"); !ok || v != 1 {
		t.Errorf("Value = %v, %v", v, ok)
	}
	if _, ok := workflow.Value[string](wctx, "a"); ok {
		t.Error("Value[string] matched an int")
	}

	wctx.Delete("a")
	if wctx.Has("a") {
		t.Error("Has(a) = true after Delete")
	}
}

func TestContext_SnapshotIsDeep(t *testing.T) {
	type order struct{ Lines []string }

	wctx := workflow.NewContext(context.Background(), id.Nil, "")
	wctx.Set("nested", map[string]any{"list": []any{1, 2}})
	wctx.Set("tags", []string{"x"})
	wctx.Set("order", &order{Lines: []string{"l1"}})

	snap := wctx.Snapshot()

	nested, _ := workflow.Value[map[string]any](wctx, "nested")
	nested["list"].([]any)[0] = 99
	nested["added"] = true
	tags, _ := workflow.Value[[]string](wctx, "tags")
	tags[0] = "changed"
	o, _ := workflow.Value[*order](wctx, "order")
	o.Lines[0] = "mutated"

	sn := snap["nested"].(map[string]any)
	if sn["list"].([]any)[0] != 1 {
		t.Errorf("snapshot list = %v, want original", sn["list"])
	}
	if _, ok := sn["added"]; ok {
		t.Error("snapshot map received a later key")
	}
	if snap["tags"].([]string)[0] != "x" {
		t.Errorf("snapshot tags = %v", snap["tags"])
	}
	if snap["order"].(*order).Lines[0] != "l1" {
		t.Errorf("snapshot order = %v", snap["order"])
	}
}

func TestContext_RestoreCopies(t *testing.T) {
	src := map[string]any{"list": []any{"a"}}
	wctx := workflow.NewContext(context.Background(), id.Nil, "")
	wctx.Restore(src)

	src["list"].([]any)[0] = "b"
	got, _ := workflow.Value[[]any](wctx, "list")
	if got[0] != "a" {
		t.Errorf("restored list = %v, want [a]", got)
	}
}

func TestContext_WithContextSharesState(t *testing.T) {
	wctx := workflow.NewContext(context.Background(), id.Nil, "corr")
	ctx, cancel := context.WithCancel(context.Background())
	view := wctx.WithContext(ctx)

	view.Set("k", "v")
	view.Abort()
	view.AddError("s", fmt.Errorf("e"))
	cancel()

	if !wctx.Has("k") || !wctx.Aborted() || len(wctx.Errors()) != 1 {
		t.Error("view writes not visible through original")
	}
	if wctx.Context().Err() != nil {
		t.Error("cancelling the view's signal cancelled the original")
	}
	if view.WorkflowID() != wctx.WorkflowID() || view.CorrelationID() != "corr" {
		t.Error("view identity differs")
	}
}

func TestContext_ConcurrentDisjointWrites(t *testing.T) {
	wctx := workflow.NewContext(context.Background(), id.Nil, "")

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wctx.Set(fmt.Sprintf("k%d", i), i)
			_ = wctx.Snapshot()
		}()
	}
	wg.Wait()

	if n := len(wctx.Properties()); n != 50 {
		t.Errorf("properties = %d, want 50", n)
	}
}

func TestContext_Defaults(t *testing.T) {
	wctx := workflow.NewContext(context.Background(), id.Nil, "")
	if wctx.WorkflowID().IsNil() {
		t.Error("workflow id not generated")
	}
	if wctx.CorrelationID() == "" {
		t.Error("correlation id not generated")
	}
	if wctx.CurrentStepIndex() != -1 {
		t.Errorf("CurrentStepIndex = %d, want -1", wctx.CurrentStepIndex())
	}
	wctx.SetAborted(true)
	wctx.SetAborted(false)
	if wctx.Aborted() {
		t.Error("SetAborted(false) did not clear flag")
	}
}

func TestCloneValue_Scalars(t *testing.T) {
	for _, v := range []any{nil, 1, "s", 2.5, true} {
		if got := workflow.CloneValue(v); got != v {
			t.Errorf("CloneValue(%v) = %v", v, got)
		}
	}
}

type ringNode struct {
	Name string
	Next *ringNode
}

func TestContext_SnapshotCyclicPointers(t *testing.T) {
	a := &ringNode{Name: "a"}
	b := &ringNode{Name: "b", Next: a}
	a.Next = b

	wctx := workflow.NewContext(context.Background(), id.Nil, "")
	wctx.Set("ring", a)
	wctx.Set("second", b)

	snap := wctx.Snapshot()
	ring := snap["ring"].(*ringNode)
	if ring == a || ring.Next == b {
		t.Fatal("snapshot aliases the live graph")
	}
	if ring.Next.Name != "b" || ring.Next.Next != ring {
		t.Error("cycle not reproduced in the copy")
	}
	if snap["second"].(*ringNode) != ring.Next {
		t.Error("reference shared between properties was copied twice")
	}

	a.Name = "mutated"
	if ring.Name != "a" {
		t.Errorf("snapshot name = %q, want a", ring.Name)
	}
}

func TestCloneValue_SelfContainingMap(t *testing.T) {
	m := map[string]any{"k": 1}
	m["self"] = m

	got := workflow.CloneValue(m).(map[string]any)
	self := got["self"].(map[string]any)
	self["k"] = 2
	if got["k"] != 2 {
		t.Error("copied map does not refer to itself")
	}
	if m["k"] != 1 {
		t.Error("original map was modified through the copy")
	}
}
