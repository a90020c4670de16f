package definition_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xraph/stepflow"
	"github.com/xraph/stepflow/definition"
	"github.com/xraph/stepflow/workflow"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type trail struct {
	mu  sync.Mutex
	got []string
}

func (t *trail) action(name string) workflow.ActionFunc {
	return func(*workflow.Context) error {
		t.mu.Lock()
		t.got = append(t.got, name)
		t.mu.Unlock()
		return nil
	}
}

func (t *trail) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.got...)
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

const orderYAML = `
name: process-order
version: 2
compensation: true
steps:
  - name: reserve
    action: reserve
    compensate: release
  - name: charge
    kind: retry
    attempts: 3
    backoff: none
    steps:
      - name: call-gateway
        action: charge
  - name: ship
    kind: if
    when_property: in_stock
    then:
      - name: dispatch
        action: dispatch
    else:
      - name: backorder
        action: backorder
      - name: notify
        action: notify
`

func TestParse_CompilesKinds(t *testing.T) {
	var tr trail
	reg := definition.NewRegistry().
		RegisterAction("reserve", tr.action("reserve")).
		RegisterAction("release", tr.action("release")).
		RegisterAction("charge", tr.action("charge")).
		RegisterAction("dispatch", tr.action("dispatch")).
		RegisterAction("backorder", tr.action("backorder")).
		RegisterAction("notify", tr.action("notify"))

	def, err := definition.Parse([]byte(orderYAML), reg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if def.Name != "process-order" || def.Version != 2 || !def.Compensation {
		t.Errorf("header = %s v%d comp=%v", def.Name, def.Version, def.Compensation)
	}

	wantKinds := []workflow.Kind{workflow.KindAction, workflow.KindRetry, workflow.KindConditional}
	for i, k := range wantKinds {
		if got := workflow.KindOf(def.Steps[i]); got != k {
			t.Errorf("step %d kind = %v, want %v", i, got, k)
		}
	}
	if _, ok := def.Steps[0].(workflow.CompensatingStep); !ok {
		t.Error("reserve is not compensating")
	}
	if r := def.Steps[1].(*workflow.RetryStep); r.MaxAttempts() != 3 {
		t.Errorf("attempts = %d", r.MaxAttempts())
	}

	runner := workflow.NewRunner(workflow.NopEmitter{}, testLogger())
	res := runner.Run(context.Background(), def)
	if !res.Succeeded() {
		t.Fatalf("status = %s: %v", res.Status, res.Err())
	}
	if got, want := tr.list(), []string{"reserve", "charge", "backorder", "notify"}; !equal(got, want) {
		t.Errorf("trail = %v, want %v", got, want)
	}
}

func TestParse_LoopsAndItems(t *testing.T) {
	var tr trail
	var mu sync.Mutex
	var seen []any
	reg := definition.NewRegistry().
		RegisterAction("collect", func(wctx *workflow.Context) error {
			v, _ := wctx.Get(workflow.KeyCurrentItem)
			mu.Lock()
			seen = append(seen, v)
			mu.Unlock()
			return nil
		}).
		RegisterAction("tick", func(wctx *workflow.Context) error {
			n, _ := workflow.Value[int](wctx, "n")
			wctx.Set("n", n+1)
			return nil
		}).
		RegisterAction("a", tr.action("a")).
		RegisterAction("b", tr.action("b")).
		RegisterPredicate("below-three", func(wctx *workflow.Context) bool {
			n, _ := workflow.Value[int](wctx, "n")
			return n < 3
		})

	doc := `
name: loops
steps:
  - name: each
    kind: foreach
    items_property: lines
    steps:
      - name: collect
        action: collect
  - name: count
    kind: while
    when: below-three
    steps:
      - name: tick
        action: tick
  - name: fan
    kind: parallel
    limit: 1
    steps:
      - {name: a, action: a}
      - {name: b, action: b}
  - name: pause
    kind: delay
    duration: 1ms
  - name: guarded
    kind: timeout
    duration: 1s
    step:
      name: inner
      action: a
`
	def, err := definition.Parse([]byte(doc), reg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	runner := workflow.NewRunner(workflow.NopEmitter{}, testLogger())
	res := runner.Run(context.Background(), def,
		workflow.WithProperties(map[string]any{"lines": []any{"x", "y"}}))
	if !res.Succeeded() {
		t.Fatalf("status = %s: %v", res.Status, res.Err())
	}
	if len(seen) != 2 || seen[0] != "x" || seen[1] != "y" {
		t.Errorf("items = %v", seen)
	}
	if n, _ := workflow.Value[int](res.Context, "n"); n != 3 {
		t.Errorf("n = %d, want 3", n)
	}
	if d := def.Steps[3].(*workflow.DelayStep).Duration(); d != time.Millisecond {
		t.Errorf("delay = %v", d)
	}
	if d := def.Steps[4].(*workflow.TimeoutStep).Duration(); d != time.Second {
		t.Errorf("timeout = %v", d)
	}
}

func TestParse_TryCatch(t *testing.T) {
	errDeclined := errors.New("card declined")
	var tr trail
	reg := definition.NewRegistry().
		RegisterAction("charge", func(*workflow.Context) error { return errDeclined }).
		RegisterAction("refund", tr.action("refund")).
		RegisterAction("fallback", tr.action("fallback")).
		RegisterAction("cleanup", tr.action("cleanup")).
		RegisterError("declined", errDeclined)

	doc := `
name: pay
steps:
  - name: attempt
    kind: try
    steps:
      - {name: charge, action: charge}
    catch:
      - error: timeout
        steps:
          - {name: fallback, action: fallback}
      - error: declined
        steps:
          - {name: refund, action: refund}
    finally:
      - {name: cleanup, action: cleanup}
`
	def, err := definition.Parse([]byte(doc), reg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	res := workflow.NewRunner(workflow.NopEmitter{}, testLogger()).Run(context.Background(), def)
	if !res.Succeeded() {
		t.Fatalf("status = %s: %v", res.Status, res.Err())
	}
	if got, want := tr.list(), []string{"refund", "cleanup"}; !equal(got, want) {
		t.Errorf("trail = %v, want %v", got, want)
	}
}

func TestParse_SubWorkflow(t *testing.T) {
	workflows := workflow.NewRegistry()
	workflows.MustRegister(workflow.NewBuilder("child").Then("c", func(wctx *workflow.Context) error {
		wctx.Set("child_ran", true)
		return nil
	}).Build())

	reg := definition.NewRegistry().SetWorkflows(workflows)
	doc := `
name: parent
steps:
  - name: call-child
    kind: subworkflow
    workflow: child
  - name: stop
    kind: abort
`
	def, err := definition.Parse([]byte(doc), reg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	res := workflow.NewRunner(workflow.NopEmitter{}, testLogger()).Run(context.Background(), def)
	if res.Status != workflow.StatusAborted {
		t.Fatalf("status = %s", res.Status)
	}
	if !res.Context.Has("child_ran") {
		t.Error("child properties not merged")
	}
}

func TestParse_Errors(t *testing.T) {
	reg := definition.NewRegistry().RegisterAction("known", nil)

	tests := []struct {
		name    string
		doc     string
		wantSub string
		wantIs  error
	}{
		{"empty", "   ", "empty document", nil},
		{"unknown field", "name: x\nbogus: 1\nsteps: [{name: a, action: known}]", "decode", nil},
		{"no name", "steps: [{name: a, action: known}]", "workflow name is required", nil},
		{"no steps", "name: x", "no steps", nil},
		{"unknown kind", "name: x\nsteps: [{name: a, kind: goto}]", "goto", nil},
		{"unknown action", "name: x\nsteps: [{name: a, action: nope}]", "nope", stepflow.ErrActionNotFound},
		{"unknown compensation", "name: x\nsteps: [{name: a, action: known, compensate: nope}]", "compensation", stepflow.ErrActionNotFound},
		{"missing kind", "name: x\nsteps: [{name: a}]", "kind is required", nil},
		{"retry attempts", "name: x\nsteps: [{name: r, kind: retry, steps: [{name: a, action: known}]}]", "attempts", nil},
		{"bad backoff", "name: x\nsteps: [{name: r, kind: retry, attempts: 2, backoff: wobbly, steps: [{name: a, action: known}]}]", "wobbly", nil},
		{"bad duration", "name: x\nsteps: [{name: d, kind: delay, duration: soon}]", "soon", nil},
		{"if without then", "name: x\nsteps: [{name: i, kind: if, when_property: p}]", "then", nil},
		{"unknown predicate", "name: x\nsteps: [{name: w, kind: while, when: nope, steps: [{name: a, action: known}]}]", "predicate", nil},
		{"unknown error", "name: x\nsteps: [{name: t, kind: try, steps: [{name: a, action: known}], catch: [{error: mystery}]}]", "mystery", nil},
		{"no resolver", "name: x\nsteps: [{name: s, kind: subworkflow, workflow: child}]", "resolver", nil},
		{"duplicate names", "name: x\nsteps: [{name: a, action: known}, {name: a, action: known}]", "", stepflow.ErrDuplicateStep},
		{"timeout without step", "name: x\nsteps: [{name: t, kind: timeout, duration: 1s}]", "inner step", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := definition.Parse([]byte(tt.doc), reg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, stepflow.ErrInvalidDefinition) {
				t.Errorf("err = %v, want ErrInvalidDefinition", err)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("err = %v, want %v", err, tt.wantIs)
			}
			if tt.wantSub != "" && !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("err = %q, want it to mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestParse_ReportsAllProblems(t *testing.T) {
	doc := "name: x\nsteps: [{name: a, action: one}, {name: b, action: two}]"
	_, err := definition.Parse([]byte(doc), definition.NewRegistry())
	if err == nil || !strings.Contains(err.Error(), "one") || !strings.Contains(err.Error(), "two") {
		t.Errorf("err = %v, want both unknown actions reported", err)
	}
}

func TestParse_RetryWithBackoff(t *testing.T) {
	reg := definition.NewRegistry().RegisterAction("a", nil)
	doc := "name: x\nsteps: [{name: r, kind: retry, attempts: 2, backoff: 'constant:5ms', steps: [{name: a, action: a}]}]"
	def, err := definition.Parse([]byte(doc), reg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if def.Version != 1 {
		t.Errorf("version = %d, want default 1", def.Version)
	}
	if r, ok := def.Steps[0].(*workflow.RetryStep); !ok || r.MaxAttempts() != 2 {
		t.Errorf("step = %#v, want retry with 2 attempts", def.Steps[0])
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	write("b.yaml", "name: second\nsteps: [{name: s, action: a}]")
	write("a.yml", "name: first\nsteps: [{name: s, action: a}]")
	write("notes.txt", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "sub.yaml"), 0o700); err != nil {
		t.Fatal(err)
	}

	reg := definition.NewRegistry().RegisterAction("a", nil)
	defs, err := definition.LoadDir(dir, reg)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(defs) != 2 || defs[0].Name != "first" || defs[1].Name != "second" {
		t.Errorf("defs = %v", defs)
	}

	missing, err := definition.LoadDir(filepath.Join(dir, "nope"), reg)
	if err != nil || missing != nil {
		t.Errorf("missing dir = %v, %v", missing, err)
	}
}

func TestLoad_ErrorNamesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("name: x\nsteps: [{name: a, action: gone}]"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := definition.Load(path, definition.NewRegistry())
	if err == nil || !strings.Contains(err.Error(), "broken.yaml") {
		t.Errorf("err = %v, want file name", err)
	}
	if _, err := definition.Load(filepath.Dir(path), nil); err == nil {
		t.Error("expected error loading a directory")
	}
}
