package workflow_test

import (
	"testing"
	"time"

	"github.com/xraph/stepflow/workflow"
)

func TestKind_StringRoundTrip(t *testing.T) {
	for k := workflow.KindAction; k <= workflow.KindAbort; k++ {
		got, err := workflow.ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", k.String(), err)
		}
		if got != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), got, k)
		}
	}
	if _, err := workflow.ParseKind("goto"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestKindOf(t *testing.T) {
	a := workflow.Action("a", nil)
	child := workflow.NewBuilder("child").Step(a).Build()

	tests := []struct {
		step workflow.Step
		want workflow.Kind
	}{
		{a, workflow.KindAction},
		{workflow.Compensable("c", nil, nil), workflow.KindAction},
		{workflow.Sequence("s", a), workflow.KindSequence},
		{workflow.Conditional("if", nil, a, nil), workflow.KindConditional},
		{workflow.Parallel("p", a), workflow.KindParallel},
		{workflow.ForEach("f", nil, a), workflow.KindForEach},
		{workflow.While("w", nil, a), workflow.KindWhile},
		{workflow.DoWhile("d", nil, a), workflow.KindDoWhile},
		{workflow.RetryGroup("r", 2, a), workflow.KindRetry},
		{workflow.TryCatch("t", []workflow.Step{a}), workflow.KindTryCatch},
		{workflow.SubWorkflow("sub", child), workflow.KindSubWorkflow},
		{workflow.Delay("delay", time.Second), workflow.KindDelay},
		{workflow.Timeout("to", a, time.Second), workflow.KindTimeout},
		{workflow.Abort("x"), workflow.KindAbort},
	}

	for _, tt := range tests {
		if got := workflow.KindOf(tt.step); got != tt.want {
			t.Errorf("KindOf(%s) = %v, want %v", tt.step.Name(), got, tt.want)
		}
	}
}

func TestWalk(t *testing.T) {
	a, b, c := workflow.Action("a", nil), workflow.Action("b", nil), workflow.Action("c", nil)
	root := workflow.Sequence("root",
		workflow.Conditional("if", nil, a, workflow.Parallel("par", b, c)),
		workflow.TryCatchFinally("try", []workflow.Step{workflow.Timeout("to", a, time.Second)}, nil,
			[]workflow.Step{workflow.Delay("d", 0)}),
	)

	var got []string
	workflow.Walk(root, func(s workflow.Step, depth int) bool {
		got = append(got, s.Name())
		return s.Name() != "par"
	})

	want := []string{"root", "if", "a", "par", "try", "to", "a", "d"}
	if !equal(got, want) {
		t.Errorf("walk = %v, want %v", got, want)
	}
}
