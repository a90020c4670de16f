package workflow

import "fmt"

// Kind names the variant of a step. Every composite reports its Kind; any
// Step that does not is treated as KindAction.
type Kind int

const (
	KindAction Kind = iota
	KindSequence
	KindConditional
	KindParallel
	KindForEach
	KindWhile
	KindDoWhile
	KindRetry
	KindTryCatch
	KindSubWorkflow
	KindDelay
	KindTimeout
	KindAbort
)

var kindNames = [...]string{
	KindAction:      "action",
	KindSequence:    "sequence",
	KindConditional: "if",
	KindParallel:    "parallel",
	KindForEach:     "foreach",
	KindWhile:       "while",
	KindDoWhile:     "dowhile",
	KindRetry:       "retry",
	KindTryCatch:    "try",
	KindSubWorkflow: "subworkflow",
	KindDelay:       "delay",
	KindTimeout:     "timeout",
	KindAbort:       "abort",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind returns the Kind whose String form is s.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("workflow: unknown step kind %q", s)
}

// Kinded is implemented by steps that report their variant.
type Kinded interface {
	Kind() Kind
}

// KindOf returns the variant of step.
func KindOf(step Step) Kind {
	if k, ok := step.(Kinded); ok {
		return k.Kind()
	}
	return KindAction
}

// Children returns the steps nested directly inside step, in execution
// order. Catch handlers are opaque functions and are not reported. Leaf
// steps return nil.
func Children(step Step) []Step {
	switch s := step.(type) {
	case *SequenceStep:
		return s.steps
	case *ConditionalStep:
		if s.otherwise == nil {
			return []Step{s.then}
		}
		return []Step{s.then, s.otherwise}
	case *ParallelStep:
		return s.children
	case *ForEachStep:
		return s.body
	case *LoopStep:
		return s.body
	case *RetryStep:
		return s.body
	case *TryCatchStep:
		out := make([]Step, 0, len(s.try)+len(s.finally))
		out = append(out, s.try...)
		return append(out, s.finally...)
	case *SubWorkflowStep:
		if s.child == nil {
			return nil
		}
		return s.child.Steps
	case *TimeoutStep:
		return []Step{s.inner}
	case *ActionStep, *CompensableStep, *DelayStep, *AbortStep:
		return nil
	default:
		return nil
	}
}

// Walk visits step and every nested step depth-first. Returning false
// from fn skips the children of the visited step.
func Walk(step Step, fn func(step Step, depth int) bool) {
	walk(step, 0, fn)
}

func walk(step Step, depth int, fn func(Step, int) bool) {
	if step == nil || !fn(step, depth) {
		return
	}
	for _, child := range Children(step) {
		walk(child, depth+1, fn)
	}
}
