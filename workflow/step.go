package workflow

import (
	"fmt"
)

// Step is a named unit of work. Steps are immutable after construction and
// may be shared by several runs.
type Step interface {
	Name() string
	Execute(wctx *Context) error
}

// CompensatingStep is a Step that can undo its effects. The runner records
// every top-level CompensatingStep that succeeds and, when compensation is
// enabled, calls Compensate in reverse order after a later failure.
type CompensatingStep interface {
	Step
	Compensate(wctx *Context) error
}

// ActionFunc is the body of an Action step.
type ActionFunc func(wctx *Context) error

// ActionStep runs a function.
type ActionStep struct {
	name string
	fn   ActionFunc
}

// Action returns a step that runs fn.
func Action(name string, fn ActionFunc) *ActionStep {
	return &ActionStep{name: name, fn: fn}
}

func (s *ActionStep) Name() string { return s.name }
func (s *ActionStep) Kind() Kind   { return KindAction }

func (s *ActionStep) Execute(wctx *Context) error {
	if s.fn == nil {
		return nil
	}
	return s.fn(wctx)
}

// CompensableStep runs a function and knows how to undo it.
type CompensableStep struct {
	name string
	do   ActionFunc
	undo ActionFunc
}

// Compensable returns a compensating step running do, undone by undo.
func Compensable(name string, do, undo ActionFunc) *CompensableStep {
	return &CompensableStep{name: name, do: do, undo: undo}
}

func (s *CompensableStep) Name() string { return s.name }
func (s *CompensableStep) Kind() Kind   { return KindAction }

func (s *CompensableStep) Execute(wctx *Context) error {
	if s.do == nil {
		return nil
	}
	return s.do(wctx)
}

func (s *CompensableStep) Compensate(wctx *Context) error {
	if s.undo == nil {
		return nil
	}
	return s.undo(wctx)
}

// SequenceStep runs its steps in order and stops at the first failure.
type SequenceStep struct {
	name  string
	steps []Step
}

// Sequence groups steps into a single step.
func Sequence(name string, steps ...Step) *SequenceStep {
	return &SequenceStep{name: name, steps: steps}
}

func (s *SequenceStep) Name() string { return s.name }
func (s *SequenceStep) Kind() Kind   { return KindSequence }

func (s *SequenceStep) Execute(wctx *Context) error {
	return runBody(wctx, s.steps)
}

// AbortStep sets the run's Aborted flag. The runner halts with status
// Aborted once the enclosing top-level step returns.
type AbortStep struct {
	name string
}

// Abort returns a step that halts the run without faulting it.
func Abort(name string) *AbortStep { return &AbortStep{name: name} }

func (s *AbortStep) Name() string { return s.name }
func (s *AbortStep) Kind() Kind   { return KindAbort }

func (s *AbortStep) Execute(wctx *Context) error {
	wctx.Abort()
	return nil
}

// runBody runs steps sequentially, returning the first failure.
func runBody(wctx *Context, steps []Step) error {
	for _, step := range steps {
		if err := step.Execute(wctx); err != nil {
			return err
		}
	}
	return nil
}

// runGuardedBody runs steps sequentially, checking the cancellation signal
// and the Aborted flag before each one. stop is true when the body halted
// because the run was aborted.
func runGuardedBody(wctx *Context, steps []Step) (stop bool, err error) {
	for _, step := range steps {
		if err := wctx.ctx.Err(); err != nil {
			return false, err
		}
		if wctx.Aborted() {
			return true, nil
		}
		if err := step.Execute(wctx); err != nil {
			return false, err
		}
	}
	return false, nil
}

func describe(step Step) string {
	if step == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %q", KindOf(step), step.Name())
}
