package workflow

// Predicate decides a branch or loop condition from the run's state.
type Predicate func(wctx *Context) bool

// ConditionalStep runs one of two branches.
type ConditionalStep struct {
	name      string
	predicate Predicate
	then      Step
	otherwise Step
}

// Conditional runs then when predicate holds and otherwise when it does
// not. A nil otherwise makes the false branch a no-op.
func Conditional(name string, predicate Predicate, then, otherwise Step) *ConditionalStep {
	return &ConditionalStep{name: name, predicate: predicate, then: then, otherwise: otherwise}
}

func (s *ConditionalStep) Name() string { return s.name }
func (s *ConditionalStep) Kind() Kind   { return KindConditional }

func (s *ConditionalStep) Execute(wctx *Context) error {
	if s.predicate != nil && s.predicate(wctx) {
		if s.then == nil {
			return nil
		}
		return s.then.Execute(wctx)
	}
	if s.otherwise == nil {
		return nil
	}
	return s.otherwise.Execute(wctx)
}
