package workflow

import (
	"errors"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// ParallelStep runs its children concurrently against the same Context.
//
// Every child runs to completion even when a sibling fails: the group
// waits for all of them and then returns every failure joined with
// errors.Join, in child order.
type ParallelStep struct {
	name     string
	children []Step
	limit    int
}

// Parallel returns a step that fans out to children.
func Parallel(name string, children ...Step) *ParallelStep {
	return &ParallelStep{name: name, children: children}
}

// WithLimit returns a copy of the step that runs at most n children at a
// time. n <= 0 removes the bound.
func (s *ParallelStep) WithLimit(n int) *ParallelStep {
	c := *s
	c.limit = n
	return &c
}

func (s *ParallelStep) Name() string { return s.name }
func (s *ParallelStep) Kind() Kind   { return KindParallel }

func (s *ParallelStep) Execute(wctx *Context) error {
	if len(s.children) == 0 {
		return nil
	}

	// A plain group: siblings are never cancelled by another's failure.
	var g errgroup.Group
	limit := s.limit
	if limit <= 0 && wctx.st.runner != nil {
		limit = wctx.st.runner.maxParallelism
	}
	if limit > 0 {
		g.SetLimit(limit)
	}

	errs := make([]error, len(s.children))
	for i, child := range s.children {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = &PanicError{Step: child.Name(), Value: r, Stack: debug.Stack()}
				}
			}()
			errs[i] = child.Execute(wctx)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
