package workflow

import (
	"errors"
	"reflect"
)

// CatchFunc handles an error raised by a try body. Returning nil recovers
// from the error; returning an error replaces it.
type CatchFunc func(wctx *Context, err error) error

// Catch pairs an error matcher with a handler.
//
// Matchers test a single link of an error chain. TryCatchFinally walks the
// raised error's chain outermost-first, so the outermost link (the most
// specific kind) is tried first; at each link handlers are tried in
// registration order and the first match wins. CatchAll handlers are only
// considered after the whole chain has been walked.
type Catch struct {
	match  func(link error) bool
	all    bool
	handle CatchFunc
}

// CatchIs matches a link that is target or whose own Is method reports
// target.
func CatchIs(target error, handle CatchFunc) Catch {
	canCompare := target != nil && reflect.TypeOf(target).Comparable()
	return Catch{
		match: func(link error) bool {
			if canCompare && link == target {
				return true
			}
			if x, ok := link.(interface{ Is(error) bool }); ok && x.Is(target) {
				return true
			}
			return false
		},
		handle: handle,
	}
}

// CatchAs matches a link whose dynamic type is T.
func CatchAs[T error](handle CatchFunc) Catch {
	return Catch{
		match: func(link error) bool {
			_, ok := link.(T)
			return ok
		},
		handle: handle,
	}
}

// CatchAll matches any error.
func CatchAll(handle CatchFunc) Catch {
	return Catch{all: true, handle: handle}
}

// HandleWith returns a CatchFunc that runs steps in order. The caught error
// is discarded.
func HandleWith(steps ...Step) CatchFunc {
	return func(wctx *Context, _ error) error {
		return runBody(wctx, steps)
	}
}

// TryCatchStep runs a body with error handlers and a finally block.
type TryCatchStep struct {
	name    string
	try     []Step
	catches []Catch
	finally []Step
}

// TryCatchFinally runs try sequentially, checking the cancellation signal
// between steps. A failure is routed to the first matching handler. finally
// runs in every case. An unmatched error, an error returned by the handler,
// or a failure of finally is returned after finally has run.
func TryCatchFinally(name string, try []Step, catches []Catch, finally []Step) *TryCatchStep {
	return &TryCatchStep{name: name, try: try, catches: catches, finally: finally}
}

// TryCatch is TryCatchFinally without a finally block.
func TryCatch(name string, try []Step, catches ...Catch) *TryCatchStep {
	return TryCatchFinally(name, try, catches, nil)
}

func (s *TryCatchStep) Name() string { return s.name }
func (s *TryCatchStep) Kind() Kind   { return KindTryCatch }

func (s *TryCatchStep) Execute(wctx *Context) error {
	err := s.runTry(wctx)
	if err != nil {
		if c, ok := s.resolve(err); ok {
			err = c.handle(wctx, err)
		}
	}

	if ferr := runBody(wctx, s.finally); ferr != nil {
		return errors.Join(err, ferr)
	}
	return err
}

func (s *TryCatchStep) runTry(wctx *Context) error {
	for i, step := range s.try {
		if i > 0 {
			if err := wctx.ctx.Err(); err != nil {
				return err
			}
		}
		if err := step.Execute(wctx); err != nil {
			return err
		}
	}
	return nil
}

// resolve finds the handler for err.
func (s *TryCatchStep) resolve(err error) (Catch, bool) {
	var found Catch
	matched := false
	walkChain(err, func(link error) bool {
		for _, c := range s.catches {
			if !c.all && c.match != nil && c.match(link) && c.handle != nil {
				found, matched = c, true
				return false
			}
		}
		return true
	})
	if matched {
		return found, true
	}
	for _, c := range s.catches {
		if c.all && c.handle != nil {
			return c, true
		}
	}
	return Catch{}, false
}

// walkChain visits err and every error it wraps, pre-order, until visit
// returns false.
func walkChain(err error, visit func(error) bool) bool {
	if err == nil {
		return true
	}
	if !visit(err) {
		return false
	}
	switch x := err.(type) {
	case interface{ Unwrap() error }:
		return walkChain(x.Unwrap(), visit)
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			if !walkChain(e, visit) {
				return false
			}
		}
	}
	return true
}
