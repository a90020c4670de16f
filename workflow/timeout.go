package workflow

import (
	"context"
	"errors"
	"runtime/debug"
	"time"
)

// errTimeoutCause marks a derived signal cancelled by a Timeout's own timer.
var errTimeoutCause = errors.New("workflow: step deadline reached")

// TimeoutStep bounds the run time of an inner step.
type TimeoutStep struct {
	name     string
	inner    Step
	duration time.Duration
}

// Timeout runs inner against a view of the context whose signal also fires
// after d. If that timer fires first the step fails with a *TimeoutError.
// Cancellation of the caller's signal is returned unchanged, and the
// caller's signal is never cancelled by the timer.
//
// inner runs on its own goroutine so an inner step that ignores its signal
// cannot hold the run past the deadline; such a step keeps running in the
// background until it returns.
func Timeout(name string, inner Step, d time.Duration) *TimeoutStep {
	return &TimeoutStep{name: name, inner: inner, duration: d}
}

// Duration returns the time limit.
func (s *TimeoutStep) Duration() time.Duration { return s.duration }

func (s *TimeoutStep) Name() string { return s.name }
func (s *TimeoutStep) Kind() Kind   { return KindTimeout }

func (s *TimeoutStep) Execute(wctx *Context) error {
	if s.inner == nil {
		return nil
	}
	parent := wctx.ctx
	ctx, cancel := context.WithTimeoutCause(parent, s.duration, errTimeoutCause)
	defer cancel()

	view := wctx.WithContext(ctx)
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- &PanicError{Step: s.inner.Name(), Value: r, Stack: debug.Stack()}
			}
		}()
		done <- s.inner.Execute(view)
	}()

	select {
	case err := <-done:
		return s.settle(parent, ctx, err)
	case <-ctx.Done():
		select {
		case err := <-done:
			return s.settle(parent, ctx, err)
		default:
		}
		if s.timedOut(parent, ctx) {
			return &TimeoutError{Step: s.name, After: s.duration}
		}
		return parent.Err()
	}
}

func (s *TimeoutStep) settle(parent, ctx context.Context, err error) error {
	if err != nil && s.timedOut(parent, ctx) {
		return &TimeoutError{Step: s.name, After: s.duration, Err: err}
	}
	return err
}

// timedOut reports whether ctx was cancelled by its own timer rather than by
// parent.
func (s *TimeoutStep) timedOut(parent, ctx context.Context) bool {
	return parent.Err() == nil && errors.Is(context.Cause(ctx), errTimeoutCause)
}
