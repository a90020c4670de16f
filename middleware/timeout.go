package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xraph/stepflow/workflow"
)

var errDeadline = errors.New("middleware: step deadline")

// Timeout returns middleware that gives every step a deadline of d. The
// rest of the chain sees a signal that is cancelled when the deadline
// passes; a step that stops because of it fails with a
// *workflow.TimeoutError. Unlike the Timeout step, a step that ignores its
// signal is waited for. A non-positive d disables the middleware.
func Timeout(d time.Duration, logger *slog.Logger) Middleware {
	return func(wctx *workflow.Context, step workflow.Step, next Handler) error {
		if d <= 0 {
			return next(wctx)
		}
		parent := wctx.Context()
		ctx, cancel := context.WithTimeoutCause(parent, d, errDeadline)
		defer cancel()

		err := next(wctx.WithContext(ctx))
		if err != nil && parent.Err() == nil && errors.Is(context.Cause(ctx), errDeadline) {
			logger.Warn("step deadline exceeded", append(stepAttrs(wctx, step),
				slog.Duration("timeout", d),
			)...)
			return &workflow.TimeoutError{Step: step.Name(), After: d, Err: err}
		}
		return err
	}
}
