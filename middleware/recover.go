package middleware

import (
	"log/slog"
	"runtime/debug"

	"github.com/xraph/stepflow/workflow"
)

// Recover returns middleware that recovers from panics in the rest of the
// chain. A panic becomes a *workflow.PanicError and is logged with its
// stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(wctx *workflow.Context, step workflow.Step, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				logger.Error("step panicked", append(stepAttrs(wctx, step),
					slog.Any("panic", r),
					slog.String("stack", string(stack)),
				)...)
				retErr = &workflow.PanicError{Step: step.Name(), Value: r, Stack: stack}
			}
		}()
		return next(wctx)
	}
}
