package middleware

import (
	"fmt"

	"golang.org/x/time/rate"

	"github.com/xraph/stepflow"
	"github.com/xraph/stepflow/workflow"
)

// RateLimit returns middleware that waits for a token from limiter before
// every step. If the signal is cancelled while waiting, the step fails
// with stepflow.ErrRateLimited without running.
func RateLimit(limiter *rate.Limiter) Middleware {
	return func(wctx *workflow.Context, step workflow.Step, next Handler) error {
		if err := limiter.Wait(wctx.Context()); err != nil {
			return fmt.Errorf("%w: step %q: %w", stepflow.ErrRateLimited, step.Name(), err)
		}
		return next(wctx)
	}
}
