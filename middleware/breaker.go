package middleware

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker"

	"github.com/xraph/stepflow"
	"github.com/xraph/stepflow/workflow"
)

// CircuitBreaker returns middleware that routes every step through cb.
// While the breaker is open, or half-open and saturated, steps fail
// immediately with stepflow.ErrCircuitOpen.
func CircuitBreaker(cb *gobreaker.CircuitBreaker, logger *slog.Logger) Middleware {
	return func(wctx *workflow.Context, step workflow.Step, next Handler) error {
		var stepErr error
		_, err := cb.Execute(func() (any, error) {
			stepErr = next(wctx)
			return nil, stepErr
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logger.Warn("circuit breaker rejected step", append(stepAttrs(wctx, step),
				slog.String("breaker", cb.Name()),
				slog.String("state", cb.State().String()),
			)...)
			return fmt.Errorf("%w: %s: %w", stepflow.ErrCircuitOpen, cb.Name(), err)
		}
		return stepErr
	}
}

// NewCircuitBreaker builds a breaker that opens after maxFailures
// consecutive step failures. Remaining settings use gobreaker defaults
// unless overridden by settings.
func NewCircuitBreaker(name string, maxFailures uint32, settings ...gobreaker.Settings) *gobreaker.CircuitBreaker {
	var s gobreaker.Settings
	if len(settings) > 0 {
		s = settings[0]
	}
	s.Name = name
	if s.ReadyToTrip == nil && maxFailures > 0 {
		s.ReadyToTrip = func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		}
	}
	return gobreaker.NewCircuitBreaker(s)
}
