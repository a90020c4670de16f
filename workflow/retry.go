package workflow

import (
	"log/slog"

	"github.com/xraph/stepflow/backoff"
)

// RetryStep re-runs its body from the start until it succeeds or the
// attempt budget is spent.
type RetryStep struct {
	name        string
	maxAttempts int
	body        []Step
	strategy    backoff.Strategy
}

// RetryGroup runs body up to maxAttempts times. Failures of every attempt
// but the last are swallowed; the last one is returned wrapped in a
// *RetryExhaustedError. The 1-based attempt number is stored under
// KeyRetryAttempt before each attempt. maxAttempts below 1 is treated as 1.
func RetryGroup(name string, maxAttempts int, body ...Step) *RetryStep {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryStep{name: name, maxAttempts: maxAttempts, body: body}
}

// WithBackoff returns a copy of the step that waits strategy.Delay(n)
// before retry n.
func (s *RetryStep) WithBackoff(strategy backoff.Strategy) *RetryStep {
	c := *s
	c.strategy = strategy
	return &c
}

// MaxAttempts returns the attempt budget.
func (s *RetryStep) MaxAttempts() int { return s.maxAttempts }

func (s *RetryStep) Name() string { return s.name }
func (s *RetryStep) Kind() Kind   { return KindRetry }

func (s *RetryStep) Execute(wctx *Context) error {
	for attempt := 1; ; attempt++ {
		wctx.Set(KeyRetryAttempt, attempt)

		err := runBody(wctx, s.body)
		if err == nil {
			return nil
		}
		if attempt >= s.maxAttempts {
			return &RetryExhaustedError{Step: s.name, Attempts: attempt, Err: err}
		}

		wctx.Logger().Debug("retry attempt failed",
			slog.String("workflow_id", wctx.WorkflowID().String()),
			slog.String("step", s.name),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", s.maxAttempts),
			slog.String("error", err.Error()),
		)

		if s.strategy != nil {
			if werr := backoff.Wait(wctx.ctx, s.strategy, attempt); werr != nil {
				return werr
			}
		}
	}
}
