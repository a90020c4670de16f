package workflow

import (
	"context"
	"time"
)

// DelayStep pauses the run.
type DelayStep struct {
	name     string
	duration time.Duration
}

// Delay suspends for d or until the run's signal is cancelled, in which
// case the signal's error is returned.
func Delay(name string, d time.Duration) *DelayStep {
	return &DelayStep{name: name, duration: d}
}

// Duration returns the pause length.
func (s *DelayStep) Duration() time.Duration { return s.duration }

func (s *DelayStep) Name() string { return s.name }
func (s *DelayStep) Kind() Kind   { return KindDelay }

func (s *DelayStep) Execute(wctx *Context) error {
	return sleep(wctx.ctx, s.duration)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
