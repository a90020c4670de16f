// Package backoff provides delay strategies applied between RetryGroup
// attempts. All strategies are stateless and safe for concurrent use.
package backoff

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	// Attempt 1 is the first retry after the initial failure.
	Delay(attempt int) time.Duration
}

// Wait blocks for s.Delay(attempt) or until ctx is done, whichever comes
// first. It returns ctx.Err() when ctx ends the wait.
func Wait(ctx context.Context, s Strategy, attempt int) error {
	d := s.Delay(attempt)
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

// ──────────────────────────────────────────────────
// None
// ──────────────────────────────────────────────────

// None retries immediately.
type None struct{}

// Delay returns zero.
func (None) Delay(int) time.Duration { return 0 }

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant always returns the same delay regardless of attempt number.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// ──────────────────────────────────────────────────
// Linear
// ──────────────────────────────────────────────────

// Linear increases the delay linearly with the attempt number.
// Delay = min(Initial * attempt, Max).
type Linear struct {
	Initial time.Duration
	Max     time.Duration
}

// NewLinear creates a linear backoff strategy.
func NewLinear(initial, maxDelay time.Duration) *Linear {
	return &Linear{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * attempt, capped at Max.
func (l *Linear) Delay(attempt int) time.Duration {
	d := l.Initial * time.Duration(attempt)
	if l.Max > 0 && d > l.Max {
		return l.Max
	}
	return d
}

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential doubles the delay each attempt.
// Delay = min(Initial * 2^(attempt-1), Max).
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponential creates an exponential backoff strategy.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * 2^(attempt-1), capped at Max.
func (e *Exponential) Delay(attempt int) time.Duration {
	d := time.Duration(float64(e.Initial) * math.Pow(2, float64(attempt-1)))
	if e.Max > 0 && d > e.Max {
		return e.Max
	}
	return d
}

// ──────────────────────────────────────────────────
// ExponentialWithJitter (full jitter)
// ──────────────────────────────────────────────────

// ExponentialWithJitter applies full jitter to an exponential base.
// Delay = random value in [0, min(Initial * 2^(attempt-1), Max)].
type ExponentialWithJitter struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponentialWithJitter creates an exponential backoff with full jitter.
func NewExponentialWithJitter(initial, maxDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Initial: initial, Max: maxDelay}
}

// Delay returns a random duration in [0, min(Initial * 2^(attempt-1), Max)].
func (e *ExponentialWithJitter) Delay(attempt int) time.Duration {
	base := float64(e.Initial) * math.Pow(2, float64(attempt-1))
	if e.Max > 0 && base > float64(e.Max) {
		base = float64(e.Max)
	}
	return time.Duration(rand.Float64() * base) //nolint:gosec // jitter intentionally uses non-crypto rand
}

// ──────────────────────────────────────────────────
// Default & parsing
// ──────────────────────────────────────────────────

// DefaultStrategy returns the backoff used when a retry group asks for one
// without naming it: ExponentialWithJitter with 100ms initial and 10s max.
func DefaultStrategy() Strategy {
	return NewExponentialWithJitter(100*time.Millisecond, 10*time.Second)
}

// Parse builds a strategy from its textual form:
//
//	none
//	constant:<interval>
//	linear:<initial>[:<max>]
//	exponential:<initial>[:<max>]
//	jitter:<initial>[:<max>]
//
// Durations use time.ParseDuration syntax.
func Parse(s string) (Strategy, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	kind := strings.ToLower(parts[0])
	if kind == "" || kind == "none" {
		if len(parts) > 1 {
			return nil, fmt.Errorf("backoff: %q takes no arguments", kind)
		}
		return None{}, nil
	}

	durs := make([]time.Duration, 0, 2)
	for _, p := range parts[1:] {
		d, err := time.ParseDuration(p)
		if err != nil {
			return nil, fmt.Errorf("backoff: parse %q: %w", s, err)
		}
		durs = append(durs, d)
	}

	switch kind {
	case "constant":
		if len(durs) != 1 {
			return nil, fmt.Errorf("backoff: constant needs one interval, got %q", s)
		}
		return NewConstant(durs[0]), nil
	case "linear", "exponential", "jitter":
		if len(durs) < 1 || len(durs) > 2 {
			return nil, fmt.Errorf("backoff: %s needs an initial delay and optional max, got %q", kind, s)
		}
		var maxDelay time.Duration
		if len(durs) == 2 {
			maxDelay = durs[1]
		}
		switch kind {
		case "linear":
			return NewLinear(durs[0], maxDelay), nil
		case "exponential":
			return NewExponential(durs[0], maxDelay), nil
		default:
			return NewExponentialWithJitter(durs[0], maxDelay), nil
		}
	default:
		return nil, fmt.Errorf("backoff: unknown strategy %q", kind)
	}
}
