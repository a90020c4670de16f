package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/stepflow/workflow"
)

// IdempotencyStore remembers which steps of which runs have completed.
type IdempotencyStore interface {
	// Seen reports whether key has been marked.
	Seen(ctx context.Context, key string) (bool, error)
	// Mark records key. A non-positive ttl keeps it indefinitely.
	Mark(ctx context.Context, key string, ttl time.Duration) error
	// Forget removes key. Forgetting an unknown key is not an error.
	Forget(ctx context.Context, key string) error
}

// IdempotencyKey returns the key under which a step of a run is marked.
func IdempotencyKey(wctx *workflow.Context, step workflow.Step) string {
	return wctx.WorkflowID().String() + ":" + step.Name()
}

// Idempotency returns middleware that skips steps already marked done for
// the current workflow id and marks steps that succeed. A failure to read
// the store fails the step; a failure to mark it is logged.
func Idempotency(store IdempotencyStore, ttl time.Duration, logger *slog.Logger) Middleware {
	return func(wctx *workflow.Context, step workflow.Step, next Handler) error {
		key := IdempotencyKey(wctx, step)
		seen, err := store.Seen(wctx.Context(), key)
		if err != nil {
			return fmt.Errorf("middleware: idempotency lookup %q: %w", key, err)
		}
		if seen {
			logger.Info("step already completed, skipping", stepAttrs(wctx, step)...)
			return nil
		}

		if err := next(wctx); err != nil {
			return err
		}

		if err := store.Mark(context.WithoutCancel(wctx.Context()), key, ttl); err != nil {
			logger.Warn("idempotency mark failed", append(stepAttrs(wctx, step),
				slog.String("error", err.Error()),
			)...)
		}
		return nil
	}
}

// IdempotencyRelease is a lifecycle extension that forgets the mark of a
// step once its compensation has run, so a later run under the same
// workflow id executes the step again instead of skipping it.
type IdempotencyRelease struct {
	store IdempotencyStore
}

// NewIdempotencyRelease returns the extension for store.
func NewIdempotencyRelease(store IdempotencyStore) *IdempotencyRelease {
	return &IdempotencyRelease{store: store}
}

func (r *IdempotencyRelease) Name() string { return "idempotency-release" }

// OnStepCompensated forgets the compensated step. When the store fails the
// mark outlives the rollback until its ttl expires.
func (r *IdempotencyRelease) OnStepCompensated(wctx *workflow.Context, step workflow.Step) error {
	key := IdempotencyKey(wctx, step)
	if err := r.store.Forget(context.WithoutCancel(wctx.Context()), key); err != nil {
		return fmt.Errorf("middleware: idempotency forget %q: %w", key, err)
	}
	return nil
}
