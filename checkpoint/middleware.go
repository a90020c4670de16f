package checkpoint

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/stepflow/workflow"
)

// Middleware returns a workflow middleware that saves a checkpoint after
// every successful top-level step. A failed save fails the step.
//
// Install it innermost so a checkpoint is written only once every other
// interceptor has accepted the step.
func Middleware(store Store, logger *slog.Logger) workflow.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(wctx *workflow.Context, step workflow.Step, next workflow.Handler) error {
		if err := next(wctx); err != nil {
			return err
		}
		if wctx.IsChild() {
			return nil
		}

		// The step already happened; record it even if the run is being cancelled.
		ctx := context.WithoutCancel(wctx.Context())
		idx := wctx.CurrentStepIndex()
		if err := store.Save(ctx, wctx.WorkflowID(), idx, wctx.Snapshot()); err != nil {
			logger.Error("checkpoint save failed",
				slog.String("workflow_id", wctx.WorkflowID().String()),
				slog.String("step", step.Name()),
				slog.Int("step_index", idx),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("checkpoint: save after step %q: %w", step.Name(), err)
		}

		logger.Debug("checkpoint saved",
			slog.String("workflow_id", wctx.WorkflowID().String()),
			slog.String("step", step.Name()),
			slog.Int("step_index", idx),
		)
		return nil
	}
}
