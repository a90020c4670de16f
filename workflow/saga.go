package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// compensationStack records top-level compensating steps in the order they
// succeeded.
type compensationStack struct {
	entries []CompensatingStep
}

func (s *compensationStack) push(step CompensatingStep) {
	s.entries = append(s.entries, step)
}

func (s *compensationStack) len() int { return len(s.entries) }

// unwind compensates every entry, most recent first. A failing entry does
// not stop the unwind; all failures are returned joined. Compensation runs
// on a signal that ignores the run's cancellation.
func (s *compensationStack) unwind(wctx *Context, emitter Emitter, logger *slog.Logger) error {
	view := wctx.WithContext(context.WithoutCancel(wctx.ctx))

	var errs []error
	for i := len(s.entries) - 1; i >= 0; i-- {
		step := s.entries[i]
		if err := compensate(view, step); err != nil {
			logger.Error("compensation failed",
				slog.String("workflow_id", wctx.WorkflowID().String()),
				slog.String("step", step.Name()),
				slog.String("error", err.Error()),
			)
			emitter.EmitCompensationFailed(view, step, err)
			errs = append(errs, fmt.Errorf("compensate %q: %w", step.Name(), err))
			continue
		}
		emitter.EmitStepCompensated(view, step)
	}
	s.entries = nil
	return errors.Join(errs...)
}

func compensate(wctx *Context, step CompensatingStep) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Step: step.Name(), Value: r, Stack: debug.Stack()}
		}
	}()
	return step.Compensate(wctx)
}
