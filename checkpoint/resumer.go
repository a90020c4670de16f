package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/xraph/stepflow"
	"github.com/xraph/stepflow/id"
	"github.com/xraph/stepflow/workflow"
)

// Resumer runs workflows with checkpointing and resumes interrupted ones.
type Resumer struct {
	runner         *workflow.Runner
	store          Store
	logger         *slog.Logger
	clearOnSuccess bool
}

// ResumerOption configures a Resumer.
type ResumerOption func(*Resumer)

// WithClearOnSuccess makes Run remove the checkpoint after a fresh run
// completes. Resume always clears on success, and both always clear after
// a compensated run.
func WithClearOnSuccess(enabled bool) ResumerOption {
	return func(r *Resumer) { r.clearOnSuccess = enabled }
}

// NewResumer returns a Resumer whose runner is derived from runner with the
// checkpoint middleware appended as the innermost interceptor. The given
// runner is not modified.
func NewResumer(runner *workflow.Runner, store Store, logger *slog.Logger, opts ...ResumerOption) *Resumer {
	if logger == nil {
		logger = runner.Logger()
	}
	r := &Resumer{
		runner: runner.With(workflow.WithMiddleware(Middleware(store, logger))),
		store:  store,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Runner returns the checkpointing runner.
func (r *Resumer) Runner() *workflow.Runner { return r.runner }

// Store returns the checkpoint store.
func (r *Resumer) Store() Store { return r.store }

// Run starts a fresh checkpointed run of def.
func (r *Resumer) Run(ctx context.Context, def *workflow.Definition, opts ...workflow.RunOption) *workflow.Result {
	res := r.runner.Run(ctx, def, opts...)
	if (res.Succeeded() && r.clearOnSuccess) || rolledBack(res) {
		r.clear(ctx, res.WorkflowID())
	}
	return res
}

// Resume continues the run identified by workflowID.
//
// Without a checkpoint the workflow runs from the first step under that
// id. A checkpoint at the last step means the run already finished; its
// properties are restored and a completed result is returned without
// executing anything. Otherwise the saved properties are restored and
// execution continues at the step after the checkpoint. The checkpoint is
// removed once the run completes or is compensated; after a rollback the
// recorded progress no longer holds, so the next Resume starts over.
//
// The returned error reports store failures only; workflow failures are
// carried by the result.
func (r *Resumer) Resume(ctx context.Context, def *workflow.Definition, workflowID id.ID, opts ...workflow.RunOption) (*workflow.Result, error) {
	if workflowID.IsNil() {
		return nil, fmt.Errorf("checkpoint: resume: %w", stepflow.ErrCheckpointNotFound)
	}
	cp, err := r.store.Load(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: load %s: %w", workflowID, err)
	}

	opts = append(opts, workflow.WithWorkflowID(workflowID))
	wctx := r.runner.NewContext(ctx, opts...)

	var res *workflow.Result
	switch {
	case cp == nil:
		r.logger.Info("no checkpoint found, starting from the first step",
			slog.String("workflow_id", workflowID.String()),
			slog.String("workflow", defName(def)),
		)
		res = r.runner.Execute(wctx, def, 0)

	case def != nil && cp.StepIndex >= def.LastIndex():
		restore(wctx, cp)
		r.logger.Info("checkpoint is at the last step, nothing to resume",
			slog.String("workflow_id", workflowID.String()),
			slog.String("workflow", def.Name),
		)
		res = &workflow.Result{Status: workflow.StatusCompleted, Context: wctx}

	default:
		restore(wctx, cp)
		from := cp.StepIndex + 1
		r.logger.Info("resuming workflow",
			slog.String("workflow_id", workflowID.String()),
			slog.String("workflow", defName(def)),
			slog.Int("from_step", from),
		)
		res = r.runner.Execute(wctx, def, from)
	}

	if res.Succeeded() || rolledBack(res) {
		if err := r.store.Clear(context.WithoutCancel(ctx), workflowID); err != nil {
			return res, fmt.Errorf("checkpoint: clear %s: %w", workflowID, err)
		}
	}
	return res, nil
}

// Inspect returns the stored checkpoint for workflowID.
func (r *Resumer) Inspect(ctx context.Context, workflowID id.ID) (*Checkpoint, error) {
	cp, err := r.store.Load(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: load %s: %w", workflowID, err)
	}
	if cp == nil {
		return nil, fmt.Errorf("checkpoint: %s: %w", workflowID, stepflow.ErrCheckpointNotFound)
	}
	return cp, nil
}

// Pending lists the checkpoints of runs that have not completed. The store
// must implement Lister.
func (r *Resumer) Pending(ctx context.Context, opts ListOpts) ([]*Checkpoint, error) {
	l, ok := r.store.(Lister)
	if !ok {
		return nil, fmt.Errorf("checkpoint: store %T cannot list checkpoints", r.store)
	}
	cps, err := l.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: list: %w", err)
	}
	return cps, nil
}

func (r *Resumer) clear(ctx context.Context, workflowID id.ID) {
	if err := r.store.Clear(context.WithoutCancel(ctx), workflowID); err != nil {
		r.logger.Warn("checkpoint clear failed",
			slog.String("workflow_id", workflowID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// rolledBack reports whether the saga undid the steps the checkpoint
// records as done.
func rolledBack(res *workflow.Result) bool {
	return res.Status == workflow.StatusCompensated
}

// restore layers the checkpointed properties over any seeded by run options.
func restore(wctx *workflow.Context, cp *Checkpoint) {
	props := wctx.Properties()
	maps.Copy(props, cp.Properties)
	wctx.Restore(props)
}

func defName(def *workflow.Definition) string {
	if def == nil {
		return ""
	}
	return def.Name
}
