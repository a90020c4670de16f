package ext

import (
	"context"
	"time"

	"github.com/xraph/stepflow/workflow"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Workflow lifecycle hooks
// ──────────────────────────────────────────────────

// WorkflowStarted is called when a run begins.
type WorkflowStarted interface {
	OnWorkflowStarted(wctx *workflow.Context, def *workflow.Definition) error
}

// WorkflowCompleted is called after a run finishes successfully.
type WorkflowCompleted interface {
	OnWorkflowCompleted(wctx *workflow.Context, def *workflow.Definition, elapsed time.Duration) error
}

// WorkflowFailed is called when a run ends Faulted or Compensated.
type WorkflowFailed interface {
	OnWorkflowFailed(wctx *workflow.Context, def *workflow.Definition, status workflow.Status, err error) error
}

// WorkflowAborted is called when a run halts because a step aborted it.
type WorkflowAborted interface {
	OnWorkflowAborted(wctx *workflow.Context, def *workflow.Definition) error
}

// ──────────────────────────────────────────────────
// Step lifecycle hooks
// ──────────────────────────────────────────────────

// StepStarted is called before a top-level step executes.
type StepStarted interface {
	OnStepStarted(wctx *workflow.Context, step workflow.Step) error
}

// StepCompleted is called after a top-level step succeeds.
type StepCompleted interface {
	OnStepCompleted(wctx *workflow.Context, step workflow.Step, elapsed time.Duration) error
}

// StepFailed is called when a top-level step fails.
type StepFailed interface {
	OnStepFailed(wctx *workflow.Context, step workflow.Step, err error) error
}

// StepCompensated is called after a step's compensation succeeds.
type StepCompensated interface {
	OnStepCompensated(wctx *workflow.Context, step workflow.Step) error
}

// CompensationFailed is called when a step's compensation fails.
type CompensationFailed interface {
	OnCompensationFailed(wctx *workflow.Context, step workflow.Step, err error) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
