package ext

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/stepflow/workflow"
)

var _ workflow.Emitter = (*Registry)(nil)

// entry pairs a hook implementation with the extension name captured at
// registration time.
type entry[H any] struct {
	name string
	hook H
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
//
// Register extensions before the first run; Register is not safe to call
// concurrently with the emit methods.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	workflowStarted    []entry[WorkflowStarted]
	workflowCompleted  []entry[WorkflowCompleted]
	workflowFailed     []entry[WorkflowFailed]
	workflowAborted    []entry[WorkflowAborted]
	stepStarted        []entry[StepStarted]
	stepCompleted      []entry[StepCompleted]
	stepFailed         []entry[StepFailed]
	stepCompensated    []entry[StepCompensated]
	compensationFailed []entry[CompensationFailed]
	shutdown           []entry[Shutdown]
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(WorkflowStarted); ok {
		r.workflowStarted = append(r.workflowStarted, entry[WorkflowStarted]{name, h})
	}
	if h, ok := e.(WorkflowCompleted); ok {
		r.workflowCompleted = append(r.workflowCompleted, entry[WorkflowCompleted]{name, h})
	}
	if h, ok := e.(WorkflowFailed); ok {
		r.workflowFailed = append(r.workflowFailed, entry[WorkflowFailed]{name, h})
	}
	if h, ok := e.(WorkflowAborted); ok {
		r.workflowAborted = append(r.workflowAborted, entry[WorkflowAborted]{name, h})
	}
	if h, ok := e.(StepStarted); ok {
		r.stepStarted = append(r.stepStarted, entry[StepStarted]{name, h})
	}
	if h, ok := e.(StepCompleted); ok {
		r.stepCompleted = append(r.stepCompleted, entry[StepCompleted]{name, h})
	}
	if h, ok := e.(StepFailed); ok {
		r.stepFailed = append(r.stepFailed, entry[StepFailed]{name, h})
	}
	if h, ok := e.(StepCompensated); ok {
		r.stepCompensated = append(r.stepCompensated, entry[StepCompensated]{name, h})
	}
	if h, ok := e.(CompensationFailed); ok {
		r.compensationFailed = append(r.compensationFailed, entry[CompensationFailed]{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, entry[Shutdown]{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Workflow event emitters
// ──────────────────────────────────────────────────

// EmitWorkflowStarted notifies all extensions that implement WorkflowStarted.
func (r *Registry) EmitWorkflowStarted(wctx *workflow.Context, def *workflow.Definition) {
	for _, e := range r.workflowStarted {
		r.call("OnWorkflowStarted", e.name, func() error { return e.hook.OnWorkflowStarted(wctx, def) })
	}
}

// EmitWorkflowCompleted notifies all extensions that implement WorkflowCompleted.
func (r *Registry) EmitWorkflowCompleted(wctx *workflow.Context, def *workflow.Definition, elapsed time.Duration) {
	for _, e := range r.workflowCompleted {
		r.call("OnWorkflowCompleted", e.name, func() error { return e.hook.OnWorkflowCompleted(wctx, def, elapsed) })
	}
}

// EmitWorkflowFailed notifies all extensions that implement WorkflowFailed.
func (r *Registry) EmitWorkflowFailed(wctx *workflow.Context, def *workflow.Definition, status workflow.Status, runErr error) {
	for _, e := range r.workflowFailed {
		r.call("OnWorkflowFailed", e.name, func() error { return e.hook.OnWorkflowFailed(wctx, def, status, runErr) })
	}
}

// EmitWorkflowAborted notifies all extensions that implement WorkflowAborted.
func (r *Registry) EmitWorkflowAborted(wctx *workflow.Context, def *workflow.Definition) {
	for _, e := range r.workflowAborted {
		r.call("OnWorkflowAborted", e.name, func() error { return e.hook.OnWorkflowAborted(wctx, def) })
	}
}

// ──────────────────────────────────────────────────
// Step event emitters
// ──────────────────────────────────────────────────

// EmitStepStarted notifies all extensions that implement StepStarted.
func (r *Registry) EmitStepStarted(wctx *workflow.Context, step workflow.Step) {
	for _, e := range r.stepStarted {
		r.call("OnStepStarted", e.name, func() error { return e.hook.OnStepStarted(wctx, step) })
	}
}

// EmitStepCompleted notifies all extensions that implement StepCompleted.
func (r *Registry) EmitStepCompleted(wctx *workflow.Context, step workflow.Step, elapsed time.Duration) {
	for _, e := range r.stepCompleted {
		r.call("OnStepCompleted", e.name, func() error { return e.hook.OnStepCompleted(wctx, step, elapsed) })
	}
}

// EmitStepFailed notifies all extensions that implement StepFailed.
func (r *Registry) EmitStepFailed(wctx *workflow.Context, step workflow.Step, stepErr error) {
	for _, e := range r.stepFailed {
		r.call("OnStepFailed", e.name, func() error { return e.hook.OnStepFailed(wctx, step, stepErr) })
	}
}

// EmitStepCompensated notifies all extensions that implement StepCompensated.
func (r *Registry) EmitStepCompensated(wctx *workflow.Context, step workflow.Step) {
	for _, e := range r.stepCompensated {
		r.call("OnStepCompensated", e.name, func() error { return e.hook.OnStepCompensated(wctx, step) })
	}
}

// EmitCompensationFailed notifies all extensions that implement CompensationFailed.
func (r *Registry) EmitCompensationFailed(wctx *workflow.Context, step workflow.Step, compErr error) {
	for _, e := range r.compensationFailed {
		r.call("OnCompensationFailed", e.name, func() error { return e.hook.OnCompensationFailed(wctx, step, compErr) })
	}
}

// ──────────────────────────────────────────────────
// Other event emitters
// ──────────────────────────────────────────────────

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		r.call("OnShutdown", e.name, func() error { return e.hook.OnShutdown(ctx) })
	}
}

// call invokes one hook. Errors and panics are logged, never propagated.
func (r *Registry) call(hook, extName string, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			r.logHookError(hook, extName, fmt.Errorf("panic: %v", p))
		}
	}()
	if err := fn(); err != nil {
		r.logHookError(hook, extName, err)
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
