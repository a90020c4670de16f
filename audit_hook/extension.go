package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/stepflow/ext"
	"github.com/xraph/stepflow/workflow"
)

// Compile-time interface checks.
var (
	_ ext.Extension          = (*Extension)(nil)
	_ ext.WorkflowStarted    = (*Extension)(nil)
	_ ext.WorkflowCompleted  = (*Extension)(nil)
	_ ext.WorkflowFailed     = (*Extension)(nil)
	_ ext.WorkflowAborted    = (*Extension)(nil)
	_ ext.StepCompleted      = (*Extension)(nil)
	_ ext.StepFailed         = (*Extension)(nil)
	_ ext.StepCompensated    = (*Extension)(nil)
	_ ext.CompensationFailed = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a backend-neutral audit record.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
	At         time.Time      `json:"at"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges stepflow lifecycle events to an audit trail backend.
// Each lifecycle hook emits a structured audit event through the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Workflow lifecycle hooks ────────────────────────

// OnWorkflowStarted implements ext.WorkflowStarted.
func (e *Extension) OnWorkflowStarted(wctx *workflow.Context, def *workflow.Definition) error {
	return e.record(wctx, ActionWorkflowStarted, SeverityInfo, OutcomeSuccess,
		ResourceWorkflow, CategoryWorkflow, nil,
		"workflow_name", defName(def),
		"workflow_version", defVersion(def),
	)
}

// OnWorkflowCompleted implements ext.WorkflowCompleted.
func (e *Extension) OnWorkflowCompleted(wctx *workflow.Context, def *workflow.Definition, elapsed time.Duration) error {
	return e.record(wctx, ActionWorkflowCompleted, SeverityInfo, OutcomeSuccess,
		ResourceWorkflow, CategoryWorkflow, nil,
		"workflow_name", defName(def),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnWorkflowFailed implements ext.WorkflowFailed. A compensated run rolled
// back cleanly and is a warning; a faulted run is critical.
func (e *Extension) OnWorkflowFailed(wctx *workflow.Context, def *workflow.Definition, status workflow.Status, runErr error) error {
	severity := SeverityCritical
	if status == workflow.StatusCompensated {
		severity = SeverityWarning
	}
	return e.record(wctx, ActionWorkflowFailed, severity, OutcomeFailure,
		ResourceWorkflow, CategoryWorkflow, runErr,
		"workflow_name", defName(def),
		"status", status.String(),
		"failed_step", wctx.CurrentStepName(),
	)
}

// OnWorkflowAborted implements ext.WorkflowAborted.
func (e *Extension) OnWorkflowAborted(wctx *workflow.Context, def *workflow.Definition) error {
	return e.record(wctx, ActionWorkflowAborted, SeverityWarning, OutcomeSuccess,
		ResourceWorkflow, CategoryWorkflow, nil,
		"workflow_name", defName(def),
		"aborted_at", wctx.CurrentStepName(),
	)
}

// ── Step lifecycle hooks ────────────────────────────

// OnStepCompleted implements ext.StepCompleted.
func (e *Extension) OnStepCompleted(wctx *workflow.Context, step workflow.Step, elapsed time.Duration) error {
	return e.record(wctx, ActionStepCompleted, SeverityInfo, OutcomeSuccess,
		ResourceStep, CategoryStep, nil,
		"step_name", step.Name(),
		"step_kind", workflow.KindOf(step).String(),
		"step_index", wctx.CurrentStepIndex(),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnStepFailed implements ext.StepFailed.
func (e *Extension) OnStepFailed(wctx *workflow.Context, step workflow.Step, stepErr error) error {
	return e.record(wctx, ActionStepFailed, SeverityWarning, OutcomeFailure,
		ResourceStep, CategoryStep, stepErr,
		"step_name", step.Name(),
		"step_kind", workflow.KindOf(step).String(),
		"step_index", wctx.CurrentStepIndex(),
	)
}

// ── Compensation hooks ──────────────────────────────

// OnStepCompensated implements ext.StepCompensated.
func (e *Extension) OnStepCompensated(wctx *workflow.Context, step workflow.Step) error {
	return e.record(wctx, ActionStepCompensated, SeverityWarning, OutcomeSuccess,
		ResourceStep, CategoryCompensation, nil,
		"step_name", step.Name(),
	)
}

// OnCompensationFailed implements ext.CompensationFailed.
func (e *Extension) OnCompensationFailed(wctx *workflow.Context, step workflow.Step, compErr error) error {
	return e.record(wctx, ActionCompensationFailed, SeverityCritical, OutcomeFailure,
		ResourceStep, CategoryCompensation, compErr,
		"step_name", step.Name(),
	)
}

// ── Internal helpers ────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
// Recorder failures are logged, never returned, so auditing cannot fail a run.
func (e *Extension) record(
	wctx *workflow.Context,
	action, severity, outcome string,
	resource, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}
	meta["correlation_id"] = wctx.CorrelationID()
	if wctx.IsChild() {
		meta["subworkflow"] = true
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	resourceID := wctx.WorkflowID().String()
	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
		At:         time.Now().UTC(),
	}

	// Runs that end by cancellation still get their audit trail.
	ctx := context.WithoutCancel(wctx.Context())
	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

func defName(def *workflow.Definition) string {
	if def == nil {
		return ""
	}
	return def.Name
}

func defVersion(def *workflow.Definition) int {
	if def == nil {
		return 0
	}
	return def.Version
}
