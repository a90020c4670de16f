package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/stepflow/id"
	"github.com/xraph/stepflow/workflow"
)

// Audit outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuditEvent describes one step execution.
type AuditEvent struct {
	ID            id.ID         `json:"id"`
	WorkflowID    id.ID         `json:"workflow_id"`
	CorrelationID string        `json:"correlation_id"`
	Step          string        `json:"step"`
	Kind          string        `json:"kind"`
	StepIndex     int           `json:"step_index"`
	Outcome       string        `json:"outcome"`
	Error         string        `json:"error,omitempty"`
	Aborted       bool          `json:"aborted,omitempty"`
	Elapsed       time.Duration `json:"elapsed"`
	At            time.Time     `json:"at"`
}

// AuditSink receives audit events.
type AuditSink interface {
	Record(ctx context.Context, evt *AuditEvent) error
}

// AuditSinkFunc adapts a function to AuditSink.
type AuditSinkFunc func(ctx context.Context, evt *AuditEvent) error

// Record implements AuditSink.
func (f AuditSinkFunc) Record(ctx context.Context, evt *AuditEvent) error { return f(ctx, evt) }

// Audit returns middleware that records an AuditEvent after every step.
// Sink errors are logged and never fail the step.
func Audit(sink AuditSink, logger *slog.Logger) Middleware {
	return func(wctx *workflow.Context, step workflow.Step, next Handler) error {
		start := time.Now()
		err := next(wctx)

		evt := &AuditEvent{
			ID:            id.NewAuditID(),
			WorkflowID:    wctx.WorkflowID(),
			CorrelationID: wctx.CorrelationID(),
			Step:          step.Name(),
			Kind:          workflow.KindOf(step).String(),
			StepIndex:     wctx.CurrentStepIndex(),
			Outcome:       OutcomeSuccess,
			Aborted:       wctx.Aborted(),
			Elapsed:       time.Since(start),
			At:            time.Now().UTC(),
		}
		if err != nil {
			evt.Outcome = OutcomeFailure
			evt.Error = err.Error()
		}

		if recErr := sink.Record(context.WithoutCancel(wctx.Context()), evt); recErr != nil {
			logger.Warn("audit record failed", append(stepAttrs(wctx, step),
				slog.String("error", recErr.Error()),
			)...)
		}
		return err
	}
}

// MemoryAuditSink keeps audit events in memory.
type MemoryAuditSink struct {
	mu     sync.Mutex
	events []*AuditEvent
}

// NewMemoryAuditSink returns an empty MemoryAuditSink.
func NewMemoryAuditSink() *MemoryAuditSink { return &MemoryAuditSink{} }

// Record implements AuditSink.
func (s *MemoryAuditSink) Record(_ context.Context, evt *AuditEvent) error {
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
	return nil
}

// Events returns the recorded events in order.
func (s *MemoryAuditSink) Events() []*AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}

// ForWorkflow returns the events recorded for one run.
func (s *MemoryAuditSink) ForWorkflow(workflowID id.ID) []*AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*AuditEvent
	for _, e := range s.events {
		if e.WorkflowID.String() == workflowID.String() {
			out = append(out, e)
		}
	}
	return out
}
