package middleware

import (
	"log/slog"

	"github.com/xraph/stepflow/workflow"
)

// Handler is the remainder of the chain for one step.
type Handler = workflow.Handler

// Middleware wraps a Handler with cross-cutting logic. It receives the
// run's context, the step being executed and the next handler.
type Middleware = workflow.Middleware

// Chain composes multiple middleware into a single Middleware. The first
// middleware in the list is the outermost wrapper.
//
// Example: Chain(recover, logging, tracing) executes as:
//
//	recover → logging → tracing → handler
func Chain(mws ...Middleware) Middleware {
	return workflow.Chain(mws...)
}

// stepAttrs are the log attributes shared by every middleware.
func stepAttrs(wctx *workflow.Context, step workflow.Step) []any {
	return []any{
		slog.String("workflow_id", wctx.WorkflowID().String()),
		slog.String("step", step.Name()),
		slog.Int("step_index", wctx.CurrentStepIndex()),
	}
}
