package middleware

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/stepflow/workflow"
)

// tracerName is the instrumentation scope name for stepflow tracing.
const tracerName = "github.com/xraph/stepflow"

// Tracing returns middleware that wraps step execution in an OpenTelemetry
// span. If no TracerProvider is configured globally, the default noop
// tracer is used and this middleware becomes a pass-through.
//
// Span attributes include: stepflow.workflow.id, stepflow.correlation_id,
// stepflow.step.name, stepflow.step.kind, stepflow.step.index.
// On error, the span status is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(wctx *workflow.Context, step workflow.Step, next Handler) error {
		ctx, span := tracer.Start(wctx.Context(), "stepflow.step.execute",
			trace.WithAttributes(
				attribute.String("stepflow.workflow.id", wctx.WorkflowID().String()),
				attribute.String("stepflow.correlation_id", wctx.CorrelationID()),
				attribute.String("stepflow.step.name", step.Name()),
				attribute.String("stepflow.step.kind", workflow.KindOf(step).String()),
				attribute.Int("stepflow.step.index", wctx.CurrentStepIndex()),
				attribute.Bool("stepflow.subworkflow", wctx.IsChild()),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(wctx.WithContext(ctx))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		if wctx.Aborted() {
			span.SetAttributes(attribute.Bool("stepflow.aborted", true))
		}

		return err
	}
}
