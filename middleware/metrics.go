package middleware

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/stepflow/workflow"
)

// meterName is the instrumentation scope name for stepflow metrics.
const meterName = "github.com/xraph/stepflow"

// Step outcome values of the "status" metric attribute.
const (
	statusOK      = "ok"
	statusError   = "error"
	statusAborted = "aborted"
)

// Metrics records per-step metrics with the global MeterProvider, which is
// a noop until one is installed.
//
// Both instruments carry step_name, step_kind and status. Status is "error"
// when the step failed, "aborted" when it succeeded but halted the run and
// "ok" otherwise.
//   - stepflow.step.duration: Float64Histogram, seconds
//   - stepflow.step.executions: Int64Counter
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Instrument errors still return usable noop instruments.
	duration, _ := meter.Float64Histogram(
		"stepflow.step.duration",
		metric.WithDescription("Duration of step execution in seconds"),
		metric.WithUnit("s"),
	)
	executions, _ := meter.Int64Counter(
		"stepflow.step.executions",
		metric.WithDescription("Total number of step executions"),
		metric.WithUnit("{execution}"),
	)

	return func(wctx *workflow.Context, step workflow.Step, next Handler) error {
		start := time.Now()
		err := next(wctx)
		elapsed := time.Since(start).Seconds()

		status := statusOK
		switch {
		case err != nil:
			status = statusError
		case wctx.Aborted():
			status = statusAborted
		}

		attrs := metric.WithAttributes(
			attribute.String("step_name", step.Name()),
			attribute.String("step_kind", workflow.KindOf(step).String()),
			attribute.String("status", status),
		)

		ctx := wctx.Context()
		duration.Record(ctx, elapsed, attrs)
		executions.Add(ctx, 1, attrs)

		return err
	}
}
