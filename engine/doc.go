// Package engine wires all stepflow subsystems together and provides
// the primary application-level API for registering and running workflows.
//
// # Building an Engine
//
//	rt, err := stepflow.New(
//	    stepflow.WithCheckpointStore(pgStore),
//	    stepflow.WithStepTimeout(30*time.Second),
//	)
//
//	eng, err := engine.Build(rt,
//	    engine.WithExtension(myExtension),
//	    engine.WithMiddleware(middleware.RateLimit(limiter)),
//	    engine.WithIdempotency(24*time.Hour),
//	    engine.WithMetricsRegisterer(prometheus.DefaultRegisterer),
//	)
//
// # Middleware Order
//
// Every top-level step passes through, outermost first:
//
//	Recover → Logging → Tracing → Metrics → user middleware → Idempotency → Checkpoint
//
// Checkpointing is innermost, so a checkpoint records a step only once the
// step and every other middleware succeeded.
//
// # Running and Resuming
//
//	eng.RegisterDefinition(processOrder)
//	res, err := eng.RunNamed(ctx, "process-order")
//
//	// After a crash or a failed step:
//	res, err = eng.ResumeNamed(ctx, "process-order", res.WorkflowID())
//
// # Options
//
//   - [WithExtension] — register a lifecycle extension
//   - [WithMiddleware] — add middleware to the execution chain
//   - [WithIdempotency] — skip steps already completed for a workflow id
//   - [WithMetricsRegisterer] — export lifecycle metrics to Prometheus
//   - [WithTracerProvider] — set the OpenTelemetry tracer provider
//   - [WithMeterProvider] — set the OpenTelemetry meter provider
package engine
