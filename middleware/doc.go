// Package middleware provides composable interceptors for workflow steps.
//
// A [Middleware] wraps the execution of one top-level step. Middleware are
// composed with [Chain] and installed on a runner with
// workflow.WithMiddleware. The first middleware in the list is the
// outermost wrapper.
//
//	// recover → logging → handler
//	chain := middleware.Chain(middleware.Recover(logger), middleware.Logging(logger))
//
// # Built-in Middleware
//
//   - [Logging] logs step name, index, duration and outcome
//   - [Recover] converts panics into *workflow.PanicError
//   - [Timeout] narrows the step's signal to a deadline
//   - [Tracing] wraps each step in an OpenTelemetry span
//   - [Metrics] records per-step duration and outcome counters
//   - [RateLimit] waits on a token bucket before each step
//   - [CircuitBreaker] short-circuits steps while a breaker is open
//   - [Audit] writes one audit event per step to an [AuditSink]
//   - [Idempotency] skips steps already marked done for the run
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(wctx *workflow.Context, step workflow.Step, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(wctx)
//	        // post-processing
//	        return err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting (e.g., circuit breaker, idempotency).
package middleware
