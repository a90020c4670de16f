// Package stepflow provides an embeddable workflow orchestration runtime
// for Go. Workflows are ordered lists of steps composed with control-flow
// combinators (branch, parallel fan-out, loops, retry groups,
// try/catch/finally, sub-workflows, delays and timeouts) that share one
// mutable execution context.
//
// stepflow is designed as a library, not a service. Build a definition,
// hand it to a runner, and get back a result with one of four statuses:
// Completed, Faulted, Aborted or Compensated.
//
// # Quick Start
//
//	rt, err := stepflow.New(
//	    stepflow.WithCheckpointStore(memory.New()),
//	    stepflow.WithLogger(logger),
//	)
//
//	eng, err := engine.Build(rt,
//	    engine.WithMiddleware(middleware.Tracing()),
//	)
//
//	def := workflow.NewBuilder("order").
//	    Step(workflow.Action("validate", validate)).
//	    Step(workflow.RetryGroup("charge", 3, chargeCard)).
//	    Build()
//
//	res := eng.Run(ctx, def)
//
// # Architecture
//
// The root package holds configuration, sentinel errors and the Runtime.
// The workflow package is the interpreter: context, step contracts,
// composite steps, the middleware chain, the runner and the saga stack.
// The checkpoint package persists progress after each top-level step and
// resumes the unfinished suffix. Storage backends live under store/.
//
// All entity IDs use TypeID: type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package stepflow
