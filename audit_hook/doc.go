// Package audithook is a stepflow extension that bridges lifecycle events
// to an immutable audit trail backend.
//
// Every workflow, step and compensation hook emits a structured audit event
// through the [Recorder] interface. The extension assigns severity levels
// (info for normal progress, warning for step failures, aborts and
// successful rollbacks, critical for faulted runs and failed compensations)
// and metadata such as the workflow name, correlation id, step index,
// elapsed time and error.
//
// Step-level middleware.Audit records one event per step execution with
// timing; this extension records the run's narrative, including
// compensation, which middleware never sees.
//
// # Usage
//
//	eng, _ := engine.Build(rt,
//	    engine.WithExtension(audithook.New(audithook.RecorderFunc(
//	        func(ctx context.Context, evt *audithook.AuditEvent) error {
//	            return auditLog.Append(ctx, evt)
//	        },
//	    ))),
//	)
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionWorkflowFailed,
//	        audithook.ActionCompensationFailed,
//	    ),
//	)
package audithook
