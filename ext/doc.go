// Package ext defines the extension system for stepflow.
//
// Extensions are notified of workflow lifecycle events and can react to
// them: recording metrics, emitting webhooks, writing audit logs.
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnStepCompleted(wctx *workflow.Context, step workflow.Step, elapsed time.Duration) error {
//	    log.Printf("%s: step %s completed in %s", wctx.WorkflowID(), step.Name(), elapsed)
//	    return nil
//	}
//
// # Workflow Lifecycle Hooks
//
//   - [WorkflowStarted]: a run began
//   - [WorkflowCompleted]: a run finished successfully
//   - [WorkflowFailed]: a run ended Faulted or Compensated
//   - [WorkflowAborted]: a step asked the run to halt
//
// # Step Lifecycle Hooks
//
//   - [StepStarted], [StepCompleted], [StepFailed]: top-level steps
//   - [StepCompensated], [CompensationFailed]: saga unwind
//
// # Other Hooks
//
//   - [Shutdown]: the engine is shutting down
//
// The [Registry] implements workflow.Emitter and fans out each event to
// all registered extensions that implement the corresponding hook
// interface. Hook errors and panics are logged and never reach the run.
package ext
