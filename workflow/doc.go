// Package workflow is the step-composition interpreter: the execution
// context, the step contracts, the composite step library, the middleware
// chain, the runner and the compensation stack.
//
// # Defining a Workflow
//
//	def := workflow.NewBuilder("process_order").
//	    Then("validate", validateOrder).
//	    Step(workflow.Compensable("charge", chargeCard, refundCard)).
//	    Step(workflow.RetryGroup("fulfill", 3,
//	        workflow.Action("ship", shipOrder),
//	    )).
//	    WithCompensation().
//	    Build()
//
//	res := workflow.NewRunner(workflow.NopEmitter{}, logger).Run(ctx, def)
//
// # Composite Steps
//
// Every composite is itself a Step, so they nest freely:
//
//   - [Sequence] runs steps in order
//   - [Conditional] picks a branch with a predicate
//   - [Parallel] fans out to concurrent children and waits for all of them
//   - [ForEach], [While] and [DoWhile] loop over a body
//   - [RetryGroup] re-runs a body until it succeeds or the budget is spent
//   - [TryCatchFinally] routes failures to handlers and always runs finally
//   - [SubWorkflow] runs another definition with a copy of the properties
//   - [Delay] and [Timeout] deal with time
//
// Loop and retry bookkeeping is written into the property map under
// [KeyCurrentItem], [KeyCurrentIndex], [KeyLoopIteration] and
// [KeyRetryAttempt].
//
// # Outcomes
//
// A run always yields a [Result]:
//
//	Completed    every step succeeded
//	Faulted      a step failed; an error record was appended
//	Aborted      a step set the Aborted flag; no error record
//	Compensated  a step failed and the saga stack was unwound
package workflow
