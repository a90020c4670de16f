package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionWorkflowStarted    = "workflow.started"
	ActionWorkflowCompleted  = "workflow.completed"
	ActionWorkflowFailed     = "workflow.failed"
	ActionWorkflowAborted    = "workflow.aborted"
	ActionStepCompleted      = "step.completed"
	ActionStepFailed         = "step.failed"
	ActionStepCompensated    = "step.compensated"
	ActionCompensationFailed = "step.compensation_failed"
)

// Audit event categories group related actions.
const (
	CategoryWorkflow     = "stepflow.workflow"
	CategoryStep         = "stepflow.step"
	CategoryCompensation = "stepflow.compensation"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceWorkflow = "workflow_run"
	ResourceStep     = "step"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionWorkflowStarted,
		ActionWorkflowCompleted,
		ActionWorkflowFailed,
		ActionWorkflowAborted,
		ActionStepCompleted,
		ActionStepFailed,
		ActionStepCompensated,
		ActionCompensationFailed,
	}
}
