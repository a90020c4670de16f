package workflow

import "time"

// Emitter receives lifecycle notifications from the runner. It is
// satisfied by ext.Registry; the interface lives here so the workflow
// package does not import ext.
//
// Step notifications are emitted for top-level steps only.
type Emitter interface {
	EmitWorkflowStarted(wctx *Context, def *Definition)
	EmitWorkflowCompleted(wctx *Context, def *Definition, elapsed time.Duration)
	EmitWorkflowFailed(wctx *Context, def *Definition, status Status, err error)
	EmitWorkflowAborted(wctx *Context, def *Definition)

	EmitStepStarted(wctx *Context, step Step)
	EmitStepCompleted(wctx *Context, step Step, elapsed time.Duration)
	EmitStepFailed(wctx *Context, step Step, err error)

	EmitStepCompensated(wctx *Context, step Step)
	EmitCompensationFailed(wctx *Context, step Step, err error)
}

// NopEmitter discards every notification.
type NopEmitter struct{}

var _ Emitter = NopEmitter{}

func (NopEmitter) EmitWorkflowStarted(*Context, *Definition)                  {}
func (NopEmitter) EmitWorkflowCompleted(*Context, *Definition, time.Duration) {}
func (NopEmitter) EmitWorkflowFailed(*Context, *Definition, Status, error)    {}
func (NopEmitter) EmitWorkflowAborted(*Context, *Definition)                  {}
func (NopEmitter) EmitStepStarted(*Context, Step)                             {}
func (NopEmitter) EmitStepCompleted(*Context, Step, time.Duration)            {}
func (NopEmitter) EmitStepFailed(*Context, Step, error)                       {}
func (NopEmitter) EmitStepCompensated(*Context, Step)                         {}
func (NopEmitter) EmitCompensationFailed(*Context, Step, error)               {}
