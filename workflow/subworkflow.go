package workflow

import (
	"log/slog"
)

// SubWorkflowStep runs another definition as a nested run.
type SubWorkflowStep struct {
	name  string
	child *Definition
}

// SubWorkflow runs child through the parent's runner, so it sees the same
// middleware and emitter. The child gets a fresh workflow id, the parent's
// correlation id and signal, and a copy of the parent's properties. When
// the child completes its properties are merged back into the parent.
// Any other outcome sets the parent's Aborted flag without faulting it.
func SubWorkflow(name string, child *Definition) *SubWorkflowStep {
	return &SubWorkflowStep{name: name, child: child}
}

// Definition returns the nested definition.
func (s *SubWorkflowStep) Definition() *Definition { return s.child }

func (s *SubWorkflowStep) Name() string { return s.name }
func (s *SubWorkflowStep) Kind() Kind   { return KindSubWorkflow }

func (s *SubWorkflowStep) Execute(wctx *Context) error {
	if s.child == nil {
		return nil
	}

	runner := wctx.st.runner
	if runner == nil {
		runner = NewRunner(NopEmitter{}, wctx.Logger())
	}

	child := wctx.newChild()
	res := runner.Execute(child, s.child, 0)

	if !res.Succeeded() {
		wctx.Logger().Warn("sub-workflow did not complete, aborting parent",
			slog.String("workflow_id", wctx.WorkflowID().String()),
			slog.String("child_workflow_id", child.WorkflowID().String()),
			slog.String("sub_workflow", s.child.Name),
			slog.String("status", res.Status.String()),
		)
		wctx.SetAborted(true)
		return nil
	}

	for k, v := range child.Properties() {
		wctx.Set(k, v)
	}
	return nil
}
