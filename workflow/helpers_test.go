package workflow_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/stepflow/workflow"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRunner(opts ...workflow.RunnerOption) *workflow.Runner {
	return workflow.NewRunner(workflow.NopEmitter{}, testLogger(), opts...)
}

func run(def *workflow.Definition, opts ...workflow.RunnerOption) *workflow.Result {
	return newTestRunner(opts...).Run(context.Background(), def)
}

// effects is a concurrency-safe side-effect log.
type effects struct {
	mu   sync.Mutex
	list []string
}

func (e *effects) add(s string) {
	e.mu.Lock()
	e.list = append(e.list, s)
	e.mu.Unlock()
}

func (e *effects) get() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.list...)
}

// record returns an action that appends name to the log.
func (e *effects) record(name string) *workflow.ActionStep {
	return workflow.Action(name, func(*workflow.Context) error {
		e.add(name)
		return nil
	})
}

func fail(name string, err error) *workflow.ActionStep {
	return workflow.Action(name, func(*workflow.Context) error { return err })
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// recordingEmitter captures lifecycle notifications as strings.
type recordingEmitter struct {
	effects
}

func (r *recordingEmitter) EmitWorkflowStarted(_ *workflow.Context, def *workflow.Definition) {
	r.add("workflow.started:" + def.Name)
}

func (r *recordingEmitter) EmitWorkflowCompleted(_ *workflow.Context, def *workflow.Definition, _ time.Duration) {
	r.add("workflow.completed:" + def.Name)
}

func (r *recordingEmitter) EmitWorkflowFailed(_ *workflow.Context, def *workflow.Definition, status workflow.Status, _ error) {
	name := ""
	if def != nil {
		name = def.Name
	}
	r.add(fmt.Sprintf("workflow.failed:%s:%s", name, status))
}

func (r *recordingEmitter) EmitWorkflowAborted(_ *workflow.Context, def *workflow.Definition) {
	r.add("workflow.aborted:" + def.Name)
}

func (r *recordingEmitter) EmitStepStarted(_ *workflow.Context, step workflow.Step) {
	r.add("step.started:" + step.Name())
}

func (r *recordingEmitter) EmitStepCompleted(_ *workflow.Context, step workflow.Step, _ time.Duration) {
	r.add("step.completed:" + step.Name())
}

func (r *recordingEmitter) EmitStepFailed(_ *workflow.Context, step workflow.Step, _ error) {
	r.add("step.failed:" + step.Name())
}

func (r *recordingEmitter) EmitStepCompensated(_ *workflow.Context, step workflow.Step) {
	r.add("step.compensated:" + step.Name())
}

func (r *recordingEmitter) EmitCompensationFailed(_ *workflow.Context, step workflow.Step, _ error) {
	r.add("compensation.failed:" + step.Name())
}
