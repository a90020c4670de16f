package workflow_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/xraph/stepflow"
	"github.com/xraph/stepflow/workflow"
)

func versioned(name string, version int) *workflow.Definition {
	return workflow.NewBuilder(name).Version(version).Step(workflow.Action("s", nil)).Build()
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := workflow.NewRegistry()
	if err := r.Register(versioned("process-order", 1)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	def, ok := r.Get("process-order")
	if !ok {
		t.Fatal("expected definition to be registered")
	}
	if def.Name != "process-order" || def.Version != 1 {
		t.Errorf("got %s v%d", def.Name, def.Version)
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := workflow.NewRegistry()
	if _, ok := r.Get("nonexistent"); ok {
		t.Fatal("expected no definition for unregistered workflow")
	}
	_, err := r.Lookup("nonexistent", 0)
	if !errors.Is(err, stepflow.ErrWorkflowNotFound) {
		t.Errorf("Lookup err = %v, want ErrWorkflowNotFound", err)
	}
}

func TestRegistry_LatestVersionWins(t *testing.T) {
	r := workflow.NewRegistry()
	r.MustRegister(versioned("wf", 2))
	r.MustRegister(versioned("wf", 5))
	r.MustRegister(versioned("wf", 3))

	def, _ := r.Get("wf")
	if def.Version != 5 {
		t.Errorf("Get version = %d, want 5", def.Version)
	}
	if got := r.LatestVersion("wf"); got != 5 {
		t.Errorf("LatestVersion = %d, want 5", got)
	}

	v3, ok := r.GetVersion("wf", 3)
	if !ok || v3.Version != 3 {
		t.Errorf("GetVersion(3) = %v, %v", v3, ok)
	}
	if _, err := r.Lookup("wf", 4); !errors.Is(err, stepflow.ErrWorkflowNotFound) {
		t.Errorf("Lookup(4) err = %v", err)
	}
	if latest, _ := r.GetVersion("wf", 0); latest.Version != 5 {
		t.Errorf("GetVersion(0) = v%d, want latest", latest.Version)
	}
}

func TestRegistry_ZeroVersionBecomesOne(t *testing.T) {
	r := workflow.NewRegistry()
	def := &workflow.Definition{Name: "wf", Steps: []workflow.Step{workflow.Action("s", nil)}}
	r.MustRegister(def)

	if _, ok := r.GetVersion("wf", 1); !ok {
		t.Error("version 0 not stored as 1")
	}
	if def.Version != 0 {
		t.Error("Register mutated the caller's definition")
	}
}

func TestRegistry_SameVersionReplaces(t *testing.T) {
	r := workflow.NewRegistry()
	r.MustRegister(versioned("wf", 1))
	replacement := workflow.NewBuilder("wf").Step(workflow.Action("other", nil)).Build()
	r.MustRegister(replacement)

	def, _ := r.Get("wf")
	if def.Steps[0].Name() != "other" {
		t.Error("same-version registration did not replace")
	}
}

func TestRegistry_RejectsInvalid(t *testing.T) {
	r := workflow.NewRegistry()
	dup := workflow.NewBuilder("dup").Step(workflow.Action("a", nil), workflow.Action("a", nil)).Build()

	err := r.Register(dup)
	if !errors.Is(err, stepflow.ErrDuplicateStep) || !errors.Is(err, stepflow.ErrInvalidDefinition) {
		t.Errorf("err = %v, want ErrDuplicateStep and ErrInvalidDefinition", err)
	}
	if _, ok := r.Get("dup"); ok {
		t.Error("invalid definition was stored")
	}
}

func TestRegistry_Names(t *testing.T) {
	r := workflow.NewRegistry()
	r.MustRegister(versioned("b", 1))
	r.MustRegister(versioned("a", 1))
	r.MustRegister(versioned("a", 2))

	if got, want := r.Names(), []string{"a", "b"}; !equal(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := workflow.NewRegistry()
	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.MustRegister(versioned("wf", i))
		}()
		go func() {
			defer wg.Done()
			r.Get("wf")
		}()
	}
	wg.Wait()

	if got := r.LatestVersion("wf"); got != 20 {
		t.Errorf("LatestVersion = %d, want 20", got)
	}
}

func TestDefinition_StepIndex(t *testing.T) {
	def := workflow.NewBuilder("idx").Step(workflow.Action("a", nil), workflow.Action("b", nil)).Build()
	if def.StepIndex("b") != 1 || def.StepIndex("zzz") != -1 || def.LastIndex() != 1 {
		t.Errorf("StepIndex/LastIndex mismatch")
	}
}

func TestBuilder_BuildIsolated(t *testing.T) {
	b := workflow.NewBuilder("iso").Step(workflow.Action("a", nil))
	first := b.Build()
	b.Step(workflow.Action("b", nil))
	if len(first.Steps) != 1 {
		t.Errorf("first build has %d steps, want 1", len(first.Steps))
	}
}

func TestDefinition_SelfReferencingSubWorkflow(t *testing.T) {
	def := &workflow.Definition{Name: "loop"}
	def.Steps = []workflow.Step{workflow.SubWorkflow("again", def)}
	if err := def.Validate(); !errors.Is(err, stepflow.ErrInvalidDefinition) {
		t.Errorf("Validate = %v, want ErrInvalidDefinition", err)
	}
}
