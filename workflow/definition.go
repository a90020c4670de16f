package workflow

import (
	"errors"
	"fmt"

	"github.com/xraph/stepflow"
)

// maxNestingDepth bounds validation of nested steps, which also stops
// sub-workflow cycles.
const maxNestingDepth = 256

// Definition is an ordered list of top-level steps. The runner executes
// them in order and treats each one as a unit for checkpointing and
// compensation.
type Definition struct {
	Name    string
	Version int
	Steps   []Step

	// Compensation enables the saga stack: after a failure, every
	// top-level CompensatingStep that succeeded is undone in reverse order
	// and the run ends Compensated instead of Faulted.
	Compensation bool
}

// Validate checks that the definition is runnable: it has a name, no nil
// steps, and unique top-level step names.
func (d *Definition) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil definition", stepflow.ErrInvalidDefinition)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: missing name", stepflow.ErrInvalidDefinition)
	}

	var errs []error
	seen := make(map[string]int, len(d.Steps))
	for i, step := range d.Steps {
		if step == nil {
			errs = append(errs, fmt.Errorf("%w: %s: step %d is nil", stepflow.ErrInvalidDefinition, d.Name, i))
			continue
		}
		if prev, ok := seen[step.Name()]; ok {
			errs = append(errs, fmt.Errorf("%w: %w: %s: %s at %d and %d",
				stepflow.ErrInvalidDefinition, stepflow.ErrDuplicateStep, d.Name, describe(step), prev, i))
			continue
		}
		seen[step.Name()] = i

		Walk(step, func(s Step, depth int) bool {
			if depth > maxNestingDepth {
				errs = append(errs, fmt.Errorf("%w: %s: %s nested deeper than %d levels",
					stepflow.ErrInvalidDefinition, d.Name, describe(step), maxNestingDepth))
				return false
			}
			for _, c := range Children(s) {
				if c == nil {
					errs = append(errs, fmt.Errorf("%w: %s: nil step inside %s",
						stepflow.ErrInvalidDefinition, d.Name, describe(s)))
				}
			}
			if sub, ok := s.(*SubWorkflowStep); ok && sub.child == d {
				errs = append(errs, fmt.Errorf("%w: %s: sub-workflow %q includes itself",
					stepflow.ErrInvalidDefinition, d.Name, sub.name))
				return false
			}
			return true
		})
	}
	return errors.Join(errs...)
}

// StepIndex returns the position of the top-level step called name, or -1.
func (d *Definition) StepIndex(name string) int {
	for i, step := range d.Steps {
		if step != nil && step.Name() == name {
			return i
		}
	}
	return -1
}

// LastIndex returns the index of the last top-level step.
func (d *Definition) LastIndex() int { return len(d.Steps) - 1 }

// Builder assembles a Definition.
type Builder struct {
	def Definition
}

// NewBuilder starts a definition called name at version 1.
func NewBuilder(name string) *Builder {
	return &Builder{def: Definition{Name: name, Version: 1}}
}

// Version sets the definition version.
func (b *Builder) Version(v int) *Builder {
	b.def.Version = v
	return b
}

// Step appends top-level steps.
func (b *Builder) Step(steps ...Step) *Builder {
	b.def.Steps = append(b.def.Steps, steps...)
	return b
}

// Then appends an Action step.
func (b *Builder) Then(name string, fn ActionFunc) *Builder {
	return b.Step(Action(name, fn))
}

// WithCompensation enables the saga stack.
func (b *Builder) WithCompensation() *Builder {
	b.def.Compensation = true
	return b
}

// Build returns the definition. The builder may be reused; later calls do
// not affect definitions already built.
func (b *Builder) Build() *Definition {
	def := b.def
	def.Steps = append([]Step(nil), b.def.Steps...)
	return &def
}
