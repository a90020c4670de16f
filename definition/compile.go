package definition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/stepflow"
	"github.com/xraph/stepflow/backoff"
	"github.com/xraph/stepflow/workflow"
)

// Compile turns a parsed document into a validated workflow definition.
func Compile(doc *Document, reg *Registry) (*workflow.Definition, error) {
	if reg == nil {
		reg = NewRegistry()
	}
	c := &compiler{reg: reg}

	if strings.TrimSpace(doc.Name) == "" {
		c.fail("", "workflow name is required")
	}
	if len(doc.Steps) == 0 {
		c.fail("", "workflow has no steps")
	}
	steps := c.steps(doc.Steps, "")

	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}

	def := &workflow.Definition{
		Name:         doc.Name,
		Version:      doc.Version,
		Steps:        steps,
		Compensation: doc.Compensation,
	}
	if def.Version <= 0 {
		def.Version = 1
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

type compiler struct {
	reg  *Registry
	errs []error
}

func (c *compiler) fail(path, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if path != "" {
		msg = path + ": " + msg
	}
	c.errs = append(c.errs, fmt.Errorf("%w: %s", stepflow.ErrInvalidDefinition, msg))
}

func (c *compiler) steps(specs []StepSpec, parent string) []workflow.Step {
	out := make([]workflow.Step, 0, len(specs))
	for i := range specs {
		if s := c.step(&specs[i], parent, i); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// group compiles specs into one step: the step itself when there is only
// one, otherwise a sequence named name.
func (c *compiler) group(specs []StepSpec, name, parent string) workflow.Step {
	steps := c.steps(specs, parent)
	if len(specs) == 1 && len(steps) == 1 {
		return steps[0]
	}
	return workflow.Sequence(name, steps...)
}

func (c *compiler) step(spec *StepSpec, parent string, index int) workflow.Step {
	path := spec.Name
	if path == "" {
		path = fmt.Sprintf("#%d", index)
	}
	if parent != "" {
		path = parent + "/" + path
	}
	if spec.Name == "" {
		c.fail(path, "step name is required")
	}

	kind, ok := c.kind(spec, path)
	if !ok {
		return nil
	}

	switch kind {
	case workflow.KindAction:
		return c.action(spec, path)

	case workflow.KindSequence:
		return workflow.Sequence(spec.Name, c.steps(spec.Steps, path)...)

	case workflow.KindConditional:
		pred := c.predicate(spec, path)
		if len(spec.Then) == 0 {
			c.fail(path, "if step needs a then branch")
		}
		then := c.group(spec.Then, spec.Name+".then", path)
		var otherwise workflow.Step
		if len(spec.Else) > 0 {
			otherwise = c.group(spec.Else, spec.Name+".else", path)
		}
		return workflow.Conditional(spec.Name, pred, then, otherwise)

	case workflow.KindParallel:
		if spec.Limit < 0 {
			c.fail(path, "limit must be >= 0, got %d", spec.Limit)
		}
		return workflow.Parallel(spec.Name, c.steps(spec.Steps, path)...).WithLimit(spec.Limit)

	case workflow.KindForEach:
		return workflow.ForEach(spec.Name, c.itemSource(spec, path), c.body(spec, path)...)

	case workflow.KindWhile:
		return workflow.While(spec.Name, c.predicate(spec, path), c.body(spec, path)...)

	case workflow.KindDoWhile:
		return workflow.DoWhile(spec.Name, c.predicate(spec, path), c.body(spec, path)...)

	case workflow.KindRetry:
		if spec.Attempts < 1 {
			c.fail(path, "retry attempts must be >= 1, got %d", spec.Attempts)
		}
		r := workflow.RetryGroup(spec.Name, spec.Attempts, c.body(spec, path)...)
		if spec.Backoff != "" {
			strategy, err := backoff.Parse(spec.Backoff)
			if err != nil {
				c.fail(path, "%v", err)
			} else {
				r = r.WithBackoff(strategy)
			}
		}
		return r

	case workflow.KindTryCatch:
		try := c.body(spec, path)
		catches := make([]workflow.Catch, 0, len(spec.Catch))
		for i := range spec.Catch {
			if ct, ok := c.catch(&spec.Catch[i], fmt.Sprintf("%s/catch#%d", path, i)); ok {
				catches = append(catches, ct)
			}
		}
		return workflow.TryCatchFinally(spec.Name, try, catches, c.steps(spec.Finally, path+"/finally"))

	case workflow.KindSubWorkflow:
		if spec.Workflow == "" {
			c.fail(path, "subworkflow step needs a workflow")
			return nil
		}
		child, err := c.reg.resolve(spec.Workflow, spec.WorkflowVersion)
		if err != nil {
			c.fail(path, "resolve workflow %q: %v", spec.Workflow, err)
			return nil
		}
		return workflow.SubWorkflow(spec.Name, child)

	case workflow.KindDelay:
		return workflow.Delay(spec.Name, c.duration(spec, path))

	case workflow.KindTimeout:
		d := c.duration(spec, path)
		if d <= 0 {
			c.fail(path, "timeout duration must be positive")
		}
		if spec.Step == nil {
			c.fail(path, "timeout step needs an inner step")
			return nil
		}
		inner := c.step(spec.Step, path, 0)
		return workflow.Timeout(spec.Name, inner, d)

	case workflow.KindAbort:
		return workflow.Abort(spec.Name)
	}

	c.fail(path, "unsupported kind %q", kind)
	return nil
}

func (c *compiler) kind(spec *StepSpec, path string) (workflow.Kind, bool) {
	if spec.Kind == "" {
		switch {
		case spec.Action != "":
			return workflow.KindAction, true
		case len(spec.Steps) > 0:
			return workflow.KindSequence, true
		}
		c.fail(path, "step kind is required")
		return 0, false
	}
	k, err := workflow.ParseKind(strings.ToLower(strings.TrimSpace(spec.Kind)))
	if err != nil {
		c.fail(path, "%v", err)
		return 0, false
	}
	return k, true
}

func (c *compiler) action(spec *StepSpec, path string) workflow.Step {
	if spec.Action == "" {
		c.fail(path, "action step needs an action")
		return nil
	}
	do, ok := c.reg.action(spec.Action)
	if !ok {
		c.errs = append(c.errs, fmt.Errorf("%w: %s: %w: %q",
			stepflow.ErrInvalidDefinition, path, stepflow.ErrActionNotFound, spec.Action))
		return nil
	}
	if spec.Compensate == "" {
		return workflow.Action(spec.Name, do)
	}
	undo, ok := c.reg.action(spec.Compensate)
	if !ok {
		c.errs = append(c.errs, fmt.Errorf("%w: %s: compensation %w: %q",
			stepflow.ErrInvalidDefinition, path, stepflow.ErrActionNotFound, spec.Compensate))
		return nil
	}
	return workflow.Compensable(spec.Name, do, undo)
}

func (c *compiler) body(spec *StepSpec, path string) []workflow.Step {
	if len(spec.Steps) == 0 {
		c.fail(path, "%s step needs a body", spec.Kind)
	}
	return c.steps(spec.Steps, path)
}

func (c *compiler) predicate(spec *StepSpec, path string) workflow.Predicate {
	switch {
	case spec.When != "" && spec.WhenProperty != "":
		c.fail(path, "when and when_property are mutually exclusive")
	case spec.When != "":
		p, ok := c.reg.predicate(spec.When)
		if !ok {
			c.fail(path, "unknown predicate %q", spec.When)
		}
		return p
	case spec.WhenProperty != "":
		key := spec.WhenProperty
		return func(wctx *workflow.Context) bool {
			v, _ := workflow.Value[bool](wctx, key)
			return v
		}
	default:
		c.fail(path, "%s step needs when or when_property", spec.Kind)
	}
	return nil
}

func (c *compiler) itemSource(spec *StepSpec, path string) workflow.ItemsFunc {
	switch {
	case spec.Items != "" && spec.ItemsProperty != "":
		c.fail(path, "items and items_property are mutually exclusive")
	case spec.Items != "":
		fn, ok := c.reg.itemSource(spec.Items)
		if !ok {
			c.fail(path, "unknown item source %q", spec.Items)
		}
		return fn
	case spec.ItemsProperty != "":
		key := spec.ItemsProperty
		return func(wctx *workflow.Context) []any {
			v, _ := workflow.Value[[]any](wctx, key)
			return v
		}
	default:
		c.fail(path, "foreach step needs items or items_property")
	}
	return nil
}

func (c *compiler) duration(spec *StepSpec, path string) time.Duration {
	if spec.Duration == "" {
		c.fail(path, "%s step needs a duration", spec.Kind)
		return 0
	}
	d, err := time.ParseDuration(spec.Duration)
	if err != nil {
		c.fail(path, "invalid duration %q: %v", spec.Duration, err)
		return 0
	}
	if d < 0 {
		c.fail(path, "duration must not be negative")
	}
	return d
}

// builtinErrors are the error classes catch clauses can name without
// registering them.
var builtinErrors = map[string]error{
	"timeout":         stepflow.ErrStepTimeout,
	"retry_exhausted": stepflow.ErrRetryExhausted,
	"panic":           stepflow.ErrStepPanicked,
	"canceled":        context.Canceled,
	"deadline":        context.DeadlineExceeded,
}

func (c *compiler) catch(spec *CatchSpec, path string) (workflow.Catch, bool) {
	handle := workflow.HandleWith(c.steps(spec.Steps, path)...)

	name := strings.TrimSpace(spec.Error)
	if name == "" || name == "any" {
		return workflow.CatchAll(handle), true
	}
	if target, ok := builtinErrors[name]; ok {
		return workflow.CatchIs(target, handle), true
	}
	if target, ok := c.reg.namedError(name); ok {
		return workflow.CatchIs(target, handle), true
	}
	c.fail(path, "unknown error %q", name)
	return workflow.Catch{}, false
}
