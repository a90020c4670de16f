package definition

import (
	"fmt"
	"sync"

	"github.com/xraph/stepflow/workflow"
)

// WorkflowResolver resolves sub-workflow references. A version of zero
// means the latest. *workflow.Registry implements it.
type WorkflowResolver interface {
	Lookup(name string, version int) (*workflow.Definition, error)
}

// Registry holds the named behaviour a YAML document may reference.
type Registry struct {
	mu         sync.RWMutex
	actions    map[string]workflow.ActionFunc
	predicates map[string]workflow.Predicate
	items      map[string]workflow.ItemsFunc
	errs       map[string]error
	workflows  WorkflowResolver
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		actions:    make(map[string]workflow.ActionFunc),
		predicates: make(map[string]workflow.Predicate),
		items:      make(map[string]workflow.ItemsFunc),
		errs:       make(map[string]error),
	}
}

// RegisterAction registers fn under name, replacing any previous action.
func (r *Registry) RegisterAction(name string, fn workflow.ActionFunc) *Registry {
	r.mu.Lock()
	r.actions[name] = fn
	r.mu.Unlock()
	return r
}

// RegisterPredicate registers a condition for if, while and dowhile steps.
func (r *Registry) RegisterPredicate(name string, p workflow.Predicate) *Registry {
	r.mu.Lock()
	r.predicates[name] = p
	r.mu.Unlock()
	return r
}

// RegisterItems registers an item source for foreach steps.
func (r *Registry) RegisterItems(name string, fn workflow.ItemsFunc) *Registry {
	r.mu.Lock()
	r.items[name] = fn
	r.mu.Unlock()
	return r
}

// RegisterError registers a sentinel error that catch clauses can name.
func (r *Registry) RegisterError(name string, err error) *Registry {
	r.mu.Lock()
	r.errs[name] = err
	r.mu.Unlock()
	return r
}

// SetWorkflows sets the resolver used for subworkflow steps.
func (r *Registry) SetWorkflows(res WorkflowResolver) *Registry {
	r.mu.Lock()
	r.workflows = res
	r.mu.Unlock()
	return r
}

func (r *Registry) action(name string) (workflow.ActionFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.actions[name]
	return fn, ok
}

func (r *Registry) predicate(name string) (workflow.Predicate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.predicates[name]
	return p, ok
}

func (r *Registry) itemSource(name string) (workflow.ItemsFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.items[name]
	return fn, ok
}

func (r *Registry) namedError(name string) (error, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	err, ok := r.errs[name]
	return err, ok
}

func (r *Registry) resolve(name string, version int) (*workflow.Definition, error) {
	r.mu.RLock()
	res := r.workflows
	r.mu.RUnlock()
	if res == nil {
		return nil, fmt.Errorf("no workflow resolver configured for %q", name)
	}
	return res.Lookup(name, version)
}
