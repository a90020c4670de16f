package workflow

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/stepflow"
)

// Registry maps workflow names to versioned definitions. Multiple versions
// of the same workflow can be registered; the latest version is used for
// new runs. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	versions map[string][]*Definition // name → definitions, any order
}

// NewRegistry creates an empty workflow registry.
func NewRegistry() *Registry {
	return &Registry{
		versions: make(map[string][]*Definition),
	}
}

// Register validates def and stores it. A Version of 0 or less is treated
// as version 1. Registering the same name and version again replaces the
// earlier definition.
func (r *Registry) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if def.Version <= 0 {
		c := *def
		c.Version = 1
		def = &c
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.versions[def.Name]
	for i, d := range existing {
		if d.Version == def.Version {
			existing[i] = def
			return nil
		}
	}
	r.versions[def.Name] = append(existing, def)
	return nil
}

// MustRegister is like Register but panics on an invalid definition.
func (r *Registry) MustRegister(def *Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Get returns the latest version of the named workflow.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions := r.versions[name]
	if len(versions) == 0 {
		return nil, false
	}
	best := versions[0]
	for _, d := range versions[1:] {
		if d.Version > best.Version {
			best = d
		}
	}
	return best, true
}

// GetVersion returns a specific version of the named workflow. If version
// <= 0 it behaves like Get.
func (r *Registry) GetVersion(name string, version int) (*Definition, bool) {
	if version <= 0 {
		return r.Get(name)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.versions[name] {
		if d.Version == version {
			return d, true
		}
	}
	return nil, false
}

// Lookup is like GetVersion but returns stepflow.ErrWorkflowNotFound when
// nothing matches.
func (r *Registry) Lookup(name string, version int) (*Definition, error) {
	def, ok := r.GetVersion(name, version)
	if !ok {
		if version > 0 {
			return nil, fmt.Errorf("%w: %q version %d", stepflow.ErrWorkflowNotFound, name, version)
		}
		return nil, fmt.Errorf("%w: %q", stepflow.ErrWorkflowNotFound, name)
	}
	return def, nil
}

// LatestVersion returns the highest registered version of a workflow, or 0
// if it is not registered.
func (r *Registry) LatestVersion(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	best := 0
	for _, d := range r.versions[name] {
		if d.Version > best {
			best = d.Version
		}
	}
	return best
}

// Names returns all registered workflow names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.versions))
	for name := range r.versions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
