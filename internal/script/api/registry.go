package api

import (
	"fmt"
	"slices"
	"sync"
)

// Module is a group of bindings installed together.
type Module interface {
	// Name returns the module name (e.g. "core", "list").
	Name() string

	// Bindings returns the operations of the module.
	Bindings() []Binding
}

// Registry holds the modules that make up the API catalog.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]Module),
	}
}

// Register adds a module to the registry.
func (r *Registry) Register(mod Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[mod.Name()]; exists {
		return fmt.Errorf("module %q already registered", mod.Name())
	}

	r.modules[mod.Name()] = mod
	r.order = append(r.order, mod.Name())
	return nil
}

// Get returns a module by name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mod, ok := r.modules[name]
	return mod, ok
}

// List returns the module names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Bindings returns every binding of every module. Two bindings with the
// same name are an error.
func (r *Registry) Bindings() ([]Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]string)
	var all []Binding
	for _, name := range r.order {
		for _, b := range r.modules[name].Bindings() {
			if owner, dup := seen[b.Name]; dup {
				return nil, fmt.Errorf("binding %q of module %q already provided by module %q", b.Name, name, owner)
			}
			if b.Fn == nil {
				return nil, fmt.Errorf("binding %q of module %q has no function", b.Name, name)
			}
			seen[b.Name] = name
			all = append(all, b)
		}
	}
	return all, nil
}

// DefaultRegistry creates a registry with the standard modules.
func DefaultRegistry() (*Registry, error) {
	r := NewRegistry()

	modules := []Module{
		CoreModule{},
		StringsModule{},
		DirsModule{},
		ListModule{},
		ConfigModule{},
	}

	for _, mod := range modules {
		if err := r.Register(mod); err != nil {
			return nil, fmt.Errorf("failed to register module %q: %w", mod.Name(), err)
		}
	}

	return r, nil
}
