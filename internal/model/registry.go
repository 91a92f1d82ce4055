package model

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Factory constructs a fresh, zero-valued Persistable.
type Factory func() Persistable

// Registry maps stable type names to factories. It replaces reflective
// class loading: a document can only instantiate registered types.
//
// A Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Factory
	byType map[reflect.Type]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Factory),
		byType: make(map[reflect.Type]string),
	}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used when a component
// is not given one explicitly.
func DefaultRegistry() *Registry { return defaultRegistry }

// Register adds factory under the derived name of the type it produces
// (package path, a dot, type name).
func (r *Registry) Register(factory Factory) error {
	sample := factory()
	if isNil(sample) {
		return fmt.Errorf("factory returned nil")
	}
	return r.RegisterName(derivedName(reflect.TypeOf(sample)), factory)
}

// RegisterName adds factory under an explicit stable name. The same type may
// not be registered twice under different names.
func (r *Registry) RegisterName(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("type name is required")
	}
	sample := factory()
	if isNil(sample) {
		return fmt.Errorf("factory for %s returned nil", name)
	}
	t := reflect.TypeOf(sample)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byType[t]; ok && existing != name {
		return fmt.Errorf("type %s already registered as %s", t, existing)
	}
	if _, ok := r.byName[name]; ok {
		if r.byType[t] == name {
			return nil
		}
		return fmt.Errorf("type name %s already registered", name)
	}
	r.byName[name] = factory
	r.byType[t] = name
	return nil
}

// MustRegisterName is RegisterName that panics on error. Intended for init
// functions.
func (r *Registry) MustRegisterName(name string, factory Factory) {
	if err := r.RegisterName(name, factory); err != nil {
		panic(err)
	}
}

// New instantiates the type registered under name.
func (r *Registry) New(name string) (Persistable, error) {
	r.mu.RLock()
	factory, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotRegistered, name)
	}
	return factory(), nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[name]
	return ok
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TypeName returns the stable name of p's type: the registered name when
// there is one, otherwise the derived package-qualified name.
func (r *Registry) TypeName(p Persistable) string {
	if isNil(p) {
		return ""
	}
	t := reflect.TypeOf(p)
	r.mu.RLock()
	name, ok := r.byType[t]
	r.mu.RUnlock()
	if ok {
		return name
	}
	return derivedName(t)
}

// SimpleName returns the unqualified Go type name of p. It is used as the
// root element tag.
func SimpleName(p Persistable) string {
	t := structType(p)
	if t == nil {
		return ""
	}
	return t.Name()
}

func derivedName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}
