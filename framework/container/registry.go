package container

import "sync"

// Constructor builds an instance from resolved arguments.
//
//	reg.Constructor("app.Mailer", func(args ...any) (any, error) {
//	    return NewMailer(args[0].(string), args[1].(*Logger)), nil
//	})
type Constructor func(args ...any) (any, error)

// Registry maps graph type identifiers to Go code. Go has no way to
// instantiate a type from its name, so every type a graph constructs needs a
// Constructor, and every static factory ("Type::method") a function.
// Methods called on instances (setter calls, service factories) are found by
// reflection and need no registration.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	factories    map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
		factories:    make(map[string]Constructor),
	}
}

// Constructor registers the constructor of typeName.
func (r *Registry) Constructor(typeName string, fn Constructor) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[typeName] = fn
	return r
}

// Factory registers the static factory typeName::method.
func (r *Registry) Factory(typeName, method string, fn Constructor) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[typeName+"::"+method] = fn
	return r
}

// Value registers a constructor that always returns v. Handy for types
// whose instances are plain values.
func (r *Registry) Value(typeName string, v any) *Registry {
	return r.Constructor(typeName, func(...any) (any, error) { return v, nil })
}

// Merge copies every entry of other into r, overriding on conflict.
func (r *Registry) Merge(other *Registry) *Registry {
	other.mu.RLock()
	defer other.mu.RUnlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, fn := range other.constructors {
		r.constructors[k] = fn
	}
	for k, fn := range other.factories {
		r.factories[k] = fn
	}
	return r
}

func (r *Registry) constructor(typeName string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.constructors[typeName]
	return fn, ok
}

func (r *Registry) factory(typeName, method string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.factories[typeName+"::"+method]
	return fn, ok
}
