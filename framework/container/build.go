package container

import (
	"fmt"
	"reflect"

	dierrors "github.com/km-arc/go-dibridge/framework/errors"
	"github.com/km-arc/go-dibridge/framework/graph"
	"github.com/km-arc/go-dibridge/framework/parameters"
)

// ── Lazy values ───────────────────────────────────────────────────────────────

// Deferred is what a Closure argument resolves to: calling it resolves the
// wrapped argument.
type Deferred func() (any, error)

// Iterator is what a LazyCollection argument resolves to. Members are
// resolved while iterating, not when the owning service is built.
type Iterator struct {
	c       *Container
	entries []graph.Entry
}

// Len is the number of members.
func (it *Iterator) Len() int { return len(it.entries) }

// Keys returns the member keys; empty strings for positional members.
func (it *Iterator) Keys() []string {
	keys := make([]string, len(it.entries))
	for i, e := range it.entries {
		keys[i] = e.Key
	}
	return keys
}

// Each resolves the members in order and calls fn for each. It stops at the
// first error.
func (it *Iterator) Each(fn func(key string, value any) error) error {
	for _, e := range it.entries {
		v, err := it.c.resolve(e.Value, nil)
		if err != nil {
			return err
		}
		if err := fn(e.Key, v); err != nil {
			return err
		}
	}
	return nil
}

// ── Building ──────────────────────────────────────────────────────────────────

func (c *Container) build(d *graph.Definition, tr *trail) (any, error) {
	if d.Synthetic {
		supplier, ok := c.external(d.Origin)
		if !ok {
			e := dierrors.ServiceNotFound(d.Name)
			e.Cause = fmt.Errorf("no supplier for services of %q", d.Origin)
			return nil, e
		}
		return supplier.Get(d.OriginName)
	}

	args, err := c.resolveAll(d.Arguments, tr)
	if err != nil {
		return nil, err
	}

	var instance any
	if d.Factory != nil {
		instance, err = c.callFactory(d, args, tr)
	} else {
		ctor, ok := c.registry.constructor(d.Type)
		if !ok {
			return nil, dierrors.MissingConstructor(d.Name, d.Type)
		}
		instance, err = ctor(args...)
	}
	if err != nil {
		return nil, err
	}

	for _, call := range d.Calls {
		callArgs, err := c.resolveAll(call.Arguments, tr)
		if err != nil {
			return nil, err
		}
		if _, err := invoke(instance, call.Method, callArgs); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

func (c *Container) callFactory(d *graph.Definition, args []any, tr *trail) (any, error) {
	f := d.Factory
	if lit, ok := f.Target.(graph.Literal); ok {
		typeName, _ := lit.Value.(string)
		fn, ok := c.registry.factory(typeName, f.Method)
		if !ok {
			return nil, dierrors.MissingConstructor(d.Name, typeName+"::"+f.Method)
		}
		return fn(args...)
	}

	target, err := c.resolve(f.Target, tr)
	if err != nil {
		return nil, err
	}
	return invoke(target, f.Method, args)
}

// ── Arguments ─────────────────────────────────────────────────────────────────

func (c *Container) resolveAll(args []graph.Argument, tr *trail) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		v, err := c.resolve(a, tr)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *Container) resolve(a graph.Argument, tr *trail) (any, error) {
	switch v := a.(type) {
	case nil:
		return nil, nil
	case graph.Literal:
		return c.resolveValue(v.Value, map[string]bool{})
	case graph.ParameterRef:
		return c.GetParameter(v.Path)
	case graph.ServiceRef:
		return c.get(v.Name, tr)
	case graph.Collection:
		if v.Keyed {
			out := make(map[string]any, len(v.Entries))
			for _, e := range v.Entries {
				item, err := c.resolve(e.Value, tr)
				if err != nil {
					return nil, err
				}
				out[e.Key] = item
			}
			return out, nil
		}
		out := make([]any, len(v.Entries))
		for i, e := range v.Entries {
			item, err := c.resolve(e.Value, tr)
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case graph.InlineDefinition:
		if v.Definition == nil {
			return nil, dierrors.UnsupportedArgument("", "", a)
		}
		return c.build(v.Definition, tr)
	case graph.Closure:
		inner := v.Inner
		return Deferred(func() (any, error) { return c.resolve(inner, nil) }), nil
	case graph.LazyCollection:
		return &Iterator{c: c, entries: v.Entries}, nil
	default:
		return nil, dierrors.UnsupportedArgument("", "", a)
	}
}

// resolveValue resolves %name% placeholders in literal strings when the
// model uses them. resolving guards against parameters that refer to
// themselves.
func (c *Container) resolveValue(value any, resolving map[string]bool) (any, error) {
	switch v := value.(type) {
	case string:
		if !c.model.Placeholders {
			return v, nil
		}
		return c.resolveString(v, resolving)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			r, err := c.resolveValue(item, resolving)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			r, err := c.resolveValue(item, resolving)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return value, nil
	}
}

func (c *Container) resolveString(s string, resolving map[string]bool) (any, error) {
	lookup := func(path string) (any, error) {
		if resolving[path] {
			return nil, dierrors.CircularReference([]string{"%" + path + "%", "%" + path + "%"})
		}
		raw, err := c.graph.Parameters.Get(path)
		if err != nil {
			return nil, err
		}
		resolving[path] = true
		defer delete(resolving, path)
		return c.resolveValue(raw, resolving)
	}

	if path, ok := parameters.ParseReference(s); ok {
		return lookup(path)
	}

	var failure error
	out, missing := parameters.Interpolate(s, func(path string) (any, bool) {
		v, err := lookup(path)
		if err != nil {
			if failure == nil && !dierrors.IsNotFound(err) {
				failure = err
			}
			return nil, false
		}
		return v, true
	})
	if failure != nil {
		return nil, failure
	}
	if len(missing) > 0 {
		return nil, dierrors.ParameterNotFound(missing[0])
	}
	return out, nil
}

// ── Reflection ────────────────────────────────────────────────────────────────

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// invoke calls receiver.method(args...). The method may return nothing, a
// value, an error, or a value and an error.
func invoke(receiver any, method string, args []any) (any, error) {
	if receiver == nil {
		return nil, fmt.Errorf("container: cannot call %s on nil", method)
	}
	m := reflect.ValueOf(receiver).MethodByName(method)
	if !m.IsValid() {
		return nil, fmt.Errorf("container: %T has no method %s", receiver, method)
	}

	t := m.Type()
	if t.IsVariadic() && len(args) < t.NumIn()-1 || !t.IsVariadic() && len(args) != t.NumIn() {
		return nil, fmt.Errorf("container: %T.%s takes %d arguments, got %d", receiver, method, t.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		pt := paramType(t, i)
		v, err := convert(a, pt)
		if err != nil {
			return nil, fmt.Errorf("container: %T.%s argument %d: %w", receiver, method, i, err)
		}
		in[i] = v
	}

	out := m.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if t.Out(0) == errorType {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	default:
		last := len(out) - 1
		if t.Out(last) != errorType {
			return out[0].Interface(), nil
		}
		return out[0].Interface(), asError(out[last])
	}
}

func paramType(t reflect.Type, i int) reflect.Type {
	if t.IsVariadic() && i >= t.NumIn()-1 {
		return t.In(t.NumIn() - 1).Elem()
	}
	return t.In(i)
}

func convert(a any, t reflect.Type) (reflect.Value, error) {
	if a == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(a)
	switch {
	case v.Type().AssignableTo(t):
		return v, nil
	case isNumber(v.Kind()) && isNumber(t.Kind()):
		return v.Convert(t), nil
	default:
		return reflect.Value{}, fmt.Errorf("%T is not assignable to %s", a, t)
	}
}

func isNumber(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	err, _ := v.Interface().(error)
	return err
}
