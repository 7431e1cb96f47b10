package transform

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	dierrors "github.com/km-arc/go-dibridge/framework/errors"
	"github.com/km-arc/go-dibridge/framework/graph"
	"github.com/km-arc/go-dibridge/framework/parameters"
)

// ── Argument trees ────────────────────────────────────────────────────────────
//
// Rules, most specific first:
//
//	ParameterRef      → resolved literal (kept as a reference when missing)
//	ServiceRef        → renamed; nil in place when the name is suppressed
//	InlineDefinition  → ServiceRef to an allocated anonymous definition
//	Closure           → Closure around the transformed inner argument
//	LazyCollection    → LazyCollection, or an eager Collection when the
//	                    destination model has no lazy iterables
//	Collection        → element-wise, order and keys preserved
//	Literal           → placeholder-aware copy, see literalValue

func (r *run) arguments(args []graph.Argument, position string) ([]graph.Argument, error) {
	if args == nil {
		return nil, nil
	}
	out := make([]graph.Argument, len(args))
	for i, a := range args {
		transformed, err := r.argument(a, fmt.Sprintf("%s[%d]", position, i))
		if err != nil {
			return nil, err
		}
		out[i] = transformed
	}
	return out, nil
}

func (r *run) argument(a graph.Argument, position string) (graph.Argument, error) {
	switch v := a.(type) {
	case nil:
		return nil, nil

	case graph.ParameterRef:
		return r.parameter(v.Path, position), nil

	case graph.ServiceRef:
		name, ok := r.t.names(v.Name)
		if !ok {
			r.warn(position, fmt.Sprintf("reference to %q has no destination name, dropped", v.Name))
			return nil, nil
		}
		return graph.Ref(name), nil

	case graph.InlineDefinition:
		if v.Definition == nil {
			return nil, dierrors.UnsupportedArgument(r.service, position, a)
		}
		name, err := r.nameFor(v.Definition, position)
		if err != nil {
			return nil, err
		}
		return graph.Ref(name), nil

	case graph.Closure:
		inner, err := r.argument(v.Inner, position)
		if err != nil {
			return nil, err
		}
		if !r.t.to.Closures {
			return inner, nil
		}
		return graph.Defer(inner), nil

	case graph.LazyCollection:
		entries, err := r.entries(v.Entries, position)
		if err != nil {
			return nil, err
		}
		if r.t.to.LazyCollections {
			return graph.LazyCollection{Entries: entries}, nil
		}
		return graph.Collection{Entries: entries, Keyed: keyed(entries)}, nil

	case graph.Collection:
		entries, err := r.entries(v.Entries, position)
		if err != nil {
			return nil, err
		}
		return graph.Collection{Entries: entries, Keyed: v.Keyed}, nil

	case graph.Literal:
		return r.literal(v.Value, position), nil

	default:
		return nil, dierrors.UnsupportedArgument(r.service, position, a)
	}
}

func (r *run) entries(entries []graph.Entry, position string) ([]graph.Entry, error) {
	if entries == nil {
		return nil, nil
	}
	out := make([]graph.Entry, len(entries))
	for i, e := range entries {
		pos := fmt.Sprintf("%s[%d]", position, i)
		if e.Key != "" {
			pos = fmt.Sprintf("%s[%q]", position, e.Key)
		}
		value, err := r.argument(e.Value, pos)
		if err != nil {
			return nil, err
		}
		out[i] = graph.Entry{Key: e.Key, Value: value}
	}
	return out, nil
}

func keyed(entries []graph.Entry) bool {
	return len(entries) > 0 && entries[0].Key != ""
}

// ── Parameters and literals ───────────────────────────────────────────────────

// parameter resolves path against the destination store, which already holds
// the merged source parameters. The resolved value is written in the source
// model's syntax and goes through the literal rules.
func (r *run) parameter(path, position string) graph.Argument {
	value, ok := r.resolve(path)
	if !ok {
		r.warn(position, fmt.Sprintf("parameter %q is not defined, kept as a reference", path))
		return graph.Param(path)
	}
	return graph.Value(value)
}

func (r *run) literal(value any, position string) graph.Argument {
	if s, ok := value.(string); ok && r.t.from.Placeholders {
		if path, isRef := parameters.ParseReference(s); isRef {
			return r.parameter(path, position)
		}
	}
	return graph.Value(r.literalValue(value, position))
}

// resolve looks a parameter up and applies the literal rules to its value.
// A parameter whose value refers back to itself resolves to the raw value.
func (r *run) resolve(path string) (any, bool) {
	store := r.work.Parameters
	if r.raw != nil {
		store = r.raw
	}
	value, ok := store.Lookup(path)
	if !ok {
		return nil, false
	}
	if r.resolving[path] {
		return value, true
	}
	r.resolving[path] = true
	defer delete(r.resolving, path)
	return r.literalValue(value, "%"+path+"%"), true
}

// literalValue copies a literal value into the destination model's syntax:
//
//   - same placeholder syntax on both sides: strings stay verbatim;
//   - placeholder-aware source, plain destination: %name% is interpolated
//     (a string that is exactly one reference takes the parameter's value);
//   - plain source, placeholder-aware destination: % is escaped as %%,
//     %env(...)% markers excepted.
//
// Maps and slices are walked with the same rules. %env(...)% markers are
// never resolved.
func (r *run) literalValue(value any, position string) any {
	switch v := value.(type) {
	case string:
		return r.literalString(v, position)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(v))
		for _, k := range keys {
			out[k] = r.literalValue(v[k], fmt.Sprintf("%s[%q]", position, k))
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = r.literalValue(item, fmt.Sprintf("%s[%d]", position, i))
		}
		return out
	default:
		return value
	}
}

func (r *run) literalString(s, position string) any {
	from, to := r.t.from.Placeholders, r.t.to.Placeholders
	switch {
	case from && to:
		return s
	case from:
		if path, ok := parameters.ParseReference(s); ok {
			if value, found := r.resolve(path); found {
				return value
			}
		}
		out, missing := parameters.Interpolate(s, r.resolve)
		for _, path := range missing {
			r.warn(position, fmt.Sprintf("placeholder %%%s%% is not defined, kept verbatim", path))
		}
		return out
	case to:
		if strings.Contains(s, "%") {
			return parameters.EscapeText(s)
		}
		return s
	default:
		return s
	}
}

func (r *run) warn(position, message string) {
	w := Warning{Service: r.service, Position: position, Message: message}
	r.result.Warnings = append(r.result.Warnings, w)
	r.t.logger.Warn(message,
		zap.String("service", r.service),
		zap.String("position", position),
	)
}
