package graph

import "sort"

// Argument is one node of an argument tree. The set of variants is closed:
// Literal, ParameterRef, ServiceRef, Collection, InlineDefinition, Closure
// and LazyCollection. Code switching over arguments must handle all seven.
//
// A nil Argument marks an absent position, e.g. a reference that could not
// be mapped to the destination model.
type Argument interface {
	isArgument()
}

// Literal is a plain value: scalar, []any or map[string]any.
type Literal struct {
	Value any
}

// ParameterRef is a dotted lookup into the parameter store.
type ParameterRef struct {
	Path string
}

// ServiceRef references another service by name.
type ServiceRef struct {
	Name string
}

// Entry is one element of a Collection or LazyCollection. Key is empty for
// positional collections.
type Entry struct {
	Key   string
	Value Argument
}

// Collection is an eagerly evaluated list or map of arguments.
type Collection struct {
	Entries []Entry
	Keyed   bool
}

// InlineDefinition is an anonymous definition nested in an argument
// position. Identity is the pointer: the same *Definition referenced from
// two positions is one service.
type InlineDefinition struct {
	Definition *Definition
}

// Closure defers evaluation of Inner to call time.
type Closure struct {
	Inner Argument
}

// LazyCollection yields its entries at call time without instantiating them
// up front.
type LazyCollection struct {
	Entries []Entry
}

func (Literal) isArgument()          {}
func (ParameterRef) isArgument()     {}
func (ServiceRef) isArgument()       {}
func (Collection) isArgument()       {}
func (InlineDefinition) isArgument() {}
func (Closure) isArgument()          {}
func (LazyCollection) isArgument()   {}

// ── Constructors ──────────────────────────────────────────────────────────────

func Value(v any) Literal                   { return Literal{Value: v} }
func Param(path string) ParameterRef        { return ParameterRef{Path: path} }
func Ref(name string) ServiceRef            { return ServiceRef{Name: name} }
func Defer(inner Argument) Closure          { return Closure{Inner: inner} }
func Inline(d *Definition) InlineDefinition { return InlineDefinition{Definition: d} }

// List builds a positional Collection.
func List(args ...Argument) Collection {
	entries := make([]Entry, len(args))
	for i, a := range args {
		entries[i] = Entry{Value: a}
	}
	return Collection{Entries: entries}
}

// Map builds a keyed Collection with entries in sorted key order.
func Map(args map[string]Argument) Collection {
	return Collection{Entries: sortedEntries(args), Keyed: true}
}

// Lazy builds a keyed LazyCollection with entries in sorted key order.
func Lazy(args map[string]Argument) LazyCollection {
	return LazyCollection{Entries: sortedEntries(args)}
}

// LazyList builds a positional LazyCollection.
func LazyList(args ...Argument) LazyCollection {
	return LazyCollection{Entries: List(args...).Entries}
}

func sortedEntries(args map[string]Argument) []Entry {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]Entry, len(keys))
	for i, k := range keys {
		entries[i] = Entry{Key: k, Value: args[k]}
	}
	return entries
}

// ── Copying ───────────────────────────────────────────────────────────────────

// cloner deep-copies argument trees while keeping inline definitions that
// are shared between positions shared in the copy.
type cloner map[*Definition]*Definition

func (c cloner) argument(a Argument) Argument {
	switch v := a.(type) {
	case nil:
		return nil
	case Literal:
		return Literal{Value: cloneValue(v.Value)}
	case ParameterRef, ServiceRef:
		return v
	case Collection:
		return Collection{Entries: c.entries(v.Entries), Keyed: v.Keyed}
	case LazyCollection:
		return LazyCollection{Entries: c.entries(v.Entries)}
	case Closure:
		return Closure{Inner: c.argument(v.Inner)}
	case InlineDefinition:
		return InlineDefinition{Definition: c.definition(v.Definition)}
	default:
		// Unknown variants are reported by the transformer, not here.
		return a
	}
}

func (c cloner) arguments(args []Argument) []Argument {
	if args == nil {
		return nil
	}
	out := make([]Argument, len(args))
	for i, a := range args {
		out[i] = c.argument(a)
	}
	return out
}

func (c cloner) entries(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{Key: e.Key, Value: c.argument(e.Value)}
	}
	return out
}

func (c cloner) definition(d *Definition) *Definition {
	if d == nil {
		return nil
	}
	if copied, ok := c[d]; ok {
		return copied
	}
	out := *d
	c[d] = &out

	out.Arguments = c.arguments(d.Arguments)
	if d.Factory != nil {
		out.Factory = &Factory{Target: c.argument(d.Factory.Target), Method: d.Factory.Method}
	}
	if d.Calls != nil {
		out.Calls = make([]MethodCall, len(d.Calls))
		for i, call := range d.Calls {
			out.Calls[i] = MethodCall{Method: call.Method, Arguments: c.arguments(call.Arguments)}
		}
	}
	out.Tags = cloneTags(d.Tags)
	return &out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

func cloneTags(tags map[string]map[string]any) map[string]map[string]any {
	if tags == nil {
		return nil
	}
	out := make(map[string]map[string]any, len(tags))
	for name, attrs := range tags {
		copied := make(map[string]any, len(attrs))
		for k, v := range attrs {
			copied[k] = cloneValue(v)
		}
		out[name] = copied
	}
	return out
}
