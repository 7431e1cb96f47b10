// Package transform converts a container graph of one model into a legal
// graph of another model.
//
//	pair := transform.NewPair(graph.Compiled, graph.Runtime, naming.Table{
//	    "foo": naming.To("Foo"),
//	}, transform.WithLogger(logger))
//
//	// A → B: compiled services become synthetic entries of the runtime graph
//	res, err := pair.ToDestination(compiledGraph, runtimeGraph)
//
//	// ... the runtime side compiles itself ...
//
//	// B → A: reflect the realized runtime graph back
//	res, err = pair.ToSource(runtimeGraph, compiledGraph)
//
// A transform runs in a fixed order: parameters, aliases, definitions,
// alias validation, autowire disambiguation, resource markers. It works on
// a copy of the destination and publishes it only when every step
// succeeded, so a failed transform leaves the destination untouched.
package transform

import (
	"fmt"

	"go.uber.org/zap"

	dierrors "github.com/km-arc/go-dibridge/framework/errors"
	"github.com/km-arc/go-dibridge/framework/graph"
	"github.com/km-arc/go-dibridge/framework/naming"
	"github.com/km-arc/go-dibridge/framework/parameters"
)

// Transformer converts graphs of model from into graphs of model to.
type Transformer struct {
	from   graph.Model
	to     graph.Model
	names  naming.Mapper
	logger *zap.Logger
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithLogger sets the logger used for warnings and skips.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Transformer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithNames sets the service name mapping. The default sanitizes names for
// the destination model.
func WithNames(names naming.Mapper) Option {
	return func(t *Transformer) {
		if names != nil {
			t.names = names
		}
	}
}

// New creates a transformer from one model to another.
func New(from, to graph.Model, opts ...Option) *Transformer {
	t := &Transformer{
		from:   from,
		to:     to,
		names:  naming.Identity(from, to).Forward(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With(zap.String("from", from.Name), zap.String("to", to.Name))
	return t
}

// From returns the source model.
func (t *Transformer) From() graph.Model { return t.from }

// To returns the destination model.
func (t *Transformer) To() graph.Model { return t.to }

// Transform converts src into dst with a fresh Context.
func (t *Transformer) Transform(src, dst *graph.ContainerGraph) (*Result, error) {
	return t.TransformWith(NewContext(), src, dst)
}

// TransformWith converts src into dst. src is only read. dst receives the
// result when, and only when, the whole transform succeeds.
func (t *Transformer) TransformWith(ctx *Context, src, dst *graph.ContainerGraph) (*Result, error) {
	if ctx == nil {
		ctx = NewContext()
	}
	r := &run{
		t:         t,
		ctx:       ctx,
		src:       src,
		dst:       dst,
		work:      dst.Clone(),
		result:    &Result{},
		resolving: make(map[string]bool),
	}

	r.parameters()
	r.aliases()
	if err := r.definitions(); err != nil {
		return nil, err
	}
	if err := r.work.ValidateAliases(); err != nil {
		return nil, err
	}
	r.result.Ambiguities = resolveAutowire(r.work, t.to, t.logger)
	r.resources()

	dst.Adopt(r.work)
	r.result.Graph = dst

	t.logger.Debug("graph transformed",
		zap.Int("created", len(r.result.Created)),
		zap.Int("reused", len(r.result.Reused)),
		zap.Int("anonymous", len(r.result.Anonymous)),
		zap.Int("warnings", len(r.result.Warnings)),
	)
	return r.result, nil
}

// run is the state of one invocation.
type run struct {
	t      *Transformer
	ctx    *Context
	src    *graph.ContainerGraph
	dst    *graph.ContainerGraph
	work   *graph.ContainerGraph
	result *Result

	// raw holds the merged parameters before conversion to the destination
	// syntax; nil when both models share it
	raw *parameters.Store

	// service is the source definition being transformed, for errors and
	// warnings.
	service string

	// parameters currently being resolved, to stop self-references
	resolving map[string]bool
}

// ── (a) parameters ────────────────────────────────────────────────────────────

// parameters merges the source's explicit parameters into the destination
// and rewrites their values in the destination's placeholder syntax, the
// same way argument literals are rewritten. References between parameters
// resolve against the values as merged, before any rewriting.
func (r *run) parameters() {
	r.work.Parameters.MergeFrom(r.src.Parameters)
	if r.t.from.Placeholders == r.t.to.Placeholders {
		return
	}

	r.raw = r.work.Parameters.Clone()
	for _, key := range r.src.Parameters.SetOrder() {
		value, _ := r.raw.Lookup(key)
		r.work.Parameters.Set(key, r.literalValue(value, "%"+key+"%"))
	}
}

// ── (b) aliases ───────────────────────────────────────────────────────────────

func (r *run) aliases() {
	for _, name := range r.src.AliasNames() {
		alias, _ := r.src.Alias(name)

		destName, ok := r.t.names(name)
		if !ok {
			r.skip(name, "alias name suppressed")
			continue
		}
		target, ok := r.t.names(alias.Target)
		if !ok {
			r.skip(name, "alias target suppressed")
			continue
		}
		if r.work.Has(destName) {
			r.skip(name, "destination already defines "+destName)
			continue
		}

		r.work.SetAlias(destName, graph.Alias{Target: target, Public: alias.Public})
	}
}

// ── (c) definitions ───────────────────────────────────────────────────────────

func (r *run) definitions() error {
	for _, d := range r.src.Definitions() {
		if err := r.definition(d); err != nil {
			return err
		}
	}
	r.service = ""
	return nil
}

func (r *run) definition(d *graph.Definition) error {
	r.service = d.Name

	switch {
	case d.Abstract:
		r.skip(d.Name, "abstract")
		return nil
	case d.Synthetic && !d.Mirrored():
		r.skip(d.Name, "synthetic")
		return nil
	}

	name, ok := r.t.names(d.Name)
	if !ok {
		r.skip(d.Name, "name suppressed")
		return nil
	}

	// A mirror of one of the destination's own services: the owner keeps
	// its definition.
	if d.Mirrored() && d.Origin == r.t.to.Name && r.work.Has(name) {
		r.skip(d.Name, "owned by "+r.t.to.Name)
		return nil
	}

	target, reused, err := r.target(name, d)
	if err != nil {
		return err
	}

	if err := r.fill(target, d, ""); err != nil {
		return err
	}
	target.Autowired = d.Autowired
	target.Abstract = false
	target.Public = true
	target.Mirror(r.t.from.Name, d.Name)

	if reused {
		r.result.Reused = append(r.result.Reused, target.Name)
	} else {
		r.result.Created = append(r.result.Created, target.Name)
	}
	return nil
}

// target returns the destination definition for a source definition: the
// one already registered under name (directly or through an alias) or a new
// one. Reuse is refused when the implementing types disagree.
func (r *run) target(name string, d *graph.Definition) (*graph.Definition, bool, error) {
	if r.work.Has(name) {
		existing, err := r.work.FindDefinition(name)
		switch {
		case err == nil:
			if existing.Type != "" && d.Type != "" && existing.Type != d.Type {
				return nil, false, dierrors.DuplicateDefinitionConflict(d.Name, existing.Type, d.Type)
			}
			return existing, true, nil
		case dierrors.IsNotFound(err):
			// dangling alias, replaced by the definition below
		default:
			return nil, false, err
		}
	}
	return r.work.Register(name, d.Type), false, nil
}

// fill copies type, tags, factory, arguments and method calls of src into
// dst, transforming every argument tree. prefix is prepended to argument
// positions.
func (r *run) fill(dst, src *graph.Definition, prefix string) error {
	if dst.Type == "" {
		dst.Type = src.Type
	}
	dst.Tags = src.Clone().Tags

	factory, err := r.factory(src.Factory, prefix+"factory")
	if err != nil {
		return err
	}
	dst.Factory = factory

	args, err := r.arguments(src.Arguments, prefix+"arguments")
	if err != nil {
		return err
	}
	dst.Arguments = args

	dst.Calls = nil
	for i, call := range src.Calls {
		args, err := r.arguments(call.Arguments, fmt.Sprintf("%scalls[%d]", prefix, i))
		if err != nil {
			return err
		}
		dst.Calls = append(dst.Calls, graph.MethodCall{Method: call.Method, Arguments: args})
	}
	return nil
}

func (r *run) factory(f *graph.Factory, position string) (*graph.Factory, error) {
	if f == nil {
		return nil, nil
	}
	switch target := f.Target.(type) {
	case graph.Literal:
		return &graph.Factory{Target: target, Method: f.Method}, nil
	case graph.ServiceRef, graph.InlineDefinition:
		transformed, err := r.argument(target, position)
		if err != nil {
			return nil, err
		}
		if transformed == nil {
			r.warn(position, "factory target has no destination name, factory dropped")
			return nil, nil
		}
		return &graph.Factory{Target: transformed, Method: f.Method}, nil
	default:
		return nil, dierrors.UnsupportedArgument(r.service, position, f.Target)
	}
}

// ── (e) resources ─────────────────────────────────────────────────────────────

func (r *run) resources() {
	for _, marker := range r.src.Resources() {
		r.work.AddResource(marker)
	}
}

func (r *run) skip(name, reason string) {
	r.result.Skipped = append(r.result.Skipped, name)
	r.t.logger.Debug("skipped", zap.String("service", name), zap.String("reason", reason))
}
