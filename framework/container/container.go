package container

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"

	dierrors "github.com/km-arc/go-dibridge/framework/errors"
	"github.com/km-arc/go-dibridge/framework/graph"
	"github.com/km-arc/go-dibridge/framework/parameters"
)

// ── ReadOnly ──────────────────────────────────────────────────────────────────

// ReadOnly is the lookup surface of a realized container. *Container and
// *Adapter implement it.
type ReadOnly interface {
	Get(id string) (any, error)
	Has(id string) bool
	GetParameter(name string) (any, error)
	HasParameter(name string) bool
}

var errSyntheticNotProvided = errors.New("synthetic service has not been provided")

// ── Options ───────────────────────────────────────────────────────────────────

// Option configures Compile.
type Option func(*Container)

// WithLogger sets the logger used for build events.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithExternal registers the supplier of definitions mirrored from origin.
func WithExternal(origin string, supplier ReadOnly) Option {
	return func(c *Container) {
		c.externals[origin] = supplier
	}
}

// ── Container ─────────────────────────────────────────────────────────────────

// extender wraps an already-built instance with decorator logic.
type extender func(instance any, c *Container) (any, error)

// slot holds the shared instance of one service. value and err are final
// once done is closed.
type slot struct {
	done chan struct{}

	// resolution building the slot; nil when unclaimed or done
	builder *resolution

	value any
	err   error
}

func newSlot() *slot { return &slot{done: make(chan struct{})} }

// resolution is one top-level Get and everything it builds. waiting is the
// slot it blocks on while another resolution builds it. Guarded by the
// container's mu.
type resolution struct {
	waiting *slot
}

// trail is the path of a resolution: the services being built, innermost
// last.
type trail struct {
	owner *resolution
	ids   []string
}

func (t *trail) push(id string) *trail {
	return &trail{owner: t.owner, ids: append(t.ids[:len(t.ids):len(t.ids)], id)}
}

func (t *trail) cycle(id string) error {
	return dierrors.CircularReference(append(append([]string(nil), t.ids...), id))
}

// Container realizes a compiled graph. Services are shared: each is built
// once, on first Get, from its definition. Resolution errors (unknown
// service, missing parameter, ambiguous autowiring) surface at that point,
// never at Compile.
//
// Synthetic definitions are not built. Mirrored ones are fetched from the
// external supplier registered for their origin model; the others must be
// provided with Instance.
//
// A Container is safe for concurrent use once compiled.
type Container struct {
	mu sync.RWMutex

	graph    *graph.ContainerGraph
	model    graph.Model
	registry *Registry

	// service id → shared instance
	slots map[string]*slot
	ready map[string]bool

	// origin model name → supplier of mirrored definitions
	externals map[string]ReadOnly

	// service id → extender funcs
	extenders map[string][]extender

	afterResolving []func(id string, instance any)

	logger *zap.Logger
}

// Compile realizes g. The graph is copied; later changes to g do not affect
// the container. Abstract definitions are dropped and alias chains checked.
func Compile(g *graph.ContainerGraph, model graph.Model, registry *Registry, opts ...Option) (*Container, error) {
	if registry == nil {
		registry = NewRegistry()
	}
	c := &Container{
		graph:     g.Clone(),
		model:     model,
		registry:  registry,
		slots:     make(map[string]*slot),
		ready:     make(map[string]bool),
		externals: make(map[string]ReadOnly),
		extenders: make(map[string][]extender),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("model", model.Name))

	for _, d := range c.graph.Definitions() {
		if d.Abstract {
			c.graph.RemoveDefinition(d.Name)
		}
	}
	if err := c.graph.ValidateAliases(); err != nil {
		return nil, err
	}

	c.logger.Debug("container compiled",
		zap.Int("definitions", c.graph.Len()),
		zap.Int("aliases", len(c.graph.AliasNames())),
	)
	return c, nil
}

// Model returns the model the container realizes.
func (c *Container) Model() graph.Model { return c.model }

// Graph returns a copy of the realized graph, in the shape the reverse
// transform reads.
func (c *Container) Graph() *graph.ContainerGraph {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.graph.Clone()
}

// ── Registration ──────────────────────────────────────────────────────────────

// Instance provides the value of a synthetic service. A name without a
// definition gets a synthetic one.
//
//	c.Instance("service_container", container.NewAdapter(other))
func (c *Container) Instance(id string, instance any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, err := c.graph.ResolveAlias(id)
	if err != nil || !c.graph.HasDefinition(key) {
		key = id
		c.graph.Register(id, "").SetSynthetic(true).SetPublic(true)
	}

	s := &slot{done: make(chan struct{}), value: instance}
	close(s.done)
	c.slots[key] = s
	c.ready[key] = true
}

// SetExternal registers or replaces the supplier of definitions mirrored
// from origin. Suppliers may be set after Compile, which lets two
// containers mirror each other.
func (c *Container) SetExternal(origin string, supplier ReadOnly) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.externals[origin] = supplier
}

// Extend decorates the instance of id once it is built.
//
//	c.Extend("logger", func(instance any, c *container.Container) (any, error) {
//	    return &TimestampLogger{Inner: instance.(*Logger)}, nil
//	})
func (c *Container) Extend(id string, fn func(instance any, c *Container) (any, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.canonical(id)
	c.extenders[key] = append(c.extenders[key], fn)
}

// AfterResolving registers a callback fired after any service is built.
func (c *Container) AfterResolving(cb func(id string, instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Get returns the shared instance of id, building it on first use.
func (c *Container) Get(id string) (any, error) {
	return c.get(id, nil)
}

// Has reports whether Get(id) can produce a service: id resolves to a
// concrete definition, a provided instance or a mirrored service whose
// supplier knows it.
func (c *Container) Has(id string) bool {
	c.mu.RLock()
	key, err := c.graph.ResolveAlias(id)
	if err != nil {
		c.mu.RUnlock()
		return false
	}
	d, defined := c.graph.Definition(key)
	if !defined {
		c.mu.RUnlock()
		return false
	}
	_, provided := c.slots[key]
	supplier, external := c.externals[d.Origin]
	c.mu.RUnlock()

	switch {
	case !d.Synthetic:
		return true
	case d.Mirrored():
		return external && supplier.Has(d.OriginName)
	default:
		return provided
	}
}

// Initialized reports whether id has been built or provided.
func (c *Container) Initialized(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready[c.canonical(id)]
}

// MakeType resolves a service by its implementing type: the service named
// after the type if there is one, else the single autowired definition of
// that type. Several autowired definitions fail with AmbiguousAutowireError.
func (c *Container) MakeType(typeName string) (any, error) {
	c.mu.RLock()
	named := c.graph.Has(typeName)
	set := c.graph.Candidates(typeName)
	c.mu.RUnlock()

	if named {
		return c.Get(typeName)
	}
	switch len(set.Autowired) {
	case 0:
		return nil, dierrors.ServiceNotFound(typeName)
	case 1:
		return c.Get(set.Autowired[0])
	default:
		return nil, dierrors.AmbiguousAutowire(typeName, set.Autowired)
	}
}

// TaggedIDs returns the ids of definitions carrying tag, in definition order.
func (c *Container) TaggedIDs(tag string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var ids []string
	for _, d := range c.graph.Definitions() {
		if d.HasTag(tag) {
			ids = append(ids, d.Name)
		}
	}
	return ids
}

// Tagged builds every service carrying tag.
func (c *Container) Tagged(tag string) ([]any, error) {
	ids := c.TaggedIDs(tag)
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		v, err := c.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ServiceIDs returns every definition and alias name, sorted.
func (c *Container) ServiceIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := append(c.graph.DefinitionNames(), c.graph.AliasNames()...)
	sort.Strings(ids)
	return ids
}

// ── Parameters ────────────────────────────────────────────────────────────────

// GetParameter returns a parameter with its placeholders resolved.
func (c *Container) GetParameter(name string) (any, error) {
	v, err := c.graph.Parameters.Get(name)
	if err != nil {
		return nil, err
	}
	return c.resolveValue(v, map[string]bool{name: true})
}

func (c *Container) HasParameter(name string) bool {
	return c.graph.Parameters.Has(name)
}

// Parameters returns the parameter store of the realized graph.
func (c *Container) Parameters() *parameters.Store {
	return c.graph.Parameters
}

// ── Internals ─────────────────────────────────────────────────────────────────

// get resolves id on behalf of tr, nil for a top-level lookup. The first
// resolution to reach a slot builds it; the others wait for it. A wait that
// would close a loop of resolutions waiting on each other fails with a
// circular reference instead of blocking.
func (c *Container) get(id string, tr *trail) (any, error) {
	if tr == nil {
		tr = &trail{owner: &resolution{}}
	}

	c.mu.Lock()
	key, err := c.graph.ResolveAlias(id)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	s, ok := c.slots[key]
	d, defined := c.graph.Definition(key)
	switch {
	case ok:
	case !defined:
		c.mu.Unlock()
		return nil, dierrors.ServiceNotFound(id)
	case d.Synthetic && !d.Mirrored():
		c.mu.Unlock()
		e := dierrors.ServiceNotFound(id)
		e.Cause = errSyntheticNotProvided
		return nil, e
	default:
		s = newSlot()
		c.slots[key] = s
	}

	select {
	case <-s.done:
		c.mu.Unlock()
		return s.value, s.err
	default:
	}

	for _, b := range tr.ids {
		if b == key {
			c.mu.Unlock()
			return nil, tr.cycle(key)
		}
	}

	if s.builder == nil {
		s.builder = tr.owner
		c.mu.Unlock()

		value, err := c.create(d, tr.push(key))

		c.mu.Lock()
		s.value, s.err = value, err
		s.builder = nil
		close(s.done)
		c.mu.Unlock()
		return value, err
	}

	for r := s.builder; r != nil; {
		if r == tr.owner {
			c.mu.Unlock()
			return nil, tr.cycle(key)
		}
		if r.waiting == nil {
			break
		}
		r = r.waiting.builder
	}
	tr.owner.waiting = s
	c.mu.Unlock()

	<-s.done

	c.mu.Lock()
	tr.owner.waiting = nil
	c.mu.Unlock()
	return s.value, s.err
}

func (c *Container) create(d *graph.Definition, tr *trail) (any, error) {
	instance, err := c.build(d, tr)
	if err != nil {
		c.logger.Debug("service failed", zap.String("service", d.Name), zap.Error(err))
		return nil, dierrors.Wrap(d.Name, err)
	}

	c.mu.RLock()
	exts := c.extenders[d.Name]
	cbs := c.afterResolving
	c.mu.RUnlock()

	for _, ext := range exts {
		if instance, err = ext(instance, c); err != nil {
			return nil, dierrors.Wrap(d.Name, err)
		}
	}
	c.mu.Lock()
	c.ready[d.Name] = true
	c.mu.Unlock()

	for _, cb := range cbs {
		cb(d.Name, instance)
	}
	return instance, nil
}

// canonical resolves an alias to its definition name, or returns id.
func (c *Container) canonical(id string) string {
	if key, err := c.graph.ResolveAlias(id); err == nil {
		return key
	}
	return id
}

func (c *Container) external(origin string) (ReadOnly, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.externals[origin]
	return s, ok
}

// ── Reflect helpers ───────────────────────────────────────────────────────────

// TypeKey returns the package-qualified type name of v, usable as the type
// identifier of a definition.
//
//	key := container.TypeKey((*Mailer)(nil))  // "example.com/app.Mailer"
//	reg.Constructor(key, newMailer)
func TypeKey(v any) string {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() + "." + t.Name()
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve gets id from c and type-asserts the result.
//
//	mailer, err := container.Resolve[*Mailer](c, "mailer")
func Resolve[T any](c ReadOnly, id string) (T, error) {
	var zero T
	instance, err := c.Get(id)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("container: Resolve[%T]: [%s] resolved to %T", zero, id, instance)
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on failure. Meant for Boot code
// where a missing service is a programming error.
func MustResolve[T any](c ReadOnly, id string) T {
	typed, err := Resolve[T](c, id)
	if err != nil {
		panic(err)
	}
	return typed
}
