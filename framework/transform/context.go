package transform

import (
	"fmt"

	"github.com/km-arc/go-dibridge/framework/graph"
)

// Context carries the state that must survive between transform
// invocations of one build: which inline source definitions were already
// materialized, and under which destination name.
//
// Pass the same Context to every invocation that targets the same
// destination graph; use a fresh one for unrelated transforms. A name is
// only reused in the graph it was allocated in. Nothing is kept in
// package-level state.
type Context struct {
	anonymous map[*graph.Definition]allocation
}

// allocation is where an inline source definition was materialized.
type allocation struct {
	graph *graph.ContainerGraph
	name  string
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{anonymous: make(map[*graph.Definition]allocation)}
}

// AnonymousName returns the name last allocated for an inline source
// definition.
func (c *Context) AnonymousName(d *graph.Definition) (string, bool) {
	a, ok := c.anonymous[d]
	return a.name, ok
}

// Len is the number of inline definitions materialized so far.
func (c *Context) Len() int { return len(c.anonymous) }

// ── Anonymous definitions ─────────────────────────────────────────────────────

// anonymousName is the allocation rule: "<n>_<type>" where n starts at the
// destination's definition count plus one and advances past taken names.
// Only the destination's contents and the type take part, so a rerun over an
// unchanged graph allocates the same names.
func anonymousName(dst *graph.ContainerGraph, model graph.Model, typeName string) string {
	base := "anonymous"
	if typeName != "" {
		base = model.SanitizeName(typeName)
	}
	for n := dst.Len() + 1; ; n++ {
		name := fmt.Sprintf("%d_%s", n, base)
		if !dst.Has(name) {
			return name
		}
	}
}

// nameFor returns the destination name of an inline source definition,
// registering and transforming it on first encounter. A name remembered
// from an earlier invocation is reused only for the same destination graph,
// and only while that graph still holds it.
func (r *run) nameFor(d *graph.Definition, position string) (string, error) {
	if a, ok := r.ctx.anonymous[d]; ok && a.graph == r.dst && r.work.HasDefinition(a.name) {
		return a.name, nil
	}

	name := anonymousName(r.work, r.t.to, d.Type)
	r.ctx.anonymous[d] = allocation{graph: r.dst, name: name}

	def := r.work.Register(name, d.Type)
	if err := r.fill(def, d, position+"<"+name+">."); err != nil {
		return "", err
	}
	def.Autowired = false

	r.result.Anonymous = append(r.result.Anonymous, name)
	return name, nil
}
