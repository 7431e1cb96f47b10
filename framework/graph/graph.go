// Package graph holds the container graph data model shared by both
// container models: definitions, aliases, a parameter store and resource
// markers.
//
// Definitions and aliases keep insertion order. Every walk over a graph
// happens in that order, which is what makes transforms reproducible.
//
//	g := graph.New()
//	g.Parameters.Set("mailer.transport", "smtp")
//
//	g.Register("mailer", "app.Mailer").
//	    SetArguments(graph.Param("mailer.transport"), graph.Ref("logger")).
//	    SetAutowired(true)
//
//	g.SetAlias("app.Mailer", graph.Alias{Target: "mailer"})
package graph

import (
	"sort"

	dierrors "github.com/km-arc/go-dibridge/framework/errors"
	"github.com/km-arc/go-dibridge/framework/parameters"
)

// Alias maps a name to another service name of the same graph.
type Alias struct {
	Target string
	Public bool
}

// ContainerGraph is the aggregate of one container's declarations.
type ContainerGraph struct {
	definitions     map[string]*Definition
	definitionOrder []string

	aliases    map[string]Alias
	aliasOrder []string

	// Parameters is the graph's parameter namespace.
	Parameters *parameters.Store

	resources   []string
	resourceSet map[string]bool
}

// New creates an empty graph whose parameter store uses the default
// separator.
func New() *ContainerGraph {
	return NewWithParameters(parameters.New(parameters.DefaultSeparator))
}

// NewWithParameters creates an empty graph around an existing store.
func NewWithParameters(store *parameters.Store) *ContainerGraph {
	return &ContainerGraph{
		definitions: make(map[string]*Definition),
		aliases:     make(map[string]Alias),
		Parameters:  store,
		resourceSet: make(map[string]bool),
	}
}

// ── Definitions ───────────────────────────────────────────────────────────────

// Register creates a definition of typeName under name, replacing any
// definition or alias of that name.
func (g *ContainerGraph) Register(name, typeName string) *Definition {
	return g.SetDefinition(name, NewDefinition(typeName))
}

// SetDefinition stores d under name. A replaced definition keeps its
// position in the order; an alias of the same name is removed.
func (g *ContainerGraph) SetDefinition(name string, d *Definition) *Definition {
	g.RemoveAlias(name)

	d.Name = name
	if _, exists := g.definitions[name]; !exists {
		g.definitionOrder = append(g.definitionOrder, name)
	}
	g.definitions[name] = d
	return d
}

// Definition returns the definition registered under name, without
// following aliases.
func (g *ContainerGraph) Definition(name string) (*Definition, bool) {
	d, ok := g.definitions[name]
	return d, ok
}

func (g *ContainerGraph) HasDefinition(name string) bool {
	_, ok := g.definitions[name]
	return ok
}

// Has reports whether name is a definition or an alias.
func (g *ContainerGraph) Has(name string) bool {
	return g.HasDefinition(name) || g.HasAlias(name)
}

func (g *ContainerGraph) RemoveDefinition(name string) {
	if _, ok := g.definitions[name]; !ok {
		return
	}
	delete(g.definitions, name)
	g.definitionOrder = without(g.definitionOrder, name)
}

// Definitions returns the definitions in insertion order.
func (g *ContainerGraph) Definitions() []*Definition {
	out := make([]*Definition, 0, len(g.definitionOrder))
	for _, name := range g.definitionOrder {
		out = append(out, g.definitions[name])
	}
	return out
}

// DefinitionNames returns the definition names in insertion order.
func (g *ContainerGraph) DefinitionNames() []string {
	return append([]string(nil), g.definitionOrder...)
}

// Len is the number of definitions.
func (g *ContainerGraph) Len() int { return len(g.definitionOrder) }

// FindDefinition resolves name through aliases to a definition.
func (g *ContainerGraph) FindDefinition(name string) (*Definition, error) {
	id, err := g.ResolveAlias(name)
	if err != nil {
		return nil, err
	}
	d, ok := g.definitions[id]
	if !ok {
		return nil, dierrors.ServiceNotFound(name)
	}
	return d, nil
}

// ── Aliases ───────────────────────────────────────────────────────────────────

// SetAlias stores an alias, replacing a definition of the same name.
func (g *ContainerGraph) SetAlias(name string, alias Alias) {
	g.RemoveDefinition(name)
	if _, exists := g.aliases[name]; !exists {
		g.aliasOrder = append(g.aliasOrder, name)
	}
	g.aliases[name] = alias
}

func (g *ContainerGraph) Alias(name string) (Alias, bool) {
	a, ok := g.aliases[name]
	return a, ok
}

func (g *ContainerGraph) HasAlias(name string) bool {
	_, ok := g.aliases[name]
	return ok
}

func (g *ContainerGraph) RemoveAlias(name string) {
	if _, ok := g.aliases[name]; !ok {
		return
	}
	delete(g.aliases, name)
	g.aliasOrder = without(g.aliasOrder, name)
}

// AliasNames returns alias names in insertion order.
func (g *ContainerGraph) AliasNames() []string {
	return append([]string(nil), g.aliasOrder...)
}

// ResolveAlias follows the alias chain starting at name and returns the
// first name that is not an alias. A chain that revisits a name fails with
// CyclicAliasError.
func (g *ContainerGraph) ResolveAlias(name string) (string, error) {
	seen := map[string]bool{}
	chain := []string{name}
	id := name
	for {
		alias, ok := g.aliases[id]
		if !ok {
			return id, nil
		}
		seen[id] = true
		id = alias.Target
		chain = append(chain, id)
		if seen[id] {
			return "", dierrors.CyclicAlias(chain)
		}
	}
}

// ValidateAliases checks every alias chain for cycles, in alias order.
// Dangling targets are not an error here; they fail when looked up.
func (g *ContainerGraph) ValidateAliases() error {
	for _, name := range g.aliasOrder {
		if _, err := g.ResolveAlias(name); err != nil {
			return err
		}
	}
	return nil
}

// ── Autowire candidates ───────────────────────────────────────────────────────

// CandidateSet lists the non-abstract definitions implementing one type,
// partitioned by whether they opted into autowiring. Names are in
// definition order.
type CandidateSet struct {
	Type      string
	Autowired []string
	Other     []string
}

// CandidateSets derives the candidate sets of every implemented type,
// sorted by type.
func (g *ContainerGraph) CandidateSets() []CandidateSet {
	byType := make(map[string]*CandidateSet)
	for _, name := range g.definitionOrder {
		d := g.definitions[name]
		if d.Type == "" || d.Abstract {
			continue
		}
		set, ok := byType[d.Type]
		if !ok {
			set = &CandidateSet{Type: d.Type}
			byType[d.Type] = set
		}
		if d.Autowired {
			set.Autowired = append(set.Autowired, name)
		} else {
			set.Other = append(set.Other, name)
		}
	}

	out := make([]CandidateSet, 0, len(byType))
	for _, set := range byType {
		out = append(out, *set)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Candidates returns the candidate set of one type.
func (g *ContainerGraph) Candidates(typeName string) CandidateSet {
	set := CandidateSet{Type: typeName}
	for _, name := range g.definitionOrder {
		d := g.definitions[name]
		if d.Type != typeName || d.Abstract {
			continue
		}
		if d.Autowired {
			set.Autowired = append(set.Autowired, name)
		} else {
			set.Other = append(set.Other, name)
		}
	}
	return set
}

// ── Resources ─────────────────────────────────────────────────────────────────

// AddResource records a marker (file path, type name) the graph depends on.
// Duplicates are ignored; order is kept.
func (g *ContainerGraph) AddResource(marker string) {
	if g.resourceSet[marker] {
		return
	}
	g.resourceSet[marker] = true
	g.resources = append(g.resources, marker)
}

// Resources returns the markers in the order they were added.
func (g *ContainerGraph) Resources() []string {
	return append([]string(nil), g.resources...)
}

// ── Copying ───────────────────────────────────────────────────────────────────

// Clone returns a deep copy of the graph.
func (g *ContainerGraph) Clone() *ContainerGraph {
	out := NewWithParameters(g.Parameters.Clone())
	c := cloner{}
	for _, name := range g.definitionOrder {
		out.definitions[name] = c.definition(g.definitions[name])
	}
	out.definitionOrder = append([]string(nil), g.definitionOrder...)
	for _, name := range g.aliasOrder {
		out.aliases[name] = g.aliases[name]
	}
	out.aliasOrder = append([]string(nil), g.aliasOrder...)
	for _, r := range g.resources {
		out.AddResource(r)
	}
	return out
}

// Adopt replaces the contents of g with those of other. other must not be
// used afterwards.
func (g *ContainerGraph) Adopt(other *ContainerGraph) {
	*g = *other
}

func without(list []string, name string) []string {
	for i, n := range list {
		if n == name {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
