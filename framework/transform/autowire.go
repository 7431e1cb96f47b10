package transform

import (
	"go.uber.org/zap"

	"github.com/km-arc/go-dibridge/framework/graph"
)

// Ambiguity is a type with several autowire candidates and nothing to pick
// one. Resolving the type by autowiring fails at use.
type Ambiguity struct {
	Type       string
	Candidates []string
}

// ResolveAutowire disambiguates the autowire candidate sets of g once all
// definitions and aliases are known.
//
// A type with several autowired candidates and an alias (or definition)
// named after it keeps the autowired flag only on the service that name
// resolves to. A type with a single autowired candidate gets a private
// alias named after it when the model autowires through aliases. Every
// other multi-candidate type is returned as an Ambiguity.
func ResolveAutowire(g *graph.ContainerGraph, model graph.Model, logger *zap.Logger) []Ambiguity {
	if logger == nil {
		logger = zap.NewNop()
	}
	return resolveAutowire(g, model, logger)
}

func resolveAutowire(g *graph.ContainerGraph, model graph.Model, logger *zap.Logger) []Ambiguity {
	var ambiguities []Ambiguity

	for _, set := range g.CandidateSets() {
		switch {
		case len(set.Autowired) == 1:
			if model.AutowireAliases && !g.Has(set.Type) {
				g.SetAlias(set.Type, graph.Alias{Target: set.Autowired[0]})
				logger.Debug("autowire alias added",
					zap.String("type", set.Type),
					zap.String("alias", set.Autowired[0]),
				)
			}

		case len(set.Autowired) > 1:
			chosen, ok := preferred(g, set)
			if !ok {
				ambiguities = append(ambiguities, Ambiguity{Type: set.Type, Candidates: set.Autowired})
				logger.Warn("ambiguous autowire candidates",
					zap.String("type", set.Type),
					zap.Strings("candidates", set.Autowired),
				)
				continue
			}
			for _, name := range set.Autowired {
				if name == chosen {
					continue
				}
				d, _ := g.Definition(name)
				d.Autowired = false
			}
			logger.Debug("autowire disambiguated",
				zap.String("type", set.Type),
				zap.String("alias", chosen),
			)
		}
	}
	return ambiguities
}

// preferred returns the candidate the graph names after the type, if any.
func preferred(g *graph.ContainerGraph, set graph.CandidateSet) (string, bool) {
	if !g.Has(set.Type) {
		return "", false
	}
	name, err := g.ResolveAlias(set.Type)
	if err != nil {
		return "", false
	}
	for _, candidate := range set.Autowired {
		if candidate == name {
			return name, true
		}
	}
	return "", false
}
