package transform

import "github.com/km-arc/go-dibridge/framework/graph"

// Result describes one successful transform.
type Result struct {
	// Graph is the destination graph, now holding the transformed contents.
	Graph *graph.ContainerGraph

	// Created and Reused list destination definition names in the order the
	// source definitions were visited.
	Created []string
	Reused  []string

	// Anonymous lists names allocated for inline definitions.
	Anonymous []string

	// Skipped lists source definitions and aliases that were not
	// transformed (abstract, synthetic, suppressed, already present).
	Skipped []string

	// Warnings are non-fatal outcomes such as dropped references.
	Warnings []Warning

	// Ambiguities are types left with several autowire candidates. They
	// fail only when something resolves the type.
	Ambiguities []Ambiguity
}

// Warning is a non-fatal transform outcome.
type Warning struct {
	Service  string
	Position string
	Message  string
}

func (w Warning) String() string {
	if w.Position == "" {
		return w.Service + ": " + w.Message
	}
	return w.Service + " " + w.Position + ": " + w.Message
}
