package transform

import (
	"github.com/km-arc/go-dibridge/framework/graph"
	"github.com/km-arc/go-dibridge/framework/naming"
)

// Pair bundles both directions between two models. The forward transformer
// maps names with the codec's table, the backward one with its inverse, so
// a service renamed on the way out comes back under its original name.
//
// Each direction keeps its own Context for the lifetime of the Pair, which
// makes repeated invocations within one build reuse anonymous names.
type Pair struct {
	codec    *naming.Codec
	forward  *Transformer
	backward *Transformer

	forwardCtx  *Context
	backwardCtx *Context
}

// NewPair builds the transformers between source and destination. opts
// apply to both directions; name options are overridden by the codec.
func NewPair(source, destination graph.Model, table naming.Table, opts ...Option) *Pair {
	codec := naming.New(source, destination, table)
	return &Pair{
		codec:       codec,
		forward:     New(source, destination, withNames(opts, codec.Forward())...),
		backward:    New(destination, source, withNames(opts, codec.Backward())...),
		forwardCtx:  NewContext(),
		backwardCtx: NewContext(),
	}
}

// Codec returns the name codec shared by both directions.
func (p *Pair) Codec() *naming.Codec { return p.codec }

// Forward returns the source → destination transformer.
func (p *Pair) Forward() *Transformer { return p.forward }

// Backward returns the destination → source transformer.
func (p *Pair) Backward() *Transformer { return p.backward }

// ToDestination transforms a source-model graph into a destination-model
// graph.
func (p *Pair) ToDestination(src, dst *graph.ContainerGraph) (*Result, error) {
	return p.forward.TransformWith(p.forwardCtx, src, dst)
}

// ToSource transforms a destination-model graph back into a source-model
// graph.
func (p *Pair) ToSource(src, dst *graph.ContainerGraph) (*Result, error) {
	return p.backward.TransformWith(p.backwardCtx, src, dst)
}

func withNames(opts []Option, names naming.Mapper) []Option {
	out := make([]Option, 0, len(opts)+1)
	out = append(out, opts...)
	return append(out, WithNames(names))
}
