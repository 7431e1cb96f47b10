// Package naming maps service names between the conventions of two
// container models.
//
//	codec := naming.New(graph.Compiled, graph.Runtime, naming.Table{
//	    "foo":       naming.To("Foo"),   // rename
//	    "debug.bar": naming.Suppress(),  // never transform
//	})
//
//	codec.ToDestination("foo")   // "Foo", true
//	codec.ToSource("Foo")        // "foo", true
//	codec.ToDestination("debug.bar") // "", false
//
// Names without an entry go through the sanitizer of the model they are
// heading to. A Codec holds no state besides its configuration.
package naming

import (
	"sort"

	"github.com/km-arc/go-dibridge/framework/graph"
)

// Table redirects (non-nil value) or suppresses (nil value) source names.
type Table map[string]*string

// To is a Table value that renames.
func To(name string) *string { return &name }

// Suppress is a Table value that keeps a name from being transformed.
func Suppress() *string { return nil }

// Codec maps names from a source model to a destination model and back.
type Codec struct {
	source      graph.Model
	destination graph.Model

	forward Table
	reverse Table
}

// New builds a codec. The reverse table is the inverse of table; when two
// source names rename to the same destination name the lexically smallest
// source name wins the reverse mapping.
func New(source, destination graph.Model, table Table) *Codec {
	c := &Codec{
		source:      source,
		destination: destination,
		forward:     make(Table, len(table)),
		reverse:     make(Table),
	}

	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, from := range keys {
		to := table[from]
		c.forward[from] = to
		if to == nil {
			continue
		}
		if _, taken := c.reverse[*to]; !taken {
			c.reverse[*to] = To(from)
		}
	}
	return c
}

// Identity returns a codec without overrides.
func Identity(source, destination graph.Model) *Codec {
	return New(source, destination, nil)
}

// ToDestination maps a source name. ok is false when the table suppresses
// the name.
func (c *Codec) ToDestination(name string) (string, bool) {
	return c.apply(c.forward, c.destination, name)
}

// ToSource maps a destination name back.
func (c *Codec) ToSource(name string) (string, bool) {
	return c.apply(c.reverse, c.source, name)
}

// Source returns the model ToSource maps into.
func (c *Codec) Source() graph.Model { return c.source }

// Destination returns the model ToDestination maps into.
func (c *Codec) Destination() graph.Model { return c.destination }

func (c *Codec) apply(table Table, model graph.Model, name string) (string, bool) {
	if to, ok := table[name]; ok {
		if to == nil {
			return "", false
		}
		return *to, true
	}
	return model.SanitizeName(name), true
}

// Mapper is one direction of a Codec.
type Mapper func(name string) (string, bool)

// Forward returns ToDestination as a Mapper.
func (c *Codec) Forward() Mapper { return c.ToDestination }

// Backward returns ToSource as a Mapper.
func (c *Codec) Backward() Mapper { return c.ToSource }
