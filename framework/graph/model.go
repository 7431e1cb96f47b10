package graph

import (
	"strings"
	"unicode"
)

// Model describes the conventions of one container model. The transformer
// reads every model-specific decision from here instead of hard-coding a
// side.
type Model struct {
	Name string

	// LazyCollections is true when the model has a primitive for iterables
	// evaluated at call time. Without it LazyCollection arguments degrade to
	// eager Collections.
	LazyCollections bool

	// Closures is true when the model can defer a single value to call time.
	Closures bool

	// Placeholders is true when literal strings may embed %name% parameter
	// placeholders (with %% as an escaped percent).
	Placeholders bool

	// AutowireAliases is true when the model resolves a type by looking up
	// an alias named after it; a lone autowire candidate then gets one.
	AutowireAliases bool

	// Legal reports whether r may appear in a service name. Nil allows
	// everything.
	Legal func(r rune) bool

	// Replace maps illegal runes to preferred substitutes. Illegal runes
	// without an entry become '_'.
	Replace map[rune]rune
}

// Compiled is model A: a compile-time graph with restricted service names,
// parameters already expanded, no lazy iterables.
var Compiled = Model{
	Name:     "compiled",
	Closures: true,
	Legal: func(r rune) bool {
		return r == '_' || r == '.' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
	},
	Replace: map[rune]rune{'-': '_', '\\': '.'},
}

// Runtime is model B: a runtime container with free-form names, %name%
// placeholders, lazy iterables and alias-based autowiring.
var Runtime = Model{
	Name:            "runtime",
	LazyCollections: true,
	Closures:        true,
	Placeholders:    true,
	AutowireAliases: true,
}

// SanitizeName rewrites name into the model's legal charset. It never fails;
// an empty result becomes "_".
func (m Model) SanitizeName(name string) string {
	if m.Legal == nil {
		return name
	}
	out := strings.Map(func(r rune) rune {
		if m.Legal(r) {
			return r
		}
		if sub, ok := m.Replace[r]; ok {
			return sub
		}
		return '_'
	}, name)
	if out == "" {
		return "_"
	}
	return out
}

// LegalName reports whether name needs no sanitizing.
func (m Model) LegalName(name string) bool {
	if name == "" {
		return false
	}
	if m.Legal == nil {
		return true
	}
	for _, r := range name {
		if !m.Legal(r) {
			return false
		}
	}
	return true
}
