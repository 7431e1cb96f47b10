// Package parameters implements the parameter namespace of a container graph.
//
// A Store maps dotted paths to values. Setting a nested value (a
// map[string]any or []any) additionally derives one entry per intermediate
// node and leaf, so the value can be read as a whole or leaf by leaf:
//
//	s := parameters.New(".")
//	s.Set("db", map[string]any{"primary": map[string]any{"host": "10.0.0.1"}})
//
//	s.Get("db")                  // the whole map
//	s.Get("db.primary")          // map[string]any{"host": "10.0.0.1"}
//	s.Get("db.primary.host")     // "10.0.0.1"
//
//	s.Remove("db")               // removes db, db.primary and db.primary.host
//
// Precedence rules:
//   - expansion never overwrites a key that already exists;
//   - an explicit Set always wins, and detaches a derived key from its owner;
//   - re-setting an owner drops the keys it derived before;
//   - replacing or removing a derived node drops what its owner derived below it.
//
// Environment placeholders such as %env(DB_HOST)% are stored verbatim.
package parameters

import (
	"sort"
	"strconv"
	"strings"

	dierrors "github.com/km-arc/go-dibridge/framework/errors"
)

// DefaultSeparator joins path segments of derived keys.
const DefaultSeparator = "."

// Store is a parameter bag with nested-value expansion. The zero value is
// not usable; call New.
type Store struct {
	separator string

	values map[string]any

	// keys set through Set
	explicit map[string]bool

	// owner → derived keys, in derivation order
	derived map[string][]string

	// derived key → owner
	owners map[string]string

	// explicit key → position of its last Set
	setAt map[string]uint64
	clock uint64
}

// New creates an empty store. An empty separator means DefaultSeparator.
func New(separator string) *Store {
	if separator == "" {
		separator = DefaultSeparator
	}
	return &Store{
		separator: separator,
		values:    make(map[string]any),
		explicit:  make(map[string]bool),
		derived:   make(map[string][]string),
		owners:    make(map[string]string),
		setAt:     make(map[string]uint64),
	}
}

// Separator returns the configured path separator.
func (s *Store) Separator() string { return s.separator }

// ── Mutation ──────────────────────────────────────────────────────────────────

// Set stores value under path and expands nested values into derived keys.
func (s *Store) Set(path string, value any) {
	s.detach(path)
	s.dropDerived(path)
	s.pruneInherited(path)

	s.values[path] = value
	s.explicit[path] = true
	s.clock++
	s.setAt[path] = s.clock

	s.expand(path, path, value)
}

// Add sets every entry of values, in sorted key order so the result does not
// depend on map iteration.
func (s *Store) Add(values map[string]any) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.Set(k, values[k])
	}
}

// Remove deletes path and every key derived from it. Keys that were set
// explicitly are never removed by the cascade.
func (s *Store) Remove(path string) {
	s.detach(path)
	s.dropDerived(path)
	s.pruneInherited(path)
	delete(s.values, path)
	delete(s.explicit, path)
	delete(s.setAt, path)
}

// expand walks value depth first. prefix is the path of value itself and is
// passed down by value; no shared breadcrumb state.
func (s *Store) expand(owner, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			key := prefix + s.separator + k
			s.derive(owner, key, v[k])
			s.expand(owner, key, v[k])
		}
	case []any:
		for i, item := range v {
			key := prefix + s.separator + strconv.Itoa(i)
			s.derive(owner, key, item)
			s.expand(owner, key, item)
		}
	}
}

func (s *Store) derive(owner, key string, value any) {
	if _, exists := s.values[key]; exists {
		return
	}
	s.values[key] = value
	s.owners[key] = owner
	s.derived[owner] = append(s.derived[owner], key)
}

// detach turns a derived key into a standalone one.
func (s *Store) detach(key string) {
	owner, ok := s.owners[key]
	if !ok {
		return
	}
	delete(s.owners, key)

	keys := s.derived[owner]
	for i, k := range keys {
		if k == key {
			s.derived[owner] = append(keys[:i:i], keys[i+1:]...)
			break
		}
	}
	if len(s.derived[owner]) == 0 {
		delete(s.derived, owner)
	}
}

func (s *Store) dropDerived(owner string) {
	for _, key := range s.derived[owner] {
		delete(s.values, key)
		delete(s.owners, key)
	}
	delete(s.derived, owner)
}

// pruneInherited drops the keys below path that an ancestor of path derived.
// They were expanded from the value path held before.
func (s *Store) pruneInherited(path string) {
	prefix := path + s.separator
	for key, owner := range s.owners {
		if strings.HasPrefix(key, prefix) && strings.HasPrefix(path, owner+s.separator) {
			s.detach(key)
			delete(s.values, key)
		}
	}
}

// ── Lookup ────────────────────────────────────────────────────────────────────

// Get returns the value at path, explicit or derived.
func (s *Store) Get(path string) (any, error) {
	v, ok := s.values[path]
	if !ok {
		return nil, dierrors.ParameterNotFound(path)
	}
	return v, nil
}

// Lookup is Get without the error.
func (s *Store) Lookup(path string) (any, bool) {
	v, ok := s.values[path]
	return v, ok
}

// Has reports whether path is set, explicitly or by expansion.
func (s *Store) Has(path string) bool {
	_, ok := s.values[path]
	return ok
}

// IsDerived reports whether path exists only because of expansion.
func (s *Store) IsDerived(path string) bool {
	_, ok := s.owners[path]
	return ok
}

// Owner returns the explicit key path was derived from.
func (s *Store) Owner(path string) (string, bool) {
	o, ok := s.owners[path]
	return o, ok
}

// DerivedFrom returns the keys owner created, in derivation order.
func (s *Store) DerivedFrom(owner string) []string {
	return append([]string(nil), s.derived[owner]...)
}

// ExpandAll returns a copy of the flattened view: explicit and derived keys.
func (s *Store) ExpandAll() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// All returns a copy of the explicitly set keys only.
func (s *Store) All() map[string]any {
	out := make(map[string]any, len(s.explicit))
	for k := range s.explicit {
		out[k] = s.values[k]
	}
	return out
}

// Keys returns every key of the flattened view, sorted.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ExplicitKeys returns the explicitly set keys, sorted.
func (s *Store) ExplicitKeys() []string {
	keys := make([]string, 0, len(s.explicit))
	for k := range s.explicit {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetOrder returns the explicit keys in the order they were last set.
// Replaying them in this order rebuilds the same derived keys.
func (s *Store) SetOrder() []string {
	keys := make([]string, 0, len(s.explicit))
	for k := range s.explicit {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return s.setAt[keys[i]] < s.setAt[keys[j]] })
	return keys
}

// Len is the size of the flattened view.
func (s *Store) Len() int { return len(s.values) }

// Clone returns an independent copy. Values themselves are shared.
func (s *Store) Clone() *Store {
	c := New(s.separator)
	for k, v := range s.values {
		c.values[k] = v
	}
	for k := range s.explicit {
		c.explicit[k] = true
	}
	for k, keys := range s.derived {
		c.derived[k] = append([]string(nil), keys...)
	}
	for k, o := range s.owners {
		c.owners[k] = o
	}
	for k, n := range s.setAt {
		c.setAt[k] = n
	}
	c.clock = s.clock
	return c
}

// MergeFrom copies the explicit keys of src into s with Set, in the order
// src set them, so s derives its own keys and keeps ownership consistent.
func (s *Store) MergeFrom(src *Store) {
	for _, k := range src.SetOrder() {
		s.Set(k, src.values[k])
	}
}
