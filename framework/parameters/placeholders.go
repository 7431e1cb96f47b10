package parameters

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ── Placeholder syntax ────────────────────────────────────────────────────────
//
// Placeholder-aware models reference parameters inside literal strings:
//
//	"%kernel.project_dir%/var"   → interpolated
//	"%db.port%"                  → a reference to the parameter itself
//	"100%%"                      → escaped percent, reads "100%"
//	"%env(DATABASE_URL)%"        → environment marker, never resolved here

var (
	referencePattern = regexp.MustCompile(`^%([^%\s]+)%$`)
	envPattern       = regexp.MustCompile(`%env\(([^()%]+)\)%`)
	tokenPattern     = regexp.MustCompile(`%%|%([^%\s]+)%`)
)

// ParseReference reports whether s is exactly one parameter placeholder and
// returns its path. Environment markers are not references.
func ParseReference(s string) (string, bool) {
	m := referencePattern.FindStringSubmatch(s)
	if m == nil || IsEnvPlaceholder(s) {
		return "", false
	}
	return m[1], true
}

// IsEnvPlaceholder reports whether s is exactly one %env(NAME)% marker.
func IsEnvPlaceholder(s string) bool {
	loc := envPattern.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

// HasPlaceholders reports whether s contains any placeholder or escape.
func HasPlaceholders(s string) bool {
	return tokenPattern.MatchString(s)
}

// Escape doubles every percent sign so a placeholder-aware model reads s
// literally.
func Escape(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}

// EscapeText is Escape that leaves %env(NAME)% markers intact, for text
// moving into a placeholder-aware model.
func EscapeText(s string) string {
	var b strings.Builder
	last := 0
	for _, loc := range envPattern.FindAllStringIndex(s, -1) {
		b.WriteString(Escape(s[last:loc[0]]))
		b.WriteString(s[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(Escape(s[last:]))
	return b.String()
}

// Interpolate replaces %path% placeholders in s using lookup and unescapes
// %%. Environment markers and unknown paths are left verbatim; the unknown
// paths are returned in order of appearance.
func Interpolate(s string, lookup func(path string) (any, bool)) (string, []string) {
	var missing []string
	out := tokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		if tok == "%%" {
			return "%"
		}
		if envPattern.MatchString(tok) {
			return tok
		}
		path := tok[1 : len(tok)-1]
		v, ok := lookup(path)
		if !ok {
			missing = append(missing, path)
			return tok
		}
		return fmt.Sprint(v)
	})
	return out, missing
}

// EnvName extracts NAME from a %env(NAME)% marker.
func EnvName(marker string) (string, bool) {
	m := envPattern.FindStringSubmatch(marker)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ReplaceEnv substitutes every %env(NAME)% marker in s using resolve. Markers
// resolve cannot answer stay in place.
func ReplaceEnv(s string, resolve func(name string) (string, bool)) string {
	return envPattern.ReplaceAllStringFunc(s, func(marker string) string {
		name, _ := EnvName(marker)
		if v, ok := resolve(name); ok {
			return v
		}
		return marker
	})
}

// EnvPlaceholders lists the distinct %env(NAME)% markers found anywhere in
// the store's explicit values, sorted.
func (s *Store) EnvPlaceholders() []string {
	seen := make(map[string]bool)
	for k := range s.explicit {
		collectEnv(s.values[k], seen)
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func collectEnv(value any, seen map[string]bool) {
	switch v := value.(type) {
	case string:
		for _, m := range envPattern.FindAllString(v, -1) {
			seen[m] = true
		}
	case map[string]any:
		for _, item := range v {
			collectEnv(item, seen)
		}
	case []any:
		for _, item := range v {
			collectEnv(item, seen)
		}
	}
}
