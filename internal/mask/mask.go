// Package mask compiles invalidation masks into a matcher tested against event names.
//
// Masks are globs: '*' matches any run of characters (dots included) and '?'
// matches exactly one. A mask matches the whole event name. There is no
// escape character: a backslash matches itself.
package mask

import (
	"strings"

	"github.com/tidwall/match"
)

// Matcher is a compiled set of masks. The zero value matches nothing.
type Matcher struct {
	patterns []string
	exact    map[string]struct{}
	globs    []string // backslashes escaped for match.Match
}

// Compile builds a Matcher. Duplicates and empty masks are dropped.
func Compile(masks []string) Matcher {
	m := Matcher{}
	seen := make(map[string]struct{}, len(masks))
	for _, p := range masks {
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		m.patterns = append(m.patterns, p)
		if match.IsPattern(p) {
			m.globs = append(m.globs, strings.ReplaceAll(p, `\`, `\\`))
			continue
		}
		if m.exact == nil {
			m.exact = make(map[string]struct{})
		}
		m.exact[p] = struct{}{}
	}
	return m
}

// Match reports whether any mask matches name.
func (m Matcher) Match(name string) bool {
	if _, ok := m.exact[name]; ok {
		return true
	}
	for _, g := range m.globs {
		if match.Match(name, g) {
			return true
		}
	}
	return false
}

// MatchAny reports the first of names matched by m.
func (m Matcher) MatchAny(names map[string]struct{}) (string, bool) {
	if m.Empty() {
		return "", false
	}
	for n := range names {
		if m.Match(n) {
			return n, true
		}
	}
	return "", false
}

// Empty reports whether the matcher can never match.
func (m Matcher) Empty() bool { return len(m.patterns) == 0 }

// Patterns returns the source masks in first-seen order.
func (m Matcher) Patterns() []string {
	out := make([]string, len(m.patterns))
	copy(out, m.patterns)
	return out
}
