// Package skills holds the skill vocabulary, resume keyword detection and
// the match scorer. All tokens pass through Normalize before they enter a
// Set, so comparisons are exact string equality.
package skills

import (
	"sort"
	"strings"
)

// Normalize trims surrounding whitespace and lowercases a token.
func Normalize(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}

// Set is an unordered collection of normalized skill tokens.
type Set map[string]struct{}

// NewSet builds a Set from raw tokens. Empty tokens are dropped.
func NewSet(tokens ...string) Set {
	s := make(Set, len(tokens))
	for _, t := range tokens {
		s.Add(t)
	}
	return s
}

// ParseList splits a comma-separated skill string into a normalized Set.
// "Python, SQL ,,excel" yields {python, sql, excel}.
func ParseList(raw string) Set {
	if strings.TrimSpace(raw) == "" {
		return Set{}
	}
	return NewSet(strings.Split(raw, ",")...)
}

// Add normalizes and inserts a token; empty tokens are ignored.
func (s Set) Add(token string) {
	if n := Normalize(token); n != "" {
		s[n] = struct{}{}
	}
}

func (s Set) Has(token string) bool {
	_, ok := s[Normalize(token)]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

func (s Set) Empty() bool {
	return len(s) == 0
}

// Sorted returns the tokens in lexical order for stable presentation.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Intersect returns s ∩ other.
func (s Set) Intersect(other Set) Set {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(Set, len(small))
	for t := range small {
		if _, ok := large[t]; ok {
			out[t] = struct{}{}
		}
	}
	return out
}

// Difference returns s − other.
func (s Set) Difference(other Set) Set {
	out := make(Set)
	for t := range s {
		if _, ok := other[t]; !ok {
			out[t] = struct{}{}
		}
	}
	return out
}

// Union returns s ∪ other.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for t := range s {
		out[t] = struct{}{}
	}
	for t := range other {
		out[t] = struct{}{}
	}
	return out
}

// SubsetOf reports whether every token of s is in other.
func (s Set) SubsetOf(other Set) bool {
	for t := range s {
		if _, ok := other[t]; !ok {
			return false
		}
	}
	return true
}
