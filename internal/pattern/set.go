// Package pattern implements the per-line match pipeline: primary pattern
// testing with AND/OR combination, whitelist exclusion, and an optional
// classifier step that can re-count or re-label a match.
package pattern

import (
	"fmt"
	"regexp"
)

// Mode is the combination mode for a multi-expression set.
type Mode int

const (
	// ModeOr matches when any expression matches (default).
	ModeOr Mode = iota
	// ModeAnd matches only when every expression matches somewhere in
	// the line.
	ModeAnd
)

// Set is an ordered collection of match expressions with a combination mode.
// The zero value is an empty set that matches nothing.
type Set struct {
	exprs []*regexp.Regexp
	mode  Mode
}

// Compile builds a Set from regular expression sources. caseInsensitive
// applies uniformly to every expression.
func Compile(patterns []string, mode Mode, caseInsensitive bool) (*Set, error) {
	s := &Set{mode: mode}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		src := p
		if caseInsensitive {
			src = "(?i)" + src
		}
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		s.exprs = append(s.exprs, re)
	}
	return s, nil
}

// Empty reports whether the set has no expressions.
func (s *Set) Empty() bool {
	return s == nil || len(s.exprs) == 0
}

// Match tests line against the set under its combination mode.
// An empty set never matches.
func (s *Set) Match(line string) bool {
	if s.Empty() {
		return false
	}
	if s.mode == ModeAnd {
		for _, re := range s.exprs {
			if !re.MatchString(line) {
				return false
			}
		}
		return true
	}
	for _, re := range s.exprs {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// Len returns the number of expressions in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.exprs)
}
