// Package filter holds the set of hashtag terms an ingest session tracks.
package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration is wrapped by every error New returns.
var ErrConfiguration = errors.New("invalid filter configuration")

// Marker is the leading character that marks a hashtag term.
const Marker = "#"

// Set is an immutable set of match terms. Terms are compared in canonical
// form: trimmed, without a leading marker, and lower-cased.
type Set struct {
	terms []string
	index map[string]struct{}
}

// New builds a Set from terms. It fails if terms is empty or any term is
// blank once the marker is removed.
func New(terms []string) (*Set, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: no filter terms", ErrConfiguration)
	}

	s := &Set{index: make(map[string]struct{}, len(terms))}
	for i, t := range terms {
		c := Canonical(t)
		if c == "" {
			return nil, fmt.Errorf("%w: term %d (%q) is blank", ErrConfiguration, i, t)
		}
		if _, ok := s.index[c]; ok {
			continue
		}
		s.index[c] = struct{}{}
		s.terms = append(s.terms, c)
	}
	return s, nil
}

// Canonical returns the comparable form of a term.
func Canonical(term string) string {
	t := strings.TrimSpace(term)
	t = strings.TrimPrefix(t, Marker)
	return strings.ToLower(strings.TrimSpace(t))
}

// Matches reports whether term equals any configured term.
func (s *Set) Matches(term string) bool {
	_, ok := s.index[Canonical(term)]
	return ok
}

// MatchesAny reports whether at least one of terms matches.
func (s *Set) MatchesAny(terms []string) bool {
	for _, t := range terms {
		if s.Matches(t) {
			return true
		}
	}
	return false
}

// Terms returns the canonical terms in order of first appearance.
func (s *Set) Terms() []string {
	out := make([]string, len(s.terms))
	copy(out, s.terms)
	return out
}

// Track returns the terms with the hashtag marker, as sent to the provider.
// The provider treats them as alternatives.
func (s *Set) Track() []string {
	out := make([]string, len(s.terms))
	for i, t := range s.terms {
		out[i] = Marker + t
	}
	return out
}

// Len returns the number of distinct terms.
func (s *Set) Len() int { return len(s.terms) }

func (s *Set) String() string { return strings.Join(s.Track(), ",") }
