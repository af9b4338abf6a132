package address

import (
	"strings"

	"pickup-address-matcher/pkg/geography"
)

// Matcher applies one gazetteer. The zero value is not usable; build one with
// NewMatcher.
type Matcher struct {
	gaz       *geography.Gazetteer
	aliases   []aliasRule
	stopwords map[string]struct{}
}

// aliasRule rewrites a run of whitespace-delimited tokens. Matching is on
// whole tokens only, so "susa" never fires inside "susanne" or "susaø".
type aliasRule struct {
	from []string
	to   []string
}

// apply replaces non-overlapping occurrences of from, left to right.
func (a aliasRule) apply(tokens []string) []string {
	n := len(a.from)
	if n == 0 || len(tokens) < n {
		return tokens
	}
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		if i+n <= len(tokens) && equalTokens(tokens[i:i+n], a.from) {
			out = append(out, a.to...)
			i += n
			continue
		}
		out = append(out, tokens[i])
		i++
	}
	return out
}

func equalTokens(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithGazetteer replaces the embedded gazetteer. g should already have passed
// Validate; an alias table whose targets contain sources can make
// normalization converge on a different fixed point.
func WithGazetteer(g *geography.Gazetteer) Option {
	return func(m *Matcher) {
		if g != nil {
			m.gaz = g.Clone()
		}
	}
}

var std = NewMatcher()

// NewMatcher builds a Matcher, tokenizing the alias table once.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{gaz: geography.Default()}
	for _, opt := range opts {
		opt(m)
	}

	m.aliases = make([]aliasRule, 0, len(m.gaz.Aliases))
	for _, a := range m.gaz.Aliases {
		m.aliases = append(m.aliases, aliasRule{
			from: strings.Fields(a.From),
			to:   strings.Fields(a.To),
		})
	}

	m.stopwords = make(map[string]struct{}, len(m.gaz.Stopwords))
	for _, w := range m.gaz.Stopwords {
		m.stopwords[w] = struct{}{}
	}
	return m
}

// DefaultCountry is the country reported when an address names none.
func (m *Matcher) DefaultCountry() string { return m.gaz.DefaultCountry }

// Parse builds a NormalizedAddress. coords is copied, not retained.
func (m *Matcher) Parse(raw string, coords *Coordinates) NormalizedAddress {
	n := m.Normalize(raw)
	na := NormalizedAddress{
		Original:   raw,
		Normalized: n,
		City:       m.cityOf(raw, n),
		Country:    m.countryOf(raw, n),
	}
	if coords != nil {
		c := *coords
		na.Coordinates = &c
	}
	return na
}
