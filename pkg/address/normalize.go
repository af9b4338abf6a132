package address

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases s, collapses whitespace, folds accents, then repeats
// trailing-punctuation stripping, alias rewriting and stopword removal until
// the string stops changing. Commas separate tokens like whitespace does.
//
// Normalize(Normalize(s)) == Normalize(s) for every s.
func (m *Matcher) Normalize(s string) string {
	s = fold(s)

	// Passes that only strip or drop shrink the string; alias rewrites are
	// bounded by the table, so this limit is never the reason the loop stops.
	for passes := len(s) + len(m.aliases) + 1; passes > 0; passes-- {
		next := m.canonicalize(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// fold is the one-shot prefix of Normalize: lowercase, commas to spaces,
// collapsed whitespace, folded accents.
func fold(s string) string {
	s = strings.ToLower(s)
	s = collapse(strings.ReplaceAll(s, ",", " "))
	return foldAccents(s)
}

func (m *Matcher) canonicalize(s string) string {
	tokens := strings.Fields(trimTrailingPunct(s))
	for _, a := range m.aliases {
		tokens = a.apply(tokens)
	}
	return m.dropStopwords(tokens)
}

func (m *Matcher) dropStopwords(tokens []string) string {
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, stop := m.stopwords[tok]; !stop {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// trimTrailingPunct strips the whole trailing run of commas, periods and
// whitespace.
func trimTrailingPunct(s string) string {
	return strings.TrimRightFunc(s, func(r rune) bool {
		return r == '.' || r == ',' || unicode.IsSpace(r)
	})
}

// foldAccents decomposes s, drops combining marks and recomposes, so "é"
// becomes "e". transform.Chain keeps internal state, so build one per call.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
