package address

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"pickup-address-matcher/pkg/geography"
)

// ExtractCity returns the first gazetteer city contained in the normalized
// address. Without one it falls back to the first token longer than two
// characters, then to the whole normalized string. Input whose letters are
// all stopwords is matched on its folded form instead, so the result is empty
// only when s has no letter.
func (m *Matcher) ExtractCity(s string) string {
	return m.cityOf(s, m.Normalize(s))
}

func (m *Matcher) cityOf(raw, normalized string) string {
	if normalized == "" {
		if !hasLetter(raw) {
			return ""
		}
		normalized = trimTrailingPunct(fold(raw))
	}
	for _, city := range m.gaz.Cities {
		if strings.Contains(normalized, city) {
			return city
		}
	}
	for _, tok := range strings.Fields(normalized) {
		if utf8.RuneCountInString(tok) > 2 {
			return tok
		}
	}
	return normalized
}

// ExtractCountry returns the canonical name of the first gazetteer country
// whose name or an alternate appears as whole words in the normalized address,
// or the default country. Only input without a letter or digit yields "".
func (m *Matcher) ExtractCountry(s string) string {
	return m.countryOf(s, m.Normalize(s))
}

func (m *Matcher) countryOf(raw, normalized string) string {
	if normalized == "" {
		if hasLetter(raw) {
			return m.gaz.DefaultCountry
		}
		return ""
	}
	for _, c := range m.gaz.Countries {
		if geography.ContainsWord(normalized, c.Name) {
			return c.Name
		}
		for _, alt := range c.Alternates {
			if geography.ContainsWord(normalized, alt) {
				return c.Name
			}
		}
	}
	return m.gaz.DefaultCountry
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
