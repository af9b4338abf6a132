// Package address turns free-text pickup addresses into canonical strings and
// decides whether two of them name the same place.
//
// Everything here is pure: no I/O, no shared mutable state, and every function
// is defined for every input, including the empty string. Matchers may be used
// from any number of goroutines.
package address

// DefaultThreshold is the similarity score at or above which two normalized
// addresses are considered the same place.
const DefaultThreshold = 0.8

// Coordinates are carried through unchanged. Nothing in this package computes
// them.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NormalizedAddress bundles a raw address with its derived forms.
type NormalizedAddress struct {
	Original    string       `json:"original"`
	Normalized  string       `json:"normalized"`
	City        string       `json:"city"`
	Country     string       `json:"country"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Parse normalizes raw and extracts its city and country using the default
// gazetteer.
func Parse(raw string, coords *Coordinates) NormalizedAddress {
	return std.Parse(raw, coords)
}

// Normalize returns the canonical comparable form of s using the default
// gazetteer.
func Normalize(s string) string { return std.Normalize(s) }

// ExtractCity returns the best-effort city of s using the default gazetteer.
func ExtractCity(s string) string { return std.ExtractCity(s) }

// ExtractCountry returns the country of s using the default gazetteer.
func ExtractCountry(s string) string { return std.ExtractCountry(s) }

// AreSimilar reports whether a and b name the same place using the default
// gazetteer.
func AreSimilar(a, b string, threshold float64) bool { return std.AreSimilar(a, b, threshold) }

// FindMostSimilar returns the candidate closest to target, or false when none
// reaches threshold.
func FindMostSimilar(target string, candidates []string, threshold float64) (string, bool) {
	return std.FindMostSimilar(target, candidates, threshold)
}

// FindBestMatch is FindMostSimilar with the winning index and score.
func FindBestMatch(target string, candidates []string, threshold float64) (Match, bool) {
	return std.FindBestMatch(target, candidates, threshold)
}

// GroupSimilar partitions addresses into groups of similar addresses.
func GroupSimilar(addresses []string, threshold float64) [][]string {
	return std.GroupSimilar(addresses, threshold)
}
