package address

import "unicode/utf8"

// A shared city counts as a match only when longer than this many runes.
const minCityMatchLen = 3

// Match is the winning candidate of FindBestMatch.
type Match struct {
	Index   int     `json:"index"`
	Address string  `json:"address"`
	Score   float64 `json:"score"`
}

// prepared caches the derived forms of one input for pairwise comparisons.
type prepared struct {
	normalized string
	city       string
}

func (m *Matcher) prepare(s string) prepared {
	n := m.Normalize(s)
	return prepared{normalized: n, city: m.cityOf(s, n)}
}

// AreSimilar reports whether a and b name the same place. Checks run in order
// and short-circuit: equal normalized forms, then a shared city longer than
// three characters, then Similarity of the normalized forms against
// threshold.
func (m *Matcher) AreSimilar(a, b string, threshold float64) bool {
	return similarPrepared(m.prepare(a), m.prepare(b), threshold)
}

func similarPrepared(a, b prepared, threshold float64) bool {
	if a.normalized == b.normalized {
		return true
	}
	if a.city == b.city && utf8.RuneCountInString(a.city) > minCityMatchLen {
		return true
	}
	return Similarity(a.normalized, b.normalized) >= threshold
}

// FindMostSimilar returns the original candidate whose normalized form scores
// highest against target, provided the score reaches threshold. Ties keep the
// earliest candidate.
func (m *Matcher) FindMostSimilar(target string, candidates []string, threshold float64) (string, bool) {
	match, ok := m.FindBestMatch(target, candidates, threshold)
	if !ok {
		return "", false
	}
	return match.Address, true
}

// FindBestMatch is FindMostSimilar reporting the winner's index and score.
func (m *Matcher) FindBestMatch(target string, candidates []string, threshold float64) (Match, bool) {
	t := m.Normalize(target)
	best := Match{Index: -1}
	for i, c := range candidates {
		score := Similarity(t, m.Normalize(c))
		if score < threshold {
			continue
		}
		if best.Index < 0 || score > best.Score {
			best = Match{Index: i, Address: c, Score: score}
		}
	}
	return best, best.Index >= 0
}

// GroupSimilar partitions addresses in one left-to-right pass. Each group is
// anchored on its first member and later addresses join when they are similar
// to the anchor; members are never compared with each other, so grouping is
// not transitive. Groups follow anchor order and members keep input order.
func (m *Matcher) GroupSimilar(addresses []string, threshold float64) [][]string {
	if len(addresses) == 0 {
		return [][]string{}
	}

	prep := make([]prepared, len(addresses))
	for i, a := range addresses {
		prep[i] = m.prepare(a)
	}

	consumed := make([]bool, len(addresses))
	groups := make([][]string, 0)
	for i := range addresses {
		if consumed[i] {
			continue
		}
		consumed[i] = true
		group := []string{addresses[i]}
		for j := i + 1; j < len(addresses); j++ {
			if consumed[j] {
				continue
			}
			if similarPrepared(prep[i], prep[j], threshold) {
				group = append(group, addresses[j])
				consumed[j] = true
			}
		}
		groups = append(groups, group)
	}
	return groups
}
