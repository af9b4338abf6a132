package address

const (
	winklerPrefixCap = 4
	winklerScale     = 0.1
)

// Similarity returns the Jaro-Winkler similarity of a and b in [0, 1].
// Strings are compared rune by rune and are not normalized first.
// Similarity("", "") is 1 because equal strings are checked first.
//
// Matching is greedy and first-fit within the window
// floor(max(|a|,|b|)/2) - 1, so the score can differ slightly from an
// optimal-assignment Jaro for strings with many repeated characters.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	// Greedy matching scans from the first argument, so fix the order to keep
	// Similarity(a, b) == Similarity(b, a).
	if a > b {
		a, b = b, a
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}

	j := jaro(ra, rb)
	if j == 0 {
		return 0.0
	}

	prefix := 0
	for prefix < winklerPrefixCap && prefix < len(ra) && prefix < len(rb) && ra[prefix] == rb[prefix] {
		prefix++
	}

	score := j + winklerScale*float64(prefix)*(1-j)
	// j <= 1 and prefix <= 4 keep the exact value within bounds; this only
	// absorbs float rounding.
	if score > 1 {
		score = 1
	}
	return score
}

func jaro(a, b []rune) float64 {
	window := max(len(a), len(b))/2 - 1
	if window < 0 {
		return 0.0
	}

	aMatched := make([]bool, len(a))
	bMatched := make([]bool, len(b))
	matches := 0

	for i := range a {
		lo := max(0, i-window)
		hi := min(len(b)-1, i+window)
		for k := lo; k <= hi; k++ {
			if bMatched[k] || a[i] != b[k] {
				continue
			}
			aMatched[i] = true
			bMatched[k] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := range a {
		if !aMatched[i] {
			continue
		}
		for !bMatched[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(len(a)) + m/float64(len(b)) + (m-t)/m) / 3
}
