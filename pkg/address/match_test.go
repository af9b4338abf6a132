package address

import (
	"fmt"
	"math"
	"reflect"
	"testing"
)

func TestAreSimilar(t *testing.T) {
	tests := []struct {
		name      string
		a, b      string
		threshold float64
		expected  bool
	}{
		{"abbreviation shares city", "Avenue Habib Bourguiba, Tunis", "Av. Habib Bourguiba Tunis", DefaultThreshold, true},
		{"equal after normalization", "Tunis, Tunisie", "  tunis   TUNISIA.", 1, true},
		{"same city beats low score", "Rue de Marseille, Tunis", "Rue de Paris, Tunis", 0.99, true},
		{"different cities", "Rue de Marseille, Tunis", "Rue de Marseille, Ariana", 0.99, false},
		{"fuzzy above threshold", "Rue Kasbah", "Rue Kasbahs Bab", 0.9, true},
		{"fuzzy below threshold", "Rue Kasbah", "Rue Kasbahs Bab Souika", 0.9, false},
		{"short fallback city is ignored", "Rue Kasbah", "Rue Sidi Ali", DefaultThreshold, false},
		{"unrelated", "Sfax", "Tunis", DefaultThreshold, false},
		{"both empty", "", "", DefaultThreshold, true},
		{"identity", "Gare routière Bab Saadoun", "Gare routière Bab Saadoun", DefaultThreshold, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AreSimilar(tt.a, tt.b, tt.threshold); got != tt.expected {
				t.Errorf("AreSimilar(%q, %q, %v) = %v, want %v", tt.a, tt.b, tt.threshold, got, tt.expected)
			}
		})
	}
}

func TestFindMostSimilar(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		candidates []string
		threshold  float64
		want       string
		wantOK     bool
	}{
		{
			name:       "best candidate",
			target:     "Sousse Centre",
			candidates: []string{"Monastir Ville", "Sousse centre ville", "Tunis"},
			threshold:  DefaultThreshold,
			want:       "Sousse centre ville",
			wantOK:     true,
		},
		{
			name:       "ties keep first",
			target:     "Tunis",
			candidates: []string{"Sfax", "tunis", "TUNIS."},
			threshold:  DefaultThreshold,
			want:       "tunis",
			wantOK:     true,
		},
		{
			name:       "nothing reaches threshold",
			target:     "Sousse Centre",
			candidates: []string{"Monastir Ville", "Tunis"},
			threshold:  DefaultThreshold,
			wantOK:     false,
		},
		{
			name:       "threshold is inclusive",
			target:     "rue kasbah",
			candidates: []string{"rue kasbahs bab"},
			threshold:  Similarity("rue kasbah", "rue kasbahs bab"),
			want:       "rue kasbahs bab",
			wantOK:     true,
		},
		{
			name:       "no candidates",
			target:     "Tunis",
			candidates: nil,
			threshold:  DefaultThreshold,
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindMostSimilar(tt.target, tt.candidates, tt.threshold)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("FindMostSimilar(%q, %q) = (%q, %v), want (%q, %v)", tt.target, tt.candidates, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFindBestMatchReportsIndexAndScore(t *testing.T) {
	m, ok := FindBestMatch("Sousse Centre", []string{"Monastir Ville", "Sousse centre ville", "Tunis"}, DefaultThreshold)
	if !ok {
		t.Fatal("FindBestMatch found nothing")
	}
	if m.Index != 1 || m.Address != "Sousse centre ville" {
		t.Errorf("match = %+v, want index 1", m)
	}
	if math.Abs(m.Score-0.9368421052631579) > 1e-9 {
		t.Errorf("score = %v, want ~0.9368", m.Score)
	}
}

func TestGroupSimilar(t *testing.T) {
	tests := []struct {
		name      string
		input     []string
		threshold float64
		expected  [][]string
	}{
		{
			name:      "city and exact matches",
			input:     []string{"Tunis", "tunis ", "Sfax", "Tunis, Tunisia"},
			threshold: DefaultThreshold,
			expected:  [][]string{{"Tunis", "tunis ", "Tunis, Tunisia"}, {"Sfax"}},
		},
		{
			name:      "compares against the anchor only",
			input:     []string{"Rue Kasbah", "Rue Kasbahs Bab", "Rue Kasbahs Bab Souika"},
			threshold: 0.9,
			expected:  [][]string{{"Rue Kasbah", "Rue Kasbahs Bab"}, {"Rue Kasbahs Bab Souika"}},
		},
		{
			name:      "lower threshold merges",
			input:     []string{"Rue Kasbah", "Rue Kasbahs Bab", "Rue Kasbahs Bab Souika"},
			threshold: DefaultThreshold,
			expected:  [][]string{{"Rue Kasbah", "Rue Kasbahs Bab", "Rue Kasbahs Bab Souika"}},
		},
		{
			name:      "duplicates stay in input order",
			input:     []string{"Sfax", "Tunis", "sfax", "Sfax."},
			threshold: DefaultThreshold,
			expected:  [][]string{{"Sfax", "sfax", "Sfax."}, {"Tunis"}},
		},
		{
			name:      "empty input",
			input:     nil,
			threshold: DefaultThreshold,
			expected:  [][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GroupSimilar(tt.input, tt.threshold)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("GroupSimilar(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGroupSimilarPartitions(t *testing.T) {
	input := []string{
		"Avenue Habib Bourguiba, Tunis", "Av. Habib Bourguiba Tunis", "Sousse Centre",
		"Sousse centre ville", "Monastir Ville", "La Marsa", "Marsa", "Rue Kasbah", "", "",
	}

	for _, threshold := range []float64{0, 0.5, 0.8, 0.95, 1} {
		t.Run(fmt.Sprint(threshold), func(t *testing.T) {
			groups := GroupSimilar(input, threshold)
			seen := make(map[int]bool)
			total := 0
			for _, g := range groups {
				if len(g) == 0 {
					t.Fatal("empty group")
				}
				total += len(g)
			}
			if total != len(input) {
				t.Fatalf("groups hold %d addresses, want %d", total, len(input))
			}
			// each input position is used exactly once, in order within groups
			for _, g := range groups {
				last := -1
				for _, addr := range g {
					idx := -1
					for i := last + 1; i < len(input); i++ {
						if input[i] == addr && !seen[i] {
							idx = i
							break
						}
					}
					if idx < 0 {
						t.Fatalf("address %q out of order or duplicated in %q", addr, g)
					}
					seen[idx] = true
					last = idx
				}
			}
		})
	}
}

func TestGroupSimilarStricterThresholdSplits(t *testing.T) {
	input := []string{"Rue Kasbah", "Rue Kasbahs Bab", "Rue Kasbahs Bab Souika", "Sfax", "Sfaks"}
	prev := 0
	for _, threshold := range []float64{0, 0.3, 0.6, 0.8, 0.9, 0.95, 1} {
		n := len(GroupSimilar(input, threshold))
		if n < prev {
			t.Errorf("threshold %v produced %d groups, fewer than %d at a lower threshold", threshold, n, prev)
		}
		prev = n
	}
}

func TestRaisingThresholdNeverCreatesMatches(t *testing.T) {
	thresholds := []float64{0, 0.5, 0.8, 0.9, 0.95, 1}
	pairs := [][2]string{
		{"Rue Kasbah", "Rue Kasbahs Bab"},
		{"Rue Kasbah", "Rue Kasbahs Bab Souika"},
		{"Rue Kasbah", "Rue Sidi Ali"},
		{"Sousse Centre", "Sousse centre ville"},
		{"Sfax", "Sfaks"},
		{"Sfax", "Tunis"},
		{"Av. Habib Bourguiba", "Avenue Habib Bourguiba"},
		{"", "Tunis"},
		{"Gare routière", "gare routiere."},
	}
	for _, p := range pairs {
		t.Run(fmt.Sprintf("%s|%s", p[0], p[1]), func(t *testing.T) {
			wasFalse := false
			for _, th := range thresholds {
				got := AreSimilar(p[0], p[1], th)
				if wasFalse && got {
					t.Errorf("AreSimilar(%q, %q, %v) = true after false at a lower threshold", p[0], p[1], th)
				}
				wasFalse = wasFalse || !got
			}
		})
	}

	lists := []struct {
		target     string
		candidates []string
	}{
		{"Rue Kasbah", []string{"Rue Kasbahs Bab Souika", "Rue Kasbahs Bab", "Rue Sidi Ali"}},
		{"Sousse Centre", []string{"Monastir Ville", "Sousse centre ville"}},
		{"Sfax", []string{"Sfaks", "Gabes", "Tunis"}},
		{"Tunis", nil},
	}
	for _, l := range lists {
		t.Run(l.target, func(t *testing.T) {
			missed := false
			prevScore := -1.0
			for _, th := range thresholds {
				m, ok := FindBestMatch(l.target, l.candidates, th)
				if missed && ok {
					t.Errorf("FindBestMatch(%q) found %+v at %v after finding nothing at a lower threshold", l.target, m, th)
				}
				if _, okMost := FindMostSimilar(l.target, l.candidates, th); okMost != ok {
					t.Errorf("FindMostSimilar and FindBestMatch disagree at %v", th)
				}
				if ok && prevScore >= 0 && m.Score < prevScore {
					t.Errorf("best score fell from %v to %v when raising the threshold to %v", prevScore, m.Score, th)
				}
				if ok {
					prevScore = m.Score
				}
				missed = missed || !ok
			}
		})
	}
}
