package address

import (
	"math"
	"testing"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b     string
		expected float64
	}{
		{"MARTHA", "MARHTA", 0.9611111111111111},
		{"DWAYNE", "DUANE", 0.84},
		{"DIXON", "DICKSONX", 0.8133333333333332},
		{"crate", "trace", 0.7333333333333334},
		{"sousse centre", "sousse centre ville", 0.9368421052631579},
		{"sousse centre", "monastir ville", 0.46336996336996333},
		{"rue kasbah", "rue kasbahs bab", 0.9333333333333333},
		{"tunis", "sfax", 0},
		{"abc", "xyz", 0},
		// window = floor(2/2) - 1 = 0: no swap can match
		{"ab", "ba", 0},
		// window < 0
		{"a", "b", 0},
		{"a", "a", 1},
		{"", "", 1},
		{"", "anything", 0},
		{"anything", "", 0},
		{"café", "cafe", 0.8833333333333333},
	}

	for _, tt := range tests {
		t.Run(tt.a+"~"+tt.b, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestSimilarityProperties(t *testing.T) {
	samples := []string{
		"", "a", "ab", "tunis", "tunis tunisia", "sfax", "sousse centre ville",
		"avenue habib bourguiba tunis", "av. habib bourguiba tunis", "aaaa", "aaab",
		"abab", "baba", "rue kasbah", "rue de kasbah", "ريدة", "ççç",
	}

	for _, a := range samples {
		if a != "" {
			if got := Similarity(a, a); got != 1 {
				t.Errorf("Similarity(%q, %q) = %v, want 1", a, a, got)
			}
		}
		for _, b := range samples {
			ab, ba := Similarity(a, b), Similarity(b, a)
			if ab != ba {
				t.Errorf("Similarity(%q, %q) = %v but Similarity(%q, %q) = %v", a, b, ab, b, a, ba)
			}
			if ab < 0 || ab > 1 {
				t.Errorf("Similarity(%q, %q) = %v, out of [0, 1]", a, b, ab)
			}
		}
	}
}

func BenchmarkSimilarity(b *testing.B) {
	x := "avenue habib bourguiba tunis tunisia"
	y := "av. habib bourguiba centre ville tunis"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Similarity(x, y)
	}
}
