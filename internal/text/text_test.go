package text

import (
	"math"
	"testing"
)

func TestFold(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain ascii", "Smith", "Smith"},
		{"acute accent", "José", "Jose"},
		{"umlaut", "Müller", "Muller"},
		{"grave and cedilla", "Françoise Lèvre", "Francoise Levre"},
		{"scandinavian o", "Søren", "Soren"},
		{"eszett", "Straße", "Strasse"},
		{"ligature ae", "Ægir", "AEgir"},
		{"polish l", "Łukasz", "Lukasz"},
		{"mixed", "Bjørk Guðmundsdóttir", "Bjork Gudmundsdottir"},
		{"cjk passes through", "日本語", "日本語"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fold(tt.input); got != tt.want {
				t.Errorf("Fold(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCollapseWhitespace(t *testing.T) {
	if got := CollapseWhitespace("  a\t b\n\nc  "); got != "a b c" {
		t.Errorf("CollapseWhitespace = %q", got)
	}
}

func TestNormalizeForComparison(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"case and punctuation", "Deep Learning: A Survey!", "deep learning a survey"},
		{"diacritics", "Über-Netzwerke", "ubernetzwerke"},
		{"whitespace runs", "a   b\t\tc", "a b c"},
		{"digits kept", "GPT-4 in 2023", "gpt4 in 2023"},
		{"empty", "", ""},
		{"only punctuation", "—!?—", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeForComparison(tt.input); got != tt.want {
				t.Errorf("NormalizeForComparison(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "abcdef", "abcdef", 1.0},
		{"disjoint", "abc", "xyz", 0.0},
		{"empty left", "", "abc", 0.0},
		{"empty right", "abc", "", 0.0},
		{"both empty", "", "", 0.0},
		{"half overlap", "ab", "abcdef", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ratio(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Ratio(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestRatioSymmetric(t *testing.T) {
	a := "attention is all you need"
	b := "attention is what you need"
	if Ratio(a, b) != Ratio(b, a) {
		t.Error("Ratio is not symmetric")
	}
	if r := Ratio(a, b); r <= 0.8 || r >= 1.0 {
		t.Errorf("Ratio(%q, %q) = %f, expected high but below 1", a, b, r)
	}
}

func TestSimilarity(t *testing.T) {
	// Near-identical titles differing in punctuation and case should
	// score very high after normalization.
	a := "Deep Residual Learning for Image Recognition"
	b := "deep residual learning for image recognition."
	if s := Similarity(a, b); s != 1.0 {
		t.Errorf("Similarity = %f, want 1.0", s)
	}

	if s := Similarity("", "anything"); s != 0.0 {
		t.Errorf("Similarity with empty input = %f, want 0", s)
	}

	low := Similarity("Graph Neural Networks", "A Treatise on Roman Law")
	if low >= 0.75 {
		t.Errorf("unrelated titles scored %f", low)
	}
}
