package main

import "testing"

func TestTruncateString(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this string is too long", 10, "this st..."},
		{"", 10, ""},
	}

	for _, tt := range tests {
		if got := truncateString(tt.s, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
		}
	}
}

func TestFormatAuthorsShort(t *testing.T) {
	tests := []struct {
		name    string
		authors string
		max     int
		want    string
	}{
		{"empty", "", 3, ""},
		{"single", "He, Kaiming", 3, "He, Kaiming"},
		{"two", "He, Kaiming and Zhang, Xiangyu", 3, "He, Kaiming, Zhang, Xiangyu"},
		{"truncated", "A, B and C, D and E, F and G, H", 2, "A, B, C, D, et al."},
		{"at limit", "A, B and C, D and E, F", 3, "A, B, C, D, E, F"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatAuthorsShort(tt.authors, tt.max); got != tt.want {
				t.Errorf("formatAuthorsShort(%q, %d) = %q, want %q", tt.authors, tt.max, got, tt.want)
			}
		})
	}
}

func TestWrapText(t *testing.T) {
	// Short text passes through untouched.
	if got := wrapText("short", 20, "  "); got != "short" {
		t.Errorf("wrapText(short) = %q", got)
	}

	// Long text breaks at word boundaries with the indent on
	// continuation lines.
	got := wrapText("one two three four five", 9, "  ")
	want := "one two\n  three\n  four five"
	if got != want {
		t.Errorf("wrapText() = %q, want %q", got, want)
	}
}
