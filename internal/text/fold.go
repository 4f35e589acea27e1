// Package text provides ASCII folding and string similarity shared by
// normalization, duplicate detection, and fuzzy lookups.
package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransform decomposes accented characters and drops the combining
// marks, turning "Müller" into "Muller".
var foldTransform = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// transliterations covers Latin letters that carry no combining mark
// and so survive decomposition unchanged.
var transliterations = strings.NewReplacer(
	"ß", "ss",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O",
	"đ", "d", "Đ", "D",
	"ð", "d", "Ð", "D",
	"þ", "th", "Þ", "Th",
	"ł", "l", "Ł", "L",
	"ħ", "h", "Ħ", "H",
	"ı", "i",
)

// Fold converts accented and special Latin characters to their ASCII
// equivalents. Characters with no ASCII mapping pass through unchanged.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransform, s)
	if err != nil {
		folded = s
	}
	return transliterations.Replace(folded)
}

// CollapseWhitespace trims s and reduces every run of whitespace to a
// single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeForComparison folds diacritics, lowercases, strips
// punctuation, and collapses whitespace. Two strings that normalize
// equal are treated as the same for matching purposes.
func NormalizeForComparison(s string) string {
	folded := strings.ToLower(Fold(s))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return CollapseWhitespace(b.String())
}
