package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bibfold/bibfold/internal/record"
	"github.com/bibfold/bibfold/internal/text"
)

// ErrKeyspaceExhausted means every candidate suffix for a base key is
// taken. In practice this needs thousands of colliding records with
// identical author, year, and title word.
var ErrKeyspaceExhausted = errors.New("citation key suffixes exhausted")

// maxNumericSuffix caps the numeric fallback so a pathological
// collection fails loudly instead of looping.
const maxNumericSuffix = 10000

// stopWords never become the title part of a citation key.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "on": true, "in": true,
	"of": true, "for": true, "and": true, "or": true, "to": true,
	"with": true, "from": true, "by": true, "at": true, "is": true,
	"are": true, "was": true, "were": true,
}

// GenerateKey derives a citation key of the form AuthorYearWord.
// Collisions against existing are resolved by appending B through Z,
// then an integer starting at 2. The caller owns adding the result to
// existing.
func (n *Normalizer) GenerateKey(r *record.Record, existing map[string]bool) (string, error) {
	base := keyAuthorPart(r.Author) + keyYearPart(r.Year) + keyTitleWord(r.Title)
	if !existing[base] {
		return base, nil
	}
	for c := byte('B'); c <= 'Z'; c++ {
		if candidate := base + string(c); !existing[candidate] {
			return candidate, nil
		}
	}
	for i := 2; i <= maxNumericSuffix; i++ {
		if candidate := fmt.Sprintf("%s%d", base, i); !existing[candidate] {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w for base %q", ErrKeyspaceExhausted, base)
}

// keyAuthorPart extracts the first author's family name, folded to
// ASCII letters only.
func keyAuthorPart(author string) string {
	part := ""
	if author != "" {
		first, _, _ := strings.Cut(author, " and ")
		first = strings.TrimSpace(first)
		if last, _, ok := strings.Cut(first, ","); ok {
			part = strings.TrimSpace(last)
		} else if fields := strings.Fields(first); len(fields) > 0 {
			part = fields[len(fields)-1]
		}
	}
	part = asciiLetters(text.Fold(part))
	if part == "" {
		return "Unknown"
	}
	return part
}

func keyYearPart(year string) string {
	if year == "" {
		return "XXXX"
	}
	return year
}

// keyTitleWord returns the first title word longer than one letter
// that is not a stop word, reduced to ASCII letters. Empty when no
// word qualifies.
func keyTitleWord(title string) string {
	if title == "" {
		return ""
	}
	clean := strings.NewReplacer("{", "", "}", "").Replace(title)
	for _, w := range strings.Fields(clean) {
		cw := asciiLetters(w)
		if len(cw) > 1 && !stopWords[strings.ToLower(cw)] {
			return cw
		}
	}
	return ""
}

func asciiLetters(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
