// Package normalize canonicalizes record fields and assigns citation
// keys.
package normalize

import (
	"regexp"
	"strings"

	"github.com/bibfold/bibfold/internal/record"
)

// monthMap resolves month spellings and numbers to the canonical
// 3-letter abbreviation.
var monthMap = map[string]string{
	"january": "jan", "february": "feb", "march": "mar", "april": "apr",
	"may": "may", "june": "jun", "july": "jul", "august": "aug",
	"september": "sep", "october": "oct", "november": "nov", "december": "dec",
	"1": "jan", "2": "feb", "3": "mar", "4": "apr", "5": "may", "6": "jun",
	"7": "jul", "8": "aug", "9": "sep", "10": "oct", "11": "nov", "12": "dec",
	"01": "jan", "02": "feb", "03": "mar", "04": "apr", "05": "may", "06": "jun",
	"07": "jul", "08": "aug", "09": "sep",
}

var (
	dashRun  = regexp.MustCompile(`\s*[-\x{2013}\x{2014}]+\s*`)
	hyphens3 = regexp.MustCompile(`-{3,}`)
)

// doiPrefixes are stripped from DOI values, matched case-insensitively.
var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
}

// Authors rewrites an author string to "Last, First and Last, First"
// form. Names already containing a comma keep their order; otherwise
// the final token is taken as the family name. Single-token names pass
// through unchanged.
func Authors(s string) string {
	if s == "" {
		return s
	}
	var out []string
	for _, author := range strings.Split(strings.TrimSpace(s), " and ") {
		author = strings.TrimSpace(author)
		if author == "" {
			continue
		}
		if last, first, ok := strings.Cut(author, ","); ok {
			out = append(out, strings.TrimSpace(last)+", "+strings.TrimSpace(first))
			continue
		}
		parts := strings.Fields(author)
		if len(parts) == 1 {
			out = append(out, parts[0])
			continue
		}
		last := parts[len(parts)-1]
		first := strings.Join(parts[:len(parts)-1], " ")
		out = append(out, last+", "+first)
	}
	return strings.Join(out, " and ")
}

// Pages collapses any dash run, with optional surrounding whitespace,
// to exactly two ASCII hyphens.
func Pages(s string) string {
	if s == "" {
		return s
	}
	s = dashRun.ReplaceAllString(s, "--")
	return hyphens3.ReplaceAllString(s, "--")
}

// Month resolves a month name or number to its 3-letter abbreviation.
// Lookup ignores case and a trailing period. Unrecognized input passes
// through unchanged.
func Month(s string) string {
	if s == "" {
		return s
	}
	key := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")
	if abbrev, ok := monthMap[key]; ok {
		return abbrev
	}
	return s
}

// DOI trims whitespace and strips a resolver URL prefix, if any. The
// prefix comparison is case-insensitive; the DOI itself is untouched.
func DOI(s string) string {
	if s == "" {
		return s
	}
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, prefix := range doiPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(s[len(prefix):])
		}
	}
	return s
}

// Normalizer canonicalizes records. It carries the compiled acronym
// patterns, built once at construction.
type Normalizer struct {
	acronyms []acronymPattern
}

// New builds a Normalizer with the default acronym table.
func New() *Normalizer {
	return &Normalizer{acronyms: compileAcronyms(titleAcronyms)}
}

// Title strips one layer of outer braces when they wrap the whole
// title, then brace-protects known acronyms. Protection is idempotent:
// occurrences already inside braces are left alone.
func (n *Normalizer) Title(s string) string {
	if s == "" {
		return s
	}
	s = strings.TrimSpace(s)
	if wrapped(s) {
		s = s[1 : len(s)-1]
	}
	for _, ac := range n.acronyms {
		s = ac.protect(s)
	}
	return s
}

// Normalize canonicalizes every field in place and assigns a fresh
// citation key, which is added to existing before returning. A nil
// existing set means no collision constraints.
func (n *Normalizer) Normalize(r *record.Record, existing map[string]bool) error {
	if r.Author != "" {
		r.Author = Authors(r.Author)
	}
	if r.Title != "" {
		r.Title = n.Title(r.Title)
	}
	if r.Pages != "" {
		r.Pages = Pages(r.Pages)
	}
	if r.Month != "" {
		r.Month = Month(r.Month)
	}
	if r.DOI != "" {
		r.DOI = DOI(r.DOI)
	}

	key, err := n.GenerateKey(r, existing)
	if err != nil {
		return err
	}
	r.CitationKey = key
	if existing != nil {
		existing[key] = true
	}
	return nil
}

// wrapped reports whether s is one balanced brace group, i.e. the
// leading brace closes at the final character.
func wrapped(s string) bool {
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return false
	}
	depth := 0
	for i := 1; i < len(s)-1; i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
