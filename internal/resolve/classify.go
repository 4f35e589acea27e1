package resolve

import (
	"regexp"
	"strings"
)

// InputType classifies what kind of identifier a query holds.
type InputType string

const (
	InputDOI   InputType = "doi"
	InputArxiv InputType = "arxiv"
	InputTitle InputType = "title"
)

var (
	doiRe      = regexp.MustCompile(`^10\.\d{4,}/.+`)
	arxivNewRe = regexp.MustCompile(`^\d{4}\.\d{4,5}(v\d+)?$`)
	arxivOldRe = regexp.MustCompile(`^[a-z-]+/\d{7}$`)
	versionRe  = regexp.MustCompile(`v\d+$`)
)

// CleanQuery strips DOI-resolver and arXiv-abstract URL wrappers so a
// pasted link classifies the same as its bare identifier.
func CleanQuery(query string) string {
	q := strings.TrimSpace(query)
	for _, marker := range []string{"doi.org/", "arxiv.org/abs/"} {
		if i := strings.LastIndex(q, marker); i >= 0 {
			q = q[i+len(marker):]
		}
	}
	return strings.TrimSpace(q)
}

// Classify reports how a query will be resolved. Anything that is not
// a DOI or an arXiv identifier is treated as a title.
func Classify(query string) InputType {
	q := CleanQuery(query)
	switch {
	case doiRe.MatchString(q):
		return InputDOI
	case arxivNewRe.MatchString(q), arxivOldRe.MatchString(q):
		return InputArxiv
	default:
		return InputTitle
	}
}

// StripVersion removes a trailing version suffix from an arXiv
// identifier, so 1706.03762v5 and 1706.03762 resolve identically.
func StripVersion(id string) string {
	return versionRe.ReplaceAllString(id, "")
}
