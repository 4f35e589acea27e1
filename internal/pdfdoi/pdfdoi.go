// Package pdfdoi pulls bibliographic identifiers out of PDF files so a
// downloaded paper can be resolved without retyping its DOI.
package pdfdoi

import (
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// maxPages bounds the scan; identifiers sit on the first page of
// nearly every paper, with the occasional cover sheet in front.
const maxPages = 3

// DOI pattern: 10.XXXX/... where XXXX is 4+ digits
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// arXiv ids appear as "arXiv:2104.01234v2" or "arXiv:hep-th/9901001".
var arxivPattern = regexp.MustCompile(`arXiv:\s*(\d{4}\.\d{4,5}(?:v\d+)?|[a-z-]+(?:\.[A-Z]{2})?/\d{7}(?:v\d+)?)`)

// ExtractIdentifier scans the first pages of a PDF for a DOI or an
// arXiv id, preferring the DOI when both appear. An empty result with
// nil error means no identifier was found.
func ExtractIdentifier(filePath string) (string, error) {
	text, err := readPages(filePath, maxPages)
	if err != nil {
		return "", err
	}

	if doi := findDOI(text); doi != "" {
		return doi, nil
	}
	return findArxivID(text), nil
}

// ExtractDOI scans the first pages of a PDF for a DOI.
func ExtractDOI(filePath string) (string, error) {
	text, err := readPages(filePath, maxPages)
	if err != nil {
		return "", err
	}
	return findDOI(text), nil
}

// ExtractArxivID scans the first pages of a PDF for an arXiv id.
func ExtractArxivID(filePath string) (string, error) {
	text, err := readPages(filePath, maxPages)
	if err != nil {
		return "", err
	}
	return findArxivID(text), nil
}

// readPages concatenates plain text from the first n pages. Pages that
// fail to decode are skipped.
func readPages(filePath string, n int) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if n <= 0 || n > r.NumPage() {
		n = r.NumPage()
	}

	var builder strings.Builder
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

// findDOI returns the first plausible DOI in text.
func findDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return match
		}
	}
	return ""
}

// findArxivID returns the first arXiv id in text, without the prefix.
func findArxivID(text string) string {
	m := arxivPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// isValidDOI performs basic validation on a DOI.
func isValidDOI(doi string) bool {
	if len(doi) < 10 {
		return false
	}
	if !strings.HasPrefix(doi, "10.") {
		return false
	}
	slashIdx := strings.Index(doi, "/")
	if slashIdx == -1 || slashIdx >= len(doi)-1 {
		return false
	}
	return true
}
