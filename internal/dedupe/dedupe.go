// Package dedupe detects and merges duplicate bibliographic records
// using tiered confidence rules.
package dedupe

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bibfold/bibfold/internal/record"
	"github.com/bibfold/bibfold/internal/text"
)

// DefaultThreshold is the minimum confidence FindDuplicates reports.
const DefaultThreshold = 0.85

// Confidence levels, one per matching tier.
const (
	ConfidenceDOI         = 1.00
	ConfidenceArxiv       = 0.98
	ConfidenceTitleYear   = 0.95
	ConfidenceTitleAuthor = 0.85
)

// Similarity floors used by the fuzzy tiers.
const (
	titleYearSimilarity   = 0.88
	titleFloorSimilarity  = 0.75
	authorFloorSimilarity = 0.80
)

// Match describes one detected duplicate pair. Matches are always
// recomputed from current records, never persisted.
type Match struct {
	KeyA       string  `json:"key_a"`
	KeyB       string  `json:"key_b"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

var arxivVersion = regexp.MustCompile(`v\d+$`)

// stripVersion removes a trailing vN version marker from an arXiv ID.
func stripVersion(id string) string {
	return arxivVersion.ReplaceAllString(id, "")
}

// normalizeDOI prepares a DOI for exact comparison.
func normalizeDOI(doi string) string {
	return strings.ToLower(text.Fold(strings.TrimSpace(doi)))
}

// CheckDuplicate evaluates the tiers in order and returns the first
// match, or nil when no tier is satisfied.
func CheckDuplicate(a, b *record.Record) *Match {
	if a.DOI != "" && b.DOI != "" && normalizeDOI(a.DOI) == normalizeDOI(b.DOI) {
		return &Match{
			KeyA:       a.CitationKey,
			KeyB:       b.CitationKey,
			Confidence: ConfidenceDOI,
			Reason:     fmt.Sprintf("Exact DOI match: %s", a.DOI),
		}
	}

	if a.ArxivID != "" && b.ArxivID != "" {
		aBase := stripVersion(a.ArxivID)
		bBase := stripVersion(b.ArxivID)
		if aBase == bBase {
			return &Match{
				KeyA:       a.CitationKey,
				KeyB:       b.CitationKey,
				Confidence: ConfidenceArxiv,
				Reason:     fmt.Sprintf("arXiv ID match: %s", aBase),
			}
		}
	}

	titleSim := text.Similarity(a.Title, b.Title)
	if titleSim >= titleYearSimilarity && a.Year != "" && a.Year == b.Year {
		return &Match{
			KeyA:       a.CitationKey,
			KeyB:       b.CitationKey,
			Confidence: ConfidenceTitleYear,
			Reason:     fmt.Sprintf("Title similarity %.2f + same year %s", titleSim, a.Year),
		}
	}

	authorSim := text.Similarity(a.Author, b.Author)
	if titleSim >= titleFloorSimilarity && authorSim >= authorFloorSimilarity {
		return &Match{
			KeyA:       a.CitationKey,
			KeyB:       b.CitationKey,
			Confidence: ConfidenceTitleAuthor,
			Reason:     fmt.Sprintf("Title similarity %.2f + author similarity %.2f", titleSim, authorSim),
		}
	}

	return nil
}

// FindDuplicates checks every unordered pair once and returns matches
// meeting the threshold, sorted by confidence descending. Pairs with
// equal confidence keep their original order.
func FindDuplicates(records []*record.Record, threshold float64) []Match {
	var matches []Match
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			m := CheckDuplicate(records[i], records[j])
			if m != nil && m.Confidence >= threshold {
				matches = append(matches, *m)
			}
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

// Merge fills empty primary fields from secondary. Non-empty primary
// fields, the citation key, the entry type, and the extras are left
// untouched. If both records hold different values for the same field,
// primary wins with no conflict surfaced.
func Merge(primary, secondary *record.Record) *record.Record {
	for _, name := range record.FieldNames() {
		pv, _ := primary.Field(name)
		if pv != "" {
			continue
		}
		if sv, _ := secondary.Field(name); sv != "" {
			primary.SetField(name, sv)
		}
	}
	return primary
}
