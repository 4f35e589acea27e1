package resolve

import (
	"strings"

	"github.com/bibfold/bibfold/internal/record"
	"github.com/bibfold/bibfold/internal/sources"
	"github.com/bibfold/bibfold/internal/text"
)

// searchFallbackLimit is how many candidates the title-search fallback
// considers when no canonical text could be fetched.
const searchFallbackLimit = 5

// synthesizeFromVenue builds a record from provider metadata using the
// venue type to pick the entry type: a journal-typed venue yields an
// article, any other published venue an inproceedings, and everything
// else a misc entry.
func synthesizeFromVenue(m *sources.Metadata, arxivID string, src record.Source) *record.Record {
	rec := baseRecord(m, src)

	if arxivID == "" && m != nil {
		arxivID = StripVersion(m.ArxivID)
	}
	rec.ArxivID = arxivID

	venue := m.PublishedVenue()
	switch {
	case m.IsPublished() && m.PublicationVenue != nil && m.PublicationVenue.Type == "journal":
		rec.Type = record.TypeArticle
		rec.Journal = venue
	case m.IsPublished() && venue != "":
		rec.Type = record.TypeInProceedings
		rec.BookTitle = venue
	default:
		rec.Type = record.TypeMisc
	}

	return rec
}

// synthesizeFromTypes builds a record from DOI-provider metadata using
// the work type: proceedings-article yields an inproceedings entry,
// anything else an article.
func synthesizeFromTypes(m *sources.Metadata, doi string, src record.Source) *record.Record {
	rec := baseRecord(m, src)

	if rec.DOI == "" {
		rec.DOI = doi
	}
	if isProceedings(m.Types) {
		rec.Type = record.TypeInProceedings
		rec.BookTitle = m.Venue
	} else {
		rec.Type = record.TypeArticle
		rec.Journal = m.Venue
	}
	rec.Volume = m.Volume
	rec.Number = m.Number
	rec.Pages = m.Pages
	rec.Publisher = m.Publisher

	return rec
}

func baseRecord(m *sources.Metadata, src record.Source) *record.Record {
	rec := &record.Record{Source: src}
	if m == nil {
		return rec
	}
	rec.Title = m.Title
	rec.Author = strings.Join(m.Authors, " and ")
	rec.Year = m.Year
	rec.DOI = m.DOI
	rec.Abstract = m.Abstract
	return rec
}

func isProceedings(types []string) bool {
	for _, t := range types {
		if strings.EqualFold(t, "proceedings-article") {
			return true
		}
	}
	return false
}

// fillMetadata copies fields missing from dst in from src, so
// synthesis can combine what several providers know about a paper.
func fillMetadata(dst, src *sources.Metadata) {
	if dst == nil || src == nil {
		return
	}
	if dst.DOI == "" {
		dst.DOI = src.DOI
	}
	if dst.ArxivID == "" {
		dst.ArxivID = src.ArxivID
	}
	if dst.Abstract == "" {
		dst.Abstract = src.Abstract
	}
	if dst.Year == "" {
		dst.Year = src.Year
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
}

// bestMatch picks the search candidate closest to the query title:
// an exact match under comparison normalization wins, then the
// containment match with the closest length, then the first result.
func bestMatch(query string, candidates []sources.Metadata) *sources.Metadata {
	if len(candidates) == 0 {
		return nil
	}

	nq := text.NormalizeForComparison(query)
	for i := range candidates {
		if nq != "" && text.NormalizeForComparison(candidates[i].Title) == nq {
			return &candidates[i]
		}
	}

	best := -1
	bestScore := 0.0
	for i := range candidates {
		nc := text.NormalizeForComparison(candidates[i].Title)
		if nq == "" || nc == "" {
			continue
		}
		if strings.Contains(nc, nq) || strings.Contains(nq, nc) {
			shorter, longer := len(nc), len(nq)
			if shorter > longer {
				shorter, longer = longer, shorter
			}
			if score := float64(shorter) / float64(longer); score > bestScore {
				bestScore = score
				best = i
			}
		}
	}
	if best >= 0 {
		return &candidates[best]
	}
	return &candidates[0]
}
