package resolve

import (
	"context"
	"strings"

	"github.com/bibfold/bibfold/internal/bibtex"
	"github.com/bibfold/bibfold/internal/record"
	"github.com/bibfold/bibfold/internal/sources"
	"github.com/bibfold/bibfold/internal/text"
)

// DefaultSearchLimit is how many results Search returns when the
// caller does not specify a limit.
const DefaultSearchLimit = 5

// SearchResult is a lightweight summary of one search hit. BibTeX is
// informational display text and is never stored as-is.
type SearchResult struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors,omitempty"`
	Year          string   `json:"year,omitempty"`
	Venue         string   `json:"venue,omitempty"`
	DOI           string   `json:"doi,omitempty"`
	ArxivID       string   `json:"arxiv_id,omitempty"`
	IsPublished   bool     `json:"is_published"`
	CitationCount int      `json:"citation_count,omitempty"`
	BibTeX        string   `json:"bibtex,omitempty"`
}

// Search classifies the query like Resolve but returns result
// summaries instead of resolving to a single record. Identifier
// queries yield at most one result; title queries merge the metadata
// search with the full-text provider's results.
func (r *Resolver) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	q := CleanQuery(query)
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	switch Classify(q) {
	case InputArxiv:
		return r.searchArxiv(ctx, q)
	case InputDOI:
		return r.searchDOI(ctx, q)
	default:
		return r.searchTitle(ctx, q, limit)
	}
}

func (r *Resolver) searchArxiv(ctx context.Context, id string) ([]SearchResult, error) {
	base := StripVersion(id)

	var meta *sources.Metadata
	src := record.SourceSemanticScholar
	for _, p := range r.arxivProviders {
		if m, err := p.Lookup.LookupByArxivID(ctx, base); err == nil && m.Title != "" {
			meta = m
			src = p.Source
			break
		}
	}
	if meta == nil {
		return nil, nil
	}

	result := metadataResult(meta)
	if result.ArxivID == "" {
		result.ArxivID = base
	}
	result.BibTeX = r.displayBibtex(synthesizeFromVenue(meta, base, src))
	return []SearchResult{result}, nil
}

func (r *Resolver) searchDOI(ctx context.Context, doi string) ([]SearchResult, error) {
	for _, p := range r.doiProviders {
		m, err := p.Lookup.LookupByDOI(ctx, doi)
		if err != nil || m.Title == "" {
			continue
		}
		result := metadataResult(m)
		if result.DOI == "" {
			result.DOI = doi
		}
		result.BibTeX = r.displayBibtex(synthesizeFromTypes(m, doi, p.Source))
		return []SearchResult{result}, nil
	}
	return nil, nil
}

// searchTitle merges the metadata provider's results with the
// full-text provider's: a full-text result matching a metadata result
// by title containment contributes its BibTeX to that entry, and
// unmatched full-text results are appended.
func (r *Resolver) searchTitle(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	var results []SearchResult
	if r.titleSearch != nil {
		metas, err := r.titleSearch.SearchByTitle(ctx, query, limit)
		if err != nil && ctx.Err() != nil {
			return nil, err
		}
		for i := range metas {
			results = append(results, metadataResult(&metas[i]))
		}
	}

	if r.fullText != nil {
		secondary, err := r.fullText.SearchWithText(ctx, query, limit)
		if err != nil && ctx.Err() != nil {
			return nil, err
		}
		for _, sec := range secondary {
			if i := matchByTitle(results, sec.Meta.Title); i >= 0 {
				if results[i].BibTeX == "" {
					results[i].BibTeX = sec.RecordText
				}
				continue
			}
			extra := metadataResult(&sec.Meta)
			extra.IsPublished = sec.Meta.Venue != ""
			extra.BibTeX = sec.RecordText
			results = append(results, extra)
		}
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func metadataResult(m *sources.Metadata) SearchResult {
	return SearchResult{
		Title:         m.Title,
		Authors:       m.Authors,
		Year:          m.Year,
		Venue:         m.PublishedVenue(),
		DOI:           m.DOI,
		ArxivID:       m.ArxivID,
		IsPublished:   m.IsPublished(),
		CitationCount: m.CitationCount,
	}
}

// matchByTitle finds the first result whose normalized title contains
// or is contained by the candidate title.
func matchByTitle(results []SearchResult, title string) int {
	nt := text.NormalizeForComparison(title)
	if nt == "" {
		return -1
	}
	for i := range results {
		nr := text.NormalizeForComparison(results[i].Title)
		if nr == "" {
			continue
		}
		if strings.Contains(nr, nt) || strings.Contains(nt, nr) {
			return i
		}
	}
	return -1
}

// displayBibtex renders a synthesized record for display. The key is
// generated against a throwaway set so searching has no side effects
// on stored keys.
func (r *Resolver) displayBibtex(rec *record.Record) string {
	if rec == nil || rec.Title == "" {
		return ""
	}
	if err := r.norm.Normalize(rec, make(map[string]bool)); err != nil {
		return ""
	}
	return bibtex.Serialize(rec, bibtex.ModeStandard)
}
