// Package sources defines the capability contracts for external
// bibliographic metadata providers and a shared rate-limited HTTP
// client they are built on.
package sources

import (
	"context"
	"strings"
)

// Venue describes where a work was published.
type Venue struct {
	Name string `json:"name"`
	Type string `json:"type"` // journal, conference, ...
}

// Metadata is the normalized shape every provider maps its responses
// onto. Fields are empty when the provider did not report them.
type Metadata struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors,omitempty"`
	Year          string   `json:"year,omitempty"`
	Venue         string   `json:"venue,omitempty"`
	DOI           string   `json:"doi,omitempty"`
	ArxivID       string   `json:"arxiv_id,omitempty"`
	Abstract      string   `json:"abstract,omitempty"`
	CitationCount int      `json:"citation_count,omitempty"`

	// PublicationVenue is set when the provider distinguishes the
	// venue as a typed object rather than a bare string.
	PublicationVenue *Venue `json:"publication_venue,omitempty"`

	// Types carries the provider's publication-type tags verbatim
	// (e.g. "journal-article", "proceedings-article", "JournalArticle").
	Types []string `json:"types,omitempty"`

	// Extra detail some providers report, used when synthesizing a
	// record without canonical text.
	Volume    string `json:"volume,omitempty"`
	Number    string `json:"number,omitempty"`
	Pages     string `json:"pages,omitempty"`
	Publisher string `json:"publisher,omitempty"`
	URL       string `json:"url,omitempty"`
}

// IsPublished reports whether the metadata describes a formally
// published work rather than a bare preprint. Any of a non-arXiv venue
// string, a DOI that does not mention arXiv, or a populated publication
// venue object is taken as evidence of publication.
func (m *Metadata) IsPublished() bool {
	if m == nil {
		return false
	}
	venue := strings.ToLower(strings.TrimSpace(m.Venue))
	if venue != "" && venue != "arxiv" && venue != "arxiv.org" {
		return true
	}
	if m.DOI != "" && !strings.Contains(strings.ToLower(m.DOI), "arxiv") {
		return true
	}
	if m.PublicationVenue != nil && m.PublicationVenue.Name != "" {
		return true
	}
	return false
}

// PublishedVenue returns the best venue name for a published work,
// preferring the typed publication venue over the bare venue string.
func (m *Metadata) PublishedVenue() string {
	if m == nil {
		return ""
	}
	if m.PublicationVenue != nil && m.PublicationVenue.Name != "" {
		return m.PublicationVenue.Name
	}
	return m.Venue
}

// DOILookup resolves a bare DOI to metadata.
type DOILookup interface {
	LookupByDOI(ctx context.Context, doi string) (*Metadata, error)
}

// ArxivLookup resolves a bare arXiv identifier to metadata.
type ArxivLookup interface {
	LookupByArxivID(ctx context.Context, id string) (*Metadata, error)
}

// TitleSearcher returns metadata candidates ranked by relevance.
type TitleSearcher interface {
	SearchByTitle(ctx context.Context, query string, limit int) ([]Metadata, error)
}

// TextFetcher retrieves canonical record text for a title. venueHint,
// when non-empty, narrows the search toward the published version.
// A provider with no match returns ErrNotFound.
type TextFetcher interface {
	FetchRecordText(ctx context.Context, title, venueHint string) (string, error)
}

// TextSearchResult pairs search-result metadata with the canonical
// record text for that result, when the provider could retrieve it.
type TextSearchResult struct {
	Meta       Metadata `json:"meta"`
	RecordText string   `json:"record_text,omitempty"`
}

// FullTextSearcher searches by free-form query and returns results
// carrying canonical record text alongside whatever metadata the
// provider exposes on its result listing.
type FullTextSearcher interface {
	SearchWithText(ctx context.Context, query string, limit int) ([]TextSearchResult, error)
}
