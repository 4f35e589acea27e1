// Package semscholar is a client for the Semantic Scholar Graph API.
// It resolves papers by DOI or arXiv identifier and searches by title,
// mapping responses onto the shared sources.Metadata shape.
package semscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/bibfold/bibfold/internal/sources"
)

const (
	// BaseURL is the Semantic Scholar Graph API base URL.
	BaseURL = "https://api.semanticscholar.org/graph/v1"

	// paperFields are the fields requested for every paper lookup.
	paperFields = "title,authors,year,venue,externalIds,publicationVenue,abstract,citationCount,publicationTypes"

	// DefaultSearchLimit is the number of results requested when the
	// caller does not specify one.
	DefaultSearchLimit = 5

	// minInterval spaces requests per the public API guidance of one
	// request per second for unauthenticated clients.
	minInterval = time.Second
)

// Client is a rate-limited Semantic Scholar Graph API client.
type Client struct {
	http    *sources.HTTPClient
	baseURL string
	apiKey  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key sent in the x-api-key header.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom transport client.
func WithHTTPClient(hc *sources.HTTPClient) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a Semantic Scholar client. The S2_API_KEY
// environment variable is used when no key is set explicitly.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:    sources.NewHTTPClient(sources.WithMinInterval(minInterval)),
		baseURL: BaseURL,
	}

	if key := os.Getenv("S2_API_KEY"); key != "" {
		c.apiKey = key
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// s2Paper mirrors the subset of the Graph API paper object we request.
type s2Paper struct {
	PaperID     string `json:"paperId"`
	Title       string `json:"title"`
	Abstract    string `json:"abstract"`
	Venue       string `json:"venue"`
	Year        int    `json:"year"`
	ExternalIDs struct {
		DOI   string `json:"DOI"`
		ArXiv string `json:"ArXiv"`
	} `json:"externalIds"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	PublicationVenue *struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"publicationVenue"`
	PublicationTypes []string `json:"publicationTypes"`
	CitationCount    int      `json:"citationCount"`
}

type searchResponse struct {
	Total int       `json:"total"`
	Data  []s2Paper `json:"data"`
}

// LookupByDOI fetches paper metadata for a DOI.
func (c *Client) LookupByDOI(ctx context.Context, doi string) (*sources.Metadata, error) {
	return c.lookup(ctx, "DOI:"+doi)
}

// LookupByArxivID fetches paper metadata for an arXiv identifier.
// The identifier should not carry a version suffix; the API treats
// 1706.03762v5 and 1706.03762 as distinct lookups.
func (c *Client) LookupByArxivID(ctx context.Context, id string) (*sources.Metadata, error) {
	return c.lookup(ctx, "ARXIV:"+id)
}

func (c *Client) lookup(ctx context.Context, paperID string) (*sources.Metadata, error) {
	u := fmt.Sprintf("%s/paper/%s?fields=%s", c.baseURL, url.PathEscape(paperID), url.QueryEscape(paperFields))

	resp, err := c.http.Get(ctx, u, c.header())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var paper s2Paper
	if err := json.NewDecoder(resp.Body).Decode(&paper); err != nil {
		return nil, fmt.Errorf("%w: decoding paper: %v", sources.ErrInvalidResponse, err)
	}

	return paperMetadata(&paper), nil
}

// SearchByTitle runs a relevance search and returns up to limit results.
func (c *Client) SearchByTitle(ctx context.Context, query string, limit int) ([]sources.Metadata, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	u := fmt.Sprintf("%s/paper/search?query=%s&limit=%d&fields=%s",
		c.baseURL, url.QueryEscape(query), limit, url.QueryEscape(paperFields))

	resp, err := c.http.Get(ctx, u, c.header())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decoding search results: %v", sources.ErrInvalidResponse, err)
	}

	results := make([]sources.Metadata, 0, len(result.Data))
	for i := range result.Data {
		results = append(results, *paperMetadata(&result.Data[i]))
	}
	return results, nil
}

func (c *Client) header() http.Header {
	if c.apiKey == "" {
		return nil
	}
	h := make(http.Header)
	h.Set("x-api-key", c.apiKey)
	return h
}

func (c *Client) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return sources.ErrNotFound
	default:
		return &sources.APIError{
			Provider:   "semanticscholar",
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		}
	}
}

func paperMetadata(p *s2Paper) *sources.Metadata {
	m := &sources.Metadata{
		Title:         p.Title,
		Venue:         p.Venue,
		DOI:           p.ExternalIDs.DOI,
		ArxivID:       p.ExternalIDs.ArXiv,
		Abstract:      p.Abstract,
		CitationCount: p.CitationCount,
		Types:         p.PublicationTypes,
	}
	if p.Year > 0 {
		m.Year = strconv.Itoa(p.Year)
	}
	for _, a := range p.Authors {
		if a.Name != "" {
			m.Authors = append(m.Authors, a.Name)
		}
	}
	if p.PublicationVenue != nil && p.PublicationVenue.Name != "" {
		m.PublicationVenue = &sources.Venue{
			Name: p.PublicationVenue.Name,
			Type: p.PublicationVenue.Type,
		}
	}
	return m
}
