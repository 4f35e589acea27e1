// Package crossref is a client for the CrossRef REST API, used to
// resolve DOIs to publisher metadata and to search works by title.
package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/bibfold/bibfold/internal/sources"
)

const (
	// BaseURL is the CrossRef REST API base URL.
	BaseURL = "https://api.crossref.org"

	// selectFields narrows work responses to the fields we map.
	selectFields = "DOI,title,author,published-print,published-online,container-title,volume,issue,page,type,publisher"

	// DefaultSearchLimit is the number of rows requested when the
	// caller does not specify one.
	DefaultSearchLimit = 5

	// minInterval keeps us inside CrossRef's polite-pool guidance.
	minInterval = 500 * time.Millisecond
)

// Client is a rate-limited CrossRef REST API client.
type Client struct {
	http    *sources.HTTPClient
	baseURL string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

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

// NewClient creates a CrossRef client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:    sources.NewHTTPClient(sources.WithMinInterval(minInterval)),
		baseURL: BaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// crWork mirrors the subset of a CrossRef work message we consume.
type crWork struct {
	DOI    string   `json:"DOI"`
	Title  []string `json:"title"`
	Author []struct {
		Given  string `json:"given"`
		Family string `json:"family"`
	} `json:"author"`
	PublishedPrint  crDate   `json:"published-print"`
	PublishedOnline crDate   `json:"published-online"`
	ContainerTitle  []string `json:"container-title"`
	Volume          string   `json:"volume"`
	Issue           string   `json:"issue"`
	Page            string   `json:"page"`
	Type            string   `json:"type"`
	Publisher       string   `json:"publisher"`
}

type crDate struct {
	DateParts [][]int `json:"date-parts"`
}

func (d crDate) year() int {
	if len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 {
		return d.DateParts[0][0]
	}
	return 0
}

type workResponse struct {
	Message crWork `json:"message"`
}

type searchResponse struct {
	Message struct {
		Items []crWork `json:"items"`
	} `json:"message"`
}

// LookupByDOI fetches work metadata for a DOI.
func (c *Client) LookupByDOI(ctx context.Context, doi string) (*sources.Metadata, error) {
	u := fmt.Sprintf("%s/works/%s", c.baseURL, url.PathEscape(doi))

	resp, err := c.http.Get(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return nil, sources.ErrNotFound
	}
	if resp.StatusCode != 200 {
		return nil, &sources.APIError{Provider: "crossref", StatusCode: resp.StatusCode, Message: resp.Status}
	}

	var work workResponse
	if err := json.NewDecoder(resp.Body).Decode(&work); err != nil {
		return nil, fmt.Errorf("%w: decoding work: %v", sources.ErrInvalidResponse, err)
	}

	return workMetadata(&work.Message), nil
}

// SearchByTitle runs a bibliographic query and returns up to limit works.
func (c *Client) SearchByTitle(ctx context.Context, query string, limit int) ([]sources.Metadata, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	u := fmt.Sprintf("%s/works?query=%s&rows=%d&select=%s",
		c.baseURL, url.QueryEscape(query), limit, url.QueryEscape(selectFields))

	resp, err := c.http.Get(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, &sources.APIError{Provider: "crossref", StatusCode: resp.StatusCode, Message: resp.Status}
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decoding search results: %v", sources.ErrInvalidResponse, err)
	}

	results := make([]sources.Metadata, 0, len(result.Message.Items))
	for i := range result.Message.Items {
		results = append(results, *workMetadata(&result.Message.Items[i]))
	}
	return results, nil
}

func workMetadata(w *crWork) *sources.Metadata {
	m := &sources.Metadata{
		DOI:       w.DOI,
		Volume:    w.Volume,
		Number:    w.Issue,
		Pages:     w.Page,
		Publisher: w.Publisher,
	}
	if len(w.Title) > 0 {
		m.Title = w.Title[0]
	}
	if len(w.ContainerTitle) > 0 {
		m.Venue = w.ContainerTitle[0]
	}
	if w.Type != "" {
		m.Types = []string{w.Type}
	}

	year := w.PublishedPrint.year()
	if year == 0 {
		year = w.PublishedOnline.year()
	}
	if year > 0 {
		m.Year = strconv.Itoa(year)
	}

	for _, a := range w.Author {
		switch {
		case a.Family != "" && a.Given != "":
			m.Authors = append(m.Authors, a.Family+", "+a.Given)
		case a.Family != "":
			m.Authors = append(m.Authors, a.Family)
		case a.Given != "":
			m.Authors = append(m.Authors, a.Given)
		}
	}

	return m
}
