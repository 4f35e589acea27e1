// Package arxiv is a client for the arXiv Atom export API, used as a
// fallback metadata source when a preprint is unknown to the primary
// providers.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bibfold/bibfold/internal/sources"
	"github.com/bibfold/bibfold/internal/text"
)

const (
	// BaseURL is the arXiv export API query endpoint.
	BaseURL = "http://export.arxiv.org/api/query"

	// minInterval follows the arXiv API guidance of one request every
	// three seconds.
	minInterval = 3 * time.Second
)

// Client is a rate-limited arXiv export API client.
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

// NewClient creates an arXiv export API client.
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

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	DOI   string `xml:"http://arxiv.org/schemas/atom doi"`
	Links []struct {
		Href  string `xml:"href,attr"`
		Title string `xml:"title,attr"`
	} `xml:"link"`
}

// LookupByArxivID fetches metadata for an arXiv identifier. The
// returned ArxivID is taken from the entry URL and may carry a version
// suffix even when the query did not.
func (c *Client) LookupByArxivID(ctx context.Context, id string) (*sources.Metadata, error) {
	u := fmt.Sprintf("%s?id_list=%s&max_results=1", c.baseURL, url.QueryEscape(id))

	resp, err := c.http.Get(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, &sources.APIError{Provider: "arxiv", StatusCode: resp.StatusCode, Message: resp.Status}
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("%w: decoding feed: %v", sources.ErrInvalidResponse, err)
	}

	// The API reports unknown identifiers as an empty feed or a
	// placeholder entry with no title.
	if len(feed.Entries) == 0 {
		return nil, sources.ErrNotFound
	}
	entry := &feed.Entries[0]
	title := text.CollapseWhitespace(entry.Title)
	if title == "" || strings.EqualFold(title, "Error") {
		return nil, sources.ErrNotFound
	}

	return entryMetadata(entry, title), nil
}

func entryMetadata(entry *atomEntry, title string) *sources.Metadata {
	m := &sources.Metadata{
		Title:    title,
		Abstract: text.CollapseWhitespace(entry.Summary),
		URL:      entry.ID,
		DOI:      entry.DOI,
	}

	if _, rest, ok := strings.Cut(entry.ID, "arxiv.org/abs/"); ok {
		m.ArxivID = rest
	}
	if len(entry.Published) >= 4 {
		m.Year = entry.Published[:4]
	}
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			m.Authors = append(m.Authors, name)
		}
	}
	if m.DOI == "" {
		for _, l := range entry.Links {
			if _, rest, ok := strings.Cut(l.Href, "doi.org/"); ok {
				m.DOI = rest
				break
			}
		}
	}

	return m
}
