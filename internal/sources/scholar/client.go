// Package scholar scrapes Google Scholar result pages to retrieve
// canonical BibTeX text for papers. Scholar has no API and blocks
// aggressive clients, so requests are spaced widely, jittered, and run
// through a circuit breaker that backs off after consecutive failures.
package scholar

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/bibfold/bibfold/internal/sources"
	"github.com/bibfold/bibfold/internal/text"
)

const (
	// BaseURL is the Google Scholar front end.
	BaseURL = "https://scholar.google.com"

	// DefaultMinInterval and DefaultJitter space requests 10 to 15
	// seconds apart, matching what Scholar tolerates from a polite
	// scraper.
	DefaultMinInterval = 10 * time.Second
	DefaultJitter      = 5 * time.Second

	// DefaultSearchLimit caps how many results SearchWithText fetches
	// BibTeX for. Each fetch costs two further page loads.
	DefaultSearchLimit = 5

	// breakerFailures consecutive failures open the circuit for
	// breakerTimeout before a probe request is allowed through.
	breakerFailures = 3
	breakerTimeout  = 30 * time.Second

	maxPageBytes = 2 << 20
)

// ErrBlocked is returned when Scholar serves a captcha interstitial
// instead of results.
var ErrBlocked = fmt.Errorf("%w: blocked by captcha", sources.ErrUnavailable)

var (
	titleRe   = regexp.MustCompile(`(?s)<h3 class="gs_rt[^"]*"[^>]*>(.*?)</h3>`)
	bylineRe  = regexp.MustCompile(`(?s)<div class="gs_a"[^>]*>(.*?)</div>`)
	bibLinkRe = regexp.MustCompile(`href="([^"]+)"[^>]*>\s*BibTeX\s*</a>`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
	markerRe  = regexp.MustCompile(`^(\[[^\]]+\]\s*)+`)
	yearRe    = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

// Client scrapes Google Scholar.
type Client struct {
	http    *sources.HTTPClient
	baseURL string
	breaker *gobreaker.CircuitBreaker
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom transport client.
func WithHTTPClient(hc *sources.HTTPClient) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a Scholar client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http: sources.NewHTTPClient(
			sources.WithMinInterval(DefaultMinInterval),
			sources.WithJitter(DefaultJitter),
		),
		baseURL: BaseURL,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "scholar",
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRecordText searches for a title and returns the BibTeX text of
// the top result. The title is quoted for exact matching; venueHint,
// when non-empty, is appended to steer the search toward the published
// version. Returns ErrNotFound when the search yields nothing.
func (c *Client) FetchRecordText(ctx context.Context, title, venueHint string) (string, error) {
	query := `"` + title + `"`
	if venueHint != "" {
		query += " " + venueHint
	}

	results, err := c.search(ctx, query)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", sources.ErrNotFound
	}
	return c.bibtexForCID(ctx, results[0].cid)
}

// SearchWithText runs a free-form query and returns up to limit
// results, each carrying its BibTeX text when retrievable. A result
// whose BibTeX fetch fails is kept with empty text rather than
// aborting the whole search.
func (c *Client) SearchWithText(ctx context.Context, query string, limit int) ([]sources.TextSearchResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	results, err := c.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(results) > limit {
		results = results[:limit]
	}

	out := make([]sources.TextSearchResult, 0, len(results))
	for _, r := range results {
		item := sources.TextSearchResult{
			Meta: sources.Metadata{
				Title:   r.title,
				Authors: r.authors,
				Year:    r.year,
				Venue:   r.venue,
			},
		}
		if bib, err := c.bibtexForCID(ctx, r.cid); err == nil {
			item.RecordText = bib
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		out = append(out, item)
	}
	return out, nil
}

type result struct {
	cid     string
	title   string
	authors []string
	venue   string
	year    string
}

func (c *Client) search(ctx context.Context, query string) ([]result, error) {
	u := fmt.Sprintf("%s/scholar?hl=en&as_sdt=0,5&q=%s", c.baseURL, url.QueryEscape(query))
	page, err := c.fetchPage(ctx, u)
	if err != nil {
		return nil, err
	}
	return parseResults(page), nil
}

// bibtexForCID walks the two-step export flow: the citation popup for
// a result id links to a scholar.bib document holding the BibTeX.
func (c *Client) bibtexForCID(ctx context.Context, cid string) (string, error) {
	u := fmt.Sprintf("%s/scholar?q=info:%s:scholar.google.com/&output=cite&scirp=0&hl=en",
		c.baseURL, url.QueryEscape(cid))
	page, err := c.fetchPage(ctx, u)
	if err != nil {
		return "", err
	}

	m := bibLinkRe.FindStringSubmatch(page)
	if m == nil {
		return "", sources.ErrNotFound
	}
	href, err := c.absoluteURL(html.UnescapeString(m[1]))
	if err != nil {
		return "", fmt.Errorf("%w: bad bibtex link: %v", sources.ErrInvalidResponse, err)
	}

	bib, err := c.fetchPage(ctx, href)
	if err != nil {
		return "", err
	}
	bib = strings.TrimSpace(bib)
	if bib == "" {
		return "", sources.ErrNotFound
	}
	return bib, nil
}

// fetchPage loads a page through the circuit breaker. Any transport
// or status failure counts toward opening the circuit, captcha
// interstitials included.
func (c *Client) fetchPage(ctx context.Context, u string) (string, error) {
	body, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.Get(ctx, u, nil)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != 200 {
			return nil, &sources.APIError{Provider: "scholar", StatusCode: resp.StatusCode, Message: resp.Status}
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
		if err != nil {
			return nil, fmt.Errorf("%w: reading page: %v", sources.ErrUnavailable, err)
		}
		page := string(data)
		if looksBlocked(page) {
			return nil, ErrBlocked
		}
		return page, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: scholar circuit open", sources.ErrUnavailable)
		}
		return "", err
	}
	return body.(string), nil
}

func (c *Client) absoluteURL(href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return href, nil
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func looksBlocked(page string) bool {
	lower := strings.ToLower(page)
	return strings.Contains(lower, "gs_captcha") ||
		strings.Contains(lower, "not a robot") ||
		strings.Contains(lower, "unusual traffic")
}

// parseResults extracts result entries from a Scholar results page.
// Each result container carries a data-cid attribute followed by the
// title heading and the author byline for that result.
func parseResults(page string) []result {
	segments := strings.Split(page, `data-cid="`)
	var out []result
	for _, seg := range segments[1:] {
		end := strings.IndexByte(seg, '"')
		if end <= 0 {
			continue
		}
		r := result{cid: seg[:end]}
		if m := titleRe.FindStringSubmatch(seg); m != nil {
			r.title = markerRe.ReplaceAllString(cleanHTML(m[1]), "")
		}
		if m := bylineRe.FindStringSubmatch(seg); m != nil {
			r.authors, r.venue, r.year = parseByline(cleanHTML(m[1]))
		}
		if r.title != "" {
			out = append(out, r)
		}
	}
	return out
}

func cleanHTML(s string) string {
	return text.CollapseWhitespace(html.UnescapeString(tagRe.ReplaceAllString(s, " ")))
}

// parseByline splits the "authors - venue, year - host" line under a
// result title. Scholar truncates long author lists with an ellipsis.
func parseByline(s string) (authors []string, venue, year string) {
	parts := strings.Split(s, " - ")
	for _, a := range strings.Split(parts[0], ",") {
		if a = strings.Trim(a, " …"); a != "" {
			authors = append(authors, a)
		}
	}
	if len(parts) > 1 {
		vy := strings.TrimSpace(parts[1])
		if matches := yearRe.FindAllString(vy, -1); len(matches) > 0 {
			year = matches[len(matches)-1]
		}
		venue = strings.TrimRight(strings.TrimSpace(strings.TrimSuffix(vy, year)), ",… ")
	}
	return authors, venue, year
}
