package sources

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is how many times a transient failure is
	// retried before the last error surfaces.
	DefaultMaxRetries = 3

	// DefaultUserAgent identifies this client to providers.
	DefaultUserAgent = "bibfold/1.0 (https://github.com/bibfold/bibfold)"
)

// HTTPClient is a rate-limited HTTP GET client shared by the provider
// adapters. Every request waits for the limiter, sleeps a random
// jitter on top of the minimum spacing, and transient failures
// (connection errors, timeouts, HTTP 429) are retried with exponential
// backoff.
type HTTPClient struct {
	client     *http.Client
	limiter    *rate.Limiter
	jitterMax  time.Duration
	maxRetries int
	userAgent  string

	backoffBase      time.Duration
	rateLimitBackoff time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient sets a custom underlying HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		c.client = hc
	}
}

// WithMinInterval sets the minimum spacing between requests.
func WithMinInterval(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithJitter sets the maximum random delay added after the minimum
// spacing. Zero disables jitter.
func WithJitter(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		c.jitterMax = d
	}
}

// WithMaxRetries sets the retry budget for transient failures.
func WithMaxRetries(n int) HTTPOption {
	return func(c *HTTPClient) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(c *HTTPClient) {
		c.userAgent = ua
	}
}

// WithBackoff overrides the retry backoff bases. Tests use small
// values to keep retries fast.
func WithBackoff(base, rateLimited time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		c.backoffBase = base
		c.rateLimitBackoff = rateLimited
	}
}

// NewHTTPClient creates a client with sensible defaults: one request
// per second, three retries, 30 second timeout.
func NewHTTPClient(opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		client:           &http.Client{Timeout: DefaultTimeout},
		limiter:          rate.NewLimiter(rate.Every(time.Second), 1),
		maxRetries:       DefaultMaxRetries,
		userAgent:        DefaultUserAgent,
		backoffBase:      time.Second,
		rateLimitBackoff: 5 * time.Second,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// randomDuration returns a uniform duration in [0, max).
func (c *HTTPClient) randomDuration(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(c.rng.Int63n(int64(max)))
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff computes the delay before retry number attempt (1-based).
// Rate-limited failures back off harder than plain transport errors.
func (c *HTTPClient) backoff(attempt int, rateLimited bool) time.Duration {
	base := c.backoffBase
	extra := time.Duration(0)
	if rateLimited {
		base = c.rateLimitBackoff
		extra = c.randomDuration(c.rateLimitBackoff)
	}
	return base*(1<<(attempt-1)) + extra
}

// Get issues a rate-limited GET with retries. header may be nil. The
// response body is open; the caller must close it. Responses with
// status 429 and transport failures are retried; any other response
// is returned as-is for the caller to interpret.
func (c *HTTPClient) Get(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.backoff(attempt, IsRateLimited(lastErr))); err != nil {
				return nil, err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		if err := sleep(ctx, c.randomDuration(c.jitterMax)); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		for name, values := range header {
			for _, v := range values {
				req.Header.Add(name, v)
			}
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: status 429", ErrRateLimited)
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}
