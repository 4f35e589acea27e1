package sources

import (
	"errors"
	"fmt"
)

// Common errors returned by metadata source clients.
var (
	// ErrNotFound indicates the provider has no record for the query.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates the provider rejected the request for
	// exceeding its rate limit.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrUnavailable indicates a transient transport failure
	// (connection refused, timeout, temporarily unreachable).
	ErrUnavailable = errors.New("provider unavailable")

	// ErrInvalidResponse indicates the provider answered with a body
	// the client could not interpret.
	ErrInvalidResponse = errors.New("invalid provider response")
)

// APIError represents an HTTP-level error from a metadata provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error (status %d)", e.Provider, e.StatusCode)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// IsTransient returns true for failures worth retrying: rate limits,
// transport errors, and server-side 5xx responses.
func IsTransient(err error) bool {
	if errors.Is(err, ErrUnavailable) || IsRateLimited(err) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return false
}
