package sportsdb

import (
	"errors"
	"fmt"
)

// ErrRateLimited is reported when every attempt was answered with HTTP 429
var ErrRateLimited = errors.New("sportsdb: rate limited")

// HTTPError is a non-success, non-429 response
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("sportsdb: HTTP status %d: %s", e.StatusCode, e.Body)
}

// FetchError is returned once the attempt budget for a URL is spent
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
