package crawler

import (
	"errors"
	"fmt"
	"time"
)

// ErrPageStructure is returned by the extractor when a page does not
// contain the expected results markup. This typically means GitHub
// served a CAPTCHA or interstitial page instead of search results.
// It is reported and treated as end-of-results, never retried.
var ErrPageStructure = errors.New("page structure not recognized: results list missing")

// FailureKind classifies a single fetch failure.
type FailureKind int

const (
	// FailureNetwork covers connection refused, timeouts, DNS failures,
	// and unreachable proxies.
	FailureNetwork FailureKind = iota

	// FailureHTTP covers non-2xx responses (rate-limited 429,
	// blocked 403, server errors).
	FailureHTTP

	// FailureEmptyResponse covers 2xx responses with no body.
	// Treated as the end of pagination, not retried.
	FailureEmptyResponse
)

// String returns a human-readable failure kind name.
func (k FailureKind) String() string {
	switch k {
	case FailureNetwork:
		return "network error"
	case FailureHTTP:
		return "http error"
	case FailureEmptyResponse:
		return "empty response"
	default:
		return "unknown"
	}
}

// Transient reports whether retrying the same page through a different
// proxy can plausibly succeed. Empty responses are not transient: they
// signal that pagination ran past the last page.
func (k FailureKind) Transient() bool {
	return k == FailureNetwork || k == FailureHTTP
}

// FetchError is the classified outcome of a failed page fetch.
//
// Design decision: One error type with a kind enum rather than separate
// error types per kind, because the session only branches on
// transient-vs-benign and the retry wait; a single errors.As suffices at
// every decision point.
type FetchError struct {
	// Kind classifies the failure.
	Kind FailureKind

	// Status is the HTTP status code for FailureHTTP, zero otherwise.
	Status int

	// RetryAfter is the server-requested wait parsed from a 429
	// response's Retry-After header, zero when absent.
	RetryAfter time.Duration

	// Err is the underlying error, nil for pure status failures.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch e.Kind {
	case FailureHTTP:
		return fmt.Sprintf("%s: status %d", e.Kind, e.Status)
	case FailureEmptyResponse:
		return e.Kind.String()
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
		return e.Kind.String()
	}
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *FetchError) Unwrap() error {
	return e.Err
}
