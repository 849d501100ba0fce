package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoKeywords is returned when no search keyword is specified.
	// This error occurs when neither --keywords nor positional arguments
	// provide a keyword.
	ErrNoKeywords = errors.New("no keywords specified: provide at least one search keyword")

	// ErrNoProxies is returned when no proxy is configured and the embedded
	// Tor daemon is not requested. Direct crawling without proxies is not
	// supported because GitHub rate-limits repeated search traffic.
	ErrNoProxies = errors.New("no proxies specified: provide --proxies or use --tor")

	// ErrProxiesWithTor is returned when an explicit proxy list is combined
	// with --tor. The two routes are mutually exclusive.
	ErrProxiesWithTor = errors.New("conflicting proxy settings: --proxies and --tor cannot be used together")

	// ErrInvalidTimeout is returned when the per-request timeout is not positive.
	// A timeout of zero or negative would cause immediate connection failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDeadline is returned when the overall crawl deadline is negative.
	// A negative deadline is invalid; use 0 for no deadline.
	ErrInvalidDeadline = errors.New("invalid deadline: must be non-negative")

	// ErrInvalidConcurrency is returned when the session concurrency is not
	// positive. A concurrency of zero would mean no crawling at all.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidMaxPages is returned when the page ceiling is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidMaxAttempts is returned when the retry budget is not positive.
	// At least one fetch attempt per page is required.
	ErrInvalidMaxAttempts = errors.New("invalid max attempts: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
