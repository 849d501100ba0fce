package proxy

import "errors"

// Proxy configuration errors.
// These are fatal: they abort the run before any network activity starts.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances at each call site. This allows callers to
// use errors.Is() for programmatic handling while still providing
// human-readable messages.
var (
	// ErrNoProxies is returned when a pool is constructed from an empty
	// proxy list. Crawling without a proxy route is not supported.
	ErrNoProxies = errors.New("no proxies configured: provide at least one host:port address")

	// ErrInvalidProxy is returned when a proxy address cannot be parsed
	// or uses an unsupported scheme. Supported schemes are http, https,
	// and socks5; bare "host:port" defaults to http.
	ErrInvalidProxy = errors.New("invalid proxy address: expected [scheme://]host:port")
)
