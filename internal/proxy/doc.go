// Package proxy provides the proxy pool and proxy-aware HTTP client
// construction for ghsearch.
//
// # Architecture
//
//   - Pool: immutable set of proxies with uniform random selection
//   - Proxy: a single normalized proxy address (http, https, or socks5)
//   - NewHTTPClient: builds an *http.Client routed through one proxy
//   - EmbeddedTor: optional embedded Tor daemon used as the proxy route
//
// # Concurrency
//
// The pool never mutates after construction, so it is shared across all
// concurrent search sessions without locking. Selection is sampling with
// replacement: proxies are reused across calls and never exhausted.
package proxy
