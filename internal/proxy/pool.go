package proxy

import (
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
)

// Proxy is a single normalized proxy address. It is immutable and opaque
// to the crawler beyond being attached to outgoing requests.
type Proxy struct {
	// raw is the address exactly as supplied, used as a stable cache key.
	raw string

	// url is the normalized proxy URL with an explicit scheme.
	url *url.URL
}

// ParseProxy parses and normalizes a proxy address.
// Addresses without a scheme default to http, matching the common
// "host:port" proxy list format. Supported schemes: http, https, socks5.
func ParseProxy(addr string) (Proxy, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return Proxy{}, fmt.Errorf("%w: empty address", ErrInvalidProxy)
	}

	normalized := addr
	if !strings.Contains(normalized, "://") {
		normalized = "http://" + normalized
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return Proxy{}, fmt.Errorf("%w: %q", ErrInvalidProxy, addr)
	}

	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return Proxy{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
	}

	if u.Hostname() == "" || u.Port() == "" {
		return Proxy{}, fmt.Errorf("%w: %q", ErrInvalidProxy, addr)
	}

	return Proxy{raw: addr, url: u}, nil
}

// URL returns the normalized proxy URL.
// Callers must not mutate the returned value.
func (p Proxy) URL() *url.URL {
	return p.url
}

// Addr returns the proxy network address in "host:port" form.
func (p Proxy) Addr() string {
	return p.url.Host
}

// Key returns a stable identifier for the proxy, suitable for use as a
// map key when caching per-proxy HTTP clients.
func (p Proxy) Key() string {
	return p.raw
}

// String returns the proxy address with any credentials stripped.
// Proxy lists are commonly credentialed, so the userinfo must never
// appear in logs or error messages.
func (p Proxy) String() string {
	if p.url == nil {
		return ""
	}
	return p.url.Scheme + "://" + p.url.Host
}

// Pool holds the supplied proxy list and hands out one proxy per request
// attempt, chosen uniformly at random.
//
// Design decision: Selection is sampling with replacement via a simple
// uniform random index draw. There is no exhaustion state and no
// mutation after construction, so the pool is safely shared across all
// concurrent sessions without locking. math/rand/v2's global generator
// is already safe for concurrent use.
type Pool struct {
	proxies []Proxy
}

// NewPool creates a pool from the supplied proxy addresses.
// Returns ErrNoProxies for an empty list and ErrInvalidProxy (wrapped
// with the offending address) when any entry cannot be parsed.
func NewPool(addrs []string) (*Pool, error) {
	if len(addrs) == 0 {
		return nil, ErrNoProxies
	}

	proxies := make([]Proxy, 0, len(addrs))
	for _, addr := range addrs {
		p, err := ParseProxy(addr)
		if err != nil {
			return nil, err
		}
		proxies = append(proxies, p)
	}

	return &Pool{proxies: proxies}, nil
}

// NewPoolFromProxies creates a pool from already-parsed proxies.
// This is used when the proxy route comes from the embedded Tor daemon
// rather than a user-supplied list.
func NewPoolFromProxies(proxies []Proxy) (*Pool, error) {
	if len(proxies) == 0 {
		return nil, ErrNoProxies
	}
	return &Pool{proxies: append([]Proxy(nil), proxies...)}, nil
}

// Select returns one proxy chosen uniformly at random.
// Every call is independent; the same proxy may be returned repeatedly.
func (p *Pool) Select() Proxy {
	return p.proxies[rand.IntN(len(p.proxies))]
}

// Len returns the number of proxies in the pool.
func (p *Pool) Len() int {
	return len(p.proxies)
}
