package crawler

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/ghsearch/internal/model"
	"github.com/nao1215/ghsearch/internal/proxy"
)

// Default fetcher settings.
const (
	// DefaultBaseURL is GitHub's public HTML endpoint.
	DefaultBaseURL = "https://github.com"

	// DefaultFetchTimeout bounds each request. GitHub responds quickly;
	// the generous bound accounts for slow proxies in rotation.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultUserAgent mimics a desktop browser. GitHub serves the full
	// search result markup only to browser-like clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// DefaultMaxBodySize limits response bodies to 5MB. Search result
	// pages are far smaller; the cap prevents memory exhaustion from
	// misbehaving proxies.
	DefaultMaxBodySize = 5 * 1024 * 1024
)

// Fetcher performs single HTTP GETs against constructed search URLs
// through a chosen proxy. It is safe for concurrent use by multiple
// sessions; HTTP clients are cached per proxy.
type Fetcher struct {
	// baseURL is the search endpoint root, normally GitHub.
	baseURL *url.URL

	// timeout bounds each request.
	timeout time.Duration

	// userAgent is sent with every request.
	userAgent string

	// headers are extra headers applied to every request.
	headers map[string]string

	// maxBodySize limits the response body size read.
	maxBodySize int64

	// clients caches one HTTP client per proxy.
	mu      sync.Mutex
	clients map[string]*http.Client
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithBaseURL overrides the search endpoint root.
// Used by tests to point at a local fixture server.
func WithBaseURL(base string) FetcherOption {
	return func(f *Fetcher) {
		if u, err := url.Parse(base); err == nil {
			f.baseURL = u
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithHeaders sets extra headers applied to every request.
func WithHeaders(headers map[string]string) FetcherOption {
	return func(f *Fetcher) {
		f.headers = headers
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// NewFetcher creates a Fetcher with default settings for GitHub.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	base, _ := url.Parse(DefaultBaseURL) //nolint:errcheck // Constant URL

	f := &Fetcher{
		baseURL:     base,
		timeout:     DefaultFetchTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		clients:     make(map[string]*http.Client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// BaseURL returns the configured search endpoint root.
func (f *Fetcher) BaseURL() string {
	return f.baseURL.String()
}

// SearchURL builds the search page URL for the given request.
// Keywords are NFC-normalized and percent-encoded, so full Unicode
// keywords survive the round trip through the URL.
func (f *Fetcher) SearchURL(req model.SearchRequest) string {
	q := url.Values{}
	q.Set("q", norm.NFC.String(req.Keyword))
	q.Set("type", req.Type.QueryValue())
	q.Set("p", strconv.Itoa(req.Page))

	u := *f.baseURL
	u.Path = "/search"
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch retrieves one search result page through the given proxy.
// On success it returns the raw response body. Failures are returned as
// *FetchError classified by kind; see the package error taxonomy.
func (f *Fetcher) Fetch(ctx context.Context, req model.SearchRequest, via proxy.Proxy) (string, error) {
	return f.Get(ctx, f.SearchURL(req), via)
}

// Get retrieves an arbitrary URL through the given proxy with the same
// headers, timeout, and failure classification as search fetches.
// Repository detail enrichment uses this for non-search pages.
func (f *Fetcher) Get(ctx context.Context, rawURL string, via proxy.Proxy) (string, error) {
	client, err := f.clientFor(via)
	if err != nil {
		return "", &FetchError{Kind: FailureNetwork, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{Kind: FailureNetwork, Err: err}
	}

	httpReq.Header.Set("User-Agent", f.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for key, value := range f.headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", &FetchError{Kind: FailureNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fetchErr := &FetchError{Kind: FailureHTTP, Status: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests {
			fetchErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		return "", fetchErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return "", &FetchError{Kind: FailureNetwork, Err: err}
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return "", &FetchError{Kind: FailureEmptyResponse}
	}

	return string(body), nil
}

// clientFor returns the cached HTTP client for a proxy, creating it on
// first use.
func (f *Fetcher) clientFor(via proxy.Proxy) (*http.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if client, ok := f.clients[via.Key()]; ok {
		return client, nil
	}

	client, err := proxy.NewHTTPClient(via, f.timeout)
	if err != nil {
		return nil, err
	}
	f.clients[via.Key()] = client
	return client, nil
}

// parseRetryAfter parses a Retry-After header value in seconds form.
// HTTP-date form is rare on GitHub and ignored; the session falls back
// to its own backoff in that case.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
