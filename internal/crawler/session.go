package crawler

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/nao1215/ghsearch/internal/model"
	"github.com/nao1215/ghsearch/internal/proxy"
)

// Default session settings.
const (
	// DefaultMaxPages is the page ceiling per session, preventing
	// unbounded pagination.
	DefaultMaxPages = 10

	// DefaultMaxAttempts is the fetch attempt budget per page.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the initial backoff between attempts.
	// It doubles per attempt, with up to 10% jitter added.
	DefaultRetryDelay = 1 * time.Second
)

// PageFetcher fetches one search result page through the given proxy.
// *Fetcher is the production implementation; tests substitute stubs.
type PageFetcher interface {
	Fetch(ctx context.Context, req model.SearchRequest, via proxy.Proxy) (string, error)
}

// Session drives pagination for one (keyword, search type) pair.
// It fetches page 1 upward, retrying transient failures with a fresh
// proxy per attempt, and stops at the last page, the page ceiling, or
// retry exhaustion.
//
// A Session is reusable across keywords and safe for concurrent Run
// calls: all per-keyword state lives in the Run stack frame.
type Session struct {
	// fetcher retrieves raw pages.
	fetcher PageFetcher

	// extractor parses pages into links.
	extractor *Extractor

	// pool supplies one proxy per fetch attempt. Drawing a fresh proxy
	// per retry isolates proxy blame: a bad proxy cannot permanently
	// stall the session.
	pool *proxy.Pool

	// maxPages is the page ceiling.
	maxPages int

	// maxAttempts is the fetch attempt budget per page.
	maxAttempts int

	// retryDelay is the initial backoff between attempts.
	retryDelay time.Duration

	// logger receives per-attempt diagnostics.
	logger *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithMaxPages sets the page ceiling per session.
func WithMaxPages(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

// WithMaxAttempts sets the fetch attempt budget per page.
func WithMaxAttempts(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the initial backoff between attempts.
func WithRetryDelay(d time.Duration) SessionOption {
	return func(s *Session) {
		if d >= 0 {
			s.retryDelay = d
		}
	}
}

// WithSessionLogger sets a custom logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a Session with the given collaborators.
func NewSession(fetcher PageFetcher, extractor *Extractor, pool *proxy.Pool, opts ...SessionOption) *Session {
	s := &Session{
		fetcher:     fetcher,
		extractor:   extractor,
		pool:        pool,
		maxPages:    DefaultMaxPages,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Run crawls all result pages for one keyword and returns the
// accumulated links. It always returns a result, never panics or
// propagates fetch errors: retry exhaustion yields a failed result
// carrying the links gathered so far, and unparseable or empty pages
// end the session as if pagination had finished.
func (s *Session) Run(ctx context.Context, keyword string, typ model.SearchType) *model.KeywordResult {
	result := &model.KeywordResult{
		Keyword: keyword,
		Links:   make([]string, 0),
		Status:  model.StatusCompleted,
	}

	for page := 1; ; page++ {
		req := model.SearchRequest{Keyword: keyword, Type: typ, Page: page}

		html, err := s.fetchWithRetry(ctx, req)
		if err != nil {
			s.finishOnFetchError(result, req, err)
			return result
		}

		extracted, err := s.extractor.Extract(html, typ)
		if err != nil {
			// GitHub served something other than results (CAPTCHA,
			// interstitial). Reported, not retried: soft stop.
			s.logger.Warn("stopping on unrecognized page",
				"keyword", keyword,
				"page", page,
				"error", err,
			)
			return result
		}

		result.Links = append(result.Links, extracted.Links...)
		result.Pages = page

		s.logger.Debug("page extracted",
			"keyword", keyword,
			"page", page,
			"links", len(extracted.Links),
			"hasNextPage", extracted.HasNextPage,
		)

		if !extracted.HasNextPage {
			return result
		}
		if page >= s.maxPages {
			result.Truncated = true
			return result
		}
	}
}

// finishOnFetchError sets the terminal state for a page that could not
// be fetched.
func (s *Session) finishOnFetchError(result *model.KeywordResult, req model.SearchRequest, err error) {
	// Crawl deadline or interrupt: return what we have, flagged as
	// truncated rather than failed.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		result.Truncated = true
		result.Err = err.Error()
		return
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) && fetchErr.Kind == FailureEmptyResponse {
		// An empty page past the last result page is normal: soft stop.
		return
	}

	// Retry budget exhausted on a transient failure.
	result.Status = model.StatusFailed
	result.Err = err.Error()
	s.logger.Warn("session failed",
		"keyword", req.Keyword,
		"page", req.Page,
		"error", err,
	)
}

// fetchWithRetry fetches one page, retrying transient failures up to the
// attempt budget with a fresh proxy each time and exponential backoff
// with jitter. A 429 response's Retry-After wait takes precedence over
// the computed backoff.
func (s *Session) fetchWithRetry(ctx context.Context, req model.SearchRequest) (string, error) {
	delay := s.retryDelay
	var lastErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		via := s.pool.Select()
		html, err := s.fetcher.Fetch(ctx, req, via)
		if err == nil {
			return html, nil
		}

		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) || !fetchErr.Kind.Transient() {
			return "", err
		}
		lastErr = err

		s.logger.Warn("fetch attempt failed",
			"keyword", req.Keyword,
			"page", req.Page,
			"attempt", attempt,
			"maxAttempts", s.maxAttempts,
			"proxy", via.String(),
			"error", err,
		)

		if attempt == s.maxAttempts {
			break
		}

		wait := delay + jitter(delay)
		if fetchErr.RetryAfter > 0 {
			wait = fetchErr.RetryAfter
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
	}

	return "", lastErr
}

// jitter returns a random duration up to 10% of the delay, spreading
// retries from concurrent sessions so they do not synchronize.
func jitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(delay)/10 + 1))
}
