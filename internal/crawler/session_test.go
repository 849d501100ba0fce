package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/ghsearch/internal/model"
	"github.com/nao1215/ghsearch/internal/proxy"
)

// fetchStub is a PageFetcher returning canned responses per call.
type fetchStub struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, req model.SearchRequest) (string, error)
}

// Fetch implements PageFetcher.
func (s *fetchStub) Fetch(_ context.Context, req model.SearchRequest, _ proxy.Proxy) (string, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	return s.fn(call, req)
}

// callCount returns the number of Fetch calls made so far.
func (s *fetchStub) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// resultsPage builds a minimal search result page for stubbing.
func resultsPage(hasNext bool, hrefs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div data-testid="results-list">`)
	for _, href := range hrefs {
		fmt.Fprintf(&b, `<a class="prc-Link-Link-1" href=%q>r</a>`, href)
	}
	b.WriteString(`</div>`)
	if hasNext {
		b.WriteString(`<a rel="next" href="/search?p=2">Next</a>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

// newTestSession wires a session with quiet logging and no backoff.
func newTestSession(t *testing.T, fetcher PageFetcher, opts ...SessionOption) *Session {
	t.Helper()

	pool, err := proxy.NewPool([]string{"192.0.2.1:8080", "192.0.2.2:8080"})
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	base := []SessionOption{
		WithRetryDelay(0),
		WithSessionLogger(quiet),
	}
	return NewSession(fetcher, newTestExtractor(t), pool, append(base, opts...)...)
}

// TestSessionRetryExhaustion verifies that persistent network failures
// terminate the session in a failed state after exactly the configured
// attempt budget, with no links accumulated.
func TestSessionRetryExhaustion(t *testing.T) {
	t.Parallel()

	stub := &fetchStub{fn: func(_ int, _ model.SearchRequest) (string, error) {
		return "", &FetchError{Kind: FailureNetwork, Err: fmt.Errorf("connection refused")}
	}}

	session := newTestSession(t, stub, WithMaxAttempts(3))
	result := session.Run(context.Background(), "go", model.SearchTypeRepositories)

	if result.Status != model.StatusFailed {
		t.Errorf("Status = %v, want StatusFailed", result.Status)
	}
	if got := stub.callCount(); got != 3 {
		t.Errorf("fetch attempts = %d, want exactly 3", got)
	}
	if len(result.Links) != 0 {
		t.Errorf("expected no links, got %v", result.Links)
	}
	if result.Err == "" {
		t.Error("expected the last failure to be surfaced")
	}
}

// TestSessionTwoPagesThenEmpty verifies that an empty response after two
// good pages ends the session cleanly with the concatenation of both
// pages' links, order preserved and duplicates retained.
func TestSessionTwoPagesThenEmpty(t *testing.T) {
	t.Parallel()

	stub := &fetchStub{fn: func(_ int, req model.SearchRequest) (string, error) {
		switch req.Page {
		case 1:
			return resultsPage(true, "/x/one", "/x/two"), nil
		case 2:
			return resultsPage(true, "/x/two", "/x/three"), nil
		default:
			return "", &FetchError{Kind: FailureEmptyResponse}
		}
	}}

	session := newTestSession(t, stub)
	result := session.Run(context.Background(), "go", model.SearchTypeRepositories)

	if result.Status != model.StatusCompleted {
		t.Errorf("Status = %v, want StatusCompleted", result.Status)
	}
	want := []string{
		"https://github.com/x/one",
		"https://github.com/x/two",
		"https://github.com/x/two",
		"https://github.com/x/three",
	}
	if !reflect.DeepEqual(result.Links, want) {
		t.Errorf("Links = %v, want %v", result.Links, want)
	}
	if result.Pages != 2 {
		t.Errorf("Pages = %d, want 2", result.Pages)
	}
	if result.Truncated {
		t.Error("expected Truncated false")
	}
}

// TestSessionStopsOnUnrecognizedPage verifies that an interstitial page
// ends the session softly, keeping earlier links.
func TestSessionStopsOnUnrecognizedPage(t *testing.T) {
	t.Parallel()

	interstitial := `<html><body><h1>Verify you are human</h1></body></html>`
	stub := &fetchStub{fn: func(_ int, req model.SearchRequest) (string, error) {
		if req.Page == 1 {
			return resultsPage(true, "/x/one"), nil
		}
		return interstitial, nil
	}}

	session := newTestSession(t, stub)
	result := session.Run(context.Background(), "go", model.SearchTypeRepositories)

	if result.Status != model.StatusCompleted {
		t.Errorf("Status = %v, want StatusCompleted", result.Status)
	}
	want := []string{"https://github.com/x/one"}
	if !reflect.DeepEqual(result.Links, want) {
		t.Errorf("Links = %v, want %v", result.Links, want)
	}
	if result.Pages != 1 {
		t.Errorf("Pages = %d, want 1", result.Pages)
	}
}

// TestSessionPageCeiling verifies the session stops at the page ceiling
// and flags the result as truncated.
func TestSessionPageCeiling(t *testing.T) {
	t.Parallel()

	stub := &fetchStub{fn: func(_ int, req model.SearchRequest) (string, error) {
		return resultsPage(true, fmt.Sprintf("/page/%d", req.Page)), nil
	}}

	session := newTestSession(t, stub, WithMaxPages(2))
	result := session.Run(context.Background(), "go", model.SearchTypeRepositories)

	if !result.Truncated {
		t.Error("expected Truncated true at page ceiling")
	}
	if result.Status != model.StatusCompleted {
		t.Errorf("Status = %v, want StatusCompleted", result.Status)
	}
	want := []string{
		"https://github.com/page/1",
		"https://github.com/page/2",
	}
	if !reflect.DeepEqual(result.Links, want) {
		t.Errorf("Links = %v, want %v", result.Links, want)
	}
	if got := stub.callCount(); got != 2 {
		t.Errorf("fetch calls = %d, want 2 (must not fetch past ceiling)", got)
	}
}

// TestSessionRetriesThenSucceeds verifies a transient HTTP failure is
// retried with a successful outcome.
func TestSessionRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	stub := &fetchStub{fn: func(call int, _ model.SearchRequest) (string, error) {
		if call == 1 {
			return "", &FetchError{Kind: FailureHTTP, Status: 502}
		}
		return resultsPage(false, "/x/one"), nil
	}}

	session := newTestSession(t, stub)
	result := session.Run(context.Background(), "go", model.SearchTypeRepositories)

	if result.Status != model.StatusCompleted {
		t.Errorf("Status = %v, want StatusCompleted", result.Status)
	}
	if got := stub.callCount(); got != 2 {
		t.Errorf("fetch calls = %d, want 2", got)
	}
	if len(result.Links) != 1 {
		t.Errorf("expected 1 link, got %v", result.Links)
	}
}

// TestSessionCancelledContext verifies cancellation returns accumulated
// results flagged as truncated instead of hanging or failing.
func TestSessionCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	stub := &fetchStub{fn: func(_ int, req model.SearchRequest) (string, error) {
		if req.Page == 2 {
			cancel()
		}
		return resultsPage(true, fmt.Sprintf("/page/%d", req.Page)), nil
	}}

	session := newTestSession(t, stub)
	result := session.Run(ctx, "go", model.SearchTypeRepositories)

	if result.Status != model.StatusFailed && !result.Truncated {
		// Cancellation lands between pages; the session must flag it.
		t.Errorf("expected truncated result after cancellation, got %+v", result)
	}
	if len(result.Links) == 0 {
		t.Error("expected links accumulated before cancellation to be preserved")
	}
}
