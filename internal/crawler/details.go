package crawler

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/ghsearch/internal/model"
	"github.com/nao1215/ghsearch/internal/proxy"
)

// DefaultDetailConcurrency bounds concurrent repository page fetches
// during enrichment. Detail pages fan out one per result link, so this
// is kept moderate to avoid hammering the proxies.
const DefaultDetailConcurrency = 10

// DetailFetcher enriches repository results with data parsed from each
// repository's own page: the owner login and the language statistics
// shown in the sidebar.
//
// Enrichment is best-effort: a repository page that cannot be fetched or
// parsed yields a detail with only the URL set, and never aborts the
// crawl.
type DetailFetcher struct {
	// fetcher retrieves repository pages with the same headers and
	// failure classification as search fetches.
	fetcher *Fetcher

	// pool supplies one proxy per page fetch.
	pool *proxy.Pool

	// concurrency bounds simultaneous detail fetches.
	concurrency int

	// logger receives per-page diagnostics.
	logger *slog.Logger
}

// DetailOption configures a DetailFetcher.
type DetailOption func(*DetailFetcher)

// WithDetailConcurrency sets the maximum concurrent detail fetches.
func WithDetailConcurrency(n int) DetailOption {
	return func(d *DetailFetcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithDetailLogger sets a custom logger.
func WithDetailLogger(logger *slog.Logger) DetailOption {
	return func(d *DetailFetcher) {
		d.logger = logger
	}
}

// NewDetailFetcher creates a DetailFetcher sharing the crawl's fetcher
// and proxy pool.
func NewDetailFetcher(fetcher *Fetcher, pool *proxy.Pool, opts ...DetailOption) *DetailFetcher {
	d := &DetailFetcher{
		fetcher:     fetcher,
		pool:        pool,
		concurrency: DefaultDetailConcurrency,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = slog.Default()
	}

	return d
}

// FetchAll fetches and parses every repository page concurrently,
// returning one detail per URL in input order.
func (d *DetailFetcher) FetchAll(ctx context.Context, urls []string) []model.RepoDetail {
	details := make([]model.RepoDetail, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for i, repoURL := range urls {
		g.Go(func() error {
			details[i] = d.fetchOne(ctx, repoURL)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // Per-page failures yield empty details

	return details
}

// fetchOne fetches and parses a single repository page.
func (d *DetailFetcher) fetchOne(ctx context.Context, repoURL string) model.RepoDetail {
	detail := model.RepoDetail{URL: repoURL}

	html, err := d.fetcher.Get(ctx, repoURL, d.pool.Select())
	if err != nil {
		d.logger.Warn("detail fetch failed", "url", repoURL, "error", err)
		return detail
	}

	parsed, err := ParseRepoDetail(html, repoURL)
	if err != nil {
		d.logger.Warn("detail parse failed", "url", repoURL, "error", err)
		return detail
	}

	return parsed
}

// ParseRepoDetail parses owner and language statistics from a repository
// page. It is a pure function so fixture pages cover it without network
// access.
func ParseRepoDetail(htmlText, repoURL string) (model.RepoDetail, error) {
	detail := model.RepoDetail{URL: repoURL}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return detail, err
	}

	detail.Owner = parseOwner(doc)
	detail.Languages = parseLanguages(doc)

	return detail, nil
}

// parseOwner extracts the repository owner login.
// The author span is preferred; hovercard anchors cover layouts where
// the span is absent.
func parseOwner(doc *goquery.Document) string {
	if owner := strings.TrimSpace(doc.Find(`span[itemprop="author"]`).First().Text()); owner != "" {
		return owner
	}
	sel := `a[data-hovercard-type="user"], a[data-hovercard-type="organization"]`
	return strings.TrimSpace(doc.Find(sel).First().Text())
}

// parseLanguages extracts the language percentage list from the
// "Languages" sidebar section. Each entry is a bold language name span
// followed by a percentage span.
func parseLanguages(doc *goquery.Document) map[string]float64 {
	stats := make(map[string]float64)

	doc.Find("h2").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(h.Text()), "Languages") {
			return true
		}
		collectLanguages(h.Parent().Find("li"), stats)
		return false
	})

	// Some layouts place the language bar outside a "Languages" heading.
	if len(stats) == 0 {
		collectLanguages(doc.Find(`li[class*="d-inline"]`), stats)
	}

	if len(stats) == 0 {
		return nil
	}
	return stats
}

// collectLanguages parses (name, percent) pairs from language list items.
func collectLanguages(items *goquery.Selection, stats map[string]float64) {
	items.Each(func(_ int, li *goquery.Selection) {
		name := li.Find(`span[class*="text-bold"]`).First()
		lang := strings.TrimSpace(name.Text())
		if lang == "" {
			return
		}

		pctText := strings.TrimSpace(name.Next().Text())
		pctText = strings.TrimSuffix(pctText, "%")
		pct, err := strconv.ParseFloat(pctText, 64)
		if err != nil {
			return
		}
		stats[lang] = pct
	})
}
