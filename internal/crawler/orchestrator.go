package crawler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/ghsearch/internal/model"
)

// DefaultConcurrency is the maximum number of keyword sessions running
// at once. One goroutine per keyword is fine for typical keyword counts;
// the bound protects the proxy pool when hundreds are supplied.
const DefaultConcurrency = 10

// Orchestrator runs one search session per keyword concurrently and
// assembles the final crawl report.
//
// Design decision: Each session returns its own result to the
// orchestrator instead of writing into a shared map, so no synchronized
// accumulator exists. Results land in a pre-allocated slice indexed by
// keyword position; the map is assembled after every session finishes.
type Orchestrator struct {
	// session executes one keyword's crawl. Sessions are stateless
	// across Run calls, so a single instance is shared.
	session *Session

	// concurrency bounds simultaneously active sessions.
	concurrency int

	// logger receives run-level diagnostics.
	logger *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithConcurrency sets the maximum number of concurrent sessions.
func WithConcurrency(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithOrchestratorLogger sets a custom logger.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates an Orchestrator driving the given session.
func NewOrchestrator(session *Session, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		session:     session,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}

	return o
}

// Run crawls every keyword and returns the assembled report.
//
// Sessions are independent failure domains: a keyword whose session
// fails is recorded in the report with its partial links and never
// aborts the others, so Run waits for all sessions and returns a
// complete report even when some keywords failed. Cancel the context to
// impose an overall deadline; in-flight sessions then return their
// accumulated results instead of hanging.
func (o *Orchestrator) Run(ctx context.Context, keywords []string, typ model.SearchType) *model.CrawlReport {
	report := model.NewCrawlReport(typ, keywords)

	o.logger.Info("starting crawl",
		"keywords", len(keywords),
		"type", typ.String(),
		"concurrency", o.concurrency,
	)
	start := time.Now()

	// Pre-allocated, index-per-keyword: no shared mutable state.
	results := make([]*model.KeywordResult, len(keywords))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i, keyword := range keywords {
		g.Go(func() error {
			results[i] = o.session.Run(ctx, keyword, typ)
			// Session failures are recorded in the result, never
			// returned: returning an error here would cancel the
			// sibling sessions.
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // Sessions never return errors

	for _, res := range results {
		report.Results[res.Keyword] = res
	}
	report.FinishedAt = time.Now()

	o.logger.Info("crawl finished",
		"links", report.TotalLinks(),
		"failed", len(report.FailedKeywords()),
		"truncated", len(report.TruncatedKeywords()),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)

	return report
}
