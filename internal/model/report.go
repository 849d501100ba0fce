package model

import "time"

// SearchRequest describes a single fetch attempt against the search
// endpoint. A fresh request is constructed per page; it is never mutated
// after construction.
type SearchRequest struct {
	// Keyword is the search keyword exactly as supplied by the user.
	// Percent-encoding happens at URL construction time, not here.
	Keyword string

	// Type selects the entity category (repositories, issues, wikis).
	Type SearchType

	// Page is the 1-based result page number. Page numbers increment by
	// exactly one per successful page within a session.
	Page int
}

// SessionStatus is the terminal state of a per-keyword search session.
type SessionStatus int

const (
	// StatusCompleted means the session reached the last result page,
	// hit the page ceiling, or stopped softly on an unparseable or
	// empty page.
	StatusCompleted SessionStatus = iota

	// StatusFailed means the session exhausted its retry budget on a
	// page. Links accumulated before the failure are preserved.
	StatusFailed
)

// String returns a human-readable status name used in logs and reports.
func (s SessionStatus) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// KeywordResult holds the outcome of one keyword's search session.
// Links preserve discovery order across pages and retain duplicates
// exactly as the result pages listed them.
type KeywordResult struct {
	// Keyword is the search keyword as supplied (original casing and
	// Unicode preserved).
	Keyword string `json:"keyword"`

	// Links are the result URLs in discovery order.
	Links []string `json:"links"`

	// Status reports whether the session completed or failed.
	Status SessionStatus `json:"-"`

	// Truncated is true when the session stopped at the page ceiling or
	// was cancelled by the crawl deadline while more pages remained.
	Truncated bool `json:"truncated,omitempty"`

	// Pages is the number of result pages successfully fetched.
	Pages int `json:"pages"`

	// Err describes the last failure for failed or cancelled sessions.
	// Empty for clean completions.
	Err string `json:"error,omitempty"`

	// Details holds per-repository enrichment (owner, language stats)
	// when detail fetching is enabled. Only populated for repository
	// searches.
	Details []RepoDetail `json:"details,omitempty"`
}

// Failed reports whether the session ended by exhausting its retry budget.
func (r *KeywordResult) Failed() bool {
	return r.Status == StatusFailed
}

// RepoDetail holds enrichment data parsed from a repository's own page.
// A fetch or parse failure yields a detail with only the URL set; the
// crawl itself is never aborted by enrichment problems.
type RepoDetail struct {
	// URL is the repository URL the detail belongs to.
	URL string `json:"url"`

	// Owner is the repository owner login, empty when not found.
	Owner string `json:"owner,omitempty"`

	// Languages maps language name to its percentage share as displayed
	// on the repository page (e.g. "Go" -> 87.2).
	Languages map[string]float64 `json:"language_stats,omitempty"`
}

// CrawlReport is the final artifact of a crawl run: one KeywordResult per
// keyword, plus run-level metadata. It is owned by the orchestrator until
// handed to a report writer or the results database.
type CrawlReport struct {
	// Type is the search type used for all sessions in this run.
	Type SearchType `json:"type"`

	// StartedAt and FinishedAt bound the crawl run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Keywords preserves the order keywords were supplied in.
	Keywords []string `json:"keywords"`

	// Results maps keyword to its session outcome. Every supplied
	// keyword has an entry, including failed sessions.
	Results map[string]*KeywordResult `json:"results"`
}

// NewCrawlReport creates an empty report for the given search type and
// keyword order.
func NewCrawlReport(typ SearchType, keywords []string) *CrawlReport {
	return &CrawlReport{
		Type:      typ,
		StartedAt: time.Now(),
		Keywords:  append([]string(nil), keywords...),
		Results:   make(map[string]*KeywordResult, len(keywords)),
	}
}

// LinkMap returns the flat keyword-to-links view used for the primary
// JSON output format. Keywords with failed sessions still appear, with
// whatever links were accumulated before the failure.
func (r *CrawlReport) LinkMap() map[string][]string {
	m := make(map[string][]string, len(r.Results))
	for kw, res := range r.Results {
		links := res.Links
		if links == nil {
			links = []string{}
		}
		m[kw] = links
	}
	return m
}

// FailedKeywords returns the keywords whose sessions ended in failure,
// in the order the keywords were supplied.
func (r *CrawlReport) FailedKeywords() []string {
	failed := make([]string, 0)
	for _, kw := range r.Keywords {
		if res, ok := r.Results[kw]; ok && res.Failed() {
			failed = append(failed, kw)
		}
	}
	return failed
}

// TruncatedKeywords returns the keywords whose sessions stopped early at
// the page ceiling or crawl deadline, in supplied order.
func (r *CrawlReport) TruncatedKeywords() []string {
	truncated := make([]string, 0)
	for _, kw := range r.Keywords {
		if res, ok := r.Results[kw]; ok && res.Truncated {
			truncated = append(truncated, kw)
		}
	}
	return truncated
}

// TotalLinks returns the number of links across all keywords.
func (r *CrawlReport) TotalLinks() int {
	total := 0
	for _, res := range r.Results {
		total += len(res.Links)
	}
	return total
}
