// Package crawler implements the asynchronous fetch-and-extract pipeline
// for GitHub's public HTML search pages.
//
// # Architecture
//
//   - Fetcher: performs one HTTP GET through a chosen proxy and
//     classifies failures (network, HTTP status, empty response)
//   - Extractor: pure HTML-to-links parsing per search type, plus
//     next-page detection
//   - Session: drives pagination for one (keyword, search type) pair,
//     retrying transient failures with a fresh proxy per attempt
//   - Orchestrator: runs one session per keyword concurrently and
//     assembles the final crawl report
//   - DetailFetcher: optional per-repository enrichment (owner,
//     language statistics)
//
// # Failure domains
//
// Sessions are independent: a keyword whose retry budget is exhausted
// ends in a failed state with its partial links preserved, and never
// affects other keywords. Unparseable or empty pages end a session
// softly, treated as the end of its results.
//
// # Fragility
//
// The extractor is the single seam over GitHub's DOM structure, which is
// an external contract this system does not control. It is a pure
// function over HTML text so it can be tested entirely against static
// fixture pages; breakage of GitHub's markup surfaces as a structure
// error, never as a crash.
package crawler
