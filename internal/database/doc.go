// Package database provides SQLite-based storage for ghsearch.
//
// This package implements the ResultDB, which stores:
//   - Crawl runs with the full report as JSON
//   - Individual result links per keyword for cross-run queries
//
// The stored history powers the compare command, which diffs a
// keyword's result set between runs.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
