package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/ghsearch/internal/model"
)

// ErrKeywordNotFound is returned when no stored run contains the
// requested keyword.
var ErrKeywordNotFound = errors.New("keyword not found in any stored run")

// ErrNotEnoughRuns is returned when a comparison needs more stored runs
// than the database holds for a keyword.
var ErrNotEnoughRuns = errors.New("at least two stored runs are required for comparison")

// ResultDB provides SQLite-based storage for crawl run history.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file for all runs rather
// than one file per run. This simplifies cross-run queries (comparing
// result sets over time) and backup/restore operations.
type ResultDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ResultDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ResultDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ResultDB, error) {
	dbPath := filepath.Join(dbDir, "ghsearch.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ResultDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *ResultDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *ResultDB) createTables() error {
	schema := `
	-- Runs store one row per crawl invocation with the full report as JSON
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		search_type TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		keywords TEXT NOT NULL,
		report_json TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);

	-- Links store individual result URLs for cross-run queries
	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		keyword TEXT NOT NULL,
		url TEXT NOT NULL,
		position INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_links_run ON links(run_id);
	CREATE INDEX IF NOT EXISTS idx_links_keyword ON links(keyword);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a complete crawl report and its per-keyword links.
// Returns the new run's database ID.
func (rdb *ResultDB) SaveRun(ctx context.Context, report *model.CrawlReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}
	keywordsJSON, err := json.Marshal(report.Keywords)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize keywords: %w", err)
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	result, err := tx.ExecContext(ctx,
		`INSERT INTO runs (search_type, started_at, finished_at, keywords, report_json) VALUES (?, ?, ?, ?, ?)`,
		report.Type.QueryValue(),
		report.StartedAt.UTC().Format("2006-01-02 15:04:05"),
		report.FinishedAt.UTC().Format("2006-01-02 15:04:05"),
		string(keywordsJSON),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	for _, kw := range report.Keywords {
		res, ok := report.Results[kw]
		if !ok {
			continue
		}
		for i, link := range res.Links {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO links (run_id, keyword, url, position) VALUES (?, ?, ?, ?)`,
				runID, kw, link, i,
			); err != nil {
				return 0, fmt.Errorf("failed to insert link: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	return runID, nil
}

// RunMetadata contains summary information about a stored run.
// This is used for displaying run history without loading the full report.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// SearchType is the search type used in the run.
	SearchType string

	// StartedAt and FinishedAt bound the crawl run.
	StartedAt  time.Time
	FinishedAt time.Time

	// Keywords are the keywords searched in the run.
	Keywords []string

	// TotalLinks is the link count across all keywords of the run.
	TotalLinks int
}

// ListRuns returns metadata for stored runs, newest first.
// A limit of 0 returns all runs.
func (rdb *ResultDB) ListRuns(ctx context.Context, limit int) ([]RunMetadata, error) {
	query := `
	SELECT r.id, r.search_type, r.started_at, r.finished_at, r.keywords,
		(SELECT COUNT(*) FROM links l WHERE l.run_id = r.id)
	FROM runs r
	ORDER BY r.id DESC
	`
	args := make([]interface{}, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var startedAt, finishedAt, keywordsJSON string

		if err := rows.Scan(&meta.ID, &meta.SearchType, &startedAt, &finishedAt, &keywordsJSON, &meta.TotalLinks); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}

		meta.StartedAt = parseTimestamp(startedAt)
		meta.FinishedAt = parseTimestamp(finishedAt)
		if err := json.Unmarshal([]byte(keywordsJSON), &meta.Keywords); err != nil {
			meta.Keywords = nil
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetRun retrieves a stored run's full report by its database ID.
// Returns nil without error when the run does not exist.
func (rdb *ResultDB) GetRun(ctx context.Context, id int64) (*model.CrawlReport, error) {
	var reportJSON string
	err := rdb.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.CrawlReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// KeywordLinks returns a keyword's links for the given run, in stored order.
func (rdb *ResultDB) KeywordLinks(ctx context.Context, runID int64, keyword string) ([]string, error) {
	rows, err := rdb.db.QueryContext(ctx,
		`SELECT url FROM links WHERE run_id = ? AND keyword = ? ORDER BY position`,
		runID, keyword,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	var links []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, url)
	}

	return links, rows.Err()
}

// Diff describes how a keyword's result set changed between two runs.
type Diff struct {
	// Keyword is the compared keyword.
	Keyword string `json:"keyword"`

	// OldRunID and NewRunID identify the compared runs.
	OldRunID int64 `json:"old_run_id"`
	NewRunID int64 `json:"new_run_id"`

	// Added holds links present in the new run but not the old one.
	Added []string `json:"added"`

	// Removed holds links present in the old run but not the new one.
	Removed []string `json:"removed"`
}

// CompareLatest compares a keyword's two most recent runs.
func (rdb *ResultDB) CompareLatest(ctx context.Context, keyword string) (*Diff, error) {
	rows, err := rdb.db.QueryContext(ctx,
		`SELECT DISTINCT run_id FROM links WHERE keyword = ? ORDER BY run_id DESC LIMIT 2`,
		keyword,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find runs for keyword: %w", err)
	}
	defer rows.Close()

	var runIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run ID: %w", err)
		}
		runIDs = append(runIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(runIDs) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrKeywordNotFound, keyword)
	case 1:
		return nil, fmt.Errorf("%w: keyword %q appears in one run only", ErrNotEnoughRuns, keyword)
	}

	// runIDs are newest first
	return rdb.CompareRuns(ctx, keyword, runIDs[1], runIDs[0])
}

// CompareRuns compares a keyword's links between two specific runs.
func (rdb *ResultDB) CompareRuns(ctx context.Context, keyword string, oldRunID, newRunID int64) (*Diff, error) {
	oldLinks, err := rdb.KeywordLinks(ctx, oldRunID, keyword)
	if err != nil {
		return nil, err
	}
	newLinks, err := rdb.KeywordLinks(ctx, newRunID, keyword)
	if err != nil {
		return nil, err
	}

	diff := &Diff{
		Keyword:  keyword,
		OldRunID: oldRunID,
		NewRunID: newRunID,
		Added:    subtract(newLinks, oldLinks),
		Removed:  subtract(oldLinks, newLinks),
	}

	return diff, nil
}

// subtract returns the links in a that are absent from b, preserving
// a's order and dropping duplicates.
func subtract(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, link := range b {
		inB[link] = struct{}{}
	}

	seen := make(map[string]struct{}, len(a))
	result := make([]string, 0)
	for _, link := range a {
		if _, ok := inB[link]; ok {
			continue
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		result = append(result, link)
	}
	return result
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
