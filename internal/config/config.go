package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values match GitHub's observed tolerance for anonymous HTML
// search traffic routed through rotating proxies.
const (
	// DefaultTimeout is the per-request timeout. GitHub search pages
	// normally answer within a few seconds; ten seconds accommodates slow
	// proxies without stalling sessions on dead ones.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxPages of 10 bounds how deep a session paginates per
	// keyword. GitHub rarely surfaces useful results past page ten, and a
	// ceiling prevents runaway pagination on broad keywords.
	DefaultMaxPages = 10

	// DefaultMaxAttempts is the fetch attempt budget per page. Three
	// attempts with a fresh proxy each keeps one bad proxy from failing a
	// session while bounding time spent on genuinely blocked pages.
	DefaultMaxAttempts = 3

	// DefaultConcurrency of 10 concurrent keyword sessions balances
	// throughput with proxy pool pressure. Higher values spread requests
	// across fewer distinct proxies per session and trigger rate limiting
	// sooner.
	DefaultConcurrency = 10

	// DefaultRetryDelay is the initial backoff between fetch attempts.
	// It doubles per attempt, with jitter added.
	DefaultRetryDelay = 1 * time.Second

	// DefaultOutputFile is the default JSON output path.
	DefaultOutputFile = "search_results.json"

	// AppName is the application name used for XDG directory paths.
	AppName = "ghsearch"

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 5MB is sufficient for search result pages while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap. 3 minutes is typically sufficient for most
	// network conditions, but may need to be increased for slow connections.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Config holds all configuration options for ghsearch.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
// If the configuration grows significantly, consider refactoring into sub-structs.
type Config struct {
	// Keywords are the search keywords to crawl. Each keyword gets its own
	// concurrent session. Original casing and Unicode are preserved.
	Keywords []string

	// Proxies are the proxy addresses to rotate across fetch attempts, in
	// "host:port" or "scheme://host:port" format. Schemeless entries are
	// treated as HTTP proxies.
	Proxies []string

	// SearchType selects the GitHub entity category to search
	// (Repositories, Issues, or Wikis). Case-insensitive.
	SearchType string

	// OutputFile is the path the JSON result map is written to.
	OutputFile string

	// MarkdownFile is an optional path for a Markdown report.
	// When empty, no Markdown report is written.
	MarkdownFile string

	// FullJSONFile is an optional path for the full JSON report, which
	// wraps the result map with run metadata and per-keyword statuses.
	// When empty, no full report is written.
	FullJSONFile string

	// MaxPages is the page ceiling per keyword session.
	MaxPages int

	// MaxAttempts is the fetch attempt budget per page.
	MaxAttempts int

	// Timeout is the per-request timeout for each page fetch.
	Timeout time.Duration

	// Deadline bounds the whole crawl run. Zero means no deadline.
	// When the deadline expires, sessions return the links gathered so far.
	Deadline time.Duration

	// Concurrency is the number of keyword sessions crawled in parallel.
	Concurrency int

	// FetchDetails enables repository page enrichment (owner and language
	// statistics). Only meaningful for repository searches.
	FetchDetails bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .ghsearch in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// FileSettings holds settings loaded from the config file.
	// This is populated by LoadConfigFile and merged via ApplyFile.
	FileSettings *File

	// UseTor routes all traffic through an embedded Tor daemon instead of
	// an explicit proxy list.
	//
	// Note: The embedded Tor daemon takes 1-3 minutes to bootstrap and
	// connect to the Tor network on first start.
	UseTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor
	// daemon to start and bootstrap. Only used when UseTor is true.
	TorStartupTimeout time.Duration

	// DBDir is the directory path for storing the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/ghsearch on Linux).
	DBDir string

	// SaveToDB indicates whether to save crawl results to the database
	// for historical comparison via the compare command.
	SaveToDB bool

	// UserAgent is the User-Agent header sent with HTTP requests.
	// GitHub serves different markup to unknown agents, so this defaults
	// to a desktop browser string.
	UserAgent string

	// Headers are extra HTTP headers applied to every request.
	Headers map[string]string

	// BaseURL overrides the search endpoint origin. Used by tests; the
	// default is https://github.com.
	BaseURL string

	// RetryDelay is the initial backoff between fetch attempts.
	RetryDelay time.Duration

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated to prevent memory exhaustion.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, page
// ceiling). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		SearchType:        "Repositories",
		OutputFile:        DefaultOutputFile,
		MaxPages:          DefaultMaxPages,
		MaxAttempts:       DefaultMaxAttempts,
		Timeout:           DefaultTimeout,
		Concurrency:       DefaultConcurrency,
		RetryDelay:        DefaultRetryDelay,
		TorStartupTimeout: DefaultTorStartupTimeout,
		MaxBodySize:       DefaultMaxBodySize,
		DBDir:             XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for ghsearch.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/ghsearch
// On macOS: ~/Library/Application Support/ghsearch
// On Windows: %LOCALAPPDATA%\ghsearch
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for ghsearch.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/ghsearch
// On macOS: ~/Library/Application Support/ghsearch
// On Windows: %APPDATA%\ghsearch
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for ghsearch.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.cache/ghsearch
// On macOS: ~/Library/Caches/ghsearch
// On Windows: %LOCALAPPDATA%\ghsearch\cache
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have at least one keyword to search
	if len(c.Keywords) == 0 {
		return ErrNoKeywords
	}

	// Explicit proxies and the embedded Tor route are mutually exclusive
	if len(c.Proxies) > 0 && c.UseTor {
		return ErrProxiesWithTor
	}

	// Every fetch goes through a proxy; one of the routes is required
	if len(c.Proxies) == 0 && !c.UseTor {
		return ErrNoProxies
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// Deadline must be non-negative; zero means no deadline
	if c.Deadline < 0 {
		return ErrInvalidDeadline
	}

	// Concurrency must be positive; zero would mean no crawling
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	if c.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	// MaxBodySize must be non-negative; zero means use the default
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}
