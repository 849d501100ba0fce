package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nao1215/ghsearch/internal/config"
	"github.com/nao1215/ghsearch/internal/crawler"
	"github.com/nao1215/ghsearch/internal/database"
	"github.com/nao1215/ghsearch/internal/log"
	"github.com/nao1215/ghsearch/internal/model"
	"github.com/nao1215/ghsearch/internal/proxy"
	"github.com/nao1215/ghsearch/internal/report"
	"github.com/spf13/cobra"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Crawl GitHub search results for keywords",
		Long: `Search crawls GitHub's HTML search result pages for each keyword.

Every keyword runs in its own concurrent session. A session paginates
through result pages, selecting a fresh random proxy for each fetch
attempt, and collects the result links. Failures are retried with
exponential backoff; a keyword whose retry budget is exhausted is
reported as failed without affecting other keywords.

The primary output is a JSON file mapping each keyword to its links:

  {"golang": ["https://github.com/golang/go", ...], "rust": [...]}

Examples:
  # Search repositories for two keywords through one proxy
  ghsearch search --keywords golang --keywords rust --proxies 127.0.0.1:8080

  # Search issues through several proxies, 5 pages per keyword
  ghsearch search --keywords bug --type Issues --pages 5 \
    --proxies 10.0.0.1:3128 --proxies socks5://10.0.0.2:1080

  # Route through an embedded Tor daemon instead of explicit proxies
  ghsearch search --keywords golang --tor

  # Enrich repository results with owner and language statistics
  ghsearch search --keywords golang --proxies 127.0.0.1:8080 --details

  # Save the run for later comparison with 'ghsearch compare'
  ghsearch search --keywords golang --proxies 127.0.0.1:8080 --save

Configuration file (.ghsearch) example:
  proxies:
    - "127.0.0.1:8080"
    - "socks5://10.0.0.1:1080"
  pages: 5
  timeout: "30s"`,
		Args: cobra.NoArgs,
		RunE: runSearchCmd,
	}

	// Crawl target flags
	cmd.Flags().StringSliceP("keywords", "k", nil,
		"Search keywords (repeat the flag or separate with commas)")
	cmd.Flags().StringP("type", "t", "Repositories",
		"Search type: Repositories, Issues, or Wikis")

	// Proxy flags
	cmd.Flags().StringSliceP("proxies", "x", nil,
		"Proxy addresses (host:port, http://, or socks5://)")
	cmd.Flags().Bool("tor", false,
		"Route through an embedded Tor daemon instead of --proxies")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Crawl behavior flags
	cmd.Flags().IntP("pages", "p", config.DefaultMaxPages,
		"Maximum result pages per keyword")
	cmd.Flags().IntP("retries", "r", config.DefaultMaxAttempts,
		"Fetch attempts per page before the keyword is marked failed")
	cmd.Flags().Duration("timeout", config.DefaultTimeout,
		"Timeout for each page request")
	cmd.Flags().Duration("deadline", 0,
		"Overall crawl deadline, 0 means none (partial results are kept)")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of keyword sessions crawled in parallel")
	cmd.Flags().StringP("user-agent", "u", "",
		"Override the User-Agent header")

	// Enrichment flags
	cmd.Flags().BoolP("details", "d", false,
		"Fetch owner and language statistics for repository results")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"Output path for the JSON result map")
	cmd.Flags().StringP("markdown", "m", "",
		"Also write a Markdown report to this path (\"-\" for stdout)")
	cmd.Flags().StringP("full-json", "j", "",
		"Also write a full JSON report with run metadata to this path")
	cmd.Flags().Bool("save", false,
		"Save this run to the results database for 'ghsearch compare'")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .ghsearch in current or home directory)")

	// Test and debugging hooks
	cmd.Flags().String("base-url", "", "Override the GitHub origin")
	cmd.Flags().String("db-dir", "", "Override the results database directory")
	if err := cmd.Flags().MarkHidden("base-url"); err != nil {
		panic(err)
	}
	if err := cmd.Flags().MarkHidden("db-dir"); err != nil {
		panic(err)
	}

	return cmd
}

// runSearchCmd executes the search command.
func runSearchCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Proxy lists are commonly credentialed, so all logging goes through
	// the sanitizing handler.
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runSearch(ctx, cfg, logger, cmd.OutOrStdout())
}

// buildConfig creates a Config from cobra command flags and the optional
// configuration file. Flag values take precedence over file values.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Keywords, err = cmd.Flags().GetStringSlice("keywords")
	if err != nil {
		return nil, err
	}

	cfg.SearchType, err = cmd.Flags().GetString("type")
	if err != nil {
		return nil, err
	}

	cfg.Proxies, err = cmd.Flags().GetStringSlice("proxies")
	if err != nil {
		return nil, err
	}

	cfg.UseTor, err = cmd.Flags().GetBool("tor")
	if err != nil {
		return nil, err
	}

	cfg.TorStartupTimeout, err = cmd.Flags().GetDuration("tor-timeout")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("pages")
	if err != nil {
		return nil, err
	}

	cfg.MaxAttempts, err = cmd.Flags().GetInt("retries")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.Deadline, err = cmd.Flags().GetDuration("deadline")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.FetchDetails, err = cmd.Flags().GetBool("details")
	if err != nil {
		return nil, err
	}

	cfg.OutputFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownFile, err = cmd.Flags().GetString("markdown")
	if err != nil {
		return nil, err
	}

	cfg.FullJSONFile, err = cmd.Flags().GetString("full-json")
	if err != nil {
		return nil, err
	}

	cfg.SaveToDB, err = cmd.Flags().GetBool("save")
	if err != nil {
		return nil, err
	}

	cfg.BaseURL, err = cmd.Flags().GetString("base-url")
	if err != nil {
		return nil, err
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Merge settings from the config file. Flags keep precedence.
	// If the user explicitly specified a path, error when it is missing;
	// otherwise a missing file is simply skipped.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.FileSettings, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := cfg.ApplyFile(cfg.FileSettings); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// runSearch executes the crawl and writes the reports.
func runSearch(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	typ, err := model.ParseSearchType(cfg.SearchType)
	if err != nil {
		return err
	}

	logger.Info("starting search",
		"keywords", cfg.Keywords,
		"type", typ.String(),
		"proxies", len(cfg.Proxies),
		"useTor", cfg.UseTor,
		"concurrency", cfg.Concurrency,
	)

	// Open database connection if saving is enabled
	var db *database.ResultDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	pool, stopTor, err := buildPool(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if stopTor != nil {
		defer stopTor()
	}

	fetcher := newFetcher(cfg)
	extractor, err := crawler.NewExtractor(fetcher.BaseURL())
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}

	session := crawler.NewSession(fetcher, extractor, pool,
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithMaxAttempts(cfg.MaxAttempts),
		crawler.WithRetryDelay(cfg.RetryDelay),
		crawler.WithSessionLogger(logger),
	)
	orchestrator := crawler.NewOrchestrator(session,
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithOrchestratorLogger(logger),
	)

	crawlCtx := ctx
	if cfg.Deadline > 0 {
		var cancel context.CancelFunc
		crawlCtx, cancel = context.WithTimeout(ctx, cfg.Deadline)
		defer cancel()
	}

	startTime := time.Now()
	crawlReport := orchestrator.Run(crawlCtx, cfg.Keywords, typ)
	logger.Info("crawl finished",
		"elapsed", time.Since(startTime).Round(time.Millisecond),
		"totalLinks", crawlReport.TotalLinks(),
		"failed", crawlReport.FailedKeywords(),
	)

	// Repository enrichment only applies to repository results; other
	// search types link to issues and wiki pages, not repository roots.
	if cfg.FetchDetails && typ == model.SearchTypeRepositories {
		fetchDetails(crawlCtx, cfg, crawlReport, fetcher, pool, logger)
	}

	if db != nil {
		runID, err := db.SaveRun(ctx, crawlReport)
		if err != nil {
			logger.Error("failed to save run", "error", err)
		} else {
			logger.Info("run saved", "runID", runID)
		}
	}

	if err := writeReports(cfg, crawlReport, stdout); err != nil {
		return err
	}

	// Per-keyword failures are reported in the output, not via the exit
	// code. A run that produced a result map is a successful run.
	return nil
}

// buildPool creates the proxy pool, starting an embedded Tor daemon when
// requested. The returned stop function is nil unless Tor was started.
func buildPool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*proxy.Pool, func(), error) {
	if !cfg.UseTor {
		pool, err := proxy.NewPool(cfg.Proxies)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid proxy list: %w", err)
		}
		return pool, nil, nil
	}

	fmt.Println("Starting embedded Tor daemon...")
	fmt.Printf("This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embeddedTor := proxy.NewEmbeddedTor(
		proxy.WithStartupTimeout(cfg.TorStartupTimeout),
	)
	if err := embeddedTor.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	logger.Info("embedded Tor daemon started", "socksAddr", embeddedTor.SocksAddr())
	fmt.Printf("Embedded Tor daemon started, SOCKS proxy: %s\n\n", embeddedTor.SocksAddr())

	pool, err := embeddedTor.Pool()
	if err != nil {
		_ = embeddedTor.Stop() //nolint:errcheck // Best effort cleanup
		return nil, nil, fmt.Errorf("failed to create Tor proxy pool: %w", err)
	}

	stop := func() {
		logger.Info("stopping embedded Tor daemon...")
		if err := embeddedTor.Stop(); err != nil {
			logger.Error("failed to stop embedded Tor", "error", err)
		}
	}
	return pool, stop, nil
}

// newFetcher creates a page fetcher from the configuration.
func newFetcher(cfg *config.Config) *crawler.Fetcher {
	opts := []crawler.FetcherOption{
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, crawler.WithBaseURL(cfg.BaseURL))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, crawler.WithUserAgent(cfg.UserAgent))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, crawler.WithHeaders(cfg.Headers))
	}
	return crawler.NewFetcher(opts...)
}

// fetchDetails enriches repository results with owner and language
// statistics. Enrichment failures degrade to URL-only entries, so this
// never fails the run.
func fetchDetails(ctx context.Context, cfg *config.Config, crawlReport *model.CrawlReport, fetcher *crawler.Fetcher, pool *proxy.Pool, logger *slog.Logger) {
	detailFetcher := crawler.NewDetailFetcher(fetcher, pool,
		crawler.WithDetailConcurrency(cfg.Concurrency),
		crawler.WithDetailLogger(logger),
	)

	for _, kw := range crawlReport.Keywords {
		res, ok := crawlReport.Results[kw]
		if !ok || len(res.Links) == 0 {
			continue
		}
		res.Details = detailFetcher.FetchAll(ctx, res.Links)
	}
}

// writeReports writes the JSON result file, the optional Markdown
// report, and the human-readable summary.
func writeReports(cfg *config.Config, crawlReport *model.CrawlReport, stdout io.Writer) error {
	// Primary output: flat keyword-to-links JSON map
	if err := writeToFile(cfg.OutputFile, func(f *os.File) error {
		_, err := report.NewJSONWriter(f, report.WithPrettyPrint()).WriteLinks(crawlReport)
		return err
	}); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	// Optional full JSON report with run metadata
	if cfg.FullJSONFile != "" {
		if err := writeToFile(cfg.FullJSONFile, func(f *os.File) error {
			_, err := report.NewFullJSONWriter(f, getVersion(), report.WithPrettyPrint()).Write(crawlReport)
			return err
		}); err != nil {
			return fmt.Errorf("failed to write full JSON report: %w", err)
		}
	}

	// Optional Markdown report
	if cfg.MarkdownFile == "-" {
		if _, err := report.NewMarkdownWriter(stdout).Write(crawlReport); err != nil {
			return fmt.Errorf("failed to write Markdown report: %w", err)
		}
	} else if cfg.MarkdownFile != "" {
		if err := writeToFile(cfg.MarkdownFile, func(f *os.File) error {
			_, err := report.NewMarkdownWriter(f).Write(crawlReport)
			return err
		}); err != nil {
			return fmt.Errorf("failed to write Markdown report: %w", err)
		}
	}

	// Human-readable summary to stdout
	writer := report.NewSimpleWriter(stdout, report.WithVerbose(cfg.Verbose))
	if _, err := writer.Write(crawlReport); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	fmt.Fprintf(stdout, "Results written to %s\n", cfg.OutputFile)

	return nil
}

// writeToFile creates path (and parent directories) and hands the open
// file to write. Files are created with owner-only permissions because
// results may reveal what the user is searching for.
func writeToFile(path string, write func(*os.File) error) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	return write(f)
}
