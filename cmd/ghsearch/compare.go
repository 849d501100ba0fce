package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nao1215/ghsearch/internal/config"
	"github.com/nao1215/ghsearch/internal/database"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit bounds the run listing output.
const defaultHistoryLimit = 20

// NewCompareCmd creates the compare command.
// This command diffs keyword results against historical runs stored in
// the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [keyword]",
		Short: "Compare keyword results with a previous run",
		Long: `Compare shows which links appeared or disappeared for a keyword
between two saved runs.

Runs are saved with 'ghsearch search --save'. By default the two most
recent runs containing the keyword are compared; use --runs to pick
specific run IDs.

Examples:
  # Compare the latest two saved runs for a keyword
  ghsearch compare golang

  # Compare two specific runs by ID
  ghsearch compare --runs 3,7 golang

  # List saved runs
  ghsearch compare --list

  # Output the diff in JSON format
  ghsearch compare --json golang`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List saved runs instead of comparing")
	cmd.Flags().Int("limit", defaultHistoryLimit,
		"Maximum number of runs to list")

	// Comparison target flags
	cmd.Flags().String("runs", "",
		"Compare two specific runs by ID, oldest first (format: OLD,NEW)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output the diff in JSON format")

	// Test and debugging hooks
	cmd.Flags().String("db-dir", "", "Override the results database directory")
	if err := cmd.Flags().MarkHidden("db-dir"); err != nil {
		panic(err)
	}

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	listRuns, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database so validation
	// failures never leave a lock behind.
	var keyword string
	if !listRuns {
		if len(args) == 0 {
			return errors.New("keyword is required (use --list to see saved runs)")
		}
		keyword = args[0]
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false

	db, err := database.Open(dbDir, opts)
	if err != nil {
		return fmt.Errorf("failed to open database (no saved runs yet? use 'ghsearch search --save'): %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	if listRuns {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		return listRunHistory(cmd, db, limit)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	runsSpec, err := cmd.Flags().GetString("runs")
	if err != nil {
		return err
	}

	var diff *database.Diff
	if runsSpec != "" {
		oldID, newID, err := parseRunsSpec(runsSpec)
		if err != nil {
			return err
		}
		diff, err = db.CompareRuns(ctx, keyword, oldID, newID)
		if err != nil {
			return fmt.Errorf("failed to compare runs: %w", err)
		}
	} else {
		diff, err = db.CompareLatest(ctx, keyword)
		if err != nil {
			if errors.Is(err, database.ErrKeywordNotFound) {
				return fmt.Errorf("no saved runs contain keyword %q (use 'ghsearch search --save')", keyword)
			}
			if errors.Is(err, database.ErrNotEnoughRuns) {
				return fmt.Errorf("keyword %q appears in only one saved run; at least two are needed", keyword)
			}
			return fmt.Errorf("failed to compare runs: %w", err)
		}
	}

	if jsonOutput {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(diff)
	}

	printDiff(cmd, diff)
	return nil
}

// parseRunsSpec parses the "OLD,NEW" run ID pair of the --runs flag.
func parseRunsSpec(spec string) (oldID, newID int64, err error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid --runs value %q: expected two run IDs like 3,7", spec)
	}

	oldID, err = strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid run ID %q: %w", parts[0], err)
	}
	newID, err = strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid run ID %q: %w", parts[1], err)
	}

	return oldID, newID, nil
}

// listRunHistory prints the saved run metadata, newest first.
func listRunHistory(cmd *cobra.Command, db *database.ResultDB, limit int) error {
	runs, err := db.ListRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No saved runs found in the database.")
		fmt.Fprintln(out, "\nUse 'ghsearch search --save' to save a run.")
		return nil
	}

	fmt.Fprintf(out, "Saved runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-14s  %-6s  %s\n", "ID", "Date", "Type", "Links", "Keywords")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))

	for _, run := range runs {
		fmt.Fprintf(out, "  %-6d  %-20s  %-14s  %-6d  %s\n",
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.SearchType,
			run.TotalLinks,
			strings.Join(run.Keywords, ", "),
		)
	}

	fmt.Fprintln(out, "\nUse 'ghsearch compare <keyword>' to compare the latest two runs.")
	fmt.Fprintln(out, "Use 'ghsearch compare --runs OLD,NEW <keyword>' to compare specific runs.")

	return nil
}

// printDiff prints a human-readable diff.
func printDiff(cmd *cobra.Command, diff *database.Diff) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Comparing runs %d -> %d for keyword %q\n\n", diff.OldRunID, diff.NewRunID, diff.Keyword)

	if len(diff.Added) == 0 && len(diff.Removed) == 0 {
		fmt.Fprintln(out, "No changes.")
		return
	}

	if len(diff.Added) > 0 {
		fmt.Fprintf(out, "New links (%d):\n", len(diff.Added))
		for _, link := range diff.Added {
			fmt.Fprintf(out, "  + %s\n", link)
		}
		fmt.Fprintln(out)
	}

	if len(diff.Removed) > 0 {
		fmt.Fprintf(out, "Removed links (%d):\n", len(diff.Removed))
		for _, link := range diff.Removed {
			fmt.Fprintf(out, "  - %s\n", link)
		}
	}
}
