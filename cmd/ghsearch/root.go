// Package main provides the entry point for the ghsearch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for ghsearch.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ghsearch",
		Short: "Crawl GitHub search results through rotating proxies",
		Long: `ghsearch crawls GitHub's HTML search results for a set of keywords.

Each keyword is crawled in its own concurrent session, paginating through
result pages and collecting result links. Every page fetch goes through a
randomly selected proxy from the supplied pool, or through an embedded
Tor daemon with --tor. Results are written as a flat JSON map of keyword
to links.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
