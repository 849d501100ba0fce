package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/ghsearch/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with a per-keyword
// summary and clear section formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showLinks controls whether individual links are listed per keyword.
	showLinks bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowLinks configures the writer to list every link per keyword.
func WithShowLinks(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showLinks = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showLinks:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in human-readable format.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeKeywords(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteLinks outputs only the keyword link lists in human-readable format.
func (w *SimpleWriter) WriteLinks(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	for _, kw := range report.Keywords {
		res, ok := report.Results[kw]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s:\n", kw))
		for _, link := range res.Links {
			sb.WriteString(fmt.Sprintf("  %s\n", link))
		}
	}

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        GHSEARCH REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Search Type: %s\n", report.Type))
	sb.WriteString(fmt.Sprintf("Started:     %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Finished:    %s\n", report.FinishedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Keywords:    %d\n", len(report.Keywords)))
	sb.WriteString(fmt.Sprintf("Total Links: %d\n", report.TotalLinks()))

	if failed := report.FailedKeywords(); len(failed) > 0 {
		sb.WriteString(fmt.Sprintf("Failed:      %s\n", strings.Join(failed, ", ")))
	}
	if truncated := report.TruncatedKeywords(); len(truncated) > 0 {
		sb.WriteString(fmt.Sprintf("Truncated:   %s\n", strings.Join(truncated, ", ")))
	}

	sb.WriteString("\n")
}

// writeKeywords writes the per-keyword result section.
func (w *SimpleWriter) writeKeywords(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("RESULTS BY KEYWORD\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, kw := range report.Keywords {
		res, ok := report.Results[kw]
		if !ok {
			continue
		}

		indicator := "+"
		if res.Failed() {
			indicator = "!"
		}
		sb.WriteString(fmt.Sprintf("[%s] %s: %d links, %d pages", indicator, kw, len(res.Links), res.Pages))
		if res.Truncated {
			sb.WriteString(" (truncated)")
		}
		sb.WriteString("\n")

		if res.Err != "" && w.verbose {
			sb.WriteString(fmt.Sprintf("    Error: %s\n", res.Err))
		}

		if w.showLinks {
			for _, link := range res.Links {
				sb.WriteString(fmt.Sprintf("    %s\n", link))
			}
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by ghsearch\n")
	sb.WriteString("https://github.com/nao1215/ghsearch\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
