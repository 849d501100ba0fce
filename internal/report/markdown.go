package report

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nao1215/ghsearch/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeKeywords(md, report)
	w.writeDetails(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteLinks outputs only the keyword link lists in Markdown format.
func (w *MarkdownWriter) WriteLinks(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	for _, kw := range report.Keywords {
		res, ok := report.Results[kw]
		if !ok {
			continue
		}
		md.H2(kw)
		md.PlainText("")
		if len(res.Links) == 0 {
			md.PlainText("No results.")
		} else {
			md.BulletList(res.Links...)
		}
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("GitHub Search Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Search Type", "`" + report.Type.String() + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Finished", report.FinishedAt.Format("2006-01-02 15:04:05 MST")},
			{"Keywords", strconv.Itoa(len(report.Keywords))},
			{"Total Links", strconv.Itoa(report.TotalLinks())},
		},
	})
	md.PlainText("")
}

// writeSummary writes the per-keyword summary section with a pie chart
// and an alert reflecting the overall run outcome.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(report.Keywords))
	for _, kw := range report.Keywords {
		res, ok := report.Results[kw]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			kw,
			w.getStatusText(res),
			strconv.Itoa(res.Pages),
			strconv.Itoa(len(res.Links)),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Keyword", "Status", "Pages", "Links"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.TotalLinks() > 0 {
		w.writePieChart(md, report)
	}

	w.writeAlert(md, report)
}

// getStatusText returns the status text for a keyword result.
func (w *MarkdownWriter) getStatusText(res *model.KeywordResult) string {
	switch {
	case res.Failed():
		return "❌ Failed"
	case res.Truncated:
		return "⚠️ Truncated (partial results)"
	default:
		return "✅ Completed"
	}
}

// writePieChart writes a mermaid pie chart for link distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.CrawlReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Links per Keyword"),
		piechart.WithShowData(true),
	)

	for _, kw := range report.Keywords {
		res, ok := report.Results[kw]
		if !ok || len(res.Links) == 0 {
			continue
		}
		chart.LabelAndIntValue(kw, uint64(len(res.Links)))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the run outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.CrawlReport) {
	failed := report.FailedKeywords()
	truncated := report.TruncatedKeywords()

	switch {
	case len(failed) > 0:
		md.Warningf(
			"%d keyword(s) failed after exhausting retries: %s. Partial results are included.",
			len(failed), strings.Join(failed, ", "),
		)
	case len(truncated) > 0:
		md.Importantf(
			"%d keyword(s) stopped before the last result page: %s.",
			len(truncated), strings.Join(truncated, ", "),
		)
	case report.TotalLinks() == 0:
		md.Note("No results found for any keyword.")
	default:
		md.Tip("All keywords crawled to the last result page.")
	}
	md.PlainText("")
}

// writeKeywords writes per-keyword link lists.
func (w *MarkdownWriter) writeKeywords(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Results")
	md.PlainText("")

	for _, kw := range report.Keywords {
		res, ok := report.Results[kw]
		if !ok {
			continue
		}

		md.H3(kw)
		md.PlainText("")
		if len(res.Links) == 0 {
			md.PlainText("No results.")
			md.PlainText("")
			continue
		}
		md.BulletList(res.Links...)
		md.PlainText("")
	}
}

// writeDetails writes repository enrichment tables for keywords that
// carry details.
func (w *MarkdownWriter) writeDetails(md *markdown.Markdown, report *model.CrawlReport) {
	hasDetails := false
	for _, res := range report.Results {
		if len(res.Details) > 0 {
			hasDetails = true
			break
		}
	}
	if !hasDetails {
		return
	}

	md.H2("Repository Details")
	md.PlainText("")

	for _, kw := range report.Keywords {
		res, ok := report.Results[kw]
		if !ok || len(res.Details) == 0 {
			continue
		}

		md.H3(kw)
		md.PlainText("")

		rows := make([][]string, len(res.Details))
		for i, d := range res.Details {
			rows[i] = []string{
				d.URL,
				valueOrDash(d.Owner),
				valueOrDash(formatLanguages(d.Languages)),
			}
		}

		md.Table(markdown.TableSet{
			Header: []string{"Repository", "Owner", "Languages"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [ghsearch](https://github.com/nao1215/ghsearch)*")
}

// formatLanguages renders language statistics as "Go 87.2%, Shell 12.8%",
// with the dominant language first.
func formatLanguages(stats map[string]float64) string {
	if len(stats) == 0 {
		return ""
	}

	type langStat struct {
		name string
		pct  float64
	}
	sorted := make([]langStat, 0, len(stats))
	for name, pct := range stats {
		sorted = append(sorted, langStat{name: name, pct: pct})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].pct != sorted[j].pct {
			return sorted[i].pct > sorted[j].pct
		}
		return sorted[i].name < sorted[j].name
	})

	parts := make([]string, len(sorted))
	for i, s := range sorted {
		parts[i] = s.name + " " + strconv.FormatFloat(s.pct, 'f', -1, 64) + "%"
	}
	return strings.Join(parts, ", ")
}

// valueOrDash returns the value, or "-" when empty.
func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
