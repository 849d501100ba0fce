package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/ghsearch/internal/model"
)

// createTestReport creates a report with sample data for testing.
func createTestReport() *model.CrawlReport {
	report := model.NewCrawlReport(model.SearchTypeRepositories, []string{"openstack", "nova"})
	report.StartedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	report.FinishedAt = report.StartedAt.Add(42 * time.Second)

	report.Results["openstack"] = &model.KeywordResult{
		Keyword: "openstack",
		Links: []string{
			"https://github.com/openstack/openstack",
			"https://github.com/openstack/nova",
		},
		Status: model.StatusCompleted,
		Pages:  1,
		Details: []model.RepoDetail{
			{
				URL:       "https://github.com/openstack/openstack",
				Owner:     "openstack",
				Languages: map[string]float64{"Python": 97.7, "Shell": 2.3},
			},
		},
	}
	report.Results["nova"] = &model.KeywordResult{
		Keyword: "nova",
		Links:   []string{"https://github.com/openstack/nova"},
		Status:  model.StatusFailed,
		Pages:   1,
		Err:     "fetch page 2: proxy unreachable",
	}

	return report
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "GHSEARCH REPORT") {
			t.Error("expected output to contain header")
		}
		if !strings.Contains(output, "Repositories") {
			t.Error("expected output to contain search type")
		}
		if !strings.Contains(output, "Total Links: 3") {
			t.Error("expected output to contain total link count")
		}
	})

	t.Run("writes per-keyword summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "RESULTS BY KEYWORD") {
			t.Error("expected output to contain keyword section")
		}
		if !strings.Contains(output, "[+] openstack: 2 links, 1 pages") {
			t.Error("expected completed keyword line")
		}
		if !strings.Contains(output, "[!] nova: 1 links, 1 pages") {
			t.Error("expected failed keyword line")
		}
		if !strings.Contains(output, "Failed:      nova") {
			t.Error("expected failed keyword list in header")
		}
	})

	t.Run("verbose mode includes session errors", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true))
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "proxy unreachable") {
			t.Error("expected verbose output to contain session error")
		}
	})

	t.Run("show links lists every link", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithShowLinks(true))
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "https://github.com/openstack/openstack") {
			t.Error("expected individual links in output")
		}
	})

	t.Run("marks truncated keywords", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		report := createTestReport()
		report.Results["openstack"].Truncated = true

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "(truncated)") {
			t.Error("expected truncated marker in output")
		}
		if !strings.Contains(output, "Truncated:   openstack") {
			t.Error("expected truncated keyword list in header")
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs flat keyword-to-links map", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var parsed map[string][]string
		if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}

		if len(parsed) != 2 {
			t.Fatalf("expected 2 keywords, got %d", len(parsed))
		}
		if got := parsed["openstack"]; len(got) != 2 {
			t.Errorf("expected 2 links for openstack, got %v", got)
		}
		// Failed keywords keep the links gathered before the failure.
		if got := parsed["nova"]; len(got) != 1 {
			t.Errorf("expected 1 link for nova, got %v", got)
		}
	})

	t.Run("keyword without links yields empty array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)
		report := model.NewCrawlReport(model.SearchTypeWikis, []string{"nothing"})
		report.Results["nothing"] = &model.KeywordResult{Keyword: "nothing"}

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := strings.TrimSpace(buf.String())
		if output != `{"nothing":[]}` {
			t.Errorf("expected empty array for keyword, got %s", output)
		}
	})

	t.Run("compact output by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		lines := strings.Split(strings.TrimSpace(output), "\n")
		if len(lines) > 1 {
			t.Errorf("expected compact output (1 line), got %d lines", len(lines))
		}
	})

	t.Run("pretty print with indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		lines := strings.Split(strings.TrimSpace(output), "\n")
		if len(lines) < 5 {
			t.Errorf("expected multi-line output, got %d lines", len(lines))
		}
	})
}

// TestFullJSONWriter tests the full JSON writer with metadata.
func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("includes version and statuses in output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewFullJSONWriter(&buf, "1.0.0", WithPrettyPrint())
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var parsed JSONReport
		if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}

		if parsed.Version != "1.0.0" {
			t.Errorf("expected version %q, got %q", "1.0.0", parsed.Version)
		}
		if parsed.Statuses["openstack"] != "completed" {
			t.Errorf("expected openstack status completed, got %q", parsed.Statuses["openstack"])
		}
		if parsed.Statuses["nova"] != "failed" {
			t.Errorf("expected nova status failed, got %q", parsed.Statuses["nova"])
		}
		if parsed.TotalLinks != 3 {
			t.Errorf("expected total links 3, got %d", parsed.TotalLinks)
		}
	})

	t.Run("includes repository details", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewFullJSONWriter(&buf, "1.0.0")
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, `"language_stats"`) {
			t.Error("expected language stats in full output")
		}
		if !strings.Contains(output, `"owner":"openstack"`) {
			t.Error("expected owner in full output")
		}
	})
}

// TestMultiWriter tests writing to multiple outputs.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var buf1, buf2 bytes.Buffer
		w1 := NewSimpleWriter(&buf1)
		w2 := NewJSONWriter(&buf2)

		multi := NewMultiWriter(w1, w2)
		report := createTestReport()

		_, err := multi.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if buf1.Len() == 0 {
			t.Error("expected buf1 to have content")
		}
		if buf2.Len() == 0 {
			t.Error("expected buf2 to have content")
		}

		// Verify formats are different
		if strings.Contains(buf1.String(), "{") {
			t.Error("expected buf1 (simple) to not be JSON")
		}
		if !strings.Contains(buf2.String(), "{") {
			t.Error("expected buf2 (JSON) to contain JSON")
		}
	})

	t.Run("handles empty writers list", func(t *testing.T) {
		t.Parallel()

		multi := NewMultiWriter()
		report := createTestReport()

		n, err := multi.WriteLinks(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 0 {
			t.Errorf("expected 0 bytes written for empty writers, got %d", n)
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "# GitHub Search Report") {
			t.Error("expected output to contain H1 header")
		}
		if !strings.Contains(output, "`Repositories`") {
			t.Error("expected output to contain search type")
		}
	})

	t.Run("writes keyword summary table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "## Summary") {
			t.Error("expected output to contain summary header")
		}
		if !strings.Contains(output, "✅ Completed") {
			t.Error("expected completed status indicator")
		}
		if !strings.Contains(output, "❌ Failed") {
			t.Error("expected failed status indicator")
		}
	})

	t.Run("includes warning alert for failed keywords", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[!WARNING]") {
			t.Error("expected WARNING alert for failed keywords")
		}
		if !strings.Contains(output, "nova") {
			t.Error("expected failed keyword named in alert")
		}
	})

	t.Run("includes tip alert for clean runs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		report := createTestReport()
		report.Results["nova"].Status = model.StatusCompleted
		report.Results["nova"].Err = ""

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[!TIP]") {
			t.Error("expected TIP alert for clean run")
		}
	})

	t.Run("includes pie chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "pie") {
			t.Error("expected output to contain mermaid pie chart")
		}
	})

	t.Run("writes link lists", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "## Results") {
			t.Error("expected results header")
		}
		if !strings.Contains(output, "https://github.com/openstack/openstack") {
			t.Error("expected repository link in output")
		}
	})

	t.Run("writes repository details table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "## Repository Details") {
			t.Error("expected details header")
		}
		if !strings.Contains(output, "Python 97.7%") {
			t.Error("expected language stats in details table")
		}
	})

	t.Run("omits details section without enrichment", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		report := createTestReport()
		report.Results["openstack"].Details = nil

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if strings.Contains(output, "## Repository Details") {
			t.Error("details section should be omitted without enrichment")
		}
	})

	t.Run("writes footer with link", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "https://github.com/nao1215/ghsearch") {
			t.Error("expected footer with repository link")
		}
	})

	t.Run("WriteLinks outputs only link lists", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		report := createTestReport()

		_, err := w.WriteLinks(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "## openstack") {
			t.Error("expected keyword header")
		}
		if strings.Contains(output, "# GitHub Search Report") {
			t.Error("WriteLinks should not write the full report header")
		}
	})
}

// TestFormatLanguages tests the language statistics formatting helper.
func TestFormatLanguages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		stats    map[string]float64
		expected string
	}{
		{
			name:     "dominant language first",
			stats:    map[string]float64{"Shell": 2.3, "Python": 97.7},
			expected: "Python 97.7%, Shell 2.3%",
		},
		{
			name:     "single language",
			stats:    map[string]float64{"Go": 100},
			expected: "Go 100%",
		},
		{
			name:     "ties ordered by name",
			stats:    map[string]float64{"B": 50, "A": 50},
			expected: "A 50%, B 50%",
		},
		{
			name:     "empty stats",
			stats:    nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := formatLanguages(tt.stats)
			if result != tt.expected {
				t.Errorf("formatLanguages(%v) = %q, want %q", tt.stats, result, tt.expected)
			}
		})
	}
}
