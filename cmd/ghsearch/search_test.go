package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// searchResultsPage builds a minimal search result page for test servers.
func searchResultsPage(hasNext bool, hrefs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div data-testid="results-list">`)
	for _, href := range hrefs {
		fmt.Fprintf(&b, `<a class="prc-Link-Link-1" href=%q>r</a>`, href)
	}
	b.WriteString(`</div>`)
	if hasNext {
		b.WriteString(`<a rel="next" href="/search?p=2">Next</a>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

// startResultServer starts an httptest server that acts as an HTTP proxy
// and answers every search request with the given page.
func startResultServer(t *testing.T, page string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/search") {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, page)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// proxyAddr returns the httptest server address in host:port form.
func proxyAddr(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

// TestNewSearchCmd tests the search command creation.
func TestNewSearchCmd(t *testing.T) {
	t.Parallel()

	cmd := NewSearchCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "search" {
			t.Errorf("expected use 'search', got %q", cmd.Use)
		}
	})

	t.Run("has keywords flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("keywords")
		if flag == nil {
			t.Fatal("expected keywords flag")
		}
		if flag.Shorthand != "k" {
			t.Errorf("expected shorthand 'k', got %q", flag.Shorthand)
		}
	})

	t.Run("has proxies flag", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("proxies") == nil {
			t.Fatal("expected proxies flag")
		}
	})

	t.Run("has type flag with default", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("type")
		if flag == nil {
			t.Fatal("expected type flag")
		}
		if flag.DefValue != "Repositories" {
			t.Errorf("expected default 'Repositories', got %q", flag.DefValue)
		}
	})

	t.Run("hides test hooks", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"base-url", "db-dir"} {
			flag := cmd.Flags().Lookup(name)
			if flag == nil {
				t.Fatalf("expected %s flag", name)
			}
			if !flag.Hidden {
				t.Errorf("expected %s flag to be hidden", name)
			}
		}
	})
}

// TestRunSearchCmd tests end-to-end search execution against a local
// server acting as both proxy and origin.
func TestRunSearchCmd(t *testing.T) {
	t.Run("writes flat JSON result map", func(t *testing.T) {
		srv := startResultServer(t, searchResultsPage(false,
			"https://github.com/x/y", "https://github.com/a/b"))
		outputPath := filepath.Join(t.TempDir(), "results.json")

		var buf bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{
			"search",
			"--keywords", "openstack",
			"--proxies", proxyAddr(srv),
			"--base-url", "http://github.com",
			"--output", outputPath,
			"--retries", "1",
		})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(outputPath) //nolint:gosec // Test file path
		if err != nil {
			t.Fatalf("failed to read output file: %v", err)
		}

		var got map[string][]string
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}

		want := map[string][]string{
			"openstack": {"https://github.com/x/y", "https://github.com/a/b"},
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("result map = %v, want %v", got, want)
		}

		if !strings.Contains(buf.String(), "openstack") {
			t.Errorf("expected summary to mention the keyword, got %q", buf.String())
		}
	})

	t.Run("failed keyword yields empty list and exit code zero", func(t *testing.T) {
		srv := startResultServer(t, "")
		srv.Close() // unreachable proxy forces a network failure
		outputPath := filepath.Join(t.TempDir(), "results.json")

		var buf bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{
			"search",
			"--keywords", "ghost",
			"--proxies", proxyAddr(srv),
			"--base-url", "http://github.com",
			"--output", outputPath,
			"--retries", "1",
		})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("expected crawl failures to keep exit code zero, got %v", err)
		}

		data, err := os.ReadFile(outputPath) //nolint:gosec // Test file path
		if err != nil {
			t.Fatalf("failed to read output file: %v", err)
		}

		var got map[string][]string
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if links, ok := got["ghost"]; !ok || len(links) != 0 {
			t.Errorf("expected empty list for failed keyword, got %v", got)
		}
	})

	t.Run("writes markdown report", func(t *testing.T) {
		srv := startResultServer(t, searchResultsPage(false, "https://github.com/x/y"))
		tmpDir := t.TempDir()
		outputPath := filepath.Join(tmpDir, "results.json")
		markdownPath := filepath.Join(tmpDir, "report.md")

		cmd := NewRootCmd()
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetArgs([]string{
			"search",
			"--keywords", "openstack",
			"--proxies", proxyAddr(srv),
			"--base-url", "http://github.com",
			"--output", outputPath,
			"--markdown", markdownPath,
			"--retries", "1",
		})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(markdownPath) //nolint:gosec // Test file path
		if err != nil {
			t.Fatalf("failed to read markdown file: %v", err)
		}
		if !strings.Contains(string(content), "# GitHub Search Report") {
			t.Errorf("expected markdown heading, got %q", string(content))
		}
		if !strings.Contains(string(content), "https://github.com/x/y") {
			t.Errorf("expected markdown to list result links, got %q", string(content))
		}
	})

	t.Run("writes full JSON report", func(t *testing.T) {
		srv := startResultServer(t, searchResultsPage(false, "https://github.com/x/y"))
		tmpDir := t.TempDir()
		outputPath := filepath.Join(tmpDir, "results.json")
		fullPath := filepath.Join(tmpDir, "full.json")

		cmd := NewRootCmd()
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetArgs([]string{
			"search",
			"--keywords", "openstack",
			"--proxies", proxyAddr(srv),
			"--base-url", "http://github.com",
			"--output", outputPath,
			"--full-json", fullPath,
			"--retries", "1",
		})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(fullPath) //nolint:gosec // Test file path
		if err != nil {
			t.Fatalf("failed to read full JSON file: %v", err)
		}

		var full struct {
			Version  string            `json:"version"`
			Statuses map[string]string `json:"statuses"`
		}
		if err := json.Unmarshal(data, &full); err != nil {
			t.Fatalf("full report is not valid JSON: %v", err)
		}
		if full.Version == "" {
			t.Error("expected version in full report")
		}
		if full.Statuses["openstack"] != "completed" {
			t.Errorf("statuses = %v, want openstack completed", full.Statuses)
		}
	})

	t.Run("missing keywords is a configuration error", func(t *testing.T) {
		cmd := NewRootCmd()
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetArgs([]string{"search", "--proxies", "127.0.0.1:8080"})

		if err := cmd.Execute(); err == nil {
			t.Error("expected error when no keywords are given")
		}
	})

	t.Run("proxies and tor are mutually exclusive", func(t *testing.T) {
		cmd := NewRootCmd()
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetArgs([]string{"search", "--keywords", "x", "--proxies", "127.0.0.1:8080", "--tor"})

		if err := cmd.Execute(); err == nil {
			t.Error("expected error when both --proxies and --tor are given")
		}
	})

	t.Run("invalid search type", func(t *testing.T) {
		cmd := NewRootCmd()
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetArgs([]string{
			"search",
			"--keywords", "x",
			"--proxies", "127.0.0.1:8080",
			"--type", "Gists",
		})

		if err := cmd.Execute(); err == nil {
			t.Error("expected error for unknown search type")
		}
	})

	t.Run("explicit config file that does not exist", func(t *testing.T) {
		cmd := NewRootCmd()
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetArgs([]string{
			"search",
			"--keywords", "x",
			"--proxies", "127.0.0.1:8080",
			"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		})

		if err := cmd.Execute(); err == nil {
			t.Error("expected error for missing explicit config file")
		}
	})

	t.Run("proxies from config file", func(t *testing.T) {
		srv := startResultServer(t, searchResultsPage(false, "https://github.com/x/y"))
		tmpDir := t.TempDir()
		outputPath := filepath.Join(tmpDir, "results.json")
		configPath := filepath.Join(tmpDir, ".ghsearch")

		configContent := fmt.Sprintf("proxies:\n  - %q\n", proxyAddr(srv))
		if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		cmd := NewRootCmd()
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetArgs([]string{
			"search",
			"--keywords", "openstack",
			"--base-url", "http://github.com",
			"--output", outputPath,
			"--config", configPath,
			"--retries", "1",
		})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(outputPath) //nolint:gosec // Test file path
		if err != nil {
			t.Fatalf("failed to read output file: %v", err)
		}
		if !strings.Contains(string(data), "https://github.com/x/y") {
			t.Errorf("expected results via config file proxies, got %q", string(data))
		}
	})
}

// TestSearchAndCompare tests the save and compare round trip.
func TestSearchAndCompare(t *testing.T) {
	dbDir := t.TempDir()

	runSearchOnce := func(t *testing.T, page string) {
		t.Helper()

		srv := startResultServer(t, page)
		outputPath := filepath.Join(t.TempDir(), "results.json")

		cmd := NewRootCmd()
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetArgs([]string{
			"search",
			"--keywords", "openstack",
			"--proxies", proxyAddr(srv),
			"--base-url", "http://github.com",
			"--output", outputPath,
			"--db-dir", dbDir,
			"--save",
			"--retries", "1",
		})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("search failed: %v", err)
		}
	}

	runSearchOnce(t, searchResultsPage(false,
		"https://github.com/a/b", "https://github.com/x/y"))
	runSearchOnce(t, searchResultsPage(false,
		"https://github.com/x/y", "https://github.com/e/f"))

	t.Run("compare reports added and removed links", func(t *testing.T) {
		var buf bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"compare", "--db-dir", dbDir, "openstack"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("compare failed: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "+ https://github.com/e/f") {
			t.Errorf("expected added link in output, got %q", output)
		}
		if !strings.Contains(output, "- https://github.com/a/b") {
			t.Errorf("expected removed link in output, got %q", output)
		}
	})

	t.Run("compare json output", func(t *testing.T) {
		var buf bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"compare", "--json", "--db-dir", dbDir, "openstack"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("compare failed: %v", err)
		}

		var diff struct {
			Keyword string   `json:"keyword"`
			Added   []string `json:"added"`
			Removed []string `json:"removed"`
		}
		if err := json.Unmarshal(buf.Bytes(), &diff); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if diff.Keyword != "openstack" {
			t.Errorf("keyword = %q, want %q", diff.Keyword, "openstack")
		}
		if !reflect.DeepEqual(diff.Added, []string{"https://github.com/e/f"}) {
			t.Errorf("added = %v, want [https://github.com/e/f]", diff.Added)
		}
	})

	t.Run("list shows saved runs", func(t *testing.T) {
		var buf bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"compare", "--list", "--db-dir", dbDir})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("list failed: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Saved runs (2)") {
			t.Errorf("expected two saved runs, got %q", output)
		}
		if !strings.Contains(output, "openstack") {
			t.Errorf("expected keyword in listing, got %q", output)
		}
	})
}
