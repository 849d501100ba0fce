package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/ghsearch/internal/model"
)

// resultSelectors are the CSS selectors that locate result entries for
// one search type.
//
// GitHub currently renders repository, issue, and wiki results through
// the same results-list component, so the three entries share selectors
// today. They are kept separate because the layouts have diverged before
// and this table is the single place to adjust when they do again.
type resultSelectors struct {
	// container holds the result rows. Its absence means GitHub served
	// something other than search results (CAPTCHA, interstitial).
	container string

	// link selects the anchors that represent result entries within
	// the container.
	link string
}

var selectorsByType = map[model.SearchType]resultSelectors{
	model.SearchTypeRepositories: {
		container: `div[data-testid="results-list"]`,
		link:      `a[class^="prc-Link-Link"]`,
	},
	model.SearchTypeIssues: {
		container: `div[data-testid="results-list"]`,
		link:      `a[class^="prc-Link-Link"]`,
	},
	model.SearchTypeWikis: {
		container: `div[data-testid="results-list"]`,
		link:      `a[class^="prc-Link-Link"]`,
	},
}

// ExtractResult is the outcome of parsing one search result page.
type ExtractResult struct {
	// Links are the result URLs in document order, fully qualified.
	Links []string

	// HasNextPage reports whether an enabled "Next" pagination control
	// is present.
	HasNextPage bool
}

// Extractor parses search result pages into link lists.
// It is a pure function over HTML text: no network access, no state
// mutation, safe for concurrent use.
//
// Design decision: We use goquery rather than walking x/net/html nodes
// by hand because the result markup is located by CSS class and
// data-testid attributes; selector matching keeps the extraction
// declarative and directly comparable to the page's devtools view.
type Extractor struct {
	// baseURL resolves relative result paths to fully-qualified URLs.
	baseURL *url.URL
}

// NewExtractor creates an extractor that resolves relative links against
// the given base URL (normally DefaultBaseURL).
func NewExtractor(baseURL string) (*Extractor, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	return &Extractor{baseURL: u}, nil
}

// Extract parses one page's HTML for the given search type.
// It returns the ordered result links (duplicates retained as the page
// listed them) and whether a next page exists. When the document does
// not match the expected structure it returns ErrPageStructure.
func (e *Extractor) Extract(htmlText string, typ model.SearchType) (*ExtractResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageStructure, err)
	}

	sel, ok := selectorsByType[typ]
	if !ok {
		return nil, fmt.Errorf("%w: no selectors for search type %s", ErrPageStructure, typ)
	}

	container := doc.Find(sel.container)
	if container.Length() == 0 {
		return nil, fmt.Errorf("%w: %q not found", ErrPageStructure, sel.container)
	}

	result := &ExtractResult{Links: make([]string, 0)}

	container.Find(sel.link).Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}
		if resolved := e.resolveURL(href); resolved != "" {
			result.Links = append(result.Links, resolved)
		}
	})

	result.HasNextPage = hasNextPage(doc)

	return result, nil
}

// hasNextPage reports whether an enabled "Next" pagination anchor exists.
// A disabled control carries aria-disabled="true".
func hasNextPage(doc *goquery.Document) bool {
	has := false
	doc.Find(`a[rel="next"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if disabled, _ := s.Attr("aria-disabled"); disabled == "true" {
			return true
		}
		has = true
		return false
	})
	return has
}

// resolveURL resolves a result href against the base URL, dropping
// non-navigational targets.
func (e *Extractor) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	return e.baseURL.ResolveReference(u).String()
}
