package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSearchType is returned when a string cannot be parsed into a
// SearchType. The error message lists the accepted values so that CLI
// users see actionable feedback.
var ErrInvalidSearchType = errors.New("invalid search type: must be one of Repositories, Issues, Wikis")

// SearchType identifies which GitHub entity category is searched.
// It determines both the "type" query parameter of the search URL and the
// HTML structure expected on the result page.
type SearchType int

const (
	// SearchTypeRepositories searches repository results.
	// This is the default search type.
	SearchTypeRepositories SearchType = iota

	// SearchTypeIssues searches issue and pull request results.
	SearchTypeIssues

	// SearchTypeWikis searches wiki page results.
	SearchTypeWikis
)

// String returns the canonical name of the search type as it appears
// in the CLI and in reports.
func (t SearchType) String() string {
	switch t {
	case SearchTypeRepositories:
		return "Repositories"
	case SearchTypeIssues:
		return "Issues"
	case SearchTypeWikis:
		return "Wikis"
	default:
		return "unknown"
	}
}

// QueryValue returns the value used for the "type" query parameter in
// GitHub's HTML search URL (lowercased, e.g. "repositories").
func (t SearchType) QueryValue() string {
	return strings.ToLower(t.String())
}

// Valid reports whether the search type is one of the known values.
func (t SearchType) Valid() bool {
	switch t {
	case SearchTypeRepositories, SearchTypeIssues, SearchTypeWikis:
		return true
	default:
		return false
	}
}

// MarshalJSON encodes the search type as its lowercase query value so
// that JSON reports stay readable and stable across releases.
func (t SearchType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.QueryValue())
}

// UnmarshalJSON decodes a search type from its lowercase query value.
func (t *SearchType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseSearchType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseSearchType parses a case-insensitive search type name.
// It accepts the canonical names ("Repositories", "Issues", "Wikis") in
// any casing so that CLI input is forgiving.
func ParseSearchType(s string) (SearchType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "repositories":
		return SearchTypeRepositories, nil
	case "issues":
		return SearchTypeIssues, nil
	case "wikis":
		return SearchTypeWikis, nil
	default:
		return SearchTypeRepositories, fmt.Errorf("%w: got %q", ErrInvalidSearchType, s)
	}
}
