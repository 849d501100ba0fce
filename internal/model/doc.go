// Package model defines the core data structures shared across ghsearch.
// It contains the search type enumeration, per-fetch request descriptors,
// and the report structures assembled after a crawl completes.
//
// Design decision: Models are kept free of behavior beyond simple
// accessors and derived views. Fetching, parsing, and persistence live in
// their own packages so that these types can be used by all of them
// without import cycles.
package model
