// Package main provides the entry point for the ghsearch CLI.
//
// ghsearch crawls GitHub's HTML search results for a set of keywords
// through rotating proxies and collects the result links per keyword.
//
// Usage:
//
//	ghsearch search --keywords golang --proxies 127.0.0.1:8080
//	ghsearch compare <keyword>
//
// See --help for all available options.
package main

// main is the entry point for ghsearch.
func main() {
	Execute()
}
