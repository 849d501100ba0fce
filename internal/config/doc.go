// Package config provides configuration structures and utilities for ghsearch.
// It defines the main configuration options for keyword crawling, proxy
// rotation, and report generation preferences, along with the optional
// .ghsearch configuration file.
package config
