package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".ghsearch"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .ghsearch configuration file.
// It holds settings that are tedious to repeat on the command line,
// typically the proxy list and request headers. CLI flags take
// precedence over file settings.
type File struct {
	// Proxies are proxy addresses used when --proxies is not given.
	Proxies []string `yaml:"proxies,omitempty"`

	// UserAgent overrides the default User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`

	// Headers are extra HTTP headers applied to every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Pages overrides the page ceiling per keyword session.
	Pages int `yaml:"pages,omitempty"`

	// Retries overrides the fetch attempt budget per page.
	Retries int `yaml:"retries,omitempty"`

	// Timeout overrides the per-request timeout, in Go duration syntax
	// (e.g. "10s", "1m30s").
	Timeout string `yaml:"timeout,omitempty"`

	// Concurrency overrides the number of parallel keyword sessions.
	Concurrency int `yaml:"concurrency,omitempty"`
}

// LoadConfigFile loads settings from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}

// ApplyFile merges file settings into the config. A field is merged only
// when the config still holds its default and the file provides a value,
// so CLI flags keep precedence over the file.
func (c *Config) ApplyFile(cf *File) error {
	if cf == nil {
		return nil
	}

	if len(c.Proxies) == 0 && len(cf.Proxies) > 0 {
		c.Proxies = append([]string(nil), cf.Proxies...)
	}
	if c.UserAgent == "" && cf.UserAgent != "" {
		c.UserAgent = cf.UserAgent
	}
	if len(cf.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(cf.Headers))
		}
		for k, v := range cf.Headers {
			if _, ok := c.Headers[k]; !ok {
				c.Headers[k] = v
			}
		}
	}
	if c.MaxPages == DefaultMaxPages && cf.Pages > 0 {
		c.MaxPages = cf.Pages
	}
	if c.MaxAttempts == DefaultMaxAttempts && cf.Retries > 0 {
		c.MaxAttempts = cf.Retries
	}
	if c.Concurrency == DefaultConcurrency && cf.Concurrency > 0 {
		c.Concurrency = cf.Concurrency
	}
	if c.Timeout == DefaultTimeout && cf.Timeout != "" {
		d, err := time.ParseDuration(cf.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout in config file: %w", err)
		}
		c.Timeout = d
	}

	return nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .ghsearch in the current directory
// 3. Look for .ghsearch in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	// If explicit path is provided, use it
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	// Check current directory
	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	// Check home directory
	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
