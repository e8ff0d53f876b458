// Package config loads console configuration from a JSON file with
// environment variable overrides. CLI flags are applied by the caller
// before Validate.
package config

import "time"

// Config holds settings shared by the API server and the console client.
type Config struct {
	// APIBaseURL is where the console client reaches the API.
	APIBaseURL string `json:"apiBaseUrl"`
	// HTTPAddr is the API server listen address.
	HTTPAddr string `json:"httpAddr"`
	// DatabaseURL is the Postgres connection string. Empty selects the
	// in-memory store.
	DatabaseURL string `json:"databaseUrl"`
	// DemoMode seeds the in-memory store with sample data.
	DemoMode bool   `json:"demoMode"`
	Debug    bool   `json:"debug"`
	LogLevel string `json:"logLevel"`

	// Client-side sync tuning, in Go duration syntax (e.g. "30s").
	RefreshInterval    string `json:"refreshInterval"`
	StalenessThreshold string `json:"stalenessThreshold"`
	SearchDebounce     string `json:"searchDebounce"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:         "http://localhost:8080",
		HTTPAddr:           ":8080",
		LogLevel:           "info",
		RefreshInterval:    "30s",
		StalenessThreshold: "60s",
		SearchDebounce:     "300ms",
	}
}

// Validate checks the configuration after all overrides are applied.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return ErrMissingAPIBaseURL
	}
	if c.HTTPAddr == "" {
		return ErrMissingHTTPAddr
	}
	if c.DatabaseURL == "" && !c.DemoMode {
		return ErrMissingDatabaseURL
	}
	for _, raw := range []string{c.RefreshInterval, c.StalenessThreshold, c.SearchDebounce} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return ErrInvalidDuration
		}
	}
	return nil
}

// Duration parses one of the duration fields, falling back when empty or
// invalid. Validate will have rejected invalid values already; the fallback
// keeps zero-value configs usable in tests.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
