package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load loads configuration from a file path and applies environment variable
// overrides. Validation is deferred so CLI flag overrides can be applied
// first by the caller.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		fileConfig, err := loadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = fileConfig
	}

	applyEnvironmentOverrides(cfg)
	return cfg, nil
}

// LoadFromEnvironment builds a configuration from environment variables
// only, for containerized deployments where files may not be available.
func LoadFromEnvironment() (*Config, error) {
	cfg := DefaultConfig()
	applyEnvironmentOverrides(cfg)
	return cfg, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigFileNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfigFormat, err)
	}
	return cfg, nil
}

func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("OPSHUB_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("OPSHUB_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("OPSHUB_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("OPSHUB_DEMO_MODE"); v == "true" || v == "1" {
		cfg.DemoMode = true
	}
	if v := os.Getenv("OPSHUB_DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}
	if v := os.Getenv("OPSHUB_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("OPSHUB_REFRESH_INTERVAL"); v != "" {
		cfg.RefreshInterval = v
	}
	if v := os.Getenv("OPSHUB_STALENESS_THRESHOLD"); v != "" {
		cfg.StalenessThreshold = v
	}
	if v := os.Getenv("OPSHUB_SEARCH_DEBOUNCE"); v != "" {
		cfg.SearchDebounce = v
	}
}
