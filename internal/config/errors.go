package config

import "errors"

var (
	// ErrMissingAPIBaseURL indicates that the API base URL is not configured
	ErrMissingAPIBaseURL = errors.New("apiBaseUrl is required in configuration")

	// ErrMissingHTTPAddr indicates that the server listen address is not configured
	ErrMissingHTTPAddr = errors.New("httpAddr is required in configuration")

	// ErrMissingDatabaseURL indicates neither a database nor demo mode is configured
	ErrMissingDatabaseURL = errors.New("databaseUrl is required when not in demo mode")

	// ErrInvalidDuration indicates a sync tuning field is not a valid duration
	ErrInvalidDuration = errors.New("invalid duration in configuration")

	// ErrConfigFileNotFound indicates that the config file was not found
	ErrConfigFileNotFound = errors.New("configuration file not found")

	// ErrInvalidConfigFormat indicates that the config file has invalid JSON
	ErrInvalidConfigFormat = errors.New("invalid configuration file format")
)
