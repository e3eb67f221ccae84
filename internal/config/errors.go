package config

import "errors"

// Loader failures, matched with errors.Is.
var (
	// ErrInvalidConfig is returned by Validate for a value the service cannot run with.
	ErrInvalidConfig = errors.New("invalid rehab chat config")
	// ErrLoadConfig wraps failures reading .env, REHAB_CONFIG or REHAB_* variables.
	ErrLoadConfig = errors.New("load rehab chat config failed")
)
