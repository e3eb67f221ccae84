package llm

import "errors"

var (
	// ErrUnknownBackend is returned by New for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown parser backend")
	// ErrMissingAPIKey is returned when a hosted backend has no key.
	ErrMissingAPIKey = errors.New("api key is required")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("model returned an empty response")
)
