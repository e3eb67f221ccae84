package fallback

import "errors"

var (
	// ErrFallbackDisabled is returned by Dispatch when the fallback is off.
	ErrFallbackDisabled = errors.New("code fallback is disabled")
	// ErrMissingAPIKey is returned when the executor has no key.
	ErrMissingAPIKey = errors.New("api key is required")
	// ErrNoOutput is returned when the service produced no output text.
	ErrNoOutput = errors.New("no output_text found in response")
	// ErrEmptyDataset is returned when there is nothing to upload.
	ErrEmptyDataset = errors.New("dataset is empty")
)
