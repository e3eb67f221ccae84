package repository

import "errors"

// Sentinel kinds for table loading errors.
var (
	ErrLoad          = errors.New("load metrics table failed")
	ErrMissingColumn = errors.New("required column missing")
)
