// Package repository holds the read-only metrics table the interpreter
// queries.
package repository

import (
	"context"

	"github.com/okian/rehabchat/internal/domain/model"
)

// Filter selects observations.
type Filter = model.Filter

// Stats summarizes the loaded table.
type Stats struct {
	Source           string   `json:"source"`
	Checksum         string   `json:"checksum"`
	Rows             int      `json:"rows"`
	Patients         int      `json:"patients"`
	Games            []string `json:"games"`
	Metrics          []string `json:"metrics"`
	FirstDate        string   `json:"first_date,omitempty"`
	LastDate         string   `json:"last_date,omitempty"`
	UnparseableDates int      `json:"unparseable_dates"`
	InvalidCells     int      `json:"invalid_cells"`
}

// Store provides read access to the metrics table.
type Store interface {
	// Query returns the observations matching f, ordered by date ascending
	// (undated rows last), then session number, then game.
	Query(ctx context.Context, f Filter) []model.Observation

	// Sessions returns the numbered sessions recorded for a patient in a
	// game, ordered by session number.
	Sessions(ctx context.Context, patientID, game string) []string

	// HasMetric reports whether metric is an answerable column.
	HasMetric(metric string) bool

	// Metrics returns the answerable metric columns.
	Metrics() []string

	// Count returns the number of rows.
	Count(ctx context.Context) int

	// Stats summarizes the table.
	Stats(ctx context.Context) Stats

	// Dataset returns the raw source of the table.
	Dataset() model.Dataset
}
