package repository

import (
	"github.com/okian/rehabchat/pkg/logger"
)

// Option applies a configuration option to the Table.
type Option func(*Table)

// WithMetrics restricts the answerable metric columns. Columns not present
// in the file are ignored.
func WithMetrics(metrics []string) Option {
	return func(t *Table) {
		if len(metrics) > 0 {
			t.allowed = append([]string(nil), metrics...)
		}
	}
}

// WithLogger sets the logger used while loading.
func WithLogger(l logger.Logger) Option {
	return func(t *Table) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithName sets the dataset name reported to the fallback and in stats.
func WithName(name string) Option {
	return func(t *Table) {
		if name != "" {
			t.name = name
		}
	}
}
