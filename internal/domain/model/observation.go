// Package model contains domain models passed between layers.
package model

import (
	"regexp"
	"strconv"
)

// Observation is one row of the metrics table: a single session of one game
// played by one patient, with its metric values.
type Observation struct {
	Patient string // patient identifier, e.g. "45"
	Date    string // ISO date (YYYY-MM-DD); empty when the source date was unparseable
	DateRaw string // date exactly as it appeared in the source
	Game    string // e.g. "game0"
	Session string // e.g. "session_3"
	Gender  string

	// Values holds only valid (finite, numeric) metric cells.
	Values map[string]float64
}

// Value returns the metric value and whether the cell was valid.
func (o Observation) Value(metric string) (float64, bool) {
	v, ok := o.Values[metric]
	return v, ok
}

// HasDate reports whether the row has a usable date.
func (o Observation) HasDate() bool { return o.Date != "" }

// SessionNumber returns the numeric part of the session label.
func (o Observation) SessionNumber() (int, bool) {
	return SessionNumber(o.Session)
}

var sessionNumRe = regexp.MustCompile(`(?i)\bsession[_\s]*(\d+)\b`)

// SessionNumber extracts N from labels like "session_N" or "Session N".
func SessionNumber(s string) (int, bool) {
	m := sessionNumRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// SessionLabel renders the canonical label for a session number.
func SessionLabel(n int) string {
	return "session_" + strconv.Itoa(n)
}

// NormalizeSession maps "Session 2", "session_02" and "session2" to "session_2".
// It returns false when s carries no session number.
func NormalizeSession(s string) (string, bool) {
	n, ok := SessionNumber(s)
	if !ok {
		return "", false
	}
	return SessionLabel(n), true
}
