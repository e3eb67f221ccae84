package model

// QueryType selects the computation strategy.
type QueryType string

const (
	QueryPoint        QueryType = "point"
	QueryTimeseries   QueryType = "timeseries"
	QueryCompare      QueryType = "compare"
	QuerySessionRange QueryType = "session_range"
)

// Known reports whether t is one of the supported query types.
func (t QueryType) Known() bool {
	switch t {
	case QueryPoint, QueryTimeseries, QueryCompare, QuerySessionRange:
		return true
	}
	return false
}

// DateRange is an inclusive range of ISO dates.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SessionRange is an inclusive range of session labels, ordered by number.
type SessionRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Relative session references. They are valid Session values until the
// interpreter resolves them against the table.
const (
	SessionFirst    = "first"
	SessionLatest   = "latest"
	SessionPrevious = "previous"
	SessionNext     = "next"
)

// IsRelativeSession reports whether s is a relative session reference.
func IsRelativeSession(s string) bool {
	switch s {
	case SessionFirst, SessionLatest, SessionPrevious, SessionNext:
		return true
	}
	return false
}

// Selector picks the rows of one side of a lookup. Exactly one of its
// fields is expected to be set once validated.
type Selector struct {
	Date      string     `json:"date,omitempty"`
	DateRange *DateRange `json:"date_range,omitempty"`
	Session   string     `json:"session,omitempty"`
}

// Empty reports whether no selector field is set.
func (s Selector) Empty() bool {
	return s.Date == "" && s.DateRange == nil && s.Session == ""
}

// Descriptor is the validated form of a user question.
type Descriptor struct {
	QueryType    QueryType     `json:"query_type"`
	PatientID    string        `json:"patient_id,omitempty"`
	Metric       string        `json:"metric,omitempty"`
	Game         string        `json:"game,omitempty"`
	Date         string        `json:"date,omitempty"`
	DateRange    *DateRange    `json:"date_range,omitempty"`
	Session      string        `json:"session,omitempty"`
	SessionRange *SessionRange `json:"session_range,omitempty"`
	CompareTo    *Selector     `json:"compare_to,omitempty"`

	// Anchor is the session that relative references ("previous", "next")
	// resolve against when the descriptor itself names no concrete session.
	Anchor string `json:"anchor,omitempty"`
}

// Selector returns the primary row selector of the descriptor.
func (d Descriptor) Selector() Selector {
	return Selector{Date: d.Date, DateRange: d.DateRange, Session: d.Session}
}

// Clone returns a deep copy so callers can mutate ranges safely.
func (d Descriptor) Clone() Descriptor {
	out := d
	if d.DateRange != nil {
		r := *d.DateRange
		out.DateRange = &r
	}
	if d.SessionRange != nil {
		r := *d.SessionRange
		out.SessionRange = &r
	}
	if d.CompareTo != nil {
		s := *d.CompareTo
		if s.DateRange != nil {
			r := *s.DateRange
			s.DateRange = &r
		}
		out.CompareTo = &s
	}
	return out
}

// Filter selects table rows. Zero fields do not constrain.
type Filter struct {
	PatientID    string
	Game         string
	Session      string
	Date         string
	DateRange    *DateRange
	SessionRange *SessionRange
}
