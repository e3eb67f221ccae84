package model

// Row is a single matched observation as reported back to the caller.
type Row struct {
	Date    string  `json:"date"`
	Session string  `json:"session"`
	Game    string  `json:"game"`
	Value   float64 `json:"value"`
}

// Direction is the first-versus-last movement of a series.
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
	DirectionNoChange Direction = "no change"
)

// DirectionOf classifies a signed change.
func DirectionOf(change float64) Direction {
	switch {
	case change > 0:
		return DirectionIncrease
	case change < 0:
		return DirectionDecrease
	default:
		return DirectionNoChange
	}
}

// TrendClass labels the session-to-session behaviour of a series.
type TrendClass struct {
	Label  string `json:"label"`  // improving, worsening, variable, no clear trend
	Reason string `json:"reason"` // short explanation usable in narration
}

// Bucket aggregates the valid values sharing a date or a session.
type Bucket struct {
	Key  string  `json:"key"`
	N    int     `json:"n"`
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// PointResult answers a point query.
type PointResult struct {
	PatientID string  `json:"patient_id"`
	Metric    string  `json:"metric"`
	Game      string  `json:"game"`
	Date      string  `json:"date,omitempty"`
	Session   string  `json:"session,omitempty"`
	Value     float64 `json:"value"`
	N         int     `json:"n"`
	Rows      []Row   `json:"rows"`
	Skipped   int     `json:"skipped"`
}

// TimeseriesResult answers a timeseries query.
type TimeseriesResult struct {
	PatientID         string      `json:"patient_id"`
	Metric            string      `json:"metric"`
	Game              string      `json:"game"`
	Requested         DateRange   `json:"requested"`
	Points            []Row       `json:"points"`
	PerDate           []Bucket    `json:"per_date"`
	FirstDate         string      `json:"first_date"`
	LastDate          string      `json:"last_date"`
	Change            float64     `json:"change"`
	RelativeChangePct *float64    `json:"relative_change_pct,omitempty"`
	Trend             Direction   `json:"trend"`
	Classification    *TrendClass `json:"classification,omitempty"`
	BaselineNote      string      `json:"baseline_note,omitempty"`
	Skipped           int         `json:"skipped"`
}

// CompareSide is one of the two lookups of a comparison.
type CompareSide struct {
	Label    string   `json:"label"`
	Selector Selector `json:"selector"`
	Value    float64  `json:"value"`
	N        int      `json:"n"`
	Rows     []Row    `json:"rows"`
	Skipped  int      `json:"skipped"`
}

// CompareResult answers a compare query. Difference is always A minus B.
type CompareResult struct {
	PatientID         string      `json:"patient_id"`
	Metric            string      `json:"metric"`
	Game              string      `json:"game"`
	A                 CompareSide `json:"a"`
	B                 CompareSide `json:"b"`
	ValueA            float64     `json:"value_a"`
	ValueB            float64     `json:"value_b"`
	Difference        float64     `json:"difference"`
	RelativeChangePct *float64    `json:"relative_change_pct,omitempty"`
}

// SessionRangeResult answers a session_range query.
type SessionRangeResult struct {
	PatientID         string        `json:"patient_id"`
	Metric            string        `json:"metric"`
	Game              string        `json:"game"`
	SessionRange      *SessionRange `json:"session_range,omitempty"`
	DateRange         *DateRange    `json:"date_range,omitempty"`
	PerSession        []Bucket      `json:"per_session"`
	Count             int           `json:"count"`
	Min               float64       `json:"min"`
	Max               float64       `json:"max"`
	Mean              float64       `json:"mean"`
	FirstSession      string        `json:"first_session"`
	LastSession       string        `json:"last_session"`
	Change            float64       `json:"change"`
	RelativeChangePct *float64      `json:"relative_change_pct,omitempty"`
	Trend             Direction     `json:"trend"`
	Classification    *TrendClass   `json:"classification,omitempty"`
	BaselineNote      string        `json:"baseline_note,omitempty"`
	Skipped           int           `json:"skipped"`
}

// FallbackResult is the structured answer relayed from the code-execution service.
type FallbackResult struct {
	Answer     string         `json:"answer"`
	Data       map[string]any `json:"data,omitempty"`
	Confidence float64        `json:"confidence"`
	Warnings   []string       `json:"warnings,omitempty"`
}

// Definition explains a metric.
type Definition struct {
	Metric      string `json:"metric"`
	DisplayName string `json:"display_name"`
	Explanation string `json:"explanation"`
}

// QueryResult is the interpreter's answer: the descriptor as resolved
// (relative sessions replaced by concrete ones) and exactly one payload.
type QueryResult struct {
	Descriptor   Descriptor
	Point        *PointResult
	Timeseries   *TimeseriesResult
	Compare      *CompareResult
	SessionRange *SessionRangeResult
}

// Type returns the envelope type matching the payload.
func (r QueryResult) Type() ResponseType {
	switch {
	case r.Point != nil:
		return ResponsePoint
	case r.Timeseries != nil:
		return ResponseTimeseries
	case r.Compare != nil:
		return ResponseCompare
	case r.SessionRange != nil:
		return ResponseSessionRange
	}
	return ResponseError
}

// Data returns the payload for the envelope.
func (r QueryResult) Data() any {
	switch {
	case r.Point != nil:
		return r.Point
	case r.Timeseries != nil:
		return r.Timeseries
	case r.Compare != nil:
		return r.Compare
	case r.SessionRange != nil:
		return r.SessionRange
	}
	return nil
}
