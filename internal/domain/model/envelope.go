package model

// ResponseType tags an envelope.
type ResponseType string

const (
	ResponsePoint        ResponseType = "point"
	ResponseTimeseries   ResponseType = "timeseries"
	ResponseCompare      ResponseType = "compare"
	ResponseSessionRange ResponseType = "session_range"
	ResponseDefinition   ResponseType = "definition"
	ResponseReset        ResponseType = "reset"
	ResponseFallback     ResponseType = "code_fallback"
	ResponseError        ResponseType = "error"
)

// Context is the conversation state carried between turns. The caller owns
// it: it is sent with each request and returned, updated, with each reply.
type Context struct {
	PatientID    string        `json:"patient_id,omitempty"`
	Metric       string        `json:"metric,omitempty"`
	Game         string        `json:"game,omitempty"`
	Session      string        `json:"session,omitempty"`
	DateRange    *DateRange    `json:"date_range,omitempty"`
	SessionRange *SessionRange `json:"session_range,omitempty"`
}

// IsZero reports whether the context carries nothing.
func (c Context) IsZero() bool {
	return c.PatientID == "" && c.Metric == "" && c.Game == "" && c.Session == "" &&
		c.DateRange == nil && c.SessionRange == nil
}

// ContextFrom records what a successful descriptor asked for.
func ContextFrom(d Descriptor) Context {
	c := Context{
		PatientID: d.PatientID,
		Metric:    d.Metric,
		Game:      d.Game,
		Session:   d.Session,
	}
	switch {
	case d.DateRange != nil:
		r := *d.DateRange
		c.DateRange = &r
	case d.Date != "":
		c.DateRange = &DateRange{Start: d.Date, End: d.Date}
	}
	if d.SessionRange != nil {
		r := *d.SessionRange
		c.SessionRange = &r
	}
	return c
}

// Envelope is the uniform reply of one chat turn.
type Envelope struct {
	Type    ResponseType `json:"type"`
	Answer  string       `json:"answer"`
	Data    any          `json:"data"`
	Context Context      `json:"context"`
	TurnID  string       `json:"turn_id,omitempty"`
}

// ErrorData is the payload of an error envelope.
type ErrorData struct {
	Kind       string      `json:"kind"`
	Descriptor *Descriptor `json:"descriptor,omitempty"`
}
