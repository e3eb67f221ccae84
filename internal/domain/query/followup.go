package query

import (
	"github.com/okian/rehabchat/internal/domain/model"
)

// ApplyContext fills what a follow-up question leaves out from the previous
// turn. Patient, metric and game are carried over unless the question names
// its own; dates and sessions only when the question names none at all.
func ApplyContext(d model.Descriptor, question string, c model.Context, metrics []string) model.Descriptor {
	if c.IsZero() {
		return d
	}
	out := d.Clone()

	if out.PatientID == "" {
		if _, named := PatientInText(question); !named {
			out.PatientID = c.PatientID
		}
	}
	if out.Metric == "" {
		if _, named := MetricInText(question, metrics); !named {
			out.Metric = c.Metric
		}
	}
	if out.Game == "" && len(GamesInText(question)) == 0 {
		out.Game = c.Game
	}

	if model.IsRelativeSession(out.Session) {
		out.Anchor = c.Session
	}
	if out.CompareTo != nil && model.IsRelativeSession(out.CompareTo.Session) && out.Session == "" {
		out.Anchor = c.Session
	}

	namesDates := MentionsDates(question)
	namesSession := len(SessionsInText(question)) > 0
	if namesDates || namesSession || hasSelection(out) {
		return out
	}

	switch out.QueryType {
	case model.QuerySessionRange:
		switch {
		case c.SessionRange != nil:
			r := *c.SessionRange
			out.SessionRange = &r
		case c.DateRange != nil:
			r := *c.DateRange
			out.DateRange = &r
		}
	case model.QueryPoint:
		switch {
		case c.Session != "":
			out.Session = c.Session
		case c.DateRange != nil && c.DateRange.Start == c.DateRange.End:
			out.Date = c.DateRange.Start
		case c.DateRange != nil:
			r := *c.DateRange
			out.DateRange = &r
			out.QueryType = model.QueryTimeseries
		}
	case model.QueryCompare:
		switch {
		case c.Session != "":
			out.Session = c.Session
		case c.DateRange != nil && c.DateRange.Start == c.DateRange.End:
			out.Date = c.DateRange.Start
		case c.DateRange != nil:
			r := *c.DateRange
			out.DateRange = &r
		}
	default:
		switch {
		case c.DateRange != nil:
			r := *c.DateRange
			out.DateRange = &r
		case c.Session != "":
			out.Session = c.Session
		}
	}
	return out
}

func hasSelection(d model.Descriptor) bool {
	return d.Date != "" || d.DateRange != nil || d.Session != "" || d.SessionRange != nil
}
