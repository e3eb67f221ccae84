package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/okian/rehabchat/internal/domain/model"
	"github.com/okian/rehabchat/internal/domain/query"
)

// Rules parses deterministically from keywords, without a model. It only
// states what the question names; dates and ranges are filled in later
// from the question text by query.Normalizer.
type Rules struct {
	metrics []string
}

// NewRules creates a keyword parser.
func NewRules(opts ...Option) *Rules {
	s := newSettings(opts)
	return &Rules{metrics: s.metrics}
}

// Name implements Parser.
func (r *Rules) Name() string { return BackendRules }

// Parse implements Parser.
func (r *Rules) Parse(_ context.Context, question string, _ model.Context) (string, error) {
	out := map[string]any{"query_type": r.queryType(question)}

	if p, ok := query.PatientInText(question); ok {
		out["patient_id"] = p
	}
	if m, ok := query.MetricInText(question, r.metrics); ok {
		out["metric"] = m
	} else if query.IsDurationQuestion(question) {
		out["metric"] = "timestampms"
	}

	games := query.GamesInText(question)
	switch {
	case len(games) == 1:
		out["game"] = games[0]
	case len(games) > 1:
		out["game"] = distinctOrMulti(games)
	}

	sessions := query.SessionsInText(question)
	rel, hasRel := query.RelativeSessionInText(question)
	switch {
	case len(sessions) == 1 && out["query_type"] != string(model.QueryCompare):
		out["session"] = sessions[0]
	case len(sessions) == 0 && hasRel:
		out["session"] = rel
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Rules) queryType(question string) string {
	sessions := query.SessionsInText(question)
	dates := query.DatesInText(question)
	q := strings.ToLower(question)
	switch {
	case len(sessions) >= 2 && query.IsSessionRangeQuestion(question):
		return string(model.QuerySessionRange)
	case query.IsCompareQuestion(question):
		return string(model.QueryCompare)
	case len(dates) >= 2 || (len(dates) == 1 && query.OpenEnded(question)):
		return string(model.QueryTimeseries)
	case len(dates) == 0 && len(sessions) == 0 &&
		(strings.Contains(q, "trend") || strings.Contains(q, "over time") || strings.Contains(q, "progress")):
		return string(model.QuerySessionRange)
	}
	return string(model.QueryPoint)
}

func distinctOrMulti(games []string) string {
	for _, g := range games[1:] {
		if g != games[0] {
			return query.Multi
		}
	}
	return games[0]
}
