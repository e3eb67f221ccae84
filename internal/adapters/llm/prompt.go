package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/okian/rehabchat/internal/domain/model"
)

const systemPromptTemplate = `You are a strict query generator for a rehabilitation metrics CSV.
You MUST output ONLY ONE valid JSON object and NOTHING ELSE.

Rules:
- Do NOT answer the question and do NOT include any numbers from the dataset.
- Keys allowed: query_type, patient_id, metric, game, date, date_range, session, session_range, compare_to.
- query_type must be one of: point, timeseries, compare, session_range.
  - point: one value on a date or in a session.
  - timeseries: values over a date range ("from 10/3/22 to 24/3/22", "since 1/3/22").
  - compare: two selections ("session 2 vs session 5", "10/3/22 compared to 24/3/22"); put the second one in compare_to.
  - session_range: several sessions ("from session 1 to session 7").
- metric must be EXACTLY one of: %s
- If the user uses an alias, map it to a valid metric name. Examples:
  - "smoothness" or "sparc" -> "average_sparc"
  - "range of motion" or "rom" -> "area"
  - "efficiency" -> "avg_efficiency"
  - "force" or "strength" -> "avg_f_patient"
  - "session duration" or "how long" -> "timestampms"
- patient_id must be the exact digits (e.g. "46") if mentioned.
- game must be written like "game0" and only if the question names it. Do NOT guess the game.
- session must be written like "session_2" and only if the question names it. Do NOT guess the session.
- For relative sessions use "first", "latest", "previous" or "next" as the session value.
- Dates go in date (one day) or date_range {"start": ..., "end": ...}. Copy them as written; day comes first (D/M/Y).
- session_range is {"start": "session_1", "end": "session_7"}.
- compare_to is an object with one of date, date_range or session.
- If the question mentions MORE THAN ONE game, set game to "__MULTI__".
- If something is not mentioned, leave the key out or use "__MISSING__".`

// SystemPrompt returns the instructions for a parser that may only pick from metrics.
func SystemPrompt(metrics []string) string {
	quoted := make([]string, len(metrics))
	for i, m := range metrics {
		quoted[i] = fmt.Sprintf("%q", m)
	}
	return fmt.Sprintf(systemPromptTemplate, "["+strings.Join(quoted, ", ")+"]")
}

// UserPrompt wraps the question with the previous turn's context so the
// model can read references like "same patient".
func UserPrompt(question string, c model.Context) string {
	if c.IsZero() {
		return question
	}
	b, err := json.Marshal(c)
	if err != nil {
		return question
	}
	return "Previous turn context (use only when the question refers back to it): " + string(b) +
		"\n\nQuestion: " + question
}
