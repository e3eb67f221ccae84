package query

import (
	"regexp"
	"strings"
)

// DefaultMetrics are the metric columns answerable by default.
var DefaultMetrics = []string{
	"area",
	"average_sparc",
	"avg_efficiency",
	"avg_f_patient",
	"timestampms",
}

type alias struct {
	phrase string // normalized: lower case, single spaces, no '_' or '-'
	metric string
}

// Ordered so multi-word phrases win over their single-word parts.
var metricAliases = []alias{
	{"range of motion", "area"},
	{"session duration", "timestampms"},
	{"mean deviation", "avg_mean_dev"},
	{"max deviation", "avg_max_dev"},
	{"path ratio", "avg_path_ratio"},
	{"avg f patient", "avg_f_patient"},
	{"f patient", "avg_f_patient"},
	{"rangeofmotion", "area"},
	{"pathratio", "avg_path_ratio"},
	{"rom", "area"},
	{"area", "area"},
	{"sparc", "average_sparc"},
	{"smoothness", "average_sparc"},
	{"efficiency", "avg_efficiency"},
	{"efficient", "avg_efficiency"},
	{"force", "avg_f_patient"},
	{"strength", "avg_f_patient"},
	{"duration", "timestampms"},
	{"timestamp", "timestampms"},
}

var (
	aliasSplitRe = regexp.MustCompile(`[_-]+`)
	spaceRe      = regexp.MustCompile(`\s+`)
	snakeTokenRe = regexp.MustCompile(`\b[a-zA-Z]+_[a-zA-Z0-9_]+\b`)
	sessionTokRe = regexp.MustCompile(`^session_\d+$`)
	gameTokRe    = regexp.MustCompile(`^game\d+$`)
)

func normalizeAliasText(s string) string {
	s = aliasSplitRe.ReplaceAllString(strings.ToLower(s), " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func containsWord(text, word string) bool {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`).MatchString(text)
}

// MetricInText returns the metric the question names explicitly, either as
// an exact column name from metrics or through a known alias.
func MetricInText(question string, metrics []string) (string, bool) {
	q := strings.ToLower(question)
	for _, m := range metrics {
		if containsWord(q, strings.ToLower(m)) {
			return m, true
		}
	}
	norm := normalizeAliasText(question)
	for _, a := range metricAliases {
		if strings.Contains(a.phrase, " ") {
			if strings.Contains(norm, a.phrase) {
				return a.metric, true
			}
			continue
		}
		if containsWord(norm, a.phrase) {
			return a.metric, true
		}
	}
	return "", false
}

// CanonicalMetric maps an alias such as "rom" or "range_of_motion" to its
// column name. Names that are already columns, and unknown names, are
// returned unchanged.
func CanonicalMetric(metric string, metrics []string) string {
	for _, m := range metrics {
		if strings.EqualFold(metric, m) {
			return m
		}
	}
	norm := normalizeAliasText(metric)
	for _, a := range metricAliases {
		if a.phrase == norm {
			return a.metric
		}
	}
	return metric
}

// DisallowedToken finds an explicit snake_case token in the question that
// looks like a column name but is not an answerable metric.
func DisallowedToken(question string, metrics []string) (string, bool) {
	allowed := make(map[string]struct{}, len(metrics))
	for _, m := range metrics {
		allowed[strings.ToLower(m)] = struct{}{}
	}
	for _, tok := range snakeTokenRe.FindAllString(question, -1) {
		t := strings.ToLower(tok)
		if sessionTokRe.MatchString(t) || gameTokRe.MatchString(t) {
			continue
		}
		if _, ok := allowed[t]; ok {
			continue
		}
		// "range_of_motion" and friends are aliases, not foreign columns.
		if c := CanonicalMetric(t, metrics); c != t {
			if _, ok := allowed[c]; ok {
				continue
			}
		}
		return tok, true
	}
	return "", false
}

func allowedMetric(metric string, metrics []string) bool {
	for _, m := range metrics {
		if m == metric {
			return true
		}
	}
	return false
}
