package narration

import "github.com/okian/rehabchat/internal/domain/model"

// DurationMetric is rendered as a duration instead of a number.
const DurationMetric = "timestampms"

var displayNames = map[string]string{
	"average_sparc":  "smoothness (SPARC)",
	"avg_efficiency": "efficiency",
	"avg_f_patient":  "total force",
	"area":           "range of motion (area)",
	"timestampms":    "session duration",
}

var labels = map[string]string{
	"average_sparc":  "movement smoothness",
	"area":           "range of motion",
	"avg_efficiency": "movement efficiency",
	"avg_f_patient":  "applied force",
	"timestampms":    "session duration",
}

var explanations = map[string]string{
	"average_sparc": "SPARC measures movement smoothness. Values closer to 0 usually indicate smoother, " +
		"more coordinated movement. More negative values suggest jerkier movement.",
	"area": "Area is used here as a proxy for range of motion during the task. Higher values " +
		"generally suggest a larger range of motion.",
	"avg_efficiency": "Efficiency reflects how effectively the patient completes the movement. Higher values " +
		"generally suggest more efficient, accurate movement.",
	"avg_f_patient": "Patient-applied force reflects how much force the patient is applying during the task. " +
		"Higher values generally suggest greater force output.",
	"timestampms": "Session duration is the length of the recorded session in milliseconds. " +
		"It is reported as hours, minutes and seconds.",
}

// interpretations holds the up, down and unchanged phrases per metric.
var interpretations = map[string][3]string{
	"average_sparc": {
		"smoother, more continuous, better-coordinated movement",
		"less smooth, jerkier, more interrupted movement",
		"similar movement smoothness over this period",
	},
	"avg_f_patient": {
		"increased strength output",
		"reduced strength output",
		"similar strength over this period",
	},
	"avg_efficiency": {
		"improved hand-eye coordination accuracy",
		"reduced hand-eye coordination accuracy",
		"similar hand-eye coordination over this period",
	},
	"area": {
		"increased range of motion",
		"reduced range of motion",
		"similar range of motion over this period",
	},
	"timestampms": {
		"longer session duration",
		"shorter session duration",
		"similar session duration over this period",
	},
}

// DisplayName returns the name used in point answers, e.g. "smoothness (SPARC)".
func DisplayName(metric string) string {
	if n, ok := displayNames[metric]; ok {
		return n
	}
	return metric
}

// Label returns the name used in change answers, e.g. "movement smoothness".
func Label(metric string) string {
	if l, ok := labels[metric]; ok {
		return l
	}
	return metric
}

// Interpretation returns a short clinical reading of a change in metric, or
// "" for metrics without one.
func Interpretation(metric string, change float64) string {
	p, ok := interpretations[metric]
	if !ok {
		return ""
	}
	switch {
	case change > 0:
		return p[0]
	case change < 0:
		return p[1]
	}
	return p[2]
}

// Define returns the explanation of metric.
func Define(metric string) (model.Definition, bool) {
	e, ok := explanations[metric]
	if !ok {
		return model.Definition{}, false
	}
	return model.Definition{Metric: metric, DisplayName: DisplayName(metric), Explanation: e}, true
}

// Definition renders a definition as an answer.
func Definition(d model.Definition) string {
	return d.DisplayName + ": " + d.Explanation
}
