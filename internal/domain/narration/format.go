package narration

import (
	"fmt"
	"math"
)

// Hedge picks how strongly to word an interpretation from the size of the
// relative change. Unknown or zero changes get the neutral phrase.
func Hedge(pct *float64) string {
	if pct == nil {
		return "is consistent with"
	}
	switch m := math.Abs(*pct); {
	case m == 0:
		return "is consistent with"
	case m < 5:
		return "may indicate"
	case m < 15:
		return "is consistent with"
	}
	return "suggests"
}

// Duration renders milliseconds as "1h 2m 3s", "2m 3s" or "3s".
func Duration(ms float64) string {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return "unknown duration"
	}
	total := int64(math.Round(math.Abs(ms) / 1000))
	h, m, s := total/3600, total/60%60, total%60
	sign := ""
	if ms < 0 {
		sign = "-"
	}
	switch {
	case h > 0:
		return fmt.Sprintf("%s%dh %dm %ds", sign, h, m, s)
	case m > 0:
		return fmt.Sprintf("%s%dm %ds", sign, m, s)
	}
	return fmt.Sprintf("%s%ds", sign, s)
}

// Value renders a point value: six decimals, or a duration.
func Value(metric string, v float64) string {
	if metric == DurationMetric {
		return Duration(v)
	}
	return fmt.Sprintf("%.6f", v)
}

// amount renders a change or a compared value: four decimals, or a duration.
func amount(metric string, v float64) string {
	if metric == DurationMetric {
		return Duration(v)
	}
	return fmt.Sprintf("%.4f", v)
}

func verb(change float64) string {
	switch {
	case change > 0:
		return "increased"
	case change < 0:
		return "decreased"
	}
	return "remained stable"
}
