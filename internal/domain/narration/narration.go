// Package narration turns computed results into short plain-language
// answers. Every function is deterministic: the same result always yields
// the same text.
package narration

import (
	"fmt"
	"strings"

	"github.com/okian/rehabchat/internal/domain/model"
)

// Narrate renders whichever payload res carries.
func Narrate(res model.QueryResult) string {
	switch {
	case res.Point != nil:
		return Point(res.Point)
	case res.Timeseries != nil:
		return Timeseries(res.Timeseries)
	case res.Compare != nil:
		return Compare(res.Compare)
	case res.SessionRange != nil:
		return SessionRange(res.SessionRange)
	}
	return ""
}

// Point narrates a single lookup.
func Point(p *model.PointResult) string {
	var b strings.Builder
	name := DisplayName(p.Metric)
	if p.Metric == DurationMetric {
		fmt.Fprintf(&b, "For patient %s, the %s is %s", p.PatientID, name, Value(p.Metric, p.Value))
	} else {
		fmt.Fprintf(&b, "For patient %s, the %s value is %s", p.PatientID, name, Value(p.Metric, p.Value))
	}
	switch {
	case p.Session != "" && p.Date != "":
		fmt.Fprintf(&b, " in %s, %s on %s", p.Game, p.Session, p.Date)
	case p.Session != "":
		fmt.Fprintf(&b, " in %s, %s", p.Game, p.Session)
	case p.Date != "":
		fmt.Fprintf(&b, " in %s on %s", p.Game, p.Date)
	default:
		b.WriteString(" for the record I found")
	}
	if p.N > 1 {
		fmt.Fprintf(&b, " (mean of %d records)", p.N)
	}
	b.WriteString(".")
	skippedNote(&b, p.Skipped)
	return b.String()
}

// Timeseries narrates a change between the first and last available dates.
func Timeseries(ts *model.TimeseriesResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I found patient records from %s to %s. ", ts.FirstDate, ts.LastDate)
	change(&b, "Over this period", ts.Metric, ts.Change, ts.RelativeChangePct)
	if ts.BaselineNote != "" {
		b.WriteString(" " + ts.BaselineNote)
	}
	interpretation(&b, ts.Metric, ts.Change, ts.RelativeChangePct)
	trend(&b, ts.Classification, ts.Change, "date")
	skippedNote(&b, ts.Skipped)
	return b.String()
}

// SessionRange narrates a change between the first and last available sessions.
func SessionRange(sr *model.SessionRangeResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I found patient records from %s to %s. ", sr.FirstSession, sr.LastSession)
	change(&b, "Over this session range", sr.Metric, sr.Change, sr.RelativeChangePct)
	if sr.BaselineNote != "" {
		b.WriteString(" " + sr.BaselineNote)
	}
	interpretation(&b, sr.Metric, sr.Change, sr.RelativeChangePct)
	trend(&b, sr.Classification, sr.Change, "session")
	if sr.Count > 1 {
		fmt.Fprintf(&b, " Across %d records the values ranged from %s to %s (mean %s).",
			sr.Count, amount(sr.Metric, sr.Min), amount(sr.Metric, sr.Max), amount(sr.Metric, sr.Mean))
	}
	skippedNote(&b, sr.Skipped)
	return b.String()
}

// Compare narrates side A against side B.
func Compare(c *model.CompareResult) string {
	var b strings.Builder
	label := Label(c.Metric)
	fmt.Fprintf(&b, "For patient %s in %s, the average %s was %s for %s and %s for %s.",
		c.PatientID, c.Game, label,
		amount(c.Metric, c.ValueA), c.A.Label,
		amount(c.Metric, c.ValueB), c.B.Label)
	fmt.Fprintf(&b, " The difference (%s - %s) is %s.", c.A.Label, c.B.Label, amount(c.Metric, c.Difference))
	if c.RelativeChangePct != nil {
		fmt.Fprintf(&b, " This corresponds to a %.2f%% change relative to %s.", abs(*c.RelativeChangePct), c.B.Label)
	}
	if interp := Interpretation(c.Metric, c.Difference); interp != "" {
		fmt.Fprintf(&b, " Compared with %s, this %s %s.", c.B.Label, Hedge(c.RelativeChangePct), interp)
	}
	skippedNote(&b, c.A.Skipped+c.B.Skipped)
	return b.String()
}

// Fallback relays a code-execution answer with its warnings.
func Fallback(r model.FallbackResult) string {
	answer := strings.TrimSpace(r.Answer)
	if answer == "" {
		answer = "The analysis finished without a written answer."
	}
	if len(r.Warnings) > 0 {
		answer += " Warnings: " + strings.Join(r.Warnings, "; ") + "."
	}
	return answer
}

func change(b *strings.Builder, span, metric string, delta float64, pct *float64) {
	label := Label(metric)
	if delta == 0 {
		fmt.Fprintf(b, "%s, the average %s remained stable", span, label)
	} else {
		fmt.Fprintf(b, "%s, the average %s %s by %s", span, label, verb(delta), amount(metric, abs(delta)))
	}
	if pct != nil {
		fmt.Fprintf(b, ", which corresponds to a %.2f%% change from the baseline.", abs(*pct))
		return
	}
	b.WriteString(".")
}

func interpretation(b *strings.Builder, metric string, delta float64, pct *float64) {
	if interp := Interpretation(metric, delta); interp != "" {
		fmt.Fprintf(b, " This change %s %s.", Hedge(pct), interp)
	}
}

func trend(b *strings.Builder, c *model.TrendClass, delta float64, unit string) {
	if c == nil {
		return
	}
	if c.Label != "variable" {
		b.WriteString(" " + capitalize(c.Reason) + ".")
		return
	}
	b.WriteString(" Overall, the trend shows fluctuations with rises and drops between sessions")
	switch {
	case delta > 0:
		fmt.Fprintf(b, ", but it increased overall from the first to the last %s.", unit)
	case delta < 0:
		fmt.Fprintf(b, ", but it decreased overall from the first to the last %s.", unit)
	default:
		b.WriteString(", ending near the starting level.")
	}
}

func skippedNote(b *strings.Builder, n int) {
	switch {
	case n == 1:
		b.WriteString(" 1 record with a missing or invalid value was skipped.")
	case n > 1:
		fmt.Fprintf(b, " %d records with missing or invalid values were skipped.", n)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
