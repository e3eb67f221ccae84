// Package interpreter evaluates validated query descriptors against the
// metrics table. It only ever reads rows that match the descriptor's
// explicit fields.
package interpreter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/rehabchat/internal/domain/errs"
	"github.com/okian/rehabchat/internal/domain/model"
	"github.com/okian/rehabchat/pkg/logger"
	"github.com/okian/rehabchat/pkg/metrics"
)

// Table is the read access the interpreter needs.
type Table interface {
	Query(ctx context.Context, f model.Filter) []model.Observation
	Sessions(ctx context.Context, patientID, game string) []string
	HasMetric(metric string) bool
}

// Option applies a configuration option to the Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(in *Interpreter) {
		if l != nil {
			in.logger = l
		}
	}
}

// Interpreter dispatches descriptors to the point, timeseries, compare and
// session_range strategies.
type Interpreter struct {
	table  Table
	logger logger.Logger
}

// New creates an Interpreter over table.
func New(table Table, opts ...Option) *Interpreter {
	in := &Interpreter{table: table, logger: logger.Nop()}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Interpret validates d and computes its answer. Every failure carries one
// of errs.ErrParse, errs.ErrNoData or errs.ErrUnsupportedQuery.
func (in *Interpreter) Interpret(ctx context.Context, d model.Descriptor) (res model.QueryResult, err error) {
	start := time.Now()
	defer func() {
		qt := string(d.QueryType)
		if !d.QueryType.Known() {
			qt = "unknown"
		}
		outcome := "ok"
		if err != nil {
			outcome = errs.KindName(err)
		}
		metrics.RecordQuery(qt, outcome)
		metrics.RecordInterpretLatency(qt, float64(time.Since(start).Microseconds())/1000)
		in.logger.Debug(ctx, "interpreted descriptor",
			logger.String("query_type", qt),
			logger.String("outcome", outcome),
			logger.Duration("took", time.Since(start)))
	}()

	if err := in.validate(d); err != nil {
		return res, err
	}

	d = d.Clone()
	switch d.QueryType {
	case model.QueryPoint:
		return in.point(ctx, d)
	case model.QueryTimeseries:
		return in.timeseries(ctx, d)
	case model.QueryCompare:
		return in.compare(ctx, d)
	case model.QuerySessionRange:
		return in.sessionRange(ctx, d)
	}
	return res, errs.Newf("interpreter.Interpret", errs.ErrUnsupportedQuery,
		"query_type '%s' is not supported; use one of point, timeseries, compare, session_range", d.QueryType)
}

func (in *Interpreter) validate(d model.Descriptor) error {
	const op = "interpreter.validate"
	if d.QueryType == "" {
		return errs.Newf(op, errs.ErrParse, "query_type is missing; use one of point, timeseries, compare, session_range")
	}
	if !d.QueryType.Known() {
		return errs.Newf(op, errs.ErrUnsupportedQuery,
			"query_type '%s' is not supported; use one of point, timeseries, compare, session_range", d.QueryType)
	}
	var missing []string
	if d.PatientID == "" {
		missing = append(missing, "patient_id")
	}
	if d.Metric == "" {
		missing = append(missing, "metric")
	}
	if len(missing) > 0 {
		return errs.Newf(op, errs.ErrParse, "missing required info: %s", strings.Join(missing, ", "))
	}
	if d.Game == "" {
		return errs.Newf(op, errs.ErrParse,
			"please specify a game (e.g. 'game0'); the same session or date can exist in several games")
	}
	if !in.table.HasMetric(d.Metric) {
		return errs.Newf(op, errs.ErrParse, "metric column '%s' not found in the data", d.Metric)
	}
	return nil
}

// resolveSession turns a relative reference into a concrete session of the
// patient in the game. anchor is the session "previous" and "next" are
// relative to.
func (in *Interpreter) resolveSession(ctx context.Context, d model.Descriptor, ref, anchor string) (string, error) {
	const op = "interpreter.resolveSession"
	if !model.IsRelativeSession(ref) {
		return ref, nil
	}
	sessions := in.table.Sessions(ctx, d.PatientID, d.Game)
	if len(sessions) == 0 {
		return "", errs.Newf(op, errs.ErrNoData, "no sessions found for patient %s in %s", d.PatientID, d.Game)
	}
	switch ref {
	case model.SessionFirst:
		return sessions[0], nil
	case model.SessionLatest:
		return sessions[len(sessions)-1], nil
	}

	if anchor == "" || model.IsRelativeSession(anchor) {
		return "", errs.Newf(op, errs.ErrParse, "no base session to find the %s session from; name a session, e.g. 'session 3'", ref)
	}
	base, ok := model.SessionNumber(anchor)
	if !ok {
		return "", errs.Newf(op, errs.ErrParse, "could not read a session number from '%s'", anchor)
	}
	if ref == model.SessionPrevious {
		for i := len(sessions) - 1; i >= 0; i-- {
			if n, _ := model.SessionNumber(sessions[i]); n < base {
				return sessions[i], nil
			}
		}
		return "", errs.Newf(op, errs.ErrNoData, "no previous session found before %s", anchor)
	}
	for _, s := range sessions {
		if n, _ := model.SessionNumber(s); n > base {
			return s, nil
		}
	}
	return "", errs.Newf(op, errs.ErrNoData, "no next session found after %s", anchor)
}

// rows fetches the matching rows and splits valid values from invalid ones.
func (in *Interpreter) rows(ctx context.Context, d model.Descriptor, f model.Filter) ([]model.Row, int, error) {
	f.PatientID, f.Game = d.PatientID, d.Game
	obs := in.table.Query(ctx, f)
	if len(obs) == 0 {
		return nil, 0, errs.Newf("interpreter.rows", errs.ErrNoData,
			"no matching rows found for patient %s, %s, %s", d.PatientID, d.Game, describeFilter(f))
	}
	out := make([]model.Row, 0, len(obs))
	skipped := 0
	for _, o := range obs {
		v, ok := o.Value(d.Metric)
		if !ok {
			skipped++
			continue
		}
		out = append(out, model.Row{Date: o.Date, Session: o.Session, Game: o.Game, Value: v})
	}
	if len(out) == 0 {
		return nil, skipped, errs.Newf("interpreter.rows", errs.ErrNoData,
			"no valid numeric values (missing/inf/invalid) found for this metric")
	}
	return out, skipped, nil
}

func describeFilter(f model.Filter) string {
	switch {
	case f.Session != "":
		return f.Session
	case f.Date != "":
		return "on " + f.Date
	case f.DateRange != nil:
		return fmt.Sprintf("between %s and %s", f.DateRange.Start, f.DateRange.End)
	case f.SessionRange != nil:
		return fmt.Sprintf("from %s to %s", f.SessionRange.Start, f.SessionRange.End)
	}
	return "any date"
}
