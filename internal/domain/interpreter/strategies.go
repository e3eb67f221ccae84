package interpreter

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/rehabchat/internal/domain/errs"
	"github.com/okian/rehabchat/internal/domain/model"
)

func (in *Interpreter) point(ctx context.Context, d model.Descriptor) (model.QueryResult, error) {
	const op = "interpreter.point"
	var f model.Filter
	switch {
	case d.Session != "":
		s, err := in.resolveSession(ctx, d, d.Session, d.Anchor)
		if err != nil {
			return model.QueryResult{}, err
		}
		d.Session = s
		f.Session = s
		f.Date = d.Date
	case d.Date != "":
		f.Date = d.Date
	case d.DateRange != nil && d.DateRange.Start == d.DateRange.End:
		d.Date, d.DateRange = d.DateRange.Start, nil
		f.Date = d.Date
	default:
		return model.QueryResult{}, errs.Newf(op, errs.ErrParse,
			"a point query needs a date or a session (e.g. 'on 10/3/22' or 'in session 2')")
	}

	rows, skipped, err := in.rows(ctx, d, f)
	if err != nil {
		return model.QueryResult{}, err
	}
	p := &model.PointResult{
		PatientID: d.PatientID,
		Metric:    d.Metric,
		Game:      d.Game,
		Date:      d.Date,
		Session:   d.Session,
		N:         len(rows),
		Rows:      rows,
		Skipped:   skipped,
	}
	if len(rows) == 1 {
		p.Value = rows[0].Value
		if p.Date == "" {
			p.Date = rows[0].Date
		}
	} else {
		p.Value = mean(rows)
	}
	return model.QueryResult{Descriptor: d, Point: p}, nil
}

func (in *Interpreter) timeseries(ctx context.Context, d model.Descriptor) (model.QueryResult, error) {
	const op = "interpreter.timeseries"
	if d.DateRange == nil && d.Date != "" {
		d.DateRange, d.Date = &model.DateRange{Start: d.Date, End: d.Date}, ""
	}
	if d.DateRange == nil {
		return model.QueryResult{}, errs.Newf(op, errs.ErrParse,
			"a timeseries query needs a date range (e.g. 'from 10/3/22 to 24/3/22')")
	}
	f := model.Filter{DateRange: d.DateRange}
	if d.Session != "" && !model.IsRelativeSession(d.Session) {
		f.Session = d.Session
	}

	rows, skipped, err := in.rows(ctx, d, f)
	if err != nil {
		return model.QueryResult{}, err
	}

	var buckets []model.Bucket
	var acc *accumulator
	for _, r := range rows {
		if acc == nil || acc.key != r.Date {
			if acc != nil {
				buckets = append(buckets, acc.bucket())
			}
			acc = &accumulator{key: r.Date}
		}
		acc.add(r.Value)
	}
	buckets = append(buckets, acc.bucket())

	first, last := buckets[0], buckets[len(buckets)-1]
	change := last.Mean - first.Mean
	ts := &model.TimeseriesResult{
		PatientID:         d.PatientID,
		Metric:            d.Metric,
		Game:              d.Game,
		Requested:         *d.DateRange,
		Points:            rows,
		PerDate:           buckets,
		FirstDate:         first.Key,
		LastDate:          last.Key,
		Change:            change,
		RelativeChangePct: relativePct(change, first.Mean),
		Trend:             model.DirectionOf(change),
		Classification:    Classify(means(buckets)),
		Skipped:           skipped,
	}
	if d.DateRange.Start != first.Key {
		ts.BaselineNote = fmt.Sprintf("No data on requested start date %s; using first available date %s as baseline.",
			d.DateRange.Start, first.Key)
	}
	return model.QueryResult{Descriptor: d, Timeseries: ts}, nil
}

func (in *Interpreter) compare(ctx context.Context, d model.Descriptor) (model.QueryResult, error) {
	const op = "interpreter.compare"
	a := d.Selector()
	if a.Empty() || d.CompareTo == nil || d.CompareTo.Empty() {
		return model.QueryResult{}, errs.Newf(op, errs.ErrParse,
			"a comparison needs two selections, e.g. 'session 2 vs session 5' or two dates")
	}
	b := *d.CompareTo

	var err error
	if a.Session, err = in.resolveSession(ctx, d, a.Session, d.Anchor); err != nil {
		return model.QueryResult{}, err
	}
	anchor := d.Anchor
	if a.Session != "" {
		anchor = a.Session
	}
	if b.Session, err = in.resolveSession(ctx, d, b.Session, anchor); err != nil {
		return model.QueryResult{}, err
	}
	d.Session = a.Session
	d.CompareTo = &b

	sideA, err := in.side(ctx, d, a)
	if err != nil {
		return model.QueryResult{}, err
	}
	sideB, err := in.side(ctx, d, b)
	if err != nil {
		return model.QueryResult{}, err
	}
	diff := sideA.Value - sideB.Value
	c := &model.CompareResult{
		PatientID:         d.PatientID,
		Metric:            d.Metric,
		Game:              d.Game,
		A:                 sideA,
		B:                 sideB,
		ValueA:            sideA.Value,
		ValueB:            sideB.Value,
		Difference:        diff,
		RelativeChangePct: relativePct(diff, sideB.Value),
	}
	return model.QueryResult{Descriptor: d, Compare: c}, nil
}

func (in *Interpreter) side(ctx context.Context, d model.Descriptor, s model.Selector) (model.CompareSide, error) {
	f := model.Filter{Session: s.Session, Date: s.Date, DateRange: s.DateRange}
	rows, skipped, err := in.rows(ctx, d, f)
	if err != nil {
		return model.CompareSide{}, err
	}
	return model.CompareSide{
		Label:    SelectorLabel(s),
		Selector: s,
		Value:    mean(rows),
		N:        len(rows),
		Rows:     rows,
		Skipped:  skipped,
	}, nil
}

// SelectorLabel renders a selector for people, e.g. "session_2" or
// "2022-03-10 to 2022-03-25".
func SelectorLabel(s model.Selector) string {
	switch {
	case s.Session != "" && s.Date != "":
		return s.Session + " on " + s.Date
	case s.Session != "":
		return s.Session
	case s.Date != "":
		return s.Date
	case s.DateRange != nil && s.DateRange.Start == s.DateRange.End:
		return s.DateRange.Start
	case s.DateRange != nil:
		return s.DateRange.Start + " to " + s.DateRange.End
	}
	return ""
}

type sessionGroup struct {
	acc      accumulator
	num      int
	numbered bool
	earliest string
}

func (in *Interpreter) sessionRange(ctx context.Context, d model.Descriptor) (model.QueryResult, error) {
	const op = "interpreter.sessionRange"
	var f model.Filter
	switch {
	case d.SessionRange != nil:
		f.SessionRange = d.SessionRange
	case d.DateRange != nil:
		f.DateRange = d.DateRange
	case d.Date != "":
		d.DateRange, d.Date = &model.DateRange{Start: d.Date, End: d.Date}, ""
		f.DateRange = d.DateRange
	default:
		return model.QueryResult{}, errs.Newf(op, errs.ErrParse,
			"a session range needs sessions or dates, e.g. 'from session 1 to session 7'")
	}

	rows, skipped, err := in.rows(ctx, d, f)
	if err != nil {
		return model.QueryResult{}, err
	}

	groups := make(map[string]*sessionGroup)
	var order []*sessionGroup
	var overall accumulator
	for _, r := range rows {
		overall.add(r.Value)
		g, ok := groups[r.Session]
		if !ok {
			g = &sessionGroup{acc: accumulator{key: r.Session}, earliest: r.Date}
			g.num, g.numbered = model.SessionNumber(r.Session)
			groups[r.Session] = g
			order = append(order, g)
		}
		if r.Date != "" && (g.earliest == "" || r.Date < g.earliest) {
			g.earliest = r.Date
		}
		g.acc.add(r.Value)
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.numbered && b.numbered && a.num != b.num {
			return a.num < b.num
		}
		if a.numbered != b.numbered {
			return a.numbered
		}
		if a.earliest != b.earliest {
			if a.earliest == "" || b.earliest == "" {
				return b.earliest == ""
			}
			return a.earliest < b.earliest
		}
		return a.acc.key < b.acc.key
	})
	buckets := make([]model.Bucket, len(order))
	for i, g := range order {
		buckets[i] = g.acc.bucket()
	}

	first, last := buckets[0], buckets[len(buckets)-1]
	change := last.Mean - first.Mean
	total := overall.bucket()
	sr := &model.SessionRangeResult{
		PatientID:         d.PatientID,
		Metric:            d.Metric,
		Game:              d.Game,
		SessionRange:      d.SessionRange,
		DateRange:         d.DateRange,
		PerSession:        buckets,
		Count:             total.N,
		Min:               total.Min,
		Max:               total.Max,
		Mean:              total.Mean,
		FirstSession:      first.Key,
		LastSession:       last.Key,
		Change:            change,
		RelativeChangePct: relativePct(change, first.Mean),
		Trend:             model.DirectionOf(change),
		Classification:    Classify(means(buckets)),
		Skipped:           skipped,
	}
	switch {
	case d.SessionRange != nil && d.SessionRange.Start != first.Key:
		sr.BaselineNote = fmt.Sprintf("No data on requested start session %s; using first available session %s as baseline.",
			d.SessionRange.Start, first.Key)
	case d.DateRange != nil && order[0].earliest != "" && order[0].earliest != d.DateRange.Start:
		sr.BaselineNote = fmt.Sprintf("No data on requested start date %s; using first available date %s as baseline.",
			d.DateRange.Start, order[0].earliest)
	}
	return model.QueryResult{Descriptor: d, SessionRange: sr}, nil
}
