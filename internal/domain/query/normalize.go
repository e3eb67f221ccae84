package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/okian/rehabchat/internal/domain/errs"
	"github.com/okian/rehabchat/internal/domain/model"
)

var (
	gameValueRe    = regexp.MustCompile(`^game(\d+)$`)
	patientValueRe = regexp.MustCompile(`^(\d+)(?:_[MFmf])?$`)
)

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithMetrics sets the answerable metric columns.
func WithMetrics(metrics []string) Option {
	return func(n *Normalizer) {
		if len(metrics) > 0 {
			n.metrics = append([]string(nil), metrics...)
		}
	}
}

// WithClock sets the source of "today" for open-ended ranges.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// Normalizer canonicalizes decoded descriptors. It is safe for concurrent use.
type Normalizer struct {
	metrics []string
	now     func() time.Time
}

// NewNormalizer creates a Normalizer over DefaultMetrics unless configured otherwise.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		metrics: append([]string(nil), DefaultMetrics...),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Metrics returns the answerable metric columns.
func (n *Normalizer) Metrics() []string {
	return append([]string(nil), n.metrics...)
}

// CheckQuestion rejects questions that explicitly name a column that is not
// an answerable metric, before any parser sees them.
func (n *Normalizer) CheckQuestion(question string) error {
	if tok, bad := DisallowedToken(question, n.metrics); bad {
		return errs.Newf("query.CheckQuestion", errs.ErrParse,
			"metric '%s' is not available; choose one of %s", tok, strings.Join(n.metrics, ", "))
	}
	return nil
}

// Normalize canonicalizes d and lets the question text override what the
// parser inferred: patient, metric, sessions and dates named in the text
// win. Required fields are not checked here; the interpreter does that
// once the conversation context has been applied.
func (n *Normalizer) Normalize(d model.Descriptor, question string) (model.Descriptor, error) {
	const op = "query.Normalize"
	out := d.Clone()

	if err := n.patient(&out, question); err != nil {
		return d, errs.WrapKind(op, errs.ErrParse, err)
	}
	if err := n.metric(&out, question); err != nil {
		return d, errs.WrapKind(op, errs.ErrParse, err)
	}
	if err := n.game(&out, question); err != nil {
		return d, errs.WrapKind(op, errs.ErrParse, err)
	}
	if err := n.sessions(&out, question); err != nil {
		return d, errs.WrapKind(op, errs.ErrParse, err)
	}
	if err := n.dates(&out, question); err != nil {
		return d, errs.WrapKind(op, errs.ErrParse, err)
	}
	return out, nil
}

func (n *Normalizer) patient(d *model.Descriptor, question string) error {
	if p, ok := PatientInText(question); ok {
		d.PatientID = p
		return nil
	}
	if d.PatientID == "" {
		return nil
	}
	m := patientValueRe.FindStringSubmatch(strings.TrimSpace(d.PatientID))
	if m == nil {
		return fmt.Errorf("patient_id '%s' is not a patient number", d.PatientID)
	}
	d.PatientID = m[1]
	return nil
}

func (n *Normalizer) metric(d *model.Descriptor, question string) error {
	if d.Metric != "" && !allowedMetric(d.Metric, n.metrics) {
		if m, ok := MetricInText(question, n.metrics); ok {
			d.Metric = m
		} else {
			d.Metric = CanonicalMetric(d.Metric, n.metrics)
		}
	}
	if d.Metric == "" {
		if m, ok := MetricInText(question, n.metrics); ok {
			d.Metric = m
		} else if IsDurationQuestion(question) {
			d.Metric = "timestampms"
		}
	}
	if d.Metric != "" && !allowedMetric(d.Metric, n.metrics) {
		return fmt.Errorf("metric '%s' not allowed; choose one of %s", d.Metric, strings.Join(n.metrics, ", "))
	}
	return nil
}

func (n *Normalizer) game(d *model.Descriptor, question string) error {
	games := GamesInText(question)
	switch {
	case len(games) > 1 && !sameStrings(games):
		return fmt.Errorf("multiple games mentioned, please specify only one game")
	case len(games) >= 1:
		d.Game = games[0]
		return nil
	case d.Game == "":
		return nil
	}
	g := strings.ToLower(strings.Join(strings.Fields(d.Game), ""))
	g = strings.ReplaceAll(g, "_", "")
	m := gameValueRe.FindStringSubmatch(g)
	if m == nil {
		return fmt.Errorf("game '%s' not allowed; games look like game0, game1", d.Game)
	}
	num, _ := strconv.Atoi(m[1])
	d.Game = "game" + strconv.Itoa(num)
	return nil
}

func (n *Normalizer) sessions(d *model.Descriptor, question string) error {
	named := SessionsInText(question)
	rel, hasRel := RelativeSessionInText(question)

	switch {
	case d.QueryType == model.QuerySessionRange && len(named) >= 2:
		d.SessionRange = &model.SessionRange{Start: named[0], End: named[1]}
		d.Session = ""
	case d.QueryType == model.QueryCompare && len(named) >= 2:
		d.Session = named[0]
		d.CompareTo = &model.Selector{Session: named[1]}
		d.Date, d.DateRange = "", nil
	case d.QueryType == model.QueryCompare && hasRel && len(named) == 1:
		d.Session = named[0]
		d.CompareTo = &model.Selector{Session: rel}
		d.Date, d.DateRange = "", nil
	case d.QueryType == model.QueryCompare && hasRel && (d.CompareTo == nil || d.CompareTo.Empty()):
		d.CompareTo = &model.Selector{Session: rel}
	case hasRel && len(named) == 0 && d.QueryType != model.QueryCompare:
		d.Session = rel
	}

	var err error
	if d.Session, err = normalizeSession(d.Session, "session"); err != nil {
		return err
	}
	if d.CompareTo != nil {
		if d.CompareTo.Session, err = normalizeSession(d.CompareTo.Session, "compare_to.session"); err != nil {
			return err
		}
	}
	if d.SessionRange != nil {
		r := d.SessionRange
		if r.Start, err = normalizeSession(r.Start, "session_range.start"); err != nil {
			return err
		}
		if r.End, err = normalizeSession(r.End, "session_range.end"); err != nil {
			return err
		}
		if model.IsRelativeSession(r.Start) || model.IsRelativeSession(r.End) {
			return fmt.Errorf("session_range needs session numbers, e.g. session 1 to session 7")
		}
		if r.Start == "" || r.End == "" {
			return fmt.Errorf("session_range needs both a start and an end session")
		}
		a, _ := model.SessionNumber(r.Start)
		b, _ := model.SessionNumber(r.End)
		if a > b {
			r.Start, r.End = r.End, r.Start
		}
	}
	return nil
}

func normalizeSession(s, field string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	low := strings.ToLower(strings.Trim(s, "_"))
	if model.IsRelativeSession(low) {
		return low, nil
	}
	if num, err := strconv.Atoi(low); err == nil && num >= 0 {
		return model.SessionLabel(num), nil
	}
	if len(sessionTextRe.FindAllString(s, -1)) > 1 {
		return "", multiErr("session")
	}
	norm, ok := model.NormalizeSession(s)
	if !ok {
		return "", fmt.Errorf("%s '%s' not allowed; sessions look like session_1", field, s)
	}
	return norm, nil
}

func (n *Normalizer) dates(d *model.Descriptor, question string) error {
	found := DatesInText(question)
	parsed := make([]string, 0, len(found))
	for _, s := range found {
		iso, err := ParseDate(s)
		if err != nil {
			return err
		}
		parsed = append(parsed, iso)
	}
	today := n.now().Format(ISODate)

	switch d.QueryType {
	case model.QueryCompare:
		switch {
		case len(parsed) >= 4:
			d.Date, d.Session = "", ""
			d.DateRange = &model.DateRange{Start: parsed[0], End: parsed[1]}
			d.CompareTo = &model.Selector{DateRange: &model.DateRange{Start: parsed[2], End: parsed[3]}}
		case len(parsed) >= 2:
			d.DateRange, d.Session = nil, ""
			d.Date = parsed[0]
			d.CompareTo = &model.Selector{Date: parsed[1]}
		}
	default:
		switch {
		case len(parsed) >= 2:
			d.Date = ""
			d.DateRange = &model.DateRange{Start: parsed[0], End: parsed[1]}
		case len(parsed) == 1 && OpenEnded(question):
			d.Date = ""
			d.DateRange = &model.DateRange{Start: parsed[0], End: today}
		case len(parsed) == 1 && d.DateRange == nil:
			d.Date = parsed[0]
		}
		if d.QueryType == model.QueryPoint && d.DateRange != nil && d.Date == "" {
			if d.DateRange.Start == d.DateRange.End {
				d.Date, d.DateRange = d.DateRange.Start, nil
			} else {
				d.QueryType = model.QueryTimeseries
			}
		}
		if len(parsed) > 0 && d.QueryType != model.QuerySessionRange && len(SessionsInText(question)) == 0 &&
			!model.IsRelativeSession(d.Session) {
			d.Session = ""
		}
	}

	var err error
	if d.Date, err = normalizeDate(d.Date); err != nil {
		return err
	}
	if err := normalizeRange(d.DateRange, today); err != nil {
		return err
	}
	if d.CompareTo != nil {
		if d.CompareTo.Date, err = normalizeDate(d.CompareTo.Date); err != nil {
			return err
		}
		if err := normalizeRange(d.CompareTo.DateRange, today); err != nil {
			return err
		}
	}
	return nil
}

func normalizeDate(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	return ParseDate(s)
}

// normalizeRange fills an open end with today and rejects inverted ranges.
func normalizeRange(r *model.DateRange, today string) error {
	if r == nil {
		return nil
	}
	var err error
	if r.Start, err = normalizeDate(r.Start); err != nil {
		return err
	}
	if r.End, err = normalizeDate(r.End); err != nil {
		return err
	}
	if r.Start == "" {
		return fmt.Errorf("date_range needs a start date")
	}
	if r.End == "" {
		r.End = today
	}
	if r.Start > r.End {
		return fmt.Errorf("start date %s is after end date %s; dates are read day first (D/M/Y), check D/M/Y vs M/D/Y", r.Start, r.End)
	}
	return nil
}

func sameStrings(ss []string) bool {
	for _, s := range ss[1:] {
		if s != ss[0] {
			return false
		}
	}
	return true
}
