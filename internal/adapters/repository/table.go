package repository

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/okian/rehabchat/internal/domain/model"
	"github.com/okian/rehabchat/internal/domain/query"
	"github.com/okian/rehabchat/pkg/logger"
	"github.com/okian/rehabchat/pkg/metrics"
)

var patientTagRe = regexp.MustCompile(`^(\d+)_([MFmf])$`)

// Table is an immutable, in-memory Store built from CSV. All methods are
// safe for concurrent use because nothing is written after construction.
type Table struct {
	name    string
	allowed []string
	logger  logger.Logger

	rows      []model.Observation
	byPatient map[string][]int
	metrics   []string
	dataset   model.Dataset
	stats     Stats
}

var _ Store = (*Table)(nil)

// LoadCSV reads the file at path and builds a Table from it.
func LoadCSV(ctx context.Context, path string, opts ...Option) (*Table, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	opts = append([]Option{WithName(filepath.Base(path))}, opts...)
	return NewTable(ctx, content, opts...)
}

// NewTable parses CSV content into a Table. The header must name a patient
// column (patient or patient_id), date and game; session and gender are
// optional. Every other column listed in the allowed metrics becomes a
// metric column.
func NewTable(ctx context.Context, content []byte, opts ...Option) (*Table, error) {
	t := &Table{
		name:      "metrics.csv",
		allowed:   append([]string(nil), query.DefaultMetrics...),
		logger:    logger.Nop(),
		byPatient: make(map[string][]int),
	}
	for _, opt := range opts {
		opt(t)
	}

	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrLoad, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}

	patientCol, ok := cols["patient"]
	if !ok {
		if patientCol, ok = cols["patient_id"]; !ok {
			return nil, fmt.Errorf("%w: patient", ErrMissingColumn)
		}
	}
	dateCol, ok := cols["date"]
	if !ok {
		return nil, fmt.Errorf("%w: date", ErrMissingColumn)
	}
	gameCol, ok := cols["game"]
	if !ok {
		return nil, fmt.Errorf("%w: game", ErrMissingColumn)
	}
	sessionCol, hasSession := cols["session"]
	genderCol, hasGender := cols["gender"]

	metricCols := make(map[string]int)
	for _, m := range t.allowed {
		if i, ok := cols[strings.ToLower(m)]; ok {
			metricCols[m] = i
			t.metrics = append(t.metrics, m)
		}
	}
	if len(t.metrics) == 0 {
		return nil, fmt.Errorf("%w: none of the metric columns %s", ErrMissingColumn, strings.Join(t.allowed, ", "))
	}
	sort.Strings(t.metrics)

	cell := func(rec []string, i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	line := 1
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			t.logger.Warn(ctx, "skipping malformed csv row", logger.Int("line", line), logger.Error(err))
			continue
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		o := model.Observation{
			Patient: cell(rec, patientCol),
			DateRaw: cell(rec, dateCol),
			Game:    normalizeGame(cell(rec, gameCol)),
			Values:  make(map[string]float64, len(metricCols)),
		}
		if m := patientTagRe.FindStringSubmatch(o.Patient); m != nil {
			o.Patient = m[1]
			o.Gender = strings.ToUpper(m[2])
		}
		if hasGender {
			if g := cell(rec, genderCol); g != "" {
				o.Gender = g
			}
		}
		if hasSession {
			raw := cell(rec, sessionCol)
			if s, ok := model.NormalizeSession(raw); ok {
				o.Session = s
			} else {
				o.Session = raw
			}
		}
		if iso, err := query.ParseDate(o.DateRaw); err == nil {
			o.Date = iso
		} else {
			t.stats.UnparseableDates++
		}
		for m, i := range metricCols {
			v, ok := parseMetric(cell(rec, i))
			if !ok {
				t.stats.InvalidCells++
				continue
			}
			o.Values[m] = v
		}

		t.byPatient[o.Patient] = append(t.byPatient[o.Patient], len(t.rows))
		t.rows = append(t.rows, o)
	}

	sum := sha256.Sum256(content)
	t.dataset = model.Dataset{Name: t.name, Content: content, Checksum: hex.EncodeToString(sum[:])}
	t.buildStats()

	if t.stats.UnparseableDates > 0 {
		t.logger.Warn(ctx, "rows have unparseable dates and will be ignored in date filtering",
			logger.Int("rows", t.stats.UnparseableDates))
	}
	t.logger.Info(ctx, "metrics table loaded",
		logger.String("source", t.name),
		logger.Int("rows", len(t.rows)),
		logger.Int("patients", t.stats.Patients),
		logger.Any("metrics", t.metrics),
		logger.Int("invalid_cells", t.stats.InvalidCells))

	metrics.UpdateTableRows(len(t.rows))
	metrics.UpdateTableUnparseableDates(t.stats.UnparseableDates)
	metrics.UpdateTableInvalidCells(t.stats.InvalidCells)
	return t, nil
}

// parseMetric accepts finite numbers only; "", "#NAME?", "nan" and "inf"
// are missing values.
func parseMetric(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func normalizeGame(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

func (t *Table) buildStats() {
	games := make(map[string]struct{})
	for _, o := range t.rows {
		if o.Game != "" {
			games[o.Game] = struct{}{}
		}
		if o.Date == "" {
			continue
		}
		if t.stats.FirstDate == "" || o.Date < t.stats.FirstDate {
			t.stats.FirstDate = o.Date
		}
		if o.Date > t.stats.LastDate {
			t.stats.LastDate = o.Date
		}
	}
	t.stats.Games = make([]string, 0, len(games))
	for g := range games {
		t.stats.Games = append(t.stats.Games, g)
	}
	sort.Slice(t.stats.Games, func(i, j int) bool { return gameLess(t.stats.Games[i], t.stats.Games[j]) })
	t.stats.Source = t.name
	t.stats.Checksum = t.dataset.Checksum
	t.stats.Rows = len(t.rows)
	t.stats.Patients = len(t.byPatient)
	t.stats.Metrics = append([]string(nil), t.metrics...)
}

func gameLess(a, b string) bool {
	na, errA := strconv.Atoi(strings.TrimPrefix(a, "game"))
	nb, errB := strconv.Atoi(strings.TrimPrefix(b, "game"))
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

// Query implements Store.
func (t *Table) Query(_ context.Context, f Filter) []model.Observation {
	start := time.Now()
	defer func() {
		metrics.RecordTableQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	var candidates []int
	if f.PatientID != "" {
		candidates = t.byPatient[f.PatientID]
	} else {
		candidates = make([]int, len(t.rows))
		for i := range t.rows {
			candidates[i] = i
		}
	}

	lo, hi := -1, -1
	if f.SessionRange != nil {
		a, okA := model.SessionNumber(f.SessionRange.Start)
		b, okB := model.SessionNumber(f.SessionRange.End)
		if !okA || !okB {
			return nil
		}
		lo, hi = min(a, b), max(a, b)
	}

	out := make([]model.Observation, 0, len(candidates))
	for _, i := range candidates {
		o := t.rows[i]
		if f.Game != "" && o.Game != f.Game {
			continue
		}
		if f.Session != "" && o.Session != f.Session {
			continue
		}
		if f.Date != "" && o.Date != f.Date {
			continue
		}
		if f.DateRange != nil && (o.Date == "" || o.Date < f.DateRange.Start || o.Date > f.DateRange.End) {
			continue
		}
		if lo >= 0 {
			n, ok := o.SessionNumber()
			if !ok || n < lo || n > hi {
				continue
			}
		}
		out = append(out, o)
	}
	sortObservations(out)
	return out
}

func sortObservations(obs []model.Observation) {
	sort.SliceStable(obs, func(i, j int) bool {
		a, b := obs[i], obs[j]
		if a.Date != b.Date {
			switch {
			case a.Date == "":
				return false
			case b.Date == "":
				return true
			}
			return a.Date < b.Date
		}
		na, okA := a.SessionNumber()
		nb, okB := b.SessionNumber()
		if okA && okB && na != nb {
			return na < nb
		}
		if okA != okB {
			return okA
		}
		return gameLess(a.Game, b.Game)
	})
}

// Sessions implements Store.
func (t *Table) Sessions(_ context.Context, patientID, game string) []string {
	seen := make(map[int]struct{})
	var nums []int
	for _, i := range t.byPatient[patientID] {
		o := t.rows[i]
		if game != "" && o.Game != game {
			continue
		}
		n, ok := o.SessionNumber()
		if !ok {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		nums = append(nums, n)
	}
	sort.Ints(nums)
	out := make([]string, len(nums))
	for i, n := range nums {
		out[i] = model.SessionLabel(n)
	}
	return out
}

// HasMetric implements Store.
func (t *Table) HasMetric(metric string) bool {
	for _, m := range t.metrics {
		if m == metric {
			return true
		}
	}
	return false
}

// Metrics implements Store.
func (t *Table) Metrics() []string {
	return append([]string(nil), t.metrics...)
}

// Count implements Store.
func (t *Table) Count(_ context.Context) int {
	return len(t.rows)
}

// Stats implements Store.
func (t *Table) Stats(_ context.Context) Stats {
	s := t.stats
	s.Games = append([]string(nil), t.stats.Games...)
	s.Metrics = append([]string(nil), t.stats.Metrics...)
	return s
}

// Dataset implements Store.
func (t *Table) Dataset() model.Dataset {
	return t.dataset
}
