package interpreter

import (
	"math"

	"github.com/okian/rehabchat/internal/domain/model"
)

const (
	noiseFraction = 0.01
	minNoise      = 1e-6
	majority      = 0.8
)

// Trend labels.
const (
	TrendImproving = "improving"
	TrendWorsening = "worsening"
	TrendVariable  = "variable"
	TrendFlat      = "no clear trend"
)

// Classify labels a series by its step-to-step movement. Steps smaller than
// 1% of the first value are noise; a direction wins when it holds at least
// 80% of the remaining steps. Series shorter than two values are not
// classified.
func Classify(values []float64) *model.TrendClass {
	if len(values) < 2 {
		return nil
	}
	eps := math.Max(minNoise, noiseFraction*math.Abs(values[0]))
	up, down := 0, 0
	for i := 1; i < len(values); i++ {
		switch d := values[i] - values[i-1]; {
		case d > eps:
			up++
		case d < -eps:
			down++
		}
	}
	moved := up + down
	switch {
	case moved == 0:
		return &model.TrendClass{Label: TrendFlat, Reason: "values stayed roughly stable between sessions"}
	case float64(up)/float64(moved) >= majority:
		return &model.TrendClass{Label: TrendImproving, Reason: "values generally improved from session to session"}
	case float64(down)/float64(moved) >= majority:
		return &model.TrendClass{Label: TrendWorsening, Reason: "values generally worsened from session to session"}
	}
	return &model.TrendClass{Label: TrendVariable, Reason: "values fluctuated with rises and drops between sessions"}
}

// relativePct returns change as a percentage of |base|, or nil when base is 0.
func relativePct(change, base float64) *float64 {
	if base == 0 {
		return nil
	}
	p := change / math.Abs(base) * 100
	return &p
}

type accumulator struct {
	key      string
	n        int
	sum      float64
	min, max float64
}

func (a *accumulator) add(v float64) {
	if a.n == 0 || v < a.min {
		a.min = v
	}
	if a.n == 0 || v > a.max {
		a.max = v
	}
	a.n++
	a.sum += v
}

func (a *accumulator) bucket() model.Bucket {
	return model.Bucket{Key: a.key, N: a.n, Mean: a.sum / float64(a.n), Min: a.min, Max: a.max}
}

func mean(rows []model.Row) float64 {
	var sum float64
	for _, r := range rows {
		sum += r.Value
	}
	return sum / float64(len(rows))
}

func means(buckets []model.Bucket) []float64 {
	out := make([]float64, len(buckets))
	for i, b := range buckets {
		out[i] = b.Mean
	}
	return out
}
