// Package transform implements stateless operators over sales history. Each
// operator takes a date-ascending slice of SalesObservations and returns a new
// slice; no side effects, no I/O.
package transform

import (
	"fmt"
	"sort"
	"time"

	"github.com/derickschaefer/stockcast/internal/model"
)

// MaxFillDays caps the span FillGaps will expand, so a single stray date
// cannot blow a short history up into decades of zero rows.
const MaxFillDays = 3660

// ─── Fill Gaps ────────────────────────────────────────────────────────────────

// FillGaps aggregates obs to one row per UTC calendar day and inserts a
// zero-quantity row for every day with no sales between the first and last.
func FillGaps(obs []model.SalesObservation) ([]model.SalesObservation, error) {
	if len(obs) == 0 {
		return nil, fmt.Errorf("fill-gaps: empty input")
	}
	byDay := make(map[time.Time]float64, len(obs))
	first, last := day(obs[0].Date), day(obs[0].Date)
	for _, o := range obs {
		d := day(o.Date)
		byDay[d] += o.Quantity
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	span := int(last.Sub(first).Hours()/24) + 1
	if span > MaxFillDays {
		return nil, fmt.Errorf("fill-gaps: history spans %d days, limit is %d", span, MaxFillDays)
	}
	out := make([]model.SalesObservation, 0, span)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, model.SalesObservation{Date: d, Quantity: byDay[d]})
	}
	return out, nil
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ─── Resample ─────────────────────────────────────────────────────────────────

// ResampleFreq is the target frequency for resampling.
type ResampleFreq string

const (
	ResampleWeekly  ResampleFreq = "weekly"
	ResampleMonthly ResampleFreq = "monthly"
)

// ResampleMethod is the aggregation method for resampling.
type ResampleMethod string

const (
	ResampleSum  ResampleMethod = "sum"
	ResampleMean ResampleMethod = "mean"
)

// Resample aggregates observations into weekly (ISO week, starting Monday)
// or monthly buckets, dated at the bucket start.
func Resample(obs []model.SalesObservation, freq ResampleFreq, method ResampleMethod) ([]model.SalesObservation, error) {
	if len(obs) == 0 {
		return nil, fmt.Errorf("resample: empty input")
	}
	switch freq {
	case ResampleWeekly, ResampleMonthly:
	default:
		return nil, fmt.Errorf("resample: unknown frequency %q (use weekly or monthly)", freq)
	}
	switch method {
	case ResampleSum, ResampleMean:
	default:
		return nil, fmt.Errorf("resample: unknown method %q (use sum or mean)", method)
	}

	groups := make(map[time.Time][]float64)
	for _, o := range obs {
		start := periodStart(o.Date, freq)
		groups[start] = append(groups[start], o.Quantity)
	}

	starts := make([]time.Time, 0, len(groups))
	for k := range groups {
		starts = append(starts, k)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	out := make([]model.SalesObservation, 0, len(starts))
	for _, s := range starts {
		vals := groups[s]
		val := sum(vals)
		if method == ResampleMean {
			val = mean(vals)
		}
		out = append(out, model.SalesObservation{Date: s, Quantity: val})
	}
	return out, nil
}

func periodStart(t time.Time, freq ResampleFreq) time.Time {
	d := day(t)
	if freq == ResampleMonthly {
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	return d.AddDate(0, 0, -offset)
}

// ─── Filter ───────────────────────────────────────────────────────────────────

// FilterOptions describes a date window. Zero bounds are open.
type FilterOptions struct {
	After  time.Time // keep obs with date > After
	Before time.Time // keep obs with date < Before
}

// Filter returns observations inside the window described by opts.
func Filter(obs []model.SalesObservation, opts FilterOptions) []model.SalesObservation {
	out := make([]model.SalesObservation, 0, len(obs))
	for _, o := range obs {
		if !opts.After.IsZero() && !o.Date.After(opts.After) {
			continue
		}
		if !opts.Before.IsZero() && !o.Date.Before(opts.Before) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// ─── Rolling Window ───────────────────────────────────────────────────────────

// RollStat selects the statistic for rolling window computation.
type RollStat string

const (
	RollMean RollStat = "mean"
	RollSum  RollStat = "sum"
	RollMax  RollStat = "max"
)

// Roll computes a trailing window statistic. Each window covers the current
// observation and up to window-1 preceding ones.
func Roll(obs []model.SalesObservation, window int, stat RollStat) ([]model.SalesObservation, error) {
	if window < 1 {
		return nil, fmt.Errorf("roll: window must be >= 1, got %d", window)
	}
	switch stat {
	case RollMean, RollSum, RollMax:
	default:
		return nil, fmt.Errorf("roll: unknown stat %q (use mean, sum, max)", stat)
	}

	out := make([]model.SalesObservation, len(obs))
	vals := make([]float64, 0, window)
	for i, o := range obs {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		vals = vals[:0]
		for _, w := range obs[start : i+1] {
			vals = append(vals, w.Quantity)
		}
		var val float64
		switch stat {
		case RollMean:
			val = mean(vals)
		case RollSum:
			val = sum(vals)
		case RollMax:
			val = vals[0]
			for _, v := range vals[1:] {
				if v > val {
					val = v
				}
			}
		}
		out[i] = model.SalesObservation{Date: o.Date, Quantity: val}
	}
	return out, nil
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return sum(vals) / float64(len(vals))
}
