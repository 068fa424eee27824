// Package series turns raw sales observations into the ordered, non-negative
// time series the forecast engine fits. When history is missing or too short
// it synthesizes a plausible fallback series instead of failing, so callers
// always get something to forecast from.
package series

import (
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/derickschaefer/stockcast/internal/logging"
	"github.com/derickschaefer/stockcast/internal/model"
	"github.com/derickschaefer/stockcast/internal/transform"
)

const (
	// DefaultMinObservations is the shortest history fitted directly.
	DefaultMinObservations = 14
	// DefaultFallbackLength is the number of points synthesized when
	// history is too short.
	DefaultFallbackLength = 30

	FallbackBaseLevel = 50.0
	FallbackAmplitude = 10.0
	FallbackNoise     = 5.0
	FallbackPeriod    = 7
)

// undatedAnchor positions undated observations: the i-th input lands on
// anchor + i days.
var undatedAnchor = time.Unix(0, 0).UTC()

// Options configures a Preparer. Zero values select the defaults.
type Options struct {
	MinObservations int
	FallbackLength  int
	FillGaps        bool
	Source          Source
	Logger          *logrus.Logger
}

// Preparer builds TimeSeries values from sales history.
type Preparer struct {
	minObs   int
	fallback int
	fillGaps bool
	src      Source
	log      *logrus.Logger
}

// New returns a Preparer with defaults applied to unset options.
func New(opts Options) *Preparer {
	p := &Preparer{
		minObs:   opts.MinObservations,
		fallback: opts.FallbackLength,
		fillGaps: opts.FillGaps,
		src:      opts.Source,
		log:      opts.Logger,
	}
	if p.minObs <= 0 {
		p.minObs = DefaultMinObservations
	}
	if p.fallback <= 0 {
		p.fallback = DefaultFallbackLength
	}
	if p.src == nil {
		p.src = DefaultSource()
	}
	if p.log == nil {
		p.log = logging.Discard()
	}
	return p
}

// Prepare is shorthand for New(Options{}).Prepare(obs).
func Prepare(obs []model.SalesObservation) model.TimeSeries {
	return New(Options{}).Prepare(obs)
}

// Prepare sorts obs by date, merges observations that share a timestamp and
// maps them to points. Negative or non-finite quantities count as zero.
// If fewer than the minimum number of points remain, a synthetic series is
// returned in their place. The input slice is not modified.
func (p *Preparer) Prepare(obs []model.SalesObservation) model.TimeSeries {
	rows := make([]model.SalesObservation, len(obs))
	for i, o := range obs {
		if o.IsUndated() {
			o.Date = undatedAnchor.AddDate(0, 0, i)
		}
		if math.IsNaN(o.Quantity) || math.IsInf(o.Quantity, 0) || o.Quantity < 0 {
			o.Quantity = 0
		}
		rows[i] = o
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	rows = mergeSameTime(rows)

	// A span too long to fill is fitted as-is.
	if p.fillGaps && len(rows) > 1 {
		filled, err := transform.FillGaps(rows)
		if err != nil {
			p.log.WithError(err).WithField("rows", len(rows)).Debug("prepare: gap filling skipped")
		} else {
			rows = filled
		}
	}

	if len(rows) < p.minObs {
		end := undatedAnchor.AddDate(0, 0, p.fallback-1)
		if len(rows) > 0 {
			end = rows[len(rows)-1].Date
		}
		return p.Synthesize(p.fallback, end)
	}

	points := make([]model.Point, len(rows))
	for i, o := range rows {
		points[i] = model.Point{Time: o.Date, Value: o.Quantity}
	}
	return model.TimeSeries{Points: points}
}

// Synthesize generates n daily points ending at end: a fixed base level with
// a weekly sine component and bounded uniform noise, clamped at zero.
func (p *Preparer) Synthesize(n int, end time.Time) model.TimeSeries {
	if n < 1 {
		n = 1
	}
	points := make([]model.Point, n)
	start := end.AddDate(0, 0, -(n - 1))
	for i := 0; i < n; i++ {
		v := FallbackBaseLevel +
			FallbackAmplitude*math.Sin(2*math.Pi*float64(i)/FallbackPeriod) +
			Uniform(p.src, FallbackNoise)
		points[i] = model.Point{Time: start.AddDate(0, 0, i), Value: math.Max(0, v)}
	}
	return model.TimeSeries{Points: points, Synthetic: true}
}

// mergeSameTime sums quantities of adjacent rows with equal timestamps.
// rows must already be sorted.
func mergeSameTime(rows []model.SalesObservation) []model.SalesObservation {
	if len(rows) < 2 {
		return rows
	}
	out := rows[:1]
	for _, o := range rows[1:] {
		last := &out[len(out)-1]
		if o.Date.Equal(last.Date) {
			last.Quantity += o.Quantity
			continue
		}
		out = append(out, o)
	}
	return out
}
