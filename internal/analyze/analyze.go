// Package analyze computes descriptive statistics and sales velocity over
// a product's observations. All functions are pure; no I/O.
package analyze

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/derickschaefer/stockcast/internal/model"
)

// ─── Summary ──────────────────────────────────────────────────────────────────

// Summary holds descriptive statistics for a product's sales history.
type Summary struct {
	ProductID  string    `json:"product_id"`
	Count      int       `json:"count"`     // total observations
	Undated    int       `json:"undated"`   // observations without a date
	Invalid    int       `json:"invalid"`   // non-finite quantities, excluded below
	ZeroDays   int       `json:"zero_days"` // observations with no sales
	ZeroPct    float64   `json:"zero_pct"`
	Total      float64   `json:"total_units"`
	Mean       float64   `json:"mean"`
	Std        float64   `json:"std"`
	Min        float64   `json:"min"`
	P25        float64   `json:"p25"`
	Median     float64   `json:"median"`
	P75        float64   `json:"p75"`
	Max        float64   `json:"max"`
	FirstDate  time.Time `json:"first_date,omitempty"`
	LastDate   time.Time `json:"last_date,omitempty"`
	SpanDays   int       `json:"span_days"` // calendar days covered by dated rows
	DailyUnits float64   `json:"daily_units"`
}

// Summarize computes descriptive statistics over obs.
// Non-finite quantities are counted but excluded from the numeric fields.
func Summarize(productID string, obs []model.SalesObservation) Summary {
	s := Summary{ProductID: productID, Count: len(obs)}
	if len(obs) == 0 {
		return s
	}

	var vals []float64
	for _, o := range obs {
		if o.IsUndated() {
			s.Undated++
		} else {
			if s.FirstDate.IsZero() || o.Date.Before(s.FirstDate) {
				s.FirstDate = o.Date
			}
			if o.Date.After(s.LastDate) {
				s.LastDate = o.Date
			}
		}
		if math.IsNaN(o.Quantity) || math.IsInf(o.Quantity, 0) {
			s.Invalid++
			continue
		}
		if o.Quantity == 0 {
			s.ZeroDays++
		}
		vals = append(vals, o.Quantity)
	}
	s.ZeroPct = float64(s.ZeroDays) / float64(s.Count) * 100
	if !s.FirstDate.IsZero() {
		s.SpanDays = int(s.LastDate.Sub(s.FirstDate).Hours()/24) + 1
	}
	if len(vals) == 0 {
		s.Mean, s.Std = math.NaN(), math.NaN()
		s.Min, s.Max = math.NaN(), math.NaN()
		s.P25, s.Median, s.P75 = math.NaN(), math.NaN(), math.NaN()
		s.DailyUnits = math.NaN()
		return s
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	s.Total = sumF(vals)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Mean = s.Total / float64(len(vals))
	s.Std = stddevF(vals, s.Mean)
	s.Median = percentile(sorted, 50)
	s.P25 = percentile(sorted, 25)
	s.P75 = percentile(sorted, 75)

	// Average over the calendar span when every row is dated, so missing
	// days count as zero sales.
	if s.SpanDays > 0 && s.Undated == 0 {
		s.DailyUnits = s.Total / float64(s.SpanDays)
	} else {
		s.DailyUnits = s.Mean
	}
	return s
}

// ─── Velocity ─────────────────────────────────────────────────────────────────

// VelocityMethod selects the regression algorithm.
type VelocityMethod string

const (
	VelocityLinear   VelocityMethod = "linear"
	VelocityTheilSen VelocityMethod = "theil-sen"
)

// DirectionThreshold is the weekly change, as a fraction of mean daily
// sales, beyond which velocity is reported as increasing or decreasing.
const DirectionThreshold = 0.05

// VelocityResult holds the output of a sales velocity fit.
type VelocityResult struct {
	ProductID     string         `json:"product_id"`
	Method        VelocityMethod `json:"method"`
	Slope         float64        `json:"slope"` // units/day change per day
	Intercept     float64        `json:"intercept"`
	R2            float64        `json:"r2"`
	SlopePerWeek  float64        `json:"slope_per_week"`
	Direction     model.Trend    `json:"direction"`
	IndexPosition bool           `json:"index_position"` // x is row index, not days
}

// ParseVelocityMethod validates a method name; empty selects linear.
func ParseVelocityMethod(s string) (VelocityMethod, error) {
	switch VelocityMethod(s) {
	case "", VelocityLinear:
		return VelocityLinear, nil
	case VelocityTheilSen:
		return VelocityTheilSen, nil
	}
	return "", fmt.Errorf("unknown velocity method %q (valid: linear, theil-sen)", s)
}

// Velocity fits a trend line to sales. X values are days since the first
// observation when every row is dated, otherwise the row index.
// Non-finite quantities are excluded.
func Velocity(productID string, obs []model.SalesObservation, method VelocityMethod) (VelocityResult, error) {
	v := VelocityResult{ProductID: productID, Method: method}

	byIndex := false
	for _, o := range obs {
		if o.IsUndated() {
			byIndex = true
			break
		}
	}
	v.IndexPosition = byIndex
	if !byIndex {
		obs = append([]model.SalesObservation(nil), obs...)
		sort.SliceStable(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
	}

	var pts []point
	var t0 time.Time
	for i, o := range obs {
		if math.IsNaN(o.Quantity) || math.IsInf(o.Quantity, 0) {
			continue
		}
		x := float64(i)
		if !byIndex {
			if t0.IsZero() {
				t0 = o.Date
			}
			x = o.Date.Sub(t0).Hours() / 24
		}
		pts = append(pts, point{x, o.Quantity})
	}
	if len(pts) < 2 {
		return v, fmt.Errorf("velocity: need at least 2 valid observations, got %d", len(pts))
	}

	switch method {
	case VelocityTheilSen:
		v.Slope = theilSenSlope(pts)
		xMean := meanPts(pts, func(p point) float64 { return p.x })
		yMean := meanPts(pts, func(p point) float64 { return p.y })
		v.Intercept = yMean - v.Slope*xMean
	default:
		v.Slope, v.Intercept = olsRegress(pts)
	}

	v.R2 = r2(pts, v.Slope, v.Intercept)
	v.SlopePerWeek = v.Slope * 7

	mean := meanPts(pts, func(p point) float64 { return p.y })
	v.Direction = model.TrendStable
	if mean > 0 {
		switch rel := v.SlopePerWeek / mean; {
		case rel > DirectionThreshold:
			v.Direction = model.TrendIncreasing
		case rel < -DirectionThreshold:
			v.Direction = model.TrendDecreasing
		}
	}
	return v, nil
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

func sumF(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func stddevF(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var sq float64
	for _, v := range vals {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)-1))
}

func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	idx := p / 100 * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

type point struct{ x, y float64 }

func olsRegress(pts []point) (slope, intercept float64) {
	n := float64(len(pts))
	var xSum, ySum, xySum, x2Sum float64
	for _, p := range pts {
		xSum += p.x
		ySum += p.y
		xySum += p.x * p.y
		x2Sum += p.x * p.x
	}
	denom := n*x2Sum - xSum*xSum
	if denom == 0 {
		return 0, ySum / n
	}
	slope = (n*xySum - xSum*ySum) / denom
	intercept = (ySum - slope*xSum) / n
	return
}

func theilSenSlope(pts []point) float64 {
	var slopes []float64
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			dx := pts[j].x - pts[i].x
			if dx == 0 {
				continue
			}
			slopes = append(slopes, (pts[j].y-pts[i].y)/dx)
		}
	}
	if len(slopes) == 0 {
		return 0
	}
	sort.Float64s(slopes)
	return percentile(slopes, 50)
}

func r2(pts []point, slope, intercept float64) float64 {
	yMean := meanPts(pts, func(p point) float64 { return p.y })
	var ssTot, ssRes float64
	for _, p := range pts {
		pred := slope*p.x + intercept
		ssTot += (p.y - yMean) * (p.y - yMean)
		ssRes += (p.y - pred) * (p.y - pred)
	}
	if ssTot == 0 {
		return 1
	}
	return 1 - ssRes/ssTot
}

func meanPts(pts []point, f func(point) float64) float64 {
	var s float64
	for _, p := range pts {
		s += f(p)
	}
	return s / float64(len(pts))
}
