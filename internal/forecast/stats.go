package forecast

import (
	"math"

	"github.com/derickschaefer/stockcast/internal/model"
)

// ─── Confidence ───────────────────────────────────────────────────────────────

// CalculateConfidence scores forecast stability as 1 − σ/μ of the projected
// values, clamped to [ConfidenceFloor, ConfidenceCeiling]. An empty forecast
// scores DefaultConfidence; a non-positive mean scores the floor.
func CalculateConfidence(values []float64) float64 {
	if len(values) == 0 {
		return DefaultConfidence
	}
	m := meanF(values)
	if m <= 0 || !finite(m) {
		return ConfidenceFloor
	}
	c := 1 - popStddev(values, m)/m
	if !finite(c) {
		return ConfidenceFloor
	}
	return math.Min(ConfidenceCeiling, math.Max(ConfidenceFloor, c))
}

// ─── Trend ────────────────────────────────────────────────────────────────────

// AnalyzeTrend compares the mean of the last TrendWindow points with the
// mean of the TrendWindow points before them. Shorter series are stable.
func AnalyzeTrend(ts model.TimeSeries) model.Trend {
	v := ts.Values()
	n := len(v)
	if n < 2*TrendWindow {
		return model.TrendStable
	}
	recent := meanF(v[n-TrendWindow:])
	older := meanF(v[n-2*TrendWindow : n-TrendWindow])
	switch {
	case recent > older*TrendUpRatio:
		return model.TrendIncreasing
	case recent < older*TrendDownRatio:
		return model.TrendDecreasing
	default:
		return model.TrendStable
	}
}

// ─── Seasonality ──────────────────────────────────────────────────────────────

// DetectSeasonality buckets points by position modulo SeasonalPeriod and
// reports whether the bucket means swing by more than SeasonalityThreshold
// of the largest bucket mean.
func DetectSeasonality(ts model.TimeSeries) bool {
	v := ts.Values()
	if len(v) < 2*SeasonalPeriod {
		return false
	}
	sums := make([]float64, SeasonalPeriod)
	counts := make([]int, SeasonalPeriod)
	for i, x := range v {
		sums[i%SeasonalPeriod] += x
		counts[i%SeasonalPeriod]++
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range sums {
		avg := sums[i] / float64(counts[i])
		lo = math.Min(lo, avg)
		hi = math.Max(hi, avg)
	}
	if hi <= 0 {
		return false
	}
	return (hi-lo)/hi > SeasonalityThreshold
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

func meanF(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var s float64
	for _, v := range vals {
		s += v
	}
	return s / float64(len(vals))
}

func popStddev(vals []float64, m float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sq float64
	for _, v := range vals {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)))
}

// linearFit is an ordinary least squares line through (i, vals[i]).
func linearFit(vals []float64) (slope, intercept float64) {
	n := float64(len(vals))
	var xSum, ySum, xySum, x2Sum float64
	for i, y := range vals {
		x := float64(i)
		xSum += x
		ySum += y
		xySum += x * y
		x2Sum += x * x
	}
	denom := n*x2Sum - xSum*xSum
	if denom == 0 {
		return 0, ySum / n
	}
	slope = (n*xySum - xSum*ySum) / denom
	intercept = (ySum - slope*xSum) / n
	return
}
