package forecast

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/derickschaefer/stockcast/internal/model"
	"github.com/derickschaefer/stockcast/internal/series"
)

const (
	// DefaultSafetyStockMultiplier is a flat 50% buffer on lead-time demand.
	DefaultSafetyStockMultiplier = 1.5

	// DefaultLeadTimeDays replaces non-positive lead times.
	DefaultLeadTimeDays = 7

	MockDemandBase       = 15.0
	MockDemandNoise      = 3.0
	MockDemandConfidence = 0.8
)

// CalculateDemandForecast forecasts demand over the lead time and derives the
// reorder point. Empty history yields the mock demand forecast. Lead times
// beyond MaxHorizonDays are capped to it. Every quantity is >= 0; totals too
// large for an int saturate at math.MaxInt.
func (e *Engine) CalculateDemandForecast(history []model.SalesObservation, leadTimeDays int) model.DemandForecast {
	if leadTimeDays <= 0 {
		e.log.WithField("lead_time_days", leadTimeDays).Debug("demand: non-positive lead time, using default")
		leadTimeDays = DefaultLeadTimeDays
	}
	leadTimeDays = clampHorizon(leadTimeDays)
	if len(history) == 0 {
		return e.mockDemand(leadTimeDays)
	}

	res := e.ForecastHistory(history, leadTimeDays)
	var total float64
	for _, v := range res.Forecast {
		if v > 0 {
			total += v
		}
	}
	return e.demandFrom(total, leadTimeDays, res.Confidence, res.Trend)
}

// mockDemand draws MockDemandBase ± MockDemandNoise units per day.
func (e *Engine) mockDemand(leadTimeDays int) model.DemandForecast {
	var total float64
	for i := 0; i < leadTimeDays; i++ {
		total += math.Max(0, MockDemandBase+series.Uniform(e.src, MockDemandNoise))
	}
	e.log.WithFields(logrus.Fields{
		"lead_time_days": leadTimeDays,
		"total":          total,
	}).Debug("demand: no history, using mock demand")
	return e.demandFrom(total, leadTimeDays, MockDemandConfidence, model.TrendStable)
}

// demandFrom rounds only at the end so the reorder point is computed from
// the unrounded daily average.
func (e *Engine) demandFrom(total float64, leadTimeDays int, confidence float64, trend model.Trend) model.DemandForecast {
	avg := total / float64(leadTimeDays)
	reorder := avg * float64(leadTimeDays) * e.safety
	return model.DemandForecast{
		TotalDemand:    roundUnits(total),
		AvgDailyDemand: roundUnits(avg),
		ReorderPoint:   roundUnits(reorder),
		Confidence:     confidence,
		Trend:          trend,
	}
}

// roundUnits rounds to whole units, saturating at math.MaxInt.
func roundUnits(v float64) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	r := math.Round(v)
	if r >= math.MaxInt {
		return math.MaxInt
	}
	return int(r)
}
