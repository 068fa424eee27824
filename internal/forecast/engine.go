// Package forecast fits an autoregressive model to a product's sales series
// and derives the forecast, confidence, trend, seasonality, lead-time demand
// and stock recommendations shown on the inventory dashboard.
//
// The engine never fails observably: numerical trouble during the fit or
// projection degrades to a clearly labelled mock forecast.
package forecast

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/derickschaefer/stockcast/internal/logging"
	"github.com/derickschaefer/stockcast/internal/model"
	"github.com/derickschaefer/stockcast/internal/series"
)

// Model and heuristic constants. None of these are learned.
const (
	ModelOrder = 5

	ConfidenceFloor   = 0.5
	ConfidenceCeiling = 0.95
	DefaultConfidence = 0.7
	MockConfidence    = 0.75

	TrendWindow    = 10
	TrendUpRatio   = 1.10
	TrendDownRatio = 0.90

	SeasonalPeriod       = 7
	SeasonalityThreshold = 0.30

	// MaxHorizonDays caps the forecast horizon; longer requests are
	// truncated to it.
	MaxHorizonDays = 1825

	// PredictionZ is the normal quantile for the 95% prediction band.
	PredictionZ = 1.96

	MockBaseLevel = 50.0
	MockAmplitude = 10.0
	MockNoise     = 5.0
)

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	// Order is the autoregression order (default ModelOrder).
	Order int
	// SafetyStockMultiplier scales lead-time demand into a reorder point
	// (default DefaultSafetyStockMultiplier).
	SafetyStockMultiplier float64
	// Source supplies noise for the mock paths. Seed it for reproducibility.
	Source series.Source
	// Preparer turns raw history into a series. Defaults to one sharing Source.
	Preparer *series.Preparer
	Logger   *logrus.Logger
}

// Engine runs the forecasting pipeline. It holds no per-call state and is
// safe for concurrent use when its Source is.
type Engine struct {
	order  int
	safety float64
	src    series.Source
	prep   *series.Preparer
	log    *logrus.Logger
}

// New builds an Engine, filling unset options with defaults.
func New(opts Options) *Engine {
	e := &Engine{
		order:  opts.Order,
		safety: opts.SafetyStockMultiplier,
		src:    opts.Source,
		prep:   opts.Preparer,
		log:    opts.Logger,
	}
	if e.order <= 0 {
		e.order = ModelOrder
	}
	if e.safety <= 0 {
		e.safety = DefaultSafetyStockMultiplier
	}
	if e.src == nil {
		e.src = series.DefaultSource()
	}
	if e.log == nil {
		e.log = logging.Discard()
	}
	if e.prep == nil {
		e.prep = series.New(series.Options{Source: e.src, Logger: e.log})
	}
	return e
}

// Preparer returns the series preparer the engine uses for raw history.
func (e *Engine) Preparer() *series.Preparer {
	return e.prep
}

// GenerateForecast fits the model to ts and projects horizonDays values,
// at most MaxHorizonDays. Any fit or projection failure yields the mock
// forecast instead.
func (e *Engine) GenerateForecast(ts model.TimeSeries, horizonDays int) (res model.ForecastResult) {
	horizonDays = clampHorizon(horizonDays)
	defer func() {
		if r := recover(); r != nil {
			e.log.WithFields(logrus.Fields{
				"panic":  r,
				"points": ts.Len(),
			}).Warn("forecast: fit panicked, using mock forecast")
			res = e.mockForecast(horizonDays, ts.Synthetic)
		}
	}()

	if ts.Synthetic {
		e.log.WithField("points", ts.Len()).Debug("forecast: fitting synthetic fallback series")
	}

	m, err := fitModel(ts.Values(), e.order)
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"reason": err.Error(),
			"points": ts.Len(),
		}).Warn("forecast: fit failed, using mock forecast")
		return e.mockForecast(horizonDays, ts.Synthetic)
	}
	values, err := m.project(horizonDays)
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"reason":  err.Error(),
			"horizon": horizonDays,
		}).Warn("forecast: projection failed, using mock forecast")
		return e.mockForecast(horizonDays, ts.Synthetic)
	}

	res = model.ForecastResult{
		Forecast:    values,
		Confidence:  CalculateConfidence(values),
		Trend:       AnalyzeTrend(ts),
		Seasonality: DetectSeasonality(ts),
		Method:      model.MethodAR,
		Synthetic:   ts.Synthetic,
	}
	if horizonDays > 0 {
		res.Lower, res.Upper = m.band(values, PredictionZ)
	}
	return res
}

// ForecastHistory prepares raw history and forecasts it in one call.
func (e *Engine) ForecastHistory(history []model.SalesObservation, horizonDays int) model.ForecastResult {
	return e.GenerateForecast(e.prep.Prepare(history), horizonDays)
}

func clampHorizon(h int) int {
	switch {
	case h < 0:
		return 0
	case h > MaxHorizonDays:
		return MaxHorizonDays
	}
	return h
}

// mockForecast is the placeholder returned when the model cannot be fitted:
// a weekly sine around MockBaseLevel with bounded noise.
func (e *Engine) mockForecast(horizonDays int, synthetic bool) model.ForecastResult {
	values := make([]float64, clampHorizon(horizonDays))
	for i := range values {
		v := MockBaseLevel +
			MockAmplitude*math.Sin(2*math.Pi*float64(i)/SeasonalPeriod) +
			series.Uniform(e.src, MockNoise)
		values[i] = math.Max(0, v)
	}
	return model.ForecastResult{
		Forecast:    values,
		Confidence:  MockConfidence,
		Trend:       model.TrendStable,
		Seasonality: false,
		Method:      model.MethodMock,
		Synthetic:   synthetic,
	}
}
