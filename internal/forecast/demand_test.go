package forecast_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derickschaefer/stockcast/internal/forecast"
	"github.com/derickschaefer/stockcast/internal/model"
)

// ─── CalculateDemandForecast ──────────────────────────────────────────────────

func TestDemandEmptyHistoryUsesMock(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		d := seeded(seed).CalculateDemandForecast(nil, 7)
		assert.GreaterOrEqual(t, d.TotalDemand, 84, "seed %d", seed)
		assert.LessOrEqual(t, d.TotalDemand, 126, "seed %d", seed)
		assert.Equal(t, forecast.MockDemandConfidence, d.Confidence)
		assert.Equal(t, model.TrendStable, d.Trend)
		assert.GreaterOrEqual(t, d.AvgDailyDemand, 12)
		assert.LessOrEqual(t, d.AvgDailyDemand, 18)
	}
}

func TestDemandNonPositiveLeadTimeDefaults(t *testing.T) {
	flat := daily(repeat(10, 30)...)
	for _, lead := range []int{0, -5} {
		d := seeded(1).CalculateDemandForecast(flat, lead)
		assert.Equal(t, 70, d.TotalDemand, "lead %d", lead)
		assert.Equal(t, 10, d.AvgDailyDemand)
	}
}

func TestDemandFlatHistory(t *testing.T) {
	d := seeded(1).CalculateDemandForecast(daily(repeat(10, 30)...), 14)
	assert.Equal(t, 140, d.TotalDemand)
	assert.Equal(t, 10, d.AvgDailyDemand)
	assert.Equal(t, 210, d.ReorderPoint)
	assert.Equal(t, forecast.ConfidenceCeiling, d.Confidence)
	assert.Equal(t, model.TrendStable, d.Trend)
}

func TestDemandReorderPointUsesSafetyMultiplier(t *testing.T) {
	e := forecast.New(forecast.Options{SafetyStockMultiplier: 2})
	d := e.CalculateDemandForecast(daily(repeat(4, 20)...), 5)
	assert.Equal(t, 20, d.TotalDemand)
	assert.Equal(t, 40, d.ReorderPoint)
}

func TestDemandReorderPointFromUnroundedAverage(t *testing.T) {
	// 3 units/day over 7 days: 21 total, 31.5 reorder rounds to 32.
	d := seeded(1).CalculateDemandForecast(daily(repeat(3, 20)...), 7)
	assert.Equal(t, 21, d.TotalDemand)
	assert.Equal(t, 3, d.AvgDailyDemand)
	assert.Equal(t, 32, d.ReorderPoint)
}

func TestDemandShortHistoryStillProducesForecast(t *testing.T) {
	d := seeded(3).CalculateDemandForecast(daily(5, 6, 7), 7)
	require.GreaterOrEqual(t, d.TotalDemand, 0)
	assert.GreaterOrEqual(t, d.ReorderPoint, d.TotalDemand)
	assert.GreaterOrEqual(t, d.Confidence, forecast.ConfidenceFloor)
}

func TestDemandHugeQuantitiesSaturate(t *testing.T) {
	d := seeded(2).CalculateDemandForecast(daily(repeat(1e300, 16)...), 10)
	assert.Equal(t, math.MaxInt, d.TotalDemand)
	assert.Equal(t, math.MaxInt, d.AvgDailyDemand)
	assert.Equal(t, math.MaxInt, d.ReorderPoint)

	d = seeded(2).CalculateDemandForecast(daily(repeat(4e17, 20)...), 30)
	assert.GreaterOrEqual(t, d.TotalDemand, 0)
	assert.GreaterOrEqual(t, d.AvgDailyDemand, 0)
	assert.GreaterOrEqual(t, d.ReorderPoint, 0)
}

func TestDemandLeadTimeIsCapped(t *testing.T) {
	d := seeded(1).CalculateDemandForecast(daily(repeat(10, 30)...), math.MaxInt)
	assert.Equal(t, 10*forecast.MaxHorizonDays, d.TotalDemand)
	assert.Equal(t, 10, d.AvgDailyDemand)

	mock := seeded(1).CalculateDemandForecast(nil, math.MaxInt)
	assert.GreaterOrEqual(t, mock.AvgDailyDemand, 12)
	assert.LessOrEqual(t, mock.AvgDailyDemand, 18)
}
