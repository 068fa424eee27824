package forecast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derickschaefer/stockcast/internal/forecast"
	"github.com/derickschaefer/stockcast/internal/model"
)

func demand(total, reorder int, trend model.Trend) model.DemandForecast {
	return model.DemandForecast{TotalDemand: total, ReorderPoint: reorder, Trend: trend, Confidence: 0.8}
}

func TestRecommendReorderBelowReorderPoint(t *testing.T) {
	recs := forecast.GenerateStockRecommendations(5, demand(100, 20, model.TrendStable))
	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, model.RecommendReorder, r.Type)
	assert.Equal(t, model.PriorityHigh, r.Priority)
	assert.Contains(t, r.Message, "15 units")
	assert.Equal(t, "Order Now", r.Action)
}

func TestRecommendAtReorderPointDoesNothing(t *testing.T) {
	recs := forecast.GenerateStockRecommendations(20, demand(100, 20, model.TrendStable))
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestRecommendStockUpOnIncreasingTrend(t *testing.T) {
	recs := forecast.GenerateStockRecommendations(150, demand(100, 120, model.TrendIncreasing))
	require.Len(t, recs, 1)
	assert.Equal(t, model.RecommendStockUp, recs[0].Type)
	assert.Equal(t, model.PriorityMedium, recs[0].Priority)
	assert.Equal(t, "Increase Order", recs[0].Action)

	// Cover of exactly 2× total demand no longer fires.
	assert.Empty(t, forecast.GenerateStockRecommendations(200, demand(100, 120, model.TrendIncreasing)))
}

func TestRecommendReduceStockOnDecreasingTrend(t *testing.T) {
	recs := forecast.GenerateStockRecommendations(300, demand(50, 20, model.TrendDecreasing))
	require.Len(t, recs, 1)
	assert.Equal(t, model.RecommendReduceStock, recs[0].Type)
	assert.Equal(t, model.PriorityLow, recs[0].Priority)
	assert.Equal(t, "Reduce Orders", recs[0].Action)

	assert.Empty(t, forecast.GenerateStockRecommendations(150, demand(50, 20, model.TrendDecreasing)))
}

func TestRecommendRulesCombine(t *testing.T) {
	recs := forecast.GenerateStockRecommendations(10, demand(100, 60, model.TrendIncreasing))
	require.Len(t, recs, 2)
	assert.Equal(t, model.RecommendReorder, recs[0].Type)
	assert.Equal(t, model.RecommendStockUp, recs[1].Type)
	assert.Contains(t, recs[0].Message, "50 units")
}

func TestRecommendMultiplesAreExported(t *testing.T) {
	assert.Equal(t, 2, forecast.StockUpCoverMultiple)
	assert.Equal(t, 3, forecast.ReduceStockCoverMultiple)
}
