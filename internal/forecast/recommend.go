package forecast

import (
	"fmt"

	"github.com/derickschaefer/stockcast/internal/model"
)

// Cover multiples for the trend rules, in units of lead-time demand.
const (
	StockUpCoverMultiple     = 2
	ReduceStockCoverMultiple = 3
)

// GenerateStockRecommendations evaluates each stock rule independently and
// returns every one that fires, in rule order. The result is never nil.
func GenerateStockRecommendations(currentStock int, d model.DemandForecast) []model.Recommendation {
	recs := []model.Recommendation{}

	if currentStock < d.ReorderPoint {
		recs = append(recs, model.Recommendation{
			Type:     model.RecommendReorder,
			Priority: model.PriorityHigh,
			Message:  fmt.Sprintf("Stock below reorder point. Recommend ordering %d units", d.ReorderPoint-currentStock),
			Action:   "Order Now",
		})
	}
	if d.Trend == model.TrendIncreasing && currentStock < d.TotalDemand*StockUpCoverMultiple {
		recs = append(recs, model.Recommendation{
			Type:     model.RecommendStockUp,
			Priority: model.PriorityMedium,
			Message:  "Demand trending up. Consider increasing stock levels",
			Action:   "Increase Order",
		})
	}
	if d.Trend == model.TrendDecreasing && currentStock > d.TotalDemand*ReduceStockCoverMultiple {
		recs = append(recs, model.Recommendation{
			Type:     model.RecommendReduceStock,
			Priority: model.PriorityLow,
			Message:  "Demand trending down. Consider reducing order quantities",
			Action:   "Reduce Orders",
		})
	}
	return recs
}
