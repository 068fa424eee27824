// Package model defines the canonical data types used throughout stockcast.
// The forecast, demand and recommendation shapes are consumed as-is by the
// merchant dashboard, so their JSON field names are part of the contract.
package model

import (
	"time"
)

// ─── Sales History ────────────────────────────────────────────────────────────

// SalesObservation is one period's unit sales for a single product.
// A zero Date marks an undated observation; it is positioned by input order.
type SalesObservation struct {
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
}

// IsUndated reports whether the observation carries no calendar date.
func (o SalesObservation) IsUndated() bool {
	return o.Date.IsZero()
}

// Point is a single (timestamp, value) entry of a prepared time series.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// TimeSeries is a chronologically ordered series, strictly increasing in Time.
// Synthetic is true when the points were generated because real history was
// absent or too short to fit.
type TimeSeries struct {
	Points    []Point `json:"points"`
	Synthetic bool    `json:"synthetic"`
}

// Len returns the number of points in the series.
func (ts TimeSeries) Len() int {
	return len(ts.Points)
}

// Values returns the series values in order.
func (ts TimeSeries) Values() []float64 {
	out := make([]float64, len(ts.Points))
	for i, p := range ts.Points {
		out[i] = p.Value
	}
	return out
}

// ─── Forecast Output ──────────────────────────────────────────────────────────

// Trend classifies the direction of recent demand.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// Method identifies which path produced a forecast.
type Method string

const (
	MethodAR   Method = "ar"
	MethodMock Method = "mock"
)

// ForecastResult is the engine's output for a single series.
// Lower and Upper hold a prediction band on the model path only.
type ForecastResult struct {
	Forecast    []float64 `json:"forecast"`
	Confidence  float64   `json:"confidence"`
	Trend       Trend     `json:"trend"`
	Seasonality bool      `json:"seasonality"`
	Method      Method    `json:"method"`
	Synthetic   bool      `json:"synthetic"`
	Lower       []float64 `json:"lower,omitempty"`
	Upper       []float64 `json:"upper,omitempty"`
}

// DemandForecast aggregates a forecast over a lead-time horizon.
// All quantities are whole units.
type DemandForecast struct {
	TotalDemand    int     `json:"totalDemand"`
	AvgDailyDemand int     `json:"avgDailyDemand"`
	ReorderPoint   int     `json:"reorderPoint"`
	Confidence     float64 `json:"confidence"`
	Trend          Trend   `json:"trend"`
}

// RecommendationType is the kind of stock action suggested.
type RecommendationType string

const (
	RecommendReorder     RecommendationType = "reorder"
	RecommendStockUp     RecommendationType = "stock_up"
	RecommendReduceStock RecommendationType = "reduce_stock"
)

// Priority ranks a recommendation for display.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation is a single stock action banner.
type Recommendation struct {
	Type     RecommendationType `json:"type"`
	Priority Priority           `json:"priority"`
	Message  string             `json:"message"`
	Action   string             `json:"action"`
}

// Anomaly flags a history point that deviates sharply from the series mean.
type Anomaly struct {
	Date      time.Time `json:"date"`
	Value     float64   `json:"value"`
	ZScore    float64   `json:"zScore"`
	Direction string    `json:"direction"` // "spike" or "drop"
}

// ─── Products & Plans ─────────────────────────────────────────────────────────

// Product is the stock context a plan is computed against.
type Product struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CurrentStock int       `json:"current_stock"`
	LeadTimeDays int       `json:"lead_time_days"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// PlanRun is a stored reorder plan for one product.
type PlanRun struct {
	ID              string           `json:"id"`
	ProductID       string           `json:"product_id"`
	GeneratedAt     time.Time        `json:"generated_at"`
	CurrentStock    int              `json:"current_stock"`
	LeadTimeDays    int              `json:"lead_time_days"`
	HistoryDays     int              `json:"history_days"`
	Demand          DemandForecast   `json:"demand"`
	Recommendations []Recommendation `json:"recommendations"`
	Anomalies       []Anomaly        `json:"anomalies,omitempty"`
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries performance and cache metadata for a command result.
type ResultStats struct {
	CacheHit   bool  `json:"cache_hit"`
	DurationMs int64 `json:"duration_ms"`
	Items      int   `json:"items"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindSales           = "sales"
	KindForecast        = "forecast"
	KindDemand          = "demand"
	KindRecommendations = "recommendations"
	KindAnomalies       = "anomalies"
	KindProduct         = "product"
	KindPlan            = "plan"
	KindSummary         = "summary"
	KindVelocity        = "velocity"
	KindTable           = "table"
)

// Table is a generic two-dimensional payload for KindTable results.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// SalesData bundles a product's observations for rendering and piping.
type SalesData struct {
	ProductID string             `json:"product_id"`
	Obs       []SalesObservation `json:"observations"`
}
