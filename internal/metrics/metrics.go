// Package metrics holds the Prometheus collectors for forecasting, planning
// and the HTTP API. Each Metrics owns its registry so several instances can
// coexist in one process.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors.
type Metrics struct {
	Registry *prometheus.Registry

	ForecastsTotal *prometheus.CounterVec // by method: ar|mock
	SyntheticTotal prometheus.Counter
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter

	PlansTotal   *prometheus.CounterVec // by outcome: ok|error
	PlanDuration prometheus.Histogram

	HTTPRequests    *prometheus.CounterVec // by method, route, status
	HTTPRateLimited prometheus.Counter
}

// New creates and registers all metrics on a fresh registry, together with
// the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		ForecastsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stockcast_forecasts_total",
			Help: "Forecasts generated, by method",
		}, []string{"method"}),
		SyntheticTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "stockcast_forecasts_synthetic_total",
			Help: "Forecasts fitted to a synthetic fallback series",
		}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "stockcast_forecast_cache_hits_total",
			Help: "Forecast cache hits",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "stockcast_forecast_cache_misses_total",
			Help: "Forecast cache misses",
		}),
		PlansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stockcast_plans_total",
			Help: "Plan runs, by outcome",
		}, []string{"outcome"}),
		PlanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockcast_plan_duration_seconds",
			Help:    "Time to build and store one plan run",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stockcast_http_requests_total",
			Help: "HTTP requests, by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPRateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "stockcast_http_rate_limited_total",
			Help: "HTTP requests rejected by the rate limiter",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
