// Package planner is the service layer shared by the CLI and the HTTP API.
// It loads product context and sales history from the store, runs the
// forecast engine, memoises forecasts per history and persists plan runs.
package planner

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/derickschaefer/stockcast/internal/cache"
	"github.com/derickschaefer/stockcast/internal/forecast"
	"github.com/derickschaefer/stockcast/internal/logging"
	"github.com/derickschaefer/stockcast/internal/metrics"
	"github.com/derickschaefer/stockcast/internal/model"
	"github.com/derickschaefer/stockcast/internal/store"
	"github.com/derickschaefer/stockcast/internal/util"
)

// Repository is the subset of the store the planner reads and writes.
type Repository interface {
	GetProduct(id string) (model.Product, error)
	ListProducts() ([]model.Product, error)
	GetSales(productID string) ([]model.SalesObservation, error)
	PutPlan(run model.PlanRun) error
	ListPlans(productID string, limit int) ([]model.PlanRun, error)
}

const defaultConcurrency = 8

// Options configures a Planner. Engine and Repo are required.
type Options struct {
	Engine  *forecast.Engine
	Repo    Repository
	Metrics *metrics.Metrics
	Logger  *logrus.Logger

	// CacheSize bounds the forecast cache; 0 disables caching.
	CacheSize int
	CacheTTL  time.Duration

	// Concurrency bounds PlanAll (default 8).
	Concurrency int
	// DefaultLeadTimeDays applies to products stored without a lead time.
	DefaultLeadTimeDays int

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// cacheKey identifies a forecast by product, exact history content and horizon.
type cacheKey struct {
	productID string
	history   [sha256.Size]byte
	horizon   int
}

// Planner runs forecasts and plans against stored data.
type Planner struct {
	engine      *forecast.Engine
	repo        Repository
	metrics     *metrics.Metrics
	log         *logrus.Logger
	cache       *cache.LRU[cacheKey, model.ForecastResult]
	concurrency int
	leadTime    int
	now         func() time.Time
	newID       func() string
}

// New builds a Planner.
func New(opts Options) (*Planner, error) {
	if opts.Engine == nil || opts.Repo == nil {
		return nil, errors.New("planner: engine and repository are required")
	}
	p := &Planner{
		engine:      opts.Engine,
		repo:        opts.Repo,
		metrics:     opts.Metrics,
		log:         opts.Logger,
		concurrency: opts.Concurrency,
		leadTime:    opts.DefaultLeadTimeDays,
		now:         opts.Now,
		newID:       opts.NewID,
	}
	if p.metrics == nil {
		p.metrics = metrics.New()
	}
	if p.log == nil {
		p.log = logging.Discard()
	}
	if p.concurrency <= 0 {
		p.concurrency = defaultConcurrency
	}
	if p.leadTime <= 0 {
		p.leadTime = forecast.DefaultLeadTimeDays
	}
	if p.now == nil {
		p.now = func() time.Time { return time.Now().UTC() }
	}
	if p.newID == nil {
		p.newID = func() string { return uuid.New().String() }
	}
	if opts.CacheSize > 0 {
		c, err := cache.New[cacheKey, model.ForecastResult](opts.CacheSize, opts.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("planner: forecast cache: %w", err)
		}
		p.cache = c
	}
	return p, nil
}

// Metrics returns the collectors the planner records into.
func (p *Planner) Metrics() *metrics.Metrics {
	return p.metrics
}

// CacheStats reports forecast cache counters; ok is false when caching is off.
func (p *Planner) CacheStats() (s cache.Stats, ok bool) {
	if p.cache == nil {
		return s, false
	}
	return p.cache.Stats(), true
}

// SweepCache drops expired forecasts and returns how many were removed.
func (p *Planner) SweepCache() int {
	if p.cache == nil {
		return 0
	}
	n := p.cache.CleanupExpired()
	if n > 0 {
		p.log.WithField("removed", n).Debug("forecast cache swept")
	}
	return n
}

// ─── Forecasts ────────────────────────────────────────────────────────────────

// Forecast forecasts horizon days for a stored product. A product with no
// stored history forecasts from the synthetic fallback; an unknown product
// is an error wrapping store.ErrNotFound.
func (p *Planner) Forecast(ctx context.Context, productID string, horizon int) (model.ForecastResult, error) {
	if err := ctx.Err(); err != nil {
		return model.ForecastResult{}, err
	}
	history, err := p.history(productID)
	if err != nil {
		return model.ForecastResult{}, err
	}
	return p.forecast(productID, history, horizon), nil
}

// ForecastHistory forecasts ad-hoc history that is not in the store.
func (p *Planner) ForecastHistory(ctx context.Context, history []model.SalesObservation, horizon int) (model.ForecastResult, error) {
	if err := ctx.Err(); err != nil {
		return model.ForecastResult{}, err
	}
	return p.forecast("", history, horizon), nil
}

// Demand computes the lead-time demand forecast for ad-hoc history.
func (p *Planner) Demand(ctx context.Context, history []model.SalesObservation, leadTimeDays int) (model.DemandForecast, error) {
	if err := ctx.Err(); err != nil {
		return model.DemandForecast{}, err
	}
	if leadTimeDays <= 0 {
		leadTimeDays = p.leadTime
	}
	return p.engine.CalculateDemandForecast(history, leadTimeDays), nil
}

func (p *Planner) forecast(productID string, history []model.SalesObservation, horizon int) model.ForecastResult {
	if horizon < 0 {
		horizon = 0
	}
	key := cacheKey{productID: productID, history: hashHistory(history), horizon: horizon}
	if p.cache != nil {
		if res, ok := p.cache.Get(key); ok {
			p.metrics.CacheHits.Inc()
			return cloneResult(res)
		}
		p.metrics.CacheMisses.Inc()
	}

	res := p.engine.ForecastHistory(history, horizon)
	p.metrics.ForecastsTotal.WithLabelValues(string(res.Method)).Inc()
	if res.Synthetic {
		p.metrics.SyntheticTotal.Inc()
	}
	p.log.WithFields(logrus.Fields{
		"product_id": productID,
		"history":    len(history),
		"horizon":    horizon,
		"method":     res.Method,
		"synthetic":  res.Synthetic,
	}).Debug("forecast generated")

	// Synthetic and mock results carry random noise; caching them would pin
	// one draw for the TTL.
	if p.cache != nil && res.Method == model.MethodAR && !res.Synthetic {
		p.cache.Set(key, cloneResult(res))
	}
	return res
}

// history returns stored sales for productID. Missing history is empty
// when the product itself exists.
func (p *Planner) history(productID string) ([]model.SalesObservation, error) {
	obs, err := p.repo.GetSales(productID)
	if err == nil {
		return obs, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("loading sales %s: %w", productID, err)
	}
	if _, perr := p.repo.GetProduct(productID); perr != nil {
		return nil, perr
	}
	return nil, nil
}

// hashHistory fingerprints history in order, including undated rows.
func hashHistory(obs []model.SalesObservation) [sha256.Size]byte {
	h := sha256.New()
	var buf [16]byte
	for _, o := range obs {
		var ts int64
		if !o.IsUndated() {
			ts = o.Date.UnixNano()
		}
		binary.LittleEndian.PutUint64(buf[:8], uint64(ts))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(o.Quantity))
		h.Write(buf[:])
	}
	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

func cloneResult(r model.ForecastResult) model.ForecastResult {
	r.Forecast = append([]float64(nil), r.Forecast...)
	if r.Lower != nil {
		r.Lower = append([]float64(nil), r.Lower...)
		r.Upper = append([]float64(nil), r.Upper...)
	}
	return r
}

// ─── Plans ────────────────────────────────────────────────────────────────────

// Plan computes lead-time demand, recommendations and anomalies for a stored
// product and persists the run.
func (p *Planner) Plan(ctx context.Context, productID string) (model.PlanRun, error) {
	start := time.Now()
	run, err := p.plan(ctx, productID)
	p.metrics.PlanDuration.Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.metrics.PlansTotal.WithLabelValues(outcome).Inc()
	return run, err
}

func (p *Planner) plan(ctx context.Context, productID string) (model.PlanRun, error) {
	if err := ctx.Err(); err != nil {
		return model.PlanRun{}, err
	}
	prod, err := p.repo.GetProduct(productID)
	if err != nil {
		return model.PlanRun{}, err
	}
	history, err := p.repo.GetSales(productID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return model.PlanRun{}, fmt.Errorf("loading sales %s: %w", productID, err)
	}

	lead := prod.LeadTimeDays
	if lead <= 0 {
		lead = p.leadTime
	}
	demand := p.engine.CalculateDemandForecast(history, lead)

	anomalies := []model.Anomaly{}
	if ts := p.engine.Preparer().Prepare(history); !ts.Synthetic {
		anomalies = forecast.DetectAnomalies(ts, 0)
	}

	run := model.PlanRun{
		ID:              p.newID(),
		ProductID:       productID,
		GeneratedAt:     p.now(),
		CurrentStock:    prod.CurrentStock,
		LeadTimeDays:    lead,
		HistoryDays:     len(history),
		Demand:          demand,
		Recommendations: forecast.GenerateStockRecommendations(prod.CurrentStock, demand),
		Anomalies:       anomalies,
	}
	if err := p.repo.PutPlan(run); err != nil {
		return model.PlanRun{}, fmt.Errorf("storing plan %s: %w", productID, err)
	}

	p.log.WithFields(logrus.Fields{
		"product_id":      productID,
		"run_id":          run.ID,
		"reorder_point":   demand.ReorderPoint,
		"current_stock":   prod.CurrentStock,
		"recommendations": len(run.Recommendations),
	}).Info("plan stored")
	return run, nil
}

// PlanAll plans every product in ids concurrently, bounded by the configured
// concurrency. An empty ids plans every stored product. Successful runs are
// returned in input order; per-product failures are collected into a
// *util.MultiError and do not stop the batch. Cancelling ctx stops
// unstarted products.
func (p *Planner) PlanAll(ctx context.Context, ids []string) ([]model.PlanRun, error) {
	if len(ids) == 0 {
		prods, err := p.repo.ListProducts()
		if err != nil {
			return nil, fmt.Errorf("listing products: %w", err)
		}
		for _, pr := range prods {
			ids = append(ids, pr.ID)
		}
	}

	type result struct {
		run model.PlanRun
		err error
	}
	results := make([]result, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			run, err := p.Plan(gctx, id)
			results[i] = result{run: run, err: err}
			return nil
		})
	}
	_ = g.Wait()

	runs := make([]model.PlanRun, 0, len(ids))
	var errs util.MultiError
	for i, r := range results {
		if r.err != nil {
			errs.Add(fmt.Errorf("%s: %w", ids[i], r.err))
			continue
		}
		runs = append(runs, r.run)
	}
	return runs, errs.Err()
}

// History returns stored plan runs for productID, newest first.
func (p *Planner) History(productID string, limit int) ([]model.PlanRun, error) {
	return p.repo.ListPlans(productID, limit)
}
