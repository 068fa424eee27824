package planner_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derickschaefer/stockcast/internal/forecast"
	"github.com/derickschaefer/stockcast/internal/model"
	"github.com/derickschaefer/stockcast/internal/planner"
	"github.com/derickschaefer/stockcast/internal/series"
	"github.com/derickschaefer/stockcast/internal/store"
	"github.com/derickschaefer/stockcast/internal/util"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

var (
	day0  = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	fixed = time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newPlanner(t *testing.T, s *store.Store, opts planner.Options) *planner.Planner {
	t.Helper()
	opts.Repo = s
	if opts.Engine == nil {
		opts.Engine = forecast.New(forecast.Options{Source: series.NewSeededSource(1)})
	}
	var n atomic.Int64
	opts.NewID = func() string { return fmt.Sprintf("run-%d", n.Add(1)) }
	opts.Now = func() time.Time { return fixed }
	p, err := planner.New(opts)
	require.NoError(t, err)
	return p
}

func flat(v float64, n int) []model.SalesObservation {
	out := make([]model.SalesObservation, n)
	for i := range out {
		out[i] = model.SalesObservation{Date: day0.AddDate(0, 0, i), Quantity: v}
	}
	return out
}

func seed(t *testing.T, s *store.Store, p model.Product, sales []model.SalesObservation) {
	t.Helper()
	require.NoError(t, s.PutProduct(p))
	if sales != nil {
		require.NoError(t, s.PutSales(p.ID, sales))
	}
}

// ─── New ──────────────────────────────────────────────────────────────────────

func TestNewRequiresEngineAndRepo(t *testing.T) {
	_, err := planner.New(planner.Options{})
	assert.Error(t, err)
}

// ─── Forecast ─────────────────────────────────────────────────────────────────

func TestForecastUnknownProduct(t *testing.T) {
	p := newPlanner(t, testStore(t), planner.Options{})
	_, err := p.Forecast(context.Background(), "ghost", 7)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestForecastProductWithoutSalesIsSynthetic(t *testing.T) {
	s := testStore(t)
	seed(t, s, model.Product{ID: "sku-1"}, nil)
	p := newPlanner(t, s, planner.Options{})

	res, err := p.Forecast(context.Background(), "sku-1", 10)
	require.NoError(t, err)
	assert.True(t, res.Synthetic)
	assert.Len(t, res.Forecast, 10)
}

func TestForecastCachesByHistory(t *testing.T) {
	s := testStore(t)
	seed(t, s, model.Product{ID: "sku-1"}, flat(10, 30))
	p := newPlanner(t, s, planner.Options{CacheSize: 16, CacheTTL: time.Minute})
	ctx := context.Background()

	a, err := p.Forecast(ctx, "sku-1", 7)
	require.NoError(t, err)
	a.Forecast[0] = -1 // callers may not corrupt the cache

	b, err := p.Forecast(ctx, "sku-1", 7)
	require.NoError(t, err)
	assert.Equal(t, 10.0, b.Forecast[0])

	st, ok := p.CacheStats()
	require.True(t, ok)
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)

	// New history means a new key.
	_, err = s.AppendSales("sku-1", []model.SalesObservation{{Date: day0.AddDate(0, 0, 30), Quantity: 11}})
	require.NoError(t, err)
	_, err = p.Forecast(ctx, "sku-1", 7)
	require.NoError(t, err)
	st, _ = p.CacheStats()
	assert.Equal(t, uint64(2), st.Misses)

	// So does a different horizon.
	_, _ = p.Forecast(ctx, "sku-1", 8)
	st, _ = p.CacheStats()
	assert.Equal(t, uint64(3), st.Misses)
}

func TestSweepCacheDropsExpiredForecasts(t *testing.T) {
	s := testStore(t)
	seed(t, s, model.Product{ID: "sku-1"}, flat(10, 30))
	p := newPlanner(t, s, planner.Options{CacheSize: 16, CacheTTL: time.Millisecond})

	_, err := p.Forecast(context.Background(), "sku-1", 7)
	require.NoError(t, err)
	st, _ := p.CacheStats()
	require.Equal(t, 1, st.Size)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, p.SweepCache())
	st, _ = p.CacheStats()
	assert.Equal(t, 0, st.Size)
}

func TestForecastWithoutCache(t *testing.T) {
	s := testStore(t)
	seed(t, s, model.Product{ID: "sku-1"}, flat(10, 30))
	p := newPlanner(t, s, planner.Options{})
	_, ok := p.CacheStats()
	assert.False(t, ok)
	assert.Equal(t, 0, p.SweepCache())
	res, err := p.Forecast(context.Background(), "sku-1", 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 10, 10}, res.Forecast)
}

func TestForecastHonoursCancelledContext(t *testing.T) {
	p := newPlanner(t, testStore(t), planner.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.ForecastHistory(ctx, flat(1, 20), 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDemandDefaultsLeadTime(t *testing.T) {
	p := newPlanner(t, testStore(t), planner.Options{DefaultLeadTimeDays: 4})
	d, err := p.Demand(context.Background(), flat(10, 30), 0)
	require.NoError(t, err)
	assert.Equal(t, 40, d.TotalDemand)
}

// ─── Plan ─────────────────────────────────────────────────────────────────────

func TestPlanStoresRun(t *testing.T) {
	s := testStore(t)
	seed(t, s, model.Product{ID: "sku-1", CurrentStock: 5, LeadTimeDays: 7}, flat(10, 30))
	p := newPlanner(t, s, planner.Options{})

	run, err := p.Plan(context.Background(), "sku-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, fixed, run.GeneratedAt)
	assert.Equal(t, 30, run.HistoryDays)
	assert.Equal(t, 70, run.Demand.TotalDemand)
	assert.Equal(t, 105, run.Demand.ReorderPoint)
	require.Len(t, run.Recommendations, 1)
	assert.Equal(t, model.RecommendReorder, run.Recommendations[0].Type)
	assert.Contains(t, run.Recommendations[0].Message, "100 units")
	assert.Empty(t, run.Anomalies)

	hist, err := p.History("sku-1", 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "run-1", hist[0].ID)
}

func TestPlanUsesDefaultLeadTime(t *testing.T) {
	s := testStore(t)
	seed(t, s, model.Product{ID: "sku-1", CurrentStock: 100}, flat(10, 30))
	p := newPlanner(t, s, planner.Options{DefaultLeadTimeDays: 3})

	run, err := p.Plan(context.Background(), "sku-1")
	require.NoError(t, err)
	assert.Equal(t, 3, run.LeadTimeDays)
	assert.Equal(t, 30, run.Demand.TotalDemand)
	assert.Empty(t, run.Recommendations)
}

func TestPlanFlagsAnomalies(t *testing.T) {
	s := testStore(t)
	sales := flat(10, 30)
	sales[20].Quantity = 200
	seed(t, s, model.Product{ID: "sku-1", CurrentStock: 1000, LeadTimeDays: 7}, sales)
	p := newPlanner(t, s, planner.Options{})

	run, err := p.Plan(context.Background(), "sku-1")
	require.NoError(t, err)
	require.Len(t, run.Anomalies, 1)
	assert.Equal(t, "spike", run.Anomalies[0].Direction)
	assert.Equal(t, day0.AddDate(0, 0, 20), run.Anomalies[0].Date)
}

func TestPlanUnknownProduct(t *testing.T) {
	p := newPlanner(t, testStore(t), planner.Options{})
	_, err := p.Plan(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// ─── PlanAll ──────────────────────────────────────────────────────────────────

func TestPlanAllCollectsErrorsAndKeepsOrder(t *testing.T) {
	s := testStore(t)
	for _, id := range []string{"a", "b", "c"} {
		seed(t, s, model.Product{ID: id, CurrentStock: 50, LeadTimeDays: 7}, flat(10, 30))
	}
	p := newPlanner(t, s, planner.Options{Concurrency: 2})

	runs, err := p.PlanAll(context.Background(), []string{"c", "ghost", "a", "b"})
	require.Len(t, runs, 3)
	assert.Equal(t, "c", runs[0].ProductID)
	assert.Equal(t, "a", runs[1].ProductID)
	assert.Equal(t, "b", runs[2].ProductID)

	var me *util.MultiError
	require.ErrorAs(t, err, &me)
	require.Len(t, me.Errors, 1)
	assert.Contains(t, me.Errors[0].Error(), "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPlanAllDefaultsToEveryProduct(t *testing.T) {
	s := testStore(t)
	for _, id := range []string{"x", "y"} {
		seed(t, s, model.Product{ID: id, LeadTimeDays: 2}, flat(5, 20))
	}
	p := newPlanner(t, s, planner.Options{})

	runs, err := p.PlanAll(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "x", runs[0].ProductID)
	assert.Equal(t, "y", runs[1].ProductID)
}

func TestPlanAllCancelled(t *testing.T) {
	s := testStore(t)
	seed(t, s, model.Product{ID: "a"}, flat(5, 20))
	p := newPlanner(t, s, planner.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runs, err := p.PlanAll(ctx, []string{"a"})
	assert.Empty(t, runs)
	assert.ErrorIs(t, err, context.Canceled)
}
