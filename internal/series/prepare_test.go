package series_test

import (
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derickschaefer/stockcast/internal/model"
	"github.com/derickschaefer/stockcast/internal/series"
)

var day0 = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

func daily(values ...float64) []model.SalesObservation {
	out := make([]model.SalesObservation, len(values))
	for i, v := range values {
		out[i] = model.SalesObservation{Date: day0.AddDate(0, 0, i), Quantity: v}
	}
	return out
}

func seeded(seed uint64, opts series.Options) *series.Preparer {
	opts.Source = series.NewSeededSource(seed)
	return series.New(opts)
}

func TestPrepareSortsAndMaps(t *testing.T) {
	in := daily(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14)
	in[0], in[13] = in[13], in[0]
	in[4], in[7] = in[7], in[4]

	ts := seeded(1, series.Options{}).Prepare(in)
	require.Equal(t, 14, ts.Len())
	assert.False(t, ts.Synthetic)
	for i, p := range ts.Points {
		assert.Equal(t, float64(i+1), p.Value)
		assert.Equal(t, day0.AddDate(0, 0, i), p.Time)
	}
	// input untouched
	assert.Equal(t, 14.0, in[0].Quantity)
}

func TestPrepareMergesSameTimestamp(t *testing.T) {
	in := daily(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15)
	in = append(in, model.SalesObservation{Date: day0.AddDate(0, 0, 2), Quantity: 100})

	ts := seeded(1, series.Options{}).Prepare(in)
	require.Equal(t, 15, ts.Len())
	assert.Equal(t, 103.0, ts.Points[2].Value)
}

func TestPrepareClampsBadQuantities(t *testing.T) {
	vals := make([]float64, 14)
	for i := range vals {
		vals[i] = 5
	}
	vals[1] = -3
	vals[2] = math.NaN()
	vals[3] = math.Inf(1)

	ts := seeded(1, series.Options{}).Prepare(daily(vals...))
	require.False(t, ts.Synthetic)
	assert.Equal(t, []float64{5, 0, 0, 0}, ts.Values()[:4])
}

func TestPrepareUndatedUsesIndexOrder(t *testing.T) {
	in := make([]model.SalesObservation, 20)
	for i := range in {
		in[i] = model.SalesObservation{Quantity: float64(20 - i)}
	}
	ts := seeded(1, series.Options{}).Prepare(in)
	require.Equal(t, 20, ts.Len())
	assert.Equal(t, 20.0, ts.Points[0].Value)
	assert.Equal(t, 1.0, ts.Points[19].Value)
	assert.Equal(t, ts.Points[0].Time.AddDate(0, 0, 1), ts.Points[1].Time)
}

func TestPrepareShortHistoryFallsBack(t *testing.T) {
	for _, in := range [][]model.SalesObservation{nil, daily(7), daily(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13)} {
		ts := seeded(3, series.Options{}).Prepare(in)
		require.Equal(t, series.DefaultFallbackLength, ts.Len())
		assert.True(t, ts.Synthetic)
		for _, v := range ts.Values() {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, series.FallbackBaseLevel+series.FallbackAmplitude+series.FallbackNoise)
		}
	}
}

func TestPrepareFallbackEndsAtLastDate(t *testing.T) {
	ts := seeded(3, series.Options{}).Prepare(daily(4, 4, 4))
	last := ts.Points[ts.Len()-1].Time
	assert.Equal(t, day0.AddDate(0, 0, 2), last)
	assert.Equal(t, last.AddDate(0, 0, -(series.DefaultFallbackLength-1)), ts.Points[0].Time)
}

func TestPrepareHonoursOptions(t *testing.T) {
	p := seeded(5, series.Options{MinObservations: 3, FallbackLength: 9})
	assert.False(t, p.Prepare(daily(1, 2, 3)).Synthetic)
	ts := p.Prepare(daily(1, 2))
	assert.True(t, ts.Synthetic)
	assert.Equal(t, 9, ts.Len())
}

func TestPrepareFillGaps(t *testing.T) {
	in := []model.SalesObservation{
		{Date: day0, Quantity: 3},
		{Date: day0.AddDate(0, 0, 4), Quantity: 5},
	}
	p := seeded(1, series.Options{MinObservations: 5, FillGaps: true})
	ts := p.Prepare(in)
	require.False(t, ts.Synthetic)
	assert.Equal(t, []float64{3, 0, 0, 0, 5}, ts.Values())
}

func TestPrepareFillGapsTooLongKeepsRows(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	in := []model.SalesObservation{
		{Date: day0, Quantity: 3},
		{Date: day0.AddDate(0, 0, 4000), Quantity: 5},
	}
	p := series.New(series.Options{
		MinObservations: 2,
		FillGaps:        true,
		Source:          series.NewSeededSource(1),
		Logger:          log,
	})
	ts := p.Prepare(in)
	require.False(t, ts.Synthetic)
	assert.Equal(t, []float64{3, 5}, ts.Values())

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	assert.Equal(t, "prepare: gap filling skipped", hook.LastEntry().Message)
}

func TestSynthesizeIsReproducible(t *testing.T) {
	a := seeded(42, series.Options{}).Synthesize(30, day0)
	b := seeded(42, series.Options{}).Synthesize(30, day0)
	c := seeded(43, series.Options{}).Synthesize(30, day0)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a.Values(), c.Values())
}

func TestUniformRange(t *testing.T) {
	src := series.NewSeededSource(9)
	for i := 0; i < 1000; i++ {
		v := series.Uniform(src, 5)
		assert.GreaterOrEqual(t, v, -5.0)
		assert.Less(t, v, 5.0)
	}
}
