package forecast

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ar1(r *rand.Rand, n int, phi float64) []float64 {
	out := make([]float64, n)
	for i := 1; i < n; i++ {
		out[i] = phi*out[i-1] + r.NormFloat64()
	}
	return out
}

func TestBurgRecoversAR1Coefficient(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	x := ar1(r, 2000, 0.6)

	phi, err := burg(x, 1)
	require.NoError(t, err)
	require.Len(t, phi, 1)
	assert.InDelta(t, 0.6, phi[0], 0.06)
}

func TestBurgHigherOrderOnAR1LeavesSmallTail(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	x := ar1(r, 3000, -0.5)

	phi, err := burg(x, ModelOrder)
	require.NoError(t, err)
	require.Len(t, phi, ModelOrder)
	assert.InDelta(t, -0.5, phi[0], 0.08)
	for _, c := range phi[1:] {
		assert.Less(t, math.Abs(c), 0.1)
	}
}

func TestBurgZeroEnergyGivesZeroCoefficients(t *testing.T) {
	phi, err := burg(make([]float64, 12), ModelOrder)
	require.NoError(t, err)
	assert.Equal(t, make([]float64, ModelOrder), phi)
}

func TestFitModelRejectsShortAndNonFinite(t *testing.T) {
	_, err := fitModel([]float64{1, 2, 3}, ModelOrder)
	assert.True(t, errors.Is(err, ErrInsufficientHistory))

	_, err = fitModel([]float64{1, 2, math.Inf(1), 4, 5, 6, 7}, ModelOrder)
	assert.True(t, errors.Is(err, errNonFinite))
}

func TestFitModelOnLineHasNoAutoregression(t *testing.T) {
	vals := make([]float64, 20)
	for i := range vals {
		vals[i] = 3 + 2*float64(i)
	}
	m, err := fitModel(vals, ModelOrder)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, m.slope, 1e-9)
	assert.InDelta(t, 3.0, m.intercept, 1e-9)
	assert.Equal(t, make([]float64, ModelOrder), m.phi)
	assert.Zero(t, m.sigma)

	out, err := m.project(3)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{43, 45, 47}, out, 1e-9)
}

func TestProjectClampsAtZero(t *testing.T) {
	vals := make([]float64, 20)
	for i := range vals {
		vals[i] = 40 - 2*float64(i)
	}
	m, err := fitModel(vals, ModelOrder)
	require.NoError(t, err)
	out, err := m.project(10)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, out[0], 1e-9)
	for _, v := range out {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}
