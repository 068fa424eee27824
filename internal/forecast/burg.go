package forecast

import (
	"errors"
	"fmt"
	"math"
)

// ErrInsufficientHistory is returned when a series is too short to fit.
var ErrInsufficientHistory = errors.New("insufficient history")

// errNonFinite marks NaN or Inf values in input, coefficients or projection.
var errNonFinite = errors.New("non-finite value")

// residualFloor is the residual energy, relative to the raw series energy,
// below which the detrended series is treated as noise-free.
const residualFloor = 1e-12

// arModel is an autoregression fitted to a series with its OLS line removed.
// Projections continue the line and add the recursively predicted residual.
type arModel struct {
	phi       []float64 // x̂[t] = Σ phi[i] * x[t-1-i]
	slope     float64
	intercept float64
	resid     []float64
	sigma     float64 // one-step in-sample residual RMS
}

// fitModel detrends values and estimates order AR coefficients with Burg's
// method.
func fitModel(values []float64, order int) (*arModel, error) {
	n := len(values)
	if n < order+1 {
		return nil, fmt.Errorf("fit: %w: need %d points, got %d", ErrInsufficientHistory, order+1, n)
	}
	var energy float64
	for _, v := range values {
		if !finite(v) {
			return nil, fmt.Errorf("fit: input: %w", errNonFinite)
		}
		energy += v * v
	}

	slope, intercept := linearFit(values)
	resid := make([]float64, n)
	var residEnergy float64
	for i, v := range values {
		resid[i] = v - (intercept + slope*float64(i))
		residEnergy += resid[i] * resid[i]
	}

	m := &arModel{slope: slope, intercept: intercept, resid: resid}
	if residEnergy <= residualFloor*(energy+1) {
		m.phi = make([]float64, order)
		return m, nil
	}

	phi, err := burg(resid, order)
	if err != nil {
		return nil, err
	}
	m.phi = phi
	m.sigma = m.oneStepRMS()
	if !finite(m.sigma) {
		return nil, fmt.Errorf("fit: residual spread: %w", errNonFinite)
	}
	return m, nil
}

// burg estimates AR prediction coefficients by Burg's maximum-entropy
// recursion, minimising forward and backward prediction error together.
// The recursion stops early once the error energy is exhausted; the
// remaining coefficients stay zero.
func burg(x []float64, order int) ([]float64, error) {
	last := len(x) - 1
	f := append([]float64(nil), x...)
	b := append([]float64(nil), x...)
	a := make([]float64, order+1)
	a[0] = 1

	var dk float64
	for _, v := range f {
		dk += 2 * v * v
	}
	dk -= f[0]*f[0] + b[last]*b[last]
	floor := dk * residualFloor

	for k := 0; k < order; k++ {
		if dk <= floor || dk <= 0 {
			break
		}
		var mu float64
		for j := 0; j <= last-k-1; j++ {
			mu += f[j+k+1] * b[j]
		}
		mu *= -2 / dk
		if !finite(mu) {
			return nil, fmt.Errorf("burg: reflection coefficient %d: %w", k+1, errNonFinite)
		}

		for j := 0; j <= (k+1)/2; j++ {
			t1 := a[j] + mu*a[k+1-j]
			t2 := a[k+1-j] + mu*a[j]
			a[j] = t1
			a[k+1-j] = t2
		}
		for j := 0; j <= last-k-1; j++ {
			t1 := f[j+k+1] + mu*b[j]
			t2 := b[j] + mu*f[j+k+1]
			f[j+k+1] = t1
			b[j] = t2
		}
		dk = (1-mu*mu)*dk - f[k+1]*f[k+1] - b[last-k-1]*b[last-k-1]
	}

	phi := make([]float64, order)
	for i := 1; i <= order; i++ {
		if !finite(a[i]) {
			return nil, fmt.Errorf("burg: coefficient %d: %w", i, errNonFinite)
		}
		phi[i-1] = -a[i]
	}
	return phi, nil
}

// predict applies phi to the trailing window of hist.
func (m *arModel) predict(hist []float64) float64 {
	var r float64
	for i, c := range m.phi {
		idx := len(hist) - 1 - i
		if idx < 0 {
			break
		}
		r += c * hist[idx]
	}
	return r
}

// project returns horizon future values, clamped at zero.
func (m *arModel) project(horizon int) ([]float64, error) {
	out := make([]float64, horizon)
	hist := make([]float64, len(m.resid), len(m.resid)+horizon)
	copy(hist, m.resid)
	n := len(m.resid)
	for s := 0; s < horizon; s++ {
		r := m.predict(hist)
		hist = append(hist, r)
		v := m.intercept + m.slope*float64(n+s) + r
		if !finite(v) {
			return nil, fmt.Errorf("project: step %d: %w", s+1, errNonFinite)
		}
		out[s] = math.Max(0, v)
	}
	return out, nil
}

// oneStepRMS is the root mean square of in-sample one-step prediction errors.
func (m *arModel) oneStepRMS() float64 {
	p := len(m.phi)
	if len(m.resid) <= p {
		return 0
	}
	var sq float64
	for t := p; t < len(m.resid); t++ {
		e := m.resid[t] - m.predict(m.resid[:t])
		sq += e * e
	}
	return math.Sqrt(sq / float64(len(m.resid)-p))
}

// band returns a symmetric prediction band of z·σ·√h around forecast,
// with the lower edge clamped at zero.
func (m *arModel) band(forecast []float64, z float64) (lower, upper []float64) {
	lower = make([]float64, len(forecast))
	upper = make([]float64, len(forecast))
	for h, v := range forecast {
		w := z * m.sigma * math.Sqrt(float64(h+1))
		lower[h] = math.Max(0, v-w)
		upper[h] = v + w
	}
	return lower, upper
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
