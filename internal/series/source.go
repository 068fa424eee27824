package series

import (
	"math/rand/v2"
	"sync"
)

// Source supplies uniform random numbers in [0, 1) for fallback synthesis.
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// DefaultSource returns a Source backed by the runtime's shared generator.
// It is safe for concurrent use and is not reproducible.
func DefaultSource() Source {
	return globalSource{}
}

// LockedSource is a seeded Source that is safe for concurrent use.
type LockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeededSource returns a reproducible Source for the given seed.
func NewSeededSource(seed uint64) *LockedSource {
	return &LockedSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *LockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// Uniform returns a value drawn uniformly from [-halfWidth, halfWidth).
func Uniform(src Source, halfWidth float64) float64 {
	return (src.Float64()*2 - 1) * halfWidth
}
