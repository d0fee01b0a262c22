// Package sampler draws standardized model variables from their priors.
//
// Draws feed prior-predictive checks and seed the engine's batch
// evaluations; inference itself is left to external samplers.
package sampler

import (
	"math"
	"math/rand"
	"sort"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
)

// Sampler produces ir.Draws for a fixed number of clouds.
//
// # Determinism
//
// A Sampler is deterministic with respect to its seed: two samplers built
// with the same seed and cloud count return the same sequence of draws.
// Within one ir.Draws, values are generated cloud by cloud in the order
// tau_total, fwhm2, velocity, Bparallel, followed by leakage_fraction.
//
// A Sampler is not safe for concurrent use.
type Sampler struct {
	rng    *rand.Rand
	clouds int
}

// New creates a sampler for the given cloud count and seed.
func New(clouds int, seed int64) *Sampler {
	return NewWithRng(clouds, rand.New(rand.NewSource(seed)))
}

// NewWithRng creates a sampler over a caller-provided random source.
func NewWithRng(clouds int, rng *rand.Rand) *Sampler {
	return &Sampler{rng: rng, clouds: clouds}
}

// Next returns one set of draws.
func (s *Sampler) Next() ir.Draws {
	d := ir.Draws{
		TauTotalNorm:  make([]float64, s.clouds),
		FWHM2Norm:     make([]float64, s.clouds),
		VelocityNorm:  make([]float64, s.clouds),
		BparallelNorm: make([]float64, s.clouds),
	}
	for k := 0; k < s.clouds; k++ {
		d.TauTotalNorm[k] = s.halfNormal()
		d.FWHM2Norm[k] = s.chiSquared1()
		d.VelocityNorm[k] = s.beta22()
		d.BparallelNorm[k] = s.beta22()
	}
	d.LeakageFractionNorm = s.halfNormal()
	return d
}

// Draw returns n sets of draws.
func (s *Sampler) Draw(n int) []ir.Draws {
	out := make([]ir.Draws, n)
	for i := range out {
		out[i] = s.Next()
	}
	return out
}

// halfNormal samples |N(0, 1)|.
func (s *Sampler) halfNormal() float64 {
	return math.Abs(s.rng.NormFloat64())
}

// chiSquared1 samples the square of a standard normal. Zero lies outside
// the support, so it is redrawn.
func (s *Sampler) chiSquared1() float64 {
	for {
		z := s.rng.NormFloat64()
		if x := z * z; x > 0 {
			return x
		}
	}
}

// beta22 samples Beta(2, 2) as the median of three uniforms.
func (s *Sampler) beta22() float64 {
	u := []float64{s.rng.Float64(), s.rng.Float64(), s.rng.Float64()}
	sort.Float64s(u)
	return u[1]
}
