package model

import (
	"fmt"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
	"github.com/tvwenger/bayes-zeeman-hi/internal/physics"
)

// ValidateDraws checks that every per-cloud draw has n elements and every
// value lies in the support of its prior:
//
//	tau_total_norm, leakage_fraction_norm  HalfNormal  [0, inf)
//	fwhm2_norm                             ChiSquared  (0, inf)
//	velocity_norm, Bparallel_norm          Beta(2,2)   [0, 1]
//
// Values are never clipped; the first violation is returned as *DrawError.
func ValidateDraws(d ir.Draws, n int) error {
	perCloud := []struct {
		name   string
		values []float64
		ok     func(float64) bool
		want   string
	}{
		{NormName(NameTauTotal), d.TauTotalNorm, nonNegative, "must be finite and >= 0"},
		{NormName(NameFWHM2), d.FWHM2Norm, positive, "must be finite and > 0"},
		{NormName(NameVelocity), d.VelocityNorm, unitInterval, "must lie in [0, 1]"},
		{NormName(NameBparallel), d.BparallelNorm, unitInterval, "must lie in [0, 1]"},
	}

	for _, p := range perCloud {
		if len(p.values) != n {
			return &DrawError{
				Name:    p.name,
				Index:   -1,
				Message: fmt.Sprintf("expected %d values, got %d", n, len(p.values)),
			}
		}
		for i, v := range p.values {
			if !p.ok(v) {
				return &DrawError{Name: p.name, Index: i, Value: v, Message: p.want}
			}
		}
	}

	if !nonNegative(d.LeakageFractionNorm) {
		return &DrawError{
			Name:    NormName(NameLeakageFraction),
			Index:   -1,
			Value:   d.LeakageFractionNorm,
			Message: "must be finite and >= 0",
		}
	}
	return nil
}

func nonNegative(x float64) bool  { return finite(x) && x >= 0 }
func positive(x float64) bool     { return finite(x) && x > 0 }
func unitInterval(x float64) bool { return x >= 0 && x <= 1 }

// Transform maps validated standardized draws to physical cloud parameters
// and the leakage fraction:
//
//	tau_total        = prior_tau_total * tau_total_norm
//	fwhm2            = prior_fwhm2 * fwhm2_norm
//	velocity         = lo + (hi - lo) * velocity_norm
//	Bparallel        = lo + (hi - lo) * Bparallel_norm
//	leakage_fraction = prior_leakage_fraction * leakage_fraction_norm
func Transform(p ir.Priors, d ir.Draws) (ir.Clouds, float64) {
	n := len(d.TauTotalNorm)
	c := ir.Clouds{
		TauTotal:  make([]float64, n),
		FWHM2:     make([]float64, n),
		Velocity:  make([]float64, n),
		Bparallel: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		c.TauTotal[i] = p.TauTotal * d.TauTotalNorm[i]
		c.FWHM2[i] = p.FWHM2 * d.FWHM2Norm[i]
		c.Velocity[i] = Affine(p.Velocity, d.VelocityNorm[i])
		c.Bparallel[i] = Affine(p.Bparallel, d.BparallelNorm[i])
	}
	return c, p.LeakageFraction * d.LeakageFractionNorm
}

// ValidateClouds checks the physical parameters produced by Transform. A
// valid draw can still underflow fwhm2 to zero or overflow tau_total and the
// leakage fraction to +Inf; those are reported as *DrawError under the
// physical quantity's name.
func ValidateClouds(c ir.Clouds, leakage float64) error {
	perCloud := []struct {
		name   string
		values []float64
		ok     func(float64) bool
		want   string
	}{
		{NameTauTotal, c.TauTotal, nonNegative, "must be finite and >= 0"},
		{NameFWHM2, c.FWHM2, positive, "must be finite and > 0"},
		{NameVelocity, c.Velocity, finite, "must be finite"},
		{NameBparallel, c.Bparallel, finite, "must be finite"},
	}
	for _, p := range perCloud {
		for i, v := range p.values {
			if !p.ok(v) {
				return &DrawError{Name: p.name, Index: i, Value: v, Message: p.want}
			}
		}
	}
	if !nonNegative(leakage) {
		return &DrawError{Name: NameLeakageFraction, Index: -1, Value: leakage, Message: "must be finite and >= 0"}
	}
	return nil
}

// transformValid runs ValidateDraws, Transform and ValidateClouds.
func transformValid(p ir.Priors, d ir.Draws, n int) (ir.Clouds, float64, error) {
	if err := ValidateDraws(d, n); err != nil {
		return ir.Clouds{}, 0, err
	}
	clouds, leakage := Transform(p, d)
	if err := ValidateClouds(clouds, leakage); err != nil {
		return ir.Clouds{}, 0, err
	}
	return clouds, leakage, nil
}

// Affine maps u in [0, 1] onto b as lo + (hi - lo) * u.
//
// The upper half is evaluated from hi downwards so that both endpoints are
// reproduced exactly and rounding can never leave [lo, hi], even when lo and
// hi are adjacent floats. The derivative is hi - lo everywhere.
func Affine(b ir.Bounds, u float64) float64 {
	w := b.Width()
	if u <= 0.5 {
		return b.Lo + w*u
	}
	return b.Hi - w*(1-u)
}

// Untransform is the inverse of Transform. It lets callers state a
// configuration in physical units; the result still has to pass
// ValidateDraws.
func Untransform(p ir.Priors, c ir.Clouds, leakage float64) ir.Draws {
	n := c.Len()
	d := ir.Draws{
		TauTotalNorm:        make([]float64, n),
		FWHM2Norm:           make([]float64, n),
		VelocityNorm:        make([]float64, n),
		BparallelNorm:       make([]float64, n),
		LeakageFractionNorm: leakage / p.LeakageFraction,
	}
	for i := 0; i < n; i++ {
		d.TauTotalNorm[i] = c.TauTotal[i] / p.TauTotal
		d.FWHM2Norm[i] = c.FWHM2[i] / p.FWHM2
		d.VelocityNorm[i] = (c.Velocity[i] - p.Velocity.Lo) / p.Velocity.Width()
		d.BparallelNorm[i] = (c.Bparallel[i] - p.Bparallel.Lo) / p.Bparallel.Width()
	}
	return d
}

// LogPrior is the joint log density of the standardized draws under their
// priors. It assumes the draws passed ValidateDraws; Beta draws at exactly 0
// or 1 give -Inf.
func LogPrior(d ir.Draws) float64 {
	var lp float64
	for i := range d.TauTotalNorm {
		lp += physics.HalfNormalLogPDF(d.TauTotalNorm[i])
		lp += physics.ChiSquared1LogPDF(d.FWHM2Norm[i])
		lp += physics.Beta22LogPDF(d.VelocityNorm[i])
		lp += physics.Beta22LogPDF(d.BparallelNorm[i])
	}
	return lp + physics.HalfNormalLogPDF(d.LeakageFractionNorm)
}

// AddPriors validates the draws and the physical parameters they transform
// to, then registers every draw and physical quantity on t. Per-cloud quantities carry the "cloud" dim.
func (m *Model) AddPriors(t *Trace, d ir.Draws) error {
	clouds, leakage, err := transformValid(m.spec.Priors, d, m.spec.Clouds)
	if err != nil {
		return err
	}

	cloudDims := []string{DimCloud}

	sites := []Quantity{
		{Name: NormName(NameTauTotal), Kind: KindFree, Dims: cloudDims, Values: d.TauTotalNorm},
		{Name: NameTauTotal, Kind: KindDeterministic, Dims: cloudDims, Values: clouds.TauTotal},
		{Name: NormName(NameFWHM2), Kind: KindFree, Dims: cloudDims, Values: d.FWHM2Norm},
		{Name: NameFWHM2, Kind: KindDeterministic, Dims: cloudDims, Values: clouds.FWHM2},
		{Name: NormName(NameVelocity), Kind: KindFree, Dims: cloudDims, Values: d.VelocityNorm},
		{Name: NameVelocity, Kind: KindDeterministic, Dims: cloudDims, Values: clouds.Velocity},
		{Name: NormName(NameBparallel), Kind: KindFree, Dims: cloudDims, Values: d.BparallelNorm},
		{Name: NameBparallel, Kind: KindDeterministic, Dims: cloudDims, Values: clouds.Bparallel},
		{Name: NormName(NameLeakageFraction), Kind: KindFree, Values: []float64{d.LeakageFractionNorm}},
		{Name: NameLeakageFraction, Kind: KindDeterministic, Values: []float64{leakage}},
	}
	for _, q := range sites {
		if err := t.Register(q); err != nil {
			return fmt.Errorf("add priors: %w", err)
		}
	}
	return nil
}
