package model

import (
	"math"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
	"github.com/tvwenger/bayes-zeeman-hi/internal/physics"
)

// LogDensity returns the unnormalized log posterior of the standardized
// draws: log likelihood plus log prior.
func (m *Model) LogDensity(d ir.Draws) (float64, error) {
	e, err := m.Evaluate(d)
	if err != nil {
		return 0, err
	}
	return e.LogPosterior(), nil
}

// Gradient returns the log density and its gradient with respect to every
// standardized draw, in the shape of ir.Draws. Gradient-based samplers work
// in this unconstrained-scale space; the affine and scale transforms are
// differentiated in closed form.
func (m *Model) Gradient(d ir.Draws) (float64, ir.Draws, error) {
	p := m.spec.Priors
	clouds, leakage, err := transformValid(p, d, m.spec.Clouds)
	if err != nil {
		return 0, ir.Draws{}, err
	}
	chI := m.data[ir.KeyStokesI]
	chV := m.data[ir.KeyStokesV]
	f := runForward(chI.Spectral, chV.Spectral, clouds, leakage, m.spec.Tbg)

	// Sensitivities of the log likelihood to the summed optical depths.
	channels := len(chI.Spectral)
	dTauI := make([]float64, channels)
	dTauLCP := make([]float64, channels)
	dTauRCP := make([]float64, channels)
	var dLeakage float64
	for r := 0; r < channels; r++ {
		gI := (chI.Brightness[r] - f.stokes.I[r]) / (chI.Noise[r] * chI.Noise[r])
		gV := (chV.Brightness[r] - f.stokes.V[r]) / (chV.Noise[r] * chV.Noise[r])

		// Stokes I reaches the likelihood directly and through leakage into V.
		dTauI[r] = -f.stokes.I[r] * (gI + leakage*gV)
		dTauRCP[r] = -m.spec.Tbg * f.expRCP[r] * gV
		dTauLCP[r] = m.spec.Tbg * f.expLCP[r] * gV
		dLeakage += gV * f.stokes.I[r]
	}

	n := clouds.Len()
	grad := ir.Draws{
		TauTotalNorm:  make([]float64, n),
		FWHM2Norm:     make([]float64, n),
		VelocityNorm:  make([]float64, n),
		BparallelNorm: make([]float64, n),
	}
	halfZ := physics.ZeemanKmsPerMicroGauss / 2.0
	for k := 0; k < n; k++ {
		fwhm2 := clouds.FWHM2[k]
		tau := clouds.TauTotal[k]
		shift := physics.ZeemanShift(clouds.Bparallel[k])

		var dTau, dCenter, dFWHM2, dB float64
		accumulate := func(axis []float64, prof ir.Matrix, dT []float64, center float64) (dc float64) {
			for r, x := range axis {
				phi := prof.At(r, k)
				dx := x - center
				dTau += dT[r] * phi
				dFWHM2 += dT[r] * tau * phi * 4 * math.Ln2 * dx * dx / (fwhm2 * fwhm2)
				dc += dT[r] * tau * phi * 8 * math.Ln2 * dx / fwhm2
			}
			return dc
		}

		dCenter += accumulate(chI.Spectral, f.profI, dTauI, clouds.Velocity[k])
		dcL := accumulate(chV.Spectral, f.profLCP, dTauLCP, clouds.Velocity[k]+shift)
		dcR := accumulate(chV.Spectral, f.profRCP, dTauRCP, clouds.Velocity[k]-shift)
		dCenter += dcL + dcR
		dB = halfZ * (dcL - dcR)

		grad.TauTotalNorm[k] = dTau*p.TauTotal + physics.HalfNormalDLogPDF(d.TauTotalNorm[k])
		grad.FWHM2Norm[k] = dFWHM2*p.FWHM2 + physics.ChiSquared1DLogPDF(d.FWHM2Norm[k])
		grad.VelocityNorm[k] = dCenter*p.Velocity.Width() + physics.Beta22DLogPDF(d.VelocityNorm[k])
		grad.BparallelNorm[k] = dB*p.Bparallel.Width() + physics.Beta22DLogPDF(d.BparallelNorm[k])
	}
	grad.LeakageFractionNorm = dLeakage*p.LeakageFraction + physics.HalfNormalDLogPDF(d.LeakageFractionNorm)

	logDensity := LogLikelihood(f.stokes, m.data) + LogPrior(d)
	return logDensity, grad, nil
}
