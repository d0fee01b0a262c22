package model

import (
	"math"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
	"github.com/tvwenger/bayes-zeeman-hi/internal/physics"
)

// forward holds the intermediate arrays of one radiative-transfer pass.
// The gradient reuses them.
type forward struct {
	profI, profLCP, profRCP ir.Matrix // channel x cloud line profiles
	tauI, tauLCP, tauRCP    []float64 // optical depth summed over clouds
	expRCP, expLCP          []float64 // exp(-tau) per circular polarization
	stokes                  ir.Stokes
}

// Predict computes the Stokes I and Stokes V spectra of clouds stacked in
// front of a background of brightness temperature tbg.
//
// axisI and axisV are the spectral axes of the two products and must have
// the same length; Predict panics otherwise.
//
//	I = 2 Tbg exp(-sum_k tau_k phi_k)
//	V = Tbg (exp(-sum_k tau_k phi_k^RCP) - exp(-sum_k tau_k phi_k^LCP)) + leakage I
//
// where the LCP and RCP profiles are centred at velocity +/- z Bparallel / 2.
func Predict(axisI, axisV []float64, c ir.Clouds, leakage, tbg float64) ir.Stokes {
	return runForward(axisI, axisV, c, leakage, tbg).stokes
}

func runForward(axisI, axisV []float64, c ir.Clouds, leakage, tbg float64) *forward {
	if len(axisI) != len(axisV) {
		panic("model: Stokes I and V spectral axes differ in length")
	}

	n := c.Len()
	fwhm := make([]float64, n)
	centerLCP := make([]float64, n)
	centerRCP := make([]float64, n)
	for k := 0; k < n; k++ {
		fwhm[k] = math.Sqrt(c.FWHM2[k])
		shift := physics.ZeemanShift(c.Bparallel[k])
		centerLCP[k] = c.Velocity[k] + shift
		centerRCP[k] = c.Velocity[k] - shift
	}

	f := &forward{
		profI:   physics.LineProfile(axisI, c.Velocity, fwhm),
		profLCP: physics.LineProfile(axisV, centerLCP, fwhm),
		profRCP: physics.LineProfile(axisV, centerRCP, fwhm),
	}

	// Optical depth adds along the line of sight before attenuation.
	f.tauI = f.profI.ScaleCols(c.TauTotal).SumCols()
	f.tauLCP = f.profLCP.ScaleCols(c.TauTotal).SumCols()
	f.tauRCP = f.profRCP.ScaleCols(c.TauTotal).SumCols()

	channels := len(axisI)
	f.expLCP = make([]float64, channels)
	f.expRCP = make([]float64, channels)
	f.stokes = ir.Stokes{
		I: make([]float64, channels),
		V: make([]float64, channels),
	}
	for r := 0; r < channels; r++ {
		// tau >= 0, so exp only ever underflows toward 0.
		f.stokes.I[r] = 2.0 * tbg * math.Exp(-f.tauI[r])
		f.expLCP[r] = math.Exp(-f.tauLCP[r])
		f.expRCP[r] = math.Exp(-f.tauRCP[r])
		f.stokes.V[r] = tbg*(f.expRCP[r]-f.expLCP[r]) + leakage*f.stokes.I[r]
	}
	return f
}
