package model

import (
	"fmt"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
)

// physical reads the registered physical quantities back from a trace.
func physical(t *Trace) (ir.Clouds, float64, error) {
	var c ir.Clouds
	fields := []struct {
		name string
		dst  *[]float64
	}{
		{NameTauTotal, &c.TauTotal},
		{NameFWHM2, &c.FWHM2},
		{NameVelocity, &c.Velocity},
		{NameBparallel, &c.Bparallel},
	}
	for _, f := range fields {
		v, err := t.Values(f.name)
		if err != nil {
			return ir.Clouds{}, 0, fmt.Errorf("priors not registered: %w", err)
		}
		*f.dst = v
	}

	leakage, err := t.Scalar(NameLeakageFraction)
	if err != nil {
		return ir.Clouds{}, 0, fmt.Errorf("priors not registered: %w", err)
	}
	return c, leakage, nil
}

// AddLikelihood predicts Stokes I and V from the quantities already
// registered on t and attaches the observation sites "I" and "V":
//
//	I_observed ~ Normal(I_predicted, noise_I)
//	V_observed ~ Normal(V_predicted, noise_V)
//
// AddPriors must have been called on t first.
func (m *Model) AddLikelihood(t *Trace) error {
	clouds, leakage, err := physical(t)
	if err != nil {
		return fmt.Errorf("add likelihood: %w", err)
	}

	chI := m.data[ir.KeyStokesI]
	chV := m.data[ir.KeyStokesV]
	stokes := Predict(chI.Spectral, chV.Spectral, clouds, leakage, m.spec.Tbg)

	sites := []Observation{
		{Name: ir.KeyStokesI, Mu: stokes.I, Sigma: chI.Noise, Observed: chI.Brightness},
		{Name: ir.KeyStokesV, Mu: stokes.V, Sigma: chV.Noise, Observed: chV.Brightness},
	}
	for _, o := range sites {
		if err := t.Observe(o); err != nil {
			return fmt.Errorf("add likelihood: %w", err)
		}
	}
	return nil
}

// LogLikelihood scores predicted spectra against the observed channels of
// data with independent Normal noise per channel.
func LogLikelihood(pred ir.Stokes, data ir.SpecData) float64 {
	chI := data[ir.KeyStokesI]
	chV := data[ir.KeyStokesV]

	obsI := Observation{Mu: pred.I, Sigma: chI.Noise, Observed: chI.Brightness}
	obsV := Observation{Mu: pred.V, Sigma: chV.Noise, Observed: chV.Brightness}
	return obsI.LogLikelihood() + obsV.LogLikelihood()
}
