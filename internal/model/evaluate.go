package model

import (
	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
)

// Evaluation is the outcome of one forward-model evaluation.
type Evaluation struct {
	Draws           ir.Draws
	Clouds          ir.Clouds
	LeakageFraction float64
	Predicted       ir.Stokes
	LogLikelihood   float64
	LogPrior        float64
	Trace           *Trace
}

// LogPosterior returns the unnormalized log posterior density.
func (e *Evaluation) LogPosterior() float64 {
	return e.LogLikelihood + e.LogPrior
}

// Evaluate registers priors and likelihood on a fresh trace and collects
// the results. Evaluate is deterministic: the same draws always produce
// bit-identical results.
func (m *Model) Evaluate(d ir.Draws) (*Evaluation, error) {
	t := NewTrace()
	if err := m.AddPriors(t, d); err != nil {
		return nil, err
	}
	if err := m.AddLikelihood(t); err != nil {
		return nil, err
	}

	clouds, leakage, err := physical(t)
	if err != nil {
		return nil, err
	}
	obsI, _ := t.Observation(ir.KeyStokesI)
	obsV, _ := t.Observation(ir.KeyStokesV)

	return &Evaluation{
		Draws:           d,
		Clouds:          clouds,
		LeakageFraction: leakage,
		Predicted:       ir.Stokes{I: obsI.Mu, V: obsV.Mu},
		LogLikelihood:   t.LogLikelihood(),
		LogPrior:        LogPrior(d),
		Trace:           t,
	}, nil
}
