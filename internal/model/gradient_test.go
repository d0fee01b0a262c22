package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
	"github.com/tvwenger/bayes-zeeman-hi/internal/testutil"
)

// twoCloudModel fits data generated from clouds that differ from the draws
// used in the checks below, so every residual is non-zero.
func twoCloudModel(t *testing.T) *Model {
	t.Helper()
	axis := testutil.Axis(-12, 12, 49)
	truth := ir.Clouds{
		TauTotal:  []float64{0.9, 0.4},
		FWHM2:     []float64{16, 9},
		Velocity:  []float64{-2.5, 3},
		Bparallel: []float64{8, -5},
	}
	tbg := 6.0
	pred := Predict(axis, axis, truth, 0.004, tbg)
	for r := range axis {
		pred.I[r] += 0.03 * math.Sin(float64(r))
		pred.V[r] += 0.002 * math.Cos(float64(r))
	}

	spec := ir.ModelSpec{Name: "two", Clouds: 2, Tbg: tbg, Priors: ir.DefaultPriors()}
	spec.Priors.FWHM2 = 20
	return newModel(t, spec, testutil.SpecData(axis, pred.I, pred.V, 0.1))
}

func gradientDraws() ir.Draws {
	return ir.Draws{
		TauTotalNorm:        []float64{0.7, 0.55},
		FWHM2Norm:           []float64{0.9, 0.35},
		VelocityNorm:        []float64{0.4, 0.62},
		BparallelNorm:       []float64{0.58, 0.41},
		LeakageFractionNorm: 0.6,
	}
}

func cloneDraws(d ir.Draws) ir.Draws {
	return ir.Draws{
		TauTotalNorm:        append([]float64(nil), d.TauTotalNorm...),
		FWHM2Norm:           append([]float64(nil), d.FWHM2Norm...),
		VelocityNorm:        append([]float64(nil), d.VelocityNorm...),
		BparallelNorm:       append([]float64(nil), d.BparallelNorm...),
		LeakageFractionNorm: d.LeakageFractionNorm,
	}
}

func TestGradient_MatchesFiniteDifferences(t *testing.T) {
	m := twoCloudModel(t)
	d := gradientDraws()

	_, grad, err := m.Gradient(d)
	require.NoError(t, err)

	const h = 1e-6
	central := func(set func(ir.Draws, float64)) float64 {
		plus, minus := cloneDraws(d), cloneDraws(d)
		set(plus, h)
		set(minus, -h)
		fp, err := m.LogDensity(plus)
		require.NoError(t, err)
		fm, err := m.LogDensity(minus)
		require.NoError(t, err)
		return (fp - fm) / (2 * h)
	}
	check := func(name string, analytic, numeric float64) {
		tol := 1e-4 * math.Max(1, math.Abs(numeric))
		assert.InDelta(t, numeric, analytic, tol, name)
	}

	perCloud := []struct {
		name string
		grad []float64
		get  func(ir.Draws) []float64
	}{
		{NormName(NameTauTotal), grad.TauTotalNorm, func(x ir.Draws) []float64 { return x.TauTotalNorm }},
		{NormName(NameFWHM2), grad.FWHM2Norm, func(x ir.Draws) []float64 { return x.FWHM2Norm }},
		{NormName(NameVelocity), grad.VelocityNorm, func(x ir.Draws) []float64 { return x.VelocityNorm }},
		{NormName(NameBparallel), grad.BparallelNorm, func(x ir.Draws) []float64 { return x.BparallelNorm }},
	}
	for _, p := range perCloud {
		for k := range p.grad {
			numeric := central(func(x ir.Draws, step float64) { p.get(x)[k] += step })
			check(p.name, p.grad[k], numeric)
		}
	}

	numeric := central(func(x ir.Draws, step float64) { x.LeakageFractionNorm += step })
	check(NormName(NameLeakageFraction), grad.LeakageFractionNorm, numeric)
}

func TestGradient_ValueMatchesLogDensity(t *testing.T) {
	m := twoCloudModel(t)
	d := gradientDraws()

	value, _, err := m.Gradient(d)
	require.NoError(t, err)
	want, err := m.LogDensity(d)
	require.NoError(t, err)
	assert.InDelta(t, want, value, 1e-9)
}

func TestGradient_FieldIrrelevantWithoutAbsorption(t *testing.T) {
	m := twoCloudModel(t)
	d := gradientDraws()
	d.TauTotalNorm = []float64{0, 0}

	_, grad, err := m.Gradient(d)
	require.NoError(t, err)

	// Only the Beta(2,2) prior term survives at u = 0.58 and 0.41.
	assert.InDelta(t, 1/0.58-1/0.42, grad.BparallelNorm[0], 1e-12)
	assert.InDelta(t, 1/0.41-1/0.59, grad.BparallelNorm[1], 1e-12)
}

func TestGradient_RejectsBadDraws(t *testing.T) {
	m := twoCloudModel(t)
	d := gradientDraws()
	d.FWHM2Norm[1] = 0

	_, _, err := m.Gradient(d)
	require.Error(t, err)
	assert.True(t, IsDrawError(err))
}
