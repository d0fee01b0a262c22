package testutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
)

// Axis returns n evenly spaced points from lo to hi inclusive.
func Axis(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// Constant returns a slice of n copies of v.
func Constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// SpecData builds a data container with both products on the same axis.
func SpecData(axis, brightI, brightV []float64, noise float64) ir.SpecData {
	return ir.SpecData{
		ir.KeyStokesI: {
			Spectral:   append([]float64(nil), axis...),
			Brightness: append([]float64(nil), brightI...),
			Noise:      Constant(noise, len(axis)),
		},
		ir.KeyStokesV: {
			Spectral:   append([]float64(nil), axis...),
			Brightness: append([]float64(nil), brightV...),
			Noise:      Constant(noise, len(axis)),
		},
	}
}

// FlatData returns data equal to an unabsorbed background of tbg.
func FlatData(axis []float64, tbg, noise float64) ir.SpecData {
	return SpecData(axis, Constant(2*tbg, len(axis)), Constant(0, len(axis)), noise)
}

// ConcreteSpec is the single-cloud reference configuration: Tbg = 3.5 K
// with default priors.
func ConcreteSpec() ir.ModelSpec {
	return ir.ModelSpec{Name: "concrete", Clouds: 1, Tbg: 3.5, Priors: ir.DefaultPriors()}
}

// ConcreteDraws are the draws that, under ConcreteSpec, give tau_total = 0.5,
// fwhm2 = 4, velocity = 0, Bparallel = 10 and leakage_fraction = 0.
func ConcreteDraws() ir.Draws {
	return ir.Draws{
		TauTotalNorm:        []float64{0.5},
		FWHM2Norm:           []float64{0.02},
		VelocityNorm:        []float64{0.5},
		BparallelNorm:       []float64{0.75},
		LeakageFractionNorm: 0,
	}
}

// RequireApprox fails the test unless want and got agree element-wise
// within an absolute tolerance of abs or a relative tolerance of rel.
func RequireApprox(t testing.TB, want, got []float64, abs, rel float64) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(rel, abs)); diff != "" {
		t.Fatalf("values differ (-want +got):\n%s", diff)
	}
}
