package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
	"github.com/tvwenger/bayes-zeeman-hi/internal/physics"
	"github.com/tvwenger/bayes-zeeman-hi/internal/testutil"
)

func threeClouds() ir.Clouds {
	return ir.Clouds{
		TauTotal:  []float64{0.8, 1.7, 0.3},
		FWHM2:     []float64{9, 2.5, 40},
		Velocity:  []float64{-3, 0.5, 4},
		Bparallel: []float64{12, -7, 3},
	}
}

func TestPredict_ConcreteScenario(t *testing.T) {
	axis := []float64{-5, 0, 5}
	clouds := ir.Clouds{
		TauTotal:  []float64{0.5},
		FWHM2:     []float64{4},
		Velocity:  []float64{0},
		Bparallel: []float64{10},
	}
	tbg := 3.5

	got := Predict(axis, axis, clouds, 0, tbg)

	// Line centre: unsplit profile is exactly 1.
	assert.Equal(t, 2*3.5*math.Exp(-0.5), got.I[1])
	assert.InDelta(t, 4.246, got.I[1], 1e-3)

	// LCP and RCP sit symmetrically about the centre, so V vanishes there
	// and is antisymmetric on the wings: the channel nearer the RCP
	// centroid (-z*5) is more absorbed in RCP, giving V < 0.
	z5 := physics.ZeemanKmsPerMicroGauss * 5
	for r, v := range axis {
		pI := physics.Gaussian(v, 0, 2)
		pLCP := physics.Gaussian(v, z5, 2)
		pRCP := physics.Gaussian(v, -z5, 2)
		wantI := 2 * tbg * math.Exp(-0.5*pI)
		wantV := tbg * (math.Exp(-0.5*pRCP) - math.Exp(-0.5*pLCP))
		assert.InDelta(t, wantI, got.I[r], 1e-15, "I at v=%v", v)
		assert.InDelta(t, wantV, got.V[r], 1e-18, "V at v=%v", v)
	}
	assert.Equal(t, 0.0, got.V[1])
	assert.Less(t, got.V[0], 0.0)
	assert.Greater(t, got.V[2], 0.0)
	assert.InEpsilon(t, -2.136523402640478e-09, got.V[0], 1e-5)
}

func TestPredict_ZeroOpticalDepth(t *testing.T) {
	axis := testutil.Axis(-20, 20, 41)
	clouds := threeClouds()
	clouds.TauTotal = []float64{0, 0, 0}
	tbg, leakage := 12.25, 0.0137

	got := Predict(axis, axis, clouds, leakage, tbg)

	for r := range axis {
		assert.Equal(t, 2*tbg, got.I[r])
		assert.Equal(t, leakage*2*tbg, got.V[r])
	}
}

func TestPredict_NoClouds(t *testing.T) {
	axis := []float64{-1, 0, 1}
	got := Predict(axis, axis, ir.Clouds{}, 0.02, 3.5)

	assert.Equal(t, []float64{7, 7, 7}, got.I)
	assert.Equal(t, []float64{0.02 * 7, 0.02 * 7, 0.02 * 7}, got.V)
}

func TestPredict_NoFieldMeansPureLeakage(t *testing.T) {
	axis := testutil.Axis(-10, 10, 81)
	clouds := threeClouds()
	clouds.Bparallel = []float64{0, 0, 0}
	leakage := 0.008

	got := Predict(axis, axis, clouds, leakage, 5)

	for r := range axis {
		assert.Equal(t, leakage*got.I[r], got.V[r], "channel %d", r)
	}
}

func TestPredict_MonotoneInOpticalDepth(t *testing.T) {
	axis := testutil.Axis(-6, 6, 25)
	base := threeClouds()
	before := Predict(axis, axis, base, 0.01, 4)

	for k := 0; k < base.Len(); k++ {
		thicker := threeClouds()
		thicker.TauTotal[k] += 0.25
		after := Predict(axis, axis, thicker, 0.01, 4)

		for r, v := range axis {
			if physics.Gaussian(v, base.Velocity[k], math.Sqrt(base.FWHM2[k])) < 1e-12 {
				continue
			}
			assert.Less(t, after.I[r], before.I[r], "cloud %d channel v=%v", k, v)
		}
	}
}

func TestPredict_OpticalDepthAddsBeforeExp(t *testing.T) {
	axis := testutil.Axis(-3, 3, 13)
	a := ir.Clouds{TauTotal: []float64{0.6}, FWHM2: []float64{4}, Velocity: []float64{0.5}, Bparallel: []float64{0}}
	b := ir.Clouds{TauTotal: []float64{1.1}, FWHM2: []float64{6}, Velocity: []float64{-1}, Bparallel: []float64{0}}
	both := ir.Clouds{
		TauTotal:  []float64{0.6, 1.1},
		FWHM2:     []float64{4, 6},
		Velocity:  []float64{0.5, -1},
		Bparallel: []float64{0, 0},
	}
	tbg := 2.0

	sa := Predict(axis, axis, a, 0, tbg)
	sb := Predict(axis, axis, b, 0, tbg)
	sab := Predict(axis, axis, both, 0, tbg)

	// Stacked absorbers multiply transmissions: I_ab / 2Tbg = (I_a / 2Tbg)(I_b / 2Tbg).
	for r := range axis {
		assert.InEpsilon(t, sa.I[r]*sb.I[r]/(2*tbg), sab.I[r], 1e-13)
	}
}

func TestPredict_SaturatedAbsorptionUnderflows(t *testing.T) {
	axis := []float64{-1, 0, 1}
	clouds := ir.Clouds{
		TauTotal:  []float64{1e6},
		FWHM2:     []float64{100},
		Velocity:  []float64{0},
		Bparallel: []float64{20},
	}

	got := Predict(axis, axis, clouds, 0.01, 3.5)

	for r := range axis {
		assert.Equal(t, 0.0, got.I[r])
		assert.Equal(t, 0.0, got.V[r])
		assert.False(t, math.IsNaN(got.V[r]))
	}
}

func TestPredict_FieldReversalFlipsV(t *testing.T) {
	axis := testutil.Axis(-4, 4, 17)
	pos := threeClouds()
	neg := threeClouds()
	for k := range neg.Bparallel {
		neg.Bparallel[k] = -neg.Bparallel[k]
	}

	sp := Predict(axis, axis, pos, 0, 3)
	sn := Predict(axis, axis, neg, 0, 3)
	for r := range axis {
		assert.Equal(t, sp.I[r], sn.I[r])
		assert.InDelta(t, -sp.V[r], sn.V[r], 1e-15)
	}
}

func TestPredict_PanicsOnAxisMismatch(t *testing.T) {
	require.Panics(t, func() {
		Predict([]float64{0, 1}, []float64{0}, ir.Clouds{}, 0, 1)
	})
}
