package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrace_RegisterAndLookup(t *testing.T) {
	tr := NewTrace()
	values := []float64{1, 2}
	require.NoError(t, tr.Register(Quantity{Name: "a", Kind: KindFree, Dims: []string{DimCloud}, Values: values}))
	require.NoError(t, tr.Register(Quantity{Name: "b", Kind: KindDeterministic, Values: []float64{3}}))

	values[0] = 99
	got, err := tr.Values("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, got, "registered values are copied")

	s, err := tr.Scalar("b")
	require.NoError(t, err)
	assert.Equal(t, 3.0, s)

	assert.Equal(t, []string{"a", "b"}, tr.Names())
	assert.Len(t, tr.Quantities(), 2)
}

func TestTrace_Errors(t *testing.T) {
	tr := NewTrace()
	require.NoError(t, tr.Register(Quantity{Name: "a", Dims: []string{DimCloud}, Values: []float64{1}}))

	assert.ErrorIs(t, tr.Register(Quantity{Name: "a"}), ErrDuplicateSite)
	assert.ErrorIs(t, tr.Observe(Observation{Name: "a"}), ErrDuplicateSite)

	_, err := tr.Values("missing")
	assert.ErrorIs(t, err, ErrUnknownSite)

	_, err = tr.Scalar("a")
	assert.Error(t, err, "per-cloud quantity is not a scalar")

	err = tr.Observe(Observation{Name: "o", Mu: []float64{1}, Sigma: []float64{1}, Observed: []float64{1, 2}})
	assert.Error(t, err)
}

func TestTrace_LogLikelihood(t *testing.T) {
	tr := NewTrace()
	require.NoError(t, tr.Observe(Observation{
		Name:     "x",
		Mu:       []float64{0, 1},
		Sigma:    []float64{1, 2},
		Observed: []float64{0, 3},
	}))

	logSqrt2Pi := 0.5 * math.Log(2*math.Pi)
	want := (-logSqrt2Pi) + (-0.5 - math.Log(2) - logSqrt2Pi)
	assert.InDelta(t, want, tr.LogLikelihood(), 1e-14)

	o, ok := tr.Observation("x")
	require.True(t, ok)
	assert.Equal(t, []float64{0, 3}, o.Observed)
}
