package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
)

func TestAxis(t *testing.T) {
	assert.Equal(t, []float64{-5, 0, 5}, Axis(-5, 5, 3))
	assert.Equal(t, []float64{2}, Axis(2, 9, 1))
	assert.Len(t, Axis(-10, 10, 101), 101)
}

func TestFlatData(t *testing.T) {
	data := FlatData([]float64{-1, 0, 1}, 3.5, 0.1)

	assert.Equal(t, []float64{7, 7, 7}, data[ir.KeyStokesI].Brightness)
	assert.Equal(t, []float64{0, 0, 0}, data[ir.KeyStokesV].Brightness)
	assert.Equal(t, []float64{0.1, 0.1, 0.1}, data[ir.KeyStokesV].Noise)
}

func TestRequireApprox(t *testing.T) {
	RequireApprox(t, []float64{1, 2}, []float64{1 + 1e-12, 2}, 1e-9, 0)
}
