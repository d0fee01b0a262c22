package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPriors(t *testing.T) {
	p := DefaultPriors()

	assert.Equal(t, 1.0, p.TauTotal)
	assert.Equal(t, 200.0, p.FWHM2)
	assert.Equal(t, Bounds{Lo: -10, Hi: 10}, p.Velocity)
	assert.Equal(t, Bounds{Lo: -20, Hi: 20}, p.Bparallel)
	assert.Equal(t, 0.01, p.LeakageFraction)
}

func TestBounds(t *testing.T) {
	b := Bounds{Lo: -2, Hi: 6}

	assert.Equal(t, 8.0, b.Width())
	assert.True(t, b.Contains(-2))
	assert.True(t, b.Contains(6))
	assert.False(t, b.Contains(6.000001))
	assert.Equal(t, "[-2, 6]", b.String())
}

func TestMatrix(t *testing.T) {
	m := NewMatrix(2, 3)
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			m.Set(r, c, float64(r*10+c))
		}
	}

	assert.Equal(t, 12.0, m.At(1, 2))
	assert.Equal(t, []float64{10, 11, 12}, m.Row(1))

	scaled := m.ScaleCols([]float64{1, 0, 2})
	assert.Equal(t, []float64{0, 0, 4}, scaled.Row(0))
	assert.Equal(t, []float64{10, 0, 24}, scaled.Row(1))
	assert.Equal(t, 1.0, m.At(0, 1), "ScaleCols must not modify the receiver")

	assert.Equal(t, []float64{4, 34}, scaled.SumCols())
}

func TestMatrixScaleColsPanicsOnMismatch(t *testing.T) {
	m := NewMatrix(1, 2)
	assert.Panics(t, func() { m.ScaleCols([]float64{1}) })
}

func TestMatrixZeroColumns(t *testing.T) {
	m := NewMatrix(3, 0)
	assert.Equal(t, []float64{0, 0, 0}, m.SumCols())
}
