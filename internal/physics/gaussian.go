package physics

import (
	"math"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
)

// fourLn2 is the exponent factor that puts the half maximum at +/- fwhm/2.
const fourLn2 = 4.0 * math.Ln2

// Gaussian evaluates a peak-normalized Gaussian line shape:
//
//	exp(-4 ln2 (x - center)^2 / fwhm^2)
func Gaussian(x, center, fwhm float64) float64 {
	d := x - center
	return math.Exp(-fourLn2 * d * d / (fwhm * fwhm))
}

// LineProfile evaluates Gaussian for every (channel, cloud) pair and returns a
// channel-by-cloud matrix. centers and fwhms are indexed by cloud and must
// have equal length; LineProfile panics otherwise.
func LineProfile(axis, centers, fwhms []float64) ir.Matrix {
	if len(centers) != len(fwhms) {
		panic("physics: LineProfile centers/fwhms length mismatch")
	}

	m := ir.NewMatrix(len(axis), len(centers))
	for r, x := range axis {
		row := m.Row(r)
		for c := range centers {
			row[c] = Gaussian(x, centers[c], fwhms[c])
		}
	}
	return m
}
