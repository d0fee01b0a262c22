package ir

import "fmt"

// Data container keys for the two polarization products.
const (
	KeyStokesI = "I"
	KeyStokesV = "V"
)

// Bounds is a closed interval [Lo, Hi] used by the affine Beta priors.
type Bounds struct {
	Lo float64 `json:"lo" yaml:"lo"`
	Hi float64 `json:"hi" yaml:"hi"`
}

// Width returns Hi - Lo.
func (b Bounds) Width() float64 {
	return b.Hi - b.Lo
}

// Contains reports whether x lies in [Lo, Hi].
func (b Bounds) Contains(x float64) bool {
	return x >= b.Lo && x <= b.Hi
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%g, %g]", b.Lo, b.Hi)
}

// Priors holds the prior scales and bounds of the model.
type Priors struct {
	TauTotal        float64 `json:"tau_total" yaml:"tau_total"`               // half-normal scale
	FWHM2           float64 `json:"fwhm2" yaml:"fwhm2"`                       // km2 s-2, chi-square(1) scale
	Velocity        Bounds  `json:"velocity" yaml:"velocity"`                 // km s-1
	Bparallel       Bounds  `json:"bparallel" yaml:"bparallel"`               // uG
	LeakageFraction float64 `json:"leakage_fraction" yaml:"leakage_fraction"` // half-normal scale
}

// DefaultPriors returns the default prior configuration.
func DefaultPriors() Priors {
	return Priors{
		TauTotal:        1.0,
		FWHM2:           200.0,
		Velocity:        Bounds{Lo: -10.0, Hi: 10.0},
		Bparallel:       Bounds{Lo: -20.0, Hi: 20.0},
		LeakageFraction: 0.01,
	}
}

// ModelSpec represents a compiled model configuration.
type ModelSpec struct {
	Name   string  `json:"name"`
	Clouds int     `json:"clouds"` // number of cloud components
	Tbg    float64 `json:"tbg"`    // background brightness temperature (K)
	Priors Priors  `json:"priors"`
}

// Channel is one polarization product of the spectral data container.
// Spectral, Brightness and Noise are parallel arrays over channels.
type Channel struct {
	Spectral   []float64 `json:"spectral" yaml:"spectral"`     // km s-1
	Brightness []float64 `json:"brightness" yaml:"brightness"` // K
	Noise      []float64 `json:"noise" yaml:"noise"`           // K
}

// Len returns the number of spectral channels.
func (c Channel) Len() int {
	return len(c.Spectral)
}

// SpecData maps data keys ("I", "V") to channels.
type SpecData map[string]Channel

// Draws are the standardized, pre-transform random variables of one model
// evaluation. Per-cloud slices must all have the same length.
type Draws struct {
	TauTotalNorm        []float64 `json:"tau_total_norm" yaml:"tau_total_norm"`               // HalfNormal(1)
	FWHM2Norm           []float64 `json:"fwhm2_norm" yaml:"fwhm2_norm"`                       // ChiSquared(1)
	VelocityNorm        []float64 `json:"velocity_norm" yaml:"velocity_norm"`                 // Beta(2,2)
	BparallelNorm       []float64 `json:"bparallel_norm" yaml:"bparallel_norm"`               // Beta(2,2)
	LeakageFractionNorm float64   `json:"leakage_fraction_norm" yaml:"leakage_fraction_norm"` // HalfNormal(1)
}

// Clouds returns the number of clouds implied by TauTotalNorm.
func (d Draws) Clouds() int {
	return len(d.TauTotalNorm)
}

// Clouds holds the physical parameters of every cloud, one slice per
// quantity, indexed along the cloud axis.
type Clouds struct {
	TauTotal  []float64 `json:"tau_total" yaml:"tau_total"` // peak optical depth
	FWHM2     []float64 `json:"fwhm2" yaml:"fwhm2"`         // km2 s-2
	Velocity  []float64 `json:"velocity" yaml:"velocity"`   // km s-1
	Bparallel []float64 `json:"bparallel" yaml:"bparallel"` // uG
}

// Len returns the number of clouds.
func (c Clouds) Len() int {
	return len(c.TauTotal)
}

// Stokes holds predicted Stokes I and V spectra, one value per channel.
type Stokes struct {
	I []float64 `json:"i"`
	V []float64 `json:"v"`
}
