package model

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
)

// Names of the registered quantities.
const (
	NameTauTotal        = "tau_total"
	NameFWHM2           = "fwhm2"
	NameVelocity        = "velocity"
	NameBparallel       = "Bparallel"
	NameLeakageFraction = "leakage_fraction"

	// normSuffix marks the standardized draw behind a physical quantity.
	normSuffix = "_norm"
)

// NormName returns the name of the standardized draw behind a quantity.
func NormName(name string) string {
	return name + normSuffix
}

// Outputs lists the named physical quantities every evaluation registers.
var Outputs = []string{NameTauTotal, NameFWHM2, NameVelocity, NameBparallel, NameLeakageFraction}

// Labels maps quantity names to TeX labels for reports and plots.
var Labels = map[string]string{
	NameFWHM2:           `$\Delta V^2$ (km$^{2}$ s$^{-2}$)`,
	NameVelocity:        `$V_{\rm LSR}$ (km s$^{-1}$)`,
	NameBparallel:       `$B_{\rm los}$ ($\mu$G)`,
	NameTauTotal:        `$\int \tau(v) dv$ (km s$^{-1}$)`,
	NameLeakageFraction: `$f_{\rm leak}$`,
}

// ClusterFeatures lists the per-cloud quantities used to cluster posterior
// samples when cloud labels are exchangeable.
var ClusterFeatures = []string{NameVelocity, NameFWHM2}

// Model is an immutable forward model bound to one observation.
type Model struct {
	spec ir.ModelSpec
	data ir.SpecData
	hash string

	// dataHash is empty when the I or V channel holds non-finite values.
	dataHash string
}

// New validates spec and data and builds a Model. All problems are reported
// together, joined, as *ConfigError values.
func New(spec ir.ModelSpec, data ir.SpecData) (*Model, error) {
	var errs []error
	errs = append(errs, ValidateSpec(spec)...)
	errs = append(errs, ValidateData(data)...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	hash, err := ir.ModelHash(spec)
	if err != nil {
		return nil, fmt.Errorf("hash model: %w", err)
	}

	dataHash, _ := ir.DataHash(data)

	return &Model{
		spec:     spec,
		data:     cloneData(data),
		hash:     hash,
		dataHash: dataHash,
	}, nil
}

// Spec returns the model configuration.
func (m *Model) Spec() ir.ModelSpec {
	return m.spec
}

// Clouds returns the number of cloud components.
func (m *Model) Clouds() int {
	return m.spec.Clouds
}

// Hash returns the content-addressed identity of the configuration.
func (m *Model) Hash() string {
	return m.hash
}

// DataHash returns the content-addressed identity of the observed I and V
// channels, or "" if they cannot be hashed.
func (m *Model) DataHash() string {
	return m.dataHash
}

// Channels returns the number of spectral channels.
func (m *Model) Channels() int {
	return m.data[ir.KeyStokesI].Len()
}

// Channel returns a copy of the data channel stored under key.
func (m *Model) Channel(key string) (ir.Channel, bool) {
	ch, ok := m.data[key]
	if !ok {
		return ir.Channel{}, false
	}
	return cloneChannel(ch), true
}

// ValidateSpec checks the cloud count, background temperature and priors.
func ValidateSpec(spec ir.ModelSpec) []error {
	var errs []error

	if spec.Clouds < 0 {
		errs = append(errs, &ConfigError{
			Code:    ErrCodeInvalidClouds,
			Field:   "clouds",
			Message: fmt.Sprintf("cloud count must be >= 0, got %d", spec.Clouds),
		})
	}
	if !finite(spec.Tbg) {
		errs = append(errs, &ConfigError{
			Code:    ErrCodeInvalidTbg,
			Field:   "tbg",
			Message: fmt.Sprintf("background temperature must be finite, got %v", spec.Tbg),
		})
	}

	return append(errs, ValidatePriors(spec.Priors)...)
}

// ValidatePriors checks that scales are positive and bounds well ordered.
func ValidatePriors(p ir.Priors) []error {
	var errs []error

	scales := []struct {
		field string
		value float64
	}{
		{"priors.tau_total", p.TauTotal},
		{"priors.fwhm2", p.FWHM2},
		{"priors.leakage_fraction", p.LeakageFraction},
	}
	for _, s := range scales {
		if !finite(s.value) || s.value <= 0 {
			errs = append(errs, &ConfigError{
				Code:    ErrCodeNonPositiveScale,
				Field:   s.field,
				Message: fmt.Sprintf("prior scale must be finite and > 0, got %v", s.value),
			})
		}
	}

	bounds := []struct {
		field string
		value ir.Bounds
	}{
		{"priors.velocity", p.Velocity},
		{"priors.bparallel", p.Bparallel},
	}
	for _, b := range bounds {
		if !finite(b.value.Lo) || !finite(b.value.Hi) || !finite(b.value.Width()) || b.value.Lo >= b.value.Hi {
			errs = append(errs, &ConfigError{
				Code:    ErrCodeBadBounds,
				Field:   b.field,
				Message: fmt.Sprintf("bounds must be finite with lo < hi, got %s", b.value),
			})
		}
	}

	return errs
}

// ValidateData checks that the "I" and "V" channels exist, that every
// channel's arrays are parallel, that both share one axis length and that
// all noise values are finite and positive.
func ValidateData(data ir.SpecData) []error {
	var errs []error

	for _, key := range []string{ir.KeyStokesI, ir.KeyStokesV} {
		ch, ok := data[key]
		if !ok {
			errs = append(errs, &ConfigError{
				Code:    ErrCodeMissingDataKey,
				Field:   "data." + key,
				Message: fmt.Sprintf("data container must provide key %q", key),
			})
			continue
		}

		n := len(ch.Spectral)
		if len(ch.Brightness) != n || len(ch.Noise) != n {
			errs = append(errs, &ConfigError{
				Code:  ErrCodeLengthMismatch,
				Field: "data." + key,
				Message: fmt.Sprintf("spectral/brightness/noise lengths %d/%d/%d differ",
					n, len(ch.Brightness), len(ch.Noise)),
			})
		}
		for i, s := range ch.Noise {
			if !finite(s) || s <= 0 {
				errs = append(errs, &ConfigError{
					Code:    ErrCodeInvalidNoise,
					Field:   fmt.Sprintf("data.%s.noise[%d]", key, i),
					Message: fmt.Sprintf("noise must be finite and > 0, got %v", s),
				})
				break
			}
		}
	}

	chI, okI := data[ir.KeyStokesI]
	chV, okV := data[ir.KeyStokesV]
	if okI && okV && chI.Len() != chV.Len() {
		errs = append(errs, &ConfigError{
			Code:    ErrCodeLengthMismatch,
			Field:   "data",
			Message: fmt.Sprintf("I and V spectral axes have different lengths %d and %d", chI.Len(), chV.Len()),
		})
	}

	return errs
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func cloneChannel(ch ir.Channel) ir.Channel {
	return ir.Channel{
		Spectral:   slices.Clone(ch.Spectral),
		Brightness: slices.Clone(ch.Brightness),
		Noise:      slices.Clone(ch.Noise),
	}
}

func cloneData(data ir.SpecData) ir.SpecData {
	out := make(ir.SpecData, len(data))
	for k, ch := range data {
		out[k] = cloneChannel(ch)
	}
	return out
}
