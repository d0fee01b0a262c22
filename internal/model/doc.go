// Package model implements the forward model of 21-cm Zeeman absorption and
// its Gaussian observation model.
//
// A Model is built once from an ir.ModelSpec and the spectral data, and is
// immutable afterwards. Each evaluation builds a fresh Trace:
//
//	t := model.NewTrace()
//	if err := m.AddPriors(t, draws); err != nil { ... }   // draws -> physical quantities
//	if err := m.AddLikelihood(t); err != nil { ... }      // quantities -> predicted I, V -> sites
//	ll := t.LogLikelihood()
//
// Evaluate does the same in one call. Because no state survives between
// evaluations, a Model may be evaluated from many goroutines at once.
//
// # Pipeline
//
//  1. ParameterTransform (Transform): standardized draws to bounded physical values
//  2. Line profiles (physics.LineProfile): channel-by-cloud Gaussian shapes
//  3. Radiative transfer (Predict): optical depth summed over clouds, then
//     exponential attenuation into Stokes I and Stokes V plus leakage
//  4. Likelihood (AddLikelihood): independent Normal per channel for I and V
//
// # Errors
//
// Configuration problems surface from New as *ConfigError. Draws outside the
// support of their prior, or that transform to a zero fwhm2 or an infinite
// tau_total, surface from AddPriors as *DrawError. Underflow of
// exp(-tau) for very optically thick clouds is not an error.
package model
