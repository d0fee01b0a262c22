package model

import (
	"errors"
	"fmt"
)

// ConfigError represents a problem detected while constructing a Model.
//
// Config errors include:
//   - Bounds with lo >= hi
//   - Non-positive prior scales
//   - Missing "I" or "V" data
//   - Spectral, brightness and noise arrays of different lengths
//
// ConfigError is never returned from evaluation; a Model that was built
// successfully only fails on bad draws.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Field names the offending configuration item (e.g. "priors.velocity").
	Field string

	// Message is a human-readable description.
	Message string
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeBadBounds indicates an interval with lo >= hi or a non-finite end.
	ErrCodeBadBounds ConfigErrorCode = "BAD_BOUNDS"

	// ErrCodeNonPositiveScale indicates a prior scale that is not > 0.
	ErrCodeNonPositiveScale ConfigErrorCode = "NONPOSITIVE_SCALE"

	// ErrCodeLengthMismatch indicates arrays that must be parallel are not.
	ErrCodeLengthMismatch ConfigErrorCode = "LENGTH_MISMATCH"

	// ErrCodeMissingDataKey indicates the data container lacks "I" or "V".
	ErrCodeMissingDataKey ConfigErrorCode = "MISSING_DATA_KEY"

	// ErrCodeInvalidNoise indicates a noise value that is not finite and > 0.
	ErrCodeInvalidNoise ConfigErrorCode = "INVALID_NOISE"

	// ErrCodeInvalidClouds indicates a negative cloud count.
	ErrCodeInvalidClouds ConfigErrorCode = "INVALID_CLOUDS"

	// ErrCodeInvalidTbg indicates a non-finite background temperature.
	ErrCodeInvalidTbg ConfigErrorCode = "INVALID_TBG"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigError returns true if err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsMissingDataKey returns true if err is or wraps a ConfigError for a
// missing data key.
func IsMissingDataKey(err error) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeMissingDataKey
	}
	return false
}

// DrawError reports a standardized draw outside the support of its prior,
// or a physical parameter that a valid draw transformed out of range.
type DrawError struct {
	Name    string  // draw or quantity name, e.g. "velocity_norm" or "fwhm2"
	Index   int     // cloud index, or -1 for scalar draws
	Value   float64 // offending value
	Message string
}

// Error implements the error interface.
func (e *DrawError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid draw %s[%d] = %v: %s", e.Name, e.Index, e.Value, e.Message)
	}
	return fmt.Sprintf("invalid draw %s = %v: %s", e.Name, e.Value, e.Message)
}

// IsDrawError returns true if err is or wraps a *DrawError.
func IsDrawError(err error) bool {
	var de *DrawError
	return errors.As(err, &de)
}

// ErrDuplicateSite is returned when a name is registered twice on a Trace.
var ErrDuplicateSite = errors.New("duplicate site name")

// ErrUnknownSite is returned when a Trace lookup names an unregistered site.
var ErrUnknownSite = errors.New("unknown site name")
