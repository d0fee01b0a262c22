package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError_Error(t *testing.T) {
	withField := &ConfigError{Code: ErrCodeBadBounds, Field: "priors.velocity", Message: "lo must be < hi"}
	assert.Equal(t, "BAD_BOUNDS: priors.velocity: lo must be < hi", withField.Error())

	bare := &ConfigError{Code: ErrCodeInvalidClouds, Message: "bad"}
	assert.Equal(t, "INVALID_CLOUDS: bad", bare.Error())
}

func TestConfigError_Helpers(t *testing.T) {
	missing := fmt.Errorf("load: %w", &ConfigError{Code: ErrCodeMissingDataKey, Field: "data.V"})
	other := &ConfigError{Code: ErrCodeLengthMismatch}

	assert.True(t, IsConfigError(missing))
	assert.True(t, IsMissingDataKey(missing))
	assert.True(t, IsConfigError(other))
	assert.False(t, IsMissingDataKey(other))
	assert.False(t, IsConfigError(errors.New("plain")))
	assert.False(t, IsMissingDataKey(nil))
}

func TestDrawError_Error(t *testing.T) {
	perCloud := &DrawError{Name: "fwhm2_norm", Index: 2, Value: -1, Message: "must be > 0"}
	assert.Equal(t, "invalid draw fwhm2_norm[2] = -1: must be > 0", perCloud.Error())

	scalar := &DrawError{Name: "leakage_fraction_norm", Index: -1, Value: -0.5, Message: "must be >= 0"}
	assert.Equal(t, "invalid draw leakage_fraction_norm = -0.5: must be >= 0", scalar.Error())

	assert.True(t, IsDrawError(fmt.Errorf("evaluate: %w", scalar)))
	assert.False(t, IsDrawError(&ConfigError{}))
}
