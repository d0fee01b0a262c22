package compiler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
)

func validSpec() *ir.ModelSpec {
	return &ir.ModelSpec{Name: "concrete", Clouds: 1, Tbg: 3.5, Priors: ir.DefaultPriors()}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateValid(t *testing.T) {
	assert.Empty(t, Validate(validSpec()))

	zero := validSpec()
	zero.Clouds = 0
	assert.Empty(t, Validate(zero), "zero clouds is a valid background-only model")
}

func TestValidateCodes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ir.ModelSpec)
		code   string
		field  string
	}{
		{"empty name", func(s *ir.ModelSpec) { s.Name = "" }, ErrModelNameInvalid, "name"},
		{"quoted name", func(s *ir.ModelSpec) { s.Name = `"a b"` }, ErrModelNameInvalid, "name"},
		{"negative clouds", func(s *ir.ModelSpec) { s.Clouds = -1 }, ErrInvalidCloudCount, "clouds"},
		{"nan tbg", func(s *ir.ModelSpec) { s.Tbg = math.NaN() }, ErrInvalidTbg, "tbg"},
		{"inverted velocity", func(s *ir.ModelSpec) { s.Priors.Velocity = ir.Bounds{Lo: 5, Hi: -5} }, ErrBadBounds, "priors.velocity"},
		{"degenerate bparallel", func(s *ir.ModelSpec) { s.Priors.Bparallel = ir.Bounds{Lo: 1, Hi: 1} }, ErrBadBounds, "priors.bparallel"},
		{"zero tau scale", func(s *ir.ModelSpec) { s.Priors.TauTotal = 0 }, ErrNonPositiveScale, "priors.tau_total"},
		{"negative leakage scale", func(s *ir.ModelSpec) { s.Priors.LeakageFraction = -0.1 }, ErrNonPositiveScale, "priors.leakage_fraction"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(spec)

			errs := Validate(spec)
			if assert.Len(t, errs, 1) {
				assert.Equal(t, tt.code, errs[0].Code)
				assert.Equal(t, tt.field, errs[0].Field)
			}
		})
	}
}

func TestValidateCollectsAll(t *testing.T) {
	spec := validSpec()
	spec.Clouds = -2
	spec.Priors.FWHM2 = -1
	spec.Priors.Velocity = ir.Bounds{Lo: 0, Hi: 0}

	assert.ElementsMatch(t,
		[]string{ErrInvalidCloudCount, ErrNonPositiveScale, ErrBadBounds},
		codes(Validate(spec)))
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Field: "clouds", Message: "must be >= 0", Code: ErrInvalidCloudCount}
	assert.Equal(t, "[E201] clouds: must be >= 0", e.Error())
}
