package compiler

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
	"github.com/tvwenger/bayes-zeeman-hi/internal/model"
)

// Validation error codes (E200-E299)
const (
	ErrModelNameInvalid   = "E200" // name empty or not an identifier
	ErrInvalidCloudCount  = "E201" // clouds < 0
	ErrInvalidTbg         = "E202" // background temperature not finite
	ErrBadBounds          = "E203" // lo >= hi or non-finite end
	ErrNonPositiveScale   = "E204" // prior scale not > 0
	ErrUnknownConfigError = "E299" // unmapped model configuration error
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled model against the rules the forward model
// enforces at construction, so configuration mistakes surface before any
// data is loaded. Returns all errors found (does not fail-fast).
func Validate(spec *ir.ModelSpec) []ValidationError {
	var errs []ValidationError

	if !isIdentifier(spec.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("model name %q must be a non-empty identifier", spec.Name),
			Code:    ErrModelNameInvalid,
		})
	}

	for _, err := range model.ValidateSpec(*spec) {
		errs = append(errs, fromConfigError(err))
	}
	return errs
}

func fromConfigError(err error) ValidationError {
	var ce *model.ConfigError
	if !errors.As(err, &ce) {
		return ValidationError{Field: "model", Message: err.Error(), Code: ErrUnknownConfigError}
	}

	code := ErrUnknownConfigError
	switch ce.Code {
	case model.ErrCodeInvalidClouds:
		code = ErrInvalidCloudCount
	case model.ErrCodeInvalidTbg:
		code = ErrInvalidTbg
	case model.ErrCodeBadBounds:
		code = ErrBadBounds
	case model.ErrCodeNonPositiveScale:
		code = ErrNonPositiveScale
	}
	return ValidationError{Field: ce.Field, Message: ce.Message, Code: code}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '-'):
		default:
			return false
		}
	}
	return true
}
