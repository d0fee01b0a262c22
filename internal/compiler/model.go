package compiler

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// CompileModel parses a CUE value into a ModelSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the model struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`model: m31: { clouds: 2, tbg: 40 }`)
//	spec, err := CompileModel(v.LookupPath(cue.ParsePath("model.m31")))
//
// The value is unified with the embedded #Model schema first, so unknown
// fields and wrongly typed values are compile errors and omitted priors
// take their defaults. Range checks are left to Validate.
func CompileModel(v cue.Value) (*ir.ModelSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ModelSpec{}

	// Model name comes from the struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	for _, field := range []string{"clouds", "tbg"} {
		if !v.LookupPath(cue.ParsePath(field)).Exists() {
			return nil, &CompileError{
				Field:   field,
				Message: field + " is required",
				Pos:     v.Pos(),
			}
		}
	}

	schema, err := modelSchema(v.Context())
	if err != nil {
		return nil, err
	}
	u := v.Unify(schema)
	if err := u.Validate(); err != nil {
		return nil, formatCUEError(err)
	}

	clouds, err := u.LookupPath(cue.ParsePath("clouds")).Int64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	spec.Clouds = int(clouds)

	spec.Tbg, err = floatField(u, "tbg")
	if err != nil {
		return nil, err
	}

	spec.Priors, err = parsePriors(u.LookupPath(cue.ParsePath("priors")))
	if err != nil {
		return nil, err
	}

	return spec, nil
}

// CompileModels compiles every model under the top-level "model" struct,
// in source order.
func CompileModels(v cue.Value) ([]ir.ModelSpec, error) {
	modelsVal := v.LookupPath(cue.ParsePath("model"))
	if !modelsVal.Exists() {
		return nil, &CompileError{
			Field:   "model",
			Message: "no model definitions found",
			Pos:     v.Pos(),
		}
	}

	iter, err := modelsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []ir.ModelSpec
	for iter.Next() {
		spec, err := CompileModel(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", iter.Label(), err)
		}
		specs = append(specs, *spec)
	}
	if len(specs) == 0 {
		return nil, &CompileError{
			Field:   "model",
			Message: "no model definitions found",
			Pos:     modelsVal.Pos(),
		}
	}
	return specs, nil
}

// modelSchema compiles the embedded schema in ctx and returns #Model.
// Values can only be unified within one context.
func modelSchema(ctx *cue.Context) (cue.Value, error) {
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile embedded schema: %w", err)
	}
	return schema.LookupPath(cue.ParsePath("#Model")), nil
}

func parsePriors(v cue.Value) (ir.Priors, error) {
	var (
		p   ir.Priors
		err error
	)

	if p.TauTotal, err = floatField(v, "tau_total"); err != nil {
		return ir.Priors{}, err
	}
	if p.FWHM2, err = floatField(v, "fwhm2"); err != nil {
		return ir.Priors{}, err
	}
	if p.Velocity, err = parseBounds(v.LookupPath(cue.ParsePath("velocity")), "priors.velocity"); err != nil {
		return ir.Priors{}, err
	}
	if p.Bparallel, err = parseBounds(v.LookupPath(cue.ParsePath("bparallel")), "priors.bparallel"); err != nil {
		return ir.Priors{}, err
	}
	if p.LeakageFraction, err = floatField(v, "leakage_fraction"); err != nil {
		return ir.Priors{}, err
	}
	return p, nil
}

// parseBounds reads a two-element [lo, hi] list.
func parseBounds(v cue.Value, field string) (ir.Bounds, error) {
	v, _ = v.Default()
	iter, err := v.List()
	if err != nil {
		return ir.Bounds{}, formatCUEError(err)
	}

	var ends []float64
	for iter.Next() {
		x, err := iter.Value().Float64()
		if err != nil {
			return ir.Bounds{}, formatCUEError(err)
		}
		ends = append(ends, x)
	}
	if len(ends) != 2 {
		return ir.Bounds{}, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("bounds must be [lo, hi], got %d elements", len(ends)),
			Pos:     v.Pos(),
		}
	}
	return ir.Bounds{Lo: ends[0], Hi: ends[1]}, nil
}

// floatField reads a numeric field; integer literals are accepted.
func floatField(v cue.Value, name string) (float64, error) {
	f := v.LookupPath(cue.ParsePath(name))
	f, _ = f.Default()
	x, err := f.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return x, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
