package store

import (
	"encoding/json"
	"fmt"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
)

// marshalSpec converts a model configuration to canonical JSON TEXT.
func marshalSpec(spec ir.ModelSpec) (string, error) {
	data, err := ir.MarshalCanonical(spec)
	if err != nil {
		return "", fmt.Errorf("marshal spec: %w", err)
	}
	return string(data), nil
}

// marshalDraws converts draws to canonical JSON TEXT.
func marshalDraws(d ir.Draws) (string, error) {
	data, err := ir.MarshalCanonical(d)
	if err != nil {
		return "", fmt.Errorf("marshal draws: %w", err)
	}
	return string(data), nil
}

// marshalValues converts a quantity's values to a canonical JSON array.
func marshalValues(values []float64) (string, error) {
	data, err := ir.MarshalCanonical(values)
	if err != nil {
		return "", fmt.Errorf("marshal values: %w", err)
	}
	return string(data), nil
}

func unmarshalSpec(data string) (ir.ModelSpec, error) {
	var spec ir.ModelSpec
	if err := json.Unmarshal([]byte(data), &spec); err != nil {
		return ir.ModelSpec{}, fmt.Errorf("unmarshal spec: %w", err)
	}
	return spec, nil
}

func unmarshalDraws(data string) (ir.Draws, error) {
	var d ir.Draws
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return ir.Draws{}, fmt.Errorf("unmarshal draws: %w", err)
	}
	return d, nil
}

func unmarshalValues(data string) ([]float64, error) {
	values := []float64{}
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("unmarshal values: %w", err)
	}
	return values, nil
}
