package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainModel      = "zeemanhi/model/v1"
	DomainEvaluation = "zeemanhi/evaluation/v1"
	DomainData       = "zeemanhi/data/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ModelHash computes the content-addressed identity of a model configuration.
func ModelHash(spec ModelSpec) (string, error) {
	canonical, err := MarshalCanonical(spec)
	if err != nil {
		return "", fmt.Errorf("ModelHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainModel, canonical), nil
}

// EvaluationID computes the content-addressed ID of one evaluation.
// The same model and the same draws always produce the same ID, so
// re-recording an evaluation is idempotent.
func EvaluationID(modelHash string, draws Draws) (string, error) {
	obj := map[string]any{
		"model_hash": modelHash,
		"draws":      draws.CanonicalMap(),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EvaluationID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvaluation, canonical), nil
}

// DataHash computes the content-addressed identity of the Stokes I and V
// channels of an observation. Other keys do not enter the likelihood and
// are ignored. Non-finite values are an error.
func DataHash(data SpecData) (string, error) {
	obj := map[string]any{}
	for _, key := range []string{KeyStokesI, KeyStokesV} {
		if ch, ok := data[key]; ok {
			obj[key] = ch
		}
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("DataHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainData, canonical), nil
}

// MustModelHash is like ModelHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustModelHash(spec ModelSpec) string {
	h, err := ModelHash(spec)
	if err != nil {
		panic(err)
	}
	return h
}
