package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	return createTestStoreAt(t, filepath.Join(t.TempDir(), "test.db"))
}

// createTestStoreAt opens the store at path and closes it with the test.
func createTestStoreAt(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run record with minimal required fields.
func createTestRun(token string) ir.Run {
	spec := ir.ModelSpec{Name: "test", Clouds: 1, Tbg: 3.5, Priors: ir.DefaultPriors()}
	return ir.Run{
		Token:         token,
		ModelName:     spec.Name,
		ModelHash:     ir.MustModelHash(spec),
		Spec:          spec,
		EngineVersion: "0.1.0",
		IRVersion:     "1",
		DataHash:      "data-" + token,
	}
}

// mustWriteEvaluation writes rec and reports whether it was a new row.
func mustWriteEvaluation(t *testing.T, s *Store, rec ir.EvaluationRecord) bool {
	t.Helper()
	inserted, err := s.WriteEvaluation(context.Background(), rec)
	if err != nil {
		t.Fatalf("WriteEvaluation() failed: %v", err)
	}
	return inserted
}

// createTestEvaluation creates a one-cloud evaluation record whose draws
// are derived from u.
func createTestEvaluation(t *testing.T, run ir.Run, seq int64, u float64) ir.EvaluationRecord {
	t.Helper()
	draws := ir.Draws{
		TauTotalNorm:        []float64{u},
		FWHM2Norm:           []float64{u + 0.1},
		VelocityNorm:        []float64{u / 2},
		BparallelNorm:       []float64{1 - u/2},
		LeakageFractionNorm: u / 3,
	}
	id, err := ir.EvaluationID(run.ModelHash, draws)
	if err != nil {
		t.Fatalf("EvaluationID() failed: %v", err)
	}
	return ir.EvaluationRecord{
		ID:       id,
		RunToken: run.Token,
		Seq:      seq,
		Draws:    draws,
		Quantities: []ir.QuantityRecord{
			{Name: "tau_total_norm", Kind: "free", Values: []float64{u}},
			{Name: "tau_total", Kind: "deterministic", Values: []float64{u}},
			{Name: "velocity", Kind: "deterministic", Values: []float64{-10 + 10*u}},
			{Name: "leakage_fraction", Kind: "deterministic", Values: []float64{0.01 * u / 3}},
		},
		LogLikelihood: -12.5 * u,
		LogPrior:      -0.25,
	}
}
