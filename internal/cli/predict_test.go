package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvwenger/bayes-zeeman-hi/internal/testutil"
)

var concreteScenario = filepath.Join(scenariosDir, "concrete.yaml")

func TestPredictText(t *testing.T) {
	out, err := execute(t, NewPredictCommand(testOpts("text")), concreteScenario)
	require.NoError(t, err)

	assert.Contains(t, out, "Scenario: concrete")
	assert.Contains(t, out, "Model: concrete (1 cloud(s), tbg=3.5 K")
	assert.Contains(t, out, "Evaluation 0: log_likelihood=24.19315856")
	assert.Contains(t, out, "cloud 0: tau_total=0.5 fwhm2=4 velocity=0 Bparallel=10")
	assert.Contains(t, out, "- Evaluation 1:")
	assert.Contains(t, out, "leakage_fraction=0.01")
	assert.Contains(t, out, "4.2457146")
	assert.NotContains(t, out, "✗")
}

func TestPredictJSON(t *testing.T) {
	out, err := execute(t, NewPredictCommand(testOpts("json")), concreteScenario)
	require.NoError(t, err)

	var result PredictResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "concrete", result.Scenario)
	assert.Equal(t, []float64{-5, 0, 5}, result.SpectralI)
	assert.NotEmpty(t, result.ModelHash)
	require.Len(t, result.Evaluations, 3)

	first := result.Evaluations[0]
	require.NotNil(t, first.Predicted)
	testutil.RequireApprox(t, []float64{4.245714617988434}, first.Predicted.I[1:2], 1e-12, 0)
	assert.Equal(t, 0.0, first.Predicted.V[1])
	assert.Negative(t, first.Predicted.V[0])
	assert.Positive(t, first.Predicted.V[2])
	testutil.RequireApprox(t, []float64{24.193158558574417}, []float64{first.LogLikelihood}, 1e-6, 0)

	failed := result.Evaluations[1]
	assert.NotEmpty(t, failed.Error)
	assert.Equal(t, "INVALID_DRAW", failed.ExpectError)
	assert.Nil(t, failed.Predicted)

	assert.Equal(t, 0.01, result.Evaluations[2].LeakageFraction)
}

func TestPredictUnexpectedFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", `
name: bad
description: "non-positive fwhm2 draw"
model: { clouds: 1, tbg: 3.5 }
data:
  I: { spectral: [0.0], brightness: [7.0], noise: [0.1] }
  V: { spectral: [0.0], brightness: [0.0], noise: [0.1] }
evaluations:
  - draws:
      tau_total_norm: [0.5]
      fwhm2_norm: [0.0]
      velocity_norm: [0.5]
      bparallel_norm: [0.5]
      leakage_fraction_norm: 0.0
assertions:
  - type: log_likelihood
    value: 0.0
`)

	out, err := execute(t, NewPredictCommand(testOpts("text")), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 evaluation(s) failed")
	assert.Contains(t, out, "✗ Evaluation 0:")
}

func TestPredictMissingScenario(t *testing.T) {
	out, err := execute(t, NewPredictCommand(testOpts("json")), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decode(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScenario, resp.Error.Code)
}

func TestCell(t *testing.T) {
	values := []float64{1.5, -0.25}
	assert.Equal(t, "1.5", cell(values, 0))
	assert.Equal(t, "-0.25", cell(values, 1))
	assert.Equal(t, "", cell(values, 2))
}
