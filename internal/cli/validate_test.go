package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidModels(t *testing.T) {
	out, err := execute(t, NewValidateCommand(testOpts("text")), modelsFile)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All models valid (2)")
}

func TestValidateDirectory(t *testing.T) {
	out, err := execute(t, NewValidateCommand(testOpts("text")), "testdata/models")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All models valid (2)")
}

func TestValidateValidModelsJSON(t *testing.T) {
	out, err := execute(t, NewValidateCommand(testOpts("json")), modelsFile)
	require.NoError(t, err)

	var result ValidationResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Equal(t, []string{"solo", "pair"}, result.Models)
}

func TestValidateInvalidModels(t *testing.T) {
	out, err := execute(t, NewValidateCommand(testOpts("text")), "testdata/invalid/bounds.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "2 error(s)")

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "model backwards")
	assert.Contains(t, out, "E203: priors.velocity")
	assert.Contains(t, out, "model empty")
	assert.Contains(t, out, "E201: clouds")
}

func TestValidateInvalidModelsJSON(t *testing.T) {
	out, err := execute(t, NewValidateCommand(testOpts("json")), "testdata/invalid/bounds.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	resp := decode(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E203", resp.Error.Code)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "backwards", result.Errors[0].Model)
	assert.Equal(t, "empty", result.Errors[1].Model)
}

func TestValidateCompileFailure(t *testing.T) {
	out, err := execute(t, NewValidateCommand(testOpts("text")), "testdata/broken/missing_tbg.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E102")
	assert.Contains(t, out, "model incomplete: tbg is required")
}

func TestValidateSchemaViolation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "typo.cue", "model: typo: {\n\tclouds: 1\n\ttbg: 3.5\n\tprior: {fwhm2: 2.0}\n}\n")

	out, err := execute(t, NewValidateCommand(testOpts("json")), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	decode(t, out, &result)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrCodeSchema, result.Errors[0].Code)
	assert.Positive(t, result.Errors[0].Line)
}

func TestValidateNonExistentPath(t *testing.T) {
	out, err := execute(t, NewValidateCommand(testOpts("text")), "/nonexistent/models.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
	assert.Contains(t, out, "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	_, err := execute(t, NewValidateCommand(testOpts("text")), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E003")
}

func TestValidateVerbose(t *testing.T) {
	opts := testOpts("text")
	opts.Verbose = true
	cmd := NewValidateCommand(opts)

	stderr := &bytes.Buffer{}
	cmd.SetErr(stderr)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{modelsFile})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, stderr.String(), "Validating model: solo")
	assert.Contains(t, stderr.String(), "Validating model: pair")
}
