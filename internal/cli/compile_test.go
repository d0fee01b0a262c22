package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
)

func TestCompileText(t *testing.T) {
	out, err := execute(t, NewCompileCommand(testOpts("text")), modelsFile)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled 2 model(s)")
	assert.Contains(t, out, "solo: 1 cloud(s), tbg=3.5 K")
	assert.Contains(t, out, "pair: 2 cloud(s), tbg=40 K")
	assert.NotContains(t, out, "Wrote canonical IR")
}

func TestCompileJSON(t *testing.T) {
	out, err := execute(t, NewCompileCommand(testOpts("json")), modelsFile)
	require.NoError(t, err)

	var result CompilationResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, result.Models, 2)

	pair := result.Models[1]
	assert.Equal(t, "pair", pair.Name)
	assert.Equal(t, ir.MustModelHash(pair.Spec), pair.Hash)
	assert.Equal(t, 20.0, pair.Spec.Priors.FWHM2)
	assert.Equal(t, ir.Bounds{Lo: -8, Hi: 8}, pair.Spec.Priors.Velocity)
	assert.Equal(t, ir.DefaultPriors().Bparallel, pair.Spec.Priors.Bparallel)
}

func TestCompileOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.json")

	out, err := execute(t, NewCompileCommand(testOpts("text")), modelsFile, "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote canonical IR to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var written CompilationResult
	require.NoError(t, json.Unmarshal(data, &written))
	require.Len(t, written.Models, 2)
	for _, m := range written.Models {
		assert.Equal(t, ir.MustModelHash(m.Spec), m.Hash, m.Name)
	}

	// Canonical output is byte-stable.
	again, err := ir.MarshalCanonical(&written)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestCompileOutputFileUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "models.json")

	_, err := execute(t, NewCompileCommand(testOpts("text")), modelsFile, "-o", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeWriteFailed)
}

func TestCompileInvalidModels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.json")

	out, err := execute(t, NewCompileCommand(testOpts("text")), "testdata/invalid/bounds.cue", "-o", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.NoFileExists(t, path)
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "0123456789ab", shortHash("0123456789abcdef"))
	assert.Equal(t, "abc", shortHash("abc"))
}
