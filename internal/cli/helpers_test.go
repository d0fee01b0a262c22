package cli

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const (
	modelsFile   = "testdata/models/models.cue"
	spectrumFile = "testdata/spectrum.yaml"
	scenariosDir = "../harness/testdata/scenarios"
	goldenDir    = "../harness/testdata/golden"
)

// rawResponse mirrors CLIResponse with Data left undecoded.
type rawResponse struct {
	Status   string          `json:"status"`
	Data     json.RawMessage `json:"data"`
	Error    *CLIError       `json:"error"`
	RunToken string          `json:"run_token"`
}

// testOpts returns root options as PersistentPreRunE would leave them.
func testOpts(format string) *RootOptions {
	return &RootOptions{Format: format, Env: EnvConfig{LogLevel: "info", Workers: 2}}
}

// execute runs cmd with args and returns stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decode parses a JSON response and, when data is non-nil, its payload.
func decode(t *testing.T, output string, data any) rawResponse {
	t.Helper()
	var resp rawResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp), "output: %s", output)
	if data != nil {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}

// keepDefaultLogger restores the default slog logger after the test.
func keepDefaultLogger(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

// sampleRun records n prior draws of the solo model under token.
func sampleRun(t *testing.T, dbPath, token string, n int, seed string) SampleResult {
	t.Helper()
	out, err := execute(t, NewSampleCommand(testOpts("json")),
		modelsFile, "--model", "solo", "--data", spectrumFile,
		"--db", dbPath, "--run", token, "--n", strconv.Itoa(n), "--seed", seed)
	require.NoError(t, err, "output: %s", out)

	var result SampleResult
	decode(t, out, &result)
	return result
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "zeemanhi.db")
}

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
