package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvwenger/bayes-zeeman-hi/internal/engine"
	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
	"github.com/tvwenger/bayes-zeeman-hi/internal/model"
	"github.com/tvwenger/bayes-zeeman-hi/internal/store"
)

// readEvaluations opens the store at path and returns the run's records.
func readEvaluations(t *testing.T, path, token string) []ir.EvaluationRecord {
	t.Helper()
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	recs, err := st.ReadEvaluations(context.Background(), token)
	require.NoError(t, err)
	return recs
}

func TestSampleRecordsRun(t *testing.T) {
	keepDefaultLogger(t)
	db := tempDB(t)

	result := sampleRun(t, db, "run-a", 20, "3")
	assert.Equal(t, "run-a", result.RunToken)
	assert.Equal(t, "solo", result.ModelName)
	assert.Equal(t, 20, result.Count)
	assert.Equal(t, int64(1), result.FirstSeq)
	assert.Equal(t, int64(20), result.LastSeq)
	assert.False(t, result.Resumed)
	assert.GreaterOrEqual(t, result.BestSeq, int64(1))
	assert.LessOrEqual(t, result.BestSeq, int64(20))

	recs := readEvaluations(t, db, "run-a")
	require.Len(t, recs, 20)
	for i, rec := range recs {
		assert.Equal(t, int64(i+1), rec.Seq)
		for _, name := range model.Outputs {
			_, ok := rec.Quantity(name)
			assert.True(t, ok, "seq %d missing %s", rec.Seq, name)
		}
	}
}

func TestSampleResumesRun(t *testing.T) {
	keepDefaultLogger(t)
	db := tempDB(t)

	sampleRun(t, db, "run-a", 20, "3")
	result := sampleRun(t, db, "run-a", 5, "4")

	assert.True(t, result.Resumed)
	assert.Equal(t, int64(21), result.FirstSeq)
	assert.Equal(t, int64(25), result.LastSeq)
	assert.Len(t, readEvaluations(t, db, "run-a"), 25)
}

func TestSampleSameSeedRecordsNothingNew(t *testing.T) {
	keepDefaultLogger(t)
	db := tempDB(t)

	first := sampleRun(t, db, "run-a", 10, "3")
	again := sampleRun(t, db, "run-a", 10, "3")

	assert.Equal(t, 10, first.Count)
	assert.Zero(t, first.Skipped)
	assert.Zero(t, again.Count)
	assert.Equal(t, 10, again.Skipped)
	assert.Zero(t, again.FirstSeq)
	assert.Zero(t, again.LastSeq)
	assert.Zero(t, again.BestSeq)

	recs := readEvaluations(t, db, "run-a")
	require.Len(t, recs, 10)
	assert.Equal(t, int64(10), recs[len(recs)-1].Seq)
}

func TestSampleSameSeedText(t *testing.T) {
	keepDefaultLogger(t)
	db := tempDB(t)
	sampleRun(t, db, "run-a", 4, "3")

	out, err := execute(t, NewSampleCommand(testOpts("text")),
		modelsFile, "--model", "solo", "--data", spectrumFile, "--db", db, "--run", "run-a", "--n", "6", "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Recorded 2 evaluation(s) in run run-a")
	assert.Contains(t, out, "already recorded: 4")
	assert.Contains(t, out, "seq: 9..10", "only new rows are reported")
	assert.Len(t, readEvaluations(t, db, "run-a"), 6)
}

func TestSampleDeterministicAcrossDatabases(t *testing.T) {
	keepDefaultLogger(t)
	first, second := tempDB(t), tempDB(t)

	sampleRun(t, first, "run-a", 12, "9")
	sampleRun(t, second, "run-a", 12, "9")

	if diff := cmp.Diff(readEvaluations(t, first, "run-a"), readEvaluations(t, second, "run-a")); diff != "" {
		t.Fatalf("runs differ (-first +second):\n%s", diff)
	}
}

func TestSampleRejectsRunOfAnotherModel(t *testing.T) {
	keepDefaultLogger(t)
	db := tempDB(t)
	sampleRun(t, db, "run-a", 3, "1")

	out, err := execute(t, NewSampleCommand(testOpts("json")),
		modelsFile, "--model", "pair", "--data", spectrumFile, "--db", db, "--run", "run-a", "--n", "3")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decode(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRunNotFound, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "recorded with model solo")
}

func TestSampleGeneratesRunToken(t *testing.T) {
	keepDefaultLogger(t)
	db := tempDB(t)

	out, err := execute(t, NewSampleCommand(testOpts("text")),
		modelsFile, "--model", "solo", "--data", spectrumFile, "--db", db, "--n", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Recorded 4 evaluation(s) in run ")
	assert.Contains(t, out, "seq: 1..4")

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	runs, err := st.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	token, err := uuid.Parse(runs[0].Token)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), token.Version())
}

func TestSampleRunGeneratorOverride(t *testing.T) {
	keepDefaultLogger(t)
	opts := &SampleOptions{RootOptions: testOpts("json")}
	opts.RunGenerator = engine.NewFixedGenerator("fixed-token")
	cmd := NewSampleCommand(opts.RootOptions)

	// Flags bind to the command's own options, so runSample is driven directly.
	opts.Data = spectrumFile
	opts.ModelName = "solo"
	opts.Database = tempDB(t)
	opts.Count = 2
	opts.Seed = 1

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, runSample(opts, modelsFile, cmd))

	var result SampleResult
	resp := decode(t, out.String(), &result)
	assert.Equal(t, "fixed-token", resp.RunToken)
	assert.Equal(t, "fixed-token", result.RunToken)
}

// Each case fails before the store is opened, so x.db is never created.
func TestSampleErrors(t *testing.T) {
	keepDefaultLogger(t)

	tests := []struct {
		name     string
		args     []string
		wantCode string
	}{
		{"no database", []string{modelsFile, "--model", "solo", "--data", spectrumFile}, ErrCodeDatabase},
		{"zero draws", []string{modelsFile, "--model", "solo", "--data", spectrumFile, "--db", "x.db", "--n", "0"}, ErrCodeGeneric},
		{"ambiguous model", []string{modelsFile, "--data", spectrumFile, "--db", "x.db"}, ErrCodeModelNotFound},
		{"unknown model", []string{modelsFile, "--model", "triple", "--data", spectrumFile, "--db", "x.db"}, ErrCodeModelNotFound},
		{"missing data", []string{modelsFile, "--model", "solo", "--data", "nope.yaml", "--db", "x.db"}, ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewSampleCommand(testOpts("json")), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			resp := decode(t, out, nil)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestSampleRequiresData(t *testing.T) {
	_, err := execute(t, NewSampleCommand(testOpts("text")), modelsFile, "--db", tempDB(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "data" not set`)
}

func TestSummarizeEmpty(t *testing.T) {
	m, err := model.New(ir.ModelSpec{Name: "empty", Tbg: 3.5, Priors: ir.DefaultPriors()}, ir.SpecData{
		ir.KeyStokesI: {Spectral: []float64{0}, Brightness: []float64{3.5}, Noise: []float64{0.1}},
		ir.KeyStokesV: {Spectral: []float64{0}, Brightness: []float64{0}, Noise: []float64{0.1}},
	})
	require.NoError(t, err)

	result := summarize(engine.New(m, engine.NewFixedGenerator("t")), nil)
	assert.Equal(t, "t", result.RunToken)
	assert.Equal(t, 0, result.Count)
	assert.Equal(t, int64(0), result.BestSeq)
	assert.Zero(t, result.BestLogPosterior)
}
