package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tvwenger/bayes-zeeman-hi/internal/engine"
	"github.com/tvwenger/bayes-zeeman-hi/internal/model"
	"github.com/tvwenger/bayes-zeeman-hi/internal/sampler"
	"github.com/tvwenger/bayes-zeeman-hi/internal/store"
)

// SampleOptions holds flags for the sample command.
type SampleOptions struct {
	*RootOptions
	Data      string
	ModelName string
	Database  string
	RunToken  string // optional - append to an existing run
	Count     int
	Seed      int64
	Workers   int

	// RunGenerator overrides the run token source (tests).
	RunGenerator engine.RunTokenGenerator
}

// SampleResult summarizes one recorded batch of prior draws. Count and the
// seq and log-likelihood figures cover newly stored evaluations only;
// Skipped counts draws the run had already recorded.
type SampleResult struct {
	RunToken          string  `json:"run_token"`
	ModelName         string  `json:"model_name"`
	ModelHash         string  `json:"model_hash"`
	Count             int     `json:"count"`
	Skipped           int     `json:"skipped"`
	FirstSeq          int64   `json:"first_seq"`
	LastSeq           int64   `json:"last_seq"`
	Resumed           bool    `json:"resumed"`
	MeanLogLikelihood float64 `json:"mean_log_likelihood"`
	BestSeq           int64   `json:"best_seq"`
	BestLogPosterior  float64 `json:"best_log_posterior"`
}

// NewSampleCommand creates the sample command.
func NewSampleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SampleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sample <model.cue|models-dir>",
		Short: "Record prior-predictive draws in the store",
		Long: `Draw standardized parameters from their priors, evaluate them against an
observed spectrum and record every evaluation in the SQLite store.

Draws are deterministic for a seed. Passing --run appends to an existing
run after its last seq; the run must have been recorded with the same
model. Appending the same seed again records nothing new, since
evaluation IDs are derived from the model and the draws.

Interrupting the command (Ctrl-C) stops the batch between evaluations.

Examples:
  zeemanhi sample ./models.cue --data ./spectrum.yaml --db ./zeemanhi.db --n 500
  zeemanhi sample ./models --model two_cloud --data ./spectrum.yaml --seed 7
  zeemanhi sample ./models.cue --data ./spectrum.yaml --run <token> --seed 8`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSample(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "observed spectrum YAML file (required)")
	_ = cmd.MarkFlagRequired("data")
	cmd.Flags().StringVar(&opts.ModelName, "model", "", "model name when the file defines several")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $ZEEMANHI_DB)")
	cmd.Flags().StringVar(&opts.RunToken, "run", "", "append to this run token")
	cmd.Flags().IntVar(&opts.Count, "n", 100, "number of draws")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 1, "random seed")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "concurrent evaluations (default $ZEEMANHI_WORKERS)")

	return cmd
}

func runSample(opts *SampleOptions, modelPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Count < 1 {
		return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("--n must be at least 1, got %d", opts.Count), nil)
	}
	dbPath, err := databasePath(opts.Database, opts.Env)
	if err != nil {
		return commandError(formatter, ErrCodeDatabase, err.Error(), nil)
	}

	spec, err := LoadModel(modelPath, opts.ModelName)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	data, err := LoadData(opts.Data)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	m, err := model.New(spec, data)
	if err != nil {
		return commandError(formatter, ErrCodeDataInvalid, "failed to build model", err)
	}

	slog.Info("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return commandError(formatter, ErrCodeDatabase, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ctx, stop := signalContext(cmd)
	defer stop()

	evalOpts := []engine.Option{
		engine.WithRecorder(st),
		engine.WithWorkers(workerCount(opts.Workers, opts.Env)),
	}
	gen := opts.RunGenerator
	resumed := false

	if opts.RunToken != "" {
		clock, found, err := resumeRun(ctx, st, opts.RunToken, m.Hash())
		if err != nil {
			return commandError(formatter, ErrCodeRunNotFound, err.Error(), nil)
		}
		resumed = found
		evalOpts = append(evalOpts, engine.WithClock(clock))
		gen = engine.NewFixedGenerator(opts.RunToken)
	}
	if gen == nil {
		gen = engine.UUIDv7Generator{}
	}

	ev := engine.New(m, gen, evalOpts...)
	draws := sampler.New(spec.Clouds, opts.Seed).Draw(opts.Count)

	slog.Info("sampling", "run", ev.Run().Token, "model", spec.Name, "n", opts.Count, "seed", opts.Seed)
	results, err := ev.EvaluateBatch(ctx, draws)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return WrapExitError(ExitFailure, "sampling interrupted", err)
		}
		return WrapExitError(ExitFailure, "sampling failed", err)
	}

	result := summarize(ev, results)
	result.Resumed = resumed

	if formatter.Format == "json" {
		return writeJSON(formatter.Writer, CLIResponse{Status: "ok", Data: result, RunToken: result.RunToken})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Recorded %d evaluation(s) in run %s\n", result.Count, result.RunToken)
	fmt.Fprintf(w, "  model: %s (hash=%s)\n", result.ModelName, shortHash(result.ModelHash))
	if result.Skipped > 0 {
		fmt.Fprintf(w, "  already recorded: %d\n", result.Skipped)
	}
	if result.Count == 0 {
		return nil
	}
	fmt.Fprintf(w, "  seq: %d..%d\n", result.FirstSeq, result.LastSeq)
	fmt.Fprintf(w, "  mean log-likelihood: %.6g\n", result.MeanLogLikelihood)
	fmt.Fprintf(w, "  best log posterior: %.6g at seq %d\n", result.BestLogPosterior, result.BestSeq)
	return nil
}

// resumeRun checks an existing run against the model and returns a clock
// positioned after its last seq. found is false for a new token.
func resumeRun(ctx context.Context, st *store.Store, token, modelHash string) (*engine.Clock, bool, error) {
	run, err := st.ReadRun(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.NewClock(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read run %s: %w", token, err)
	}
	if run.ModelHash != modelHash {
		return nil, false, fmt.Errorf("run %s was recorded with model %s (hash %s)",
			token, run.ModelName, shortHash(run.ModelHash))
	}

	last, err := st.GetLastSeq(ctx, token)
	if err != nil {
		return nil, false, err
	}
	slog.Info("resuming run", "run", token, "last_seq", last)
	return engine.NewClockAt(last), true, nil
}

// summarize reduces batch results to the figures printed by sample. Only
// results the store recorded as new rows are counted.
func summarize(ev *engine.Evaluator, results []*engine.Result) SampleResult {
	run := ev.Run()
	out := SampleResult{
		RunToken:  run.Token,
		ModelName: run.ModelName,
		ModelHash: run.ModelHash,
	}

	sum, best := 0.0, math.Inf(-1)
	for _, r := range results {
		if !r.Recorded {
			out.Skipped++
			continue
		}
		if out.Count == 0 {
			out.FirstSeq = r.Record.Seq
		}
		out.Count++
		out.LastSeq = r.Record.Seq
		sum += r.Evaluation.LogLikelihood
		if lp := r.Evaluation.LogPosterior(); lp > best {
			best = lp
			out.BestSeq = r.Record.Seq
		}
	}
	// JSON has no -Inf; an empty batch reports zeros.
	if out.Count > 0 {
		out.MeanLogLikelihood = sum / float64(out.Count)
		out.BestLogPosterior = best
	}
	return out
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
// The command's context is used as parent when set (tests).
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
