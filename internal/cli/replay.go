package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
	"github.com/tvwenger/bayes-zeeman-hi/internal/model"
	"github.com/tvwenger/bayes-zeeman-hi/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Data     string
	RunToken string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single run. Skipped runs
// were recorded against different data and are not re-evaluated.
type ReplayRunResult struct {
	RunToken      string `json:"run_token"`
	ModelName     string `json:"model_name"`
	Evaluations   int    `json:"evaluations"`
	Mismatches    int    `json:"mismatches"`
	FirstMismatch string `json:"first_mismatch,omitempty"`
	Deterministic bool   `json:"deterministic"`
	Skipped       bool   `json:"skipped,omitempty"`
	SkipReason    string `json:"skip_reason,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	Skipped          int               `json:"skipped"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-evaluate recorded runs and verify determinism",
		Long: `Rebuild each run's model from its stored configuration, re-evaluate
every recorded draw against the observed spectrum and compare the result
bit for bit with the store: evaluation ID, log-likelihood, log prior and
every named quantity.

The store does not keep the observed spectrum; pass the file the run was
sampled against with --data. Each run records a digest of its spectrum:
runs recorded against a different spectrum are skipped, and --run naming
such a run is a command error.

Exit codes:
  0 - All runs reproduce exactly
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, unknown run, etc.)

Examples:
  zeemanhi replay --db ./zeemanhi.db --data ./spectrum.yaml
  zeemanhi replay --db ./zeemanhi.db --data ./spectrum.yaml --run <token>
  zeemanhi replay --db ./zeemanhi.db --data ./spectrum.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $ZEEMANHI_DB)")
	cmd.Flags().StringVar(&opts.Data, "data", "", "observed spectrum YAML file (required)")
	_ = cmd.MarkFlagRequired("data")
	cmd.Flags().StringVar(&opts.RunToken, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	dbPath, err := databasePath(opts.Database, opts.Env)
	if err != nil {
		return commandError(formatter, ErrCodeDatabase, err.Error(), nil)
	}
	data, err := LoadData(opts.Data)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	// Runs recorded before digests were kept, or data that cannot be
	// hashed, fall back to a full comparison.
	dataHash, _ := ir.DataHash(data)

	st, err := store.Open(dbPath)
	if err != nil {
		return commandError(formatter, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	var runs []ir.Run
	if opts.RunToken != "" {
		run, err := st.ReadRun(ctx, opts.RunToken)
		if errors.Is(err, sql.ErrNoRows) {
			return commandError(formatter, ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", opts.RunToken), nil)
		}
		if err != nil {
			return commandError(formatter, ErrCodeDatabase, "failed to read run", err)
		}
		if reason := dataMismatch(run, dataHash); reason != "" {
			return commandError(formatter, ErrCodeDataMismatch, fmt.Sprintf("run %s: %s", run.Token, reason), nil)
		}
		runs = []ir.Run{run}
	} else {
		runs, err = st.ListRuns(ctx)
		if err != nil {
			return commandError(formatter, ErrCodeDatabase, "failed to list runs", err)
		}
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}

	for _, run := range runs {
		if reason := dataMismatch(run, dataHash); reason != "" {
			formatter.VerboseLog("Skipping run: %s (%s)", run.Token, reason)
			result.Runs = append(result.Runs, ReplayRunResult{
				RunToken:      run.Token,
				ModelName:     run.ModelName,
				Deterministic: true,
				Skipped:       true,
				SkipReason:    reason,
			})
			result.Skipped++
			continue
		}

		formatter.VerboseLog("Replaying run: %s", run.Token)
		runResult, err := replayRun(ctx, st, run, data)
		if err != nil {
			return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("failed to replay run %s", run.Token), err)
		}
		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if formatter.Format == "json" {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// dataMismatch describes why run cannot be replayed against data with the
// given digest, or returns "". An empty digest on either side matches.
func dataMismatch(run ir.Run, dataHash string) string {
	if run.DataHash == "" || dataHash == "" || run.DataHash == dataHash {
		return ""
	}
	return fmt.Sprintf("recorded against data %s, --data is %s", shortHash(run.DataHash), shortHash(dataHash))
}

// replayRun re-evaluates every recorded draw of a run.
func replayRun(ctx context.Context, st *store.Store, run ir.Run, data ir.SpecData) (ReplayRunResult, error) {
	out := ReplayRunResult{RunToken: run.Token, ModelName: run.ModelName, Deterministic: true}

	m, err := model.New(run.Spec, data)
	if err != nil {
		return out, fmt.Errorf("rebuild model: %w", err)
	}

	mismatch := func(msg string) {
		out.Mismatches++
		out.Deterministic = false
		if out.FirstMismatch == "" {
			out.FirstMismatch = msg
		}
	}

	if m.Hash() != run.ModelHash {
		mismatch(fmt.Sprintf("model hash %s does not match stored configuration (%s)",
			shortHash(run.ModelHash), shortHash(m.Hash())))
	}

	records, err := st.ReadEvaluations(ctx, run.Token)
	if err != nil {
		return out, err
	}
	out.Evaluations = len(records)

	for _, rec := range records {
		if msg := compareRecord(m, rec); msg != "" {
			mismatch(fmt.Sprintf("seq %d: %s", rec.Seq, msg))
		}
	}
	return out, nil
}

// compareRecord re-evaluates a stored record and describes the first
// difference, or returns "".
func compareRecord(m *model.Model, rec ir.EvaluationRecord) string {
	ev, err := m.Evaluate(rec.Draws)
	if err != nil {
		return fmt.Sprintf("re-evaluation failed: %v", err)
	}

	id, err := ir.EvaluationID(m.Hash(), rec.Draws)
	if err != nil {
		return fmt.Sprintf("evaluation id: %v", err)
	}
	if id != rec.ID {
		return fmt.Sprintf("evaluation id %s, stored %s", shortHash(id), shortHash(rec.ID))
	}
	if ev.LogLikelihood != rec.LogLikelihood {
		return fmt.Sprintf("log_likelihood %v, stored %v", ev.LogLikelihood, rec.LogLikelihood)
	}
	if ev.LogPrior != rec.LogPrior {
		return fmt.Sprintf("log_prior %v, stored %v", ev.LogPrior, rec.LogPrior)
	}
	for _, q := range ev.Trace.Quantities() {
		stored, ok := rec.Quantity(q.Name)
		if !ok {
			return fmt.Sprintf("quantity %s not stored", q.Name)
		}
		if !slices.Equal(q.Values, stored) {
			return fmt.Sprintf("quantity %s %v, stored %v", q.Name, q.Values, stored)
		}
	}
	return ""
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	if err := writeJSON(formatter.Writer, response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n\n", result.TotalRuns)

	for _, run := range result.Runs {
		if run.Skipped {
			fmt.Fprintf(w, "- Run: %s (%s)\n", run.RunToken, run.ModelName)
			fmt.Fprintf(w, "  Skipped: %s\n\n", run.SkipReason)
			continue
		}

		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Run: %s (%s)\n", status, run.RunToken, run.ModelName)
		fmt.Fprintf(w, "  Evaluations: %d\n", run.Evaluations)
		if !run.Deterministic {
			fmt.Fprintf(w, "  Mismatches: %d\n", run.Mismatches)
			fmt.Fprintf(w, "  First: %s\n", run.FirstMismatch)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		if result.Skipped > 0 {
			fmt.Fprintf(w, "✓ All replayed runs verified deterministic (%d skipped)\n", result.Skipped)
			return nil
		}
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
