package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
	"github.com/tvwenger/bayes-zeeman-hi/internal/model"
	"github.com/tvwenger/bayes-zeeman-hi/internal/store"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Database string
	RunToken string // optional - list runs when empty
	Name     string // optional - restrict to one quantity
}

// RunSummary describes one recorded run.
type RunSummary struct {
	Token       string `json:"token"`
	ModelName   string `json:"model_name"`
	ModelHash   string `json:"model_hash"`
	Clouds      int    `json:"clouds"`
	Evaluations int    `json:"evaluations"`
	LastSeq     int64  `json:"last_seq"`
}

// QuantitySummary holds per-element statistics of one quantity over a run.
type QuantitySummary struct {
	Name   string      `json:"name"`
	Label  string      `json:"label,omitempty"`
	Rows   int         `json:"rows"`
	Mean   []float64   `json:"mean"`
	Std    []float64   `json:"std"`
	Min    []float64   `json:"min"`
	Max    []float64   `json:"max"`
	Values [][]float64 `json:"values,omitempty"`
}

// RunReport is the detailed report of a single run.
type RunReport struct {
	Run              RunSummary        `json:"run"`
	Spec             ir.ModelSpec      `json:"spec"`
	BestSeq          int64             `json:"best_seq,omitempty"`
	BestLogPosterior float64           `json:"best_log_posterior,omitempty"`
	Quantities       []QuantitySummary `json:"quantities"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize recorded runs",
		Long: `Summarize runs recorded in the store.

Without --run, lists every run with its model and evaluation count.
With --run, reports the best log posterior and per-cloud statistics of
each named quantity, read back from the store in seq order.
With --name, reports one quantity; --verbose also prints every value.

Examples:
  zeemanhi report --db ./zeemanhi.db
  zeemanhi report --db ./zeemanhi.db --run <token>
  zeemanhi report --db ./zeemanhi.db --run <token> --name velocity --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $ZEEMANHI_DB)")
	cmd.Flags().StringVar(&opts.RunToken, "run", "", "run token to report")
	cmd.Flags().StringVar(&opts.Name, "name", "", "quantity name (requires --run)")

	return cmd
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Name != "" && opts.RunToken == "" {
		return commandError(formatter, ErrCodeGeneric, "--name requires --run", nil)
	}
	dbPath, err := databasePath(opts.Database, opts.Env)
	if err != nil {
		return commandError(formatter, ErrCodeDatabase, err.Error(), nil)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return commandError(formatter, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunToken == "" {
		return reportRuns(ctx, st, formatter)
	}
	return reportRun(ctx, st, opts, formatter)
}

// reportRuns lists every run in token order.
func reportRuns(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return commandError(formatter, ErrCodeDatabase, "failed to list runs", err)
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		s, err := summarizeRun(ctx, st, run)
		if err != nil {
			return commandError(formatter, ErrCodeDatabase, "failed to read run", err)
		}
		summaries = append(summaries, s)
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}

	w := formatter.Writer
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	fmt.Fprintf(w, "Runs: %d\n\n", len(summaries))
	for _, s := range summaries {
		fmt.Fprintf(w, "  %s  %s (%d cloud(s), hash=%s)  %d evaluation(s), last seq %d\n",
			s.Token, s.ModelName, s.Clouds, shortHash(s.ModelHash), s.Evaluations, s.LastSeq)
	}
	return nil
}

// reportRun reports one run in detail.
func reportRun(ctx context.Context, st *store.Store, opts *ReportOptions, formatter *OutputFormatter) error {
	run, err := st.ReadRun(ctx, opts.RunToken)
	if errors.Is(err, sql.ErrNoRows) {
		return commandError(formatter, ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", opts.RunToken), nil)
	}
	if err != nil {
		return commandError(formatter, ErrCodeDatabase, "failed to read run", err)
	}

	records, err := st.ReadEvaluations(ctx, run.Token)
	if err != nil {
		return commandError(formatter, ErrCodeDatabase, "failed to read evaluations", err)
	}

	report := RunReport{
		Run: RunSummary{
			Token:       run.Token,
			ModelName:   run.ModelName,
			ModelHash:   run.ModelHash,
			Clouds:      run.Spec.Clouds,
			Evaluations: len(records),
		},
		Spec: run.Spec,
	}
	best := math.Inf(-1)
	for _, rec := range records {
		report.Run.LastSeq = max(report.Run.LastSeq, rec.Seq)
		if lp := rec.LogLikelihood + rec.LogPrior; lp > best {
			best = lp
			report.BestSeq = rec.Seq
			report.BestLogPosterior = lp
		}
	}

	names := model.Outputs
	if opts.Name != "" {
		names = []string{opts.Name}
	}
	for _, name := range names {
		rows, err := st.ReadQuantity(ctx, run.Token, name)
		if err != nil {
			return commandError(formatter, ErrCodeDatabase, fmt.Sprintf("failed to read %s", name), err)
		}
		if len(rows) == 0 && len(records) > 0 {
			return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("quantity %q is not recorded in run %s", name, run.Token), nil)
		}
		q := summarizeQuantity(name, rows)
		if opts.Verbose && opts.Name != "" {
			q.Values = rows
		}
		report.Quantities = append(report.Quantities, q)
	}

	if formatter.Format == "json" {
		return writeJSON(formatter.Writer, CLIResponse{Status: "ok", Data: report, RunToken: run.Token})
	}
	outputRunReportText(formatter, report)
	return nil
}

// summarizeRun counts a run's evaluations.
func summarizeRun(ctx context.Context, st *store.Store, run ir.Run) (RunSummary, error) {
	records, err := st.ReadEvaluations(ctx, run.Token)
	if err != nil {
		return RunSummary{}, err
	}
	last, err := st.GetLastSeq(ctx, run.Token)
	if err != nil {
		return RunSummary{}, err
	}
	return RunSummary{
		Token:       run.Token,
		ModelName:   run.ModelName,
		ModelHash:   run.ModelHash,
		Clouds:      run.Spec.Clouds,
		Evaluations: len(records),
		LastSeq:     last,
	}, nil
}

// summarizeQuantity computes per-element mean, standard deviation and range.
// Rows of one quantity share a length within a run.
func summarizeQuantity(name string, rows [][]float64) QuantitySummary {
	q := QuantitySummary{Name: name, Label: model.Labels[name], Rows: len(rows)}
	if len(rows) == 0 {
		return q
	}

	width := len(rows[0])
	q.Mean = make([]float64, width)
	q.Std = make([]float64, width)
	q.Min = make([]float64, width)
	q.Max = make([]float64, width)
	for k := 0; k < width; k++ {
		q.Min[k] = math.Inf(1)
		q.Max[k] = math.Inf(-1)
	}

	for _, row := range rows {
		for k, x := range row {
			q.Mean[k] += x
			q.Min[k] = math.Min(q.Min[k], x)
			q.Max[k] = math.Max(q.Max[k], x)
		}
	}
	n := float64(len(rows))
	for k := range q.Mean {
		q.Mean[k] /= n
	}
	for _, row := range rows {
		for k, x := range row {
			d := x - q.Mean[k]
			q.Std[k] += d * d
		}
	}
	for k := range q.Std {
		q.Std[k] = math.Sqrt(q.Std[k] / n)
	}
	return q
}

// outputRunReportText prints a run report.
func outputRunReportText(formatter *OutputFormatter, report RunReport) {
	w := formatter.Writer
	r := report.Run
	fmt.Fprintf(w, "Run: %s\n", r.Token)
	fmt.Fprintf(w, "  model: %s (%d cloud(s), tbg=%g K, hash=%s)\n",
		r.ModelName, r.Clouds, report.Spec.Tbg, shortHash(r.ModelHash))
	fmt.Fprintf(w, "  evaluations: %d, last seq %d\n", r.Evaluations, r.LastSeq)
	if r.Evaluations == 0 {
		return
	}
	fmt.Fprintf(w, "  best log posterior: %.6g at seq %d\n\n", report.BestLogPosterior, report.BestSeq)

	for _, q := range report.Quantities {
		fmt.Fprintf(w, "%s\n", q.Name)
		for k := range q.Mean {
			fmt.Fprintf(w, "  [%d] mean=%.6g std=%.6g min=%.6g max=%.6g\n",
				k, q.Mean[k], q.Std[k], q.Min[k], q.Max[k])
		}
		for i, row := range q.Values {
			formatter.VerboseLog("  row %d: %v", i, row)
		}
	}
}
