package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tvwenger/bayes-zeeman-hi/internal/engine"
	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
	"github.com/tvwenger/bayes-zeeman-hi/internal/model"
	"github.com/tvwenger/bayes-zeeman-hi/internal/store"
	"github.com/tvwenger/bayes-zeeman-hi/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and a fixed run token.
type Harness struct {
	store     *store.Store
	evaluator *engine.Evaluator
	logger    *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Resolve the model configuration and build the model
// 3. Evaluate every step in order, recording successes
// 4. Evaluate assertions against outcomes and the stored run
//
// Configuration problems return an error; failed expectations are
// reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	spec, err := scenario.ModelSpec()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve model: %w", err)
	}

	m, err := model.New(spec, scenario.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to build model: %w", err)
	}

	ev := engine.New(m, testutil.NewFixedRunGenerator(scenario.RunToken),
		engine.WithRecorder(st),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithWorkers(1),
	)

	h := &Harness{
		store:     st,
		evaluator: ev,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()
	result := NewResult()
	result.RunToken = ev.Run().Token

	h.executeEvaluations(ctx, scenario, spec.Priors, result)

	actx := &AssertionContext{
		Store:    st,
		Ctx:      ctx,
		RunToken: result.RunToken,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeEvaluations evaluates every step sequentially so seq values follow
// step order, and checks expected errors.
func (h *Harness) executeEvaluations(ctx context.Context, scenario *Scenario, priors ir.Priors, result *Result) {
	draws := scenario.Draws(priors)
	for i, step := range scenario.Evaluations {
		r, err := h.evaluator.Evaluate(ctx, draws[i])

		var outcome Outcome
		if err != nil {
			outcome = Outcome{Err: err, ErrorCode: errorCode(err)}
			var re *engine.RuntimeError
			if errors.As(err, &re) {
				outcome.Seq = re.Seq
			}
		} else {
			outcome = Outcome{Seq: r.Record.Seq, Record: r.Record, Evaluation: r.Evaluation}
		}
		result.Outcomes = append(result.Outcomes, outcome)

		switch {
		case step.ExpectError == "" && err != nil:
			result.AddError(fmt.Sprintf("evaluations[%d]: unexpected error: %v", i, err))
		case step.ExpectError != "" && err == nil:
			result.AddError(fmt.Sprintf("evaluations[%d]: expected error %s, evaluation succeeded", i, step.ExpectError))
		case step.ExpectError != "" && outcome.ErrorCode != step.ExpectError:
			result.AddError(fmt.Sprintf("evaluations[%d]: expected error %s, got %s", i, step.ExpectError, outcome.ErrorCode))
		}

		h.logger.Info("evaluation step completed",
			"step", i,
			"seq", outcome.Seq,
			"error_code", outcome.ErrorCode,
		)
	}
}

// errorCode returns the runtime error code of err, or "UNKNOWN".
func errorCode(err error) string {
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return "UNKNOWN"
}
