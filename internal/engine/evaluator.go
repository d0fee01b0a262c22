package engine

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
	"github.com/tvwenger/bayes-zeeman-hi/internal/model"
)

// DefaultWorkers is the default number of concurrent evaluations in a batch.
const DefaultWorkers = 4

// Recorder persists runs and evaluations. Implemented by *store.Store.
// Writes must be idempotent and safe for concurrent use. WriteEvaluation
// reports false when the evaluation was already recorded.
type Recorder interface {
	WriteRun(ctx context.Context, run ir.Run) error
	WriteEvaluation(ctx context.Context, rec ir.EvaluationRecord) (bool, error)
}

// Result is one evaluation together with its persisted form. Recorded is
// true when the recorder stored it as a new row.
type Result struct {
	Record     ir.EvaluationRecord
	Evaluation *model.Evaluation
	Recorded   bool
}

// Evaluator evaluates draws against one model within one run.
//
// Thread-safety model:
//   - Evaluate() and EvaluateBatch(): safe from any goroutine
//   - Options: only during New()
type Evaluator struct {
	model    *model.Model
	clock    Sequencer
	run      ir.Run
	recorder Recorder
	workers  int

	runOnce sync.Once
	runErr  error
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithRecorder records the run and every evaluation to r.
func WithRecorder(r Recorder) Option {
	return func(e *Evaluator) {
		e.recorder = r
	}
}

// WithClock replaces the evaluator's clock.
// Use NewClockAt to append to an existing run.
func WithClock(c Sequencer) Option {
	return func(e *Evaluator) {
		e.clock = c
	}
}

// WithWorkers sets the number of concurrent evaluations in EvaluateBatch.
// Values below 1 are treated as 1.
func WithWorkers(n int) Option {
	return func(e *Evaluator) {
		e.workers = max(n, 1)
	}
}

// New creates an Evaluator for m. The run token is taken from gen once,
// at construction.
func New(m *model.Model, gen RunTokenGenerator, opts ...Option) *Evaluator {
	spec := m.Spec()
	e := &Evaluator{
		model: m,
		clock: NewClock(),
		run: ir.Run{
			Token:         gen.Generate(),
			ModelName:     spec.Name,
			ModelHash:     m.Hash(),
			Spec:          spec,
			EngineVersion: ir.EngineVersion,
			IRVersion:     ir.IRVersion,
			DataHash:      m.DataHash(),
		},
		workers: DefaultWorkers,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run returns the run this evaluator records into.
func (e *Evaluator) Run() ir.Run {
	return e.run
}

// Evaluate evaluates one set of draws, stamped with the next clock value.
func (e *Evaluator) Evaluate(ctx context.Context, d ir.Draws) (*Result, error) {
	return e.evaluateAt(ctx, d, e.clock.Next())
}

// EvaluateBatch evaluates draws concurrently and returns results in input
// order. Seq values are reserved in input order before any evaluation
// starts. The first error cancels the batch; seq values reserved for
// abandoned draws are not reused.
func (e *Evaluator) EvaluateBatch(ctx context.Context, draws []ir.Draws) ([]*Result, error) {
	seqs := make([]int64, len(draws))
	for i := range seqs {
		seqs[i] = e.clock.Next()
	}

	results := make([]*Result, len(draws))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := range draws {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := e.evaluateAt(gctx, draws[i], seqs[i])
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// The loop may have stopped early on cancellation without any Go
	// func observing it.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slog.Info("batch evaluated",
		"run", e.run.Token,
		"count", len(draws),
		"workers", e.workers,
	)
	return results, nil
}

func (e *Evaluator) evaluateAt(ctx context.Context, d ir.Draws, seq int64) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ev, err := e.model.Evaluate(d)
	if err != nil {
		return nil, &RuntimeError{
			Code:     ErrCodeInvalidDraw,
			Message:  "evaluate draws",
			RunToken: e.run.Token,
			Seq:      seq,
			Err:      err,
		}
	}

	id, err := ir.EvaluationID(e.run.ModelHash, d)
	if err != nil {
		return nil, &RuntimeError{
			Code:     ErrCodeIdentity,
			Message:  "compute evaluation id",
			RunToken: e.run.Token,
			Seq:      seq,
			Err:      err,
		}
	}

	rec := ir.EvaluationRecord{
		ID:            id,
		RunToken:      e.run.Token,
		Seq:           seq,
		Draws:         d,
		Quantities:    quantityRecords(ev.Trace),
		LogLikelihood: ev.LogLikelihood,
		LogPrior:      ev.LogPrior,
	}

	recorded := false
	if e.recorder != nil {
		if recorded, err = e.record(ctx, rec); err != nil {
			return nil, err
		}
	}

	slog.Debug("evaluation complete",
		"run", e.run.Token,
		"seq", seq,
		"id", id,
		"log_posterior", ev.LogPosterior(),
	)
	return &Result{Record: rec, Evaluation: ev, Recorded: recorded}, nil
}

// record writes the run on first use, then the evaluation.
func (e *Evaluator) record(ctx context.Context, rec ir.EvaluationRecord) (bool, error) {
	e.runOnce.Do(func() {
		e.runErr = e.recorder.WriteRun(ctx, e.run)
	})
	if e.runErr != nil {
		return false, &RuntimeError{
			Code:     ErrCodeRecordFailed,
			Message:  "write run",
			RunToken: e.run.Token,
			Err:      e.runErr,
		}
	}

	inserted, err := e.recorder.WriteEvaluation(ctx, rec)
	if err != nil {
		return false, &RuntimeError{
			Code:     ErrCodeRecordFailed,
			Message:  "write evaluation",
			RunToken: e.run.Token,
			Seq:      rec.Seq,
			Err:      err,
		}
	}
	return inserted, nil
}

func quantityRecords(t *model.Trace) []ir.QuantityRecord {
	qs := t.Quantities()
	out := make([]ir.QuantityRecord, len(qs))
	for i, q := range qs {
		out[i] = ir.QuantityRecord{Name: q.Name, Kind: string(q.Kind), Values: q.Values}
	}
	return out
}
