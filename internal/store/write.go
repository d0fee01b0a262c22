package store

import (
	"context"
	"fmt"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
)

// WriteRun inserts a run record into the store.
// Uses ON CONFLICT(token) DO NOTHING for idempotency - duplicate tokens are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run ir.Run) error {
	specJSON, err := marshalSpec(run.Spec)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(token, model_name, model_hash, spec, engine_version, ir_version, data_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`,
		run.Token,
		run.ModelName,
		run.ModelHash,
		specJSON,
		run.EngineVersion,
		run.IRVersion,
		run.DataHash,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	return nil
}

// WriteEvaluation inserts an evaluation and its quantities in one
// transaction and reports whether a new row was stored. Uses ON CONFLICT DO
// NOTHING for idempotency - rewriting an evaluation already recorded for the
// run returns false and changes nothing.
//
// Note: The run referenced by RunToken must exist (foreign key constraint).
func (s *Store) WriteEvaluation(ctx context.Context, rec ir.EvaluationRecord) (bool, error) {
	drawsJSON, err := marshalDraws(rec.Draws)
	if err != nil {
		return false, fmt.Errorf("write evaluation: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write evaluation: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO evaluations
		(id, run_token, seq, draws, log_likelihood, log_prior)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_token, id) DO NOTHING
	`,
		rec.ID,
		rec.RunToken,
		rec.Seq,
		drawsJSON,
		rec.LogLikelihood,
		rec.LogPrior,
	)
	if err != nil {
		return false, fmt.Errorf("write evaluation: insert: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write evaluation: rows affected: %w", err)
	}
	if inserted == 0 {
		return false, nil
	}

	for _, q := range rec.Quantities {
		valuesJSON, err := marshalValues(q.Values)
		if err != nil {
			return false, fmt.Errorf("write evaluation: quantity %s: %w", q.Name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO quantities
			(run_token, evaluation_id, name, kind, value_json)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(run_token, evaluation_id, name) DO NOTHING
		`,
			rec.RunToken,
			rec.ID,
			q.Name,
			q.Kind,
			valuesJSON,
		)
		if err != nil {
			return false, fmt.Errorf("write evaluation: quantity %s: %w", q.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write evaluation: commit: %w", err)
	}
	return true, nil
}
