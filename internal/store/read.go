package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
)

// ReadRun retrieves a single run by token.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, token string) (ir.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token, model_name, model_hash, spec, engine_version, ir_version, data_hash
		FROM runs
		WHERE token = ?
	`, token)

	return scanRun(row)
}

// ListRuns returns all runs ordered by token. UUIDv7 tokens sort by
// creation time.
func (s *Store) ListRuns(ctx context.Context) ([]ir.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, model_name, model_hash, spec, engine_version, ir_version, data_hash
		FROM runs
		ORDER BY token COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadEvaluations returns every evaluation of a run with its quantities,
// ordered by seq ASC, id ASC.
//
// Returns an empty slice (not nil) if the run has no evaluations.
func (s *Store) ReadEvaluations(ctx context.Context, runToken string) ([]ir.EvaluationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_token, seq, draws, log_likelihood, log_prior
		FROM evaluations
		WHERE run_token = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runToken)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	records := []ir.EvaluationRecord{}
	index := make(map[string]int)
	for rows.Next() {
		var (
			rec       ir.EvaluationRecord
			drawsJSON string
		)
		if err := rows.Scan(&rec.ID, &rec.RunToken, &rec.Seq, &drawsJSON, &rec.LogLikelihood, &rec.LogPrior); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		if rec.Draws, err = unmarshalDraws(drawsJSON); err != nil {
			return nil, err
		}
		index[rec.ID] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluations: %w", err)
	}
	rows.Close()

	qrows, err := s.db.QueryContext(ctx, `
		SELECT q.evaluation_id, q.name, q.kind, q.value_json
		FROM quantities q
		JOIN evaluations e ON e.run_token = q.run_token AND e.id = q.evaluation_id
		WHERE q.run_token = ?
		ORDER BY e.seq ASC, q.evaluation_id COLLATE BINARY ASC, q.rowid ASC
	`, runToken)
	if err != nil {
		return nil, fmt.Errorf("query quantities: %w", err)
	}
	defer qrows.Close()

	for qrows.Next() {
		var (
			evalID, valuesJSON string
			q                  ir.QuantityRecord
		)
		if err := qrows.Scan(&evalID, &q.Name, &q.Kind, &valuesJSON); err != nil {
			return nil, fmt.Errorf("scan quantity: %w", err)
		}
		if q.Values, err = unmarshalValues(valuesJSON); err != nil {
			return nil, err
		}
		i := index[evalID]
		records[i].Quantities = append(records[i].Quantities, q)
	}
	if err := qrows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quantities: %w", err)
	}

	return records, nil
}

// ReadQuantity returns the values of one named quantity for every
// evaluation of a run, ordered by seq ASC, id ASC. Each element holds the
// per-cloud values (one value for scalars).
func (s *Store) ReadQuantity(ctx context.Context, runToken, name string) ([][]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.value_json
		FROM quantities q
		JOIN evaluations e ON e.run_token = q.run_token AND e.id = q.evaluation_id
		WHERE q.run_token = ? AND q.name = ?
		ORDER BY e.seq ASC, e.id COLLATE BINARY ASC
	`, runToken, name)
	if err != nil {
		return nil, fmt.Errorf("read quantity %s: %w", name, err)
	}
	defer rows.Close()

	out := [][]float64{}
	for rows.Next() {
		var valuesJSON string
		if err := rows.Scan(&valuesJSON); err != nil {
			return nil, fmt.Errorf("scan quantity %s: %w", name, err)
		}
		values, err := unmarshalValues(valuesJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quantity %s: %w", name, err)
	}
	return out, nil
}

// GetLastSeq returns the highest seq recorded for a run, or 0.
// Used to resume the logical clock when appending to an existing run.
func (s *Store) GetLastSeq(ctx context.Context, runToken string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM evaluations WHERE run_token = ?
	`, runToken).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (ir.Run, error) {
	var (
		run      ir.Run
		specJSON string
	)
	err := row.Scan(&run.Token, &run.ModelName, &run.ModelHash, &specJSON, &run.EngineVersion, &run.IRVersion, &run.DataHash)
	if err == sql.ErrNoRows {
		return ir.Run{}, err
	}
	if err != nil {
		return ir.Run{}, fmt.Errorf("scan run: %w", err)
	}
	if run.Spec, err = unmarshalSpec(specJSON); err != nil {
		return ir.Run{}, err
	}
	return run, nil
}
