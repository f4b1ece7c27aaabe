package store

import (
	"context"
	"fmt"

	"github.com/roach88/wisp/internal/ast"
	"github.com/roach88/wisp/internal/engine"
	"github.com/roach88/wisp/internal/transform"
)

// PutTransform caches a transform result under key.
// Uses ON CONFLICT(key) DO NOTHING: keys are content addressed, so an
// existing row already holds the same output.
func (s *Store) PutTransform(ctx context.Context, key, path string, r *transform.Result) error {
	resultJSON, err := marshalResult(r)
	if err != nil {
		return fmt.Errorf("put transform: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transforms (key, path, compiler_version, code, result)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`, key, path, ast.CompilerVersion, r.Code, resultJSON)
	if err != nil {
		return fmt.Errorf("put transform: %w", err)
	}
	return nil
}

// PruneTransforms deletes cached transforms written by other compiler
// versions, which can never be hit again. It returns the number of rows
// removed.
func (s *Store) PruneTransforms(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM transforms WHERE compiler_version != ?
	`, ast.CompilerVersion)
	if err != nil {
		return 0, fmt.Errorf("prune transforms: %w", err)
	}
	return res.RowsAffected()
}

// Run is one recorded scenario run.
type Run struct {
	ID        string
	Seq       int64
	Scenario  string
	Component string
	Status    string
	Error     string
}

// Run statuses.
const (
	StatusPass  = "pass"
	StatusFail  = "fail"
	StatusError = "error"
)

// WriteRun records a run and its trace in one transaction. The run's Seq is
// assigned by the store and returned.
func (s *Store) WriteRun(ctx context.Context, run Run, events []engine.TraceEvent) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seq, scenario, component, status, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, seq, run.Scenario, run.Component, run.Status, run.Error)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trace_events (run_id, seq, step, kind, message)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("write run: prepare trace: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, run.ID, ev.Seq, ev.Step, ev.Kind, ev.Message); err != nil {
			return 0, fmt.Errorf("write run: trace event %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write run: commit: %w", err)
	}
	return seq, nil
}
