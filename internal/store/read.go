package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/wisp/internal/engine"
	"github.com/roach88/wisp/internal/transform"
)

// GetTransform returns the cached result for key. The boolean is false on
// a cache miss.
func (s *Store) GetTransform(ctx context.Context, key string) (*transform.Result, bool, error) {
	var code, resultJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT code, result FROM transforms WHERE key = ?
	`, key).Scan(&code, &resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get transform: %w", err)
	}

	r, err := unmarshalResult(resultJSON, code)
	if err != nil {
		return nil, false, fmt.Errorf("get transform %s: %w", key, err)
	}
	return r, true, nil
}

// ReadRun returns a run by ID, or ErrNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var run Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, seq, scenario, component, status, error
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.Seq, &run.Scenario, &run.Component, &run.Status, &run.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ReadTrace returns a run's trace in the order the engine recorded it.
// Returns an empty slice (not nil) if the run has no events.
func (s *Store) ReadTrace(ctx context.Context, runID string) ([]engine.TraceEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, step, kind, message
		FROM trace_events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	defer rows.Close()

	events := []engine.TraceEvent{}
	for rows.Next() {
		var ev engine.TraceEvent
		if err := rows.Scan(&ev.Seq, &ev.Step, &ev.Kind, &ev.Message); err != nil {
			return nil, fmt.Errorf("scan trace event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace: %w", err)
	}
	return events, nil
}

// ListRuns returns recorded runs, newest first. A non-empty scenario
// restricts the list to that scenario; limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, scenario string, limit int) ([]Run, error) {
	query := `SELECT id, seq, scenario, component, status, error FROM runs`
	var args []any
	if scenario != "" {
		query += ` WHERE scenario = ?`
		args = append(args, scenario)
	}
	query += ` ORDER BY seq DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Seq, &run.Scenario, &run.Component, &run.Status, &run.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
