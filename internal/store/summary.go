package store

import (
	"context"
	"fmt"
	"sort"
)

// RunSummary describes a recorded run without its full trace.
type RunSummary struct {
	Run
	Events   int
	Steps    int
	LastStep int64
	// ByKind counts trace events per kind.
	ByKind map[string]int
}

// Kinds returns the event kinds present in the run, sorted.
func (s RunSummary) Kinds() []string {
	kinds := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// GetRunSummary aggregates a run's trace.
func (s *Store) GetRunSummary(ctx context.Context, id string) (RunSummary, error) {
	run, err := s.ReadRun(ctx, id)
	if err != nil {
		return RunSummary{}, err
	}
	summary := RunSummary{Run: run, ByKind: map[string]int{}}

	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*) FROM trace_events
		WHERE run_id = ?
		GROUP BY kind
	`, id)
	if err != nil {
		return RunSummary{}, fmt.Errorf("get run summary: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return RunSummary{}, fmt.Errorf("get run summary: %w", err)
		}
		summary.ByKind[kind] = n
		summary.Events += n
	}
	if err := rows.Err(); err != nil {
		return RunSummary{}, fmt.Errorf("get run summary: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT step), COALESCE(MAX(step), 0)
		FROM trace_events
		WHERE run_id = ?
	`, id).Scan(&summary.Steps, &summary.LastStep)
	if err != nil {
		return RunSummary{}, fmt.Errorf("get run summary: %w", err)
	}
	return summary, nil
}
