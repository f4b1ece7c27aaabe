package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wisp/internal/engine"
	"github.com/roach88/wisp/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Kind     string // optional - filter to one event kind
	Scenario string // list mode: filter by scenario
	Limit    int    // list mode: maximum runs
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID     string       `json:"run_id"`
	Scenario  string       `json:"scenario"`
	Component string       `json:"component,omitempty"`
	Status    string       `json:"status"`
	Error     string       `json:"error,omitempty"`
	Timeline  []TraceEvent `json:"timeline"`
	Stats     TraceStats   `json:"stats"`
}

// TraceEvent represents a single event in the trace timeline.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Step    int64  `json:"step"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// TraceStats holds summary statistics for the run.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	Steps       int            `json:"steps"`
	LastStep    int64          `json:"last_step"`
	ByKind      map[string]int `json:"by_kind"`
}

// RunListing is one row of the run list.
type RunListing struct {
	ID        string `json:"id"`
	Seq       int64  `json:"seq"`
	Scenario  string `json:"scenario"`
	Component string `json:"component,omitempty"`
	Status    string `json:"status"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Show a recorded scenario run",
		Long: `Show the trace of a scenario run recorded with "wisp test --db".

The output includes:
- Timeline: every trace event in order, with the step that produced it
- Stats: event counts per kind and the number of steps

Without a run id, recent runs are listed, newest first.

Examples:
  wisp trace --db runs.db
  wisp trace --db runs.db --scenario counter
  wisp trace 0190f1c2-... --db runs.db
  wisp trace 0190f1c2-... --db runs.db --kind log --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runListRuns(cmd.Context(), opts, cmd)
			}
			return runTrace(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one event kind (mount, set, emit, tick, unmount, log, call)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "list only runs of this scenario")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs listed")

	return cmd
}

func runTrace(ctx context.Context, opts *TraceOptions, runID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := openExistingStore(opts.Database, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	summary, err := st.GetRunSummary(ctx, runID)
	if errors.Is(err, store.ErrNotFound) {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run not found: %s", runID), nil)
	}
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStoreFailed, "failed to read run", err)
	}

	events, err := st.ReadTrace(ctx, runID)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStoreFailed, "failed to read trace", err)
	}

	result := buildTraceResult(summary, events, opts.Kind)
	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	outputTraceText(formatter, result, summary)
	return nil
}

// openExistingStore opens a database that must already exist; store.Open
// would create an empty one.
func openExistingStore(path string, formatter *OutputFormatter) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", path), err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, formatter.fail(ExitCommandError, ErrCodeStoreFailed, "failed to open database", err)
	}
	return st, nil
}

// buildTraceResult assembles the output, keeping only events of kind when
// it is set. Stats always describe the whole run.
func buildTraceResult(summary store.RunSummary, events []engine.TraceEvent, kind string) TraceResult {
	result := TraceResult{
		RunID:     summary.ID,
		Scenario:  summary.Scenario,
		Component: summary.Component,
		Status:    summary.Status,
		Error:     summary.Error,
		Timeline:  make([]TraceEvent, 0, len(events)),
		Stats: TraceStats{
			TotalEvents: summary.Events,
			Steps:       summary.Steps,
			LastStep:    summary.LastStep,
			ByKind:      summary.ByKind,
		},
	}
	for _, e := range events {
		if kind != "" && e.Kind != kind {
			continue
		}
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:     e.Seq,
			Step:    e.Step,
			Kind:    e.Kind,
			Message: e.Message,
		})
	}
	return result
}

func outputTraceText(formatter *OutputFormatter, result TraceResult, summary store.RunSummary) {
	w := formatter.Writer

	title := result.Scenario
	if result.Component != "" {
		title += " (" + result.Component + ")"
	}
	fmt.Fprintf(w, "Run %s: %s [%s]\n", result.RunID, title, result.Status)
	if result.Error != "" {
		for _, line := range strings.Split(result.Error, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Timeline:")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	var lastStep int64 = -1
	for _, e := range result.Timeline {
		if e.Step != lastStep {
			fmt.Fprintf(w, "  step %d\n", e.Step)
			lastStep = e.Step
		}
		fmt.Fprintf(w, "    [%d] %-7s %s\n", e.Seq, e.Kind, e.Message)
	}
	fmt.Fprintln(w)

	var parts []string
	for _, kind := range summary.Kinds() {
		parts = append(parts, fmt.Sprintf("%s=%d", kind, summary.ByKind[kind]))
	}
	fmt.Fprintf(w, "Stats: %d event(s) over %d step(s)", result.Stats.TotalEvents, result.Stats.Steps)
	if len(parts) > 0 {
		fmt.Fprintf(w, " (%s)", strings.Join(parts, ", "))
	}
	fmt.Fprintln(w)
}

func runListRuns(ctx context.Context, opts *TraceOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := openExistingStore(opts.Database, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, opts.Scenario, opts.Limit)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStoreFailed, "failed to list runs", err)
	}

	listing := make([]RunListing, len(runs))
	for i, r := range runs {
		listing[i] = RunListing{ID: r.ID, Seq: r.Seq, Scenario: r.Scenario, Component: r.Component, Status: r.Status}
	}
	if formatter.IsJSON() {
		return formatter.Success(listing)
	}

	w := formatter.Writer
	if len(listing) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range listing {
		fmt.Fprintf(w, "%-5d %-4s %s  %s\n", r.Seq, r.Status, r.ID, r.Scenario)
	}
	return nil
}
