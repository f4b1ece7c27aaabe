package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wisp/internal/config"
	"github.com/roach88/wisp/internal/engine"
	"github.com/roach88/wisp/internal/harness"
	"github.com/roach88/wisp/internal/store"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update   bool   // regenerate golden files
	Filter   string // scenario filter (glob pattern)
	Database string // record runs into this database
	Config   string
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	RunID  string   `json:"run_id,omitempty"`
	Errors []string `json:"errors,omitempty"`

	// status is the store status of the run.
	status string
	trace  []engine.TraceEvent
	comp   string
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run conformance scenarios with the harness.

Each scenario compiles a component, mounts it, applies its steps and
checks the assertions. When a golden file exists next to the scenarios
(golden/<name>.golden), the trace and final markup must match it.

With --db, every run and its trace are recorded and can be inspected
with "wisp trace".

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  wisp test ./scenarios
  wisp test ./scenarios --filter "counter*"
  wisp test ./scenarios --update
  wisp test ./scenarios --db runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record runs into this SQLite database")
	cmd.Flags().StringVar(&opts.Config, "config", "", "config file (default ./"+config.FileName+" when present)")

	return cmd
}

func runTests(ctx context.Context, opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if info, err := os.Stat(scenariosDir); err != nil || !info.IsDir() {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("scenarios directory not found: %s", scenariosDir), err)
	}

	cfg, _, err := LoadConfig(opts.Config)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeConfigInvalid, "invalid configuration", err)
	}

	scenarioFiles, err := harness.Discover(scenariosDir, opts.Filter)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeScanError, "failed to find scenarios", err)
	}

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStoreFailed, "failed to open database", err)
		}
		defer st.Close()
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}

	runOpts := []harness.Option{
		harness.WithConfig(cfg),
		harness.WithLogger(opts.logger(cmd)),
	}
	if st != nil {
		// Recorded run ids must be unique across invocations.
		runOpts = append(runOpts, harness.WithIDGenerator(engine.UUIDv7Generator{}))
	}

	for _, scenarioFile := range scenarioFiles {
		sr := runScenario(ctx, scenarioFile, opts, runOpts)
		if err := ctx.Err(); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeGeneric, "test run interrupted", err)
		}
		if st != nil {
			if err := recordRun(ctx, st, &sr); err != nil {
				return formatter.fail(ExitCommandError, ErrCodeStoreFailed, "failed to record run", err)
			}
		}
		if !formatter.IsJSON() {
			printScenarioResult(formatter, sr)
		}

		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
	}

	if formatter.IsJSON() {
		if result.Failed > 0 {
			_ = formatter.Failure("E_TEST_FAILED", fmt.Sprintf("%d scenario(s) failed", result.Failed), result)
			return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
		}
		return formatter.Success(result)
	}
	return outputTestText(formatter, result)
}

// runScenario loads and executes one scenario file, then applies golden
// comparison.
func runScenario(ctx context.Context, scenarioFile string, opts *TestOptions, runOpts []harness.Option) ScenarioResult {
	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return ScenarioResult{
			Name:   strings.TrimSuffix(filepath.Base(scenarioFile), filepath.Ext(scenarioFile)),
			File:   scenarioFile,
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
			status: store.StatusError,
		}
	}

	sr := ScenarioResult{Name: scenario.Name, File: scenarioFile}
	result, err := harness.Run(ctx, scenario, runOpts...)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		sr.status = store.StatusError
		return sr
	}
	sr.RunID = result.RunID
	sr.trace = result.Trace
	sr.comp = result.Component

	snapshot := harness.NewSnapshot(scenario.Name, result)
	data, err := snapshot.Marshal()
	if err != nil {
		result.AddError(fmt.Sprintf("golden snapshot failed: %v", err))
	} else {
		goldenDir := filepath.Join(filepath.Dir(scenarioFile), "golden")
		err := harness.CheckGolden(goldenDir, scenario.Name, data, opts.Update)
		switch {
		case errors.Is(err, harness.ErrGoldenMismatch):
			result.AddError("trace does not match golden file (run with --update to regenerate)")
		case err != nil:
			result.AddError(fmt.Sprintf("golden comparison failed: %v", err))
		}
	}

	sr.Pass = result.Pass
	sr.Errors = result.Errors
	sr.status = store.StatusPass
	if !sr.Pass {
		sr.status = store.StatusFail
	}
	return sr
}

// recordRun stores the run and its trace. Runs that never mounted get a
// fresh id so the failure is still recorded.
func recordRun(ctx context.Context, st *store.Store, sr *ScenarioResult) error {
	if sr.RunID == "" {
		sr.RunID = engine.UUIDv7Generator{}.Generate()
	}
	_, err := st.WriteRun(ctx, store.Run{
		ID:        sr.RunID,
		Scenario:  sr.Name,
		Component: sr.comp,
		Status:    sr.status,
		Error:     strings.Join(sr.Errors, "\n"),
	}, sr.trace)
	return err
}

func printScenarioResult(formatter *OutputFormatter, sr ScenarioResult) {
	w := formatter.Writer
	if sr.Pass {
		fmt.Fprintf(w, "✓ %s\n", sr.Name)
	} else {
		fmt.Fprintf(w, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}
	if sr.RunID != "" {
		formatter.VerboseLog("  run %s", sr.RunID)
	}
}

// outputTestText outputs the test summary as text.
func outputTestText(formatter *OutputFormatter, result TestResult) error {
	w := formatter.Writer

	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
