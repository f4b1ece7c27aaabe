package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/wisp/internal/config"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Config  string
	NoCache bool
	Jobs    int
}

// CheckResult is the JSON payload of the check command. Compiled code is
// omitted.
type CheckResult struct {
	Files    []CheckedFile `json:"files"`
	Errors   int           `json:"errors"`
	Warnings int           `json:"warnings"`
}

// CheckedFile summarizes one checked file.
type CheckedFile struct {
	Path        string             `json:"path"`
	Component   string             `json:"component,omitempty"`
	OK          bool               `json:"ok"`
	Error       string             `json:"error,omitempty"`
	Diagnostics []DiagnosticOutput `json:"diagnostics,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <files|dirs>...",
		Short: "Report compiler diagnostics without writing output",
		Long: `Compile components and report their diagnostics without writing
any output.

Exit codes:
  0 - No errors (warnings are allowed)
  1 - A file failed to parse or reported an error diagnostic
  2 - Command error (invalid paths, bad configuration, etc.)

Examples:
  wisp check src
  wisp check src/Counter.jsx --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "config file (default ./"+config.FileName+" when present)")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "bypass the transform cache")
	cmd.Flags().IntVar(&opts.Jobs, "jobs", 1, "files checked in parallel")

	return cmd
}

func runCheck(ctx context.Context, opts *CheckOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	b, err := compileBatch(ctx, opts.RootOptions, cmd, batchRequest{
		Args:    args,
		Config:  opts.Config,
		NoCache: opts.NoCache,
		Jobs:    opts.Jobs,
	}, formatter)
	if err != nil {
		return err
	}

	result := CheckResult{Files: make([]CheckedFile, 0, len(b.result.Files)), Warnings: b.result.Warnings}
	for _, f := range b.result.Files {
		ok := !f.Failed()
		if !ok {
			result.Errors++
		}
		result.Files = append(result.Files, CheckedFile{
			Path:        f.Path,
			Component:   f.Component,
			OK:          ok,
			Error:       f.Error,
			Diagnostics: f.Diagnostics,
		})
	}

	if formatter.IsJSON() {
		if result.Errors > 0 {
			_ = formatter.Failure(ErrCodeCompileFailed, fmt.Sprintf("%d file(s) have errors", result.Errors), result)
			return NewExitError(ExitFailure, fmt.Sprintf("%d file(s) have errors", result.Errors))
		}
		return formatter.Success(result)
	}

	w := formatter.Writer
	for _, f := range b.result.Files {
		printFileDiagnostics(w, f)
		if formatter.Verbose && !f.Failed() {
			fmt.Fprintf(w, "✓ %s\n", f.Path)
		}
	}
	if result.Errors > 0 {
		fmt.Fprintf(w, "✗ %d of %d file(s) have errors, %d warning(s)\n", result.Errors, len(result.Files), result.Warnings)
		return NewExitError(ExitFailure, fmt.Sprintf("%d file(s) have errors", result.Errors))
	}
	fmt.Fprintf(w, "✓ %d file(s) checked, %d warning(s)\n", len(result.Files), result.Warnings)
	return nil
}
