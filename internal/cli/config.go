package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/wisp/internal/config"
)

// ConfigOptions holds flags for the config command.
type ConfigOptions struct {
	*RootOptions
	Config string
}

// ConfigResult is the effective configuration with its origin.
type ConfigResult struct {
	Source string         `json:"source"` // file path, or "defaults"
	Digest string         `json:"digest"`
	Config *config.Config `json:"config"`
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConfigOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate and print the effective configuration",
		Long: `Load the configuration, unify it with the built-in schema and print
the result. Without --config, ./` + config.FileName + ` is used when present and the
schema defaults otherwise.

The digest identifies the configuration in transform cache keys.

Examples:
  wisp config
  wisp config --config build/wisp.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "config file (default ./"+config.FileName+" when present)")

	return cmd
}

func runConfig(opts *ConfigOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, path, err := LoadConfig(opts.Config)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeConfigInvalid, "invalid configuration", err)
	}

	result := ConfigResult{Source: path, Digest: cfg.Digest(), Config: cfg}
	if result.Source == "" {
		result.Source = "defaults"
	}
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, "failed to encode configuration", err)
	}
	w := formatter.Writer
	fmt.Fprintf(w, "# source: %s\n", result.Source)
	fmt.Fprintf(w, "# digest: %s\n", result.Digest)
	fmt.Fprintln(w, string(data))
	return nil
}
