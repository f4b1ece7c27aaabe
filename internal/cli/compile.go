package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/wisp/internal/ast"
	"github.com/roach88/wisp/internal/config"
	"github.com/roach88/wisp/internal/store"
	"github.com/roach88/wisp/internal/transform"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output  string // output directory
	Config  string // config file
	NoCache bool
	Jobs    int
}

// FileResult is the outcome of compiling one source file.
type FileResult struct {
	Path        string             `json:"path"`
	Output      string             `json:"output,omitempty"`
	Component   string             `json:"component,omitempty"`
	Props       []string           `json:"props,omitempty"`
	Variants    []string           `json:"variants,omitempty"`
	UsesI18n    bool               `json:"uses_i18n,omitempty"`
	I18nKeys    []string           `json:"i18n_keys,omitempty"`
	Cached      bool               `json:"cached,omitempty"`
	Code        string             `json:"code,omitempty"`
	Diagnostics []DiagnosticOutput `json:"diagnostics,omitempty"`
	// Error is set when the file could not be read or parsed.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the file had a read error, a parse error or an
// error diagnostic. Files that fail on diagnostics alone still carry the
// best-effort code the transform produced.
func (r *FileResult) Failed() bool {
	if r.Error != "" {
		return true
	}
	for _, d := range r.Diagnostics {
		if d.Severity == transform.SeverityError.String() {
			return true
		}
	}
	return false
}

// DiagnosticOutput is the serialized form of a compiler diagnostic.
type DiagnosticOutput struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Path     string `json:"path"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	DocsURL  string `json:"docs_url,omitempty"`
}

// BatchResult holds the results of compiling a set of files.
type BatchResult struct {
	Files    []FileResult `json:"files"`
	Compiled int          `json:"compiled"`
	Cached   int          `json:"cached"`
	Failed   int          `json:"failed"`
	Warnings int          `json:"warnings"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <files|dirs>...",
		Short: "Compile components to fine-grained reactive modules",
		Long: `Compile component modules into their reactive form.

Directories are scanned for .js, .jsx, .mjs, .ts and .tsx files. With
--output, compiled modules are written to the output directory, mirroring
the input layout with a .js extension. Without it, compiled code is
printed.

Results are cached in the cache directory named by the configuration,
keyed by source, path, configuration and compiler version.

Exit codes:
  0 - All files compiled
  1 - One or more files failed to parse or reported errors
  2 - Command error (invalid paths, bad configuration, etc.)

Examples:
  wisp compile src/components -o dist
  wisp compile src/Counter.jsx --no-cache
  wisp compile src --jobs 4 --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output directory")
	cmd.Flags().StringVar(&opts.Config, "config", "", "config file (default ./"+config.FileName+" when present)")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "bypass the transform cache")
	cmd.Flags().IntVar(&opts.Jobs, "jobs", runtime.NumCPU(), "files compiled in parallel")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	batch, err := compileBatch(ctx, opts.RootOptions, cmd, batchRequest{
		Args:    args,
		Config:  opts.Config,
		NoCache: opts.NoCache,
		Jobs:    opts.Jobs,
	}, formatter)
	if err != nil {
		return err
	}

	if opts.Output != "" {
		for i := range batch.result.Files {
			f := &batch.result.Files[i]
			if f.Error != "" {
				continue
			}
			out := outputPath(opts.Output, batch.sources[i].Rel)
			if err := writeOutput(out, f.Code); err != nil {
				return formatter.fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing %s", out), err)
			}
			f.Output = out
			f.Code = ""
			formatter.VerboseLog("Wrote %s", out)
		}
	}

	if formatter.IsJSON() {
		if batch.result.Failed > 0 {
			_ = formatter.Failure(ErrCodeCompileFailed, fmt.Sprintf("%d file(s) failed to compile", batch.result.Failed), batch.result)
			return NewExitError(ExitFailure, fmt.Sprintf("%d file(s) failed to compile", batch.result.Failed))
		}
		return formatter.Success(batch.result)
	}

	w := formatter.Writer
	for _, f := range batch.result.Files {
		printFileDiagnostics(formatter.GetErrWriter(), f)
		if opts.Output == "" && f.Error == "" {
			fmt.Fprintf(w, "// %s\n%s", f.Path, f.Code)
			if !strings.HasSuffix(f.Code, "\n") {
				fmt.Fprintln(w)
			}
		}
	}
	printBatchSummary(formatter.GetErrWriter(), batch.result)

	if batch.result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d file(s) failed to compile", batch.result.Failed))
	}
	return nil
}

// batchRequest describes one batch compile.
type batchRequest struct {
	Args    []string
	Config  string
	NoCache bool
	Jobs    int
}

// batch is a finished batch compile. sources and result.Files share
// indexes.
type batch struct {
	sources []SourceFile
	result  BatchResult
}

// compileBatch resolves the configuration and inputs, then compiles every
// file. Command errors are reported through formatter and returned as
// ExitErrors.
func compileBatch(ctx context.Context, root *RootOptions, cmd *cobra.Command, req batchRequest, formatter *OutputFormatter) (*batch, error) {
	logger := root.logger(cmd)

	cfg, cfgPath, err := LoadConfig(req.Config)
	if err != nil {
		return nil, formatter.fail(ExitCommandError, ErrCodeConfigInvalid, "invalid configuration", err)
	}
	if cfgPath != "" {
		formatter.VerboseLog("Using config %s", cfgPath)
	}

	sources, err := FindSources(req.Args, cfg.Cache.Dir)
	if err != nil {
		code, message, cause := describeLoadError(err)
		return nil, formatter.fail(ExitCommandError, code, message, cause)
	}
	formatter.VerboseLog("Found %d source file(s)", len(sources))

	var cache *store.Store
	if cfg.Cache.Enabled && !req.NoCache {
		cache, err = store.OpenDir(ctx, cfg.Cache.Dir)
		if err != nil {
			return nil, formatter.fail(ExitCommandError, ErrCodeStoreFailed, "opening transform cache", err)
		}
		defer cache.Close()
		if n, err := cache.PruneTransforms(ctx); err != nil {
			logger.Warn("pruning transform cache failed", "error", err)
		} else if n > 0 {
			logger.Debug("pruned stale transforms", "count", n)
		}
	}

	c := &fileCompiler{
		cfg:    cfg,
		digest: cfg.Digest(),
		cache:  cache,
		logger: logger,
		resolver: &transform.FileTagResolver{
			NativePaths: cfg.Markup.NativePaths,
		},
	}
	files, err := c.compileAll(ctx, sources, req.Jobs)
	if err != nil {
		return nil, formatter.fail(ExitCommandError, ErrCodeGeneric, "compile interrupted", err)
	}

	b := &batch{sources: sources, result: BatchResult{Files: files}}
	for _, f := range files {
		switch {
		case f.Failed():
			b.result.Failed++
		case f.Cached:
			b.result.Cached++
		default:
			b.result.Compiled++
		}
		for _, d := range f.Diagnostics {
			if d.Severity == transform.SeverityWarning.String() {
				b.result.Warnings++
			}
		}
	}
	return b, nil
}

// fileCompiler compiles files against one configuration and an optional
// transform cache.
type fileCompiler struct {
	cfg      *config.Config
	digest   string
	cache    *store.Store
	logger   *slog.Logger
	resolver transform.TagResolver
}

// compileAll compiles sources with at most jobs files in flight. Failures
// of individual files are recorded in their results; only cancellation
// aborts the batch.
func (c *fileCompiler) compileAll(ctx context.Context, sources []SourceFile, jobs int) ([]FileResult, error) {
	if jobs < 1 {
		jobs = 1
	}
	results := make([]FileResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.compileFile(gctx, src.Path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *fileCompiler) compileFile(ctx context.Context, path string) FileResult {
	out := FileResult{Path: path}
	logical := filepath.ToSlash(path)

	src, err := os.ReadFile(path)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	var key string
	if c.cache != nil {
		key, err = ast.TransformKey(logical, src, c.digest)
		if err != nil {
			c.logger.Warn("computing cache key failed", "path", path, "error", err)
		} else if cached, ok, err := c.cache.GetTransform(ctx, key); err != nil {
			c.logger.Warn("reading transform cache failed", "path", path, "error", err)
		} else if ok {
			c.logger.Debug("transform cache hit", "path", path, "key", key)
			fillResult(&out, cached)
			out.Cached = true
			return out
		}
	}

	result, err := transform.Compile(ctx, src, logical, transform.Options{
		Config:      c.cfg,
		Logger:      transform.SlogLogger{Logger: c.logger, Debug: true},
		TagResolver: c.resolver,
	})
	if err != nil {
		out.Error = err.Error()
		return out
	}
	fillResult(&out, result)

	if c.cache != nil && key != "" && !result.HasErrors() {
		if err := c.cache.PutTransform(ctx, key, logical, result); err != nil {
			c.logger.Warn("writing transform cache failed", "path", path, "error", err)
		}
	}
	return out
}

func fillResult(out *FileResult, r *transform.Result) {
	out.Code = r.Code
	out.Component = r.Component
	out.Props = r.Props
	out.Variants = r.Variants
	out.UsesI18n = r.UsesI18n
	out.I18nKeys = r.I18nKeys
	for _, d := range r.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, DiagnosticOutput{
			Severity: d.Severity.String(),
			Code:     d.Code,
			Message:  d.Message(),
			Path:     d.Path,
			Line:     d.Loc.Line,
			Column:   d.Loc.Column,
			DocsURL:  d.DocsURL,
		})
	}
}

// outputPath maps a source path relative to its input root to the output
// directory, replacing the extension with .js.
func outputPath(dir, rel string) string {
	base := strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.Join(dir, base+".js")
}

func writeOutput(path, code string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// printFileDiagnostics writes a file's error and diagnostics in the
// compiler's one-line format.
func printFileDiagnostics(w io.Writer, f FileResult) {
	if f.Error != "" {
		fmt.Fprintf(w, "✗ %s\n", f.Error)
	}
	for _, d := range f.Diagnostics {
		where := d.Path
		if d.Line > 0 {
			where = fmt.Sprintf("%s:%d:%d", d.Path, d.Line, d.Column)
		}
		fmt.Fprintf(w, "%s: %s [%s]: %s\n", where, d.Severity, d.Code, d.Message)
		if d.DocsURL != "" {
			fmt.Fprintf(w, "  see %s\n", d.DocsURL)
		}
	}
}

func printBatchSummary(w io.Writer, r BatchResult) {
	mark := "✓"
	if r.Failed > 0 {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %d file(s): %d compiled, %d cached, %d failed, %d warning(s)\n",
		mark, len(r.Files), r.Compiled, r.Cached, r.Failed, r.Warnings)
}
