package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/roach88/wisp/internal/config"
	"github.com/roach88/wisp/internal/engine"
	"github.com/roach88/wisp/internal/testutil"
	"github.com/roach88/wisp/internal/transform"
)

// Error codes for failures that are not engine runtime errors.
const (
	// ErrorCodeNotMounted is reported for steps applied after unmount.
	ErrorCodeNotMounted = "NOT_MOUNTED"

	// ErrorCodeLoad is reported when the compiled module does not parse.
	ErrorCodeLoad = "LOAD"
)

// Result is the outcome of running one scenario.
type Result struct {
	Pass bool

	// RunID is the id the engine generated at mount, empty when the
	// component never mounted.
	RunID     string
	Component string

	Trace []engine.TraceEvent
	HTML  string
	Stats engine.Stats

	// Code is the compiled module that ran, Diagnostics what compiling it
	// reported.
	Code        string
	Diagnostics []transform.Diagnostic

	// ErrorCode and Err describe the runtime error that stopped the run.
	ErrorCode string
	Err       error

	// Errors lists failed assertions and unexpected runtime errors.
	Errors []string
}

// NewResult creates an empty result that passes until an error is added.
func NewResult() *Result {
	return &Result{Pass: true, Trace: []engine.TraceEvent{}}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// Option configures Run.
type Option func(*Harness)

// WithConfig sets the compiler and runtime configuration.
func WithConfig(cfg *config.Config) Option {
	return func(h *Harness) {
		if cfg != nil {
			h.cfg = cfg
		}
	}
}

// WithLogger sets the logger for compile diagnostics and engine events.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithIDGenerator sets the run id source. Scenarios that are recorded
// across invocations need globally unique ids.
func WithIDGenerator(ids engine.IDGenerator) Option {
	return func(h *Harness) {
		if ids != nil {
			h.ids = ids
		}
	}
}

// Harness runs one scenario against a fresh engine.
type Harness struct {
	cfg    *config.Config
	logger *slog.Logger
	ids    engine.IDGenerator
	eng    *engine.Engine
}

// Run compiles the scenario's component, mounts it, applies every step in
// order and evaluates the assertions.
//
// Runtime errors raised by the component do not fail Run: they stop the
// remaining steps and are reported through Result.ErrorCode, so scenarios
// can assert on them. Run returns an error only when the scenario cannot
// be executed at all, such as an unreadable component file or source that
// does not parse.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		cfg:    config.Default(),
		logger: testutil.DiscardLogger(),
		ids:    testutil.NewSequentialIDs("run"),
	}
	for _, opt := range opts {
		opt(h)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := NewResult()
	code, err := h.compile(ctx, scenario, result)
	if err != nil {
		return nil, err
	}
	result.Code = code

	if !hasErrorDiagnostics(result.Diagnostics) {
		if err := h.execute(ctx, scenario, code, result); err != nil {
			return nil, err
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	if result.Err != nil && !expectsError(scenario.Assertions) {
		result.AddError(fmt.Sprintf("unexpected runtime error: %v", result.Err))
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"run_id", result.RunID,
		"events", len(result.Trace),
	)
	return result, nil
}

// compile returns the module to load, compiling source when the scenario
// provides it.
func (h *Harness) compile(ctx context.Context, s *Scenario, result *Result) (string, error) {
	if s.Code != "" {
		return s.Code, nil
	}

	src := []byte(s.Source)
	if s.File != "" {
		data, err := os.ReadFile(s.sourcePath())
		if err != nil {
			return "", fmt.Errorf("scenario %s: read component: %w", s.Name, err)
		}
		src = data
	}

	compiled, err := transform.Compile(ctx, src, s.logicalPath(), transform.Options{
		Config: h.cfg,
		Logger: transform.SlogLogger{Logger: h.logger},
	})
	if err != nil {
		return "", fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	result.Diagnostics = compiled.Diagnostics
	result.Component = compiled.Component
	return compiled.Code, nil
}

// execute loads and mounts the module, then applies the steps.
func (h *Harness) execute(ctx context.Context, s *Scenario, code string, result *Result) error {
	engOpts := []engine.Option{
		engine.WithConfig(h.cfg),
		engine.WithLogger(h.logger),
		engine.WithIDGenerator(h.ids),
	}
	if s.MaxRuns > 0 {
		engOpts = append(engOpts, engine.WithMaxRuns(s.MaxRuns))
	}
	if s.Locale != "" {
		engOpts = append(engOpts, engine.WithLocale(s.Locale))
	}
	if len(s.Translations) > 0 {
		engOpts = append(engOpts, engine.WithTranslations(s.Translations))
	}
	if len(s.Context) > 0 {
		engOpts = append(engOpts, engine.WithContextValues(s.Context))
	}
	h.eng = engine.New(engOpts...)
	defer h.collect(result)

	if err := h.eng.Load(ctx, s.logicalPath(), code); err != nil {
		return h.fail(result, err)
	}
	if err := h.eng.MountVariant(s.Variant, s.Props); err != nil {
		return h.fail(result, err)
	}

	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h.apply(ctx, step); err != nil {
			h.logger.Debug("step failed", "scenario", s.Name, "step", i, "error", err)
			return h.fail(result, err)
		}
	}
	return nil
}

// apply runs a single step to completion.
func (h *Harness) apply(ctx context.Context, step Step) error {
	var err error
	switch {
	case step.Set != nil:
		names := make([]string, 0, len(step.Set))
		for name := range step.Set {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err = h.eng.Set(name, step.Set[name]); err != nil {
				break
			}
		}
	case step.Emit != nil:
		err = h.eng.Emit(step.Emit.Target, step.Emit.Event, step.Emit.Payload)
	case step.Tick > 0:
		err = h.eng.Advance(step.Tick)
	case step.Unmount:
		return h.eng.Unmount()
	}
	if err != nil {
		return err
	}
	return h.eng.Run(ctx)
}

// fail records a runtime error on the result. Context errors abort the
// scenario instead.
func (h *Harness) fail(result *Result, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	result.Err = err
	var rerr *engine.RuntimeError
	switch {
	case errors.As(err, &rerr):
		result.ErrorCode = string(rerr.Code)
	case errors.Is(err, engine.ErrNotMounted):
		result.ErrorCode = ErrorCodeNotMounted
	default:
		result.ErrorCode = ErrorCodeLoad
	}
	return nil
}

// collect copies the engine's observable state into the result.
func (h *Harness) collect(result *Result) {
	result.Trace = h.eng.Trace()
	result.HTML = h.eng.HTML()
	result.Stats = h.eng.Stats()
	result.RunID = h.eng.RunID()
	if c := h.eng.Component(); c != nil && result.Component == "" {
		result.Component = c.Name
	}
}

func hasErrorDiagnostics(diags []transform.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == transform.SeverityError {
			return true
		}
	}
	return false
}

func expectsError(assertions []Assertion) bool {
	for _, a := range assertions {
		if a.Type == AssertErrorCode {
			return true
		}
	}
	return false
}
