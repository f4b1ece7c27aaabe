package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/wisp/internal/ast"
	"github.com/roach88/wisp/internal/config"
	"github.com/roach88/wisp/internal/parser"
)

// DefaultMaxRuns is the default maximum number of effect runs per update.
// A component that needs more than this in one update is almost certainly
// an effect feeding itself.
const DefaultMaxRuns = 1000

// ErrNotMounted is returned by update methods before Mount or after
// Unmount.
var ErrNotMounted = errors.New("engine: component is not mounted")

// TraceEvent is one observable record of a run.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Step    int64  `json:"step"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Trace event kinds.
const (
	TraceMount   = "mount"
	TraceSet     = "set"
	TraceEmit    = "emit"
	TraceTick    = "tick"
	TraceUnmount = "unmount"
	TraceLog     = "log"
	TraceCall    = "call"
)

// Stats summarizes the reactive graph of a mounted component.
type Stats struct {
	// EffectRuns counts every effect run since mount, render effects
	// included.
	EffectRuns int
	// LiveEffects counts effects that have not been disposed.
	LiveEffects int
}

// Engine runs one compiled component module.
//
// Thread-safety model:
//   - Set, Emit and Advance: safe from any goroutine (they only enqueue)
//   - Load, Mount, Run, Unmount: must be called from one goroutine
//
// All interpretation and signal propagation happens on the goroutine that
// calls Run, so the trace order is deterministic.
type Engine struct {
	cfg          *config.Config
	logger       *slog.Logger
	clock        *Clock
	queue        *updateQueue
	quota        *QuotaEnforcer
	ids          IDGenerator
	maxRuns      int
	contextVals  map[string]any
	translations map[string]string
	locale       string

	path      string
	in        *interp
	g         *graph
	r         *renderer
	module    *scope
	component *Component
	on, off   *Sentinel
	ctxObj    *Object

	props    map[string]*Signal
	root     *Node
	runID    string
	mounted  bool
	onMounts []Value
	styles   []string
	timers   *timers

	trace []TraceEvent
	seq   int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the compiler configuration, which names the runtime
// module, its register function and the markup sentinels.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxRuns sets the effect run quota per update.
//
// Default: 1000 runs (DefaultMaxRuns).
// Use WithMaxRuns(10) for testing quota enforcement.
func WithMaxRuns(maxRuns int) Option {
	return func(e *Engine) {
		e.maxRuns = maxRuns
	}
}

// WithIDGenerator sets the run id generator.
func WithIDGenerator(ids IDGenerator) Option {
	return func(e *Engine) {
		e.ids = ids
	}
}

// WithClock sets the logical clock, so several engines can number their
// steps in one sequence.
func WithClock(clock *Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithContextValues sets the values useContext returns, by key.
func WithContextValues(values map[string]any) Option {
	return func(e *Engine) {
		e.contextVals = values
	}
}

// WithTranslations sets the messages the translate function looks up.
func WithTranslations(messages map[string]string) Option {
	return func(e *Engine) {
		e.translations = messages
	}
}

// WithLocale sets the BCP 47 locale used by the i18n capability and
// locale-aware string methods.
func WithLocale(locale string) Option {
	return func(e *Engine) {
		e.locale = locale
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		cfg:     config.Default(),
		logger:  slog.Default(),
		clock:   NewClock(),
		queue:   newUpdateQueue(),
		ids:     UUIDv7Generator{},
		maxRuns: DefaultMaxRuns,
		locale:  "en",
	}
	for _, opt := range opts {
		opt(e)
	}
	e.quota = NewQuotaEnforcer(e.maxRuns)
	e.on = &Sentinel{name: e.cfg.Runtime.On}
	e.off = &Sentinel{name: e.cfg.Runtime.Off}
	return e
}

// Load parses and evaluates a compiled module, recording the component it
// registers as its default export.
func (e *Engine) Load(ctx context.Context, path, code string) error {
	prog, err := parser.New(parser.WithLogger(e.logger)).Parse(ctx, path, []byte(code))
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	e.path = path

	e.in = &interp{ctx: ctx, locale: parseLocale(e.locale)}
	e.g = newGraph(e.in.call, e.quota)
	e.in.g = e.g
	e.in.globals = newScope(nil, true)
	e.in.installGlobals(func(args []Value) { e.recordLog(args) })
	e.timers = newTimers()
	e.installTimers(e.in.globals)
	e.r = &renderer{
		in:          e.in,
		g:           e.g,
		on:          e.on,
		off:         e.off,
		eventPrefix: e.cfg.Markup.EventPrefix,
		context:     e.contextObject,
	}

	e.module = newScope(e.in.globals, true)
	e.in.hoist(prog.Stmts, e.module)
	for _, s := range prog.Stmts {
		if err := e.loadStmt(s); err != nil {
			return fmt.Errorf("load %s: %w", path, boundary(err, 0))
		}
	}
	if e.component == nil {
		return &RuntimeError{
			Code:    ErrCodeNoComponent,
			Message: fmt.Sprintf("%s has no default export", path),
		}
	}

	e.logger.Debug("module loaded",
		"path", path,
		"component", e.component.Name,
		"props", e.component.Props,
	)
	return nil
}

func (e *Engine) loadStmt(s ast.Stmt) error {
	switch d := s.Data.(type) {
	case *ast.SImport:
		e.bindImport(d)
		return nil

	case *ast.SExportClause:
		return nil

	case *ast.SExportDefault:
		switch v := d.Value.Data.(type) {
		case *ast.SFunction:
			var fn Value
			if v.Fn.Name != "" {
				fn = e.module.lookup(v.Fn.Name).value
			} else {
				fn = &Closure{fn: v.Fn, env: e.module}
			}
			e.setComponent(fn)
			return nil
		case *ast.SExpr:
			val, err := e.in.eval(v.Value, e.module)
			if err != nil {
				return err
			}
			e.setComponent(val)
			return nil
		}
		return unsupported("default export %T", d.Value.Data)
	}
	_, _, err := e.in.exec(s, e.module)
	return err
}

func (e *Engine) setComponent(v Value) {
	switch c := v.(type) {
	case *Component:
		e.component = c
	case *Closure:
		e.component = &Component{Fn: c, Name: c.fn.Name}
	}
}

// Mount calls the component with props and renders its output.
//
// Declared props are passed as signals. Props whose names are event
// handlers are passed as recorder functions that record their calls in the
// trace.
func (e *Engine) Mount(props map[string]any) error {
	return e.MountVariant("", props)
}

// MountVariant mounts a static variant of the component, such as its
// suspense or error rendering. An empty name mounts the component itself.
func (e *Engine) MountVariant(variant string, props map[string]any) error {
	if e.component == nil {
		return &RuntimeError{Code: ErrCodeNoComponent, Message: "no module loaded"}
	}
	fn := e.component.Fn
	if variant != "" {
		v, err := e.in.getMember(e.component, variant)
		if err != nil {
			return err
		}
		if !isCallable(v) {
			return &RuntimeError{
				Code:    ErrCodeNoComponent,
				Message: fmt.Sprintf("component %s has no %s variant", e.component.Name, variant),
			}
		}
		fn = v
	}

	step := e.beginStep()
	e.runID = e.ids.Generate()
	e.record(TraceMount, e.component.Name+variantSuffix(variant))

	propsObj := e.buildProps(props)
	e.root = &Node{Tag: tagFragment}

	err := e.g.batched(func() error {
		out, err := e.g.untracked(func() (Value, error) {
			return e.in.call(fn, []Value{propsObj, e.contextObject()})
		})
		if err != nil {
			return err
		}
		return e.r.render(out, e.root)
	})
	if err != nil {
		return boundary(err, step)
	}
	e.mounted = true

	err = e.g.batched(func() error {
		for _, cb := range e.onMounts {
			if err := e.callOnMount(cb); err != nil {
				return err
			}
		}
		return nil
	})
	e.onMounts = nil
	if err != nil {
		return boundary(err, step)
	}

	e.logger.Info("component mounted",
		"component", e.component.Name,
		"variant", variant,
		"run_id", e.runID,
		"effect_runs", e.g.runsStarted,
	)
	return nil
}

func variantSuffix(variant string) string {
	if variant == "" {
		return ""
	}
	return "." + variant
}

func (e *Engine) buildProps(values map[string]any) *Object {
	names := append([]string(nil), e.component.Props...)
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)

	obj := NewObject()
	e.props = map[string]*Signal{}
	for i, name := range names {
		if i > 0 && names[i-1] == name {
			continue
		}
		if e.r.isEvent(name) {
			_ = obj.Set(name, e.handlerRecorder(name))
			continue
		}
		s := e.g.newSignal(propValue(values, name))
		e.props[name] = s
		_ = obj.Set(name, s)
	}
	return obj
}

// propValue converts a supplied prop. Props left out of values read as
// undefined, so destructuring defaults apply to them.
func propValue(values map[string]any, name string) Value {
	if v, ok := values[name]; ok {
		return FromGo(v)
	}
	return Undefined
}

func (e *Engine) handlerRecorder(name string) *Native {
	return native(name, func(args []Value) (Value, error) {
		parts := ""
		for i, a := range args {
			if i > 0 {
				parts += ", "
			}
			parts += inspect(a, 0)
		}
		e.record(TraceCall, name+"("+parts+")")
		return Undefined, nil
	})
}

// Set enqueues a prop update. Safe from any goroutine.
func (e *Engine) Set(prop string, value any) error {
	return e.enqueue(Update{Kind: UpdateSetProp, Prop: prop, Value: value})
}

// Emit enqueues an event dispatch. The payload's fields are copied onto
// the event object; a value field is also exposed as event.target.value.
func (e *Engine) Emit(target, event string, payload map[string]any) error {
	return e.enqueue(Update{Kind: UpdateEmit, Target: target, Event: event, Value: payload})
}

// Advance enqueues a virtual time step that fires due timers.
func (e *Engine) Advance(ms int) error {
	return e.enqueue(Update{Kind: UpdateTick, Millis: ms})
}

func (e *Engine) enqueue(u Update) error {
	if !e.queue.Enqueue(u) {
		return ErrNotMounted
	}
	return nil
}

// Run processes queued updates in FIFO order until the queue is empty.
// Each update is one step: every effect it schedules runs before the next
// update starts. Run stops at the first failing update.
//
// Must be called from the goroutine that mounted the component.
func (e *Engine) Run(ctx context.Context) error {
	if !e.mounted {
		return ErrNotMounted
	}
	e.in.ctx = ctx
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		u, ok := e.queue.TryDequeue()
		if !ok {
			return nil
		}
		if err := e.process(u); err != nil {
			e.logger.Error("update failed",
				"kind", u.Kind.String(),
				"step", e.clock.Current(),
				"error", err,
			)
			return err
		}
	}
}

func (e *Engine) process(u Update) error {
	step := e.beginStep()
	e.logger.Debug("processing update",
		"kind", u.Kind.String(),
		"step", step,
	)

	var err error
	switch u.Kind {
	case UpdateSetProp:
		e.record(TraceSet, u.Prop+" = "+inspect(FromGo(u.Value), 0))
		err = e.setProp(u.Prop, u.Value)
	case UpdateEmit:
		e.record(TraceEmit, u.Event+" "+u.Target)
		err = e.dispatch(u)
	case UpdateTick:
		e.record(TraceTick, fmt.Sprintf("%dms", u.Millis))
		err = e.timers.advance(float64(u.Millis), e.fireTimer)
	default:
		err = fmt.Errorf("unknown update kind: %d", u.Kind)
	}
	return boundary(err, step)
}

func (e *Engine) beginStep() int64 {
	step := e.clock.Next()
	e.g.step = step
	e.quota.Reset()
	return step
}

func (e *Engine) setProp(name string, value any) error {
	s, ok := e.props[name]
	if !ok {
		return &RuntimeError{
			Code:    ErrCodeUnsupported,
			Message: fmt.Sprintf("prop %q was not passed at mount", name),
		}
	}
	return e.g.batched(func() error {
		return s.Set(FromGo(value))
	})
}

func (e *Engine) dispatch(u Update) error {
	el := e.root.find(u.Target, u.Event)
	if el == nil {
		return &RuntimeError{
			Code:    ErrCodeNoTarget,
			Message: fmt.Sprintf("no element matching %q handles %q", u.Target, u.Event),
		}
	}

	ev := NewObject()
	_ = ev.Set("type", u.Event)
	target := NewObject()
	_ = target.Set("tagName", el.Tag)
	if payload, ok := u.Value.(map[string]any); ok {
		keys := make([]string, 0, len(payload))
		for k := range payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := FromGo(payload[k])
			_ = ev.Set(k, v)
			if k == "value" || k == "checked" {
				_ = target.Set(k, v)
			}
		}
	}
	_ = ev.Set("target", target)

	handler := el.handlers[u.Event]
	return e.g.batched(func() error {
		_, err := e.g.untracked(func() (Value, error) {
			return e.in.call(handler, []Value{ev})
		})
		return err
	})
}

// Unmount disposes every effect, running their cleanups, and closes the
// update queue.
func (e *Engine) Unmount() error {
	if !e.mounted {
		return ErrNotMounted
	}
	step := e.beginStep()
	e.record(TraceUnmount, e.component.Name)
	e.mounted = false
	e.queue.Close()
	err := e.g.batched(func() error {
		return e.g.disposeRun(e.g.root)
	})
	e.logger.Info("component unmounted",
		"component", e.component.Name,
		"run_id", e.runID,
		"effect_runs", e.g.runsStarted,
	)
	return boundary(err, step)
}

func (e *Engine) recordLog(args []Value) {
	msg := ""
	for i, a := range args {
		if i > 0 {
			msg += " "
		}
		msg += display(a)
	}
	e.record(TraceLog, msg)
}

func (e *Engine) record(kind, msg string) {
	e.seq++
	e.trace = append(e.trace, TraceEvent{
		Seq:     e.seq,
		Step:    e.clock.Current(),
		Kind:    kind,
		Message: msg,
	})
}

// Trace returns a copy of the recorded trace.
func (e *Engine) Trace() []TraceEvent {
	out := make([]TraceEvent, len(e.trace))
	copy(out, e.trace)
	return out
}

// HTML serializes the rendered tree.
func (e *Engine) HTML() string {
	if e.root == nil {
		return ""
	}
	return e.root.HTML()
}

// RunID returns the id generated at mount.
func (e *Engine) RunID() string {
	return e.runID
}

// Component returns the loaded component, or nil.
func (e *Engine) Component() *Component {
	return e.component
}

// Styles returns the style sheets registered through css, in order.
func (e *Engine) Styles() []string {
	return append([]string(nil), e.styles...)
}

// Stats summarizes the reactive graph.
func (e *Engine) Stats() Stats {
	if e.g == nil {
		return Stats{}
	}
	return Stats{EffectRuns: e.g.runsStarted, LiveEffects: e.g.liveEffects()}
}
