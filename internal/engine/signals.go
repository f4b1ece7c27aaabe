package engine

// node is anything that subscribes to signals: an effect or a derived
// signal.
type node interface {
	track(s *Signal)
	notify()
}

// graph is the reactive state of one mounted component: the tracking
// context, the pending effect queue and the live effect runs.
type graph struct {
	call  func(fn Value, args []Value) (Value, error)
	quota *QuotaEnforcer
	step  int64

	observer node
	owner    *run
	pending  []*effect
	batch    int
	flushing bool

	root   *run
	runs   map[float64]*run
	nextID float64

	// runsStarted counts every effect run since mount, for tests and
	// run summaries.
	runsStarted int
}

func newGraph(call func(Value, []Value) (Value, error), quota *QuotaEnforcer) *graph {
	g := &graph{call: call, quota: quota, runs: map[float64]*run{}}
	g.root = g.newRun(nil)
	return g
}

// Signal is a reactive value. Derived signals recompute lazily from a
// function when a dependency changed.
type Signal struct {
	g     *graph
	value Value
	subs  []node

	compute Value
	deps    []*Signal
	dirty   bool
}

func (g *graph) newSignal(v Value) *Signal {
	return &Signal{g: g, value: v}
}

func (g *graph) newDerived(fn Value) *Signal {
	return &Signal{g: g, compute: fn, dirty: true}
}

func (o *Object) newSignal(v Value) *Signal {
	return o.graph.newSignal(v)
}

// Get reads the value and subscribes the current observer.
func (s *Signal) Get() (Value, error) {
	if s.compute != nil && s.dirty {
		if err := s.recompute(); err != nil {
			return nil, err
		}
	}
	if obs := s.g.observer; obs != nil {
		obs.track(s)
	}
	return s.value, nil
}

// peek reads the value without subscribing. Derived signals return their
// last computed value.
func (s *Signal) peek() Value {
	if s.compute != nil && s.dirty {
		_ = s.recompute()
	}
	return s.value
}

// Set writes the value and schedules subscribers. Writing an identical
// value notifies nobody.
func (s *Signal) Set(v Value) error {
	if s.compute != nil {
		return typeError("Cannot assign to a derived value")
	}
	if strictEquals(s.value, v) {
		return nil
	}
	s.value = v
	for _, sub := range append([]node(nil), s.subs...) {
		sub.notify()
	}
	return s.g.flush()
}

func (s *Signal) recompute() error {
	s.untrack()
	g := s.g
	prev := g.observer
	g.observer = s
	v, err := g.call(s.compute, nil)
	g.observer = prev
	if err != nil {
		return err
	}
	s.value = v
	s.dirty = false
	return nil
}

func (s *Signal) track(dep *Signal) {
	for _, d := range s.deps {
		if d == dep {
			return
		}
	}
	s.deps = append(s.deps, dep)
	dep.subs = append(dep.subs, s)
}

func (s *Signal) notify() {
	if s.dirty {
		return
	}
	s.dirty = true
	for _, sub := range append([]node(nil), s.subs...) {
		sub.notify()
	}
}

func (s *Signal) untrack() {
	for _, d := range s.deps {
		d.unsubscribe(s)
	}
	s.deps = nil
}

func (s *Signal) unsubscribe(n node) {
	for i, sub := range s.subs {
		if sub == n {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// effect re-runs its callback whenever a signal it read changes.
type effect struct {
	g       *graph
	fn      Value
	render  func() error
	owner   *run
	current *run
	deps    []*Signal

	pending  bool
	disposed bool
}

// run is one execution of an effect. Sub-effects claimed by the run and
// cleanups registered against its id live exactly as long as the run.
type run struct {
	id       float64
	effect   *effect
	children []*effect
	cleanups []Value
	disposed bool
}

func (g *graph) newRun(e *effect) *run {
	g.nextID++
	r := &run{id: g.nextID, effect: e}
	g.runs[r.id] = r
	return r
}

// DepFunc is the dependency function an effect callback receives. Calling
// it with a callback claims that callback for the run; its id property
// names the run for cleanup registration.
type DepFunc struct {
	run *run
}

// claim wraps fn so an effect created from it is owned by the run. A
// callback that is already claimed keeps its nearest owner.
func (d *DepFunc) claim(args []Value) (Value, error) {
	fn := arg(args, 0)
	if !isCallable(fn) {
		return nil, typeError("dependency function expects a function, got %s", inspect(fn, 0))
	}
	if owned, ok := fn.(*ownedFn); ok {
		return owned, nil
	}
	return &ownedFn{fn: fn, owner: d.run}, nil
}

// createEffect registers an effect and runs it once. A claimed callback
// belongs to its claiming run; anything else belongs to the root.
func (g *graph) createEffect(cb Value) error {
	owner := g.root
	if owned, ok := cb.(*ownedFn); ok {
		owner = owned.owner
		cb = owned.fn
	}
	if owner.disposed {
		return nil
	}
	e := &effect{g: g, fn: cb, owner: owner}
	owner.children = append(owner.children, e)
	return g.runEffect(e)
}

// createRenderEffect registers an effect that keeps part of the rendered
// tree current. Render effects belong to the render run that created them.
func (g *graph) createRenderEffect(render func() error) error {
	owner := g.owner
	if owner == nil || owner.disposed {
		owner = g.root
	}
	e := &effect{g: g, render: render, owner: owner}
	owner.children = append(owner.children, e)
	return g.runEffect(e)
}

func (g *graph) runEffect(e *effect) error {
	if e.disposed {
		return nil
	}
	if err := g.quota.Check(g.step); err != nil {
		return err
	}
	g.runsStarted++

	if err := g.disposeRun(e.current); err != nil {
		return err
	}
	e.untrack()

	r := g.newRun(e)
	e.current = r

	prevObserver, prevOwner := g.observer, g.owner
	g.observer = e
	if e.render != nil {
		g.owner = r
	}
	defer func() {
		g.observer, g.owner = prevObserver, prevOwner
	}()

	if e.render != nil {
		return e.render()
	}
	result, err := g.call(e.fn, []Value{&DepFunc{run: r}})
	if err != nil {
		return err
	}
	if isCallable(result) {
		r.cleanups = append(r.cleanups, result)
	}
	return nil
}

func (e *effect) track(s *Signal) {
	for _, d := range e.deps {
		if d == s {
			return
		}
	}
	e.deps = append(e.deps, s)
	s.subs = append(s.subs, e)
}

func (e *effect) notify() {
	if e.pending || e.disposed {
		return
	}
	e.pending = true
	e.g.pending = append(e.g.pending, e)
}

func (e *effect) untrack() {
	for _, d := range e.deps {
		d.unsubscribe(e)
	}
	e.deps = nil
}

// flush runs pending effects in scheduling order until none remain.
func (g *graph) flush() error {
	if g.flushing || g.batch > 0 {
		return nil
	}
	g.flushing = true
	defer func() { g.flushing = false }()

	for len(g.pending) > 0 {
		e := g.pending[0]
		g.pending = g.pending[1:]
		e.pending = false
		if err := g.runEffect(e); err != nil {
			for _, p := range g.pending {
				p.pending = false
			}
			g.pending = nil
			return err
		}
	}
	return nil
}

// batched defers flushing until fn returns.
func (g *graph) batched(fn func() error) error {
	g.batch++
	err := fn()
	g.batch--
	if err != nil {
		return err
	}
	return g.flush()
}

// disposeRun ends a run: its sub-effects are disposed, then its cleanups
// are called in registration order.
func (g *graph) disposeRun(r *run) error {
	if r == nil || r.disposed {
		return nil
	}
	r.disposed = true
	delete(g.runs, r.id)

	var first error
	for _, child := range r.children {
		if err := g.disposeEffect(child); err != nil && first == nil {
			first = err
		}
	}
	r.children = nil

	prev := g.observer
	g.observer = nil
	for _, fn := range r.cleanups {
		if _, err := g.call(fn, nil); err != nil && first == nil {
			first = err
		}
	}
	g.observer = prev
	r.cleanups = nil
	return first
}

func (g *graph) disposeEffect(e *effect) error {
	if e.disposed {
		return nil
	}
	e.disposed = true
	e.untrack()
	return g.disposeRun(e.current)
}

// addCleanup registers fn against the run named by id. Without an id the
// cleanup belongs to the root; a cleanup for a run that already ended is
// called immediately.
func (g *graph) addCleanup(fn Value, id Value) error {
	if !isCallable(fn) {
		return typeError("cleanup expects a function, got %s", inspect(fn, 0))
	}
	if id == Undefined {
		g.root.cleanups = append(g.root.cleanups, fn)
		return nil
	}
	r, ok := g.runs[toNumber(id)]
	if !ok {
		_, err := g.call(fn, nil)
		return err
	}
	r.cleanups = append(r.cleanups, fn)
	return nil
}

// liveEffects counts effects that are not disposed, reachable from the
// root.
func (g *graph) liveEffects() int {
	var count func(r *run) int
	count = func(r *run) int {
		if r == nil || r.disposed {
			return 0
		}
		n := 0
		for _, e := range r.children {
			if !e.disposed {
				n++
				n += count(e.current)
			}
		}
		return n
	}
	return count(g.root)
}

// untracked runs fn with no observer, so its reads subscribe nothing.
func (g *graph) untracked(fn func() (Value, error)) (Value, error) {
	prev := g.observer
	g.observer = nil
	defer func() { g.observer = prev }()
	return fn()
}
