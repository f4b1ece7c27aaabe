package engine

import "math"

// timer is a pending setTimeout or setInterval callback.
type timer struct {
	id    float64
	due   float64
	every float64
	fn    Value
	args  []Value
}

// timers is a virtual clock in milliseconds. Time only moves when a tick
// update advances it, so intervals that are never cleared stay visible in
// the trace instead of racing the test.
type timers struct {
	now    float64
	nextID float64
	active []*timer
}

func newTimers() *timers {
	return &timers{}
}

func (t *timers) add(fn Value, ms float64, repeat bool, args []Value) float64 {
	if math.IsNaN(ms) || ms < 0 {
		ms = 0
	}
	t.nextID++
	tm := &timer{id: t.nextID, due: t.now + ms, fn: fn, args: args}
	if repeat {
		tm.every = math.Max(ms, 1)
		tm.due = t.now + tm.every
	}
	t.active = append(t.active, tm)
	return tm.id
}

func (t *timers) clear(id float64) {
	for i, tm := range t.active {
		if tm.id == id {
			t.active = append(t.active[:i:i], t.active[i+1:]...)
			return
		}
	}
}

// next returns the earliest timer due at or before limit. Ties fire in
// creation order.
func (t *timers) next(limit float64) *timer {
	var best *timer
	for _, tm := range t.active {
		if tm.due > limit {
			continue
		}
		if best == nil || tm.due < best.due || (tm.due == best.due && tm.id < best.id) {
			best = tm
		}
	}
	return best
}

// advance moves time forward by ms, firing every timer that comes due.
func (t *timers) advance(ms float64, fire func(*timer) error) error {
	target := t.now + ms
	for {
		tm := t.next(target)
		if tm == nil {
			break
		}
		t.now = tm.due
		if tm.every > 0 {
			tm.due += tm.every
		} else {
			t.clear(tm.id)
		}
		if err := fire(tm); err != nil {
			return err
		}
	}
	t.now = target
	return nil
}

func (e *Engine) fireTimer(tm *timer) error {
	return e.g.batched(func() error {
		_, err := e.g.untracked(func() (Value, error) {
			return e.in.call(tm.fn, tm.args)
		})
		return err
	})
}

func (e *Engine) installTimers(sc *scope) {
	schedule := func(name string, repeat bool) *Native {
		return native(name, func(args []Value) (Value, error) {
			fn := arg(args, 0)
			if !isCallable(fn) {
				return nil, typeError("%s expects a function, got %s", name, inspect(fn, 0))
			}
			var rest []Value
			if len(args) > 2 {
				rest = args[2:]
			}
			return e.timers.add(fn, toNumber(arg(args, 1)), repeat, rest), nil
		})
	}
	cancel := func(name string) *Native {
		return native(name, func(args []Value) (Value, error) {
			e.timers.clear(toNumber(arg(args, 0)))
			return Undefined, nil
		})
	}
	sc.declare("setTimeout", schedule("setTimeout", false), false)
	sc.declare("setInterval", schedule("setInterval", true), false)
	sc.declare("clearTimeout", cancel("clearTimeout"), false)
	sc.declare("clearInterval", cancel("clearInterval"), false)
}
