// Package engine executes compiled components in a simulated runtime.
//
// The engine interprets the JavaScript subset the compiler emits and backs
// it with a signal graph: state and derived signals, effects with
// dependency functions, cleanups owned by effect runs, and a rendered
// element tree serialized to HTML.
//
// Single-writer update loop:
//
//  1. Mount calls the component and renders its Markup Array.
//  2. Set and Emit enqueue updates to a FIFO queue from any goroutine.
//  3. Run drains the queue one update at a time. Every update is stamped
//     by the logical clock and runs all effects it schedules before the
//     next update starts.
//  4. Log calls (log, console.log) are appended to the trace, which is
//     the observable record tests assert on.
//
// Dependency functions carry the runtime protocol for nested effects. An
// effect callback receives a function r whose r.id names its current run.
// Wrapping a sub-effect callback as r(fn) makes the sub-effect a child of
// that run, so it is disposed when the parent re-runs; cleanup(fn, r.id)
// registers fn to be called at that moment. A sub-effect that is not
// wrapped belongs to the root and survives its parent, which is how the
// engine exposes the leak the compiler exists to prevent.
//
// The engine is deterministic: no wall-clock time, no randomness, and
// effects run in subscription order.
package engine
