// Package store provides SQLite-backed storage for the compiler: a
// content-addressed transform cache and the traces of recorded scenario
// runs.
//
// # Tables
//
//   - transforms: compiled output keyed by ast.TransformKey
//   - runs: one row per recorded scenario run, ordered by seq
//   - trace_events: the run's trace, ordered by (run_id, seq)
//
// # Ordering
//
// Nothing is ordered by wall-clock time. Runs carry a store-assigned seq and
// trace events keep the engine's logical sequence numbers, so reading a run
// back yields exactly the trace the engine recorded.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// OpenDir additionally holds an advisory file lock on the cache directory
// for the lifetime of the store, so two compiler processes never share one
// cache concurrently.
package store
