// Package harness runs conformance scenarios against compiled components.
//
// A scenario compiles one component, mounts it in a fresh engine, applies
// a list of updates and checks the resulting trace, markup and compiler
// diagnostics.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: counter_updates
//	description: "Text and attribute slots follow the prop"
//	source: |
//	  export default function Counter({ count }) {
//	    return <p class={count}>{count}</p>;
//	  }
//	props: { count: 1 }
//	steps:
//	  - set: { count: 2 }
//	  - emit: { target: button, event: click }
//	  - tick: 1000
//	  - unmount: true
//	assertions:
//	  - type: html_equals
//	    html: <p class="2">2</p>
//	  - type: trace_contains
//	    kind: set
//	    message: count = 2
//
// Instead of source, a scenario may name a component file relative to
// itself (file) or provide already-compiled output (code).
//
// # Assertions
//
//   - trace_contains: some event matches kind, message or contains
//   - trace_order: messages appear in order, not necessarily adjacent
//   - trace_count: exactly count events match kind, message or contains
//   - html_equals, html_contains: the final markup
//   - code_contains: the compiled module
//   - diagnostic_count: compiler diagnostics, optionally of one code
//   - live_effects: effects still attached to the reactive graph
//   - error_code: the runtime error that stopped the run
//
// A runtime error stops the remaining steps. It fails the scenario unless
// an error_code assertion expects it.
//
// # Golden Files
//
// RunWithGolden snapshots the trace and final markup as canonical JSON
// under testdata/golden, compared with goldie. Run ids are excluded, so
// snapshots are stable across runs.
package harness
