// Package ast provides the syntax tree every compiler pass operates on.
//
// The tree is a closed sum type. Expressions are Expr values wrapping an E,
// statements are Stmt values wrapping an S and declaration targets are Binding
// values wrapping a B. Each node kind is its own struct; type switches over
// E, S and B are expected to be exhaustive.
//
// This package imports nothing internal. Parser, printer, transform and engine
// all depend on it and never on each other's node representations.
//
// Key constraints:
//   - Non-computed object keys are *EString, never *EIdentifier, so identifier
//     rewriting cannot touch them.
//   - A missing expression is Expr{Data: nil}; use IsMissing.
//   - Trees are not shared. Passes that need to keep the input intact work on
//     CloneProgram's result.
package ast
