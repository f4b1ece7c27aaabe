package ast

// Version constants for the tree format and the compiler.
const (
	// TreeVersion is bumped when Canonical's output shape changes.
	TreeVersion = "1"

	// CompilerVersion is part of every transform cache key.
	CompilerVersion = "0.4.0"
)
