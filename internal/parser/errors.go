package parser

import (
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// ParseError reports the first syntax error in a file.
// Line and Column are 1-based.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Message)
}

// IsParseError returns true if err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

func newParseError(path string, src []byte, root *sitter.Node) *ParseError {
	bad := firstError(root)
	if bad == nil {
		bad = root
	}
	pt := bad.StartPoint()
	pe := &ParseError{Path: path, Line: int(pt.Row) + 1, Column: int(pt.Column) + 1}

	switch {
	case bad.IsMissing():
		pe.Message = fmt.Sprintf("missing %s", bad.Type())
	default:
		snippet := strings.TrimSpace(bad.Content(src))
		if i := strings.IndexByte(snippet, '\n'); i >= 0 {
			snippet = snippet[:i]
		}
		if len(snippet) > 40 {
			snippet = snippet[:40] + "..."
		}
		if snippet == "" {
			pe.Message = "unexpected end of input"
		} else {
			pe.Message = fmt.Sprintf("unexpected %q", snippet)
		}
	}
	return pe
}

// firstError finds the earliest ERROR or MISSING node in document order.
func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if found := firstError(child); found != nil {
			return found
		}
	}
	return nil
}
