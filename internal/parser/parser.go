package parser

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"

	"github.com/roach88/wisp/internal/ast"
)

// JSXOptions names the factory calls JSX is normalized into.
type JSXOptions struct {
	// Single is called for elements with zero or one child.
	Single string
	// Multi is called when children is a static array of two or more.
	Multi string
	// Fragment is the identifier passed as the tag of <>...</>.
	Fragment string
}

// DefaultJSX matches the automatic React runtime.
var DefaultJSX = JSXOptions{Single: "jsx", Multi: "jsxs", Fragment: "Fragment"}

// Parser converts JavaScript and TypeScript source into ast.Program values.
//
// A Parser is safe for concurrent use: every Parse call builds its own
// tree-sitter parser.
type Parser struct {
	jsx    JSXOptions
	logger *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithJSX overrides the JSX factory names.
func WithJSX(opts JSXOptions) Option {
	return func(p *Parser) {
		p.jsx = opts
	}
}

// WithLogger sets the logger used for debug output about unsupported syntax.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{jsx: DefaultJSX, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Language reports which grammar Parse selects for path.
func Language(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".tsx", ".mts", ".cts":
		return "tsx"
	default:
		return "javascript"
	}
}

// Parse parses src as one module. The path selects the grammar and is
// recorded on the program for diagnostics. Syntax errors are returned as
// *ParseError; the tree is not returned in that case.
func (p *Parser) Parse(ctx context.Context, path string, src []byte) (*ast.Program, error) {
	sp := sitter.NewParser()
	defer sp.Close()

	isTS := Language(path) == "tsx"
	if isTS {
		sp.SetLanguage(tsx.GetLanguage())
	} else {
		sp.SetLanguage(javascript.GetLanguage())
	}

	tree, err := sp.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, newParseError(path, src, root)
	}

	c := &converter{src: src, path: path, jsx: p.jsx, isTS: isTS, logger: p.logger}
	prog := &ast.Program{Path: path}
	prog.Stmts = c.stmtList(root)
	if c.raw > 0 {
		p.logger.Debug("preserved unsupported syntax verbatim", "path", path, "nodes", c.raw)
	}
	return prog, nil
}

// converter holds per-file state while walking one concrete syntax tree.
type converter struct {
	src    []byte
	path   string
	jsx    JSXOptions
	isTS   bool
	logger *slog.Logger

	// raw counts nodes kept as source text.
	raw int
}

func (c *converter) text(n *sitter.Node) string {
	return n.Content(c.src)
}

func loc(n *sitter.Node) ast.Loc {
	pt := n.StartPoint()
	return ast.Loc{Line: int(pt.Row) + 1, Column: int(pt.Column) + 1}
}

// named returns the named children of n, without comments.
func named(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child == nil || isComment(child) {
			continue
		}
		out = append(out, child)
	}
	return out
}

func isComment(n *sitter.Node) bool {
	switch n.Type() {
	case "comment", "hash_bang_line", "html_comment":
		return true
	}
	return false
}

// hasToken reports whether n has an anonymous child with the given text.
func hasToken(n *sitter.Node, token string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child != nil && !child.IsNamed() && child.Type() == token {
			return true
		}
	}
	return false
}

// firstNamed returns the first named, non-comment child.
func firstNamed(n *sitter.Node) *sitter.Node {
	kids := named(n)
	if len(kids) == 0 {
		return nil
	}
	return kids[0]
}
