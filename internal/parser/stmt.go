package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/roach88/wisp/internal/ast"
)

// stmtList converts the statement children of a program, block or case.
func (c *converter) stmtList(n *sitter.Node) []ast.Stmt {
	var out []ast.Stmt
	for _, child := range named(n) {
		if s := c.stmt(child); s.Data != nil {
			out = append(out, s)
		}
	}
	return out
}

func (c *converter) rawStmt(n *sitter.Node) ast.Stmt {
	c.raw++
	return ast.Stmt{Loc: loc(n), Data: &ast.SRaw{Text: c.text(n)}}
}

func (c *converter) stmt(n *sitter.Node) ast.Stmt {
	if n == nil {
		return ast.Stmt{}
	}
	l := loc(n)
	switch n.Type() {
	case "expression_statement":
		inner := firstNamed(n)
		if inner == nil {
			return ast.Stmt{Loc: l, Data: &ast.SEmpty{}}
		}
		return ast.Stmt{Loc: l, Data: &ast.SExpr{Value: c.expr(inner)}}

	case "lexical_declaration", "variable_declaration":
		return ast.Stmt{Loc: l, Data: c.local(n)}

	case "function_declaration", "generator_function_declaration":
		return ast.Stmt{Loc: l, Data: &ast.SFunction{Fn: c.fn(n)}}

	case "return_statement":
		ret := &ast.SReturn{}
		if inner := firstNamed(n); inner != nil {
			ret.Value = c.expr(inner)
		}
		return ast.Stmt{Loc: l, Data: ret}

	case "statement_block":
		return ast.Stmt{Loc: l, Data: &ast.SBlock{Stmts: c.stmtList(n)}}

	case "if_statement":
		s := &ast.SIf{
			Test: c.expr(n.ChildByFieldName("condition")),
			Yes:  c.stmt(n.ChildByFieldName("consequence")),
		}
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			if alt.Type() == "else_clause" {
				alt = firstNamed(alt)
			}
			s.No = c.stmt(alt)
		}
		return ast.Stmt{Loc: l, Data: s}

	case "switch_statement":
		return ast.Stmt{Loc: l, Data: c.switchStmt(n)}

	case "for_statement":
		s := &ast.SFor{
			Init: c.stmt(n.ChildByFieldName("initializer")),
			Body: c.stmt(n.ChildByFieldName("body")),
		}
		if cond := n.ChildByFieldName("condition"); cond != nil {
			s.Test = c.exprOrStatement(cond)
		}
		if inc := n.ChildByFieldName("increment"); inc != nil {
			s.Update = c.expr(inc)
		}
		if _, ok := s.Init.Data.(*ast.SEmpty); ok {
			s.Init = ast.Stmt{}
		}
		return ast.Stmt{Loc: l, Data: s}

	case "for_in_statement":
		return ast.Stmt{Loc: l, Data: c.forIn(n)}

	case "while_statement":
		return ast.Stmt{Loc: l, Data: &ast.SWhile{
			Test: c.expr(n.ChildByFieldName("condition")),
			Body: c.stmt(n.ChildByFieldName("body")),
		}}

	case "do_statement":
		return ast.Stmt{Loc: l, Data: &ast.SDoWhile{
			Body: c.stmt(n.ChildByFieldName("body")),
			Test: c.expr(n.ChildByFieldName("condition")),
		}}

	case "try_statement":
		s := &ast.STry{Block: c.stmtList(n.ChildByFieldName("body"))}
		if h := n.ChildByFieldName("handler"); h != nil {
			s.Catch = &ast.Catch{Body: c.stmtList(h.ChildByFieldName("body"))}
			if param := h.ChildByFieldName("parameter"); param != nil {
				s.Catch.Binding = c.binding(param)
			}
		}
		if f := n.ChildByFieldName("finalizer"); f != nil {
			s.HasFinally = true
			s.Finally = c.stmtList(f.ChildByFieldName("body"))
		}
		return ast.Stmt{Loc: l, Data: s}

	case "throw_statement":
		return ast.Stmt{Loc: l, Data: &ast.SThrow{Value: c.expr(firstNamed(n))}}

	case "break_statement":
		s := &ast.SBreak{}
		if label := n.ChildByFieldName("label"); label != nil {
			s.Label = c.text(label)
		}
		return ast.Stmt{Loc: l, Data: s}

	case "continue_statement":
		s := &ast.SContinue{}
		if label := n.ChildByFieldName("label"); label != nil {
			s.Label = c.text(label)
		}
		return ast.Stmt{Loc: l, Data: s}

	case "empty_statement":
		return ast.Stmt{Loc: l, Data: &ast.SEmpty{}}

	case "import_statement":
		return c.importStmt(n)

	case "export_statement":
		return c.exportStmt(n)

	case "type_alias_declaration", "interface_declaration":
		return ast.Stmt{Loc: l, Data: c.typeShape(n)}

	case "comment", "hash_bang_line":
		return ast.Stmt{}

	default:
		// Classes, labels, enums, declare blocks and friends pass through.
		return c.rawStmt(n)
	}
}

// exprOrStatement unwraps the expression_statement tree-sitter uses for a
// for-loop condition.
func (c *converter) exprOrStatement(n *sitter.Node) ast.Expr {
	switch n.Type() {
	case "expression_statement":
		if inner := firstNamed(n); inner != nil {
			return c.expr(inner)
		}
		return ast.Expr{}
	case "empty_statement", ";":
		return ast.Expr{}
	}
	return c.expr(n)
}

func (c *converter) local(n *sitter.Node) *ast.SLocal {
	s := &ast.SLocal{Kind: ast.LocalVar}
	if n.Type() == "lexical_declaration" {
		s.Kind = ast.LocalLet
		if kind := n.ChildByFieldName("kind"); kind != nil && c.text(kind) == "const" {
			s.Kind = ast.LocalConst
		} else if hasToken(n, "const") {
			s.Kind = ast.LocalConst
		}
	}
	for _, child := range named(n) {
		if child.Type() != "variable_declarator" {
			continue
		}
		d := ast.Decl{Binding: c.binding(child.ChildByFieldName("name"))}
		if v := child.ChildByFieldName("value"); v != nil {
			d.Value = c.expr(v)
		}
		s.Decls = append(s.Decls, d)
	}
	return s
}

func (c *converter) switchStmt(n *sitter.Node) *ast.SSwitch {
	s := &ast.SSwitch{Test: c.expr(n.ChildByFieldName("value"))}
	body := n.ChildByFieldName("body")
	if body == nil {
		return s
	}
	for _, clause := range named(body) {
		var cs ast.Case
		for i := 0; i < int(clause.ChildCount()); i++ {
			child := clause.Child(i)
			if child == nil || !child.IsNamed() || isComment(child) {
				continue
			}
			if clause.FieldNameForChild(i) == "value" {
				cs.Value = c.expr(child)
				continue
			}
			if st := c.stmt(child); st.Data != nil {
				cs.Body = append(cs.Body, st)
			}
		}
		s.Cases = append(s.Cases, cs)
	}
	return s
}

func (c *converter) forIn(n *sitter.Node) ast.S {
	left := n.ChildByFieldName("left")
	var init ast.Stmt
	if kind := n.ChildByFieldName("kind"); kind != nil {
		k := ast.LocalVar
		switch c.text(kind) {
		case "let":
			k = ast.LocalLet
		case "const":
			k = ast.LocalConst
		}
		init = ast.Stmt{Loc: loc(left), Data: &ast.SLocal{Kind: k, Decls: []ast.Decl{{Binding: c.binding(left)}}}}
	} else {
		init = ast.Stmt{Loc: loc(left), Data: &ast.SExpr{Value: c.expr(left)}}
	}
	value := c.expr(n.ChildByFieldName("right"))
	body := c.stmt(n.ChildByFieldName("body"))

	isOf := hasToken(n, "of")
	if op := n.ChildByFieldName("operator"); op != nil {
		isOf = c.text(op) == "of"
	}
	if isOf {
		return &ast.SForOf{Init: init, Value: value, Body: body, IsAwait: hasToken(n, "await")}
	}
	return &ast.SForIn{Init: init, Value: value, Body: body}
}

func (c *converter) importStmt(n *sitter.Node) ast.Stmt {
	if hasToken(n, "type") {
		return ast.Stmt{}
	}
	s := &ast.SImport{}
	if src := n.ChildByFieldName("source"); src != nil {
		s.Path = c.stringValue(src)
	}
	for _, child := range named(n) {
		if child.Type() != "import_clause" {
			continue
		}
		for _, part := range named(child) {
			switch part.Type() {
			case "identifier":
				s.DefaultName = c.text(part)
			case "namespace_import":
				if id := firstNamed(part); id != nil {
					s.NamespaceName = c.text(id)
				}
			case "named_imports":
				for _, spec := range named(part) {
					if spec.Type() != "import_specifier" || hasToken(spec, "type") {
						continue
					}
					item := ast.ClauseItem{Name: c.moduleName(spec.ChildByFieldName("name"))}
					if alias := spec.ChildByFieldName("alias"); alias != nil {
						item.Alias = c.text(alias)
					}
					s.Items = append(s.Items, item)
				}
			}
		}
	}
	return ast.Stmt{Loc: loc(n), Data: s}
}

// moduleName reads an import or export name, which may be a string literal.
func (c *converter) moduleName(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	if n.Type() == "string" {
		return c.stringValue(n)
	}
	return c.text(n)
}

func (c *converter) exportStmt(n *sitter.Node) ast.Stmt {
	l := loc(n)
	isDefault := hasToken(n, "default")

	if decl := n.ChildByFieldName("declaration"); decl != nil {
		inner := c.stmt(decl)
		if isDefault {
			switch inner.Data.(type) {
			case *ast.SFunction:
				return ast.Stmt{Loc: l, Data: &ast.SExportDefault{Value: inner}}
			}
			return c.rawStmt(n)
		}
		switch d := inner.Data.(type) {
		case *ast.SFunction:
			d.IsExport = true
		case *ast.SLocal:
			d.IsExport = true
		case *ast.STypeShape:
			d.IsExport = true
		default:
			return c.rawStmt(n)
		}
		inner.Loc = l
		return inner
	}

	if value := n.ChildByFieldName("value"); value != nil && isDefault {
		e := c.expr(value)
		return ast.Stmt{Loc: l, Data: &ast.SExportDefault{Value: ast.Stmt{Loc: e.Loc, Data: &ast.SExpr{Value: e}}}}
	}

	for _, child := range named(n) {
		if child.Type() != "export_clause" {
			continue
		}
		s := &ast.SExportClause{}
		for _, spec := range named(child) {
			if spec.Type() != "export_specifier" {
				continue
			}
			item := ast.ClauseItem{Name: c.moduleName(spec.ChildByFieldName("name"))}
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				item.Alias = c.moduleName(alias)
			}
			s.Items = append(s.Items, item)
		}
		if src := n.ChildByFieldName("source"); src != nil {
			s.From = c.stringValue(src)
		}
		return ast.Stmt{Loc: l, Data: s}
	}
	return c.rawStmt(n)
}

// typeShape records a TypeScript alias or interface and the property names of
// its object-shaped body.
func (c *converter) typeShape(n *sitter.Node) *ast.STypeShape {
	s := &ast.STypeShape{}
	if name := n.ChildByFieldName("name"); name != nil {
		s.Name = c.text(name)
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		body = n.ChildByFieldName("value")
	}
	if body != nil {
		s.Fields = c.shapeFields(body)
	}
	return s
}

func (c *converter) shapeFields(n *sitter.Node) []string {
	var fields []string
	switch n.Type() {
	case "object_type", "interface_body":
		for _, member := range named(n) {
			if member.Type() != "property_signature" && member.Type() != "method_signature" {
				continue
			}
			if name := member.ChildByFieldName("name"); name != nil {
				fields = append(fields, strings.Trim(c.text(name), `"'`))
			}
		}
	case "intersection_type", "parenthesized_type":
		for _, part := range named(n) {
			fields = append(fields, c.shapeFields(part)...)
		}
	}
	return fields
}
