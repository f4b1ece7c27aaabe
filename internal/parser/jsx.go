package parser

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/roach88/wisp/internal/ast"
)

// jsxElement normalizes an element into the factory call the automatic JSX
// runtime would produce:
//
//	<a href={u} key={k}>hi</a>  =>  jsx("a", { href: u, children: "hi" }, k)
//	<>{x}{y}</>                  =>  jsxs(Fragment, { children: [x, y] })
func (c *converter) jsxElement(n *sitter.Node) ast.Expr {
	l := loc(n)
	open := n
	if n.Type() == "jsx_element" {
		open = n.ChildByFieldName("open_tag")
		if open == nil {
			return c.rawExpr(n)
		}
	}

	tag := ast.Expr{Loc: l, Data: &ast.EIdentifier{Name: c.jsx.Fragment}}
	if name := open.ChildByFieldName("name"); name != nil {
		tag = c.jsxTag(name)
	}

	props := &ast.EObject{}
	var key ast.Expr
	for i := 0; i < int(open.ChildCount()); i++ {
		attr := open.Child(i)
		if attr == nil || !attr.IsNamed() {
			continue
		}
		switch attr.Type() {
		case "jsx_attribute":
			name, value := c.jsxAttribute(attr)
			if name == "key" {
				key = value
				continue
			}
			props.Properties = append(props.Properties, ast.Property{
				Key:   ast.Expr{Loc: loc(attr), Data: &ast.EString{Value: name}},
				Value: value,
			})
		case "jsx_expression":
			// {...spread}
			if inner := firstNamed(attr); inner != nil {
				spread := inner
				if inner.Type() == "spread_element" {
					spread = firstNamed(inner)
				}
				props.Properties = append(props.Properties, ast.Property{
					Kind:  ast.PropertySpread,
					Value: c.expr(spread),
				})
			}
		}
	}

	var children []ast.Expr
	if n.Type() == "jsx_element" {
		children = c.jsxChildren(n)
	}

	factory := c.jsx.Single
	switch len(children) {
	case 0:
	case 1:
		props.Properties = append(props.Properties, ast.Property{
			Key:   ast.Expr{Data: &ast.EString{Value: "children"}},
			Value: children[0],
		})
	default:
		factory = c.jsx.Multi
		props.Properties = append(props.Properties, ast.Property{
			Key:   ast.Expr{Data: &ast.EString{Value: "children"}},
			Value: ast.Expr{Data: &ast.EArray{Items: children}},
		})
	}

	args := []ast.Expr{tag, {Loc: l, Data: props}}
	if !key.IsMissing() {
		args = append(args, key)
	}
	return ast.Expr{Loc: l, Data: &ast.ECall{
		Target: ast.Expr{Loc: l, Data: &ast.EIdentifier{Name: factory}},
		Args:   args,
	}}
}

// jsxTag turns an element name into a tag argument: lowercase and dashed names
// are intrinsic strings, capitalized names and member paths are references.
func (c *converter) jsxTag(n *sitter.Node) ast.Expr {
	l := loc(n)
	text := c.text(n)
	switch n.Type() {
	case "member_expression":
		return c.expr(n)
	case "nested_identifier":
		parts := strings.Split(text, ".")
		out := ast.Expr{Loc: l, Data: &ast.EIdentifier{Name: parts[0]}}
		for _, p := range parts[1:] {
			out = ast.Expr{Loc: l, Data: &ast.EDot{Target: out, Name: p}}
		}
		return out
	case "jsx_namespace_name":
		return ast.Expr{Loc: l, Data: &ast.EString{Value: text}}
	}
	first, _ := utf8.DecodeRuneInString(text)
	if unicode.IsLower(first) || strings.Contains(text, "-") {
		return ast.Expr{Loc: l, Data: &ast.EString{Value: text}}
	}
	return ast.Expr{Loc: l, Data: &ast.EIdentifier{Name: text}}
}

// jsxAttribute returns the attribute name and its value. A bare attribute is
// true.
func (c *converter) jsxAttribute(n *sitter.Node) (string, ast.Expr) {
	parts := named(n)
	if len(parts) == 0 {
		return "", ast.Expr{}
	}
	name := c.text(parts[0])
	if len(parts) < 2 {
		return name, ast.Expr{Loc: loc(n), Data: &ast.EBoolean{Value: true}}
	}
	v := parts[1]
	switch v.Type() {
	case "string":
		raw := c.text(v)
		if len(raw) >= 2 {
			raw = raw[1 : len(raw)-1]
		}
		return name, ast.Expr{Loc: loc(v), Data: &ast.EString{Value: html.UnescapeString(raw)}}
	case "jsx_expression":
		inner := firstNamed(v)
		if inner == nil {
			return name, ast.Expr{Loc: loc(v), Data: &ast.EBoolean{Value: true}}
		}
		return name, c.expr(inner)
	default:
		return name, c.expr(v)
	}
}

// jsxChildren converts element content. Text is read from the source gaps
// between child elements and expressions, so whitespace the grammar folds
// into extras is not lost. Each gap is cleaned with the JSX whitespace rules
// and its character references decoded.
func (c *converter) jsxChildren(n *sitter.Node) []ast.Expr {
	open := n.ChildByFieldName("open_tag")
	closeTag := n.ChildByFieldName("close_tag")
	if open == nil {
		return nil
	}
	cursor := open.EndByte()
	var out []ast.Expr

	gap := func(until uint32, at ast.Loc) {
		if until <= cursor {
			return
		}
		cleaned := cleanJSXText(string(c.src[cursor:until]))
		if cleaned != "" {
			out = append(out, ast.Expr{Loc: at, Data: &ast.EString{Value: html.UnescapeString(cleaned)}})
		}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !child.IsNamed() {
			continue
		}
		switch child.Type() {
		case "jsx_opening_element", "jsx_closing_element", "jsx_text", "html_character_reference":
			continue
		}
		if isComment(child) {
			continue
		}
		gap(child.StartByte(), loc(child))
		cursor = child.EndByte()

		switch child.Type() {
		case "jsx_expression":
			inner := firstNamed(child)
			if inner == nil {
				continue
			}
			if inner.Type() == "spread_element" {
				out = append(out, ast.Expr{Loc: loc(inner), Data: &ast.ESpread{Value: c.expr(firstNamed(inner))}})
				continue
			}
			out = append(out, c.expr(inner))
		case "jsx_element", "jsx_self_closing_element":
			out = append(out, c.jsxElement(child))
		default:
			out = append(out, c.expr(child))
		}
	}
	if closeTag != nil {
		gap(closeTag.StartByte(), loc(closeTag))
	}
	return out
}

// cleanJSXText applies the JSX whitespace rule: lines are trimmed, blank
// lines dropped and the rest joined with single spaces. Whitespace inside a
// single line is preserved.
func cleanJSXText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")

	lastNonEmpty := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lastNonEmpty = i
		}
	}

	var b strings.Builder
	for i, line := range lines {
		line = strings.ReplaceAll(line, "\t", " ")
		if i != 0 {
			line = strings.TrimLeft(line, " ")
		}
		if i != len(lines)-1 {
			line = strings.TrimRight(line, " ")
		}
		if line == "" {
			continue
		}
		b.WriteString(line)
		if i < lastNonEmpty {
			b.WriteByte(' ')
		}
	}
	return b.String()
}
