package parser

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/roach88/wisp/internal/ast"
)

func (c *converter) rawExpr(n *sitter.Node) ast.Expr {
	c.raw++
	return ast.Expr{Loc: loc(n), Data: &ast.ERaw{Text: c.text(n)}}
}

func (c *converter) exprs(nodes []*sitter.Node) []ast.Expr {
	out := make([]ast.Expr, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, c.expr(n))
	}
	return out
}

func (c *converter) expr(n *sitter.Node) ast.Expr {
	if n == nil {
		return ast.Expr{}
	}
	l := loc(n)
	switch n.Type() {
	case "identifier", "shorthand_property_identifier", "property_identifier":
		name := c.text(n)
		if name == "undefined" {
			return ast.Expr{Loc: l, Data: &ast.EUndefined{}}
		}
		return ast.Expr{Loc: l, Data: &ast.EIdentifier{Name: name}}
	case "undefined":
		return ast.Expr{Loc: l, Data: &ast.EUndefined{}}
	case "this":
		return ast.Expr{Loc: l, Data: &ast.EThis{}}
	case "true", "false":
		return ast.Expr{Loc: l, Data: &ast.EBoolean{Value: n.Type() == "true"}}
	case "null":
		return ast.Expr{Loc: l, Data: &ast.ENull{}}
	case "number":
		return c.number(n)
	case "string":
		return ast.Expr{Loc: l, Data: &ast.EString{Value: c.stringValue(n)}}
	case "template_string":
		return ast.Expr{Loc: l, Data: c.template(n, ast.Expr{})}
	case "regex":
		return ast.Expr{Loc: l, Data: &ast.ERegExp{Value: c.text(n)}}

	case "parenthesized_expression":
		return c.expr(firstNamed(n))

	case "sequence_expression":
		parts := named(n)
		if len(parts) == 0 {
			return ast.Expr{}
		}
		out := c.expr(parts[0])
		for _, p := range parts[1:] {
			out = ast.Expr{Loc: l, Data: &ast.EBinary{Op: ",", Left: out, Right: c.expr(p)}}
		}
		return out

	case "array":
		arr := &ast.EArray{}
		for _, item := range named(n) {
			arr.Items = append(arr.Items, c.expr(item))
		}
		return ast.Expr{Loc: l, Data: arr}

	case "object":
		if hasAccessor(n) {
			return c.rawExpr(n)
		}
		return ast.Expr{Loc: l, Data: c.object(n)}

	case "spread_element":
		return ast.Expr{Loc: l, Data: &ast.ESpread{Value: c.expr(firstNamed(n))}}

	case "member_expression":
		target := c.expr(n.ChildByFieldName("object"))
		prop := n.ChildByFieldName("property")
		if prop != nil && prop.Type() == "private_property_identifier" {
			return c.rawExpr(n)
		}
		return ast.Expr{Loc: l, Data: &ast.EDot{
			Target:   target,
			Name:     c.text(prop),
			Optional: hasOptionalChain(n),
		}}

	case "subscript_expression":
		return ast.Expr{Loc: l, Data: &ast.EIndex{
			Target:   c.expr(n.ChildByFieldName("object")),
			Index:    c.expr(n.ChildByFieldName("index")),
			Optional: hasOptionalChain(n),
		}}

	case "call_expression":
		target := c.expr(n.ChildByFieldName("function"))
		args := n.ChildByFieldName("arguments")
		if args != nil && args.Type() == "template_string" {
			return ast.Expr{Loc: l, Data: c.template(args, target)}
		}
		call := &ast.ECall{Target: target, Optional: hasOptionalChain(n)}
		if args != nil {
			call.Args = c.exprs(named(args))
		}
		return ast.Expr{Loc: l, Data: call}

	case "new_expression":
		e := &ast.ENew{Target: c.expr(n.ChildByFieldName("constructor"))}
		if args := n.ChildByFieldName("arguments"); args != nil {
			e.Args = c.exprs(named(args))
		}
		return ast.Expr{Loc: l, Data: e}

	case "await_expression":
		return ast.Expr{Loc: l, Data: &ast.EAwait{Value: c.expr(firstNamed(n))}}

	case "yield_expression":
		y := &ast.EYield{Delegate: hasToken(n, "*")}
		if inner := firstNamed(n); inner != nil {
			y.Value = c.expr(inner)
		}
		return ast.Expr{Loc: l, Data: y}

	case "unary_expression":
		return ast.Expr{Loc: l, Data: &ast.EUnary{
			Op:    c.text(n.ChildByFieldName("operator")),
			Value: c.expr(n.ChildByFieldName("argument")),
		}}

	case "update_expression":
		op := n.ChildByFieldName("operator")
		arg := n.ChildByFieldName("argument")
		return ast.Expr{Loc: l, Data: &ast.EUnary{
			Op:      c.text(op),
			Value:   c.expr(arg),
			Postfix: arg != nil && op != nil && arg.StartByte() < op.StartByte(),
		}}

	case "binary_expression", "augmented_assignment_expression":
		return ast.Expr{Loc: l, Data: &ast.EBinary{
			Op:    c.text(n.ChildByFieldName("operator")),
			Left:  c.expr(n.ChildByFieldName("left")),
			Right: c.expr(n.ChildByFieldName("right")),
		}}

	case "assignment_expression":
		return ast.Expr{Loc: l, Data: &ast.EBinary{
			Op:    "=",
			Left:  c.assignTarget(n.ChildByFieldName("left")),
			Right: c.expr(n.ChildByFieldName("right")),
		}}

	case "ternary_expression":
		return ast.Expr{Loc: l, Data: &ast.EIf{
			Test: c.expr(n.ChildByFieldName("condition")),
			Yes:  c.expr(n.ChildByFieldName("consequence")),
			No:   c.expr(n.ChildByFieldName("alternative")),
		}}

	case "arrow_function", "function", "function_expression", "generator_function":
		return ast.Expr{Loc: l, Data: &ast.EFunction{Fn: c.fn(n)}}

	case "jsx_element", "jsx_self_closing_element":
		return c.jsxElement(n)

	case "as_expression", "satisfies_expression", "non_null_expression", "type_assertion":
		// TypeScript-only wrappers erase to their operand.
		for _, child := range named(n) {
			switch child.Type() {
			case "type_arguments", "type_annotation", "type_identifier", "predefined_type",
				"generic_type", "object_type", "union_type", "literal_type", "array_type":
				continue
			}
			return c.expr(child)
		}
		return c.rawExpr(n)

	case "instantiation_expression":
		return c.expr(n.ChildByFieldName("function"))

	default:
		return c.rawExpr(n)
	}
}

func hasOptionalChain(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child != nil && (child.Type() == "optional_chain" || child.Type() == "?.") {
			return true
		}
	}
	return false
}

// assignTarget converts the left side of "=", which tree-sitter may parse as
// a destructuring pattern.
func (c *converter) assignTarget(n *sitter.Node) ast.Expr {
	if n == nil {
		return ast.Expr{}
	}
	switch n.Type() {
	case "object_pattern", "array_pattern":
		return c.rawExpr(n)
	}
	return c.expr(n)
}

func (c *converter) object(n *sitter.Node) *ast.EObject {
	obj := &ast.EObject{}
	for _, member := range named(n) {
		switch member.Type() {
		case "pair":
			p := ast.Property{Value: c.expr(member.ChildByFieldName("value"))}
			p.Key, p.Computed = c.propertyKey(member.ChildByFieldName("key"))
			obj.Properties = append(obj.Properties, p)
		case "shorthand_property_identifier":
			name := c.text(member)
			obj.Properties = append(obj.Properties, ast.Property{
				Key:       ast.Expr{Loc: loc(member), Data: &ast.EString{Value: name}},
				Value:     ast.Expr{Loc: loc(member), Data: &ast.EIdentifier{Name: name}},
				Shorthand: true,
			})
		case "spread_element":
			obj.Properties = append(obj.Properties, ast.Property{
				Kind:  ast.PropertySpread,
				Value: c.expr(firstNamed(member)),
			})
		case "method_definition":
			p := ast.Property{Kind: ast.PropertyMethod}
			p.Key, p.Computed = c.propertyKey(member.ChildByFieldName("name"))
			p.Value = ast.Expr{Loc: loc(member), Data: &ast.EFunction{Fn: c.fn(member)}}
			obj.Properties = append(obj.Properties, p)
		}
	}
	return obj
}

// hasAccessor reports whether an object literal defines a getter or setter,
// which the tree does not model.
func hasAccessor(n *sitter.Node) bool {
	for _, member := range named(n) {
		if member.Type() == "method_definition" && (hasToken(member, "get") || hasToken(member, "set")) {
			return true
		}
	}
	return false
}

// propertyKey returns a key expression and whether it is computed.
// Static keys are always *ast.EString.
func (c *converter) propertyKey(n *sitter.Node) (ast.Expr, bool) {
	if n == nil {
		return ast.Expr{}, false
	}
	l := loc(n)
	switch n.Type() {
	case "computed_property_name":
		return c.expr(firstNamed(n)), true
	case "string":
		return ast.Expr{Loc: l, Data: &ast.EString{Value: c.stringValue(n)}}, false
	case "number":
		if num, ok := c.number(n).Data.(*ast.ENumber); ok {
			return ast.Expr{Loc: l, Data: &ast.EString{Value: strconv.FormatFloat(num.Value, 'g', -1, 64)}}, false
		}
	}
	return ast.Expr{Loc: l, Data: &ast.EString{Value: c.text(n)}}, false
}

func (c *converter) number(n *sitter.Node) ast.Expr {
	text := strings.ReplaceAll(c.text(n), "_", "")
	if strings.HasSuffix(text, "n") {
		return c.rawExpr(n)
	}
	lower := strings.ToLower(text)
	var value float64
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0o") || strings.HasPrefix(lower, "0b") {
		i, err := strconv.ParseInt(lower, 0, 64)
		if err != nil {
			return c.rawExpr(n)
		}
		value = float64(i)
	} else {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return c.rawExpr(n)
		}
		value = f
	}
	return ast.Expr{Loc: loc(n), Data: &ast.ENumber{Value: value}}
}

// template keeps raw text between substitutions so the printer can emit the
// literal unchanged.
func (c *converter) template(n *sitter.Node, tag ast.Expr) *ast.ETemplate {
	t := &ast.ETemplate{Tag: tag}
	start := int(n.StartByte()) + 1
	end := int(n.EndByte()) - 1
	cursor := start
	first := true
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() != "template_substitution" {
			continue
		}
		text := string(c.src[cursor:child.StartByte()])
		if first {
			t.Head = text
			first = false
		} else {
			t.Parts[len(t.Parts)-1].Tail = text
		}
		t.Parts = append(t.Parts, ast.TemplatePart{Value: c.expr(firstNamed(child))})
		cursor = int(child.EndByte())
	}
	tail := ""
	if cursor <= end {
		tail = string(c.src[cursor:end])
	}
	if first {
		t.Head = tail
	} else {
		t.Parts[len(t.Parts)-1].Tail = tail
	}
	return t
}

// fn converts any function-shaped node: declarations, expressions, arrows
// and object methods.
func (c *converter) fn(n *sitter.Node) *ast.Fn {
	f := &ast.Fn{
		IsAsync:     hasToken(n, "async"),
		IsGenerator: hasToken(n, "*"),
	}
	switch n.Type() {
	case "arrow_function":
		f.IsArrow = true
	case "method_definition":
		f.Name = ""
	default:
		if name := n.ChildByFieldName("name"); name != nil {
			f.Name = c.text(name)
		}
	}

	if param := n.ChildByFieldName("parameter"); param != nil {
		f.Args = []ast.Arg{{Binding: c.binding(param)}}
	} else if params := n.ChildByFieldName("parameters"); params != nil {
		f.Args = c.params(params)
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return f
	}
	f.Body.Loc = loc(body)
	if body.Type() == "statement_block" {
		f.Body.Stmts = c.stmtList(body)
	} else {
		f.ExprBody = true
		value := c.expr(body)
		f.Body.Stmts = []ast.Stmt{{Loc: value.Loc, Data: &ast.SReturn{Value: value}}}
	}
	return f
}

func (c *converter) params(n *sitter.Node) []ast.Arg {
	var args []ast.Arg
	for _, p := range named(n) {
		args = append(args, c.param(p))
	}
	return args
}

func (c *converter) param(n *sitter.Node) ast.Arg {
	switch n.Type() {
	case "required_parameter", "optional_parameter":
		pattern := n.ChildByFieldName("pattern")
		arg := c.param(pattern)
		if v := n.ChildByFieldName("value"); v != nil {
			arg.Default = c.expr(v)
		}
		if t := n.ChildByFieldName("type"); t != nil {
			arg.TypeName = c.typeName(t)
		}
		return arg
	case "assignment_pattern":
		arg := c.param(n.ChildByFieldName("left"))
		arg.Default = c.expr(n.ChildByFieldName("right"))
		return arg
	case "rest_pattern":
		return ast.Arg{Binding: c.binding(firstNamed(n)), Rest: true}
	}
	return ast.Arg{Binding: c.binding(n)}
}

// typeName extracts the referenced name of a parameter annotation:
// `: Props` and `: Readonly<Props>` both give "Props".
func (c *converter) typeName(n *sitter.Node) string {
	switch n.Type() {
	case "type_annotation":
		if inner := firstNamed(n); inner != nil {
			return c.typeName(inner)
		}
	case "type_identifier":
		return c.text(n)
	case "generic_type":
		if args := n.ChildByFieldName("type_arguments"); args != nil {
			if inner := firstNamed(args); inner != nil {
				if name := c.typeName(inner); name != "" {
					return name
				}
			}
		}
		if name := n.ChildByFieldName("name"); name != nil {
			return c.text(name)
		}
	}
	return ""
}

func (c *converter) binding(n *sitter.Node) ast.Binding {
	if n == nil {
		return ast.Binding{}
	}
	l := loc(n)
	switch n.Type() {
	case "identifier", "shorthand_property_identifier_pattern", "undefined":
		return ast.Binding{Loc: l, Data: &ast.BIdentifier{Name: c.text(n)}}

	case "object_pattern":
		obj := &ast.BObject{}
		for _, member := range named(n) {
			switch member.Type() {
			case "shorthand_property_identifier_pattern":
				name := c.text(member)
				obj.Properties = append(obj.Properties, ast.PropertyBinding{
					Key:   ast.Expr{Loc: loc(member), Data: &ast.EString{Value: name}},
					Value: ast.Binding{Loc: loc(member), Data: &ast.BIdentifier{Name: name}},
				})
			case "object_assignment_pattern":
				left := member.ChildByFieldName("left")
				pb := ast.PropertyBinding{
					Value:   c.binding(left),
					Default: c.expr(member.ChildByFieldName("right")),
				}
				if name, ok := ast.BindingName(pb.Value); ok {
					pb.Key = ast.Expr{Loc: loc(left), Data: &ast.EString{Value: name}}
				}
				obj.Properties = append(obj.Properties, pb)
			case "pair_pattern":
				pb := ast.PropertyBinding{}
				pb.Key, pb.Computed = c.propertyKey(member.ChildByFieldName("key"))
				value := member.ChildByFieldName("value")
				if value != nil && value.Type() == "assignment_pattern" {
					pb.Value = c.binding(value.ChildByFieldName("left"))
					pb.Default = c.expr(value.ChildByFieldName("right"))
				} else {
					pb.Value = c.binding(value)
				}
				obj.Properties = append(obj.Properties, pb)
			case "rest_pattern":
				obj.Properties = append(obj.Properties, ast.PropertyBinding{
					Value:    c.binding(firstNamed(member)),
					IsSpread: true,
				})
			}
		}
		return ast.Binding{Loc: l, Data: obj}

	case "array_pattern":
		arr := &ast.BArray{}
		expectItem := true
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if child == nil || isComment(child) {
				continue
			}
			switch {
			case child.Type() == ",":
				if expectItem {
					arr.Items = append(arr.Items, ast.ArrayBinding{Binding: ast.Binding{Data: &ast.BMissing{}}})
				}
				expectItem = true
			case !child.IsNamed():
			case child.Type() == "assignment_pattern":
				arr.Items = append(arr.Items, ast.ArrayBinding{
					Binding: c.binding(child.ChildByFieldName("left")),
					Default: c.expr(child.ChildByFieldName("right")),
				})
				expectItem = false
			case child.Type() == "rest_pattern":
				arr.Items = append(arr.Items, ast.ArrayBinding{Binding: c.binding(firstNamed(child))})
				arr.HasSpread = true
				expectItem = false
			default:
				arr.Items = append(arr.Items, ast.ArrayBinding{Binding: c.binding(child)})
				expectItem = false
			}
		}
		return ast.Binding{Loc: l, Data: arr}

	case "assignment_pattern":
		// Only reachable for defaults nested in unusual positions; keep the target.
		return c.binding(n.ChildByFieldName("left"))

	case "required_parameter", "optional_parameter":
		return c.binding(n.ChildByFieldName("pattern"))
	}
	c.logger.Debug("unsupported binding pattern", "path", c.path, "type", n.Type(), "line", l.Line)
	return ast.Binding{Loc: l, Data: &ast.BIdentifier{Name: c.text(n)}}
}
