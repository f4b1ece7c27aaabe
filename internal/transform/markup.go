package transform

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/wisp/internal/ast"
)

// lowerMarkup rewrites every element-construction call in the component
// into a Markup Array. Calls are lowered leaf first, so by the time a parent
// is lowered its children are already Markup Arrays. Lowering output
// contains no factory calls, which makes the pass idempotent.
func (c *component) lowerMarkup() {
	v := &ast.Visitor{
		LeaveExpr: func(e *ast.Expr) {
			if call, ok := c.elementCall(*e); ok {
				*e = c.lowerElement(e.Loc, call)
			}
		},
	}
	for i := range c.fn.Args {
		v.Expr(&c.fn.Args[i].Default)
	}
	v.Stmts(c.fn.Body.Stmts)
}

// elementCall matches factory(tag, props[, key, ...]).
func (c *component) elementCall(e ast.Expr) (*ast.ECall, bool) {
	call, ok := e.Data.(*ast.ECall)
	if !ok || len(call.Args) < 2 {
		return nil, false
	}
	name, ok := ast.IdentName(call.Target)
	if !ok || !c.s.factories.Has(name) {
		return nil, false
	}
	return call, true
}

func (c *component) lowerElement(loc ast.Loc, call *ast.ECall) ast.Expr {
	tag := c.lowerTag(call.Args[0])

	var attrs *ast.EObject
	var children ast.Expr
	var spread ast.Expr
	switch props := call.Args[1].Data.(type) {
	case *ast.EObject:
		attrs, children = c.lowerAttributes(props)
	case *ast.ENull, *ast.EUndefined:
		attrs = &ast.EObject{}
	default:
		c.rep.warnf(CodeSpreadProps, call.Args[1].Loc,
			"attributes passed as a whole object may lose reactivity")
		spread = call.Args[1]
		attrs = &ast.EObject{}
	}

	if len(call.Args) > 2 && !isUndefined(call.Args[2]) {
		attrs.Properties = append(attrs.Properties, ast.Property{
			Key:   ast.Str("key"),
			Value: call.Args[2],
		})
	}

	attrExpr := ast.Expr{Loc: call.Args[1].Loc, Data: attrs}
	if !spread.IsMissing() {
		attrs.Properties = append([]ast.Property{{Kind: ast.PropertySpread, Value: spread}}, attrs.Properties...)
	}

	out := ast.Markup(tag, attrExpr, c.lowerChildren(children))
	out.Loc = loc
	return out
}

// lowerTag keeps intrinsic tags, turns the fragment marker into null and
// rejects references to other components unless they are exempt.
func (c *component) lowerTag(tag ast.Expr) ast.Expr {
	switch d := tag.Data.(type) {
	case *ast.EString, *ast.ENull:
		return tag
	case *ast.EIdentifier:
		if c.s.fragments.Has(d.Name) {
			return ast.Expr{Loc: tag.Loc, Data: &ast.ENull{}}
		}
	}

	name, root, ok := tagName(tag)
	if !ok {
		return tag
	}

	if c.reads.names.Has(name) || c.reads.isRead(tag, nil) {
		c.rep.warnf(CodePropTag, tag.Loc,
			"prop %q is used as a tag name; the element will not update when it changes", name)
		return tag
	}
	if c.tagAllowed(name, root) {
		return tag
	}

	c.rep.report(SeverityError, CodeComponentTag, tag.Loc,
		"component "+name+" cannot be used as a tag inside another component",
		"compose components through their custom element tag names instead")
	return ast.Expr{Loc: tag.Loc, Data: &ast.ENull{}}
}

func (c *component) tagAllowed(name, root string) bool {
	for _, pattern := range c.s.cfg.Markup.AllowedComponentTags {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	for _, marker := range c.s.cfg.Markup.NativePaths {
		if marker != "" && strings.Contains(c.path, marker) {
			return true
		}
	}
	if c.s.resolver != nil {
		if source, ok := c.s.imports[root]; ok && c.s.resolver.IsNative(c.path, source, name) {
			return true
		}
	}
	return false
}

// tagName returns the dotted name of an identifier or member tag and its
// root identifier.
func tagName(e ast.Expr) (name, root string, ok bool) {
	switch d := e.Data.(type) {
	case *ast.EIdentifier:
		return d.Name, d.Name, true
	case *ast.EDot:
		inner, root, ok := tagName(d.Target)
		if !ok {
			return "", "", false
		}
		return inner + "." + d.Name, root, true
	}
	return "", "", false
}

// lowerAttributes copies the attribute object, hoisting children out of it.
func (c *component) lowerAttributes(props *ast.EObject) (*ast.EObject, ast.Expr) {
	attrs := &ast.EObject{}
	var children ast.Expr
	for _, prop := range props.Properties {
		if prop.Kind == ast.PropertySpread {
			c.rep.warnf(CodeSpreadProps, prop.Value.Loc,
				"spread attributes may lose reactivity")
			attrs.Properties = append(attrs.Properties, prop)
			continue
		}
		name, static := prop.KeyName()
		switch {
		case static && name == "children":
			children = prop.Value
			continue
		case static && c.s.booleans.Has(name):
			prop.Value = c.booleanAttribute(prop.Value)
		case static && c.isEventName(name):
			if call, ok := prop.Value.Data.(*ast.ECall); ok {
				prop.Value = c.deferHandler(prop.Value, call)
			}
		case prop.Kind == ast.PropertyNormal && c.hasSignal(prop.Value):
			prop.Value = ast.Thunk(prop.Value)
		}
		prop.Shorthand = false
		attrs.Properties = append(attrs.Properties, prop)
	}
	return attrs, children
}

// booleanAttribute selects between the on and off sentinels.
func (c *component) booleanAttribute(v ast.Expr) ast.Expr {
	if truthy, known := literalTruthiness(v); known {
		return c.sentinel(truthy, v.Loc)
	}
	sel := ast.Expr{Loc: v.Loc, Data: &ast.EIf{
		Test: v,
		Yes:  c.sentinel(true, v.Loc),
		No:   c.sentinel(false, v.Loc),
	}}
	if c.hasSignal(v) {
		return ast.Thunk(sel)
	}
	return sel
}

func (c *component) sentinel(on bool, loc ast.Loc) ast.Expr {
	name := c.s.cfg.Runtime.Off
	if on {
		name = c.s.cfg.Runtime.On
		c.usage.on = true
	} else {
		c.usage.off = true
	}
	return ast.Expr{Loc: loc, Data: &ast.EIdentifier{Name: name}}
}

// deferHandler turns a pre-invoked handler into one that runs at event
// time: onClick: select(id) becomes onClick: (event) => select(id)(event).
func (c *component) deferHandler(v ast.Expr, call *ast.ECall) ast.Expr {
	param := c.eventParam()
	invoke := ast.Call(ast.Expr{Loc: v.Loc, Data: call}, ast.Ident(param))
	return ast.Arrow(invoke, param)
}

func (c *component) eventParam() string {
	if c.event == "" {
		c.event = c.names.Fresh("event")
	}
	return c.event
}

// isEventName reports whether an attribute or identifier name follows the
// event handler convention, such as onClick.
func (c *component) isEventName(name string) bool {
	prefix := c.s.cfg.Markup.EventPrefix
	if prefix == "" || len(name) <= len(prefix) || !strings.HasPrefix(name, prefix) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(name[len(prefix):])
	return unicode.IsUpper(r) || unicode.IsLower(r) && strings.ToLower(name) == name
}

// lowerChildren normalizes the hoisted children value into the third
// Markup Array slot.
func (c *component) lowerChildren(children ast.Expr) ast.Expr {
	if children.IsMissing() {
		return ast.Str("")
	}
	arr, ok := children.Data.(*ast.EArray)
	if !ok || arr.IsMarkup {
		switch {
		case ast.IsMarkup(children), ast.IsLiteral(children):
			return children
		case c.hasSignal(children):
			return ast.Thunk(children)
		}
		return children
	}
	if len(arr.Items) == 0 {
		return ast.Str("")
	}
	items := make([]ast.Expr, len(arr.Items))
	for i, item := range arr.Items {
		switch {
		case ast.IsMarkup(item), ast.IsLiteral(item):
			items[i] = item
		default:
			wrapped := ast.Fragment(ast.Thunk(item))
			wrapped.Loc = item.Loc
			items[i] = wrapped
		}
	}
	return ast.Expr{Loc: children.Loc, Data: &ast.EArray{Items: items}}
}

// hasSignal reports whether evaluating e reads a reactive value: an
// accessor read, a declared prop, or a call to anything that is not an
// element factory. Nested functions are not scanned, and neither are
// non-computed object keys.
func (c *component) hasSignal(e ast.Expr) bool {
	found := false
	ast.InspectExpr(e, func(n ast.Expr) bool {
		if found {
			return false
		}
		switch d := n.Data.(type) {
		case *ast.EFunction:
			return false
		case *ast.EArray:
			if d.IsMarkup {
				return false
			}
		case *ast.EDot:
			if isAccessorRead(d) || c.reads.isRead(n, nil) {
				found = true
				return false
			}
		case *ast.EIdentifier:
			if c.reads.isRead(n, nil) {
				found = true
				return false
			}
		case *ast.ECall:
			if _, ok := c.elementCall(n); !ok {
				found = true
				return false
			}
		case *ast.ETemplate:
			if !d.Tag.IsMissing() {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// isAccessorRead matches x.value and a.b.value.
func isAccessorRead(d *ast.EDot) bool {
	if d.Name != "value" {
		return false
	}
	switch d.Target.Data.(type) {
	case *ast.EIdentifier, *ast.EDot:
		return true
	}
	return false
}

// literalTruthiness evaluates the truthiness of a literal.
func literalTruthiness(e ast.Expr) (truthy, known bool) {
	switch d := e.Data.(type) {
	case *ast.EBoolean:
		return d.Value, true
	case *ast.EString:
		return d.Value != "", true
	case *ast.ENumber:
		return d.Value != 0 && d.Value == d.Value, true
	case *ast.ENull, *ast.EUndefined:
		return false, true
	}
	return false, false
}

func isUndefined(e ast.Expr) bool {
	switch d := e.Data.(type) {
	case *ast.EUndefined:
		return true
	case *ast.EIdentifier:
		return d.Name == "undefined"
	}
	return false
}
