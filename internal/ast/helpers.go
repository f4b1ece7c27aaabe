package ast

import "unicode"

// Ident builds an identifier read.
func Ident(name string) Expr {
	return Expr{Data: &EIdentifier{Name: name}}
}

// Str builds a string literal.
func Str(value string) Expr {
	return Expr{Data: &EString{Value: value}}
}

// Null builds the null literal.
func Null() Expr {
	return Expr{Data: &ENull{}}
}

// Dot builds target.name.
func Dot(target Expr, name string) Expr {
	return Expr{Loc: target.Loc, Data: &EDot{Target: target, Name: name}}
}

// Call builds target(args...).
func Call(target Expr, args ...Expr) Expr {
	return Expr{Loc: target.Loc, Data: &ECall{Target: target, Args: args}}
}

// Thunk wraps body in a zero-argument arrow function.
func Thunk(body Expr) Expr {
	return Arrow(body)
}

// Arrow builds an expression-bodied arrow function with identifier params.
func Arrow(body Expr, params ...string) Expr {
	fn := &Fn{
		IsArrow:  true,
		ExprBody: true,
		Body:     FnBody{Stmts: []Stmt{{Data: &SReturn{Value: body}}}},
	}
	for _, p := range params {
		fn.Args = append(fn.Args, Arg{Binding: Binding{Data: &BIdentifier{Name: p}}})
	}
	return Expr{Loc: body.Loc, Data: &EFunction{Fn: fn}}
}

// Markup builds a [tag, attributes, children] Markup Array.
func Markup(tag, attrs, children Expr) Expr {
	return Expr{Data: &EArray{Items: []Expr{tag, attrs, children}, IsMarkup: true}}
}

// Fragment builds [null, {}, children].
func Fragment(children Expr) Expr {
	return Markup(Null(), Expr{Data: &EObject{}}, children)
}

// IsMarkup reports whether e is a lowered Markup Array.
func IsMarkup(e Expr) bool {
	arr, ok := e.Data.(*EArray)
	return ok && arr.IsMarkup
}

// IsLiteral reports whether e is a primitive literal.
func IsLiteral(e Expr) bool {
	switch d := e.Data.(type) {
	case *EString, *ENumber, *EBoolean, *ENull, *EUndefined:
		return true
	case *ETemplate:
		return d.Tag.IsMissing() && len(d.Parts) == 0
	}
	return false
}

// IdentName returns the name of an identifier expression.
func IdentName(e Expr) (string, bool) {
	if id, ok := e.Data.(*EIdentifier); ok {
		return id.Name, true
	}
	return "", false
}

// BindingName returns the name of an identifier binding.
func BindingName(b Binding) (string, bool) {
	if id, ok := b.Data.(*BIdentifier); ok {
		return id.Name, true
	}
	return "", false
}

// FunctionOf returns the function carried by an expression, if any.
func FunctionOf(e Expr) (*Fn, bool) {
	if f, ok := e.Data.(*EFunction); ok {
		return f.Fn, true
	}
	return nil, false
}

// IsValidIdentifier reports whether s can be printed as a bare identifier.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '$' || r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

// BoundNames appends every name a binding declares, in source order.
func BoundNames(b Binding, out []string) []string {
	switch d := b.Data.(type) {
	case *BIdentifier:
		out = append(out, d.Name)
	case *BArray:
		for _, item := range d.Items {
			out = BoundNames(item.Binding, out)
		}
	case *BObject:
		for _, p := range d.Properties {
			out = BoundNames(p.Value, out)
		}
	}
	return out
}
