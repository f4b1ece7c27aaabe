package transform

import "github.com/roach88/wisp/internal/ast"

// unifyReturns leaves the component with exactly one return whose value is
// a Markup Array.
func (c *component) unifyReturns() {
	body := c.fn.Body.Stmts
	first := -1
	for i := range body {
		if returns(body[i]) {
			first = i
			break
		}
	}
	if first < 0 {
		c.rep.report(SeverityError, CodeMissingReturn, c.fn.Body.Loc,
			"component "+c.displayName()+" has no return statement",
			"a component must return the markup it renders")
		return
	}

	tail := body[first:]
	value, ok := mergeReturns(tail)
	if !ok {
		// Returns we cannot fold into one expression run inside a
		// block-bodied thunk, re-evaluated as a whole.
		thunk := &ast.Fn{IsArrow: true, Body: ast.FnBody{Stmts: tail}}
		value = ast.Fragment(ast.Expr{Loc: tail[0].Loc, Data: &ast.EFunction{Fn: thunk}})
		c.fn.Body.Stmts = append(body[:first:first], ast.Stmt{Loc: tail[0].Loc, Data: &ast.SReturn{Value: value}})
		return
	}

	c.fn.Body.Stmts = append(body[:first:first], ast.Stmt{Loc: tail[0].Loc, Data: &ast.SReturn{Value: c.shapeReturn(value)}})
}

// shapeReturn wraps a unified return value into a Markup Array.
func (c *component) shapeReturn(v ast.Expr) ast.Expr {
	if v.IsMissing() {
		return ast.Fragment(ast.Str(""))
	}
	if ast.IsMarkup(v) {
		return v
	}
	if isConcatenation(v) || ast.IsLiteral(v) {
		if c.hasSignal(v) {
			return ast.Fragment(ast.Thunk(v))
		}
		return ast.Fragment(v)
	}
	switch d := v.Data.(type) {
	case *ast.EIf, *ast.EDot, *ast.EIdentifier, *ast.ECall, *ast.EIndex:
		return ast.Fragment(ast.Thunk(v))
	case *ast.EBinary:
		switch d.Op {
		case "&&", "||", "??":
			return ast.Fragment(ast.Thunk(v))
		}
	}
	if c.hasSignal(v) {
		return ast.Fragment(ast.Thunk(v))
	}
	return ast.Fragment(v)
}

// isConcatenation matches string concatenation and untagged templates.
func isConcatenation(v ast.Expr) bool {
	switch d := v.Data.(type) {
	case *ast.EBinary:
		return d.Op == "+"
	case *ast.ETemplate:
		return d.Tag.IsMissing()
	}
	return false
}

// mergeReturns folds a statement list that ends every path in a return into
// one conditional expression. A path that falls off the end yields null. It
// reports false when some path does work other than returning.
//
//	if (a) return x; else return y;   =>  a ? x : y
//	if (a) return x; return y;        =>  a ? x : y
//	switch (k) { case 1: return x; default: return y }  =>  k === 1 ? x : y
func mergeReturns(stmts []ast.Stmt) (ast.Expr, bool) {
	stmts = withoutEmpty(stmts)
	if len(stmts) == 0 {
		return ast.Expr{}, true
	}
	head, rest := stmts[0], stmts[1:]

	switch d := head.Data.(type) {
	case *ast.SReturn:
		return d.Value, true
	case *ast.SBlock:
		return mergeReturns(concat(d.Stmts, rest))
	case *ast.SIf:
		// A branch that falls off continues with the statements after the
		// if, so each arm gets its own copy of them.
		yes, ok := mergeReturns(concat(branch(d.Yes), ast.CloneStmts(rest)))
		if !ok {
			return ast.Expr{}, false
		}
		var no ast.Expr
		if d.No.Data != nil {
			no, ok = mergeReturns(concat(branch(d.No), rest))
		} else {
			no, ok = mergeReturns(rest)
		}
		if !ok {
			return ast.Expr{}, false
		}
		return conditional(d.Test, yes, no), true
	case *ast.SSwitch:
		return mergeSwitch(d, rest)
	}
	return ast.Expr{}, false
}

func mergeSwitch(sw *ast.SSwitch, rest []ast.Stmt) (ast.Expr, bool) {
	type arm struct {
		tests []ast.Expr
		value ast.Expr
	}
	var arms []arm
	var fallback ast.Expr
	hasDefault := false
	var pending []ast.Expr
	pendingDefault := false

	for _, cs := range sw.Cases {
		if cs.Value.IsMissing() {
			pendingDefault = true
		} else {
			pending = append(pending, cs.Value)
		}
		body := withoutEmpty(cs.Body)
		if len(body) == 0 {
			continue
		}
		if !alwaysReturns(body) {
			return ast.Expr{}, false
		}
		value, ok := mergeReturns(body)
		if !ok {
			return ast.Expr{}, false
		}
		if pendingDefault {
			fallback, hasDefault = value, true
		} else {
			arms = append(arms, arm{tests: pending, value: value})
		}
		pending, pendingDefault = nil, false
	}
	if len(pending) > 0 || pendingDefault {
		// Trailing empty cases fall out of the switch.
		return ast.Expr{}, false
	}
	if !hasDefault {
		var ok bool
		if fallback, ok = mergeReturns(rest); !ok {
			return ast.Expr{}, false
		}
	}

	out := fallback
	for i := len(arms) - 1; i >= 0; i-- {
		var test ast.Expr
		for _, v := range arms[i].tests {
			eq := ast.Expr{Loc: v.Loc, Data: &ast.EBinary{Op: "===", Left: ast.CloneExpr(sw.Test), Right: v}}
			if test.IsMissing() {
				test = eq
				continue
			}
			test = ast.Expr{Loc: v.Loc, Data: &ast.EBinary{Op: "||", Left: test, Right: eq}}
		}
		out = conditional(test, arms[i].value, out)
	}
	return out, true
}

func conditional(test, yes, no ast.Expr) ast.Expr {
	if no.IsMissing() {
		no = ast.Null()
	}
	if yes.IsMissing() {
		yes = ast.Null()
	}
	return ast.Expr{Loc: test.Loc, Data: &ast.EIf{Test: test, Yes: yes, No: no}}
}

// alwaysReturns reports whether every path through stmts ends in a return.
func alwaysReturns(stmts []ast.Stmt) bool {
	stmts = withoutEmpty(stmts)
	if len(stmts) == 0 {
		return false
	}
	switch d := stmts[len(stmts)-1].Data.(type) {
	case *ast.SReturn:
		return true
	case *ast.SBlock:
		return alwaysReturns(d.Stmts)
	case *ast.SIf:
		return d.No.Data != nil && alwaysReturns(branch(d.Yes)) && alwaysReturns(branch(d.No))
	}
	return false
}

func concat(a, b []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func branch(s ast.Stmt) []ast.Stmt {
	if b, ok := s.Data.(*ast.SBlock); ok {
		return b.Stmts
	}
	return []ast.Stmt{s}
}

func withoutEmpty(stmts []ast.Stmt) []ast.Stmt {
	out := stmts[:0:0]
	for _, s := range stmts {
		if _, ok := s.Data.(*ast.SEmpty); ok || s.Data == nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

// returns reports whether s contains a return that exits the enclosing
// function. Nested functions are not searched.
func returns(s ast.Stmt) bool {
	found := false
	v := &ast.Visitor{
		EnterStmt: func(s *ast.Stmt) bool {
			if _, ok := s.Data.(*ast.SReturn); ok {
				found = true
			}
			return !found
		},
		EnterExpr: func(*ast.Expr) bool { return false },
		EnterFn:   func(*ast.Fn) bool { return false },
	}
	v.Stmt(&s)
	return found
}
