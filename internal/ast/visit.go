package ast

// Visitor walks a tree in deterministic source order: left to right, outer
// before inner. Enter hooks run pre-order and may return false to skip the
// node's children; Leave hooks run post-order. Nil hooks are skipped.
//
// Hooks receive pointers into the tree and may replace the node in place.
// When EnterExpr replaces *e it should return false: the walker would
// otherwise descend into the replacement, which usually contains the
// original node again.
//
// Non-computed object keys and binding names are never visited as
// expressions.
type Visitor struct {
	EnterExpr func(e *Expr) bool
	LeaveExpr func(e *Expr)
	EnterStmt func(s *Stmt) bool
	LeaveStmt func(s *Stmt)
	EnterFn   func(fn *Fn) bool
	LeaveFn   func(fn *Fn)
}

// Program walks every top-level statement.
func (v *Visitor) Program(p *Program) {
	v.Stmts(p.Stmts)
}

// Stmts walks a statement list.
func (v *Visitor) Stmts(stmts []Stmt) {
	for i := range stmts {
		v.Stmt(&stmts[i])
	}
}

// Exprs walks an expression list.
func (v *Visitor) Exprs(exprs []Expr) {
	for i := range exprs {
		v.Expr(&exprs[i])
	}
}

// Fn walks a function's parameters and body.
func (v *Visitor) Fn(fn *Fn) {
	if fn == nil {
		return
	}
	if v.EnterFn != nil && !v.EnterFn(fn) {
		return
	}
	for i := range fn.Args {
		v.Binding(&fn.Args[i].Binding)
		v.Expr(&fn.Args[i].Default)
	}
	v.Stmts(fn.Body.Stmts)
	if v.LeaveFn != nil {
		v.LeaveFn(fn)
	}
}

// Binding walks the expressions embedded in a pattern: defaults and computed
// keys.
func (v *Visitor) Binding(b *Binding) {
	switch d := b.Data.(type) {
	case *BArray:
		for i := range d.Items {
			v.Binding(&d.Items[i].Binding)
			v.Expr(&d.Items[i].Default)
		}
	case *BObject:
		for i := range d.Properties {
			p := &d.Properties[i]
			if p.Computed {
				v.Expr(&p.Key)
			}
			v.Binding(&p.Value)
			v.Expr(&p.Default)
		}
	}
}

// Expr walks one expression.
func (v *Visitor) Expr(e *Expr) {
	if e.Data == nil {
		return
	}
	if v.EnterExpr != nil && !v.EnterExpr(e) {
		return
	}
	switch d := e.Data.(type) {
	case *EArray:
		v.Exprs(d.Items)
	case *EObject:
		for i := range d.Properties {
			p := &d.Properties[i]
			if p.Computed {
				v.Expr(&p.Key)
			}
			v.Expr(&p.Value)
		}
	case *ESpread:
		v.Expr(&d.Value)
	case *ETemplate:
		v.Expr(&d.Tag)
		for i := range d.Parts {
			v.Expr(&d.Parts[i].Value)
		}
	case *EDot:
		v.Expr(&d.Target)
	case *EIndex:
		v.Expr(&d.Target)
		v.Expr(&d.Index)
	case *ECall:
		v.Expr(&d.Target)
		v.Exprs(d.Args)
	case *ENew:
		v.Expr(&d.Target)
		v.Exprs(d.Args)
	case *EUnary:
		v.Expr(&d.Value)
	case *EBinary:
		v.Expr(&d.Left)
		v.Expr(&d.Right)
	case *EIf:
		v.Expr(&d.Test)
		v.Expr(&d.Yes)
		v.Expr(&d.No)
	case *EFunction:
		v.Fn(d.Fn)
	case *EAwait:
		v.Expr(&d.Value)
	case *EYield:
		v.Expr(&d.Value)
	}
	if v.LeaveExpr != nil {
		v.LeaveExpr(e)
	}
}

// Stmt walks one statement.
func (v *Visitor) Stmt(s *Stmt) {
	if s.Data == nil {
		return
	}
	if v.EnterStmt != nil && !v.EnterStmt(s) {
		return
	}
	switch d := s.Data.(type) {
	case *SBlock:
		v.Stmts(d.Stmts)
	case *SExpr:
		v.Expr(&d.Value)
	case *SLocal:
		for i := range d.Decls {
			v.Binding(&d.Decls[i].Binding)
			v.Expr(&d.Decls[i].Value)
		}
	case *SFunction:
		v.Fn(d.Fn)
	case *SReturn:
		v.Expr(&d.Value)
	case *SIf:
		v.Expr(&d.Test)
		v.Stmt(&d.Yes)
		v.Stmt(&d.No)
	case *SSwitch:
		v.Expr(&d.Test)
		for i := range d.Cases {
			v.Expr(&d.Cases[i].Value)
			v.Stmts(d.Cases[i].Body)
		}
	case *SFor:
		v.Stmt(&d.Init)
		v.Expr(&d.Test)
		v.Expr(&d.Update)
		v.Stmt(&d.Body)
	case *SForIn:
		v.Stmt(&d.Init)
		v.Expr(&d.Value)
		v.Stmt(&d.Body)
	case *SForOf:
		v.Stmt(&d.Init)
		v.Expr(&d.Value)
		v.Stmt(&d.Body)
	case *SWhile:
		v.Expr(&d.Test)
		v.Stmt(&d.Body)
	case *SDoWhile:
		v.Stmt(&d.Body)
		v.Expr(&d.Test)
	case *STry:
		v.Stmts(d.Block)
		if d.Catch != nil {
			v.Binding(&d.Catch.Binding)
			v.Stmts(d.Catch.Body)
		}
		v.Stmts(d.Finally)
	case *SThrow:
		v.Expr(&d.Value)
	case *SExportDefault:
		v.Stmt(&d.Value)
	}
	if v.LeaveStmt != nil {
		v.LeaveStmt(s)
	}
}

// Inspect calls f for every expression under stmts in pre-order. Returning
// false skips the expression's children.
func Inspect(stmts []Stmt, f func(e Expr) bool) {
	v := &Visitor{EnterExpr: func(e *Expr) bool { return f(*e) }}
	v.Stmts(stmts)
}

// InspectExpr is Inspect for a single expression.
func InspectExpr(e Expr, f func(e Expr) bool) {
	v := &Visitor{EnterExpr: func(e *Expr) bool { return f(*e) }}
	v.Expr(&e)
}
