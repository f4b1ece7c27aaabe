package ast

// CloneProgram returns a deep copy of p. No node of the result is shared
// with p, so the copy can be mutated freely.
func CloneProgram(p *Program) *Program {
	if p == nil {
		return nil
	}
	return &Program{Path: p.Path, Stmts: CloneStmts(p.Stmts)}
}

// CloneStmts deep-copies a statement list.
func CloneStmts(stmts []Stmt) []Stmt {
	if stmts == nil {
		return nil
	}
	out := make([]Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = CloneStmt(s)
	}
	return out
}

// CloneExprs deep-copies an expression list.
func CloneExprs(exprs []Expr) []Expr {
	if exprs == nil {
		return nil
	}
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		out[i] = CloneExpr(e)
	}
	return out
}

// CloneFn deep-copies a function.
func CloneFn(fn *Fn) *Fn {
	if fn == nil {
		return nil
	}
	c := *fn
	c.Args = make([]Arg, len(fn.Args))
	for i, a := range fn.Args {
		c.Args[i] = Arg{
			Binding:  CloneBinding(a.Binding),
			Default:  CloneExpr(a.Default),
			Rest:     a.Rest,
			TypeName: a.TypeName,
		}
	}
	c.Body = FnBody{Loc: fn.Body.Loc, Stmts: CloneStmts(fn.Body.Stmts)}
	return &c
}

// CloneBinding deep-copies a binding pattern.
func CloneBinding(b Binding) Binding {
	out := Binding{Loc: b.Loc}
	switch d := b.Data.(type) {
	case nil:
	case *BIdentifier:
		out.Data = &BIdentifier{Name: d.Name}
	case *BMissing:
		out.Data = &BMissing{}
	case *BArray:
		items := make([]ArrayBinding, len(d.Items))
		for i, item := range d.Items {
			items[i] = ArrayBinding{Binding: CloneBinding(item.Binding), Default: CloneExpr(item.Default)}
		}
		out.Data = &BArray{Items: items, HasSpread: d.HasSpread}
	case *BObject:
		props := make([]PropertyBinding, len(d.Properties))
		for i, p := range d.Properties {
			props[i] = PropertyBinding{
				Key:      CloneExpr(p.Key),
				Value:    CloneBinding(p.Value),
				Default:  CloneExpr(p.Default),
				Computed: p.Computed,
				IsSpread: p.IsSpread,
			}
		}
		out.Data = &BObject{Properties: props}
	default:
		panic("ast: unknown binding kind")
	}
	return out
}

// CloneExpr deep-copies an expression.
func CloneExpr(e Expr) Expr {
	out := Expr{Loc: e.Loc}
	switch d := e.Data.(type) {
	case nil:
	case *EArray:
		out.Data = &EArray{Items: CloneExprs(d.Items), IsMarkup: d.IsMarkup}
	case *EObject:
		props := make([]Property, len(d.Properties))
		for i, p := range d.Properties {
			props[i] = Property{
				Kind:      p.Kind,
				Key:       CloneExpr(p.Key),
				Value:     CloneExpr(p.Value),
				Computed:  p.Computed,
				Shorthand: p.Shorthand,
			}
		}
		out.Data = &EObject{Properties: props}
	case *ESpread:
		out.Data = &ESpread{Value: CloneExpr(d.Value)}
	case *EString:
		out.Data = &EString{Value: d.Value}
	case *ETemplate:
		parts := make([]TemplatePart, len(d.Parts))
		for i, p := range d.Parts {
			parts[i] = TemplatePart{Value: CloneExpr(p.Value), Tail: p.Tail}
		}
		out.Data = &ETemplate{Tag: CloneExpr(d.Tag), Head: d.Head, Parts: parts}
	case *ENumber:
		out.Data = &ENumber{Value: d.Value}
	case *EBoolean:
		out.Data = &EBoolean{Value: d.Value}
	case *ENull:
		out.Data = &ENull{}
	case *EUndefined:
		out.Data = &EUndefined{}
	case *EThis:
		out.Data = &EThis{}
	case *ERegExp:
		out.Data = &ERegExp{Value: d.Value}
	case *EIdentifier:
		out.Data = &EIdentifier{Name: d.Name}
	case *EDot:
		out.Data = &EDot{Target: CloneExpr(d.Target), Name: d.Name, Optional: d.Optional}
	case *EIndex:
		out.Data = &EIndex{Target: CloneExpr(d.Target), Index: CloneExpr(d.Index), Optional: d.Optional}
	case *ECall:
		out.Data = &ECall{Target: CloneExpr(d.Target), Args: CloneExprs(d.Args), Optional: d.Optional}
	case *ENew:
		out.Data = &ENew{Target: CloneExpr(d.Target), Args: CloneExprs(d.Args)}
	case *EUnary:
		out.Data = &EUnary{Op: d.Op, Value: CloneExpr(d.Value), Postfix: d.Postfix}
	case *EBinary:
		out.Data = &EBinary{Op: d.Op, Left: CloneExpr(d.Left), Right: CloneExpr(d.Right)}
	case *EIf:
		out.Data = &EIf{Test: CloneExpr(d.Test), Yes: CloneExpr(d.Yes), No: CloneExpr(d.No)}
	case *EFunction:
		out.Data = &EFunction{Fn: CloneFn(d.Fn)}
	case *EAwait:
		out.Data = &EAwait{Value: CloneExpr(d.Value)}
	case *EYield:
		out.Data = &EYield{Value: CloneExpr(d.Value), Delegate: d.Delegate}
	case *ERaw:
		out.Data = &ERaw{Text: d.Text}
	default:
		panic("ast: unknown expression kind")
	}
	return out
}

// CloneStmt deep-copies a statement.
func CloneStmt(s Stmt) Stmt {
	out := Stmt{Loc: s.Loc}
	switch d := s.Data.(type) {
	case nil:
	case *SBlock:
		out.Data = &SBlock{Stmts: CloneStmts(d.Stmts)}
	case *SExpr:
		out.Data = &SExpr{Value: CloneExpr(d.Value)}
	case *SLocal:
		decls := make([]Decl, len(d.Decls))
		for i, decl := range d.Decls {
			decls[i] = Decl{Binding: CloneBinding(decl.Binding), Value: CloneExpr(decl.Value)}
		}
		out.Data = &SLocal{Kind: d.Kind, Decls: decls, IsExport: d.IsExport}
	case *SFunction:
		out.Data = &SFunction{Fn: CloneFn(d.Fn), IsExport: d.IsExport}
	case *SReturn:
		out.Data = &SReturn{Value: CloneExpr(d.Value)}
	case *SIf:
		out.Data = &SIf{Test: CloneExpr(d.Test), Yes: CloneStmt(d.Yes), No: CloneStmt(d.No)}
	case *SSwitch:
		cases := make([]Case, len(d.Cases))
		for i, c := range d.Cases {
			cases[i] = Case{Value: CloneExpr(c.Value), Body: CloneStmts(c.Body)}
		}
		out.Data = &SSwitch{Test: CloneExpr(d.Test), Cases: cases}
	case *SFor:
		out.Data = &SFor{Init: CloneStmt(d.Init), Test: CloneExpr(d.Test), Update: CloneExpr(d.Update), Body: CloneStmt(d.Body)}
	case *SForIn:
		out.Data = &SForIn{Init: CloneStmt(d.Init), Value: CloneExpr(d.Value), Body: CloneStmt(d.Body)}
	case *SForOf:
		out.Data = &SForOf{Init: CloneStmt(d.Init), Value: CloneExpr(d.Value), Body: CloneStmt(d.Body), IsAwait: d.IsAwait}
	case *SWhile:
		out.Data = &SWhile{Test: CloneExpr(d.Test), Body: CloneStmt(d.Body)}
	case *SDoWhile:
		out.Data = &SDoWhile{Body: CloneStmt(d.Body), Test: CloneExpr(d.Test)}
	case *STry:
		t := &STry{Block: CloneStmts(d.Block), Finally: CloneStmts(d.Finally), HasFinally: d.HasFinally}
		if d.Catch != nil {
			t.Catch = &Catch{Binding: CloneBinding(d.Catch.Binding), Body: CloneStmts(d.Catch.Body)}
		}
		out.Data = t
	case *SThrow:
		out.Data = &SThrow{Value: CloneExpr(d.Value)}
	case *SBreak:
		out.Data = &SBreak{Label: d.Label}
	case *SContinue:
		out.Data = &SContinue{Label: d.Label}
	case *SEmpty:
		out.Data = &SEmpty{}
	case *SImport:
		out.Data = &SImport{
			DefaultName:   d.DefaultName,
			NamespaceName: d.NamespaceName,
			Items:         append([]ClauseItem(nil), d.Items...),
			Path:          d.Path,
		}
	case *SExportDefault:
		out.Data = &SExportDefault{Value: CloneStmt(d.Value)}
	case *SExportClause:
		out.Data = &SExportClause{Items: append([]ClauseItem(nil), d.Items...), From: d.From}
	case *STypeShape:
		out.Data = &STypeShape{
			Name:     d.Name,
			Fields:   append([]string(nil), d.Fields...),
			IsExport: d.IsExport,
		}
	case *SRaw:
		out.Data = &SRaw{Text: d.Text}
	default:
		panic("ast: unknown statement kind")
	}
	return out
}
