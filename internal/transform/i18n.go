package transform

import (
	"strings"

	"github.com/roach88/wisp/internal/ast"
	"github.com/roach88/wisp/internal/printer"
)

// i18nUsage is what translation detection found in one component file.
type i18nUsage struct {
	uses    bool
	keys    NameSet
	dynamic []ast.Expr
}

// detect reports whether fn reaches the translation capability and
// collects the literal keys passed to the translate function.
func (u *i18nUsage) detect(fn *ast.Fn, cfg i18nNames) {
	if fn == nil || len(fn.Args) < 2 {
		return
	}

	// Names through which the body can call translate: the destructured
	// translate function itself, or members of the capability object.
	translators := NameSet{}
	objects := NameSet{}
	switch ctx := fn.Args[1].Binding.Data.(type) {
	case *ast.BIdentifier:
		if readsMember(fn, ctx.Name, cfg.capability) {
			u.uses = true
			objects.Add(ctx.Name + "." + cfg.capability)
		}
	case *ast.BObject:
		for _, p := range ctx.Properties {
			key, ok := p.KeyName()
			if !ok || key != cfg.capability {
				continue
			}
			u.uses = true
			switch b := p.Value.Data.(type) {
			case *ast.BIdentifier:
				objects.Add(b.Name)
			case *ast.BObject:
				for _, inner := range b.Properties {
					if k, ok := inner.KeyName(); ok && k == cfg.translate {
						if local, ok := ast.BindingName(inner.Value); ok {
							translators.Add(local)
						}
					}
				}
			}
		}
	}
	if !u.uses {
		return
	}

	// const { t } = i18n
	v := &ast.Visitor{
		EnterStmt: func(s *ast.Stmt) bool {
			local, ok := s.Data.(*ast.SLocal)
			if !ok {
				return true
			}
			for _, decl := range local.Decls {
				if !objects.Has(exprPath(decl.Value)) {
					continue
				}
				switch b := decl.Binding.Data.(type) {
				case *ast.BObject:
					for _, p := range b.Properties {
						if k, ok := p.KeyName(); ok && k == cfg.translate {
							if name, ok := ast.BindingName(p.Value); ok {
								translators.Add(name)
							}
						}
					}
				case *ast.BIdentifier:
					objects.Add(b.Name)
				}
			}
			return true
		},
	}
	v.Stmts(fn.Body.Stmts)

	ast.Inspect(fn.Body.Stmts, func(e ast.Expr) bool {
		call, ok := e.Data.(*ast.ECall)
		if !ok || len(call.Args) == 0 {
			return true
		}
		isTranslate := false
		switch t := call.Target.Data.(type) {
		case *ast.EIdentifier:
			isTranslate = translators.Has(t.Name)
		case *ast.EDot:
			isTranslate = t.Name == cfg.translate && objects.Has(exprPath(t.Target))
		}
		if !isTranslate {
			return true
		}
		if key, ok := literalKey(call.Args[0]); ok {
			u.keys.Add(key)
		} else {
			u.dynamic = append(u.dynamic, call.Args[0])
		}
		return true
	})
}

// overrides reads `<Component>.<property> = ["a", "b"]` statements. It
// reports whether an override list exists.
func (u *i18nUsage) overrides(p *ast.Program, component, property string) bool {
	found := false
	for _, s := range p.Stmts {
		target, value, ok := memberAssignment(s, component)
		if !ok || target != property {
			continue
		}
		found = true
		if arr, ok := value.Data.(*ast.EArray); ok {
			for _, item := range arr.Items {
				if key, ok := literalKey(item); ok {
					u.keys.Add(key)
				}
			}
		}
	}
	return found
}

// warnDynamic reports translate calls whose keys cannot be extracted.
func (u *i18nUsage) warnDynamic(rep *reporter) {
	if len(u.dynamic) == 0 {
		return
	}
	lines := []string{"translation keys must be string literals to be extracted; found dynamic keys:"}
	for _, e := range u.dynamic {
		lines = append(lines, "  "+strings.TrimSpace(printer.PrintExpr(e)))
	}
	lines = append(lines, "list the keys explicitly with an override list to silence this warning")
	rep.report(SeverityWarning, CodeDynamicI18nKey, u.dynamic[0].Loc, lines...)
}

type i18nNames struct {
	capability string
	translate  string
}

// literalKey returns the value of a string literal or a template literal
// without substitutions.
func literalKey(e ast.Expr) (string, bool) {
	switch d := e.Data.(type) {
	case *ast.EString:
		return d.Value, true
	case *ast.ETemplate:
		if d.Tag.IsMissing() && len(d.Parts) == 0 {
			return d.Head, true
		}
	}
	return "", false
}

// memberAssignment matches a top-level `<object>.<name> = value` statement.
func memberAssignment(s ast.Stmt, object string) (string, ast.Expr, bool) {
	expr, ok := s.Data.(*ast.SExpr)
	if !ok {
		return "", ast.Expr{}, false
	}
	bin, ok := expr.Value.Data.(*ast.EBinary)
	if !ok || bin.Op != "=" {
		return "", ast.Expr{}, false
	}
	dot, ok := bin.Left.Data.(*ast.EDot)
	if !ok {
		return "", ast.Expr{}, false
	}
	if name, ok := ast.IdentName(dot.Target); !ok || name != object {
		return "", ast.Expr{}, false
	}
	return dot.Name, bin.Right, true
}

// readsMember reports whether fn reads obj.name anywhere.
func readsMember(fn *ast.Fn, obj, name string) bool {
	found := false
	ast.Inspect(fn.Body.Stmts, func(e ast.Expr) bool {
		if dot, ok := e.Data.(*ast.EDot); ok && dot.Name == name {
			if n, ok := ast.IdentName(dot.Target); ok && n == obj {
				found = true
			}
		}
		return !found
	})
	return found
}

// exprPath renders an identifier or static member chain as a dotted path.
func exprPath(e ast.Expr) string {
	switch d := e.Data.(type) {
	case *ast.EIdentifier:
		return d.Name
	case *ast.EDot:
		if inner := exprPath(d.Target); inner != "" {
			return inner + "." + d.Name
		}
	}
	return ""
}
