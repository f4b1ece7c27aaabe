package transform

import (
	"path/filepath"
	"strings"

	"github.com/roach88/wisp/internal/ast"
)

// assemble registers the component with the runtime: the default export
// becomes register(Component, [props...]) and the runtime import is added.
// It returns the component's binding name, which is synthesized for
// anonymous components.
func (t *fileTransform) assemble(loc *Located, props []string) string {
	name := loc.Name
	register := t.registerCall(&name, loc, props)
	exportStmt := ast.Stmt{Data: &ast.SExportDefault{Value: ast.Stmt{Data: &ast.SExpr{Value: register}}}}

	stmts := t.prog.Stmts
	switch loc.Shape {
	case ExportInline:
		decl := declareComponent(loc.Fn, name)
		decl.Loc = stmts[loc.ExportIndex].Loc
		stmts = splice(stmts, loc.ExportIndex, 1, decl, exportStmt)
	case ExportIdentifier:
		exportStmt.Loc = stmts[loc.ExportIndex].Loc
		stmts[loc.ExportIndex] = exportStmt
	case ExportClause:
		clause := stmts[loc.ExportIndex].Data.(*ast.SExportClause)
		kept := clause.Items[:0:0]
		for _, item := range clause.Items {
			if item.Alias != "default" {
				kept = append(kept, item)
			}
		}
		exportStmt.Loc = stmts[loc.ExportIndex].Loc
		if len(kept) == 0 {
			stmts[loc.ExportIndex] = exportStmt
		} else {
			clause.Items = kept
			stmts = splice(stmts, loc.ExportIndex+1, 0, exportStmt)
		}
	}
	t.prog.Stmts = stmts
	t.addRuntimeImport()
	return name
}

// registerCall builds register(Name, ["a", "b"]), naming an anonymous
// component first.
func (t *fileTransform) registerCall(name *string, loc *Located, props []string) ast.Expr {
	if *name == "" {
		*name = NewNameGen(collectTopLevel(t.prog)).Fresh(nameFromPath(t.prog.Path))
	}
	items := make([]ast.Expr, len(props))
	for i, p := range props {
		items[i] = ast.Str(p)
	}
	return ast.Call(ast.Ident(t.s.cfg.Runtime.Register),
		ast.Ident(*name),
		ast.Expr{Data: &ast.EArray{Items: items}},
	)
}

// declareComponent turns an inline default export into a sibling
// declaration: a function declaration, or a const for arrows.
func declareComponent(fn *ast.Fn, name string) ast.Stmt {
	if fn.IsArrow {
		return ast.Stmt{Data: &ast.SLocal{
			Kind: ast.LocalConst,
			Decls: []ast.Decl{{
				Binding: ast.Binding{Data: &ast.BIdentifier{Name: name}},
				Value:   ast.Expr{Data: &ast.EFunction{Fn: fn}},
			}},
		}}
	}
	fn.Name = name
	return ast.Stmt{Data: &ast.SFunction{Fn: fn}}
}

// addRuntimeImport imports the register function and any sentinels the
// output uses, merging into an existing import of the runtime module.
func (t *fileTransform) addRuntimeImport() {
	rt := t.s.cfg.Runtime
	wanted := []string{rt.Register}
	if t.usage.on {
		wanted = append(wanted, rt.On)
	}
	if t.usage.off {
		wanted = append(wanted, rt.Off)
	}

	for i := range t.prog.Stmts {
		imp, ok := t.prog.Stmts[i].Data.(*ast.SImport)
		if !ok || imp.Path != rt.Module {
			continue
		}
		have := NameSet{}
		for _, item := range imp.Items {
			have.Add(item.Name)
		}
		for _, w := range wanted {
			if !have.Has(w) {
				imp.Items = append(imp.Items, ast.ClauseItem{Name: w})
			}
		}
		return
	}

	imp := &ast.SImport{Path: rt.Module}
	for _, w := range wanted {
		imp.Items = append(imp.Items, ast.ClauseItem{Name: w})
	}
	t.prog.Stmts = splice(t.prog.Stmts, 0, 0, ast.Stmt{Data: imp})
}

// nameFromPath derives a component name from a file name: card-list.jsx
// becomes CardList. It falls back to Component.
func nameFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var b strings.Builder
	upper := true
	for _, r := range base {
		if r == '-' || r == '_' || r == '.' || r == ' ' {
			upper = true
			continue
		}
		if upper {
			b.WriteString(strings.ToUpper(string(r)))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	name := b.String()
	if !ast.IsValidIdentifier(name) || name == "Index" {
		return "Component"
	}
	return name
}

// splice replaces n statements at i with insert.
func splice(stmts []ast.Stmt, i, n int, insert ...ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(stmts)-n+len(insert))
	out = append(out, stmts[:i]...)
	out = append(out, insert...)
	return append(out, stmts[i+n:]...)
}
