package transform

import (
	"sort"

	"github.com/roach88/wisp/internal/ast"
)

// NameSet is a set of identifier names.
type NameSet map[string]struct{}

func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s NameSet) Add(names ...string) {
	for _, n := range names {
		if n != "" {
			s[n] = struct{}{}
		}
	}
}

// Sorted returns the names in lexical order.
func (s NameSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// CollectScope returns every name bound anywhere in fn: its parameters,
// var/let/const declarations, function declarations and named function
// expressions, destructured fields, catch parameters and the parameters of
// nested functions.
func CollectScope(fn *ast.Fn) NameSet {
	names := NameSet{}
	if fn == nil {
		return names
	}
	v := &ast.Visitor{
		EnterFn: func(f *ast.Fn) bool {
			names.Add(f.Name)
			for _, a := range f.Args {
				names.Add(ast.BoundNames(a.Binding, nil)...)
			}
			return true
		},
		EnterStmt: func(s *ast.Stmt) bool {
			switch d := s.Data.(type) {
			case *ast.SLocal:
				for _, decl := range d.Decls {
					names.Add(ast.BoundNames(decl.Binding, nil)...)
				}
			case *ast.STry:
				if d.Catch != nil {
					names.Add(ast.BoundNames(d.Catch.Binding, nil)...)
				}
			}
			return true
		},
	}
	v.Fn(fn)
	return names
}

// collectTopLevel returns the names a module declares at its top level,
// including imports.
func collectTopLevel(p *ast.Program) NameSet {
	names := NameSet{}
	for _, s := range p.Stmts {
		switch d := s.Data.(type) {
		case *ast.SImport:
			names.Add(d.DefaultName, d.NamespaceName)
			for _, item := range d.Items {
				names.Add(item.LocalName())
			}
		case *ast.SLocal:
			for _, decl := range d.Decls {
				names.Add(ast.BoundNames(decl.Binding, nil)...)
			}
		case *ast.SFunction:
			names.Add(d.Fn.Name)
		case *ast.SExportDefault:
			if f, ok := d.Value.Data.(*ast.SFunction); ok {
				names.Add(f.Fn.Name)
			}
		case *ast.STypeShape:
			names.Add(d.Name)
		}
	}
	return names
}

// declaredIn returns the names a statement list declares directly, without
// descending into nested blocks or functions. var declarations are included.
func declaredIn(stmts []ast.Stmt) NameSet {
	names := NameSet{}
	for _, s := range stmts {
		switch d := s.Data.(type) {
		case *ast.SLocal:
			for _, decl := range d.Decls {
				names.Add(ast.BoundNames(decl.Binding, nil)...)
			}
		case *ast.SFunction:
			names.Add(d.Fn.Name)
		}
	}
	return names
}
