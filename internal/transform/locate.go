package transform

import "github.com/roach88/wisp/internal/ast"

// ExportShape records how a component reaches the default export.
type ExportShape uint8

const (
	// ExportInline is `export default function ...` or `export default () => ...`.
	ExportInline ExportShape = iota
	// ExportIdentifier is `export default Name` after a separate definition.
	ExportIdentifier
	// ExportClause is `export { Name as default }`.
	ExportClause
)

// Located is the component a module exports by default.
type Located struct {
	Fn *ast.Fn

	// ExportIndex is the top-level index of the default export statement.
	ExportIndex int

	// IdentIndex is the top-level index of the statement that defines the
	// exported name, or -1 for inline exports.
	IdentIndex int

	// Name is the component's binding name. It is empty for an anonymous
	// inline export.
	Name  string
	Shape ExportShape

	// Props lists the declared prop names, sorted.
	Props []string
}

// Locate finds the default-exported component. It returns nil when the
// module has no default export that resolves to a function; callers then
// pass the module through untouched.
func Locate(p *ast.Program) *Located {
	for i := range p.Stmts {
		switch d := p.Stmts[i].Data.(type) {
		case *ast.SExportDefault:
			if loc := locateDefault(p, i, d); loc != nil {
				loc.Props = declaredProps(p, loc.Fn, loc.Name)
				return loc
			}
		case *ast.SExportClause:
			if d.From != "" {
				continue
			}
			for _, item := range d.Items {
				if item.Alias != "default" {
					continue
				}
				fn, at := resolveName(p, item.Name)
				if fn == nil {
					continue
				}
				return &Located{
					Fn:          fn,
					ExportIndex: i,
					IdentIndex:  at,
					Name:        item.Name,
					Shape:       ExportClause,
					Props:       declaredProps(p, fn, item.Name),
				}
			}
		}
	}
	return nil
}

func locateDefault(p *ast.Program, index int, d *ast.SExportDefault) *Located {
	switch v := d.Value.Data.(type) {
	case *ast.SFunction:
		return &Located{Fn: v.Fn, ExportIndex: index, IdentIndex: -1, Name: v.Fn.Name, Shape: ExportInline}
	case *ast.SExpr:
		if fn, ok := ast.FunctionOf(v.Value); ok {
			return &Located{Fn: fn, ExportIndex: index, IdentIndex: -1, Name: fn.Name, Shape: ExportInline}
		}
		name, ok := ast.IdentName(v.Value)
		if !ok {
			return nil
		}
		fn, at := resolveName(p, name)
		if fn == nil {
			return nil
		}
		return &Located{Fn: fn, ExportIndex: index, IdentIndex: at, Name: name, Shape: ExportIdentifier}
	}
	return nil
}

// resolveName finds the function a top-level name is bound to: a function
// declaration, a variable initialized with a function, or the last
// top-level assignment of a function to a mutable binding.
func resolveName(p *ast.Program, name string) (*ast.Fn, int) {
	var found *ast.Fn
	at := -1
	for i := range p.Stmts {
		switch d := p.Stmts[i].Data.(type) {
		case *ast.SFunction:
			if d.Fn.Name == name {
				found, at = d.Fn, i
			}
		case *ast.SLocal:
			for _, decl := range d.Decls {
				if n, ok := ast.BindingName(decl.Binding); ok && n == name {
					if fn, ok := ast.FunctionOf(decl.Value); ok {
						found, at = fn, i
					}
				}
			}
		case *ast.SExpr:
			bin, ok := d.Value.Data.(*ast.EBinary)
			if !ok || bin.Op != "=" {
				continue
			}
			if n, ok := ast.IdentName(bin.Left); ok && n == name {
				if fn, ok := ast.FunctionOf(bin.Right); ok {
					found, at = fn, i
				}
			}
		}
	}
	return found, at
}

// declaredProps collects the prop names a component declares: destructured
// keys of its first parameter, members read off a props identifier or rest
// element, names destructured from the props identifier in the body, and
// the fields of the type shape the parameter is annotated with (or of an
// exported <Name>Props / Props shape).
func declaredProps(p *ast.Program, fn *ast.Fn, name string) []string {
	props := NameSet{}
	if fn == nil {
		return nil
	}

	var objects []string
	if len(fn.Args) > 0 {
		arg := fn.Args[0]
		switch b := arg.Binding.Data.(type) {
		case *ast.BObject:
			for _, prop := range b.Properties {
				if prop.IsSpread {
					if rest, ok := ast.BindingName(prop.Value); ok {
						objects = append(objects, rest)
					}
					continue
				}
				if key, ok := prop.KeyName(); ok {
					props.Add(key)
				}
			}
		case *ast.BIdentifier:
			objects = append(objects, b.Name)
		}
		for _, field := range shapeFields(p, arg.TypeName, name) {
			props.Add(field)
		}
	}

	for _, obj := range objects {
		props.Add(memberReads(fn, obj)...)
	}
	return props.Sorted()
}

// memberReads returns the static member names read off obj inside fn, plus
// the keys of object patterns destructured from obj.
func memberReads(fn *ast.Fn, obj string) []string {
	var out []string
	v := &ast.Visitor{
		EnterExpr: func(e *ast.Expr) bool {
			if dot, ok := e.Data.(*ast.EDot); ok {
				if n, ok := ast.IdentName(dot.Target); ok && n == obj {
					out = append(out, dot.Name)
				}
			}
			return true
		},
		EnterStmt: func(s *ast.Stmt) bool {
			local, ok := s.Data.(*ast.SLocal)
			if !ok {
				return true
			}
			for _, decl := range local.Decls {
				n, ok := ast.IdentName(decl.Value)
				if !ok || n != obj {
					continue
				}
				if pat, ok := decl.Binding.Data.(*ast.BObject); ok {
					for _, prop := range pat.Properties {
						if key, ok := prop.KeyName(); ok {
							out = append(out, key)
						}
					}
				}
			}
			return true
		},
	}
	v.Stmts(fn.Body.Stmts)
	return out
}

// shapeFields returns the fields of the type shape that declares a
// component's props.
func shapeFields(p *ast.Program, typeName, component string) []string {
	shapes := map[string]*ast.STypeShape{}
	for _, s := range p.Stmts {
		if shape, ok := s.Data.(*ast.STypeShape); ok {
			shapes[shape.Name] = shape
		}
	}
	if typeName != "" {
		if shape, ok := shapes[typeName]; ok {
			return shape.Fields
		}
		return nil
	}
	for _, candidate := range []string{component + "Props", "Props"} {
		if shape, ok := shapes[candidate]; ok && shape.IsExport {
			return shape.Fields
		}
	}
	return nil
}

// sortedUnion merges name lists into one sorted, duplicate-free list.
func sortedUnion(lists ...[]string) []string {
	set := NameSet{}
	for _, l := range lists {
		set.Add(l...)
	}
	return set.Sorted()
}
