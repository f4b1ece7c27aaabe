package transform

import "github.com/roach88/wisp/internal/ast"

// variant is a static alternate renderer attached to the component, such
// as Card.suspense = () => <p>loading</p>.
type variant struct {
	name  string
	fn    *ast.Fn
	props []string
}

// findVariants returns the variants assigned at the top level, in source
// order. A value may be a function, an arrow, or the name of a function
// declared in the same module.
func findVariants(p *ast.Program, component string, allowed []string, main *ast.Fn) []variant {
	if component == "" {
		return nil
	}
	names := NameSet{}
	names.Add(allowed...)

	var out []variant
	seen := map[*ast.Fn]bool{}
	for _, s := range p.Stmts {
		name, value, ok := memberAssignment(s, component)
		if !ok || !names.Has(name) {
			continue
		}
		fn, ok := ast.FunctionOf(value)
		if !ok {
			ident, isIdent := ast.IdentName(value)
			if !isIdent {
				continue
			}
			if fn, _ = resolveName(p, ident); fn == nil {
				continue
			}
		}
		if fn == main || seen[fn] {
			continue
		}
		seen[fn] = true
		out = append(out, variant{name: name, fn: fn, props: declaredProps(p, fn, "")})
	}
	return out
}

// propagateVariants runs the component passes over every variant, each
// with its own props and names.
func (t *fileTransform) propagateVariants(component string, main *ast.Fn) []string {
	var props []string
	for _, v := range findVariants(t.prog, component, t.s.cfg.Variants, main) {
		c := t.newComponent(v.fn, component+"."+v.name, v.props)
		c.run()
		props = append(props, v.props...)
		t.variants = append(t.variants, v.name)
	}
	return props
}
