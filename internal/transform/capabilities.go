package transform

import "github.com/roach88/wisp/internal/ast"

// Capability names offered by the runtime through a component's second
// parameter.
const (
	CapState      = "state"
	CapEffect     = "effect"
	CapCleanup    = "cleanup"
	CapDerived    = "derived"
	CapStore      = "store"
	CapCSS        = "css"
	CapUseContext = "useContext"
	CapOnMount    = "onMount"
)

// capabilities resolves how a component body refers to the runtime
// capabilities: through local names destructured from the context
// parameter, or as members of a context identifier.
type capabilities struct {
	fn     *ast.Fn
	object string
	locals map[string]string
}

func readCapabilities(fn *ast.Fn) *capabilities {
	c := &capabilities{fn: fn, locals: map[string]string{}}
	if fn == nil || len(fn.Args) < 2 {
		return c
	}
	switch b := fn.Args[1].Binding.Data.(type) {
	case *ast.BIdentifier:
		c.object = b.Name
	case *ast.BObject:
		for _, p := range b.Properties {
			key, ok := p.KeyName()
			if !ok {
				continue
			}
			if local, ok := ast.BindingName(p.Value); ok {
				c.locals[key] = local
			}
		}
	}
	return c
}

// has reports whether the body can reach the capability at all.
func (c *capabilities) has(capability string) bool {
	_, ok := c.locals[capability]
	return ok || c.object != ""
}

// is reports whether e refers to the capability.
func (c *capabilities) is(e ast.Expr, capability string) bool {
	switch d := e.Data.(type) {
	case *ast.EIdentifier:
		local, ok := c.locals[capability]
		return ok && d.Name == local
	case *ast.EDot:
		if c.object == "" || d.Name != capability {
			return false
		}
		name, ok := ast.IdentName(d.Target)
		return ok && name == c.object
	}
	return false
}

// call returns e as a call to the capability.
func (c *capabilities) call(e ast.Expr, capability string) (*ast.ECall, bool) {
	call, ok := e.Data.(*ast.ECall)
	if !ok || !c.is(call.Target, capability) {
		return nil, false
	}
	return call, true
}

// ref returns an expression naming the capability, adding it to the
// context parameter when the body cannot reach it yet.
func (c *capabilities) ref(capability string, names *NameGen) ast.Expr {
	if local, ok := c.locals[capability]; ok {
		return ast.Ident(local)
	}
	if c.object != "" {
		return ast.Dot(ast.Ident(c.object), capability)
	}

	for len(c.fn.Args) < 1 {
		c.fn.Args = append(c.fn.Args, ast.Arg{Binding: ast.Binding{Data: &ast.BIdentifier{Name: names.Fresh("_props")}}})
	}
	if len(c.fn.Args) < 2 {
		c.fn.Args = append(c.fn.Args, ast.Arg{Binding: ast.Binding{Data: &ast.BObject{}}})
	}
	obj, ok := c.fn.Args[1].Binding.Data.(*ast.BObject)
	if !ok {
		// A pattern we do not model; fall back to the bare name.
		return ast.Ident(capability)
	}
	local := names.Fresh(capability)
	obj.Properties = append(obj.Properties, ast.PropertyBinding{
		Key:   ast.Str(capability),
		Value: ast.Binding{Data: &ast.BIdentifier{Name: local}},
	})
	c.locals[capability] = local
	return ast.Ident(local)
}
