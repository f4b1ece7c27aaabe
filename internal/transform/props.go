package transform

import "github.com/roach88/wisp/internal/ast"

// PathStep is one member or index step from a prop accessor down to a
// nested destructured binding. Default, when present, replaces a nullish
// value read by this step.
type PathStep struct {
	Key     string
	Index   int
	IsIndex bool
	Default ast.Expr
}

// PropBinding is one declared prop as the component body sees it. Local is
// the name the body reads; Path is non-empty for bindings destructured out
// of a prop's value. For those, Default is the default of the outer pattern
// and applies to the prop's value before the first step.
type PropBinding struct {
	Name    string
	Local   string
	Default ast.Expr
	Path    []PathStep

	// parent is the identifier that replaced the nested pattern.
	parent string
}

// propReads recognizes reads of declared props: a local bound to a prop, or
// a member of a props object (the props identifier or a rest element).
type propReads struct {
	names    NameSet
	locals   map[string]*PropBinding
	objects  NameSet
	isHandle func(name string) bool
}

// isRead reports whether e reads a prop. Names in shadowed are ignored.
func (r *propReads) isRead(e ast.Expr, shadowed NameSet) bool {
	switch d := e.Data.(type) {
	case *ast.EIdentifier:
		if _, ok := r.locals[d.Name]; !ok || shadowed.Has(d.Name) {
			return false
		}
		return !r.isHandle(d.Name)
	case *ast.EDot:
		obj, ok := ast.IdentName(d.Target)
		if !ok || !r.objects.Has(obj) || shadowed.Has(obj) {
			return false
		}
		return r.names.Has(d.Name) && !r.isHandle(d.Name)
	}
	return false
}

// collectBindings derives the prop bindings of fn's first parameter. It
// does not modify the tree.
func (c *component) collectBindings() {
	c.reads = &propReads{
		names:    NameSet{},
		locals:   map[string]*PropBinding{},
		objects:  NameSet{},
		isHandle: c.isEventName,
	}
	c.reads.names.Add(c.props...)
	if len(c.fn.Args) == 0 {
		return
	}

	add := func(b *PropBinding) {
		c.bindings = append(c.bindings, b)
		c.reads.locals[b.Local] = b
	}

	switch pat := c.fn.Args[0].Binding.Data.(type) {
	case *ast.BIdentifier:
		c.reads.objects.Add(pat.Name)
		for _, s := range c.fn.Body.Stmts {
			local, ok := s.Data.(*ast.SLocal)
			if !ok {
				continue
			}
			for _, decl := range local.Decls {
				if n, ok := ast.IdentName(decl.Value); !ok || n != pat.Name {
					continue
				}
				obj, ok := decl.Binding.Data.(*ast.BObject)
				if !ok {
					continue
				}
				for _, prop := range obj.Properties {
					key, ok := prop.KeyName()
					if !ok {
						continue
					}
					if name, ok := ast.BindingName(prop.Value); ok {
						add(&PropBinding{Name: key, Local: name})
					}
				}
			}
		}
	case *ast.BObject:
		for _, prop := range pat.Properties {
			if prop.IsSpread {
				if rest, ok := ast.BindingName(prop.Value); ok {
					c.reads.objects.Add(rest)
				}
				continue
			}
			key, ok := prop.KeyName()
			if !ok {
				continue
			}
			if local, ok := ast.BindingName(prop.Value); ok {
				add(&PropBinding{Name: key, Local: local, Default: prop.Default})
				continue
			}
			if !simplePattern(prop.Value) {
				continue
			}
			for _, leaf := range nestedLeaves(prop.Value, nil) {
				leaf.Name = key
				leaf.Default = prop.Default
				add(leaf)
			}
		}
	}
}

// nestedLeaves flattens a nested pattern into bindings with access paths.
func nestedLeaves(b ast.Binding, path []PathStep) []*PropBinding {
	var out []*PropBinding
	switch d := b.Data.(type) {
	case *ast.BIdentifier:
		out = append(out, &PropBinding{Local: d.Name, Path: append([]PathStep(nil), path...)})
	case *ast.BObject:
		for _, p := range d.Properties {
			key, _ := p.KeyName()
			out = append(out, nestedLeaves(p.Value, append(path, PathStep{Key: key, Default: p.Default}))...)
		}
	case *ast.BArray:
		for i, item := range d.Items {
			out = append(out, nestedLeaves(item.Binding, append(path, PathStep{Index: i, IsIndex: true, Default: item.Default}))...)
		}
	}
	return out
}

// simplePattern reports whether a nested pattern can be replaced by path
// reads: no rest elements and no computed keys anywhere inside it.
func simplePattern(b ast.Binding) bool {
	switch d := b.Data.(type) {
	case *ast.BIdentifier, *ast.BMissing:
		return true
	case *ast.BObject:
		for _, p := range d.Properties {
			if p.IsSpread || p.Computed || !simplePattern(p.Value) {
				return false
			}
		}
		return true
	case *ast.BArray:
		if d.HasSpread {
			return false
		}
		for _, item := range d.Items {
			if !simplePattern(item.Binding) {
				return false
			}
		}
		return true
	}
	return false
}

// bindProps rewrites prop reads into accessor reads. Destructuring defaults
// become derived values and nested patterns become path reads off the
// prop's accessor.
func (c *component) bindProps() {
	if len(c.fn.Args) == 0 || (len(c.reads.locals) == 0 && len(c.reads.objects) == 0) {
		return
	}
	if prelude := c.rewritePattern(); len(prelude) > 0 {
		c.fn.Body.Stmts = append(prelude, c.fn.Body.Stmts...)
		c.fn.ExprBody = false
	}
	c.rewriteReads()
}

// rewritePattern updates the props pattern in place and returns the
// declarations that derived-default synthesis adds to the top of the body.
func (c *component) rewritePattern() []ast.Stmt {
	pat, ok := c.fn.Args[0].Binding.Data.(*ast.BObject)
	if !ok {
		return nil
	}
	var prelude []ast.Stmt
	for i := range pat.Properties {
		prop := &pat.Properties[i]
		if prop.IsSpread {
			continue
		}
		key, ok := prop.KeyName()
		if !ok {
			continue
		}

		if local, ok := ast.BindingName(prop.Value); ok {
			if prop.Default.IsMissing() || c.isEventName(local) {
				continue
			}
			// { foo = 1 } binds _foo and derives foo from it.
			raw := c.names.Fresh("_" + local)
			def := prop.Default
			prop.Value = ast.Binding{Loc: prop.Value.Loc, Data: &ast.BIdentifier{Name: raw}}
			prop.Default = ast.Expr{}
			derived := ast.Call(c.caps.ref(CapDerived, c.names), ast.Thunk(ast.Expr{
				Loc: def.Loc,
				Data: &ast.EBinary{
					Op:    "??",
					Left:  ast.Dot(ast.Ident(raw), "value"),
					Right: def,
				},
			}))
			prelude = append(prelude, ast.Stmt{Loc: prop.Value.Loc, Data: &ast.SLocal{
				Kind: ast.LocalConst,
				Decls: []ast.Decl{{
					Binding: ast.Binding{Data: &ast.BIdentifier{Name: local}},
					Value:   derived,
				}},
			}})
			continue
		}

		if !simplePattern(prop.Value) {
			continue
		}
		// { user: { name } } binds user and reads user.value.name.
		parent := key
		switch {
		case !ast.IsValidIdentifier(key):
			parent = c.names.Fresh("_prop")
		case c.scope.Has(key) || c.names.Assigned(key):
			parent = c.names.Fresh("_" + key)
		default:
			c.names.Claim(parent)
		}
		prop.Value = ast.Binding{Loc: prop.Value.Loc, Data: &ast.BIdentifier{Name: parent}}
		prop.Default = ast.Expr{}
		for _, b := range c.bindings {
			if b.Name == key && len(b.Path) > 0 {
				b.parent = parent
			}
		}
	}
	return prelude
}

// rewriteReads replaces every unshadowed prop read with its accessor form.
func (c *component) rewriteReads() {
	var shadow []NameSet
	shadowed := func() NameSet {
		if len(shadow) == 0 {
			return nil
		}
		return shadow[len(shadow)-1]
	}
	push := func(declared NameSet) {
		next := NameSet{}
		for n := range shadowed() {
			next.Add(n)
		}
		for n := range declared {
			if _, ok := c.reads.locals[n]; ok || c.reads.objects.Has(n) {
				next.Add(n)
			}
		}
		shadow = append(shadow, next)
	}
	pop := func() { shadow = shadow[:len(shadow)-1] }

	var v *ast.Visitor
	v = &ast.Visitor{
		EnterFn: func(fn *ast.Fn) bool {
			if fn == c.fn {
				return true
			}
			// A nested function that declares a prop's name shadows it in
			// its whole body.
			push(CollectScope(fn))
			return true
		},
		LeaveFn: func(fn *ast.Fn) {
			if fn != c.fn {
				pop()
			}
		},
		EnterStmt: func(s *ast.Stmt) bool {
			if declared := blockDeclarations(s); declared != nil {
				push(declared)
			}
			return true
		},
		LeaveStmt: func(s *ast.Stmt) {
			if blockDeclarations(s) != nil {
				pop()
			}
		},
		EnterExpr: func(e *ast.Expr) bool {
			switch d := e.Data.(type) {
			case *ast.EObject:
				for i := range d.Properties {
					if d.Properties[i].Shorthand && c.reads.isRead(d.Properties[i].Value, shadowed()) {
						d.Properties[i].Shorthand = false
					}
				}
			case *ast.EBinary:
				// Assignment targets are written, not read.
				if d.IsAssign() {
					if _, ok := d.Left.Data.(*ast.EIdentifier); ok {
						v.Expr(&d.Right)
						return false
					}
				}
			case *ast.EUnary:
				if d.Op == "++" || d.Op == "--" {
					if _, ok := d.Value.Data.(*ast.EIdentifier); ok {
						return false
					}
				}
			case *ast.EIdentifier, *ast.EDot:
				if c.reads.isRead(*e, shadowed()) {
					*e = c.accessor(*e)
					return false
				}
			}
			return true
		},
	}
	v.Fn(c.fn)
}

// blockDeclarations returns the prop-shadowing candidates a block-scoped
// statement introduces, or nil when s opens no scope.
func blockDeclarations(s *ast.Stmt) NameSet {
	switch d := s.Data.(type) {
	case *ast.SBlock:
		return declaredIn(d.Stmts)
	case *ast.SFor:
		return declaredIn([]ast.Stmt{d.Init})
	case *ast.SForIn:
		return declaredIn([]ast.Stmt{d.Init})
	case *ast.SForOf:
		return declaredIn([]ast.Stmt{d.Init})
	}
	return nil
}

// accessor rewrites a prop read into its accessor form.
func (c *component) accessor(e ast.Expr) ast.Expr {
	if id, ok := e.Data.(*ast.EIdentifier); ok {
		b := c.reads.locals[id.Name]
		if b != nil && b.parent != "" {
			out := ast.Dot(ast.Expr{Loc: e.Loc, Data: &ast.EIdentifier{Name: b.parent}}, "value")
			out = withDefault(out, b.Default)
			for _, step := range b.Path {
				if step.IsIndex {
					out = ast.Expr{Loc: e.Loc, Data: &ast.EIndex{
						Target: out,
						Index:  ast.Expr{Data: &ast.ENumber{Value: float64(step.Index)}},
					}}
				} else {
					out = ast.Dot(out, step.Key)
				}
				out = withDefault(out, step.Default)
			}
			return out
		}
	}
	out := ast.Dot(e, "value")
	out.Loc = e.Loc
	return out
}

// withDefault wraps a path read in a nullish fallback to def.
func withDefault(read, def ast.Expr) ast.Expr {
	if def.IsMissing() {
		return read
	}
	return ast.Expr{Loc: read.Loc, Data: &ast.EBinary{Op: "??", Left: read, Right: ast.CloneExpr(def)}}
}
