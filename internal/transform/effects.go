package transform

import "github.com/roach88/wisp/internal/ast"

// effectNode is one call to the effect capability.
type effectNode struct {
	call *ast.ECall
	dep  string

	// ancestors are the dependency names of the enclosing effects,
	// outermost first, without duplicates.
	ancestors []string

	// named is the function declaration passed by name, as in effect(track).
	named *ast.Fn

	cleanups []*ast.ECall
}

// synthesizeEffects names every effect's dependency function, wraps nested
// effects in their ancestors' dependency functions and hands each cleanup
// the identity of the effect run that owns it.
//
//	effect(() => { effect(() => cleanup(stop)) })
//
// becomes
//
//	effect((r) => { effect(r((r1) => cleanup(stop, r1.id))) })
func (c *component) synthesizeEffects() {
	if !c.caps.has(CapEffect) {
		return
	}
	e := &effectPass{
		c:      c,
		decls:  functionDecls(c.fn.Body.Stmts),
		byCall: map[*ast.ECall]*effectNode{},
		owner:  map[*ast.ECall]*effectNode{},
		bound:  map[*ast.Fn]*effectNode{},
	}

	// Pass A: assign names top-down and record lexical nesting.
	e.walk(c.fn.Body.Stmts, nil)

	// Pass B: named declarations take their effect's name as parameter;
	// the effects and cleanups inside them belong to that effect.
	for _, node := range e.nodes {
		if node.named != nil {
			e.adoptDeclaration(node)
		}
	}

	// Pass C: bottom-up rewrite.
	for i := len(e.nodes) - 1; i >= 0; i-- {
		node := e.nodes[i]
		arg := node.call.Args[0]
		for j := len(node.ancestors) - 1; j >= 0; j-- {
			arg = ast.Call(ast.Expr{Loc: arg.Loc, Data: &ast.EIdentifier{Name: node.ancestors[j]}}, arg)
		}
		node.call.Args[0] = arg
		for _, cl := range node.cleanups {
			if len(cl.Args) == 1 {
				cl.Args = append(cl.Args, ast.Dot(ast.Ident(node.dep), "id"))
			}
		}
	}
	c.effects = e.nodes
}

type effectPass struct {
	c      *component
	decls  map[string]*ast.Fn
	nodes  []*effectNode
	byCall map[*ast.ECall]*effectNode
	owner  map[*ast.ECall]*effectNode
	bound  map[*ast.Fn]*effectNode
}

// walk visits stmts in source order. parent is the innermost enclosing
// effect, if any.
func (e *effectPass) walk(stmts []ast.Stmt, parent *effectNode) {
	stack := []*effectNode{}
	if parent != nil {
		stack = append(stack, parent)
	}
	var v *ast.Visitor
	v = &ast.Visitor{
		EnterExpr: func(x *ast.Expr) bool {
			var top *effectNode
			if len(stack) > 0 {
				top = stack[len(stack)-1]
			}
			if call, ok := e.c.caps.call(*x, CapCleanup); ok {
				e.owner[call] = top
				if top != nil {
					top.cleanups = append(top.cleanups, call)
				}
				return true
			}
			call, ok := e.c.caps.call(*x, CapEffect)
			if !ok || len(call.Args) == 0 {
				return true
			}
			node := &effectNode{call: call}
			if top != nil {
				node.ancestors = appendUnique(append([]string(nil), top.ancestors...), top.dep)
			}
			node.dep = e.assign(call)
			e.nodes = append(e.nodes, node)
			e.byCall[call] = node
			if fn := e.declFor(call.Args[0]); fn != nil && e.bound[fn] == nil {
				node.named = fn
				e.bound[fn] = node
			}

			stack = append(stack, node)
			v.Exprs(call.Args)
			stack = stack[:len(stack)-1]
			return false
		},
	}
	v.Stmts(stmts)
}

// assign picks the dependency name for an effect call. A callback that
// already declares a first parameter keeps its name unless another effect
// owns it; then the parameter is renamed.
func (e *effectPass) assign(call *ast.ECall) string {
	base := e.c.s.cfg.Effects.DependencyBase
	names := e.c.names

	fn, ok := ast.FunctionOf(call.Args[0])
	if !ok {
		if decl := e.declFor(call.Args[0]); decl != nil && e.bound[decl] == nil {
			fn = decl
		} else {
			return names.Fresh(base)
		}
	}
	return e.bindParam(fn, base)
}

// bindParam makes fn's first parameter an identifier holding the
// dependency function and returns its name.
func (e *effectPass) bindParam(fn *ast.Fn, base string) string {
	names := e.c.names
	if len(fn.Args) == 0 {
		dep := names.Fresh(base)
		fn.Args = []ast.Arg{{Binding: ast.Binding{Data: &ast.BIdentifier{Name: dep}}}}
		return dep
	}
	first := &fn.Args[0]
	if p, ok := ast.BindingName(first.Binding); ok {
		if names.Claim(p) {
			return p
		}
		dep := names.Fresh(base)
		renameIn(fn, p, dep)
		first.Binding = ast.Binding{Loc: first.Binding.Loc, Data: &ast.BIdentifier{Name: dep}}
		return dep
	}
	// A destructured first parameter is unpacked from the dependency
	// function at the top of the body.
	dep := names.Fresh(base)
	pattern := first.Binding
	first.Binding = ast.Binding{Loc: pattern.Loc, Data: &ast.BIdentifier{Name: dep}}
	unpack := ast.Stmt{Loc: pattern.Loc, Data: &ast.SLocal{
		Kind:  ast.LocalConst,
		Decls: []ast.Decl{{Binding: pattern, Value: ast.Ident(dep)}},
	}}
	fn.Body.Stmts = append([]ast.Stmt{unpack}, fn.Body.Stmts...)
	fn.ExprBody = false
	return dep
}

// adoptDeclaration attaches the effects and cleanups inside a declaration
// passed by name to the effect that runs it.
func (e *effectPass) adoptDeclaration(node *effectNode) {
	inherited := []string{node.dep}
	ast.Inspect(node.named.Body.Stmts, func(x ast.Expr) bool {
		call, ok := x.Data.(*ast.ECall)
		if !ok {
			return true
		}
		if inner := e.byCall[call]; inner != nil && inner != node {
			merged := append([]string(nil), inherited...)
			for _, name := range inner.ancestors {
				merged = appendUnique(merged, name)
			}
			inner.ancestors = merged
		}
		if owner, ok := e.owner[call]; ok && owner == nil {
			e.owner[call] = node
			node.cleanups = append(node.cleanups, call)
		}
		return true
	})
}

// declFor resolves an identifier callback to a function declared in the
// component body.
func (e *effectPass) declFor(cb ast.Expr) *ast.Fn {
	name, ok := ast.IdentName(cb)
	if !ok {
		return nil
	}
	return e.decls[name]
}

// functionDecls maps the names of functions declared directly in stmts:
// function declarations and const/let bindings of function values.
func functionDecls(stmts []ast.Stmt) map[string]*ast.Fn {
	out := map[string]*ast.Fn{}
	for _, s := range stmts {
		switch d := s.Data.(type) {
		case *ast.SFunction:
			if d.Fn.Name != "" {
				out[d.Fn.Name] = d.Fn
			}
		case *ast.SLocal:
			for _, decl := range d.Decls {
				name, ok := ast.BindingName(decl.Binding)
				if !ok {
					continue
				}
				if fn, ok := ast.FunctionOf(decl.Value); ok {
					out[name] = fn
				}
			}
		}
	}
	return out
}

// renameIn renames reads of from inside fn, leaving nested scopes that
// declare their own from alone.
func renameIn(fn *ast.Fn, from, to string) {
	v := &ast.Visitor{
		EnterFn: func(f *ast.Fn) bool {
			if f == fn {
				return true
			}
			return !CollectScope(f).Has(from)
		},
		EnterStmt: func(s *ast.Stmt) bool {
			return !blockDeclarations(s).Has(from)
		},
		EnterExpr: func(x *ast.Expr) bool {
			if id, ok := x.Data.(*ast.EIdentifier); ok && id.Name == from {
				*x = ast.Expr{Loc: x.Loc, Data: &ast.EIdentifier{Name: to}}
				return false
			}
			return true
		},
	}
	v.Fn(fn)
}

func appendUnique(list []string, name string) []string {
	for _, n := range list {
		if n == name {
			return list
		}
	}
	return append(list, name)
}
