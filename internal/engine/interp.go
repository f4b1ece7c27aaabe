package engine

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/language"

	"github.com/roach88/wisp/internal/ast"
)

const (
	// maxCallDepth bounds interpreted recursion.
	maxCallDepth = 256

	// maxLoopIterations bounds a single loop statement.
	maxLoopIterations = 1_000_000
)

// binding is one variable slot.
type binding struct {
	value    Value
	constant bool
}

// scope is a lexical environment. Function scopes also collect var
// declarations from the blocks nested inside them.
type scope struct {
	vars   map[string]*binding
	parent *scope
	fn     bool
}

func newScope(parent *scope, fn bool) *scope {
	return &scope{vars: map[string]*binding{}, parent: parent, fn: fn}
}

func (s *scope) lookup(name string) *binding {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.vars[name]; ok {
			return b
		}
	}
	return nil
}

func (s *scope) declare(name string, v Value, constant bool) {
	s.vars[name] = &binding{value: v, constant: constant}
}

func (s *scope) functionScope() *scope {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.fn {
			return sc
		}
	}
	return s
}

// flow is the completion kind of a statement.
type flow int

const (
	flowNormal flow = iota
	flowReturn
	flowBreak
	flowContinue
)

// interp evaluates the module and every function it defines.
type interp struct {
	g       *graph
	globals *scope
	ctx     context.Context
	locale  language.Tag
	depth   int
	ticks   int
}

// call invokes any callable value.
func (in *interp) call(fn Value, args []Value) (Value, error) {
	switch f := fn.(type) {
	case *Closure:
		return in.callClosure(f, args)
	case *Native:
		return f.call(args)
	case *DepFunc:
		return f.claim(args)
	case *ownedFn:
		return in.call(f.fn, args)
	case *Component:
		return in.call(f.Fn, args)
	}
	return nil, notCallable(inspect(fn, 0))
}

func (in *interp) callClosure(c *Closure, args []Value) (Value, error) {
	if c.fn.IsAsync || c.fn.IsGenerator {
		return nil, unsupported("async and generator functions are not simulated")
	}
	if in.depth >= maxCallDepth {
		return nil, &thrown{value: errorObject("RangeError", "Maximum call stack size exceeded")}
	}
	in.depth++
	defer func() { in.depth-- }()

	sc := newScope(c.env, true)
	if c.fn.Name != "" && !c.fn.IsArrow {
		if _, ok := c.env.vars[c.fn.Name]; !ok {
			sc.declare(c.fn.Name, c, false)
		}
	}
	for i, arg := range c.fn.Args {
		var v Value = Undefined
		if arg.Rest {
			rest := &Array{}
			if i < len(args) {
				rest.Items = append(rest.Items, args[i:]...)
			}
			v = rest
		} else if i < len(args) {
			v = args[i]
		}
		if v == Undefined && !arg.Default.IsMissing() {
			var err error
			if v, err = in.eval(arg.Default, sc); err != nil {
				return nil, err
			}
		}
		if err := in.bindPattern(sc, arg.Binding, v, false); err != nil {
			return nil, err
		}
	}

	in.hoist(c.fn.Body.Stmts, sc)
	fl, v, err := in.execStmts(c.fn.Body.Stmts, sc)
	if err != nil {
		return nil, err
	}
	if fl == flowReturn {
		return v, nil
	}
	return Undefined, nil
}

// hoist declares function declarations before the statements run.
func (in *interp) hoist(stmts []ast.Stmt, sc *scope) {
	for _, s := range stmts {
		switch d := s.Data.(type) {
		case *ast.SFunction:
			sc.declare(d.Fn.Name, &Closure{fn: d.Fn, env: sc}, false)
		case *ast.SExportDefault:
			if f, ok := d.Value.Data.(*ast.SFunction); ok && f.Fn.Name != "" {
				sc.declare(f.Fn.Name, &Closure{fn: f.Fn, env: sc}, false)
			}
		}
	}
}

func (in *interp) execStmts(stmts []ast.Stmt, sc *scope) (flow, Value, error) {
	for _, s := range stmts {
		fl, v, err := in.exec(s, sc)
		if err != nil || fl != flowNormal {
			return fl, v, err
		}
	}
	return flowNormal, nil, nil
}

func (in *interp) block(stmts []ast.Stmt, parent *scope) (flow, Value, error) {
	sc := newScope(parent, false)
	in.hoist(stmts, sc)
	return in.execStmts(stmts, sc)
}

// body runs a loop or branch body, which may be a block or a bare
// statement.
func (in *interp) body(s ast.Stmt, sc *scope) (flow, Value, error) {
	if b, ok := s.Data.(*ast.SBlock); ok {
		return in.block(b.Stmts, sc)
	}
	return in.exec(s, sc)
}

func (in *interp) exec(s ast.Stmt, sc *scope) (flow, Value, error) {
	switch d := s.Data.(type) {
	case nil, *ast.SEmpty, *ast.SFunction, *ast.STypeShape:
		return flowNormal, nil, nil

	case *ast.SBlock:
		return in.block(d.Stmts, sc)

	case *ast.SExpr:
		_, err := in.eval(d.Value, sc)
		return flowNormal, nil, err

	case *ast.SLocal:
		return flowNormal, nil, in.local(d, sc)

	case *ast.SReturn:
		if d.Value.IsMissing() {
			return flowReturn, Undefined, nil
		}
		v, err := in.eval(d.Value, sc)
		return flowReturn, v, err

	case *ast.SIf:
		test, err := in.eval(d.Test, sc)
		if err != nil {
			return flowNormal, nil, err
		}
		if truthy(test) {
			return in.body(d.Yes, sc)
		}
		if d.No.Data != nil {
			return in.body(d.No, sc)
		}
		return flowNormal, nil, nil

	case *ast.SSwitch:
		return in.switchStmt(d, sc)

	case *ast.SFor:
		return in.forStmt(d, sc)

	case *ast.SForOf:
		if d.IsAwait {
			return flowNormal, nil, unsupported("for await is not simulated")
		}
		iterable, err := in.eval(d.Value, sc)
		if err != nil {
			return flowNormal, nil, err
		}
		items, err := iterate(iterable)
		if err != nil {
			return flowNormal, nil, err
		}
		return in.forEach(d.Init, d.Body, items, sc)

	case *ast.SForIn:
		obj, err := in.eval(d.Value, sc)
		if err != nil {
			return flowNormal, nil, err
		}
		return in.forEach(d.Init, d.Body, enumerate(obj), sc)

	case *ast.SWhile:
		for i := 0; ; i++ {
			if err := in.tick(i); err != nil {
				return flowNormal, nil, err
			}
			test, err := in.eval(d.Test, sc)
			if err != nil {
				return flowNormal, nil, err
			}
			if !truthy(test) {
				return flowNormal, nil, nil
			}
			fl, v, err := in.body(d.Body, sc)
			if err != nil || fl == flowReturn {
				return fl, v, err
			}
			if fl == flowBreak {
				return flowNormal, nil, nil
			}
		}

	case *ast.SDoWhile:
		for i := 0; ; i++ {
			if err := in.tick(i); err != nil {
				return flowNormal, nil, err
			}
			fl, v, err := in.body(d.Body, sc)
			if err != nil || fl == flowReturn {
				return fl, v, err
			}
			if fl == flowBreak {
				return flowNormal, nil, nil
			}
			test, err := in.eval(d.Test, sc)
			if err != nil {
				return flowNormal, nil, err
			}
			if !truthy(test) {
				return flowNormal, nil, nil
			}
		}

	case *ast.STry:
		return in.tryStmt(d, sc)

	case *ast.SThrow:
		v, err := in.eval(d.Value, sc)
		if err != nil {
			return flowNormal, nil, err
		}
		return flowNormal, nil, &thrown{value: v}

	case *ast.SBreak:
		if d.Label != "" {
			return flowNormal, nil, unsupported("labeled break")
		}
		return flowBreak, nil, nil

	case *ast.SContinue:
		if d.Label != "" {
			return flowNormal, nil, unsupported("labeled continue")
		}
		return flowContinue, nil, nil

	case *ast.SImport, *ast.SExportDefault, *ast.SExportClause:
		return flowNormal, nil, unsupported("module declarations are only allowed at the top level")

	case *ast.SRaw:
		return flowNormal, nil, unsupported("unsupported syntax: %s", firstLine(d.Text))
	}
	return flowNormal, nil, unsupported("statement %T", s.Data)
}

func (in *interp) local(d *ast.SLocal, sc *scope) error {
	target := sc
	if d.Kind == ast.LocalVar {
		target = sc.functionScope()
	}
	for _, decl := range d.Decls {
		var v Value = Undefined
		if !decl.Value.IsMissing() {
			var err error
			if v, err = in.eval(decl.Value, sc); err != nil {
				return err
			}
		} else if d.Kind == ast.LocalVar {
			if name, ok := ast.BindingName(decl.Binding); ok && target.vars[name] != nil {
				continue
			}
		}
		if err := in.bindPattern(target, decl.Binding, v, d.Kind == ast.LocalConst); err != nil {
			return err
		}
	}
	return nil
}

func (in *interp) switchStmt(d *ast.SSwitch, sc *scope) (flow, Value, error) {
	test, err := in.eval(d.Test, sc)
	if err != nil {
		return flowNormal, nil, err
	}
	start := -1
	for i, c := range d.Cases {
		if c.Value.IsMissing() {
			continue
		}
		v, err := in.eval(c.Value, sc)
		if err != nil {
			return flowNormal, nil, err
		}
		if strictEquals(test, v) {
			start = i
			break
		}
	}
	if start < 0 {
		for i, c := range d.Cases {
			if c.Value.IsMissing() {
				start = i
				break
			}
		}
	}
	if start < 0 {
		return flowNormal, nil, nil
	}

	inner := newScope(sc, false)
	for _, c := range d.Cases[start:] {
		in.hoist(c.Body, inner)
		fl, v, err := in.execStmts(c.Body, inner)
		if err != nil {
			return flowNormal, nil, err
		}
		switch fl {
		case flowBreak:
			return flowNormal, nil, nil
		case flowReturn, flowContinue:
			return fl, v, nil
		}
	}
	return flowNormal, nil, nil
}

func (in *interp) forStmt(d *ast.SFor, sc *scope) (flow, Value, error) {
	loop := newScope(sc, false)
	var perIteration []string
	if d.Init.Data != nil {
		if l, ok := d.Init.Data.(*ast.SLocal); ok && l.Kind != ast.LocalVar {
			for _, decl := range l.Decls {
				perIteration = ast.BoundNames(decl.Binding, perIteration)
			}
		}
		if _, _, err := in.exec(d.Init, loop); err != nil {
			return flowNormal, nil, err
		}
	}

	for i := 0; ; i++ {
		if err := in.tick(i); err != nil {
			return flowNormal, nil, err
		}
		if !d.Test.IsMissing() {
			test, err := in.eval(d.Test, loop)
			if err != nil {
				return flowNormal, nil, err
			}
			if !truthy(test) {
				return flowNormal, nil, nil
			}
		}
		fl, v, err := in.body(d.Body, loop)
		if err != nil || fl == flowReturn {
			return fl, v, err
		}
		if fl == flowBreak {
			return flowNormal, nil, nil
		}
		// Each iteration gets fresh let bindings, so closures created in
		// the body keep that iteration's values.
		if len(perIteration) > 0 {
			next := newScope(sc, false)
			for _, name := range perIteration {
				b := loop.vars[name]
				next.vars[name] = &binding{value: b.value, constant: b.constant}
			}
			loop = next
		}
		if !d.Update.IsMissing() {
			if _, err := in.eval(d.Update, loop); err != nil {
				return flowNormal, nil, err
			}
		}
	}
}

// forEach runs a for-in or for-of body once per item, binding init.
func (in *interp) forEach(init, body ast.Stmt, items []Value, sc *scope) (flow, Value, error) {
	for i, item := range items {
		if err := in.tick(i); err != nil {
			return flowNormal, nil, err
		}
		iter := newScope(sc, false)
		switch d := init.Data.(type) {
		case *ast.SLocal:
			target := iter
			if d.Kind == ast.LocalVar {
				target = sc.functionScope()
			}
			if len(d.Decls) != 1 {
				return flowNormal, nil, unsupported("loop declaration with %d bindings", len(d.Decls))
			}
			if err := in.bindPattern(target, d.Decls[0].Binding, item, d.Kind == ast.LocalConst); err != nil {
				return flowNormal, nil, err
			}
		case *ast.SExpr:
			if err := in.assignTo(d.Value, item, iter); err != nil {
				return flowNormal, nil, err
			}
		default:
			return flowNormal, nil, unsupported("loop target %T", init.Data)
		}
		fl, v, err := in.body(body, iter)
		if err != nil || fl == flowReturn {
			return fl, v, err
		}
		if fl == flowBreak {
			break
		}
	}
	return flowNormal, nil, nil
}

func (in *interp) tryStmt(d *ast.STry, sc *scope) (fl flow, v Value, err error) {
	fl, v, err = in.block(d.Block, sc)
	if err != nil && d.Catch != nil {
		if caught, ok := catchable(err); ok {
			csc := newScope(sc, false)
			if d.Catch.Binding.Data != nil {
				if berr := in.bindPattern(csc, d.Catch.Binding, caught, false); berr != nil {
					return flowNormal, nil, berr
				}
			}
			fl, v, err = in.block(d.Catch.Body, csc)
		}
	}
	if d.HasFinally {
		ffl, fv, ferr := in.block(d.Finally, sc)
		if ferr != nil || ffl != flowNormal {
			return ffl, fv, ferr
		}
	}
	return fl, v, err
}

// catchable reports whether user code may catch err, and the value a
// catch clause binds. Engine failures such as quota errors pass through.
func catchable(err error) (Value, bool) {
	var th *thrown
	if errors.As(err, &th) {
		return th.value, true
	}
	var re *RuntimeError
	if errors.As(err, &re) && (re.Code == ErrCodeThrown || re.Code == ErrCodeNotCallable) {
		name, msg, found := strings.Cut(re.Message, ": ")
		if !found || re.Code == ErrCodeNotCallable {
			return errorObject("TypeError", re.Message), true
		}
		return errorObject(name, msg), true
	}
	return nil, false
}

// tick enforces the loop bound and observes cancellation.
func (in *interp) tick(i int) error {
	if i >= maxLoopIterations {
		return &RuntimeError{
			Code:    ErrCodeQuotaExceeded,
			Message: "loop ran more than the iteration limit",
			Details: map[string]string{"max_iterations": "1000000"},
		}
	}
	in.ticks++
	if in.ticks%1024 == 0 && in.ctx != nil {
		if err := in.ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// bindPattern declares every name in b, destructuring v.
func (in *interp) bindPattern(sc *scope, b ast.Binding, v Value, constant bool) error {
	switch d := b.Data.(type) {
	case *ast.BIdentifier:
		sc.declare(d.Name, v, constant)
		return nil

	case *ast.BMissing:
		return nil

	case *ast.BArray:
		items, err := iterate(v)
		if err != nil {
			return err
		}
		for i, item := range d.Items {
			if d.HasSpread && i == len(d.Items)-1 {
				rest := &Array{}
				if i < len(items) {
					rest.Items = append(rest.Items, items[i:]...)
				}
				return in.bindPattern(sc, item.Binding, rest, constant)
			}
			var elem Value = Undefined
			if i < len(items) {
				elem = items[i]
			}
			if elem, err = in.withDefault(elem, item.Default, sc); err != nil {
				return err
			}
			if err := in.bindPattern(sc, item.Binding, elem, constant); err != nil {
				return err
			}
		}
		return nil

	case *ast.BObject:
		if isNullish(v) {
			return typeError("Cannot destructure '%s' as it is %s.", toString(v), toString(v))
		}
		used := map[string]bool{}
		for _, p := range d.Properties {
			if p.IsSpread {
				rest := NewObject()
				if obj, ok := v.(*Object); ok {
					for _, k := range obj.Keys() {
						if !used[k] {
							_ = rest.Set(k, obj.Get(k))
						}
					}
				}
				if err := in.bindPattern(sc, p.Value, rest, constant); err != nil {
					return err
				}
				continue
			}
			key, err := in.propertyKey(p.Key, p.Computed, sc)
			if err != nil {
				return err
			}
			used[key] = true
			field, err := in.getMember(v, key)
			if err != nil {
				return err
			}
			if field, err = in.withDefault(field, p.Default, sc); err != nil {
				return err
			}
			if err := in.bindPattern(sc, p.Value, field, constant); err != nil {
				return err
			}
		}
		return nil
	}
	return unsupported("binding %T", b.Data)
}

func (in *interp) withDefault(v Value, def ast.Expr, sc *scope) (Value, error) {
	if v != Undefined || def.IsMissing() {
		return v, nil
	}
	return in.eval(def, sc)
}

func (in *interp) propertyKey(key ast.Expr, computed bool, sc *scope) (string, error) {
	if !computed {
		if s, ok := key.Data.(*ast.EString); ok {
			return s.Value, nil
		}
	}
	v, err := in.eval(key, sc)
	if err != nil {
		return "", err
	}
	return toString(v), nil
}

// iterate lists the items of an iterable value.
func iterate(v Value) ([]Value, error) {
	switch x := v.(type) {
	case *Array:
		out := make([]Value, len(x.Items))
		copy(out, x.Items)
		return out, nil
	case string:
		var out []Value
		for _, r := range x {
			out = append(out, string(r))
		}
		return out, nil
	}
	return nil, typeError("%s is not iterable", inspect(v, 0))
}

// enumerate lists the keys a for-in loop visits.
func enumerate(v Value) []Value {
	var out []Value
	switch x := v.(type) {
	case *Object:
		for _, k := range x.Keys() {
			out = append(out, k)
		}
	case *Array:
		for i := range x.Items {
			out = append(out, ast.FormatNumber(float64(i)))
		}
	case string:
		for i := range []rune(x) {
			out = append(out, ast.FormatNumber(float64(i)))
		}
	}
	return out
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	if len(line) > 60 {
		line = line[:60] + "..."
	}
	return line
}
