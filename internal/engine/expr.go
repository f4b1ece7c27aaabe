package engine

import (
	"math"
	"strconv"

	"github.com/roach88/wisp/internal/ast"
	"github.com/roach88/wisp/internal/parser"
)

func (in *interp) eval(e ast.Expr, sc *scope) (Value, error) {
	v, _, err := in.chain(e, sc)
	return v, err
}

func (in *interp) evalAll(exprs []ast.Expr, sc *scope) ([]Value, error) {
	out := make([]Value, 0, len(exprs))
	for _, e := range exprs {
		if sp, ok := e.Data.(*ast.ESpread); ok {
			v, err := in.eval(sp.Value, sc)
			if err != nil {
				return nil, err
			}
			items, err := iterate(v)
			if err != nil {
				return nil, err
			}
			out = append(out, items...)
			continue
		}
		v, err := in.eval(e, sc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// chain evaluates e. short is true when an optional link in a member or
// call chain met a nullish value, which ends the whole chain.
func (in *interp) chain(e ast.Expr, sc *scope) (v Value, short bool, err error) {
	switch d := e.Data.(type) {
	case nil, *ast.EUndefined:
		return Undefined, false, nil
	case *ast.ENull:
		return nil, false, nil
	case *ast.EBoolean:
		return d.Value, false, nil
	case *ast.ENumber:
		return d.Value, false, nil
	case *ast.EString:
		return d.Value, false, nil

	case *ast.ETemplate:
		v, err := in.template(d, sc)
		return v, false, err

	case *ast.EIdentifier:
		b := sc.lookup(d.Name)
		if b == nil {
			return nil, false, &thrown{value: errorObject("ReferenceError", d.Name+" is not defined")}
		}
		return b.value, false, nil

	case *ast.EArray:
		items, err := in.evalAll(d.Items, sc)
		if err != nil {
			return nil, false, err
		}
		return &Array{Items: items}, false, nil

	case *ast.EObject:
		v, err := in.object(d, sc)
		return v, false, err

	case *ast.EFunction:
		return &Closure{fn: d.Fn, env: sc}, false, nil

	case *ast.EDot:
		target, short, err := in.chain(d.Target, sc)
		if err != nil || short {
			return Undefined, short, err
		}
		if d.Optional && isNullish(target) {
			return Undefined, true, nil
		}
		v, err := in.getMember(target, d.Name)
		return v, false, err

	case *ast.EIndex:
		target, short, err := in.chain(d.Target, sc)
		if err != nil || short {
			return Undefined, short, err
		}
		if d.Optional && isNullish(target) {
			return Undefined, true, nil
		}
		key, err := in.eval(d.Index, sc)
		if err != nil {
			return nil, false, err
		}
		v, err := in.getIndex(target, key)
		return v, false, err

	case *ast.ECall:
		return in.callExpr(d, sc)

	case *ast.ENew:
		v, err := in.newExpr(d, sc)
		return v, false, err

	case *ast.EUnary:
		v, err := in.unary(d, sc)
		return v, false, err

	case *ast.EBinary:
		v, err := in.binary(d, sc)
		return v, false, err

	case *ast.EIf:
		test, err := in.eval(d.Test, sc)
		if err != nil {
			return nil, false, err
		}
		if truthy(test) {
			v, err := in.eval(d.Yes, sc)
			return v, false, err
		}
		v, err := in.eval(d.No, sc)
		return v, false, err

	case *ast.EThis:
		return Undefined, false, nil

	case *ast.ESpread:
		return nil, false, unsupported("spread outside of a list")
	case *ast.EAwait:
		return nil, false, unsupported("await is not simulated")
	case *ast.EYield:
		return nil, false, unsupported("yield is not simulated")
	case *ast.ERegExp:
		return nil, false, unsupported("regular expression %s", d.Value)
	case *ast.ERaw:
		return nil, false, unsupported("unsupported syntax: %s", firstLine(d.Text))
	}
	return nil, false, unsupported("expression %T", e.Data)
}

func (in *interp) template(d *ast.ETemplate, sc *scope) (Value, error) {
	if d.Tag.IsMissing() {
		out := parser.CookString(d.Head)
		for _, p := range d.Parts {
			v, err := in.eval(p.Value, sc)
			if err != nil {
				return nil, err
			}
			out += toString(toPrimitive(v)) + parser.CookString(p.Tail)
		}
		return out, nil
	}

	tag, err := in.eval(d.Tag, sc)
	if err != nil {
		return nil, err
	}
	strs := &Array{Items: []Value{parser.CookString(d.Head)}}
	args := []Value{strs}
	for _, p := range d.Parts {
		v, err := in.eval(p.Value, sc)
		if err != nil {
			return nil, err
		}
		strs.Items = append(strs.Items, parser.CookString(p.Tail))
		args = append(args, v)
	}
	return in.call(tag, args)
}

func (in *interp) object(d *ast.EObject, sc *scope) (Value, error) {
	obj := NewObject()
	for _, p := range d.Properties {
		if p.Kind == ast.PropertySpread {
			v, err := in.eval(p.Value, sc)
			if err != nil {
				return nil, err
			}
			switch src := v.(type) {
			case *Object:
				for _, k := range src.Keys() {
					_ = obj.Set(k, src.Get(k))
				}
			case *Array:
				for i, item := range src.Items {
					_ = obj.Set(ast.FormatNumber(float64(i)), item)
				}
			}
			continue
		}
		key, err := in.propertyKey(p.Key, p.Computed, sc)
		if err != nil {
			return nil, err
		}
		v, err := in.eval(p.Value, sc)
		if err != nil {
			return nil, err
		}
		if err := obj.Set(key, v); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func (in *interp) callExpr(d *ast.ECall, sc *scope) (Value, bool, error) {
	var fn Value
	switch t := d.Target.Data.(type) {
	case *ast.EDot:
		recv, short, err := in.chain(t.Target, sc)
		if err != nil || short {
			return Undefined, short, err
		}
		if t.Optional && isNullish(recv) {
			return Undefined, true, nil
		}
		if fn, err = in.getMember(recv, t.Name); err != nil {
			return nil, false, err
		}
	case *ast.EIndex:
		recv, short, err := in.chain(t.Target, sc)
		if err != nil || short {
			return Undefined, short, err
		}
		if t.Optional && isNullish(recv) {
			return Undefined, true, nil
		}
		key, err := in.eval(t.Index, sc)
		if err != nil {
			return nil, false, err
		}
		if fn, err = in.getIndex(recv, key); err != nil {
			return nil, false, err
		}
	default:
		var short bool
		var err error
		fn, short, err = in.chain(d.Target, sc)
		if err != nil || short {
			return Undefined, short, err
		}
	}
	if d.Optional && isNullish(fn) {
		return Undefined, true, nil
	}
	if !isCallable(fn) {
		return nil, false, notCallable(printedCallee(d.Target))
	}
	args, err := in.evalAll(d.Args, sc)
	if err != nil {
		return nil, false, err
	}
	v, err := in.call(fn, args)
	return v, false, err
}

func printedCallee(e ast.Expr) string {
	switch d := e.Data.(type) {
	case *ast.EIdentifier:
		return d.Name
	case *ast.EDot:
		return printedCallee(d.Target) + "." + d.Name
	}
	return "expression"
}

func (in *interp) newExpr(d *ast.ENew, sc *scope) (Value, error) {
	name, ok := ast.IdentName(d.Target)
	if !ok {
		return nil, unsupported("new with a computed constructor")
	}
	args, err := in.evalAll(d.Args, sc)
	if err != nil {
		return nil, err
	}
	switch name {
	case "Error", "TypeError", "RangeError":
		msg := ""
		if len(args) > 0 && args[0] != Undefined {
			msg = toString(args[0])
		}
		return errorObject(name, msg), nil
	case "Array":
		return &Array{Items: args}, nil
	case "Object":
		return NewObject(), nil
	}
	return nil, unsupported("new %s", name)
}

func (in *interp) unary(d *ast.EUnary, sc *scope) (Value, error) {
	switch d.Op {
	case "++", "--":
		var result Value
		err := in.update(d.Value, sc, func(old Value) (Value, error) {
			n := toNumber(old)
			next := n + 1
			if d.Op == "--" {
				next = n - 1
			}
			if d.Postfix {
				result = n
			} else {
				result = next
			}
			return next, nil
		})
		return result, err

	case "typeof":
		if name, ok := ast.IdentName(d.Value); ok && sc.lookup(name) == nil {
			return "undefined", nil
		}
		v, err := in.eval(d.Value, sc)
		if err != nil {
			return nil, err
		}
		return typeOf(v), nil

	case "delete":
		switch t := d.Value.Data.(type) {
		case *ast.EDot:
			obj, err := in.eval(t.Target, sc)
			if err != nil {
				return nil, err
			}
			if o, ok := obj.(*Object); ok {
				o.Delete(t.Name)
			}
		case *ast.EIndex:
			obj, err := in.eval(t.Target, sc)
			if err != nil {
				return nil, err
			}
			key, err := in.eval(t.Index, sc)
			if err != nil {
				return nil, err
			}
			if o, ok := obj.(*Object); ok {
				o.Delete(toString(key))
			}
		}
		return true, nil
	}

	v, err := in.eval(d.Value, sc)
	if err != nil {
		return nil, err
	}
	switch d.Op {
	case "!":
		return !truthy(v), nil
	case "-":
		return -toNumber(v), nil
	case "+":
		return toNumber(v), nil
	case "~":
		return float64(^toInt32(v)), nil
	case "void":
		return Undefined, nil
	}
	return nil, unsupported("unary operator %s", d.Op)
}

func (in *interp) binary(d *ast.EBinary, sc *scope) (Value, error) {
	switch d.Op {
	case "=":
		v, err := in.eval(d.Right, sc)
		if err != nil {
			return nil, err
		}
		return v, in.assignTo(d.Left, v, sc)

	case "&&=", "||=", "??=":
		var result Value
		err := in.update(d.Left, sc, func(old Value) (Value, error) {
			keep := (d.Op == "&&=" && !truthy(old)) ||
				(d.Op == "||=" && truthy(old)) ||
				(d.Op == "??=" && !isNullish(old))
			if keep {
				result = old
				return old, nil
			}
			v, err := in.eval(d.Right, sc)
			result = v
			return v, err
		})
		return result, err

	case "&&", "||", "??":
		left, err := in.eval(d.Left, sc)
		if err != nil {
			return nil, err
		}
		switch {
		case d.Op == "&&" && !truthy(left),
			d.Op == "||" && truthy(left),
			d.Op == "??" && !isNullish(left):
			return left, nil
		}
		return in.eval(d.Right, sc)

	case ",":
		if _, err := in.eval(d.Left, sc); err != nil {
			return nil, err
		}
		return in.eval(d.Right, sc)
	}

	if ast.IsAssignOp(d.Op) {
		op := d.Op[:len(d.Op)-1]
		var result Value
		err := in.update(d.Left, sc, func(old Value) (Value, error) {
			right, err := in.eval(d.Right, sc)
			if err != nil {
				return nil, err
			}
			result, err = arithmetic(op, old, right)
			return result, err
		})
		return result, err
	}

	left, err := in.eval(d.Left, sc)
	if err != nil {
		return nil, err
	}
	right, err := in.eval(d.Right, sc)
	if err != nil {
		return nil, err
	}
	return arithmetic(d.Op, left, right)
}

// arithmetic applies a non-assigning, non-logical binary operator.
func arithmetic(op string, a, b Value) (Value, error) {
	switch op {
	case "+":
		pa, pb := toPrimitive(a), toPrimitive(b)
		_, as := pa.(string)
		_, bs := pb.(string)
		if as || bs {
			return toString(pa) + toString(pb), nil
		}
		return toNumber(pa) + toNumber(pb), nil
	case "-":
		return toNumber(a) - toNumber(b), nil
	case "*":
		return toNumber(a) * toNumber(b), nil
	case "/":
		return toNumber(a) / toNumber(b), nil
	case "%":
		return math.Mod(toNumber(a), toNumber(b)), nil
	case "**":
		return math.Pow(toNumber(a), toNumber(b)), nil
	case "===":
		return strictEquals(a, b), nil
	case "!==":
		return !strictEquals(a, b), nil
	case "==":
		return looseEquals(a, b), nil
	case "!=":
		return !looseEquals(a, b), nil
	case "<", ">", "<=", ">=":
		return compare(op, toPrimitive(a), toPrimitive(b)), nil
	case "&":
		return float64(toInt32(a) & toInt32(b)), nil
	case "|":
		return float64(toInt32(a) | toInt32(b)), nil
	case "^":
		return float64(toInt32(a) ^ toInt32(b)), nil
	case "<<":
		return float64(toInt32(a) << (uint32(toInt32(b)) & 31)), nil
	case ">>":
		return float64(toInt32(a) >> (uint32(toInt32(b)) & 31)), nil
	case ">>>":
		return float64(uint32(toInt32(a)) >> (uint32(toInt32(b)) & 31)), nil
	case "in":
		switch o := b.(type) {
		case *Object:
			return o.Has(toString(a)), nil
		case *Array:
			i, err := strconv.Atoi(toString(a))
			return err == nil && i >= 0 && i < len(o.Items), nil
		}
		return nil, typeError("Cannot use 'in' operator to search for '%s' in %s", toString(a), toString(b))
	}
	return nil, unsupported("operator %s", op)
}

func compare(op string, a, b Value) bool {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch op {
		case "<":
			return as < bs
		case ">":
			return as > bs
		case "<=":
			return as <= bs
		default:
			return as >= bs
		}
	}
	x, y := toNumber(a), toNumber(b)
	switch op {
	case "<":
		return x < y
	case ">":
		return x > y
	case "<=":
		return x <= y
	default:
		return x >= y
	}
}

// toPrimitive converts containers to their string form for operators.
func toPrimitive(v Value) Value {
	switch v.(type) {
	case *Array, *Object:
		return toString(v)
	}
	return v
}

// update reads target, computes a new value from it and writes it back.
func (in *interp) update(target ast.Expr, sc *scope, next func(old Value) (Value, error)) error {
	switch t := target.Data.(type) {
	case *ast.EIdentifier:
		b := sc.lookup(t.Name)
		if b == nil {
			return &thrown{value: errorObject("ReferenceError", t.Name+" is not defined")}
		}
		v, err := next(b.value)
		if err != nil {
			return err
		}
		if b.constant {
			return typeError("Assignment to constant variable.")
		}
		b.value = v
		return nil

	case *ast.EDot:
		obj, err := in.eval(t.Target, sc)
		if err != nil {
			return err
		}
		old, err := in.getMember(obj, t.Name)
		if err != nil {
			return err
		}
		v, err := next(old)
		if err != nil {
			return err
		}
		return in.setMember(obj, t.Name, v)

	case *ast.EIndex:
		obj, err := in.eval(t.Target, sc)
		if err != nil {
			return err
		}
		key, err := in.eval(t.Index, sc)
		if err != nil {
			return err
		}
		old, err := in.getIndex(obj, key)
		if err != nil {
			return err
		}
		v, err := next(old)
		if err != nil {
			return err
		}
		return in.setMember(obj, indexKey(key), v)
	}
	return unsupported("assignment to %T", target.Data)
}

// assignTo stores v into an assignment target, destructuring array and
// object patterns.
func (in *interp) assignTo(target ast.Expr, v Value, sc *scope) error {
	switch t := target.Data.(type) {
	case *ast.EArray:
		items, err := iterate(v)
		if err != nil {
			return err
		}
		for i, item := range t.Items {
			if sp, ok := item.Data.(*ast.ESpread); ok {
				rest := &Array{}
				if i < len(items) {
					rest.Items = append(rest.Items, items[i:]...)
				}
				return in.assignTo(sp.Value, rest, sc)
			}
			var elem Value = Undefined
			if i < len(items) {
				elem = items[i]
			}
			if err := in.assignDefault(item, elem, sc); err != nil {
				return err
			}
		}
		return nil

	case *ast.EObject:
		if isNullish(v) {
			return typeError("Cannot destructure '%s' as it is %s.", toString(v), toString(v))
		}
		for _, p := range t.Properties {
			if p.Kind == ast.PropertySpread {
				return unsupported("rest element in assignment pattern")
			}
			key, err := in.propertyKey(p.Key, p.Computed, sc)
			if err != nil {
				return err
			}
			field, err := in.getMember(v, key)
			if err != nil {
				return err
			}
			if err := in.assignDefault(p.Value, field, sc); err != nil {
				return err
			}
		}
		return nil
	}
	return in.update(target, sc, func(Value) (Value, error) { return v, nil })
}

// assignDefault handles `target = default` items of assignment patterns.
func (in *interp) assignDefault(item ast.Expr, v Value, sc *scope) error {
	if b, ok := item.Data.(*ast.EBinary); ok && b.Op == "=" {
		if v == Undefined {
			var err error
			if v, err = in.eval(b.Right, sc); err != nil {
				return err
			}
		}
		return in.assignTo(b.Left, v, sc)
	}
	return in.assignTo(item, v, sc)
}

func indexKey(key Value) string {
	if f, ok := key.(float64); ok {
		return ast.FormatNumber(f)
	}
	return toString(key)
}

func (in *interp) getIndex(obj, key Value) (Value, error) {
	return in.getMember(obj, indexKey(key))
}
