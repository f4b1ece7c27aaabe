package engine

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/roach88/wisp/internal/ast"
)

func native(name string, call func(args []Value) (Value, error)) *Native {
	return &Native{name: name, call: call}
}

func arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}

func errorObject(name, msg string) *Object {
	o := NewObject()
	_ = o.Set("name", name)
	_ = o.Set("message", msg)
	return o
}

// errorText formats a thrown value the way an uncaught error prints.
func errorText(v Value) string {
	if o, ok := v.(*Object); ok && o.Has("message") {
		name := "Error"
		if n, ok := o.peekProp("name").(string); ok {
			name = n
		}
		return name + ": " + toString(o.peekProp("message"))
	}
	return display(v)
}

func (in *interp) getMember(obj Value, key string) (Value, error) {
	switch o := obj.(type) {
	case nil, undefinedType:
		return nil, typeError("Cannot read properties of %s (reading '%s')", toString(obj), key)
	case *Object:
		return o.Get(key), nil
	case *Array:
		if key == "length" {
			return float64(len(o.Items)), nil
		}
		if i, ok := arrayIndex(key); ok {
			if i < len(o.Items) {
				return o.Items[i], nil
			}
			return Undefined, nil
		}
		return in.arrayMethod(o, key), nil
	case string:
		if key == "length" {
			return float64(utf8.RuneCountInString(o)), nil
		}
		if i, ok := arrayIndex(key); ok {
			r := []rune(o)
			if i < len(r) {
				return string(r[i]), nil
			}
			return Undefined, nil
		}
		return in.stringMethod(o, key), nil
	case float64:
		return in.numberMethod(o, key), nil
	case *Signal:
		switch key {
		case "value":
			return o.Get()
		case "peek":
			return native("peek", func([]Value) (Value, error) { return o.peek(), nil }), nil
		}
		return Undefined, nil
	case *DepFunc:
		if key == "id" {
			return o.run.id, nil
		}
		return Undefined, nil
	case *Closure:
		if key == "name" {
			return o.fn.Name, nil
		}
		if o.props != nil {
			return o.props.Get(key), nil
		}
		return Undefined, nil
	case *Component:
		if key == "name" {
			return o.Name, nil
		}
		return in.getMember(o.Fn, key)
	case *Native:
		if key == "name" {
			return o.name, nil
		}
	}
	return Undefined, nil
}

func (in *interp) setMember(obj Value, key string, v Value) error {
	switch o := obj.(type) {
	case nil, undefinedType:
		return typeError("Cannot set properties of %s (setting '%s')", toString(obj), key)
	case *Object:
		return o.Set(key, v)
	case *Array:
		if key == "length" {
			n := int(toNumber(v))
			if n < 0 || float64(n) != toNumber(v) {
				return &thrown{value: errorObject("RangeError", "Invalid array length")}
			}
			for len(o.Items) < n {
				o.Items = append(o.Items, Undefined)
			}
			o.Items = o.Items[:n]
			return nil
		}
		if i, ok := arrayIndex(key); ok {
			for len(o.Items) <= i {
				o.Items = append(o.Items, Undefined)
			}
			o.Items[i] = v
		}
		return nil
	case *Signal:
		if key == "value" {
			return o.Set(v)
		}
		return nil
	case *Closure:
		if o.props == nil {
			o.props = NewObject()
		}
		return o.props.Set(key, v)
	case *Component:
		return in.setMember(o.Fn, key, v)
	}
	return nil
}

func arrayIndex(key string) (int, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// relIndex resolves a possibly negative index argument against n.
func relIndex(v Value, n, def int) int {
	if v == Undefined {
		return def
	}
	f := toNumber(v)
	if math.IsNaN(f) {
		return 0
	}
	i := int(math.Trunc(f))
	if i < 0 {
		i += n
		if i < 0 {
			i = 0
		}
	}
	if i > n {
		i = n
	}
	return i
}

func (in *interp) arrayMethod(a *Array, name string) Value {
	each := func(args []Value, visit func(i int, item, result Value) bool) error {
		cb := arg(args, 0)
		if !isCallable(cb) {
			return typeError("%s is not a function", inspect(cb, 0))
		}
		for i := 0; i < len(a.Items); i++ {
			result, err := in.call(cb, []Value{a.Items[i], float64(i), a})
			if err != nil {
				return err
			}
			if !visit(i, a.Items[i], result) {
				break
			}
		}
		return nil
	}

	switch name {
	case "push":
		return native(name, func(args []Value) (Value, error) {
			a.Items = append(a.Items, args...)
			return float64(len(a.Items)), nil
		})
	case "pop":
		return native(name, func([]Value) (Value, error) {
			if len(a.Items) == 0 {
				return Undefined, nil
			}
			last := a.Items[len(a.Items)-1]
			a.Items = a.Items[:len(a.Items)-1]
			return last, nil
		})
	case "shift":
		return native(name, func([]Value) (Value, error) {
			if len(a.Items) == 0 {
				return Undefined, nil
			}
			first := a.Items[0]
			a.Items = append([]Value(nil), a.Items[1:]...)
			return first, nil
		})
	case "unshift":
		return native(name, func(args []Value) (Value, error) {
			a.Items = append(append([]Value(nil), args...), a.Items...)
			return float64(len(a.Items)), nil
		})
	case "map":
		return native(name, func(args []Value) (Value, error) {
			out := &Array{Items: make([]Value, 0, len(a.Items))}
			err := each(args, func(_ int, _, r Value) bool {
				out.Items = append(out.Items, r)
				return true
			})
			return out, err
		})
	case "filter":
		return native(name, func(args []Value) (Value, error) {
			out := &Array{}
			err := each(args, func(_ int, item, r Value) bool {
				if truthy(r) {
					out.Items = append(out.Items, item)
				}
				return true
			})
			return out, err
		})
	case "forEach":
		return native(name, func(args []Value) (Value, error) {
			return Undefined, each(args, func(int, Value, Value) bool { return true })
		})
	case "find", "findIndex":
		return native(name, func(args []Value) (Value, error) {
			var found Value = Undefined
			if name == "findIndex" {
				found = float64(-1)
			}
			err := each(args, func(i int, item, r Value) bool {
				if !truthy(r) {
					return true
				}
				if name == "findIndex" {
					found = float64(i)
				} else {
					found = item
				}
				return false
			})
			return found, err
		})
	case "some", "every":
		return native(name, func(args []Value) (Value, error) {
			result := name == "every"
			err := each(args, func(_ int, _, r Value) bool {
				if truthy(r) == (name == "some") {
					result = !result
					return false
				}
				return true
			})
			return result, err
		})
	case "reduce":
		return native(name, func(args []Value) (Value, error) {
			cb := arg(args, 0)
			if !isCallable(cb) {
				return nil, typeError("%s is not a function", inspect(cb, 0))
			}
			start := 0
			var acc Value
			if len(args) > 1 {
				acc = args[1]
			} else {
				if len(a.Items) == 0 {
					return nil, typeError("Reduce of empty array with no initial value")
				}
				acc = a.Items[0]
				start = 1
			}
			for i := start; i < len(a.Items); i++ {
				var err error
				if acc, err = in.call(cb, []Value{acc, a.Items[i], float64(i), a}); err != nil {
					return nil, err
				}
			}
			return acc, nil
		})
	case "includes", "indexOf":
		return native(name, func(args []Value) (Value, error) {
			needle := arg(args, 0)
			for i, item := range a.Items {
				if strictEquals(item, needle) {
					if name == "includes" {
						return true, nil
					}
					return float64(i), nil
				}
			}
			if name == "includes" {
				return false, nil
			}
			return float64(-1), nil
		})
	case "join":
		return native(name, func(args []Value) (Value, error) {
			sep := ","
			if s := arg(args, 0); s != Undefined {
				sep = toString(s)
			}
			parts := make([]string, len(a.Items))
			for i, item := range a.Items {
				if !isNullish(item) {
					parts[i] = toString(item)
				}
			}
			return strings.Join(parts, sep), nil
		})
	case "slice":
		return native(name, func(args []Value) (Value, error) {
			n := len(a.Items)
			start, end := relIndex(arg(args, 0), n, 0), relIndex(arg(args, 1), n, n)
			if start > end {
				start = end
			}
			return &Array{Items: append([]Value(nil), a.Items[start:end]...)}, nil
		})
	case "concat":
		return native(name, func(args []Value) (Value, error) {
			out := &Array{Items: append([]Value(nil), a.Items...)}
			for _, x := range args {
				if arr, ok := x.(*Array); ok {
					out.Items = append(out.Items, arr.Items...)
				} else {
					out.Items = append(out.Items, x)
				}
			}
			return out, nil
		})
	case "reverse":
		return native(name, func([]Value) (Value, error) {
			for i, j := 0, len(a.Items)-1; i < j; i, j = i+1, j-1 {
				a.Items[i], a.Items[j] = a.Items[j], a.Items[i]
			}
			return a, nil
		})
	case "sort":
		return native(name, func(args []Value) (Value, error) {
			cmp := arg(args, 0)
			var err error
			sort.SliceStable(a.Items, func(i, j int) bool {
				if err != nil {
					return false
				}
				if !isCallable(cmp) {
					return toString(a.Items[i]) < toString(a.Items[j])
				}
				var r Value
				r, err = in.call(cmp, []Value{a.Items[i], a.Items[j]})
				return toNumber(r) < 0
			})
			return a, err
		})
	case "flat":
		return native(name, func([]Value) (Value, error) {
			out := &Array{}
			for _, item := range a.Items {
				if arr, ok := item.(*Array); ok {
					out.Items = append(out.Items, arr.Items...)
				} else {
					out.Items = append(out.Items, item)
				}
			}
			return out, nil
		})
	case "at":
		return native(name, func(args []Value) (Value, error) {
			i := int(toNumber(arg(args, 0)))
			if i < 0 {
				i += len(a.Items)
			}
			if i < 0 || i >= len(a.Items) {
				return Undefined, nil
			}
			return a.Items[i], nil
		})
	}
	return Undefined
}

func (in *interp) stringMethod(s, name string) Value {
	runes := func() []rune { return []rune(s) }
	switch name {
	case "toUpperCase", "toLocaleUpperCase":
		return native(name, func([]Value) (Value, error) {
			return cases.Upper(in.locale).String(s), nil
		})
	case "toLowerCase", "toLocaleLowerCase":
		return native(name, func([]Value) (Value, error) {
			return cases.Lower(in.locale).String(s), nil
		})
	case "trim":
		return native(name, func([]Value) (Value, error) { return strings.TrimSpace(s), nil })
	case "trimStart":
		return native(name, func([]Value) (Value, error) { return strings.TrimLeft(s, " \t\n\r"), nil })
	case "trimEnd":
		return native(name, func([]Value) (Value, error) { return strings.TrimRight(s, " \t\n\r"), nil })
	case "includes":
		return native(name, func(args []Value) (Value, error) {
			return strings.Contains(s, toString(arg(args, 0))), nil
		})
	case "startsWith":
		return native(name, func(args []Value) (Value, error) {
			return strings.HasPrefix(s, toString(arg(args, 0))), nil
		})
	case "endsWith":
		return native(name, func(args []Value) (Value, error) {
			return strings.HasSuffix(s, toString(arg(args, 0))), nil
		})
	case "indexOf":
		return native(name, func(args []Value) (Value, error) {
			i := strings.Index(s, toString(arg(args, 0)))
			if i < 0 {
				return float64(-1), nil
			}
			return float64(utf8.RuneCountInString(s[:i])), nil
		})
	case "slice", "substring":
		return native(name, func(args []Value) (Value, error) {
			r := runes()
			start, end := relIndex(arg(args, 0), len(r), 0), relIndex(arg(args, 1), len(r), len(r))
			if start > end {
				if name == "substring" {
					start, end = end, start
				} else {
					start = end
				}
			}
			return string(r[start:end]), nil
		})
	case "split":
		return native(name, func(args []Value) (Value, error) {
			if arg(args, 0) == Undefined {
				return NewArray(s), nil
			}
			out := &Array{}
			for _, part := range strings.Split(s, toString(arg(args, 0))) {
				out.Items = append(out.Items, part)
			}
			return out, nil
		})
	case "replace", "replaceAll":
		return native(name, func(args []Value) (Value, error) {
			old, repl := toString(arg(args, 0)), arg(args, 1)
			n := 1
			if name == "replaceAll" {
				n = -1
			}
			if isCallable(repl) {
				r, err := in.call(repl, []Value{old})
				if err != nil {
					return nil, err
				}
				return strings.Replace(s, old, toString(r), n), nil
			}
			return strings.Replace(s, old, toString(repl), n), nil
		})
	case "padStart", "padEnd":
		return native(name, func(args []Value) (Value, error) {
			width := int(toNumber(arg(args, 0)))
			pad := " "
			if p := arg(args, 1); p != Undefined {
				pad = toString(p)
			}
			missing := width - utf8.RuneCountInString(s)
			if missing <= 0 || pad == "" {
				return s, nil
			}
			fill := []rune(strings.Repeat(pad, missing/utf8.RuneCountInString(pad)+1))[:missing]
			if name == "padStart" {
				return string(fill) + s, nil
			}
			return s + string(fill), nil
		})
	case "repeat":
		return native(name, func(args []Value) (Value, error) {
			n := int(toNumber(arg(args, 0)))
			if n < 0 {
				return nil, &thrown{value: errorObject("RangeError", "Invalid count value: "+strconv.Itoa(n))}
			}
			return strings.Repeat(s, n), nil
		})
	case "charAt", "at":
		return native(name, func(args []Value) (Value, error) {
			r := runes()
			i := int(toNumber(arg(args, 0)))
			if name == "at" && i < 0 {
				i += len(r)
			}
			if i < 0 || i >= len(r) {
				if name == "at" {
					return Undefined, nil
				}
				return "", nil
			}
			return string(r[i]), nil
		})
	case "concat":
		return native(name, func(args []Value) (Value, error) {
			out := s
			for _, a := range args {
				out += toString(a)
			}
			return out, nil
		})
	case "toString":
		return native(name, func([]Value) (Value, error) { return s, nil })
	}
	return Undefined
}

func (in *interp) numberMethod(f float64, name string) Value {
	switch name {
	case "toFixed":
		return native(name, func(args []Value) (Value, error) {
			digits := int(toNumber(arg(args, 0)))
			if digits < 0 || digits > 100 {
				return nil, &thrown{value: errorObject("RangeError", "toFixed() digits argument must be between 0 and 100")}
			}
			return strconv.FormatFloat(f, 'f', digits, 64), nil
		})
	case "toString":
		return native(name, func(args []Value) (Value, error) {
			radix := arg(args, 0)
			if radix == Undefined || toNumber(radix) == 10 {
				return ast.FormatNumber(f), nil
			}
			return strconv.FormatInt(int64(f), int(toNumber(radix))), nil
		})
	case "toLocaleString":
		return native(name, func([]Value) (Value, error) {
			return message.NewPrinter(in.locale).Sprint(number.Decimal(f)), nil
		})
	}
	return Undefined
}

// installGlobals declares the global functions and namespaces.
func (in *interp) installGlobals(logger func(args []Value)) {
	g := in.globals
	g.declare("undefined", Undefined, true)
	g.declare("NaN", math.NaN(), true)
	g.declare("Infinity", math.Inf(1), true)

	logFn := native("log", func(args []Value) (Value, error) {
		logger(args)
		return Undefined, nil
	})
	g.declare("log", logFn, false)

	console := NewObject()
	for _, name := range []string{"log", "info", "warn", "error", "debug"} {
		_ = console.Set(name, logFn)
	}
	g.declare("console", console, false)

	g.declare("String", native("String", func(args []Value) (Value, error) {
		if len(args) == 0 {
			return "", nil
		}
		return toString(args[0]), nil
	}), false)
	g.declare("Number", native("Number", func(args []Value) (Value, error) {
		if len(args) == 0 {
			return float64(0), nil
		}
		return toNumber(args[0]), nil
	}), false)
	g.declare("Boolean", native("Boolean", func(args []Value) (Value, error) {
		return truthy(arg(args, 0)), nil
	}), false)
	g.declare("parseInt", native("parseInt", func(args []Value) (Value, error) {
		s := strings.TrimSpace(toString(arg(args, 0)))
		end := 0
		for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && (s[end] == '-' || s[end] == '+')) {
			end++
		}
		n, err := strconv.ParseInt(s[:end], 10, 64)
		if err != nil {
			return math.NaN(), nil
		}
		return float64(n), nil
	}), false)
	g.declare("parseFloat", native("parseFloat", func(args []Value) (Value, error) {
		return toNumber(strings.TrimSpace(toString(arg(args, 0)))), nil
	}), false)
	g.declare("isNaN", native("isNaN", func(args []Value) (Value, error) {
		return math.IsNaN(toNumber(arg(args, 0))), nil
	}), false)
	for _, name := range []string{"Error", "TypeError", "RangeError"} {
		name := name
		g.declare(name, native(name, func(args []Value) (Value, error) {
			msg := ""
			if m := arg(args, 0); m != Undefined {
				msg = toString(m)
			}
			return errorObject(name, msg), nil
		}), false)
	}

	g.declare("Math", mathObject(), false)
	g.declare("JSON", in.jsonObject(), false)
	g.declare("Array", in.arrayObject(), false)
	g.declare("Object", in.objectObject(), false)
}

func mathObject() *Object {
	m := NewObject()
	unary := map[string]func(float64) float64{
		"floor": math.Floor,
		"ceil":  math.Ceil,
		"abs":   math.Abs,
		"sqrt":  math.Sqrt,
		"trunc": math.Trunc,
		"round": func(x float64) float64 { return math.Floor(x + 0.5) },
		"sign": func(x float64) float64 {
			switch {
			case x > 0:
				return 1
			case x < 0:
				return -1
			}
			return x
		},
	}
	for name, fn := range unary {
		fn := fn
		_ = m.Set(name, native(name, func(args []Value) (Value, error) {
			return fn(toNumber(arg(args, 0))), nil
		}))
	}
	_ = m.Set("pow", native("pow", func(args []Value) (Value, error) {
		return math.Pow(toNumber(arg(args, 0)), toNumber(arg(args, 1))), nil
	}))
	_ = m.Set("max", native("max", func(args []Value) (Value, error) {
		out := math.Inf(-1)
		for _, a := range args {
			out = math.Max(out, toNumber(a))
		}
		return out, nil
	}))
	_ = m.Set("min", native("min", func(args []Value) (Value, error) {
		out := math.Inf(1)
		for _, a := range args {
			out = math.Min(out, toNumber(a))
		}
		return out, nil
	}))
	_ = m.Set("PI", math.Pi)
	return m
}

func (in *interp) jsonObject() *Object {
	j := NewObject()
	_ = j.Set("stringify", native("stringify", func(args []Value) (Value, error) {
		var b strings.Builder
		if !writeJSON(&b, arg(args, 0)) {
			return Undefined, nil
		}
		return b.String(), nil
	}))
	return j
}

// writeJSON serializes v in property insertion order, which the standard
// encoder cannot do for map data. It reports false for values JSON omits.
func writeJSON(b *strings.Builder, v Value) bool {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(toString(x))
	case string:
		b.WriteString(strconv.Quote(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			b.WriteString("null")
		} else {
			b.WriteString(ast.FormatNumber(x))
		}
	case *Array:
		b.WriteByte('[')
		for i, item := range x.Items {
			if i > 0 {
				b.WriteByte(',')
			}
			if !writeJSON(b, item) {
				b.WriteString("null")
			}
		}
		b.WriteByte(']')
	case *Object:
		b.WriteByte('{')
		first := true
		for _, k := range x.Keys() {
			val := x.peekProp(k)
			if val == Undefined || isCallable(val) {
				continue
			}
			if !first {
				b.WriteByte(',')
			}
			first = false
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			writeJSON(b, val)
		}
		b.WriteByte('}')
	case *Signal:
		return writeJSON(b, x.peek())
	default:
		return false
	}
	return true
}

func (in *interp) arrayObject() *Object {
	a := NewObject()
	_ = a.Set("isArray", native("isArray", func(args []Value) (Value, error) {
		_, ok := arg(args, 0).(*Array)
		return ok, nil
	}))
	_ = a.Set("from", native("from", func(args []Value) (Value, error) {
		src := arg(args, 0)
		var items []Value
		if o, ok := src.(*Object); ok {
			n := int(toNumber(o.Get("length")))
			for i := 0; i < n; i++ {
				items = append(items, Undefined)
			}
		} else {
			var err error
			if items, err = iterate(src); err != nil {
				return nil, err
			}
		}
		out := &Array{Items: items}
		if fn := arg(args, 1); isCallable(fn) {
			for i, item := range out.Items {
				r, err := in.call(fn, []Value{item, float64(i)})
				if err != nil {
					return nil, err
				}
				out.Items[i] = r
			}
		}
		return out, nil
	}))
	return a
}

func (in *interp) objectObject() *Object {
	o := NewObject()
	keysOf := func(v Value) []string {
		if obj, ok := v.(*Object); ok {
			return obj.Keys()
		}
		return nil
	}
	_ = o.Set("keys", native("keys", func(args []Value) (Value, error) {
		out := &Array{}
		for _, k := range keysOf(arg(args, 0)) {
			out.Items = append(out.Items, k)
		}
		return out, nil
	}))
	_ = o.Set("values", native("values", func(args []Value) (Value, error) {
		out := &Array{}
		src, _ := arg(args, 0).(*Object)
		for _, k := range keysOf(src) {
			out.Items = append(out.Items, src.Get(k))
		}
		return out, nil
	}))
	_ = o.Set("entries", native("entries", func(args []Value) (Value, error) {
		out := &Array{}
		src, _ := arg(args, 0).(*Object)
		for _, k := range keysOf(src) {
			out.Items = append(out.Items, NewArray(k, src.Get(k)))
		}
		return out, nil
	}))
	_ = o.Set("assign", native("assign", func(args []Value) (Value, error) {
		target, ok := arg(args, 0).(*Object)
		if !ok {
			return nil, typeError("Cannot convert undefined or null to object")
		}
		for _, src := range args[1:] {
			if s, ok := src.(*Object); ok {
				for _, k := range s.Keys() {
					if err := target.Set(k, s.Get(k)); err != nil {
						return nil, err
					}
				}
			}
		}
		return target, nil
	}))
	_ = o.Set("freeze", native("freeze", func(args []Value) (Value, error) {
		return arg(args, 0), nil
	}))
	return o
}

// parseLocale resolves a BCP 47 tag, falling back to English.
func parseLocale(tag string) language.Tag {
	if tag == "" {
		return language.English
	}
	t, err := language.Parse(tag)
	if err != nil {
		return language.English
	}
	return t
}
