package engine

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/wisp/internal/ast"
)

// Value is a runtime value. The concrete types are:
//
//	undefined            Undefined
//	null                 nil
//	number               float64
//	string, boolean      string, bool
//	object, array        *Object, *Array
//	functions            *Closure, *Native, *DepFunc, *Component
//	signals              *Signal
//	markup sentinels     *Sentinel
type Value any

type undefinedType struct{}

// Undefined is the JavaScript undefined value.
var Undefined Value = undefinedType{}

// Object is an ordered property map. Store objects back every key with a
// signal, so reads are tracked and writes notify.
type Object struct {
	keys  []string
	props map[string]Value
	store map[string]*Signal
	graph *graph
}

// NewObject creates an empty object.
func NewObject() *Object {
	return &Object{props: map[string]Value{}}
}

// Get returns the property value, or Undefined.
func (o *Object) Get(key string) Value {
	if s, ok := o.store[key]; ok {
		// Store signals are never derived, so reads cannot fail.
		v, _ := s.Get()
		return v
	}
	if v, ok := o.props[key]; ok {
		return v
	}
	return Undefined
}

// Has reports whether the object has an own property key.
func (o *Object) Has(key string) bool {
	if _, ok := o.store[key]; ok {
		return true
	}
	_, ok := o.props[key]
	return ok
}

// Set assigns a property, keeping first-insertion order. New keys of a
// store object get their own signal.
func (o *Object) Set(key string, v Value) error {
	if o.store != nil {
		if s, ok := o.store[key]; ok {
			return s.Set(v)
		}
		o.keys = append(o.keys, key)
		o.store[key] = o.newSignal(v)
		return nil
	}
	if _, ok := o.props[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.props[key] = v
	return nil
}

// peekProp reads a property without tracking.
func (o *Object) peekProp(key string) Value {
	if s, ok := o.store[key]; ok {
		return s.peek()
	}
	if v, ok := o.props[key]; ok {
		return v
	}
	return Undefined
}

// Delete removes a property.
func (o *Object) Delete(key string) {
	if !o.Has(key) {
		return
	}
	delete(o.props, key)
	delete(o.store, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the own property names in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Array is a JavaScript array.
type Array struct {
	Items []Value
}

// NewArray creates an array holding items.
func NewArray(items ...Value) *Array {
	return &Array{Items: items}
}

// Closure is a function defined by interpreted code.
type Closure struct {
	fn    *ast.Fn
	env   *scope
	props *Object
}

// Name returns the declared function name.
func (c *Closure) Name() string {
	return c.fn.Name
}

// Native is a function implemented by the engine.
type Native struct {
	name string
	call func(args []Value) (Value, error)
}

// Sentinel is a unique marker value, such as the markup on/off sentinels.
type Sentinel struct {
	name string
}

// Component is a registered component function and its declared props.
type Component struct {
	Fn    Value
	Props []string
	Name  string
}

// ownedFn is an effect callback claimed by a dependency function.
type ownedFn struct {
	fn    Value
	owner *run
}

func isCallable(v Value) bool {
	switch v.(type) {
	case *Closure, *Native, *DepFunc, *Component, *ownedFn:
		return true
	}
	return false
}

func isNullish(v Value) bool {
	return v == nil || v == Undefined
}

func truthy(v Value) bool {
	switch x := v.(type) {
	case nil, undefinedType:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	}
	return true
}

func typeOf(v Value) string {
	switch v.(type) {
	case undefinedType:
		return "undefined"
	case nil:
		return "object"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	}
	if isCallable(v) {
		return "function"
	}
	return "object"
}

func toNumber(v Value) float64 {
	switch x := v.(type) {
	case undefinedType:
		return math.NaN()
	case nil:
		return 0
	case bool:
		if x {
			return 1
		}
		return 0
	case float64:
		return x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			if n, err := strconv.ParseInt(s[2:], 16, 64); err == nil {
				return float64(n)
			}
		}
		return math.NaN()
	case *Array:
		if len(x.Items) == 0 {
			return 0
		}
		if len(x.Items) == 1 {
			return toNumber(toString(x.Items[0]))
		}
	}
	return math.NaN()
}

func toInt32(v Value) int32 {
	f := toNumber(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int32(uint32(int64(math.Trunc(f))))
}

// toString converts like String(v).
func toString(v Value) string {
	switch x := v.(type) {
	case undefinedType:
		return "undefined"
	case nil:
		return "null"
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		return ast.FormatNumber(x)
	case string:
		return x
	case *Array:
		parts := make([]string, len(x.Items))
		for i, item := range x.Items {
			if !isNullish(item) {
				parts[i] = toString(item)
			}
		}
		return strings.Join(parts, ",")
	case *Sentinel:
		return x.name
	case *Signal:
		return "[object Signal]"
	}
	if isCallable(v) {
		return "function"
	}
	return "[object Object]"
}

// display formats a value for the trace, like console.log does: strings
// bare at the top level, quoted inside containers.
func display(v Value) string {
	if s, ok := v.(string); ok {
		return s
	}
	return inspect(v, 0)
}

func inspect(v Value, depth int) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case *Array:
		if depth > 2 {
			return "[Array]"
		}
		parts := make([]string, len(x.Items))
		for i, item := range x.Items {
			parts[i] = inspect(item, depth+1)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Object:
		if depth > 2 {
			return "[Object]"
		}
		keys := x.Keys()
		if len(keys) == 0 {
			return "{}"
		}
		parts := make([]string, len(keys))
		for i, k := range keys {
			name := k
			if !ast.IsValidIdentifier(k) {
				name = strconv.Quote(k)
			}
			parts[i] = name + ": " + inspect(x.peekProp(k), depth+1)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case *Signal:
		return "Signal(" + inspect(x.peek(), depth+1) + ")"
	case *Closure:
		if x.fn.Name != "" {
			return "[Function: " + x.fn.Name + "]"
		}
		return "[Function (anonymous)]"
	case *Native:
		return "[Function: " + x.name + "]"
	case *DepFunc:
		return "[Function: dep " + ast.FormatNumber(x.run.id) + "]"
	case *Component:
		return "[Component: " + x.Name + "]"
	}
	return toString(v)
}

// strictEquals implements ===.
func strictEquals(a, b Value) bool {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case nil:
		return b == nil
	case undefinedType:
		return b == Undefined
	}
	return a == b
}

// looseEquals implements == for primitives; objects compare by identity.
func looseEquals(a, b Value) bool {
	if isNullish(a) || isNullish(b) {
		return isNullish(a) && isNullish(b)
	}
	if typeOf(a) == typeOf(b) {
		return strictEquals(a, b)
	}
	_, aObj := a.(*Object)
	_, bObj := b.(*Object)
	if aObj || bObj {
		return false
	}
	if as, ok := a.(string); ok {
		if _, isArr := b.(*Array); isArr {
			return as == toString(b)
		}
	}
	return toNumber(a) == toNumber(b)
}

// FromGo converts decoded YAML or JSON data into a runtime value.
func FromGo(v any) Value {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		return x
	case string:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	case []any:
		arr := &Array{Items: make([]Value, len(x))}
		for i, item := range x {
			arr.Items[i] = FromGo(item)
		}
		return arr
	case map[string]any:
		obj := NewObject()
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_ = obj.Set(k, FromGo(x[k]))
		}
		return obj
	}
	return Undefined
}

// ToGo converts a runtime value into plain Go data. Functions and
// sentinels become their display strings; signals are read untracked.
func ToGo(v Value) any {
	switch x := v.(type) {
	case nil, undefinedType:
		return nil
	case bool, float64, string:
		return x
	case *Array:
		out := make([]any, len(x.Items))
		for i, item := range x.Items {
			out[i] = ToGo(item)
		}
		return out
	case *Object:
		out := map[string]any{}
		for _, k := range x.Keys() {
			out[k] = ToGo(x.peekProp(k))
		}
		return out
	case *Signal:
		return ToGo(x.peek())
	}
	return inspect(v, 0)
}
