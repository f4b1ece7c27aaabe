package engine

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/roach88/wisp/internal/ast"
)

// bindImport declares the names an import statement binds. Only the
// configured runtime module resolves; other modules bind undefined, so
// calling into them fails with NOT_CALLABLE.
func (e *Engine) bindImport(d *ast.SImport) {
	if d.Path != e.cfg.Runtime.Module {
		e.logger.Debug("unresolved import", "path", e.path, "module", d.Path)
		for _, item := range d.Items {
			e.module.declare(item.LocalName(), Undefined, true)
		}
		if d.DefaultName != "" {
			e.module.declare(d.DefaultName, Undefined, true)
		}
		if d.NamespaceName != "" {
			e.module.declare(d.NamespaceName, Undefined, true)
		}
		return
	}

	exports := e.runtimeExports()
	for _, item := range d.Items {
		e.module.declare(item.LocalName(), exports.Get(item.Name), true)
	}
	if d.NamespaceName != "" {
		e.module.declare(d.NamespaceName, exports, true)
	}
	if d.DefaultName != "" {
		e.module.declare(d.DefaultName, Undefined, true)
	}
}

// runtimeExports is what the runtime module exports: the register
// function, the markup sentinels and the capabilities as free functions.
func (e *Engine) runtimeExports() *Object {
	exports := NewObject()
	_ = exports.Set(e.cfg.Runtime.Register, native(e.cfg.Runtime.Register, e.register))
	_ = exports.Set(e.cfg.Runtime.On, e.on)
	_ = exports.Set(e.cfg.Runtime.Off, e.off)
	caps := e.contextObject()
	for _, k := range caps.Keys() {
		_ = exports.Set(k, caps.Get(k))
	}
	return exports
}

func (e *Engine) register(args []Value) (Value, error) {
	fn := arg(args, 0)
	if !isCallable(fn) {
		return nil, typeError("%s expects a component function", e.cfg.Runtime.Register)
	}
	c := &Component{Fn: fn, Name: "Component"}
	if cl, ok := fn.(*Closure); ok && cl.fn.Name != "" {
		c.Name = cl.fn.Name
	}
	if list, ok := arg(args, 1).(*Array); ok {
		for _, p := range list.Items {
			c.Props = append(c.Props, toString(p))
		}
	}
	return c, nil
}

// contextObject is the capability object passed as a component's second
// parameter. It is built once per engine.
func (e *Engine) contextObject() *Object {
	if e.ctxObj != nil {
		return e.ctxObj
	}
	g := e.g
	ctx := NewObject()
	_ = ctx.Set("state", native("state", func(args []Value) (Value, error) {
		return g.newSignal(arg(args, 0)), nil
	}))
	_ = ctx.Set("derived", native("derived", func(args []Value) (Value, error) {
		fn := arg(args, 0)
		if !isCallable(fn) {
			return nil, typeError("derived expects a function, got %s", inspect(fn, 0))
		}
		return g.newDerived(fn), nil
	}))
	_ = ctx.Set("effect", native("effect", func(args []Value) (Value, error) {
		fn := arg(args, 0)
		if !isCallable(fn) {
			return nil, typeError("effect expects a function, got %s", inspect(fn, 0))
		}
		return Undefined, g.createEffect(fn)
	}))
	_ = ctx.Set("cleanup", native("cleanup", func(args []Value) (Value, error) {
		return Undefined, g.addCleanup(arg(args, 0), arg(args, 1))
	}))
	_ = ctx.Set("store", native("store", func(args []Value) (Value, error) {
		return g.newStore(arg(args, 0)), nil
	}))
	_ = ctx.Set("onMount", native("onMount", func(args []Value) (Value, error) {
		fn := arg(args, 0)
		if !isCallable(fn) {
			return nil, typeError("onMount expects a function, got %s", inspect(fn, 0))
		}
		if e.mounted {
			return Undefined, e.callOnMount(fn)
		}
		e.onMounts = append(e.onMounts, fn)
		return Undefined, nil
	}))
	_ = ctx.Set("css", native("css", e.css))
	_ = ctx.Set("useContext", native("useContext", func(args []Value) (Value, error) {
		v, ok := e.contextVals[toString(arg(args, 0))]
		if !ok {
			return Undefined, nil
		}
		return FromGo(v), nil
	}))
	_ = ctx.Set(e.cfg.I18n.Capability, e.i18nObject())
	e.ctxObj = ctx
	return ctx
}

func (e *Engine) callOnMount(fn Value) error {
	res, err := e.g.untracked(func() (Value, error) {
		return e.in.call(fn, nil)
	})
	if err != nil {
		return err
	}
	if isCallable(res) {
		e.g.root.cleanups = append(e.g.root.cleanups, res)
	}
	return nil
}

// newStore creates an object whose every key is backed by a signal.
func (g *graph) newStore(init Value) *Object {
	s := &Object{props: map[string]Value{}, store: map[string]*Signal{}, graph: g}
	if src, ok := init.(*Object); ok {
		for _, k := range src.Keys() {
			_ = s.Set(k, src.Get(k))
		}
	}
	return s
}

// css registers a style sheet and returns its generated class name. It
// accepts a string or a tagged template.
func (e *Engine) css(args []Value) (Value, error) {
	var text string
	switch first := arg(args, 0).(type) {
	case *Array:
		var b strings.Builder
		for i, part := range first.Items {
			b.WriteString(toString(part))
			if i+1 < len(args) && i+1 < len(first.Items) {
				b.WriteString(toString(args[i+1]))
			}
		}
		text = b.String()
	default:
		text = toString(first)
	}
	text = strings.TrimSpace(text)

	h := fnv.New32a()
	h.Write([]byte(text))
	name := fmt.Sprintf("wisp-%08x", h.Sum32())
	sheet := "." + name + " { " + text + " }"
	for _, s := range e.styles {
		if s == sheet {
			return name, nil
		}
	}
	e.styles = append(e.styles, sheet)
	return name, nil
}

// i18nObject is the translation capability: a translate function and the
// active locale.
func (e *Engine) i18nObject() *Object {
	obj := NewObject()
	translate := e.cfg.I18n.Translate
	_ = obj.Set(translate, native(translate, func(args []Value) (Value, error) {
		key := toString(arg(args, 0))
		msg, ok := e.translations[key]
		if !ok {
			msg = key
		}
		if params, ok := arg(args, 1).(*Object); ok {
			for _, k := range params.Keys() {
				msg = strings.ReplaceAll(msg, "{"+k+"}", toString(params.Get(k)))
			}
		}
		return msg, nil
	}))
	_ = obj.Set("locale", e.in.locale.String())
	return obj
}
