// Package transform compiles component modules into fine-grained reactive
// form.
//
// The pipeline runs strictly forward over a clone of the input tree:
//
//	Locate -> lower markup -> bind props -> unify returns ->
//	synthesize effects -> propagate to static variants -> assemble
//
// Every invocation owns its state. Nothing is shared between files, so
// callers may transform many files in parallel.
package transform

import (
	"context"
	"fmt"

	"github.com/roach88/wisp/internal/ast"
	"github.com/roach88/wisp/internal/config"
	"github.com/roach88/wisp/internal/parser"
	"github.com/roach88/wisp/internal/printer"
)

// TagResolver decides whether an identifier used as a tag refers to a
// native element rather than another compiled component. source is the
// import path the identifier came from, as written in fromPath.
type TagResolver interface {
	IsNative(fromPath, source, name string) bool
}

// Options configures a transform. A nil Config means config.Default().
type Options struct {
	Config      *config.Config
	Logger      Logger
	TagResolver TagResolver
}

// Result is the outcome of transforming one module.
type Result struct {
	Code string

	// UsesI18n reports whether the component reaches the translation
	// capability; I18nKeys are the keys it passes to translate, sorted.
	UsesI18n bool
	I18nKeys []string

	// Component is the exported component's name, empty when the module
	// has none.
	Component string

	// Props is the sorted union of the component's and its variants' props.
	Props    []string
	Variants []string

	Diagnostics []Diagnostic
}

// HasErrors reports whether any error diagnostic was produced.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// settings is the resolved, lookup-friendly form of the configuration.
type settings struct {
	cfg       *config.Config
	factories NameSet
	fragments NameSet
	booleans  NameSet
	resolver  TagResolver
	imports   map[string]string
}

func newSettings(cfg *config.Config, resolver TagResolver) *settings {
	s := &settings{
		cfg:       cfg,
		factories: NameSet{},
		fragments: NameSet{},
		booleans:  NameSet{},
		resolver:  resolver,
		imports:   map[string]string{},
	}
	s.factories.Add(cfg.Markup.Factories...)
	s.fragments.Add(cfg.Markup.Fragments...)
	s.booleans.Add(cfg.Markup.BooleanAttributes...)
	return s
}

// fileTransform is the state of one module transform.
type fileTransform struct {
	prog     *ast.Program
	s        *settings
	rep      *reporter
	usage    *usage
	variants []string
}

// usage tracks which runtime sentinels the output references.
type usage struct {
	on  bool
	off bool
}

// component is the state of the passes over one component or variant
// function.
type component struct {
	fn    *ast.Fn
	name  string
	props []string
	path  string

	s     *settings
	rep   *reporter
	usage *usage

	scope    NameSet
	names    *NameGen
	caps     *capabilities
	reads    *propReads
	bindings []*PropBinding
	effects  []*effectNode
	event    string
}

func (t *fileTransform) newComponent(fn *ast.Fn, name string, props []string) *component {
	scope := CollectScope(fn)
	c := &component{
		fn:    fn,
		name:  name,
		props: props,
		path:  t.prog.Path,
		s:     t.s,
		rep:   t.rep,
		usage: t.usage,
		scope: scope,
		names: NewNameGen(scope),
		caps:  readCapabilities(fn),
	}
	c.collectBindings()
	return c
}

// run applies the component passes in order.
func (c *component) run() {
	c.warnUnsupported()
	c.lowerMarkup()
	c.bindProps()
	c.unifyReturns()
	c.synthesizeEffects()
}

// warnUnsupported reports syntax the parser kept as source text. No pass
// looks inside it, so prop reads there are never bound.
func (c *component) warnUnsupported() {
	var first ast.Loc
	count := 0
	note := func(loc ast.Loc) {
		if count == 0 {
			first = loc
		}
		count++
	}
	v := &ast.Visitor{
		EnterExpr: func(e *ast.Expr) bool {
			if _, ok := e.Data.(*ast.ERaw); ok {
				note(e.Loc)
			}
			return true
		},
		EnterStmt: func(s *ast.Stmt) bool {
			if _, ok := s.Data.(*ast.SRaw); ok {
				note(s.Loc)
			}
			return true
		},
	}
	v.Fn(c.fn)
	if count == 0 {
		return
	}
	c.rep.warnf(CodeUnsupported, first,
		"component %s contains %d construct(s) the compiler passes through unchanged; prop reads inside them are not reactive",
		c.displayName(), count)
}

func (c *component) displayName() string {
	if c.name == "" {
		return "(anonymous)"
	}
	return c.name
}

// TransformTree transforms a parsed module. The input is not modified; the
// returned program is an independent copy. A module without a default
// exported component passes through unchanged.
func TransformTree(p *ast.Program, opts Options) (*ast.Program, *Result) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	prog := ast.CloneProgram(p)
	t := &fileTransform{
		prog:  prog,
		s:     newSettings(cfg, opts.TagResolver),
		rep:   &reporter{path: prog.Path, docsURL: cfg.Docs.BaseURL, logger: opts.Logger},
		usage: &usage{},
	}
	result := &Result{}

	loc := Locate(prog)
	if loc == nil {
		return prog, result
	}
	t.recordImports()

	// Translation detection reads the tree as written.
	i18n := &i18nUsage{keys: NameSet{}}
	names := i18nNames{capability: cfg.I18n.Capability, translate: cfg.I18n.Translate}
	i18n.detect(loc.Fn, names)
	for _, v := range findVariants(prog, loc.Name, cfg.Variants, loc.Fn) {
		i18n.detect(v.fn, names)
	}
	overridden := loc.Name != "" && i18n.overrides(prog, loc.Name, cfg.I18n.OverrideProperty)
	if i18n.uses && !overridden {
		i18n.warnDynamic(t.rep)
	}

	main := t.newComponent(loc.Fn, loc.Name, loc.Props)
	main.run()
	variantProps := t.propagateVariants(loc.Name, loc.Fn)

	result.Component = t.assemble(loc, sortedUnion(loc.Props, variantProps))
	result.Props = sortedUnion(loc.Props, variantProps)
	result.Variants = t.variants
	result.UsesI18n = i18n.uses || overridden
	if result.UsesI18n {
		result.I18nKeys = i18n.keys.Sorted()
	}
	result.Diagnostics = t.rep.diags
	return prog, result
}

// recordImports maps local import names to their sources for tag
// resolution.
func (t *fileTransform) recordImports() {
	for _, s := range t.prog.Stmts {
		imp, ok := s.Data.(*ast.SImport)
		if !ok {
			continue
		}
		if imp.DefaultName != "" {
			t.s.imports[imp.DefaultName] = imp.Path
		}
		if imp.NamespaceName != "" {
			t.s.imports[imp.NamespaceName] = imp.Path
		}
		for _, item := range imp.Items {
			t.s.imports[item.LocalName()] = imp.Path
		}
	}
}

// Compile parses src, transforms it and prints the result. Only a parse
// failure returns an error; everything else is reported as diagnostics.
func Compile(ctx context.Context, src []byte, path string, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
		opts.Config = cfg
	}
	p := parser.New(parser.WithJSX(JSXOptions(cfg)))
	prog, err := p.Parse(ctx, path, src)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	out, result := TransformTree(prog, opts)
	result.Code = printer.Print(out)
	return result, nil
}

// JSXOptions derives the parser's JSX factory names from the markup
// configuration, so parsed markup is recognized by lowering.
func JSXOptions(cfg *config.Config) parser.JSXOptions {
	opts := parser.DefaultJSX
	if f := cfg.Markup.Factories; len(f) > 0 {
		opts.Single = f[0]
		opts.Multi = f[0]
		if len(f) > 1 {
			opts.Multi = f[1]
		}
	}
	if len(cfg.Markup.Fragments) > 0 {
		opts.Fragment = cfg.Markup.Fragments[0]
	}
	return opts
}
