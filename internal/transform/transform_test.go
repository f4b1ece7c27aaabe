package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wisp/internal/ast"
	"github.com/roach88/wisp/internal/config"
	"github.com/roach88/wisp/internal/parser"
)

func compile(t *testing.T, src string) *Result {
	t.Helper()
	return compileWith(t, "component.jsx", src, Options{})
}

func compileWith(t *testing.T, path, src string, opts Options) *Result {
	t.Helper()
	result, err := Compile(context.Background(), []byte(src), path, opts)
	require.NoError(t, err)
	return result
}

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := parser.New().Parse(context.Background(), "component.jsx", []byte(src))
	require.NoError(t, err)
	return prog
}

// testComponent prepares the pass state for the default-exported component
// without running any pass.
func testComponent(t *testing.T, src string) (*fileTransform, *component) {
	t.Helper()
	prog := parse(t, src)
	cfg := config.Default()
	ft := &fileTransform{
		prog:  prog,
		s:     newSettings(cfg, nil),
		rep:   &reporter{path: prog.Path, docsURL: cfg.Docs.BaseURL},
		usage: &usage{},
	}
	loc := Locate(prog)
	require.NotNil(t, loc, "no component located")
	ft.recordImports()
	return ft, ft.newComponent(loc.Fn, loc.Name, loc.Props)
}

func codes(diags []Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

func TestCompileCounter(t *testing.T) {
	result := compile(t, `export default function Counter({ count }) {
  return <p class={count}>{count} {count}</p>;
}`)

	want := `import { reactiveElement } from "wisp/client";
function Counter({ count }) {
  return ["p", { class: () => count.value }, [[null, {}, () => count.value], " ", [null, {}, () => count.value]]];
}
export default reactiveElement(Counter, ["count"]);
`
	assert.Equal(t, want, result.Code)
	assert.Equal(t, "Counter", result.Component)
	assert.Equal(t, []string{"count"}, result.Props)
	assert.Empty(t, result.Diagnostics)
	assert.False(t, result.UsesI18n)
}

func TestCompileDerivedDefault(t *testing.T) {
	result := compile(t, `export default function Label({ foo = 1 }) {
  return <p>{foo}</p>;
}`)

	want := `import { reactiveElement } from "wisp/client";
function Label({ foo: _foo }, { derived }) {
  const foo = derived(() => _foo.value ?? 1);
  return ["p", {}, () => foo.value];
}
export default reactiveElement(Label, ["foo"]);
`
	assert.Equal(t, want, result.Code)
}

func TestCompileConditionalReturnsMatchTernary(t *testing.T) {
	ifElse := compile(t, `export default function Badge({ active }) {
  if (active) return <b>yes</b>;
  return <i>no</i>;
}`)
	ternary := compile(t, `export default function Badge({ active }) {
  return active ? <b>yes</b> : <i>no</i>;
}`)

	assert.Equal(t, ternary.Code, ifElse.Code)
	assert.Contains(t, ifElse.Code, `return [null, {}, () => active.value ? ["b", {}, "yes"] : ["i", {}, "no"]];`)
}

func TestCompileEffectNamesAvoidCollisions(t *testing.T) {
	result := compile(t, `export default function Ticker({ n }, { effect }) {
  const r = 0;
  effect(() => {
    console.log(n, r);
  });
  return <p>{n}</p>;
}`)

	assert.Contains(t, result.Code, "effect((r1) => {")
	assert.Contains(t, result.Code, "console.log(n.value, r);")
}

func TestCompileNestedEffects(t *testing.T) {
	result := compile(t, `export default function Timer(props, { effect, cleanup }) {
  effect(() => {
    const id = setInterval(tick, 1000);
    effect(() => cleanup(() => clearInterval(id)));
  });
  return <p>tick</p>;
}`)

	assert.Contains(t, result.Code, "effect((r) => {")
	assert.Contains(t, result.Code, "effect(r((r1) => cleanup(() => clearInterval(id), r1.id)));")
}

func TestCompileComponentTag(t *testing.T) {
	src := `import Card from "./card.jsx";
export default function List() {
  return <div><Card /></div>;
}`

	t.Run("rejected", func(t *testing.T) {
		result := compile(t, src)
		require.Len(t, result.Diagnostics, 1)
		d := result.Diagnostics[0]
		assert.Equal(t, SeverityError, d.Severity)
		assert.Equal(t, CodeComponentTag, d.Code)
		assert.Len(t, d.Lines, 2)
		assert.Equal(t, "https://wisp.dev/docs/diagnostics/component-tag", d.DocsURL)
		assert.True(t, result.HasErrors())
		assert.Contains(t, result.Code, `return ["div", {}, [null, {}, ""]];`)
	})

	t.Run("allow-listed", func(t *testing.T) {
		cfg := config.Default()
		cfg.Markup.AllowedComponentTags = []string{"Ca*"}
		result := compileWith(t, "component.jsx", src, Options{Config: cfg})
		assert.Empty(t, result.Diagnostics)
		assert.Contains(t, result.Code, `return ["div", {}, [Card, {}, ""]];`)
	})

	t.Run("native path", func(t *testing.T) {
		cfg := config.Default()
		cfg.Markup.NativePaths = []string{"/native/"}
		result := compileWith(t, "src/native/list.jsx", src, Options{Config: cfg})
		assert.Empty(t, result.Diagnostics)
	})
}

func TestCompilePassThrough(t *testing.T) {
	result := compile(t, `export const answer = 42;`)
	assert.Equal(t, "export const answer = 42;\n", result.Code)
	assert.Empty(t, result.Component)
	assert.Empty(t, result.Diagnostics)
}

func TestCompileMissingReturn(t *testing.T) {
	result := compile(t, `export default function Empty() {
  console.log("hi");
}`)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, CodeMissingReturn, result.Diagnostics[0].Code)
	assert.Len(t, result.Diagnostics[0].Lines, 2)
	assert.Contains(t, result.Code, "export default reactiveElement(Empty, []);")
}

func TestCompileWarnsOnUnsupportedSyntax(t *testing.T) {
	result := compile(t, `export default function Counter({ count }) {
  class Box {
    get value() { return count; }
  }
  const big = 10n;
  return <p>{count}</p>;
}`)
	require.Equal(t, []string{CodeUnsupported}, codes(result.Diagnostics))
	d := result.Diagnostics[0]
	assert.Equal(t, SeverityWarning, d.Severity)
	assert.Equal(t, 2, d.Loc.Line)
	assert.Contains(t, d.Message(), "component Counter contains 2 construct(s)")
	assert.Contains(t, result.Code, "class Box")

	// Unsupported syntax outside the component is not reported.
	result = compile(t, `class Store {}
export default function Counter({ count }) {
  return <p>{count}</p>;
}`)
	assert.Empty(t, result.Diagnostics)
}

func TestCompileParseError(t *testing.T) {
	_, err := Compile(context.Background(), []byte(`export default function (`), "broken.jsx", Options{})
	require.Error(t, err)
	var perr *parser.ParseError
	assert.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "broken.jsx")
}

func TestCompileForwardsDiagnosticsToLogger(t *testing.T) {
	rec := &Recorder{}
	compileWith(t, "component.jsx", `import Card from "./card.jsx";
export default function List() { return <Card />; }`, Options{Logger: rec})

	diags := rec.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, CodeComponentTag, diags[0].Code)
	assert.Equal(t, "component.jsx", diags[0].Path)
}

func TestTransformTreeDoesNotModifyInput(t *testing.T) {
	prog := parse(t, `export default function Counter({ count }) { return <p>{count}</p>; }`)
	before, err := ast.Canonical(prog)
	require.NoError(t, err)

	_, result := TransformTree(prog, Options{})
	assert.Equal(t, "Counter", result.Component)

	after, err := ast.Canonical(prog)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestCompileIsDeterministic(t *testing.T) {
	src := `export default function Card({ title, subtitle = "none" }, { effect }) {
  effect(() => console.log(title));
  return <section><h1>{title}</h1><h2>{subtitle}</h2></section>;
}`
	first := compile(t, src)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first.Code, compile(t, src).Code)
	}
}

func TestJSXOptionsFollowsConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Markup.Factories = []string{"h"}
	cfg.Markup.Fragments = []string{"Frag"}

	opts := JSXOptions(cfg)
	assert.Equal(t, "h", opts.Single)
	assert.Equal(t, "h", opts.Multi)
	assert.Equal(t, "Frag", opts.Fragment)

	result := compileWith(t, "component.jsx", `export default function A() { return <><b>x</b></>; }`, Options{Config: cfg})
	assert.Contains(t, result.Code, `return [null, {}, ["b", {}, "x"]];`)
}
