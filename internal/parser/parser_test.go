package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wisp/internal/ast"
)

func parse(t *testing.T, path, src string) *ast.Program {
	t.Helper()
	prog, err := New().Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	return prog
}

func exportedFn(t *testing.T, prog *ast.Program) *ast.Fn {
	t.Helper()
	for _, s := range prog.Stmts {
		if ed, ok := s.Data.(*ast.SExportDefault); ok {
			switch v := ed.Value.Data.(type) {
			case *ast.SFunction:
				return v.Fn
			case *ast.SExpr:
				fn, ok := ast.FunctionOf(v.Value)
				require.True(t, ok, "default export is not a function")
				return fn
			}
		}
	}
	t.Fatal("no default export")
	return nil
}

func returned(t *testing.T, fn *ast.Fn) ast.Expr {
	t.Helper()
	for _, s := range fn.Body.Stmts {
		if r, ok := s.Data.(*ast.SReturn); ok {
			return r.Value
		}
	}
	t.Fatal("no return")
	return ast.Expr{}
}

func TestParseComponentShapes(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"function declaration", `export default function Counter({ count }) { return <p>{count}</p>; }`},
		{"anonymous function", `export default function ({ count }) { return <p>{count}</p>; }`},
		{"arrow", `export default ({ count }) => <p>{count}</p>;`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := parse(t, "Counter.jsx", tt.src)
			fn := exportedFn(t, prog)
			require.Len(t, fn.Args, 1)

			obj, ok := fn.Args[0].Binding.Data.(*ast.BObject)
			require.True(t, ok)
			require.Len(t, obj.Properties, 1)
			key, _ := obj.Properties[0].KeyName()
			assert.Equal(t, "count", key)

			call, ok := returned(t, fn).Data.(*ast.ECall)
			require.True(t, ok)
			name, _ := ast.IdentName(call.Target)
			assert.Equal(t, "jsx", name)
		})
	}
}

func TestParseJSXNormalization(t *testing.T) {
	prog := parse(t, "a.jsx", `export default () => (
  <ul class="list" hidden key={id}>
    <li>one</li>
    {items}
  </ul>
);`)
	call := returned(t, exportedFn(t, prog)).Data.(*ast.ECall)

	factory, _ := ast.IdentName(call.Target)
	assert.Equal(t, "jsxs", factory)
	require.Len(t, call.Args, 3, "tag, props, key")

	tag, ok := call.Args[0].Data.(*ast.EString)
	require.True(t, ok)
	assert.Equal(t, "ul", tag.Value)

	key, _ := ast.IdentName(call.Args[2])
	assert.Equal(t, "id", key)

	props := call.Args[1].Data.(*ast.EObject)
	var names []string
	for i := range props.Properties {
		name, _ := props.Properties[i].KeyName()
		names = append(names, name)
	}
	assert.Equal(t, []string{"class", "hidden", "children"}, names)

	hidden := props.Properties[1].Value.Data.(*ast.EBoolean)
	assert.True(t, hidden.Value)

	children := props.Properties[2].Value.Data.(*ast.EArray)
	require.Len(t, children.Items, 2)
	inner := children.Items[0].Data.(*ast.ECall)
	innerProps := inner.Args[1].Data.(*ast.EObject)
	text := innerProps.Properties[0].Value.Data.(*ast.EString)
	assert.Equal(t, "one", text.Value)
}

func TestParseJSXFragmentAndComponentTags(t *testing.T) {
	prog := parse(t, "a.jsx", `export default () => <><Child a={1} /><my-el /></>;`)
	call := returned(t, exportedFn(t, prog)).Data.(*ast.ECall)

	tag, _ := ast.IdentName(call.Args[0])
	assert.Equal(t, "Fragment", tag)

	children := call.Args[1].Data.(*ast.EObject).Properties[0].Value.Data.(*ast.EArray)
	child := children.Items[0].Data.(*ast.ECall)
	childTag, ok := ast.IdentName(child.Args[0])
	require.True(t, ok, "capitalized tag is a reference")
	assert.Equal(t, "Child", childTag)

	custom := children.Items[1].Data.(*ast.ECall)
	customTag, ok := custom.Args[0].Data.(*ast.EString)
	require.True(t, ok, "dashed tag is intrinsic")
	assert.Equal(t, "my-el", customTag.Value)
}

func TestParseJSXTextWhitespace(t *testing.T) {
	prog := parse(t, "a.jsx", `export default ({ n }) => <p>
    Hello, {n}
    &amp; bye
  </p>;`)
	call := returned(t, exportedFn(t, prog)).Data.(*ast.ECall)
	children := call.Args[1].Data.(*ast.EObject).Properties[0].Value.Data.(*ast.EArray)
	require.Len(t, children.Items, 3)

	assert.Equal(t, "Hello, ", children.Items[0].Data.(*ast.EString).Value)
	assert.Equal(t, "& bye", children.Items[2].Data.(*ast.EString).Value)
}

func TestParseJSXSpaceBetweenExpressions(t *testing.T) {
	prog := parse(t, "a.jsx", `export default ({ a, b }) => <p>{a} {b}</p>;`)
	call := returned(t, exportedFn(t, prog)).Data.(*ast.ECall)
	children := call.Args[1].Data.(*ast.EObject).Properties[0].Value.Data.(*ast.EArray)
	require.Len(t, children.Items, 3)
	assert.Equal(t, " ", children.Items[1].Data.(*ast.EString).Value)
}

func TestParseTypeScriptProps(t *testing.T) {
	prog := parse(t, "Card.tsx", `
export type CardProps = { title: string; "sub-title"?: string }
export default function Card(props: CardProps) {
  const t = props.title as string;
  return <h1>{t}</h1>;
}`)

	shape, ok := prog.Stmts[0].Data.(*ast.STypeShape)
	require.True(t, ok)
	assert.True(t, shape.IsExport)
	assert.Equal(t, "CardProps", shape.Name)
	assert.Equal(t, []string{"title", "sub-title"}, shape.Fields)

	fn := exportedFn(t, prog)
	assert.Equal(t, "CardProps", fn.Args[0].TypeName)

	local := fn.Body.Stmts[0].Data.(*ast.SLocal)
	_, ok = local.Decls[0].Value.Data.(*ast.EDot)
	assert.True(t, ok, "as-expression erases to its operand")
}

func TestParseStatements(t *testing.T) {
	prog := parse(t, "a.js", `
import { h as html, x } from "lib";
import def, * as ns from "./ns.js";
let a = 1, b;
for (const item of list) { if (!item) continue; }
switch (k) { case 1: a++; break; default: b = 2; }
try { f(); } catch ({ message }) { g(message); } finally { done(); }
export { a as default };
`)
	require.Len(t, prog.Stmts, 7)

	imp := prog.Stmts[0].Data.(*ast.SImport)
	assert.Equal(t, "lib", imp.Path)
	assert.Equal(t, []ast.ClauseItem{{Name: "h", Alias: "html"}, {Name: "x"}}, imp.Items)

	imp2 := prog.Stmts[1].Data.(*ast.SImport)
	assert.Equal(t, "def", imp2.DefaultName)
	assert.Equal(t, "ns", imp2.NamespaceName)

	local := prog.Stmts[2].Data.(*ast.SLocal)
	assert.Equal(t, ast.LocalLet, local.Kind)
	assert.Len(t, local.Decls, 2)

	forOf, ok := prog.Stmts[3].Data.(*ast.SForOf)
	require.True(t, ok)
	init := forOf.Init.Data.(*ast.SLocal)
	assert.Equal(t, ast.LocalConst, init.Kind)

	sw := prog.Stmts[4].Data.(*ast.SSwitch)
	require.Len(t, sw.Cases, 2)
	assert.Len(t, sw.Cases[0].Body, 2)
	assert.True(t, sw.Cases[1].Value.IsMissing())

	try := prog.Stmts[5].Data.(*ast.STry)
	require.NotNil(t, try.Catch)
	assert.True(t, try.HasFinally)

	clause := prog.Stmts[6].Data.(*ast.SExportClause)
	assert.Equal(t, []ast.ClauseItem{{Name: "a", Alias: "default"}}, clause.Items)
}

func TestParseUnsupportedSyntaxIsRaw(t *testing.T) {
	prog := parse(t, "a.js", `class A { #x = 1 }`)
	require.Len(t, prog.Stmts, 1)
	raw, ok := prog.Stmts[0].Data.(*ast.SRaw)
	require.True(t, ok)
	assert.Equal(t, "class A { #x = 1 }", raw.Text)
}

func TestParseError(t *testing.T) {
	_, err := New().Parse(context.Background(), "bad.jsx", []byte("export default () => <div>;\n"))
	require.Error(t, err)
	assert.True(t, IsParseError(err))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "bad.jsx", pe.Path)
	assert.GreaterOrEqual(t, pe.Line, 1)
}

func TestParseCustomFactories(t *testing.T) {
	p := New(WithJSX(JSXOptions{Single: "h", Multi: "hs", Fragment: "Frag"}))
	prog, err := p.Parse(context.Background(), "a.jsx", []byte(`export default () => <>x</>;`))
	require.NoError(t, err)

	call := returned(t, exportedFn(t, prog)).Data.(*ast.ECall)
	factory, _ := ast.IdentName(call.Target)
	tag, _ := ast.IdentName(call.Args[0])
	assert.Equal(t, "h", factory)
	assert.Equal(t, "Frag", tag)
}

func TestLanguage(t *testing.T) {
	assert.Equal(t, "tsx", Language("a.tsx"))
	assert.Equal(t, "tsx", Language("a.TS"))
	assert.Equal(t, "javascript", Language("a.jsx"))
	assert.Equal(t, "javascript", Language("a.mjs"))
}

func TestCookString(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`plain`, "plain"},
		{`a\nb`, "a\nb"},
		{`\x41B\u{43}`, "ABC"},
		{`\uD83D\uDE00`, "\U0001F600"},
		{`it\'s`, "it's"},
		{`\q`, "q"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, CookString(tt.raw))
		})
	}
}

func TestCleanJSXText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello", "hello"},
		{"  a  b  ", "  a  b  "},
		{"\n   \n  ", ""},
		{"\n  Hello,\n  world\n", "Hello, world"},
		{"Hello, ", "Hello, "},
		{"\n  bye  ", "bye  "},
		{" ", " "},
		{"a ", "a "},
		{"\n  ", ""},
		{"a\n  b", "a b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanJSXText(tt.in), "input %q", tt.in)
	}
}
