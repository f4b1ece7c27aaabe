package printer

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wisp/internal/ast"
	"github.com/roach88/wisp/internal/parser"
)

func roundTrip(t *testing.T, src string) string {
	t.Helper()
	prog, err := parser.New().Parse(context.Background(), "a.js", []byte(src))
	require.NoError(t, err)
	return Print(prog)
}

func TestPrintRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"const", `const a = 1`, "const a = 1;\n"},
		{"precedence kept", `x = (a + b) * c`, "x = (a + b) * c;\n"},
		{"redundant parens dropped", `x = (a * b) + c`, "x = a * b + c;\n"},
		{"right assoc", `a = b = c`, "a = b = c;\n"},
		{"left assoc minus", `x = a - (b - c)`, "x = a - (b - c);\n"},
		{"nullish mix", `x = (a || b) ?? c`, "x = (a || b) ?? c;\n"},
		{"conditional", `x = a ? b : c ? d : e`, "x = a ? b : c ? d : e;\n"},
		{"arrow object body", `f = () => ({ a: 1 })`, "f = () => ({ a: 1 });\n"},
		{"arrow callee", `(() => 1)()`, "(() => 1)();\n"},
		{"iife", `(function () { go() })()`, "(function () {\n  go();\n}());\n"},
		{"object statement", `({ a } = b)`, "({ a } = b);\n"},
		{"member on number", `(1).toFixed(2)`, "(1).toFixed(2);\n"},
		{"optional chain", `a?.b?.(c)`, "a?.b?.(c);\n"},
		{"template", "t = `a${b}c`", "t = `a${b}c`;\n"},
		{"unary", `x = -(-a)`, "x = - -a;\n"},
		{"typeof", `x = typeof a === "string"`, "x = typeof a === \"string\";\n"},
		{"string escapes", `s = 'it\'s "q"\n'`, "s = \"it's \\\"q\\\"\\n\";\n"},
		{"postfix", `i++`, "i++;\n"},
		{"new", `x = new Foo(a)`, "x = new Foo(a);\n"},
		{"spread", `f(...args)`, "f(...args);\n"},
		{"quoted key", `o = { "data-id": 1, ok: 2 }`, "o = { \"data-id\": 1, ok: 2 };\n"},
		{"shorthand", `o = { a, b: c }`, "o = { a, b: c };\n"},
		{"import", `import d, { a as b } from "m"`, "import d, { a as b } from \"m\";\n"},
		{"side effect import", `import "m"`, "import \"m\";\n"},
		{"export default expr", `export default a`, "export default a;\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, roundTrip(t, tt.src))
		})
	}
}

func TestPrintStatements(t *testing.T) {
	src := `function f({ a = 1, b: [c, , d], ...rest }, ...more) {
  if (a) return b; else if (c) { d() } else e()
  for (let i = 0; i < 3; i++) g(i)
  for (const k in o) h(k)
  switch (a) { case 1: x(); break; default: y() }
  try { z() } catch { w() }
}`
	want := `function f({ a = 1, b: [c, , d], ...rest }, ...more) {
  if (a) {
    return b;
  } else if (c) {
    d();
  } else {
    e();
  }
  for (let i = 0; i < 3; i++) {
    g(i);
  }
  for (const k in o) {
    h(k);
  }
  switch (a) {
    case 1:
      x();
      break;
    default:
      y();
  }
  try {
    z();
  } catch {
    w();
  }
}
`
	assert.Equal(t, want, roundTrip(t, src))
}

func TestPrintMarkup(t *testing.T) {
	markup := ast.Markup(
		ast.Str("p"),
		ast.Expr{Data: &ast.EObject{Properties: []ast.Property{{
			Key:   ast.Str("class"),
			Value: ast.Thunk(ast.Dot(ast.Ident("cls"), "value")),
		}}}},
		ast.Thunk(ast.Dot(ast.Ident("count"), "value")),
	)
	assert.Equal(t, `["p", { class: () => cls.value }, () => count.value]`, PrintExpr(markup))
}

func TestPrintErasesTypes(t *testing.T) {
	prog := &ast.Program{Stmts: []ast.Stmt{
		{Data: &ast.STypeShape{Name: "Props", Fields: []string{"a"}, IsExport: true}},
		{Data: &ast.SRaw{Text: "class A {}"}},
	}}
	assert.Equal(t, "class A {}\n", Print(prog))
}

func TestPrintNumberLiterals(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1"},
		{0.5, "0.5"},
		{1e21, "1e+21"},
		{1e-7, "1e-7"},
		{math.Copysign(0, -1), "-0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PrintExpr(ast.Expr{Data: &ast.ENumber{Value: tt.in}}), "literal %v", tt.in)
	}
	assert.Equal(t, "(1e-7).toFixed", PrintExpr(ast.Dot(ast.Expr{Data: &ast.ENumber{Value: 1e-7}}, "toFixed")))
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"a\"b"`, Quote(`a"b`))
	assert.Equal(t, `"\x01"`, Quote("\x01"))
	assert.Equal(t, `"\u2028"`, Quote("\u2028"))
}
