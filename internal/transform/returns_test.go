package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wisp/internal/ast"
	"github.com/roach88/wisp/internal/printer"
)

func unified(t *testing.T, src string) (*fileTransform, string) {
	t.Helper()
	ft, c := testComponent(t, src)
	c.lowerMarkup()
	c.bindProps()
	c.unifyReturns()
	return ft, printer.PrintStmts(c.fn.Body.Stmts)
}

func TestUnifyReturnsShapes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "markup is kept",
			src:  `export default function A() { return <p>x</p>; }`,
			want: `return ["p", {}, "x"];`,
		},
		{
			name: "reactive concatenation is thunked whole",
			src:  `export default function A({ name }) { return "Hello " + name; }`,
			want: `return [null, {}, () => "Hello " + name.value];`,
		},
		{
			name: "static concatenation",
			src:  `export default function A() { const n = "x"; return "Hello " + n; }`,
			want: `return [null, {}, "Hello " + n];`,
		},
		{
			name: "template literal",
			src:  "export default function A({ n }) { return `count: ${n}`; }",
			want: "return [null, {}, () => `count: ${n.value}`];",
		},
		{
			name: "string literal",
			src:  `export default function A() { return "plain"; }`,
			want: `return [null, {}, "plain"];`,
		},
		{
			name: "identifier",
			src:  `export default function A() { const view = 1; return view; }`,
			want: `return [null, {}, () => view];`,
		},
		{
			name: "logical",
			src:  `export default function A({ ok }) { return ok && <p>x</p>; }`,
			want: `return [null, {}, () => ok.value && ["p", {}, "x"]];`,
		},
		{
			name: "falls off after if",
			src:  `export default function A({ ok }) { if (ok) { return <p>x</p>; } }`,
			want: `return [null, {}, () => ok.value ? ["p", {}, "x"] : null];`,
		},
		{
			name: "bare return",
			src:  `export default function A() { return; }`,
			want: `return [null, {}, ""];`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft, out := unified(t, tt.src)
			assert.Empty(t, ft.rep.diags)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestUnifyReturnsKeepsStatementsBeforeFirstReturn(t *testing.T) {
	_, out := unified(t, `export default function A({ a }) {
  const x = 1;
  if (a) return <b>{x}</b>;
  return <i>no</i>;
}`)
	assert.Equal(t, "const x = 1;\nreturn [null, {}, () => a.value ? [\"b\", {}, x] : [\"i\", {}, \"no\"]];\n", out)
}

func TestUnifyReturnsSwitch(t *testing.T) {
	_, out := unified(t, `export default function A({ kind }) {
  switch (kind) {
    case "a":
    case "b":
      return <b>ab</b>;
    case "c":
      return <i>c</i>;
    default:
      return <u>other</u>;
  }
}`)
	assert.Contains(t, out,
		`return [null, {}, () => kind.value === "a" || kind.value === "b" ? ["b", {}, "ab"] : kind.value === "c" ? ["i", {}, "c"] : ["u", {}, "other"]];`)
}

func TestUnifyReturnsSwitchWithoutDefaultUsesRest(t *testing.T) {
	_, out := unified(t, `export default function A({ kind }) {
  switch (kind) {
    case 1:
      return <b>one</b>;
  }
  return <i>many</i>;
}`)
	assert.Contains(t, out, `return [null, {}, () => kind.value === 1 ? ["b", {}, "one"] : ["i", {}, "many"]];`)
}

func TestUnifyReturnsElseIfChain(t *testing.T) {
	_, out := unified(t, `export default function A({ n }) {
  if (n > 1) {
    return <b>many</b>;
  } else if (n === 1) {
    return <b>one</b>;
  } else {
    return <b>none</b>;
  }
}`)
	assert.Contains(t, out,
		`return [null, {}, () => n.value > 1 ? ["b", {}, "many"] : n.value === 1 ? ["b", {}, "one"] : ["b", {}, "none"]];`)
}

func TestUnifyReturnsFallsBackToBlockThunk(t *testing.T) {
	_, out := unified(t, `export default function A({ items }) {
  for (const item of items) {
    if (item.pinned) return <b>pinned</b>;
  }
  return <i>none</i>;
}`)
	assert.Contains(t, out, "return [null, {}, () => {\n  for (const item of items.value) {")
	assert.Contains(t, out, `return ["i", {}, "none"];`)
}

func TestUnifyReturnsMissingReturn(t *testing.T) {
	ft, c := testComponent(t, `export default function Empty() {
  const handler = () => { return 1; };
}`)
	c.unifyReturns()
	require.Len(t, ft.rep.diags, 1)
	d := ft.rep.diags[0]
	assert.Equal(t, CodeMissingReturn, d.Code)
	assert.Equal(t, SeverityError, d.Severity)
	assert.Equal(t, "component Empty has no return statement", d.Lines[0])
}

func TestMergeReturnsIfMatchesTernary(t *testing.T) {
	ifProg := parse(t, `function f() { if (a) { return x; } return y; }`)
	ternary := parse(t, `function f() { return a ? x : y; }`)

	fromIf, ok := mergeReturns(ifProg.Stmts[0].Data.(*ast.SFunction).Fn.Body.Stmts)
	require.True(t, ok)
	fromTernary, ok := mergeReturns(ternary.Stmts[0].Data.(*ast.SFunction).Fn.Body.Stmts)
	require.True(t, ok)

	want, err := ast.CanonicalExpr(fromTernary)
	require.NoError(t, err)
	got, err := ast.CanonicalExpr(fromIf)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestMergeReturnsRejectsSideEffects(t *testing.T) {
	prog := parse(t, `function f() { if (a) { log(); return x; } return y; }`)
	_, ok := mergeReturns(prog.Stmts[0].Data.(*ast.SFunction).Fn.Body.Stmts)
	assert.False(t, ok)
}
