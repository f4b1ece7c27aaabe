package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wisp/internal/ast"
	"github.com/roach88/wisp/internal/printer"
)

func TestLowerMarkup(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "static element",
			src:  `export default function A() { return <p>hello</p>; }`,
			want: `return ["p", {}, "hello"];`,
		},
		{
			name: "no children",
			src:  `export default function A() { return <br />; }`,
			want: `return ["br", {}, ""];`,
		},
		{
			name: "nested elements",
			src:  `export default function A() { return <ul><li>a</li><li>b</li></ul>; }`,
			want: `return ["ul", {}, [["li", {}, "a"], ["li", {}, "b"]]];`,
		},
		{
			name: "fragment",
			src:  `export default function A() { return <><b>x</b>y</>; }`,
			want: `return [null, {}, [["b", {}, "x"], "y"]];`,
		},
		{
			name: "key moves into attributes",
			src:  `export default function A() { return <li key="k">x</li>; }`,
			want: `return ["li", { key: "k" }, "x"];`,
		},
		{
			name: "reactive single child",
			src:  `export default function A({ n }) { return <p>{n}</p>; }`,
			want: `return ["p", {}, () => n];`,
		},
		{
			name: "local single child stays bare",
			src:  `export default function A() { const label = "x"; return <p>{label}</p>; }`,
			want: `return ["p", {}, label];`,
		},
		{
			name: "static attribute",
			src:  `export default function A() { return <a href="/home">go</a>; }`,
			want: `return ["a", { href: "/home" }, "go"];`,
		},
		{
			name: "accessor attribute",
			src:  `export default function A(props, { state }) { const s = state(1); return <p title={s.value}>x</p>; }`,
			want: `return ["p", { title: () => s.value }, "x"];`,
		},
		{
			name: "call in attribute",
			src:  `export default function A() { return <p title={format()}>x</p>; }`,
			want: `return ["p", { title: () => format() }, "x"];`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := testComponent(t, tt.src)
			c.lowerMarkup()
			assert.Contains(t, printer.PrintStmts(c.fn.Body.Stmts), tt.want)
		})
	}
}

func TestLowerMarkupIsIdempotent(t *testing.T) {
	_, c := testComponent(t, `export default function A({ n, on }) {
  return <div class={n} hidden={on}><span>{n}</span>text</div>;
}`)
	c.lowerMarkup()
	once, err := ast.CanonicalStmts(c.fn.Body.Stmts)
	require.NoError(t, err)

	c.lowerMarkup()
	twice, err := ast.CanonicalStmts(c.fn.Body.Stmts)
	require.NoError(t, err)
	assert.Equal(t, string(once), string(twice))
}

func TestLowerBooleanAttributes(t *testing.T) {
	ft, c := testComponent(t, `export default function A({ busy }) {
  return <input disabled={busy} checked readonly={false} />;
}`)
	c.lowerMarkup()
	out := printer.PrintStmts(c.fn.Body.Stmts)
	assert.Contains(t, out, `{ disabled: () => busy ? _on : _off, checked: _on, readonly: _off }`)
	assert.True(t, ft.usage.on)
	assert.True(t, ft.usage.off)
}

func TestLowerStaticBooleanSelection(t *testing.T) {
	_, c := testComponent(t, `export default function A() {
  const open = true;
  return <details open={open}>x</details>;
}`)
	c.lowerMarkup()
	assert.Contains(t, printer.PrintStmts(c.fn.Body.Stmts), `{ open: open ? _on : _off }`)
}

func TestLowerEventHandlers(t *testing.T) {
	_, c := testComponent(t, `import { select } from "./store.js";
export default function Row({ id, onPick }) {
  const event = 1;
  return <button onClick={select(id)} onFocus={onPick} onBlur={() => onPick(id)}>x</button>;
}`)
	c.lowerMarkup()
	out := printer.PrintStmts(c.fn.Body.Stmts)
	assert.Contains(t, out, `onClick: (event1) => select(id)(event1)`)
	assert.Contains(t, out, `onFocus: onPick`)
	assert.Contains(t, out, `onBlur: () => onPick(id)`)
}

func TestLowerComponentTagDiagnostics(t *testing.T) {
	t.Run("component tag", func(t *testing.T) {
		ft, c := testComponent(t, `import Card from "./card.jsx";
export default function A() { return <Card title="x" />; }`)
		c.lowerMarkup()
		assert.Equal(t, []string{CodeComponentTag}, codes(ft.rep.diags))
		assert.Contains(t, printer.PrintStmts(c.fn.Body.Stmts), `return [null, { title: "x" }, ""];`)
	})

	t.Run("member tag", func(t *testing.T) {
		ft, c := testComponent(t, `import * as UI from "./ui.jsx";
export default function A() { return <UI.Card />; }`)
		c.lowerMarkup()
		require.Len(t, ft.rep.diags, 1)
		assert.Contains(t, ft.rep.diags[0].Lines[0], "UI.Card")
	})

	t.Run("prop as tag", func(t *testing.T) {
		ft, c := testComponent(t, `export default function A({ Tag }) { return <Tag>x</Tag>; }`)
		c.lowerMarkup()
		require.Len(t, ft.rep.diags, 1)
		assert.Equal(t, SeverityWarning, ft.rep.diags[0].Severity)
		assert.Equal(t, CodePropTag, ft.rep.diags[0].Code)
		assert.Contains(t, printer.PrintStmts(c.fn.Body.Stmts), `return [Tag, {}, "x"];`)
	})
}

func TestLowerSpreadAttributes(t *testing.T) {
	ft, c := testComponent(t, `export default function A({ ...rest }) { return <div {...rest}>x</div>; }`)
	c.lowerMarkup()
	assert.Equal(t, []string{CodeSpreadProps}, codes(ft.rep.diags))
	assert.Contains(t, printer.PrintStmts(c.fn.Body.Stmts), `return ["div", { ...rest }, "x"];`)
}

func TestIsEventName(t *testing.T) {
	_, c := testComponent(t, `export default function A() { return <p />; }`)
	tests := map[string]bool{
		"onClick":  true,
		"onclick":  true,
		"on":       false,
		"online":   true,
		"onLine":   true,
		"open":     false,
		"click":    false,
		"onClick2": true,
	}
	for name, want := range tests {
		assert.Equal(t, want, c.isEventName(name), name)
	}
}

func TestHasSignal(t *testing.T) {
	_, c := testComponent(t, `export default function A({ n }, { state }) {
  const s = state(0);
  const plain = 1;
  return <p>{n}</p>;
}`)
	tests := []struct {
		expr ast.Expr
		want bool
	}{
		{ast.Ident("n"), true},
		{ast.Ident("plain"), false},
		{ast.Dot(ast.Ident("s"), "value"), true},
		{ast.Call(ast.Ident("format")), true},
		{ast.Thunk(ast.Ident("n")), false},
		{ast.Str("x"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.hasSignal(tt.expr), printer.PrintExpr(tt.expr))
	}
}
