package transform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wisp/internal/ast"
	"github.com/roach88/wisp/internal/printer"
)

func bound(t *testing.T, src string) string {
	t.Helper()
	_, c := testComponent(t, src)
	c.lowerMarkup()
	c.bindProps()
	return printer.PrintStmts([]ast.Stmt{{Data: &ast.SFunction{Fn: c.fn}}})
}

// printArgs renders the component's parameter list.
func printArgs(c *component) string {
	sig := &ast.Fn{IsArrow: true, ExprBody: true, Args: c.fn.Args,
		Body: ast.FnBody{Stmts: []ast.Stmt{{Data: &ast.SReturn{Value: ast.Null()}}}}}
	return strings.TrimSuffix(printer.PrintExpr(ast.Expr{Data: &ast.EFunction{Fn: sig}}), " => null")
}

func TestBindPropsRewritesEveryRead(t *testing.T) {
	out := bound(t, `export default function A({ count }) {
  const doubled = count * 2;
  console.log(count);
  return <p>{count}</p>;
}`)
	assert.Contains(t, out, "const doubled = count.value * 2;")
	assert.Contains(t, out, "console.log(count.value);")
	assert.Contains(t, out, `return ["p", {}, () => count.value];`)
}

func TestBindPropsRespectsShadowing(t *testing.T) {
	out := bound(t, `export default function A({ item }) {
  const render = (item) => item.name;
  for (const item of list) {
    console.log(item);
  }
  {
    let item = 2;
    use(item);
  }
  return <p>{render(item)}</p>;
}`)
	assert.Contains(t, out, "const render = (item) => item.name;")
	assert.Contains(t, out, "console.log(item);")
	assert.Contains(t, out, "use(item);")
	assert.Contains(t, out, `return ["p", {}, () => render(item.value)];`)
}

func TestBindPropsObjectParameter(t *testing.T) {
	out := bound(t, `export default function A(props) {
  const { title } = props;
  return <p title={props.title}>{title}</p>;
}`)
	assert.Contains(t, out, `{ title: () => props.title.value }`)
	assert.Contains(t, out, `() => title.value`)
}

func TestBindPropsRestObject(t *testing.T) {
	out := bound(t, `export default function A({ title, ...rest }) {
  return <p>{rest.subtitle}</p>;
}`)
	assert.Contains(t, out, `return ["p", {}, () => rest.subtitle.value];`)
}

func TestBindPropsShorthandProperty(t *testing.T) {
	out := bound(t, `export default function A({ id }) {
  const payload = { id };
  return <p>{payload.id}</p>;
}`)
	assert.Contains(t, out, "const payload = { id: id.value };")
}

func TestBindPropsLeavesAssignmentsAndHandlers(t *testing.T) {
	out := bound(t, `export default function A({ n, onSave }) {
  n = 3;
  n++;
  onSave(n);
  return <p>x</p>;
}`)
	assert.Contains(t, out, "n = 3;")
	assert.Contains(t, out, "n++;")
	assert.Contains(t, out, "onSave(n.value);")
}

func TestBindPropsDerivedDefaults(t *testing.T) {
	t.Run("destructured context", func(t *testing.T) {
		out := bound(t, `export default function A({ size = "m", label }, { derived: d }) {
  return <p>{size}{label}</p>;
}`)
		assert.Contains(t, out, `function A({ size: _size, label }, { derived: d }) {`)
		assert.Contains(t, out, `const size = d(() => _size.value ?? "m");`)
		assert.Contains(t, out, `() => size.value`)
	})

	t.Run("context object", func(t *testing.T) {
		out := bound(t, `export default function A({ size = 1 }, ctx) {
  return <p>{size}</p>;
}`)
		assert.Contains(t, out, `const size = ctx.derived(() => _size.value ?? 1);`)
	})

	t.Run("raw name collides", func(t *testing.T) {
		out := bound(t, `export default function A({ size = 1 }) {
  const _size = 0;
  return <p>{size}</p>;
}`)
		assert.Contains(t, out, `function A({ size: _size1 }, { derived }) {`)
		assert.Contains(t, out, `const size = derived(() => _size1.value ?? 1);`)
	})

	t.Run("body fallbacks are untouched", func(t *testing.T) {
		out := bound(t, `export default function A({ size }) {
  const s = size || 2;
  return <p>{s}</p>;
}`)
		assert.Contains(t, out, `const s = size.value || 2;`)
		assert.NotContains(t, out, "derived")
	})
}

func TestBindPropsNestedPatterns(t *testing.T) {
	_, c := testComponent(t, `export default function Profile({ user: { name, tags: [first = "none"] } }) {
  return <p>{name} {first}</p>;
}`)
	require.Len(t, c.bindings, 2)
	assert.Equal(t, "user", c.bindings[0].Name)
	assert.Equal(t, []PathStep{{Key: "name"}}, c.bindings[0].Path)
	require.Len(t, c.bindings[1].Path, 2)
	assert.Equal(t, "tags", c.bindings[1].Path[0].Key)
	assert.True(t, c.bindings[1].Path[1].IsIndex)
	assert.False(t, c.bindings[1].Path[1].Default.IsMissing())

	c.lowerMarkup()
	c.bindProps()
	out := printer.PrintStmts(c.fn.Body.Stmts)
	assert.Contains(t, out, `() => user.value.name`)
	assert.Contains(t, out, `() => user.value.tags[0] ?? "none"`)
	assert.Equal(t, "({ user })", printArgs(c))
}

func TestBindPropsNestedPatternDefaults(t *testing.T) {
	t.Run("outer default", func(t *testing.T) {
		_, c := testComponent(t, `export default function Profile({ user: { name } = {} }) {
  return <p>{name}</p>;
}`)
		c.lowerMarkup()
		c.bindProps()
		assert.Equal(t, "({ user })", printArgs(c))
		assert.Contains(t, printer.PrintStmts(c.fn.Body.Stmts), `() => (user.value ?? {}).name`)
	})

	t.Run("every level", func(t *testing.T) {
		_, c := testComponent(t, `export default function Profile({ user: { info: { name = "anon" } = {} } = {} }) {
  return <p>{name}</p>;
}`)
		c.lowerMarkup()
		c.bindProps()
		assert.Contains(t, printer.PrintStmts(c.fn.Body.Stmts),
			`() => ((user.value ?? {}).info ?? {}).name ?? "anon"`)
	})

	t.Run("intermediate default with several leaves", func(t *testing.T) {
		_, c := testComponent(t, `export default function Pair({ pair: [{ a, b } = {}] }) {
  return <p>{a}{b}</p>;
}`)
		c.lowerMarkup()
		c.bindProps()
		out := printer.PrintStmts(c.fn.Body.Stmts)
		assert.Contains(t, out, `(pair.value[0] ?? {}).a`)
		assert.Contains(t, out, `(pair.value[0] ?? {}).b`)
	})
}

func TestBindPropsNestedPatternNameCollision(t *testing.T) {
	_, c := testComponent(t, `export default function Profile({ user: { name } }) {
  const user = 1;
  return <p>{name}</p>;
}`)
	c.lowerMarkup()
	c.bindProps()
	assert.Equal(t, "({ user: _user })", printArgs(c))
	assert.Contains(t, printer.PrintStmts(c.fn.Body.Stmts), `() => _user.value.name`)
}
