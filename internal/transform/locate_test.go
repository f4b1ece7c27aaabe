package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wisp/internal/ast"
	"github.com/roach88/wisp/internal/parser"
)

func TestLocate(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		shape ExportShape
		comp  string
		index int
		ident int
		props []string
		isNil bool
	}{
		{
			name:  "inline function",
			src:   `export default function Card({ title, body }) { return <p />; }`,
			shape: ExportInline, comp: "Card", index: 0, ident: -1,
			props: []string{"body", "title"},
		},
		{
			name:  "anonymous arrow",
			src:   `import x from "y"; export default ({ a }) => <p />;`,
			shape: ExportInline, comp: "", index: 1, ident: -1,
			props: []string{"a"},
		},
		{
			name:  "identifier",
			src:   "function Card(props) { return <p>{props.title}</p>; }\nexport default Card;",
			shape: ExportIdentifier, comp: "Card", index: 1, ident: 0,
			props: []string{"title"},
		},
		{
			name:  "const arrow identifier",
			src:   "const Card = ({ ...rest }) => <p>{rest.a}{rest.b}</p>;\nexport default Card;",
			shape: ExportIdentifier, comp: "Card", index: 1, ident: 0,
			props: []string{"a", "b"},
		},
		{
			name:  "last assignment wins",
			src:   "let Card = () => <p />;\nCard = ({ late }) => <p />;\nexport default Card;",
			shape: ExportIdentifier, comp: "Card", index: 2, ident: 1,
			props: []string{"late"},
		},
		{
			name:  "clause",
			src:   "function Card({ a }) { return <p />; }\nexport { Card as default, helper };\nfunction helper() {}",
			shape: ExportClause, comp: "Card", index: 1, ident: 0,
			props: []string{"a"},
		},
		{
			name:  "destructured in body",
			src:   "export default function Card(props) { const { a, b } = props; return <p />; }",
			shape: ExportInline, comp: "Card", index: 0, ident: -1,
			props: []string{"a", "b"},
		},
		{name: "no default export", src: `export const a = 1;`, isNil: true},
		{name: "default export of a value", src: `export default 42;`, isNil: true},
		{name: "re-export", src: `export { default } from "./card.jsx";`, isNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := Locate(parse(t, tt.src))
			if tt.isNil {
				assert.Nil(t, loc)
				return
			}
			require.NotNil(t, loc)
			assert.Equal(t, tt.shape, loc.Shape)
			assert.Equal(t, tt.comp, loc.Name)
			assert.Equal(t, tt.index, loc.ExportIndex)
			assert.Equal(t, tt.ident, loc.IdentIndex)
			assert.Equal(t, tt.props, loc.Props)
		})
	}
}

func TestLocateTypedProps(t *testing.T) {
	parseTS := func(src string) *ast.Program {
		prog, err := parser.New().Parse(context.Background(), "Card.tsx", []byte(src))
		require.NoError(t, err)
		return prog
	}

	t.Run("annotated parameter", func(t *testing.T) {
		loc := Locate(parseTS(`type Shape = { title: string; count: number }
export default function Card(props: Shape) { return <p>{props.title}</p>; }`))
		require.NotNil(t, loc)
		assert.Equal(t, []string{"count", "title"}, loc.Props)
	})

	t.Run("exported props shape", func(t *testing.T) {
		loc := Locate(parseTS(`export type CardProps = { title: string; "sub-title"?: string }
export default function Card({ title }) { return <p>{title}</p>; }`))
		require.NotNil(t, loc)
		assert.Equal(t, []string{"sub-title", "title"}, loc.Props)
	})

	t.Run("unexported shape is ignored", func(t *testing.T) {
		loc := Locate(parseTS(`type Props = { hidden: boolean }
export default function Card({ title }) { return <p>{title}</p>; }`))
		require.NotNil(t, loc)
		assert.Equal(t, []string{"title"}, loc.Props)
	})
}

func TestCollectScope(t *testing.T) {
	prog := parse(t, `function f(a, { b, c: [d] }, ...e) {
  var g;
  let { h = 1 } = x;
  function i() {}
  const j = function k(l) {};
  try {} catch (m) {}
  list.map((n) => n);
}`)
	scope := CollectScope(prog.Stmts[0].Data.(*ast.SFunction).Fn)
	assert.Equal(t, []string{"a", "b", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "n"}, scope.Sorted())
}

func TestCollectTopLevel(t *testing.T) {
	prog := parse(t, `import A, { b as c } from "x";
import * as ns from "y";
const d = 1;
function e() {}
export default function F() {}`)
	assert.Equal(t, []string{"A", "F", "c", "d", "e", "ns"}, collectTopLevel(prog).Sorted())
}

func TestNameGen(t *testing.T) {
	g := NewNameGen(NameSet{"r": {}, "r1": {}})
	assert.Equal(t, "r2", g.Fresh("r"))
	assert.Equal(t, "r3", g.Fresh("r"))
	assert.Equal(t, "event", g.Fresh("event"))
	assert.Equal(t, "event1", g.Fresh("event"))

	assert.True(t, g.Claim("r1"), "a scope name can be claimed once")
	assert.False(t, g.Claim("r1"))
	assert.False(t, g.Claim("r2"))
	assert.True(t, g.Assigned("r1"))
	assert.Equal(t, "r4", g.Fresh("r"))
}
