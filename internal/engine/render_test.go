package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeHTML(t *testing.T) {
	root := &Node{Tag: tagFragment, Children: []*Node{
		{Tag: "a", Attrs: []Attr{{Name: "href", Value: `/q?a=1&b="2"`}}, Children: []*Node{{Text: "<tom & jerry>"}}},
		{Tag: "br"},
		{Tag: "input", Attrs: []Attr{{Name: "checked", Boolean: true}}},
	}}
	assert.Equal(t,
		`<a href="/q?a=1&amp;b=&#34;2&#34;">&lt;tom &amp; jerry&gt;</a><br><input checked>`,
		root.HTML())
}

func TestIsMarkupValue(t *testing.T) {
	assert.True(t, isMarkupValue(NewArray("p", NewObject(), "x")))
	assert.True(t, isMarkupValue(NewArray(nil, NewObject(), NewArray())))
	assert.True(t, isMarkupValue(NewArray(native("C", nil), NewObject(), "")))
	assert.False(t, isMarkupValue(NewArray("a", "b", "c")))
	assert.False(t, isMarkupValue(NewArray(float64(1), NewObject(), "")))
	assert.False(t, isMarkupValue(NewArray("p", NewObject())))
}

func TestFindMatchesSelectors(t *testing.T) {
	handler := native("h", nil)
	first := &Node{Tag: "button", Attrs: []Attr{{Name: "class", Value: "btn primary"}}, handlers: map[string]Value{"click": handler}}
	second := &Node{Tag: "button", Attrs: []Attr{{Name: "id", Value: "save"}}, handlers: map[string]Value{"click": handler}}
	silent := &Node{Tag: "button", Attrs: []Attr{{Name: "id", Value: "quiet"}}}
	root := &Node{Tag: tagFragment, Children: []*Node{
		{Tag: "div", Children: []*Node{silent, first}},
		second,
	}}

	assert.Same(t, first, root.find("button", "click"))
	assert.Same(t, first, root.find(".primary", "click"))
	assert.Same(t, second, root.find("#save", "click"))
	assert.Nil(t, root.find("#quiet", "click"))
	assert.Nil(t, root.find("button", "submit"))
}

func TestRenderAttributes(t *testing.T) {
	e := loadCode(t, `import { reactiveElement, _on, _off } from "wisp/client";
function Attrs() {
  return ["label", { className: "c", htmlFor: "f", style: { color: "red", margin: null }, hidden: _off, open: _on, title: undefined }, [1, null, false, "x"]];
}
export default reactiveElement(Attrs, []);
`)
	require.NoError(t, e.Mount(nil))
	assert.Equal(t, `<label class="c" for="f" style="color: red" open>1x</label>`, e.HTML())
}

func TestRenderComponentTag(t *testing.T) {
	e := loadCode(t, `import { reactiveElement } from "wisp/client";
function Item({ label, children }) {
  return ["li", {}, [label, ":", children]];
}
function List() {
  return ["ul", {}, [Item, { label: "a" }, "one"]];
}
export default reactiveElement(List, []);
`)
	require.NoError(t, e.Mount(nil))
	assert.Equal(t, `<ul><li>a:one</li></ul>`, e.HTML())
}
