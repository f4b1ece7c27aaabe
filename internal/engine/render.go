package engine

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/wisp/internal/ast"
)

// Node is one node of the rendered tree. Text nodes have an empty Tag;
// fragments and reactive slots are transparent containers.
type Node struct {
	Tag      string
	Text     string
	Attrs    []Attr
	Children []*Node

	handlers map[string]Value
}

// Attr is a rendered attribute. Boolean attributes print without a value.
type Attr struct {
	Name    string
	Value   string
	Boolean bool
}

const (
	tagText     = ""
	tagFragment = "#fragment"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

var attrAliases = map[string]string{
	"className": "class",
	"htmlFor":   "for",
}

// renderer evaluates Markup Arrays into nodes.
type renderer struct {
	in          *interp
	g           *graph
	on, off     *Sentinel
	eventPrefix string
	context     func() *Object
}

// isMarkupValue reports whether v has the [tag, attributes, children]
// shape of a Markup Array.
func isMarkupValue(v Value) bool {
	arr, ok := v.(*Array)
	if !ok || len(arr.Items) != 3 {
		return false
	}
	if _, ok := arr.Items[1].(*Object); !ok {
		return false
	}
	switch tag := arr.Items[0].(type) {
	case nil, string:
		return true
	default:
		return isCallable(tag)
	}
}

// render appends the nodes for v to parent.
func (r *renderer) render(v Value, parent *Node) error {
	switch x := v.(type) {
	case nil, undefinedType, bool:
		return nil
	case string:
		parent.Children = append(parent.Children, &Node{Text: x})
		return nil
	case float64:
		parent.Children = append(parent.Children, &Node{Text: ast.FormatNumber(x)})
		return nil
	case *Array:
		if isMarkupValue(x) {
			return r.markup(x, parent)
		}
		for _, item := range x.Items {
			if err := r.render(item, parent); err != nil {
				return err
			}
		}
		return nil
	case *Signal:
		return r.slot(parent, x.Get)
	}
	if isCallable(v) {
		return r.slot(parent, func() (Value, error) { return r.g.call(v, nil) })
	}
	parent.Children = append(parent.Children, &Node{Text: toString(v)})
	return nil
}

// slot renders a reactive child. The slot's content is replaced every time
// the value's dependencies change.
func (r *renderer) slot(parent *Node, value func() (Value, error)) error {
	slot := &Node{Tag: tagFragment}
	parent.Children = append(parent.Children, slot)
	return r.g.createRenderEffect(func() error {
		slot.Children = nil
		v, err := value()
		if err != nil {
			return err
		}
		return r.render(v, slot)
	})
}

func (r *renderer) markup(arr *Array, parent *Node) error {
	tag, attrs, children := arr.Items[0], arr.Items[1].(*Object), arr.Items[2]

	switch t := tag.(type) {
	case nil:
		return r.render(children, parent)
	case string:
		el := &Node{Tag: t}
		parent.Children = append(parent.Children, el)
		for _, key := range attrs.Keys() {
			if err := r.attr(el, key, attrs.Get(key)); err != nil {
				return err
			}
		}
		return r.render(children, el)
	}

	// A component used as a tag receives its attributes and children as
	// props.
	props := NewObject()
	for _, key := range attrs.Keys() {
		_ = props.Set(key, attrs.Get(key))
	}
	_ = props.Set("children", children)
	out, err := r.g.untracked(func() (Value, error) {
		return r.g.call(tag, []Value{props, r.context()})
	})
	if err != nil {
		return err
	}
	return r.render(out, parent)
}

func (r *renderer) attr(el *Node, key string, v Value) error {
	if r.isEvent(key) && isCallable(v) {
		if el.handlers == nil {
			el.handlers = map[string]Value{}
		}
		el.handlers[strings.ToLower(key[len(r.eventPrefix):])] = v
		return nil
	}
	if alias, ok := attrAliases[key]; ok {
		key = alias
	}

	var read func() (Value, error)
	switch x := v.(type) {
	case *Signal:
		read = x.Get
	default:
		if isCallable(v) {
			read = func() (Value, error) { return r.g.call(v, nil) }
		}
	}
	if read == nil {
		r.setAttr(el, key, v)
		return nil
	}
	return r.g.createRenderEffect(func() error {
		val, err := read()
		if err != nil {
			return err
		}
		r.setAttr(el, key, val)
		return nil
	})
}

// isEvent matches handler names the way the compiler does: the prefix
// followed by an uppercase rune, or an all-lowercase name like onclick.
func (r *renderer) isEvent(key string) bool {
	rest, ok := strings.CutPrefix(key, r.eventPrefix)
	if !ok || rest == "" || r.eventPrefix == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsUpper(first) || unicode.IsLower(first) && strings.ToLower(key) == key
}

func (r *renderer) setAttr(el *Node, name string, v Value) {
	var a *Attr
	for i := range el.Attrs {
		if el.Attrs[i].Name == name {
			a = &el.Attrs[i]
			break
		}
	}

	present, boolean, text := true, false, ""
	switch x := v.(type) {
	case nil, undefinedType:
		present = false
	case bool:
		present, boolean = x, true
	case *Sentinel:
		present, boolean = x == r.on, true
	case *Object:
		text = styleText(x)
	default:
		text = toString(v)
	}

	if !present {
		if a != nil {
			el.removeAttr(name)
		}
		return
	}
	if a == nil {
		el.Attrs = append(el.Attrs, Attr{Name: name})
		a = &el.Attrs[len(el.Attrs)-1]
	}
	a.Value, a.Boolean = text, boolean
}

func styleText(o *Object) string {
	parts := make([]string, 0, len(o.Keys()))
	for _, k := range o.Keys() {
		v := o.Get(k)
		if isNullish(v) {
			continue
		}
		parts = append(parts, k+": "+toString(v))
	}
	return strings.Join(parts, "; ")
}

func (n *Node) removeAttr(name string) {
	for i, a := range n.Attrs {
		if a.Name == name {
			n.Attrs = append(n.Attrs[:i:i], n.Attrs[i+1:]...)
			return
		}
	}
}

// Attr returns an attribute value and whether it is present.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HTML serializes the node's content. Fragments and slots print only
// their children.
func (n *Node) HTML() string {
	var b strings.Builder
	n.writeHTML(&b)
	return b.String()
}

func (n *Node) writeHTML(b *strings.Builder) {
	switch n.Tag {
	case tagText:
		b.WriteString(html.EscapeString(n.Text))
		return
	case tagFragment:
		for _, c := range n.Children {
			c.writeHTML(b)
		}
		return
	}
	b.WriteByte('<')
	b.WriteString(n.Tag)
	for _, a := range n.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		if a.Boolean {
			continue
		}
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(a.Value))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	if voidElements[n.Tag] {
		return
	}
	for _, c := range n.Children {
		c.writeHTML(b)
	}
	b.WriteString("</")
	b.WriteString(n.Tag)
	b.WriteByte('>')
}

// find returns the first element in document order matching selector that
// handles event. Selectors are a tag name, #id or .class.
func (n *Node) find(selector, event string) *Node {
	if n.Tag != tagText && n.Tag != tagFragment && n.matches(selector) && n.handlers[event] != nil {
		return n
	}
	for _, c := range n.Children {
		if found := c.find(selector, event); found != nil {
			return found
		}
	}
	return nil
}

func (n *Node) matches(selector string) bool {
	switch {
	case strings.HasPrefix(selector, "#"):
		id, ok := n.Attr("id")
		return ok && id == selector[1:]
	case strings.HasPrefix(selector, "."):
		class, _ := n.Attr("class")
		for _, c := range strings.Fields(class) {
			if c == selector[1:] {
				return true
			}
		}
		return false
	}
	return n.Tag == selector
}
