package ast

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// Canonical produces RFC 8785 canonical JSON for a program tree.
// CRITICAL: This is the ONLY serialization used for tree identity. Two trees
// that differ only in source locations produce identical bytes.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping
//  3. Strings are NFC normalized
//  4. Numbers are emitted as their shortest decimal string, never as floats
//  5. Missing nodes are omitted instead of written as null
func Canonical(p *Program) ([]byte, error) {
	stmts := make([]any, len(p.Stmts))
	for i, s := range p.Stmts {
		stmts[i] = dumpStmt(s)
	}
	return MarshalCanonical(map[string]any{"kind": "Program", "body": stmts})
}

// CanonicalExpr is Canonical for a single expression.
func CanonicalExpr(e Expr) ([]byte, error) {
	v := dumpExpr(e)
	if v == nil {
		return []byte("{}"), nil
	}
	return MarshalCanonical(v)
}

// CanonicalStmts is Canonical for a statement list.
func CanonicalStmts(stmts []Stmt) ([]byte, error) {
	out := make([]any, len(stmts))
	for i, s := range stmts {
		out[i] = dumpStmt(s)
	}
	return MarshalCanonical(out)
}

// MarshalCanonical encodes strings, ints, bools, []any and map[string]any.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		writeCanonicalString(buf, val)
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		buf.WriteByte('{')
		for i, k := range sortedKeysUTF16(val) {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := marshalCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString escapes only quote, backslash and control characters.
// U+2028 and U+2029 are written literally.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

func sortedKeysUTF16(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return compareUTF16(keys[i], keys[j]) < 0
	})
	return keys
}

func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			if ua[i] < ub[i] {
				return -1
			}
			return 1
		}
	}
	return len(ua) - len(ub)
}

type node = map[string]any

func put(n node, key string, e Expr) {
	if v := dumpExpr(e); v != nil {
		n[key] = v
	}
}

func dumpExprs(exprs []Expr) []any {
	out := make([]any, 0, len(exprs))
	for _, e := range exprs {
		if v := dumpExpr(e); v != nil {
			out = append(out, v)
		} else {
			out = append(out, node{"kind": "Missing"})
		}
	}
	return out
}

func dumpStmts(stmts []Stmt) []any {
	out := make([]any, 0, len(stmts))
	for _, s := range stmts {
		if v := dumpStmt(s); v != nil {
			out = append(out, v)
		}
	}
	return out
}

func dumpExpr(e Expr) node {
	switch d := e.Data.(type) {
	case nil:
		return nil
	case *EArray:
		return node{"kind": "Array", "items": dumpExprs(d.Items), "markup": d.IsMarkup}
	case *EObject:
		props := make([]any, len(d.Properties))
		for i, p := range d.Properties {
			n := node{"kind": "Property", "type": int(p.Kind), "computed": p.Computed}
			put(n, "key", p.Key)
			put(n, "value", p.Value)
			props[i] = n
		}
		return node{"kind": "Object", "properties": props}
	case *ESpread:
		n := node{"kind": "Spread"}
		put(n, "value", d.Value)
		return n
	case *EString:
		return node{"kind": "String", "value": d.Value}
	case *ETemplate:
		parts := make([]any, len(d.Parts))
		for i, p := range d.Parts {
			n := node{"tail": p.Tail}
			put(n, "value", p.Value)
			parts[i] = n
		}
		n := node{"kind": "Template", "head": d.Head, "parts": parts}
		put(n, "tag", d.Tag)
		return n
	case *ENumber:
		return node{"kind": "Number", "value": strconv.FormatFloat(d.Value, 'g', -1, 64)}
	case *EBoolean:
		return node{"kind": "Boolean", "value": d.Value}
	case *ENull:
		return node{"kind": "Null"}
	case *EUndefined:
		return node{"kind": "Undefined"}
	case *EThis:
		return node{"kind": "This"}
	case *ERegExp:
		return node{"kind": "RegExp", "value": d.Value}
	case *EIdentifier:
		return node{"kind": "Identifier", "name": d.Name}
	case *EDot:
		n := node{"kind": "Dot", "name": d.Name, "optional": d.Optional}
		put(n, "target", d.Target)
		return n
	case *EIndex:
		n := node{"kind": "Index", "optional": d.Optional}
		put(n, "target", d.Target)
		put(n, "index", d.Index)
		return n
	case *ECall:
		n := node{"kind": "Call", "args": dumpExprs(d.Args), "optional": d.Optional}
		put(n, "target", d.Target)
		return n
	case *ENew:
		n := node{"kind": "New", "args": dumpExprs(d.Args)}
		put(n, "target", d.Target)
		return n
	case *EUnary:
		n := node{"kind": "Unary", "op": d.Op, "postfix": d.Postfix}
		put(n, "value", d.Value)
		return n
	case *EBinary:
		n := node{"kind": "Binary", "op": d.Op}
		put(n, "left", d.Left)
		put(n, "right", d.Right)
		return n
	case *EIf:
		n := node{"kind": "If"}
		put(n, "test", d.Test)
		put(n, "yes", d.Yes)
		put(n, "no", d.No)
		return n
	case *EFunction:
		return dumpFn(d.Fn)
	case *EAwait:
		n := node{"kind": "Await"}
		put(n, "value", d.Value)
		return n
	case *EYield:
		n := node{"kind": "Yield", "delegate": d.Delegate}
		put(n, "value", d.Value)
		return n
	case *ERaw:
		return node{"kind": "Raw", "text": d.Text}
	default:
		panic(fmt.Sprintf("ast: unknown expression kind %T", d))
	}
}

func dumpFn(fn *Fn) node {
	args := make([]any, len(fn.Args))
	for i, a := range fn.Args {
		n := node{"binding": dumpBinding(a.Binding), "rest": a.Rest}
		put(n, "default", a.Default)
		if a.TypeName != "" {
			n["type"] = a.TypeName
		}
		args[i] = n
	}
	return node{
		"kind":      "Function",
		"name":      fn.Name,
		"args":      args,
		"body":      dumpStmts(fn.Body.Stmts),
		"arrow":     fn.IsArrow,
		"async":     fn.IsAsync,
		"generator": fn.IsGenerator,
	}
}

func dumpBinding(b Binding) node {
	switch d := b.Data.(type) {
	case nil, *BMissing:
		return node{"kind": "Missing"}
	case *BIdentifier:
		return node{"kind": "Identifier", "name": d.Name}
	case *BArray:
		items := make([]any, len(d.Items))
		for i, item := range d.Items {
			n := node{"binding": dumpBinding(item.Binding)}
			put(n, "default", item.Default)
			items[i] = n
		}
		return node{"kind": "ArrayPattern", "items": items, "spread": d.HasSpread}
	case *BObject:
		props := make([]any, len(d.Properties))
		for i, p := range d.Properties {
			n := node{"value": dumpBinding(p.Value), "computed": p.Computed, "spread": p.IsSpread}
			put(n, "key", p.Key)
			put(n, "default", p.Default)
			props[i] = n
		}
		return node{"kind": "ObjectPattern", "properties": props}
	default:
		panic(fmt.Sprintf("ast: unknown binding kind %T", d))
	}
}

func dumpStmt(s Stmt) node {
	switch d := s.Data.(type) {
	case nil:
		return nil
	case *SBlock:
		return node{"kind": "Block", "body": dumpStmts(d.Stmts)}
	case *SExpr:
		n := node{"kind": "Expr"}
		put(n, "value", d.Value)
		return n
	case *SLocal:
		decls := make([]any, len(d.Decls))
		for i, decl := range d.Decls {
			n := node{"binding": dumpBinding(decl.Binding)}
			put(n, "value", decl.Value)
			decls[i] = n
		}
		return node{"kind": "Local", "type": d.Kind.String(), "decls": decls, "export": d.IsExport}
	case *SFunction:
		return node{"kind": "FunctionDecl", "fn": dumpFn(d.Fn), "export": d.IsExport}
	case *SReturn:
		n := node{"kind": "Return"}
		put(n, "value", d.Value)
		return n
	case *SIf:
		n := node{"kind": "If"}
		put(n, "test", d.Test)
		if v := dumpStmt(d.Yes); v != nil {
			n["yes"] = v
		}
		if v := dumpStmt(d.No); v != nil {
			n["no"] = v
		}
		return n
	case *SSwitch:
		cases := make([]any, len(d.Cases))
		for i, c := range d.Cases {
			n := node{"body": dumpStmts(c.Body)}
			put(n, "value", c.Value)
			cases[i] = n
		}
		n := node{"kind": "Switch", "cases": cases}
		put(n, "test", d.Test)
		return n
	case *SFor:
		n := node{"kind": "For"}
		if v := dumpStmt(d.Init); v != nil {
			n["init"] = v
		}
		put(n, "test", d.Test)
		put(n, "update", d.Update)
		if v := dumpStmt(d.Body); v != nil {
			n["body"] = v
		}
		return n
	case *SForIn:
		n := node{"kind": "ForIn", "init": dumpStmt(d.Init), "body": dumpStmt(d.Body)}
		put(n, "value", d.Value)
		return n
	case *SForOf:
		n := node{"kind": "ForOf", "init": dumpStmt(d.Init), "body": dumpStmt(d.Body), "await": d.IsAwait}
		put(n, "value", d.Value)
		return n
	case *SWhile:
		n := node{"kind": "While", "body": dumpStmt(d.Body)}
		put(n, "test", d.Test)
		return n
	case *SDoWhile:
		n := node{"kind": "DoWhile", "body": dumpStmt(d.Body)}
		put(n, "test", d.Test)
		return n
	case *STry:
		n := node{"kind": "Try", "block": dumpStmts(d.Block), "finally": dumpStmts(d.Finally)}
		if d.Catch != nil {
			n["catch"] = node{"binding": dumpBinding(d.Catch.Binding), "body": dumpStmts(d.Catch.Body)}
		}
		return n
	case *SThrow:
		n := node{"kind": "Throw"}
		put(n, "value", d.Value)
		return n
	case *SBreak:
		return node{"kind": "Break", "label": d.Label}
	case *SContinue:
		return node{"kind": "Continue", "label": d.Label}
	case *SEmpty:
		return node{"kind": "Empty"}
	case *SImport:
		return node{
			"kind":      "Import",
			"default":   d.DefaultName,
			"namespace": d.NamespaceName,
			"items":     dumpClause(d.Items),
			"path":      d.Path,
		}
	case *SExportDefault:
		return node{"kind": "ExportDefault", "value": dumpStmt(d.Value)}
	case *SExportClause:
		return node{"kind": "ExportClause", "items": dumpClause(d.Items), "from": d.From}
	case *STypeShape:
		fields := make([]any, len(d.Fields))
		for i, f := range d.Fields {
			fields[i] = f
		}
		return node{"kind": "TypeShape", "name": d.Name, "fields": fields, "export": d.IsExport}
	case *SRaw:
		return node{"kind": "Raw", "text": d.Text}
	default:
		panic(fmt.Sprintf("ast: unknown statement kind %T", d))
	}
}

func dumpClause(items []ClauseItem) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = node{"name": item.Name, "alias": item.Alias}
	}
	return out
}
