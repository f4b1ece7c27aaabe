// Package printer serializes ast trees back to JavaScript source.
//
// Output is deterministic: two-space indentation, double-quoted strings,
// braces around every compound statement body, and parentheses only where
// operator precedence requires them. TypeScript type declarations are erased.
package printer

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/roach88/wisp/internal/ast"
)

// L is an operator precedence level, lowest first.
type L uint8

const (
	LLowest L = iota
	LComma
	LSpread
	LYield
	LAssign
	LConditional
	LNullishCoalescing
	LLogicalOr
	LLogicalAnd
	LBitwiseOr
	LBitwiseXor
	LBitwiseAnd
	LEquals
	LCompare
	LShift
	LAdd
	LMultiply
	LExponentiation
	LPrefix
	LPostfix
	LNew
	LCall
	LMember
	LPrimary
)

var binaryLevels = map[string]L{
	",":          LComma,
	"??":         LNullishCoalescing,
	"||":         LLogicalOr,
	"&&":         LLogicalAnd,
	"|":          LBitwiseOr,
	"^":          LBitwiseXor,
	"&":          LBitwiseAnd,
	"==":         LEquals,
	"!=":         LEquals,
	"===":        LEquals,
	"!==":        LEquals,
	"<":          LCompare,
	">":          LCompare,
	"<=":         LCompare,
	">=":         LCompare,
	"in":         LCompare,
	"instanceof": LCompare,
	"<<":         LShift,
	">>":         LShift,
	">>>":        LShift,
	"+":          LAdd,
	"-":          LAdd,
	"*":          LMultiply,
	"/":          LMultiply,
	"%":          LMultiply,
	"**":         LExponentiation,
}

// BinaryLevel returns the precedence of a binary or assignment operator.
func BinaryLevel(op string) L {
	if ast.IsAssignOp(op) {
		return LAssign
	}
	if l, ok := binaryLevels[op]; ok {
		return l
	}
	return LLowest
}

// Print renders a whole program.
func Print(p *ast.Program) string {
	pr := &printer{}
	pr.stmts(p.Stmts)
	return pr.sb.String()
}

// PrintStmts renders a statement list.
func PrintStmts(stmts []ast.Stmt) string {
	pr := &printer{}
	pr.stmts(stmts)
	return pr.sb.String()
}

// PrintExpr renders one expression without a trailing newline.
func PrintExpr(e ast.Expr) string {
	pr := &printer{}
	pr.expr(e, LLowest)
	return pr.sb.String()
}

type printer struct {
	sb     strings.Builder
	indent int
}

func (p *printer) print(s string) {
	p.sb.WriteString(s)
}

func (p *printer) printIndent() {
	for i := 0; i < p.indent; i++ {
		p.sb.WriteString("  ")
	}
}

func (p *printer) stmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		p.stmt(s)
	}
}

// block prints "{", the body indented, and "}" without a trailing newline.
func (p *printer) block(stmts []ast.Stmt) {
	if len(stmts) == 0 {
		p.print("{}")
		return
	}
	p.print("{\n")
	p.indent++
	p.stmts(stmts)
	p.indent--
	p.printIndent()
	p.print("}")
}

// body prints a compound statement body, always braced.
func (p *printer) body(s ast.Stmt) {
	if b, ok := s.Data.(*ast.SBlock); ok {
		p.block(b.Stmts)
		return
	}
	if s.Data == nil {
		p.print("{}")
		return
	}
	p.block([]ast.Stmt{s})
}

func (p *printer) stmt(s ast.Stmt) {
	switch s.Data.(type) {
	case nil, *ast.STypeShape:
		return
	}
	p.printIndent()
	p.stmtInline(s)
	p.print("\n")
}

// stmtInline prints one statement starting at the current position.
func (p *printer) stmtInline(s ast.Stmt) {
	switch d := s.Data.(type) {
	case *ast.SBlock:
		p.block(d.Stmts)

	case *ast.SExpr:
		if startsAmbiguously(d.Value) {
			p.print("(")
			p.expr(d.Value, LLowest)
			p.print(")")
		} else {
			p.expr(d.Value, LLowest)
		}
		p.print(";")

	case *ast.SLocal:
		if d.IsExport {
			p.print("export ")
		}
		p.local(d)
		p.print(";")

	case *ast.SFunction:
		if d.IsExport {
			p.print("export ")
		}
		p.fn(d.Fn, true)

	case *ast.SReturn:
		p.print("return")
		if !d.Value.IsMissing() {
			p.print(" ")
			p.expr(d.Value, LLowest)
		}
		p.print(";")

	case *ast.SIf:
		p.print("if (")
		p.expr(d.Test, LLowest)
		p.print(") ")
		p.body(d.Yes)
		if d.No.Data != nil {
			p.print(" else ")
			if _, ok := d.No.Data.(*ast.SIf); ok {
				p.stmtInline(d.No)
			} else {
				p.body(d.No)
			}
		}

	case *ast.SSwitch:
		p.print("switch (")
		p.expr(d.Test, LLowest)
		p.print(") {\n")
		p.indent++
		for _, c := range d.Cases {
			p.printIndent()
			if c.Value.IsMissing() {
				p.print("default:\n")
			} else {
				p.print("case ")
				p.expr(c.Value, LLowest)
				p.print(":\n")
			}
			p.indent++
			p.stmts(c.Body)
			p.indent--
		}
		p.indent--
		p.printIndent()
		p.print("}")

	case *ast.SFor:
		p.print("for (")
		switch init := d.Init.Data.(type) {
		case *ast.SLocal:
			p.local(init)
		case *ast.SExpr:
			p.expr(init.Value, LLowest)
		}
		p.print(";")
		if !d.Test.IsMissing() {
			p.print(" ")
			p.expr(d.Test, LLowest)
		}
		p.print(";")
		if !d.Update.IsMissing() {
			p.print(" ")
			p.expr(d.Update, LLowest)
		}
		p.print(") ")
		p.body(d.Body)

	case *ast.SForIn:
		p.print("for (")
		p.forInit(d.Init)
		p.print(" in ")
		p.expr(d.Value, LLowest)
		p.print(") ")
		p.body(d.Body)

	case *ast.SForOf:
		p.print("for ")
		if d.IsAwait {
			p.print("await ")
		}
		p.print("(")
		p.forInit(d.Init)
		p.print(" of ")
		p.expr(d.Value, LAssign)
		p.print(") ")
		p.body(d.Body)

	case *ast.SWhile:
		p.print("while (")
		p.expr(d.Test, LLowest)
		p.print(") ")
		p.body(d.Body)

	case *ast.SDoWhile:
		p.print("do ")
		p.body(d.Body)
		p.print(" while (")
		p.expr(d.Test, LLowest)
		p.print(");")

	case *ast.STry:
		p.print("try ")
		p.block(d.Block)
		if d.Catch != nil {
			p.print(" catch ")
			if d.Catch.Binding.Data != nil {
				p.print("(")
				p.binding(d.Catch.Binding)
				p.print(") ")
			}
			p.block(d.Catch.Body)
		}
		if d.HasFinally {
			p.print(" finally ")
			p.block(d.Finally)
		}

	case *ast.SThrow:
		p.print("throw ")
		p.expr(d.Value, LLowest)
		p.print(";")

	case *ast.SBreak:
		p.print("break")
		if d.Label != "" {
			p.print(" " + d.Label)
		}
		p.print(";")

	case *ast.SContinue:
		p.print("continue")
		if d.Label != "" {
			p.print(" " + d.Label)
		}
		p.print(";")

	case *ast.SEmpty:
		p.print(";")

	case *ast.SImport:
		p.importStmt(d)

	case *ast.SExportDefault:
		p.print("export default ")
		switch v := d.Value.Data.(type) {
		case *ast.SFunction:
			p.fn(v.Fn, true)
		case *ast.SExpr:
			p.expr(v.Value, LComma+1)
			p.print(";")
		}

	case *ast.SExportClause:
		p.print("export ")
		p.clause(d.Items)
		if d.From != "" {
			p.print(" from ")
			p.print(quote(d.From))
		}
		p.print(";")

	case *ast.SRaw:
		p.print(d.Text)
	}
}

func (p *printer) forInit(s ast.Stmt) {
	switch init := s.Data.(type) {
	case *ast.SLocal:
		p.local(init)
	case *ast.SExpr:
		p.expr(init.Value, LPostfix)
	}
}

func (p *printer) local(d *ast.SLocal) {
	p.print(d.Kind.String())
	p.print(" ")
	for i, decl := range d.Decls {
		if i > 0 {
			p.print(", ")
		}
		p.binding(decl.Binding)
		if !decl.Value.IsMissing() {
			p.print(" = ")
			p.expr(decl.Value, LComma+1)
		}
	}
}

func (p *printer) importStmt(d *ast.SImport) {
	p.print("import ")
	wrote := false
	if d.DefaultName != "" {
		p.print(d.DefaultName)
		wrote = true
	}
	if d.NamespaceName != "" {
		if wrote {
			p.print(", ")
		}
		p.print("* as " + d.NamespaceName)
		wrote = true
	}
	if len(d.Items) > 0 {
		if wrote {
			p.print(", ")
		}
		p.clause(d.Items)
		wrote = true
	}
	if wrote {
		p.print(" from ")
	}
	p.print(quote(d.Path))
	p.print(";")
}

func (p *printer) clause(items []ast.ClauseItem) {
	p.print("{ ")
	for i, item := range items {
		if i > 0 {
			p.print(", ")
		}
		p.print(item.Name)
		if item.Alias != "" && item.Alias != item.Name {
			p.print(" as " + item.Alias)
		}
	}
	p.print(" }")
}

// fn prints a function declaration or expression. Arrows are printed by expr.
func (p *printer) fn(f *ast.Fn, decl bool) {
	if f.IsAsync {
		p.print("async ")
	}
	p.print("function")
	if f.IsGenerator {
		p.print("*")
	}
	if f.Name != "" {
		p.print(" " + f.Name)
	} else if !decl {
		p.print(" ")
	}
	p.args(f.Args)
	p.print(" ")
	p.block(f.Body.Stmts)
}

func (p *printer) args(args []ast.Arg) {
	p.print("(")
	for i, a := range args {
		if i > 0 {
			p.print(", ")
		}
		if a.Rest {
			p.print("...")
		}
		p.binding(a.Binding)
		if !a.Default.IsMissing() {
			p.print(" = ")
			p.expr(a.Default, LComma+1)
		}
	}
	p.print(")")
}

func (p *printer) arrow(f *ast.Fn) {
	if f.IsAsync {
		p.print("async ")
	}
	p.args(f.Args)
	p.print(" => ")
	if f.ExprBody && len(f.Body.Stmts) == 1 {
		if ret, ok := f.Body.Stmts[0].Data.(*ast.SReturn); ok && !ret.Value.IsMissing() {
			if startsWithBrace(ret.Value) {
				p.print("(")
				p.expr(ret.Value, LLowest)
				p.print(")")
			} else {
				p.expr(ret.Value, LComma+1)
			}
			return
		}
	}
	p.block(f.Body.Stmts)
}

func (p *printer) binding(b ast.Binding) {
	switch d := b.Data.(type) {
	case *ast.BIdentifier:
		p.print(d.Name)
	case *ast.BMissing, nil:
	case *ast.BArray:
		p.print("[")
		for i, item := range d.Items {
			if i > 0 {
				p.print(", ")
			}
			if d.HasSpread && i == len(d.Items)-1 {
				p.print("...")
			}
			p.binding(item.Binding)
			if !item.Default.IsMissing() {
				p.print(" = ")
				p.expr(item.Default, LComma+1)
			}
			if _, hole := item.Binding.Data.(*ast.BMissing); hole && i == len(d.Items)-1 {
				p.print(",")
			}
		}
		p.print("]")
	case *ast.BObject:
		if len(d.Properties) == 0 {
			p.print("{}")
			return
		}
		p.print("{ ")
		for i, prop := range d.Properties {
			if i > 0 {
				p.print(", ")
			}
			if prop.IsSpread {
				p.print("...")
				p.binding(prop.Value)
				continue
			}
			key, static := prop.KeyName()
			local, isIdent := ast.BindingName(prop.Value)
			if static && isIdent && key == local {
				p.print(key)
			} else {
				p.propertyKey(prop.Key, prop.Computed)
				p.print(": ")
				p.binding(prop.Value)
			}
			if !prop.Default.IsMissing() {
				p.print(" = ")
				p.expr(prop.Default, LComma+1)
			}
		}
		p.print(" }")
	}
}

func (p *printer) propertyKey(key ast.Expr, computed bool) {
	if computed {
		p.print("[")
		p.expr(key, LComma+1)
		p.print("]")
		return
	}
	if s, ok := key.Data.(*ast.EString); ok {
		if ast.IsValidIdentifier(s.Value) {
			p.print(s.Value)
		} else {
			p.print(quote(s.Value))
		}
		return
	}
	p.expr(key, LPrimary)
}

func (p *printer) exprList(items []ast.Expr) {
	for i, item := range items {
		if i > 0 {
			p.print(", ")
		}
		p.expr(item, LComma+1)
	}
}

// expr prints e, parenthesized when its own precedence is below level.
func (p *printer) expr(e ast.Expr, level L) {
	switch d := e.Data.(type) {
	case nil:
		p.print("undefined")

	case *ast.EArray:
		p.print("[")
		p.exprList(d.Items)
		p.print("]")

	case *ast.EObject:
		p.object(d)

	case *ast.ESpread:
		p.print("...")
		p.expr(d.Value, LComma+1)

	case *ast.EString:
		p.print(quote(d.Value))

	case *ast.ETemplate:
		if !d.Tag.IsMissing() {
			p.expr(d.Tag, LPostfix)
		}
		p.print("`" + d.Head)
		for _, part := range d.Parts {
			p.print("${")
			p.expr(part.Value, LLowest)
			p.print("}" + part.Tail)
		}
		p.print("`")

	case *ast.ENumber:
		text := ast.FormatNumber(d.Value)
		if d.Value == 0 && math.Signbit(d.Value) {
			text = "-0"
		}
		wrap := (d.Value < 0 || math.Signbit(d.Value)) && level >= LPrefix
		if wrap {
			p.print("(")
		}
		p.print(text)
		if wrap {
			p.print(")")
		}

	case *ast.EBoolean:
		if d.Value {
			p.print("true")
		} else {
			p.print("false")
		}

	case *ast.ENull:
		p.print("null")

	case *ast.EUndefined:
		p.print("undefined")

	case *ast.EThis:
		p.print("this")

	case *ast.ERegExp:
		p.print(d.Value)

	case *ast.ERaw:
		p.print(d.Text)

	case *ast.EIdentifier:
		p.print(d.Name)

	case *ast.EDot:
		wrap := level > LMember
		p.open(wrap)
		p.memberTarget(d.Target)
		if d.Optional {
			p.print("?.")
		} else {
			p.print(".")
		}
		p.print(d.Name)
		p.close(wrap)

	case *ast.EIndex:
		p.memberTarget(d.Target)
		if d.Optional {
			p.print("?.")
		}
		p.print("[")
		p.expr(d.Index, LLowest)
		p.print("]")

	case *ast.ECall:
		wrap := level > LCall
		p.open(wrap)
		p.expr(d.Target, LPostfix+1)
		if d.Optional {
			p.print("?.")
		}
		p.print("(")
		p.exprList(d.Args)
		p.print(")")
		p.close(wrap)

	case *ast.ENew:
		wrap := level > LNew
		p.open(wrap)
		p.print("new ")
		p.expr(d.Target, LMember)
		p.print("(")
		p.exprList(d.Args)
		p.print(")")
		p.close(wrap)

	case *ast.EUnary:
		if d.Postfix {
			wrap := level > LPostfix
			p.open(wrap)
			p.expr(d.Value, LPostfix+1)
			p.print(d.Op)
			p.close(wrap)
			return
		}
		wrap := level > LPrefix
		p.open(wrap)
		p.print(d.Op)
		if needsSpaceAfterUnary(d) {
			p.print(" ")
		}
		p.expr(d.Value, LPrefix)
		p.close(wrap)

	case *ast.EBinary:
		p.binary(d, level)

	case *ast.EIf:
		wrap := level > LConditional
		p.open(wrap)
		p.expr(d.Test, LConditional+1)
		p.print(" ? ")
		p.expr(d.Yes, LAssign)
		p.print(" : ")
		p.expr(d.No, LAssign)
		p.close(wrap)

	case *ast.EFunction:
		if d.Fn.IsArrow {
			wrap := level > LAssign
			p.open(wrap)
			p.arrow(d.Fn)
			p.close(wrap)
			return
		}
		p.fn(d.Fn, false)

	case *ast.EAwait:
		wrap := level > LPrefix
		p.open(wrap)
		p.print("await ")
		p.expr(d.Value, LPrefix)
		p.close(wrap)

	case *ast.EYield:
		wrap := level > LYield
		p.open(wrap)
		p.print("yield")
		if d.Delegate {
			p.print("*")
		}
		if !d.Value.IsMissing() {
			p.print(" ")
			p.expr(d.Value, LYield)
		}
		p.close(wrap)
	}
}

func (p *printer) open(wrap bool) {
	if wrap {
		p.print("(")
	}
}

func (p *printer) close(wrap bool) {
	if wrap {
		p.print(")")
	}
}

// memberTarget prints the object of a member access. Integer literals need
// parentheses so the dot is not read as a decimal point.
func (p *printer) memberTarget(target ast.Expr) {
	if n, ok := target.Data.(*ast.ENumber); ok {
		p.print("(")
		p.print(ast.FormatNumber(n.Value))
		p.print(")")
		return
	}
	p.expr(target, LPostfix+1)
}

func (p *printer) binary(d *ast.EBinary, level L) {
	own := BinaryLevel(d.Op)
	wrap := level > own
	p.open(wrap)

	leftLevel, rightLevel := own, own+1
	if own == LAssign || d.Op == "**" {
		leftLevel, rightLevel = own+1, own
	}
	if d.Op == "**" {
		// Unary operands must be parenthesized on the left of **.
		leftLevel = LPostfix
	}
	if own == LAssign {
		// Assignment targets are never parenthesized by precedence.
		leftLevel = LPostfix
	}

	// ?? cannot mix with || or && without parentheses.
	if d.Op == "??" || d.Op == "||" || d.Op == "&&" {
		leftLevel = mixLevel(d.Op, d.Left, leftLevel)
		rightLevel = mixLevel(d.Op, d.Right, rightLevel)
	}

	p.expr(d.Left, leftLevel)
	if d.Op == "," {
		p.print(", ")
	} else {
		p.print(" " + d.Op + " ")
	}
	p.expr(d.Right, rightLevel)
	p.close(wrap)
}

func mixLevel(op string, operand ast.Expr, level L) L {
	inner, ok := operand.Data.(*ast.EBinary)
	if !ok {
		return level
	}
	if (op == "??") != (inner.Op == "??") && (inner.Op == "??" || inner.Op == "||" || inner.Op == "&&") {
		return LPrefix
	}
	return level
}

func needsSpaceAfterUnary(d *ast.EUnary) bool {
	r, _ := utf8.DecodeRuneInString(d.Op)
	if r >= 'a' && r <= 'z' {
		return true
	}
	switch v := d.Value.Data.(type) {
	case *ast.EUnary:
		return !v.Postfix && (d.Op == "+" || d.Op == "-") && v.Op[0] == d.Op[0]
	case *ast.ENumber:
		return v.Value < 0 && d.Op == "-"
	}
	return false
}

func (p *printer) object(d *ast.EObject) {
	if len(d.Properties) == 0 {
		p.print("{}")
		return
	}
	p.print("{ ")
	for i, prop := range d.Properties {
		if i > 0 {
			p.print(", ")
		}
		switch prop.Kind {
		case ast.PropertySpread:
			p.print("...")
			p.expr(prop.Value, LComma+1)
			continue
		case ast.PropertyMethod:
			if fn, ok := ast.FunctionOf(prop.Value); ok && !fn.IsArrow {
				if fn.IsAsync {
					p.print("async ")
				}
				if fn.IsGenerator {
					p.print("*")
				}
				p.propertyKey(prop.Key, prop.Computed)
				p.args(fn.Args)
				p.print(" ")
				p.block(fn.Body.Stmts)
				continue
			}
		}
		key, static := prop.KeyName()
		if name, ok := ast.IdentName(prop.Value); ok && static && name == key {
			p.print(key)
			continue
		}
		p.propertyKey(prop.Key, prop.Computed)
		p.print(": ")
		p.expr(prop.Value, LComma+1)
	}
	p.print(" }")
}

// startsWithBrace reports whether printing e begins with "{".
func startsWithBrace(e ast.Expr) bool {
	switch d := leftmost(e).Data.(type) {
	case *ast.EObject:
		return true
	case *ast.ERaw:
		return strings.HasPrefix(d.Text, "{")
	}
	return false
}

// startsAmbiguously reports whether e would be read as a declaration or
// block when printed at the start of a statement.
func startsAmbiguously(e ast.Expr) bool {
	first := leftmost(e)
	switch d := first.Data.(type) {
	case *ast.EObject:
		return true
	case *ast.EFunction:
		return !d.Fn.IsArrow
	case *ast.ERaw:
		return strings.HasPrefix(d.Text, "{") || strings.HasPrefix(d.Text, "function") ||
			strings.HasPrefix(d.Text, "class") || strings.HasPrefix(d.Text, "let [")
	}
	return false
}

func leftmost(e ast.Expr) ast.Expr {
	for {
		switch d := e.Data.(type) {
		case *ast.EBinary:
			e = d.Left
		case *ast.ECall:
			e = d.Target
		case *ast.EDot:
			e = d.Target
		case *ast.EIndex:
			e = d.Target
		case *ast.EIf:
			e = d.Test
		case *ast.EUnary:
			if !d.Postfix {
				return e
			}
			e = d.Value
		case *ast.ETemplate:
			if d.Tag.IsMissing() {
				return e
			}
			e = d.Tag
		default:
			return e
		}
	}
}

// quote returns a double-quoted JavaScript string literal.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case 0x2028:
			b.WriteString(`\u2028`)
		case 0x2029:
			b.WriteString(`\u2029`)
		default:
			if r < 0x20 {
				b.WriteString(`\x`)
				b.WriteString(strconv.FormatInt(int64(r)+0x100, 16)[1:])
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Quote is exported for callers building source snippets.
func Quote(s string) string {
	return quote(s)
}
