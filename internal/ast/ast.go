package ast

// Loc is a 1-based source position. The zero Loc means "synthesized".
type Loc struct {
	Line   int
	Column int
}

// IsValid reports whether the location points into real source.
func (l Loc) IsValid() bool {
	return l.Line > 0
}

// Program is the root of a parsed module.
type Program struct {
	Path  string
	Stmts []Stmt
}

// Expr is an expression node. Data is nil for "no expression" (a bare
// return, a missing default, an absent else branch expression).
type Expr struct {
	Loc  Loc
	Data E
}

// IsMissing reports whether e carries no expression.
func (e Expr) IsMissing() bool {
	return e.Data == nil
}

// E is the closed set of expression kinds.
type E interface{ isExpr() }

func (*EArray) isExpr()      {}
func (*EObject) isExpr()     {}
func (*ESpread) isExpr()     {}
func (*EString) isExpr()     {}
func (*ETemplate) isExpr()   {}
func (*ENumber) isExpr()     {}
func (*EBoolean) isExpr()    {}
func (*ENull) isExpr()       {}
func (*EUndefined) isExpr()  {}
func (*EThis) isExpr()       {}
func (*ERegExp) isExpr()     {}
func (*EIdentifier) isExpr() {}
func (*EDot) isExpr()        {}
func (*EIndex) isExpr()      {}
func (*ECall) isExpr()       {}
func (*ENew) isExpr()        {}
func (*EUnary) isExpr()      {}
func (*EBinary) isExpr()     {}
func (*EIf) isExpr()         {}
func (*EFunction) isExpr()   {}
func (*EAwait) isExpr()      {}
func (*EYield) isExpr()      {}
func (*ERaw) isExpr()        {}

// EArray is an array literal. IsMarkup marks the [tag, attributes, children]
// triples produced by markup lowering.
type EArray struct {
	Items    []Expr
	IsMarkup bool
}

// PropertyKind distinguishes object literal members.
type PropertyKind uint8

const (
	PropertyNormal PropertyKind = iota
	PropertySpread
	PropertyMethod
)

// Property is one member of an object literal. Non-computed keys are stored
// as *EString; spreads keep their operand in Value and leave Key empty.
type Property struct {
	Kind      PropertyKind
	Key       Expr
	Value     Expr
	Computed  bool
	Shorthand bool
}

// KeyName returns the static key name, if the key is not computed.
func (p *Property) KeyName() (string, bool) {
	if p.Computed || p.Kind == PropertySpread {
		return "", false
	}
	if s, ok := p.Key.Data.(*EString); ok {
		return s.Value, true
	}
	return "", false
}

type EObject struct {
	Properties []Property
}

type ESpread struct {
	Value Expr
}

type EString struct {
	Value string
}

// TemplatePart is a substitution followed by the raw text after it.
type TemplatePart struct {
	Value Expr
	Tail  string
}

// ETemplate is a template literal. Head and Tail hold raw (uncooked) text.
// Tag is missing for untagged templates.
type ETemplate struct {
	Tag   Expr
	Head  string
	Parts []TemplatePart
}

type ENumber struct {
	Value float64
}

type EBoolean struct {
	Value bool
}

type ENull struct{}

type EUndefined struct{}

type EThis struct{}

type ERegExp struct {
	Value string
}

type EIdentifier struct {
	Name string
}

// EDot is a static member access. Name is never an expression, so passes
// that rewrite identifiers never touch it.
type EDot struct {
	Target   Expr
	Name     string
	Optional bool
}

type EIndex struct {
	Target   Expr
	Index    Expr
	Optional bool
}

type ECall struct {
	Target   Expr
	Args     []Expr
	Optional bool
}

type ENew struct {
	Target Expr
	Args   []Expr
}

// EUnary covers prefix operators (!, -, +, ~, typeof, void, delete) and the
// update operators (++, --) in prefix or postfix position.
type EUnary struct {
	Op      string
	Value   Expr
	Postfix bool
}

// EBinary covers arithmetic, comparison, logical, assignment and comma
// operators.
type EBinary struct {
	Op    string
	Left  Expr
	Right Expr
}

// IsAssign reports whether the operator writes to its left operand.
func (e *EBinary) IsAssign() bool {
	return IsAssignOp(e.Op)
}

// IsAssignOp reports whether op is "=" or a compound assignment.
func IsAssignOp(op string) bool {
	switch op {
	case "=", "+=", "-=", "*=", "/=", "%=", "**=", "<<=", ">>=", ">>>=",
		"&=", "|=", "^=", "&&=", "||=", "??=":
		return true
	}
	return false
}

// EIf is the conditional operator.
type EIf struct {
	Test Expr
	Yes  Expr
	No   Expr
}

// EFunction is a function expression or an arrow function.
type EFunction struct {
	Fn *Fn
}

type EAwait struct {
	Value Expr
}

type EYield struct {
	Value    Expr
	Delegate bool
}

// ERaw carries source text for constructs the tree does not model. Passes
// treat it as opaque; the printer emits it verbatim.
type ERaw struct {
	Text string
}

// Fn is shared by function declarations, function expressions and arrows.
type Fn struct {
	Name        string
	Args        []Arg
	Body        FnBody
	IsArrow     bool
	IsAsync     bool
	IsGenerator bool

	// ExprBody marks an arrow whose body was a single expression. Body then
	// holds exactly one SReturn.
	ExprBody bool
}

type FnBody struct {
	Loc   Loc
	Stmts []Stmt
}

// Arg is a formal parameter. TypeName keeps the referenced type name of a
// TypeScript annotation so prop shapes can be resolved.
type Arg struct {
	Binding  Binding
	Default  Expr
	Rest     bool
	TypeName string
}

// Binding is a declaration target: an identifier or a destructuring pattern.
type Binding struct {
	Loc  Loc
	Data B
}

// B is the closed set of binding kinds.
type B interface{ isBinding() }

func (*BIdentifier) isBinding() {}
func (*BArray) isBinding()      {}
func (*BObject) isBinding()     {}
func (*BMissing) isBinding()    {}

type BIdentifier struct {
	Name string
}

type ArrayBinding struct {
	Binding Binding
	Default Expr
}

// BArray is an array pattern. HasSpread marks the last item as a rest element.
type BArray struct {
	Items     []ArrayBinding
	HasSpread bool
}

// PropertyBinding is one member of an object pattern. Non-computed keys are
// *EString. IsSpread marks a rest element, which has no key.
type PropertyBinding struct {
	Key      Expr
	Value    Binding
	Default  Expr
	Computed bool
	IsSpread bool
}

// KeyName returns the static key, if any.
func (p *PropertyBinding) KeyName() (string, bool) {
	if p.Computed || p.IsSpread {
		return "", false
	}
	if s, ok := p.Key.Data.(*EString); ok {
		return s.Value, true
	}
	return "", false
}

type BObject struct {
	Properties []PropertyBinding
}

// BMissing is an array pattern hole.
type BMissing struct{}

// Stmt is a statement node.
type Stmt struct {
	Loc  Loc
	Data S
}

// S is the closed set of statement kinds.
type S interface{ isStmt() }

func (*SBlock) isStmt()         {}
func (*SExpr) isStmt()          {}
func (*SLocal) isStmt()         {}
func (*SFunction) isStmt()      {}
func (*SReturn) isStmt()        {}
func (*SIf) isStmt()            {}
func (*SSwitch) isStmt()        {}
func (*SFor) isStmt()           {}
func (*SForIn) isStmt()         {}
func (*SForOf) isStmt()         {}
func (*SWhile) isStmt()         {}
func (*SDoWhile) isStmt()       {}
func (*STry) isStmt()           {}
func (*SThrow) isStmt()         {}
func (*SBreak) isStmt()         {}
func (*SContinue) isStmt()      {}
func (*SEmpty) isStmt()         {}
func (*SImport) isStmt()        {}
func (*SExportDefault) isStmt() {}
func (*SExportClause) isStmt()  {}
func (*STypeShape) isStmt()     {}
func (*SRaw) isStmt()           {}

type SBlock struct {
	Stmts []Stmt
}

type SExpr struct {
	Value Expr
}

type LocalKind uint8

const (
	LocalVar LocalKind = iota
	LocalLet
	LocalConst
)

func (k LocalKind) String() string {
	switch k {
	case LocalLet:
		return "let"
	case LocalConst:
		return "const"
	default:
		return "var"
	}
}

type Decl struct {
	Binding Binding
	Value   Expr
}

type SLocal struct {
	Kind     LocalKind
	Decls    []Decl
	IsExport bool
}

type SFunction struct {
	Fn       *Fn
	IsExport bool
}

// SReturn has a missing Value for a bare return.
type SReturn struct {
	Value Expr
}

// SIf has a nil No.Data when there is no else branch.
type SIf struct {
	Test Expr
	Yes  Stmt
	No   Stmt
}

// Case is one switch clause. A missing Value marks the default clause.
type Case struct {
	Value Expr
	Body  []Stmt
}

type SSwitch struct {
	Test  Expr
	Cases []Case
}

type SFor struct {
	Init   Stmt
	Test   Expr
	Update Expr
	Body   Stmt
}

// SForIn and SForOf keep their left side in Init, either an SLocal with one
// declaration and no value, or an SExpr holding the assignment target.
type SForIn struct {
	Init  Stmt
	Value Expr
	Body  Stmt
}

type SForOf struct {
	Init    Stmt
	Value   Expr
	Body    Stmt
	IsAwait bool
}

type SWhile struct {
	Test Expr
	Body Stmt
}

type SDoWhile struct {
	Body Stmt
	Test Expr
}

type Catch struct {
	Binding Binding
	Body    []Stmt
}

type STry struct {
	Block      []Stmt
	Catch      *Catch
	Finally    []Stmt
	HasFinally bool
}

type SThrow struct {
	Value Expr
}

type SBreak struct {
	Label string
}

type SContinue struct {
	Label string
}

type SEmpty struct{}

// ClauseItem is one import or export specifier. For imports Name is the
// imported name and Alias the local one; for exports Name is local and Alias
// exported. An empty Alias means the same name.
type ClauseItem struct {
	Name  string
	Alias string
}

// LocalName returns the name bound in the importing module.
func (c ClauseItem) LocalName() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Name
}

type SImport struct {
	DefaultName   string
	NamespaceName string
	Items         []ClauseItem
	Path          string
}

// SExportDefault holds either an SExpr or an SFunction.
type SExportDefault struct {
	Value Stmt
}

// SExportClause is `export { a, b as c }`, optionally re-exported From a module.
type SExportClause struct {
	Items []ClauseItem
	From  string
}

// STypeShape is a TypeScript type alias or interface. Fields lists the
// property names of an object-shaped type. Printing erases it.
type STypeShape struct {
	Name     string
	Fields   []string
	IsExport bool
}

// SRaw carries source text for statements the tree does not model.
type SRaw struct {
	Text string
}
