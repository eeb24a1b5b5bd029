// Package ast defines the node vocabulary the core compiler consumes.
//
// The lexer and parser that produce these nodes are outside the core's
// scope (see SPEC_FULL.md §1); this package only fixes the shape the
// core depends on: literals, identifiers, operators, calls, control
// flow, declarations and imports, each carrying a source Pos/Span.
package ast

import "fmt"

// Pos is a single point in source.
type Pos struct {
	File   string
	Line   int
	Column int
	Offset int
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Span is a half-open range in source, used on every diagnostic.
type Span struct {
	Start Pos
	End   Pos
}

func (s Span) String() string {
	return fmt.Sprintf("%s-%d:%d", s.Start, s.End.Line, s.End.Column)
}

// Node is the base interface for every AST node.
type Node interface {
	Position() Span
	String() string
}

// Expr is any expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is any statement node (let/var/expr statements).
type Stmt interface {
	Node
	stmtNode()
}

// Decl is any top-level declaration.
type Decl interface {
	Node
	declNode()
}

// TypeExpr is a parsed (not yet resolved) type annotation.
type TypeExpr interface {
	Node
	typeExprNode()
}

// base embeds a span and gives every node its Position().
type base struct {
	Span Span
}

func (b base) Position() Span { return b.Span }

// ---------------------------------------------------------------------
// File / module / import
// ---------------------------------------------------------------------

// File is a single parsed translation unit.
type File struct {
	base
	ModulePath string
	Imports    []*ImportDecl
	Decls      []Decl
}

func (f *File) String() string { return fmt.Sprintf("file(%s)", f.ModulePath) }

// ImportDecl names a module to import, optionally aliased.
type ImportDecl struct {
	base
	ModulePath string
	Symbol     string // empty = import whole module
	Alias      string // empty = no alias
}

func (i *ImportDecl) String() string { return fmt.Sprintf("import %s", i.ModulePath) }

// ---------------------------------------------------------------------
// Literals, identifiers, operators
// ---------------------------------------------------------------------

type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitString
	LitChar
	LitBool
	LitUnit
)

// Literal is any literal value.
type Literal struct {
	base
	Kind  LitKind
	Value interface{}
}

func (l *Literal) exprNode()      {}
func (l *Literal) String() string { return fmt.Sprintf("%v", l.Value) }

// InterpString is an interpolated string literal: pieces alternate
// literal text and embedded expressions.
type InterpString struct {
	base
	Parts []InterpPart
}

type InterpPart struct {
	Text string // literal text, when Expr == nil
	Expr Expr   // embedded expression, when non-nil
}

func (i *InterpString) exprNode()      {}
func (i *InterpString) String() string { return "interp-string" }

// Ident is a name reference.
type Ident struct {
	base
	Name string
}

func (i *Ident) exprNode()      {}
func (i *Ident) String() string { return i.Name }

// BinaryExpr is a binary operator application.
type BinaryExpr struct {
	base
	Op    string
	Left  Expr
	Right Expr
}

func (b *BinaryExpr) exprNode()      {}
func (b *BinaryExpr) String() string { return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right) }

// UnaryExpr is a unary operator application: ref, mut ref, *, !, -.
type UnaryExpr struct {
	base
	Op      string
	Operand Expr
}

func (u *UnaryExpr) exprNode()      {}
func (u *UnaryExpr) String() string { return fmt.Sprintf("%s%s", u.Op, u.Operand) }

// ---------------------------------------------------------------------
// Calls, method calls, field/index access
// ---------------------------------------------------------------------

// CallExpr is a direct call: callee(args...).
type CallExpr struct {
	base
	Callee Expr
	Args   []Expr
}

func (c *CallExpr) exprNode()      {}
func (c *CallExpr) String() string { return fmt.Sprintf("%s(...)", c.Callee) }

// MethodCallExpr is receiver.method(args...).
type MethodCallExpr struct {
	base
	Receiver Expr
	Method   string
	TypeArgs []TypeExpr
	Args     []Expr
}

func (m *MethodCallExpr) exprNode()      {}
func (m *MethodCallExpr) String() string { return fmt.Sprintf("%s.%s(...)", m.Receiver, m.Method) }

// FieldExpr is receiver.field.
type FieldExpr struct {
	base
	Receiver Expr
	Field    string
}

func (f *FieldExpr) exprNode()      {}
func (f *FieldExpr) String() string { return fmt.Sprintf("%s.%s", f.Receiver, f.Field) }

// IndexExpr is receiver[index].
type IndexExpr struct {
	base
	Receiver Expr
	Index    Expr
}

func (x *IndexExpr) exprNode()      {}
func (x *IndexExpr) String() string { return fmt.Sprintf("%s[%s]", x.Receiver, x.Index) }

// PathExpr is a qualified name: module::symbol or Type::method.
type PathExpr struct {
	base
	Segments []string
}

func (p *PathExpr) exprNode()      {}
func (p *PathExpr) String() string { return fmt.Sprintf("path(%v)", p.Segments) }

// RangeExpr is lo..hi or lo..=hi.
type RangeExpr struct {
	base
	Lo, Hi    Expr
	Inclusive bool
}

func (r *RangeExpr) exprNode()      {}
func (r *RangeExpr) String() string { return fmt.Sprintf("%s..%s", r.Lo, r.Hi) }

// CastExpr is expr as Type.
type CastExpr struct {
	base
	Value  Expr
	Target TypeExpr
}

func (c *CastExpr) exprNode()      {}
func (c *CastExpr) String() string { return fmt.Sprintf("%s as %s", c.Value, c.Target) }

// ---------------------------------------------------------------------
// Aggregates
// ---------------------------------------------------------------------

type TupleExpr struct {
	base
	Elements []Expr
}

func (t *TupleExpr) exprNode()      {}
func (t *TupleExpr) String() string { return "tuple(...)" }

type ArrayExpr struct {
	base
	Elements []Expr
}

func (a *ArrayExpr) exprNode()      {}
func (a *ArrayExpr) String() string { return "array(...)" }

type StructLitField struct {
	Name  string
	Value Expr
}

type StructExpr struct {
	base
	TypeName string
	TypeArgs []TypeExpr
	Fields   []StructLitField
}

func (s *StructExpr) exprNode()      {}
func (s *StructExpr) String() string { return fmt.Sprintf("%s{...}", s.TypeName) }

type ClosureParam struct {
	Name string
	Type TypeExpr // may be nil (inferred)
}

// ClosureExpr is an anonymous function literal; capture analysis
// happens in the borrow checker, not here.
type ClosureExpr struct {
	base
	Params  []ClosureParam
	Return  TypeExpr // may be nil
	Body    Expr
	IsAsync bool
}

func (c *ClosureExpr) exprNode()      {}
func (c *ClosureExpr) String() string { return "closure(...)" }

// ---------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------

type BlockExpr struct {
	base
	Statements []Stmt
	Tail       Expr // optional trailing expression
}

func (b *BlockExpr) exprNode()      {}
func (b *BlockExpr) String() string { return "block{...}" }

type IfExpr struct {
	base
	Cond Expr
	Then Expr
	Else Expr // nil if absent
}

func (i *IfExpr) exprNode()      {}
func (i *IfExpr) String() string { return fmt.Sprintf("if %s", i.Cond) }

// IfLetExpr binds a pattern against a scrutinee, falling to Else on mismatch.
type IfLetExpr struct {
	base
	Pattern   Pattern
	Scrutinee Expr
	Then      Expr
	Else      Expr
}

func (i *IfLetExpr) exprNode()      {}
func (i *IfLetExpr) String() string { return "if-let" }

type WhenArm struct {
	Pattern Pattern
	Guard   Expr // optional
	Body    Expr
}

// WhenExpr is a match-style expression over a scrutinee.
type WhenExpr struct {
	base
	Scrutinee Expr
	Arms      []WhenArm
}

func (w *WhenExpr) exprNode()      {}
func (w *WhenExpr) String() string { return "when {...}" }

type LoopExpr struct {
	base
	Body Expr
}

func (l *LoopExpr) exprNode()      {}
func (l *LoopExpr) String() string { return "loop {...}" }

type WhileExpr struct {
	base
	Cond Expr
	Body Expr
}

func (w *WhileExpr) exprNode()      {}
func (w *WhileExpr) String() string { return "while {...}" }

type ForExpr struct {
	base
	Binder   string
	Iterable Expr
	Body     Expr
}

func (f *ForExpr) exprNode()      {}
func (f *ForExpr) String() string { return fmt.Sprintf("for %s", f.Binder) }

type ReturnExpr struct {
	base
	Value Expr // nil for bare return
}

func (r *ReturnExpr) exprNode()      {}
func (r *ReturnExpr) String() string { return "return" }

type BreakExpr struct {
	base
	Value Expr // nil for bare break
}

func (b *BreakExpr) exprNode()      {}
func (b *BreakExpr) String() string { return "break" }

type ContinueExpr struct {
	base
}

func (c *ContinueExpr) exprNode()      {}
func (c *ContinueExpr) String() string { return "continue" }

// ---------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------

type LetStmt struct {
	base
	Name    string
	Mutable bool
	Type    TypeExpr // may be nil
	Value   Expr
}

func (l *LetStmt) stmtNode()      {}
func (l *LetStmt) String() string { return fmt.Sprintf("let %s = ...", l.Name) }

type AssignStmt struct {
	base
	Target Expr
	Op     string // "=", "+=", ...
	Value  Expr
}

func (a *AssignStmt) stmtNode()      {}
func (a *AssignStmt) String() string { return fmt.Sprintf("%s %s ...", a.Target, a.Op) }

type ExprStmt struct {
	base
	X Expr
}

func (e *ExprStmt) stmtNode()      {}
func (e *ExprStmt) String() string { return e.X.String() }

// ---------------------------------------------------------------------
// Patterns
// ---------------------------------------------------------------------

type Pattern interface {
	Node
	patternNode()
}

type WildcardPattern struct{ base }

func (w *WildcardPattern) patternNode()   {}
func (w *WildcardPattern) String() string { return "_" }

type VarPattern struct {
	base
	Name string
}

func (v *VarPattern) patternNode()   {}
func (v *VarPattern) String() string { return v.Name }

type LitPattern struct {
	base
	Value interface{}
}

func (l *LitPattern) patternNode()   {}
func (l *LitPattern) String() string { return fmt.Sprintf("%v", l.Value) }

type CtorPattern struct {
	base
	Name string
	Args []Pattern
}

func (c *CtorPattern) patternNode()   {}
func (c *CtorPattern) String() string { return fmt.Sprintf("%s(...)", c.Name) }

type TuplePattern struct {
	base
	Elements []Pattern
}

func (t *TuplePattern) patternNode()   {}
func (t *TuplePattern) String() string { return "(...)" }

// ---------------------------------------------------------------------
// Decorators (e.g. @link("m"), @extern("abi", "name"))
// ---------------------------------------------------------------------

type Decorator struct {
	base
	Name string
	Args []Expr
}

func (d *Decorator) String() string { return fmt.Sprintf("@%s(...)", d.Name) }
