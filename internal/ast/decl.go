package ast

import "fmt"

// NamedTypeExpr is `Name[arg1, arg2]` or a bare `Name`.
type NamedTypeExpr struct {
	base
	Name string
	Args []TypeExpr
}

func (n *NamedTypeExpr) typeExprNode()  {}
func (n *NamedTypeExpr) String() string { return n.Name }

// GenericTypeExpr is an unresolved type parameter reference.
type GenericTypeExpr struct {
	base
	Name string
}

func (g *GenericTypeExpr) typeExprNode()  {}
func (g *GenericTypeExpr) String() string { return g.Name }

// RefTypeExpr is `ref T` / `mut ref T`.
type RefTypeExpr struct {
	base
	IsMut bool
	Inner TypeExpr
}

func (r *RefTypeExpr) typeExprNode()  {}
func (r *RefTypeExpr) String() string { return fmt.Sprintf("ref %s", r.Inner) }

// PtrTypeExpr is `ptr T` / `mut ptr T`.
type PtrTypeExpr struct {
	base
	IsMut bool
	Inner TypeExpr
}

func (p *PtrTypeExpr) typeExprNode()  {}
func (p *PtrTypeExpr) String() string { return fmt.Sprintf("ptr %s", p.Inner) }

// ArrayTypeExpr is `[T; N]`.
type ArrayTypeExpr struct {
	base
	Element TypeExpr
	Size    int
}

func (a *ArrayTypeExpr) typeExprNode()  {}
func (a *ArrayTypeExpr) String() string { return fmt.Sprintf("[%s; %d]", a.Element, a.Size) }

// SliceTypeExpr is `[T]`.
type SliceTypeExpr struct {
	base
	Element TypeExpr
}

func (s *SliceTypeExpr) typeExprNode()  {}
func (s *SliceTypeExpr) String() string { return fmt.Sprintf("[%s]", s.Element) }

// TupleTypeExpr is `(T1, T2, ...)`.
type TupleTypeExpr struct {
	base
	Elements []TypeExpr
}

func (t *TupleTypeExpr) typeExprNode()  {}
func (t *TupleTypeExpr) String() string { return "(...)" }

// FuncTypeExpr is `(T1, T2) -> R`.
type FuncTypeExpr struct {
	base
	Params  []TypeExpr
	Return  TypeExpr
	IsAsync bool
}

func (f *FuncTypeExpr) typeExprNode()  {}
func (f *FuncTypeExpr) String() string { return "func(...)" }

// DynTypeExpr is `dyn Behavior[args]`.
type DynTypeExpr struct {
	base
	BehaviorName string
	TypeArgs     []TypeExpr
	IsMut        bool
}

func (d *DynTypeExpr) typeExprNode()  {}
func (d *DynTypeExpr) String() string { return fmt.Sprintf("dyn %s", d.BehaviorName) }

// ---------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------

// Field is a struct field declaration.
type Field struct {
	Name string
	Type TypeExpr
}

// StructDecl declares a struct, optionally generic.
type StructDecl struct {
	base
	Name        string
	TypeParams  []string
	ConstParams []string
	Fields      []Field
	Decorators  []*Decorator
}

func (s *StructDecl) declNode()    {}
func (s *StructDecl) String() string { return fmt.Sprintf("struct %s", s.Name) }

// Variant is one enum variant with an ordered payload type list.
type Variant struct {
	Name    string
	Payload []TypeExpr
}

// EnumDecl declares an enum, optionally generic.
type EnumDecl struct {
	base
	Name        string
	TypeParams  []string
	ConstParams []string
	Variants    []Variant
	Decorators  []*Decorator
}

func (e *EnumDecl) declNode()    {}
func (e *EnumDecl) String() string { return fmt.Sprintf("enum %s", e.Name) }

// WhereConstraint is `(Param, [Behaviors...])`.
type WhereConstraint struct {
	Param     string
	Behaviors []string
}

// Param is a function/method parameter.
type Param struct {
	Name string
	Type TypeExpr
}

// FuncDecl declares a (possibly generic) function or method signature
// with a body, or an extern signature with no body.
type FuncDecl struct {
	base
	Name             string
	TypeParams       []string
	ConstParams      []string
	Params           []Param
	Return           TypeExpr
	Where            []WhereConstraint
	Body             Expr // nil for extern/abstract signatures
	IsAsync          bool
	IsLowlevel       bool
	Decorators       []*Decorator
	ExternABI        string // from @extern("abi", ...), empty if not extern
	ExternName       string
	LinkLibs         []string // from @link("lib", ...)
}

func (f *FuncDecl) declNode()    {}
func (f *FuncDecl) String() string { return fmt.Sprintf("func %s", f.Name) }

// AssociatedType is a behavior's associated type slot.
type AssociatedType struct {
	Name    string
	Bounds  []string
	Default TypeExpr // nil if none
}

// BehaviorDecl declares a trait-like behavior.
type BehaviorDecl struct {
	base
	Name            string
	TypeParams      []string
	AssociatedTypes []AssociatedType
	SuperBehaviors  []string
	Methods         []*FuncDecl // required (Body == nil) or default (Body != nil)
}

func (b *BehaviorDecl) declNode()    {}
func (b *BehaviorDecl) String() string { return fmt.Sprintf("behavior %s", b.Name) }

// AssociatedTypeBinding binds an impl's associated type to a concrete type.
type AssociatedTypeBinding struct {
	Name string
	Type TypeExpr
}

// ImplDecl implements a behavior for a type, or is an inherent impl
// when BehaviorName == "".
type ImplDecl struct {
	base
	TypeParams     []string
	TargetType     TypeExpr
	BehaviorName   string
	BehaviorArgs   []TypeExpr
	AssocBindings  []AssociatedTypeBinding
	Methods        []*FuncDecl
	Where          []WhereConstraint
}

func (i *ImplDecl) declNode()    {}
func (i *ImplDecl) String() string { return fmt.Sprintf("impl %s for %s", i.BehaviorName, i.TargetType) }

// ConstDecl declares a module-level constant.
type ConstDecl struct {
	base
	Name  string
	Type  TypeExpr
	Value Expr
}

func (c *ConstDecl) declNode()    {}
func (c *ConstDecl) String() string { return fmt.Sprintf("const %s", c.Name) }
