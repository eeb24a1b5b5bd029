// Package types implements the tagged-union Type model (SPEC_FULL.md
// §3): primitives, named (struct/enum/alias) types, generics, refs and
// raw pointers, arrays and slices, tuples, function and closure types,
// dyn-behavior objects, and inference type variables.
//
// Types carry no identity of their own: only a TypeVar has an ID,
// assigned by Context.FreshTypeVar from an atomic counter scoped to a
// Context rather than a package global (see SPEC_FULL.md §6). Equality
// is structural, via Equals.
package types

import (
	"fmt"
	"strings"
)

// Type is the closed set of type-model variants. Every case in
// SPEC_FULL.md §3 implements it.
type Type interface {
	fmt.Stringer
	// Equals reports structural equality, ignoring identity.
	Equals(Type) bool
	// Substitute performs the homomorphic walk described in
	// SPEC_FULL.md §3, replacing Generic / TypeVar names found in σ.
	Substitute(sigma map[string]Type) Type
	typeNode()
}

// PrimKind enumerates the built-in scalar kinds.
type PrimKind int

const (
	I8 PrimKind = iota
	I16
	I32
	I64
	I128
	U8
	U16
	U32
	U64
	U128
	F32
	F64
	Bool
	Char
	Str
	Unit
	Never
)

var primNames = map[PrimKind]string{
	I8: "I8", I16: "I16", I32: "I32", I64: "I64", I128: "I128",
	U8: "U8", U16: "U16", U32: "U32", U64: "U64", U128: "U128",
	F32: "F32", F64: "F64", Bool: "Bool", Char: "Char", Str: "Str",
	Unit: "Unit", Never: "Never",
}

func (k PrimKind) String() string { return primNames[k] }

// IsInteger reports whether k is one of the I*/U* kinds.
func (k PrimKind) IsInteger() bool {
	return k <= U128
}

// IsSigned reports whether k is one of the I* kinds.
func (k PrimKind) IsSigned() bool {
	return k <= I128
}

// IsFloat reports whether k is F32 or F64.
func (k PrimKind) IsFloat() bool {
	return k == F32 || k == F64
}

// Width returns the bit width of an integer/float kind, or 0 if not
// applicable (Bool, Char, Str, Unit, Never).
func (k PrimKind) Width() int {
	switch k {
	case I8, U8:
		return 8
	case I16, U16:
		return 16
	case I32, U32, F32:
		return 32
	case I64, U64, F64:
		return 64
	case I128, U128:
		return 128
	}
	return 0
}

// Primitive is a built-in scalar type.
type Primitive struct {
	Kind PrimKind
}

func (*Primitive) typeNode() {}
func (p *Primitive) String() string { return p.Kind.String() }
func (p *Primitive) Equals(o Type) bool {
	op, ok := o.(*Primitive)
	return ok && op.Kind == p.Kind
}
func (p *Primitive) Substitute(map[string]Type) Type { return p }

// Named is a user-defined struct/enum/alias, possibly instantiated
// with concrete type arguments.
type Named struct {
	Name       string
	ModulePath string
	TypeArgs   []Type
}

func (*Named) typeNode() {}
func (n *Named) String() string {
	if len(n.TypeArgs) == 0 {
		return n.Name
	}
	args := make([]string, len(n.TypeArgs))
	for i, a := range n.TypeArgs {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s[%s]", n.Name, strings.Join(args, ", "))
}
func (n *Named) Equals(o Type) bool {
	on, ok := o.(*Named)
	if !ok || on.Name != n.Name || on.ModulePath != n.ModulePath {
		return false
	}
	if len(on.TypeArgs) != len(n.TypeArgs) {
		return false
	}
	for i := range n.TypeArgs {
		if !n.TypeArgs[i].Equals(on.TypeArgs[i]) {
			return false
		}
	}
	return true
}
func (n *Named) Substitute(sigma map[string]Type) Type {
	if len(n.TypeArgs) == 0 {
		if sub, ok := sigma[n.Name]; ok {
			return sub
		}
		return n
	}
	args := make([]Type, len(n.TypeArgs))
	for i, a := range n.TypeArgs {
		args[i] = a.Substitute(sigma)
	}
	return &Named{Name: n.Name, ModulePath: n.ModulePath, TypeArgs: args}
}

// Generic is an unresolved type parameter, e.g. `T` inside a generic
// declaration's own body before instantiation.
type Generic struct {
	Name string
}

func (*Generic) typeNode() {}
func (g *Generic) String() string { return g.Name }
func (g *Generic) Equals(o Type) bool {
	og, ok := o.(*Generic)
	return ok && og.Name == g.Name
}
func (g *Generic) Substitute(sigma map[string]Type) Type {
	if sub, ok := sigma[g.Name]; ok {
		return sub
	}
	return g
}

// Ref is a shared or exclusive (mutable) reference.
type Ref struct {
	IsMut bool
	Inner Type
}

func (*Ref) typeNode() {}
func (r *Ref) String() string {
	if r.IsMut {
		return fmt.Sprintf("mut ref %s", r.Inner)
	}
	return fmt.Sprintf("ref %s", r.Inner)
}
func (r *Ref) Equals(o Type) bool {
	or, ok := o.(*Ref)
	return ok && or.IsMut == r.IsMut && or.Inner.Equals(r.Inner)
}
func (r *Ref) Substitute(sigma map[string]Type) Type {
	return &Ref{IsMut: r.IsMut, Inner: r.Inner.Substitute(sigma)}
}

// Ptr is a raw pointer.
type Ptr struct {
	IsMut bool
	Inner Type
}

func (*Ptr) typeNode() {}
func (p *Ptr) String() string {
	if p.IsMut {
		return fmt.Sprintf("mut ptr %s", p.Inner)
	}
	return fmt.Sprintf("ptr %s", p.Inner)
}
func (p *Ptr) Equals(o Type) bool {
	op, ok := o.(*Ptr)
	return ok && op.IsMut == p.IsMut && op.Inner.Equals(p.Inner)
}
func (p *Ptr) Substitute(sigma map[string]Type) Type {
	return &Ptr{IsMut: p.IsMut, Inner: p.Inner.Substitute(sigma)}
}

// Array is a fixed-length sequence.
type Array struct {
	Element Type
	Size    int
}

func (*Array) typeNode() {}
func (a *Array) String() string { return fmt.Sprintf("[%s; %d]", a.Element, a.Size) }
func (a *Array) Equals(o Type) bool {
	oa, ok := o.(*Array)
	return ok && oa.Size == a.Size && oa.Element.Equals(a.Element)
}
func (a *Array) Substitute(sigma map[string]Type) Type {
	return &Array{Element: a.Element.Substitute(sigma), Size: a.Size}
}

// Slice is an unknown-length sequence.
type Slice struct {
	Element Type
}

func (*Slice) typeNode() {}
func (s *Slice) String() string { return fmt.Sprintf("[%s]", s.Element) }
func (s *Slice) Equals(o Type) bool {
	os, ok := o.(*Slice)
	return ok && os.Element.Equals(s.Element)
}
func (s *Slice) Substitute(sigma map[string]Type) Type {
	return &Slice{Element: s.Element.Substitute(sigma)}
}

// Tuple is a fixed-arity heterogeneous product.
type Tuple struct {
	Elements []Type
}

func (*Tuple) typeNode() {}
func (t *Tuple) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
}
func (t *Tuple) Equals(o Type) bool {
	ot, ok := o.(*Tuple)
	if !ok || len(ot.Elements) != len(t.Elements) {
		return false
	}
	for i := range t.Elements {
		if !t.Elements[i].Equals(ot.Elements[i]) {
			return false
		}
	}
	return true
}
func (t *Tuple) Substitute(sigma map[string]Type) Type {
	elems := make([]Type, len(t.Elements))
	for i, e := range t.Elements {
		elems[i] = e.Substitute(sigma)
	}
	return &Tuple{Elements: elems}
}

// Func is a named-function signature type (no captures).
type Func struct {
	Params  []Type
	Return  Type
	IsAsync bool
}

func (*Func) typeNode() {}
func (f *Func) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.String()
	}
	async := ""
	if f.IsAsync {
		async = "async "
	}
	return fmt.Sprintf("%s(%s) -> %s", async, strings.Join(parts, ", "), f.Return)
}
func (f *Func) Equals(o Type) bool {
	of, ok := o.(*Func)
	if !ok || of.IsAsync != f.IsAsync || len(of.Params) != len(f.Params) {
		return false
	}
	for i := range f.Params {
		if !f.Params[i].Equals(of.Params[i]) {
			return false
		}
	}
	return f.Return.Equals(of.Return)
}
func (f *Func) Substitute(sigma map[string]Type) Type {
	params := make([]Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Substitute(sigma)
	}
	return &Func{Params: params, Return: f.Return.Substitute(sigma), IsAsync: f.IsAsync}
}

// Capture describes one closure capture slot.
type Capture struct {
	Name  string
	Type  Type
	IsMut bool
}

// Closure is a function value type that additionally carries its
// capture list, used by the reference backend to build the fat
// pointer's environment struct layout.
type Closure struct {
	Params   []Type
	Return   Type
	Captures []Capture
}

func (*Closure) typeNode() {}
func (c *Closure) String() string {
	parts := make([]string, len(c.Params))
	for i, p := range c.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("closure(%s) -> %s", strings.Join(parts, ", "), c.Return)
}
func (c *Closure) Equals(o Type) bool {
	oc, ok := o.(*Closure)
	if !ok || len(oc.Params) != len(c.Params) || len(oc.Captures) != len(c.Captures) {
		return false
	}
	for i := range c.Params {
		if !c.Params[i].Equals(oc.Params[i]) {
			return false
		}
	}
	for i := range c.Captures {
		if c.Captures[i].Name != oc.Captures[i].Name ||
			c.Captures[i].IsMut != oc.Captures[i].IsMut ||
			!c.Captures[i].Type.Equals(oc.Captures[i].Type) {
			return false
		}
	}
	return c.Return.Equals(oc.Return)
}
func (c *Closure) Substitute(sigma map[string]Type) Type {
	params := make([]Type, len(c.Params))
	for i, p := range c.Params {
		params[i] = p.Substitute(sigma)
	}
	captures := make([]Capture, len(c.Captures))
	for i, cap := range c.Captures {
		captures[i] = Capture{Name: cap.Name, Type: cap.Type.Substitute(sigma), IsMut: cap.IsMut}
	}
	return &Closure{Params: params, Return: c.Return.Substitute(sigma), Captures: captures}
}

// DynBehavior is an existentially typed, object-dispatched behavior
// value: `dyn Behavior[args]`.
type DynBehavior struct {
	BehaviorName string
	TypeArgs     []Type
	IsMut        bool
}

func (*DynBehavior) typeNode() {}
func (d *DynBehavior) String() string {
	if len(d.TypeArgs) == 0 {
		return fmt.Sprintf("dyn %s", d.BehaviorName)
	}
	args := make([]string, len(d.TypeArgs))
	for i, a := range d.TypeArgs {
		args[i] = a.String()
	}
	return fmt.Sprintf("dyn %s[%s]", d.BehaviorName, strings.Join(args, ", "))
}
func (d *DynBehavior) Equals(o Type) bool {
	od, ok := o.(*DynBehavior)
	if !ok || od.BehaviorName != d.BehaviorName || od.IsMut != d.IsMut || len(od.TypeArgs) != len(d.TypeArgs) {
		return false
	}
	for i := range d.TypeArgs {
		if !d.TypeArgs[i].Equals(od.TypeArgs[i]) {
			return false
		}
	}
	return true
}
func (d *DynBehavior) Substitute(sigma map[string]Type) Type {
	args := make([]Type, len(d.TypeArgs))
	for i, a := range d.TypeArgs {
		args[i] = a.Substitute(sigma)
	}
	return &DynBehavior{BehaviorName: d.BehaviorName, TypeArgs: args, IsMut: d.IsMut}
}

// Constraint names a behavior a type variable must implement.
type Constraint struct {
	Behavior string
}

// TypeVar is an inference unknown, resolved through the environment's
// substitution map (see internal/tenv.Unifier).
type TypeVar struct {
	ID         uint64
	Constraint *Constraint // optional
}

func (*TypeVar) typeNode() {}
func (t *TypeVar) String() string { return fmt.Sprintf("?t%d", t.ID) }
func (t *TypeVar) Equals(o Type) bool {
	ot, ok := o.(*TypeVar)
	return ok && ot.ID == t.ID
}
func (t *TypeVar) Substitute(sigma map[string]Type) Type {
	if sub, ok := sigma[t.String()]; ok {
		return sub
	}
	return t
}

// Common predefined primitives, interned once.
var (
	TI8    = &Primitive{Kind: I8}
	TI16   = &Primitive{Kind: I16}
	TI32   = &Primitive{Kind: I32}
	TI64   = &Primitive{Kind: I64}
	TI128  = &Primitive{Kind: I128}
	TU8    = &Primitive{Kind: U8}
	TU16   = &Primitive{Kind: U16}
	TU32   = &Primitive{Kind: U32}
	TU64   = &Primitive{Kind: U64}
	TU128  = &Primitive{Kind: U128}
	TF32   = &Primitive{Kind: F32}
	TF64   = &Primitive{Kind: F64}
	TBool  = &Primitive{Kind: Bool}
	TChar  = &Primitive{Kind: Char}
	TStr   = &Primitive{Kind: Str}
	TUnit  = &Primitive{Kind: Unit}
	TNever = &Primitive{Kind: Never}
)

// TypesEqual is the free-function form of structural equality
// (SPEC_FULL.md §3's `types_equal`), for call sites that don't already
// hold a concrete receiver.
func TypesEqual(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equals(b)
}

// SubstituteType is the free-function form of substitution
// (SPEC_FULL.md §3's `substitute_type`).
func SubstituteType(t Type, sigma map[string]Type) Type {
	if t == nil {
		return nil
	}
	return t.Substitute(sigma)
}
