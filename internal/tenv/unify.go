package tenv

import (
	"fmt"

	"github.com/hivellm/tmlc/internal/types"
)

// Unifier holds the inference substitution map and the Context that
// allocates fresh type variables (SPEC_FULL.md §4.1's
// fresh_type_var/unify/resolve trio).
type Unifier struct {
	ctx  *types.Context
	subs map[string]types.Type
}

func newUnifier(ctx *types.Context) *Unifier {
	return &Unifier{ctx: ctx, subs: map[string]types.Type{}}
}

// FreshTypeVar allocates a new inference unknown.
func (u *Unifier) FreshTypeVar() *types.TypeVar {
	return u.ctx.FreshTypeVar()
}

// Resolve follows substitutions to a fixed point, with a bounded
// visited set guarding against substitution cycles (SPEC_FULL.md §4.1).
func (u *Unifier) Resolve(t types.Type) types.Type {
	visited := map[string]bool{}
	for {
		tv, ok := t.(*types.TypeVar)
		if !ok {
			return u.resolveChildren(t)
		}
		key := tv.String()
		if visited[key] {
			// Substitution cycle: return as-is rather than loop forever.
			return t
		}
		visited[key] = true
		next, bound := u.subs[key]
		if !bound {
			return t
		}
		t = next
	}
}

// resolveChildren recursively resolves any nested type variables
// inside a composite type once the outermost layer is no longer a bare
// TypeVar.
func (u *Unifier) resolveChildren(t types.Type) types.Type {
	switch v := t.(type) {
	case *types.Ref:
		return &types.Ref{IsMut: v.IsMut, Inner: u.Resolve(v.Inner)}
	case *types.Ptr:
		return &types.Ptr{IsMut: v.IsMut, Inner: u.Resolve(v.Inner)}
	case *types.Array:
		return &types.Array{Element: u.Resolve(v.Element), Size: v.Size}
	case *types.Slice:
		return &types.Slice{Element: u.Resolve(v.Element)}
	case *types.Tuple:
		elems := make([]types.Type, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = u.Resolve(e)
		}
		return &types.Tuple{Elements: elems}
	case *types.Func:
		params := make([]types.Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = u.Resolve(p)
		}
		return &types.Func{Params: params, Return: u.Resolve(v.Return), IsAsync: v.IsAsync}
	case *types.Closure:
		params := make([]types.Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = u.Resolve(p)
		}
		caps := make([]types.Capture, len(v.Captures))
		for i, c := range v.Captures {
			caps[i] = types.Capture{Name: c.Name, Type: u.Resolve(c.Type), IsMut: c.IsMut}
		}
		return &types.Closure{Params: params, Return: u.Resolve(v.Return), Captures: caps}
	case *types.Named:
		args := make([]types.Type, len(v.TypeArgs))
		for i, a := range v.TypeArgs {
			args[i] = u.Resolve(a)
		}
		return &types.Named{Name: v.Name, ModulePath: v.ModulePath, TypeArgs: args}
	case *types.DynBehavior:
		args := make([]types.Type, len(v.TypeArgs))
		for i, a := range v.TypeArgs {
			args[i] = u.Resolve(a)
		}
		return &types.DynBehavior{BehaviorName: v.BehaviorName, TypeArgs: args, IsMut: v.IsMut}
	default:
		return t
	}
}

// Unify structurally unifies a and b, recording substitutions for any
// TypeVar encountered, and returns an error on structural mismatch.
func (u *Unifier) Unify(a, b types.Type) error {
	a, b = u.Resolve(a), u.Resolve(b)

	if av, ok := a.(*types.TypeVar); ok {
		return u.bind(av, b)
	}
	if bv, ok := b.(*types.TypeVar); ok {
		return u.bind(bv, a)
	}

	switch av := a.(type) {
	case *types.Primitive:
		bv, ok := b.(*types.Primitive)
		if !ok || bv.Kind != av.Kind {
			return mismatch(a, b)
		}
		return nil
	case *types.Generic:
		bv, ok := b.(*types.Generic)
		if !ok || bv.Name != av.Name {
			return mismatch(a, b)
		}
		return nil
	case *types.Named:
		bv, ok := b.(*types.Named)
		if !ok || bv.Name != av.Name || len(bv.TypeArgs) != len(av.TypeArgs) {
			return mismatch(a, b)
		}
		for i := range av.TypeArgs {
			if err := u.Unify(av.TypeArgs[i], bv.TypeArgs[i]); err != nil {
				return err
			}
		}
		return nil
	case *types.Ref:
		bv, ok := b.(*types.Ref)
		if !ok || bv.IsMut != av.IsMut {
			return mismatch(a, b)
		}
		return u.Unify(av.Inner, bv.Inner)
	case *types.Ptr:
		bv, ok := b.(*types.Ptr)
		if !ok || bv.IsMut != av.IsMut {
			return mismatch(a, b)
		}
		return u.Unify(av.Inner, bv.Inner)
	case *types.Array:
		bv, ok := b.(*types.Array)
		if !ok || bv.Size != av.Size {
			return mismatch(a, b)
		}
		return u.Unify(av.Element, bv.Element)
	case *types.Slice:
		bv, ok := b.(*types.Slice)
		if !ok {
			return mismatch(a, b)
		}
		return u.Unify(av.Element, bv.Element)
	case *types.Tuple:
		bv, ok := b.(*types.Tuple)
		if !ok || len(bv.Elements) != len(av.Elements) {
			return mismatch(a, b)
		}
		for i := range av.Elements {
			if err := u.Unify(av.Elements[i], bv.Elements[i]); err != nil {
				return err
			}
		}
		return nil
	case *types.Func:
		bv, ok := b.(*types.Func)
		if !ok || len(bv.Params) != len(av.Params) {
			return mismatch(a, b)
		}
		for i := range av.Params {
			if err := u.Unify(av.Params[i], bv.Params[i]); err != nil {
				return err
			}
		}
		return u.Unify(av.Return, bv.Return)
	case *types.Closure:
		bv, ok := b.(*types.Closure)
		if !ok || len(bv.Params) != len(av.Params) {
			return mismatch(a, b)
		}
		for i := range av.Params {
			if err := u.Unify(av.Params[i], bv.Params[i]); err != nil {
				return err
			}
		}
		return u.Unify(av.Return, bv.Return)
	case *types.DynBehavior:
		bv, ok := b.(*types.DynBehavior)
		if !ok || bv.BehaviorName != av.BehaviorName {
			return mismatch(a, b)
		}
		return nil
	default:
		if !a.Equals(b) {
			return mismatch(a, b)
		}
		return nil
	}
}

func (u *Unifier) bind(v *types.TypeVar, t types.Type) error {
	if tv, ok := t.(*types.TypeVar); ok && tv.ID == v.ID {
		return nil
	}
	if occurs(v, t) {
		return fmt.Errorf("occurs check failed: %s occurs in %s", v, t)
	}
	if v.Constraint != nil {
		if err := checkLiteralConstraint(v.Constraint.Behavior, t); err != nil {
			return err
		}
	}
	u.subs[v.String()] = t
	return nil
}

// checkLiteralConstraint enforces the handful of built-in defaulting
// constraints a bare integer/float literal's fresh type variable
// carries (SPEC_FULL.md §4.2's literal defaulting); anything else
// (user behaviors on ordinary type variables) is left to
// checkWhereClause once the variable resolves to a concrete type.
func checkLiteralConstraint(behavior string, t types.Type) error {
	if _, isVar := t.(*types.TypeVar); isVar {
		return nil
	}
	prim, ok := t.(*types.Primitive)
	switch behavior {
	case "Integer":
		if !ok || !prim.Kind.IsInteger() {
			return mismatch(&types.Primitive{Kind: types.I32}, t)
		}
	case "Float":
		if !ok || !prim.Kind.IsFloat() {
			return mismatch(&types.Primitive{Kind: types.F64}, t)
		}
	}
	return nil
}

func occurs(v *types.TypeVar, t types.Type) bool {
	switch x := t.(type) {
	case *types.TypeVar:
		return x.ID == v.ID
	case *types.Ref:
		return occurs(v, x.Inner)
	case *types.Ptr:
		return occurs(v, x.Inner)
	case *types.Array:
		return occurs(v, x.Element)
	case *types.Slice:
		return occurs(v, x.Element)
	case *types.Tuple:
		for _, e := range x.Elements {
			if occurs(v, e) {
				return true
			}
		}
	case *types.Func:
		for _, p := range x.Params {
			if occurs(v, p) {
				return true
			}
		}
		return occurs(v, x.Return)
	case *types.Named:
		for _, a := range x.TypeArgs {
			if occurs(v, a) {
				return true
			}
		}
	}
	return false
}

func mismatch(a, b types.Type) error {
	return &types.UnificationError{Type1: a, Type2: b}
}
