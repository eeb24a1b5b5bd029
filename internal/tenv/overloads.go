package tenv

import (
	"fmt"

	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/diag"
	"github.com/hivellm/tmlc/internal/types"
)

// DefineFunc adds one overload to name's overload set. Two overloads
// with identical parameter-type shapes are a conflict (ENV001);
// distinct arities or distinct parameter types are allowed to coexist
// (SPEC_FULL.md §4.1's overload sets).
func (e *Env) DefineFunc(sig *FuncSig) error {
	for _, existing := range e.funcs[sig.Name] {
		if sameShape(existing, sig) {
			return diag.New(diag.ENV001, sig.Span, fmt.Sprintf("conflicting redefinition of function %q", sig.Name))
		}
	}
	e.funcs[sig.Name] = append(e.funcs[sig.Name], sig)
	return nil
}

func sameShape(a, b *FuncSig) bool {
	if len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if !shapeEqual(a.Params[i], b.Params[i]) {
			return false
		}
	}
	return true
}

// shapeEqual compares parameter types up to renaming of Generic
// parameters, since `fn f[T](x: T)` and `fn f[U](x: U)` are the same
// overload shape.
func shapeEqual(a, b types.Type) bool {
	ag, aok := a.(*types.Generic)
	bg, bok := b.(*types.Generic)
	if aok && bok {
		return true
	}
	if aok != bok {
		return false
	}
	_ = ag
	_ = bg
	return a.Equals(b)
}

// LookupFuncOverload resolves a call with the given argument types to
// exactly one FuncSig, per SPEC_FULL.md §4.1's three-tier resolution:
// first an exact structural match (after argument resolution), else a
// single generic-compatible candidate, else ENV006 ambiguous-overload.
func (e *Env) LookupFuncOverload(name string, argTypes []types.Type, span ast.Span) (*FuncSig, error) {
	candidates, ok := e.funcs[name]
	if !ok || len(candidates) == 0 {
		return nil, diag.New(diag.ENV003, span, fmt.Sprintf("unknown function %q", name))
	}

	// Tier 1: exact, non-generic match.
	var exact []*FuncSig
	for _, c := range candidates {
		if len(c.TypeParams) == 0 && arityAndTypesMatch(c, argTypes) {
			exact = append(exact, c)
		}
	}
	if len(exact) == 1 {
		return exact[0], nil
	}
	if len(exact) > 1 {
		return nil, diag.New(diag.ENV006, span, fmt.Sprintf("ambiguous overload for %q: multiple exact matches", name))
	}

	// Tier 2: generic-compatible match (arity matches and each
	// parameter either structurally matches or is covered by a fresh
	// substitution for one of the func's own type parameters).
	var generic []*FuncSig
	for _, c := range candidates {
		if len(c.TypeParams) == 0 {
			continue
		}
		if genericCompatible(c, argTypes) {
			generic = append(generic, c)
		}
	}
	if len(generic) == 1 {
		return generic[0], nil
	}
	if len(generic) > 1 {
		return nil, diag.New(diag.ENV006, span, fmt.Sprintf("ambiguous overload for %q: multiple generic matches", name))
	}

	return nil, diag.New(diag.ENV003, span, fmt.Sprintf("no overload of %q matches the given argument types", name))
}

func arityAndTypesMatch(c *FuncSig, argTypes []types.Type) bool {
	if len(c.Params) != len(argTypes) {
		return false
	}
	for i, p := range c.Params {
		if !p.Equals(argTypes[i]) {
			return false
		}
	}
	return true
}

// genericCompatible reports whether argTypes can unify against c's
// parameter shapes by binding each of c's TypeParams consistently.
func genericCompatible(c *FuncSig, argTypes []types.Type) bool {
	if len(c.Params) != len(argTypes) {
		return false
	}
	bound := map[string]types.Type{}
	for i, p := range c.Params {
		if !genericMatchOne(p, argTypes[i], bound) {
			return false
		}
	}
	return true
}

func genericMatchOne(param types.Type, arg types.Type, bound map[string]types.Type) bool {
	switch pt := param.(type) {
	case *types.Generic:
		if existing, ok := bound[pt.Name]; ok {
			return existing.Equals(arg)
		}
		bound[pt.Name] = arg
		return true
	case *types.Ref:
		at, ok := arg.(*types.Ref)
		if !ok || at.IsMut != pt.IsMut {
			return false
		}
		return genericMatchOne(pt.Inner, at.Inner, bound)
	case *types.Slice:
		at, ok := arg.(*types.Slice)
		if !ok {
			return false
		}
		return genericMatchOne(pt.Element, at.Element, bound)
	case *types.Named:
		at, ok := arg.(*types.Named)
		if !ok || at.Name != pt.Name || len(at.TypeArgs) != len(pt.TypeArgs) {
			return false
		}
		for i := range pt.TypeArgs {
			if !genericMatchOne(pt.TypeArgs[i], at.TypeArgs[i], bound) {
				return false
			}
		}
		return true
	default:
		return param.Equals(arg)
	}
}
