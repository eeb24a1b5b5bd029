package checker

import (
	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/diag"
	"github.com/hivellm/tmlc/internal/types"
)

func (c *Checker) checkBlock(b *ast.BlockExpr) types.Type {
	c.env.PushScope()
	defer c.env.PopScope()

	for _, stmt := range b.Statements {
		c.checkStmt(stmt)
	}
	if b.Tail != nil {
		return c.checkExpr(b.Tail)
	}
	return types.TUnit
}

func (c *Checker) checkStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.LetStmt:
		c.checkLet(st)
	case *ast.AssignStmt:
		c.checkAssign(st)
	case *ast.ExprStmt:
		c.checkExpr(st.X)
	default:
		c.acc.Addf(diag.BUG001, s.Position(), "checker: unhandled statement kind %T", s)
	}
}

func (c *Checker) checkLet(l *ast.LetStmt) {
	valueType := c.checkExpr(l.Value)
	declared := valueType
	if l.Type != nil {
		declared = ResolveTypeExpr(c.env, l.Type)
		if err := c.env.Unify(valueType, declared); err != nil {
			c.acc.Addf(diag.TC001, l.Position(), "let %s: declared %s but initializer has type %s",
				l.Name, c.env.Resolve(declared), c.env.Resolve(valueType))
		}
	}
	// Let-bindings are monomorphic here: TML's polymorphism lives on
	// function/struct/behavior type parameters (SPEC_FULL.md §4.2), not
	// on local bindings, so the resolved type (possibly still carrying
	// an unresolved inference variable) is stored directly rather than
	// generalized into a Scheme.
	c.env.Define(l.Name, c.env.Resolve(declared), l.Mutable, l.Position())
}

func (c *Checker) checkAssign(a *ast.AssignStmt) {
	targetType := c.checkExpr(a.Target)
	valueType := c.checkExpr(a.Value)
	if ident, ok := a.Target.(*ast.Ident); ok {
		if sym := c.env.Lookup(ident.Name); sym != nil && !sym.IsMutable {
			c.acc.Addf(diag.BRW003, a.Position(), "cannot assign to immutable binding %q", ident.Name)
		}
	}
	if err := c.env.Unify(targetType, valueType); err != nil {
		c.acc.Addf(diag.TC001, a.Position(), "cannot assign %s to target of type %s", c.env.Resolve(valueType), c.env.Resolve(targetType))
	}
}

func (c *Checker) checkIf(i *ast.IfExpr) types.Type {
	cond := c.checkExpr(i.Cond)
	if err := c.env.Unify(cond, types.TBool); err != nil {
		c.acc.Addf(diag.TC001, i.Cond.Position(), "if condition must be Bool, got %s", c.env.Resolve(cond))
	}
	thenType := c.checkExpr(i.Then)
	if i.Else == nil {
		return types.TUnit
	}
	elseType := c.checkExpr(i.Else)
	if err := c.env.Unify(thenType, elseType); err != nil {
		c.acc.Addf(diag.TC009, i.Position(), "if branches diverge: %s vs %s", c.env.Resolve(thenType), c.env.Resolve(elseType))
	}
	return c.env.Resolve(thenType)
}

func (c *Checker) checkIfLet(i *ast.IfLetExpr) types.Type {
	scrutinee := c.checkExpr(i.Scrutinee)
	c.env.PushScope()
	c.bindPattern(i.Pattern, c.env.Resolve(scrutinee))
	thenType := c.checkExpr(i.Then)
	c.env.PopScope()

	if i.Else == nil {
		return types.TUnit
	}
	elseType := c.checkExpr(i.Else)
	if err := c.env.Unify(thenType, elseType); err != nil {
		c.acc.Addf(diag.TC009, i.Position(), "if-let branches diverge: %s vs %s", c.env.Resolve(thenType), c.env.Resolve(elseType))
	}
	return c.env.Resolve(thenType)
}

func (c *Checker) checkWhen(w *ast.WhenExpr) types.Type {
	scrutinee := c.env.Resolve(c.checkExpr(w.Scrutinee))
	var armType types.Type
	for i, arm := range w.Arms {
		c.env.PushScope()
		c.bindPattern(arm.Pattern, scrutinee)
		if arm.Guard != nil {
			guardType := c.checkExpr(arm.Guard)
			if err := c.env.Unify(guardType, types.TBool); err != nil {
				c.acc.Addf(diag.TC001, w.Position(), "when-arm guard must be Bool")
			}
		}
		bodyType := c.checkExpr(arm.Body)
		c.env.PopScope()

		if i == 0 {
			armType = bodyType
			continue
		}
		if err := c.env.Unify(armType, bodyType); err != nil {
			c.acc.Addf(diag.TC009, w.Position(), "when arms diverge: %s vs %s", c.env.Resolve(armType), c.env.Resolve(bodyType))
		}
	}
	if armType == nil {
		return types.TUnit
	}
	return c.env.Resolve(armType)
}

// bindPattern introduces the bindings a pattern match produces into the
// current scope, checking constructor arity against the enum registry
// where applicable.
func (c *Checker) bindPattern(p ast.Pattern, scrutinee types.Type) {
	switch pat := p.(type) {
	case *ast.WildcardPattern:
	case *ast.VarPattern:
		c.env.Define(pat.Name, scrutinee, false, pat.Position())
	case *ast.LitPattern:
	case *ast.TuplePattern:
		tup, ok := scrutinee.(*types.Tuple)
		if !ok || len(tup.Elements) != len(pat.Elements) {
			for _, el := range pat.Elements {
				c.bindPattern(el, c.env.FreshTypeVar())
			}
			return
		}
		for i, el := range pat.Elements {
			c.bindPattern(el, tup.Elements[i])
		}
	case *ast.CtorPattern:
		c.bindCtorPattern(pat, scrutinee)
	}
}

func (c *Checker) bindCtorPattern(pat *ast.CtorPattern, scrutinee types.Type) {
	named, ok := scrutinee.(*types.Named)
	if !ok {
		for _, a := range pat.Args {
			c.bindPattern(a, c.env.FreshTypeVar())
		}
		return
	}
	ed := c.env.LookupEnum(named.Name)
	if ed == nil {
		for _, a := range pat.Args {
			c.bindPattern(a, c.env.FreshTypeVar())
		}
		return
	}
	sigma := bindTypeParams(ed.TypeParams, named.TypeArgs)
	for _, v := range ed.Variants {
		if v.Name != pat.Name {
			continue
		}
		if len(v.Payload) != len(pat.Args) {
			c.acc.Addf(diag.TC002, pat.Position(), "variant %q expects %d argument(s), got %d", v.Name, len(v.Payload), len(pat.Args))
		}
		for i, a := range pat.Args {
			if i < len(v.Payload) {
				c.bindPattern(a, v.Payload[i].Substitute(sigma))
			} else {
				c.bindPattern(a, c.env.FreshTypeVar())
			}
		}
		return
	}
	c.acc.Addf(diag.TC001, pat.Position(), "enum %q has no variant %q", named.Name, pat.Name)
}

func (c *Checker) checkFor(f *ast.ForExpr) types.Type {
	iterType := c.env.Resolve(c.checkExpr(f.Iterable))
	var elem types.Type
	switch it := iterType.(type) {
	case *types.Slice:
		elem = it.Element
	case *types.Array:
		elem = it.Element
	case *types.Named:
		if it.Name == "Range" && len(it.TypeArgs) == 1 {
			elem = it.TypeArgs[0]
		} else {
			elem = c.env.FreshTypeVar()
		}
	default:
		elem = c.env.FreshTypeVar()
	}
	c.env.PushScope()
	c.env.Define(f.Binder, elem, false, f.Position())
	c.checkExpr(f.Body)
	c.env.PopScope()
	return types.TUnit
}

func (c *Checker) checkReturn(r *ast.ReturnExpr) types.Type {
	expected := c.currentReturnType()
	var actual types.Type = types.TUnit
	if r.Value != nil {
		actual = c.checkExpr(r.Value)
	}
	if expected != nil {
		if err := c.env.Unify(actual, expected); err != nil {
			c.acc.Addf(diag.TC001, r.Position(), "return type %s does not match function's declared %s",
				c.env.Resolve(actual), c.env.Resolve(expected))
		}
	}
	return types.TNever
}
