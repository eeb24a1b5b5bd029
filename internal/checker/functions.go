package checker

import (
	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/diag"
	"github.com/hivellm/tmlc/internal/types"
)

// checkFuncDecl checks one function's body against its declared
// signature, returning a TypedFunc whose Body is nil for extern or
// abstract (body-less) declarations.
func (c *Checker) checkFuncDecl(decl *ast.FuncDecl) *TypedFunc {
	if decl.Body == nil {
		return &TypedFunc{Decl: decl}
	}

	c.env.PushScope()
	defer c.env.PopScope()

	for _, p := range decl.Params {
		c.env.Define(p.Name, ResolveTypeExpr(c.env, p.Type), false, decl.Position())
	}

	ret := ResolveTypeExpr(c.env, decl.Return)
	c.returnStack = append(c.returnStack, ret)
	defer func() { c.returnStack = c.returnStack[:len(c.returnStack)-1] }()

	bodyType := c.checkExpr(decl.Body)
	if err := c.env.Unify(bodyType, ret); err != nil {
		c.acc.Addf(diag.TC001, decl.Body.Position(),
			"function %q returns %s but body has type %s", decl.Name, c.env.Resolve(ret), c.env.Resolve(bodyType))
	}

	return &TypedFunc{Decl: decl, Body: &TypedExpr{Expr: decl.Body, Type: c.env.Resolve(bodyType)}}
}

// currentReturnType returns the expected return type for the function
// currently being checked, or nil if none is active (a `return` outside
// any function, which the parser should never produce but the checker
// defends against anyway).
func (c *Checker) currentReturnType() types.Type {
	if len(c.returnStack) == 0 {
		return nil
	}
	return c.returnStack[len(c.returnStack)-1]
}
