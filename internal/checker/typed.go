// Package checker implements the type checker (SPEC_FULL.md §4.2): an
// AST walk that produces a typed program and a diagnostic accumulator,
// built on top of internal/tenv's environment, unifier, and overload
// resolution.
package checker

import (
	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/types"
)

// TypedExpr pairs a source expression with its resolved type, once
// checking has run to completion and every inference variable in it
// has been substituted to a concrete type.
type TypedExpr struct {
	Expr ast.Expr
	Type types.Type
}

// TypedFunc is one fully checked function: its signature plus the
// typed body (nil for extern/abstract declarations).
type TypedFunc struct {
	Decl *ast.FuncDecl
	Body *TypedExpr
}

// TypedProgram is the checker's output: every function in the file,
// checked and annotated with resolved types.
type TypedProgram struct {
	File  *ast.File
	Funcs []*TypedFunc
}
