package main

import (
	"sort"

	"github.com/hivellm/tmlc/internal/ast"
)

// samples holds small hand-built programs the CLI's check/build/
// mono-stats subcommands exercise the pipeline against, standing in
// for a real source file now that surface syntax is out of scope
// (mirroring the teacher's cmd/typecheck/demo_ast.go manually built
// AST demos).
var samples = map[string]*ast.File{
	"add":      addSample(),
	"generics": genericsSample(),
	"typeerror": typeErrorSample(),
}

func listSampleNames() string {
	names := make([]string, 0, len(samples))
	for n := range samples {
		names = append(names, n)
	}
	sort.Strings(names)
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

func namedType(name string) *ast.NamedTypeExpr      { return &ast.NamedTypeExpr{Name: name} }
func genericType(name string) *ast.GenericTypeExpr  { return &ast.GenericTypeExpr{Name: name} }
func ident(name string) *ast.Ident                  { return &ast.Ident{Name: name} }

// add(x: I32, y: I32) -> I32 { x + y }
func addSample() *ast.File {
	fn := &ast.FuncDecl{
		Name:   "add",
		Params: []ast.Param{{Name: "x", Type: namedType("I32")}, {Name: "y", Type: namedType("I32")}},
		Return: namedType("I32"),
		Body: &ast.BlockExpr{
			Tail: &ast.BinaryExpr{Op: "+", Left: ident("x"), Right: ident("y")},
		},
	}
	return &ast.File{ModulePath: "samples/add", Decls: []ast.Decl{fn}}
}

// identity[T](x: T) -> T { x }
// use_identity(n: I32) -> I32 { identity(n) }
func genericsSample() *ast.File {
	identity := &ast.FuncDecl{
		Name:       "identity",
		TypeParams: []string{"T"},
		Params:     []ast.Param{{Name: "x", Type: genericType("T")}},
		Return:     genericType("T"),
		Body:       &ast.BlockExpr{Tail: ident("x")},
	}
	useIdentity := &ast.FuncDecl{
		Name:   "use_identity",
		Params: []ast.Param{{Name: "n", Type: namedType("I32")}},
		Return: namedType("I32"),
		Body: &ast.BlockExpr{
			Tail: &ast.CallExpr{Callee: ident("identity"), Args: []ast.Expr{ident("n")}},
		},
	}
	return &ast.File{ModulePath: "samples/generics", Decls: []ast.Decl{identity, useIdentity}}
}

// bad() -> Bool { 1 }  -- deliberately ill-typed, to exercise diagnostics.
func typeErrorSample() *ast.File {
	fn := &ast.FuncDecl{
		Name:   "bad",
		Return: namedType("Bool"),
		Body:   &ast.BlockExpr{Tail: &ast.Literal{Kind: ast.LitInt, Value: int64(1)}},
	}
	return &ast.File{ModulePath: "samples/typeerror", Decls: []ast.Decl{fn}}
}
