package checker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/tenv"
	"github.com/hivellm/tmlc/internal/types"
)

func namedType(name string) *ast.NamedTypeExpr { return &ast.NamedTypeExpr{Name: name} }

func lit(kind ast.LitKind, v interface{}) *ast.Literal { return &ast.Literal{Kind: kind, Value: v} }

func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }

func file(decls ...ast.Decl) *ast.File { return &ast.File{ModulePath: "test", Decls: decls} }

// add(x: I64, y: I64) -> I64 { x + y }
func addFuncDecl() *ast.FuncDecl {
	return &ast.FuncDecl{
		Name:   "add",
		Params: []ast.Param{{Name: "x", Type: namedType("I64")}, {Name: "y", Type: namedType("I64")}},
		Return: namedType("I64"),
		Body: &ast.BlockExpr{
			Tail: &ast.BinaryExpr{Op: "+", Left: ident("x"), Right: ident("y")},
		},
	}
}

func TestCheckSimpleFunctionInfersIntegerBody(t *testing.T) {
	env := tenv.New()
	c := New(env)
	prog, acc := c.CheckFile(file(addFuncDecl()))

	assert.False(t, acc.HasErrors())
	require.Len(t, prog.Funcs, 1)
	assert.True(t, prog.Funcs[0].Body.Type.Equals(types.TI64))
}

func TestCheckFunctionReturnMismatchIsReported(t *testing.T) {
	env := tenv.New()
	c := New(env)
	decl := &ast.FuncDecl{
		Name:   "bad",
		Return: namedType("Bool"),
		Body:   &ast.BlockExpr{Tail: lit(ast.LitInt, int64(1))},
	}
	_, acc := c.CheckFile(file(decl))
	require.True(t, acc.HasErrors())
	primary, ok := acc.Primary()
	require.True(t, ok)
	assert.Equal(t, "TC001", primary.Code)
}

func TestCheckUnknownIdentifierSuggestsClosest(t *testing.T) {
	env := tenv.New()
	c := New(env)
	decl := &ast.FuncDecl{
		Name:   "f",
		Params: []ast.Param{{Name: "counter", Type: namedType("I64")}},
		Return: namedType("I64"),
		Body:   &ast.BlockExpr{Tail: ident("countre")},
	}
	_, acc := c.CheckFile(file(decl))
	require.True(t, acc.HasErrors())
	found := false
	for _, d := range acc.All() {
		if d.Code == "ENV003" {
			found = true
			require.NotEmpty(t, d.Notes)
		}
	}
	assert.True(t, found)
}

func TestCheckStructFieldAccess(t *testing.T) {
	env := tenv.New()
	c := New(env)
	structDecl := &ast.StructDecl{
		Name:   "Point",
		Fields: []ast.Field{{Name: "x", Type: namedType("I64")}, {Name: "y", Type: namedType("I64")}},
	}
	mkPoint := &ast.FuncDecl{
		Name:   "getX",
		Params: []ast.Param{{Name: "p", Type: namedType("Point")}},
		Return: namedType("I64"),
		Body:   &ast.BlockExpr{Tail: &ast.FieldExpr{Receiver: ident("p"), Field: "x"}},
	}
	_, acc := c.CheckFile(file(structDecl, mkPoint))
	assert.False(t, acc.HasErrors())
}

func TestCheckIfBranchDivergenceReported(t *testing.T) {
	env := tenv.New()
	c := New(env)
	decl := &ast.FuncDecl{
		Name:   "f",
		Return: namedType("I64"),
		Body: &ast.BlockExpr{Tail: &ast.IfExpr{
			Cond: lit(ast.LitBool, true),
			Then: lit(ast.LitInt, int64(1)),
			Else: lit(ast.LitString, "x"),
		}},
	}
	_, acc := c.CheckFile(file(decl))
	require.True(t, acc.HasErrors())
}

func TestCheckWhileConditionMustBeBool(t *testing.T) {
	env := tenv.New()
	c := New(env)
	decl := &ast.FuncDecl{
		Name:   "f",
		Return: namedType("Unit"),
		Body: &ast.BlockExpr{Tail: &ast.WhileExpr{
			Cond: lit(ast.LitInt, int64(1)),
			Body: &ast.BlockExpr{},
		}},
	}
	_, acc := c.CheckFile(file(decl))
	require.True(t, acc.HasErrors())
}

func TestCheckLetAndAssignImmutableRejected(t *testing.T) {
	env := tenv.New()
	c := New(env)
	decl := &ast.FuncDecl{
		Name:   "f",
		Return: namedType("Unit"),
		Body: &ast.BlockExpr{
			Statements: []ast.Stmt{
				&ast.LetStmt{Name: "x", Mutable: false, Value: lit(ast.LitInt, int64(1))},
				&ast.AssignStmt{Target: ident("x"), Op: "=", Value: lit(ast.LitInt, int64(2))},
			},
		},
	}
	_, acc := c.CheckFile(file(decl))
	require.True(t, acc.HasErrors())
	found := false
	for _, d := range acc.All() {
		if d.Code == "BRW003" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCheckEnumVariantPatternArity(t *testing.T) {
	env := tenv.New()
	c := New(env)
	enumDecl := &ast.EnumDecl{
		Name: "Option",
		Variants: []ast.Variant{
			{Name: "Some", Payload: []ast.TypeExpr{namedType("I64")}},
			{Name: "None"},
		},
	}
	f := &ast.FuncDecl{
		Name:   "unwrap",
		Params: []ast.Param{{Name: "o", Type: namedType("Option")}},
		Return: namedType("I64"),
		Body: &ast.BlockExpr{Tail: &ast.WhenExpr{
			Scrutinee: ident("o"),
			Arms: []ast.WhenArm{
				{Pattern: &ast.CtorPattern{Name: "Some", Args: []ast.Pattern{&ast.VarPattern{Name: "v"}}}, Body: ident("v")},
				{Pattern: &ast.CtorPattern{Name: "None"}, Body: lit(ast.LitInt, int64(0))},
			},
		}},
	}
	_, acc := c.CheckFile(file(enumDecl, f))
	assert.False(t, acc.HasErrors())
}

func TestCheckImplMethodCallResolvesSelf(t *testing.T) {
	env := tenv.New()
	c := New(env)
	structDecl := &ast.StructDecl{Name: "Counter", Fields: []ast.Field{{Name: "n", Type: namedType("I64")}}}
	impl := &ast.ImplDecl{
		TargetType: namedType("Counter"),
		Methods: []*ast.FuncDecl{{
			Name:   "get",
			Params: []ast.Param{{Name: "self", Type: namedType("Self")}},
			Return: namedType("I64"),
			Body:   &ast.BlockExpr{Tail: &ast.FieldExpr{Receiver: ident("self"), Field: "n"}},
		}},
	}
	caller := &ast.FuncDecl{
		Name:   "read",
		Params: []ast.Param{{Name: "c", Type: namedType("Counter")}},
		Return: namedType("I64"),
		Body:   &ast.BlockExpr{Tail: &ast.MethodCallExpr{Receiver: ident("c"), Method: "get"}},
	}
	_, acc := c.CheckFile(file(structDecl, impl, caller))
	assert.False(t, acc.HasErrors())
}
