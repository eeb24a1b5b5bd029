package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/codegen"
	"github.com/hivellm/tmlc/internal/mir"
	"github.com/hivellm/tmlc/internal/tenv"
)

func namedType(name string) *ast.NamedTypeExpr { return &ast.NamedTypeExpr{Name: name} }
func genericType(name string) *ast.GenericTypeExpr { return &ast.GenericTypeExpr{Name: name} }
func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }

func file(decls ...ast.Decl) *ast.File { return &ast.File{ModulePath: "test", Decls: decls} }

func addFuncDecl() *ast.FuncDecl {
	return &ast.FuncDecl{
		Name:   "add",
		Params: []ast.Param{{Name: "x", Type: namedType("I32")}, {Name: "y", Type: namedType("I32")}},
		Return: namedType("I32"),
		Body: &ast.BlockExpr{
			Tail: &ast.BinaryExpr{Op: "+", Left: ident("x"), Right: ident("y")},
		},
	}
}

func TestCheckAndLowerMonomorphicFunctionProducesModule(t *testing.T) {
	env := tenv.New()
	res, err := CheckAndLower(context.Background(), env, file(addFuncDecl()))
	require.NoError(t, err)
	require.Empty(t, res.Diagnostics)
	require.NotNil(t, res.Module)
	require.Len(t, res.Module.Functions, 1)
	assert.Equal(t, "add", res.Module.Functions[0].Name)
}

// identity[T](x: T) -> T { x }
func identityFuncDecl() *ast.FuncDecl {
	return &ast.FuncDecl{
		Name:       "identity",
		TypeParams: []string{"T"},
		Params:     []ast.Param{{Name: "x", Type: genericType("T")}},
		Return:     genericType("T"),
		Body:       &ast.BlockExpr{Tail: ident("x")},
	}
}

// use_identity(n: I32) -> I32 { identity(n) }
func useIdentityFuncDecl() *ast.FuncDecl {
	return &ast.FuncDecl{
		Name:   "use_identity",
		Params: []ast.Param{{Name: "n", Type: namedType("I32")}},
		Return: namedType("I32"),
		Body: &ast.BlockExpr{
			Tail: &ast.CallExpr{Callee: ident("identity"), Args: []ast.Expr{ident("n")}},
		},
	}
}

func TestCheckAndLowerGenericFunctionInstantiatesFromCallSite(t *testing.T) {
	env := tenv.New()
	res, err := CheckAndLower(context.Background(), env, file(identityFuncDecl(), useIdentityFuncDecl()))
	require.NoError(t, err)
	require.Empty(t, res.Diagnostics)
	require.NotNil(t, res.Module)

	names := make([]string, 0, len(res.Module.Functions))
	for _, f := range res.Module.Functions {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "use_identity")
	assert.Contains(t, names, "identity__I32")
}

func TestCheckAndLowerPropagatesCheckerDiagnostics(t *testing.T) {
	env := tenv.New()
	bad := &ast.FuncDecl{
		Name:   "bad",
		Return: namedType("Bool"),
		Body:   &ast.BlockExpr{Tail: &ast.Literal{Kind: ast.LitInt, Value: int64(1)}},
	}
	res, err := CheckAndLower(context.Background(), env, file(bad))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Diagnostics)
	assert.Nil(t, res.Module)
}

type fakeBackend struct {
	name  string
	calls *int
}

func (b *fakeBackend) Name() string { return b.name }
func (b *fakeBackend) Capabilities() codegen.Capabilities {
	return codegen.Capabilities{SupportsMIR: true, SupportsCGU: true}
}
func (b *fakeBackend) CompileMIR(ctx context.Context, m *mir.Module, opts codegen.Options) codegen.Result {
	indices := make([]int, len(m.Functions))
	for i := range m.Functions {
		indices[i] = i
	}
	return b.CompileMIRCGU(ctx, m, indices, opts)
}
func (b *fakeBackend) CompileMIRCGU(ctx context.Context, m *mir.Module, funcIndices []int, opts codegen.Options) codegen.Result {
	*b.calls++
	text := ""
	for _, i := range funcIndices {
		text += m.Functions[i].Name + ";"
	}
	return codegen.Result{Success: true, IRText: text}
}
func (b *fakeBackend) CompileAST(ctx context.Context, f *ast.File, env *tenv.Env, opts codegen.Options) codegen.Result {
	return codegen.ErrResult("fakeBackend: ast not supported")
}
func (b *fakeBackend) GenerateIR(ctx context.Context, m *mir.Module, opts codegen.Options) string {
	return b.CompileMIR(ctx, m, opts).IRText
}

func twoFunctionModule() *mir.Module {
	fn1 := mir.NewFunction("a", nil)
	fn2 := mir.NewFunction("b", nil)
	return &mir.Module{Name: "m", Functions: []*mir.Function{fn1, fn2}}
}

func TestCompileModulePartitionsAcrossBackendInstances(t *testing.T) {
	calls := 0
	cfg := Config{
		Workers: 2,
		NewBackend: func() codegen.Backend {
			return &fakeBackend{name: "fake", calls: &calls}
		},
	}
	res, err := CompileModule(context.Background(), twoFunctionModule(), cfg)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, calls)
	assert.Contains(t, res.IRText, "a;")
	assert.Contains(t, res.IRText, "b;")
}

type failingBackend struct{}

func (b *failingBackend) Name() string { return "failing" }
func (b *failingBackend) Capabilities() codegen.Capabilities {
	return codegen.Capabilities{SupportsMIR: true, SupportsCGU: true}
}
func (b *failingBackend) CompileMIR(ctx context.Context, m *mir.Module, opts codegen.Options) codegen.Result {
	return codegen.ErrResult("boom")
}
func (b *failingBackend) CompileMIRCGU(ctx context.Context, m *mir.Module, funcIndices []int, opts codegen.Options) codegen.Result {
	return codegen.ErrResult("boom")
}
func (b *failingBackend) CompileAST(ctx context.Context, f *ast.File, env *tenv.Env, opts codegen.Options) codegen.Result {
	return codegen.ErrResult("boom")
}
func (b *failingBackend) GenerateIR(ctx context.Context, m *mir.Module, opts codegen.Options) string {
	return ""
}

func TestCompileModuleSurfacesBackendFailure(t *testing.T) {
	cfg := Config{Workers: 1, NewBackend: func() codegen.Backend { return &failingBackend{} }}
	_, err := CompileModule(context.Background(), twoFunctionModule(), cfg)
	assert.Error(t, err)
}
