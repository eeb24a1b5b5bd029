package tenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/types"
)

func TestNewRegistersBuiltins(t *testing.T) {
	env := New()
	assert.NotEmpty(t, env.funcs["io.println"])
	assert.NotEmpty(t, env.funcs["vec.push"])
	assert.NotEmpty(t, env.funcs["atomic.fetch_add"])
}

func TestDefineStructIdempotentAndConflict(t *testing.T) {
	env := New()
	d := &StructDef{Name: "Point", Fields: []FieldDef{{Name: "x", Type: types.TI64}}}
	require.NoError(t, env.DefineStruct(d))
	require.NoError(t, env.DefineStruct(d)) // identical redefinition is fine

	conflicting := &StructDef{Name: "Point", Fields: []FieldDef{{Name: "x", Type: types.TF64}}}
	err := env.DefineStruct(conflicting)
	require.Error(t, err)
}

func TestScopeChainShadowing(t *testing.T) {
	env := New()
	env.Define("x", types.TI64, false, ast.Span{})
	env.PushScope()
	env.Define("x", types.TStr, true, ast.Span{})

	sym := env.Lookup("x")
	require.NotNil(t, sym)
	assert.Equal(t, types.TStr, sym.Type)
	assert.True(t, sym.IsMutable)

	env.PopScope()
	sym = env.Lookup("x")
	require.NotNil(t, sym)
	assert.Equal(t, types.TI64, sym.Type)
}

func TestUnifyPrimitivesMismatch(t *testing.T) {
	env := New()
	err := env.Unify(types.TI64, types.TBool)
	assert.Error(t, err)
	var uerr *types.UnificationError
	assert.ErrorAs(t, err, &uerr)
}

func TestUnifyBindsTypeVar(t *testing.T) {
	env := New()
	tv := env.FreshTypeVar()
	require.NoError(t, env.Unify(tv, types.TI32))
	assert.True(t, env.Resolve(tv).Equals(types.TI32))
}

func TestUnifyOccursCheck(t *testing.T) {
	env := New()
	tv := env.FreshTypeVar()
	ref := &types.Ref{Inner: tv}
	err := env.Unify(tv, ref)
	assert.Error(t, err)
}

func TestUnifyNamedRecursesTypeArgs(t *testing.T) {
	env := New()
	tv := env.FreshTypeVar()
	a := &types.Named{Name: "Box", TypeArgs: []types.Type{tv}}
	b := &types.Named{Name: "Box", TypeArgs: []types.Type{types.TStr}}
	require.NoError(t, env.Unify(a, b))
	assert.True(t, env.Resolve(tv).Equals(types.TStr))
}

func TestTypeImplementsDirectAndTransitive(t *testing.T) {
	env := New()
	env.DefineBehavior(&BehaviorDef{Name: "Eq"})
	env.DefineBehavior(&BehaviorDef{Name: "Ord", SuperBehaviors: []string{"Eq"}})
	env.RegisterImpl(types.TI64, "Ord")

	assert.True(t, env.TypeImplements(types.TI64, "Ord"))
	assert.True(t, env.TypeImplements(types.TI64, "Eq"))
	assert.False(t, env.TypeImplements(types.TI64, "Hash"))
}

func TestDefineFuncOverloadSetsAndConflict(t *testing.T) {
	env := New()
	require.NoError(t, env.DefineFunc(&FuncSig{Name: "add", Params: []types.Type{types.TI64, types.TI64}, Return: types.TI64}))
	require.NoError(t, env.DefineFunc(&FuncSig{Name: "add", Params: []types.Type{types.TF64, types.TF64}, Return: types.TF64}))

	err := env.DefineFunc(&FuncSig{Name: "add", Params: []types.Type{types.TI64, types.TI64}, Return: types.TBool})
	assert.Error(t, err)
}

func TestLookupFuncOverloadExactMatch(t *testing.T) {
	env := New()
	require.NoError(t, env.DefineFunc(&FuncSig{Name: "add", Params: []types.Type{types.TI64, types.TI64}, Return: types.TI64}))
	require.NoError(t, env.DefineFunc(&FuncSig{Name: "add", Params: []types.Type{types.TF64, types.TF64}, Return: types.TF64}))

	sig, err := env.LookupFuncOverload("add", []types.Type{types.TI64, types.TI64}, ast.Span{})
	require.NoError(t, err)
	assert.True(t, sig.Return.Equals(types.TI64))
}

func TestLookupFuncOverloadGenericMatch(t *testing.T) {
	env := New()
	sig, err := env.LookupFuncOverload("vec.len", []types.Type{&types.Ref{Inner: &types.Slice{Element: types.TI64}}}, ast.Span{})
	require.NoError(t, err)
	assert.Equal(t, "vec.len", sig.Name)
}

func TestLookupFuncOverloadUnknownName(t *testing.T) {
	env := New()
	_, err := env.LookupFuncOverload("nonexistent", nil, ast.Span{})
	assert.Error(t, err)
}

func TestFuncSigScheme(t *testing.T) {
	sig := &FuncSig{
		Name:       "identity",
		TypeParams: []string{"T"},
		Params:     []types.Type{&types.Generic{Name: "T"}},
		Return:     &types.Generic{Name: "T"},
	}
	scheme := sig.Scheme()
	inst, _ := scheme.Instantiate(types.NewContext())
	fn, ok := inst.(*types.Func)
	require.True(t, ok)
	assert.Len(t, fn.Params, 1)
}

type fakeLoader struct {
	modules map[string]*Module
}

func (f *fakeLoader) LoadModule(path string) (*Module, error) {
	return f.modules[path], nil
}

func TestLoadModuleGraphDetectsCycle(t *testing.T) {
	env := New()
	deps := func(path string) []string {
		switch path {
		case "a":
			return []string{"b"}
		case "b":
			return []string{"a"}
		}
		return nil
	}
	loader := &fakeLoader{modules: map[string]*Module{}}
	err := env.LoadModuleGraph("a", loader, deps)
	assert.Error(t, err)
}

func TestLoadModuleGraphResolvesAcyclic(t *testing.T) {
	env := New()
	modB := newModule("b")
	modB.Funcs["helper"] = []*FuncSig{{Name: "helper", Return: types.TUnit}}
	deps := func(path string) []string {
		if path == "a" {
			return []string{"b"}
		}
		return nil
	}
	loader := &fakeLoader{modules: map[string]*Module{
		"a": newModule("a"),
		"b": modB,
	}}
	require.NoError(t, env.LoadModuleGraph("a", loader, deps))
	require.NoError(t, env.Import("b", "helper", "", ast.Span{}))
	assert.NotEmpty(t, env.funcs["helper"])
}
