package mono

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivellm/tmlc/internal/diag"
	"github.com/hivellm/tmlc/internal/types"
)

func TestMangleTypePrimitivesAndNamed(t *testing.T) {
	assert.Equal(t, "I32", mangleType(types.TI32))
	boxed := &types.Named{Name: "Box", TypeArgs: []types.Type{types.TI32}}
	assert.Equal(t, "Box__I32", mangleType(boxed))
	assert.Equal(t, "ref_I32", mangleType(&types.Ref{Inner: types.TI32}))
	assert.Equal(t, "mutref_I32", mangleType(&types.Ref{IsMut: true, Inner: types.TI32}))
	assert.Equal(t, "arr_I32_4", mangleType(&types.Array{Element: types.TI32, Size: 4}))
}

func TestMangleFuncNameTwoInstantiations(t *testing.T) {
	str := mangleFuncName("id", []types.Type{types.TI32})
	strStr := mangleFuncName("id", []types.Type{types.TStr})
	assert.Equal(t, "id__I32", str)
	assert.Equal(t, "id__Str", strStr)
	assert.NotEqual(t, str, strStr)
}

func TestRequireStructInstantiationCachesByMangledName(t *testing.T) {
	acc := diag.NewAccumulator()
	e := New(acc)
	e.RegisterStruct(&StructSource{
		Name:       "Box",
		TypeParams: []string{"T"},
		Fields:     map[string]types.Type{"value": &types.Generic{Name: "T"}},
	})

	name := e.RequireStructInstantiation("Box", []types.Type{types.TI32})
	require.NoError(t, e.Drain(context.Background()))

	inst, ok := e.StructInstances()[name]
	require.True(t, ok)
	assert.False(t, inst.Placeholder)
	assert.Equal(t, types.TI32, inst.Fields["value"])

	// Requesting the same instantiation again must not grow the cache
	// or re-enqueue work.
	again := e.RequireStructInstantiation("Box", []types.Type{types.TI32})
	assert.Equal(t, name, again)
	assert.Len(t, e.StructInstances(), 1)
}

func TestUnresolvedGenericArgDefersToPlaceholder(t *testing.T) {
	acc := diag.NewAccumulator()
	e := New(acc)
	e.RegisterStruct(&StructSource{Name: "Box", TypeParams: []string{"T"}, Fields: map[string]types.Type{"value": &types.Generic{Name: "T"}}})

	name := e.RequireStructInstantiation("Box", []types.Type{&types.Generic{Name: "U"}})
	require.NoError(t, e.Drain(context.Background()))

	inst := e.StructInstances()[name]
	require.NotNil(t, inst)
	assert.True(t, inst.Placeholder)
	assert.Contains(t, inst.Fields, "handle")
}

func TestNestedGenericInstantiationIsDrained(t *testing.T) {
	acc := diag.NewAccumulator()
	e := New(acc)
	e.RegisterStruct(&StructSource{Name: "Box", TypeParams: []string{"T"}, Fields: map[string]types.Type{"value": &types.Generic{Name: "T"}}})
	e.RegisterStruct(&StructSource{
		Name:       "Pair",
		TypeParams: []string{"A"},
		Fields: map[string]types.Type{
			"boxed": &types.Named{Name: "Box", TypeArgs: []types.Type{&types.Generic{Name: "A"}}},
		},
	})

	e.RequireStructInstantiation("Pair", []types.Type{types.TI32})
	require.NoError(t, e.Drain(context.Background()))

	_, hasPair := e.StructInstances()["Pair__I32"]
	_, hasBox := e.StructInstances()["Box__I32"]
	assert.True(t, hasPair, "expected Pair__I32 to be instantiated")
	assert.True(t, hasBox, "expected the nested Box__I32 field type to be instantiated too")
}

func TestFuncInstantiationDedupedAcrossCallSites(t *testing.T) {
	acc := diag.NewAccumulator()
	e := New(acc)
	e.RegisterFunc(&FuncSource{Name: "id", TypeParams: []string{"T"}})

	n1 := e.RequireFuncInstantiation("id", []types.Type{types.TI32})
	n2 := e.RequireFuncInstantiation("id", []types.Type{types.TI32})
	n3 := e.RequireFuncInstantiation("id", []types.Type{types.TStr})
	require.NoError(t, e.Drain(context.Background()))

	assert.Equal(t, n1, n2)
	assert.NotEqual(t, n1, n3)
	assert.Len(t, e.FuncInstances(), 2)
}

func TestDrainHonorsCancellation(t *testing.T) {
	acc := diag.NewAccumulator()
	e := New(acc)
	e.RegisterFunc(&FuncSource{Name: "id", TypeParams: []string{"T"}})
	e.RequireFuncInstantiation("id", []types.Type{types.TI32})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Drain(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImplMethodRequestDedupedByKey(t *testing.T) {
	acc := diag.NewAccumulator()
	e := New(acc)
	req := ImplMethodRequest{MangledType: "Box__I32", Method: "get", BaseType: "Box", Suffix: "I32"}
	e.RequireImplMethod(req)
	e.RequireImplMethod(req)
	require.NoError(t, e.Drain(context.Background()))
	assert.Len(t, e.generatedImplMethods, 1)
}

func TestRecursionLimitRejectsCyclicInstantiation(t *testing.T) {
	acc := diag.NewAccumulator()
	e := New(acc)
	// Cyclic[T] = { next: Cyclic[Box[T]] } grows its own type argument
	// one Box layer deeper every time it is instantiated, so the
	// mangled name (and therefore the instantiation cache key) never
	// repeats: the only thing that can stop the worklist is the
	// recursion-depth guard in resolveStruct.
	e.RegisterStruct(&StructSource{
		Name:       "Cyclic",
		TypeParams: []string{"T"},
		Fields: map[string]types.Type{
			"next": &types.Named{Name: "Cyclic", TypeArgs: []types.Type{
				&types.Named{Name: "Box", TypeArgs: []types.Type{&types.Generic{Name: "T"}}},
			}},
		},
	})

	e.RequireStructInstantiation("Cyclic", []types.Type{types.TI32})
	require.NoError(t, e.Drain(context.Background()))
	assert.True(t, acc.HasErrors())
	found := false
	for _, d := range acc.All() {
		if d.Code == diag.MONO001 {
			found = true
		}
	}
	assert.True(t, found, "expected a MONO001 diagnostic once the recursion-depth guard trips")
}
