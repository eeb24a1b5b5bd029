package types

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveEquals(t *testing.T) {
	assert.True(t, TI32.Equals(&Primitive{Kind: I32}))
	assert.False(t, TI32.Equals(TI64))
	assert.False(t, TI32.Equals(TBool))
}

func TestNamedEqualsChecksTypeArgs(t *testing.T) {
	a := &Named{Name: "List", TypeArgs: []Type{TI32}}
	b := &Named{Name: "List", TypeArgs: []Type{TI32}}
	c := &Named{Name: "List", TypeArgs: []Type{TStr}}
	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
}

func TestSubstituteGeneric(t *testing.T) {
	g := &Generic{Name: "T"}
	sigma := map[string]Type{"T": TI32}
	got := g.Substitute(sigma)
	require.True(t, got.Equals(TI32))
}

func TestSubstituteHomomorphic(t *testing.T) {
	tup := &Tuple{Elements: []Type{&Generic{Name: "T"}, &Ref{Inner: &Generic{Name: "T"}}}}
	sigma := map[string]Type{"T": TBool}
	got := tup.Substitute(sigma).(*Tuple)
	assert.True(t, got.Elements[0].Equals(TBool))
	assert.True(t, got.Elements[1].Equals(&Ref{Inner: TBool}))
}

func TestFreshTypeVarsAreUnique(t *testing.T) {
	ctx := NewContext()
	a := ctx.FreshTypeVar()
	b := ctx.FreshTypeVar()
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Equals(b))
}

func TestSchemeInstantiateIsFresh(t *testing.T) {
	ctx := NewContext()
	scheme := &Scheme{TypeParams: []string{"T"}, Type: &Func{Params: []Type{&Generic{Name: "T"}}, Return: &Generic{Name: "T"}}}
	t1, _ := scheme.Instantiate(ctx)
	t2, _ := scheme.Instantiate(ctx)
	if diff := cmp.Diff(t1.String(), t2.String()); diff == "" {
		t.Fatalf("expected distinct fresh instantiations, got identical strings %q", t1)
	}
}

func TestGeneralizeExcludesEnvFreeVars(t *testing.T) {
	free := map[string]bool{"outer": true}
	typ := &Func{Params: []Type{&Generic{Name: "outer"}}, Return: &Generic{Name: "inner"}}
	scheme := Generalize(typ, free)
	assert.Equal(t, []string{"inner"}, scheme.TypeParams)
}

func TestDynBehaviorString(t *testing.T) {
	d := &DynBehavior{BehaviorName: "Describable"}
	assert.Equal(t, "dyn Describable", d.String())
}

func TestTypesEqualStructuralAndNil(t *testing.T) {
	assert.True(t, TypesEqual(TUnit, &Primitive{Kind: Unit}))
	assert.False(t, TypesEqual(TUnit, nil))
}
