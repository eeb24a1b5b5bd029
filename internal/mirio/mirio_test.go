package mirio

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivellm/tmlc/internal/diag"
	"github.com/hivellm/tmlc/internal/mir"
	"github.com/hivellm/tmlc/internal/types"
)

func sampleModule() *mir.Module {
	fn := mir.NewFunction("add", types.TI32)
	fn.Params = append(fn.Params, mir.Param{Value: 0, Name: "a", Type: types.TI32})
	fn.Params = append(fn.Params, mir.Param{Value: 1, Name: "b", Type: types.TI32})
	entry := fn.NewBlock("entry")
	entry.Append(mir.Instr{Op: mir.OpBinary, Result: 2, HasResult: true, BinaryOp: "+", Args: []mir.ValueID{0, 1}, Type: types.TI32})
	entry.Append(mir.Instr{Op: mir.OpReturn, Args: []mir.ValueID{2}, Type: types.TI32})

	return &mir.Module{
		Name: "arith",
		Structs: []*mir.StructDef{
			{Name: "Point", Fields: []mir.FieldDef{
				{Name: "x", Type: types.TI32},
				{Name: "y", Type: types.TI32},
			}},
		},
		Enums: []*mir.EnumDef{
			{
				Name:            "Option",
				MaxPayloadWords: 1,
				Variants: []mir.VariantDef{
					{Name: "None", Tag: 0},
					{Name: "Some", Tag: 1, Payload: []types.Type{types.TI64}},
				},
			},
		},
		Functions: []*mir.Function{fn},
		Consts: []mir.ConstDef{
			{Name: "ANSWER", Type: types.TI32, Value: int64(42)},
		},
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	m := sampleModule()
	data, err := WriteModule(m)
	require.NoError(t, err)

	got, err := ReadModule(data)
	require.NoError(t, err)

	if diff := cmp.Diff(m, got, cmpopts.IgnoreUnexported(mir.Function{})); diff != "" {
		t.Errorf("binary round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestBinaryReadRejectsBadMagic(t *testing.T) {
	_, err := ReadModule([]byte{0, 0, 0, 0, 0, 1, 0, 0})
	assert.Error(t, err)
}

func TestTextRoundTrip(t *testing.T) {
	m := sampleModule()
	text := PrintModule(m)
	require.NotEmpty(t, text)

	acc := diag.NewAccumulator()
	got := ParseModule(text, acc)
	require.False(t, acc.HasErrors(), "unexpected parse diagnostics: %v", acc.All())

	if diff := cmp.Diff(m, got, cmpopts.IgnoreUnexported(mir.Function{})); diff != "" {
		t.Errorf("text round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTextParseReportsLineOnMalformedInput(t *testing.T) {
	acc := diag.NewAccumulator()
	ParseModule("not a module header", acc)
	require.True(t, acc.HasErrors())
	assert.Equal(t, diag.CDG001, acc.All()[0].Code)
}

func TestTypeToStringRoundTripsCompositeShapes(t *testing.T) {
	cases := []types.Type{
		types.TI32,
		&types.Named{Name: "Box", TypeArgs: []types.Type{types.TI32}},
		&types.Ref{Inner: types.TI32},
		&types.Ref{IsMut: true, Inner: types.TI32},
		&types.Array{Element: types.TI32, Size: 4},
		&types.Slice{Element: types.TStr},
		&types.Tuple{Elements: []types.Type{types.TI32, types.TBool}},
	}
	for _, c := range cases {
		s := typeToString(c)
		got := parseTypeToken(s)
		assert.True(t, types.TypesEqual(c, got), "type %s round-tripped to %s", s, typeToString(got))
	}
}
