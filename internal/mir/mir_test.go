package mir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hivellm/tmlc/internal/types"
)

func TestFreshValueIsMonotonic(t *testing.T) {
	fn := NewFunction("f", types.TI32)
	a := fn.FreshValue()
	b := fn.FreshValue()
	c := fn.FreshValue()
	assert.Equal(t, ValueID(0), a)
	assert.Equal(t, ValueID(1), b)
	assert.Equal(t, ValueID(2), c)
}

func TestNewBlockAssignsIncreasingIDsAndAppends(t *testing.T) {
	fn := NewFunction("f", types.TUnit)
	b0 := fn.NewBlock("entry")
	b1 := fn.NewBlock("exit")
	assert.Equal(t, BlockID(0), b0.ID)
	assert.Equal(t, BlockID(1), b1.ID)
	assert.Equal(t, []*Block{b0, b1}, fn.Blocks)
}

func TestBlockAppendGrowsInstructions(t *testing.T) {
	b := &Block{Label: "entry"}
	b.Append(Instr{Op: OpConst, Result: 0, HasResult: true, Type: types.TI32})
	b.Append(Instr{Op: OpReturn, Args: []ValueID{0}})
	assert.Len(t, b.Instructions, 2)
	assert.Equal(t, OpConst, b.Instructions[0].Op)
	assert.Equal(t, OpReturn, b.Instructions[1].Op)
}

func TestOpStringCoversEveryOpcode(t *testing.T) {
	for op := OpConst; op <= OpPhi; op++ {
		s := op.String()
		assert.NotContains(t, s, "op(", "opcode %d missing a name in Op.String()", int(op))
	}
}

func TestOpStringFallsBackForUnknownOpcode(t *testing.T) {
	assert.Equal(t, "op(99)", Op(99).String())
}

func TestEnumDefCarriesMaxPayloadWords(t *testing.T) {
	e := &EnumDef{
		Name: "Option",
		Variants: []VariantDef{
			{Name: "None", Tag: 0},
			{Name: "Some", Tag: 1, Payload: []types.Type{types.TI64}},
		},
		MaxPayloadWords: 1,
	}
	assert.Equal(t, 1, e.MaxPayloadWords)
	assert.Equal(t, "Some", e.Variants[1].Name)
}
