package textir

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/codegen"
	"github.com/hivellm/tmlc/internal/mir"
	"github.com/hivellm/tmlc/internal/types"
)

func addModule() *mir.Module {
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
	}
}

func TestCompileMIREmitsFunctionAndStructLayout(t *testing.T) {
	b := New()
	res := b.CompileMIR(context.Background(), addModule(), codegen.Options{})
	require.True(t, res.Success)
	assert.Contains(t, res.IRText, "define i32 @add(i32 %a, i32 %b)")
	assert.Contains(t, res.IRText, "%struct.Point = type { i32, i32 }")
	assert.Contains(t, res.IRText, "%enum.Option = type { i32, [1 x i64] }")
	assert.Contains(t, res.IRText, "add i32 %0, %1")
	assert.Contains(t, res.IRText, "ret i32 %2")
}

func TestCompileMIRCGUOnlyEmitsRequestedFunctions(t *testing.T) {
	m := addModule()
	second := mir.NewFunction("noop", nil)
	second.NewBlock("entry").Append(mir.Instr{Op: mir.OpReturn})
	m.Functions = append(m.Functions, second)

	b := New()
	res := b.CompileMIRCGU(context.Background(), m, []int{1}, codegen.Options{})
	require.True(t, res.Success)
	assert.NotContains(t, res.IRText, "@add(")
	assert.Contains(t, res.IRText, "@noop(")
}

func TestCompileASTIsUnsupported(t *testing.T) {
	b := New()
	res := b.CompileAST(context.Background(), nil, nil, codegen.Options{})
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "is not supported")
}

func TestGenerateIRMatchesCompileMIRText(t *testing.T) {
	b := New()
	m := addModule()
	text := b.GenerateIR(context.Background(), m, codegen.Options{})
	res := b.CompileMIR(context.Background(), m, codegen.Options{})
	assert.Equal(t, res.IRText, text)
}

func TestClosureWithCapturesAllocatesEnvironment(t *testing.T) {
	fn := mir.NewFunction("make_adder", &types.Closure{Params: []types.Type{types.TI32}, Return: types.TI32})
	fn.Params = append(fn.Params, mir.Param{Value: 0, Name: "n", Type: types.TI32})
	entry := fn.NewBlock("entry")
	closureType := &types.Closure{
		Params:   []types.Type{types.TI32},
		Return:   types.TI32,
		Captures: []types.Capture{{Name: "n", Type: types.TI32}},
	}
	entry.Append(mir.Instr{
		Op: mir.OpAggregateConstruct, Result: 1, HasResult: true,
		Args: []mir.ValueID{0, 0}, Type: closureType,
	})
	entry.Append(mir.Instr{Op: mir.OpReturn, Args: []mir.ValueID{1}, Type: closureType})

	m := &mir.Module{Name: "closures", Functions: []*mir.Function{fn}}
	b := New()
	res := b.CompileMIR(context.Background(), m, codegen.Options{})
	require.True(t, res.Success)
	assert.Contains(t, res.IRText, "tml_alloc")
	assert.True(t, strings.Contains(res.IRText, "insertvalue { ptr, ptr }"))
}

func TestDynAggregateEmitsVtablePointer(t *testing.T) {
	fn := mir.NewFunction("to_dyn", &types.DynBehavior{BehaviorName: "Shape"})
	fn.Params = append(fn.Params, mir.Param{Value: 0, Name: "s", Type: &types.Named{Name: "Circle"}})
	entry := fn.NewBlock("entry")
	entry.Append(mir.Instr{
		Op: mir.OpAggregateConstruct, Result: 1, HasResult: true,
		Args: []mir.ValueID{0}, Type: &types.DynBehavior{BehaviorName: "Shape"},
	})
	entry.Append(mir.Instr{Op: mir.OpReturn, Args: []mir.ValueID{1}, Type: &types.DynBehavior{BehaviorName: "Shape"}})

	m := &mir.Module{Name: "dynshapes", Functions: []*mir.Function{fn}}
	b := New()
	res := b.CompileMIR(context.Background(), m, codegen.Options{})
	require.True(t, res.Success)
	assert.Contains(t, res.IRText, "@vtable.Shape")
}

func TestDebugInfoEmitsSourceSpanComments(t *testing.T) {
	fn := mir.NewFunction("traced", types.TI32)
	entry := fn.NewBlock("entry")
	entry.Append(mir.Instr{
		Op: mir.OpConst, Result: 0, HasResult: true, ConstValue: int64(1), Type: types.TI32,
		Node: mir.Node{MIRSpan: ast.Span{Start: ast.Pos{Line: 1}, End: ast.Pos{Line: 1}}},
	})
	entry.Append(mir.Instr{Op: mir.OpReturn, Args: []mir.ValueID{0}, Type: types.TI32})

	m := &mir.Module{Name: "traced", Functions: []*mir.Function{fn}}
	b := New()
	res := b.CompileMIR(context.Background(), m, codegen.Options{DebugInfo: true})
	require.True(t, res.Success)
	assert.Contains(t, res.IRText, "; ")
}
