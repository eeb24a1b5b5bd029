// Package mir defines the typed, block-structured intermediate
// representation functions are lowered to before codegen
// (SPEC_FULL.md §4.5): module → functions → blocks → instructions over
// SSA value ids, typed throughout via internal/types.Type.
//
// Every node carries a stable id plus the MIR-local and original
// surface spans, the same two-span bookkeeping the teacher's Core IR
// nodes carry (NodeID/CoreSpan/OrigSpan in internal/core/core.go) —
// generalized here from an expression-nested ANF tree to a
// block-structured SSA form, since that shape (not ANF) is what
// SPEC_FULL.md §3/§4.5 specifies for MIR.
package mir

import (
	"fmt"

	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/types"
)

// ValueID names one SSA value within a function.
type ValueID uint64

// BlockID names one basic block within a function.
type BlockID uint64

// Node carries the common identity/span bookkeeping every MIR node
// needs for diagnostics that must point back through lowering to the
// original surface syntax.
type Node struct {
	NodeID   uint64
	MIRSpan  ast.Span
	OrigSpan ast.Span
}

// Module is one compiled translation unit's MIR.
type Module struct {
	Name      string
	Structs   []*StructDef
	Enums     []*EnumDef
	Functions []*Function
	Consts    []ConstDef
}

// StructDef is a monomorphized struct's MIR layout.
type StructDef struct {
	Node
	Name   string
	Fields []FieldDef
}

// FieldDef is one struct field's name, offset-order index, and type.
type FieldDef struct {
	Name string
	Type types.Type
}

// EnumDef is a monomorphized enum's MIR layout: tag plus a uniform
// payload storage sized to the largest variant (SPEC_FULL.md §4.6's
// `{ tag: i32, payload: [i64 × ⌈max_payload_bytes/8⌉] }` rule).
type EnumDef struct {
	Node
	Name            string
	Variants        []VariantDef
	MaxPayloadWords int
}

// VariantDef is one enum variant's tag value and payload field types.
type VariantDef struct {
	Name    string
	Tag     int
	Payload []types.Type
}

// ConstDef is a module-level constant.
type ConstDef struct {
	Name  string
	Type  types.Type
	Value interface{}
}

// Function is one compiled function's MIR body.
type Function struct {
	Node
	Name       string
	Params     []Param
	ReturnType types.Type
	Blocks     []*Block
	nextValue  ValueID
	nextBlock  BlockID
}

// Param is one function parameter's SSA value id and type.
type Param struct {
	Value ValueID
	Name  string
	Type  types.Type
}

// NewFunction returns an empty Function, ready for a Builder to append
// blocks and instructions to.
func NewFunction(name string, ret types.Type) *Function {
	return &Function{Name: name, ReturnType: ret}
}

// FreshValue allocates the next unused SSA value id in this function.
func (f *Function) FreshValue() ValueID {
	v := f.nextValue
	f.nextValue++
	return v
}

// NewBlock appends and returns a new, empty basic block.
func (f *Function) NewBlock(label string) *Block {
	b := &Block{ID: f.nextBlock, Label: label}
	f.nextBlock++
	f.Blocks = append(f.Blocks, b)
	return b
}

// Block is a straight-line sequence of instructions ending in exactly
// one terminator (Branch, CondBranch, Switch, or Return).
type Block struct {
	ID           BlockID
	Label        string
	Instructions []Instr
}

// Append adds an instruction to the block's body.
func (b *Block) Append(i Instr) { b.Instructions = append(b.Instructions, i) }

// Op is the MIR opcode set (SPEC_FULL.md §4.5): arithmetic, memory,
// control, call, aggregate construction, projection, cast, phi.
type Op int

const (
	OpConst Op = iota
	OpBinary
	OpUnary
	OpAlloca
	OpLoad
	OpStore
	OpBranch
	OpCondBranch
	OpSwitch
	OpReturn
	OpCallDirect
	OpCallIndirect
	OpAggregateConstruct
	OpProject // GEP-style field/index/tag projection
	OpCast
	OpPhi
)

func (o Op) String() string {
	names := [...]string{
		"const", "binary", "unary", "alloca", "load", "store",
		"branch", "cond_branch", "switch", "return",
		"call_direct", "call_indirect", "aggregate_construct",
		"project", "cast", "phi",
	}
	if int(o) < len(names) {
		return names[o]
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Instr is one MIR instruction. Result is the value id it defines, or
// the zero value for instructions with no result (store, branch family,
// return).
type Instr struct {
	Node
	Op        Op
	Result    ValueID
	HasResult bool
	Type      types.Type

	// Operand sets, only the ones relevant to Op are populated.
	ConstValue  interface{}
	BinaryOp    string
	UnaryOp     string
	Args        []ValueID
	Targets     []BlockID // Branch: [target]; CondBranch: [then, else]; Switch: case targets then default last
	SwitchCases []int64
	Callee      string   // OpCallDirect: mangled function name
	FieldIndex  int      // OpProject: struct field index, or enum tag slot
	FieldName   string
	CastTo      types.Type
	PhiInputs   []PhiInput
}

// PhiInput is one (predecessor block, incoming value) pair for a phi
// instruction.
type PhiInput struct {
	Block BlockID
	Value ValueID
}
