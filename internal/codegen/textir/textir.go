// Package textir is the reference codegen backend: it emits a
// textual, LLVM-flavored target IR directly from MIR, without ever
// shelling out to a real toolchain. It exists so the pipeline has a
// backend it can always run, and so SPEC_FULL.md §4.6's fat-pointer/
// vtable/tagged-union emission rules have one concrete, readable
// implementation.
//
// Grounded on original_source/compiler/src/codegen/llvm/expr/closure.cpp
// (the `{ fn_ptr, env_ptr }` fat-pointer closure representation) and
// .../decl/struct.cpp (struct/enum layout emission); rewritten from
// AST-driven emission to MIR-driven emission since this backend's
// CompileMIR leg is the one SPEC_FULL.md requires every backend to
// support.
package textir

import (
	"context"
	"fmt"
	"strings"

	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/codegen"
	"github.com/hivellm/tmlc/internal/mir"
	"github.com/hivellm/tmlc/internal/tenv"
	"github.com/hivellm/tmlc/internal/types"
)

// Backend is the reference text-IR code generator.
type Backend struct{}

// New returns a ready-to-use reference backend.
func New() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "textir" }

func (b *Backend) Capabilities() codegen.Capabilities {
	return codegen.Capabilities{
		SupportsMIR:           true,
		SupportsAST:           false,
		SupportsGenerics:      true,
		SupportsDebugInfo:     true,
		SupportsCoverage:      false,
		SupportsCGU:           true,
		MaxOptimizationLevel:  0,
	}
}

func (b *Backend) CompileMIR(ctx context.Context, module *mir.Module, opts codegen.Options) codegen.Result {
	indices := make([]int, len(module.Functions))
	for i := range indices {
		indices[i] = i
	}
	return b.CompileMIRCGU(ctx, module, indices, opts)
}

func (b *Backend) CompileMIRCGU(ctx context.Context, module *mir.Module, funcIndices []int, opts codegen.Options) codegen.Result {
	if err := ctx.Err(); err != nil {
		return codegen.ErrResult("textir: cancelled: %v", err)
	}
	e := &emitter{opts: opts}
	e.emitHeader(module)
	for _, s := range module.Structs {
		e.emitStruct(s)
	}
	for _, en := range module.Enums {
		e.emitEnum(en)
	}
	for _, idx := range funcIndices {
		if idx < 0 || idx >= len(module.Functions) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return codegen.ErrResult("textir: cancelled mid-CGU: %v", err)
		}
		e.emitFunction(module.Functions[idx])
	}
	return codegen.Result{Success: true, IRText: e.sb.String()}
}

func (b *Backend) CompileAST(ctx context.Context, file *ast.File, env *tenv.Env, opts codegen.Options) codegen.Result {
	return codegen.ErrResult("textir: compile_ast is not supported; this backend only accepts MIR (capabilities.supports_ast = false)")
}

func (b *Backend) GenerateIR(ctx context.Context, module *mir.Module, opts codegen.Options) string {
	res := b.CompileMIR(ctx, module, opts)
	return res.IRText
}

// ---------------------------------------------------------------------
// emitter
// ---------------------------------------------------------------------

type emitter struct {
	sb   strings.Builder
	opts codegen.Options
}

func (e *emitter) emitHeader(m *mir.Module) {
	fmt.Fprintf(&e.sb, "; module %s\n", m.Name)
	fmt.Fprintf(&e.sb, "; closure = { fn_ptr, env_ptr }\n")
	fmt.Fprintf(&e.sb, "; dyn B   = { data_ptr, vtable_ptr }\n\n")
}

func (e *emitter) emitStruct(s *mir.StructDef) {
	fields := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = llvmType(f.Type)
	}
	fmt.Fprintf(&e.sb, "%%struct.%s = type { %s }\n", s.Name, strings.Join(fields, ", "))
}

// emitEnum lays out `{ i32 tag, [i64 x N] storage }` per SPEC_FULL.md
// §4.6, with N derived from the largest variant's payload.
func (e *emitter) emitEnum(en *mir.EnumDef) {
	fmt.Fprintf(&e.sb, "%%enum.%s = type { i32, [%d x i64] }\n", en.Name, en.MaxPayloadWords)
	for _, v := range en.Variants {
		fmt.Fprintf(&e.sb, "; %s.%s tag=%d\n", en.Name, v.Name, v.Tag)
	}
}

func (e *emitter) emitFunction(f *mir.Function) {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s %%%s", llvmType(p.Type), p.Name)
	}
	fmt.Fprintf(&e.sb, "\ndefine %s @%s(%s) {\n", llvmType(f.ReturnType), f.Name, strings.Join(params, ", "))
	for _, blk := range f.Blocks {
		fmt.Fprintf(&e.sb, "%s:\n", blockLabel(blk))
		for _, ins := range blk.Instructions {
			e.emitInstr(ins)
		}
	}
	e.sb.WriteString("}\n")
}

func blockLabel(b *mir.Block) string {
	if b.Label != "" {
		return fmt.Sprintf("bb%d.%s", b.ID, b.Label)
	}
	return fmt.Sprintf("bb%d", b.ID)
}

func (e *emitter) emitInstr(i mir.Instr) {
	if e.opts.DebugInfo && i.MIRSpan.Start.Line != 0 {
		fmt.Fprintf(&e.sb, "  ; %s\n", i.MIRSpan)
	}
	switch i.Op {
	case mir.OpConst:
		e.line("%%%d = add %s 0, %s", i.Result, llvmType(i.Type), constText(i.ConstValue))
	case mir.OpBinary:
		e.line("%%%d = %s %s %%%d, %%%d", i.Result, llvmBinOp(i.BinaryOp), llvmType(i.Type), i.Args[0], i.Args[1])
	case mir.OpUnary:
		e.line("%%%d = %s %s %%%d", i.Result, llvmUnOp(i.UnaryOp), llvmType(i.Type), i.Args[0])
	case mir.OpAlloca:
		e.line("%%%d = alloca %s", i.Result, llvmType(i.Type))
	case mir.OpLoad:
		e.line("%%%d = load %s, ptr %%%d", i.Result, llvmType(i.Type), i.Args[0])
	case mir.OpStore:
		e.line("store %s %%%d, ptr %%%d", llvmType(i.Type), i.Args[1], i.Args[0])
	case mir.OpBranch:
		e.line("br label %%bb%d", i.Targets[0])
	case mir.OpCondBranch:
		e.line("br i1 %%%d, label %%bb%d, label %%bb%d", i.Args[0], i.Targets[0], i.Targets[1])
	case mir.OpSwitch:
		cases := make([]string, len(i.SwitchCases))
		for j, c := range i.SwitchCases {
			cases[j] = fmt.Sprintf("i64 %d, label %%bb%d", c, i.Targets[j])
		}
		def := i.Targets[len(i.Targets)-1]
		e.line("switch i64 %%%d, label %%bb%d [ %s ]", i.Args[0], def, strings.Join(cases, " "))
	case mir.OpReturn:
		if len(i.Args) > 0 {
			e.line("ret %s %%%d", llvmType(i.Type), i.Args[0])
		} else {
			e.line("ret void")
		}
	case mir.OpCallDirect:
		args := make([]string, len(i.Args))
		for j, a := range i.Args {
			args[j] = fmt.Sprintf("%%%d", a)
		}
		e.line("%%%d = call %s @%s(%s)", i.Result, llvmType(i.Type), i.Callee, strings.Join(args, ", "))
	case mir.OpCallIndirect:
		// First arg is the closure fat pointer; extract fn_ptr/env_ptr
		// and pass env_ptr as the implicit first real argument.
		args := make([]string, len(i.Args)-1)
		for j := 1; j < len(i.Args); j++ {
			args[j-1] = fmt.Sprintf("%%%d", i.Args[j])
		}
		e.line("%%fn.%d = extractvalue { ptr, ptr } %%%d, 0", i.Result, i.Args[0])
		e.line("%%env.%d = extractvalue { ptr, ptr } %%%d, 1", i.Result, i.Args[0])
		e.line("%%%d = call %s %%fn.%d(ptr %%env.%d%s)", i.Result, llvmType(i.Type), i.Result, i.Result, prependComma(args))
	case mir.OpAggregateConstruct:
		e.emitAggregateConstruct(i)
	case mir.OpProject:
		e.line("%%%d = getelementptr inbounds %s, ptr %%%d, i32 0, i32 %d ; .%s",
			i.Result, llvmType(i.Type), i.Args[0], i.FieldIndex, i.FieldName)
	case mir.OpCast:
		e.line("%%%d = bitcast %%%d to %s", i.Result, i.Args[0], llvmType(i.CastTo))
	case mir.OpPhi:
		parts := make([]string, len(i.PhiInputs))
		for j, in := range i.PhiInputs {
			parts[j] = fmt.Sprintf("[ %%%d, %%bb%d ]", in.Value, in.Block)
		}
		e.line("%%%d = phi %s %s", i.Result, llvmType(i.Type), strings.Join(parts, ", "))
	}
}

func (e *emitter) emitAggregateConstruct(i mir.Instr) {
	if dyn, ok := i.Type.(*types.DynBehavior); ok {
		// dyn B = { data_ptr, vtable_ptr }; the data pointer is args[0],
		// the vtable is referenced as @vtable.<Behavior>: the concrete
		// type is not part of the name, and this backend emits no vtable
		// global definitions.
		e.line("%%%d = insertvalue { ptr, ptr } undef, ptr %%%d, 0", i.Result, i.Args[0])
		e.line("%%%d = insertvalue { ptr, ptr } %%%d, ptr @vtable.%s, 1", i.Result, i.Result, dyn.BehaviorName)
		return
	}
	if cl, ok := i.Type.(*types.Closure); ok && len(cl.Captures) > 0 {
		// Capturing closure: args[0] is the function pointer, the rest
		// populate a heap-allocated capture struct env_ptr points to.
		e.line("%%env.%d = call ptr @tml_alloc(i64 %d)", i.Result, 8*len(cl.Captures))
		for idx, a := range i.Args[1:] {
			e.line("%%envslot.%d.%d = getelementptr inbounds ptr, ptr %%env.%d, i32 %d", i.Result, idx, i.Result, idx)
			e.line("store ptr %%%d, ptr %%envslot.%d.%d", a, i.Result, idx)
		}
		e.line("%%%d = insertvalue { ptr, ptr } undef, ptr %%%d, 0", i.Result, i.Args[0])
		e.line("%%%d = insertvalue { ptr, ptr } %%%d, ptr %%env.%d, 1", i.Result, i.Result, i.Result)
		return
	}
	args := make([]string, len(i.Args))
	for j, a := range i.Args {
		args[j] = fmt.Sprintf("ptr %%%d", a)
	}
	e.line("%%%d = call %s @tml_aggregate(%s) ; %s", i.Result, llvmType(i.Type), strings.Join(args, ", "), llvmType(i.Type))
}

func prependComma(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return ", " + strings.Join(args, ", ")
}

func (e *emitter) line(format string, args ...interface{}) {
	e.sb.WriteString("  ")
	fmt.Fprintf(&e.sb, format, args...)
	e.sb.WriteByte('\n')
}

func constText(v interface{}) string {
	switch cv := v.(type) {
	case nil:
		return "0"
	case int64:
		return fmt.Sprintf("%d", cv)
	case float64:
		return fmt.Sprintf("%g", cv)
	case bool:
		if cv {
			return "1"
		}
		return "0"
	case string:
		return fmt.Sprintf("%q", cv)
	default:
		return "0"
	}
}

func llvmBinOp(op string) string {
	switch op {
	case "+":
		return "add"
	case "-":
		return "sub"
	case "*":
		return "mul"
	case "/":
		return "sdiv"
	case "%":
		return "srem"
	case "==":
		return "icmp eq"
	case "!=":
		return "icmp ne"
	case "<":
		return "icmp slt"
	case "<=":
		return "icmp sle"
	case ">":
		return "icmp sgt"
	case ">=":
		return "icmp sge"
	case "&&":
		return "and"
	case "||":
		return "or"
	default:
		return "add"
	}
}

func llvmUnOp(op string) string {
	switch op {
	case "-":
		return "neg"
	case "!":
		return "not"
	default:
		return "neg"
	}
}

// llvmType renders a types.Type as its target-IR spelling, realizing
// closures and dyn-behaviors as the fat pointers SPEC_FULL.md §4.6
// mandates and enums as their tagged-union layout.
func llvmType(t types.Type) string {
	switch tt := t.(type) {
	case nil:
		return "void"
	case *types.Primitive:
		return llvmPrim(tt.Kind)
	case *types.Named:
		return "%struct." + tt.Name
	case *types.Ref, *types.Ptr:
		return "ptr"
	case *types.Array:
		return fmt.Sprintf("[%d x %s]", tt.Size, llvmType(tt.Element))
	case *types.Slice:
		return "{ ptr, i64 }"
	case *types.Tuple:
		parts := make([]string, len(tt.Elements))
		for i, el := range tt.Elements {
			parts[i] = llvmType(el)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case *types.Func:
		return "ptr"
	case *types.Closure:
		return "{ ptr, ptr }"
	case *types.DynBehavior:
		return "{ ptr, ptr }"
	default:
		return "ptr"
	}
}

func llvmPrim(k types.PrimKind) string {
	switch k {
	case types.I8, types.U8:
		return "i8"
	case types.I16, types.U16:
		return "i16"
	case types.I32, types.U32:
		return "i32"
	case types.I64, types.U64:
		return "i64"
	case types.I128, types.U128:
		return "i128"
	case types.F32:
		return "float"
	case types.F64:
		return "double"
	case types.Bool:
		return "i1"
	case types.Char:
		return "i32"
	case types.Str:
		return "{ ptr, i64 }"
	case types.Unit:
		return "void"
	case types.Never:
		return "void"
	default:
		return "i64"
	}
}
