package mirio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hivellm/tmlc/internal/mir"
	"github.com/hivellm/tmlc/internal/types"
)

// Printer renders a mir.Module as human-readable text, grounded on the
// teacher's core.Pretty stub — generalized here from a one-line-per-
// declaration dump into a full, re-parseable textual form, since
// SPEC_FULL.md §4.5 needs the text format to round-trip through
// ParseModule for `tmlc mir-dump`/`mir-roundtrip`.
type Printer struct {
	sb     strings.Builder
	indent int
}

// PrintModule renders m as text.
func PrintModule(m *mir.Module) string {
	p := &Printer{}
	p.line("module %s", m.Name)
	for _, s := range m.Structs {
		p.printStruct(s)
	}
	for _, e := range m.Enums {
		p.printEnum(e)
	}
	for _, f := range m.Functions {
		p.printFunction(f)
	}
	for _, c := range m.Consts {
		p.line("const %s: %s = %s", c.Name, typeToString(c.Type), constValueToString(c.Value))
	}
	return p.sb.String()
}

func (p *Printer) line(format string, args ...interface{}) {
	p.sb.WriteString(strings.Repeat("  ", p.indent))
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

func (p *Printer) printStruct(s *mir.StructDef) {
	p.line("struct %s {", s.Name)
	p.indent++
	for _, f := range s.Fields {
		p.line("%s: %s", f.Name, typeToString(f.Type))
	}
	p.indent--
	p.line("}")
}

func (p *Printer) printEnum(e *mir.EnumDef) {
	p.line("enum %s max_payload_words=%d {", e.Name, e.MaxPayloadWords)
	p.indent++
	for _, v := range e.Variants {
		parts := make([]string, len(v.Payload))
		for i, t := range v.Payload {
			parts[i] = typeToString(t)
		}
		p.line("%s(tag=%d): %s", v.Name, v.Tag, strings.Join(parts, ", "))
	}
	p.indent--
	p.line("}")
}

func (p *Printer) printFunction(f *mir.Function) {
	params := make([]string, len(f.Params))
	for i, prm := range f.Params {
		params[i] = fmt.Sprintf("%%%d:%s %s", prm.Value, prm.Name, typeToString(prm.Type))
	}
	p.line("fn %s(%s) -> %s {", f.Name, strings.Join(params, ", "), typeToString(f.ReturnType))
	p.indent++
	for _, b := range f.Blocks {
		p.line("block %d %s:", b.ID, b.Label)
		p.indent++
		for _, ins := range b.Instructions {
			p.line("%s", instrToString(ins))
		}
		p.indent--
	}
	p.indent--
	p.line("}")
}

func instrToString(i mir.Instr) string {
	var sb strings.Builder
	if i.HasResult {
		fmt.Fprintf(&sb, "%%%d = ", i.Result)
	}
	sb.WriteString(i.Op.String())
	sb.WriteByte(' ')

	switch i.Op {
	case mir.OpConst:
		fmt.Fprintf(&sb, "%s : %s", constValueToString(i.ConstValue), typeToString(i.Type))
	case mir.OpBinary:
		fmt.Fprintf(&sb, "%s %%%d, %%%d : %s", i.BinaryOp, i.Args[0], i.Args[1], typeToString(i.Type))
	case mir.OpUnary:
		fmt.Fprintf(&sb, "%s %%%d : %s", i.UnaryOp, i.Args[0], typeToString(i.Type))
	case mir.OpAlloca:
		fmt.Fprintf(&sb, ": %s", typeToString(i.Type))
	case mir.OpLoad:
		fmt.Fprintf(&sb, "%%%d : %s", i.Args[0], typeToString(i.Type))
	case mir.OpStore:
		fmt.Fprintf(&sb, "%%%d, %%%d : %s", i.Args[0], i.Args[1], typeToString(i.Type))
	case mir.OpBranch:
		fmt.Fprintf(&sb, "%d", i.Targets[0])
	case mir.OpCondBranch:
		fmt.Fprintf(&sb, "%%%d, %d, %d", i.Args[0], i.Targets[0], i.Targets[1])
	case mir.OpSwitch:
		cases := make([]string, len(i.SwitchCases))
		for j, c := range i.SwitchCases {
			cases[j] = fmt.Sprintf("%d:%d", c, i.Targets[j])
		}
		fmt.Fprintf(&sb, "%%%d [%s] default %d", i.Args[0], strings.Join(cases, ", "), i.Targets[len(i.Targets)-1])
	case mir.OpReturn:
		if len(i.Args) > 0 {
			fmt.Fprintf(&sb, "%%%d : %s", i.Args[0], typeToString(i.Type))
		}
	case mir.OpCallDirect:
		args := make([]string, len(i.Args))
		for j, a := range i.Args {
			args[j] = fmt.Sprintf("%%%d", a)
		}
		fmt.Fprintf(&sb, "%s(%s) : %s", i.Callee, strings.Join(args, ", "), typeToString(i.Type))
	case mir.OpCallIndirect:
		args := make([]string, len(i.Args)-1)
		for j := 1; j < len(i.Args); j++ {
			args[j-1] = fmt.Sprintf("%%%d", i.Args[j])
		}
		fmt.Fprintf(&sb, "%%%d(%s) : %s", i.Args[0], strings.Join(args, ", "), typeToString(i.Type))
	case mir.OpAggregateConstruct:
		args := make([]string, len(i.Args))
		for j, a := range i.Args {
			args[j] = fmt.Sprintf("%%%d", a)
		}
		fmt.Fprintf(&sb, "(%s) : %s", strings.Join(args, ", "), typeToString(i.Type))
	case mir.OpProject:
		fmt.Fprintf(&sb, "%%%d.%d(%s) : %s", i.Args[0], i.FieldIndex, i.FieldName, typeToString(i.Type))
	case mir.OpCast:
		fmt.Fprintf(&sb, "%%%d as %s", i.Args[0], typeToString(i.CastTo))
	case mir.OpPhi:
		parts := make([]string, len(i.PhiInputs))
		for j, in := range i.PhiInputs {
			parts[j] = fmt.Sprintf("[%d: %%%d]", in.Block, in.Value)
		}
		fmt.Fprintf(&sb, "%s : %s", strings.Join(parts, ", "), typeToString(i.Type))
	}
	return sb.String()
}

func constValueToString(v interface{}) string {
	switch cv := v.(type) {
	case nil:
		return "unit"
	case int64:
		return strconv.FormatInt(cv, 10)
	case float64:
		return strconv.FormatFloat(cv, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(cv)
	case string:
		return strconv.Quote(cv)
	default:
		return fmt.Sprintf("%v", cv)
	}
}

func typeToString(t types.Type) string {
	switch tt := t.(type) {
	case nil:
		return "unit"
	case *types.Primitive:
		return primName(tt.Kind)
	case *types.Named:
		if len(tt.TypeArgs) == 0 {
			return tt.Name
		}
		parts := make([]string, len(tt.TypeArgs))
		for i, a := range tt.TypeArgs {
			parts[i] = typeToString(a)
		}
		return tt.Name + "<" + strings.Join(parts, ", ") + ">"
	case *types.Generic:
		return "'" + tt.Name
	case *types.Ref:
		if tt.IsMut {
			return "mutref " + typeToString(tt.Inner)
		}
		return "ref " + typeToString(tt.Inner)
	case *types.Ptr:
		if tt.IsMut {
			return "mutptr " + typeToString(tt.Inner)
		}
		return "ptr " + typeToString(tt.Inner)
	case *types.Array:
		return fmt.Sprintf("[%s; %d]", typeToString(tt.Element), tt.Size)
	case *types.Slice:
		return "[" + typeToString(tt.Element) + "]"
	case *types.Tuple:
		parts := make([]string, len(tt.Elements))
		for i, e := range tt.Elements {
			parts[i] = typeToString(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *types.Func:
		parts := make([]string, len(tt.Params))
		for i, p := range tt.Params {
			parts[i] = typeToString(p)
		}
		return "fn(" + strings.Join(parts, ", ") + ") -> " + typeToString(tt.Return)
	case *types.DynBehavior:
		return "dyn " + tt.BehaviorName
	default:
		return "?"
	}
}

func primName(k types.PrimKind) string {
	switch k {
	case types.I8:
		return "i8"
	case types.I16:
		return "i16"
	case types.I32:
		return "i32"
	case types.I64:
		return "i64"
	case types.I128:
		return "i128"
	case types.U8:
		return "u8"
	case types.U16:
		return "u16"
	case types.U32:
		return "u32"
	case types.U64:
		return "u64"
	case types.U128:
		return "u128"
	case types.F32:
		return "f32"
	case types.F64:
		return "f64"
	case types.Bool:
		return "bool"
	case types.Char:
		return "char"
	case types.Str:
		return "str"
	case types.Unit:
		return "unit"
	case types.Never:
		return "never"
	default:
		return "?"
	}
}
