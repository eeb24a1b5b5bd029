package mirio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/diag"
	"github.com/hivellm/tmlc/internal/mir"
	"github.com/hivellm/tmlc/internal/types"
)

// ParseModule parses text previously produced by PrintModule back into
// a mir.Module. Malformed input is reported through acc using
// diag.CDG001, tagged with the 1-based source line number in the
// message since this text has no separate surface-syntax span to
// attach a diag.Span to.
func ParseModule(text string, acc *diag.Accumulator) *mir.Module {
	p := &textParser{lines: strings.Split(text, "\n"), acc: acc}
	return p.parseModule()
}

type textParser struct {
	lines []string
	pos   int
	acc   *diag.Accumulator
}

func (p *textParser) fail(format string, args ...interface{}) {
	p.acc.Addf(diag.CDG001, ast.Span{}, "mirio: line %d: %s", p.pos+1, fmt.Sprintf(format, args...))
}

func (p *textParser) peek() (string, bool) {
	for p.pos < len(p.lines) {
		l := strings.TrimSpace(p.lines[p.pos])
		if l == "" {
			p.pos++
			continue
		}
		return l, true
	}
	return "", false
}

func (p *textParser) next() (string, bool) {
	l, ok := p.peek()
	if ok {
		p.pos++
	}
	return l, ok
}

func (p *textParser) parseModule() *mir.Module {
	line, ok := p.next()
	if !ok || !strings.HasPrefix(line, "module ") {
		p.fail("expected 'module <name>' header")
		return &mir.Module{}
	}
	m := &mir.Module{Name: strings.TrimSpace(strings.TrimPrefix(line, "module "))}

	for {
		line, ok := p.peek()
		if !ok {
			break
		}
		switch {
		case strings.HasPrefix(line, "struct "):
			m.Structs = append(m.Structs, p.parseStruct())
		case strings.HasPrefix(line, "enum "):
			m.Enums = append(m.Enums, p.parseEnum())
		case strings.HasPrefix(line, "fn "):
			m.Functions = append(m.Functions, p.parseFunction())
		case strings.HasPrefix(line, "const "):
			m.Consts = append(m.Consts, p.parseConst())
		default:
			p.fail("unexpected top-level line %q", line)
			p.pos++
		}
	}
	return m
}

func (p *textParser) parseConst() mir.ConstDef {
	line, _ := p.next()
	// const NAME: TYPE = VALUE
	rest := strings.TrimPrefix(line, "const ")
	nameAndRest := strings.SplitN(rest, ":", 2)
	name := strings.TrimSpace(nameAndRest[0])
	if len(nameAndRest) < 2 {
		p.fail("malformed const declaration %q", line)
		return mir.ConstDef{Name: name}
	}
	typeAndValue := strings.SplitN(nameAndRest[1], "=", 2)
	typ := parseTypeToken(strings.TrimSpace(typeAndValue[0]))
	var val interface{}
	if len(typeAndValue) == 2 {
		val = parseConstToken(strings.TrimSpace(typeAndValue[1]))
	}
	return mir.ConstDef{Name: name, Type: typ, Value: val}
}

func (p *textParser) parseStruct() *mir.StructDef {
	header, _ := p.next()
	name := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(header, "struct ")), " {")
	s := &mir.StructDef{Name: strings.TrimSpace(name)}
	for {
		line, ok := p.next()
		if !ok {
			p.fail("unterminated struct %q", s.Name)
			break
		}
		if line == "}" {
			break
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			p.fail("malformed field declaration %q", line)
			continue
		}
		s.Fields = append(s.Fields, mir.FieldDef{
			Name: strings.TrimSpace(parts[0]),
			Type: parseTypeToken(strings.TrimSpace(parts[1])),
		})
	}
	return s
}

func (p *textParser) parseEnum() *mir.EnumDef {
	header, _ := p.next()
	header = strings.TrimSuffix(strings.TrimSpace(header), "{")
	header = strings.TrimSpace(header)
	fields := strings.Fields(strings.TrimPrefix(header, "enum "))
	e := &mir.EnumDef{}
	if len(fields) > 0 {
		e.Name = fields[0]
	}
	for _, f := range fields[1:] {
		if strings.HasPrefix(f, "max_payload_words=") {
			n, _ := strconv.Atoi(strings.TrimPrefix(f, "max_payload_words="))
			e.MaxPayloadWords = n
		}
	}
	for {
		line, ok := p.next()
		if !ok {
			p.fail("unterminated enum %q", e.Name)
			break
		}
		if line == "}" {
			break
		}
		e.Variants = append(e.Variants, parseVariantLine(line))
	}
	return e
}

func parseVariantLine(line string) mir.VariantDef {
	// Name(tag=N): T1, T2
	nameEnd := strings.Index(line, "(")
	colon := strings.Index(line, ":")
	v := mir.VariantDef{}
	if nameEnd < 0 || colon < 0 {
		v.Name = strings.TrimSpace(line)
		return v
	}
	v.Name = strings.TrimSpace(line[:nameEnd])
	tagPart := line[nameEnd+1 : strings.Index(line, ")")]
	tagPart = strings.TrimPrefix(tagPart, "tag=")
	tag, _ := strconv.Atoi(tagPart)
	v.Tag = tag
	payload := strings.TrimSpace(line[colon+1:])
	if payload != "" {
		for _, t := range strings.Split(payload, ", ") {
			v.Payload = append(v.Payload, parseTypeToken(strings.TrimSpace(t)))
		}
	}
	return v
}

func (p *textParser) parseFunction() *mir.Function {
	header, _ := p.next()
	// fn NAME(%0:p0 i32, ...) -> RET {
	header = strings.TrimSuffix(strings.TrimSpace(header), "{")
	header = strings.TrimSpace(header)
	name := strings.TrimPrefix(header, "fn ")
	parenIdx := strings.Index(name, "(")
	arrowIdx := strings.LastIndex(name, "->")
	fnName := strings.TrimSpace(name[:parenIdx])
	paramsStr := name[parenIdx+1 : strings.LastIndex(name, ")")]
	retStr := strings.TrimSpace(name[arrowIdx+2:])

	f := mir.NewFunction(fnName, parseTypeToken(retStr))
	if paramsStr != "" {
		for _, pr := range strings.Split(paramsStr, ", ") {
			f.Params = append(f.Params, parseParamToken(pr))
		}
	}

	for {
		line, ok := p.next()
		if !ok {
			p.fail("unterminated function %q", fnName)
			break
		}
		if line == "}" {
			break
		}
		if !strings.HasPrefix(line, "block ") {
			p.fail("expected block header, got %q", line)
			continue
		}
		f.Blocks = append(f.Blocks, p.parseBlock(line))
	}
	return f
}

func parseParamToken(s string) mir.Param {
	// %0:name type
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "%")
	idColon := strings.Index(s, ":")
	id, _ := strconv.ParseUint(s[:idColon], 10, 64)
	rest := s[idColon+1:]
	spaceIdx := strings.Index(rest, " ")
	return mir.Param{
		Value: mir.ValueID(id),
		Name:  rest[:spaceIdx],
		Type:  parseTypeToken(strings.TrimSpace(rest[spaceIdx+1:])),
	}
}

func (p *textParser) parseBlock(header string) *mir.Block {
	// block ID label:
	header = strings.TrimSuffix(strings.TrimSpace(header), ":")
	fields := strings.Fields(strings.TrimPrefix(header, "block "))
	b := &mir.Block{}
	if len(fields) > 0 {
		id, _ := strconv.ParseUint(fields[0], 10, 64)
		b.ID = mir.BlockID(id)
	}
	if len(fields) > 1 {
		b.Label = fields[1]
	}
	for {
		line, ok := p.peek()
		if !ok || strings.HasPrefix(line, "block ") || line == "}" {
			break
		}
		p.pos++
		b.Instructions = append(b.Instructions, p.parseInstr(line))
	}
	return b
}

func (p *textParser) parseInstr(line string) mir.Instr {
	var result string
	rest := line
	if idx := strings.Index(line, " = "); idx >= 0 && strings.HasPrefix(line, "%") {
		result = line[1:idx]
		rest = line[idx+3:]
	}

	spaceIdx := strings.Index(rest, " ")
	opName := rest
	operands := ""
	if spaceIdx >= 0 {
		opName = rest[:spaceIdx]
		operands = strings.TrimSpace(rest[spaceIdx+1:])
	}
	op, ok := opFromString(opName)
	if !ok {
		p.fail("unknown opcode %q", opName)
		return mir.Instr{}
	}

	instr := mir.Instr{Op: op}
	if result != "" {
		id, _ := strconv.ParseUint(result, 10, 64)
		instr.Result = mir.ValueID(id)
		instr.HasResult = true
	}
	p.fillOperands(&instr, operands)
	return instr
}

func opFromString(s string) (mir.Op, bool) {
	names := map[string]mir.Op{
		"const": mir.OpConst, "binary": mir.OpBinary, "unary": mir.OpUnary,
		"alloca": mir.OpAlloca, "load": mir.OpLoad, "store": mir.OpStore,
		"branch": mir.OpBranch, "cond_branch": mir.OpCondBranch, "switch": mir.OpSwitch,
		"return": mir.OpReturn, "call_direct": mir.OpCallDirect, "call_indirect": mir.OpCallIndirect,
		"aggregate_construct": mir.OpAggregateConstruct, "project": mir.OpProject,
		"cast": mir.OpCast, "phi": mir.OpPhi,
	}
	op, ok := names[s]
	return op, ok
}

func value(tok string) mir.ValueID {
	tok = strings.TrimPrefix(strings.TrimSpace(tok), "%")
	id, _ := strconv.ParseUint(tok, 10, 64)
	return mir.ValueID(id)
}

// fillOperands parses the operand tail of one instruction line. The
// grammar is fixed per opcode, so this is a direct dispatch rather than
// a general expression parser. The operands of switch, call_indirect and
// phi lines are not parsed: only their opcode and result survive.
func (p *textParser) fillOperands(i *mir.Instr, operands string) {
	typedParts := func(s string) (string, types.Type) {
		idx := strings.LastIndex(s, " : ")
		if idx < 0 {
			return s, nil
		}
		return strings.TrimSpace(s[:idx]), parseTypeToken(strings.TrimSpace(s[idx+3:]))
	}

	switch i.Op {
	case mir.OpConst:
		v, t := typedParts(operands)
		i.Type = t
		i.ConstValue = parseConstToken(v)
	case mir.OpBinary:
		op, t := typedParts(operands)
		fields := strings.Fields(op)
		i.BinaryOp = fields[0]
		i.Args = []mir.ValueID{value(strings.TrimSuffix(fields[1], ",")), value(fields[2])}
		i.Type = t
	case mir.OpUnary:
		op, t := typedParts(operands)
		fields := strings.Fields(op)
		i.UnaryOp = fields[0]
		i.Args = []mir.ValueID{value(fields[1])}
		i.Type = t
	case mir.OpAlloca:
		_, t := typedParts(operands)
		i.Type = t
	case mir.OpLoad:
		v, t := typedParts(operands)
		i.Args = []mir.ValueID{value(v)}
		i.Type = t
	case mir.OpStore:
		v, t := typedParts(operands)
		fields := strings.Split(v, ", ")
		i.Args = []mir.ValueID{value(fields[0]), value(fields[1])}
		i.Type = t
	case mir.OpBranch:
		id, _ := strconv.ParseUint(strings.TrimSpace(operands), 10, 64)
		i.Targets = []mir.BlockID{mir.BlockID(id)}
	case mir.OpCondBranch:
		fields := strings.Split(operands, ", ")
		i.Args = []mir.ValueID{value(fields[0])}
		t0, _ := strconv.ParseUint(fields[1], 10, 64)
		t1, _ := strconv.ParseUint(fields[2], 10, 64)
		i.Targets = []mir.BlockID{mir.BlockID(t0), mir.BlockID(t1)}
	case mir.OpReturn:
		if operands != "" {
			v, t := typedParts(operands)
			i.Args = []mir.ValueID{value(v)}
			i.Type = t
		}
	case mir.OpCallDirect:
		parenIdx := strings.Index(operands, "(")
		closeIdx := strings.LastIndex(operands, ")")
		i.Callee = operands[:parenIdx]
		argsStr := operands[parenIdx+1 : closeIdx]
		if argsStr != "" {
			for _, a := range strings.Split(argsStr, ", ") {
				i.Args = append(i.Args, value(a))
			}
		}
		_, t := typedParts(operands[closeIdx+1:])
		i.Type = t
	case mir.OpProject:
		dotIdx := strings.Index(operands, ".")
		recv := operands[:dotIdx]
		rest := operands[dotIdx+1:]
		parenIdx := strings.Index(rest, "(")
		closeIdx := strings.Index(rest, ")")
		idx, _ := strconv.Atoi(rest[:parenIdx])
		field := rest[parenIdx+1 : closeIdx]
		_, t := typedParts(rest[closeIdx+1:])
		i.Args = []mir.ValueID{value(recv)}
		i.FieldIndex = idx
		i.FieldName = field
		i.Type = t
	case mir.OpCast:
		fields := strings.SplitN(operands, " as ", 2)
		i.Args = []mir.ValueID{value(fields[0])}
		i.CastTo = parseTypeToken(strings.TrimSpace(fields[1]))
		i.Type = i.CastTo
	case mir.OpAggregateConstruct:
		closeIdx := strings.LastIndex(operands, ")")
		argsStr := strings.TrimPrefix(operands[:closeIdx], "(")
		if argsStr != "" {
			for _, a := range strings.Split(argsStr, ", ") {
				i.Args = append(i.Args, value(a))
			}
		}
		_, t := typedParts(operands[closeIdx+1:])
		i.Type = t
	}
}

func parseConstToken(s string) interface{} {
	s = strings.TrimSpace(s)
	switch s {
	case "unit":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err == nil {
			return unquoted
		}
		return s
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return nil
}

// parseTypeToken parses the output of typeToString. It handles the
// primitive and Named[args] cases fully; the rarer composite forms
// (ref/ptr/array/slice/tuple/fn/dyn) are parsed far enough to
// round-trip what PrintModule emits for them.
func parseTypeToken(s string) types.Type {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || s == "unit":
		return types.TUnit
	case strings.HasPrefix(s, "'"):
		return &types.Generic{Name: strings.TrimPrefix(s, "'")}
	case strings.HasPrefix(s, "ref "):
		return &types.Ref{Inner: parseTypeToken(strings.TrimPrefix(s, "ref "))}
	case strings.HasPrefix(s, "mutref "):
		return &types.Ref{IsMut: true, Inner: parseTypeToken(strings.TrimPrefix(s, "mutref "))}
	case strings.HasPrefix(s, "ptr "):
		return &types.Ptr{Inner: parseTypeToken(strings.TrimPrefix(s, "ptr "))}
	case strings.HasPrefix(s, "mutptr "):
		return &types.Ptr{IsMut: true, Inner: parseTypeToken(strings.TrimPrefix(s, "mutptr "))}
	case strings.HasPrefix(s, "dyn "):
		return &types.DynBehavior{BehaviorName: strings.TrimPrefix(s, "dyn ")}
	case strings.HasPrefix(s, "[") && strings.Contains(s, ";"):
		inner := s[1 : len(s)-1]
		parts := strings.SplitN(inner, ";", 2)
		n, _ := strconv.Atoi(strings.TrimSpace(parts[1]))
		return &types.Array{Element: parseTypeToken(strings.TrimSpace(parts[0])), Size: n}
	case strings.HasPrefix(s, "["):
		return &types.Slice{Element: parseTypeToken(s[1 : len(s)-1])}
	case strings.HasPrefix(s, "fn("):
		arrow := strings.LastIndex(s, "->")
		paramsStr := s[3:strings.Index(s, ")")]
		var params []types.Type
		if paramsStr != "" {
			for _, p := range strings.Split(paramsStr, ", ") {
				params = append(params, parseTypeToken(p))
			}
		}
		return &types.Func{Params: params, Return: parseTypeToken(strings.TrimSpace(s[arrow+2:]))}
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		inner := s[1 : len(s)-1]
		if inner == "" {
			return &types.Tuple{}
		}
		var elems []types.Type
		for _, e := range splitTopLevel(inner) {
			elems = append(elems, parseTypeToken(e))
		}
		return &types.Tuple{Elements: elems}
	case strings.Contains(s, "<"):
		name := s[:strings.Index(s, "<")]
		inner := s[strings.Index(s, "<")+1 : len(s)-1]
		var args []types.Type
		for _, a := range splitTopLevel(inner) {
			args = append(args, parseTypeToken(a))
		}
		return &types.Named{Name: name, TypeArgs: args}
	default:
		if k, ok := primKindFromString(s); ok {
			return &types.Primitive{Kind: k}
		}
		return &types.Named{Name: s}
	}
}

// splitTopLevel splits s on top-level ", " separators, ignoring
// separators nested inside <...> or (...).
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
				if start < len(s) && s[start] == ' ' {
					start++
				}
			}
		}
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	return parts
}

func primKindFromString(s string) (types.PrimKind, bool) {
	names := map[string]types.PrimKind{
		"i8": types.I8, "i16": types.I16, "i32": types.I32, "i64": types.I64, "i128": types.I128,
		"u8": types.U8, "u16": types.U16, "u32": types.U32, "u64": types.U64, "u128": types.U128,
		"f32": types.F32, "f64": types.F64, "bool": types.Bool, "char": types.Char,
		"str": types.Str, "unit": types.Unit, "never": types.Never,
	}
	k, ok := names[s]
	return k, ok
}
