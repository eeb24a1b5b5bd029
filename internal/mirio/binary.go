// Package mirio serializes internal/mir modules to a compact binary
// format and to a human-readable text format, and parses both back.
//
// The binary format (SPEC_FULL.md §4.5) is a from-scratch tagged
// encoding, not a reused container format: a 8-byte header (magic
// "MIR " + u16 major + u16 minor), followed by the module's structs,
// enums, functions, and constants written in declaration order. There
// are no backpatched offsets — every list is length-prefixed up front
// so a reader allocates once and fills in forward order, the same
// framing idiom the teacher's iface/json.go uses for its (encode once,
// sort first, never patch) interface files, generalized here from JSON
// to a byte-oriented encoding because spec.md requires a binary cache
// format, not a human-readable one, for this half of the round trip.
package mirio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/hivellm/tmlc/internal/mir"
	"github.com/hivellm/tmlc/internal/types"
)

const (
	magic        uint32 = 0x4D495220 // "MIR "
	versionMajor uint16 = 1
	versionMinor uint16 = 0
)

type typeTag byte

const (
	tagPrimitive typeTag = iota
	tagNamed
	tagGeneric
	tagRef
	tagPtr
	tagArray
	tagSlice
	tagTuple
	tagFunc
	tagDyn
	tagUnknown = typeTag(255)
)

// WriteModule encodes m into the binary MIR format.
func WriteModule(m *mir.Module) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, magic); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, versionMajor); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, versionMinor); err != nil {
		return nil, err
	}

	w := &writer{buf: &buf}
	w.writeString(m.Name)

	w.writeU32(uint32(len(m.Structs)))
	for _, s := range m.Structs {
		w.writeStructDef(s)
	}

	w.writeU32(uint32(len(m.Enums)))
	for _, e := range m.Enums {
		w.writeEnumDef(e)
	}

	w.writeU32(uint32(len(m.Functions)))
	for _, f := range m.Functions {
		w.writeFunction(f)
	}

	w.writeU32(uint32(len(m.Consts)))
	for _, c := range m.Consts {
		w.writeString(c.Name)
		w.writeType(c.Type)
		w.writeConstValue(c.Value)
	}

	if w.err != nil {
		return nil, w.err
	}
	return buf.Bytes(), nil
}

// ReadModule decodes a binary MIR module previously produced by
// WriteModule.
func ReadModule(data []byte) (*mir.Module, error) {
	r := &reader{buf: bytes.NewReader(data)}

	gotMagic := r.readU32()
	if gotMagic != magic {
		return nil, fmt.Errorf("mirio: bad magic %#x, want %#x", gotMagic, magic)
	}
	major := r.readU16()
	_ = r.readU16() // minor: format is additive within a major version
	if major != versionMajor {
		return nil, fmt.Errorf("mirio: unsupported MIR format version %d", major)
	}

	m := &mir.Module{Name: r.readString()}

	for i, n := 0, r.readU32(); i < int(n); i++ {
		m.Structs = append(m.Structs, r.readStructDef())
	}
	for i, n := 0, r.readU32(); i < int(n); i++ {
		m.Enums = append(m.Enums, r.readEnumDef())
	}
	for i, n := 0, r.readU32(); i < int(n); i++ {
		m.Functions = append(m.Functions, r.readFunction())
	}
	for i, n := 0, r.readU32(); i < int(n); i++ {
		name := r.readString()
		typ := r.readType()
		val := r.readConstValue()
		m.Consts = append(m.Consts, mir.ConstDef{Name: name, Type: typ, Value: val})
	}

	if r.err != nil {
		return nil, r.err
	}
	return m, nil
}

// ---------------------------------------------------------------------
// writer
// ---------------------------------------------------------------------

type writer struct {
	buf *bytes.Buffer
	err error
}

func (w *writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *writer) writeU32(v uint32) {
	if w.err != nil {
		return
	}
	w.fail(binary.Write(w.buf, binary.BigEndian, v))
}

func (w *writer) writeU64(v uint64) {
	if w.err != nil {
		return
	}
	w.fail(binary.Write(w.buf, binary.BigEndian, v))
}

func (w *writer) writeI64(v int64) {
	if w.err != nil {
		return
	}
	w.fail(binary.Write(w.buf, binary.BigEndian, v))
}

func (w *writer) writeByte(v byte) {
	if w.err != nil {
		return
	}
	w.fail(w.buf.WriteByte(v))
}

func (w *writer) writeBool(v bool) {
	if v {
		w.writeByte(1)
	} else {
		w.writeByte(0)
	}
}

func (w *writer) writeString(s string) {
	w.writeU32(uint32(len(s)))
	if w.err != nil {
		return
	}
	_, err := w.buf.WriteString(s)
	w.fail(err)
}

func (w *writer) writeType(t types.Type) {
	switch tt := t.(type) {
	case *types.Primitive:
		w.writeByte(byte(tagPrimitive))
		w.writeByte(byte(tt.Kind))
	case *types.Named:
		w.writeByte(byte(tagNamed))
		w.writeString(tt.Name)
		w.writeU32(uint32(len(tt.TypeArgs)))
		for _, a := range tt.TypeArgs {
			w.writeType(a)
		}
	case *types.Generic:
		w.writeByte(byte(tagGeneric))
		w.writeString(tt.Name)
	case *types.Ref:
		w.writeByte(byte(tagRef))
		w.writeBool(tt.IsMut)
		w.writeType(tt.Inner)
	case *types.Ptr:
		w.writeByte(byte(tagPtr))
		w.writeBool(tt.IsMut)
		w.writeType(tt.Inner)
	case *types.Array:
		w.writeByte(byte(tagArray))
		w.writeU32(uint32(tt.Size))
		w.writeType(tt.Element)
	case *types.Slice:
		w.writeByte(byte(tagSlice))
		w.writeType(tt.Element)
	case *types.Tuple:
		w.writeByte(byte(tagTuple))
		w.writeU32(uint32(len(tt.Elements)))
		for _, e := range tt.Elements {
			w.writeType(e)
		}
	case *types.Func:
		w.writeByte(byte(tagFunc))
		w.writeU32(uint32(len(tt.Params)))
		for _, p := range tt.Params {
			w.writeType(p)
		}
		w.writeType(tt.Return)
	case *types.DynBehavior:
		w.writeByte(byte(tagDyn))
		w.writeString(tt.BehaviorName)
		w.writeU32(uint32(len(tt.TypeArgs)))
		for _, a := range tt.TypeArgs {
			w.writeType(a)
		}
	default:
		w.writeByte(byte(tagUnknown))
	}
}

func (w *writer) writeStructDef(s *mir.StructDef) {
	w.writeU64(s.NodeID)
	w.writeString(s.Name)
	w.writeU32(uint32(len(s.Fields)))
	for _, f := range s.Fields {
		w.writeString(f.Name)
		w.writeType(f.Type)
	}
}

func (w *writer) writeEnumDef(e *mir.EnumDef) {
	w.writeU64(e.NodeID)
	w.writeString(e.Name)
	w.writeU32(uint32(e.MaxPayloadWords))
	w.writeU32(uint32(len(e.Variants)))
	for _, v := range e.Variants {
		w.writeString(v.Name)
		w.writeU32(uint32(v.Tag))
		w.writeU32(uint32(len(v.Payload)))
		for _, p := range v.Payload {
			w.writeType(p)
		}
	}
}

func (w *writer) writeFunction(f *mir.Function) {
	w.writeU64(f.NodeID)
	w.writeString(f.Name)
	w.writeType(f.ReturnType)

	w.writeU32(uint32(len(f.Params)))
	for _, p := range f.Params {
		w.writeU64(uint64(p.Value))
		w.writeString(p.Name)
		w.writeType(p.Type)
	}

	w.writeU32(uint32(len(f.Blocks)))
	for _, b := range f.Blocks {
		w.writeU64(uint64(b.ID))
		w.writeString(b.Label)
		w.writeU32(uint32(len(b.Instructions)))
		for _, ins := range b.Instructions {
			w.writeInstr(ins)
		}
	}
}

func (w *writer) writeInstr(i mir.Instr) {
	w.writeByte(byte(i.Op))
	w.writeBool(i.HasResult)
	w.writeU64(uint64(i.Result))
	w.writeType(i.Type)
	w.writeConstValue(i.ConstValue)
	w.writeString(i.BinaryOp)
	w.writeString(i.UnaryOp)

	w.writeU32(uint32(len(i.Args)))
	for _, a := range i.Args {
		w.writeU64(uint64(a))
	}

	w.writeU32(uint32(len(i.Targets)))
	for _, t := range i.Targets {
		w.writeU64(uint64(t))
	}

	w.writeU32(uint32(len(i.SwitchCases)))
	for _, c := range i.SwitchCases {
		w.writeI64(c)
	}

	w.writeString(i.Callee)
	w.writeU32(uint32(i.FieldIndex))
	w.writeString(i.FieldName)

	hasCastTo := i.CastTo != nil
	w.writeBool(hasCastTo)
	if hasCastTo {
		w.writeType(i.CastTo)
	}

	w.writeU32(uint32(len(i.PhiInputs)))
	for _, p := range i.PhiInputs {
		w.writeU64(uint64(p.Block))
		w.writeU64(uint64(p.Value))
	}
}

// writeConstValue encodes the small set of literal kinds MIR constants
// actually carry (SPEC_FULL.md §4.5's OpConst operand set): integers,
// floats, bools, strings, or no value at all.
func (w *writer) writeConstValue(v interface{}) {
	switch cv := v.(type) {
	case nil:
		w.writeByte(0)
	case int64:
		w.writeByte(1)
		w.writeI64(cv)
	case float64:
		w.writeByte(2)
		w.fail(binary.Write(w.buf, binary.BigEndian, cv))
	case bool:
		w.writeByte(3)
		w.writeBool(cv)
	case string:
		w.writeByte(4)
		w.writeString(cv)
	default:
		w.writeByte(0)
	}
}

// ---------------------------------------------------------------------
// reader
// ---------------------------------------------------------------------

type reader struct {
	buf *bytes.Reader
	err error
}

func (r *reader) fail(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

func (r *reader) readU32() uint32 {
	if r.err != nil {
		return 0
	}
	var v uint32
	r.fail(binary.Read(r.buf, binary.BigEndian, &v))
	return v
}

func (r *reader) readU64() uint64 {
	if r.err != nil {
		return 0
	}
	var v uint64
	r.fail(binary.Read(r.buf, binary.BigEndian, &v))
	return v
}

func (r *reader) readI64() int64 {
	if r.err != nil {
		return 0
	}
	var v int64
	r.fail(binary.Read(r.buf, binary.BigEndian, &v))
	return v
}

func (r *reader) readU16() uint16 {
	if r.err != nil {
		return 0
	}
	var v uint16
	r.fail(binary.Read(r.buf, binary.BigEndian, &v))
	return v
}

func (r *reader) readByte() byte {
	if r.err != nil {
		return 0
	}
	b, err := r.buf.ReadByte()
	r.fail(err)
	return b
}

func (r *reader) readBool() bool { return r.readByte() != 0 }

func (r *reader) readString() string {
	n := r.readU32()
	if r.err != nil || n == 0 {
		return ""
	}
	b := make([]byte, n)
	_, err := r.buf.Read(b)
	r.fail(err)
	return string(b)
}

func (r *reader) readType() types.Type {
	tag := typeTag(r.readByte())
	switch tag {
	case tagPrimitive:
		return &types.Primitive{Kind: types.PrimKind(r.readByte())}
	case tagNamed:
		name := r.readString()
		n := r.readU32()
		args := make([]types.Type, n)
		for i := range args {
			args[i] = r.readType()
		}
		return &types.Named{Name: name, TypeArgs: args}
	case tagGeneric:
		return &types.Generic{Name: r.readString()}
	case tagRef:
		mut := r.readBool()
		return &types.Ref{IsMut: mut, Inner: r.readType()}
	case tagPtr:
		mut := r.readBool()
		return &types.Ptr{IsMut: mut, Inner: r.readType()}
	case tagArray:
		size := r.readU32()
		return &types.Array{Size: int(size), Element: r.readType()}
	case tagSlice:
		return &types.Slice{Element: r.readType()}
	case tagTuple:
		n := r.readU32()
		elems := make([]types.Type, n)
		for i := range elems {
			elems[i] = r.readType()
		}
		return &types.Tuple{Elements: elems}
	case tagFunc:
		n := r.readU32()
		params := make([]types.Type, n)
		for i := range params {
			params[i] = r.readType()
		}
		return &types.Func{Params: params, Return: r.readType()}
	case tagDyn:
		name := r.readString()
		n := r.readU32()
		args := make([]types.Type, n)
		for i := range args {
			args[i] = r.readType()
		}
		return &types.DynBehavior{BehaviorName: name, TypeArgs: args}
	default:
		return types.TUnit
	}
}

func (r *reader) readStructDef() *mir.StructDef {
	s := &mir.StructDef{}
	s.NodeID = r.readU64()
	s.Name = r.readString()
	n := r.readU32()
	for i := uint32(0); i < n; i++ {
		name := r.readString()
		typ := r.readType()
		s.Fields = append(s.Fields, mir.FieldDef{Name: name, Type: typ})
	}
	return s
}

func (r *reader) readEnumDef() *mir.EnumDef {
	e := &mir.EnumDef{}
	e.NodeID = r.readU64()
	e.Name = r.readString()
	e.MaxPayloadWords = int(r.readU32())
	n := r.readU32()
	for i := uint32(0); i < n; i++ {
		name := r.readString()
		tag := int(r.readU32())
		pn := r.readU32()
		var payload []types.Type
		for j := uint32(0); j < pn; j++ {
			payload = append(payload, r.readType())
		}
		e.Variants = append(e.Variants, mir.VariantDef{Name: name, Tag: tag, Payload: payload})
	}
	return e
}

func (r *reader) readFunction() *mir.Function {
	f := mir.NewFunction("", nil)
	f.NodeID = r.readU64()
	f.Name = r.readString()
	f.ReturnType = r.readType()

	pn := r.readU32()
	for i := uint32(0); i < pn; i++ {
		value := mir.ValueID(r.readU64())
		name := r.readString()
		typ := r.readType()
		f.Params = append(f.Params, mir.Param{Value: value, Name: name, Type: typ})
	}

	bn := r.readU32()
	for i := uint32(0); i < bn; i++ {
		id := mir.BlockID(r.readU64())
		label := r.readString()
		blk := &mir.Block{ID: id, Label: label}
		insn := r.readU32()
		for j := uint32(0); j < insn; j++ {
			blk.Instructions = append(blk.Instructions, r.readInstr())
		}
		f.Blocks = append(f.Blocks, blk)
	}
	return f
}

func (r *reader) readInstr() mir.Instr {
	var i mir.Instr
	i.Op = mir.Op(r.readByte())
	i.HasResult = r.readBool()
	i.Result = mir.ValueID(r.readU64())
	i.Type = r.readType()
	i.ConstValue = r.readConstValue()
	i.BinaryOp = r.readString()
	i.UnaryOp = r.readString()

	an := r.readU32()
	for j := uint32(0); j < an; j++ {
		i.Args = append(i.Args, mir.ValueID(r.readU64()))
	}

	tn := r.readU32()
	for j := uint32(0); j < tn; j++ {
		i.Targets = append(i.Targets, mir.BlockID(r.readU64()))
	}

	sn := r.readU32()
	for j := uint32(0); j < sn; j++ {
		i.SwitchCases = append(i.SwitchCases, r.readI64())
	}

	i.Callee = r.readString()
	i.FieldIndex = int(r.readU32())
	i.FieldName = r.readString()

	if r.readBool() {
		i.CastTo = r.readType()
	}

	pn := r.readU32()
	for j := uint32(0); j < pn; j++ {
		block := mir.BlockID(r.readU64())
		value := mir.ValueID(r.readU64())
		i.PhiInputs = append(i.PhiInputs, mir.PhiInput{Block: block, Value: value})
	}

	return i
}

func (r *reader) readConstValue() interface{} {
	switch r.readByte() {
	case 0:
		return nil
	case 1:
		return r.readI64()
	case 2:
		var v float64
		r.fail(binary.Read(r.buf, binary.BigEndian, &v))
		return v
	case 3:
		return r.readBool()
	case 4:
		return r.readString()
	default:
		return nil
	}
}
