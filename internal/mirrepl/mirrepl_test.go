package mirrepl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hivellm/tmlc/internal/mir"
	"github.com/hivellm/tmlc/internal/types"
)

func sampleModule() *mir.Module {
	fn := mir.NewFunction("add", types.TI32)
	fn.Params = append(fn.Params, mir.Param{Value: 0, Name: "a", Type: types.TI32})
	entry := fn.NewBlock("entry")
	entry.Append(mir.Instr{Op: mir.OpReturn, Args: []mir.ValueID{0}, Type: types.TI32})

	return &mir.Module{
		Name: "demo",
		Structs: []*mir.StructDef{
			{Name: "Point", Fields: []mir.FieldDef{{Name: "x", Type: types.TI32}}},
		},
		Enums: []*mir.EnumDef{
			{Name: "Option", MaxPayloadWords: 1, Variants: []mir.VariantDef{{Name: "None", Tag: 0}}},
		},
		Functions: []*mir.Function{fn},
		Consts:    []mir.ConstDef{{Name: "ANSWER", Type: types.TI32, Value: int64(42)}},
	}
}

func TestListPrintsFunctionsStructsAndEnums(t *testing.T) {
	r := New(sampleModule(), "")
	var buf bytes.Buffer
	r.Handle(":list", &buf)

	out := buf.String()
	for _, want := range []string{"add", "Point", "Option"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected :list output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestDumpUnknownFunctionReportsError(t *testing.T) {
	r := New(sampleModule(), "")
	var buf bytes.Buffer
	r.Handle(":dump missing", &buf)
	if !strings.Contains(buf.String(), "no function named missing") {
		t.Errorf("expected error message, got: %s", buf.String())
	}
}

func TestDumpKnownFunctionPrintsTextMIR(t *testing.T) {
	r := New(sampleModule(), "")
	var buf bytes.Buffer
	r.Handle(":dump add", &buf)
	if !strings.Contains(buf.String(), "fn add(") {
		t.Errorf("expected dumped function signature, got: %s", buf.String())
	}
}

func TestBlockPrintsOpcodesForExistingBlock(t *testing.T) {
	r := New(sampleModule(), "")
	var buf bytes.Buffer
	r.Handle(":block add 0", &buf)
	if !strings.Contains(buf.String(), "return") {
		t.Errorf("expected block dump to mention return opcode, got: %s", buf.String())
	}
}

func TestStructAndEnumLookupsReportMissingNames(t *testing.T) {
	r := New(sampleModule(), "")
	var buf bytes.Buffer
	r.Handle(":struct Nope", &buf)
	if !strings.Contains(buf.String(), "no struct named Nope") {
		t.Errorf("expected missing-struct error, got: %s", buf.String())
	}

	buf.Reset()
	r.Handle(":enum Nope", &buf)
	if !strings.Contains(buf.String(), "no enum named Nope") {
		t.Errorf("expected missing-enum error, got: %s", buf.String())
	}
}

func TestConstsPrintsModuleConstants(t *testing.T) {
	r := New(sampleModule(), "")
	var buf bytes.Buffer
	r.Handle(":consts", &buf)
	if !strings.Contains(buf.String(), "ANSWER") {
		t.Errorf("expected ANSWER constant in output, got: %s", buf.String())
	}
}

func TestUnknownCommandReportsError(t *testing.T) {
	r := New(sampleModule(), "")
	var buf bytes.Buffer
	r.Handle(":bogus", &buf)
	if !strings.Contains(buf.String(), "unknown command") {
		t.Errorf("expected unknown-command error, got: %s", buf.String())
	}
}
