package nativeffi

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hivellm/tmlc/internal/codegen"
	"github.com/hivellm/tmlc/internal/mir"
)

func missingBridge(string) (string, error) {
	return "", errors.New("exec: no such file")
}

func sampleModule() *mir.Module {
	fn := mir.NewFunction("noop", nil)
	fn.NewBlock("entry").Append(mir.Instr{Op: mir.OpReturn})
	return &mir.Module{Name: "m", Functions: []*mir.Function{fn}}
}

func TestCapabilitiesMatchCraneliftBridgeLimits(t *testing.T) {
	b := New()
	c := b.Capabilities()
	assert.True(t, c.SupportsMIR)
	assert.False(t, c.SupportsAST)
	assert.False(t, c.SupportsGenerics)
	assert.True(t, c.SupportsCGU)
	assert.Equal(t, 2, c.MaxOptimizationLevel)
}

func TestCompileMIRFailsClearlyWhenBridgeMissing(t *testing.T) {
	b := &Backend{LookPath: missingBridge}
	res := b.CompileMIR(context.Background(), sampleModule(), codegen.Options{})
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "tmlc-clif-bridge")
}

func TestGenerateIRFailsClearlyWhenBridgeMissing(t *testing.T) {
	b := &Backend{LookPath: missingBridge}
	text := b.GenerateIR(context.Background(), sampleModule(), codegen.Options{})
	assert.Contains(t, text, "ERROR")
	assert.Contains(t, text, "tmlc-clif-bridge")
}

func TestCompileASTIsUnsupported(t *testing.T) {
	b := New()
	res := b.CompileAST(context.Background(), nil, nil, codegen.Options{})
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "MIR path")
}

func TestBridgeOptionArgsIncludesOptimizationLevel(t *testing.T) {
	args := bridgeOptionArgs(codegen.Options{OptimizationLevel: 2, TargetTriple: "x86_64-unknown-linux-gnu", DebugInfo: true})
	assert.Contains(t, args, "--opt")
	assert.Contains(t, args, "2")
	assert.Contains(t, args, "--target")
	assert.Contains(t, args, "x86_64-unknown-linux-gnu")
	assert.Contains(t, args, "--debug-info")
}

func TestJoinIndicesFormatsCommaSeparatedList(t *testing.T) {
	assert.Equal(t, "0,2,5", joinIndices([]int{0, 2, 5}))
	assert.Equal(t, "", joinIndices(nil))
}
