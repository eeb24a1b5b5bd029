// Package nativeffi is a codegen.Backend that shells out to an
// external Cranelift bridge process instead of linking one in. The
// original split a C API (CraneliftResult/CraneliftOptions, an "owned
// result with destructor" shape) across a process boundary into a
// bundled native library; Go has no equivalent of that C ABI without
// cgo, so this backend gets the same effect over a subprocess: MIR
// goes out as bytes, a result comes back as bytes, and there is
// nothing to free because the OS reclaims the child's memory when it
// exits.
//
// Grounded on original_source/compiler/include/backend/cranelift_bridge.h
// (the C API surface) and
// original_source/compiler/src/codegen/cranelift/cranelift_codegen_backend.cpp
// (serialize → call bridge → write object file to a per-invocation temp
// path), rewritten from an in-process FFI call into an os/exec
// subprocess call against a helper binary named tmlc-clif-bridge.
package nativeffi

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/codegen"
	"github.com/hivellm/tmlc/internal/mir"
	"github.com/hivellm/tmlc/internal/mirio"
	"github.com/hivellm/tmlc/internal/tenv"
)

// bridgeExe is the helper process this backend shells out to. It
// reads a serialized MIR module from a file, compiles it with
// Cranelift, and writes either an object file or Cranelift IR text
// depending on the subcommand, matching the three entry points
// cranelift_bridge.h exposes.
const bridgeExe = "tmlc-clif-bridge"

// Backend bridges codegen.Backend to an external Cranelift process.
type Backend struct {
	// LookPath overrides exec.LookPath, for tests that fake the
	// bridge's presence/absence without touching $PATH.
	LookPath func(string) (string, error)
}

// New returns a Cranelift bridge backend.
func New() *Backend { return &Backend{LookPath: exec.LookPath} }

func (b *Backend) Name() string { return "cranelift" }

func (b *Backend) Capabilities() codegen.Capabilities {
	return codegen.Capabilities{
		SupportsMIR:          true,
		SupportsAST:          false,
		SupportsGenerics:     false,
		SupportsDebugInfo:    false,
		SupportsCoverage:     false,
		SupportsCGU:          true,
		MaxOptimizationLevel: 2,
	}
}

func (b *Backend) lookPath() func(string) (string, error) {
	if b.LookPath != nil {
		return b.LookPath
	}
	return exec.LookPath
}

func (b *Backend) CompileMIR(ctx context.Context, module *mir.Module, opts codegen.Options) codegen.Result {
	indices := make([]int, len(module.Functions))
	for i := range indices {
		indices[i] = i
	}
	return b.CompileMIRCGU(ctx, module, indices, opts)
}

func (b *Backend) CompileMIRCGU(ctx context.Context, module *mir.Module, funcIndices []int, opts codegen.Options) codegen.Result {
	path, err := b.lookPath()(bridgeExe)
	if err != nil {
		return codegen.ErrResult("cranelift: %s not found on PATH: %v", bridgeExe, err)
	}

	mirPath, cleanup, err := writeMIRTempFile(module)
	if err != nil {
		return codegen.ErrResult("cranelift: %v", err)
	}
	defer cleanup()

	objPath := filepath.Join(os.TempDir(), "tml_cranelift", "output_"+uuid.NewString()+".obj")
	if err := os.MkdirAll(filepath.Dir(objPath), 0o755); err != nil {
		return codegen.ErrResult("cranelift: creating temp dir: %v", err)
	}

	args := []string{"compile-mir", "--mir", mirPath, "--out", objPath}
	args = append(args, bridgeOptionArgs(opts)...)
	args = append(args, "--funcs", joinIndices(funcIndices))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return codegen.ErrResult("cranelift: compile_mir failed: %v: %s", err, stderr.String())
	}

	return codegen.Result{Success: true, ObjectFilePath: objPath}
}

func (b *Backend) CompileAST(ctx context.Context, file *ast.File, env *tenv.Env, opts codegen.Options) codegen.Result {
	return codegen.ErrResult("cranelift: compile_ast is not supported; use the MIR path")
}

func (b *Backend) GenerateIR(ctx context.Context, module *mir.Module, opts codegen.Options) string {
	path, err := b.lookPath()(bridgeExe)
	if err != nil {
		return fmt.Sprintf("; ERROR: %s not found on PATH: %v", bridgeExe, err)
	}

	mirPath, cleanup, err := writeMIRTempFile(module)
	if err != nil {
		return fmt.Sprintf("; ERROR: %v", err)
	}
	defer cleanup()

	args := []string{"generate-ir", "--mir", mirPath}
	args = append(args, bridgeOptionArgs(opts)...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Sprintf("; ERROR: generate_ir failed: %v: %s", err, stderr.String())
	}
	return stdout.String()
}

func writeMIRTempFile(module *mir.Module) (path string, cleanup func(), err error) {
	data, err := mirio.WriteModule(module)
	if err != nil {
		return "", nil, fmt.Errorf("serializing MIR: %w", err)
	}
	dir := filepath.Join(os.TempDir(), "tml_cranelift")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("creating temp dir: %w", err)
	}
	f := filepath.Join(dir, "mir_"+uuid.NewString()+".bin")
	if err := os.WriteFile(f, data, 0o644); err != nil {
		return "", nil, fmt.Errorf("writing MIR temp file: %w", err)
	}
	return f, func() { _ = os.Remove(f) }, nil
}

func bridgeOptionArgs(opts codegen.Options) []string {
	args := []string{"--opt", strconv.Itoa(opts.OptimizationLevel)}
	if opts.TargetTriple != "" {
		args = append(args, "--target", opts.TargetTriple)
	}
	if opts.DebugInfo {
		args = append(args, "--debug-info")
	}
	if opts.DLLExport {
		args = append(args, "--dll-export")
	}
	return args
}

func joinIndices(indices []int) string {
	var buf bytes.Buffer
	for i, idx := range indices {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Itoa(idx))
	}
	return buf.String()
}
