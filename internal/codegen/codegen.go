// Package codegen defines the backend contract every code generator
// implements (SPEC_FULL.md §4.6): a uniform capability/options/result
// shape two very different backends — a reference text-IR emitter and
// a Cranelift-flavored FFI bridge — both satisfy.
package codegen

import (
	"context"
	"fmt"

	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/mir"
	"github.com/hivellm/tmlc/internal/tenv"
)

// Capabilities describes what a backend can do, so the driver can
// reject a request (missing generics support, no debug info) before
// paying for a doomed compile attempt.
type Capabilities struct {
	SupportsMIR        bool
	SupportsAST        bool
	SupportsGenerics   bool
	SupportsDebugInfo  bool
	SupportsCoverage   bool
	SupportsCGU        bool
	MaxOptimizationLevel int
}

// Options configures one compile_mir/compile_ast/generate_ir call.
type Options struct {
	OptimizationLevel int // 0..=3
	DebugInfo         bool
	CoverageEnabled   bool
	EmitComments      bool
	DLLExport         bool
	GenerateExeMain   bool
	TargetTriple      string
}

// Result is the outcome of one codegen invocation.
type Result struct {
	Success        bool
	IRText         string
	ObjectFilePath string
	LinkLibs       []string
	ErrorMessage   string
}

// Backend is the contract every code generator implements
// (SPEC_FULL.md §4.6).
type Backend interface {
	Name() string
	Capabilities() Capabilities

	// CompileMIR compiles an entire MIR module in one shot.
	CompileMIR(ctx context.Context, module *mir.Module, opts Options) Result

	// CompileMIRCGU compiles only the functions named by funcIndices,
	// for a driver partitioning a module across worker threads; each
	// worker calls this with a disjoint slice and owns its own Backend
	// instance (SPEC_FULL.md §5's concurrency model).
	CompileMIRCGU(ctx context.Context, module *mir.Module, funcIndices []int, opts Options) Result

	// CompileAST compiles directly from the typed AST for backends
	// that need information MIR erases (closures, generics, imports).
	CompileAST(ctx context.Context, file *ast.File, env *tenv.Env, opts Options) Result

	// GenerateIR renders textual target IR without emitting an object
	// file, for inspection/diagnostics.
	GenerateIR(ctx context.Context, module *mir.Module, opts Options) string
}

// ErrResult builds a failed Result with a formatted error message, for
// backends that want the same shape New/WithNote gives diag.Diagnostic.
func ErrResult(format string, args ...interface{}) Result {
	return Result{Success: false, ErrorMessage: fmt.Sprintf(format, args...)}
}
