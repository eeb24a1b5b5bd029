// Package pipeline wires the compilation stages — type checking,
// borrow checking, monomorphization, MIR lowering, and code
// generation — into the single driver entry point a CLI or test
// calls once per source file.
//
// Grounded on the teacher's internal/pipeline/pipeline.go: a Config/
// Source/Result triple and a single Run entry point, generalized from
// an accumulate-then-evaluate tree-walking interpreter pipeline into
// an accumulate-then-lower-to-MIR-then-codegen one, since this
// pipeline has no evaluator (SPEC_FULL.md's Non-goals exclude the
// runtime) and instead ends at a codegen.Backend.
package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/borrow"
	"github.com/hivellm/tmlc/internal/checker"
	"github.com/hivellm/tmlc/internal/codegen"
	"github.com/hivellm/tmlc/internal/diag"
	"github.com/hivellm/tmlc/internal/mir"
	"github.com/hivellm/tmlc/internal/mono"
	"github.com/hivellm/tmlc/internal/tenv"
	"github.com/hivellm/tmlc/internal/types"
)

// Config configures one pipeline run.
type Config struct {
	CodegenOptions codegen.Options
	// Workers is how many CGU partitions CompileModule splits
	// Module.Functions into; each partition compiles on its own
	// Backend instance from NewBackend (SPEC_FULL.md §5's per-worker-
	// owns-its-own-backend-instance concurrency model). Workers <= 1
	// compiles everything on a single backend, single-threaded.
	Workers int
	// NewBackend constructs one fresh backend instance per worker.
	NewBackend func() codegen.Backend
}

// Result is the outcome of checking, monomorphizing, and lowering
// one file. Diagnostics is non-empty exactly when checking or borrow
// checking rejected the input; Module is nil in that case.
type Result struct {
	Diagnostics []diag.Diagnostic
	Module      *mir.Module
	StructCount int
	EnumCount   int
	FuncCount   int
}

// CheckAndLower runs type checking, borrow checking, and
// monomorphization-to-fixpoint on file, then lowers every concrete
// function (monomorphic ones directly, generic ones once their
// instantiations are known) to a single mir.Module.
func CheckAndLower(ctx context.Context, env *tenv.Env, file *ast.File) (Result, error) {
	chk := checker.New(env)
	prog, acc := chk.CheckFile(file)
	if acc.HasErrors() {
		return Result{Diagnostics: acc.All()}, nil
	}

	borrowAcc := diag.NewAccumulator()
	bc := borrow.New(borrowAcc)
	for _, fn := range prog.Funcs {
		if fn.Decl.Body == nil {
			continue // extern/abstract: nothing to borrow-check
		}
		bc.CheckFunc(fn.Decl)
	}
	if borrowAcc.HasErrors() {
		return Result{Diagnostics: borrowAcc.All()}, nil
	}

	engine := mono.New(diag.NewAccumulator())
	registerGenericSources(env, file, engine)

	for _, fn := range prog.Funcs {
		if len(fn.Decl.TypeParams) > 0 || fn.Decl.Body == nil {
			continue
		}
		requireCallInstantiations(env, engine, fn.Decl)
	}

	if err := engine.Drain(ctx); err != nil {
		return Result{}, fmt.Errorf("pipeline: monomorphization: %w", err)
	}

	module := &mir.Module{Name: file.ModulePath}
	lowerMonomorphicFuncs(env, prog, module)
	lowerStructInstances(engine, module)
	lowerEnumInstances(engine, module)
	lowerFuncInstances(env, engine, module)

	return Result{
		Module:      module,
		StructCount: len(module.Structs),
		EnumCount:   len(module.Enums),
		FuncCount:   len(module.Functions),
	}, nil
}

func registerGenericSources(env *tenv.Env, file *ast.File, engine *mono.Engine) {
	for _, d := range file.Decls {
		switch decl := d.(type) {
		case *ast.StructDecl:
			if len(decl.TypeParams) == 0 {
				continue
			}
			fields := make(map[string]types.Type, len(decl.Fields))
			for _, f := range decl.Fields {
				fields[f.Name] = checker.ResolveTypeExpr(env, f.Type)
			}
			engine.RegisterStruct(&mono.StructSource{Name: decl.Name, TypeParams: decl.TypeParams, Fields: fields})
		case *ast.EnumDecl:
			if len(decl.TypeParams) == 0 {
				continue
			}
			variants := make(map[string][]types.Type, len(decl.Variants))
			for _, v := range decl.Variants {
				payload := make([]types.Type, len(v.Payload))
				for i, p := range v.Payload {
					payload[i] = checker.ResolveTypeExpr(env, p)
				}
				variants[v.Name] = payload
			}
			engine.RegisterEnum(&mono.EnumSource{Name: decl.Name, TypeParams: decl.TypeParams, Variants: variants})
		case *ast.FuncDecl:
			if len(decl.TypeParams) == 0 {
				continue
			}
			engine.RegisterFunc(&mono.FuncSource{Name: decl.Name, TypeParams: decl.TypeParams, Body: decl})
		}
	}
}

// requireCallInstantiations walks decl's body for calls to generic
// functions whose type arguments can be inferred from the concrete
// argument expressions' statically-known types (parameters and
// literals only — a full expression-type walk belongs to the
// checker, not this discovery pass; a call whose argument type can't
// be determined this way simply isn't queued, and monomorphization
// leaves it unspecialized until a caller that can be resolved reaches
// it).
func requireCallInstantiations(env *tenv.Env, engine *mono.Engine, decl *ast.FuncDecl) {
	paramTypes := make(map[string]types.Type, len(decl.Params))
	for _, p := range decl.Params {
		paramTypes[p.Name] = checker.ResolveTypeExpr(env, p.Type)
	}
	walkCalls(decl.Body, func(call *ast.CallExpr) {
		name, ok := calleeName(call.Callee)
		if !ok {
			return
		}
		argTypes := make([]types.Type, len(call.Args))
		for i, a := range call.Args {
			argTypes[i] = staticType(paramTypes, a)
		}
		sig, err := env.LookupFuncOverload(name, argTypes, call.Position())
		if err != nil || sig == nil || len(sig.TypeParams) == 0 {
			return
		}
		sigma := map[string]types.Type{}
		for i, p := range sig.Params {
			if i < len(argTypes) {
				bindGeneric(p, argTypes[i], sigma)
			}
		}
		ordered := make([]types.Type, len(sig.TypeParams))
		complete := true
		for i, tp := range sig.TypeParams {
			t, ok := sigma[tp]
			if !ok {
				complete = false
				break
			}
			ordered[i] = t
		}
		if complete {
			engine.RequireFuncInstantiation(name, ordered)
		}
	})
}

func bindGeneric(declared, concrete types.Type, sigma map[string]types.Type) {
	if g, ok := declared.(*types.Generic); ok {
		if _, bound := sigma[g.Name]; !bound {
			sigma[g.Name] = concrete
		}
		return
	}
	switch d := declared.(type) {
	case *types.Ref:
		if c, ok := concrete.(*types.Ref); ok {
			bindGeneric(d.Inner, c.Inner, sigma)
		}
	case *types.Named:
		if c, ok := concrete.(*types.Named); ok && len(d.TypeArgs) == len(c.TypeArgs) {
			for i := range d.TypeArgs {
				bindGeneric(d.TypeArgs[i], c.TypeArgs[i], sigma)
			}
		}
	}
}

func staticType(paramTypes map[string]types.Type, e ast.Expr) types.Type {
	switch v := e.(type) {
	case *ast.Ident:
		if t, ok := paramTypes[v.Name]; ok {
			return t
		}
	case *ast.Literal:
		switch v.Kind {
		case ast.LitInt:
			return types.TI32
		case ast.LitFloat:
			return types.TF64
		case ast.LitString:
			return types.TStr
		case ast.LitChar:
			return types.TChar
		case ast.LitBool:
			return types.TBool
		}
	}
	return types.TUnit
}

func calleeName(e ast.Expr) (string, bool) {
	switch v := e.(type) {
	case *ast.Ident:
		return v.Name, true
	case *ast.PathExpr:
		if len(v.Segments) == 0 {
			return "", false
		}
		return v.Segments[len(v.Segments)-1], true
	}
	return "", false
}

// walkCalls visits every CallExpr reachable from e, including nested
// blocks, conditionals, and loops.
func walkCalls(e ast.Expr, visit func(*ast.CallExpr)) {
	if e == nil {
		return
	}
	switch v := e.(type) {
	case *ast.CallExpr:
		visit(v)
		for _, a := range v.Args {
			walkCalls(a, visit)
		}
	case *ast.BinaryExpr:
		walkCalls(v.Left, visit)
		walkCalls(v.Right, visit)
	case *ast.UnaryExpr:
		walkCalls(v.Operand, visit)
	case *ast.BlockExpr:
		for _, s := range v.Statements {
			walkCallsStmt(s, visit)
		}
		walkCalls(v.Tail, visit)
	case *ast.IfExpr:
		walkCalls(v.Cond, visit)
		walkCalls(v.Then, visit)
		walkCalls(v.Else, visit)
	case *ast.WhileExpr:
		walkCalls(v.Cond, visit)
		walkCalls(v.Body, visit)
	case *ast.ReturnExpr:
		walkCalls(v.Value, visit)
	case *ast.FieldExpr:
		walkCalls(v.Receiver, visit)
	case *ast.CastExpr:
		walkCalls(v.Value, visit)
	}
}

func walkCallsStmt(s ast.Stmt, visit func(*ast.CallExpr)) {
	switch v := s.(type) {
	case *ast.LetStmt:
		walkCalls(v.Value, visit)
	case *ast.AssignStmt:
		walkCalls(v.Target, visit)
		walkCalls(v.Value, visit)
	case *ast.ExprStmt:
		walkCalls(v.X, visit)
	}
}

func lowerMonomorphicFuncs(env *tenv.Env, prog *checker.TypedProgram, module *mir.Module) {
	for _, fn := range prog.Funcs {
		if len(fn.Decl.TypeParams) > 0 || fn.Decl.Body == nil {
			continue
		}
		paramTypes := make([]types.Type, len(fn.Decl.Params))
		for i, p := range fn.Decl.Params {
			paramTypes[i] = checker.ResolveTypeExpr(env, p.Type)
		}
		retType := checker.ResolveTypeExpr(env, fn.Decl.Return)
		b := mir.NewBuilder(env)
		module.Functions = append(module.Functions, b.LowerFunction(fn.Decl, paramTypes, retType))
	}
}

func lowerFuncInstances(env *tenv.Env, engine *mono.Engine, module *mir.Module) {
	for _, fi := range engine.FuncInstances() {
		decl, ok := fi.Source.Body.(*ast.FuncDecl)
		if !ok || decl.Body == nil {
			continue
		}
		paramTypes := make([]types.Type, len(decl.Params))
		for i, p := range decl.Params {
			paramTypes[i] = checker.ResolveTypeExpr(env, p.Type).Substitute(fi.Sigma)
		}
		retType := checker.ResolveTypeExpr(env, decl.Return).Substitute(fi.Sigma)
		b := mir.NewBuilder(env)
		fn := b.LowerFunction(decl, paramTypes, retType)
		fn.Name = fi.MangledName
		module.Functions = append(module.Functions, fn)
	}
}

func lowerStructInstances(engine *mono.Engine, module *mir.Module) {
	for _, si := range engine.StructInstances() {
		sd := &mir.StructDef{Name: si.MangledName}
		for _, name := range fieldOrder(si.Source.Fields) {
			sd.Fields = append(sd.Fields, mir.FieldDef{Name: name, Type: si.Fields[name]})
		}
		module.Structs = append(module.Structs, sd)
	}
}

func lowerEnumInstances(engine *mono.Engine, module *mir.Module) {
	for _, ei := range engine.EnumInstances() {
		ed := &mir.EnumDef{Name: ei.MangledName}
		tag := 0
		for _, name := range variantOrder(ei.Source.Variants) {
			payload := ei.Variants[name]
			ed.Variants = append(ed.Variants, mir.VariantDef{Name: name, Tag: tag, Payload: payload})
			if w := payloadWords(payload); w > ed.MaxPayloadWords {
				ed.MaxPayloadWords = w
			}
			tag++
		}
		module.Enums = append(module.Enums, ed)
	}
}

// fieldOrder/variantOrder recover a stable iteration order from the
// source definition's map, since Go map iteration is unordered and
// MIR layouts must be deterministic across builds.
func fieldOrder(fields map[string]types.Type) []string {
	// mono.StructSource doesn't preserve declaration order past the
	// map; sort alphabetically as the one remaining deterministic
	// choice, matching the teacher's Save()'s own fallback to
	// sort.Slice for reproducible output.
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sortStrings(names)
	return names
}

func variantOrder(variants map[string][]types.Type) []string {
	names := make([]string, 0, len(variants))
	for n := range variants {
		names = append(names, n)
	}
	sortStrings(names)
	return names
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func payloadWords(payload []types.Type) int {
	words := 0
	for range payload {
		words++ // every payload slot is a tagged-union i64 word (SPEC_FULL.md §4.6)
	}
	return words
}

// CompileModule partitions module's functions into cfg.Workers CGU
// groups and compiles each on its own Backend instance concurrently,
// merging the emitted IR text in function order.
func CompileModule(ctx context.Context, module *mir.Module, cfg Config) (codegen.Result, error) {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(module.Functions) && len(module.Functions) > 0 {
		workers = len(module.Functions)
	}

	partitions := partitionIndices(len(module.Functions), workers)
	results := make([]codegen.Result, len(partitions))

	g, gctx := errgroup.WithContext(ctx)
	for i, indices := range partitions {
		i, indices := i, indices
		g.Go(func() error {
			backend := cfg.NewBackend()
			res := backend.CompileMIRCGU(gctx, module, indices, cfg.CodegenOptions)
			if !res.Success {
				return fmt.Errorf("cgu %d: %s", i, res.ErrorMessage)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return codegen.Result{}, err
	}

	var merged codegen.Result
	merged.Success = true
	for _, r := range results {
		merged.IRText += r.IRText
		merged.LinkLibs = append(merged.LinkLibs, r.LinkLibs...)
	}
	return merged, nil
}

func partitionIndices(n, workers int) [][]int {
	if n == 0 {
		return nil
	}
	partitions := make([][]int, workers)
	for i := 0; i < n; i++ {
		w := i * workers / n
		partitions[w] = append(partitions[w], i)
	}
	out := make([][]int, 0, workers)
	for _, p := range partitions {
		if len(p) > 0 {
			out = append(out, p)
		}
	}
	return out
}
