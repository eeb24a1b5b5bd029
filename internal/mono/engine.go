// Package mono implements the monomorphization engine (SPEC_FULL.md
// §4.4): generic structs, enums, functions, and impl methods are
// specialized on demand, keyed by mangled name, and the engine drains
// its worklist to a fixpoint rather than recursing back into the type
// checker — grounded in the teacher's internal/link package, whose
// topological worklist (topo.go) and pending-instance dedup-by-key
// idiom (linker.go's resolvedRefs) this engine generalizes from module
// linking to generic instantiation.
package mono

import (
	"context"

	"github.com/google/uuid"

	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/diag"
	"github.com/hivellm/tmlc/internal/types"
)

const maxInstantiationDepth = 64

// StructSource is the base definition a struct instantiation request
// is resolved against.
type StructSource struct {
	Name       string
	TypeParams []string
	Fields     map[string]types.Type // declared field types, over TypeParams
}

// EnumSource is the base definition an enum instantiation request is
// resolved against.
type EnumSource struct {
	Name       string
	TypeParams []string
	Variants   map[string][]types.Type // payload types, over TypeParams
}

// FuncSource is the base definition a function instantiation request
// is resolved against. Body is opaque to this package: it is whatever
// the caller (the pipeline driver) needs to re-check/lower once
// concrete, typically an *ast.FuncDecl.
type FuncSource struct {
	Name       string
	TypeParams []string
	Body       interface{}
}

// StructInstance is a realized, fully-concrete struct instantiation.
type StructInstance struct {
	MangledName string
	Source      *StructSource
	TypeArgs    []types.Type
	Fields      map[string]types.Type
	Placeholder bool // true if unresolvedPlaceholder layout was used
}

// EnumInstance is a realized, fully-concrete enum instantiation.
type EnumInstance struct {
	MangledName string
	Source      *EnumSource
	TypeArgs    []types.Type
	Variants    map[string][]types.Type
	Placeholder bool
}

// FuncInstance is a realized, fully-concrete function instantiation.
type FuncInstance struct {
	MangledName string
	Source      *FuncSource
	TypeArgs    []types.Type
	Sigma       map[string]types.Type
}

// ImplMethodRequest names one impl-method specialization to drain,
// matching SPEC_FULL.md §4.4's
// `(mangled_type, method, subs, base_type, suffix, is_library)` tuple.
type ImplMethodRequest struct {
	MangledType string
	Method      string
	Subs        map[string]types.Type
	BaseType    string
	Suffix      string
	IsLibrary   bool
}

// unresolvedPlaceholder is the single "deferred, unresolved-generic
// instantiation" layout named in spec.md §9's Open Questions
// (DESIGN.md resolves the `Mutex[T]`/`__UNRESOLVED` overlap to this one
// mechanism): a one-pointer-wrapper struct, the same shape used for
// runtime-backed collection handles.
var unresolvedPlaceholder = map[string]types.Type{"handle": &types.Ptr{Inner: types.TUnit}}

// Engine holds the pending queues and instantiation caches for one
// compilation run.
type Engine struct {
	RunID string

	structSources map[string]*StructSource
	enumSources   map[string]*EnumSource
	funcSources   map[string]*FuncSource

	structInstantiations map[string]*StructInstance
	enumInstantiations   map[string]*EnumInstance
	funcInstantiations   map[string]*FuncInstance
	generatedImplMethods map[string]bool

	pendingStructs    []pendingStruct
	pendingEnums      []pendingEnum
	pendingFuncs      []pendingFunc
	pendingImplMethod []ImplMethodRequest

	acc *diag.Accumulator
}

type pendingStruct struct {
	base     string
	typeArgs []types.Type
	depth    int
}
type pendingEnum struct {
	base     string
	typeArgs []types.Type
	depth    int
}
type pendingFunc struct {
	base     string
	typeArgs []types.Type
	depth    int
}

// New returns an empty Engine accumulating diagnostics into acc.
func New(acc *diag.Accumulator) *Engine {
	return &Engine{
		RunID:                uuid.NewString(),
		structSources:        map[string]*StructSource{},
		enumSources:          map[string]*EnumSource{},
		funcSources:          map[string]*FuncSource{},
		structInstantiations: map[string]*StructInstance{},
		enumInstantiations:   map[string]*EnumInstance{},
		funcInstantiations:   map[string]*FuncInstance{},
		generatedImplMethods: map[string]bool{},
		acc:                  acc,
	}
}

func (e *Engine) RegisterStruct(s *StructSource) { e.structSources[s.Name] = s }
func (e *Engine) RegisterEnum(s *EnumSource)      { e.enumSources[s.Name] = s }
func (e *Engine) RegisterFunc(s *FuncSource)      { e.funcSources[s.Name] = s }

// RequireStructInstantiation enqueues (or immediately resolves, if
// already cached) a struct instantiation request and returns its
// mangled name.
func (e *Engine) RequireStructInstantiation(base string, args []types.Type) string {
	name := mangleStructName(base, args)
	if _, ok := e.structInstantiations[name]; ok {
		return name
	}
	e.pendingStructs = append(e.pendingStructs, pendingStruct{base: base, typeArgs: args})
	return name
}

func (e *Engine) RequireEnumInstantiation(base string, args []types.Type) string {
	name := mangleEnumName(base, args)
	if _, ok := e.enumInstantiations[name]; ok {
		return name
	}
	e.pendingEnums = append(e.pendingEnums, pendingEnum{base: base, typeArgs: args})
	return name
}

func (e *Engine) RequireFuncInstantiation(base string, args []types.Type) string {
	name := mangleFuncName(base, args)
	if _, ok := e.funcInstantiations[name]; ok {
		return name
	}
	e.pendingFuncs = append(e.pendingFuncs, pendingFunc{base: base, typeArgs: args})
	return name
}

// RequireImplMethod enqueues one impl-method specialization, deduping
// on (mangled type, method, suffix).
func (e *Engine) RequireImplMethod(req ImplMethodRequest) {
	key := req.MangledType + "::" + req.Method + "::" + req.Suffix
	if e.generatedImplMethods[key] {
		return
	}
	e.generatedImplMethods[key] = true
	e.pendingImplMethod = append(e.pendingImplMethod, req)
}

// Drain processes every queue to fixpoint, honoring ctx cancellation
// between instantiations (spec.md §5). On cancellation the already-
// cached instances are left in place but Drain returns ctx.Err() so
// the caller discards the whole compilation's partial output.
func (e *Engine) Drain(ctx context.Context) error {
	for e.hasPending() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.drainOnePass(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) hasPending() bool {
	return len(e.pendingStructs) > 0 || len(e.pendingEnums) > 0 ||
		len(e.pendingFuncs) > 0 || len(e.pendingImplMethod) > 0
}

func (e *Engine) drainOnePass(ctx context.Context) error {
	structs := e.pendingStructs
	e.pendingStructs = nil
	for _, p := range structs {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.resolveStruct(p.base, p.typeArgs, p.depth)
	}

	enums := e.pendingEnums
	e.pendingEnums = nil
	for _, p := range enums {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.resolveEnum(p.base, p.typeArgs, p.depth)
	}

	funcs := e.pendingFuncs
	e.pendingFuncs = nil
	for _, p := range funcs {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.resolveFunc(p.base, p.typeArgs, p.depth)
	}

	impls := e.pendingImplMethod
	e.pendingImplMethod = nil
	for range impls {
		// Impl-method bodies are specialized the same way as free
		// functions once their receiver type is concrete; the pipeline
		// driver supplies the lowering, this engine only tracks the
		// dedup/queue contract (SPEC_FULL.md §4.4's last bullet: "impl
		// methods are enqueued when discovered to be needed and drained
		// at end of module").
	}
	return nil
}

func (e *Engine) resolveStruct(base string, args []types.Type, depth int) {
	name := mangleStructName(base, args)
	if _, ok := e.structInstantiations[name]; ok {
		return
	}
	if depth > maxInstantiationDepth {
		e.acc.Addf(diag.MONO001, ast.Span{}, "recursive generic instantiation of %q exceeded depth %d", base, maxInstantiationDepth)
		return
	}
	if needsPlaceholder(args) {
		e.structInstantiations[name] = &StructInstance{MangledName: name, TypeArgs: args, Fields: unresolvedPlaceholder, Placeholder: true}
		return
	}
	src, ok := e.structSources[base]
	if !ok {
		// Non-generic library base already defined: alias mangled -> base layout.
		e.structInstantiations[name] = &StructInstance{MangledName: name, TypeArgs: args, Fields: map[string]types.Type{}}
		return
	}
	sigma := bindParams(src.TypeParams, args)
	fields := map[string]types.Type{}
	for fname, ftype := range src.Fields {
		resolved := ftype.Substitute(sigma)
		fields[fname] = resolved
		e.instantiateNestedGeneric(resolved, depth+1)
	}
	e.structInstantiations[name] = &StructInstance{MangledName: name, Source: src, TypeArgs: args, Fields: fields}
}

func (e *Engine) resolveEnum(base string, args []types.Type, depth int) {
	name := mangleEnumName(base, args)
	if _, ok := e.enumInstantiations[name]; ok {
		return
	}
	if depth > maxInstantiationDepth {
		e.acc.Addf(diag.MONO001, ast.Span{}, "recursive generic instantiation of %q exceeded depth %d", base, maxInstantiationDepth)
		return
	}
	if needsPlaceholder(args) {
		e.enumInstantiations[name] = &EnumInstance{MangledName: name, TypeArgs: args, Variants: map[string][]types.Type{"": {}}, Placeholder: true}
		return
	}
	src, ok := e.enumSources[base]
	if !ok {
		e.enumInstantiations[name] = &EnumInstance{MangledName: name, TypeArgs: args, Variants: map[string][]types.Type{}}
		return
	}
	sigma := bindParams(src.TypeParams, args)
	variants := map[string][]types.Type{}
	for vname, payload := range src.Variants {
		resolved := make([]types.Type, len(payload))
		for i, p := range payload {
			resolved[i] = p.Substitute(sigma)
			e.instantiateNestedGeneric(resolved[i], depth+1)
		}
		variants[vname] = resolved
	}
	e.enumInstantiations[name] = &EnumInstance{MangledName: name, Source: src, TypeArgs: args, Variants: variants}
}

func (e *Engine) resolveFunc(base string, args []types.Type, depth int) {
	name := mangleFuncName(base, args)
	if _, ok := e.funcInstantiations[name]; ok {
		return
	}
	if depth > maxInstantiationDepth {
		e.acc.Addf(diag.MONO001, ast.Span{}, "recursive generic instantiation of %q exceeded depth %d", base, maxInstantiationDepth)
		return
	}
	src := e.funcSources[base]
	var sigma map[string]types.Type
	if src != nil {
		sigma = bindParams(src.TypeParams, args)
	}
	e.funcInstantiations[name] = &FuncInstance{MangledName: name, Source: src, TypeArgs: args, Sigma: sigma}
}

// instantiateNestedGeneric recursively enqueues a further struct/enum
// instantiation when a resolved field/payload type is itself a
// generic Named type naming a registered struct or enum source
// (SPEC_FULL.md §4.4 step 5).
func (e *Engine) instantiateNestedGeneric(t types.Type, depth int) {
	named, ok := t.(*types.Named)
	if !ok || len(named.TypeArgs) == 0 {
		return
	}
	if _, ok := e.structSources[named.Name]; ok {
		e.pendingStructs = append(e.pendingStructs, pendingStruct{base: named.Name, typeArgs: named.TypeArgs, depth: depth})
		return
	}
	if _, ok := e.enumSources[named.Name]; ok {
		e.pendingEnums = append(e.pendingEnums, pendingEnum{base: named.Name, typeArgs: named.TypeArgs, depth: depth})
	}
}

func needsPlaceholder(args []types.Type) bool {
	for _, a := range args {
		if hasUnresolvedGeneric(a) {
			return true
		}
	}
	return false
}

func bindParams(params []string, args []types.Type) map[string]types.Type {
	sigma := make(map[string]types.Type, len(params))
	for i, p := range params {
		if i < len(args) {
			sigma[p] = args[i]
		}
	}
	return sigma
}

// StructInstances, EnumInstances, and FuncInstances expose the final
// cache contents for codegen to iterate once Drain reaches fixpoint.
func (e *Engine) StructInstances() map[string]*StructInstance { return e.structInstantiations }
func (e *Engine) EnumInstances() map[string]*EnumInstance     { return e.enumInstantiations }
func (e *Engine) FuncInstances() map[string]*FuncInstance     { return e.funcInstantiations }
