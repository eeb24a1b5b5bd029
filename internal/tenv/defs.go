// Package tenv implements the type environment (SPEC_FULL.md §4.1):
// the central repository of struct/enum/behavior/func/alias
// definitions, impl registrations, scoped symbol tables, the unifier,
// and the module/import registry.
package tenv

import (
	"os"

	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/types"
)

// StructDef is a registered struct definition.
type StructDef struct {
	Name        string
	TypeParams  []string
	ConstParams []string
	Fields      []FieldDef
	Span        ast.Span
}

// FieldDef is one struct field.
type FieldDef struct {
	Name string
	Type types.Type
}

// EnumDef is a registered enum definition.
type EnumDef struct {
	Name        string
	TypeParams  []string
	ConstParams []string
	Variants    []VariantDef
	Span        ast.Span
}

// VariantDef is one enum variant with its ordered payload types.
type VariantDef struct {
	Name    string
	Payload []types.Type
}

// MethodSig is a behavior method signature (required, or default if
// DefaultBody is non-nil).
type MethodSig struct {
	Name        string
	TypeParams  []string
	Params      []types.Type
	Return      types.Type
	DefaultBody ast.Expr // nil if required (no default implementation)
}

// AssociatedTypeDecl is a behavior's associated type slot.
type AssociatedTypeDecl struct {
	Name    string
	Bounds  []string
	Default types.Type // nil if none
}

// BehaviorDef is a registered behavior (trait) definition.
type BehaviorDef struct {
	Name            string
	TypeParams      []string
	AssociatedTypes []AssociatedTypeDecl
	Methods         []MethodSig
	SuperBehaviors  []string
	Span            ast.Span
}

// FFIMetadata carries extern linkage information for a FuncSig,
// populated from @extern/@link decorators per SPEC_FULL.md §10.
type FFIMetadata struct {
	ExternABI  string
	ExternName string
	LinkLibs   []string
}

// Qualifier is a `(param, [behaviors])` where-clause entry.
type Qualifier struct {
	Param     string
	Behaviors []string
}

// FuncSig is one overload of a function or method.
type FuncSig struct {
	Name        string
	Params      []types.Type
	Return      types.Type
	TypeParams  []string
	ConstParams []string
	Where       []Qualifier
	Stability   string // "stable", "experimental", ...
	FFI         FFIMetadata
	IsAsync     bool
	IsLowlevel  bool
	Span        ast.Span
}

// Scheme converts this FuncSig into a types.Scheme suitable for
// Unifier.Instantiate, carrying the where-clause as qualifiers.
func (f *FuncSig) Scheme() *types.Scheme {
	quals := make([]types.Qualifier, len(f.Where))
	for i, w := range f.Where {
		quals[i] = types.Qualifier{Param: w.Param, Behaviors: w.Behaviors}
	}
	return &types.Scheme{
		TypeParams:  f.TypeParams,
		Constraints: quals,
		Type:        &types.Func{Params: f.Params, Return: f.Return, IsAsync: f.IsAsync},
	}
}

// ImportedSymbol records one `import module (symbol as alias)` entry.
type ImportedSymbol struct {
	ModulePath string
	SymbolName string
	Alias      string
}

// Module is a single compiled unit's exported surface.
type Module struct {
	Path      string
	Funcs     map[string][]*FuncSig
	Structs   map[string]*StructDef
	Enums     map[string]*EnumDef
	Behaviors map[string]*BehaviorDef
	Constants map[string]types.Type
	Internal  map[string]*StructDef // internal (non-exported) structs
}

func newModule(path string) *Module {
	return &Module{
		Path:      path,
		Funcs:     map[string][]*FuncSig{},
		Structs:   map[string]*StructDef{},
		Enums:     map[string]*EnumDef{},
		Behaviors: map[string]*BehaviorDef{},
		Constants: map[string]types.Type{},
		Internal:  map[string]*StructDef{},
	}
}

// moduleEnvVar is read once at Env construction per SPEC_FULL.md §7
// ("TML_MODULE marks translation-unit identity for symbol prefixing").
const moduleEnvVar = "TML_MODULE"

func currentModuleFromEnv() string {
	return os.Getenv(moduleEnvVar)
}
