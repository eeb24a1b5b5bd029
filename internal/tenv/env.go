package tenv

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/diag"
	"github.com/hivellm/tmlc/internal/types"
)

type implKey struct {
	typeKey  string
	behavior string
}

// Env is the central repository for every named type, behavior,
// function overload set, alias, import, and built-in, plus the current
// local scope chain and the active Unifier (SPEC_FULL.md §4.1).
type Env struct {
	RunID string // stable per-Env identity, for diagnostics/cache keys

	ctx *types.Context

	structs   map[string]*StructDef
	enums     map[string]*EnumDef
	behaviors map[string]*BehaviorDef
	funcs     map[string][]*FuncSig
	aliases   map[string]types.Type

	impls          map[implKey]bool
	superBehaviors map[string][]string // behavior -> direct supers

	modules map[string]*Module
	imports []ImportedSymbol

	scope *Scope
	*Unifier

	currentModule string
	abortOnModuleError bool
}

// New returns a fresh Env with built-ins registered, per
// SPEC_FULL.md §4.1's "Built-ins are registered at construction".
func New() *Env {
	ctx := types.NewContext()
	env := &Env{
		RunID:          uuid.NewString(),
		ctx:            ctx,
		structs:        map[string]*StructDef{},
		enums:          map[string]*EnumDef{},
		behaviors:      map[string]*BehaviorDef{},
		funcs:          map[string][]*FuncSig{},
		aliases:        map[string]types.Type{},
		impls:          map[implKey]bool{},
		superBehaviors: map[string][]string{},
		modules:        map[string]*Module{},
		scope:          NewRootScope(),
		Unifier:        newUnifier(ctx),
		currentModule:  currentModuleFromEnv(),
	}
	registerBuiltins(env)
	return env
}

// SetAbortOnModuleError toggles whether a module load failure is fatal
// (SPEC_FULL.md §4.1's "Module load failure is fatal iff
// abort_on_module_error is set").
func (e *Env) SetAbortOnModuleError(v bool) { e.abortOnModuleError = v }

// Context returns the Env's fresh-id allocator, shared by the checker
// and borrow checker for this translation unit.
func (e *Env) Context() *types.Context { return e.ctx }

// ---------------------------------------------------------------------
// Struct / enum / behavior / alias definition & lookup
// ---------------------------------------------------------------------

func typeKeyName(typ types.Type) string { return typ.String() }

// DefineStruct registers a struct definition, idempotent for an
// identical redefinition and erroring on a conflicting one.
func (e *Env) DefineStruct(d *StructDef) error {
	if existing, ok := e.structs[d.Name]; ok {
		if !structEqual(existing, d) {
			return diag.New(diag.ENV001, d.Span, fmt.Sprintf("conflicting redefinition of struct %q", d.Name))
		}
		return nil
	}
	e.structs[d.Name] = d
	return nil
}

func structEqual(a, b *StructDef) bool {
	if a.Name != b.Name || len(a.TypeParams) != len(b.TypeParams) || len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i].Name != b.Fields[i].Name || !a.Fields[i].Type.Equals(b.Fields[i].Type) {
			return false
		}
	}
	return true
}

// LookupStruct returns the struct definition, or nil if unregistered.
func (e *Env) LookupStruct(name string) *StructDef { return e.structs[name] }

// DefineEnum registers an enum definition.
func (e *Env) DefineEnum(d *EnumDef) error {
	if existing, ok := e.enums[d.Name]; ok {
		if !enumEqual(existing, d) {
			return diag.New(diag.ENV001, d.Span, fmt.Sprintf("conflicting redefinition of enum %q", d.Name))
		}
		return nil
	}
	e.enums[d.Name] = d
	return nil
}

func enumEqual(a, b *EnumDef) bool {
	if a.Name != b.Name || len(a.Variants) != len(b.Variants) {
		return false
	}
	for i := range a.Variants {
		if a.Variants[i].Name != b.Variants[i].Name || len(a.Variants[i].Payload) != len(b.Variants[i].Payload) {
			return false
		}
	}
	return true
}

// LookupEnum returns the enum definition, or nil if unregistered.
func (e *Env) LookupEnum(name string) *EnumDef { return e.enums[name] }

// DefineBehavior registers a behavior definition and its super-behavior
// edges for transitivity.
func (e *Env) DefineBehavior(d *BehaviorDef) error {
	if existing, ok := e.behaviors[d.Name]; ok {
		if existing.Name != d.Name {
			return diag.New(diag.ENV001, d.Span, fmt.Sprintf("conflicting redefinition of behavior %q", d.Name))
		}
		return nil
	}
	e.behaviors[d.Name] = d
	e.superBehaviors[d.Name] = d.SuperBehaviors
	return nil
}

// LookupBehavior returns the behavior definition, or nil if
// unregistered.
func (e *Env) LookupBehavior(name string) *BehaviorDef { return e.behaviors[name] }

// DefineAlias registers a type alias.
func (e *Env) DefineAlias(name string, t types.Type) error {
	if existing, ok := e.aliases[name]; ok && !existing.Equals(t) {
		return diag.New(diag.ENV001, ast.Span{}, fmt.Sprintf("conflicting redefinition of alias %q", name))
	}
	e.aliases[name] = t
	return nil
}

// LookupAlias returns the alias target, or nil if unregistered.
func (e *Env) LookupAlias(name string) types.Type { return e.aliases[name] }

// BindSelfAlias temporarily binds the `Self` alias to target for the
// duration of checking one impl block's methods, returning a restore
// function the caller must invoke when done. Unlike DefineAlias this
// never conflict-checks, since every impl block rebinds Self to its own
// target type.
func (e *Env) BindSelfAlias(target types.Type) (restore func()) {
	prev, had := e.aliases["Self"]
	e.aliases["Self"] = target
	return func() {
		if had {
			e.aliases["Self"] = prev
		} else {
			delete(e.aliases, "Self")
		}
	}
}

// ---------------------------------------------------------------------
// Behavior implementation registry
// ---------------------------------------------------------------------

// RegisterImpl records that typ implements behavior.
func (e *Env) RegisterImpl(typ types.Type, behavior string) {
	e.impls[implKey{typeKey: typeKeyName(typ), behavior: behavior}] = true
}

// TypeImplements reports whether typ implements behavior, transitively
// over super-behaviors: typ implements `behavior` either directly, or
// by directly implementing some behavior that has `behavior` among its
// (transitive) super-behaviors (SPEC_FULL.md §4.1).
func (e *Env) TypeImplements(typ types.Type, behavior string) bool {
	key := typeKeyName(typ)
	for implKey, ok := range e.impls {
		if !ok || implKey.typeKey != key {
			continue
		}
		if behaviorReaches(e.superBehaviors, implKey.behavior, behavior, map[string]bool{}) {
			return true
		}
	}
	return false
}

// behaviorReaches reports whether target is from, or a (transitive)
// super-behavior of from.
func behaviorReaches(supers map[string][]string, from, target string, visited map[string]bool) bool {
	if from == target {
		return true
	}
	if visited[from] {
		return false
	}
	visited[from] = true
	for _, s := range supers[from] {
		if behaviorReaches(supers, s, target, visited) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------
// Scope management
// ---------------------------------------------------------------------

// PushScope enters a new nested scope.
func (e *Env) PushScope() { e.scope = PushScope(e.scope) }

// PopScope leaves the current scope.
func (e *Env) PopScope() { e.scope = PopScope(e.scope) }

// Define binds a name in the current scope.
func (e *Env) Define(name string, typ interface{}, mutable bool, span ast.Span) {
	e.scope.Define(name, typ, mutable, span)
}

// Lookup resolves a name through the local scope chain only (not
// functions/types/imports — see checker.resolveIdentifier for the full
// fallback chain described in SPEC_FULL.md §4.2).
func (e *Env) Lookup(name string) *Symbol { return e.scope.Lookup(name) }

// AllScopeNames returns every locally visible name, for suggestion
// ranking.
func (e *Env) AllScopeNames() []string { return e.scope.AllNames() }

// FreeTypeVars returns the set of Generic/TypeVar names considered
// "free" (bound outside any function currently being generalized) —
// here, simply every TypeVar name alive in the Unifier's substitution
// map, since tenv does not track per-function environments itself. The
// checker does not call it.
func (e *Env) FreeTypeVars() map[string]bool {
	free := map[string]bool{}
	for k := range e.Unifier.subs {
		free[k] = true
	}
	return free
}
