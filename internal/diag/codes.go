// Package diag provides the centralized diagnostic-code taxonomy for
// the compiler core: every error the type checker, borrow checker,
// monomorphization engine, and codegen backends raise carries one of
// these codes plus a source Span and optional notes (SPEC_FULL.md §8).
package diag

// Phase identifies which pipeline stage raised a diagnostic.
type Phase string

const (
	PhaseEnv     Phase = "env"
	PhaseType    Phase = "typecheck"
	PhaseBorrow  Phase = "borrow"
	PhaseMono    Phase = "monomorphize"
	PhaseCodegen Phase = "codegen"
	PhaseBug     Phase = "internal"
)

// Error code constants, grouped by phase. Each has a registry entry
// below giving its category and human description.
const (
	// ------------------------------------------------------------
	// Name / import errors (ENV###)
	// ------------------------------------------------------------
	ENV001 = "ENV001" // conflicting redefinition
	ENV002 = "ENV002" // import cycle
	ENV003 = "ENV003" // unknown identifier
	ENV004 = "ENV004" // unknown type
	ENV005 = "ENV005" // module load failure
	ENV006 = "ENV006" // ambiguous overload

	// ------------------------------------------------------------
	// Type checking errors (TC###)
	// ------------------------------------------------------------
	TC001 = "TC001" // type mismatch
	TC002 = "TC002" // arity error
	TC003 = "TC003" // missing method
	TC004 = "TC004" // unresolvable inference / occurs check
	TC005 = "TC005" // unsatisfied where-clause
	TC006 = "TC006" // non-object-safe dyn
	TC007 = "TC007" // missing explicit return on a path
	TC008 = "TC008" // unresolved type variable after checking
	TC009 = "TC009" // control-flow arm type mismatch

	// ------------------------------------------------------------
	// Borrow checking errors (BRW###)
	// ------------------------------------------------------------
	BRW001 = "BRW001" // moved value used
	BRW002 = "BRW002" // conflicting borrow
	BRW003 = "BRW003" // assignment to immutable place
	BRW004 = "BRW004" // use of uninitialized place
	BRW005 = "BRW005" // dangling reference returned
	BRW006 = "BRW006" // partial-move use
	BRW007 = "BRW007" // stored closure does not own its captures

	// ------------------------------------------------------------
	// Monomorphization errors (MONO###)
	// ------------------------------------------------------------
	MONO001 = "MONO001" // recursion limit exceeded
	MONO002 = "MONO002" // placeholder type leaked to codegen
	MONO003 = "MONO003" // duplicate mangled name collision

	// ------------------------------------------------------------
	// Backend errors (CDG###)
	// ------------------------------------------------------------
	CDG001 = "CDG001" // IR emission failure
	CDG002 = "CDG002" // FFI invocation failure
	CDG003 = "CDG003" // object write failure
	CDG004 = "CDG004" // unsupported capability requested

	// ------------------------------------------------------------
	// Internal invariant errors (BUG###) - compiler bugs, never
	// swallowed silently.
	// ------------------------------------------------------------
	BUG001 = "BUG001"
)

// Info describes one error code's phase, category, and default
// human-readable description.
type Info struct {
	Code        string
	Phase       Phase
	Category    string
	Description string
}

// Registry maps every code above to its Info.
var Registry = map[string]Info{
	ENV001: {ENV001, PhaseEnv, "conflict", "Conflicting redefinition"},
	ENV002: {ENV002, PhaseEnv, "import", "Import cycle"},
	ENV003: {ENV003, PhaseEnv, "scope", "Unknown identifier"},
	ENV004: {ENV004, PhaseEnv, "scope", "Unknown type"},
	ENV005: {ENV005, PhaseEnv, "module", "Module load failure"},
	ENV006: {ENV006, PhaseEnv, "overload", "Ambiguous overload"},

	TC001: {TC001, PhaseType, "type", "Type mismatch"},
	TC002: {TC002, PhaseType, "arity", "Arity mismatch"},
	TC003: {TC003, PhaseType, "method", "Missing method"},
	TC004: {TC004, PhaseType, "inference", "Unresolvable inference"},
	TC005: {TC005, PhaseType, "constraint", "Unsatisfied where-clause"},
	TC006: {TC006, PhaseType, "dyn", "Non-object-safe dyn behavior"},
	TC007: {TC007, PhaseType, "control-flow", "Missing return on some path"},
	TC008: {TC008, PhaseType, "inference", "Unresolved type variable"},
	TC009: {TC009, PhaseType, "control-flow", "Arm types do not converge"},

	BRW001: {BRW001, PhaseBorrow, "move", "Use of moved value"},
	BRW002: {BRW002, PhaseBorrow, "borrow", "Conflicting borrow"},
	BRW003: {BRW003, PhaseBorrow, "mutability", "Assignment to immutable place"},
	BRW004: {BRW004, PhaseBorrow, "init", "Use of uninitialized place"},
	BRW005: {BRW005, PhaseBorrow, "lifetime", "Dangling reference returned"},
	BRW006: {BRW006, PhaseBorrow, "move", "Use after partial move"},
	BRW007: {BRW007, PhaseBorrow, "closure", "Closure does not own captures"},

	MONO001: {MONO001, PhaseMono, "recursion", "Monomorphization recursion limit"},
	MONO002: {MONO002, PhaseMono, "placeholder", "Unresolved placeholder leaked to codegen"},
	MONO003: {MONO003, PhaseMono, "mangling", "Duplicate mangled name"},

	CDG001: {CDG001, PhaseCodegen, "emission", "IR emission failure"},
	CDG002: {CDG002, PhaseCodegen, "ffi", "FFI invocation failure"},
	CDG003: {CDG003, PhaseCodegen, "io", "Object write failure"},
	CDG004: {CDG004, PhaseCodegen, "capability", "Unsupported backend capability"},

	BUG001: {BUG001, PhaseBug, "invariant", "Internal invariant violated"},
}

// Lookup returns the Info for a code, or false if unknown.
func Lookup(code string) (Info, bool) {
	info, ok := Registry[code]
	return info, ok
}

// IsPhase reports whether code belongs to the given phase.
func IsPhase(code string, phase Phase) bool {
	info, ok := Lookup(code)
	return ok && info.Phase == phase
}

// phasePriority orders phases for "first error of the highest-priority
// tier" per SPEC_FULL.md §8 (name > type > borrow > mono > backend).
var phasePriority = map[Phase]int{
	PhaseEnv:     0,
	PhaseType:    1,
	PhaseBorrow:  2,
	PhaseMono:    3,
	PhaseCodegen: 4,
	PhaseBug:     -1, // always wins
}

// PriorityOf returns the tier-ordering rank of a diagnostic's phase;
// lower is higher priority. Unknown codes sort last.
func PriorityOf(code string) int {
	info, ok := Lookup(code)
	if !ok {
		return 1 << 30
	}
	if p, ok := phasePriority[info.Phase]; ok {
		if p == -1 {
			return -1
		}
		return p
	}
	return 1 << 30
}
