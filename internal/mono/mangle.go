package mono

import (
	"fmt"
	"strings"

	"github.com/hivellm/tmlc/internal/types"
)

// mangleType maps a concrete Type to the string suffix used to key
// monomorphized instances (SPEC_FULL.md §4.4): primitives by their
// name, Named types as `name__arg1__arg2…`, references as
// `ref_T`/`mutref_T`, arrays as `arr_T_N`.
func mangleType(t types.Type) string {
	switch tt := t.(type) {
	case *types.Primitive:
		return primName(tt.Kind)
	case *types.Named:
		if len(tt.TypeArgs) == 0 {
			return tt.Name
		}
		parts := make([]string, len(tt.TypeArgs))
		for i, a := range tt.TypeArgs {
			parts[i] = mangleType(a)
		}
		return tt.Name + "__" + strings.Join(parts, "__")
	case *types.Ref:
		if tt.IsMut {
			return "mutref_" + mangleType(tt.Inner)
		}
		return "ref_" + mangleType(tt.Inner)
	case *types.Ptr:
		if tt.IsMut {
			return "mutptr_" + mangleType(tt.Inner)
		}
		return "ptr_" + mangleType(tt.Inner)
	case *types.Array:
		return fmt.Sprintf("arr_%s_%d", mangleType(tt.Element), tt.Size)
	case *types.Slice:
		return "slice_" + mangleType(tt.Element)
	case *types.Tuple:
		parts := make([]string, len(tt.Elements))
		for i, e := range tt.Elements {
			parts[i] = mangleType(e)
		}
		return "tuple_" + strings.Join(parts, "_")
	case *types.Func:
		parts := make([]string, len(tt.Params))
		for i, p := range tt.Params {
			parts[i] = mangleType(p)
		}
		return "fn_" + strings.Join(parts, "_") + "_to_" + mangleType(tt.Return)
	case *types.DynBehavior:
		return "dyn_" + tt.BehaviorName
	case *types.Generic:
		// Encountered only while a caller is still resolving; callers
		// must detect this case themselves and defer instead of mangling.
		return "?" + tt.Name
	case *types.TypeVar:
		return "?" + tt.String()
	default:
		return fmt.Sprintf("unknown_%T", t)
	}
}

func primName(k types.PrimKind) string {
	switch k {
	case types.I8:
		return "I8"
	case types.I16:
		return "I16"
	case types.I32:
		return "I32"
	case types.I64:
		return "I64"
	case types.I128:
		return "I128"
	case types.U8:
		return "U8"
	case types.U16:
		return "U16"
	case types.U32:
		return "U32"
	case types.U64:
		return "U64"
	case types.U128:
		return "U128"
	case types.F32:
		return "F32"
	case types.F64:
		return "F64"
	case types.Bool:
		return "Bool"
	case types.Char:
		return "Char"
	case types.Str:
		return "Str"
	case types.Unit:
		return "Unit"
	case types.Never:
		return "Never"
	default:
		return "Prim?"
	}
}

// hasUnresolvedGeneric reports whether t still mentions a Generic
// parameter name or an unbound TypeVar, meaning instantiation must be
// deferred to a placeholder rather than mangled concretely.
func hasUnresolvedGeneric(t types.Type) bool {
	switch tt := t.(type) {
	case *types.Generic, *types.TypeVar:
		return true
	case *types.Named:
		for _, a := range tt.TypeArgs {
			if hasUnresolvedGeneric(a) {
				return true
			}
		}
		return false
	case *types.Ref:
		return hasUnresolvedGeneric(tt.Inner)
	case *types.Ptr:
		return hasUnresolvedGeneric(tt.Inner)
	case *types.Array:
		return hasUnresolvedGeneric(tt.Element)
	case *types.Slice:
		return hasUnresolvedGeneric(tt.Element)
	case *types.Tuple:
		for _, e := range tt.Elements {
			if hasUnresolvedGeneric(e) {
				return true
			}
		}
		return false
	case *types.Func:
		for _, p := range tt.Params {
			if hasUnresolvedGeneric(p) {
				return true
			}
		}
		return hasUnresolvedGeneric(tt.Return)
	default:
		return false
	}
}

// mangleStructName prepends the struct's base name to its mangled type
// arguments, e.g. `Box__I32`.
func mangleStructName(base string, args []types.Type) string {
	return mangleNamed(base, args)
}

// mangleEnumName is identical in shape to mangleStructName; kept as a
// distinct name because SPEC_FULL.md §4.4 names the two separately and
// callers read more clearly this way.
func mangleEnumName(base string, args []types.Type) string {
	return mangleNamed(base, args)
}

// mangleFuncName prepends the function's base name to its mangled
// type arguments, e.g. `id__I32`.
func mangleFuncName(base string, args []types.Type) string {
	return mangleNamed(base, args)
}

func mangleNamed(base string, args []types.Type) string {
	if len(args) == 0 {
		return base
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = mangleType(a)
	}
	return base + "__" + strings.Join(parts, "__")
}
