package checker

import (
	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/diag"
	"github.com/hivellm/tmlc/internal/tenv"
	"github.com/hivellm/tmlc/internal/types"
)

// ResolveTypeExpr converts a parsed TypeExpr into a types.Type,
// resolving named references against env's struct/enum/alias
// registries (SPEC_FULL.md §4.2's annotation resolution).
func ResolveTypeExpr(env *tenv.Env, te ast.TypeExpr) types.Type {
	if te == nil {
		return env.FreshTypeVar()
	}
	switch t := te.(type) {
	case *ast.NamedTypeExpr:
		return resolveNamed(env, t)
	case *ast.GenericTypeExpr:
		return &types.Generic{Name: t.Name}
	case *ast.RefTypeExpr:
		return &types.Ref{IsMut: t.IsMut, Inner: ResolveTypeExpr(env, t.Inner)}
	case *ast.PtrTypeExpr:
		return &types.Ptr{IsMut: t.IsMut, Inner: ResolveTypeExpr(env, t.Inner)}
	case *ast.ArrayTypeExpr:
		return &types.Array{Element: ResolveTypeExpr(env, t.Element), Size: t.Size}
	case *ast.SliceTypeExpr:
		return &types.Slice{Element: ResolveTypeExpr(env, t.Element)}
	case *ast.TupleTypeExpr:
		elems := make([]types.Type, len(t.Elements))
		for i, e := range t.Elements {
			elems[i] = ResolveTypeExpr(env, e)
		}
		return &types.Tuple{Elements: elems}
	case *ast.FuncTypeExpr:
		params := make([]types.Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = ResolveTypeExpr(env, p)
		}
		return &types.Func{Params: params, Return: ResolveTypeExpr(env, t.Return), IsAsync: t.IsAsync}
	case *ast.DynTypeExpr:
		args := make([]types.Type, len(t.TypeArgs))
		for i, a := range t.TypeArgs {
			args[i] = ResolveTypeExpr(env, a)
		}
		return &types.DynBehavior{BehaviorName: t.BehaviorName, TypeArgs: args, IsMut: t.IsMut}
	default:
		return env.FreshTypeVar()
	}
}

func resolveNamed(env *tenv.Env, t *ast.NamedTypeExpr) types.Type {
	if prim, ok := primitiveByName(t.Name); ok {
		return prim
	}
	args := make([]types.Type, len(t.Args))
	for i, a := range t.Args {
		args[i] = ResolveTypeExpr(env, a)
	}
	if alias := env.LookupAlias(t.Name); alias != nil && len(args) == 0 {
		return alias
	}
	return &types.Named{Name: t.Name, TypeArgs: args}
}

var primitivesByName = map[string]*types.Primitive{
	"I8": types.TI8, "I16": types.TI16, "I32": types.TI32, "I64": types.TI64, "I128": types.TI128,
	"U8": types.TU8, "U16": types.TU16, "U32": types.TU32, "U64": types.TU64, "U128": types.TU128,
	"F32": types.TF32, "F64": types.TF64, "Bool": types.TBool, "Char": types.TChar,
	"Str": types.TStr, "Unit": types.TUnit, "Never": types.TNever,
}

func primitiveByName(name string) (*types.Primitive, bool) {
	p, ok := primitivesByName[name]
	return p, ok
}

// suggestName finds the closest candidate to name by Damerau-Levenshtein
// distance, for "unknown identifier, did you mean X?" diagnostics. No
// pack library implements this distance variant (see DESIGN.md); the
// ~20-line table-based algorithm below is the justified stdlib
// fallback.
func suggestName(name string, candidates []string) (string, bool) {
	best := ""
	bestDist := -1
	for _, c := range candidates {
		d := damerauLevenshtein(name, c)
		if bestDist == -1 || d < bestDist {
			best, bestDist = c, d
		}
	}
	if bestDist < 0 || bestDist > 3 {
		return "", false
	}
	return best, true
}

func damerauLevenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	d := make([][]int, la+1)
	for i := range d {
		d[i] = make([]int, lb+1)
		d[i][0] = i
	}
	for j := 0; j <= lb; j++ {
		d[0][j] = j
	}
	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := d[i-1][j] + 1
			ins := d[i][j-1] + 1
			sub := d[i-1][j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				if t := d[i-2][j-2] + cost; t < m {
					m = t
				}
			}
			d[i][j] = m
		}
	}
	return d[la][lb]
}

func unknownIdentDiag(name string, candidates []string, span ast.Span) diag.Diagnostic {
	msg := "unknown identifier " + name
	d := diag.New(diag.ENV003, span, msg)
	if suggestion, ok := suggestName(name, candidates); ok {
		d = d.WithNote("did you mean "+suggestion+"?", span)
	}
	return d
}
