package types

import (
	"fmt"
	"strings"
)

// Scheme is a polymorphic type: ∀ TypeParams. Qualified => Type.
// Qualifiers are where-clause constraints carried alongside the type
// so overload/instance resolution can check them at instantiation
// time (SPEC_FULL.md §4.2's where-clause checking).
type Scheme struct {
	TypeParams  []string
	Constraints []Qualifier
	Type        Type
}

// Qualifier is one `(Param, [Behaviors])` where-clause entry.
type Qualifier struct {
	Param     string
	Behaviors []string
}

func (s *Scheme) String() string {
	if len(s.TypeParams) == 0 {
		return s.Type.String()
	}
	return fmt.Sprintf("forall %s. %s", strings.Join(s.TypeParams, " "), s.Type)
}

// Instantiate produces a fresh copy of the scheme's type with every
// quantified parameter replaced by a fresh type variable, returning
// the substitution map used so the caller can re-check qualifiers
// against the chosen type arguments.
func (s *Scheme) Instantiate(ctx *Context) (Type, map[string]Type) {
	sigma := make(map[string]Type, len(s.TypeParams))
	for _, p := range s.TypeParams {
		sigma[p] = ctx.FreshTypeVar()
	}
	return s.Type.Substitute(sigma), sigma
}

// Generalize closes over every Generic type variable in t that is not
// already bound in the enclosing environment, producing a Scheme.
// free is the set of names considered free in the environment (callers
// typically pass tenv.Env.FreeTypeVars()).
func Generalize(t Type, free map[string]bool) *Scheme {
	names := map[string]bool{}
	collectGenericNames(t, names)
	var params []string
	for n := range names {
		if !free[n] {
			params = append(params, n)
		}
	}
	return &Scheme{TypeParams: params, Type: t}
}

func collectGenericNames(t Type, out map[string]bool) {
	switch v := t.(type) {
	case *Generic:
		out[v.Name] = true
	case *TypeVar:
		out[v.String()] = true
	case *Ref:
		collectGenericNames(v.Inner, out)
	case *Ptr:
		collectGenericNames(v.Inner, out)
	case *Array:
		collectGenericNames(v.Element, out)
	case *Slice:
		collectGenericNames(v.Element, out)
	case *Tuple:
		for _, e := range v.Elements {
			collectGenericNames(e, out)
		}
	case *Func:
		for _, p := range v.Params {
			collectGenericNames(p, out)
		}
		collectGenericNames(v.Return, out)
	case *Closure:
		for _, p := range v.Params {
			collectGenericNames(p, out)
		}
		for _, c := range v.Captures {
			collectGenericNames(c.Type, out)
		}
		collectGenericNames(v.Return, out)
	case *Named:
		for _, a := range v.TypeArgs {
			collectGenericNames(a, out)
		}
	case *DynBehavior:
		for _, a := range v.TypeArgs {
			collectGenericNames(a, out)
		}
	}
}
