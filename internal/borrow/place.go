// Package borrow implements the borrow checker (SPEC_FULL.md §4.3): a
// place/projection model over the typed AST, a two-phase borrow state
// machine with non-lexical lifetimes, partial-move tracking, dangling-
// reference detection, and closure capture analysis.
package borrow

import (
	"fmt"
	"strings"

	"github.com/hivellm/tmlc/internal/ast"
)

// ProjKind distinguishes the ways a place can be projected from its
// base.
type ProjKind int

const (
	ProjField ProjKind = iota
	ProjIndex
	ProjDeref
)

// Projection is one step of a place path: `.field`, `[_]`, or `*`.
type Projection struct {
	Kind  ProjKind
	Field string // set when Kind == ProjField
}

// Place is a path rooted at a local variable, e.g. `x.y[0]` or `*p`.
// Two places with equal Key() name the same storage location.
type Place struct {
	Base        string
	Projections []Projection
}

// Key returns a canonical string identifying this place, used for map
// lookups in the borrow state (SPEC_FULL.md §4.3's place equality).
func (p Place) Key() string {
	var b strings.Builder
	b.WriteString(p.Base)
	for _, proj := range p.Projections {
		switch proj.Kind {
		case ProjField:
			b.WriteByte('.')
			b.WriteString(proj.Field)
		case ProjIndex:
			b.WriteString("[_]")
		case ProjDeref:
			b.WriteByte('*')
		}
	}
	return b.String()
}

func (p Place) String() string { return p.Key() }

// IsPrefixOf reports whether p is a path prefix of other — e.g. `x` is
// a prefix of `x.y`, which matters for conflict detection: borrowing
// `x.y` conflicts with a full move of `x`, and vice versa.
func (p Place) IsPrefixOf(other Place) bool {
	if p.Base != other.Base || len(p.Projections) > len(other.Projections) {
		return false
	}
	for i, proj := range p.Projections {
		if proj != other.Projections[i] {
			return false
		}
	}
	return true
}

// placeFromExpr extracts the Place a use-site expression refers to, or
// false if e is not place-like (e.g. a literal or a call result), in
// which case the borrow checker only needs to recurse into its
// subexpressions rather than track it as a location.
func placeFromExpr(e ast.Expr) (Place, bool) {
	switch ex := e.(type) {
	case *ast.Ident:
		return Place{Base: ex.Name}, true
	case *ast.FieldExpr:
		base, ok := placeFromExpr(ex.Receiver)
		if !ok {
			return Place{}, false
		}
		base.Projections = append(append([]Projection{}, base.Projections...), Projection{Kind: ProjField, Field: ex.Field})
		return base, true
	case *ast.IndexExpr:
		base, ok := placeFromExpr(ex.Receiver)
		if !ok {
			return Place{}, false
		}
		base.Projections = append(append([]Projection{}, base.Projections...), Projection{Kind: ProjIndex})
		return base, true
	case *ast.UnaryExpr:
		if ex.Op != "*" {
			return Place{}, false
		}
		base, ok := placeFromExpr(ex.Operand)
		if !ok {
			return Place{}, false
		}
		base.Projections = append(append([]Projection{}, base.Projections...), Projection{Kind: ProjDeref})
		return base, true
	default:
		return Place{}, false
	}
}

func mustPlace(e ast.Expr) Place {
	p, ok := placeFromExpr(e)
	if !ok {
		panic(fmt.Sprintf("borrow: %T is not place-like", e))
	}
	return p
}
