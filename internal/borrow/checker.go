package borrow

import (
	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/diag"
)

// scope is a borrow-state frame, chained like tenv.Scope, so nested
// blocks see (and can shadow) their enclosing function's places.
type scope struct {
	states map[string]*placeState
	mut    map[string]bool // declared mutability, by base name
	copy   map[string]bool // Copy-by-value places that never move
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{states: map[string]*placeState{}, mut: map[string]bool{}, copy: map[string]bool{}, parent: parent}
}

func (s *scope) lookup(base string) (*placeState, *scope) {
	for cur := s; cur != nil; cur = cur.parent {
		if st, ok := cur.states[base]; ok {
			return st, cur
		}
	}
	return nil, nil
}

func (s *scope) declare(base string, mutable, isCopy bool) *placeState {
	st := newPlaceState()
	st.initialized = true
	s.states[base] = st
	s.mut[base] = mutable
	s.copy[base] = isCopy
	return st
}

func (s *scope) isMutable(base string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.mut[base]; ok {
			return v
		}
	}
	return false
}

func (s *scope) isCopy(base string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.copy[base]; ok {
			return v
		}
	}
	return false
}

// Checker walks one function body at a time, threading a scope chain
// of place states and a monotonic program point counter for NLL.
type Checker struct {
	acc   *diag.Accumulator
	point int

	// lastUse maps a reference binding's name to the final program
	// point it is read at anywhere in the current function, precomputed
	// once per CheckFunc by computeLastUsePoints.
	lastUse map[string]int
	// refBindings maps a `let name = ref ...`/`let name = mut ref ...`
	// binding's name to the outstandingBorrow it introduced, so the
	// borrow's lastUse can be seeded from c.lastUse at creation time.
	refBindings map[string]*outstandingBorrow
}

// New returns a borrow Checker accumulating diagnostics into acc.
func New(acc *diag.Accumulator) *Checker {
	return &Checker{acc: acc}
}

// CheckFunc runs the borrow checker over one function's body. Extern
// or abstract declarations (nil Body) are skipped.
func (c *Checker) CheckFunc(decl *ast.FuncDecl) {
	if decl.Body == nil {
		return
	}
	c.point = 0
	c.lastUse = computeLastUsePoints(decl.Body)
	c.refBindings = map[string]*outstandingBorrow{}
	root := newScope(nil)
	for _, p := range decl.Params {
		root.declare(p.Name, false, isCopyTypeExpr(p.Type))
	}
	c.checkExpr(decl.Body, root)
	c.checkDanglingReturn(decl.Body, root)
}

func (c *Checker) tick() int {
	c.point++
	return c.point
}

// isCopyTypeExpr reports whether a declared type is one of the scalar
// Copy kinds, matched by name since the borrow checker intentionally
// does not depend on internal/checker's resolved types (SPEC_FULL.md
// §4.3 keeps the borrow pass a separate stage over the AST/typed tree).
func isCopyTypeExpr(t ast.TypeExpr) bool {
	nte, ok := t.(*ast.NamedTypeExpr)
	if !ok {
		return false
	}
	switch nte.Name {
	case "I8", "I16", "I32", "I64", "I128", "U8", "U16", "U32", "U64", "U128",
		"F32", "F64", "Bool", "Char", "Unit":
		return true
	default:
		return false
	}
}

// isCopyValueExpr approximates Copy-ness for an unannotated `let`
// binding by looking at its initializer shape: scalar literals and
// arithmetic over them are Copy, everything else is conservatively
// treated as move-semantics.
func isCopyValueExpr(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.Literal:
		return v.Kind != ast.LitString
	case *ast.BinaryExpr:
		return isCopyValueExpr(v.Left) && isCopyValueExpr(v.Right)
	case *ast.UnaryExpr:
		return v.Op == "-" || v.Op == "!"
	default:
		return false
	}
}
