package tenv

import "github.com/hivellm/tmlc/internal/ast"

// Symbol is one local binding: a name, its type, mutability, and the
// span where it was declared (used for "did you mean" suggestions and
// for borrow-checker place provenance).
type Symbol struct {
	Name      string
	Type      interface{} // types.Type or *types.Scheme
	IsMutable bool
	Span      ast.Span
}

// Scope is a singly linked chain of name->Symbol maps, exactly the
// shape of the teacher's TypeEnv (bindings map + parent pointer);
// lookup walks parent links until it reaches the root.
type Scope struct {
	bindings map[string]*Symbol
	parent   *Scope
}

// NewRootScope returns an empty, parentless scope.
func NewRootScope() *Scope {
	return &Scope{bindings: map[string]*Symbol{}}
}

// PushScope returns a new child scope nested under s.
func PushScope(s *Scope) *Scope {
	return &Scope{bindings: map[string]*Symbol{}, parent: s}
}

// PopScope returns the parent of s, destroying every symbol defined in
// s (SPEC_FULL.md §3's "symbols created in a scope are destroyed on
// pop_scope" — enforced simply by discarding the reference; Go's GC
// reclaims the map).
func PopScope(s *Scope) *Scope {
	return s.parent
}

// Define adds a local binding to the current (innermost) scope.
func (s *Scope) Define(name string, typ interface{}, mutable bool, span ast.Span) {
	s.bindings[name] = &Symbol{Name: name, Type: typ, IsMutable: mutable, Span: span}
}

// Lookup walks the scope chain for name, returning nil if absent.
func (s *Scope) Lookup(name string) *Symbol {
	for cur := s; cur != nil; cur = cur.parent {
		if sym, ok := cur.bindings[name]; ok {
			return sym
		}
	}
	return nil
}

// AllNames returns every name visible from s, innermost scope first,
// used to build Damerau-Levenshtein "did you mean" suggestion lists.
func (s *Scope) AllNames() []string {
	seen := map[string]bool{}
	var names []string
	for cur := s; cur != nil; cur = cur.parent {
		for name := range cur.bindings {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}
