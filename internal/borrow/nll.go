package borrow

import "github.com/hivellm/tmlc/internal/ast"

// computeLastUsePoints does a single prepass over the top-level statements
// of body (and its tail), numbering each one the way checkStmt/checkBlock
// number them during the real walk, and records for each identifier the
// highest such point at which it is read. Statements inside nested blocks
// are not numbered separately: a read anywhere inside a top-level
// statement is recorded at that statement's point, while the real walk
// ticks once more for every nested statement, so in a body with nested
// blocks the two numberings drift apart. This is
// SPEC_FULL.md §4.3/§9's apply_nll: a reference binding's true live range
// runs to its last use, not to the end of its enclosing block, so two
// sequential non-overlapping borrows of one place must not conflict just
// because the checker never revisits the earlier borrow.
//
// Reading the result is by name: a name absent from it is never read
// again after its declaration, which conservatively means "live forever"
// (see lastUseOf) rather than "dead immediately" — an unused `mut ref`
// still blocks a second mutable borrow of the same place, the same way a
// lexical borrow would without proof it is safe to end early.
func computeLastUsePoints(bodyExpr ast.Expr) map[string]int {
	last := map[string]int{}
	body, ok := bodyExpr.(*ast.BlockExpr)
	if !ok {
		return last
	}
	point := 0
	touch := func(e ast.Expr) {
		free := map[string]bool{}
		collectFreeIdents(e, nil, free)
		for name := range free {
			last[name] = point
		}
	}
	for _, s := range body.Statements {
		point++
		switch st := s.(type) {
		case *ast.LetStmt:
			touch(st.Value)
		case *ast.AssignStmt:
			touch(st.Target)
			touch(st.Value)
		case *ast.ExprStmt:
			touch(st.X)
		}
	}
	if body.Tail != nil {
		point++
		touch(body.Tail)
	}
	return last
}

// lastUseOf returns the final program point at which name is read in the
// current function, or a large sentinel if it is never read again: an
// unreferenced reference binding is conservatively treated as live for
// the rest of the function rather than dead on arrival.
func (c *Checker) lastUseOf(name string) int {
	if p, ok := c.lastUse[name]; ok {
		return p
	}
	return 1 << 30
}
