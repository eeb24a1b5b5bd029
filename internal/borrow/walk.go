package borrow

import (
	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/diag"
)

// checkExpr walks e, recording moves and borrows against sc, and
// recursing into every subexpression so nested calls/closures are
// checked too.
func (c *Checker) checkExpr(e ast.Expr, sc *scope) {
	if e == nil {
		return
	}
	switch ex := e.(type) {
	case *ast.Ident:
		c.useAsValue(Place{Base: ex.Name}, ex.Position(), sc)
	case *ast.BinaryExpr:
		c.checkExpr(ex.Left, sc)
		c.checkExpr(ex.Right, sc)
	case *ast.UnaryExpr:
		c.checkUnary(ex, sc)
	case *ast.CallExpr:
		c.checkExpr(ex.Callee, sc)
		for _, a := range ex.Args {
			c.checkArg(a, sc)
		}
	case *ast.MethodCallExpr:
		c.checkMethodCall(ex, sc)
	case *ast.FieldExpr:
		if place, ok := placeFromExpr(ex); ok {
			c.useAsValue(place, ex.Position(), sc)
		} else {
			c.checkExpr(ex.Receiver, sc)
		}
	case *ast.IndexExpr:
		c.checkExpr(ex.Receiver, sc)
		c.checkExpr(ex.Index, sc)
	case *ast.PathExpr:
	case *ast.RangeExpr:
		c.checkExpr(ex.Lo, sc)
		c.checkExpr(ex.Hi, sc)
	case *ast.CastExpr:
		c.checkExpr(ex.Value, sc)
	case *ast.TupleExpr:
		for _, el := range ex.Elements {
			c.checkArg(el, sc)
		}
	case *ast.ArrayExpr:
		for _, el := range ex.Elements {
			c.checkArg(el, sc)
		}
	case *ast.StructExpr:
		for _, f := range ex.Fields {
			c.checkArg(f.Value, sc)
		}
	case *ast.ClosureExpr:
		c.checkClosure(ex, sc)
	case *ast.BlockExpr:
		c.checkBlock(ex, sc)
	case *ast.IfExpr:
		c.checkExpr(ex.Cond, sc)
		c.checkExpr(ex.Then, sc)
		c.checkExpr(ex.Else, sc)
	case *ast.IfLetExpr:
		c.checkExpr(ex.Scrutinee, sc)
		inner := newScope(sc)
		c.bindPatternNames(ex.Pattern, inner)
		c.checkExpr(ex.Then, inner)
		c.checkExpr(ex.Else, sc)
	case *ast.WhenExpr:
		c.checkExpr(ex.Scrutinee, sc)
		for _, arm := range ex.Arms {
			inner := newScope(sc)
			c.bindPatternNames(arm.Pattern, inner)
			c.checkExpr(arm.Guard, inner)
			c.checkExpr(arm.Body, inner)
		}
	case *ast.LoopExpr:
		c.checkExpr(ex.Body, sc)
	case *ast.WhileExpr:
		c.checkExpr(ex.Cond, sc)
		c.checkExpr(ex.Body, sc)
	case *ast.ForExpr:
		c.checkExpr(ex.Iterable, sc)
		inner := newScope(sc)
		inner.declare(ex.Binder, false, false)
		c.checkExpr(ex.Body, inner)
	case *ast.ReturnExpr:
		c.checkExpr(ex.Value, sc)
	case *ast.BreakExpr:
		c.checkExpr(ex.Value, sc)
	case *ast.ContinueExpr, *ast.Literal, *ast.InterpString:
	default:
	}
}

// checkArg checks an expression used in a by-value position (call
// argument, struct field, array/tuple element): a bare place expr
// moves it unless the place is Copy, in which case evaluation leaves
// it usable afterward.
func (c *Checker) checkArg(e ast.Expr, sc *scope) {
	if e == nil {
		return
	}
	place, ok := placeFromExpr(e)
	if !ok {
		c.checkExpr(e, sc)
		return
	}
	c.useAsValue(place, e.Position(), sc)
	if !c.placeIsCopy(place, sc) {
		c.markMoved(place, sc)
	}
}

func (c *Checker) placeIsCopy(p Place, sc *scope) bool {
	if len(p.Projections) > 0 {
		return false // field/index projections are conservatively non-Copy
	}
	return sc.isCopy(p.Base)
}

// useAsValue reports BRW001 (moved) or BRW006 (partially moved) if the
// place being read is no longer valid, BRW004 if it was never
// initialized, and BRW002 if it is currently mutably borrowed by
// another live borrow (SPEC_FULL.md §4.3's check_can_use). A read is
// treated like taking a transient Shared borrow for conflict purposes,
// so it tolerates a MutableReserved two-phase borrow of the same place
// (a method call's own arguments may legally re-read its receiver) but
// not a MutableActive one.
//
// If p.Base is itself a bound reference (`let r = ref ...`), this read
// also extends that reference's NLL lastUse to the current point, so a
// later borrow attempt correctly sees r's underlying borrow as still
// live.
func (c *Checker) useAsValue(p Place, span ast.Span, sc *scope) {
	if b, ok := c.refBindings[p.Base]; ok && b.lastUse < c.point {
		b.lastUse = c.point
	}
	st, _ := sc.lookup(p.Base)
	if st == nil {
		return // parameter or unresolved name; checker (type phase) already validated existence
	}
	if !st.initialized {
		c.acc.Add(diag.New(diag.BRW004, span, "use of uninitialized place "+p.Key()))
		return
	}
	if st.moved && len(p.Projections) == 0 {
		c.acc.Add(diag.New(diag.BRW001, span, "use of moved value "+p.Key()))
		return
	}
	if len(p.Projections) == 0 && len(st.movedFields) > 0 {
		c.acc.Add(diag.New(diag.BRW006, span, "use of partially moved value "+p.Key()))
	}
	if len(p.Projections) > 0 {
		suffix := p.Key()
		if st.movedFields[suffix] {
			c.acc.Add(diag.New(diag.BRW006, span, "use after partial move of "+suffix))
		}
	}
	if conflict := st.conflicts(p, Shared, c.point); conflict != nil {
		c.acc.Add(diag.New(diag.BRW002, span,
			"cannot use "+p.Key()+" because it is borrowed as "+conflict.kind.String()).
			WithNote("borrow of "+conflict.place.Key()+" occurs here", conflict.span))
	}
}

func (c *Checker) markMoved(p Place, sc *scope) {
	st, _ := sc.lookup(p.Base)
	if st == nil {
		return
	}
	if len(p.Projections) == 0 {
		st.moved = true
		return
	}
	st.movedFields[p.Key()] = true
}

func (c *Checker) checkUnary(u *ast.UnaryExpr, sc *scope) {
	switch u.Op {
	case "ref", "mut ref":
		c.checkBorrow(u, sc)
	default:
		c.checkExpr(u.Operand, sc)
	}
}

// checkBorrow records a borrow of the operand place, reporting BRW002 on
// conflict with an already-outstanding live borrow and BRW003 if a
// `mut ref` targets an immutable place. An explicit `ref`/`mut ref`
// expression is immediately Shared/MutableActive — MutableReserved is
// reserved for checkMethodCall's two-phase receiver borrow, grounded on
// the original checker's check_unary producing an active borrow and
// check_method_call being the sole source of a reservation. The caller
// is responsible for seeding the returned borrow's lastUse when it is
// bound to a name (checkStmt's LetStmt case); an unbound, ephemeral
// borrow (e.g. a `ref` passed straight into a call) defaults to dying
// right after this statement.
func (c *Checker) checkBorrow(u *ast.UnaryExpr, sc *scope) *outstandingBorrow {
	place, ok := placeFromExpr(u.Operand)
	if !ok {
		c.checkExpr(u.Operand, sc)
		return nil
	}
	mutable := u.Op == "mut ref"
	if mutable && !sc.isMutable(place.Base) {
		c.acc.Add(diag.New(diag.BRW003, u.Position(), "cannot borrow "+place.Key()+" as mutable: binding is not mutable"))
	}
	st, _ := sc.lookup(place.Base)
	if st == nil {
		return nil
	}
	want := Shared
	if mutable {
		want = MutableActive
	}
	if conflict := st.conflicts(place, want, c.point); conflict != nil {
		c.acc.Add(diag.New(diag.BRW002, u.Position(),
			"cannot borrow "+place.Key()+" as "+borrowKindLabel(mutable)+" because it is already borrowed as "+conflict.kind.String()).
			WithNote("borrow of "+conflict.place.Key()+" occurs here", conflict.span))
		return nil
	}
	b := &outstandingBorrow{place: place, kind: want, span: u.Position(), takenAt: c.point, lastUse: c.point}
	st.borrows = append(st.borrows, b)
	return b
}

// checkMethodCall implements two-phase borrowing of a method's receiver
// (SPEC_FULL.md §4.3, Glossary "Two-phase borrow", grounded on the
// original checker's check_method_call): since the borrow checker runs
// without a resolved method signature, every method call is
// conservatively assumed to take `&mut self`. The receiver is reserved
// (MutableReserved) before its arguments are evaluated, so an argument
// that reads the receiver (`v.push(v.len())`) does not trip a conflict
// against its own call's borrow, then the reservation is promoted to
// MutableActive for the duration of the call itself. A receiver that
// isn't a mutable place (an immutable binding, a temporary, a field of
// an immutable struct) falls back to a plain shared check instead of
// reserving, to avoid flagging read-only method calls.
func (c *Checker) checkMethodCall(m *ast.MethodCallExpr, sc *scope) {
	place, ok := placeFromExpr(m.Receiver)
	if !ok || !sc.isMutable(place.Base) {
		c.checkExpr(m.Receiver, sc)
		for _, a := range m.Args {
			c.checkArg(a, sc)
		}
		return
	}
	st, _ := sc.lookup(place.Base)
	if st == nil {
		c.checkExpr(m.Receiver, sc)
		for _, a := range m.Args {
			c.checkArg(a, sc)
		}
		return
	}
	if conflict := st.conflicts(place, MutableReserved, c.point); conflict != nil {
		c.acc.Add(diag.New(diag.BRW002, m.Position(),
			"cannot call "+m.Method+" on "+place.Key()+" because it is already borrowed as "+conflict.kind.String()).
			WithNote("borrow of "+conflict.place.Key()+" occurs here", conflict.span))
		return
	}
	reservation := &outstandingBorrow{place: place, kind: MutableReserved, span: m.Position(), takenAt: c.point, lastUse: c.point}
	st.borrows = append(st.borrows, reservation)
	c.useAsValue(place, m.Receiver.Position(), sc)
	for _, a := range m.Args {
		c.checkArg(a, sc)
	}
	reservation.kind = MutableActive
}

func borrowKindLabel(mutable bool) string {
	if mutable {
		return "mutable"
	}
	return "shared"
}

func (c *Checker) checkBlock(b *ast.BlockExpr, sc *scope) {
	inner := newScope(sc)
	for _, stmt := range b.Statements {
		c.checkStmt(stmt, inner)
	}
	if b.Tail != nil {
		c.tick()
		c.checkExpr(b.Tail, inner)
	}
}

// checkStmt advances the program point once per statement (matching
// computeLastUsePoints's numbering) before checking it, so every
// conflict/liveness check made while checking this statement sees the
// same `now` that the NLL prepass assigned it.
func (c *Checker) checkStmt(s ast.Stmt, sc *scope) {
	c.tick()
	switch st := s.(type) {
	case *ast.LetStmt:
		isCopy := st.Type != nil && isCopyTypeExpr(st.Type)
		if st.Type == nil {
			isCopy = isCopyValueExpr(st.Value)
		}
		if u, ok := st.Value.(*ast.UnaryExpr); ok && (u.Op == "ref" || u.Op == "mut ref") {
			if b := c.checkBorrow(u, sc); b != nil {
				b.lastUse = c.lastUseOf(st.Name)
				c.refBindings[st.Name] = b
			}
		} else {
			c.checkArg(st.Value, sc)
		}
		sc.declare(st.Name, st.Mutable, isCopy)
	case *ast.AssignStmt:
		c.checkArg(st.Value, sc)
		if place, ok := placeFromExpr(st.Target); ok {
			c.checkMutate(place, st.Position(), sc)
			if stt, _ := sc.lookup(place.Base); stt != nil {
				stt.initialized = true
				if len(place.Projections) == 0 {
					stt.moved = false
					stt.movedFields = map[string]bool{}
				} else {
					delete(stt.movedFields, place.Key())
				}
			}
		} else {
			c.checkExpr(st.Target, sc)
		}
	case *ast.ExprStmt:
		c.checkExpr(st.X, sc)
	}
}

// checkMutate reports BRW003 if place's binding is not declared mutable
// and BRW002 (with a note pointing at the conflicting borrow's span) if
// place is currently borrowed, live, at this assignment (SPEC_FULL.md
// §4.3's check_can_mutate: "place must be mutable and not currently
// borrowed at all").
func (c *Checker) checkMutate(place Place, span ast.Span, sc *scope) {
	if !sc.isMutable(place.Base) {
		c.acc.Add(diag.New(diag.BRW003, span, "cannot assign to "+place.Key()+": binding is not mutable"))
	}
	st, _ := sc.lookup(place.Base)
	if st == nil {
		return
	}
	if conflict := st.conflicts(place, MutableActive, c.point); conflict != nil {
		c.acc.Add(diag.New(diag.BRW002, span,
			"cannot assign to "+place.Key()+" because it is borrowed as "+conflict.kind.String()).
			WithNote("borrow of "+conflict.place.Key()+" occurs here", conflict.span))
	}
}

func (c *Checker) bindPatternNames(p ast.Pattern, sc *scope) {
	switch pat := p.(type) {
	case *ast.VarPattern:
		sc.declare(pat.Name, false, true)
	case *ast.CtorPattern:
		for _, a := range pat.Args {
			c.bindPatternNames(a, sc)
		}
	case *ast.TuplePattern:
		for _, el := range pat.Elements {
			c.bindPatternNames(el, sc)
		}
	}
}

func (c *Checker) checkClosure(cl *ast.ClosureExpr, sc *scope) {
	inner := newScope(sc)
	bound := map[string]bool{}
	for _, p := range cl.Params {
		inner.declare(p.Name, false, p.Type != nil && isCopyTypeExpr(p.Type))
		bound[p.Name] = true
	}
	c.checkCaptures(cl, bound, sc)
	c.checkExpr(cl.Body, inner)
}

// checkCaptures reports BRW007 for a closure literal that captures an
// enclosing local while that local has a live, active mutable borrow
// outstanding (shared borrows and two-phase reservations are not
// reported): the
// closure may outlive the current statement (stored in a binding,
// returned, or passed on), so by the time it runs the captured borrow
// could already have been invalidated by a later mutation of the base.
func (c *Checker) checkCaptures(cl *ast.ClosureExpr, paramNames map[string]bool, sc *scope) {
	free := map[string]bool{}
	collectFreeIdents(cl.Body, paramNames, free)
	for name := range free {
		st, _ := sc.lookup(name)
		if st == nil {
			continue
		}
		if conflict := st.conflicts(Place{Base: name}, Shared, c.point); conflict != nil {
			c.acc.Add(diag.New(diag.BRW007, cl.Position(),
				"closure captures "+name+" while a mutable borrow of it is outstanding; the closure does not own its capture"))
		}
	}
}

// collectFreeIdents gathers every Ident name referenced under e that is
// not in bound, recursing into nested closures with their own params
// added to the bound set.
func collectFreeIdents(e ast.Expr, bound map[string]bool, out map[string]bool) {
	if e == nil {
		return
	}
	switch ex := e.(type) {
	case *ast.Ident:
		if !bound[ex.Name] {
			out[ex.Name] = true
		}
	case *ast.BinaryExpr:
		collectFreeIdents(ex.Left, bound, out)
		collectFreeIdents(ex.Right, bound, out)
	case *ast.UnaryExpr:
		collectFreeIdents(ex.Operand, bound, out)
	case *ast.CallExpr:
		collectFreeIdents(ex.Callee, bound, out)
		for _, a := range ex.Args {
			collectFreeIdents(a, bound, out)
		}
	case *ast.MethodCallExpr:
		collectFreeIdents(ex.Receiver, bound, out)
		for _, a := range ex.Args {
			collectFreeIdents(a, bound, out)
		}
	case *ast.FieldExpr:
		collectFreeIdents(ex.Receiver, bound, out)
	case *ast.IndexExpr:
		collectFreeIdents(ex.Receiver, bound, out)
		collectFreeIdents(ex.Index, bound, out)
	case *ast.RangeExpr:
		collectFreeIdents(ex.Lo, bound, out)
		collectFreeIdents(ex.Hi, bound, out)
	case *ast.CastExpr:
		collectFreeIdents(ex.Value, bound, out)
	case *ast.TupleExpr:
		for _, el := range ex.Elements {
			collectFreeIdents(el, bound, out)
		}
	case *ast.ArrayExpr:
		for _, el := range ex.Elements {
			collectFreeIdents(el, bound, out)
		}
	case *ast.StructExpr:
		for _, f := range ex.Fields {
			collectFreeIdents(f.Value, bound, out)
		}
	case *ast.ClosureExpr:
		inner := map[string]bool{}
		for k := range bound {
			inner[k] = true
		}
		for _, p := range ex.Params {
			inner[p.Name] = true
		}
		collectFreeIdents(ex.Body, inner, out)
	case *ast.BlockExpr:
		inner := map[string]bool{}
		for k := range bound {
			inner[k] = true
		}
		for _, stmt := range ex.Statements {
			if let, ok := stmt.(*ast.LetStmt); ok {
				collectFreeIdents(let.Value, inner, out)
				inner[let.Name] = true
				continue
			}
			if es, ok := stmt.(*ast.ExprStmt); ok {
				collectFreeIdents(es.X, inner, out)
			}
			if as, ok := stmt.(*ast.AssignStmt); ok {
				collectFreeIdents(as.Target, inner, out)
				collectFreeIdents(as.Value, inner, out)
			}
		}
		collectFreeIdents(ex.Tail, inner, out)
	case *ast.IfExpr:
		collectFreeIdents(ex.Cond, bound, out)
		collectFreeIdents(ex.Then, bound, out)
		collectFreeIdents(ex.Else, bound, out)
	case *ast.WhenExpr:
		collectFreeIdents(ex.Scrutinee, bound, out)
		for _, arm := range ex.Arms {
			collectFreeIdents(arm.Guard, bound, out)
			collectFreeIdents(arm.Body, bound, out)
		}
	case *ast.LoopExpr:
		collectFreeIdents(ex.Body, bound, out)
	case *ast.WhileExpr:
		collectFreeIdents(ex.Cond, bound, out)
		collectFreeIdents(ex.Body, bound, out)
	case *ast.ForExpr:
		inner := map[string]bool{}
		for k := range bound {
			inner[k] = true
		}
		inner[ex.Binder] = true
		collectFreeIdents(ex.Iterable, bound, out)
		collectFreeIdents(ex.Body, inner, out)
	case *ast.ReturnExpr:
		collectFreeIdents(ex.Value, bound, out)
	case *ast.BreakExpr:
		collectFreeIdents(ex.Value, bound, out)
	}
}

// checkDanglingReturn walks every return point in body looking for a
// `ref`/`mut ref` expression whose place is rooted in a local declared
// inside this same function (never a parameter): that reference would
// dangle once the function returns (SPEC_FULL.md §4.3's BRW005).
func (c *Checker) checkDanglingReturn(body ast.Expr, root *scope) {
	locals := map[string]bool{}
	collectLocalNames(body, locals)
	walkReturns(body, func(value ast.Expr) {
		u, ok := value.(*ast.UnaryExpr)
		if !ok || (u.Op != "ref" && u.Op != "mut ref") {
			return
		}
		place, ok := placeFromExpr(u.Operand)
		if !ok {
			return
		}
		if locals[place.Base] {
			c.acc.Add(diag.New(diag.BRW005, value.Position(), "returns a reference to local "+place.Key()+", which does not outlive the call"))
		}
	})
}

func collectLocalNames(e ast.Expr, out map[string]bool) {
	block, ok := e.(*ast.BlockExpr)
	if !ok {
		return
	}
	for _, stmt := range block.Statements {
		if let, ok := stmt.(*ast.LetStmt); ok {
			out[let.Name] = true
		}
	}
}

// walkReturns calls visit with the value expression of every
// ReturnExpr (and the tail of the outermost block, treated as an
// implicit return) reachable without crossing into a nested closure.
func walkReturns(e ast.Expr, visit func(ast.Expr)) {
	switch ex := e.(type) {
	case *ast.BlockExpr:
		for _, stmt := range ex.Statements {
			if es, ok := stmt.(*ast.ExprStmt); ok {
				walkReturns(es.X, visit)
			}
		}
		if ex.Tail != nil {
			visit(ex.Tail)
			walkReturns(ex.Tail, visit)
		}
	case *ast.IfExpr:
		walkReturns(ex.Then, visit)
		walkReturns(ex.Else, visit)
	case *ast.WhenExpr:
		for _, arm := range ex.Arms {
			walkReturns(arm.Body, visit)
		}
	case *ast.ReturnExpr:
		if ex.Value != nil {
			visit(ex.Value)
		}
	}
}
