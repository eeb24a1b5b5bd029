package borrow

import "github.com/hivellm/tmlc/internal/ast"

// BorrowKind is the two-phase borrow state of one outstanding borrow
// (SPEC_FULL.md §4.3): a method call's receiver borrow starts life
// "reserved" (recorded, but never reported as a conflict) and becomes
// "active" once the call's arguments have been checked, which is what
// lets `v.push(v.len())`-shaped calls pass without a true aliasing
// violation. An explicit `mut ref` expression is active immediately.
type BorrowKind int

const (
	Shared BorrowKind = iota
	MutableReserved
	MutableActive
)

func (k BorrowKind) String() string {
	switch k {
	case Shared:
		return "shared"
	case MutableReserved:
		return "mutable (reserved)"
	case MutableActive:
		return "mutable (active)"
	default:
		return "unknown"
	}
}

// outstandingBorrow records one live borrow of a place, with the
// program point (statement index within the current function walk) it
// was taken at and its last use, for NLL's liveness computation
// (SPEC_FULL.md §4.3/§9): a borrow bound to a name is live through the
// last point that name is read anywhere in the function, not merely to
// the end of its lexical scope.
type outstandingBorrow struct {
	place   Place
	kind    BorrowKind
	span    ast.Span
	takenAt int
	lastUse int
}

// placeState is the per-place bookkeeping the checker threads through
// a function body: whether it is live in scope, moved, partially
// moved, or currently borrowed.
type placeState struct {
	initialized bool
	moved       bool
	movedFields map[string]bool // partial moves, keyed by the moved field's suffix
	borrows     []*outstandingBorrow
}

func newPlaceState() *placeState {
	return &placeState{movedFields: map[string]bool{}}
}

// conflicts reports whether adding a borrow of kind `want` on `place`
// at program point `now` conflicts with any outstanding borrow already
// recorded for a place that overlaps it (SPEC_FULL.md §4.3's
// projection-aware conflict rule): a borrow whose last use already
// precedes `now` is dead under NLL and is skipped entirely. A
// MutableReserved borrow is never reported as a conflict by this
// method, against any `want` — during its reservation phase it behaves
// like a shared borrow that tolerates everything, including another
// method call's reservation of the same receiver (`v.push(v.len())`);
// it only becomes exclusive once checkMethodCall promotes it to
// MutableActive at the end of argument evaluation. Of the remaining
// live borrows, two shared borrows never conflict with each other;
// anything else overlapping does.
func (s *placeState) conflicts(place Place, want BorrowKind, now int) *outstandingBorrow {
	for _, b := range s.borrows {
		if b.lastUse < now || b.kind == MutableReserved {
			continue
		}
		if b.kind == Shared && want == Shared {
			continue
		}
		if overlaps(b.place, place) {
			return b
		}
	}
	return nil
}

func overlaps(a, b Place) bool {
	return a.IsPrefixOf(b) || b.IsPrefixOf(a)
}
