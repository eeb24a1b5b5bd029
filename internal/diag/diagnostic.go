package diag

import (
	"fmt"
	"sort"

	"github.com/hivellm/tmlc/internal/ast"
)

// Note is a secondary annotation attached to a Diagnostic, e.g. "other
// borrow lives here".
type Note struct {
	Message string
	Span    ast.Span
}

// Diagnostic is one compiler error or warning, per SPEC_FULL.md §7's
// diagnostics format: a primary span + message, plus zero or more
// spanned notes.
type Diagnostic struct {
	Code    string
	Message string
	Span    ast.Span
	Notes   []Note
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: [%s] %s", d.Span.Start, d.Code, d.Message)
}

// New builds a Diagnostic from a registered code, looking up its
// description as a fallback message when msg is empty.
func New(code string, span ast.Span, msg string) Diagnostic {
	if msg == "" {
		if info, ok := Lookup(code); ok {
			msg = info.Description
		}
	}
	return Diagnostic{Code: code, Message: msg, Span: span}
}

// WithNote returns a copy of d with an additional secondary note.
func (d Diagnostic) WithNote(msg string, span ast.Span) Diagnostic {
	d.Notes = append(append([]Note{}, d.Notes...), Note{Message: msg, Span: span})
	return d
}

// Accumulator collects diagnostics across a whole module's type- and
// borrow-checking pass, per SPEC_FULL.md §8's "accumulate all errors"
// propagation policy (errors.Accumulator analogue of the teacher's
// ad-hoc `[]error` slices, made a first-class type).
type Accumulator struct {
	diags []Diagnostic
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add appends a diagnostic.
func (a *Accumulator) Add(d Diagnostic) {
	a.diags = append(a.diags, d)
}

// Addf is a convenience wrapper around New+Add.
func (a *Accumulator) Addf(code string, span ast.Span, format string, args ...interface{}) {
	a.Add(New(code, span, fmt.Sprintf(format, args...)))
}

// HasErrors reports whether any diagnostic was accumulated.
func (a *Accumulator) HasErrors() bool {
	return len(a.diags) > 0
}

// All returns every accumulated diagnostic, in insertion order.
func (a *Accumulator) All() []Diagnostic {
	return a.diags
}

// Primary returns the diagnostic that SPEC_FULL.md §8 calls "the
// displayed primary cause": the first error of the highest-priority
// tier (name > type > borrow > mono > backend), internal bugs always
// winning. Returns false if nothing was accumulated.
func (a *Accumulator) Primary() (Diagnostic, bool) {
	if len(a.diags) == 0 {
		return Diagnostic{}, false
	}
	best := a.diags[0]
	bestPrio := PriorityOf(best.Code)
	for _, d := range a.diags[1:] {
		p := PriorityOf(d.Code)
		if p < bestPrio {
			best, bestPrio = d, p
		}
	}
	return best, true
}

// SortedByPhase returns a stable copy of the accumulated diagnostics
// ordered by tier priority, useful for deterministic CLI output.
func (a *Accumulator) SortedByPhase() []Diagnostic {
	out := append([]Diagnostic{}, a.diags...)
	sort.SliceStable(out, func(i, j int) bool {
		return PriorityOf(out[i].Code) < PriorityOf(out[j].Code)
	})
	return out
}
