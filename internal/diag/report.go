package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"golang.org/x/text/width"
)

var (
	reportRed    = color.New(color.FgRed, color.Bold).SprintFunc()
	reportYellow = color.New(color.FgYellow).SprintFunc()
	reportCyan   = color.New(color.FgCyan).SprintFunc()
	reportDim    = color.New(color.Faint).SprintFunc()
)

// displayWidth returns s's terminal column width, counting East Asian
// wide/fullwidth runes as two columns. TML source identifiers may be
// any Unicode letter, so a note column padded by rune count alone would
// misalign against a position string sharing a line with wide glyphs.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

// padRight right-pads s with spaces until it reaches the given display
// width, used to align the position column across a diagnostic's notes.
func padRight(s string, w int) string {
	d := w - displayWidth(s)
	for i := 0; i < d; i++ {
		s += " "
	}
	return s
}

// Report writes a human-readable rendering of d to w, colorized the
// way the teacher's CLI colorizes REPL/eval output (fatih/color,
// matching cmd/ailang's green/red/yellow/cyan palette).
func Report(w io.Writer, d Diagnostic) {
	fmt.Fprintf(w, "%s %s: %s\n", reportRed("error["+d.Code+"]"), d.Span.Start, d.Message)
	col := 0
	for _, n := range d.Notes {
		if l := displayWidth(n.Span.Start.String()); l > col {
			col = l
		}
	}
	for _, n := range d.Notes {
		pos := padRight(n.Span.Start.String(), col)
		fmt.Fprintf(w, "  %s %s: %s\n", reportCyan("note:"), pos, n.Message)
	}
}

// ReportAll writes every diagnostic in ds, each followed by a blank
// line, and finally a colored summary count.
func ReportAll(w io.Writer, ds []Diagnostic) {
	for _, d := range ds {
		Report(w, d)
		fmt.Fprintln(w)
	}
	if len(ds) == 0 {
		return
	}
	fmt.Fprintf(w, "%s\n", reportYellow(fmt.Sprintf("%d diagnostic(s)", len(ds))))
}

// ReportPrimary writes only the "first error of the highest-priority
// tier" (SPEC_FULL.md §8) plus a dimmed count of any secondary errors.
func ReportPrimary(w io.Writer, acc *Accumulator) {
	primary, ok := acc.Primary()
	if !ok {
		return
	}
	Report(w, primary)
	if n := len(acc.All()) - 1; n > 0 {
		fmt.Fprintf(w, "%s\n", reportDim(fmt.Sprintf("(%d more diagnostic(s) suppressed)", n)))
	}
}
