package ast

import (
	"fmt"
	"strings"
)

// Print renders a File as an indented outline, for diagnostics and
// golden-file fixtures. It is deliberately shallow: it names each
// top-level declaration and its immediate shape rather than fully
// unparsing expressions, the way a debug dump of a parsed tree
// typically does.
func Print(f *File) string {
	var b strings.Builder
	if f.ModulePath != "" {
		fmt.Fprintf(&b, "module %s\n", f.ModulePath)
	}
	for _, imp := range f.Imports {
		fmt.Fprintf(&b, "%s\n", imp)
	}
	for _, d := range f.Decls {
		fmt.Fprintf(&b, "%s\n", d)
	}
	return b.String()
}
