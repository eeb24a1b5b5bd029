package tenv

import (
	"fmt"

	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/diag"
)

// ModuleLoader resolves a module path to its compiled surface. The
// checker supplies a concrete implementation backed by the excluded
// build driver; tenv only needs the interface (SPEC_FULL.md §6's
// "module loading is a caller-supplied capability").
type ModuleLoader interface {
	LoadModule(path string) (*Module, error)
}

// RegisterModule records an already-resolved module's exported
// surface, making its symbols available to Import.
func (e *Env) RegisterModule(m *Module) {
	e.modules[m.Path] = m
}

// LookupModule returns a previously registered module, or nil.
func (e *Env) LookupModule(path string) *Module { return e.modules[path] }

// Import brings one symbol from an already-registered module into the
// current module's namespace under alias (or its original name if
// alias is empty), per SPEC_FULL.md §4.1's import resolution.
func (e *Env) Import(modulePath, symbolName, alias string, span ast.Span) error {
	mod, ok := e.modules[modulePath]
	if !ok {
		return diag.New(diag.ENV005, span, fmt.Sprintf("module %q has not been loaded", modulePath))
	}
	if alias == "" {
		alias = symbolName
	}
	if sigs, ok := mod.Funcs[symbolName]; ok {
		for _, sig := range sigs {
			aliased := *sig
			aliased.Name = alias
			e.funcs[alias] = append(e.funcs[alias], &aliased)
		}
	} else if sd, ok := mod.Structs[symbolName]; ok {
		aliased := *sd
		aliased.Name = alias
		e.structs[alias] = &aliased
	} else if ed, ok := mod.Enums[symbolName]; ok {
		aliased := *ed
		aliased.Name = alias
		e.enums[alias] = &aliased
	} else if bd, ok := mod.Behaviors[symbolName]; ok {
		aliased := *bd
		aliased.Name = alias
		e.behaviors[alias] = &aliased
	} else {
		return diag.New(diag.ENV003, span, fmt.Sprintf("module %q has no exported symbol %q", modulePath, symbolName))
	}
	e.imports = append(e.imports, ImportedSymbol{ModulePath: modulePath, SymbolName: symbolName, Alias: alias})
	return nil
}

// LoadModuleGraph resolves every module path reachable from entry,
// calling loader for each unvisited path and registering the results,
// failing with ENV002 if a cycle is detected. This mirrors the
// teacher's topological load order without requiring the full build
// driver: tenv only needs to know resolution order and cycle-freedom,
// not artifact caching (which lives in internal/manifest).
func (e *Env) LoadModuleGraph(entry string, loader ModuleLoader, deps func(path string) []string) error {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS stack
		black = 2 // fully resolved
	)
	color := map[string]int{}
	var order []string

	var visit func(path string) error
	visit = func(path string) error {
		switch color[path] {
		case black:
			return nil
		case gray:
			return diag.New(diag.ENV002, ast.Span{}, fmt.Sprintf("import cycle detected at module %q", path))
		}
		color[path] = gray
		for _, dep := range deps(path) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[path] = black
		order = append(order, path)
		return nil
	}

	if err := visit(entry); err != nil {
		return err
	}

	for _, path := range order {
		if _, ok := e.modules[path]; ok {
			continue
		}
		mod, err := loader.LoadModule(path)
		if err != nil {
			if e.abortOnModuleError {
				return diag.New(diag.ENV005, ast.Span{}, fmt.Sprintf("failed to load module %q: %v", path, err))
			}
			continue
		}
		e.RegisterModule(mod)
	}
	return nil
}
