package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hivellm/tmlc/internal/diag"
	"github.com/hivellm/tmlc/internal/mir"
	"github.com/hivellm/tmlc/internal/mirio"
)

func loadMIRFile(path string) (*mir.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".mirb") {
		return mirio.ReadModule(data)
	}
	acc := diag.NewAccumulator()
	m := mirio.ParseModule(string(data), acc)
	if acc.HasErrors() {
		diag.ReportAll(os.Stderr, acc.All())
		return nil, fmt.Errorf("parsing %s: %d diagnostic(s)", path, len(acc.All()))
	}
	return m, nil
}

func mirDumpCommand(path string) {
	m, err := loadMIRFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}
	fmt.Print(mirio.PrintModule(m))
}
