package main

import (
	"fmt"
	"os"

	"github.com/hivellm/tmlc/internal/mirrepl"
)

func replCommand(path string) {
	m, err := loadMIRFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}
	r := mirrepl.New(m, Version)
	r.Start(os.Stdin, os.Stdout)
}
