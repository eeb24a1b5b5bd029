package main

import (
	"fmt"
	"os"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/hivellm/tmlc/internal/mir"
	"github.com/hivellm/tmlc/internal/mirio"
)

func mirRoundtripCommand(path string) {
	m, err := loadMIRFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}

	data, err := mirio.WriteModule(m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: encoding: %v\n", red("Error"), err)
		os.Exit(1)
	}
	roundtripped, err := mirio.ReadModule(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: decoding: %v\n", red("Error"), err)
		os.Exit(1)
	}

	if diff := cmp.Diff(m, roundtripped, cmpopts.IgnoreUnexported(mir.Function{})); diff != "" {
		fmt.Fprintf(os.Stderr, "%s: round-trip mismatch:\n%s\n", red("Error"), diff)
		os.Exit(1)
	}
	fmt.Printf("%s %s round-trips cleanly (%d bytes)\n", green("✓"), path, len(data))
}
