package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hivellm/tmlc/internal/diag"
	"github.com/hivellm/tmlc/internal/pipeline"
	"github.com/hivellm/tmlc/internal/tenv"
)

func monoStatsCommand(sampleName string) {
	file, ok := samples[sampleName]
	if !ok {
		fmt.Fprintf(os.Stderr, "%s: unknown sample %q (have: %s)\n", red("Error"), sampleName, listSampleNames())
		os.Exit(1)
	}

	env := tenv.New()
	res, err := pipeline.CheckAndLower(context.Background(), env, file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}
	if len(res.Diagnostics) > 0 {
		diag.ReportAll(os.Stdout, res.Diagnostics)
		os.Exit(1)
	}

	instantiated := 0
	for _, fn := range res.Module.Functions {
		if strings.Contains(fn.Name, "__") {
			instantiated++
			fmt.Printf("  %s %s\n", yellow("instance"), fn.Name)
		}
	}
	fmt.Printf("%s %d function(s) total, %d monomorphized instantiation(s)\n",
		cyan("→"), len(res.Module.Functions), instantiated)
}
