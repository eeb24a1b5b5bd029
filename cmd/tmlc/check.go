package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hivellm/tmlc/internal/diag"
	"github.com/hivellm/tmlc/internal/pipeline"
	"github.com/hivellm/tmlc/internal/tenv"
)

func checkCommand(sampleName string, jsonOut bool) {
	file, ok := samples[sampleName]
	if !ok {
		fmt.Fprintf(os.Stderr, "%s: unknown sample %q (have: %s)\n", red("Error"), sampleName, listSampleNames())
		os.Exit(1)
	}

	fmt.Printf("%s Checking %s...\n", cyan("→"), sampleName)
	env := tenv.New()
	res, err := pipeline.CheckAndLower(context.Background(), env, file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}

	if len(res.Diagnostics) > 0 {
		if jsonOut {
			data, encErr := diag.EncodeJSONAll(res.Diagnostics)
			if encErr != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), encErr)
				os.Exit(1)
			}
			fmt.Println(string(data))
		} else {
			diag.ReportAll(os.Stdout, res.Diagnostics)
		}
		os.Exit(1)
	}

	fmt.Printf("%s No errors found (%d function(s), %d struct(s), %d enum(s))\n",
		green("✓"), res.FuncCount, res.StructCount, res.EnumCount)
}
