package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hivellm/tmlc/internal/codegen"
	"github.com/hivellm/tmlc/internal/codegen/nativeffi"
	"github.com/hivellm/tmlc/internal/codegen/textir"
	"github.com/hivellm/tmlc/internal/diag"
	"github.com/hivellm/tmlc/internal/manifest"
	"github.com/hivellm/tmlc/internal/mirio"
	"github.com/hivellm/tmlc/internal/pipeline"
	"github.com/hivellm/tmlc/internal/tenv"
)

const cacheFile = ".tmlc-cache.yaml"

func buildCommand(sampleName, backendName string, optLevel, workers int) {
	file, ok := samples[sampleName]
	if !ok {
		fmt.Fprintf(os.Stderr, "%s: unknown sample %q (have: %s)\n", red("Error"), sampleName, listSampleNames())
		os.Exit(1)
	}

	var newBackend func() codegen.Backend
	switch backendName {
	case "textir":
		newBackend = func() codegen.Backend { return textir.New() }
	case "cranelift":
		newBackend = func() codegen.Backend { return nativeffi.New() }
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown backend %q (textir or cranelift)\n", red("Error"), backendName)
		os.Exit(1)
	}

	fmt.Printf("%s Building %s with %s backend...\n", cyan("→"), sampleName, backendName)
	env := tenv.New()
	ctx := context.Background()
	res, err := pipeline.CheckAndLower(ctx, env, file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}
	if len(res.Diagnostics) > 0 {
		diag.ReportAll(os.Stdout, res.Diagnostics)
		os.Exit(1)
	}

	mirBytes, err := mirio.WriteModule(res.Module)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: serializing MIR: %v\n", red("Error"), err)
		os.Exit(1)
	}

	options := codegen.Options{OptimizationLevel: optLevel}
	sourceHash := manifest.HashBytes([]byte(sampleName))
	mirHash := manifest.HashBytes(mirBytes)
	optionsHash := manifest.HashOptions(optLevel, options.DebugInfo, options.CoverageEnabled, options.TargetTriple)

	cache, err := manifest.Load(cacheFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: loading cache: %v\n", red("Error"), err)
		os.Exit(1)
	}
	if entry, found := cache.Lookup(sampleName); found && manifest.Hit(entry, sourceHash, optionsHash) {
		fmt.Printf("%s Cache hit for %s (entry %s)\n", yellow("⚡"), sampleName, entry.ID)
		return
	}

	cfg := pipeline.Config{CodegenOptions: options, Workers: workers, NewBackend: newBackend}
	genResult, err := pipeline.CompileModule(ctx, res.Module, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: codegen: %v\n", red("Error"), err)
		os.Exit(1)
	}

	cache.Put(sampleName, sourceHash, mirHash, optionsHash, "")
	if err := cache.Save(cacheFile); err != nil {
		fmt.Fprintf(os.Stderr, "%s: saving cache: %v\n", red("Error"), err)
		os.Exit(1)
	}

	fmt.Printf("%s Built %s (%d bytes of IR, %d link lib(s))\n",
		green("✓"), sampleName, len(genResult.IRText), len(genResult.LinkLibs))
}
