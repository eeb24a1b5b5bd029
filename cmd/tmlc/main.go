// Command tmlc is a thin exerciser over the core compiler pipeline:
// check, build, inspect MIR files, and a drop into the interactive
// MIR inspector. It is not the build driver or package manager (out
// of scope); it only drives internal/pipeline, internal/mirio, and
// internal/codegen from the command line.
//
// Grounded on the teacher's cmd/ailang/main.go: stdlib flag parsing,
// version/commit/build-time ldflags vars, and the same colored
// subcommand-dispatch shape.
package main

import (
	"fmt"
	"flag"
	"os"

	"github.com/fatih/color"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"

	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func main() {
	var (
		versionFlag = flag.Bool("version", false, "Print version information")
		helpFlag    = flag.Bool("help", false, "Show help")
		jsonFlag    = flag.Bool("json", false, "Emit diagnostics as JSON")
		backendFlag = flag.String("backend", "textir", "Codegen backend: textir or cranelift")
		optFlag     = flag.Int("opt", 0, "Optimization level (0-3)")
		workersFlag = flag.Int("workers", 1, "Number of CGU compile workers")
	)

	flag.Parse()

	if *versionFlag {
		printVersion()
		return
	}
	if *helpFlag || flag.NArg() == 0 {
		printHelp()
		return
	}

	command := flag.Arg(0)
	switch command {
	case "check":
		if flag.NArg() < 2 {
			usageError("check", "tmlc check <sample>")
		}
		checkCommand(flag.Arg(1), *jsonFlag)

	case "build":
		if flag.NArg() < 2 {
			usageError("build", "tmlc build <sample> [--backend=textir|cranelift] [--opt=N] [--workers=N]")
		}
		buildCommand(flag.Arg(1), *backendFlag, *optFlag, *workersFlag)

	case "mir-dump":
		if flag.NArg() < 2 {
			usageError("mir-dump", "tmlc mir-dump <file.mir|file.mirb>")
		}
		mirDumpCommand(flag.Arg(1))

	case "mir-roundtrip":
		if flag.NArg() < 2 {
			usageError("mir-roundtrip", "tmlc mir-roundtrip <file.mir|file.mirb>")
		}
		mirRoundtripCommand(flag.Arg(1))

	case "mono-stats":
		if flag.NArg() < 2 {
			usageError("mono-stats", "tmlc mono-stats <sample>")
		}
		monoStatsCommand(flag.Arg(1))

	case "mir-repl":
		if flag.NArg() < 2 {
			usageError("mir-repl", "tmlc mir-repl <file.mir|file.mirb>")
		}
		replCommand(flag.Arg(1))

	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", red("Error"), command)
		printHelp()
		os.Exit(1)
	}
}

func usageError(command, usage string) {
	fmt.Fprintf(os.Stderr, "%s: missing argument for %s\n", red("Error"), command)
	fmt.Println("Usage:", usage)
	os.Exit(1)
}

func printVersion() {
	fmt.Printf("tmlc %s\n", bold(Version))
	if Commit != "unknown" {
		fmt.Printf("Commit: %s\n", Commit)
	}
	if BuildTime != "unknown" {
		fmt.Printf("Built:  %s\n", BuildTime)
	}
}

func printHelp() {
	fmt.Println(bold("tmlc - the TML core compiler exerciser"))
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  tmlc <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Printf("  %s <sample>          Type-check and borrow-check a built-in sample program\n", cyan("check"))
	fmt.Printf("  %s <sample>          Check, monomorphize, lower, and codegen a sample program\n", cyan("build"))
	fmt.Printf("  %s <file>         Print a .mir/.mirb file as text MIR\n", cyan("mir-dump"))
	fmt.Printf("  %s <file>    Round-trip a MIR file through its binary/text codec\n", cyan("mir-roundtrip"))
	fmt.Printf("  %s <sample>        Print monomorphization instantiation counts for a sample\n", cyan("mono-stats"))
	fmt.Printf("  %s <file>         Load a MIR file into the interactive inspector\n", cyan("mir-repl"))
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --version        Print version information")
	fmt.Println("  --help           Show this help message")
	fmt.Println("  --json           Emit diagnostics as JSON (check)")
	fmt.Println("  --backend        textir or cranelift (build)")
	fmt.Println("  --opt            Optimization level 0-3 (build)")
	fmt.Println("  --workers        CGU compile worker count (build)")
	fmt.Println()
	fmt.Println("Sample programs:", listSampleNames())
}
