// Package mirrepl is an interactive inspector over a loaded MIR
// module: list its functions, dump one as text MIR, walk a single
// block, or print a struct/enum layout, without re-running the whole
// pipeline for each question.
//
// Grounded on the teacher's internal/repl/repl.go: liner for readline
// history/completion, fatih/color for the same green/red/yellow/dim
// palette, a REPL struct holding mutable session state, and a
// colon-command dispatch loop. Generalized from evaluating TML
// expressions to inspecting an already-lowered mir.Module — there is
// nothing left to evaluate once lowering has happened, only to print.
package mirrepl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/hivellm/tmlc/internal/mir"
	"github.com/hivellm/tmlc/internal/mirio"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

var commands = []string{
	":help", ":quit", ":list", ":dump", ":block", ":struct", ":enum", ":consts",
}

// REPL inspects one loaded mir.Module.
type REPL struct {
	module  *mir.Module
	version string
}

// New returns a REPL over module.
func New(module *mir.Module, version string) *REPL {
	if version == "" {
		version = "dev"
	}
	return &REPL{module: module, version: version}
}

func (r *REPL) prompt() string {
	return fmt.Sprintf("mir[%s]> ", r.module.Name)
}

// Start runs the read-eval-print loop until :quit or EOF, writing to
// out. Input is read from the terminal by liner; in is not read.
func (r *REPL) Start(in io.Reader, out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()

	historyFile := filepath.Join(os.TempDir(), ".tmlc_mir_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	fmt.Fprintf(out, "%s %s\n", bold("tmlc mir-repl"), dim(r.version))
	fmt.Fprintln(out, dim("Type :help for commands, :quit to exit"))
	fmt.Fprintln(out)

	line.SetCompleter(func(text string) (c []string) {
		if strings.HasPrefix(text, ":") {
			for _, cmd := range commands {
				if strings.HasPrefix(cmd, text) {
					c = append(c, cmd)
				}
			}
		}
		return
	})

	for {
		input, err := line.Prompt(r.prompt())
		if err == io.EOF {
			fmt.Fprintln(out, green("\nGoodbye!"))
			break
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if input == ":quit" || input == ":q" || input == ":exit" {
			fmt.Fprintln(out, green("Goodbye!"))
			break
		}
		r.Handle(input, out)
	}

	if f, err := os.Create(historyFile); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

// Handle dispatches a single colon-command and writes its response to out.
func (r *REPL) Handle(input string, out io.Writer) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case ":help":
		r.help(out)
	case ":list":
		r.list(out)
	case ":dump":
		r.dump(fields[1:], out)
	case ":block":
		r.block(fields[1:], out)
	case ":struct":
		r.structDef(fields[1:], out)
	case ":enum":
		r.enumDef(fields[1:], out)
	case ":consts":
		r.consts(out)
	default:
		fmt.Fprintf(out, "%s: unknown command %s (try :help)\n", red("Error"), fields[0])
	}
}

func (r *REPL) help(out io.Writer) {
	fmt.Fprintln(out, bold("Commands:"))
	fmt.Fprintln(out, "  :list              list functions, structs, and enums in the module")
	fmt.Fprintln(out, "  :dump <fn>         print a function's text MIR")
	fmt.Fprintln(out, "  :block <fn> <id>   print a single block of a function")
	fmt.Fprintln(out, "  :struct <name>     print a struct's field layout")
	fmt.Fprintln(out, "  :enum <name>       print an enum's variant layout")
	fmt.Fprintln(out, "  :consts            print module-level constants")
	fmt.Fprintln(out, "  :quit              exit")
}

func (r *REPL) list(out io.Writer) {
	fmt.Fprintln(out, cyan("functions:"))
	names := make([]string, 0, len(r.module.Functions))
	for _, f := range r.module.Functions {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(out, "  %s\n", n)
	}

	fmt.Fprintln(out, cyan("structs:"))
	for _, s := range r.module.Structs {
		fmt.Fprintf(out, "  %s\n", s.Name)
	}
	fmt.Fprintln(out, cyan("enums:"))
	for _, e := range r.module.Enums {
		fmt.Fprintf(out, "  %s\n", e.Name)
	}
}

func (r *REPL) findFunction(name string) *mir.Function {
	for _, f := range r.module.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (r *REPL) dump(args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintf(out, "%s: usage :dump <function>\n", red("Error"))
		return
	}
	fn := r.findFunction(args[0])
	if fn == nil {
		fmt.Fprintf(out, "%s: no function named %s\n", red("Error"), args[0])
		return
	}
	single := &mir.Module{Name: r.module.Name, Functions: []*mir.Function{fn}}
	fmt.Fprint(out, mirio.PrintModule(single))
}

func (r *REPL) block(args []string, out io.Writer) {
	if len(args) != 2 {
		fmt.Fprintf(out, "%s: usage :block <function> <block-id>\n", red("Error"))
		return
	}
	fn := r.findFunction(args[0])
	if fn == nil {
		fmt.Fprintf(out, "%s: no function named %s\n", red("Error"), args[0])
		return
	}
	id, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		fmt.Fprintf(out, "%s: invalid block id %s\n", red("Error"), args[1])
		return
	}
	for _, b := range fn.Blocks {
		if uint64(b.ID) == id {
			fmt.Fprintf(out, "%s %s:\n", yellow(fmt.Sprintf("block %d", b.ID)), b.Label)
			for _, ins := range b.Instructions {
				fmt.Fprintf(out, "  %s\n", ins.Op)
			}
			return
		}
	}
	fmt.Fprintf(out, "%s: no block %d in %s\n", red("Error"), id, args[0])
}

func (r *REPL) structDef(args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintf(out, "%s: usage :struct <name>\n", red("Error"))
		return
	}
	for _, s := range r.module.Structs {
		if s.Name == args[0] {
			fmt.Fprintf(out, "%s {\n", yellow(s.Name))
			for _, f := range s.Fields {
				fmt.Fprintf(out, "  %s: %s\n", f.Name, f.Type)
			}
			fmt.Fprintln(out, "}")
			return
		}
	}
	fmt.Fprintf(out, "%s: no struct named %s\n", red("Error"), args[0])
}

func (r *REPL) enumDef(args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintf(out, "%s: usage :enum <name>\n", red("Error"))
		return
	}
	for _, e := range r.module.Enums {
		if e.Name == args[0] {
			fmt.Fprintf(out, "%s max_payload_words=%d {\n", yellow(e.Name), e.MaxPayloadWords)
			for _, v := range e.Variants {
				fmt.Fprintf(out, "  %s(tag=%d)\n", v.Name, v.Tag)
			}
			fmt.Fprintln(out, "}")
			return
		}
	}
	fmt.Fprintf(out, "%s: no enum named %s\n", red("Error"), args[0])
}

func (r *REPL) consts(out io.Writer) {
	for _, c := range r.module.Consts {
		fmt.Fprintf(out, "%s: %s = %v\n", c.Name, c.Type, c.Value)
	}
}
