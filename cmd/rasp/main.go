// rasp is the command-line driver for the toolchain: run compiles and
// executes a source file directly, build emits a compiled .rbc file, and
// exec runs an already-compiled .rbc file. Exit codes follow the
// diagnostics.Status taxonomy (ok -> 0, else nonzero).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/chazu/rasp/internal/bytecode"
	"github.com/chazu/rasp/internal/compile"
	"github.com/chazu/rasp/internal/config"
	"github.com/chazu/rasp/internal/diagnostics"
	"github.com/chazu/rasp/internal/engine"
	"github.com/chazu/rasp/internal/natives"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("rasp: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "build":
		os.Exit(cmdBuild(os.Args[2:]))
	case "exec":
		os.Exit(cmdExec(os.Args[2:]))
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: rasp <run|build|exec> [options] file\n\n")
	fmt.Fprintf(os.Stderr, "  rasp run file.rasp                compile and execute directly\n")
	fmt.Fprintf(os.Stderr, "  rasp build -o out.rbc file.rasp   emit a compiled program\n")
	fmt.Fprintf(os.Stderr, "  rasp exec out.rbc                 execute a compiled program\n")
}

func engineConfig() engine.Config {
	cfg, err := config.FindAndLoad(".")
	if err != nil {
		log.Printf("warning: ignoring rasp.toml (%v)", err)
		return engine.DefaultConfig()
	}
	if cfg == nil {
		return engine.DefaultConfig()
	}
	return engine.Config{
		RegBufferLimit: cfg.VM.RegBufferLimit,
		CallFrameMax:   cfg.VM.CallFrameMax,
		GCThreshold:    cfg.VM.GCThreshold,
	}
}

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: rasp run file.rasp")
		return 2
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		log.Printf("%v", err)
		return int(diagnostics.SetupError)
	}

	bc, declOrder, err := compile.Program(string(data))
	if err != nil {
		log.Printf("%v", err)
		return int(diagnostics.SetupError)
	}

	table, err := natives.BuildTable(declOrder, os.Stdout)
	if err != nil {
		log.Printf("%v", err)
		return int(diagnostics.SetupError)
	}

	e, status, err := engine.New(bc, table, engineConfig(), os.Args)
	if err != nil {
		log.Printf("%v", err)
		return int(diagnostics.SetupError)
	}
	if status != diagnostics.Ok {
		return int(status)
	}
	return int(e.Run().ExitCode())
}

func cmdBuild(args []string) int {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	out := fs.String("o", "", "output .rbc path (required)")
	fs.Parse(args)
	if fs.NArg() != 1 || *out == "" {
		fmt.Fprintln(os.Stderr, "Usage: rasp build -o out.rbc file.rasp")
		return 2
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		log.Printf("%v", err)
		return int(diagnostics.SetupError)
	}

	bc, _, err := compile.Program(string(data))
	if err != nil {
		log.Printf("%v", err)
		return int(diagnostics.SetupError)
	}

	blob, err := bytecode.Marshal(bc)
	if err != nil {
		log.Printf("marshal: %v", err)
		return int(diagnostics.SetupError)
	}
	if err := os.WriteFile(*out, blob, 0o644); err != nil {
		log.Printf("%v", err)
		return int(diagnostics.SetupError)
	}
	return 0
}

func cmdExec(args []string) int {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: rasp exec out.rbc")
		return 2
	}

	blob, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		log.Printf("%v", err)
		return int(diagnostics.SetupError)
	}
	bc, err := bytecode.Unmarshal(blob)
	if err != nil {
		log.Printf("unmarshal: %v", err)
		return int(diagnostics.SetupError)
	}

	// A compiled .rbc carries no record of which native names its
	// native_call ids refer to, so exec wires up every known builtin in
	// the fixed order natives.MustBuildAll uses. Programs whose
	// native ids were assigned against a different declaration order at
	// build time will resolve to the wrong procedure; build and exec are
	// expected to run against the same source tree.
	table := natives.MustBuildAll(os.Stdout)

	e, status, err := engine.New(bc, table, engineConfig(), os.Args)
	if err != nil {
		log.Printf("%v", err)
		return int(diagnostics.SetupError)
	}
	if status != diagnostics.Ok {
		return int(status)
	}
	return int(e.Run().ExitCode())
}
