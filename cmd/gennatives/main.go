// gennatives scans a Go package for functions matching the native
// procedure ABI (func(*engine.Engine, int16) bool) and writes a generated
// source file that registers them into an engine.NativeTable.
//
// Usage:
//
//	gennatives [-o file] [-pkg name] <import-path>
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/chazu/rasp/internal/gennatives"
)

func main() {
	out := flag.String("o", "", "output file (default: <short-pkg-name>_natives.go)")
	genPkg := flag.String("pkg", "", "package name for the generated file (default: inferred)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gennatives [-o file] [-pkg name] <import-path>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	importPath := flag.Arg(0)

	pkgName, fns, err := gennatives.Introspect(importPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gennatives: %v\n", err)
		os.Exit(1)
	}
	if len(fns) == 0 {
		fmt.Fprintf(os.Stderr, "gennatives: no native-shaped functions found in %s\n", importPath)
		os.Exit(1)
	}

	genPackage := *genPkg
	if genPackage == "" {
		genPackage = pkgName
	}

	code, err := gennatives.GenerateTable(importPath, genPackage, fns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gennatives: %v\n", err)
		os.Exit(1)
	}

	outPath := *out
	if outPath == "" {
		outPath = sanitize(pkgName) + "_natives.go"
	}
	if err := os.WriteFile(outPath, []byte(code), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "gennatives: writing %s: %v\n", outPath, err)
		os.Exit(1)
	}

	fmt.Printf("wrote %d native(s) to %s\n", len(fns), outPath)
}

func sanitize(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
