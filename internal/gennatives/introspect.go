// Package gennatives introspects a Go package for functions matching the
// native procedure ABI (func(*engine.Engine, int16) bool, §6) and
// generates a registration table for them, the rasp-domain counterpart of
// the teacher's gowrap package.
package gennatives

import (
	"fmt"
	"go/types"
	"sort"

	"golang.org/x/tools/go/packages"
)

// NativeFunc describes one exported function whose signature matches the
// native ABI.
type NativeFunc struct {
	Name string
	Doc  string
}

const (
	engineTypeName = "github.com/chazu/rasp/internal/engine.Engine"
)

// Introspect loads importPath and returns every exported function whose
// signature is exactly func(*engine.Engine, int16) bool, sorted by name.
func Introspect(importPath string) (pkgName string, fns []NativeFunc, err error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes | packages.NeedSyntax | packages.NeedTypesInfo,
	}

	pkgs, err := packages.Load(cfg, importPath)
	if err != nil {
		return "", nil, fmt.Errorf("loading %s: %w", importPath, err)
	}
	if len(pkgs) == 0 {
		return "", nil, fmt.Errorf("no packages found for %s", importPath)
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return "", nil, fmt.Errorf("package errors: %v", pkg.Errors)
	}
	if pkg.Types == nil {
		return "", nil, fmt.Errorf("type information not available for %s", importPath)
	}

	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		obj := scope.Lookup(name)
		fn, ok := obj.(*types.Func)
		if !ok || !fn.Exported() {
			continue
		}
		sig, ok := fn.Type().(*types.Signature)
		if !ok || sig.Recv() != nil {
			continue
		}
		if !isNativeSignature(sig) {
			continue
		}
		fns = append(fns, NativeFunc{Name: fn.Name()})
	}

	sort.Slice(fns, func(i, j int) bool { return fns[i].Name < fns[j].Name })
	return pkg.Name, fns, nil
}

// isNativeSignature reports whether sig matches func(*engine.Engine,
// int16) bool, the shape engine.NativeProc requires.
func isNativeSignature(sig *types.Signature) bool {
	params := sig.Params()
	results := sig.Results()
	if params.Len() != 2 || results.Len() != 1 {
		return false
	}

	ptr, ok := params.At(0).Type().(*types.Pointer)
	if !ok {
		return false
	}
	named, ok := ptr.Elem().(*types.Named)
	if !ok || qualifiedName(named) != engineTypeName {
		return false
	}

	argc, ok := params.At(1).Type().(*types.Basic)
	if !ok || argc.Kind() != types.Int16 {
		return false
	}

	ret, ok := results.At(0).Type().(*types.Basic)
	return ok && ret.Kind() == types.Bool
}

func qualifiedName(named *types.Named) string {
	obj := named.Obj()
	if obj.Pkg() == nil {
		return obj.Name()
	}
	return obj.Pkg().Path() + "." + obj.Name()
}
