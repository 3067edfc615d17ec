// Package compile wires the frontend, lowering, and emitter packages into
// the single pipeline that cmd/rasp and cmd/raspd drive: source text in,
// a bytecode.Program plus its declared native names out. cmd/langserver
// runs the same stages itself so it can report every error it finds.
package compile

import (
	"fmt"

	"github.com/chazu/rasp/internal/bytecode"
	"github.com/chazu/rasp/internal/emitter"
	"github.com/chazu/rasp/internal/frontend"
	"github.com/chazu/rasp/internal/lowering"
)

// Program runs the full pipeline over src. The returned []string is the
// name of every `native fun` declaration, in source-declaration order,
// which is also the order lowering assigned native_call ids in.
func Program(src string) (bytecode.Program, []string, error) {
	prog, err := frontend.ParseProgram(src)
	if err != nil {
		return bytecode.Program{}, nil, fmt.Errorf("parse: %w", err)
	}
	if errs := frontend.NewChecker().Check(prog); len(errs) != 0 {
		return bytecode.Program{}, nil, fmt.Errorf("check: %d error(s), first: %v", len(errs), errs[0])
	}

	var declOrder []string
	for _, d := range prog.Decls {
		if nd, ok := d.(frontend.NativeDecl); ok {
			declOrder = append(declOrder, nd.Name)
		}
	}

	full, err := lowering.Lower(prog)
	if err != nil {
		return bytecode.Program{}, nil, fmt.Errorf("lowering: %w", err)
	}
	bc, err := emitter.Emit(full)
	if err != nil {
		return bytecode.Program{}, nil, fmt.Errorf("emission: %w", err)
	}
	return bc, declOrder, nil
}
