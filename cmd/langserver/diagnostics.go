package main

import (
	"regexp"
	"strconv"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/rasp/internal/emitter"
	"github.com/chazu/rasp/internal/frontend"
	"github.com/chazu/rasp/internal/lowering"
)

var errorSeverity = protocol.DiagnosticSeverityError

// posPrefix matches the "line:col: " prefix every frontend error carries.
var posPrefix = regexp.MustCompile(`^(\d+):(\d+): (.*)$`)

// publish runs the compile pipeline over text and republishes the
// resulting set of diagnostics for uri, clearing them on success.
func (s *server) publish(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diags := diagnose(text)
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}

// diagnose runs frontend parsing, name/arity checking, lowering, and
// emission over src, reporting every checker error individually (so a
// file with three undefined names gets three diagnostics, not one). It
// stops at emission: this server never runs a VM. internal/compile's
// single-error Program isn't used here for that reason.
func diagnose(src string) []protocol.Diagnostic {
	prog, err := frontend.ParseProgram(src)
	if err != nil {
		return []protocol.Diagnostic{diagnosticFor(err.Error())}
	}

	if errs := frontend.NewChecker().Check(prog); len(errs) != 0 {
		out := make([]protocol.Diagnostic, 0, len(errs))
		for _, e := range errs {
			out = append(out, diagnosticFor(e.Error()))
		}
		return out
	}

	full, err := lowering.Lower(prog)
	if err != nil {
		return []protocol.Diagnostic{diagnosticFor(err.Error())}
	}
	if _, err := emitter.Emit(full); err != nil {
		return []protocol.Diagnostic{diagnosticFor(err.Error())}
	}
	return []protocol.Diagnostic{}
}

// diagnosticFor turns a "line:col: message" error string into an LSP
// diagnostic at that position. Errors lacking the prefix (e.g. a lowering
// or emission invariant violation with no source position) land at 0,0.
func diagnosticFor(msg string) protocol.Diagnostic {
	line, col, text := 0, 0, msg
	if m := posPrefix.FindStringSubmatch(msg); m != nil {
		line, _ = strconv.Atoi(m[1])
		col, _ = strconv.Atoi(m[2])
		text = m[3]
		if line > 0 {
			line--
		}
		if col > 0 {
			col--
		}
	}
	pos := protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
	return protocol.Diagnostic{
		Range:    protocol.Range{Start: pos, End: pos},
		Severity: &errorSeverity,
		Source:   strPtr(serverName),
		Message:  text,
	}
}

func strPtr(s string) *string { return &s }
