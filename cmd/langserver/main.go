// langserver is a diagnostics-only LSP server: on open/change it runs the
// frontend/lowering/emission pipeline over the document and republishes
// whatever errors surface. It never touches a running VM — the protocol
// this tool speaks stops at static compile diagnostics (§4, Non-goals).
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"
)

const serverName = "rasp-langserver"

func main() {
	commonlog.Configure(1, nil)

	srv := newServer()
	if err := srv.Run(); err != nil {
		os.Exit(1)
	}
}

type server struct {
	docs      map[protocol.DocumentUri]string
	handler   protocol.Handler
	glsp      *glspserver.Server
	version   string
	sessionID string
}

func newServer() *server {
	s := &server{
		docs:      make(map[protocol.DocumentUri]string),
		version:   "0.1.0",
		sessionID: uuid.NewString(),
	}
	s.handler = protocol.Handler{
		Initialize:            s.initialize,
		Initialized:           s.initialized,
		Shutdown:              s.shutdown,
		TextDocumentDidOpen:   s.didOpen,
		TextDocumentDidChange: s.didChange,
		TextDocumentDidClose:  s.didClose,
	}
	s.glsp = glspserver.NewServer(&s.handler, serverName, false)
	return s
}

func (s *server) Run() error {
	return s.glsp.RunStdio()
}

func (s *server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.GetLogger(serverName).Info(fmt.Sprintf("rasp language server initializing (session %s)", s.sessionID))

	caps := s.handler.CreateServerCapabilities()
	syncKind := protocol.TextDocumentSyncKindFull
	caps.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	return protocol.InitializeResult{
		Capabilities: caps,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &s.version,
		},
	}, nil
}

func (s *server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error { return nil }

func (s *server) shutdown(ctx *glsp.Context) error { return nil }

func (s *server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.docs[uri] = params.TextDocument.Text
	s.publish(ctx, uri, params.TextDocument.Text)
	return nil
}

func (s *server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	if len(params.ContentChanges) == 0 {
		return nil
	}
	last := params.ContentChanges[len(params.ContentChanges)-1]
	whole, ok := last.(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return nil
	}
	s.docs[uri] = whole.Text
	s.publish(ctx, uri, whole.Text)
	return nil
}

func (s *server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	delete(s.docs, uri)
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func boolPtr(b bool) *bool { return &b }
