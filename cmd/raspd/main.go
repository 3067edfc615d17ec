// raspd is a long-lived worker process that compiles and runs rasp source
// over stdin/stdout: one JSON request per line in, one JSON response per
// line out. It exists so a language server (or any other tool) can reuse
// a warm process instead of paying process-startup cost per request.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/chazu/rasp/internal/compile"
	"github.com/chazu/rasp/internal/diagnostics"
	"github.com/chazu/rasp/internal/engine"
	"github.com/chazu/rasp/internal/natives"
)

// request is a single line of stdin input.
type request struct {
	ID     string   `json:"id"`
	Op     string   `json:"op"` // "compile" or "run"
	Source string   `json:"source"`
	Args   []string `json:"args,omitempty"`
}

// response is a single line of stdout output.
type response struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"` // "ok" or "error"
	Diagnostics []string `json:"diagnostics,omitempty"`
	Stdout      string   `json:"stdout,omitempty"`
	ExitCode    int      `json:"exit_code,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func main() {
	w := NewWorker()
	defer w.Stop()

	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	enc := json.NewEncoder(out)

	for in.Scan() {
		line := in.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			enc.Encode(response{Status: "error", Error: fmt.Sprintf("malformed request: %v", err)})
			out.Flush()
			continue
		}

		resp := w.Do(func() response { return handle(req) })
		resp.ID = req.ID
		enc.Encode(resp)
		out.Flush()
	}
}

func handle(req request) response {
	switch req.Op {
	case "compile":
		return handleCompile(req)
	case "run":
		return handleRun(req)
	default:
		return response{Status: "error", Error: fmt.Sprintf("unknown op %q", req.Op)}
	}
}

// handleCompile runs the pipeline through emission only, reporting
// diagnostics but never executing the result. This is what a language
// server's save/change hook wants.
func handleCompile(req request) response {
	if _, _, err := compile.Program(req.Source); err != nil {
		return response{Status: "error", Diagnostics: []string{err.Error()}}
	}
	return response{Status: "ok"}
}

// handleRun compiles and executes req.Source, capturing native stdout
// output into the response.
func handleRun(req request) response {
	bc, declOrder, err := compile.Program(req.Source)
	if err != nil {
		return response{Status: "error", Diagnostics: []string{err.Error()}}
	}

	var stdout bytes.Buffer
	table, err := natives.BuildTable(declOrder, &stdout)
	if err != nil {
		return response{Status: "error", Error: err.Error()}
	}

	argv := append([]string{"raspd"}, req.Args...)
	e, status, err := engine.New(bc, table, engine.DefaultConfig(), argv)
	if err != nil {
		return response{Status: "error", Error: err.Error()}
	}
	if status != diagnostics.Ok {
		return response{Status: "error", ExitCode: int(status)}
	}

	final := e.Run()
	st := "ok"
	if final != diagnostics.Ok {
		st = "error"
	}
	return response{Status: st, Stdout: stdout.String(), ExitCode: int(final.ExitCode())}
}
