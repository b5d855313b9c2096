//go:build wasip1

// Command goreql-wasm-wasi is the WASI (wasip1) entrypoint for use from any
// language that supports the WebAssembly System Interface.
//
// Protocol: single JSON object on stdin → single JSON object on stdout.
//
//	stdin:  { "source": "<cel predicate>", "db": "<name>", "table": "<name>" }
//	stdout: { "term": <wire term>, "debug": "<debug form>" }   on success
//	        { "error": "<message>", "code": "<code>" }          on failure (exit code 1)
//
// db and table are optional.
//
// Build:
//
//	GOOS=wasip1 GOARCH=wasm go build -o goreql.wasm ./cmd/wasm/wasi/
//
// Usage with wasmtime CLI:
//
//	echo '{"source":"row.age > 25","table":"users"}' | wasmtime goreql.wasm
//
// The goreql CLI runs the same module in-process: goreql wasm goreql.wasm 'row.age > 25'.
package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/sandrolain/goreql"
	"github.com/sandrolain/goreql/pkg/ql2"
)

type request struct {
	Source string `json:"source"`
	DB     string `json:"db,omitempty"`
	Table  string `json:"table,omitempty"`
}

type response struct {
	Term  json.RawMessage `json:"term,omitempty"`
	Debug string          `json:"debug,omitempty"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

func writeResponse(r response, exitCode int) {
	_ = json.NewEncoder(os.Stdout).Encode(r)
	os.Exit(exitCode)
}

func fail(err error) {
	r := response{Error: err.Error()}
	var qerr *ql2.Error
	if errors.As(err, &qerr) {
		r.Code = string(qerr.Code)
	}
	writeResponse(r, 1)
}

func main() {
	var req request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(response{Error: "invalid request JSON: " + err.Error()}, 1)
	}

	term, err := goreql.Filter(req.Source, req.DB, req.Table)
	if err != nil {
		fail(err)
	}
	data, err := goreql.Encode(term)
	if err != nil {
		fail(err)
	}

	writeResponse(response{Term: data, Debug: term.String()}, 0)
}
