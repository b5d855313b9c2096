//go:build js && wasm

// Command goreql-wasm-js is the WebAssembly entrypoint for browser and Node.js.
//
// It exposes a global `goreql` object with the following API:
//
//	goreql.version()                     → string
//	goreql.filter(source, db?, table?)   → wireJSON  (throws on error)
//	goreql.debug(wireJSON)               → string    (throws on error)
//	goreql.compiler(options?)            → { compile(source) → wireJSON }
//
// options is a JSON string: {"row": "doc", "maxDepth": 32}.
//
// Build:
//
//	GOOS=js GOARCH=wasm go build -o goreql.wasm ./cmd/wasm/js/
//
// Usage in browser:
//
//	<script src="wasm_exec.js"></script>
//	<script>
//	  const go = new Go()
//	  WebAssembly.instantiateStreaming(fetch('goreql.wasm'), go.importObject)
//	    .then(r => { go.run(r.instance); console.log(goreql.filter('row.age > 25', 'app', 'users')) })
//	</script>
package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/sandrolain/goreql"
	"github.com/sandrolain/goreql/pkg/celql"
)

// jsThrow panics with a JS Error so the caller receives a thrown exception.
func jsThrow(msg string) {
	panic(js.Global().Get("Error").New(msg))
}

func optString(args []js.Value, i int) string {
	if len(args) <= i || args[i].IsUndefined() || args[i].IsNull() {
		return ""
	}
	return args[i].String()
}

// jsFilter implements goreql.filter(source, db?, table?) → wireJSON.
func jsFilter(_ js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		jsThrow("goreql.filter requires at least 1 argument: source (string)")
	}
	term, err := goreql.Filter(args[0].String(), optString(args, 1), optString(args, 2))
	if err != nil {
		jsThrow(fmt.Sprintf("goreql.filter: %v", err))
	}
	out, err := goreql.Encode(term)
	if err != nil {
		jsThrow(fmt.Sprintf("goreql.filter: encode: %v", err))
	}
	return string(out)
}

// jsDebug implements goreql.debug(wireJSON) → debug form.
func jsDebug(_ js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		jsThrow("goreql.debug requires 1 argument: wire term (JSON string)")
	}
	term, err := goreql.Decode([]byte(args[0].String()))
	if err != nil {
		jsThrow(fmt.Sprintf("goreql.debug: %v", err))
	}
	return term.String()
}

type compilerOptions struct {
	Row      string `json:"row"`
	MaxDepth int    `json:"maxDepth"`
}

// jsCompiler implements goreql.compiler(options?) → { compile(source) → wireJSON }.
func jsCompiler(_ js.Value, args []js.Value) interface{} {
	opts := []celql.Option{celql.WithCaching(true)}
	if raw := optString(args, 0); raw != "" {
		var co compilerOptions
		if err := json.Unmarshal([]byte(raw), &co); err != nil {
			jsThrow(fmt.Sprintf("goreql.compiler: invalid options JSON: %v", err))
		}
		if co.Row != "" {
			opts = append(opts, celql.WithRowName(co.Row))
		}
		if co.MaxDepth > 0 {
			opts = append(opts, celql.WithMaxDepth(co.MaxDepth))
		}
	}
	c := celql.New(opts...)

	compileFn := js.FuncOf(func(_ js.Value, inner []js.Value) interface{} {
		if len(inner) < 1 {
			jsThrow("compiler.compile requires 1 argument: source (string)")
		}
		term, err := c.Compile(inner[0].String())
		if err != nil {
			jsThrow(fmt.Sprintf("compiler.compile: %v", err))
		}
		out, err := goreql.Encode(term)
		if err != nil {
			jsThrow(fmt.Sprintf("compiler.compile: encode: %v", err))
		}
		return string(out)
	})

	return js.ValueOf(map[string]interface{}{"compile": compileFn})
}

func main() {
	api := map[string]interface{}{
		"filter":   js.FuncOf(jsFilter),
		"debug":    js.FuncOf(jsDebug),
		"compiler": js.FuncOf(jsCompiler),
		"version": js.FuncOf(func(_ js.Value, _ []js.Value) interface{} {
			return goreql.Version()
		}),
	}
	js.Global().Set("goreql", js.ValueOf(api))

	// Block forever: the JS event loop owns execution from here.
	select {}
}
