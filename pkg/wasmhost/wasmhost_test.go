package wasmhost_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/sandrolain/goreql/pkg/ql2"
	"github.com/sandrolain/goreql/pkg/wasmhost"
)

// modulePath returns the WASI build to test against, skipping when it has
// not been built:
//
//	GOOS=wasip1 GOARCH=wasm go build -o goreql.wasm ./cmd/wasm/wasi/
//	GOREQL_WASM_MODULE=$PWD/goreql.wasm go test ./pkg/wasmhost/
func modulePath(t *testing.T) string {
	t.Helper()
	path := os.Getenv("GOREQL_WASM_MODULE")
	if path == "" {
		t.Skip("GOREQL_WASM_MODULE not set")
	}
	if _, err := os.Stat(path); err != nil {
		t.Skipf("module not available: %v", err)
	}
	return path
}

func TestNewRejectsInvalidModule(t *testing.T) {
	_, err := wasmhost.New(context.Background(), []byte("not a wasm module"))
	var qerr *ql2.Error
	if !errors.As(err, &qerr) || qerr.Code != ql2.ErrWasmModuleFailed {
		t.Fatalf("expected %s, got %v", ql2.ErrWasmModuleFailed, err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := wasmhost.Load(context.Background(), "/nonexistent/goreql.wasm")
	var qerr *ql2.Error
	if !errors.As(err, &qerr) || qerr.Code != ql2.ErrWasmModuleFailed {
		t.Fatalf("expected %s, got %v", ql2.ErrWasmModuleFailed, err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped os.ErrNotExist, got %v", err)
	}
}

func TestRunnerFilter(t *testing.T) {
	ctx := context.Background()
	r, err := wasmhost.Load(ctx, modulePath(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer r.Close(ctx)

	resp, err := r.Filter(ctx, wasmhost.Request{Source: "row.age > 25", DB: "app", Table: "users"})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	want := `FILTER(TABLE(DB("app"), "users"), FUNC(MAKE_ARRAY(1), GT(GET_FIELD(VAR(1), "age"), 25)))`
	if resp.Debug != want {
		t.Fatalf("expected %s, got %s", want, resp.Debug)
	}
	if len(resp.Term) == 0 {
		t.Fatal("expected wire term in response")
	}
}

func TestRunnerFilterError(t *testing.T) {
	ctx := context.Background()
	r, err := wasmhost.Load(ctx, modulePath(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer r.Close(ctx)

	_, err = r.Filter(ctx, wasmhost.Request{Source: "row.age >"})
	var qerr *ql2.Error
	if !errors.As(err, &qerr) || qerr.Code != ql2.ErrCELSyntax {
		t.Fatalf("expected %s, got %v", ql2.ErrCELSyntax, err)
	}
}
