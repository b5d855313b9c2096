// Package wasmhost runs the WASI build of goreql (cmd/wasm/wasi) in-process
// with wazero.
//
// The module is compiled once by New and instantiated afresh for every
// request, speaking the module's stdin/stdout JSON protocol. A Runner is safe
// for concurrent use.
//
// # Example
//
//	r, err := wasmhost.Load(ctx, "goreql.wasm")
//	if err != nil {
//	    return err
//	}
//	defer r.Close(ctx)
//	resp, err := r.Filter(ctx, wasmhost.Request{Source: "row.age > 25", Table: "users"})
package wasmhost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/sandrolain/goreql/pkg/ql2"
)

// Request is the module input.
type Request struct {
	Source string `json:"source"`
	DB     string `json:"db,omitempty"`
	Table  string `json:"table,omitempty"`
}

// Response is the module output.
type Response struct {
	Term  json.RawMessage `json:"term,omitempty"`
	Debug string          `json:"debug,omitempty"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

// Options configures a Runner.
type Options struct {
	// Timeout bounds a single module run. Zero means no limit beyond ctx.
	Timeout time.Duration
	// Logger for structured logging.
	Logger *slog.Logger
}

// Option configures a Runner.
type Option func(*Options)

// WithTimeout sets the per-run timeout.
func WithTimeout(d time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// Runner executes a compiled goreql WASI module.
type Runner struct {
	opts     Options
	logger   *slog.Logger
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
}

func moduleError(msg string, err error) *ql2.Error {
	return ql2.NewError(ql2.ErrWasmModuleFailed, msg, -1).WithCause(err)
}

// New compiles the module in wasm.
func New(ctx context.Context, wasm []byte, opts ...Option) (*Runner, error) {
	options := Options{Timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, moduleError("instantiating WASI", err)
	}
	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, moduleError("compiling module", err)
	}

	return &Runner{
		opts:     options,
		logger:   options.Logger,
		runtime:  rt,
		compiled: compiled,
	}, nil
}

// Load reads and compiles the module at path.
func Load(ctx context.Context, path string, opts ...Option) (*Runner, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, moduleError(fmt.Sprintf("reading %s", path), err)
	}
	return New(ctx, wasm, opts...)
}

// Filter runs the module once for req. A translation failure reported by the
// module is returned as a *ql2.Error carrying the module's error code.
func (r *Runner) Filter(ctx context.Context, req Request) (*Response, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	in, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var stdout, stderr bytes.Buffer
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithArgs("goreql").
		WithStdin(bytes.NewReader(in)).
		WithStdout(&stdout).
		WithStderr(&stderr)

	start := time.Now()
	mod, runErr := r.runtime.InstantiateModule(ctx, r.compiled, cfg)
	if mod != nil {
		_ = mod.Close(ctx)
	}
	exitCode := uint32(0)
	var exitErr *sys.ExitError
	if errors.As(runErr, &exitErr) {
		exitCode = exitErr.ExitCode()
	} else if runErr != nil {
		return nil, moduleError("running module", runErr)
	}
	r.logger.Debug("wasmhost: module run", "exit_code", exitCode, "duration", time.Since(start))

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, moduleError(fmt.Sprintf("decoding module output (exit code %d, stderr %q)", exitCode, stderr.String()), err)
	}
	if exitCode != 0 || resp.Error != "" {
		if resp.Code != "" {
			return &resp, ql2.NewError(ql2.ErrorCode(resp.Code), resp.Error, -1)
		}
		return &resp, ql2.NewError(ql2.ErrWasmModuleFailed, resp.Error, -1)
	}
	return &resp, nil
}

// Close releases the runtime and the compiled module.
func (r *Runner) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}
