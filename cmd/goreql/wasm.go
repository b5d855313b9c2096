package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sandrolain/goreql/pkg/wasmhost"
)

func newWasmCmd(a *app) *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "wasm [module.wasm] <cel>",
		Short: "Translate a predicate with the WASI build of goreql",
		Long: `Run the WASI build (cmd/wasm/wasi) in-process with wazero. The module
path defaults to the wasm.module configuration key.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, src := a.cfg.Wasm.Module, args[0]
			if len(args) == 2 {
				module, src = args[0], args[1]
			}
			return a.wasm(cmd, module, src, f)
		},
	}
	cmd.Flags().StringVar(&f.db, "db", "", "database of the filtered table")
	cmd.Flags().StringVar(&f.table, "table", "", "wrap the predicate in a filter over this table")
	cmd.Flags().BoolVar(&f.debugForm, "debug-form", false, "print the debug form instead of JSON")
	return cmd
}

func (a *app) wasm(cmd *cobra.Command, module, src string, f buildFlags) error {
	ctx := cmd.Context()
	r, err := wasmhost.Load(ctx, module, wasmhost.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer r.Close(ctx)

	resp, err := r.Filter(ctx, wasmhost.Request{Source: src, DB: f.db, Table: f.table})
	if err != nil {
		return err
	}
	return printResponse(cmd.OutOrStdout(), resp, f.debugForm)
}

func printResponse(w io.Writer, resp *wasmhost.Response, debugForm bool) error {
	if debugForm {
		_, err := fmt.Fprintln(w, resp.Debug)
		return err
	}
	_, err := fmt.Fprintln(w, string(resp.Term))
	return err
}
