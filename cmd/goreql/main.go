// Command goreql translates CEL predicates into query terms, checks wire
// terms and serves both operations over HTTP.
//
//	goreql build 'row.age > 25' --db app --table users
//	goreql check term.json
//	goreql repl
//	goreql batch predicates.txt --workers 4
//	goreql serve --addr :8080
//	goreql wasm goreql.wasm 'row.age > 25'
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sandrolain/goreql"
	"github.com/sandrolain/goreql/internal/config"
	"github.com/sandrolain/goreql/internal/logger"
	"github.com/sandrolain/goreql/pkg/celql"
)

// flagKeys binds config keys to the flags that override them.
var flagKeys = map[string]string{
	"log.level":           "log-level",
	"log.format":          "log-format",
	"compiler.row":        "row",
	"compiler.max_depth":  "max-depth",
	"compiler.cache_size": "cache-size",
	"server.addr":         "addr",
	"batch.workers":       "workers",
}

// app carries state shared by all subcommands.
type app struct {
	cfgPath string
	cfg     *config.Config
	logger  *slog.Logger
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	flags := make(map[string]*pflag.Flag, len(flagKeys))
	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			flags[key] = f
		}
	}
	cfg, err := config.Load(a.cfgPath, flags)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.Init(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	return nil
}

func (a *app) compiler() *celql.Compiler {
	return celql.New(a.cfg.CompilerOptions(a.logger)...)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "goreql",
		Short:             "Build and check ReQL-style query terms",
		Version:           goreql.Version(),
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default ./goreql.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "text", "log format: text, json")

	root.AddCommand(
		newBuildCmd(a),
		newCheckCmd(a),
		newReplCmd(a),
		newBatchCmd(a),
		newServeCmd(a),
		newWasmCmd(a),
	)
	return root
}

// addCompilerFlags registers the flags overriding the compiler section.
func addCompilerFlags(cmd *cobra.Command) {
	cmd.Flags().String("row", "row", "identifier the document is bound to")
	cmd.Flags().Int("max-depth", 64, "maximum expression depth")
	cmd.Flags().Int("cache-size", 256, "term cache size (0 disables caching)")
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
