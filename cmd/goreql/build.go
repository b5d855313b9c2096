package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sandrolain/goreql/pkg/metrics"
	"github.com/sandrolain/goreql/pkg/ql2"
	"github.com/sandrolain/goreql/pkg/reql"
	"github.com/sandrolain/goreql/pkg/wire"
)

type buildFlags struct {
	db        string
	table     string
	pretty    bool
	debugForm bool
}

func newBuildCmd(a *app) *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "build <cel>",
		Short: "Translate a CEL predicate into a wire term",
		Example: `  goreql build 'row.age > 25'
  goreql build 'row.tags.exists(t, t == "go")' --db app --table posts --pretty`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.build(cmd.OutOrStdout(), args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.db, "db", "", "database of the filtered table")
	cmd.Flags().StringVar(&f.table, "table", "", "wrap the predicate in a filter over this table")
	cmd.Flags().BoolVar(&f.pretty, "pretty", false, "indent the JSON output")
	cmd.Flags().BoolVar(&f.debugForm, "debug-form", false, "print the debug form instead of JSON")
	addCompilerFlags(cmd)
	return cmd
}

func (a *app) build(w io.Writer, src string, f buildFlags) error {
	fn, err := a.compiler().Translate(src)
	if err != nil {
		return err
	}

	var out *reql.Builder
	switch {
	case f.table == "":
		out = fn
	case f.db == "":
		out = reql.Call(ql2.TermTable, f.table).Filter(fn)
	default:
		out = reql.DB(f.db).Table(f.table).Filter(fn)
	}

	counted := out.ReleaseCounted()
	defer counted.Drop()
	term := counted.Term()
	a.logger.Debug("term built", "handoff", counted.ID(), "nodes", term.Size())
	metrics.ObserveHandoff("counted", term.Size())

	if f.debugForm {
		_, err := fmt.Fprintln(w, term.String())
		return err
	}
	data, err := wire.Encode(term, f.pretty)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
