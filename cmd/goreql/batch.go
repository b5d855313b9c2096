package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/sandrolain/goreql/pkg/ql2"
	"github.com/sandrolain/goreql/pkg/wire"
)

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [file|-]",
		Short: "Translate one predicate per line concurrently",
		Long: `Translate one predicate per input line and print one JSON object per
predicate, in input order. Blank lines and lines starting with # are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			data, err := readInput(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			return a.batch(cmd, data)
		},
	}
	cmd.Flags().Int("workers", 8, "number of concurrent translations")
	addCompilerFlags(cmd)
	return cmd
}

// batchLine is one output record.
type batchLine struct {
	Line   int             `json:"line"`
	Source string          `json:"source"`
	Term   json.RawMessage `json:"term,omitempty"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

// errBatchFailed is returned when at least one predicate failed.
var errBatchFailed = errors.New("batch: one or more predicates failed")

func (a *app) batch(cmd *cobra.Command, data []byte) error {
	var sources []string
	var lines []int
	sc := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; sc.Scan(); n++ {
		src := string(bytes.TrimSpace(sc.Bytes()))
		if src == "" || src[0] == '#' {
			continue
		}
		sources = append(sources, src)
		lines = append(lines, n)
	}
	if err := sc.Err(); err != nil {
		return err
	}

	results, err := a.compiler().CompileBatch(cmd.Context(), sources, a.cfg.Batch.Workers)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	failed := false
	for i, r := range results {
		out := batchLine{Line: lines[i], Source: r.Source}
		if r.Err == nil {
			out.Term, r.Err = wire.Encode(r.Term, false)
		}
		if r.Err != nil {
			failed = true
			out.Term = nil
			out.Error = r.Err.Error()
			var qerr *ql2.Error
			if errors.As(r.Err, &qerr) {
				out.Code = string(qerr.Code)
			}
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	a.logger.Debug("batch done", "predicates", len(sources), "failed", failed)
	if failed {
		return errBatchFailed
	}
	return nil
}
