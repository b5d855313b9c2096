package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandrolain/goreql/pkg/wire"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check [file|-]",
		Short: "Validate a JSON wire term and print its debug form",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			data, err := readInput(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			return a.check(cmd.OutOrStdout(), data)
		},
	}
}

// readInput reads path, or r when path is "-".
func readInput(r io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(r)
	}
	return os.ReadFile(path)
}

func (a *app) check(w io.Writer, data []byte) error {
	term, err := wire.Decode(data)
	if err != nil {
		return err
	}
	a.logger.Debug("term checked", "nodes", term.Size())
	_, err = fmt.Fprintln(w, term.String())
	return err
}
