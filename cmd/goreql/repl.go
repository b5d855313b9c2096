package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/sandrolain/goreql/pkg/celql"
	"github.com/sandrolain/goreql/pkg/wire"
)

const (
	historyFile = ".goreql_history"
	prompt      = "goreql> "
	replHelp    = `Enter a CEL predicate to see its term.
  :wire   toggle wire JSON output
  :help   show this help
  :quit   exit`
)

func newReplCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Translate predicates interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.repl(cmd.OutOrStdout())
		},
	}
	addCompilerFlags(cmd)
	return cmd
}

// session is the state of one REPL run.
type session struct {
	compiler *celql.Compiler
	wire     bool
}

// eval handles one input line. It reports false when the session should end.
func (s *session) eval(w io.Writer, line string) bool {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return true
	case ":quit", ":q":
		return false
	case ":help":
		fmt.Fprintln(w, replHelp)
		return true
	case ":wire":
		s.wire = !s.wire
		fmt.Fprintf(w, "wire output: %v\n", s.wire)
		return true
	}
	if strings.HasPrefix(line, ":") {
		fmt.Fprintf(w, "unknown command %s (try :help)\n", line)
		return true
	}

	term, err := s.compiler.Compile(line)
	if err != nil {
		fmt.Fprintln(w, "error:", err)
		return true
	}
	if !s.wire {
		fmt.Fprintln(w, term.String())
		return true
	}
	data, err := wire.Encode(term, false)
	if err != nil {
		fmt.Fprintln(w, "error:", err)
		return true
	}
	fmt.Fprintln(w, string(data))
	return true
}

func (a *app) repl(w io.Writer) error {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	// Load history (best-effort)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	s := &session{compiler: a.compiler()}
	fmt.Fprintln(w, "goreql REPL, :help for commands")
	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(w)
			break
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			return err
		}
		if !s.eval(w, line) {
			break
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
	}

	// Persist history (best-effort)
	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
	return nil
}
