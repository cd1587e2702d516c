// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Command lexer prints the tokens of every expression in a file.
// Expressions are one per line; blank lines and lines starting with
// '#' are skipped.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/mdhender/exprtree"
	"github.com/spf13/cobra"
)

func main() {
	log.SetFlags(log.Lshortfile)

	operatorsOnly := false
	cmd := &cobra.Command{
		Use:          "lexer <file>...",
		Short:        "print the tokens of every expression in a file",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			for _, file := range args {
				started := time.Now()
				if err := scan(os.Stdout, file, operatorsOnly); err != nil {
					fmt.Printf("%s: failed %v\n", file, err)
					continue
				}
				fmt.Printf("%s: completed in %v\n", file, time.Since(started))
			}
		},
	}
	cmd.Flags().BoolVar(&operatorsOnly, "operators-only", operatorsOnly, "print only Operator tokens")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// scan writes the tokens of every expression in file to w.
func scan(w io.Writer, file string, operatorsOnly bool) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	for n, line := range bytes.Split(data, []byte("\n")) {
		input := bytes.TrimSpace(line)
		if len(input) == 0 || input[0] == '#' {
			continue
		}
		name := fmt.Sprintf("%s:%d", file, n+1)
		s := exprtree.NewLexer(context.Background(), name, input, slog.Default())
		tokenCounter, maxTokens := 0, len(input)+3
		for tokenCounter < maxTokens {
			tok := s.Scan()
			if tok == nil {
				panic("assert(s.scan != nil)")
			}
			tokenCounter++
			if tok.Kind == exprtree.EndOfInput {
				break
			}
			logToken := tok.Kind == exprtree.Operator || !operatorsOnly
			if logToken && !tok.Synthetic {
				_, _ = fmt.Fprintf(w, "%-35s %5d %-12s %q\n", fmt.Sprintf("%s:%d:", name, tok.Column), tokenCounter, tok.Kind, tok.Lexeme(input))
			}
		}
	}
	return nil
}
