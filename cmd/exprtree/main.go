// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package main

import (
	"io"
	"log"
	"log/slog"
	"os"
)

func main() {
	if err := execute(&app{}, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// execute runs the root command with args. The log file is closed
// when the command returns, whether or not it failed.
func execute(a *app, args []string, stdout, stderr io.Writer) error {
	defer a.close()
	cmdRoot := newRootCmd(a, stdout, stderr)
	cmdRoot.SetArgs(args)
	return cmdRoot.Execute()
}

// app holds the state shared by the subcommands once the root
// command has loaded the configuration.
type app struct {
	logger   *slog.Logger
	closeLog func() error
}

func (a *app) close() {
	if a.closeLog == nil {
		return
	}
	if err := a.closeLog(); err != nil {
		log.Printf("log file: %v\n", err)
	}
	a.closeLog = nil
}
