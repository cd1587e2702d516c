// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package main

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// newLogger returns a logger that writes text to w and, when logFile
// is set, JSON records to that file. The returned close function
// must be called to flush the file.
func newLogger(w io.Writer, level slog.Level, logFile string) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: level}
	handlers := []slog.Handler{
		slog.NewTextHandler(w, opts),
	}
	closer := func() error { return nil }
	if logFile != "" {
		fd, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewJSONHandler(fd, opts))
		closer = fd.Close
	}
	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}
