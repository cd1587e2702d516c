// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package exprtree

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Diagnostic represents a parser error or warning
// with a span in the original source.
type Diagnostic struct {
	Severity slog.Level // Error, Warning, Info
	Message  string     // "group mixes operators"
	Span     Span       // where in the source it occurred
	Notes    []string   // optional additional help messages
}

// PrintDiagnostic writes the diagnostic, the source line it points at,
// and a caret under the first column of the span.
// Spans that cross lines are underlined on their first line only.
func PrintDiagnostic(w io.Writer, diag Diagnostic, filename string, src []byte) {
	span := diag.Span
	_, _ = fmt.Fprintf(w, "%s:%d:%d: %s: %s\n",
		filename, span.Line, span.Column,
		strings.ToLower(diag.Severity.String()), diag.Message)

	line := findLine(src, span.Start, span.End)
	_, _ = fmt.Fprintf(w, "    %s\n", line)

	// caret underline
	caretCount := runeColumnOffset(span.Column-1, line)
	_, _ = fmt.Fprintf(w, "    %s^\n", strings.Repeat(" ", caretCount))

	for _, note := range diag.Notes {
		_, _ = fmt.Fprintf(w, "    note: %s\n", note)
	}
}

// findLine returns the line containing the start byte, without the new-line.
// A start at the end of input returns the last line.
func findLine(src []byte, start, end int) []byte {
	if len(src) == 0 {
		return []byte{}
	}
	if start > len(src) {
		start = len(src)
	}
	if end > len(src) || end < start {
		end = len(src)
	}

	lineStart := 0
	for i := start - 1; i >= 0; i-- {
		if src[i] == '\n' {
			lineStart = i + 1
			break
		}
	}

	lineEnd := len(src)
	for i := lineStart; i < len(src); i++ {
		if src[i] == '\n' {
			lineEnd = i
			break
		}
	}
	return src[lineStart:lineEnd]
}

// runeColumnOffset returns the number of display cells before the
// given 0-based rune column; each rune counts as one cell.
func runeColumnOffset(column int, b []byte) (offset int) {
	for column > 0 && len(b) != 0 {
		_, w := utf8.DecodeRune(b)
		offset++
		b = b[w:]
		column--
	}
	return offset + column
}
