// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package exprtree

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	ErrUnmatchedClose    = errors.New("closing bracket has no opening bracket")
	ErrMismatchedBracket = errors.New("mismatched brackets")
	ErrUnclosedGroup     = errors.New("opening bracket is never closed")
	ErrMissingFunction   = errors.New("call is missing its function name")
	ErrEmptyGroup        = errors.New("empty group")
	ErrAlternation       = errors.New("operands and operators must alternate")
	ErrMixedOperators    = errors.New("group mixes operators")
	ErrInputTooLong      = errors.New("input too long")
	ErrInvalidUTF8       = errors.New("text is not valid UTF-8")
)

// StructuralError is returned when the token sequence does not reduce
// to exactly one tree. Err is one of the sentinel errors above.
type StructuralError struct {
	Err     error
	Span    Span   // location of the offending token
	Token   string // text of the offending token, if any
	Message string // optional detail
}

func (e *StructuralError) Error() string {
	var sb strings.Builder
	if e.Span.Line > 0 {
		sb.WriteString(fmt.Sprintf("%d:%d: ", e.Span.Line, e.Span.Column))
	}
	sb.WriteString(e.Err.Error())
	if e.Token != "" {
		sb.WriteString(fmt.Sprintf(" at %q", e.Token))
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	return sb.String()
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// Diagnostic converts the error into a Diagnostic for printing.
func (e *StructuralError) Diagnostic() Diagnostic {
	diag := Diagnostic{
		Severity: slog.LevelError,
		Message:  e.Err.Error(),
		Span:     e.Span,
	}
	if e.Message != "" {
		diag.Notes = append(diag.Notes, e.Message)
	}
	return diag
}

// MixedOperatorError is returned when operator checking is enabled
// and one group separates its operands with different operators.
type MixedOperatorError struct {
	Span      Span     // the whole group
	Operators []string // distinct operators, in order of appearance
}

func (e *MixedOperatorError) Error() string {
	return fmt.Sprintf("%d:%d: %v: %s", e.Span.Line, e.Span.Column, ErrMixedOperators, strings.Join(e.Operators, " "))
}

func (e *MixedOperatorError) Unwrap() error {
	return ErrMixedOperators
}

func (e *MixedOperatorError) Diagnostic() Diagnostic {
	return Diagnostic{
		Severity: slog.LevelError,
		Message:  ErrMixedOperators.Error(),
		Span:     e.Span,
		Notes:    []string{fmt.Sprintf("operators %q; groups have no precedence, add parentheses", e.Operators)},
	}
}

// Error code constants.
const (
	ErrCodeUnmatchedClose    = "UNMATCHED_CLOSE"
	ErrCodeMismatchedBracket = "MISMATCHED_BRACKET"
	ErrCodeUnclosedGroup     = "UNCLOSED_GROUP"
	ErrCodeMissingFunction   = "MISSING_FUNCTION"
	ErrCodeEmptyGroup        = "EMPTY_GROUP"
	ErrCodeAlternation       = "ALTERNATION"
	ErrCodeMixedOperators    = "MIXED_OPERATORS"
	ErrCodeInputTooLong      = "INPUT_TOO_LONG"
	ErrCodeInvalidUTF8       = "INVALID_UTF8"
	ErrCodeUnknown           = "UNKNOWN"
)

// ErrorCode returns the error code string for a given error.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnmatchedClose):
		return ErrCodeUnmatchedClose
	case errors.Is(err, ErrMismatchedBracket):
		return ErrCodeMismatchedBracket
	case errors.Is(err, ErrUnclosedGroup):
		return ErrCodeUnclosedGroup
	case errors.Is(err, ErrMissingFunction):
		return ErrCodeMissingFunction
	case errors.Is(err, ErrEmptyGroup):
		return ErrCodeEmptyGroup
	case errors.Is(err, ErrAlternation):
		return ErrCodeAlternation
	case errors.Is(err, ErrMixedOperators):
		return ErrCodeMixedOperators
	case errors.Is(err, ErrInputTooLong):
		return ErrCodeInputTooLong
	case errors.Is(err, ErrInvalidUTF8):
		return ErrCodeInvalidUTF8
	default:
		return ErrCodeUnknown
	}
}

// DiagnosticOf returns a Diagnostic for errors returned by Parse,
// and false for any other error.
func DiagnosticOf(err error) (Diagnostic, bool) {
	var se *StructuralError
	if errors.As(err, &se) {
		return se.Diagnostic(), true
	}
	var me *MixedOperatorError
	if errors.As(err, &me) {
		return me.Diagnostic(), true
	}
	return Diagnostic{}, false
}
