// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages

import (
	"errors"
	"fmt"

	"github.com/mdhender/exprtree"
)

// ErrWriteFile is returned when writing a file or directory fails.
type ErrWriteFile struct {
	Op   string // mkdir, write
	Path string
	Err  error
}

func (e *ErrWriteFile) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ErrWriteFile) Unwrap() error {
	return e.Err
}

// ErrReadFile is returned when a queued file cannot be read.
type ErrReadFile struct {
	Path string
	Err  error
}

func (e *ErrReadFile) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ErrReadFile) Unwrap() error {
	return e.Err
}

// ErrDatabase is returned when database operations fail.
type ErrDatabase struct {
	Op  string
	Err error
}

func (e *ErrDatabase) Error() string {
	return fmt.Sprintf("database %s: %v", e.Op, e.Err)
}

func (e *ErrDatabase) Unwrap() error {
	return e.Err
}

// ErrNoExpressions is returned when a file holds only blank lines and comments.
type ErrNoExpressions struct {
	Path string
}

func (e *ErrNoExpressions) Error() string {
	return fmt.Sprintf("%s: no expressions", e.Path)
}

// Error code constants for database storage.
const (
	ErrCodeWriteFile     = "WRITE_FILE"
	ErrCodeReadFile      = "READ_FILE"
	ErrCodeDatabase      = "DATABASE"
	ErrCodeNoExpressions = "NO_EXPRESSIONS"
)

// ErrorCode returns the error code string for a given error.
// Parse errors map to the parser's own codes.
func ErrorCode(err error) string {
	var writeErr *ErrWriteFile
	var readErr *ErrReadFile
	var dbErr *ErrDatabase
	var emptyErr *ErrNoExpressions
	switch {
	case errors.As(err, &writeErr):
		return ErrCodeWriteFile
	case errors.As(err, &readErr):
		return ErrCodeReadFile
	case errors.As(err, &dbErr):
		return ErrCodeDatabase
	case errors.As(err, &emptyErr):
		return ErrCodeNoExpressions
	default:
		return exprtree.ErrorCode(err)
	}
}
