// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package exprtree

import (
	"context"
	"fmt"
	"log/slog"
)

// OperatorCheck controls how the parser treats a group whose operands
// are separated by different operators, like "(a+b*c)". The group
// always takes its first operator; the check only decides whether
// anyone hears about it.
type OperatorCheck int

const (
	OperatorCheckOff   OperatorCheck = iota // silently use the first operator
	OperatorCheckWarn                       // record a warning Diagnostic
	OperatorCheckError                      // fail with *MixedOperatorError
)

func (c OperatorCheck) String() string {
	switch c {
	case OperatorCheckOff:
		return "off"
	case OperatorCheckWarn:
		return "warn"
	case OperatorCheckError:
		return "error"
	}
	return fmt.Sprintf("OperatorCheck(%d)", int(c))
}

// ParseOperatorCheck converts "off", "warn", or "error".
// The empty string is "off".
func ParseOperatorCheck(s string) (OperatorCheck, error) {
	switch s {
	case "", "off":
		return OperatorCheckOff, nil
	case "warn":
		return OperatorCheckWarn, nil
	case "error":
		return OperatorCheckError, nil
	}
	return OperatorCheckOff, fmt.Errorf("invalid operator check %q", s)
}

// DefaultMaxInputLength is the default limit on the length of the
// text passed to Parse, in bytes.
const DefaultMaxInputLength = 64 * 1024

type Config struct {
	ctx            context.Context
	logger         *slog.Logger
	name           string
	maxInputLength int
	operatorCheck  OperatorCheck
}

type Option func(c *Config) error

func newConfig(opts ...Option) (*Config, error) {
	c := &Config{
		ctx:            context.Background(),
		maxInputLength: DefaultMaxInputLength,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func WithContext(ctx context.Context) Option {
	return func(c *Config) error {
		if ctx == nil {
			return fmt.Errorf("nil context")
		}
		c.ctx = ctx
		return nil
	}
}

// WithLogger sets the logger for debug tracing. nil disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}

// WithName sets the source name used in log messages.
func WithName(name string) Option {
	return func(c *Config) error {
		c.name = name
		return nil
	}
}

// WithMaxInputLength limits the text accepted by Parse. Zero disables the limit.
func WithMaxInputLength(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return fmt.Errorf("max input length must not be negative")
		}
		c.maxInputLength = n
		return nil
	}
}

func WithOperatorCheck(check OperatorCheck) Option {
	return func(c *Config) error {
		if check < OperatorCheckOff || check > OperatorCheckError {
			return fmt.Errorf("invalid operator check %d", int(check))
		}
		c.operatorCheck = check
		return nil
	}
}
