// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package config loads the command line configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mdhender/exprtree"
	"github.com/spf13/afero"
)

// Config holds the complete application configuration
type Config struct {
	Parser ParserConfig `toml:"parser"`
	Rules  RulesConfig  `toml:"rules"`
	Log    LogConfig    `toml:"log"`
}

// ParserConfig holds settings passed to every parse.
type ParserConfig struct {
	MaxInputLength int    `toml:"max_input_length"` // bytes, 0 means the default
	OperatorCheck  string `toml:"operator_check"`   // off, warn, or error
}

// RulesConfig locates the rule catalog and the database compiled rules are saved to.
type RulesConfig struct {
	Catalog  string `toml:"catalog"`  // empty means the built-in catalog
	Database string `toml:"database"` // empty means do not save
}

type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
	File  string `toml:"file"`  // optional, logs are also written here
}

// Default returns the configuration used when there is no file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a TOML configuration file. Environment variables in
// path strings are expanded.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Parser.MaxInputLength == 0 {
		c.Parser.MaxInputLength = exprtree.DefaultMaxInputLength
	}
	if c.Parser.OperatorCheck == "" {
		c.Parser.OperatorCheck = "off"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) expandEnvVars() {
	c.Rules.Catalog = os.ExpandEnv(c.Rules.Catalog)
	c.Rules.Database = os.ExpandEnv(c.Rules.Database)
	c.Log.File = os.ExpandEnv(c.Log.File)
}

// Validate checks the values that have a fixed set of choices.
func (c *Config) Validate() error {
	if c.Parser.MaxInputLength < 0 {
		return fmt.Errorf("parser.max_input_length must not be negative")
	}
	if _, err := exprtree.ParseOperatorCheck(c.Parser.OperatorCheck); err != nil {
		return fmt.Errorf("parser.operator_check: %w", err)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel converts Log.Level to a slog level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.Log.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// ParserOptions returns the parser options for this configuration.
func (c *Config) ParserOptions() ([]exprtree.Option, error) {
	check, err := exprtree.ParseOperatorCheck(c.Parser.OperatorCheck)
	if err != nil {
		return nil, err
	}
	return []exprtree.Option{
		exprtree.WithMaxInputLength(c.Parser.MaxInputLength),
		exprtree.WithOperatorCheck(check),
	}, nil
}
