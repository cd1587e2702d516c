// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package rules loads the catalog of named rewrite rules and parses
// each rule into a tree for a matcher to consume.
package rules

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
)

//go:embed default.toml
var defaultCatalog string

// Rule is one named rule in the catalog.
// Text and Require use the same grammar as any other expression.
type Rule struct {
	Name    string `toml:"name"`
	Text    string `toml:"rule"`
	Require string `toml:"require,omitempty"` // optional side condition
}

type Catalog struct {
	Rules []Rule `toml:"rules"`
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Decode(defaultCatalog)
}

// Load reads a TOML catalog from path.
func Load(fs afero.Fs, path string) (*Catalog, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Decode(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Decode parses and validates a TOML catalog.
// Unknown keys are rejected so that a misspelled "require" is not lost.
func Decode(data string) (*Catalog, error) {
	var c Catalog
	md, err := toml.Decode(data, &c)
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		var keys []string
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("decode catalog: unknown keys %s", strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that every rule has a unique, non-empty name and
// non-empty text.
func (c *Catalog) Validate() error {
	seen := map[string]bool{}
	for i, r := range c.Rules {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return fmt.Errorf("rule %d: missing name", i+1)
		} else if seen[name] {
			return fmt.Errorf("rule %q: duplicate name", name)
		} else if strings.TrimSpace(r.Text) == "" {
			return fmt.Errorf("rule %q: missing rule text", name)
		}
		seen[name] = true
	}
	return nil
}

// Lookup returns the rule with the given name.
func (c *Catalog) Lookup(name string) (Rule, bool) {
	for _, r := range c.Rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}
