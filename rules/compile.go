// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package rules

import (
	"context"
	"fmt"
	"runtime"

	"github.com/mdhender/exprtree"
	"golang.org/x/sync/errgroup"
)

// Compiled is a rule with its text parsed.
//
// When the rule is an equation, "lhs = rhs" with exactly two sides,
// LHS and RHS are set. Otherwise the rule introduces Tree as a term.
type Compiled struct {
	Rule
	Tree        exprtree.Node
	Requirement exprtree.Node // nil when the rule has no requirement
	LHS, RHS    exprtree.Node
}

// IsRewrite reports whether the rule is an equation.
func (c *Compiled) IsRewrite() bool {
	return c.LHS != nil
}

// CompileRule parses the rule and its requirement.
func CompileRule(r Rule, opts ...exprtree.Option) (*Compiled, error) {
	tree, err := exprtree.Parse(r.Text, opts...)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", r.Name, err)
	}
	c := &Compiled{Rule: r, Tree: tree}
	if r.Require != "" {
		c.Requirement, err = exprtree.Parse(r.Require, opts...)
		if err != nil {
			return nil, fmt.Errorf("rule %q: require: %w", r.Name, err)
		}
	}
	if eq, ok := tree.(*exprtree.InfixGroup); ok && eq.Operator == "=" && len(eq.Args) == 2 {
		c.LHS, c.RHS = eq.Args[0], eq.Args[1]
	}
	return c, nil
}

// Compile parses every rule in the catalog, at most limit at a time
// (limit <= 0 means one per CPU). The result is in catalog order.
// The first error cancels the remaining work.
func Compile(ctx context.Context, c *Catalog, limit int, opts ...exprtree.Option) ([]*Compiled, error) {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	compiled := make([]*Compiled, len(c.Rules))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, r := range c.Rules {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cr, err := CompileRule(r, opts...)
			if err != nil {
				return err
			}
			compiled[i] = cr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return compiled, nil
}
