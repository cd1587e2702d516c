// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package renderer

type Option func(p *Renderer) error

// WithIndent sets the string repeated once per level of an outline.
func WithIndent(indent string) Option {
	return func(p *Renderer) error {
		p.indent = indent
		return nil
	}
}

// WithOuterParens controls whether a group at the root of the tree is
// written inside parentheses. The parser adds the outer group itself,
// so the text parses to the same tree either way.
func WithOuterParens(flag bool) Option {
	return func(p *Renderer) error {
		p.outerParens = flag
		return nil
	}
}

// WithSpans adds the line and column of every node to an outline.
func WithSpans(flag bool) Option {
	return func(p *Renderer) error {
		p.spans = flag
		return nil
	}
}
