// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package renderer writes expression trees as text.
package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/mdhender/exprtree"
)

type Renderer struct {
	indent      string
	outerParens bool
	spans       bool
}

func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		indent: "  ",
	}
	for _, option := range options {
		err := option(r)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Infix returns the tree as expression text. Every infix group is
// parenthesized and every token is separated by a space, so parsing
// the result gives back an equal tree.
func (r *Renderer) Infix(n exprtree.Node) string {
	var sb strings.Builder
	r.infix(&sb, n, !r.outerParens)
	return sb.String()
}

func (r *Renderer) infix(sb *strings.Builder, n exprtree.Node, bare bool) {
	switch n := n.(type) {
	case *exprtree.Atom:
		sb.WriteString(n.Text)
	case *exprtree.InfixGroup:
		if !bare {
			sb.WriteByte('(')
		}
		r.args(sb, n.Operator, n.Args)
		if !bare {
			sb.WriteByte(')')
		}
	case *exprtree.CallGroup:
		sb.WriteString(n.Function)
		sb.WriteByte('[')
		r.args(sb, n.Operator, n.Args)
		sb.WriteByte(']')
	}
}

func (r *Renderer) args(sb *strings.Builder, op string, args []exprtree.Node) {
	for i, arg := range args {
		if i > 0 {
			sb.WriteByte(' ')
			sb.WriteString(op)
			sb.WriteByte(' ')
		}
		r.infix(sb, arg, false)
	}
}

// Outline writes the tree one node per line, children indented below
// their group:
//
//	infix "="
//	  call Diff ""
//	    atom x
//	  number 1
func (r *Renderer) Outline(w io.Writer, n exprtree.Node) error {
	return r.outline(w, n, 0)
}

func (r *Renderer) outline(w io.Writer, n exprtree.Node, depth int) error {
	var line string
	switch n := n.(type) {
	case *exprtree.Atom:
		if n.IsNumber() {
			line = "number " + n.Text
		} else {
			line = "atom " + n.Text
		}
	case *exprtree.InfixGroup:
		line = fmt.Sprintf("infix %q", n.Operator)
	case *exprtree.CallGroup:
		line = fmt.Sprintf("call %s %q", n.Function, n.Operator)
	default:
		return fmt.Errorf("outline: unexpected node %T", n)
	}
	if r.spans && n.Line() > 0 {
		line = fmt.Sprintf("%s @%d:%d", line, n.Line(), n.Column())
	}
	if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat(r.indent, depth), line); err != nil {
		return err
	}
	for _, child := range n.Children() {
		if err := r.outline(w, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}
