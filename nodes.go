// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package exprtree

// Node is the interface implemented by all tree nodes.
//
// The set of nodes is closed: *Atom, *InfixGroup, and *CallGroup.
// Consumers should use a type switch over those three.
//
// Line and Column report the location of this node in the source text,
// the line and column of the node's first token. Both are 1-based.
//
// Kind returns a short, stable identifier for the node type:
// "Atom", "InfixGroup", or "CallGroup".
//
// Children returns the operands of a group, or nil for an atom.
type Node interface {
	Kind() string
	Line() int
	Column() int
	Span() Span
	Children() []Node

	node()
}

type BaseNode struct {
	kind string
	span Span // covers the entire subtree
}

func (b *BaseNode) Kind() string { return b.kind }
func (b *BaseNode) Span() Span   { return b.span }
func (b *BaseNode) Line() int    { return b.span.Line }
func (b *BaseNode) Column() int  { return b.span.Column }
func (b *BaseNode) node()        {}

// Atom is a leaf: an identifier or a number.
// It owns a copy of the token text.
type Atom struct {
	BaseNode
	Token Kind // Identifier or Number
	Text  string
}

func newAtom(tok *Token) *Atom {
	return &Atom{
		BaseNode: BaseNode{
			kind: "Atom",
			span: spanFromToken(tok),
		},
		Token: tok.Kind,
		Text:  tok.Text,
	}
}

// NewAtom returns an atom for text with an empty span.
// The kind is inferred from the first rune, as the lexer does.
func NewAtom(text string) *Atom {
	kind := Identifier
	if len(text) != 0 && !isalpha(rune(text[0])) {
		kind = Number
	}
	return &Atom{BaseNode: BaseNode{kind: "Atom"}, Token: kind, Text: text}
}

func (a *Atom) Children() []Node { return nil }

// IsNumber reports whether the atom came from a number token.
func (a *Atom) IsNumber() bool { return a.Token == Number }

// InfixGroup is a flat, precedence-free operation from one pair of
// parentheses. Every operand shares the one operator; "(a+b+c)" has
// three operands, not a nested pair.
type InfixGroup struct {
	BaseNode
	Operator string
	Args     []Node // always two or more
}

func newInfixGroup(span Span, op string, args []Node) *InfixGroup {
	return &InfixGroup{
		BaseNode: BaseNode{kind: "InfixGroup", span: span},
		Operator: op,
		Args:     args,
	}
}

// NewInfixGroup returns an infix group with an empty span.
func NewInfixGroup(op string, args ...Node) *InfixGroup {
	return newInfixGroup(Span{}, op, args)
}

func (g *InfixGroup) Children() []Node { return g.Args }

// CallGroup is a prefix call, Function[arg op arg ...].
// Operator is empty when the brackets held fewer than two operands.
// Args is empty for a zero-argument call, Function[].
type CallGroup struct {
	BaseNode
	Function string
	Operator string
	Args     []Node
}

func newCallGroup(span Span, fn, op string, args []Node) *CallGroup {
	return &CallGroup{
		BaseNode: BaseNode{kind: "CallGroup", span: span},
		Function: fn,
		Operator: op,
		Args:     args,
	}
}

// NewCallGroup returns a call group with an empty span.
func NewCallGroup(fn, op string, args ...Node) *CallGroup {
	return newCallGroup(Span{}, fn, op, args)
}

func (g *CallGroup) Children() []Node { return g.Args }

// Walk traverses the tree rooted at n in depth-first pre-order.
// If fn returns false, the children of that node are skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range n.Children() {
		Walk(child, fn)
	}
}

// Equal reports whether a and b have the same shape, operators,
// function names, and leaf text. Spans are ignored, so "(x)" and
// "x" parse to equal trees.
func Equal(a, b Node) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case *Atom:
		b, ok := b.(*Atom)
		return ok && a.Text == b.Text && a.Token == b.Token
	case *InfixGroup:
		b, ok := b.(*InfixGroup)
		return ok && a.Operator == b.Operator && equalNodes(a.Args, b.Args)
	case *CallGroup:
		b, ok := b.(*CallGroup)
		return ok && a.Function == b.Function && a.Operator == b.Operator && equalNodes(a.Args, b.Args)
	}
	return false
}

func equalNodes(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
