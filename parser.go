// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package exprtree

import (
	"fmt"
	"log/slog"
	"slices"
)

/*
The parser is a shift-reduce loop over one explicit stack.

 * Every token is pushed as-is.
 * When a closing bracket is pushed, it is reduced immediately:
   * pop the closer;
   * pop items until the matching opener, collecting them in a buffer;
   * reverse the buffer, giving operand, operator, operand, ...;
   * for "]", pop the function name that sits below the "[";
   * push one node for the whole span.
 * "(x)" reduces to x itself. Longer parenthesized spans become an
   InfixGroup; bracketed spans become a CallGroup.

The lexer wraps the input in a synthetic pair of parentheses, so a valid
input always ends with exactly one node on the stack.

Invariants:
 * a stack item holds either a raw token or a reduced node, never both.
 * closing brackets are never on the stack after a push returns.
 * a buffer never holds an opening bracket.
 * a failed reduction returns an error and no tree.
*/

// item is a stack entry: a raw token or a reduced node.
type item struct {
	tok  *Token
	node Node
}

func (it item) span() Span {
	if it.node != nil {
		return it.node.Span()
	}
	return spanFromToken(it.tok)
}

func (it item) text() string {
	if it.node != nil {
		return it.node.Kind()
	}
	return it.tok.Text
}

// isOperand reports whether the item can be an operand of a group.
func (it item) isOperand() bool {
	return it.node != nil || it.tok.Kind.IsOperand()
}

// isOperator reports whether the item can separate two operands.
func (it item) isOperator() bool {
	return it.node == nil && it.tok.Kind == Operator
}

// operand returns the item as a node, converting a raw token to an Atom.
func (it item) operand() Node {
	if it.node != nil {
		return it.node
	}
	return newAtom(it.tok)
}

// Parser reduces a token sequence to a tree.
// A Parser may be reused but is not safe for concurrent use;
// create one per goroutine.
type Parser struct {
	cfg         *Config
	stack       []item
	diagnostics []Diagnostic
}

// NewParser returns a parser configured by opts.
func NewParser(opts ...Option) (*Parser, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &Parser{cfg: cfg}, nil
}

// Parse tokenizes and parses text.
func Parse(text string, opts ...Option) (Node, error) {
	p, err := NewParser(opts...)
	if err != nil {
		return nil, err
	}
	return p.Parse(text)
}

// ParseTokens parses a token sequence returned by Tokenize.
func ParseTokens(toks []*Token, opts ...Option) (Node, error) {
	p, err := NewParser(opts...)
	if err != nil {
		return nil, err
	}
	return p.ParseTokens(toks)
}

// Diagnostics returns the warnings recorded by the last parse.
func (p *Parser) Diagnostics() []Diagnostic {
	return p.diagnostics
}

// Parse tokenizes and parses text.
func (p *Parser) Parse(text string) (Node, error) {
	if p.cfg.maxInputLength > 0 && len(text) > p.cfg.maxInputLength {
		return nil, fmt.Errorf("%w: %d bytes, limit is %d", ErrInputTooLong, len(text), p.cfg.maxInputLength)
	}
	lexer := NewLexer(p.cfg.ctx, p.cfg.name, []byte(text), p.cfg.logger)
	return p.ParseTokens(lexer.Tokens())
}

// ParseTokens parses a token sequence returned by Tokenize.
// It returns the single root node, or an error and no tree.
func (p *Parser) ParseTokens(toks []*Token) (Node, error) {
	p.stack = p.stack[:0]
	p.diagnostics = nil

	for _, tok := range toks {
		p.push(item{tok: tok})
		if tok.Kind.IsClose() {
			if err := p.reduce(); err != nil {
				p.stack = p.stack[:0]
				return nil, err
			}
		}
	}

	root, err := p.result()
	p.stack = p.stack[:0]
	return root, err
}

// result returns the root node, which must be the only item on the stack.
func (p *Parser) result() (Node, error) {
	if len(p.stack) == 1 && p.stack[0].node != nil {
		return p.stack[0].node, nil
	} else if len(p.stack) == 0 {
		return nil, &StructuralError{Err: ErrEmptyGroup, Message: "no tokens"}
	}
	for _, it := range p.stack {
		if it.node == nil && it.tok.Kind.IsOpen() {
			return nil, &StructuralError{Err: ErrUnclosedGroup, Span: it.span(), Token: it.tok.Text}
		}
	}
	return nil, &StructuralError{
		Err:     ErrUnclosedGroup,
		Span:    p.stack[0].span(),
		Message: fmt.Sprintf("%d items are not enclosed in a group", len(p.stack)),
	}
}

// reduce replaces the bracketed span ending at the top of the stack
// with a single node.
func (p *Parser) reduce() error {
	closer := p.pop().tok
	want := LEFTPAREN
	if closer.Kind == RIGHTBRACKET {
		want = LEFTBRACKET
	}

	// pop until the matching opener
	var buf []item
	var opener *Token
	for opener == nil {
		if len(p.stack) == 0 {
			return &StructuralError{Err: ErrUnmatchedClose, Span: spanFromToken(closer), Token: closer.Text}
		}
		top := p.pop()
		if top.node != nil || !top.tok.Kind.IsOpen() {
			buf = append(buf, top)
			continue
		}
		switch {
		case closer.Synthetic && !top.tok.Synthetic:
			return &StructuralError{Err: ErrUnclosedGroup, Span: top.span(), Token: top.tok.Text}
		case !closer.Synthetic && top.tok.Synthetic:
			return &StructuralError{Err: ErrUnmatchedClose, Span: spanFromToken(closer), Token: closer.Text}
		case top.tok.Kind != want:
			return &StructuralError{
				Err:     ErrMismatchedBracket,
				Span:    spanFromToken(closer),
				Token:   closer.Text,
				Message: fmt.Sprintf("%q at %d:%d is closed by %q", top.tok.Text, top.tok.Line, top.tok.Column, closer.Text),
			}
		}
		opener = top.tok
	}
	slices.Reverse(buf)

	if err := checkAlternation(buf, closer); err != nil {
		return err
	}
	args := make([]Node, 0, (len(buf)+1)/2)
	for i := 0; i < len(buf); i += 2 {
		args = append(args, buf[i].operand())
	}
	var op string
	if len(buf) > 1 {
		op = buf[1].tok.Text
	}

	if closer.Kind == RIGHTBRACKET {
		// calls are prefix: the function name sits below the "["
		if len(p.stack) == 0 || p.top().node != nil || p.top().tok.Kind != Identifier {
			return &StructuralError{Err: ErrMissingFunction, Span: spanFromToken(opener), Token: opener.Text}
		}
		fn := p.pop().tok
		span := spanFromTokens(fn, closer)
		if err := p.checkOperators(buf, span); err != nil {
			return err
		}
		p.debug("reduce call", span, fn.Text, op, len(args))
		p.push(item{node: newCallGroup(span, fn.Text, op, args)})
		return nil
	}

	span := spanFromTokens(opener, closer)
	switch len(buf) {
	case 0:
		return &StructuralError{Err: ErrEmptyGroup, Span: span, Token: opener.Text}
	case 1:
		// grouping a single value collapses to that value
		p.push(item{node: args[0]})
		return nil
	}
	if err := p.checkOperators(buf, span); err != nil {
		return err
	}
	p.debug("reduce infix", span, "", op, len(args))
	p.push(item{node: newInfixGroup(span, op, args)})
	return nil
}

// checkAlternation verifies that buf is operand, operator, operand, ...
// and ends with an operand. An empty buffer is accepted here.
func checkAlternation(buf []item, closer *Token) error {
	for i, it := range buf {
		if i%2 == 0 && !it.isOperand() {
			return &StructuralError{Err: ErrAlternation, Span: it.span(), Token: it.text(), Message: "expected an operand"}
		} else if i%2 == 1 && !it.isOperator() {
			return &StructuralError{Err: ErrAlternation, Span: it.span(), Token: it.text(), Message: "expected an operator"}
		}
	}
	if len(buf) != 0 && len(buf)%2 == 0 {
		return &StructuralError{Err: ErrAlternation, Span: spanFromToken(closer), Token: closer.Text, Message: "expected an operand"}
	}
	return nil
}

// checkOperators applies the configured check to a group whose
// separators are not all the same.
func (p *Parser) checkOperators(buf []item, span Span) error {
	if p.cfg.operatorCheck == OperatorCheckOff {
		return nil
	}
	var ops []string
	for i := 1; i < len(buf); i += 2 {
		if !slices.Contains(ops, buf[i].tok.Text) {
			ops = append(ops, buf[i].tok.Text)
		}
	}
	if len(ops) < 2 {
		return nil
	}
	err := &MixedOperatorError{Span: span, Operators: ops}
	if p.cfg.operatorCheck == OperatorCheckError {
		return err
	}
	diag := err.Diagnostic()
	diag.Severity = slog.LevelWarn
	diag.Notes = append(diag.Notes, fmt.Sprintf("treating the group as %q", ops[0]))
	p.diagnostics = append(p.diagnostics, diag)
	return nil
}

func (p *Parser) push(it item) {
	p.stack = append(p.stack, it)
}

func (p *Parser) pop() item {
	it := p.stack[len(p.stack)-1]
	p.stack[len(p.stack)-1] = item{} // clear for later GC
	p.stack = p.stack[:len(p.stack)-1]
	return it
}

func (p *Parser) top() item {
	return p.stack[len(p.stack)-1]
}

func (p *Parser) debug(msg string, span Span, fn, op string, args int) {
	if p.cfg.logger == nil {
		return
	}
	p.cfg.logger.DebugContext(p.cfg.ctx, "parser: "+msg,
		slog.String("source", p.cfg.name),
		slog.Int("line", span.Line),
		slog.Int("column", span.Column),
		slog.String("fn", fn),
		slog.String("op", op),
		slog.Int("args", args),
	)
}
