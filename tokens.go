// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package exprtree

// Token represents a single lexical token from the input.
type Token struct {
	Position

	// End is the byte offset in the original input.
	// It is exclusive: input[Start:End] is the token's lexeme.
	End int

	Kind Kind   // e.g. Identifier, Number, LEFTPAREN, etc.
	Text string // never empty, except for EndOfInput

	// Synthetic is set on the implicit outer parentheses that
	// wrap every input. They have a zero-length span.
	Synthetic bool
}

// Lexeme is a helper to return the original text of the token.
func (tok *Token) Lexeme(input []byte) []byte {
	return input[tok.Position.Start:tok.End]
}

func (tok *Token) String() string {
	if tok == nil {
		return "<nil>"
	}
	return tok.Text
}

// Strings returns the raw text of each token, in order.
func Strings(toks []*Token) []string {
	list := make([]string, 0, len(toks))
	for _, tok := range toks {
		list = append(list, tok.Text)
	}
	return list
}

// Position represents a position in the original source code.
type Position struct {
	Line   int // 1-based
	Column int // 1-based, character column
	Start  int // byte index into input (0-based); always required
}

// Span represents a range in the source: [Start, End).
type Span struct {
	// Byte offsets into the original input slice.
	// End is exclusive: input[Start:End] is the covered text.
	Start int
	End   int

	// 1-based line and column of the *start* of the span.
	Line   int
	Column int
}

// spanFromToken creates a Span that covers a single token.
func spanFromToken(tok *Token) Span {
	return Span{
		Start:  tok.Position.Start,
		End:    tok.End,
		Line:   tok.Position.Line,
		Column: tok.Position.Column,
	}
}

// spanFromTokens creates a Span running from the start of first to the end of last.
func spanFromTokens(first, last *Token) Span {
	return Span{
		Start:  first.Position.Start,
		End:    last.End,
		Line:   first.Position.Line,
		Column: first.Position.Column,
	}
}
