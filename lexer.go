// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package exprtree

import (
	"context"
	"log/slog"
	"unicode/utf8"
)

// Lexer invariants and coordinate system
//
// The lexer treats input as an immutable UTF-8 byte slice.
//
// Fields:
//   input       - the original []byte
//   length      - len(input)
//
//   r           - the current rune, or EOF when we have read past the end.
//   posCurrRune - index into input of the first byte of r,
//                 or length when r == EOF.
//   posNextRune - index into input of the first byte of the *next* rune,
//                 or length when r == EOF.
//   anchorPos   - index into input where the current token starts.
//
// Invariants (must always hold):
//   0 <= posCurrRune <= posNextRune <= length
//   r == EOF  <=> posCurrRune == posNextRune == length
//
// Every input is read as if it were wrapped in one pair of parentheses.
// The wrapping tokens are synthesized (zero-length, Synthetic == true)
// instead of being added to the input, so positions always refer to
// the caller's text. Brackets never join another token, so the token
// sequence is the same as for the wrapped text.
//
// Token states:
//   lookingForToken - skip spaces, emit brackets, or pick the next state
//                     from the first rune of the token.
//   inIdentifier    - continue while the rune is a letter or digit.
//   inNumber        - continue while the rune is a letter, digit, or dot.
//                     "-" followed by a digit always starts a number, even
//                     after an identifier, so "a-5" is "a" and "-5".
//   inOperator      - continue while the rune is not a space, letter,
//                     digit, or bracket.
// A token ends on the first rune that does not continue it; that rune
// is reconsidered from lookingForToken.

type lexState int

const (
	lookingForToken lexState = iota
	inIdentifier
	inOperator
	inNumber
)

type lexPhase int

const (
	phaseOpen  lexPhase = iota // synthetic "(" not yet emitted
	phaseBody                  // scanning the input
	phaseClose                 // synthetic ")" emitted
)

type Lexer struct {
	name        string // name of the input source
	r           rune   // current rune
	line        int    // line number of current rune
	column      int    // column number of current rune
	posCurrRune int    // position of current rune
	posNextRune int    // position of next rune
	length      int    // length of input buffer
	input       []byte

	anchorPos    int
	anchorLine   int
	anchorColumn int

	phase lexPhase

	// canonical end of input token
	endToken *Token

	// logging
	ctx        context.Context
	logger     *slog.Logger
	tokenCount int
}

// NewLexer returns a lexer for input. The name is only used in log
// messages. A nil logger disables logging.
func NewLexer(ctx context.Context, name string, input []byte, logger *slog.Logger) *Lexer {
	if ctx == nil {
		ctx = context.Background()
	}
	l := &Lexer{
		name:        name,
		input:       input,
		length:      len(input),
		line:        1,
		column:      0,
		posNextRune: 0,
		ctx:         ctx,
		logger:      logger,
	}
	// read the first character to initialize the lexer.
	l.advance()
	return l
}

// Tokenize returns the tokens for text, including the implicit outer
// parentheses. It never fails: every rune ends up in some token.
func Tokenize(text string) []*Token {
	return NewLexer(context.Background(), "", []byte(text), nil).Tokens()
}

// Tokens drains the lexer and returns every token before end of input.
func (l *Lexer) Tokens() []*Token {
	var toks []*Token
	for tok := l.Scan(); tok.Kind != EndOfInput; tok = l.Scan() {
		toks = append(toks, tok)
	}
	return toks
}

// Scan returns the next token from the input buffer.
//
// Once we reach end of input, we always return the same EndOfInput token.
func (l *Lexer) Scan() *Token {
	switch l.phase {
	case phaseOpen:
		l.phase = phaseBody
		return l.synthetic("(", LEFTPAREN, 1, 1, 0)
	case phaseBody:
		if tok := l.scanToken(); tok != nil {
			return tok
		}
		l.phase = phaseClose
		return l.synthetic(")", RIGHTPAREN, l.line, l.column, l.length)
	}
	if l.endToken == nil {
		l.endToken = &Token{
			Position: Position{Line: l.line, Column: l.column, Start: l.length},
			End:      l.length,
			Kind:     EndOfInput,
		}
	}
	return l.endToken
}

// scanToken runs the token state machine and returns nil at end of input.
func (l *Lexer) scanToken() *Token {
	state := lookingForToken
	for {
		ch := l.peekChar()
		switch state {
		case lookingForToken:
			if iswsp(ch) {
				l.advance()
				continue
			} else if ch == EOF {
				return nil
			}
			l.setAnchor()
			switch {
			case isbracket(ch):
				l.advance()
				return l.emit(kindOf(ch, EOF))
			case isalpha(ch):
				state = inIdentifier
			case ch == '-' && isdigit(l.peekCharN(1)):
				// negative number: consume the dash here and the digit below
				l.advance()
				state = inNumber
			case isdigit(ch):
				state = inNumber
			default:
				state = inOperator
			}
			l.advance()
		case inIdentifier:
			if !isalnum(ch) {
				return l.emit(Identifier)
			}
			l.advance()
		case inNumber:
			if !isnumeric(ch) {
				return l.emit(Number)
			}
			l.advance()
		case inOperator:
			if !isunknown(ch) {
				return l.emit(Operator)
			}
			l.advance()
		}
	}
}

// emit returns the token running from the anchor to the current rune.
func (l *Lexer) emit(kind Kind) *Token {
	tok := &Token{
		Position: Position{
			Line:   l.anchorLine,
			Column: l.anchorColumn,
			Start:  l.anchorPos,
		},
		End:  l.posCurrRune,
		Kind: kind,
		Text: string(l.input[l.anchorPos:l.posCurrRune]),
	}
	l.tokenCount++
	l.debug("token", tok)
	return tok
}

func (l *Lexer) synthetic(text string, kind Kind, line, column, start int) *Token {
	tok := &Token{
		Position:  Position{Line: line, Column: column, Start: start},
		End:       start,
		Kind:      kind,
		Text:      text,
		Synthetic: true,
	}
	l.tokenCount++
	l.debug("synthetic", tok)
	return tok
}

// peekChar returns the current character without advancing the input.
func (l *Lexer) peekChar() rune {
	return l.r
}

// peekCharN returns the nth character without advancing the input.
// peekCharN(0) is the same as peekChar().
func (l *Lexer) peekCharN(numberOfChars int) rune {
	if numberOfChars < 0 {
		panic("assert(numberOfChars >= 0)")
	}
	ch := l.r
	posPeekRune := l.posNextRune
	for numberOfChars > 0 && posPeekRune < l.length {
		r, w := rune(l.input[posPeekRune]), 1
		if r >= utf8.RuneSelf {
			r, w = utf8.DecodeRune(l.input[posPeekRune:])
		}
		ch = r
		posPeekRune += w
		numberOfChars--
	}
	if numberOfChars > 0 {
		// we reached end of input before peeking the requested number of characters
		ch = EOF
	}
	return ch
}

// setAnchor marks the start of the current token.
func (l *Lexer) setAnchor() {
	l.anchorPos = l.posCurrRune
	l.anchorLine = l.line
	l.anchorColumn = l.column
}

// advance moves to the next rune and updates line/col.
// On end of input, it sets r == EOF and both positions to length.
func (l *Lexer) advance() {
	// update line/col wrt the *current* rune before stepping
	if l.r == '\n' {
		l.line++
		l.column = 1
	} else if l.r != EOF || l.posCurrRune < l.length {
		l.column++
	}

	// already at or past the end?
	if l.posNextRune >= l.length {
		l.posCurrRune, l.posNextRune = l.length, l.length
		l.r = EOF
		return
	}

	l.posCurrRune = l.posNextRune

	// read the next rune, optimizing for ASCII input.
	r, w := rune(l.input[l.posCurrRune]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(l.input[l.posCurrRune:])
	}
	l.posNextRune = l.posCurrRune + w
	l.r = r
}

func (l *Lexer) debug(msg string, tok *Token) {
	if l.logger == nil {
		return
	}
	l.logger.DebugContext(l.ctx, "lexer: "+msg,
		slog.String("source", l.name),
		slog.Int("line", tok.Line),
		slog.Int("column", tok.Column),
		slog.String("kind", tok.Kind.String()),
		slog.String("text", tok.Text),
	)
}
