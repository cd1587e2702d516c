// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package exprtree

//go:generate stringer --type Kind

// Kind implements enums for tokens
type Kind int

const (
	UNKNOWN Kind = iota

	LEFTPAREN
	RIGHTPAREN
	LEFTBRACKET
	RIGHTBRACKET

	Identifier // starts with a letter, continues with letters and digits
	Number     // starts with a digit (or "-" and a digit), continues with letters, digits, and dots
	Operator   // run of runes that are not spaces, letters, digits, or brackets

	EndOfInput // end of input
)

// kindOf infers the kind of a token from its first rune.
func kindOf(ch rune, next rune) Kind {
	switch {
	case ch == '(':
		return LEFTPAREN
	case ch == ')':
		return RIGHTPAREN
	case ch == '[':
		return LEFTBRACKET
	case ch == ']':
		return RIGHTBRACKET
	case isalpha(ch):
		return Identifier
	case isdigit(ch), ch == '-' && isdigit(next):
		return Number
	case ch == EOF:
		return EndOfInput
	}
	return Operator
}

// IsOpen reports whether k is an opening bracket.
func (k Kind) IsOpen() bool {
	return k == LEFTPAREN || k == LEFTBRACKET
}

// IsClose reports whether k is a closing bracket.
func (k Kind) IsClose() bool {
	return k == RIGHTPAREN || k == RIGHTBRACKET
}

// IsOperand reports whether a token of this kind can be a leaf in the tree.
func (k Kind) IsOperand() bool {
	return k == Identifier || k == Number
}
