// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package exprtree

const (
	// EOF is a sentinel for end of input
	EOF rune = rune(-1)
)

// character classes used by the lexer.
// only ASCII letters and digits are alphanumeric; every other
// rune that is not a space or a bracket is an operator rune.

func iswsp(ch rune) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}

func isalpha(ch rune) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isdigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func isalnum(ch rune) bool {
	return isalpha(ch) || isdigit(ch)
}

func isbracket(ch rune) bool {
	return ch == '(' || ch == ')' || ch == '[' || ch == ']'
}

// isunknown reports whether ch may continue an operator.
func isunknown(ch rune) bool {
	return ch != EOF && !(iswsp(ch) || isalnum(ch) || isbracket(ch))
}

// isnumeric reports whether ch may continue a number.
// Letters are accepted, so "3x" is a single number token.
func isnumeric(ch rune) bool {
	return isalnum(ch) || ch == '.'
}
