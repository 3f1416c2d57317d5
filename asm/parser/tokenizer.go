// Package parser implements the lexer for FRAME assembly source.
package parser

import (
	"fmt"
	"io"

	"github.com/hexaflex/frame/arch"
)

// Tokenizer turns source code into a flat stream of tokens. The
// filename provides source context for each token.
type Tokenizer struct {
	data []byte
	pos  Position
}

// NewTokenizer reads all source code from the given reader and returns
// a tokenizer for it.
func NewTokenizer(r io.Reader, filename string) (*Tokenizer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("parse error: %v", err)
	}

	return &Tokenizer{
		data: data,
		pos: Position{
			File: filename,
			Line: 1,
			Col:  1,
		},
	}, nil
}

// Next returns the next token in the stream. Once the input is
// exhausted, every call returns an EOF token.
func (t *Tokenizer) Next() Token {
	t.skipSpace()

	start := t.pos
	if t.eof() {
		return Token{Type: EOF, Pos: start}
	}

	c := t.read()
	switch {
	case c == ',':
		return Token{Type: Comma, Pos: start}
	case c == ')':
		return Token{Type: RightParen, Pos: start}
	case c == '@':
		return t.readLabel(start)
	case c == '$':
		return t.readRegister(start)
	case c == '%':
		return t.readAddress(start)
	case c == '(':
		return t.readIndirect(start)
	case c == '.':
		return t.readDirective(start)
	case c == '\'':
		return t.readCharLiteral(start)
	case isDigit(c):
		return t.readNumber(start, c)
	case isAlpha(c) || c == '_':
		return t.readWord(start, c)
	}

	return t.errorf(start, "unexpected character '%c'", c)
}

// readLabel reads a label definition/reference or a label-byte
// reference following '@'.
func (t *Tokenizer) readLabel(start Position) Token {
	var ref Ref
	switch {
	case t.peekIs('<'):
		t.read()
		ref = RefLow
	case t.peekIs('>'):
		t.read()
		ref = RefHigh
	}

	name := t.readName()
	if name == "" {
		return t.errorf(start, "expected label name after '@'")
	}

	if ref != RefNone {
		return Token{Type: Immediate, Pos: start, Text: name, Ref: ref}
	}
	return Token{Type: Label, Pos: start, Text: name}
}

// readRegister reads a register operand following '$'. Registers are a
// single hexadecimal digit, or 's' for the stack pointer.
func (t *Tokenizer) readRegister(start Position) Token {
	if t.eof() {
		return t.errorf(start, "expected register name after '$'")
	}

	c := t.read()
	var index int
	switch {
	case c == 's':
		index = arch.SP
	case isDigit(c):
		index = int(c - '0')
	case c >= 'a' && c <= 'f':
		index = int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		index = int(c-'A') + 10
	default:
		return t.errorf(start, "invalid register '$%c'", c)
	}

	if !t.eof() && isWordChar(t.peek()) {
		return t.errorf(start, "invalid register name")
	}

	return Token{Type: Register, Pos: start, Value: index}
}

// readAddress reads a 16-bit hexadecimal address following '%'.
func (t *Tokenizer) readAddress(start Position) Token {
	digits := t.readWhile(isHexDigit)
	if digits == "" {
		return t.errorf(start, "expected hex address after '%%'")
	}

	v, err := ParseHex(digits)
	if err != nil || v > 0xffff {
		return t.errorf(start, "address %%%s out of range", digits)
	}

	return Token{Type: Address, Pos: start, Value: int(v)}
}

// readIndirect reads a zero-page pointer following '('. The closing
// parenthesis is emitted as its own token.
func (t *Tokenizer) readIndirect(start Position) Token {
	digits := t.readWhile(isHexDigit)
	if digits == "" {
		return t.errorf(start, "expected hex zero-page address after '('")
	}

	v, err := ParseHex(digits)
	if err != nil || v > 0xff {
		return t.errorf(start, "zero-page address (%s) out of range", digits)
	}

	return Token{Type: Indirect, Pos: start, Value: int(v)}
}

// readDirective reads a directive name following '.'.
func (t *Tokenizer) readDirective(start Position) Token {
	name := t.readName()
	if name == "" {
		return t.errorf(start, "expected directive name after '.'")
	}
	return Token{Type: Directive, Pos: start, Text: name}
}

// readCharLiteral reads a character literal. Escape sequences yield
// their byte value.
func (t *Tokenizer) readCharLiteral(start Position) Token {
	if t.eof() {
		return t.errorf(start, "unterminated character literal")
	}

	c := t.read()
	if c == '\'' {
		return t.errorf(start, "empty character literal")
	}

	var v byte
	if c == '\\' {
		if t.eof() {
			return t.errorf(start, "unterminated character literal")
		}
		e := t.read()
		switch e {
		case 'n':
			v = '\n'
		case 't':
			v = '\t'
		case 'r':
			v = '\r'
		case '0':
			v = 0
		case '\\':
			v = '\\'
		case '\'':
			v = '\''
		default:
			return t.errorf(start, "invalid escape sequence '\\%c'", e)
		}
	} else {
		v = c
	}

	if t.eof() || t.read() != '\'' {
		return t.errorf(start, "unterminated character literal")
	}

	return Token{Type: Immediate, Pos: start, Value: int(v)}
}

// readNumber reads a numeric literal. 0x, 0o and 0b prefixes select
// the base; plain digits are decimal.
func (t *Tokenizer) readNumber(start Position, first byte) Token {
	text := string(first) + t.readWhile(isWordChar)

	v, err := ParseNumber(text)
	if err != nil || v < 0 || v > 0xffff {
		return t.errorf(start, "invalid number '%s'", text)
	}

	return Token{Type: Immediate, Pos: start, Value: int(v)}
}

// readWord reads an instruction mnemonic or identifier.
func (t *Tokenizer) readWord(start Position, first byte) Token {
	name := string(first) + t.readName()

	if in, ok := arch.Mnemonic(name); ok {
		return Token{Type: Instruction, Pos: start, Text: name, Value: int(in)}
	}
	return Token{Type: Ident, Pos: start, Text: name}
}

// readName reads zero or more name characters.
func (t *Tokenizer) readName() string {
	return t.readWhile(isWordChar)
}

// readWhile reads bytes as long as they satisfy the predicate.
func (t *Tokenizer) readWhile(pred func(byte) bool) string {
	var out []byte
	for !t.eof() && pred(t.peek()) {
		out = append(out, t.read())
	}
	return string(out)
}

// skipSpace reads and discards whitespace and '#' line comments.
func (t *Tokenizer) skipSpace() {
	for !t.eof() {
		c := t.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			t.read()
		case c == '#':
			for !t.eof() && t.read() != '\n' {
			}
		default:
			return
		}
	}
}

// errorf returns a new error token with the given message.
func (t *Tokenizer) errorf(pos Position, f string, argv ...interface{}) Token {
	return Token{Type: ErrorToken, Pos: pos, Text: fmt.Sprintf(f, argv...)}
}

func (t *Tokenizer) eof() bool {
	return t.pos.Offset >= len(t.data)
}

func (t *Tokenizer) peek() byte {
	return t.data[t.pos.Offset]
}

func (t *Tokenizer) peekIs(c byte) bool {
	return !t.eof() && t.peek() == c
}

// read reads the next byte from the stream.
func (t *Tokenizer) read() byte {
	c := t.data[t.pos.Offset]
	t.pos.Offset++

	if c == '\n' {
		t.pos.Line++
		t.pos.Col = 1
	} else {
		t.pos.Col++
	}

	return c
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isWordChar(c byte) bool {
	return isAlpha(c) || isDigit(c) || c == '_'
}
