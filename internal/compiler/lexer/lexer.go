package lexer

import (
	"fmt"
	"math"

	"github.com/arnavsurve/minipas/internal/compiler/diag"
	"github.com/arnavsurve/minipas/internal/compiler/token"
)

type Lexer struct {
	input        string
	source       string
	position     int  // current char index
	readPosition int  // next char index
	ch           byte // current char

	line   int // line of ch (1-indexed)
	column int // column of ch (1-indexed)

	errors []*diag.LexicalError

	// OnError, when set, is called for every lexical error as it is reported.
	OnError func(*diag.LexicalError)
}

func New(input string) *Lexer {
	return NewNamed("", input)
}

// NewNamed creates a lexer whose diagnostics carry source as the file name.
func NewNamed(source, input string) *Lexer {
	l := &Lexer{input: input, source: source, line: 1, column: 0, position: -1}
	l.readChar()
	return l
}

// readChar advances to the next character, keeping line/column in step.
// At end of input it stays put.
func (l *Lexer) readChar() {
	if l.position >= len(l.input) {
		return
	}
	if l.position >= 0 && l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

// Returns the next character without consuming it
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) atEnd() bool {
	return l.position >= len(l.input)
}

// Line and Column report the position of the next unread character.
func (l *Lexer) Line() int   { return l.line }
func (l *Lexer) Column() int { return l.column }

// Errors returns every lexical error reported so far.
func (l *Lexer) Errors() []*diag.LexicalError {
	return l.errors
}

func (l *Lexer) report(line, col int, format string, args ...any) *diag.LexicalError {
	err := &diag.LexicalError{
		Msg:    fmt.Sprintf(format, args...),
		Source: l.source,
		Line:   line,
		Column: col,
	}
	l.errors = append(l.errors, err)
	if l.OnError != nil {
		l.OnError(err)
	}
	return err
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	startLine := l.line
	startCol := l.column

	switch {
	case l.atEnd():
		return l.newToken(token.EOI, startLine, startCol)
	case isLetter(l.ch):
		ident := l.readIdentifier()
		kind := token.Lookup(ident)
		tok := l.newToken(kind, startLine, startCol)
		if kind == token.Identifier {
			tok.Text = ident
		}
		return tok
	case isDigit(l.ch):
		return l.readNumber(startLine, startCol)
	default:
		return l.readSpecial(startLine, startCol)
	}
}

func (l *Lexer) newToken(kind token.Kind, line, col int) token.Token {
	return token.Token{Kind: kind, Line: line, Column: col}
}

func (l *Lexer) errorToken(line, col int, format string, args ...any) token.Token {
	err := l.report(line, col, format, args...)
	tok := l.newToken(token.Err, line, col)
	tok.Text = err.Msg
	return tok
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for !l.atEnd() && isWhitespace(l.ch) {
			l.readChar()
		}
		if !l.atEnd() && l.ch == '{' {
			l.skipComment()
			continue
		}
		return
	}
}

// skipComment consumes a { } comment, honouring nesting. An unterminated
// comment is reported once and leaves the lexer at end of input.
func (l *Lexer) skipComment() {
	startLine, startCol := l.line, l.column
	depth := 0
	for {
		if l.atEnd() {
			l.report(startLine, startCol,
				"unexpected end of input: comment started around line %d was never finished", startLine)
			return
		}
		switch l.ch {
		case '{':
			depth++
		case '}':
			depth--
		}
		l.readChar()
		if depth == 0 {
			return
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for !l.atEnd() && (isLetter(l.ch) || isDigit(l.ch)) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber scans a decimal literal. A digit run running straight into a
// letter is an error; the whole alphanumeric run is consumed with it.
func (l *Lexer) readNumber(line, col int) token.Token {
	var n int64
	overflow := false
	for !l.atEnd() && isDigit(l.ch) {
		d := int64(l.ch - '0')
		if n > (math.MaxInt64-d)/10 {
			overflow = true
		} else {
			n = n*10 + d
		}
		l.readChar()
	}

	if !l.atEnd() && isLetter(l.ch) {
		l.readIdentifier()
		return l.errorToken(line, col, "Number expected, Character found")
	}
	if overflow {
		return l.errorToken(line, col, "number literal too large")
	}

	tok := l.newToken(token.Number, line, col)
	tok.Number = n
	return tok
}

var singleChars = map[byte]token.Kind{
	';': token.Semicolon,
	',': token.Comma,
	'+': token.Plus,
	'-': token.Minus,
	'*': token.Times,
	'/': token.Divide,
	'(': token.LeftParen,
	')': token.RightParen,
	'[': token.LeftBracket,
	']': token.RightBracket,
	'=': token.Equal,
}

func (l *Lexer) readSpecial(line, col int) token.Token {
	ch := l.ch
	if kind, ok := singleChars[ch]; ok {
		l.readChar()
		return l.newToken(kind, line, col)
	}

	// Two-character operators are matched greedily.
	next := l.peekChar()
	var kind token.Kind
	switch {
	case ch == ':' && next == '=':
		kind = token.Assign
	case ch == ':':
		kind = token.Colon
	case ch == '<' && next == '>':
		kind = token.NotEqual
	case ch == '<' && next == '=':
		kind = token.LessThanEq
	case ch == '<':
		kind = token.LessThan
	case ch == '>' && next == '=':
		kind = token.GreaterThanEq
	case ch == '>':
		kind = token.GreaterThan
	case ch == '.' && next == '.':
		kind = token.DotDot
	case ch == '.':
		kind = token.Dot
	default:
		l.readChar()
		return l.errorToken(line, col, "unexpected character %q", ch)
	}

	switch kind {
	case token.Assign, token.NotEqual, token.LessThanEq, token.GreaterThanEq, token.DotDot:
		l.readChar()
	}
	l.readChar()
	return l.newToken(kind, line, col)
}

func isLetter(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isWhitespace(ch byte) bool {
	return ch <= ' '
}
