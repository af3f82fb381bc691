// Package diag defines the compiler's diagnostics: lexical, syntax and
// semantic errors, and the sink that collects them during a compilation.
package diag

import (
	"errors"
	"fmt"

	"github.com/arnavsurve/minipas/internal/compiler/token"
)

// Code classifies a diagnostic.
type Code string

const (
	CodeLexical  Code = "LEXICAL"
	CodeSyntax   Code = "SYNTAX"
	CodeSemantic Code = "SEMANTIC"
)

// Diagnostic is implemented by every error kind in this package.
type Diagnostic interface {
	error
	Code() Code
	Position() token.Position
	Message() string
}

// LexicalError is reported by the token source. Scanning usually continues past it.
type LexicalError struct {
	Msg    string
	Source string
	Line   int
	Column int
}

func (e *LexicalError) Error() string {
	return format(e.Source, e.Line, e.Column, "lexical", e.Msg)
}

func (e *LexicalError) Code() Code               { return CodeLexical }
func (e *LexicalError) Position() token.Position { return token.Position{Line: e.Line, Column: e.Column} }
func (e *LexicalError) Message() string          { return e.Msg }

// SyntaxError aborts a parse. Expected and Got are the token kinds involved.
type SyntaxError struct {
	Msg      string
	Expected token.Kind
	Got      token.Kind
	Source   string
	Line     int
	Column   int
}

func (e *SyntaxError) Error() string {
	return format(e.Source, e.Line, e.Column, "syntax", e.Msg)
}

func (e *SyntaxError) Code() Code               { return CodeSyntax }
func (e *SyntaxError) Position() token.Position { return token.Position{Line: e.Line, Column: e.Column} }
func (e *SyntaxError) Message() string          { return e.Msg }

// NewSyntaxError builds the standard expected/got diagnostic.
func NewSyntaxError(source string, expected token.Kind, got token.Token) *SyntaxError {
	msg := fmt.Sprintf("expected %s, got %s", expected, got.Kind)
	if got.Kind == token.Err && got.Text != "" {
		msg += " (" + got.Text + ")"
	}
	return &SyntaxError{
		Msg:      msg,
		Expected: expected,
		Got:      got.Kind,
		Source:   source,
		Line:     got.Line,
		Column:   got.Column,
	}
}

// SemanticError is reported by the code generator.
type SemanticError struct {
	Msg    string
	Source string
	Line   int
	Column int
}

func (e *SemanticError) Error() string {
	return format(e.Source, e.Line, e.Column, "semantic", e.Msg)
}

func (e *SemanticError) Code() Code               { return CodeSemantic }
func (e *SemanticError) Position() token.Position { return token.Position{Line: e.Line, Column: e.Column} }
func (e *SemanticError) Message() string          { return e.Msg }

func format(source string, line, col int, kind, msg string) string {
	if source == "" {
		source = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d: %s error: %s", source, line, col, kind, msg)
}

// As extracts the Diagnostic wrapped in err, if any.
func As(err error) (Diagnostic, bool) {
	var d Diagnostic
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// Sink collects diagnostics in report order.
type Sink struct {
	diags []Diagnostic
}

func (s *Sink) Report(d Diagnostic) {
	s.diags = append(s.diags, d)
}

func (s *Sink) Len() int { return len(s.diags) }

// First returns the earliest reported diagnostic, or nil.
func (s *Sink) First() Diagnostic {
	if len(s.diags) == 0 {
		return nil
	}
	return s.diags[0]
}

func (s *Sink) All() []Diagnostic {
	out := make([]Diagnostic, len(s.diags))
	copy(out, s.diags)
	return out
}
