package token

import "fmt"

type Kind int

const (
	Identifier Kind = iota
	Number

	// Operators
	Plus          // +
	Minus         // -
	Times         // *
	Divide        // /
	Equal         // =
	NotEqual      // <>
	LessThan      // <
	GreaterThan   // >
	LessThanEq    // <=
	GreaterThanEq // >=
	Assign        // :=

	// Punctuation
	LeftParen    // (
	RightParen   // )
	LeftBracket  // [
	RightBracket // ]
	Comma        // ,
	Colon        // :
	Semicolon    // ;
	Dot          // .
	DotDot       // ..

	// Keywords
	KwVar
	KwConst
	KwIf
	KwThen
	KwElse
	KwBegin
	KwEnd
	KwWhile
	KwDo
	KwFor
	KwTo
	KwDownto
	KwStep
	KwProgram
	KwProcedure
	KwFunction
	KwForward
	KwInteger
	KwArray
	KwOf
	KwOr
	KwAnd
	KwMod
	KwDiv
	KwExit
	KwBreak

	// Special
	EOI
	Err
)

var names = [...]string{
	Identifier:    "IDENTIFIER",
	Number:        "NUMBER",
	Plus:          "PLUS",
	Minus:         "MINUS",
	Times:         "TIMES",
	Divide:        "DIVIDE",
	Equal:         "EQUAL",
	NotEqual:      "NOTEQUAL",
	LessThan:      "LESSTHAN",
	GreaterThan:   "GREATERTHAN",
	LessThanEq:    "LESSTHANEQ",
	GreaterThanEq: "GREATERTHANEQ",
	Assign:        "ASSIGN",
	LeftParen:     "LEFTPAREN",
	RightParen:    "RIGHTPAREN",
	LeftBracket:   "LEFTBRACKET",
	RightBracket:  "RIGHTBRACKET",
	Comma:         "COMMA",
	Colon:         "COLON",
	Semicolon:     "SEMICOLON",
	Dot:           "DOT",
	DotDot:        "DOTDOT",
	KwVar:         "kwVAR",
	KwConst:       "kwCONST",
	KwIf:          "kwIF",
	KwThen:        "kwTHEN",
	KwElse:        "kwELSE",
	KwBegin:       "kwBEGIN",
	KwEnd:         "kwEND",
	KwWhile:       "kwWHILE",
	KwDo:          "kwDO",
	KwFor:         "kwFOR",
	KwTo:          "kwTO",
	KwDownto:      "kwDOWNTO",
	KwStep:        "kwSTEP",
	KwProgram:     "kwPROGRAM",
	KwProcedure:   "kwPROCEDURE",
	KwFunction:    "kwFUNCTION",
	KwForward:     "kwFORWARD",
	KwInteger:     "kwINTEGER",
	KwArray:       "kwARRAY",
	KwOf:          "kwOF",
	KwOr:          "kwOR",
	KwAnd:         "kwAND",
	KwMod:         "kwMOD",
	KwDiv:         "kwDIV",
	KwExit:        "kwEXIT",
	KwBreak:       "kwBREAK",
	EOI:           "EOI",
	Err:           "ERR",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(names) {
		return names[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Symbol returns the source spelling of operator, punctuation and keyword kinds.
func (k Kind) Symbol() string {
	if s, ok := symbols[k]; ok {
		return s
	}
	return k.String()
}

var symbols = map[Kind]string{
	Plus: "+", Minus: "-", Times: "*", Divide: "/",
	Equal: "=", NotEqual: "<>", LessThan: "<", GreaterThan: ">",
	LessThanEq: "<=", GreaterThanEq: ">=", Assign: ":=",
	LeftParen: "(", RightParen: ")", LeftBracket: "[", RightBracket: "]",
	Comma: ",", Colon: ":", Semicolon: ";", Dot: ".", DotDot: "..",
}

func init() {
	for word, kind := range keywords {
		symbols[kind] = word
	}
}

// keywords maps reserved words to their kinds. Lookup is case-sensitive.
var keywords = map[string]Kind{
	"var":       KwVar,
	"const":     KwConst,
	"if":        KwIf,
	"then":      KwThen,
	"else":      KwElse,
	"begin":     KwBegin,
	"end":       KwEnd,
	"while":     KwWhile,
	"do":        KwDo,
	"for":       KwFor,
	"to":        KwTo,
	"downto":    KwDownto,
	"step":      KwStep,
	"program":   KwProgram,
	"procedure": KwProcedure,
	"function":  KwFunction,
	"forward":   KwForward,
	"integer":   KwInteger,
	"array":     KwArray,
	"of":        KwOf,
	"or":        KwOr,
	"and":       KwAnd,
	"mod":       KwMod,
	"div":       KwDiv,
	"exit":      KwExit,
	"break":     KwBreak,
}

// Lookup returns the keyword kind for ident, or Identifier.
func Lookup(ident string) Kind {
	if kind, ok := keywords[ident]; ok {
		return kind
	}
	return Identifier
}

// Position is a 1-based line/column pair.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

type Token struct {
	Kind   Kind
	Number int64  // NUMBER payload
	Text   string // IDENTIFIER name or ERR message
	Line   int
	Column int
}

func (t Token) Pos() Position {
	return Position{Line: t.Line, Column: t.Column}
}

func (t Token) String() string {
	switch t.Kind {
	case Identifier, Err:
		return fmt.Sprintf("<%s %s>", t.Kind, t.Text)
	case Number:
		return fmt.Sprintf("<%s %d>", t.Kind, t.Number)
	default:
		return fmt.Sprintf("<%s>", t.Kind)
	}
}

// IsRelational reports whether k is one of = <> < > <= >=.
func (k Kind) IsRelational() bool {
	switch k {
	case Equal, NotEqual, LessThan, GreaterThan, LessThanEq, GreaterThanEq:
		return true
	}
	return false
}

// IsAdditive reports whether k is one of + - or.
func (k Kind) IsAdditive() bool {
	return k == Plus || k == Minus || k == KwOr
}

// IsMultiplicative reports whether k is one of * / and mod div.
func (k Kind) IsMultiplicative() bool {
	switch k {
	case Times, Divide, KwAnd, KwMod, KwDiv:
		return true
	}
	return false
}
