package ast

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/arnavsurve/minipas/internal/compiler/token"
)

// --- Interfaces ---
type Node interface {
	Pos() token.Position
	String() string
}

// Declaration is one entry of a declaration part: a variable group, a
// constant group, a prototype or a routine definition.
type Declaration interface {
	Node
	declarationNode()
}

// Statement nodes all yield a value when generated; a statement sequence
// yields the value of its last statement.
type Statement interface {
	Node
	statementNode()
}

type Expression interface {
	Node
	expressionNode()
}

// --- Program ---

type Program struct {
	Token        token.Token // program
	Name         string
	Declarations []Declaration
	Body         *StatementSequence
}

func (p *Program) Pos() token.Position { return p.Token.Pos() }
func (p *Program) String() string {
	var out bytes.Buffer
	out.WriteString("program " + p.Name + ";\n")
	for _, d := range p.Declarations {
		out.WriteString(d.String())
		out.WriteString("\n")
	}
	out.WriteString(p.Body.String())
	out.WriteString(".")
	return out.String()
}

// Block is the body of a procedure or function: its own declarations
// followed by the statement part.
type Block struct {
	Token        token.Token
	Declarations []Declaration
	Body         *StatementSequence
}

func (b *Block) Pos() token.Position { return b.Token.Pos() }
func (b *Block) String() string {
	var out bytes.Buffer
	for _, d := range b.Declarations {
		out.WriteString(d.String())
		out.WriteString("\n")
	}
	out.WriteString(b.Body.String())
	return out.String()
}

// --- Types ---

type TypeKind int

const (
	TypeInteger TypeKind = iota
	TypeArray
)

type Type struct {
	Token token.Token
	Kind  TypeKind
	Low   Expression // array only
	High  Expression // array only
	Elem  *Type      // array only
}

func (t *Type) Pos() token.Position { return t.Token.Pos() }
func (t *Type) String() string {
	if t.Kind == TypeArray {
		return fmt.Sprintf("array[%s..%s] of %s", t.Low, t.High, t.Elem)
	}
	return "integer"
}

// --- Declarations ---

type VariableDeclarationGroup struct {
	Token        token.Token // var
	Declarations []*VariableDeclarationsOfType
}

func (d *VariableDeclarationGroup) declarationNode()    {}
func (d *VariableDeclarationGroup) Pos() token.Position { return d.Token.Pos() }
func (d *VariableDeclarationGroup) String() string {
	parts := make([]string, len(d.Declarations))
	for i, v := range d.Declarations {
		parts[i] = v.String()
	}
	return "var " + strings.Join(parts, " ")
}

type VariableDeclarationsOfType struct {
	Token       token.Token // first identifier
	Identifiers []*VariableReference
	Type        *Type
}

func (d *VariableDeclarationsOfType) Pos() token.Position { return d.Token.Pos() }
func (d *VariableDeclarationsOfType) String() string {
	names := make([]string, len(d.Identifiers))
	for i, id := range d.Identifiers {
		names[i] = id.Name
	}
	return strings.Join(names, ", ") + ": " + d.Type.String() + ";"
}

type Constant struct {
	Token token.Token
	Name  string
	Value int64
}

type ConstantDeclarations struct {
	Token     token.Token // const
	Constants []Constant
}

func (d *ConstantDeclarations) declarationNode()    {}
func (d *ConstantDeclarations) Pos() token.Position { return d.Token.Pos() }
func (d *ConstantDeclarations) String() string {
	var out bytes.Buffer
	out.WriteString("const")
	for _, c := range d.Constants {
		fmt.Fprintf(&out, " %s = %d;", c.Name, c.Value)
	}
	return out.String()
}

type Param struct {
	Token token.Token
	Name  string
	Type  *Type
}

// Prototype is a routine signature. On its own in a declaration part it is
// a forward declaration.
type Prototype struct {
	Token      token.Token // procedure | function
	Name       string
	Params     []Param
	ReturnType *Type // nil for procedures
	Forward    bool
}

func (p *Prototype) declarationNode()    {}
func (p *Prototype) Pos() token.Position { return p.Token.Pos() }
func (p *Prototype) IsFunction() bool    { return p.Token.Kind == token.KwFunction }
func (p *Prototype) String() string {
	var out bytes.Buffer
	if p.IsFunction() {
		out.WriteString("function ")
	} else {
		out.WriteString("procedure ")
	}
	out.WriteString(p.Name)
	if len(p.Params) > 0 {
		params := make([]string, len(p.Params))
		for i, prm := range p.Params {
			params[i] = prm.Name + ": " + prm.Type.String()
		}
		out.WriteString("(" + strings.Join(params, "; ") + ")")
	}
	if p.ReturnType != nil {
		out.WriteString(": " + p.ReturnType.String())
	}
	out.WriteString(";")
	if p.Forward {
		out.WriteString(" forward;")
	}
	return out.String()
}

// Clone returns a copy of the signature with its own parameter list and
// type nodes. The copy is never marked forward.
func (p *Prototype) Clone() *Prototype {
	c := *p
	c.Params = make([]Param, len(p.Params))
	for i, prm := range p.Params {
		prm.Type = prm.Type.Clone()
		c.Params[i] = prm
	}
	c.ReturnType = p.ReturnType.Clone()
	c.Forward = false
	return &c
}

// Clone copies the type node, its bound expressions and its element chain.
func (t *Type) Clone() *Type {
	if t == nil {
		return nil
	}
	c := *t
	c.Low = CloneExpression(t.Low)
	c.High = CloneExpression(t.High)
	c.Elem = t.Elem.Clone()
	return &c
}

// Function pairs a prototype with its body.
type Function struct {
	Prototype *Prototype
	Body      *Block
}

func (f *Function) declarationNode()    {}
func (f *Function) Pos() token.Position { return f.Prototype.Pos() }
func (f *Function) String() string {
	return f.Prototype.String() + "\n" + f.Body.String() + ";"
}

// --- Statements ---

type StatementSequence struct {
	Token      token.Token // begin
	Statements []Statement
}

func (s *StatementSequence) statementNode()      {}
func (s *StatementSequence) Pos() token.Position { return s.Token.Pos() }
func (s *StatementSequence) String() string {
	parts := make([]string, len(s.Statements))
	for i, st := range s.Statements {
		parts[i] = st.String()
	}
	return "begin " + strings.Join(parts, "; ") + " end"
}

type If struct {
	Token token.Token // if
	Cond  Expression
	Then  Statement
	Else  Statement // may be nil
}

func (s *If) statementNode()      {}
func (s *If) Pos() token.Position { return s.Token.Pos() }
func (s *If) String() string {
	out := "if " + s.Cond.String() + " then " + s.Then.String()
	if s.Else != nil {
		out += " else " + s.Else.String()
	}
	return out
}

type While struct {
	Token token.Token // while
	Cond  Expression
	Body  Statement
}

func (s *While) statementNode()      {}
func (s *While) Pos() token.Position { return s.Token.Pos() }
func (s *While) String() string {
	return "while " + s.Cond.String() + " do " + s.Body.String()
}

type For struct {
	Token     token.Token // for
	Var       string
	Direction token.Kind // KwTo or KwDownto
	Start     Expression
	End       Expression
	Step      Expression // may be nil
	Body      Statement
}

func (s *For) statementNode()      {}
func (s *For) Pos() token.Position { return s.Token.Pos() }
func (s *For) String() string {
	var out bytes.Buffer
	fmt.Fprintf(&out, "for %s := %s %s %s", s.Var, s.Start, s.Direction.Symbol(), s.End)
	if s.Step != nil {
		out.WriteString(" step " + s.Step.String())
	}
	out.WriteString(" do " + s.Body.String())
	return out.String()
}

// ExitOrBreak is a bare exit or break statement.
type ExitOrBreak struct {
	Token token.Token
	Which token.Kind // KwExit or KwBreak
}

func (s *ExitOrBreak) statementNode()      {}
func (s *ExitOrBreak) Pos() token.Position { return s.Token.Pos() }
func (s *ExitOrBreak) String() string      { return s.Which.Symbol() }

// --- Expressions ---

type NumberLiteral struct {
	Token token.Token
	Value int64
}

func (e *NumberLiteral) expressionNode()     {}
func (e *NumberLiteral) Pos() token.Position { return e.Token.Pos() }
func (e *NumberLiteral) String() string      { return fmt.Sprintf("%d", e.Value) }

type VariableReference struct {
	Token token.Token
	Name  string
}

func (e *VariableReference) expressionNode()     {}
func (e *VariableReference) Pos() token.Position { return e.Token.Pos() }
func (e *VariableReference) String() string      { return e.Name }

type UnaryOp struct {
	Token   token.Token // operator
	Op      token.Kind
	Operand Expression
}

func (e *UnaryOp) expressionNode()     {}
func (e *UnaryOp) Pos() token.Position { return e.Token.Pos() }
func (e *UnaryOp) String() string {
	return "(" + e.Op.Symbol() + e.Operand.String() + ")"
}

// BinaryOp covers arithmetic operators and assignment. An assignment has
// Op == token.Assign and is also a statement.
type BinaryOp struct {
	Token token.Token // operator
	Op    token.Kind
	Left  Expression
	Right Expression
}

func (e *BinaryOp) expressionNode()     {}
func (e *BinaryOp) statementNode()      {}
func (e *BinaryOp) Pos() token.Position { return e.Token.Pos() }
func (e *BinaryOp) IsAssignment() bool  { return e.Op == token.Assign }
func (e *BinaryOp) String() string {
	if e.IsAssignment() {
		return e.Left.String() + " := " + e.Right.String()
	}
	return "(" + e.Left.String() + " " + e.Op.Symbol() + " " + e.Right.String() + ")"
}

type ComparisonOp struct {
	Token token.Token // operator
	Op    token.Kind
	Left  Expression
	Right Expression
}

func (e *ComparisonOp) expressionNode()     {}
func (e *ComparisonOp) Pos() token.Position { return e.Token.Pos() }
func (e *ComparisonOp) String() string {
	return "(" + e.Left.String() + " " + e.Op.Symbol() + " " + e.Right.String() + ")"
}

// Call is both an expression and a statement.
type Call struct {
	Token  token.Token // callee identifier
	Callee string
	Args   []Expression
}

func (e *Call) expressionNode()     {}
func (e *Call) statementNode()      {}
func (e *Call) Pos() token.Position { return e.Token.Pos() }
func (e *Call) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return e.Callee + "(" + strings.Join(args, ", ") + ")"
}

// CloneExpression returns a deep copy of e. A nil expression stays nil.
func CloneExpression(e Expression) Expression {
	switch e := e.(type) {
	case *NumberLiteral:
		c := *e
		return &c
	case *VariableReference:
		c := *e
		return &c
	case *UnaryOp:
		c := *e
		c.Operand = CloneExpression(e.Operand)
		return &c
	case *BinaryOp:
		c := *e
		c.Left, c.Right = CloneExpression(e.Left), CloneExpression(e.Right)
		return &c
	case *ComparisonOp:
		c := *e
		c.Left, c.Right = CloneExpression(e.Left), CloneExpression(e.Right)
		return &c
	case *Call:
		c := *e
		c.Args = make([]Expression, len(e.Args))
		for i, a := range e.Args {
			c.Args[i] = CloneExpression(a)
		}
		return &c
	}
	return e
}
