package parser

import (
	"fmt"

	"github.com/arnavsurve/minipas/internal/compiler/ast"
	"github.com/arnavsurve/minipas/internal/compiler/diag"
	"github.com/arnavsurve/minipas/internal/compiler/token"
)

// TokenSource is anything that yields tokens one at a time.
type TokenSource interface {
	NextToken() token.Token
}

// DefaultBuiltins are the routine names that may be called as a statement
// without an argument list.
var DefaultBuiltins = []string{"write", "writeln", "read", "readln"}

type Parser struct {
	src    TokenSource
	source string
	curTok token.Token

	builtins map[string]bool

	// Forward-declared prototypes by name, one map per declaration level,
	// used to complete a definition whose header leaves out the parameter
	// list.
	forwards []map[string]*ast.Prototype
}

// New creates a parser reading from src. source names the input in
// diagnostics. When no builtins are given DefaultBuiltins is used.
func New(src TokenSource, source string, builtins ...string) *Parser {
	if builtins == nil {
		builtins = DefaultBuiltins
	}
	p := &Parser{
		src:      src,
		source:   source,
		builtins: make(map[string]bool, len(builtins)),
	}
	for _, b := range builtins {
		p.builtins[b] = true
	}
	p.nextToken()
	return p
}

// --- Token Handling ---
func (p *Parser) nextToken() {
	p.curTok = p.src.NextToken()
}

// consume checks that the current token has the given kind and advances
// past it. On mismatch nothing is consumed.
func (p *Parser) consume(kind token.Kind) (token.Token, error) {
	tok := p.curTok
	if tok.Kind != kind {
		return tok, diag.NewSyntaxError(p.source, kind, tok)
	}
	p.nextToken()
	return tok, nil
}

func (p *Parser) curIs(kind token.Kind) bool {
	return p.curTok.Kind == kind
}

// unexpected reports a token that cannot start the construct being parsed.
func (p *Parser) unexpected(expected token.Kind, what string) error {
	err := diag.NewSyntaxError(p.source, expected, p.curTok)
	err.Msg = fmt.Sprintf("expected %s, got %s", what, p.curTok.Kind)
	if p.curTok.Kind == token.Err && p.curTok.Text != "" {
		err.Msg += " (" + p.curTok.Text + ")"
	}
	return err
}

// --- Program and declarations ---

func (p *Parser) ParseProgram() (*ast.Program, error) {
	progTok, err := p.consume(token.KwProgram)
	if err != nil {
		return nil, err
	}
	name, err := p.consume(token.Identifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.Semicolon); err != nil {
		return nil, err
	}

	decls, err := p.parseDeclarations()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBeginEnd()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.Dot); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.EOI); err != nil {
		return nil, err
	}

	return &ast.Program{
		Token:        progTok,
		Name:         name.Text,
		Declarations: decls,
		Body:         body,
	}, nil
}

// parseDeclarations reads declaration parts until the statement part begins.
func (p *Parser) parseDeclarations() ([]ast.Declaration, error) {
	p.forwards = append(p.forwards, make(map[string]*ast.Prototype))
	defer func() { p.forwards = p.forwards[:len(p.forwards)-1] }()

	var decls []ast.Declaration
	for {
		var (
			decl ast.Declaration
			err  error
		)
		switch p.curTok.Kind {
		case token.KwVar:
			decl, err = p.parseVarDeclarations()
		case token.KwConst:
			decl, err = p.parseConstDeclarations()
		case token.KwProcedure, token.KwFunction:
			decl, err = p.parseRoutine()
		default:
			return decls, nil
		}
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
}

func (p *Parser) parseVarDeclarations() (*ast.VariableDeclarationGroup, error) {
	group := &ast.VariableDeclarationGroup{Token: p.curTok}
	p.nextToken() // var

	for {
		decl, err := p.parseVarGroup()
		if err != nil {
			return nil, err
		}
		group.Declarations = append(group.Declarations, decl)
		if !p.curIs(token.Identifier) {
			return group, nil
		}
	}
}

func (p *Parser) parseVarGroup() (*ast.VariableDeclarationsOfType, error) {
	decl := &ast.VariableDeclarationsOfType{Token: p.curTok}
	ids, err := p.parseIdentList()
	if err != nil {
		return nil, err
	}
	decl.Identifiers = ids
	if _, err := p.consume(token.Colon); err != nil {
		return nil, err
	}
	if decl.Type, err = p.parseType(); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.Semicolon); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseIdentList() ([]*ast.VariableReference, error) {
	var ids []*ast.VariableReference
	for {
		tok, err := p.consume(token.Identifier)
		if err != nil {
			return nil, err
		}
		ids = append(ids, &ast.VariableReference{Token: tok, Name: tok.Text})
		if !p.curIs(token.Comma) {
			return ids, nil
		}
		p.nextToken()
	}
}

func (p *Parser) parseType() (*ast.Type, error) {
	typ := &ast.Type{Token: p.curTok}
	switch p.curTok.Kind {
	case token.KwInteger:
		p.nextToken()
		typ.Kind = ast.TypeInteger
		return typ, nil
	case token.KwArray:
		p.nextToken()
	default:
		return nil, p.unexpected(token.KwInteger, "type")
	}

	typ.Kind = ast.TypeArray
	var err error
	if _, err = p.consume(token.LeftBracket); err != nil {
		return nil, err
	}
	if typ.Low, err = p.parseExpression(); err != nil {
		return nil, err
	}
	if _, err = p.consume(token.DotDot); err != nil {
		return nil, err
	}
	if typ.High, err = p.parseExpression(); err != nil {
		return nil, err
	}
	if _, err = p.consume(token.RightBracket); err != nil {
		return nil, err
	}
	if _, err = p.consume(token.KwOf); err != nil {
		return nil, err
	}
	if typ.Elem, err = p.parseType(); err != nil {
		return nil, err
	}
	return typ, nil
}

func (p *Parser) parseConstDeclarations() (*ast.ConstantDeclarations, error) {
	decl := &ast.ConstantDeclarations{Token: p.curTok}
	p.nextToken() // const

	for {
		name, err := p.consume(token.Identifier)
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.Equal); err != nil {
			return nil, err
		}
		negative := false
		if p.curIs(token.Minus) {
			negative = true
			p.nextToken()
		}
		num, err := p.consume(token.Number)
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.Semicolon); err != nil {
			return nil, err
		}

		value := num.Number
		if negative {
			value = -value
		}
		decl.Constants = append(decl.Constants, ast.Constant{Token: name, Name: name.Text, Value: value})
		if !p.curIs(token.Identifier) {
			return decl, nil
		}
	}
}

// parseRoutine parses a procedure or function declaration. A forward
// declaration yields the bare *ast.Prototype, a definition an *ast.Function.
func (p *Parser) parseRoutine() (ast.Declaration, error) {
	proto := &ast.Prototype{Token: p.curTok}
	isFunction := p.curIs(token.KwFunction)
	forwards := p.forwards[len(p.forwards)-1]
	p.nextToken()

	name, err := p.consume(token.Identifier)
	if err != nil {
		return nil, err
	}
	proto.Name = name.Text

	hasParams := false
	if p.curIs(token.LeftParen) {
		hasParams = true
		if proto.Params, err = p.parseParams(); err != nil {
			return nil, err
		}
	}
	if isFunction {
		if p.curIs(token.Colon) {
			p.nextToken()
			if proto.ReturnType, err = p.parseType(); err != nil {
				return nil, err
			}
		} else {
			proto.ReturnType = &ast.Type{Token: p.curTok, Kind: ast.TypeInteger}
		}
	}
	if _, err := p.consume(token.Semicolon); err != nil {
		return nil, err
	}

	if p.curIs(token.KwForward) {
		p.nextToken()
		if _, err := p.consume(token.Semicolon); err != nil {
			return nil, err
		}
		proto.Forward = true
		forwards[proto.Name] = proto
		return proto, nil
	}

	// A definition completing a forward declaration of the same level may
	// repeat the parameter list or leave it out.
	if fwd, ok := forwards[proto.Name]; ok && !hasParams {
		completed := fwd.Clone()
		completed.Token = proto.Token
		proto = completed
	}
	delete(forwards, proto.Name)

	block := &ast.Block{Token: p.curTok}
	if block.Declarations, err = p.parseDeclarations(); err != nil {
		return nil, err
	}
	if block.Body, err = p.parseBeginEnd(); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.Semicolon); err != nil {
		return nil, err
	}
	return &ast.Function{Prototype: proto, Body: block}, nil
}

// parseParams parses a parenthesised parameter list. Groups may be
// separated by either ',' or ';'.
func (p *Parser) parseParams() ([]ast.Param, error) {
	if _, err := p.consume(token.LeftParen); err != nil {
		return nil, err
	}
	var params []ast.Param
	if p.curIs(token.RightParen) {
		p.nextToken()
		return params, nil
	}
	for {
		ids, err := p.parseIdentList()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.Colon); err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		for i, id := range ids {
			t := typ
			if i > 0 {
				t = typ.Clone()
			}
			params = append(params, ast.Param{Token: id.Token, Name: id.Name, Type: t})
		}
		if p.curIs(token.Comma) || p.curIs(token.Semicolon) {
			p.nextToken()
			continue
		}
		if _, err := p.consume(token.RightParen); err != nil {
			return nil, err
		}
		return params, nil
	}
}

// --- Statements ---

// parseBeginEnd parses "begin" sequence "end".
func (p *Parser) parseBeginEnd() (*ast.StatementSequence, error) {
	begin, err := p.consume(token.KwBegin)
	if err != nil {
		return nil, err
	}
	seq := &ast.StatementSequence{Token: begin}
	for {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		seq.Statements = append(seq.Statements, stmt)

		// An empty statement between ';' and 'end' is allowed.
		if !p.curIs(token.Semicolon) {
			break
		}
		p.nextToken()
		if p.curIs(token.KwEnd) {
			break
		}
	}
	if _, err := p.consume(token.KwEnd); err != nil {
		return nil, err
	}
	return seq, nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.curTok.Kind {
	case token.KwIf:
		return p.parseIf()
	case token.KwFor:
		return p.parseFor()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwBegin:
		return p.parseBeginEnd()
	case token.KwExit, token.KwBreak:
		tok := p.curTok
		p.nextToken()
		return &ast.ExitOrBreak{Token: tok, Which: tok.Kind}, nil
	case token.Identifier:
		return p.parseRegularStatement()
	default:
		return nil, p.unexpected(token.Identifier, "statement")
	}
}

func (p *Parser) parseIf() (*ast.If, error) {
	stmt := &ast.If{Token: p.curTok}
	p.nextToken() // if

	var err error
	if stmt.Cond, err = p.parseExpression(); err != nil {
		return nil, err
	}
	if _, err = p.consume(token.KwThen); err != nil {
		return nil, err
	}
	if stmt.Then, err = p.parseStatement(); err != nil {
		return nil, err
	}
	if p.curIs(token.KwElse) {
		p.nextToken()
		if stmt.Else, err = p.parseStatement(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (*ast.While, error) {
	stmt := &ast.While{Token: p.curTok}
	p.nextToken() // while

	var err error
	if stmt.Cond, err = p.parseExpression(); err != nil {
		return nil, err
	}
	if _, err = p.consume(token.KwDo); err != nil {
		return nil, err
	}
	if stmt.Body, err = p.parseStatement(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseFor() (*ast.For, error) {
	stmt := &ast.For{Token: p.curTok}
	p.nextToken() // for

	v, err := p.consume(token.Identifier)
	if err != nil {
		return nil, err
	}
	stmt.Var = v.Text
	if _, err = p.consume(token.Assign); err != nil {
		return nil, err
	}
	if stmt.Start, err = p.parseExpression(); err != nil {
		return nil, err
	}

	switch p.curTok.Kind {
	case token.KwTo, token.KwDownto:
		stmt.Direction = p.curTok.Kind
		p.nextToken()
	default:
		return nil, p.unexpected(token.KwTo, "to or downto")
	}

	if stmt.End, err = p.parseExpression(); err != nil {
		return nil, err
	}
	if p.curIs(token.KwStep) {
		p.nextToken()
		if stmt.Step, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if _, err = p.consume(token.KwDo); err != nil {
		return nil, err
	}
	if stmt.Body, err = p.parseStatement(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseRegularStatement handles statements starting with an identifier:
// assignment, call with arguments, or a bare builtin call.
func (p *Parser) parseRegularStatement() (ast.Statement, error) {
	ident := p.curTok
	p.nextToken()

	switch {
	case p.curIs(token.Assign):
		op := p.curTok
		p.nextToken()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryOp{
			Token: op,
			Op:    token.Assign,
			Left:  &ast.VariableReference{Token: ident, Name: ident.Text},
			Right: value,
		}, nil
	case p.curIs(token.LeftParen):
		return p.parseCall(ident)
	case p.builtins[ident.Text]:
		return &ast.Call{Token: ident, Callee: ident.Text}, nil
	default:
		return nil, p.unexpected(token.Assign, "':=' or '('")
	}
}

// parseCall parses the argument list following a callee identifier.
func (p *Parser) parseCall(callee token.Token) (*ast.Call, error) {
	call := &ast.Call{Token: callee, Callee: callee.Text}
	if _, err := p.consume(token.LeftParen); err != nil {
		return nil, err
	}
	if p.curIs(token.RightParen) {
		p.nextToken()
		return call, nil
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if !p.curIs(token.Comma) {
			break
		}
		p.nextToken()
	}
	if _, err := p.consume(token.RightParen); err != nil {
		return nil, err
	}
	return call, nil
}

// --- Expressions ---

// parseExpression parses the comparison level, folding left.
func (p *Parser) parseExpression() (ast.Expression, error) {
	left, err := p.parseSimpleExpression()
	if err != nil {
		return nil, err
	}
	for p.curTok.Kind.IsRelational() {
		op := p.curTok
		p.nextToken()
		right, err := p.parseSimpleExpression()
		if err != nil {
			return nil, err
		}
		left = &ast.ComparisonOp{Token: op, Op: op.Kind, Left: left, Right: right}
	}
	return left, nil
}

// parseSimpleExpression parses the additive level. A leading minus applies
// to the whole chain.
func (p *Parser) parseSimpleExpression() (ast.Expression, error) {
	var neg *token.Token
	if p.curIs(token.Minus) {
		tok := p.curTok
		neg = &tok
		p.nextToken()
	}

	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.curTok.Kind.IsAdditive() {
		op := p.curTok
		p.nextToken()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Token: op, Op: op.Kind, Left: left, Right: right}
	}

	if neg != nil {
		return &ast.UnaryOp{Token: *neg, Op: token.Minus, Operand: left}, nil
	}
	return left, nil
}

func (p *Parser) parseTerm() (ast.Expression, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.curTok.Kind.IsMultiplicative() {
		op := p.curTok
		p.nextToken()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Token: op, Op: op.Kind, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseFactor() (ast.Expression, error) {
	tok := p.curTok
	switch tok.Kind {
	case token.Number:
		p.nextToken()
		return &ast.NumberLiteral{Token: tok, Value: tok.Number}, nil
	case token.Identifier:
		p.nextToken()
		if p.curIs(token.LeftParen) {
			return p.parseCall(tok)
		}
		return &ast.VariableReference{Token: tok, Name: tok.Text}, nil
	case token.LeftParen:
		p.nextToken()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RightParen); err != nil {
			return nil, err
		}
		return expr, nil
	default:
		return nil, p.unexpected(token.Identifier, "expression")
	}
}
