package emitter

import (
	"github.com/arnavsurve/minipas/internal/compiler/ast"
	"github.com/arnavsurve/minipas/internal/compiler/ir"
	"github.com/arnavsurve/minipas/internal/compiler/symbols"
	"github.com/arnavsurve/minipas/internal/compiler/token"
)

var binaryOps = map[token.Kind]ir.Opcode{
	token.Plus:   ir.OpAdd,
	token.Minus:  ir.OpSub,
	token.Times:  ir.OpMul,
	token.Divide: ir.OpSDiv,
	token.KwDiv:  ir.OpSDiv,
	token.KwMod:  ir.OpSRem,
	token.KwAnd:  ir.OpAnd,
	token.KwOr:   ir.OpOr,
}

// Comparisons are unsigned.
var comparisons = map[token.Kind]ir.Predicate{
	token.Equal:         ir.PredEQ,
	token.NotEqual:      ir.PredNE,
	token.LessThan:      ir.PredULT,
	token.GreaterThan:   ir.PredUGT,
	token.LessThanEq:    ir.PredULE,
	token.GreaterThanEq: ir.PredUGE,
}

func (e *Emitter) genExpr(expr ast.Expression) (ir.Value, error) {
	switch x := expr.(type) {
	case *ast.NumberLiteral:
		return ir.ConstInt(ir.I64, x.Value), nil

	case *ast.VariableReference:
		sym, c, err := e.resolve(x.Name, x.Pos())
		if err != nil {
			return nil, err
		}
		if c != nil {
			return ir.ConstInt(ir.I64, c.Value), nil
		}
		if sym.Kind == symbols.Array {
			return nil, e.errorf(x.Pos(), "array %q cannot be used as a value", x.Name)
		}
		return e.builder.Load(ir.I64, sym.Storage, x.Name), nil

	case *ast.UnaryOp:
		v, err := e.genExpr(x.Operand)
		if err != nil {
			return nil, err
		}
		return e.builder.Neg(e.asInt(v), "negtmp"), nil

	case *ast.BinaryOp:
		op, ok := binaryOps[x.Op]
		if !ok {
			return nil, e.errorf(x.Pos(), "invalid binary operator %s", x.Op.Symbol())
		}
		l, r, err := e.operands(x.Left, x.Right)
		if err != nil {
			return nil, err
		}
		return e.builder.Binary(op, l, r, "binop"), nil

	case *ast.ComparisonOp:
		pred, ok := comparisons[x.Op]
		if !ok {
			return nil, e.errorf(x.Pos(), "invalid comparison operator %s", x.Op.Symbol())
		}
		l, r, err := e.operands(x.Left, x.Right)
		if err != nil {
			return nil, err
		}
		return e.builder.ICmp(pred, l, r, "cmptmp"), nil

	case *ast.Call:
		return e.genCall(x)
	}
	return nil, e.errorf(expr.Pos(), "unsupported expression %T", expr)
}

// operands generates both sides left to right, widened to i64.
func (e *Emitter) operands(left, right ast.Expression) (ir.Value, ir.Value, error) {
	l, err := e.genExpr(left)
	if err != nil {
		return nil, nil, err
	}
	r, err := e.genExpr(right)
	if err != nil {
		return nil, nil, err
	}
	return e.asInt(l), e.asInt(r), nil
}

func (e *Emitter) asInt(v ir.Value) ir.Value {
	return e.builder.ZExt(v, ir.I64, "booltmp")
}
