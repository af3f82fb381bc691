package emitter

import (
	"github.com/arnavsurve/minipas/internal/compiler/ast"
	"github.com/arnavsurve/minipas/internal/compiler/ir"
	"github.com/arnavsurve/minipas/internal/compiler/scope"
	"github.com/arnavsurve/minipas/internal/compiler/symbols"
	"github.com/arnavsurve/minipas/internal/compiler/token"
)

// genSequence generates every statement in order. Its value is the value
// of the last statement.
func (e *Emitter) genSequence(seq *ast.StatementSequence) (ir.Value, error) {
	var value ir.Value = ir.ConstInt(ir.I64, 0)
	for _, stmt := range seq.Statements {
		v, err := e.genStatement(stmt)
		if err != nil {
			return nil, err
		}
		value = v
	}
	return value, nil
}

func (e *Emitter) genStatement(stmt ast.Statement) (ir.Value, error) {
	switch s := stmt.(type) {
	case *ast.BinaryOp:
		if !s.IsAssignment() {
			return nil, e.errorf(s.Pos(), "expression %s used as a statement", s)
		}
		return e.genAssign(s)
	case *ast.Call:
		return e.genCall(s)
	case *ast.StatementSequence:
		return e.genSequence(s)
	case *ast.If:
		return e.genIf(s)
	case *ast.While:
		return e.genWhile(s)
	case *ast.For:
		return e.genFor(s)
	case *ast.ExitOrBreak:
		return e.genExitOrBreak(s)
	}
	return nil, e.errorf(stmt.Pos(), "unsupported statement %T", stmt)
}

func (e *Emitter) genAssign(s *ast.BinaryOp) (ir.Value, error) {
	ref, ok := s.Left.(*ast.VariableReference)
	if !ok {
		return nil, e.errorf(s.Pos(), "left side of assignment must be a variable")
	}
	sym, c, err := e.resolve(ref.Name, ref.Pos())
	if err != nil {
		return nil, err
	}
	if c != nil {
		return nil, e.errorf(ref.Pos(), "cannot assign to constant %q", ref.Name)
	}
	if sym.Kind == symbols.Array {
		return nil, e.errorf(ref.Pos(), "cannot assign to array %q", ref.Name)
	}

	v, err := e.genExpr(s.Right)
	if err != nil {
		return nil, err
	}
	v = e.asInt(v)
	e.builder.Store(v, sym.Storage)
	return v, nil
}

func (e *Emitter) genCall(c *ast.Call) (ir.Value, error) {
	sig, ok := e.routines.Lookup(c.Callee)
	if !ok {
		return nil, e.errorf(c.Pos(), "unknown function %q", c.Callee)
	}
	if !sig.Arity(len(c.Args)) {
		return nil, e.errorf(c.Pos(), "%q expects %d arguments, got %d", c.Callee, len(sig.Params), len(c.Args))
	}
	args := make([]ir.Value, 0, len(c.Args))
	for _, arg := range c.Args {
		v, err := e.genExpr(arg)
		if err != nil {
			return nil, err
		}
		args = append(args, e.asInt(v))
	}
	return e.builder.Call(sig.Function, args, "calltmp"), nil
}

// condition lowers an expression to an i1 by comparing it against zero of
// its own type.
func (e *Emitter) condition(expr ast.Expression, name string) (ir.Value, error) {
	v, err := e.genExpr(expr)
	if err != nil {
		return nil, err
	}
	return e.builder.ICmp(ir.PredNE, v, ir.ConstInt(v.Type(), 0), name), nil
}

func (e *Emitter) genIf(s *ast.If) (ir.Value, error) {
	cond, err := e.condition(s.Cond, "ifcond")
	if err != nil {
		return nil, err
	}
	then, els, merge := e.fn.NewBlock("then"), e.fn.NewBlock("else"), e.fn.NewBlock("ifcont")
	e.builder.CondBr(cond, then, els)

	e.fn.AppendBlock(then)
	e.builder.SetInsertPoint(then)
	thenV, err := e.genStatement(s.Then)
	if err != nil {
		return nil, err
	}
	thenV = e.asInt(thenV)
	// the branch may have moved the insertion point to a block of its own
	thenEnd := e.builder.InsertBlock()
	e.builder.Br(merge)

	e.fn.AppendBlock(els)
	e.builder.SetInsertPoint(els)
	var elseV ir.Value = ir.ConstInt(ir.I64, 0)
	if s.Else != nil {
		if elseV, err = e.genStatement(s.Else); err != nil {
			return nil, err
		}
		elseV = e.asInt(elseV)
	}
	elseEnd := e.builder.InsertBlock()
	e.builder.Br(merge)

	e.fn.AppendBlock(merge)
	e.builder.SetInsertPoint(merge)
	phi := e.builder.Phi(ir.I64, "iftmp")
	phi.AddIncoming(thenV, thenEnd)
	phi.AddIncoming(elseV, elseEnd)
	return phi, nil
}

func (e *Emitter) genWhile(s *ast.While) (ir.Value, error) {
	cond, body, after := e.fn.NewBlock("whilecond"), e.fn.NewBlock("whilebody"), e.fn.NewBlock("whileend")
	e.builder.Br(cond)

	e.fn.AppendBlock(cond)
	e.builder.SetInsertPoint(cond)
	c, err := e.condition(s.Cond, "whilecond")
	if err != nil {
		return nil, err
	}
	e.builder.CondBr(c, body, after)

	e.fn.AppendBlock(body)
	e.builder.SetInsertPoint(body)
	e.loops = append(e.loops, after)
	_, err = e.genStatement(s.Body)
	e.loops = e.loops[:len(e.loops)-1]
	if err != nil {
		return nil, err
	}
	e.builder.Br(cond)

	e.fn.AppendBlock(after)
	e.builder.SetInsertPoint(after)
	return ir.ConstInt(ir.I64, 0), nil
}

// genFor evaluates the bounds and the step once, before the loop variable
// is bound. The loop variable gets storage of its own for the duration of
// the loop. The body runs before the first test, so it always runs once.
func (e *Emitter) genFor(s *ast.For) (ir.Value, error) {
	start, err := e.genExpr(s.Start)
	if err != nil {
		return nil, err
	}
	end, err := e.genExpr(s.End)
	if err != nil {
		return nil, err
	}
	var step ir.Value = ir.ConstInt(ir.I64, 1)
	if s.Step != nil {
		if step, err = e.genExpr(s.Step); err != nil {
			return nil, err
		}
	}
	start, end, step = e.asInt(start), e.asInt(end), e.asInt(step)

	pred, advance := ir.PredSLE, ir.OpAdd
	if s.Direction == token.KwDownto {
		pred, advance = ir.PredSGE, ir.OpSub
	}

	slot := e.builder.Alloca(ir.I64, s.Var)
	e.builder.Store(start, slot)
	shadow := e.vars.Define(s.Var, &symbols.Symbol{
		Kind:    symbols.Variable,
		Name:    s.Var,
		Storage: slot,
		Type:    ir.I64,
		Owner:   e.fn,
		Seq:     e.nextSeq(),
	})
	defer e.vars.Restore([]scope.Shadow[*symbols.Symbol]{shadow})

	loop, after := e.fn.NewBlock("loop"), e.fn.NewBlock("afterloop")
	e.builder.Br(loop)

	e.fn.AppendBlock(loop)
	e.builder.SetInsertPoint(loop)
	e.loops = append(e.loops, after)
	_, err = e.genStatement(s.Body)
	e.loops = e.loops[:len(e.loops)-1]
	if err != nil {
		return nil, err
	}

	cur := e.builder.Load(ir.I64, slot, s.Var)
	next := e.builder.Binary(advance, cur, step, "nextvar")
	e.builder.Store(next, slot)
	again := e.builder.ICmp(pred, next, end, "loopcond")
	e.builder.CondBr(again, loop, after)

	e.fn.AppendBlock(after)
	e.builder.SetInsertPoint(after)
	return ir.ConstInt(ir.I64, 0), nil
}

// genExitOrBreak terminates the current block. Whatever follows lands in
// a fresh block with no predecessors.
func (e *Emitter) genExitOrBreak(s *ast.ExitOrBreak) (ir.Value, error) {
	name := "afterexit"
	if s.Which == token.KwBreak {
		if len(e.loops) == 0 {
			return nil, e.errorf(s.Pos(), "break outside of a loop")
		}
		e.builder.Br(e.loops[len(e.loops)-1])
		name = "afterbreak"
	} else {
		e.builder.Ret(ir.ConstInt(ir.I64, 0))
	}
	next := e.fn.NewBlock(name)
	e.fn.AppendBlock(next)
	e.builder.SetInsertPoint(next)
	return ir.ConstInt(ir.I64, 0), nil
}
