package ir

import "math"

// Builder appends instructions at the end of its current block.
type Builder struct {
	block *Block
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) SetInsertPoint(block *Block) {
	b.block = block
}

// InsertBlock returns the block instructions are currently appended to.
func (b *Builder) InsertBlock() *Block {
	return b.block
}

func (b *Builder) fn() *Function {
	return b.block.Parent
}

func (b *Builder) insert(in *Instr, name string) *Instr {
	if in.HasValue() {
		in.Name = b.fn().uniqueName(name)
	}
	in.Parent = b.block
	b.block.Instrs = append(b.block.Instrs, in)
	return in
}

// Alloca reserves storage for t in the entry block of the current function,
// after any allocas already there.
func (b *Builder) Alloca(t *Type, name string) *Instr {
	entry := b.fn().EntryBlock()
	in := &Instr{Op: OpAlloca, Allocated: t, Parent: entry}
	in.Name = b.fn().uniqueName(name)

	pos := 0
	for pos < len(entry.Instrs) && entry.Instrs[pos].Op == OpAlloca {
		pos++
	}
	entry.Instrs = append(entry.Instrs, nil)
	copy(entry.Instrs[pos+1:], entry.Instrs[pos:])
	entry.Instrs[pos] = in
	return in
}

func (b *Builder) Load(t *Type, ptr Value, name string) *Instr {
	return b.insert(&Instr{Op: OpLoad, Typ: t, Args: []Value{ptr}}, name)
}

func (b *Builder) Store(v, ptr Value) *Instr {
	return b.insert(&Instr{Op: OpStore, Typ: Void, Args: []Value{v, ptr}}, "")
}

func (b *Builder) Br(dest *Block) *Instr {
	return b.insert(&Instr{Op: OpBr, Typ: Void, Targets: []*Block{dest}}, "")
}

func (b *Builder) CondBr(cond Value, then, els *Block) *Instr {
	return b.insert(&Instr{Op: OpCondBr, Typ: Void, Args: []Value{cond}, Targets: []*Block{then, els}}, "")
}

// Phi starts an empty phi node; fill it with AddIncoming.
func (b *Builder) Phi(t *Type, name string) *Instr {
	return b.insert(&Instr{Op: OpPhi, Typ: t}, name)
}

func (b *Builder) Ret(v Value) *Instr {
	in := &Instr{Op: OpRet, Typ: Void}
	if v != nil {
		in.Args = []Value{v}
	}
	return b.insert(in, "")
}

func (b *Builder) Call(callee *Function, args []Value, name string) Value {
	return b.insert(&Instr{Op: OpCall, Typ: callee.Ret, Callee: callee, Args: args}, name)
}

// --- Folding arithmetic ---

// Binary emits l op r, or folds it to a constant when both are constants.
// Division by a constant zero is left for run time.
func (b *Builder) Binary(op Opcode, l, r Value, name string) Value {
	lc, lok := l.(*Const)
	rc, rok := r.(*Const)
	if lok && rok {
		if v, ok := foldBinary(op, lc.Val, rc.Val); ok {
			return ConstInt(l.Type(), v)
		}
	}
	return b.insert(&Instr{Op: op, Typ: l.Type(), Args: []Value{l, r}}, name)
}

func foldBinary(op Opcode, l, r int64) (int64, bool) {
	switch op {
	case OpAdd:
		return l + r, true
	case OpSub:
		return l - r, true
	case OpMul:
		return l * r, true
	case OpSDiv:
		if r == 0 {
			return 0, false
		}
		if l == math.MinInt64 && r == -1 {
			return l, true
		}
		return l / r, true
	case OpSRem:
		if r == 0 {
			return 0, false
		}
		if r == -1 {
			return 0, true
		}
		return l % r, true
	case OpAnd:
		return l & r, true
	case OpOr:
		return l | r, true
	}
	return 0, false
}

func (b *Builder) Neg(v Value, name string) Value {
	if c, ok := v.(*Const); ok {
		return ConstInt(c.Typ, -c.Val)
	}
	return b.insert(&Instr{Op: OpNeg, Typ: v.Type(), Args: []Value{v}}, name)
}

// ICmp compares two integers, producing an i1.
func (b *Builder) ICmp(pred Predicate, l, r Value, name string) Value {
	lc, lok := l.(*Const)
	rc, rok := r.(*Const)
	if lok && rok {
		var v int64
		if compare(pred, lc.Val, rc.Val) {
			v = 1
		}
		return ConstInt(I1, v)
	}
	return b.insert(&Instr{Op: OpICmp, Typ: I1, Pred: pred, Args: []Value{l, r}}, name)
}

func compare(pred Predicate, l, r int64) bool {
	ul, ur := uint64(l), uint64(r)
	switch pred {
	case PredEQ:
		return l == r
	case PredNE:
		return l != r
	case PredULT:
		return ul < ur
	case PredULE:
		return ul <= ur
	case PredUGT:
		return ul > ur
	case PredUGE:
		return ul >= ur
	case PredSLT:
		return l < r
	case PredSLE:
		return l <= r
	case PredSGT:
		return l > r
	case PredSGE:
		return l >= r
	}
	return false
}

// ZExt widens v to t. Values already of type t are returned unchanged.
func (b *Builder) ZExt(v Value, t *Type, name string) Value {
	if v.Type().Equal(t) {
		return v
	}
	if c, ok := v.(*Const); ok {
		return ConstInt(t, int64(uint64(c.Val)&mask(c.Typ.Bits)))
	}
	return b.insert(&Instr{Op: OpZExt, Typ: t, Args: []Value{v}}, name)
}

func mask(bits int) uint64 {
	if bits >= 64 {
		return math.MaxUint64
	}
	return 1<<uint(bits) - 1
}
