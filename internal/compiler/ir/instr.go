package ir

// === Instructions ===

type Opcode int

const (
	OpAlloca Opcode = iota
	OpLoad
	OpStore
	OpBr
	OpCondBr
	OpPhi
	OpAdd
	OpSub
	OpMul
	OpSDiv
	OpSRem
	OpAnd
	OpOr
	OpNeg
	OpICmp
	OpZExt
	OpCall
	OpRet
)

var opNames = [...]string{
	OpAlloca: "alloca",
	OpLoad:   "load",
	OpStore:  "store",
	OpBr:     "br",
	OpCondBr: "br",
	OpPhi:    "phi",
	OpAdd:    "add",
	OpSub:    "sub",
	OpMul:    "mul",
	OpSDiv:   "sdiv",
	OpSRem:   "srem",
	OpAnd:    "and",
	OpOr:     "or",
	OpNeg:    "neg",
	OpICmp:   "icmp",
	OpZExt:   "zext",
	OpCall:   "call",
	OpRet:    "ret",
}

func (op Opcode) String() string {
	if op >= 0 && int(op) < len(opNames) {
		return opNames[op]
	}
	return "op?"
}

func (op Opcode) IsTerminator() bool {
	return op == OpBr || op == OpCondBr || op == OpRet
}

func (op Opcode) IsBinary() bool {
	return op >= OpAdd && op <= OpOr
}

// Predicate selects the relation tested by icmp.
type Predicate int

const (
	PredEQ Predicate = iota
	PredNE
	PredULT
	PredULE
	PredUGT
	PredUGE
	PredSLT
	PredSLE
	PredSGT
	PredSGE
)

var predNames = [...]string{"eq", "ne", "ult", "ule", "ugt", "uge", "slt", "sle", "sgt", "sge"}

func (p Predicate) String() string {
	if p >= 0 && int(p) < len(predNames) {
		return predNames[p]
	}
	return "pred?"
}

// Instr is one instruction. Which fields are meaningful depends on Op:
//
//	alloca   Allocated
//	load     Args[0] pointer, Typ loaded type
//	store    Args[0] value, Args[1] pointer
//	br       Targets[0]
//	condbr   Args[0] condition, Targets[0] then, Targets[1] else
//	phi      Args[i] arrives from Targets[i]
//	binary   Args[0], Args[1]
//	icmp     Pred, Args[0], Args[1]
//	call     Callee, Args
//	ret      Args[0] unless returning void
type Instr struct {
	Op        Opcode
	Typ       *Type
	Name      string
	Args      []Value
	Targets   []*Block
	Pred      Predicate
	Callee    *Function
	Allocated *Type
	Parent    *Block
}

func (i *Instr) Type() *Type {
	if i.Op == OpAlloca {
		return Ptr
	}
	return i.Typ
}

func (i *Instr) Ident() string { return "%" + i.Name }

// HasValue reports whether the instruction produces a result.
func (i *Instr) HasValue() bool {
	return i.Op == OpAlloca || (i.Typ != nil && i.Typ.Kind != KindVoid)
}

// AddIncoming adds one (value, predecessor) pair to a phi.
func (i *Instr) AddIncoming(v Value, from *Block) {
	i.Args = append(i.Args, v)
	i.Targets = append(i.Targets, from)
}
