package ir

import "fmt"

// VerifyError describes the first structural problem found in a function.
type VerifyError struct {
	Function string
	Block    string
	Msg      string
}

func (e *VerifyError) Error() string {
	if e.Block == "" {
		return fmt.Sprintf("verify @%s: %s", e.Function, e.Msg)
	}
	return fmt.Sprintf("verify @%s, block %%%s: %s", e.Function, e.Block, e.Msg)
}

// Verify checks that f is well formed: every block ends in exactly one
// terminator, phis lead their blocks and agree with the predecessors,
// operands are defined in f, and operand types line up.
func Verify(f *Function) error {
	if f.IsDeclaration() {
		return nil
	}
	v := &verifier{fn: f, inFn: make(map[*Block]bool), defined: make(map[*Instr]bool)}
	return v.run()
}

// VerifyModule checks that no two globals or functions of m share a name,
// then verifies every function.
func VerifyModule(m *Module) error {
	seen := make(map[string]bool, len(m.Globals)+len(m.Functions))
	for _, g := range m.Globals {
		if seen[g.Name] {
			return &VerifyError{Function: g.Name, Msg: "global name is used twice"}
		}
		seen[g.Name] = true
	}
	for _, f := range m.Functions {
		if seen[f.Name] {
			return &VerifyError{Function: f.Name, Msg: "name is already used by another symbol"}
		}
		seen[f.Name] = true
	}
	for _, f := range m.Functions {
		if err := Verify(f); err != nil {
			return err
		}
	}
	return nil
}

type verifier struct {
	fn      *Function
	inFn    map[*Block]bool
	defined map[*Instr]bool
	preds   map[*Block][]*Block
}

func (v *verifier) fail(b *Block, format string, args ...any) error {
	err := &VerifyError{Function: v.fn.Name, Msg: fmt.Sprintf(format, args...)}
	if b != nil {
		err.Block = b.Name
	}
	return err
}

func (v *verifier) run() error {
	for _, b := range v.fn.Blocks {
		if b.Parent != v.fn {
			return v.fail(b, "block belongs to another function")
		}
		v.inFn[b] = true
		for _, in := range b.Instrs {
			v.defined[in] = true
		}
	}

	v.preds = make(map[*Block][]*Block)
	for _, b := range v.fn.Blocks {
		if len(b.Instrs) == 0 {
			return v.fail(b, "empty block")
		}
		if b.Terminator() == nil {
			return v.fail(b, "block does not end in a terminator")
		}
		for _, succ := range b.Successors() {
			if !v.inFn[succ] {
				return v.fail(b, "branch to block %%%s outside the function", succ.Name)
			}
			v.preds[succ] = append(v.preds[succ], b)
		}
	}
	if len(v.preds[v.fn.EntryBlock()]) > 0 {
		return v.fail(v.fn.EntryBlock(), "entry block has predecessors")
	}

	for _, b := range v.fn.Blocks {
		if err := v.block(b); err != nil {
			return err
		}
	}
	return nil
}

func (v *verifier) block(b *Block) error {
	leading := true
	for idx, in := range b.Instrs {
		if in.Parent != b {
			return v.fail(b, "instruction %s has the wrong parent", in.Op)
		}
		if in.Op.IsTerminator() && idx != len(b.Instrs)-1 {
			return v.fail(b, "terminator %s in the middle of the block", in.Op)
		}
		if in.Op == OpPhi {
			if !leading {
				return v.fail(b, "phi %%%s is not at the start of the block", in.Name)
			}
			if err := v.phi(b, in); err != nil {
				return err
			}
			continue
		}
		leading = false

		for _, arg := range in.Args {
			if err := v.operand(b, arg); err != nil {
				return err
			}
		}
		if err := v.types(b, in); err != nil {
			return err
		}
	}
	return nil
}

func (v *verifier) operand(b *Block, arg Value) error {
	switch a := arg.(type) {
	case nil:
		return v.fail(b, "nil operand")
	case *Instr:
		if !v.defined[a] {
			return v.fail(b, "operand %%%s is not defined in this function", a.Name)
		}
		if !a.HasValue() {
			return v.fail(b, "operand %s produces no value", a.Op)
		}
	case *Param:
		if a.Parent != v.fn {
			return v.fail(b, "parameter %%%s belongs to another function", a.Name)
		}
	}
	return nil
}

func (v *verifier) phi(b *Block, in *Instr) error {
	preds := v.preds[b]
	if len(in.Args) != len(preds) {
		return v.fail(b, "phi %%%s has %d incoming values for %d predecessors", in.Name, len(in.Args), len(preds))
	}
	seen := make(map[*Block]bool)
	for i, from := range in.Targets {
		if seen[from] {
			return v.fail(b, "phi %%%s lists %%%s twice", in.Name, from.Name)
		}
		seen[from] = true
		found := false
		for _, p := range preds {
			if p == from {
				found = true
				break
			}
		}
		if !found {
			return v.fail(b, "phi %%%s names %%%s, which is not a predecessor", in.Name, from.Name)
		}
		if err := v.operand(b, in.Args[i]); err != nil {
			return err
		}
		if !in.Args[i].Type().Equal(in.Typ) {
			return v.fail(b, "phi %%%s of type %s has incoming %s", in.Name, in.Typ, in.Args[i].Type())
		}
	}
	return nil
}

func (v *verifier) types(b *Block, in *Instr) error {
	switch {
	case in.Op.IsBinary():
		l, r := in.Args[0].Type(), in.Args[1].Type()
		if !l.IsInt() || !l.Equal(r) || !l.Equal(in.Typ) {
			return v.fail(b, "%s operands %s and %s do not match", in.Op, l, r)
		}
	case in.Op == OpICmp:
		l, r := in.Args[0].Type(), in.Args[1].Type()
		if !l.IsInt() || !l.Equal(r) {
			return v.fail(b, "icmp operands %s and %s do not match", l, r)
		}
	case in.Op == OpNeg:
		if !in.Args[0].Type().IsInt() {
			return v.fail(b, "neg of %s", in.Args[0].Type())
		}
	case in.Op == OpZExt:
		from := in.Args[0].Type()
		if !from.IsInt() || !in.Typ.IsInt() || from.Bits >= in.Typ.Bits {
			return v.fail(b, "zext from %s to %s", from, in.Typ)
		}
	case in.Op == OpLoad:
		if in.Args[0].Type().Kind != KindPtr {
			return v.fail(b, "load through %s", in.Args[0].Type())
		}
		if elem := storageType(in.Args[0]); elem != nil && !elem.Equal(in.Typ) {
			return v.fail(b, "load of %s from storage of %s", in.Typ, elem)
		}
	case in.Op == OpStore:
		if in.Args[1].Type().Kind != KindPtr {
			return v.fail(b, "store through %s", in.Args[1].Type())
		}
		if elem := storageType(in.Args[1]); elem != nil && !elem.Equal(in.Args[0].Type()) {
			return v.fail(b, "store of %s into storage of %s", in.Args[0].Type(), elem)
		}
	case in.Op == OpCondBr:
		if !in.Args[0].Type().Equal(I1) {
			return v.fail(b, "branch condition is %s, not i1", in.Args[0].Type())
		}
	case in.Op == OpRet:
		if v.fn.Ret.Kind == KindVoid {
			if len(in.Args) != 0 {
				return v.fail(b, "ret with a value from a void function")
			}
		} else if len(in.Args) != 1 || !in.Args[0].Type().Equal(v.fn.Ret) {
			return v.fail(b, "ret does not return %s", v.fn.Ret)
		}
	case in.Op == OpCall:
		c := in.Callee
		if c == nil || c.Module != v.fn.Module {
			return v.fail(b, "call to a function outside the module")
		}
		if len(in.Args) < len(c.Params) || (!c.Variadic && len(in.Args) != len(c.Params)) {
			return v.fail(b, "call to @%s with %d arguments, want %d", c.Name, len(in.Args), len(c.Params))
		}
		for i, p := range c.Params {
			if !in.Args[i].Type().Equal(p.Typ) {
				return v.fail(b, "argument %d to @%s is %s, want %s", i, c.Name, in.Args[i].Type(), p.Typ)
			}
		}
	}
	return nil
}

// storageType is the element type behind a pointer, when it is known.
func storageType(ptr Value) *Type {
	switch p := ptr.(type) {
	case *Instr:
		if p.Op == OpAlloca {
			return p.Allocated
		}
	case *Global:
		return p.Elem
	}
	return nil
}
