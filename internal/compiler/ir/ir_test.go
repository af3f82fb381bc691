package ir

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

// newMain returns a module with an i64 main function and a builder
// positioned in its entry block.
func newMain(t *testing.T) (*Module, *Function, *Builder) {
	t.Helper()
	m := NewModule("test")
	f := m.NewFunction("main", nil, nil, I64, false)
	entry := f.NewBlock("entry")
	f.AppendBlock(entry)
	b := NewBuilder()
	b.SetInsertPoint(entry)
	return m, f, b
}

func TestConstantFolding(t *testing.T) {
	_, _, b := newMain(t)
	c := func(v int64) *Const { return ConstInt(I64, v) }

	tests := []struct {
		op   Opcode
		l, r int64
		want int64
	}{
		{OpAdd, 3, 4, 7},
		{OpSub, 3, 4, -1},
		{OpMul, 6, 7, 42},
		{OpSDiv, -7, 2, -3},
		{OpSRem, -7, 2, -1},
		{OpAnd, 6, 3, 2},
		{OpOr, 6, 3, 7},
		{OpSDiv, math.MinInt64, -1, math.MinInt64},
	}
	for _, tt := range tests {
		got, ok := b.Binary(tt.op, c(tt.l), c(tt.r), "").(*Const)
		be.True(t, ok)
		be.Equal(t, got.Val, tt.want)
	}

	neg, ok := b.Neg(c(5), "").(*Const)
	be.True(t, ok)
	be.Equal(t, neg.Val, int64(-5))

	be.Equal(t, len(b.InsertBlock().Instrs), 0)
}

func TestDivisionByConstantZeroIsNotFolded(t *testing.T) {
	_, _, b := newMain(t)
	v := b.Binary(OpSDiv, ConstInt(I64, 1), ConstInt(I64, 0), "q")
	in, ok := v.(*Instr)
	be.True(t, ok)
	be.Equal(t, in.Op, OpSDiv)
	be.Equal(t, in.Name, "q")
}

func TestCompareFolding(t *testing.T) {
	_, _, b := newMain(t)
	c := func(v int64) *Const { return ConstInt(I64, v) }

	// -1 is the largest unsigned value
	ult := b.ICmp(PredULT, c(-1), c(1), "").(*Const)
	be.Equal(t, ult.Val, int64(0))
	slt := b.ICmp(PredSLT, c(-1), c(1), "").(*Const)
	be.Equal(t, slt.Val, int64(1))
	be.Equal(t, slt.Type(), I1)
	be.Equal(t, slt.Ident(), "true")

	wide := b.ZExt(slt, I64, "").(*Const)
	be.Equal(t, wide.Val, int64(1))
	be.Equal(t, wide.Type(), I64)
}

func TestAllocaGoesToEntryBlock(t *testing.T) {
	_, f, b := newMain(t)
	x := b.Alloca(I64, "x")
	b.Store(ConstInt(I64, 1), x)

	body := f.NewBlock("body")
	f.AppendBlock(body)
	b.Br(body)
	b.SetInsertPoint(body)
	y := b.Alloca(I64, "y")
	b.Ret(b.Load(I64, y, "v"))

	entry := f.EntryBlock()
	be.Equal(t, entry.Instrs[0], x)
	be.Equal(t, entry.Instrs[1], y)
	be.Equal(t, entry.Instrs[2].Op, OpStore)
	be.Equal(t, y.Parent, entry)
	be.Err(t, Verify(f), nil)
}

func TestUniqueNames(t *testing.T) {
	_, f, b := newMain(t)
	a := b.Alloca(I64, "x")
	c := b.Alloca(I64, "x")
	be.Equal(t, a.Name, "x")
	be.Equal(t, c.Name, "x1")
	be.Equal(t, f.NewBlock("loop").Name, "loop")
	be.Equal(t, f.NewBlock("loop").Name, "loop1")
}

// buildIf produces: if p != 0 then 1 else 2, joined by a phi.
func buildIf(t *testing.T) (*Module, *Function) {
	t.Helper()
	m := NewModule("test")
	f := m.NewFunction("pick", []string{"p"}, []*Type{I64}, I64, false)
	entry := f.NewBlock("entry")
	f.AppendBlock(entry)
	b := NewBuilder()
	b.SetInsertPoint(entry)

	cond := b.ICmp(PredNE, f.Params[0], ConstInt(I64, 0), "cond")
	then, els, merge := f.NewBlock("then"), f.NewBlock("else"), f.NewBlock("ifcont")
	b.CondBr(cond, then, els)

	f.AppendBlock(then)
	b.SetInsertPoint(then)
	b.Br(merge)

	f.AppendBlock(els)
	b.SetInsertPoint(els)
	b.Br(merge)

	f.AppendBlock(merge)
	b.SetInsertPoint(merge)
	phi := b.Phi(I64, "iftmp")
	phi.AddIncoming(ConstInt(I64, 1), then)
	phi.AddIncoming(ConstInt(I64, 2), els)
	b.Ret(phi)
	return m, f
}

func TestVerifyAcceptsIf(t *testing.T) {
	_, f := buildIf(t)
	be.Err(t, Verify(f), nil)
}

func verifyMsg(t *testing.T, f *Function) string {
	t.Helper()
	err := Verify(f)
	var verr *VerifyError
	if !errors.As(err, &verr) {
		t.Fatalf("Verify() = %v, want *VerifyError", err)
	}
	return verr.Msg
}

func TestVerifyRejects(t *testing.T) {
	t.Run("missing terminator", func(t *testing.T) {
		_, f, b := newMain(t)
		b.Alloca(I64, "x")
		be.True(t, strings.Contains(verifyMsg(t, f), "terminator"))
	})
	t.Run("phi predecessor mismatch", func(t *testing.T) {
		_, f := buildIf(t)
		phi := f.Blocks[3].Instrs[0]
		phi.Args = phi.Args[:1]
		phi.Targets = phi.Targets[:1]
		be.True(t, strings.Contains(verifyMsg(t, f), "incoming values"))
	})
	t.Run("wrong return type", func(t *testing.T) {
		_, f, b := newMain(t)
		b.Ret(ConstInt(I1, 1))
		be.True(t, strings.Contains(verifyMsg(t, f), "ret"))
	})
	t.Run("condition not i1", func(t *testing.T) {
		_, f, b := newMain(t)
		next := f.NewBlock("next")
		b.CondBr(ConstInt(I64, 1), next, next)
		f.AppendBlock(next)
		b.SetInsertPoint(next)
		b.Ret(ConstInt(I64, 0))
		be.True(t, strings.Contains(verifyMsg(t, f), "condition"))
	})
	t.Run("store type mismatch", func(t *testing.T) {
		_, f, b := newMain(t)
		x := b.Alloca(ArrayOf(4, I64), "x")
		b.Store(ConstInt(I64, 1), x)
		b.Ret(ConstInt(I64, 0))
		be.True(t, strings.Contains(verifyMsg(t, f), "store"))
	})
	t.Run("arity", func(t *testing.T) {
		m, f, b := newMain(t)
		callee := m.NewFunction("two", nil, []*Type{I64, I64}, I64, false)
		b.Ret(b.Call(callee, []Value{ConstInt(I64, 1)}, "r"))
		be.True(t, strings.Contains(verifyMsg(t, f), "arguments"))
	})
	t.Run("operand from another function", func(t *testing.T) {
		m, f, b := newMain(t)
		other := m.NewFunction("other", nil, nil, I64, false)
		oe := other.NewBlock("entry")
		other.AppendBlock(oe)
		ob := NewBuilder()
		ob.SetInsertPoint(oe)
		foreign := ob.Alloca(I64, "y")
		b.Ret(b.Load(I64, foreign, "v"))
		be.True(t, strings.Contains(verifyMsg(t, f), "not defined"))
	})
}

func TestVariadicCall(t *testing.T) {
	m, f, b := newMain(t)
	writeln := m.NewFunction("writeln", nil, nil, I64, true)
	b.Call(writeln, nil, "")
	b.Ret(b.Call(writeln, []Value{ConstInt(I64, 1), ConstInt(I64, 2)}, ""))
	be.Err(t, Verify(f), nil)
}

func TestRemoveFunction(t *testing.T) {
	m := NewModule("test")
	a := m.NewFunction("a", nil, nil, I64, false)
	m.NewFunction("b", nil, nil, I64, false)
	m.Remove(a)
	be.True(t, m.Function("a") == nil)
	be.Equal(t, len(m.Functions), 1)
}

func TestPrint(t *testing.T) {
	m := NewModule("P")
	x := m.NewGlobal("x", I64)
	m.NewGlobal("grid", ArrayOf(3, I64))
	m.NewFunction("writeln", nil, nil, I64, true)
	f := m.NewFunction("main", nil, nil, I64, false)
	entry := f.NewBlock("entry")
	f.AppendBlock(entry)
	b := NewBuilder()
	b.SetInsertPoint(entry)
	v := b.Binary(OpAdd, ConstInt(I64, 3), ConstInt(I64, 4), "addtmp")
	b.Store(v, x)
	b.Ret(v)

	want := `; module P

@x = global i64 0
@grid = global [3 x i64] zeroinitializer

declare i64 @writeln(...)

define i64 @main() {
entry:
  store i64 7, ptr @x
  ret i64 7
}
`
	be.Equal(t, m.String(), want)
}

func TestPrintInstructions(t *testing.T) {
	_, f := buildIf(t)
	out := f.String()
	be.True(t, strings.Contains(out, "define i64 @pick(i64 %p) {"))
	be.True(t, strings.Contains(out, "%cond = icmp ne i64 %p, 0"))
	be.True(t, strings.Contains(out, "br i1 %cond, label %then, label %else"))
	be.True(t, strings.Contains(out, "%iftmp = phi i64 [ 1, %then ], [ 2, %else ]"))
	be.True(t, strings.Contains(out, "ret i64 %iftmp"))
}

func TestEncode(t *testing.T) {
	m, _ := buildIf(t)
	m.NewGlobal("g", I64)

	var id [16]byte
	copy(id[:], "0123456789abcdef")
	var buf bytes.Buffer
	be.Err(t, Encode(&buf, m, Header{BuildID: id}), nil)

	data := buf.Bytes()
	be.True(t, bytes.HasPrefix(data, []byte("MPIR")))

	h, name, err := ReadHeader(bytes.NewReader(data))
	be.Err(t, err, nil)
	be.Equal(t, h.Version, uint32(FormatVersion))
	be.Equal(t, h.BuildID, id)
	be.Equal(t, name, "test")
}

func TestEncodeRejectsDanglingCallee(t *testing.T) {
	m, f, b := newMain(t)
	gone := m.NewFunction("gone", nil, nil, I64, false)
	b.Ret(b.Call(gone, nil, "r"))
	m.Remove(gone)
	_ = f

	var buf bytes.Buffer
	err := Encode(&buf, m, Header{})
	be.True(t, err != nil)
	be.Equal(t, buf.Len(), 0)
}

func TestReadHeaderBadMagic(t *testing.T) {
	_, _, err := ReadHeader(strings.NewReader("ELF!...."))
	be.True(t, errors.Is(err, ErrBadMagic))
}

func TestLEB128(t *testing.T) {
	var buf bytes.Buffer
	writeLEB128(&buf, 624485)
	be.Equal(t, buf.Bytes(), []byte{0xE5, 0x8E, 0x26})
	v, err := readLEB128(&buf)
	be.Err(t, err, nil)
	be.Equal(t, v, uint64(624485))

	buf.Reset()
	writeLEB128Signed(&buf, -123456)
	be.Equal(t, buf.Bytes(), []byte{0xC0, 0xBB, 0x78})
}

func TestModuleNamesAreUnique(t *testing.T) {
	m, _, b := newMain(t)
	b.Ret(ConstInt(I64, 0))

	g := m.NewGlobal("f", I64)
	be.Equal(t, g.Name, "f")
	be.True(t, m.Taken("f"))
	be.True(t, m.Taken("main"))
	be.True(t, !m.Taken("g"))

	// a global never takes the name of a function
	be.Equal(t, m.NewGlobal("main", I64).Name, "main.1")
	be.Err(t, VerifyModule(m), nil)

	m.NewFunction("f", nil, nil, I64, true)
	err := VerifyModule(m)
	var verr *VerifyError
	if !errors.As(err, &verr) {
		t.Fatalf("VerifyModule() = %v, want *VerifyError", err)
	}
	be.Equal(t, verr.Function, "f")
}
