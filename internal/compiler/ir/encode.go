package ir

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Magic opens every encoded module.
var Magic = [4]byte{'M', 'P', 'I', 'R'}

const FormatVersion = 1

// Section ids
const (
	SectionGlobals   = 0x01
	SectionFunctions = 0x02
)

// Value reference tags
const (
	refConst  = 0x00
	refGlobal = 0x01
	refParam  = 0x02
	refInstr  = 0x03
)

// Header precedes the sections of an encoded module.
type Header struct {
	Version uint32
	BuildID [16]byte
}

func writeByte(buf *bytes.Buffer, b byte) {
	buf.WriteByte(b)
}

func writeBytes(buf *bytes.Buffer, data []byte) {
	buf.Write(data)
}

func writeLEB128(buf *bytes.Buffer, val uint64) {
	for val >= 0x80 {
		buf.WriteByte(byte(val&0x7F) | 0x80)
		val >>= 7
	}
	buf.WriteByte(byte(val & 0x7F))
}

func writeLEB128Signed(buf *bytes.Buffer, val int64) {
	for {
		b := byte(val & 0x7F)
		val >>= 7

		if (val == 0 && (b&0x40) == 0) || (val == -1 && (b&0x40) != 0) {
			buf.WriteByte(b)
			break
		}

		buf.WriteByte(b | 0x80)
	}
}

func writeString(buf *bytes.Buffer, s string) {
	writeLEB128(buf, uint64(len(s)))
	writeBytes(buf, []byte(s))
}

func writeType(buf *bytes.Buffer, t *Type) {
	writeByte(buf, byte(t.Kind))
	switch t.Kind {
	case KindInt:
		writeLEB128(buf, uint64(t.Bits))
	case KindArray:
		writeLEB128(buf, uint64(t.Len))
		writeType(buf, t.Elem)
	}
}

// Encode writes m in the binary artifact format: the magic, the header,
// then a globals section and a functions section, each prefixed by its id
// and byte length. Integers are LEB128.
func Encode(w io.Writer, m *Module, h Header) error {
	if h.Version == 0 {
		h.Version = FormatVersion
	}
	var buf bytes.Buffer
	writeBytes(&buf, Magic[:])
	writeLEB128(&buf, uint64(h.Version))
	writeBytes(&buf, h.BuildID[:])
	writeString(&buf, m.Name)

	e := &encoder{
		globals: make(map[*Global]int),
		funcs:   make(map[*Function]int),
	}
	for i, g := range m.Globals {
		e.globals[g] = i
	}
	for i, f := range m.Functions {
		e.funcs[f] = i
	}

	emitSection(&buf, SectionGlobals, func(sec *bytes.Buffer) error {
		writeLEB128(sec, uint64(len(m.Globals)))
		for _, g := range m.Globals {
			writeString(sec, g.Name)
			writeType(sec, g.Elem)
			writeLEB128Signed(sec, g.Init)
		}
		return nil
	})
	err := emitSection(&buf, SectionFunctions, func(sec *bytes.Buffer) error {
		writeLEB128(sec, uint64(len(m.Functions)))
		for _, f := range m.Functions {
			if err := e.function(sec, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	_, err = w.Write(buf.Bytes())
	return err
}

func emitSection(buf *bytes.Buffer, id byte, body func(*bytes.Buffer) error) error {
	var sectionBuf bytes.Buffer
	if err := body(&sectionBuf); err != nil {
		return err
	}
	writeByte(buf, id)
	writeLEB128(buf, uint64(sectionBuf.Len()))
	writeBytes(buf, sectionBuf.Bytes())
	return nil
}

type encoder struct {
	globals map[*Global]int
	funcs   map[*Function]int

	// per function
	blocks map[*Block]int
	instrs map[*Instr]int
}

func (e *encoder) function(buf *bytes.Buffer, f *Function) error {
	writeString(buf, f.Name)
	var flags byte
	if f.Variadic {
		flags |= 1
	}
	if f.IsDeclaration() {
		flags |= 2
	}
	writeByte(buf, flags)
	writeType(buf, f.Ret)
	writeLEB128(buf, uint64(len(f.Params)))
	for _, p := range f.Params {
		writeString(buf, p.Name)
		writeType(buf, p.Typ)
	}
	if f.IsDeclaration() {
		return nil
	}

	e.blocks = make(map[*Block]int, len(f.Blocks))
	e.instrs = make(map[*Instr]int)
	n := 0
	for i, b := range f.Blocks {
		e.blocks[b] = i
		for _, in := range b.Instrs {
			e.instrs[in] = n
			n++
		}
	}

	writeLEB128(buf, uint64(len(f.Blocks)))
	for _, b := range f.Blocks {
		writeString(buf, b.Name)
		writeLEB128(buf, uint64(len(b.Instrs)))
		for _, in := range b.Instrs {
			if err := e.instr(buf, in); err != nil {
				return fmt.Errorf("@%s, block %s: %w", f.Name, b.Name, err)
			}
		}
	}
	return nil
}

func (e *encoder) instr(buf *bytes.Buffer, in *Instr) error {
	writeByte(buf, byte(in.Op))
	writeType(buf, in.Type())
	writeString(buf, in.Name)

	switch in.Op {
	case OpAlloca:
		writeType(buf, in.Allocated)
	case OpICmp:
		writeByte(buf, byte(in.Pred))
	case OpCall:
		idx, ok := e.funcs[in.Callee]
		if !ok {
			return fmt.Errorf("call to @%s, which is not in the module", in.Callee.Name)
		}
		writeLEB128(buf, uint64(idx))
	}

	writeLEB128(buf, uint64(len(in.Args)))
	for _, a := range in.Args {
		if err := e.ref(buf, a); err != nil {
			return err
		}
	}
	writeLEB128(buf, uint64(len(in.Targets)))
	for _, t := range in.Targets {
		idx, ok := e.blocks[t]
		if !ok {
			return fmt.Errorf("target %%%s is not in the function", t.Name)
		}
		writeLEB128(buf, uint64(idx))
	}
	return nil
}

func (e *encoder) ref(buf *bytes.Buffer, v Value) error {
	switch x := v.(type) {
	case *Const:
		writeByte(buf, refConst)
		writeType(buf, x.Typ)
		writeLEB128Signed(buf, x.Val)
	case *Global:
		writeByte(buf, refGlobal)
		writeLEB128(buf, uint64(e.globals[x]))
	case *Param:
		writeByte(buf, refParam)
		writeLEB128(buf, uint64(x.Index))
	case *Instr:
		idx, ok := e.instrs[x]
		if !ok {
			return fmt.Errorf("operand %%%s is not in the function", x.Name)
		}
		writeByte(buf, refInstr)
		writeLEB128(buf, uint64(idx))
	default:
		return fmt.Errorf("cannot encode operand of type %T", v)
	}
	return nil
}

// ErrBadMagic is returned by ReadHeader for input that is not an encoded module.
var ErrBadMagic = errors.New("not a minipas IR artifact")

// ReadHeader reads the magic, header and module name from an artifact.
func ReadHeader(r io.Reader) (Header, string, error) {
	var h Header
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return h, "", err
	}
	if magic != Magic {
		return h, "", ErrBadMagic
	}
	br := &byteReader{r: r}
	version, err := readLEB128(br)
	if err != nil {
		return h, "", err
	}
	h.Version = uint32(version)
	if _, err := io.ReadFull(r, h.BuildID[:]); err != nil {
		return h, "", err
	}
	n, err := readLEB128(br)
	if err != nil {
		return h, "", err
	}
	name := make([]byte, n)
	if _, err := io.ReadFull(r, name); err != nil {
		return h, "", err
	}
	return h, string(name), nil
}

type byteReader struct {
	r io.Reader
}

func (b *byteReader) ReadByte() (byte, error) {
	var one [1]byte
	_, err := io.ReadFull(b.r, one[:])
	return one[0], err
}

func readLEB128(r io.ByteReader) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, errors.New("LEB128 value overflows 64 bits")
		}
	}
}
