// Package ir is a small SSA-form intermediate representation: modules of
// globals and functions, functions of basic blocks, blocks of instructions.
// A Builder appends instructions at an insertion point, Verify checks a
// finished function, String prints an LLVM-like listing and Encode writes
// the binary artifact.
package ir

import "fmt"

// === Type System ===

type TypeKind int

const (
	KindVoid TypeKind = iota
	KindInt
	KindPtr
	KindArray
)

// Type describes a value or storage type. Integer types are identified by
// bit width; every pointer is the one opaque Ptr type.
type Type struct {
	Kind TypeKind
	Bits int   // KindInt
	Len  int64 // KindArray
	Elem *Type // KindArray
}

var (
	Void = &Type{Kind: KindVoid}
	I1   = &Type{Kind: KindInt, Bits: 1}
	I64  = &Type{Kind: KindInt, Bits: 64}
	Ptr  = &Type{Kind: KindPtr}
)

func ArrayOf(n int64, elem *Type) *Type {
	return &Type{Kind: KindArray, Len: n, Elem: elem}
}

func (t *Type) IsInt() bool { return t != nil && t.Kind == KindInt }

// Equal reports structural equality.
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindInt:
		return t.Bits == o.Bits
	case KindArray:
		return t.Len == o.Len && t.Elem.Equal(o.Elem)
	}
	return true
}

func (t *Type) String() string {
	switch t.Kind {
	case KindVoid:
		return "void"
	case KindInt:
		return fmt.Sprintf("i%d", t.Bits)
	case KindPtr:
		return "ptr"
	case KindArray:
		return fmt.Sprintf("[%d x %s]", t.Len, t.Elem)
	}
	return "?"
}

// truncate wraps v to the width of an integer type.
func (t *Type) truncate(v int64) int64 {
	if t.Bits >= 64 {
		return v
	}
	shift := 64 - uint(t.Bits)
	if t.Bits == 1 {
		return v & 1
	}
	return (v << shift) >> shift
}
