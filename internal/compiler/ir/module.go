package ir

import (
	"fmt"
	"strconv"
)

// Value is anything an instruction can take as an operand.
type Value interface {
	Type() *Type
	// Ident is the value as it appears in an operand position.
	Ident() string
}

// --- Constants ---

type Const struct {
	Typ *Type
	Val int64
}

func ConstInt(t *Type, v int64) *Const {
	return &Const{Typ: t, Val: t.truncate(v)}
}

func (c *Const) Type() *Type { return c.Typ }
func (c *Const) Ident() string {
	if c.Typ.Bits == 1 {
		if c.Val != 0 {
			return "true"
		}
		return "false"
	}
	return strconv.FormatInt(c.Val, 10)
}

// --- Globals ---

// Global is module-level storage. As a value it is a pointer to Elem.
type Global struct {
	Name string
	Elem *Type
	Init int64
}

func (g *Global) Type() *Type   { return Ptr }
func (g *Global) Ident() string { return "@" + g.Name }

// --- Parameters ---

type Param struct {
	Name   string
	Typ    *Type
	Index  int
	Parent *Function
}

func (p *Param) Type() *Type   { return p.Typ }
func (p *Param) Ident() string { return "%" + p.Name }

// --- Blocks ---

type Block struct {
	Name   string
	Instrs []*Instr
	Parent *Function
}

// Terminator returns the block's final instruction if it ends control flow.
func (b *Block) Terminator() *Instr {
	if len(b.Instrs) == 0 {
		return nil
	}
	last := b.Instrs[len(b.Instrs)-1]
	if last.Op.IsTerminator() {
		return last
	}
	return nil
}

// Successors lists the blocks control may transfer to from b.
func (b *Block) Successors() []*Block {
	if term := b.Terminator(); term != nil {
		return term.Targets
	}
	return nil
}

// --- Functions ---

type Function struct {
	Name     string
	Params   []*Param
	Ret      *Type
	Variadic bool
	Blocks   []*Block
	Module   *Module

	names map[string]int
	temps int
}

// IsDeclaration reports whether f has no body.
func (f *Function) IsDeclaration() bool { return len(f.Blocks) == 0 }

func (f *Function) EntryBlock() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// NewBlock creates a block owned by f without placing it in the layout.
func (f *Function) NewBlock(name string) *Block {
	return &Block{Name: f.uniqueName(name), Parent: f}
}

// AppendBlock places b at the end of f's block list.
func (f *Function) AppendBlock(b *Block) {
	f.Blocks = append(f.Blocks, b)
}

// uniqueName returns name, or name with a numeric suffix if it is taken.
// An empty name gets the next temporary number.
func (f *Function) uniqueName(name string) string {
	if name == "" {
		f.temps++
		name = strconv.Itoa(f.temps)
	}
	n, taken := f.names[name]
	f.names[name] = n + 1
	if !taken {
		return name
	}
	for {
		candidate := fmt.Sprintf("%s%d", name, n)
		if _, ok := f.names[candidate]; !ok {
			f.names[candidate] = 1
			return candidate
		}
		n++
	}
}

// --- Module ---

type Module struct {
	Name      string
	Globals   []*Global
	Functions []*Function
}

func NewModule(name string) *Module {
	return &Module{Name: name}
}

// NewGlobal adds zero-initialised storage of type elem.
func (m *Module) NewGlobal(name string, elem *Type) *Global {
	g := &Global{Name: m.uniqueGlobalName(name), Elem: elem}
	m.Globals = append(m.Globals, g)
	return g
}

func (m *Module) uniqueGlobalName(name string) string {
	if !m.Taken(name) {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s.%d", name, i)
		if !m.Taken(candidate) {
			return candidate
		}
	}
}

// NewFunction declares a function. It has no body until a block is appended.
func (m *Module) NewFunction(name string, paramNames []string, paramTypes []*Type, ret *Type, variadic bool) *Function {
	f := &Function{
		Name:     name,
		Ret:      ret,
		Variadic: variadic,
		Module:   m,
		names:    make(map[string]int),
	}
	for i, t := range paramTypes {
		pname := ""
		if i < len(paramNames) {
			pname = paramNames[i]
		}
		f.Params = append(f.Params, &Param{Name: f.uniqueName(pname), Typ: t, Index: i, Parent: f})
	}
	m.Functions = append(m.Functions, f)
	return f
}

// Taken reports whether a global or a function is named name.
func (m *Module) Taken(name string) bool {
	for _, g := range m.Globals {
		if g.Name == name {
			return true
		}
	}
	return m.Function(name) != nil
}

// Function looks up a function by name.
func (m *Module) Function(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Remove erases f from the module.
func (m *Module) Remove(f *Function) {
	for i, fn := range m.Functions {
		if fn == f {
			m.Functions = append(m.Functions[:i], m.Functions[i+1:]...)
			return
		}
	}
}
