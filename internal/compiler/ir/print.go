package ir

import (
	"fmt"
	"strings"
)

// String renders the module as an LLVM-like listing.
func (m *Module) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; module %s\n", m.Name)

	if len(m.Globals) > 0 {
		sb.WriteString("\n")
	}
	for _, g := range m.Globals {
		sb.WriteString(g.String())
		sb.WriteString("\n")
	}

	for _, f := range m.Functions {
		sb.WriteString("\n")
		sb.WriteString(f.String())
	}
	return sb.String()
}

func (g *Global) String() string {
	init := "zeroinitializer"
	if g.Elem.IsInt() {
		init = fmt.Sprint(g.Init)
	}
	return fmt.Sprintf("@%s = global %s %s", g.Name, g.Elem, init)
}

func (f *Function) signature() string {
	params := make([]string, 0, len(f.Params)+1)
	for _, p := range f.Params {
		if f.IsDeclaration() {
			params = append(params, p.Typ.String())
		} else {
			params = append(params, p.Typ.String()+" "+p.Ident())
		}
	}
	if f.Variadic {
		params = append(params, "...")
	}
	return fmt.Sprintf("%s @%s(%s)", f.Ret, f.Name, strings.Join(params, ", "))
}

func (f *Function) String() string {
	if f.IsDeclaration() {
		return "declare " + f.signature() + "\n"
	}
	var sb strings.Builder
	sb.WriteString("define " + f.signature() + " {\n")
	for i, b := range f.Blocks {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(b.Name + ":\n")
		for _, in := range b.Instrs {
			sb.WriteString("  " + in.String() + "\n")
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

func typed(v Value) string {
	return v.Type().String() + " " + v.Ident()
}

func (i *Instr) String() string {
	var body string
	switch i.Op {
	case OpAlloca:
		body = "alloca " + i.Allocated.String()
	case OpLoad:
		body = fmt.Sprintf("load %s, %s", i.Typ, typed(i.Args[0]))
	case OpStore:
		return fmt.Sprintf("store %s, %s", typed(i.Args[0]), typed(i.Args[1]))
	case OpBr:
		return "br label %" + i.Targets[0].Name
	case OpCondBr:
		return fmt.Sprintf("br %s, label %%%s, label %%%s", typed(i.Args[0]), i.Targets[0].Name, i.Targets[1].Name)
	case OpPhi:
		pairs := make([]string, len(i.Args))
		for n := range i.Args {
			pairs[n] = fmt.Sprintf("[ %s, %%%s ]", i.Args[n].Ident(), i.Targets[n].Name)
		}
		body = fmt.Sprintf("phi %s %s", i.Typ, strings.Join(pairs, ", "))
	case OpNeg:
		body = "neg " + typed(i.Args[0])
	case OpICmp:
		body = fmt.Sprintf("icmp %s %s, %s", i.Pred, typed(i.Args[0]), i.Args[1].Ident())
	case OpZExt:
		body = fmt.Sprintf("zext %s to %s", typed(i.Args[0]), i.Typ)
	case OpCall:
		args := make([]string, len(i.Args))
		for n, a := range i.Args {
			args[n] = typed(a)
		}
		body = fmt.Sprintf("call %s @%s(%s)", i.Typ, i.Callee.Name, strings.Join(args, ", "))
		if !i.HasValue() {
			return body
		}
	case OpRet:
		if len(i.Args) == 0 {
			return "ret void"
		}
		return "ret " + typed(i.Args[0])
	default:
		body = fmt.Sprintf("%s %s, %s", i.Op, typed(i.Args[0]), i.Args[1].Ident())
	}
	return i.Ident() + " = " + body
}
