package symbols

import (
	"testing"

	"github.com/nalgeon/be"

	"github.com/arnavsurve/minipas/internal/compiler/ir"
)

func TestSignatureArity(t *testing.T) {
	fixed := &Signature{Name: "add", Params: []string{"a", "b"}}
	be.True(t, fixed.Arity(2))
	be.True(t, !fixed.Arity(1))
	be.True(t, !fixed.Arity(3))

	variadic := &Signature{Name: "writeln", Variadic: true, Builtin: true}
	be.True(t, variadic.Arity(0))
	be.True(t, variadic.Arity(7))
}

func TestSymbolIsGlobal(t *testing.T) {
	m := ir.NewModule("p")
	g := &Symbol{Name: "x", Storage: m.NewGlobal("x", ir.I64), Type: ir.I64}
	be.True(t, g.IsGlobal())

	f := m.NewFunction("f", nil, nil, ir.I64, false)
	local := &Symbol{Name: "y", Type: ir.I64, Owner: f}
	be.True(t, !local.IsGlobal())
	be.Equal(t, Array.String(), "array")
	be.Equal(t, Variable.String(), "variable")
}
