package symbols

import (
	"github.com/arnavsurve/minipas/internal/compiler/ir"
	"github.com/arnavsurve/minipas/internal/compiler/token"
)

type Kind int

const (
	Variable Kind = iota
	Array
)

func (k Kind) String() string {
	if k == Array {
		return "array"
	}
	return "variable"
}

// Symbol is what a variable name is bound to during code generation.
type Symbol struct {
	Kind    Kind
	Name    string
	Storage ir.Value     // alloca or global
	Type    *ir.Type     // type of the storage
	Owner   *ir.Function // nil for program-level globals
	Seq     uint64       // binding order, shared with constants
}

func (s *Symbol) IsGlobal() bool { return s.Owner == nil }

// Constant is what a constant name is bound to. Constants have no storage.
type Constant struct {
	Name  string
	Value int64
	Seq   uint64
}

// Signature is a callable registered by name: a builtin, a forward
// declaration or a defined routine.
type Signature struct {
	Name     string
	Params   []string
	Variadic bool
	Builtin  bool
	Pos      token.Position
	Owner    *ir.Function // function whose declarations introduced it; nil for builtins

	// Defined is set once a body has been generated for the routine.
	Defined  bool
	Function *ir.Function
}

// Arity reports whether n arguments fit the signature.
func (s *Signature) Arity(n int) bool {
	if s.Variadic {
		return n >= len(s.Params)
	}
	return n == len(s.Params)
}
