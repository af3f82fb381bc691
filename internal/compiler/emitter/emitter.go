package emitter

import (
	"fmt"
	"math"

	"github.com/arnavsurve/minipas/internal/compiler/ast"
	"github.com/arnavsurve/minipas/internal/compiler/diag"
	"github.com/arnavsurve/minipas/internal/compiler/ir"
	"github.com/arnavsurve/minipas/internal/compiler/scope"
	"github.com/arnavsurve/minipas/internal/compiler/symbols"
	"github.com/arnavsurve/minipas/internal/compiler/token"
	"github.com/arnavsurve/minipas/internal/logging"
)

const DefaultEntryName = "main"

// DefaultBuiltins are declared as variadic externals in every module.
var DefaultBuiltins = []string{"write", "writeln", "read", "readln"}

type Options struct {
	// EntryName names the function holding the program body.
	EntryName string
	Builtins  []string
	// Source names the input in diagnostics.
	Source string
	Logger *logging.Logger
}

// Emitter lowers one syntax tree into an ir.Module. It is single use.
type Emitter struct {
	opts    Options
	log     *logging.Logger
	module  *ir.Module
	builder *ir.Builder

	vars     *scope.Table[*symbols.Symbol]
	consts   *scope.Table[*symbols.Constant]
	routines *scope.Table[*symbols.Signature]
	seq      uint64

	fn       *ir.Function
	loops    []*ir.Block // exit blocks of the enclosing loops, innermost last
	forwards []*symbols.Signature

	sink diag.Sink
}

func New(opts Options) *Emitter {
	if opts.EntryName == "" {
		opts.EntryName = DefaultEntryName
	}
	if opts.Builtins == nil {
		opts.Builtins = DefaultBuiltins
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Emitter{
		opts:     opts,
		log:      log.WithName("emitter"),
		builder:  ir.NewBuilder(),
		vars:     scope.New[*symbols.Symbol]("variables"),
		consts:   scope.New[*symbols.Constant]("constants"),
		routines: scope.New[*symbols.Signature]("routines"),
	}
}

// --- Diagnostics ---

func (e *Emitter) errorf(pos token.Position, format string, args ...any) error {
	err := &diag.SemanticError{
		Msg:    fmt.Sprintf(format, args...),
		Source: e.opts.Source,
		Line:   pos.Line,
		Column: pos.Column,
	}
	e.sink.Report(err)
	e.log.Debug("semantic error", "pos", pos.String(), "msg", err.Msg)
	return err
}

// Errors returns every diagnostic reported so far.
func (e *Emitter) Errors() []diag.Diagnostic {
	return e.sink.All()
}

// Module returns the module being built, including after a failed Emit.
func (e *Emitter) Module() *ir.Module {
	return e.module
}

// --- Bindings ---

// bindings are the shadows recorded by the declaration groups of one body.
type bindings struct {
	vars     []scope.Shadow[*symbols.Symbol]
	consts   []scope.Shadow[*symbols.Constant]
	routines []scope.Shadow[*symbols.Signature]
}

func (b *bindings) add(o bindings) {
	b.vars = append(b.vars, o.vars...)
	b.consts = append(b.consts, o.consts...)
	b.routines = append(b.routines, o.routines...)
}

func (e *Emitter) restore(b bindings) {
	e.routines.Restore(b.routines)
	e.consts.Restore(b.consts)
	e.vars.Restore(b.vars)
}

func (e *Emitter) nextSeq() uint64 {
	e.seq++
	return e.seq
}

// resolve finds the innermost variable or constant named name. Exactly one
// of the results is non-nil on success.
func (e *Emitter) resolve(name string, pos token.Position) (*symbols.Symbol, *symbols.Constant, error) {
	sym, haveVar := e.vars.Lookup(name)
	c, haveConst := e.consts.Lookup(name)
	switch {
	case haveConst && (!haveVar || c.Seq > sym.Seq):
		return nil, c, nil
	case haveVar:
		if !sym.IsGlobal() && sym.Owner != e.fn {
			return nil, nil, e.errorf(pos, "cannot access %q, a local of enclosing routine %q", name, sym.Owner.Name)
		}
		return sym, nil, nil
	}
	return nil, nil, e.errorf(pos, "unknown variable %q", name)
}

// Binding reports the variable currently bound to name.
func (e *Emitter) Binding(name string) (*symbols.Symbol, bool) {
	return e.vars.Lookup(name)
}

// --- Program ---

// Emit generates the whole program. The program body becomes the entry
// function, returning the value of its last statement.
func (e *Emitter) Emit(prog *ast.Program) (*ir.Module, error) {
	e.module = ir.NewModule(prog.Name)
	e.log.Debug("emitting module", "name", prog.Name, "declarations", len(prog.Declarations))

	var top bindings
	defer func() { e.restore(top) }()

	for _, name := range e.opts.Builtins {
		fn := e.module.NewFunction(name, nil, nil, ir.I64, true)
		sig := &symbols.Signature{Name: name, Variadic: true, Builtin: true, Defined: true, Function: fn}
		top.routines = append(top.routines, e.routines.Define(name, sig))
	}

	main := e.module.NewFunction(e.opts.EntryName, nil, nil, ir.I64, false)
	entry := main.NewBlock("entry")
	main.AppendBlock(entry)
	e.builder.SetInsertPoint(entry)
	e.fn = main

	for _, decl := range prog.Declarations {
		b, err := e.declare(decl, true)
		top.add(b)
		if err != nil {
			e.module.Remove(main)
			return nil, err
		}
	}
	for _, sig := range e.forwards {
		if !sig.Defined {
			e.module.Remove(main)
			return nil, e.errorf(sig.Pos, "forward declaration of %q has no definition", sig.Name)
		}
	}

	value, err := e.genSequence(prog.Body)
	if err != nil {
		e.module.Remove(main)
		return nil, err
	}
	e.builder.Ret(e.asInt(value))

	if err := ir.VerifyModule(e.module); err != nil {
		e.module.Remove(main)
		return nil, e.errorf(prog.Pos(), "internal error: %v", err)
	}
	e.log.Debug("emitted module", "functions", len(e.module.Functions), "globals", len(e.module.Globals))
	return e.module, nil
}

// --- Declarations ---

// declare performs the allocations of one declaration group and returns
// the bindings it shadowed. Program-level variables become globals.
func (e *Emitter) declare(decl ast.Declaration, global bool) (bindings, error) {
	var b bindings
	switch d := decl.(type) {
	case *ast.VariableDeclarationGroup:
		seen := make(map[string]bool)
		for _, group := range d.Declarations {
			typ, err := e.storageType(group.Type)
			if err != nil {
				return b, err
			}
			kind := symbols.Variable
			if typ.Kind == ir.KindArray {
				kind = symbols.Array
			}
			for _, id := range group.Identifiers {
				if seen[id.Name] {
					return b, e.errorf(id.Pos(), "%q declared twice in the same group", id.Name)
				}
				seen[id.Name] = true
				sym := &symbols.Symbol{Kind: kind, Name: id.Name, Type: typ, Seq: e.nextSeq()}
				if global {
					sym.Storage = e.module.NewGlobal(id.Name, typ)
				} else {
					slot := e.builder.Alloca(typ, id.Name)
					if kind == symbols.Variable {
						e.builder.Store(ir.ConstInt(ir.I64, 0), slot)
					}
					sym.Storage = slot
					sym.Owner = e.fn
				}
				b.vars = append(b.vars, e.vars.Define(id.Name, sym))
			}
		}
		return b, nil

	case *ast.ConstantDeclarations:
		for _, c := range d.Constants {
			b.consts = append(b.consts, e.consts.Define(c.Name, &symbols.Constant{
				Name:  c.Name,
				Value: c.Value,
				Seq:   e.nextSeq(),
			}))
		}
		return b, nil

	case *ast.Prototype:
		_, shadow, err := e.registerPrototype(d)
		if shadow != nil {
			b.routines = append(b.routines, *shadow)
		}
		return b, err

	case *ast.Function:
		shadow, err := e.genFunction(d)
		if shadow != nil {
			b.routines = append(b.routines, *shadow)
		}
		return b, err
	}
	return b, e.errorf(decl.Pos(), "unsupported declaration %T", decl)
}

// storageType maps a declared type to its IR type. Array bounds must fold
// to constants.
func (e *Emitter) storageType(t *ast.Type) (*ir.Type, error) {
	if t.Kind == ast.TypeInteger {
		return ir.I64, nil
	}
	low, err := e.constBound(t.Low)
	if err != nil {
		return nil, err
	}
	high, err := e.constBound(t.High)
	if err != nil {
		return nil, err
	}
	if high < low {
		return nil, e.errorf(t.Pos(), "array range %d..%d is empty", low, high)
	}
	// the width wraps negative when it does not fit in an int64
	width := high - low
	if width < 0 || width == math.MaxInt64 {
		return nil, e.errorf(t.Pos(), "array range %d..%d is too large", low, high)
	}
	elem, err := e.storageType(t.Elem)
	if err != nil {
		return nil, err
	}
	return ir.ArrayOf(width+1, elem), nil
}

func (e *Emitter) constBound(expr ast.Expression) (int64, error) {
	v, err := e.genExpr(expr)
	if err != nil {
		return 0, err
	}
	c, ok := v.(*ir.Const)
	if !ok {
		return 0, e.errorf(expr.Pos(), "array bound %s is not a constant", expr)
	}
	return c.Val, nil
}

// registerPrototype makes a routine callable by name before its body is
// generated. A signature already registered by a forward declaration is
// returned as is; the returned shadow is nil in that case.
func (e *Emitter) registerPrototype(p *ast.Prototype) (*symbols.Signature, *scope.Shadow[*symbols.Signature], error) {
	if p.Name == e.opts.EntryName {
		return nil, nil, e.errorf(p.Pos(), "%q is reserved for the program entry point", p.Name)
	}
	// a routine of an enclosing body is shadowed, not redefined
	if existing, ok := e.routines.Lookup(p.Name); ok && (existing.Builtin || existing.Owner == e.fn) {
		switch {
		case existing.Builtin:
			return nil, nil, e.errorf(p.Pos(), "cannot redefine builtin %q", p.Name)
		case existing.Defined:
			return nil, nil, e.errorf(p.Pos(), "redefinition of %q", p.Name)
		case p.Forward:
			return nil, nil, e.errorf(p.Pos(), "%q is already declared forward", p.Name)
		case len(existing.Params) != len(p.Params):
			return nil, nil, e.errorf(p.Pos(), "%q has %d parameters but its forward declaration has %d",
				p.Name, len(p.Params), len(existing.Params))
		}
		return existing, nil, nil
	}

	names := make([]string, len(p.Params))
	types := make([]*ir.Type, len(p.Params))
	for i, prm := range p.Params {
		if prm.Type.Kind != ast.TypeInteger {
			return nil, nil, e.errorf(prm.Token.Pos(), "parameter %q: only integer parameters are supported", prm.Name)
		}
		names[i] = prm.Name
		types[i] = ir.I64
	}
	if p.ReturnType != nil && p.ReturnType.Kind != ast.TypeInteger {
		return nil, nil, e.errorf(p.ReturnType.Pos(), "function %q: only integer results are supported", p.Name)
	}

	sig := &symbols.Signature{
		Name:     p.Name,
		Params:   names,
		Pos:      p.Pos(),
		Owner:    e.fn,
		Function: e.module.NewFunction(e.functionName(p.Name), names, types, ir.I64, false),
	}
	if p.Forward {
		e.forwards = append(e.forwards, sig)
	}
	shadow := e.routines.Define(p.Name, sig)
	return sig, &shadow, nil
}

// functionName picks a name no global or function of the module uses yet.
// Routines that reuse a name get qualified by the enclosing function.
func (e *Emitter) functionName(name string) string {
	if !e.module.Taken(name) {
		return name
	}
	base := e.fn.Name + "." + name
	candidate := base
	for i := 1; e.module.Taken(candidate); i++ {
		candidate = fmt.Sprintf("%s.%d", base, i)
	}
	return candidate
}

// genFunction generates a routine body into its own function. The builder
// position, current function and loop stack of the caller are preserved.
// A function whose body fails is removed from the module.
func (e *Emitter) genFunction(f *ast.Function) (*scope.Shadow[*symbols.Signature], error) {
	proto := f.Prototype
	sig, shadow, err := e.registerPrototype(proto)
	if err != nil {
		return nil, err
	}
	fn := sig.Function

	savedBlock, savedFn, savedLoops := e.builder.InsertBlock(), e.fn, e.loops
	defer func() {
		e.builder.SetInsertPoint(savedBlock)
		e.fn, e.loops = savedFn, savedLoops
	}()

	entry := fn.NewBlock("entry")
	fn.AppendBlock(entry)
	e.builder.SetInsertPoint(entry)
	e.fn, e.loops = fn, nil

	fail := func(err error) (*scope.Shadow[*symbols.Signature], error) {
		e.module.Remove(fn)
		if shadow != nil {
			e.routines.Restore([]scope.Shadow[*symbols.Signature]{*shadow})
		}
		return nil, err
	}

	var local bindings
	defer func() { e.restore(local) }()

	for i, prm := range proto.Params {
		if containsParam(proto.Params[:i], prm.Name) {
			return fail(e.errorf(prm.Token.Pos(), "parameter %q declared twice", prm.Name))
		}
		slot := e.builder.Alloca(ir.I64, prm.Name)
		e.builder.Store(fn.Params[i], slot)
		local.vars = append(local.vars, e.vars.Define(prm.Name, &symbols.Symbol{
			Kind:    symbols.Variable,
			Name:    prm.Name,
			Storage: slot,
			Type:    ir.I64,
			Owner:   fn,
			Seq:     e.nextSeq(),
		}))
	}

	for _, decl := range f.Body.Declarations {
		b, err := e.declare(decl, false)
		local.add(b)
		if err != nil {
			return fail(err)
		}
	}

	value, err := e.genSequence(f.Body.Body)
	if err != nil {
		return fail(err)
	}
	e.builder.Ret(e.asInt(value))

	if err := ir.Verify(fn); err != nil {
		return fail(e.errorf(proto.Pos(), "internal error: %v", err))
	}
	sig.Defined = true
	e.log.Debug("generated function", "name", fn.Name, "blocks", len(fn.Blocks))
	return shadow, nil
}

func containsParam(params []ast.Param, name string) bool {
	for _, p := range params {
		if p.Name == name {
			return true
		}
	}
	return false
}
