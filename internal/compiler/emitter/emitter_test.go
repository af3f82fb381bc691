package emitter

import (
	"errors"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/arnavsurve/minipas/internal/compiler/diag"
	"github.com/arnavsurve/minipas/internal/compiler/ir"
	"github.com/arnavsurve/minipas/internal/compiler/lexer"
	"github.com/arnavsurve/minipas/internal/compiler/parser"
)

// --- Test Helper Functions ---

func emit(t *testing.T, input string, opts Options) (*Emitter, *ir.Module, error) {
	t.Helper()
	prog, err := parser.New(lexer.New(input), "test.pas").ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram() failed: %v", err)
	}
	opts.Source = "test.pas"
	e := New(opts)
	m, err := e.Emit(prog)
	return e, m, err
}

func compile(t *testing.T, input string) *ir.Module {
	t.Helper()
	_, m, err := emit(t, input, Options{})
	if err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}
	for _, f := range m.Functions {
		be.Err(t, ir.Verify(f), nil)
	}
	return m
}

func semanticErr(t *testing.T, input string) *diag.SemanticError {
	t.Helper()
	_, m, err := emit(t, input, Options{})
	if err == nil {
		t.Fatalf("Emit() succeeded, want a semantic error")
	}
	be.True(t, m == nil)
	var semErr *diag.SemanticError
	if !errors.As(err, &semErr) {
		t.Fatalf("error is %T, want *diag.SemanticError", err)
	}
	return semErr
}

// --- Programs ---

func TestAssignGlobal(t *testing.T) {
	m := compile(t, `program p;
var x: integer;
begin x := 3 + 4 end.`)

	be.Equal(t, m.Name, "p")
	out := m.String()
	be.True(t, strings.Contains(out, "@x = global i64 0"))
	be.True(t, strings.Contains(out, "declare i64 @writeln(...)"))
	be.True(t, strings.Contains(out, "store i64 7, ptr @x"))
	be.True(t, strings.Contains(out, "ret i64 7"))
}

func TestEntryName(t *testing.T) {
	_, m, err := emit(t, "program p; begin writeln end.", Options{EntryName: "start", Builtins: []string{"writeln"}})
	be.Err(t, err, nil)
	be.True(t, m.Function("start") != nil)
	be.True(t, m.Function("main") == nil)
	be.True(t, m.Function("readln") == nil)
}

func TestLocalShadowsGlobal(t *testing.T) {
	e, m, err := emit(t, `program p;
var x: integer;
procedure show;
var x: integer;
begin x := 1 end;
begin x := 7; show() end.`, Options{})
	be.Err(t, err, nil)

	show := m.Function("show").String()
	be.True(t, strings.Contains(show, "%x = alloca i64"))
	be.True(t, strings.Contains(show, "store i64 1, ptr %x"))
	be.True(t, !strings.Contains(show, "@x"))

	main := m.Function("main").String()
	be.True(t, strings.Contains(main, "store i64 7, ptr @x"))
	be.True(t, strings.Contains(main, "call i64 @show()"))

	// every binding is gone once the program is done
	_, ok := e.Binding("x")
	be.True(t, !ok)
}

func TestParametersAndCalls(t *testing.T) {
	m := compile(t, `program p;
function add(a, b: integer): integer;
var r: integer;
begin r := a + b end;
begin writeln(add(1, 2), 3) end.`)

	add := m.Function("add")
	be.Equal(t, len(add.Params), 2)
	out := add.String()
	be.True(t, strings.Contains(out, "define i64 @add(i64 %a, i64 %b)"))
	be.True(t, strings.Contains(out, "store i64 %a, ptr %a1"))
	be.True(t, strings.Contains(out, "add i64"))

	main := m.Function("main").String()
	be.True(t, strings.Contains(main, "call i64 @add(i64 1, i64 2)"))
	be.True(t, strings.Contains(main, "call i64 @writeln(i64 %calltmp, i64 3)"))
}

func TestIfProducesPhi(t *testing.T) {
	m := compile(t, `program p;
var x, y: integer;
begin
  if x > 0 then y := 1 else y := 2
end.`)
	out := m.Function("main").String()
	be.True(t, strings.Contains(out, "icmp ugt i64"))
	be.True(t, strings.Contains(out, "then:"))
	be.True(t, strings.Contains(out, "else:"))
	be.True(t, strings.Contains(out, "ifcont:"))
	be.True(t, strings.Contains(out, "phi i64 [ 1, %then ], [ 2, %else ]"))
}

func TestIfWithoutElse(t *testing.T) {
	m := compile(t, `program p;
var x: integer;
begin if x then x := 5 end.`)
	out := m.Function("main").String()
	be.True(t, strings.Contains(out, "phi i64 [ 5, %then ], [ 0, %else ]"))
}

func TestComparisonValueIsWidened(t *testing.T) {
	m := compile(t, `program p;
var x, y: integer;
begin y := x < 3 end.`)
	out := m.Function("main").String()
	be.True(t, strings.Contains(out, "icmp ult i64"))
	be.True(t, strings.Contains(out, "zext i1"))
}

func TestWhile(t *testing.T) {
	m := compile(t, `program p;
var i: integer;
begin
  while i < 10 do i := i + 1
end.`)
	out := m.Function("main").String()
	be.True(t, strings.Contains(out, "br label %whilecond"))
	be.True(t, strings.Contains(out, "whilebody:"))
	be.True(t, strings.Contains(out, "whileend:"))
	be.True(t, strings.Contains(out, "ret i64 0"))
}

func TestForLoops(t *testing.T) {
	tests := []struct {
		name  string
		loop  string
		pred  string
		delta string
	}{
		{"to", "for i := 1 to 10 do s := s + i", "icmp sle", "add i64"},
		{"downto with step", "for i := 10 downto 1 step 2 do s := s + i", "icmp sge", "sub i64"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := compile(t, "program p; var i, s: integer; begin "+tt.loop+" end.")
			out := m.Function("main").String()
			be.True(t, strings.Contains(out, tt.pred))
			be.True(t, strings.Contains(out, tt.delta))
			be.True(t, strings.Contains(out, "loop:"))
			be.True(t, strings.Contains(out, "afterloop:"))
			// the loop variable gets its own storage
			be.True(t, strings.Contains(out, "%i = alloca i64"))
		})
	}
}

func TestForBodyRunsBeforeFirstTest(t *testing.T) {
	m := compile(t, "program p; var x: integer; begin for i := 5 to 1 do x := 9 end.")
	out := m.Function("main").String()

	entry, rest, ok := strings.Cut(out, "loop:")
	be.True(t, ok)
	be.True(t, strings.Contains(entry, "br label %loop"))
	be.True(t, !strings.Contains(entry, "icmp"))
	be.True(t, strings.Contains(rest, "store i64 9, ptr @x"))
	be.True(t, strings.Contains(rest, "%loopcond = icmp sle i64 %nextvar, 1"))
}

func TestForRestoresLoopVariable(t *testing.T) {
	e, m, err := emit(t, `program p;
var i: integer;
begin
  for i := 1 to 3 do writeln(i);
  i := 5
end.`, Options{})
	be.Err(t, err, nil)

	out := m.Function("main").String()
	_, after, ok := strings.Cut(out, "afterloop:")
	be.True(t, ok)
	be.True(t, strings.Contains(after, "store i64 5, ptr @i"))
	be.True(t, !strings.Contains(after, "ptr %i"))

	_, ok = e.Binding("i")
	be.True(t, !ok)
}

func TestNextBodyResolvesGlobalAgain(t *testing.T) {
	m := compile(t, `program p;
var x: integer;
procedure first;
var x: integer;
begin x := 1 end;
procedure second;
begin x := 2 end;
begin first(); second() end.`)

	be.True(t, strings.Contains(m.Function("first").String(), "store i64 1, ptr %x"))
	second := m.Function("second").String()
	be.True(t, strings.Contains(second, "store i64 2, ptr @x"))
	be.True(t, !strings.Contains(second, "alloca"))
}

func TestRoutineNamedLikeGlobal(t *testing.T) {
	m := compile(t, `program p;
var f: integer;
function f(a: integer): integer;
begin f := a end;
begin writeln(f(2)) end.`)
	be.Err(t, ir.VerifyModule(m), nil)

	be.True(t, m.Function("f") == nil)
	fn := m.Function("main.f")
	be.True(t, fn != nil)
	be.True(t, strings.Contains(m.String(), "@f = global i64 0"))
	be.True(t, strings.Contains(m.Function("main").String(), "call i64 @main.f(i64 2)"))
}

func TestBreakAndExit(t *testing.T) {
	m := compile(t, `program p;
var i: integer;
procedure stop;
begin exit; writeln end;
begin
  while 1 do begin
    i := i + 1;
    if i = 5 then break
  end
end.`)
	stop := m.Function("stop").String()
	be.True(t, strings.Contains(stop, "afterexit:"))

	main := m.Function("main").String()
	be.True(t, strings.Contains(main, "br label %whileend"))
	be.True(t, strings.Contains(main, "afterbreak:"))
}

func TestForwardMutualRecursion(t *testing.T) {
	m := compile(t, `program p;
function isEven(n: integer): integer; forward;
function isOdd(n: integer): integer;
var r: integer;
begin
  if n = 0 then r := 0 else r := isEven(n - 1)
end;
function isEven;
var r: integer;
begin
  if n = 0 then r := 1 else r := isOdd(n - 1)
end;
begin writeln(isEven(4)) end.`)

	even := m.Function("isEven")
	be.True(t, even != nil)
	be.True(t, !even.IsDeclaration())
	be.True(t, strings.Contains(m.Function("isOdd").String(), "call i64 @isEven("))
	be.True(t, strings.Contains(even.String(), "call i64 @isOdd("))
}

func TestConstants(t *testing.T) {
	m := compile(t, `program p;
const k = 5; neg = -2;
var x: integer;
procedure inner;
var k: integer;
begin k := 1 end;
begin x := k * neg end.`)

	be.True(t, strings.Contains(m.Function("main").String(), "store i64 -10, ptr @x"))
	// the local variable wins over the constant inside inner
	be.True(t, strings.Contains(m.Function("inner").String(), "store i64 1, ptr %k"))
	be.Equal(t, len(m.Globals), 1)
}

func TestArrays(t *testing.T) {
	m := compile(t, `program p;
const max = 3;
var grid: array[1..max] of array[0..1] of integer;
begin writeln end.`)
	be.True(t, strings.Contains(m.String(), "@grid = global [3 x [2 x i64]] zeroinitializer"))
}

func TestNestedRoutineNamesAreQualified(t *testing.T) {
	m := compile(t, `program p;
procedure helper;
begin writeln end;
procedure outer;
  procedure helper;
  begin readln end;
begin helper() end;
begin outer() end.`)

	be.True(t, m.Function("helper") != nil)
	inner := m.Function("outer.helper")
	be.True(t, inner != nil)
	be.True(t, strings.Contains(m.Function("outer").String(), "call i64 @outer.helper()"))
}

// --- Semantic errors ---

func TestSemanticErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"unknown variable",
			"program p; begin y := 1 end.",
			`unknown variable "y"`,
		},
		{
			"unknown function",
			"program p; begin nothing(1) end.",
			`unknown function "nothing"`,
		},
		{
			"arity",
			`program p;
function add(a, b: integer): integer;
var r: integer;
begin r := a + b end;
begin add(1) end.`,
			`"add" expects 2 arguments, got 1`,
		},
		{
			"redefinition",
			`program p;
procedure twice; begin writeln end;
procedure twice; begin readln end;
begin twice() end.`,
			`redefinition of "twice"`,
		},
		{
			"builtin redefinition",
			"program p; procedure writeln; begin exit end; begin exit end.",
			`cannot redefine builtin "writeln"`,
		},
		{
			"entry name",
			"program p; procedure main; begin exit end; begin exit end.",
			"reserved",
		},
		{
			"break outside a loop",
			"program p; begin break end.",
			"break outside of a loop",
		},
		{
			"assign to constant",
			"program p; const k = 1; begin k := 2 end.",
			`cannot assign to constant "k"`,
		},
		{
			"assign to array",
			"program p; var a: array[1..2] of integer; begin a := 2 end.",
			`cannot assign to array "a"`,
		},
		{
			"array as value",
			"program p; var a: array[1..2] of integer; x: integer; begin x := a end.",
			`array "a" cannot be used as a value`,
		},
		{
			"non-constant bound",
			"program p; var n: integer; a: array[1..n] of integer; begin exit end.",
			"is not a constant",
		},
		{
			"empty range",
			"program p; var a: array[5..1] of integer; begin exit end.",
			"array range 5..1 is empty",
		},
		{
			"duplicate in group",
			"program p; var x, x: integer; begin exit end.",
			`"x" declared twice`,
		},
		{
			"duplicate parameter",
			"program p; procedure f(a, a: integer); begin exit end; begin f(1, 2) end.",
			`parameter "a" declared twice`,
		},
		{
			"enclosing local",
			`program p;
procedure outer;
var a: integer;
  procedure inner;
  begin a := 1 end;
begin a := 2 end;
begin outer() end.`,
			`local of enclosing routine "outer"`,
		},
		{
			"forward without body",
			"program p; function f(n: integer): integer; forward; begin f(1) end.",
			`forward declaration of "f" has no definition`,
		},
		{
			"forward parameter count",
			`program p;
function f(n: integer): integer; forward;
function f(n, m: integer): integer; begin exit end;
begin f(1) end.`,
			"forward declaration has 1",
		},
		{
			"array parameter",
			"program p; procedure f(a: array[1..2] of integer); begin exit end; begin exit end.",
			"only integer parameters",
		},
		{
			"array range width overflows",
			"program p; var a: array[0..9223372036854775807] of integer; begin exit end.",
			"array range 0..9223372036854775807 is too large",
		},
		{
			"array range spans every integer",
			"program p; var a: array[-9223372036854775807..9223372036854775807] of integer; begin exit end.",
			"is too large",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := semanticErr(t, tt.input)
			if !strings.Contains(err.Msg, tt.want) {
				t.Errorf("Msg = %q, want it to contain %q", err.Msg, tt.want)
			}
			be.Equal(t, err.Source, "test.pas")
			be.True(t, err.Line > 0)
		})
	}
}

func TestErrorMessageFormat(t *testing.T) {
	err := semanticErr(t, "program p;\nbegin\n  y := 1\nend.")
	be.Equal(t, err.Error(), `test.pas:3:3: semantic error: unknown variable "y"`)
}

func TestFailedFunctionIsErased(t *testing.T) {
	e, _, err := emit(t, `program p;
procedure good;
begin writeln end;
procedure bad;
begin y := 1 end;
begin good() end.`, Options{})
	be.True(t, err != nil)

	m := e.Module()
	be.True(t, m.Function("bad") == nil)
	be.True(t, m.Function("main") == nil)
	be.True(t, m.Function("good") != nil)
	be.Equal(t, len(e.Errors()), 1)
	be.Equal(t, e.Errors()[0].Code(), diag.CodeSemantic)
}
