package compiler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/arnavsurve/minipas/internal/compiler/ast"
	"github.com/arnavsurve/minipas/internal/compiler/diag"
	"github.com/arnavsurve/minipas/internal/compiler/emitter"
	"github.com/arnavsurve/minipas/internal/compiler/ir"
	"github.com/arnavsurve/minipas/internal/compiler/lexer"
	"github.com/arnavsurve/minipas/internal/compiler/parser"
	"github.com/arnavsurve/minipas/internal/config"
	"github.com/arnavsurve/minipas/internal/logging"
)

type Options struct {
	EntryName string
	Builtins  []string
	Logger    *logging.Logger
}

// OptionsFromConfig maps the compiler section of cfg onto Options.
func OptionsFromConfig(cfg *config.Config, log *logging.Logger) Options {
	return Options{
		EntryName: cfg.Compiler.EntryName,
		Builtins:  cfg.Compiler.Builtins,
		Logger:    log,
	}
}

// Result is a successful compilation.
type Result struct {
	CompileID string
	Program   *ast.Program
	Module    *ir.Module
}

// Compile lexes, parses and generates one program. source names the input
// in diagnostics. The returned error is a diag.Diagnostic.
func Compile(source, input string, opts Options) (*Result, error) {
	id := uuid.NewString()
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	log = log.WithFields(logging.Fields{"compile_id": id, "source": source})

	lex := lexer.NewNamed(source, input)
	lex.OnError = func(err *diag.LexicalError) {
		log.Warn("lexical error", "line", err.Line, "column", err.Column, "msg", err.Msg)
	}

	log.Debug("parsing", "bytes", len(input))
	prog, err := parser.New(lex, source, opts.Builtins...).ParseProgram()
	if err != nil {
		return nil, firstError(lex.Errors(), err)
	}
	if errs := lex.Errors(); len(errs) > 0 {
		return nil, errs[0]
	}
	log.Debug("parsed program", "name", prog.Name, "declarations", len(prog.Declarations))

	em := emitter.New(emitter.Options{
		EntryName: opts.EntryName,
		Builtins:  opts.Builtins,
		Source:    source,
		Logger:    log,
	})
	m, err := em.Emit(prog)
	if err != nil {
		return nil, err
	}
	log.Debug("generated module", "functions", len(m.Functions), "globals", len(m.Globals))

	return &Result{CompileID: id, Program: prog, Module: m}, nil
}

// firstError picks the diagnostic to report for a failed parse. A lexical
// error at or before the failing token caused it and wins.
func firstError(lexErrs []*diag.LexicalError, parseErr error) error {
	d, ok := diag.As(parseErr)
	if !ok || len(lexErrs) == 0 {
		return parseErr
	}
	first := lexErrs[0]
	pos := d.Position()
	if first.Line < pos.Line || (first.Line == pos.Line && first.Column <= pos.Column) {
		return first
	}
	return parseErr
}

// CompileAndWrite compiles srcPath and writes the artifact to outPath in
// the format cfg selects. Nothing is written when compilation fails.
func CompileAndWrite(srcPath, outPath string, cfg *config.Config, log *logging.Logger) (*Result, error) {
	content, err := readSource(srcPath)
	if err != nil {
		return nil, err
	}

	res, err := Compile(srcPath, content, OptionsFromConfig(cfg, log))
	if err != nil {
		return nil, err
	}

	artifact, err := render(res.Module, cfg.Output)
	if err != nil {
		return nil, err
	}
	if err := writeOutput(artifact, outPath); err != nil {
		return nil, err
	}
	if log != nil {
		log.WithField("compile_id", res.CompileID).Info("wrote artifact", "path", outPath, "bytes", len(artifact))
	}
	return res, nil
}

func readSource(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return string(b), nil
}

// render produces the artifact bytes: the text IR or the binary encoding
// stamped with the configured or a fresh build id.
func render(m *ir.Module, out config.OutputConfig) ([]byte, error) {
	if out.Format == config.OutputText {
		return []byte(m.String()), nil
	}

	id := uuid.New()
	if out.BuildID != "" {
		parsed, err := uuid.Parse(out.BuildID)
		if err != nil {
			return nil, fmt.Errorf("build id: %w", err)
		}
		id = parsed
	}

	var buf bytes.Buffer
	if err := ir.Encode(&buf, m, ir.Header{BuildID: [16]byte(id)}); err != nil {
		return nil, fmt.Errorf("encode module: %w", err)
	}
	return buf.Bytes(), nil
}

func writeOutput(artifact []byte, outPath string) error {
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(outPath, artifact, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}
