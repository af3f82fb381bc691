package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/arnavsurve/minipas/internal/logging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	be.Err(t, os.WriteFile(path, []byte(content), 0o644), nil)
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	be.Equal(t, cfg.Compiler.EntryName, "main")
	be.Equal(t, cfg.Compiler.Builtins, []string{"write", "writeln", "read", "readln"})
	be.Equal(t, cfg.Output.Format, OutputBinary)
	be.Equal(t, cfg.Log.Level, "info")
	be.Err(t, cfg.Validate(), nil)
}

func TestLoadTOMLAndYAMLAgree(t *testing.T) {
	tomlPath := writeFile(t, "minipas.toml", `
[compiler]
entry_name = "start"
builtins = ["writeln"]

[output]
format = "text"
build_id = "6f1c3a52-8d0e-4b7a-9d5e-2a1f0c9b8e77"

[log]
level = "debug"
format = "json"
`)
	yamlPath := writeFile(t, "minipas.yaml", `
compiler:
  entry_name: start
  builtins: [writeln]
output:
  format: text
  build_id: 6f1c3a52-8d0e-4b7a-9d5e-2a1f0c9b8e77
log:
  level: debug
  format: json
`)

	fromTOML, err := Load(tomlPath)
	be.Err(t, err, nil)
	fromYAML, err := Load(yamlPath)
	be.Err(t, err, nil)

	be.Equal(t, *fromTOML, *fromYAML)
	be.Equal(t, fromTOML.Compiler.EntryName, "start")
	be.Equal(t, fromTOML.Compiler.Builtins, []string{"writeln"})
	be.Equal(t, fromTOML.Output.Format, OutputText)
	be.Equal(t, fromTOML.Log.Format, "json")
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeFile(t, "partial.toml", "[log]\nlevel = \"warn\"\n")
	cfg, err := Load(path)
	be.Err(t, err, nil)
	be.Equal(t, cfg.Log.Level, "warn")
	be.Equal(t, cfg.Compiler.EntryName, "main")
	be.Equal(t, cfg.Output.Format, OutputBinary)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"bad toml", "bad.toml", "[compiler\n", "failed to parse"},
		{"bad yaml", "bad.yml", "compiler: [\n", "failed to parse"},
		{"bad output format", "c.toml", "[output]\nformat = \"elf\"\n", "output.format"},
		{"bad build id", "c.toml", "[output]\nbuild_id = \"nope\"\n", "output.build_id"},
		{"bad log level", "c.toml", "[log]\nlevel = \"loud\"\n", "log level"},
		{"builtin named like entry", "c.toml", "[compiler]\nbuiltins = [\"main\"]\n", "collides"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			be.True(t, err != nil)
			be.True(t, strings.Contains(err.Error(), tt.want))
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "not found"))
}

func TestLoadFromEnv(t *testing.T) {
	path := writeFile(t, "env.yaml", "compiler:\n  entry_name: program\n")
	t.Setenv(EnvConfig, path)

	cfg, err := LoadFromEnv()
	be.Err(t, err, nil)
	be.Equal(t, cfg.Compiler.EntryName, "program")
}

func TestLoadFromEnvFallsBackToDefaults(t *testing.T) {
	t.Setenv(EnvConfig, "")
	wd, err := os.Getwd()
	be.Err(t, err, nil)
	be.Err(t, os.Chdir(t.TempDir()), nil)
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadFromEnv()
	be.Err(t, err, nil)
	be.Equal(t, *cfg, *Default())
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "error"
	l := cfg.Logger("minipas")
	be.Equal(t, l.Level(), logging.LevelError)
}
