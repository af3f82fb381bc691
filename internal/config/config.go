package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/arnavsurve/minipas/internal/logging"
)

// EnvConfig names the environment variable holding the config file path.
const EnvConfig = "MINIPAS_CONFIG"

// DefaultPath is tried when EnvConfig is unset.
const DefaultPath = "minipas.toml"

const (
	OutputBinary = "binary"
	OutputText   = "text"
)

// Config holds the complete compiler configuration
type Config struct {
	Compiler CompilerConfig `toml:"compiler" yaml:"compiler"`
	Output   OutputConfig   `toml:"output" yaml:"output"`
	Log      LogConfig      `toml:"log" yaml:"log"`
}

// CompilerConfig controls code generation
type CompilerConfig struct {
	EntryName string   `toml:"entry_name" yaml:"entry_name"`
	Builtins  []string `toml:"builtins" yaml:"builtins"`
}

// OutputConfig controls the written artifact
type OutputConfig struct {
	// Format is "binary" or "text".
	Format string `toml:"format" yaml:"format"`
	// BuildID is stamped into binary artifacts. Empty means a fresh
	// random id per compilation.
	BuildID string `toml:"build_id" yaml:"build_id"`
}

// LogConfig controls the logger
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a TOML or YAML file, chosen by extension, and fills in
// defaults for anything left unset.
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	switch detectFormat(path) {
	case "yaml":
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	default:
		if _, err := toml.Decode(string(content), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadFromEnv loads the file named by MINIPAS_CONFIG, else ./minipas.toml
// if it exists, else returns the defaults.
func LoadFromEnv() (*Config, error) {
	if path := os.Getenv(EnvConfig); path != "" {
		return Load(path)
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return Load(DefaultPath)
	}
	return Default(), nil
}

func detectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "toml"
	}
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.Compiler.EntryName == "" {
		c.Compiler.EntryName = "main"
	}
	if c.Compiler.Builtins == nil {
		c.Compiler.Builtins = []string{"write", "writeln", "read", "readln"}
	}
	if c.Output.Format == "" {
		c.Output.Format = OutputBinary
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case OutputBinary, OutputText:
	default:
		return fmt.Errorf("output.format must be %q or %q, got %q", OutputBinary, OutputText, c.Output.Format)
	}
	if c.Output.BuildID != "" {
		if _, err := uuid.Parse(c.Output.BuildID); err != nil {
			return fmt.Errorf("output.build_id: %w", err)
		}
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return err
	}
	for _, name := range c.Compiler.Builtins {
		if name == c.Compiler.EntryName {
			return fmt.Errorf("builtin %q collides with the entry name", name)
		}
	}
	return nil
}

// Logger builds the root logger described by the Log section.
func (c *Config) Logger(name string) *logging.Logger {
	level, _ := logging.ParseLevel(c.Log.Level)
	format, _ := logging.ParseFormat(c.Log.Format)
	return logging.New(name).WithLevel(level).WithFormat(format)
}
