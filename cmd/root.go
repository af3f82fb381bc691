package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/arnavsurve/minipas/internal/compiler"
	"github.com/arnavsurve/minipas/internal/compiler/diag"
	"github.com/arnavsurve/minipas/internal/config"
	"github.com/arnavsurve/minipas/internal/logging"
)

var (
	cfgFile  string
	verbose  bool
	textOut  bool
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "minipas <source> <output>",
	Short: "minipas compiles a small Pascal dialect to an SSA IR module",
	Long: `minipas reads one source program and writes its compiled module.

The artifact is the binary MPIR encoding, or the text form with --text.

Commands:
  check    Lex, parse and generate without writing an artifact
  version  Print version information
`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			return cmd.Usage()
		}
		return build(cmd, args[0], args[1])
	},
}

// Execute runs the command line and returns the process exit status.
func Execute() int {
	exitCode = 0
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "error: %v\n", err)
		return 1
	}
	return exitCode
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $MINIPAS_CONFIG or ./minipas.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&textOut, "text", false, "write the text IR instead of the binary module")

	rootCmd.AddCommand(checkCmd, versionCmd)
}

// loadConfig resolves the configuration and the logger for one command.
func loadConfig(cmd *cobra.Command) (*config.Config, *logging.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, nil, err
	}
	if textOut {
		cfg.Output.Format = config.OutputText
	}

	log := cfg.Logger("minipas").WithOutput(cmd.ErrOrStderr())
	if verbose {
		log = log.WithLevel(logging.LevelDebug)
	}
	return cfg, log, nil
}

func build(cmd *cobra.Command, src, out string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if _, err := compiler.CompileAndWrite(src, out, cfg, log); err != nil {
		return report(cmd.ErrOrStderr(), src, err)
	}
	return nil
}

// report prints a compile diagnostic with its source line and sets the
// exit status to 1. Other errors are returned to Execute.
func report(w io.Writer, src string, err error) error {
	d, ok := diag.As(err)
	if !ok {
		return err
	}
	content, readErr := os.ReadFile(src)
	if readErr != nil && !errors.Is(readErr, os.ErrNotExist) {
		return readErr
	}
	if renderErr := diag.Render(w, d, string(content)); renderErr != nil {
		return renderErr
	}
	exitCode = 1
	return nil
}
