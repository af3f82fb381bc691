package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arnavsurve/minipas/internal/compiler"
)

var printIR bool

// check: compile without writing an artifact
var checkCmd = &cobra.Command{
	Use:   "check <source>",
	Short: "Lex, parse and generate a program without writing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := args[0]
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}

		res, err := compiler.Compile(src, string(content), compiler.OptionsFromConfig(cfg, log))
		if err != nil {
			return report(cmd.ErrOrStderr(), src, err)
		}

		if printIR {
			fmt.Fprint(cmd.OutOrStdout(), res.Module.String())
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d functions, %d globals)\n",
			src, len(res.Module.Functions), len(res.Module.Globals))
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&printIR, "ir", false, "print the text IR")
}
