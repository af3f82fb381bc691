package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/arnavsurve/minipas/internal/compiler/ir"
)

var (
	Version   = "0.1.0"
	GitCommit = "development"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "minipas v%s\n", Version)
		fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
		fmt.Fprintf(out, "  IR Format:  %s v%d\n", ir.Magic[:], ir.FormatVersion)
		fmt.Fprintf(out, "  Go Version: %s\n", runtime.Version())
	},
}
