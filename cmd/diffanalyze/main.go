// Package main provides the entry point for the diffanalyze CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/diffanalyze/cmd/diffanalyze/commands"
	"github.com/Sumatoshi-tech/diffanalyze/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "diffanalyze",
		Short: "Attribute line-level git changes to the functions they touch",
		Long: `diffanalyze walks a git history and attributes every changed line
to the function whose declared range contains it, producing per-commit
and per-function change statistics.

Commands:
  history   Analyze a commit range and aggregate per-function statistics
  range     Print per-commit function changes for a revision range`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress warnings")

	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewRangeCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "diffanalyze %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
