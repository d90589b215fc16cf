// Package main provides the entry point for the benchfang CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/benchfang/cmd/benchfang/commands"
	"github.com/Sumatoshi-tech/benchfang/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand wires the full command tree. Subcommands read the
// persistent verbosity flags back through the cobra flag set.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "benchfang",
		Short: "Benchfang - Statistics for noisy benchmark timings",
		Long: `Benchfang filters outliers out of benchmark timings and reports
bootstrap confidence intervals for the surviving samples.

Commands:
  analyze   Filter timing samples and estimate their statistics
  compare   Judge whether two saved runs differ significantly
  plot      Render a saved distribution as a histogram
  validate  Validate a run export against the embedded schema`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolP("quiet", "q", false, "suppress output")

	root.AddCommand(
		commands.NewAnalyzeCommand(),
		commands.NewCompareCommand(),
		commands.NewPlotCommand(),
		commands.NewValidateCommand(),
		newVersionCommand(),
	)

	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "benchfang %s (commit: %s, built: %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}
