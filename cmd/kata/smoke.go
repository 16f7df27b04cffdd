package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/okian/kata/internal/smoke"
)

var smokeRuns int

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Run the built-in engine self-check",
	Long: `Evaluate deterministic synthetic captures against a built-in rule set,
concurrently, and verify the known-good outcomes: phase order, scores,
classifications, event-window resolution, and run-to-run determinism.

Examples:
  kata smoke
  kata smoke --runs 32`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		report, err := smoke.Run(cmd.Context(), smoke.WithRuns(smokeRuns))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s  %v\n", color.RedString("FAIL"), err)
			os.Exit(1)
		}
		fmt.Printf("%s  %d concurrent runs, %d checks\n",
			color.GreenString("smoke check passed"), report.Runs, report.Checks)
	},
}

func init() {
	smokeCmd.Flags().IntVar(&smokeRuns, "runs", 8, "number of concurrent engine runs")
	rootCmd.AddCommand(smokeCmd)
}
