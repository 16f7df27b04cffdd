package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	service "github.com/okian/kata/internal/app"
	"github.com/okian/kata/internal/domain/model"
	"github.com/okian/kata/internal/engine"
)

// timePrecision rounds durations for display.
const timePrecision = time.Millisecond

var (
	runRules      string
	runPlugin     string
	runDataRoot   string
	runOutputRoot string
	runHistoryDB  string
	runTimings    bool
)

var runCmd = &cobra.Command{
	Use:   "run <dataset>",
	Short: "Evaluate one dataset and print the verdict",
	Long: `Evaluate one dataset synchronously: load the student and coach skeletons
from <data-root>/<dataset>/aligned/data/, run the rule set, write the run
artifacts next to the dataset, and print the per-phase verdict.

Examples:
  kata run swing_042 --rules rules/swing_v2.json
  kata run swing_042 --rules rules/swing_v2.json --plugin generic_core --timings`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		opts := []service.Option{
			service.WithDataRoot(runDataRoot),
			service.WithOutputRoot(runOutputRoot),
			service.WithHistoryPath(runHistoryDB),
			service.WithDefaultRuleSet(runRules),
			service.WithWorkerCount(1),
		}
		if runTimings {
			opts = append(opts, service.WithTimings())
		}

		svc := service.New(opts...)
		if err := svc.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer svc.Stop(ctx)

		ds := model.NewDataset(runDataRoot, args[0])
		record, result, err := svc.RunDataset(ctx, "", ds, runRules, runPlugin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		printRunResult(record, result)
	},
}

// printRunResult renders one completed run: phase lines in definition order,
// then the overall verdict.
func printRunResult(record model.RunRecord, result engine.Result) {
	bold := color.New(color.Bold).SprintFunc()

	fmt.Printf("%s  rule set %s, plugin %s\n", bold(record.Dataset), record.RuleSetID, record.Plugin)
	for _, phaseID := range result.Order {
		phase := result.Phases[phaseID]
		passed, total := 0, 0
		for _, ruleID := range phase.RuleOrder() {
			total++
			if phase.Rules[ruleID].Passed {
				passed++
			}
		}
		fmt.Printf("  %-20s %s  score %3d  rules %d/%d  frames [%d,%d]\n",
			phaseID, classColor(phase.Classification), phase.Score, passed, total,
			phase.FrameRange.Start, phase.FrameRange.End)
	}
	fmt.Printf("overall: %s  score %d  (%s, run %s)\n",
		classColor(record.Classification), record.OverallScore,
		record.Duration.Round(timePrecision), record.ID)
}

// classColor colors a classification label for terminal output.
func classColor(class string) string {
	switch class {
	case "correct":
		return color.GreenString("%-7s", class)
	case "wrong":
		return color.RedString("%-7s", class)
	default:
		return color.YellowString("%-7s", class)
	}
}

func init() {
	runCmd.Flags().StringVar(&runRules, "rules", "", "rule set JSON file (required)")
	runCmd.Flags().StringVar(&runPlugin, "plugin", "auto", "metric plugin, or auto to resolve from the rule set")
	runCmd.Flags().StringVar(&runDataRoot, "data-root", "./data", "directory holding dataset trees")
	runCmd.Flags().StringVar(&runOutputRoot, "output-root", "", "directory for run artifacts (defaults to the data root)")
	runCmd.Flags().StringVar(&runHistoryDB, "history", "./kata_runs.db", "SQLite run history file")
	runCmd.Flags().BoolVar(&runTimings, "timings", false, "capture per-phase timing data in the result")
	_ = runCmd.MarkFlagRequired("rules")
	rootCmd.AddCommand(runCmd)
}
