package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/okian/kata/internal/adapters/history"
	service "github.com/okian/kata/internal/app"
)

// batchPollInterval is how often the drain loop samples the queue.
const batchPollInterval = 100 * time.Millisecond

var (
	batchRules      string
	batchPlugin     string
	batchDataRoot   string
	batchOutputRoot string
	batchHistoryDB  string
	batchWorkers    int
	batchQueueSize  int
)

var batchCmd = &cobra.Command{
	Use:   "batch <dataset>...",
	Short: "Evaluate many datasets through the worker pool",
	Long: `Submit every named dataset to the in-memory job queue and evaluate them
concurrently. One dataset failing never stops the others; the summary marks
each dataset done or failed and the command exits non-zero if any failed.

Examples:
  kata batch swing_001 swing_002 swing_003 --rules rules/swing_v2.json
  kata batch swing_* --rules rules/swing_v2.json --workers 8`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		svc := service.New(
			service.WithDataRoot(batchDataRoot),
			service.WithOutputRoot(batchOutputRoot),
			service.WithHistoryPath(batchHistoryDB),
			service.WithDefaultRuleSet(batchRules),
			service.WithWorkerCount(batchWorkers),
			service.WithQueueSize(batchQueueSize),
		)
		if err := svc.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer svc.Stop(ctx)

		runIDs := make(map[string]string, len(args))
		failed := 0
		for _, dataset := range args {
			id, err := svc.Submit(ctx, dataset, batchRules, batchPlugin)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: submit failed: %v\n", dataset, err)
				failed++
				continue
			}
			runIDs[dataset] = id
		}

		if err := waitForDrain(cmd, svc); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		for _, dataset := range args {
			id, ok := runIDs[dataset]
			if !ok {
				continue
			}
			record, err := svc.GetRun(ctx, id)
			switch {
			case errors.Is(err, history.ErrNotFound):
				fmt.Printf("  %-24s %s\n", dataset, color.RedString("failed"))
				failed++
			case err != nil:
				fmt.Fprintf(os.Stderr, "%s: reading run: %v\n", dataset, err)
				failed++
			default:
				fmt.Printf("  %-24s %s  score %3d  (%s)\n", dataset,
					classColor(record.Classification), record.OverallScore,
					record.Duration.Round(timePrecision))
			}
		}

		done := len(args) - failed
		fmt.Printf("batch finished: %d done, %d failed\n", done, failed)
		if failed > 0 {
			os.Exit(1)
		}
	},
}

// waitForDrain blocks until the queue is empty and no submission is still in
// flight.
func waitForDrain(cmd *cobra.Command, svc *service.Service) error {
	ticker := time.NewTicker(batchPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cmd.Context().Done():
			return fmt.Errorf("interrupted: %w", cmd.Context().Err())
		case <-ticker.C:
			stats := svc.GetStats()
			queued, _ := stats["queueLength"].(int)
			pending, _ := stats["pendingSubmissions"].(int64)
			if queued == 0 && pending == 0 {
				return nil
			}
		}
	}
}

func init() {
	batchCmd.Flags().StringVar(&batchRules, "rules", "", "rule set JSON file (required)")
	batchCmd.Flags().StringVar(&batchPlugin, "plugin", "auto", "metric plugin, or auto to resolve from the rule set")
	batchCmd.Flags().StringVar(&batchDataRoot, "data-root", "./data", "directory holding dataset trees")
	batchCmd.Flags().StringVar(&batchOutputRoot, "output-root", "", "directory for run artifacts (defaults to the data root)")
	batchCmd.Flags().StringVar(&batchHistoryDB, "history", "./kata_runs.db", "SQLite run history file")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "worker count (default 2x CPUs)")
	batchCmd.Flags().IntVar(&batchQueueSize, "queue-size", 1024, "job queue capacity")
	_ = batchCmd.MarkFlagRequired("rules")
	rootCmd.AddCommand(batchCmd)
}
