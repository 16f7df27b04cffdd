package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/kata/internal/adapters/history"
)

var (
	historyDB    string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List completed runs from the history index",
	Long: `List completed evaluation runs recorded in the SQLite history, most
recent first.

Examples:
  kata history
  kata history --limit 5 --db ./kata_runs.db`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		store, err := history.Open(historyDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			_ = store.Close()
		}()

		runs, err := store.List(ctx, historyLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return
		}

		for _, run := range runs {
			fmt.Printf("%s  %-24s %s  score %3d  %-12s %s  %s\n",
				run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				run.Dataset, classColor(run.Classification), run.OverallScore,
				run.RuleSetID, run.Duration.Round(timePrecision), run.ID)
		}
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyDB, "db", "./kata_runs.db", "SQLite run history file")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum runs to list (0 = all)")
	rootCmd.AddCommand(historyCmd)
}
