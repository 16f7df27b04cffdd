// Command kata evaluates student-versus-coach motion captures against
// declarative rule sets: single runs, batches, a long-running HTTP service,
// and the authoring utilities around rule definitions.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/kata/pkg/logger"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "kata",
	Short: "Motion analysis against declarative rule sets",
	Long: `kata compares a student's skeleton capture against a coach's and judges it
with a versioned JSON rule set: phases, rules, conditions, scores.

Common workflows:
  kata run swing_042 --rules rules/swing_v2.json
  kata batch swing_* --rules rules/swing_v2.json
  kata serve
  kata validate rules/swing_v2.json
  kata migrate rules/swing_v1.json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := logger.SetLevelString(logLevel); err != nil {
			fmt.Fprintf(os.Stderr, "invalid --log-level %q; using info\n", logLevel)
			_ = logger.SetLevelString("info")
		}
	},
}

func main() {
	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}
