package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/okian/kata/internal/domain/ruleset"
)

var (
	migrateOutput      string
	migrateProfileID   string
	migrateProfileType string
	migratePresetID    string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <ruleset_v1.json>",
	Short: "Rewrite a schema v1 rule set as schema v2",
	Long: `Migrate a schema v1 rule set to v2: the sport binding becomes a metric
profile and every authoring field survives verbatim. The migrated document
is validated before it is written.

Examples:
  kata migrate rules/swing_v1.json
  kata migrate rules/swing_v1.json --output rules/swing_v2.json
  kata migrate rules/swing_v1.json --profile-type preset --preset-id baseball_starter`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		input := args[0]

		data, err := os.ReadFile(input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		var src map[string]any
		if err := json.Unmarshal(data, &src); err != nil {
			fmt.Fprintf(os.Stderr, "Error: decoding %s: %v\n", input, err)
			os.Exit(1)
		}

		migrated, report, err := ruleset.MigrateV1ToV2(src,
			ruleset.WithProfileID(migrateProfileID),
			ruleset.WithProfileType(migrateProfileType),
			ruleset.WithPresetID(migratePresetID),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		out, err := json.MarshalIndent(migrated, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: encoding migrated rule set: %v\n", err)
			os.Exit(1)
		}

		// The migrated document must parse as a valid v2 rule set.
		def, err := ruleset.Parse(out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: migrated document is invalid: %v\n", err)
			os.Exit(1)
		}
		if err := ruleset.ValidateRefs(def); err != nil {
			fmt.Fprintf(os.Stderr, "Error: migrated document is invalid: %v\n", err)
			os.Exit(1)
		}

		output := migrateOutput
		if output == "" {
			output = ruleset.DefaultMigrationOutputPath(input)
		}
		if err := os.WriteFile(output, append(out, '\n'), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s  %s -> %s\n", color.GreenString("migrated"), input, output)
		fmt.Printf("  schema %s -> %s  phases: %d  rules: %d  profile: %v\n",
			report.SourceSchemaVersion, report.TargetSchemaVersion,
			report.PhaseCount, report.RuleCount, report.MetricProfile["id"])
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateOutput, "output", "", "output path (default: input with _v1 stem replaced by _v2)")
	migrateCmd.Flags().StringVar(&migrateProfileID, "profile-id", "", "metric profile id for the migrated document")
	migrateCmd.Flags().StringVar(&migrateProfileType, "profile-type", "", "metric profile type: generic or preset")
	migrateCmd.Flags().StringVar(&migratePresetID, "preset-id", "", "preset id when the profile type is preset")
	rootCmd.AddCommand(migrateCmd)
}
