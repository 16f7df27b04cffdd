package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/okian/kata/internal/domain/ruleset"
	"github.com/okian/kata/internal/plugin"
)

var validatePlugin string

var validateCmd = &cobra.Command{
	Use:   "validate <ruleset.json>",
	Short: "Parse and validate a rule set file",
	Long: `Parse a rule set, check its cross references (phase ids, condition refs,
signal targets), and confirm the metric plugin it needs is available.

Examples:
  kata validate rules/swing_v2.json
  kata validate rules/swing_v1.json --plugin baseball`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]

		def, err := ruleset.ParseFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", color.RedString("invalid"), err)
			os.Exit(1)
		}
		if err := ruleset.ValidateRefs(def); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", color.RedString("invalid"), err)
			os.Exit(1)
		}

		resolved, err := plugin.ResolveName(def, validatePlugin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", color.RedString("invalid"), err)
			os.Exit(1)
		}
		if _, err := plugin.Builtin().Create(resolved); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", color.RedString("invalid"), err)
			os.Exit(1)
		}

		fmt.Printf("%s  %s (schema %s)\n", color.GreenString("valid"), def.RuleSetID, def.SchemaVersion)
		fmt.Printf("  phases: %d  rules: %d  plugin: %s\n", len(def.Phases), len(def.Rules), resolved)
	},
}

func init() {
	validateCmd.Flags().StringVar(&validatePlugin, "plugin", "auto", "metric plugin, or auto to resolve from the rule set")
	rootCmd.AddCommand(validateCmd)
}
