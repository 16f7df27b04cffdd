package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/kata/internal/plugin"
)

var (
	capabilitiesCatalog string
	capabilitiesOutput  string
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "Export the plugin capability document",
	Long: `Export the capability document rule-authoring tools consume: every
registered plugin with its metrics, supported condition types, and the
synthesized authoring profiles.

Examples:
  kata capabilities
  kata capabilities --catalog catalogs/core_v1.json --output capabilities.json`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		catalog, err := plugin.LoadCatalog(capabilitiesCatalog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		doc, err := plugin.ExportCapabilities(plugin.Builtin(), catalog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: encoding capability document: %v\n", err)
			os.Exit(1)
		}
		out = append(out, '\n')

		if capabilitiesOutput == "" {
			fmt.Print(string(out))
			return
		}
		if err := os.WriteFile(capabilitiesOutput, out, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("capability document written to %s\n", capabilitiesOutput)
	},
}

func init() {
	capabilitiesCmd.Flags().StringVar(&capabilitiesCatalog, "catalog", "metric_catalog.json", "metric catalog file (built-in defaults when absent)")
	capabilitiesCmd.Flags().StringVar(&capabilitiesOutput, "output", "", "output file (default: stdout)")
	rootCmd.AddCommand(capabilitiesCmd)
}
