package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "polyapi",
	Short: "Schema-driven API engine serving REST, GraphQL, and OpenAPI from one definition",
	Long: `PolyAPI turns a declarative schema of nouns into a complete API.

Declare your data model once and get a REST surface, a GraphQL
endpoint, an OpenAPI document, and an event stream over the same
in-memory store.

Quick start:
  polyapi serve     # Start the API server
  polyapi validate  # Validate configuration and schema
  polyapi openapi   # Print the generated OpenAPI document`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "polyapi.yaml", "config file path")
}
