package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/artpar/polyapi/config"
	"github.com/artpar/polyapi/core/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and schema before deployment",
	Long: `Validate the PolyAPI configuration file and the schema it points at.

Checks:
  - YAML syntax is valid
  - Required fields are present
  - Rate limit windows are well-formed
  - Every noun compiles: valid names, known field types, resolvable
    relation targets

Examples:
  polyapi validate
  polyapi validate --config /etc/polyapi/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Printf("  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Printf("  %s Config file exists\n", checkMark)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Printf("  %s Config syntax valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Printf("  %s Config syntax valid\n", checkMark)

	nouns, err := schema.ParseFile(cfg.Schema.Path)
	if err != nil {
		fmt.Printf("  %s Schema compiles\n", crossMark)
		return fmt.Errorf("schema error: %w", err)
	}
	fmt.Printf("  %s Schema compiles\n", checkMark)

	names := make([]string, 0, len(nouns))
	for name := range nouns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s Noun %s: %d fields\n", checkMark, name, len(nouns[name].Fields))
	}

	fmt.Printf("  %s API keys configured: %d\n", checkMark, len(cfg.Auth.Keys))
	if cfg.RateLimit.Enabled {
		fmt.Printf("  %s Rate limit: %d per %s\n", checkMark, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	fmt.Println()
	fmt.Println("Configuration is valid.")
	return nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
