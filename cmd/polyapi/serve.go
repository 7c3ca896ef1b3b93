package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/polyapi/bootstrap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the PolyAPI server.

The server will:
  - Load configuration from polyapi.yaml (or --config)
  - Compile the noun schema file it points at
  - Serve REST under /{plural}, GraphQL at /graphql, the OpenAPI
    document at /openapi.json, and server-sent events at /events
  - Apply authentication, rate limiting, and CORS per the config

When schema.watch is enabled, edits to the config or schema file
rebuild the API in place.

Examples:
  polyapi serve
  polyapi serve --config /etc/polyapi/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(cfgFile); err != nil {
		fmt.Println("No configuration found.")
		fmt.Println()
		fmt.Printf("Create %s with at least:\n", cfgFile)
		fmt.Println()
		fmt.Println("  schema:")
		fmt.Println("    path: schema.yaml")
		return nil
	}

	app, err := bootstrap.New(cfgFile, nil)
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
