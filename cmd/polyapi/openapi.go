package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/polyapi/config"
	"github.com/artpar/polyapi/core/engine"
	"github.com/artpar/polyapi/core/openapi"
	"github.com/artpar/polyapi/core/schema"
)

var openapiFormat string

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "Print the generated OpenAPI document",
	Long: `Generate the OpenAPI 3.0 document for the configured schema and
print it to stdout, without starting a server.

Examples:
  polyapi openapi
  polyapi openapi --format yaml > openapi.yaml`,
	RunE: runOpenAPI,
}

var sdlCmd = &cobra.Command{
	Use:   "sdl",
	Short: "Print the generated GraphQL schema definition",
	RunE:  runSDL,
}

func init() {
	rootCmd.AddCommand(openapiCmd)
	rootCmd.AddCommand(sdlCmd)

	openapiCmd.Flags().StringVar(&openapiFormat, "format", "json", "output format: json or yaml")
}

func buildEngine() (*engine.Engine, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	defs, err := schema.LoadDefinitions(cfg.Schema.Path)
	if err != nil {
		return nil, fmt.Errorf("schema error: %w", err)
	}

	return engine.New(engine.Options{
		Nouns: defs,
		Info: openapi.Info{
			Title:       cfg.API.Title,
			Description: cfg.API.Description,
			Version:     cfg.API.Version,
		},
	})
}

func runOpenAPI(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}

	spec := eng.OpenAPI()
	switch openapiFormat {
	case "yaml":
		fmt.Print(openapi.RenderSpec(spec))
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(spec)
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", openapiFormat)
	}
	return nil
}

func runSDL(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	fmt.Print(eng.SDL())
	return nil
}
