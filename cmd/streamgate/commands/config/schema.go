package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"github.com/streamgate/streamgate/pkg/config"
)

var schemaOutput string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate JSON schema for configuration",
	Long: `Generate a JSON schema describing the streamgate configuration file.

Property names match the snake_case keys used in the YAML config, so the
schema works directly with editor validation.

Examples:
  # Print schema to stdout
  streamgate config schema

  # Save schema next to your config
  streamgate config schema --output config.schema.json

  # Then point yaml-language-server at it:
  #   # yaml-language-server: $schema=./config.schema.json`,
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "Output file (default: stdout)")
}

// buildConfigSchema reflects the config struct into a draft 2020-12 schema.
func buildConfigSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		// Config files are YAML, so property names come from the yaml
		// tags rather than the Go field names.
		FieldNameTag: "yaml",
		// Reject unknown keys so typos like "chunksize" surface in the
		// editor instead of being silently ignored at load time.
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Version = "https://json-schema.org/draft/2020-12/schema"
	schema.Title = "streamgate configuration"
	schema.Description = "Settings for the streamgate media gateway: HTTP server, Telegram transport, streaming, and observability"

	return json.MarshalIndent(schema, "", "  ")
}

func runSchema(cmd *cobra.Command, args []string) error {
	schemaJSON, err := buildConfigSchema()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if schemaOutput != "" {
		if err := os.WriteFile(schemaOutput, schemaJSON, 0644); err != nil {
			return fmt.Errorf("failed to write schema file: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "JSON schema written to %s\n", schemaOutput)
		return nil
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(schemaJSON))
	return nil
}
