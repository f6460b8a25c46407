// Package config implements the config subcommand tree: inspecting,
// validating, editing, and describing the gateway configuration.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the config subcommand.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Inspect and maintain the streamgate configuration.

A new configuration file is created with 'streamgate init'; the
subcommands here operate on an existing one:

  show      Display the effective configuration (credentials masked)
  validate  Check a configuration file without starting the server
  edit      Open the configuration in $EDITOR, then validate it
  schema    Generate a JSON schema for editor integration`,
}

func init() {
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(editCmd)
	Cmd.AddCommand(schemaCmd)
}
