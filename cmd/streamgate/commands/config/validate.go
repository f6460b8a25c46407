package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/streamgate/streamgate/internal/cli/output"
	"github.com/streamgate/streamgate/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the streamgate configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  streamgate config validate

  # Validate specific config file
  streamgate config validate --config /etc/streamgate/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	// Load and validate configuration
	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	// Determine path for display
	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	// Additional validation checks
	var warnings []string

	if cfg.Telegram.Transport == "memory" {
		warnings = append(warnings, "memory transport serves seeded virtual files - install an MTProto transport for production use")
	}
	if cfg.Server.PublicURL == "" {
		warnings = append(warnings, fmt.Sprintf("public_url not set - stream links will use %s", cfg.Server.BaseURL()))
	}
	if !cfg.Metrics.IsEnabled() {
		warnings = append(warnings, "metrics disabled - no Prometheus endpoint will be exposed")
	}

	p := output.DefaultPrinter()
	p.Printf("Configuration file: %s\n", displayPath)
	p.Success("Validation: OK")

	if len(warnings) > 0 {
		p.Println()
		for _, w := range warnings {
			p.Warning("warning: " + w)
		}
	}

	p.Println("\nConfiguration summary:")
	return output.SimpleTable(os.Stdout, [][2]string{
		{"Transport", cfg.Telegram.Transport},
		{"HTTP port", strconv.Itoa(cfg.Server.Port)},
		{"Chunk size", cfg.Stream.ChunkSize.String()},
		{"Log level", cfg.Logging.Level},
	})
}
