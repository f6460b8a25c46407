package config

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/streamgate/streamgate/internal/cli/output"
	"github.com/streamgate/streamgate/pkg/config"
)

var (
	showOutput string
	showReveal bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective streamgate configuration after defaults and
environment overrides are applied.

Credentials (bot token, API hash) are masked so the output is safe to
paste into an issue or share with support. Pass --reveal to print them.

Examples:
  # Show effective config as YAML
  streamgate config show

  # Show as JSON
  streamgate config show --output json

  # Include credentials
  streamgate config show --reveal

  # Show specific config file
  streamgate config show --config /etc/streamgate/config.yaml`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
	showCmd.Flags().BoolVar(&showReveal, "reveal", false, "Print credentials instead of masking them")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	// Config path comes from the parent's persistent flag.
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	if !showReveal {
		redactCredentials(cfg)
	}

	return output.NewPrinter(os.Stdout, format, false).Print(cfg)
}

// redactCredentials masks the fields that grant account access. The config
// is freshly loaded and only printed, so mutating it in place is fine.
func redactCredentials(cfg *config.Config) {
	cfg.Telegram.BotToken = redact(cfg.Telegram.BotToken)
	cfg.Telegram.APIHash = redact(cfg.Telegram.APIHash)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "<redacted>"
}
