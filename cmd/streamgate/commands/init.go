package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/streamgate/streamgate/internal/cli/prompt"
	"github.com/streamgate/streamgate/pkg/config"
	"github.com/streamgate/streamgate/pkg/telegram"
)

var (
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a configuration file",
	Long: `Initialize a streamgate configuration file.

By default, a commented sample configuration is created at
$XDG_CONFIG_HOME/streamgate/config.yaml. Use --config to specify a custom
path, or --interactive to be prompted for credentials and server settings.

Examples:
  # Initialize with default location
  streamgate init

  # Prompt for API credentials and ports
  streamgate init --interactive

  # Initialize with custom path
  streamgate init --config /etc/streamgate/config.yaml

  # Force overwrite existing config
  streamgate init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for credentials and server settings")
}

func runInit(cmd *cobra.Command, args []string) error {
	if initInteractive {
		return runInitInteractive()
	}

	configFile := GetConfigFile()

	var configPath string
	var err error

	if configFile != "" {
		// Use custom path
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		// Use default path
		configPath, err = config.InitConfig(initForce)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	printNextSteps(configPath)
	return nil
}

// runInitInteractive builds a configuration from prompted answers instead
// of writing the commented sample.
func runInitInteractive() error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		ok, err := prompt.ConfirmWithForce(
			fmt.Sprintf("Configuration file already exists at %s. Overwrite?", configPath),
			initForce)
		if err != nil {
			return handleAbort(err)
		}
		if !ok {
			fmt.Println("Keeping the existing configuration.")
			return nil
		}
	}

	cfg := config.GetDefaultConfig()

	transport, err := prompt.SelectString("Transport", telegram.Transports())
	if err != nil {
		return handleAbort(err)
	}
	cfg.Telegram.Transport = transport

	// The memory transport serves seeded virtual files and needs no
	// credentials; everything else talks to the real backend.
	if transport != "memory" {
		apiID, err := prompt.InputInt("API ID (from https://my.telegram.org)", 0)
		if err != nil {
			return handleAbort(err)
		}
		cfg.Telegram.APIID = apiID

		apiHash, err := prompt.InputRequired("API hash")
		if err != nil {
			return handleAbort(err)
		}
		cfg.Telegram.APIHash = apiHash

		botToken, err := prompt.Password("Bot token (from @BotFather)")
		if err != nil {
			return handleAbort(err)
		}
		cfg.Telegram.BotToken = botToken
	}

	port, err := prompt.InputPort("HTTP port", cfg.Server.Port)
	if err != nil {
		return handleAbort(err)
	}
	cfg.Server.Port = port

	publicURL, err := prompt.InputOptional("Public base URL (blank: derived from host and port)")
	if err != nil {
		return handleAbort(err)
	}
	cfg.Server.PublicURL = publicURL

	if err := config.SaveConfig(cfg, configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printNextSteps(configPath)
	return nil
}

func printNextSteps(configPath string) {
	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the server with: streamgate start")
	fmt.Printf("  3. Or specify custom config: streamgate start --config %s\n", configPath)
	fmt.Println("\nSecurity note:")
	fmt.Println("  The bot token grants full control over your bot. Keep the file")
	fmt.Println("  private, or provide the token through the environment instead:")
	fmt.Println("    export STREAMGATE_TELEGRAM_BOT_TOKEN=123456:ABC...")
}

// handleAbort turns a Ctrl+C during a prompt into a clean exit.
func handleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}
