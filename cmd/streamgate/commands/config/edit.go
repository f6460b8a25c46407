package config

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"github.com/streamgate/streamgate/internal/cli/output"
	"github.com/streamgate/streamgate/pkg/config"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open configuration in an editor",
	Long: `Open the configuration file in $EDITOR and validate the result.

The saved file is validated after the editor exits, so a typo shows up
now instead of on the next server restart.

Examples:
  # Edit default config
  streamgate config edit

  # Edit specific config file
  streamgate config edit --config /etc/streamgate/config.yaml`,
	RunE: runConfigEdit,
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	// Config path comes from the parent's persistent flag.
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("configuration file not found: %s\n\nCreate it first with:\n  streamgate init", configPath)
	}

	editor := resolveEditor()
	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor %q: %w", editor, err)
	}

	p := output.DefaultPrinter()
	if _, err := config.Load(configPath); err != nil {
		p.Warning(fmt.Sprintf("saved, but the file does not validate: %v", err))
		return nil
	}
	p.Success(fmt.Sprintf("%s saved and validated", configPath))
	return nil
}

func resolveEditor() string {
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	if editor := os.Getenv("VISUAL"); editor != "" {
		return editor
	}
	return "vi"
}
