package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/streamgate/streamgate/internal/cli/output"
	"github.com/streamgate/streamgate/pkg/version"
)

var (
	versionShort  bool
	versionOutput string
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the streamgate version, build information, and system details.

Examples:
  # Human-readable build info
  streamgate version

  # Just the version number, for scripts
  streamgate version --short

  # Machine-readable form
  streamgate version --output json`,
	RunE: runVersion,
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show only version number")
	versionCmd.Flags().StringVarP(&versionOutput, "output", "o", "text", "Output format (text|json|yaml)")
}

func runVersion(cmd *cobra.Command, args []string) error {
	if versionShort {
		fmt.Println(version.Version)
		return nil
	}

	info := version.Get()

	if versionOutput != "text" {
		format, err := output.ParseFormat(versionOutput)
		if err != nil {
			return err
		}
		return output.NewPrinter(os.Stdout, format, false).Print(info)
	}

	fmt.Printf("streamgate %s\n", info.Version)
	fmt.Printf("  Commit:     %s\n", info.Commit)
	fmt.Printf("  Built:      %s\n", info.Date)
	fmt.Printf("  Go version: %s\n", info.GoVersion)
	fmt.Printf("  OS/Arch:    %s\n", info.Platform)
	return nil
}
