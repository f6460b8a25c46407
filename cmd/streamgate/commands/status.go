package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/streamgate/streamgate/internal/cli/health"
	"github.com/streamgate/streamgate/internal/cli/output"
	"github.com/streamgate/streamgate/internal/cli/timeutil"
)

var (
	statusOutput  string
	statusPidFile string
	statusPort    int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the current status of the streamgate server.

This command checks the server health by calling the health endpoint
and reports whether the HTTP listener is up and the bot is connected
to the backend. A server that is up but not connected keeps serving
503 on stream routes until the connection succeeds.

Examples:
  # Check status (uses default settings)
  streamgate status

  # Check status with custom HTTP port
  streamgate status --port 8081

  # Output as JSON
  streamgate status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/streamgate/streamgate.pid)")
	statusCmd.Flags().IntVar(&statusPort, "port", 8080, "HTTP server port")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// ServerStatus represents the server status information.
type ServerStatus struct {
	Running      bool   `json:"running" yaml:"running"`
	PID          int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	Message      string `json:"message" yaml:"message"`
	Uptime       string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Version      string `json:"version,omitempty" yaml:"version,omitempty"`
	Healthy      bool   `json:"healthy" yaml:"healthy"`
	BotConnected bool   `json:"bot_connected" yaml:"bot_connected"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	status := ServerStatus{
		Running: false,
		Healthy: false,
		Message: "Server is not running",
	}

	// Use default PID file if not specified
	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	// Check PID file first. The file's age doubles as the uptime since
	// it is written right after startup.
	if pid, running := isProcessRunning(pidPath); running {
		status.Running = true
		status.PID = pid
		if fi, err := os.Stat(pidPath); err == nil {
			status.Uptime = time.Since(fi.ModTime()).Truncate(time.Second).String()
		}
	}

	client := &http.Client{Timeout: 2 * time.Second}

	// Check health endpoint (works for both daemon and foreground mode)
	healthURL := fmt.Sprintf("http://localhost:%d/health", statusPort)
	resp, err := client.Get(healthURL)
	if err == nil {
		defer func() { _ = resp.Body.Close() }()

		var healthResp health.Response
		if err := json.NewDecoder(resp.Body).Decode(&healthResp); err == nil {
			status.Running = true
			status.Healthy = healthResp.Status == "healthy"
			status.BotConnected = healthResp.BotConnected
			if status.Healthy {
				status.Message = "Server is running and connected to the backend"
			} else {
				status.Message = "Server is running but the bot is not connected; stream routes return 503"
			}
		} else {
			status.Running = true
			status.Message = "Server is running but health response invalid"
		}
	} else if status.Running {
		// PID file says running but health check failed
		status.Message = "Server process exists but health check failed"
	}

	// The liveness route carries the build version.
	if status.Running {
		if resp, err := client.Get(fmt.Sprintf("http://localhost:%d/", statusPort)); err == nil {
			var rootResp health.RootResponse
			if err := json.NewDecoder(resp.Body).Decode(&rootResp); err == nil {
				status.Version = rootResp.Version
			}
			_ = resp.Body.Close()
		}
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printStatusTable(status)
	}

	return nil
}

func printStatusTable(status ServerStatus) {
	fmt.Println()
	fmt.Println("Streamgate Server Status")
	fmt.Println("========================")
	fmt.Println()

	if status.Running {
		if status.Healthy {
			fmt.Printf("  Status:     \033[32m● Running\033[0m\n")
		} else {
			fmt.Printf("  Status:     \033[33m● Running (not connected)\033[0m\n")
		}
		if status.PID != 0 {
			fmt.Printf("  PID:        %d\n", status.PID)
		}
		if status.Version != "" {
			fmt.Printf("  Version:    %s\n", status.Version)
		}
		if status.Uptime != "" {
			fmt.Printf("  Uptime:     %s\n", timeutil.FormatUptime(status.Uptime))
		}
		if status.BotConnected {
			fmt.Printf("  Bot:        connected\n")
		} else {
			fmt.Printf("  Bot:        disconnected\n")
		}
	} else {
		fmt.Printf("  Status:     \033[31m○ Stopped\033[0m\n")
	}

	fmt.Println()
	fmt.Printf("  %s\n", status.Message)
	fmt.Println()
}
