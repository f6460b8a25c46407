package commands

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	stopPidFile string
	stopForce   bool
	stopWait    time.Duration
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the streamgate server",
	Long: `Stop a running streamgate server.

Sends SIGTERM and waits for the server to drain in-flight streams and exit.
Use --force to send SIGKILL instead, which drops active transfers.

Examples:
  # Graceful stop (waits up to 30s for active streams to drain)
  streamgate stop

  # Stop server using custom PID file
  streamgate stop --pid-file /var/run/streamgate.pid

  # Give long downloads more time to finish
  streamgate stop --wait 2m

  # Force stop (SIGKILL, drops active streams)
  streamgate stop --force`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/streamgate/streamgate.pid)")
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "Force kill (SIGKILL) instead of graceful shutdown (SIGTERM)")
	stopCmd.Flags().DurationVar(&stopWait, "wait", 30*time.Second, "How long to wait for the server to exit before giving up")
}

func runStop(cmd *cobra.Command, args []string) error {
	pidPath := stopPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	pid, err := readPidFile(pidPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("PID file not found: %s\n\nIs the server running?", pidPath)
		}
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	sigName, sig := "SIGTERM", syscall.SIGTERM
	if stopForce {
		sigName, sig = "SIGKILL", syscall.SIGKILL
	}
	fmt.Printf("Sending %s to process %d...\n", sigName, pid)

	if err := process.Signal(sig); err != nil {
		if err == os.ErrProcessDone {
			fmt.Println("Server already stopped")
			_ = os.Remove(pidPath)
			return nil
		}
		return fmt.Errorf("failed to send signal: %w", err)
	}

	if stopForce {
		_ = os.Remove(pidPath)
		fmt.Println("Server terminated")
		return nil
	}

	// Graceful shutdown finishes in-flight range requests before exiting,
	// so the process can outlive the signal by several seconds.
	deadline := time.Now().Add(stopWait)
	for time.Now().Before(deadline) {
		if _, running := isProcessRunning(pidPath); !running {
			_ = os.Remove(pidPath)
			fmt.Println("Server stopped")
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	return fmt.Errorf("server (pid %d) still running after %s; retry with --force to drop active streams", pid, stopWait)
}
