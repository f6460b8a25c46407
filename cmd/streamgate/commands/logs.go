package commands

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/streamgate/streamgate/pkg/config"
)

var (
	logsFollow bool
	logsLines  int
	logsSince  string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Tail server logs",
	Long: `Display and optionally follow the streamgate server logs.

This command reads the log file specified in the configuration and displays
the most recent entries. If the server logs to stdout/stderr, this command
will indicate that logs are not available in a file.

Examples:
  # Show last 100 lines (default)
  streamgate logs

  # Show last 50 lines
  streamgate logs -n 50

  # Follow logs in real-time
  streamgate logs -f

  # Show logs since a specific time
  streamgate logs --since "2024-01-15T10:00:00Z"

  # Combine options
  streamgate logs -f -n 20`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 100, "Number of lines to show")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since timestamp (RFC3339 format)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	target := cfg.Logging.Output
	if target == "stdout" || target == "stderr" {
		return fmt.Errorf("server is configured to log to %s, not a file\nConfigure 'logging.output' in config to a file path to use this command", target)
	}
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return fmt.Errorf("log file not found: %s\nThe server may not have started yet or is logging elsewhere", target)
	}

	var since time.Time
	if logsSince != "" {
		since, err = time.Parse(time.RFC3339, logsSince)
		if err != nil {
			return fmt.Errorf("invalid --since format (use RFC3339): %w", err)
		}
	}

	if logsFollow {
		return followLogs(target, logsLines, since)
	}
	return showLogs(target, logsLines, since)
}

// showLogs prints the last n lines, or everything after since when set.
func showLogs(path string, n int, since time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	if since.IsZero() {
		lines, err = tailLines(f, n)
		if err != nil {
			return fmt.Errorf("reading log file: %w", err)
		}
	} else {
		lines, err = linesSince(f, n, since)
		if err != nil {
			return fmt.Errorf("reading log file: %w", err)
		}
	}

	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

// tailLines returns the last n lines without reading the whole file. Streams
// log one line per block fetch, so a busy day's file is too large to slurp.
func tailLines(f *os.File, n int) ([]string, error) {
	const block = 64 * 1024

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	var buf []byte
	offset := fi.Size()

	// Read blocks from the end until the buffer spans n lines or the file
	// start is reached.
	for offset > 0 && bytes.Count(buf, []byte{'\n'}) <= n {
		size := int64(block)
		if offset < size {
			size = offset
		}
		offset -= size

		chunk := make([]byte, size)
		if _, err := f.ReadAt(chunk, offset); err != nil {
			return nil, err
		}
		buf = append(chunk, buf...)
	}

	trimmed := strings.TrimRight(string(buf), "\n")
	if trimmed == "" {
		return nil, nil
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// linesSince scans forward and keeps the last n lines stamped at or after
// since. Lines without a parseable timestamp are kept; dropping them would
// hide stack traces.
func linesSince(f *os.File, n int, since time.Time) ([]string, error) {
	var kept []string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if ts := extractTimestamp(line); !ts.IsZero() && ts.Before(since) {
			continue
		}
		kept = append(kept, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return kept, nil
}

// followLogs prints the initial tail and then new lines as they arrive. The
// watch is on the directory rather than the file: rotation replaces the file,
// and a watch held on the old inode would go quiet.
func followLogs(path string, initialLines int, since time.Time) error {
	if err := showLogs(path, initialLines, since); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch log directory: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek log file: %w", err)
	}
	reader := bufio.NewReader(f)

	printNew := func() {
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				fmt.Print(line)
			}
			if err != nil {
				return
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Following %s (Ctrl+C to stop)...\n", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}

			switch {
			case event.Op.Has(fsnotify.Write):
				printNew()
			case event.Op.Has(fsnotify.Create):
				// Rotated: reopen and read the new file from the top.
				_ = f.Close()
				nf, err := os.Open(path)
				if err != nil {
					continue
				}
				f = nf
				reader = bufio.NewReader(f)
				printNew()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// extractTimestamp attempts to extract a timestamp from a log line.
// Handles the text handler's "[2006-01-02 15:04:05.000]" prefix and the
// JSON handler's "time" field.
func extractTimestamp(line string) time.Time {
	// Text format wraps a local millisecond timestamp in brackets.
	if len(line) >= 25 && line[0] == '[' {
		if t, err := time.ParseInLocation("2006-01-02 15:04:05.000", line[1:24], time.Local); err == nil {
			return t
		}
	}

	// JSON format: {"time":"2024-01-15T10:30:45.123Z",...}
	const timeKey = `"time":"`
	if idx := strings.Index(line, timeKey); idx >= 0 {
		start := idx + len(timeKey)
		for i := start; i < len(line) && i < start+40; i++ {
			if line[i] == '"' {
				if t, err := time.Parse(time.RFC3339Nano, line[start:i]); err == nil {
					return t
				}
				break
			}
		}
	}

	return time.Time{}
}
