package commands

import (
	"crypto/sha1"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/streamgate/streamgate/internal/cli/output"
	"github.com/streamgate/streamgate/internal/cli/prompt"
	"github.com/streamgate/streamgate/internal/cli/timeutil"
	"github.com/streamgate/streamgate/pkg/config"
	"github.com/streamgate/streamgate/pkg/telegram/session"
)

var (
	sessionsOutput     string
	sessionsClearDC    int
	sessionsClearForce bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List persisted backend sessions",
	Long: `List the per-DC session files persisted in the session directory.

The gateway keeps one authorized session per data center it has talked
to. The home session is created on first connect; media sessions appear
on demand when a stream needs a file hosted on another DC. Deleting a
session file forces a fresh authorization on next use.

Examples:
  # List sessions from the configured session directory
  streamgate sessions

  # Output as JSON
  streamgate sessions --output json`,
	RunE: runSessions,
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete persisted sessions",
	Long: `Delete persisted session files so the next connect authorizes from
scratch. Use this after revoking the bot token, or when a DC session
is stuck with an authorization the backend no longer accepts.

A running server keeps its in-memory sessions until restart; stop it
first if you want the re-authorization to happen now.

Examples:
  # Delete every session, with confirmation
  streamgate sessions clear

  # Delete only DC 4's session, no confirmation
  streamgate sessions clear --dc 4 --force`,
	RunE: runSessionsClear,
}

func init() {
	sessionsCmd.Flags().StringVarP(&sessionsOutput, "output", "o", "table", "Output format (table|json|yaml)")
	sessionsClearCmd.Flags().IntVar(&sessionsClearDC, "dc", 0, "Delete only this DC's session")
	sessionsClearCmd.Flags().BoolVar(&sessionsClearForce, "force", false, "Skip the confirmation prompt")
	sessionsCmd.AddCommand(sessionsClearCmd)
}

// sessionRow is the rendered form of one session file.
type sessionRow struct {
	DC          int    `json:"dc" yaml:"dc"`
	UserID      int64  `json:"user_id" yaml:"user_id"`
	Bot         bool   `json:"bot" yaml:"bot"`
	TestMode    bool   `json:"test_mode" yaml:"test_mode"`
	Fingerprint string `json:"auth_key_fingerprint" yaml:"auth_key_fingerprint"`
	Updated     string `json:"updated,omitempty" yaml:"updated,omitempty"`
}

func runSessions(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(sessionsOutput)
	if err != nil {
		return err
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store := session.NewStore(cfg.Telegram.SessionDir)
	infos, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	rows := make([]sessionRow, 0, len(infos))
	for _, info := range infos {
		row := sessionRow{
			DC:          info.DCID,
			UserID:      info.UserID,
			Bot:         info.IsBot,
			TestMode:    info.TestMode,
			Fingerprint: keyFingerprint(info.AuthKey),
		}
		if fi, err := os.Stat(store.Path(info.DCID)); err == nil {
			row.Updated = fi.ModTime().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, rows)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, rows)
	default:
		if len(rows) == 0 {
			fmt.Printf("No sessions found in %s\n", store.Dir())
			fmt.Println("The home session is created when the server first connects.")
			return nil
		}

		table := output.NewTableData("DC", "USER ID", "BOT", "TEST", "AUTH KEY", "UPDATED")
		for _, row := range rows {
			updated := ""
			if row.Updated != "" {
				updated = timeutil.FormatTime(row.Updated)
			}
			table.AddRow(
				fmt.Sprintf("%d", row.DC),
				fmt.Sprintf("%d", row.UserID),
				boolToYesNo(row.Bot),
				boolToYesNo(row.TestMode),
				row.Fingerprint,
				updated,
			)
		}
		return output.PrintTable(os.Stdout, table)
	}
}

func runSessionsClear(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store := session.NewStore(cfg.Telegram.SessionDir)

	if sessionsClearDC != 0 {
		ok, err := prompt.ConfirmWithForce(
			fmt.Sprintf("Delete the session for DC %d?", sessionsClearDC),
			sessionsClearForce)
		if err != nil {
			return handleAbort(err)
		}
		if !ok {
			return nil
		}
		if err := store.Delete(sessionsClearDC); err != nil {
			return err
		}
		fmt.Printf("Deleted session for DC %d.\n", sessionsClearDC)
		return nil
	}

	infos, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(infos) == 0 {
		fmt.Printf("No sessions found in %s\n", store.Dir())
		return nil
	}

	ok, err := prompt.ConfirmWithForce(
		fmt.Sprintf("Delete all %d session(s) in %s?", len(infos), store.Dir()),
		sessionsClearForce)
	if err != nil {
		return handleAbort(err)
	}
	if !ok {
		return nil
	}

	for _, info := range infos {
		if err := store.Delete(info.DCID); err != nil {
			return err
		}
	}
	fmt.Printf("Deleted %d session(s).\n", len(infos))
	return nil
}

// keyFingerprint renders a short identifier for an auth key so sessions
// can be told apart without ever printing key material.
func keyFingerprint(key []byte) string {
	if len(key) == 0 {
		return "-"
	}
	sum := sha1.Sum(key)
	return fmt.Sprintf("%x", sum[:4])
}

func boolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
