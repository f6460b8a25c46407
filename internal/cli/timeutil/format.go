// Package timeutil formats durations and timestamps for CLI tables.
package timeutil

import (
	"fmt"
	"time"
)

// localTimeLayout keeps table columns narrow while staying unambiguous.
const localTimeLayout = "2006-01-02 15:04"

// FormatUptime renders a Go duration string ("74h3m5s") as its two most
// significant units ("3d2h"). Unparseable input passes through unchanged so
// a malformed status payload still prints something.
func FormatUptime(uptime string) string {
	d, err := time.ParseDuration(uptime)
	if err != nil {
		return uptime
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd%dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// FormatTime renders an RFC3339 timestamp in local time. Unparseable input
// passes through unchanged.
func FormatTime(timestamp string) string {
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return timestamp
	}
	return t.Local().Format(localTimeLayout)
}
