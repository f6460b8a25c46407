package main

import (
	"fmt"
	"os"

	"github.com/streamgate/streamgate/cmd/streamgate/commands"

	// Register the built-in memory transport.
	_ "github.com/streamgate/streamgate/pkg/telegram/memory"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
