package main

import (
	"os"

	"github.com/shellkit/shellkit/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
