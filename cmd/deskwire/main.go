package main

import (
	"os"

	"deskwire/cmd/deskwire/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
