package main

import (
	"os"

	"wonchon/cmd/wonchonctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
