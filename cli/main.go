package main

import (
	"os"

	"github.com/queryscope/queryscope/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
