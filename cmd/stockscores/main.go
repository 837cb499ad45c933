package main

import (
	"fmt"
	"os"

	"github.com/mkuhn/stockscores/backend/cmd/stockscores/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
