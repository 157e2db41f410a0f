// Package main provides the entry point for the toolscout CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/toolscout-ai/toolscout/cmd/toolscout/commands"
)

func main() {
	// Load a local .env when present so provider keys can live next to
	// the project during development.
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
