package main

import (
	"os"

	"github.com/wonny/invest-sim/cmd/investsim/commands"
)

// main is the entry point for the investsim CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/investsim [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
