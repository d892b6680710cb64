package main

import (
	"os"

	"github.com/wanderkit/mcp-orchestrator-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
