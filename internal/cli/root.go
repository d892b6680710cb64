// Package cli implements the mcp-orchestrator command line interface.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Version is set via ldflags during build
	Version = "dev"

	// Global flags
	flagConfig  string
	flagTimeout time.Duration
	flagVerbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mcp-orchestrator",
	Short: "Supervise and coordinate stdio MCP backend servers",
	Long: `mcp-orchestrator spawns the backend servers declared in a JSON config
file, coordinates requests across them, and merges the results of composite
operations such as plan_trip.

Each subcommand runs inside a scoped session: servers are started, the
command runs, and every server is stopped again on exit.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "servers.json", "Path to the server map config file")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 10*time.Second, "Per-call timeout budget")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log orchestrator activity to stderr")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(operationsCmd)
	rootCmd.AddCommand(requestCmd)
}
