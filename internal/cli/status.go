package cli

import (
	"github.com/spf13/cobra"

	orchestrator "github.com/wanderkit/mcp-orchestrator-go"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Start the configured servers and report their status",
	Long: `Spawns every server in the config file inside a scoped session, prints
the resulting status table (name, display name, state, pid), and stops the
servers again. A server that fails to spawn fails the whole command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions()
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		return orchestrator.WithOrchestrator(ctx, func(o *orchestrator.Orchestrator) error {
			return printJSON(o.Describe())
		}, opts...)
	},
}
