package cli

import (
	"github.com/spf13/cobra"

	orchestrator "github.com/wanderkit/mcp-orchestrator-go"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Start the configured servers and ping each one",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions()
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		return orchestrator.WithOrchestrator(ctx, func(o *orchestrator.Orchestrator) error {
			return printJSON(o.HealthCheck(ctx))
		}, opts...)
	},
}
