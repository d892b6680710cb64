package cli

import (
	"github.com/spf13/cobra"

	orchestrator "github.com/wanderkit/mcp-orchestrator-go"
)

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "List the registered composite operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions()
		if err != nil {
			return err
		}

		// Registry contents are known at construction; no server is spawned.
		orch, err := orchestrator.New(opts...)
		if err != nil {
			return err
		}
		defer orch.Cleanup()

		return printJSON(orch.Operations())
	},
}
