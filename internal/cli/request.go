package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	orchestrator "github.com/wanderkit/mcp-orchestrator-go"
)

var requestCmd = &cobra.Command{
	Use:   "request [file]",
	Short: "Run one request through a scoped session",
	Long: `Reads a request document ({"type": ..., "params": {...}}) from the given
file, or from stdin when the argument is "-" or omitted, runs it inside a
scoped session, and prints the response envelope.

The request type is either a composite operation (see "operations") or a
direct "server.method" call.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readRequest(args)
		if err != nil {
			return err
		}

		var req orchestrator.Request
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("parse request: %w", err)
		}

		if req.Type == "" {
			return fmt.Errorf("request is missing a type")
		}

		opts, err := loadOptions()
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		return orchestrator.WithOrchestrator(ctx, func(o *orchestrator.Orchestrator) error {
			return printJSON(o.ProcessRequest(ctx, req))
		}, opts...)
	},
}

func readRequest(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read request from stdin: %w", err)
		}

		return data, nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}

	return data, nil
}
