package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	orchestrator "github.com/wanderkit/mcp-orchestrator-go"
)

// fileConfig is the on-disk server map format.
type fileConfig struct {
	Servers []orchestrator.ServerDescriptor `json:"servers"`
}

// loadOptions reads the config file and turns it plus the global flags into
// orchestrator options.
func loadOptions() ([]orchestrator.Option, error) {
	data, err := os.ReadFile(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", flagConfig, err)
	}

	var cfg fileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", flagConfig, err)
	}

	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("config %s declares no servers", flagConfig)
	}

	opts := []orchestrator.Option{
		orchestrator.WithServers(cfg.Servers),
		orchestrator.WithCallTimeout(flagTimeout),
	}

	// The built-in travel operations only route if the config declares the
	// servers they fan out to.
	names := make(map[string]bool, len(cfg.Servers))
	for _, desc := range cfg.Servers {
		names[desc.Name] = true
	}

	if names["itinerary"] && names["maps"] && names["booking"] {
		opts = append(opts, orchestrator.WithOperations(orchestrator.TravelOperations()...))
	}

	if flagVerbose {
		opts = append(opts, orchestrator.WithLogger(
			slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})),
		))
	}

	return opts, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
