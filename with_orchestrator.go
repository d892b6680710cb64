package orchestrator

import (
	"context"
	"fmt"
)

// WithOrchestrator manages an orchestration session with guaranteed cleanup.
//
// It constructs an orchestrator, initializes it, runs the callback, and
// ensures Cleanup runs on every exit path: normal return, error, or panic
// inside the callback. If Initialize fails, the partially-started server
// set is already stopped and the error is returned without invoking fn.
//
// Example usage:
//
//	err := orchestrator.WithOrchestrator(ctx, func(o *orchestrator.Orchestrator) error {
//	    resp := o.ProcessRequest(ctx, orchestrator.Request{
//	        Type:   "plan_trip",
//	        Params: map[string]any{"destination": "Paris, France"},
//	    })
//	    if !resp.Success {
//	        return fmt.Errorf("request failed: %s", resp.Error)
//	    }
//	    return nil
//	},
//	    orchestrator.WithLogger(log),
//	    orchestrator.WithServers(servers),
//	)
func WithOrchestrator(ctx context.Context, fn func(*Orchestrator) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	orch, err := New(opts...)
	if err != nil {
		return fmt.Errorf("construct orchestrator: %w", err)
	}

	if err := orch.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize orchestrator: %w", err)
	}

	defer orch.Cleanup()

	return fn(orch)
}
