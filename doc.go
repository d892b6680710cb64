// Package orchestrator supervises a pool of stdio-based MCP backend server
// processes and coordinates requests across them.
//
// Each configured server is spawned as an independent subprocess speaking a
// line-delimited JSON-RPC envelope over its pipes. The orchestrator
// correlates requests with responses by monotonic id, fans composite
// operations out across several servers concurrently, and merges their
// results, tolerating per-server failures.
//
// The entry point is the Orchestrator facade with an
// Initialize/ProcessRequest/Cleanup lifecycle:
//
//	orch, err := orchestrator.New(
//	    orchestrator.WithLogger(log),
//	    orchestrator.WithServers(servers),
//	    orchestrator.WithOperations(orchestrator.TravelOperations()...),
//	)
//	if err != nil {
//	    return err
//	}
//
//	if err := orch.Initialize(ctx); err != nil {
//	    return err
//	}
//	defer orch.Cleanup()
//
//	resp := orch.ProcessRequest(ctx, orchestrator.Request{
//	    Type:   "plan_trip",
//	    Params: map[string]any{"destination": "Banff, Alberta"},
//	})
//
// Use WithOrchestrator for scoped sessions where cleanup must run on every
// exit path.
package orchestrator
