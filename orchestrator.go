package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wanderkit/mcp-orchestrator-go/internal/coordinator"
	"github.com/wanderkit/mcp-orchestrator-go/internal/errors"
	"github.com/wanderkit/mcp-orchestrator-go/internal/planner"
	"github.com/wanderkit/mcp-orchestrator-go/internal/supervisor"
)

// Orchestrator is the public facade over the supervisor, coordinator, and
// planner. Lifecycle: Uninitialized → Initializing → Ready → ShuttingDown
// → Closed. An orchestrator is single-use; after Cleanup, create a new one
// with New.
type Orchestrator struct {
	log   *slog.Logger
	opts  *Options
	sup   *supervisor.Supervisor
	coord *coordinator.Coordinator
	plan  *planner.Planner

	mu    sync.Mutex
	state State
}

// New constructs an orchestrator over a static server set. The server map
// and operation registry are validated here: duplicate server names,
// operations referencing unknown servers, and oversized plans are
// construction errors. No process is spawned until Initialize.
func New(opts ...Option) (*Orchestrator, error) {
	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	if len(options.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured")
	}

	sup, err := supervisor.New(log, supervisor.Config{
		Servers:       options.Servers,
		Grace:         options.TerminateGrace,
		HealthTimeout: options.HealthTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("configure supervisor: %w", err)
	}

	coord := coordinator.New(log, sup)

	sup.SetPinger(func(ctx context.Context, server string, timeout time.Duration) error {
		return coord.Ping(ctx, server, timeout)
	})

	plan, err := planner.New(
		log,
		coord,
		sup.Has,
		planner.Limits{MaxStages: options.MaxStages, MaxCallsPerStage: options.MaxCallsPerStage},
		options.CallTimeout,
		options.Operations...,
	)
	if err != nil {
		return nil, fmt.Errorf("register operations: %w", err)
	}

	return &Orchestrator{
		log:   log.With("component", "orchestrator"),
		opts:  options,
		sup:   sup,
		coord: coord,
		plan:  plan,
		state: StateUninitialized,
	}, nil
}

// Initialize starts every configured server. The supervisor start is
// best-effort, but Initialize enforces an all-or-nothing contract: if any
// server fails to spawn, everything already started is stopped again and
// an InitializationError is returned. Idempotent once Ready.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.mu.Lock()

	switch o.state {
	case StateReady:
		o.mu.Unlock()
		o.log.Debug("Already initialized")

		return nil
	case StateClosed, StateShuttingDown:
		o.mu.Unlock()

		return errors.ErrClosed
	case StateInitializing:
		o.mu.Unlock()

		return fmt.Errorf("initialize already in progress")
	case StateUninitialized:
	}

	o.state = StateInitializing
	o.mu.Unlock()

	o.log.Info("Initializing orchestrator", "servers", len(o.sup.Names()))

	results := o.sup.StartAll(ctx)

	var failed []string

	for _, name := range o.sup.Names() {
		if !results[name] {
			failed = append(failed, name)
		}
	}

	if len(failed) > 0 {
		o.log.Error("Some servers failed to start, cleaning up", "failed", failed)

		o.mu.Lock()
		if o.state == StateInitializing {
			o.state = StateShuttingDown
		}
		o.mu.Unlock()

		o.sup.StopAll()

		o.mu.Lock()
		o.state = StateClosed
		o.mu.Unlock()

		return &errors.InitializationError{Failed: failed}
	}

	o.mu.Lock()

	// A concurrent Cleanup may have closed the orchestrator while StartAll
	// was running. Closed is terminal: stop whatever StartAll brought up
	// instead of resurrecting the facade.
	if o.state != StateInitializing {
		o.mu.Unlock()

		o.log.Warn("Orchestrator closed during initialization, stopping servers")

		o.sup.StopAll()

		return errors.ErrClosed
	}

	o.state = StateReady
	o.mu.Unlock()

	o.log.Info("Orchestrator initialized")

	return nil
}

// ProcessRequest executes one caller-facing request. Valid only in Ready.
//
// The request type resolves against the operation registry first, then as
// a direct "server.method" call. This method never panics past its caller;
// every failure, including an unknown type, becomes Success=false. A
// partially-failed composite is still Success=true with per-role error
// entries in Data.
func (o *Orchestrator) ProcessRequest(ctx context.Context, req Request) (resp Response) {
	requestID := req.ID
	if requestID == "" {
		requestID = ulid.Make().String()
	}

	resp = Response{
		Success:   false,
		RequestID: requestID,
		Type:      req.Type,
	}

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("Panic while processing request", "request_id", requestID, "panic", r)
			resp.Success = false
			resp.Data = nil
			resp.Error = fmt.Sprintf("internal error: %v", r)
		}
	}()

	o.mu.Lock()
	state := o.state
	o.mu.Unlock()

	if state != StateReady {
		resp.Error = errors.ErrNotReady.Error()

		return resp
	}

	o.log.Debug("Processing request", "request_id", requestID, "type", req.Type)

	data, err := o.route(ctx, req)
	if err != nil {
		resp.Error = err.Error()

		return resp
	}

	resp.Success = true
	resp.Data = data

	return resp
}

// route resolves the request type to a composite operation or a direct
// single call. The operation registry is validated at construction, so an
// unmatched type here is simply unknown.
func (o *Orchestrator) route(ctx context.Context, req Request) (map[string]any, error) {
	if o.plan.Has(req.Type) {
		return o.plan.Execute(ctx, req.Type, req.Params)
	}

	if server, method, ok := splitDirect(req.Type); ok && o.sup.Has(server) {
		raw, err := o.coord.Call(ctx, server, method, req.Params, o.opts.CallTimeout)
		if err != nil {
			return nil, err
		}

		return map[string]any{"result": decodeAny(raw)}, nil
	}

	return nil, fmt.Errorf("%w: %s", errors.ErrUnknownOperation, req.Type)
}

// Call issues one direct coordinator call to a named server. Valid only in
// Ready; exposed for callers that need a single backend method rather than
// a composite operation.
func (o *Orchestrator) Call(ctx context.Context, server, method string, params map[string]any) (any, error) {
	o.mu.Lock()
	state := o.state
	o.mu.Unlock()

	if state != StateReady {
		return nil, errors.ErrNotReady
	}

	raw, err := o.coord.Call(ctx, server, method, params, o.opts.CallTimeout)
	if err != nil {
		return nil, err
	}

	return decodeAny(raw), nil
}

// Cleanup stops all servers and closes the orchestrator. Idempotent and
// safe to call from any state; it never returns an error.
func (o *Orchestrator) Cleanup() {
	o.mu.Lock()

	if o.state == StateClosed {
		o.mu.Unlock()

		return
	}

	o.state = StateShuttingDown
	o.mu.Unlock()

	o.log.Info("Cleaning up orchestrator")

	o.sup.StopAll()

	o.mu.Lock()
	o.state = StateClosed
	o.mu.Unlock()

	o.log.Info("Cleanup complete")
}

// State returns the facade lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state
}

// Status reports the lifecycle state of every configured server.
// Pure read, no I/O.
func (o *Orchestrator) Status() map[string]ServerStatus {
	return o.sup.Status()
}

// Describe reports descriptor metadata plus live status per server.
func (o *Orchestrator) Describe() map[string]ServerInfo {
	return o.sup.Describe()
}

// HealthCheck pings every Running server with a short timeout. Failures
// are reported, never auto-remediated; restart policy belongs to the
// caller via RestartServer.
func (o *Orchestrator) HealthCheck(ctx context.Context) map[string]bool {
	return o.sup.HealthCheck(ctx)
}

// RestartServer stops and restarts one server. This is the caller-policy
// hook for recovering a Crashed server; nothing restarts automatically.
func (o *Orchestrator) RestartServer(ctx context.Context, name string) error {
	return o.sup.RestartServer(ctx, name)
}

// Operations returns name→description for the registered composite
// operations.
func (o *Orchestrator) Operations() map[string]string {
	return o.plan.Describe()
}

// splitDirect parses a "server.method" request type.
func splitDirect(reqType string) (server, method string, ok bool) {
	server, method, found := strings.Cut(reqType, ".")
	if !found || server == "" || method == "" {
		return "", "", false
	}

	return server, method, true
}

func decodeAny(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return string(raw)
	}

	return value
}
