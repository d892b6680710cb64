package orchestrator

import (
	"github.com/wanderkit/mcp-orchestrator-go/internal/planner"
	"github.com/wanderkit/mcp-orchestrator-go/internal/supervisor"
)

// ServerDescriptor is the static configuration of one backend server:
// name, executable path, optional args and display name.
type ServerDescriptor = supervisor.Descriptor

// ServerStatus is the lifecycle state of one managed server.
type ServerStatus = supervisor.Status

// Server lifecycle states.
const (
	StatusStopped  = supervisor.StatusStopped
	StatusStarting = supervisor.StatusStarting
	StatusRunning  = supervisor.StatusRunning
	StatusStopping = supervisor.StatusStopping
	StatusCrashed  = supervisor.StatusCrashed
)

// ServerInfo is one row of a Describe report.
type ServerInfo = supervisor.Info

// OperationSpec declares one composite operation.
type OperationSpec = planner.Spec

// OperationStage is one step of an operation plan; every call in a stage
// runs concurrently.
type OperationStage = planner.Stage

// OperationCall is one sub-request of a composite operation.
type OperationCall = planner.Call

// Request is one caller-facing request. Type names either a composite
// operation or a direct "server.method" call. A missing ID is filled in
// with a generated one.
type Request struct {
	ID     string         `json:"id,omitempty"`
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// Response is the caller-facing result envelope. A partially-failed
// composite still reports Success=true with the failing roles marked as
// error entries inside Data; Success=false is reserved for requests that
// could not be executed at all.
type Response struct {
	Success   bool           `json:"success"`
	RequestID string         `json:"request_id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// State is the facade lifecycle state.
type State int32

// Facade lifecycle states.
const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateShuttingDown
	StateClosed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shutting_down"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
