package orchestrator

import "github.com/wanderkit/mcp-orchestrator-go/internal/errors"

// Re-export error types from the internal package.

// SpawnError indicates a server process failed to start.
type SpawnError = errors.SpawnError

// CallError indicates a coordinator call failed.
type CallError = errors.CallError

// CallErrorKind classifies a failed coordinator call.
type CallErrorKind = errors.CallErrorKind

// ProtocolError indicates one malformed wire line was dropped.
type ProtocolError = errors.ProtocolError

// EncodingError indicates a request could not be serialized.
type EncodingError = errors.EncodingError

// InitializationError indicates Initialize could not bring up every server.
type InitializationError = errors.InitializationError

// OrchestratorError is the base interface for all orchestrator errors.
type OrchestratorError = errors.OrchestratorError

// Call error kinds.
const (
	KindServerUnavailable = errors.KindServerUnavailable
	KindTimeout           = errors.KindTimeout
	KindServerCrashed     = errors.KindServerCrashed
	KindRemoteError       = errors.KindRemoteError
)

// Re-export sentinel errors from the internal package.
var (
	// ErrNotReady indicates the orchestrator is not in the Ready state.
	ErrNotReady = errors.ErrNotReady

	// ErrClosed indicates the orchestrator has been cleaned up and cannot be reused.
	ErrClosed = errors.ErrClosed

	// ErrUnknownServer indicates the named server is not configured.
	ErrUnknownServer = errors.ErrUnknownServer

	// ErrUnknownOperation indicates the request type matches no route.
	ErrUnknownOperation = errors.ErrUnknownOperation
)
