package errors

import (
	"errors"
	"fmt"
)

// OrchestratorError is the base interface for all orchestrator errors.
type OrchestratorError interface {
	error
	IsOrchestratorError() bool
}

// Compile-time verification that all error types implement OrchestratorError.
var (
	_ OrchestratorError = (*SpawnError)(nil)
	_ OrchestratorError = (*CallError)(nil)
	_ OrchestratorError = (*ProtocolError)(nil)
	_ OrchestratorError = (*EncodingError)(nil)
	_ OrchestratorError = (*InitializationError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotReady indicates the orchestrator is not in the Ready state.
	ErrNotReady = errors.New("orchestrator not ready: call Initialize first")

	// ErrClosed indicates the orchestrator has been cleaned up and cannot be reused.
	ErrClosed = errors.New("orchestrator closed: create a new one with New()")

	// ErrUnknownServer indicates the named server is not in the configured set.
	ErrUnknownServer = errors.New("unknown server")

	// ErrUnknownOperation indicates the request type matches no registered
	// operation and no direct route.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrProcessNotStarted indicates an operation on a handle that was never started.
	ErrProcessNotStarted = errors.New("process not started")

	// ErrStdinClosed indicates the process stdin pipe is closed.
	ErrStdinClosed = errors.New("stdin closed")

	// ErrReceiveTimeout indicates no line arrived within the timeout budget.
	ErrReceiveTimeout = errors.New("receive timeout")

	// ErrEOF indicates the process stdout closed before a line arrived.
	ErrEOF = errors.New("unexpected end of stream")
)

// CallErrorKind classifies a failed coordinator call.
type CallErrorKind string

const (
	// KindServerUnavailable means the target server is not Running.
	// Recoverable: start the server and retry.
	KindServerUnavailable CallErrorKind = "server_unavailable"

	// KindTimeout means no matching response arrived within the budget.
	// Recoverable: the subprocess is assumed alive.
	KindTimeout CallErrorKind = "timeout"

	// KindServerCrashed means the stdout pipe closed mid-call.
	// The server must be restarted before further calls.
	KindServerCrashed CallErrorKind = "server_crashed"

	// KindRemoteError means the server answered with an error envelope.
	KindRemoteError CallErrorKind = "remote_error"
)

// SpawnError indicates a server process failed to start.
// Fatal for that server; the supervisor leaves it Stopped.
type SpawnError struct {
	Server string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Server, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsOrchestratorError implements OrchestratorError.
func (e *SpawnError) IsOrchestratorError() bool { return true }

// CallError indicates a coordinator call failed. The Kind field tells the
// caller whether the target server survived the failure.
type CallError struct {
	Kind   CallErrorKind
	Server string
	Method string
	Err    error
}

func (e *CallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("call %s.%s: %s: %v", e.Server, e.Method, e.Kind, e.Err)
	}

	return fmt.Sprintf("call %s.%s: %s", e.Server, e.Method, e.Kind)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// IsOrchestratorError implements OrchestratorError.
func (e *CallError) IsOrchestratorError() bool { return true }

// ProtocolError indicates one malformed wire line. The connection survives;
// the offending line is dropped.
type ProtocolError struct {
	RawLine string
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsOrchestratorError implements OrchestratorError.
func (e *ProtocolError) IsOrchestratorError() bool { return true }

// EncodingError indicates a request could not be serialized. Caller error;
// no bytes were written.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error: %v", e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// IsOrchestratorError implements OrchestratorError.
func (e *EncodingError) IsOrchestratorError() bool { return true }

// InitializationError indicates Initialize could not bring up every
// configured server. All servers are stopped before it is returned.
type InitializationError struct {
	Failed []string
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialization failed: servers did not start: %v", e.Failed)
}

// IsOrchestratorError implements OrchestratorError.
func (e *InitializationError) IsOrchestratorError() bool { return true }
