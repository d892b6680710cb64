package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wanderkit/mcp-orchestrator-go/internal/errors"
	"github.com/wanderkit/mcp-orchestrator-go/internal/process"
)

// Status is the lifecycle state of one managed server.
//
// Legal transitions: Stopped→Starting→Running, Running→Stopping→Stopped,
// Running→Crashed, Crashed→Stopping→Stopped, and Crashed→Starting→Running
// (a crashed process is already reaped, so StartServer may recover it
// without an explicit stop).
type Status string

const (
	// StatusStopped means no process exists for the server.
	StatusStopped Status = "stopped"
	// StatusStarting means a spawn is in progress.
	StatusStarting Status = "starting"
	// StatusRunning means the process is up and accepting requests.
	StatusRunning Status = "running"
	// StatusStopping means a graceful shutdown is in progress.
	StatusStopping Status = "stopping"
	// StatusCrashed means the process died without being asked to stop.
	StatusCrashed Status = "crashed"
)

// Descriptor is the static configuration of one backend server.
// Loaded once at construction; never mutated.
type Descriptor struct {
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	Args        []string `json:"args,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
}

// Info is one row of a status report.
type Info struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Status      Status `json:"status"`
	Pid         int    `json:"pid,omitempty"`
}

// Pinger performs a short round-trip against a Running server. Wired in by
// the facade once the coordinator exists; nil falls back to liveness polls.
type Pinger func(ctx context.Context, server string, timeout time.Duration) error

// Supervisor owns the name→process map. Start/stop for a given name are
// serialized; status reads may run concurrently with mutations and can
// observe transient Starting/Stopping states.
type Supervisor struct {
	log           *slog.Logger
	baseLog       *slog.Logger // unscoped, for process handles to scope themselves
	grace         time.Duration
	healthTimeout time.Duration

	pingMu sync.RWMutex
	pinger Pinger

	mu      sync.RWMutex // guards status and handle fields of every entry
	entries map[string]*entry
	order   []string
}

// entry is the mutable record for one configured server.
type entry struct {
	desc Descriptor

	opMu sync.Mutex // serializes start/stop/restart for this name

	// Guarded by Supervisor.mu.
	status Status
	handle *process.Handle
}

// Config carries supervisor construction parameters.
type Config struct {
	Servers []Descriptor
	// Grace is the terminate grace period before force kill.
	Grace time.Duration
	// HealthTimeout bounds one health-check ping.
	HealthTimeout time.Duration
}

const (
	defaultGrace         = 5 * time.Second
	defaultHealthTimeout = 2 * time.Second
)

// New creates a supervisor over a static server set. Descriptors with
// duplicate names are rejected.
func New(log *slog.Logger, cfg Config) (*Supervisor, error) {
	grace := cfg.Grace
	if grace <= 0 {
		grace = defaultGrace
	}

	healthTimeout := cfg.HealthTimeout
	if healthTimeout <= 0 {
		healthTimeout = defaultHealthTimeout
	}

	s := &Supervisor{
		log:           log.With("component", "supervisor"),
		baseLog:       log,
		grace:         grace,
		healthTimeout: healthTimeout,
		entries:       make(map[string]*entry, len(cfg.Servers)),
		order:         make([]string, 0, len(cfg.Servers)),
	}

	for _, desc := range cfg.Servers {
		if desc.Name == "" {
			return nil, fmt.Errorf("server descriptor missing name")
		}

		if _, exists := s.entries[desc.Name]; exists {
			return nil, fmt.Errorf("duplicate server name %q", desc.Name)
		}

		if desc.DisplayName == "" {
			desc.DisplayName = desc.Name
		}

		s.entries[desc.Name] = &entry{desc: desc, status: StatusStopped}
		s.order = append(s.order, desc.Name)
	}

	return s, nil
}

// SetPinger installs the health-check round-trip. Called by the facade
// after the coordinator is constructed.
func (s *Supervisor) SetPinger(p Pinger) {
	s.pingMu.Lock()
	defer s.pingMu.Unlock()

	s.pinger = p
}

// Names returns the configured server names in declaration order.
func (s *Supervisor) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)

	return out
}

// Has reports whether a server with the given name is configured.
func (s *Supervisor) Has(name string) bool {
	_, ok := s.entries[name]

	return ok
}

// StartServer starts one server. Idempotent success if it is already
// Running. A Crashed server is recovered with a fresh process; the dead
// one was reaped when its stream closed. On spawn failure the server is
// left Stopped and the error is returned; there is no automatic retry.
func (s *Supervisor) StartServer(ctx context.Context, name string) error {
	e, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownServer, name)
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	s.mu.Lock()

	if e.status == StatusRunning {
		s.mu.Unlock()
		s.log.Debug("Server already running", "server", name)

		return nil
	}

	e.status = StatusStarting
	s.mu.Unlock()

	handle := process.New(s.baseLog, name, e.desc.Path, e.desc.Args...)

	if err := handle.Start(ctx); err != nil {
		s.mu.Lock()
		e.status = StatusStopped
		e.handle = nil
		s.mu.Unlock()

		s.log.Error("Failed to start server", "server", name, "error", err)

		return err
	}

	s.mu.Lock()
	e.status = StatusRunning
	e.handle = handle
	s.mu.Unlock()

	s.log.Info("Server started", "server", name, "pid", handle.Pid())

	return nil
}

// StopServer stops one server gracefully, escalating to a force kill after
// the grace period. Force kills are logged, never raised. Idempotent: a
// second call on a Stopped server is a no-op success.
func (s *Supervisor) StopServer(name string) error {
	e, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownServer, name)
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	s.mu.Lock()

	handle := e.handle
	if handle == nil {
		e.status = StatusStopped
		s.mu.Unlock()

		return nil
	}

	e.status = StatusStopping
	s.mu.Unlock()

	handle.Terminate(s.grace)

	s.mu.Lock()
	e.status = StatusStopped
	e.handle = nil
	s.mu.Unlock()

	s.log.Info("Server stopped", "server", name)

	return nil
}

// RestartServer stops and then starts one server. Exposed for caller
// policy; the supervisor never restarts anything on its own.
func (s *Supervisor) RestartServer(ctx context.Context, name string) error {
	if err := s.StopServer(name); err != nil {
		return err
	}

	return s.StartServer(ctx, name)
}

// StartAll starts every configured server, best-effort: one spawn failure
// does not block attempting the rest. The map reports per-server success.
func (s *Supervisor) StartAll(ctx context.Context) map[string]bool {
	results := make(map[string]bool, len(s.order))

	for _, name := range s.order {
		err := s.StartServer(ctx, name)
		results[name] = err == nil
	}

	return results
}

// StopAll stops every configured server, best-effort.
func (s *Supervisor) StopAll() map[string]bool {
	results := make(map[string]bool, len(s.order))

	for _, name := range s.order {
		err := s.StopServer(name)
		results[name] = err == nil
	}

	return results
}

// Lookup returns the current handle and status for a server. The handle is
// nil unless a process exists.
func (s *Supervisor) Lookup(name string) (*process.Handle, Status, error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, StatusStopped, fmt.Errorf("%w: %s", errors.ErrUnknownServer, name)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return e.handle, e.status, nil
}

// MarkCrashed transitions a server Running→Crashed, but only if the given
// handle is still the current one. A stale handle from before a restart
// must not clobber the fresh process's status.
func (s *Supervisor) MarkCrashed(name string, handle *process.Handle) {
	e, ok := s.entries[name]
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.handle == handle && e.status == StatusRunning {
		e.status = StatusCrashed
		s.log.Warn("Server crashed", "server", name, "stderr", handle.StderrTail())
	}
}

// Status reports the lifecycle state of every configured server.
// Pure read, no I/O.
func (s *Supervisor) Status() map[string]Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Status, len(s.entries))
	for name, e := range s.entries {
		out[name] = e.status
	}

	return out
}

// Describe reports descriptor metadata plus live status for every server.
func (s *Supervisor) Describe() map[string]Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Info, len(s.entries))

	for name, e := range s.entries {
		info := Info{
			Name:        name,
			DisplayName: e.desc.DisplayName,
			Status:      e.status,
		}

		if e.handle != nil {
			info.Pid = e.handle.Pid()
		}

		out[name] = info
	}

	return out
}

// HealthCheck pings every Running server with a short timeout and reports
// the results. Failures are reported, never auto-remediated; restart policy
// belongs to the caller. Servers that are not Running report false.
func (s *Supervisor) HealthCheck(ctx context.Context) map[string]bool {
	s.pingMu.RLock()
	pinger := s.pinger
	s.pingMu.RUnlock()

	results := make(map[string]bool, len(s.order))

	for _, name := range s.order {
		handle, status, _ := s.Lookup(name)
		if status != StatusRunning || handle == nil {
			results[name] = false

			continue
		}

		if pinger == nil {
			results[name] = handle.IsAlive()

			continue
		}

		if err := pinger(ctx, name, s.healthTimeout); err != nil {
			s.log.Warn("Health check failed", "server", name, "error", err)

			results[name] = false

			continue
		}

		results[name] = true
	}

	return results
}
