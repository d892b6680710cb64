package orchestrator

import (
	"log/slog"
	"time"

	"github.com/wanderkit/mcp-orchestrator-go/internal/planner"
	"github.com/wanderkit/mcp-orchestrator-go/internal/supervisor"
)

const (
	// defaultCallTimeout is the per-call budget when none is configured.
	defaultCallTimeout = 10 * time.Second
	// defaultTerminateGrace is how long a server gets to exit before a
	// force kill.
	defaultTerminateGrace = 5 * time.Second
	// defaultHealthTimeout bounds one health-check ping.
	defaultHealthTimeout = 2 * time.Second
)

// Options configures an Orchestrator.
type Options struct {
	// Logger receives debug, info, warn, and error messages.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// Servers is the static server set. Read once at construction.
	Servers []supervisor.Descriptor

	// Operations are the composite operation specs to register.
	Operations []planner.Spec

	// CallTimeout is the default per-call budget for coordinator calls.
	CallTimeout time.Duration

	// TerminateGrace is the grace period before a stop escalates to kill.
	TerminateGrace time.Duration

	// HealthTimeout bounds one health-check ping.
	HealthTimeout time.Duration

	// MaxStages bounds the number of stages per composite operation.
	MaxStages int

	// MaxCallsPerStage bounds the fan-out within one stage.
	MaxCallsPerStage int
}

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options over the defaults.
func applyOptions(opts []Option) *Options {
	options := &Options{
		CallTimeout:    defaultCallTimeout,
		TerminateGrace: defaultTerminateGrace,
		HealthTimeout:  defaultHealthTimeout,
	}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithLogger sets the logger for operational output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithServer adds one server descriptor to the static server set.
func WithServer(desc ServerDescriptor) Option {
	return func(o *Options) {
		o.Servers = append(o.Servers, desc)
	}
}

// WithServers sets the static server set.
func WithServers(servers []ServerDescriptor) Option {
	return func(o *Options) {
		o.Servers = append(o.Servers, servers...)
	}
}

// WithOperations registers composite operation specs. Specs are validated
// at construction; an operation referencing an unknown server is rejected.
func WithOperations(specs ...OperationSpec) Option {
	return func(o *Options) {
		o.Operations = append(o.Operations, specs...)
	}
}

// WithCallTimeout sets the default timeout budget for one coordinator call.
func WithCallTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.CallTimeout = timeout
	}
}

// WithTerminateGrace sets how long a stopping server gets to exit before
// the supervisor escalates to a force kill.
func WithTerminateGrace(grace time.Duration) Option {
	return func(o *Options) {
		o.TerminateGrace = grace
	}
}

// WithHealthTimeout bounds one health-check ping round-trip.
func WithHealthTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.HealthTimeout = timeout
	}
}

// WithStageLimits bounds composite fan-out: at most maxStages stages per
// operation and maxCallsPerStage concurrent calls per stage.
func WithStageLimits(maxStages, maxCallsPerStage int) Option {
	return func(o *Options) {
		o.MaxStages = maxStages
		o.MaxCallsPerStage = maxCallsPerStage
	}
}
