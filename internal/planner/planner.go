package planner

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"golang.org/x/sync/errgroup"

	"github.com/wanderkit/mcp-orchestrator-go/internal/errors"
)

// Caller abstracts the request coordinator. Satisfied by
// *coordinator.Coordinator; small enough to mock in tests.
type Caller interface {
	Call(ctx context.Context, server, method string, params map[string]any, timeout time.Duration) (json.RawMessage, error)
}

// Call is one sub-request of a composite operation. Bind derives the
// sub-request params from the operation params; a nil Bind passes the
// operation params through unchanged.
type Call struct {
	Role   string
	Server string
	Method string
	Bind   func(params map[string]any) map[string]any
}

// Stage is one step of an operation plan. All calls in a stage are
// dispatched concurrently and the stage completes once every call has
// returned, success or error.
type Stage []Call

// Spec declares one composite operation: an ordered list of stages plus an
// optional JSON Schema for the operation params.
type Spec struct {
	Name        string
	Description string
	Params      *jsonschema.Schema
	Stages      []Stage
}

// Limits bounds operation fan-out, preventing runaway plans from
// monopolizing the server pool.
type Limits struct {
	MaxStages        int
	MaxCallsPerStage int
}

const (
	defaultMaxStages        = 8
	defaultMaxCallsPerStage = 8
)

// compiled is a registered spec with its schema resolved for validation.
type compiled struct {
	spec     Spec
	resolved *jsonschema.Resolved
}

// Planner executes composite operations as staged, partially-parallel
// coordinator calls and merges the results by role.
//
// The registry is validated at construction: unknown servers, oversized
// plans, and duplicate roles are build errors, not runtime surprises.
type Planner struct {
	log     *slog.Logger
	caller  Caller
	timeout time.Duration
	specs   map[string]*compiled
	order   []string
}

// New builds a planner over the given operation specs. knownServer reports
// whether a server name is configured; every call in every spec must refer
// to a known server. timeout is the per-sub-call budget.
func New(
	log *slog.Logger,
	caller Caller,
	knownServer func(name string) bool,
	limits Limits,
	timeout time.Duration,
	specs ...Spec,
) (*Planner, error) {
	if limits.MaxStages <= 0 {
		limits.MaxStages = defaultMaxStages
	}

	if limits.MaxCallsPerStage <= 0 {
		limits.MaxCallsPerStage = defaultMaxCallsPerStage
	}

	p := &Planner{
		log:     log.With("component", "planner"),
		caller:  caller,
		timeout: timeout,
		specs:   make(map[string]*compiled, len(specs)),
		order:   make([]string, 0, len(specs)),
	}

	for _, spec := range specs {
		if err := p.add(spec, knownServer, limits); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Planner) add(spec Spec, knownServer func(string) bool, limits Limits) error {
	if spec.Name == "" {
		return fmt.Errorf("operation spec missing name")
	}

	if _, exists := p.specs[spec.Name]; exists {
		return fmt.Errorf("duplicate operation %q", spec.Name)
	}

	if len(spec.Stages) == 0 {
		return fmt.Errorf("operation %q has no stages", spec.Name)
	}

	if len(spec.Stages) > limits.MaxStages {
		return fmt.Errorf("operation %q has %d stages, limit is %d", spec.Name, len(spec.Stages), limits.MaxStages)
	}

	roles := make(map[string]struct{}, 4)

	for i, stage := range spec.Stages {
		if len(stage) == 0 {
			return fmt.Errorf("operation %q stage %d is empty", spec.Name, i)
		}

		if len(stage) > limits.MaxCallsPerStage {
			return fmt.Errorf("operation %q stage %d has %d calls, limit is %d", spec.Name, i, len(stage), limits.MaxCallsPerStage)
		}

		for _, call := range stage {
			if call.Role == "" {
				return fmt.Errorf("operation %q stage %d has a call with no role", spec.Name, i)
			}

			if _, dup := roles[call.Role]; dup {
				return fmt.Errorf("operation %q has duplicate role %q", spec.Name, call.Role)
			}

			roles[call.Role] = struct{}{}

			if !knownServer(call.Server) {
				return fmt.Errorf("operation %q role %q references unknown server %q", spec.Name, call.Role, call.Server)
			}
		}
	}

	entry := &compiled{spec: spec}

	if spec.Params != nil {
		resolved, err := spec.Params.Resolve(nil)
		if err != nil {
			return fmt.Errorf("operation %q params schema: %w", spec.Name, err)
		}

		entry.resolved = resolved
	}

	p.specs[spec.Name] = entry
	p.order = append(p.order, spec.Name)

	return nil
}

// Has reports whether a composite operation is registered.
func (p *Planner) Has(name string) bool {
	_, ok := p.specs[name]

	return ok
}

// Names returns the registered operation names in registration order.
func (p *Planner) Names() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)

	return out
}

// Describe returns name→description for the registered operations.
func (p *Planner) Describe() map[string]string {
	out := make(map[string]string, len(p.specs))
	for name, entry := range p.specs {
		out[name] = entry.spec.Description
	}

	return out
}

// Execute runs one composite operation. Stages run sequentially; within a
// stage every call is dispatched concurrently and the stage completes once
// the slowest call returns.
//
// The result maps each role to its payload, or to {"error", "code"} when
// that sub-call failed. A failing sub-call never aborts the operation;
// composites degrade gracefully. Only an unknown operation name or params
// failing schema validation error out before any I/O.
func (p *Planner) Execute(ctx context.Context, name string, params map[string]any) (map[string]any, error) {
	entry, ok := p.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrUnknownOperation, name)
	}

	if params == nil {
		params = map[string]any{}
	}

	if entry.resolved != nil {
		if err := entry.resolved.Validate(params); err != nil {
			return nil, fmt.Errorf("invalid params for %s: %w", name, err)
		}
	}

	p.log.Debug("Executing operation", "operation", name, "stages", len(entry.spec.Stages))

	results := make(map[string]any, 4)

	for i, stage := range entry.spec.Stages {
		outcomes := make([]any, len(stage))

		g, gCtx := errgroup.WithContext(ctx)

		for j, call := range stage {
			bound := params
			if call.Bind != nil {
				bound = call.Bind(params)
			}

			g.Go(func() error {
				// Errors land in the outcome slot, never in the group:
				// a stage always waits for every call and never
				// short-circuits on the first failure.
				raw, err := p.caller.Call(gCtx, call.Server, call.Method, bound, p.timeout)
				if err != nil {
					outcomes[j] = errorEntry(err)

					return nil
				}

				outcomes[j] = decodeResult(raw)

				return nil
			})
		}

		// Every goroutine returns nil, so Wait only joins the stage. A
		// cancelled context surfaces per call as an error entry.
		_ = g.Wait()

		for j, call := range stage {
			results[call.Role] = outcomes[j]
		}

		p.log.Debug("Stage complete", "operation", name, "stage", i)
	}

	return results, nil
}

// errorEntry converts a sub-call failure into its merged representation.
func errorEntry(err error) map[string]any {
	var callErr *errors.CallError
	if stderrors.As(err, &callErr) {
		return map[string]any{
			"error": callErr.Error(),
			"code":  string(callErr.Kind),
		}
	}

	return map[string]any{"error": err.Error()}
}

// decodeResult unwraps a raw result payload for merging.
func decodeResult(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		// The coordinator already validated the envelope; a result that
		// still fails to decode is preserved verbatim.
		return string(raw)
	}

	return value
}
