package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/require"

	orcherrors "github.com/wanderkit/mcp-orchestrator-go/internal/errors"
)

// mockCaller scripts per-server behavior: a fixed result, a fixed error,
// and an optional delay. It records the order calls were issued in.
type mockCaller struct {
	mu      sync.Mutex
	calls   []string
	results map[string]json.RawMessage
	errors  map[string]error
	delays  map[string]time.Duration
}

func newMockCaller() *mockCaller {
	return &mockCaller{
		results: make(map[string]json.RawMessage),
		errors:  make(map[string]error),
		delays:  make(map[string]time.Duration),
	}
}

func (m *mockCaller) Call(ctx context.Context, server, method string, params map[string]any, timeout time.Duration) (json.RawMessage, error) {
	key := server + "." + method

	m.mu.Lock()
	m.calls = append(m.calls, key)
	m.mu.Unlock()

	if delay := m.delays[key]; delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := m.errors[key]; err != nil {
		return nil, err
	}

	if result, ok := m.results[key]; ok {
		return result, nil
	}

	return json.RawMessage(`"ok"`), nil
}

func (m *mockCaller) callOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.calls))
	copy(out, m.calls)

	return out
}

func anyServer(string) bool { return true }

func newTestPlanner(t *testing.T, caller Caller, specs ...Spec) *Planner {
	t.Helper()

	p, err := New(slog.Default(), caller, anyServer, Limits{}, time.Second, specs...)
	require.NoError(t, err)

	return p
}

func twoStageSpec() Spec {
	return Spec{
		Name: "plan_trip",
		Stages: []Stage{
			{
				{Role: "itinerary", Server: "itinerary", Method: "create"},
				{Role: "location", Server: "maps", Method: "info"},
			},
			{
				{Role: "flights", Server: "booking", Method: "flights"},
				{Role: "hotels", Server: "booking", Method: "hotels"},
			},
		},
	}
}

func TestExecute_MergesByRole(t *testing.T) {
	caller := newMockCaller()
	caller.results["itinerary.create"] = json.RawMessage(`{"days":3}`)
	caller.results["maps.info"] = json.RawMessage(`{"lat":51.18}`)

	p := newTestPlanner(t, caller, twoStageSpec())

	results, err := p.Execute(context.Background(), "plan_trip", map[string]any{"destination": "Banff"})
	require.NoError(t, err)

	require.Equal(t, map[string]any{"days": float64(3)}, results["itinerary"])
	require.Equal(t, map[string]any{"lat": 51.18}, results["location"])
	require.Equal(t, "ok", results["flights"])
	require.Equal(t, "ok", results["hotels"])
}

func TestExecute_UnknownOperation(t *testing.T) {
	p := newTestPlanner(t, newMockCaller(), twoStageSpec())

	_, err := p.Execute(context.Background(), "teleport", nil)
	require.ErrorIs(t, err, orcherrors.ErrUnknownOperation)
}

// A failing sub-call is recorded under its role; siblings keep their
// payloads and the operation does not abort.
func TestExecute_PartialFailure(t *testing.T) {
	caller := newMockCaller()
	caller.errors["booking.flights"] = &orcherrors.CallError{
		Kind:   orcherrors.KindTimeout,
		Server: "booking",
		Method: "flights",
	}

	p := newTestPlanner(t, caller, twoStageSpec())

	results, err := p.Execute(context.Background(), "plan_trip", nil)
	require.NoError(t, err)

	entry, ok := results["flights"].(map[string]any)
	require.True(t, ok, "failed role should carry an error entry")
	require.Equal(t, string(orcherrors.KindTimeout), entry["code"])
	require.Contains(t, entry["error"], "booking.flights")

	require.Equal(t, "ok", results["hotels"])
	require.Equal(t, "ok", results["itinerary"])
}

// Stage latency is bounded by the slowest call, not the sum: two slow
// calls in one stage complete in parallel.
func TestExecute_StageIsParallel(t *testing.T) {
	caller := newMockCaller()
	caller.delays["maps.weather"] = 150 * time.Millisecond
	caller.delays["maps.route"] = 150 * time.Millisecond

	spec := Spec{
		Name: "check_weather_route",
		Stages: []Stage{{
			{Role: "weather", Server: "maps", Method: "weather"},
			{Role: "route", Server: "maps", Method: "route"},
		}},
	}

	p := newTestPlanner(t, caller, spec)

	start := time.Now()

	results, err := p.Execute(context.Background(), "check_weather_route", nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	elapsed := time.Since(start)
	require.Less(t, elapsed, 280*time.Millisecond, "stage ran serially: %s", elapsed)
}

// A fast call and a never-replying call in one parallel group finish
// within one timeout budget, not two.
func TestExecute_FastAndTimingOutSiblings(t *testing.T) {
	caller := newMockCaller()
	caller.results["a.reply"] = json.RawMessage(`"ok-A"`)
	caller.delays["a.reply"] = 10 * time.Millisecond
	caller.delays["b.reply"] = 200 * time.Millisecond
	caller.errors["b.reply"] = &orcherrors.CallError{Kind: orcherrors.KindTimeout, Server: "b", Method: "reply"}

	spec := Spec{
		Name: "fanout",
		Stages: []Stage{{
			{Role: "A", Server: "a", Method: "reply"},
			{Role: "B", Server: "b", Method: "reply"},
		}},
	}

	p := newTestPlanner(t, caller, spec)

	start := time.Now()

	results, err := p.Execute(context.Background(), "fanout", nil)
	require.NoError(t, err)

	require.Equal(t, "ok-A", results["A"])

	entry, ok := results["B"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, string(orcherrors.KindTimeout), entry["code"])

	require.Less(t, time.Since(start), 380*time.Millisecond, "group must run in parallel")
}

// Context cancellation surfaces per call as an error entry under each
// role, never as an aborted stage: Execute still returns a complete
// result map.
func TestExecute_CancelledContext(t *testing.T) {
	caller := newMockCaller()
	for _, key := range []string{"itinerary.create", "maps.info", "booking.flights", "booking.hotels"} {
		caller.delays[key] = 10 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPlanner(t, caller, twoStageSpec())

	results, err := p.Execute(ctx, "plan_trip", nil)
	require.NoError(t, err)

	for _, role := range []string{"itinerary", "location", "flights", "hotels"} {
		entry, ok := results[role].(map[string]any)
		require.True(t, ok, "role %s should carry an error entry", role)
		require.Contains(t, entry["error"], context.Canceled.Error())
	}
}

// Stages run sequentially: every stage-one call is issued before any
// stage-two call.
func TestExecute_StagesAreSequential(t *testing.T) {
	caller := newMockCaller()
	caller.delays["itinerary.create"] = 50 * time.Millisecond

	p := newTestPlanner(t, caller, twoStageSpec())

	_, err := p.Execute(context.Background(), "plan_trip", nil)
	require.NoError(t, err)

	order := caller.callOrder()
	require.Len(t, order, 4)

	stageOne := map[string]bool{"itinerary.create": true, "maps.info": true}
	require.True(t, stageOne[order[0]], "unexpected first call %s", order[0])
	require.True(t, stageOne[order[1]], "unexpected second call %s", order[1])
}

func TestExecute_BindDerivesParams(t *testing.T) {
	var seen map[string]any

	caller := newMockCaller()

	spec := Spec{
		Name: "bound",
		Stages: []Stage{{
			{
				Role:   "r",
				Server: "s",
				Method: "m",
				Bind: func(params map[string]any) map[string]any {
					seen = map[string]any{"location": params["destination"]}

					return seen
				},
			},
		}},
	}

	p := newTestPlanner(t, caller, spec)

	_, err := p.Execute(context.Background(), "bound", map[string]any{"destination": "Paris"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"location": "Paris"}, seen)
}

func TestExecute_SchemaValidation(t *testing.T) {
	spec := twoStageSpec()
	spec.Params = &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"destination": {Type: "string"},
		},
		Required: []string{"destination"},
	}

	p := newTestPlanner(t, newMockCaller(), spec)

	// Missing required param fails before any I/O.
	caller := p.caller.(*mockCaller)

	_, err := p.Execute(context.Background(), "plan_trip", map[string]any{})
	require.Error(t, err)
	require.Empty(t, caller.callOrder())

	_, err = p.Execute(context.Background(), "plan_trip", map[string]any{"destination": "Banff"})
	require.NoError(t, err)
}

func TestNew_RejectsUnknownServer(t *testing.T) {
	known := func(name string) bool { return name == "maps" }

	_, err := New(slog.Default(), newMockCaller(), known, Limits{}, time.Second, Spec{
		Name:   "bad",
		Stages: []Stage{{{Role: "r", Server: "ghost", Method: "m"}}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown server")
}

func TestNew_RejectsDuplicateRole(t *testing.T) {
	_, err := New(slog.Default(), newMockCaller(), anyServer, Limits{}, time.Second, Spec{
		Name: "bad",
		Stages: []Stage{{
			{Role: "r", Server: "a", Method: "m"},
			{Role: "r", Server: "b", Method: "m"},
		}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate role")
}

func TestNew_EnforcesStageLimits(t *testing.T) {
	limits := Limits{MaxStages: 1, MaxCallsPerStage: 1}

	_, err := New(slog.Default(), newMockCaller(), anyServer, limits, time.Second, Spec{
		Name: "wide",
		Stages: []Stage{{
			{Role: "a", Server: "s", Method: "m"},
			{Role: "b", Server: "s", Method: "m"},
		}},
	})
	require.Error(t, err)

	_, err = New(slog.Default(), newMockCaller(), anyServer, limits, time.Second, Spec{
		Name: "deep",
		Stages: []Stage{
			{{Role: "a", Server: "s", Method: "m"}},
			{{Role: "b", Server: "s", Method: "m"}},
		},
	})
	require.Error(t, err)
}

func TestNew_RejectsDuplicateOperation(t *testing.T) {
	spec := twoStageSpec()

	_, err := New(slog.Default(), newMockCaller(), anyServer, Limits{}, time.Second, spec, spec)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate operation")
}

func TestErrorEntry_NonCallError(t *testing.T) {
	entry := errorEntry(fmt.Errorf("plain failure"))
	require.Equal(t, map[string]any{"error": "plain failure"}, entry)
}
