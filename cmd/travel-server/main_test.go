package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wanderkit/mcp-orchestrator-go/internal/wire"
)

func decodeResult(t *testing.T, resp *wire.Response) map[string]any {
	t.Helper()

	require.Nil(t, resp.Error)

	var out map[string]any
	require.NoError(t, json.Unmarshal(resp.Result, &out))

	return out
}

func TestMethodTable_UnknownRole(t *testing.T) {
	_, ok := methodTable("concierge")
	require.False(t, ok)
}

func TestMethodTable_EveryRoleAnswersPing(t *testing.T) {
	for _, role := range []string{"itinerary", "maps", "booking"} {
		methods, ok := methodTable(role)
		require.True(t, ok)

		resp := dispatch(methods, wire.NewRequest(1, "ping", nil))
		result := decodeResult(t, resp)
		require.Equal(t, "ok", result["status"])
		require.Equal(t, role, result["role"])
	}
}

func TestDispatch_UnknownMethod(t *testing.T) {
	methods, ok := methodTable("maps")
	require.True(t, ok)

	resp := dispatch(methods, wire.NewRequest(7, "fly", nil))
	require.Equal(t, int64(7), resp.ID)
	require.NotNil(t, resp.Error)
	require.Contains(t, resp.Error.Message, "fly")
}

func TestDispatch_MissingRequiredParam(t *testing.T) {
	methods, ok := methodTable("itinerary")
	require.True(t, ok)

	resp := dispatch(methods, wire.NewRequest(2, "create_itinerary", nil))
	require.NotNil(t, resp.Error)
	require.Contains(t, resp.Error.Message, "destination")
}

func TestDispatch_CreateItinerary(t *testing.T) {
	methods, ok := methodTable("itinerary")
	require.True(t, ok)

	resp := dispatch(methods, wire.NewRequest(3, "create_itinerary", map[string]any{
		"destination": "Lisbon",
		"start_date":  "2026-10-01",
	}))

	result := decodeResult(t, resp)
	require.Equal(t, "Lisbon", result["destination"])
	require.Equal(t, "draft", result["status"])

	days, ok := result["days"].([]any)
	require.True(t, ok)
	require.Len(t, days, 3)
}

func TestDispatch_SearchFlights(t *testing.T) {
	methods, ok := methodTable("booking")
	require.True(t, ok)

	resp := dispatch(methods, wire.NewRequest(4, "search_flights", map[string]any{
		"origin":      "Lisbon",
		"destination": "Madrid",
	}))

	result := decodeResult(t, resp)
	require.Equal(t, float64(5), result["flights_found"])

	flights, ok := result["outbound_flights"].([]any)
	require.True(t, ok)
	require.Len(t, flights, 5)
}

func TestDispatch_BookReturnsConfirmation(t *testing.T) {
	methods, ok := methodTable("booking")
	require.True(t, ok)

	resp := dispatch(methods, wire.NewRequest(5, "book", map[string]any{"item_id": "FL1234"}))

	result := decodeResult(t, resp)
	require.Equal(t, "confirmed", result["status"])
	require.NotEmpty(t, result["confirmation_id"])
}

func TestDispatch_GetRoute(t *testing.T) {
	methods, ok := methodTable("maps")
	require.True(t, ok)

	resp := dispatch(methods, wire.NewRequest(6, "get_route", map[string]any{
		"origin":      "Calgary",
		"destination": "Banff",
	}))

	result := decodeResult(t, resp)
	require.Equal(t, "driving", result["mode"])
	require.Contains(t, result["summary"], "Calgary")
}
