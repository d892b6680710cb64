// Command travel-server is a mock travel backend speaking the orchestrator's
// line-delimited JSON-RPC envelope over stdio.
//
// One binary provides three personalities, selected with --role:
//
//	itinerary: create_itinerary, get_itinerary, suggest_activities
//	maps:      get_location_info, get_weather_forecast, get_route, calculate_distance
//	booking:   search_flights, search_hotels, book
//
// Every role answers ping. Unknown methods produce an error envelope.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/wanderkit/mcp-orchestrator-go/internal/wire"
)

func main() {
	role := flag.String("role", "", "server personality: itinerary, maps, or booking")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("role", *role)

	methods, ok := methodTable(*role)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown role %q: want itinerary, maps, or booking\n", *role)
		os.Exit(2)
	}

	if err := serve(log, methods); err != nil {
		log.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

// handler processes one method call.
type handler func(params map[string]any) (any, error)

// serve reads envelope lines from stdin and writes one response line per
// request until stdin closes. Blank lines are keep-alives and are skipped;
// malformed lines are logged and dropped, the stream survives.
func serve(log *slog.Logger, methods map[string]handler) error {
	scanner := bufio.NewScanner(os.Stdin)
	buf := make([]byte, 1024*1024)
	scanner.Buffer(buf, 1024*1024)

	out := bufio.NewWriter(os.Stdout)

	for scanner.Scan() {
		req, err := wire.DecodeRequest(scanner.Bytes())
		if err != nil {
			log.Warn("Dropping malformed request line", "error", err)

			continue
		}

		if req == nil {
			continue
		}

		resp := dispatch(methods, req)

		data, err := wire.EncodeResponse(resp)
		if err != nil {
			// Mock payloads are plain JSON values; an encode failure
			// means a handler bug. Answer with an error envelope.
			data, _ = wire.EncodeResponse(&wire.Response{
				JSONRPC: wire.Version,
				ID:      req.ID,
				Error:   &wire.RespError{Message: err.Error()},
			})
		}

		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("write response: %w", err)
		}

		if err := out.Flush(); err != nil {
			return fmt.Errorf("flush response: %w", err)
		}
	}

	return scanner.Err()
}

func dispatch(methods map[string]handler, req *wire.Request) *wire.Response {
	resp := &wire.Response{JSONRPC: wire.Version, ID: req.ID}

	h, ok := methods[req.Method]
	if !ok {
		resp.Error = &wire.RespError{Message: fmt.Sprintf("unknown method %q", req.Method)}

		return resp
	}

	result, err := h(req.Params)
	if err != nil {
		resp.Error = &wire.RespError{Message: err.Error()}

		return resp
	}

	data, err := marshalResult(result)
	if err != nil {
		resp.Error = &wire.RespError{Message: err.Error()}

		return resp
	}

	resp.Result = data

	return resp
}

// methodTable returns the handler set for one personality.
func methodTable(role string) (map[string]handler, bool) {
	var methods map[string]handler

	switch role {
	case "itinerary":
		methods = itineraryMethods()
	case "maps":
		methods = mapsMethods()
	case "booking":
		methods = bookingMethods()
	default:
		return nil, false
	}

	methods["ping"] = func(map[string]any) (any, error) {
		return map[string]any{"status": "ok", "role": role}, nil
	}

	return methods, true
}
