// Package wire implements the line-framed JSON-RPC 2.0 envelope codec used
// between the orchestrator and its backend server processes. One envelope
// per newline-terminated UTF-8 line, no embedded newlines.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/wanderkit/mcp-orchestrator-go/internal/errors"
)

// Version is the protocol tag carried by every envelope.
const Version = "2.0"

// Request is one outgoing call envelope.
type Request struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int64          `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

// RespError is the error member of a response envelope.
type RespError struct {
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Response is one incoming reply envelope. Exactly one of Result and Error
// is meaningful; servers that set neither produce a null Result.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RespError      `json:"error,omitempty"`
}

// NewRequest builds a request envelope with the protocol tag set.
func NewRequest(id int64, method string, params map[string]any) *Request {
	if params == nil {
		params = map[string]any{}
	}

	return &Request{
		JSONRPC: Version,
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// EncodeRequest serializes one request envelope as a single JSON line.
//
// Returns EncodingError if the params are not serializable or would embed a
// newline in the frame. Nothing is written to any stream by this function,
// so an EncodingError guarantees no bytes reached the server.
func EncodeRequest(req *Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, &errors.EncodingError{Err: err}
	}

	// json.Marshal never emits raw newlines, but params may have smuggled
	// one in via json.RawMessage. The frame boundary is sacred.
	if bytes.ContainsRune(data, '\n') {
		return nil, &errors.EncodingError{Err: fmt.Errorf("encoded envelope contains newline")}
	}

	return append(data, '\n'), nil
}

// DecodeResponse parses one stdout line into a response envelope.
//
// A blank or whitespace-only line is a keep-alive: it returns (nil, nil)
// and the caller should skip it. Malformed JSON or a missing id returns
// ProtocolError carrying the raw line for diagnostics.
func DecodeResponse(line []byte) (*Response, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var probe struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      *int64          `json:"id"`
		Result  json.RawMessage `json:"result"`
		Error   *RespError      `json:"error"`
	}

	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, &errors.ProtocolError{
			RawLine: string(trimmed),
			Err:     fmt.Errorf("malformed JSON: %w", err),
		}
	}

	if probe.ID == nil {
		return nil, &errors.ProtocolError{
			RawLine: string(trimmed),
			Err:     fmt.Errorf("envelope missing id"),
		}
	}

	return &Response{
		JSONRPC: probe.JSONRPC,
		ID:      *probe.ID,
		Result:  probe.Result,
		Error:   probe.Error,
	}, nil
}

// EncodeResponse serializes one response envelope as a single JSON line.
// Used by backend servers; the orchestrator side only decodes responses.
func EncodeResponse(resp *Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, &errors.EncodingError{Err: err}
	}

	if bytes.ContainsRune(data, '\n') {
		return nil, &errors.EncodingError{Err: fmt.Errorf("encoded envelope contains newline")}
	}

	return append(data, '\n'), nil
}

// DecodeRequest parses one stdin line into a request envelope. Used by
// backend servers. Blank lines are keep-alives, returned as (nil, nil).
func DecodeRequest(line []byte) (*Request, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var probe struct {
		JSONRPC string         `json:"jsonrpc"`
		ID      *int64         `json:"id"`
		Method  string         `json:"method"`
		Params  map[string]any `json:"params"`
	}

	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, &errors.ProtocolError{
			RawLine: string(trimmed),
			Err:     fmt.Errorf("malformed JSON: %w", err),
		}
	}

	if probe.ID == nil {
		return nil, &errors.ProtocolError{
			RawLine: string(trimmed),
			Err:     fmt.Errorf("envelope missing id"),
		}
	}

	return &Request{
		JSONRPC: probe.JSONRPC,
		ID:      *probe.ID,
		Method:  probe.Method,
		Params:  probe.Params,
	}, nil
}
