package coordinator

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wanderkit/mcp-orchestrator-go/internal/errors"
	"github.com/wanderkit/mcp-orchestrator-go/internal/process"
	"github.com/wanderkit/mcp-orchestrator-go/internal/supervisor"
	"github.com/wanderkit/mcp-orchestrator-go/internal/wire"
)

// Coordinator issues correlated requests to named servers. It is the only
// component that touches wire bytes per request; it knows nothing about
// composite operations.
//
// Per server process the coordinator keeps one session: a monotonic id
// counter, a pending map, and a dispatch goroutine that routes incoming
// envelopes to waiters by id. Responses are not assumed FIFO; an envelope
// with no registered waiter is discarded, and a waiter only ever observes
// its own id.
type Coordinator struct {
	log *slog.Logger
	sup *supervisor.Supervisor

	mu       sync.Mutex
	sessions map[string]*session
}

// session binds one process handle to an id space. A restarted server gets
// a fresh session, so ids are unique within one process's lifetime.
type session struct {
	log    *slog.Logger
	server string
	handle *process.Handle

	nextID atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]chan *wire.Response

	// done is closed when the dispatch loop exits (stream EOF).
	done chan struct{}
}

// New creates a coordinator over the supervisor's server map.
func New(log *slog.Logger, sup *supervisor.Supervisor) *Coordinator {
	return &Coordinator{
		log:      log.With("component", "coordinator"),
		sup:      sup,
		sessions: make(map[string]*session, 8),
	}
}

// Call sends one request to a named server and waits for the matching
// response within the timeout budget.
//
// A server that is not Running fails immediately with ServerUnavailable.
// Timeout expiry cancels only this call's wait; the subprocess is left
// running and stays usable for subsequent calls. A closed stdout stream
// marks the server Crashed and fails every pending call on it.
func (c *Coordinator) Call(
	ctx context.Context,
	server string,
	method string,
	params map[string]any,
	timeout time.Duration,
) (json.RawMessage, error) {
	handle, status, err := c.sup.Lookup(server)
	if err != nil {
		return nil, &errors.CallError{
			Kind:   errors.KindServerUnavailable,
			Server: server,
			Method: method,
			Err:    err,
		}
	}

	if status != supervisor.StatusRunning || handle == nil {
		return nil, &errors.CallError{
			Kind:   errors.KindServerUnavailable,
			Server: server,
			Method: method,
			Err:    fmt.Errorf("server is %s", status),
		}
	}

	sess := c.session(server, handle)

	id := sess.nextID.Add(1)
	respChan := make(chan *wire.Response, 1)

	sess.register(id, respChan)

	data, err := wire.EncodeRequest(wire.NewRequest(id, method, params))
	if err != nil {
		sess.unregister(id)

		// EncodingError: caller error, nothing was sent.
		return nil, err
	}

	c.log.Debug("Sending request", "server", server, "method", method, "id", id)

	if err := handle.Send(ctx, data); err != nil {
		sess.unregister(id)

		if stderrors.Is(err, errors.ErrStdinClosed) || stderrors.Is(err, errors.ErrProcessNotStarted) {
			return nil, &errors.CallError{
				Kind:   errors.KindServerUnavailable,
				Server: server,
				Method: method,
				Err:    err,
			}
		}

		// A failed pipe write means the process is gone.
		c.sup.MarkCrashed(server, handle)

		return nil, &errors.CallError{
			Kind:   errors.KindServerCrashed,
			Server: server,
			Method: method,
			Err:    err,
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-respChan:
		if resp.Error != nil {
			c.log.Debug("Server returned error", "server", server, "method", method, "id", id, "error", resp.Error.Message)

			return nil, &errors.CallError{
				Kind:   errors.KindRemoteError,
				Server: server,
				Method: method,
				Err:    fmt.Errorf("%s", resp.Error.Message),
			}
		}

		return resp.Result, nil

	case <-sess.done:
		sess.unregister(id)

		return nil, &errors.CallError{
			Kind:   errors.KindServerCrashed,
			Server: server,
			Method: method,
			Err:    errors.ErrEOF,
		}

	case <-timer.C:
		sess.unregister(id)

		c.log.Warn("Request timed out", "server", server, "method", method, "id", id, "timeout", timeout)

		return nil, &errors.CallError{
			Kind:   errors.KindTimeout,
			Server: server,
			Method: method,
			Err:    fmt.Errorf("no response within %s", timeout),
		}

	case <-ctx.Done():
		sess.unregister(id)

		return nil, ctx.Err()
	}
}

// Ping performs a health-check round-trip against a server. The supervisor
// uses this, via the facade, as its Pinger.
func (c *Coordinator) Ping(ctx context.Context, server string, timeout time.Duration) error {
	_, err := c.Call(ctx, server, "ping", nil, timeout)

	return err
}

// session returns the session bound to the server's current handle,
// creating a fresh one after a restart. The previous session's dispatch
// goroutine winds down on its own when its stream closes.
func (c *Coordinator) session(server string, handle *process.Handle) *session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sess, ok := c.sessions[server]; ok && sess.handle == handle {
		return sess
	}

	sess := &session{
		log:     c.log.With("server", server),
		server:  server,
		handle:  handle,
		pending: make(map[int64]chan *wire.Response, 8),
		done:    make(chan struct{}),
	}

	c.sessions[server] = sess

	go c.dispatch(sess)

	return sess
}

// dispatch routes incoming envelopes to waiters by id until the stream
// closes. Malformed lines are dropped; blank keep-alive lines are skipped;
// envelopes with no waiter are discarded.
func (c *Coordinator) dispatch(sess *session) {
	defer close(sess.done)

	ctx := context.Background()

	for {
		line, err := sess.handle.ReceiveLine(ctx, 0)
		if err != nil {
			// ErrEOF is the only failure mode with a zero timeout and a
			// background context.
			sess.log.Debug("Dispatch loop stopped", "error", err)
			c.sup.MarkCrashed(sess.server, sess.handle)

			return
		}

		resp, err := wire.DecodeResponse(line)
		if err != nil {
			sess.log.Warn("Dropping malformed line", "error", err)

			continue
		}

		if resp == nil {
			// Keep-alive.
			continue
		}

		if waiter, ok := sess.claim(resp.ID); ok {
			waiter <- resp
		} else {
			sess.log.Debug("Discarding response with no waiter", "id", resp.ID)
		}
	}
}

func (s *session) register(id int64, ch chan *wire.Response) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	s.pending[id] = ch
}

func (s *session) unregister(id int64) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	delete(s.pending, id)
}

// claim atomically removes and returns the waiter for an id.
func (s *session) claim(id int64) (chan *wire.Response, bool) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	ch, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}

	return ch, ok
}
