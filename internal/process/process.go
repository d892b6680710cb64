package process

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/wanderkit/mcp-orchestrator-go/internal/errors"
)

const (
	// maxScanTokenSize is the maximum buffer size for reading server output lines.
	maxScanTokenSize = 1024 * 1024 // 1MB
	// maxStderrBufferSize caps the stderr buffer used for crash reporting.
	// Stderr draining continues past the cap; only the buffer stops growing.
	maxStderrBufferSize = 256 * 1024 // 256KB
	// lineChannelDepth bounds how many undelivered stdout lines are held
	// before the pump goroutine blocks.
	lineChannelDepth = 64
)

// Handle owns one backend server subprocess: its pipes, a stdout line pump,
// and a stderr drain. A Handle is single-use; after Terminate it cannot be
// restarted, the supervisor creates a fresh one instead.
type Handle struct {
	log  *slog.Logger
	name string
	path string
	args []string

	cmd   *exec.Cmd
	stdin io.WriteCloser

	mu          sync.Mutex // protects stdin writes and the flags below
	started     bool
	stdinClosed bool
	closing     bool

	lines    chan []byte
	exited   chan struct{}
	stop     chan struct{}
	stopOnce sync.Once

	waitMu  sync.Mutex
	waitErr error

	stderrMu  sync.Mutex
	stderrBuf strings.Builder
}

// New creates an unstarted handle for the given executable.
func New(log *slog.Logger, name, path string, args ...string) *Handle {
	return &Handle{
		log:    log.With("component", "process", "server", name),
		name:   name,
		path:   path,
		args:   args,
		lines:  make(chan []byte, lineChannelDepth),
		exited: make(chan struct{}),
		stop:   make(chan struct{}),
	}
}

// Start spawns the executable with stdin/stdout/stderr pipes and begins
// pumping stdout lines. Returns SpawnError if the executable is missing or
// the process cannot be forked.
func (h *Handle) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return &errors.SpawnError{Server: h.name, Err: fmt.Errorf("handle already started")}
	}

	if err := ctx.Err(); err != nil {
		return &errors.SpawnError{Server: h.name, Err: err}
	}

	//nolint:gosec // G204: the executable path comes from the static server map
	cmd := exec.Command(h.path, h.args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &errors.SpawnError{Server: h.name, Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &errors.SpawnError{Server: h.name, Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &errors.SpawnError{Server: h.name, Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		return &errors.SpawnError{Server: h.name, Err: fmt.Errorf("start process: %w", err)}
	}

	h.cmd = cmd
	h.stdin = stdin
	h.started = true

	h.log.Info("Server process started", "pid", cmd.Process.Pid)

	var stderrWg sync.WaitGroup

	stderrWg.Go(func() {
		h.drainStderr(stderr)
	})

	go h.pump(stdout, &stderrWg)

	return nil
}

// pump reads stdout lines into the lines channel until the stream closes,
// then reaps the process. Relies on process kill to close the pipe and
// unblock Scan, same as terminate does.
func (h *Handle) pump(stdout io.Reader, stderrWg *sync.WaitGroup) {
	defer close(h.exited)
	defer close(h.lines)

	scanner := bufio.NewScanner(stdout)
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	for scanner.Scan() {
		// Scanner reuses its buffer; hand consumers their own copy.
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())

		select {
		case h.lines <- line:
		case <-h.stop:
			// Terminate in progress and nobody is reading; drop the line
			// so reaping the process is never blocked on delivery.
		}
	}

	if err := scanner.Err(); err != nil {
		h.log.Debug("Stdout scanner stopped", "error", err)
	}

	stderrWg.Wait()

	err := h.cmd.Wait()

	h.waitMu.Lock()
	h.waitErr = err
	h.waitMu.Unlock()

	h.mu.Lock()
	closing := h.closing
	h.mu.Unlock()

	switch {
	case closing:
		h.log.Debug("Server process terminated during shutdown")
	case err != nil:
		h.log.Warn("Server process exited with error", "error", err, "stderr", h.StderrTail())
	default:
		h.log.Info("Server process exited")
	}
}

// drainStderr buffers stderr for crash reporting, capped at maxStderrBufferSize.
func (h *Handle) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		h.stderrMu.Lock()

		if h.stderrBuf.Len() < maxStderrBufferSize {
			if h.stderrBuf.Len() > 0 {
				h.stderrBuf.WriteString("\n")
			}

			h.stderrBuf.WriteString(scanner.Text())
		}

		h.stderrMu.Unlock()
	}
}

// Send writes one framed line to the server's stdin. Writes are serialized;
// at most one Send is in flight even when many request ids are pending.
func (h *Handle) Send(ctx context.Context, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return errors.ErrProcessNotStarted
	}

	if h.stdinClosed {
		return errors.ErrStdinClosed
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := h.stdin.Write(data); err != nil {
		h.log.Debug("Stdin write failed", "error", err)

		return fmt.Errorf("write to stdin: %w", err)
	}

	return nil
}

// ReceiveLine returns the next stdout line. It fails with ErrReceiveTimeout
// once the budget expires and with ErrEOF when the stream has closed.
// A zero timeout waits until the line arrives, EOF, or ctx is done.
func (h *Handle) ReceiveLine(ctx context.Context, timeout time.Duration) ([]byte, error) {
	var expired <-chan time.Time

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		expired = timer.C
	}

	select {
	case line, ok := <-h.lines:
		if !ok {
			return nil, errors.ErrEOF
		}

		return line, nil

	case <-expired:
		return nil, errors.ErrReceiveTimeout

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Terminate stops the process: SIGTERM, wait up to grace, then SIGKILL.
// It never returns an error and only returns once the process is reaped.
// Safe to call on an unstarted or already-dead handle, and to call twice.
func (h *Handle) Terminate(grace time.Duration) {
	h.mu.Lock()

	if !h.started {
		h.mu.Unlock()

		return
	}

	h.closing = true

	if !h.stdinClosed {
		_ = h.stdin.Close()
		h.stdinClosed = true
	}

	cmd := h.cmd
	h.mu.Unlock()

	h.stopOnce.Do(func() { close(h.stop) })

	select {
	case <-h.exited:
		return
	default:
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		h.log.Debug("SIGTERM failed, process likely gone", "error", err)
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-h.exited:
		return
	case <-timer.C:
	}

	h.log.Warn("Grace period expired, force killing", "pid", cmd.Process.Pid)

	if err := cmd.Process.Kill(); err != nil {
		h.log.Debug("Kill failed, process likely gone", "error", err)
	}

	<-h.exited
}

// IsAlive reports whether the process is still running. Non-blocking.
func (h *Handle) IsAlive() bool {
	h.mu.Lock()
	started := h.started
	h.mu.Unlock()

	if !started {
		return false
	}

	select {
	case <-h.exited:
		return false
	default:
		return true
	}
}

// Exited returns a channel closed once the process has been reaped.
func (h *Handle) Exited() <-chan struct{} {
	return h.exited
}

// Pid returns the OS process id, or 0 if the process never started.
func (h *Handle) Pid() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started || h.cmd.Process == nil {
		return 0
	}

	return h.cmd.Process.Pid
}

// Name returns the server name this handle was created for.
func (h *Handle) Name() string {
	return h.name
}

// StderrTail returns the buffered stderr output for crash reporting.
func (h *Handle) StderrTail() string {
	h.stderrMu.Lock()
	defer h.stderrMu.Unlock()

	return h.stderrBuf.String()
}
