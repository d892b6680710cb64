package supervisor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	orcherrors "github.com/wanderkit/mcp-orchestrator-go/internal/errors"
)

func newTestSupervisor(t *testing.T, servers ...Descriptor) *Supervisor {
	t.Helper()

	s, err := New(slog.Default(), Config{
		Servers: servers,
		Grace:   time.Second,
	})
	require.NoError(t, err)

	return s
}

func catServer(name string) Descriptor {
	return Descriptor{Name: name, Path: "/bin/cat", DisplayName: "Cat " + name}
}

func TestNew_RejectsDuplicateNames(t *testing.T) {
	_, err := New(slog.Default(), Config{
		Servers: []Descriptor{catServer("a"), catServer("a")},
	})
	require.Error(t, err)
}

func TestNew_RejectsMissingName(t *testing.T) {
	_, err := New(slog.Default(), Config{
		Servers: []Descriptor{{Path: "/bin/cat"}},
	})
	require.Error(t, err)
}

func TestStartServer_Lifecycle(t *testing.T) {
	s := newTestSupervisor(t, catServer("maps"))
	defer s.StopAll()

	require.Equal(t, StatusStopped, s.Status()["maps"])

	require.NoError(t, s.StartServer(context.Background(), "maps"))
	require.Equal(t, StatusRunning, s.Status()["maps"])

	// Idempotent: a second start on a Running server succeeds.
	require.NoError(t, s.StartServer(context.Background(), "maps"))
	require.Equal(t, StatusRunning, s.Status()["maps"])
}

func TestStartServer_UnknownName(t *testing.T) {
	s := newTestSupervisor(t, catServer("maps"))

	err := s.StartServer(context.Background(), "flights")
	require.ErrorIs(t, err, orcherrors.ErrUnknownServer)
}

func TestStartServer_SpawnFailureLeavesStopped(t *testing.T) {
	s := newTestSupervisor(t, Descriptor{Name: "flights", Path: "/nonexistent/flight-server"})

	err := s.StartServer(context.Background(), "flights")

	var spawnErr *orcherrors.SpawnError
	require.ErrorAs(t, err, &spawnErr)
	require.Equal(t, StatusStopped, s.Status()["flights"])
}

func TestStopServer_Idempotent(t *testing.T) {
	s := newTestSupervisor(t, catServer("maps"))

	require.NoError(t, s.StartServer(context.Background(), "maps"))
	require.NoError(t, s.StopServer("maps"))
	require.Equal(t, StatusStopped, s.Status()["maps"])

	// Second stop yields the same end state, error-free.
	require.NoError(t, s.StopServer("maps"))
	require.Equal(t, StatusStopped, s.Status()["maps"])
}

func TestStartAll_BestEffort(t *testing.T) {
	s := newTestSupervisor(t,
		catServer("maps"),
		Descriptor{Name: "flights", Path: "/nonexistent/flight-server"},
		catServer("booking"),
	)
	defer s.StopAll()

	results := s.StartAll(context.Background())

	// One spawn failure does not block attempting the rest.
	require.Equal(t, map[string]bool{
		"maps":    true,
		"flights": false,
		"booking": true,
	}, results)

	status := s.Status()
	require.Equal(t, StatusRunning, status["maps"])
	require.Equal(t, StatusStopped, status["flights"])
	require.Equal(t, StatusRunning, status["booking"])
}

func TestStopAll(t *testing.T) {
	s := newTestSupervisor(t, catServer("a"), catServer("b"))

	s.StartAll(context.Background())

	results := s.StopAll()
	require.Equal(t, map[string]bool{"a": true, "b": true}, results)

	for name, status := range s.Status() {
		require.Equal(t, StatusStopped, status, "server %s", name)
	}
}

func TestRestartServer_NewHandle(t *testing.T) {
	s := newTestSupervisor(t, catServer("maps"))
	defer s.StopAll()

	require.NoError(t, s.StartServer(context.Background(), "maps"))

	first, _, err := s.Lookup("maps")
	require.NoError(t, err)

	require.NoError(t, s.RestartServer(context.Background(), "maps"))

	second, status, err := s.Lookup("maps")
	require.NoError(t, err)
	require.Equal(t, StatusRunning, status)
	require.NotSame(t, first, second)
}

func TestMarkCrashed(t *testing.T) {
	s := newTestSupervisor(t, catServer("maps"))
	defer s.StopAll()

	require.NoError(t, s.StartServer(context.Background(), "maps"))

	handle, _, err := s.Lookup("maps")
	require.NoError(t, err)

	s.MarkCrashed("maps", handle)
	require.Equal(t, StatusCrashed, s.Status()["maps"])

	// A crashed server stops cleanly back to Stopped.
	require.NoError(t, s.StopServer("maps"))
	require.Equal(t, StatusStopped, s.Status()["maps"])
}

// StartServer recovers a Crashed server directly: the dead process was
// already reaped, so no explicit stop is required first.
func TestStartServer_RecoversCrashed(t *testing.T) {
	s := newTestSupervisor(t, catServer("maps"))
	defer s.StopAll()

	require.NoError(t, s.StartServer(context.Background(), "maps"))

	crashed, _, err := s.Lookup("maps")
	require.NoError(t, err)

	s.MarkCrashed("maps", crashed)
	require.Equal(t, StatusCrashed, s.Status()["maps"])

	require.NoError(t, s.StartServer(context.Background(), "maps"))

	fresh, status, err := s.Lookup("maps")
	require.NoError(t, err)
	require.Equal(t, StatusRunning, status)
	require.NotSame(t, crashed, fresh)
}

// A stale handle from before a restart must not clobber the fresh process.
func TestMarkCrashed_StaleHandle(t *testing.T) {
	s := newTestSupervisor(t, catServer("maps"))
	defer s.StopAll()

	require.NoError(t, s.StartServer(context.Background(), "maps"))

	stale, _, err := s.Lookup("maps")
	require.NoError(t, err)

	require.NoError(t, s.RestartServer(context.Background(), "maps"))

	s.MarkCrashed("maps", stale)
	require.Equal(t, StatusRunning, s.Status()["maps"])
}

func TestHealthCheck_NoPinger(t *testing.T) {
	s := newTestSupervisor(t, catServer("maps"), catServer("booking"))
	defer s.StopAll()

	require.NoError(t, s.StartServer(context.Background(), "maps"))

	// Without a pinger the check degrades to a liveness poll; servers that
	// are not Running report false.
	health := s.HealthCheck(context.Background())
	require.Equal(t, map[string]bool{"maps": true, "booking": false}, health)
}

func TestHealthCheck_PingerFailureReported(t *testing.T) {
	s := newTestSupervisor(t, catServer("maps"))
	defer s.StopAll()

	require.NoError(t, s.StartServer(context.Background(), "maps"))

	s.SetPinger(func(ctx context.Context, server string, timeout time.Duration) error {
		return fmt.Errorf("no pong")
	})

	health := s.HealthCheck(context.Background())
	require.False(t, health["maps"])

	// Failures are reported, never auto-remediated.
	require.Equal(t, StatusRunning, s.Status()["maps"])
}

// Concurrent starts for the same name are serialized and idempotent.
func TestStartServer_ConcurrentSameName(t *testing.T) {
	s := newTestSupervisor(t, catServer("maps"))
	defer s.StopAll()

	var wg sync.WaitGroup

	for range 8 {
		wg.Go(func() {
			_ = s.StartServer(context.Background(), "maps")
		})
	}

	wg.Wait()

	require.Equal(t, StatusRunning, s.Status()["maps"])
}

// Process handles scope the base logger themselves; a line logged by the
// subprocess layer carries exactly one component attribute.
func TestStartServer_ProcessLogScope(t *testing.T) {
	var buf bytes.Buffer

	s, err := New(slog.New(slog.NewTextHandler(&buf, nil)), Config{
		Servers: []Descriptor{catServer("maps")},
		Grace:   time.Second,
	})
	require.NoError(t, err)

	defer s.StopAll()

	require.NoError(t, s.StartServer(context.Background(), "maps"))

	var processLine string

	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "Server process started") {
			processLine = line

			break
		}
	}

	require.NotEmpty(t, processLine)
	require.Contains(t, processLine, "component=process")
	require.Equal(t, 1, strings.Count(processLine, "component="))
}

func TestDescribe(t *testing.T) {
	s := newTestSupervisor(t, catServer("maps"))
	defer s.StopAll()

	require.NoError(t, s.StartServer(context.Background(), "maps"))

	info := s.Describe()["maps"]
	require.Equal(t, "maps", info.Name)
	require.Equal(t, "Cat maps", info.DisplayName)
	require.Equal(t, StatusRunning, info.Status)
	require.Positive(t, info.Pid)
}
