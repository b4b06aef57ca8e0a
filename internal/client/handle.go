package client

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/osquery/osquery-go/gen/osquery"

	"osqueryctl/internal/controlchan"
	"osqueryctl/internal/daemonctl"
	"osqueryctl/internal/ipc"
	"osqueryctl/internal/logging"
)

// Handle owns a socket path and, optionally, the daemon listening on it.
// Configure it before the first call; a Handle is not safe for concurrent use.
type Handle struct {
	socketPath string
	logger     *slog.Logger
	guard      *teardownGuard
	cleanup    runtime.Cleanup
}

// New returns a Handle for the platform default socket with no owned process.
func New() *Handle {
	return &Handle{
		socketPath: controlchan.DefaultAddress,
		logger:     logging.NewNop(),
	}
}

// WithSocket replaces the socket path and returns h.
func (h *Handle) WithSocket(path string) *Handle {
	h.socketPath = path
	return h
}

// WithLogger sets the logger and returns h. A nil logger discards output.
func (h *Handle) WithLogger(logger *slog.Logger) *Handle {
	if logger == nil {
		logger = logging.NewNop()
	}
	h.logger = logging.NewComponentLogger(logger, "osquery")
	return h
}

// SocketPath returns the current socket path.
func (h *Handle) SocketPath() string {
	return h.socketPath
}

// OwnsProcess reports whether h spawned the daemon it talks to and that
// daemon has not been torn down yet.
func (h *Handle) OwnsProcess() bool {
	return h.guard != nil && h.guard.proc != nil && !h.guard.proc.Exited()
}

// PID returns the spawned daemon's process id, or 0 when h owns no process.
func (h *Handle) PID() int {
	if !h.OwnsProcess() {
		return 0
	}
	return h.guard.proc.PID()
}

// SpawnProcess starts executable bound to the current socket path and blocks
// until the socket accepts connections. The wait has no timeout: a daemon that
// never binds the socket blocks the caller forever.
func (h *Handle) SpawnProcess(executable string) error {
	return h.SpawnProcessContext(context.Background(), executable)
}

// SpawnProcessContext is SpawnProcess with a readiness wait that ends when ctx
// does. On cancellation the started daemon is killed before returning.
func (h *Handle) SpawnProcessContext(ctx context.Context, executable string) error {
	if h.OwnsProcess() {
		return fmt.Errorf("%w: handle already owns daemon process %d", ErrSpawn, h.PID())
	}
	ch := controlchan.New(h.socketPath)
	proc, err := daemonctl.Spawn(ctx, executable, ch, h.logger)
	if err != nil {
		return err
	}

	h.guard = &teardownGuard{proc: proc, channel: ch, logger: h.logger}
	h.cleanup = runtime.AddCleanup(h, func(g *teardownGuard) {
		if err := g.close(); err != nil {
			g.logger.Error("daemon teardown failed for unreachable handle",
				logging.String(logging.FieldSocket, g.channel.Address()),
				logging.Error(err),
			)
		}
	}, h.guard)
	return nil
}

// Query runs sql and returns the daemon's response unmodified. Failures are
// *QueryError values.
func (h *Handle) Query(sql string) (*osquery.ExtensionResponse, error) {
	return h.caller().Query(sql)
}

// Columns returns one row per result column of sql, mapping name to type.
func (h *Handle) Columns(sql string) (*osquery.ExtensionResponse, error) {
	return h.caller().Columns(sql)
}

// Ping returns the extension manager status.
func (h *Handle) Ping() (*osquery.ExtensionStatus, error) {
	return h.caller().Ping()
}

// Close kills an owned daemon and removes the socket it created. It runs the
// teardown once; later calls return the first result. Closing a Handle that
// only attached to a socket does nothing.
func (h *Handle) Close() error {
	if h.guard == nil {
		return nil
	}
	h.cleanup.Stop()
	return h.guard.close()
}

func (h *Handle) caller() *ipc.Caller {
	return ipc.NewCaller(h.socketPath, h.logger)
}

// daemonProcess is the part of *daemonctl.Process that teardown needs.
type daemonProcess interface {
	PID() int
	Exited() bool
	Terminate() error
	Release() error
}

// teardownGuard holds everything Close releases. It is separate from Handle
// so a GC cleanup can run it after the Handle itself is unreachable.
type teardownGuard struct {
	proc    daemonProcess
	channel controlchan.Channel
	logger  *slog.Logger

	once sync.Once
	err  error
}

func (g *teardownGuard) close() error {
	g.once.Do(g.run)
	return g.err
}

func (g *teardownGuard) run() {
	if err := g.proc.Terminate(); err != nil {
		// The daemon still holds the socket; removing it now would orphan it.
		g.err = fmt.Errorf("%w: %w", ErrTeardown, err)
		return
	}

	if err := g.channel.Cleanup(); err != nil {
		g.err = fmt.Errorf("%w: %w", ErrTeardown, err)
	}
	if err := g.proc.Release(); err != nil {
		g.logger.Warn("spawn lock not released", logging.Error(err))
	}
	g.logger.Debug("teardown complete", logging.String(logging.FieldSocket, g.channel.Address()))
}
