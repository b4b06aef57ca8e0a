package daemonctl

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/gofrs/flock"

	"osqueryctl/internal/controlchan"
	"osqueryctl/internal/logging"
)

// ErrSpawn indicates the daemon executable could not be started.
var ErrSpawn = errors.New("spawn failure")

// Args returns the fixed osqueryd arguments for a daemon bound to socket.
func Args(socket string) []string {
	return []string{
		"--extensions_socket", socket,
		"--disable_database",
		"--disable_watchdog",
		"--disable_logging",
		"--ephemeral",
		"--config_path", "/dev/null",
	}
}

// Process is a daemon started by Launch.
type Process struct {
	cmd    *exec.Cmd
	lock   *flock.Flock
	logger *slog.Logger
}

// Launch starts executablePath bound to ch with stdin, stdout, and stderr
// attached to the null device. When the channel has a lock path, the lock is
// held until Release so only one launcher owns the socket at a time.
func Launch(executablePath string, ch controlchan.Channel, logger *slog.Logger) (*Process, error) {
	if strings.TrimSpace(executablePath) == "" {
		return nil, fmt.Errorf("%w: executable path is empty", ErrSpawn)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	var lock *flock.Flock
	if lockPath := ch.LockPath(); lockPath != "" {
		lock = flock.New(lockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("%w: acquire spawn lock %s: %w", ErrSpawn, lockPath, err)
		}
		if !locked {
			return nil, fmt.Errorf("%w: socket %s is owned by another launcher", ErrSpawn, ch.Address())
		}
	}

	cmd := exec.Command(executablePath, Args(ch.Address())...)
	configureSysProcAttr(cmd)
	if err := cmd.Start(); err != nil {
		p := &Process{lock: lock}
		if releaseErr := p.Release(); releaseErr != nil {
			logger.Warn("spawn lock not released", logging.Error(releaseErr))
		}
		return nil, fmt.Errorf("%w: launch %s: %w", ErrSpawn, executablePath, err)
	}

	logger.Debug("daemon started",
		logging.Int("pid", cmd.Process.Pid),
		logging.String(logging.FieldSocket, ch.Address()),
	)
	return &Process{cmd: cmd, lock: lock, logger: logger}, nil
}

// PID returns the daemon process id.
func (p *Process) PID() int {
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Exited reports whether the process has been reaped.
func (p *Process) Exited() bool {
	return p != nil && p.cmd != nil && p.cmd.ProcessState != nil
}

// Terminate kills the daemon and reaps it. A daemon that already exited
// counts as terminated. Terminate must be called at most once.
func (p *Process) Terminate() error {
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	pid := p.cmd.Process.Pid
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	// The exit status after SIGKILL is always an error; only reaping matters.
	_ = p.cmd.Wait()
	p.logger.Debug("daemon terminated", logging.Int("pid", pid))
	return nil
}

// Release drops the spawn lock and removes its file.
func (p *Process) Release() error {
	if p == nil || p.lock == nil {
		return nil
	}
	lock := p.lock
	p.lock = nil
	if err := lock.Unlock(); err != nil {
		return fmt.Errorf("release spawn lock %s: %w", lock.Path(), err)
	}
	if err := os.Remove(lock.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove spawn lock %s: %w", lock.Path(), err)
	}
	return nil
}
