package client

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"osqueryctl/internal/controlchan"
	"osqueryctl/internal/logging"
)

type stubProcess struct {
	terminateErr error
	terminated   int
	released     int
	exited       bool
}

func (p *stubProcess) PID() int     { return 4242 }
func (p *stubProcess) Exited() bool { return p.exited }

func (p *stubProcess) Terminate() error {
	p.terminated++
	if p.terminateErr != nil {
		return p.terminateErr
	}
	p.exited = true
	return nil
}

func (p *stubProcess) Release() error {
	p.released++
	return nil
}

func seedSocketFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "osquery.em")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("seed socket file: %v", err)
	}
	return path
}

func TestTeardownKillFailureKeepsSocket(t *testing.T) {
	path := seedSocketFile(t)
	proc := &stubProcess{terminateErr: errors.New("operation not permitted")}
	h := &Handle{
		socketPath: path,
		logger:     logging.NewNop(),
		guard:      &teardownGuard{proc: proc, channel: controlchan.New(path), logger: logging.NewNop()},
	}

	err := h.guard.close()
	if !errors.Is(err, ErrTeardown) {
		t.Fatalf("expected ErrTeardown, got %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("socket must stay while the daemon may still own it: %v", statErr)
	}
	if proc.released != 0 {
		t.Fatal("spawn lock released while the daemon is still alive")
	}
	if !h.OwnsProcess() {
		t.Fatal("handle must still own a daemon it failed to kill")
	}

	if again := h.guard.close(); !errors.Is(again, ErrTeardown) {
		t.Fatalf("second close = %v, want first result", again)
	}
	if proc.terminated != 1 {
		t.Fatalf("Terminate called %d times, want 1", proc.terminated)
	}
}

func TestTeardownRemovesSocketAndReleases(t *testing.T) {
	path := seedSocketFile(t)
	proc := &stubProcess{}
	h := &Handle{
		socketPath: path,
		logger:     logging.NewNop(),
		guard:      &teardownGuard{proc: proc, channel: controlchan.New(path), logger: logging.NewNop()},
	}
	if !h.OwnsProcess() || h.PID() != 4242 {
		t.Fatal("expected ownership before teardown")
	}

	if err := h.guard.close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if proc.released != 1 {
		t.Fatalf("Release called %d times, want 1", proc.released)
	}
	if h.OwnsProcess() || h.PID() != 0 {
		t.Fatal("ownership must end with teardown")
	}
}
