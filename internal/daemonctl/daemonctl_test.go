//go:build !windows

package daemonctl_test

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"osqueryctl/internal/controlchan"
	"osqueryctl/internal/daemonctl"
	"osqueryctl/internal/ipc"
	"osqueryctl/internal/testsupport"
)

func TestMain(m *testing.M) {
	if testsupport.IsHelperDaemon() {
		os.Exit(testsupport.RunHelperDaemon(os.Args[1:]))
	}
	os.Exit(m.Run())
}

func TestArgsBindSocketAndDisableSideEffects(t *testing.T) {
	want := []string{
		"--extensions_socket", "/tmp/osq.sock",
		"--disable_database",
		"--disable_watchdog",
		"--disable_logging",
		"--ephemeral",
		"--config_path", "/dev/null",
	}
	if got := daemonctl.Args("/tmp/osq.sock"); !slices.Equal(got, want) {
		t.Fatalf("Args = %v, want %v", got, want)
	}
}

func TestLaunchMissingBinaryFailsWithSpawnFailure(t *testing.T) {
	ch := controlchan.New(testsupport.ShortSocketPath(t))

	_, err := daemonctl.Launch(filepath.Join(t.TempDir(), "no-such-osqueryd"), ch, nil)
	if !errors.Is(err, daemonctl.ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
	if testsupport.FileExists(t, ch.LockPath()) {
		t.Fatal("spawn lock left behind after failed launch")
	}
}

func TestLaunchEmptyPathFails(t *testing.T) {
	ch := controlchan.New(testsupport.ShortSocketPath(t))
	if _, err := daemonctl.Launch("  ", ch, nil); !errors.Is(err, daemonctl.ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
}

func TestLaunchRefusesSocketOwnedElsewhere(t *testing.T) {
	ch := controlchan.New(testsupport.ShortSocketPath(t))
	other := flock.New(ch.LockPath())
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("pre-lock: locked=%v err=%v", locked, err)
	}
	t.Cleanup(func() { _ = other.Unlock() })

	exe := testsupport.UseHelperDaemon(t, testsupport.HelperServe)
	if _, err := daemonctl.Launch(exe, ch, nil); !errors.Is(err, daemonctl.ErrSpawn) {
		t.Fatalf("expected ErrSpawn for held lock, got %v", err)
	}
}

func TestWaitReadyReturnsOnceSocketListens(t *testing.T) {
	socket := testsupport.ShortSocketPath(t)
	ch := controlchan.New(socket)

	listening := make(chan net.Listener, 1)
	go func() {
		time.Sleep(100 * time.Millisecond)
		ln, err := net.Listen("unix", socket)
		if err != nil {
			t.Errorf("listen: %v", err)
			close(listening)
			return
		}
		listening <- ln
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	attempts, err := daemonctl.WaitReady(ctx, ch)
	if err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	if attempts < 2 {
		t.Fatalf("expected retries before the socket existed, got %d attempts", attempts)
	}
	if ln, ok := <-listening; ok {
		_ = ln.Close()
	}
}

func TestWaitReadyStopsWhenContextEnds(t *testing.T) {
	ch := controlchan.New(testsupport.ShortSocketPath(t))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := daemonctl.WaitReady(ctx, ch)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestSpawnServesQueriesUntilTerminated(t *testing.T) {
	socket := testsupport.ShortSocketPath(t)
	ch := controlchan.New(socket)
	exe := testsupport.UseHelperDaemon(t, testsupport.HelperServe)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	proc, err := daemonctl.Spawn(ctx, exe, ch, nil)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if proc.PID() <= 0 {
		t.Fatalf("unexpected pid %d", proc.PID())
	}

	resp, err := ipc.Query(socket, "select * from time")
	if err != nil {
		t.Fatalf("Query after Spawn: %v", err)
	}
	if resp.GetStatus().GetCode() != 0 {
		t.Fatalf("status = %d", resp.GetStatus().GetCode())
	}

	if err := proc.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if !proc.Exited() {
		t.Fatal("expected process to be reaped")
	}
	if err := ch.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if err := proc.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if testsupport.FileExists(t, socket) || testsupport.FileExists(t, ch.LockPath()) {
		t.Fatal("socket or lock file left behind")
	}
}

func TestSpawnCancelledCleansUp(t *testing.T) {
	socket := testsupport.ShortSocketPath(t)
	ch := controlchan.New(socket)
	exe := testsupport.UseHelperDaemon(t, testsupport.HelperStall)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if _, err := daemonctl.Spawn(ctx, exe, ch, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if testsupport.FileExists(t, ch.LockPath()) {
		t.Fatal("spawn lock left behind after cancelled spawn")
	}
}
