package daemonctl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"osqueryctl/internal/controlchan"
	"osqueryctl/internal/logging"
)

// WaitReady dials ch until a connection succeeds, closes that connection, and
// returns the number of attempts made. Failed dials are retried immediately.
// It only gives up when ctx is done.
func WaitReady(ctx context.Context, ch controlchan.Channel) (int, error) {
	for attempts := 1; ; attempts++ {
		if err := ctx.Err(); err != nil {
			return attempts - 1, err
		}
		conn, err := ch.Open(0)
		if err != nil {
			continue
		}
		_ = conn.Close()
		return attempts, nil
	}
}

// Spawn launches the daemon and blocks until its socket is connectable. If ctx
// ends first, the daemon is killed, its socket removed, and the lock released.
func Spawn(ctx context.Context, executablePath string, ch controlchan.Channel, logger *slog.Logger) (*Process, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	proc, err := Launch(executablePath, ch, logger)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	attempts, err := WaitReady(ctx, ch)
	if err != nil {
		if termErr := proc.Terminate(); termErr != nil {
			logger.Error("abandoned daemon still running", logging.Int("pid", proc.PID()), logging.Error(termErr))
		} else if cleanErr := ch.Cleanup(); cleanErr != nil {
			logger.Error("abandoned daemon socket not removed", logging.Error(cleanErr))
		}
		if relErr := proc.Release(); relErr != nil {
			logger.Warn("spawn lock not released", logging.Error(relErr))
		}
		return nil, fmt.Errorf("wait for daemon socket %s: %w", ch.Address(), err)
	}

	logger.Debug("daemon socket ready",
		logging.String(logging.FieldSocket, ch.Address()),
		logging.Int("attempts", attempts),
		logging.Duration("elapsed", time.Since(start)),
	)
	return proc, nil
}
