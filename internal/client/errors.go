package client

import (
	"errors"

	"osqueryctl/internal/daemonctl"
	"osqueryctl/internal/ipc"
)

var (
	// ErrSpawn indicates the daemon executable could not be started.
	ErrSpawn = daemonctl.ErrSpawn
	// ErrConnect indicates the control channel could not be reached.
	ErrConnect = ipc.ErrConnect
	// ErrTimeout indicates a call exceeded the per-operation I/O bound.
	ErrTimeout = ipc.ErrTimeout
	// ErrProtocol indicates a malformed, failed, or interrupted RPC exchange.
	ErrProtocol = ipc.ErrProtocol
	// ErrTeardown indicates the spawned daemon could not be killed or its
	// socket could not be removed.
	ErrTeardown = errors.New("teardown failure")
)

// QueryError is returned by Handle calls; it carries the query text.
type QueryError = ipc.QueryError
