package ipc

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrConnect indicates the control channel could not be reached.
	ErrConnect = errors.New("connect failure")
	// ErrTimeout indicates a read or write exceeded CallTimeout.
	ErrTimeout = errors.New("transport timeout")
	// ErrProtocol indicates a malformed, failed, or interrupted RPC exchange.
	ErrProtocol = errors.New("protocol failure")
)

// QueryError reports a failed call together with the query that triggered it.
type QueryError struct {
	Method string
	Query  string
	Err    error
}

func (e *QueryError) Error() string {
	switch e.Method {
	case methodPing:
		return fmt.Sprintf("unable to ping the extension manager, ERROR: %v", e.Err)
	case methodColumns:
		return fmt.Sprintf("unable to resolve columns for the query '%s', ERROR: %v", e.Query, e.Err)
	default:
		return fmt.Sprintf("unable to execute the query '%s', ERROR: %v", e.Query, e.Err)
	}
}

func (e *QueryError) Unwrap() error { return e.Err }

func connectError(err error) error {
	return fmt.Errorf("%w: %w", ErrConnect, err)
}

// classifyCallError tags a failure that happened after the connection opened.
func classifyCallError(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrProtocol, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}
