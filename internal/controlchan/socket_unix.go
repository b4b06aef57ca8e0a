//go:build !windows

package controlchan

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// DefaultAddress is the socket path used when none is configured.
const DefaultAddress = "/tmp/osquery-rs"

// Socket is the Unix domain socket variant.
type Socket struct {
	path string
}

// New returns the platform channel for address.
func New(address string) Channel {
	return &Socket{path: address}
}

func (s *Socket) Address() string { return s.path }

func (s *Socket) Open(timeout time.Duration) (*Conn, error) {
	conn, err := net.DialTimeout("unix", s.path, timeout)
	if err != nil {
		return nil, err
	}
	return duplex(conn, timeout), nil
}

func (s *Socket) Cleanup() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove socket %q: %w", s.path, err)
	}
	return nil
}

func (s *Socket) LockPath() string { return s.path + ".lock" }
