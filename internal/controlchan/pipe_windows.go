//go:build windows

package controlchan

import (
	"time"

	"github.com/Microsoft/go-winio"
)

// DefaultAddress is the pipe name used when none is configured.
const DefaultAddress = `\\.\pipe\osquery-rs`

// Pipe is the named pipe variant.
type Pipe struct {
	name string
}

// New returns the platform channel for address.
func New(address string) Channel {
	return &Pipe{name: address}
}

func (p *Pipe) Address() string { return p.name }

// Open connects one duplex pipe handle and uses it for both directions.
func (p *Pipe) Open(timeout time.Duration) (*Conn, error) {
	var dialTimeout *time.Duration
	if timeout > 0 {
		dialTimeout = &timeout
	}
	conn, err := winio.DialPipe(p.name, dialTimeout)
	if err != nil {
		return nil, err
	}
	return duplex(conn, timeout), nil
}

// Cleanup is a no-op: the pipe disappears with the daemon that created it.
func (p *Pipe) Cleanup() error { return nil }

func (p *Pipe) LockPath() string { return "" }
