package controlchan

import (
	"errors"
	"io"
	"net"
	"time"
)

// Channel is a control channel endpoint identified by its address.
type Channel interface {
	// Address returns the socket path or pipe name.
	Address() string
	// Open connects to the endpoint and returns the read and write halves
	// for a single exchange. Every read and write is bounded by timeout.
	Open(timeout time.Duration) (*Conn, error)
	// Cleanup removes the endpoint's filesystem entry, if the variant has one.
	// A missing entry is not an error.
	Cleanup() error
	// LockPath returns the path of the spawn lock guarding the endpoint, or ""
	// when the variant has no filesystem presence to guard.
	LockPath() string
}

// Conn is one connection split into a read endpoint and a write endpoint.
type Conn struct {
	Reader io.Reader
	Writer io.Writer

	closers []io.Closer
}

// Close releases every handle backing the connection.
func (c *Conn) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// duplex shares one stream connection between both directions.
func duplex(conn net.Conn, timeout time.Duration) *Conn {
	bounded := &timeoutConn{Conn: conn, timeout: timeout}
	return &Conn{Reader: bounded, Writer: bounded, closers: []io.Closer{conn}}
}

// timeoutConn re-arms the read or write deadline before every operation so the
// bound applies per operation rather than to the connection as a whole.
type timeoutConn struct {
	net.Conn
	timeout time.Duration
}

func (c *timeoutConn) Read(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

func (c *timeoutConn) Write(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(p)
}
