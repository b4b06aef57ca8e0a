package testsupport

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/osquery/osquery-go/gen/osquery"
)

// TimeRows is the canned result for "select * from time".
var TimeRows = osquery.ExtensionPluginResponse{
	{
		"hour":      "12",
		"minutes":   "30",
		"seconds":   "5",
		"timezone":  "UTC",
		"unix_time": "1700000000",
	},
}

// DaemonOption customizes a fake daemon.
type DaemonOption func(*FakeDaemon)

// WithRows sets the rows returned for every successful query.
func WithRows(rows osquery.ExtensionPluginResponse) DaemonOption {
	return func(d *FakeDaemon) {
		d.rows = rows
	}
}

// WithStatus sets the status code and message returned for every query.
func WithStatus(code int32, message string) DaemonOption {
	return func(d *FakeDaemon) {
		d.status = &osquery.ExtensionStatus{Code: code, Message: message}
	}
}

// WithSilence makes the daemon accept connections and never answer.
func WithSilence() DaemonOption {
	return func(d *FakeDaemon) {
		d.silent = true
	}
}

// WithDroppedConnections closes the first n accepted connections without
// reading from them.
func WithDroppedConnections(n int) DaemonOption {
	return func(d *FakeDaemon) {
		d.drop = n
	}
}

// FakeDaemon serves the osquery ExtensionManager Thrift API on a Unix socket.
type FakeDaemon struct {
	Path string

	rows   osquery.ExtensionPluginResponse
	status *osquery.ExtensionStatus
	silent bool
	drop   int

	listener  net.Listener
	processor thrift.TProcessor
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu       sync.Mutex
	accepted int
	queries  []string
	conns    []net.Conn
}

// StartDaemon starts a fake daemon listening on path and stops it when the
// test finishes.
func StartDaemon(t testing.TB, path string, opts ...DaemonOption) *FakeDaemon {
	t.Helper()

	d, err := ListenDaemon(path, opts...)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping fake daemon: %v", err)
		}
		t.Fatalf("start fake daemon: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

// ListenDaemon binds path and serves until Close.
func ListenDaemon(path string, opts ...DaemonOption) (*FakeDaemon, error) {
	d := &FakeDaemon{
		Path:   path,
		rows:   TimeRows,
		status: &osquery.ExtensionStatus{Code: 0, Message: "OK"},
	}
	for _, opt := range opts {
		opt(d)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	d.listener = listener
	d.processor = osquery.NewExtensionManagerProcessor(&manager{daemon: d})
	d.ctx, d.cancel = context.WithCancel(context.Background())

	d.wg.Add(1)
	go d.acceptLoop()
	return d, nil
}

// Queries returns every query text the daemon received, in order.
func (d *FakeDaemon) Queries() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.queries))
	copy(out, d.queries)
	return out
}

// Accepted returns the number of connections accepted so far.
func (d *FakeDaemon) Accepted() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accepted
}

// Close stops accepting, drops open connections, and waits for handlers.
func (d *FakeDaemon) Close() {
	d.cancel()
	_ = d.listener.Close()
	d.mu.Lock()
	for _, conn := range d.conns {
		_ = conn.Close()
	}
	d.conns = nil
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *FakeDaemon) acceptLoop() {
	defer d.wg.Done()
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || d.ctx.Err() != nil {
				return
			}
			continue
		}

		d.mu.Lock()
		d.accepted++
		dropped := d.accepted <= d.drop
		if !dropped {
			d.conns = append(d.conns, conn)
		}
		d.mu.Unlock()

		if dropped {
			_ = conn.Close()
			continue
		}

		d.wg.Add(1)
		go d.serveConn(conn)
	}
}

func (d *FakeDaemon) serveConn(conn net.Conn) {
	defer d.wg.Done()
	defer conn.Close()

	if d.silent {
		<-d.ctx.Done()
		return
	}

	trans := thrift.NewStreamTransportRW(conn)
	proto := thrift.NewTBinaryProtocolConf(trans, &thrift.TConfiguration{})
	for {
		ok, err := d.processor.Process(d.ctx, proto, proto)
		if err != nil || !ok {
			return
		}
	}
}

// manager implements the calls the client issues; the embedded interface
// stays nil, so any other call panics inside the processor goroutine.
type manager struct {
	osquery.ExtensionManager
	daemon *FakeDaemon
}

func (m *manager) Ping(context.Context) (*osquery.ExtensionStatus, error) {
	return &osquery.ExtensionStatus{Code: 0, Message: "OK"}, nil
}

func (m *manager) Query(_ context.Context, sql string) (*osquery.ExtensionResponse, error) {
	m.daemon.mu.Lock()
	m.daemon.queries = append(m.daemon.queries, sql)
	m.daemon.mu.Unlock()

	status := *m.daemon.status
	resp := &osquery.ExtensionResponse{Status: &status}
	if status.Code == 0 {
		resp.Response = m.daemon.rows
	}
	return resp, nil
}

func (m *manager) GetQueryColumns(_ context.Context, sql string) (*osquery.ExtensionResponse, error) {
	m.daemon.mu.Lock()
	m.daemon.queries = append(m.daemon.queries, sql)
	m.daemon.mu.Unlock()

	var columns osquery.ExtensionPluginResponse
	if len(m.daemon.rows) > 0 {
		for name := range m.daemon.rows[0] {
			columns = append(columns, map[string]string{name: "TEXT"})
		}
	}
	return &osquery.ExtensionResponse{
		Status:   &osquery.ExtensionStatus{Code: 0, Message: "OK"},
		Response: columns,
	}, nil
}
