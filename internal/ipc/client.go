package ipc

import (
	"context"
	"log/slog"
	"time"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/google/uuid"
	"github.com/osquery/osquery-go/gen/osquery"

	"osqueryctl/internal/controlchan"
	"osqueryctl/internal/logging"
)

// CallTimeout bounds every read and every write of a call.
const CallTimeout = 3 * time.Second

const (
	methodQuery   = "query"
	methodColumns = "getQueryColumns"
	methodPing    = "ping"
)

// Caller issues calls against one control channel. The zero Timeout means
// CallTimeout.
type Caller struct {
	Channel controlchan.Channel
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewCaller returns a Caller for the platform channel at address.
func NewCaller(address string, logger *slog.Logger) *Caller {
	return &Caller{
		Channel: controlchan.New(address),
		Timeout: CallTimeout,
		Logger:  logger,
	}
}

// Query runs sql on the daemon at address.
func Query(address, sql string) (*osquery.ExtensionResponse, error) {
	return NewCaller(address, nil).Query(sql)
}

// Columns resolves the result columns of sql on the daemon at address.
func Columns(address, sql string) (*osquery.ExtensionResponse, error) {
	return NewCaller(address, nil).Columns(sql)
}

// Ping checks the extension manager at address.
func Ping(address string) (*osquery.ExtensionStatus, error) {
	return NewCaller(address, nil).Ping()
}

// Query runs sql and returns the decoded response unmodified.
func (c *Caller) Query(sql string) (*osquery.ExtensionResponse, error) {
	var resp *osquery.ExtensionResponse
	err := c.call(methodQuery, sql, func(ctx context.Context, client *osquery.ExtensionManagerClient) error {
		var err error
		resp, err = client.Query(ctx, sql)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Columns returns one row per result column of sql, mapping name to type.
func (c *Caller) Columns(sql string) (*osquery.ExtensionResponse, error) {
	var resp *osquery.ExtensionResponse
	err := c.call(methodColumns, sql, func(ctx context.Context, client *osquery.ExtensionManagerClient) error {
		var err error
		resp, err = client.GetQueryColumns(ctx, sql)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Ping returns the extension manager status.
func (c *Caller) Ping() (*osquery.ExtensionStatus, error) {
	var status *osquery.ExtensionStatus
	err := c.call(methodPing, "", func(ctx context.Context, client *osquery.ExtensionManagerClient) error {
		var err error
		status, err = client.Ping(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

func (c *Caller) call(method, sql string, fn func(context.Context, *osquery.ExtensionManagerClient) error) error {
	logger := c.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(
		logging.String(logging.FieldCallID, uuid.NewString()),
		logging.String("method", method),
	)
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = CallTimeout
	}

	start := time.Now()
	conn, err := c.Channel.Open(timeout)
	if err != nil {
		logger.Debug("control channel unreachable",
			logging.String(logging.FieldSocket, c.Channel.Address()),
			logging.Error(err),
		)
		return &QueryError{Method: method, Query: sql, Err: connectError(err)}
	}
	defer conn.Close()

	trans := thrift.NewStreamTransport(conn.Reader, conn.Writer)
	conf := &thrift.TConfiguration{
		TBinaryStrictRead:  thrift.BoolPtr(false),
		TBinaryStrictWrite: thrift.BoolPtr(false),
	}
	input := thrift.NewTBinaryProtocolConf(trans, conf)
	output := thrift.NewTBinaryProtocolConf(trans, conf)
	client := osquery.NewExtensionManagerClient(thrift.NewTStandardClient(input, output))

	if err := fn(context.Background(), client); err != nil {
		classified := classifyCallError(err)
		logger.Debug("rpc call failed",
			logging.Duration("elapsed", time.Since(start)),
			logging.Error(classified),
		)
		return &QueryError{Method: method, Query: sql, Err: classified}
	}

	logger.Debug("rpc call finished", logging.Duration("elapsed", time.Since(start)))
	return nil
}
