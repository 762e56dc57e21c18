package redis

import (
	"context"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/pior/redis/resp"
)

// DialFunc opens a network connection, with the signature of
// net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// ConnectionConfig holds per-connection settings.
type ConnectionConfig struct {
	// SendBufferSize is the staging buffer size of the request writer.
	SendBufferSize int

	// RecvBufferSize is the receive buffer size of the reply reader.
	RecvBufferSize int

	// NoDelay is applied with SetNoDelay to TCP connections once dialed.
	NoDelay bool

	// Dial opens the socket. Defaults to a zero net.Dialer.
	Dial DialFunc

	// Logger receives connect and close events at debug level.
	Logger *slog.Logger
}

var connectionIDs atomic.Uint64

// Connection is a single RESP connection to one endpoint.
//
// It is created unconnected and dials on first use. Its receive and send
// buffers are allocated once and reused for its whole life.
//
// A Connection is not safe for concurrent use; the pool hands each one to a
// single caller at a time.
type Connection struct {
	id      uint64
	addr    string
	netConn net.Conn
	reader  *resp.Reader
	writer  *resp.Writer
	noDelay bool
	dial    DialFunc
	logger  *slog.Logger
	closed  bool
}

// NewConnection returns an unconnected Connection to addr.
func NewConnection(addr string, cfg ConnectionConfig) *Connection {
	dial := cfg.Dial
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Connection{
		id:      connectionIDs.Add(1),
		addr:    addr,
		reader:  resp.NewReader(nil, cfg.RecvBufferSize),
		writer:  resp.NewWriter(nil, cfg.SendBufferSize),
		noDelay: cfg.NoDelay,
		dial:    dial,
		logger:  logger,
	}
}

// NewConnectionFrom wraps an established net.Conn.
func NewConnectionFrom(netConn net.Conn, cfg ConnectionConfig) *Connection {
	c := NewConnection(netConn.RemoteAddr().String(), cfg)
	c.bind(netConn)
	return c
}

func (c *Connection) bind(netConn net.Conn) {
	c.netConn = netConn
	c.reader.Reset(netConn)
	c.writer.Reset(netConn)
}

// ID returns the process-unique identifier of the connection.
func (c *Connection) ID() uint64 {
	return c.id
}

// Addr returns the endpoint address the connection targets.
func (c *Connection) Addr() string {
	return c.addr
}

// IsConnected reports whether the socket has been dialed and not closed.
func (c *Connection) IsConnected() bool {
	return c.netConn != nil && !c.closed
}

// EnsureConnected dials the endpoint if the connection has no socket yet.
// ctx bounds the dial only.
func (c *Connection) EnsureConnected(ctx context.Context) error {
	if c.closed {
		return &resp.ConnectionError{Op: "dial", Err: net.ErrClosed}
	}
	if c.netConn != nil {
		return nil
	}

	netConn, err := c.dial(ctx, "tcp", c.addr)
	if err != nil {
		return &resp.ConnectionError{Op: "dial", Err: err}
	}

	if tcpConn, ok := netConn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(c.noDelay); err != nil {
			_ = netConn.Close()
			return &resp.ConnectionError{Op: "dial", Err: err}
		}
	}

	c.bind(netConn)
	c.logger.Debug("redis: connected", "conn", c.id, "addr", c.addr)
	return nil
}

// Do sends one command and reads its reply, connecting first if needed.
//
// Error replies are returned as a Reply, not as an error. A returned error
// comes from the resp package and tells through resp.ShouldCloseConnection
// whether the connection is still usable.
func (c *Connection) Do(ctx context.Context, name string, args ...[]byte) (resp.Reply, error) {
	if err := c.EnsureConnected(ctx); err != nil {
		return resp.Reply{}, err
	}
	if err := c.writer.WriteCommand(name, args...); err != nil {
		return resp.Reply{}, err
	}
	return c.reader.ReadReply()
}

// Close closes the socket, if any. It is safe to call more than once.
func (c *Connection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	if c.netConn == nil {
		return nil
	}
	c.logger.Debug("redis: connection closed", "conn", c.id, "addr", c.addr)
	return c.netConn.Close()
}
