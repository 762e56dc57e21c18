package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/pior/redis/resp"
)

// Defaults applied by NewClient to zero Config fields.
const (
	DefaultMaxConnections  = 30
	DefaultBufferSize      = 1024
	DefaultReclaimInterval = 30 * time.Second
)

// Config holds configuration for the redis client connection pool.
type Config struct {
	// MinConnections is the pool size kept through idle reclamation.
	// That many (unconnected) connections are created up front.
	MinConnections int32

	// MaxConnections bounds the number of live connections across all
	// servers. Defaults to DefaultMaxConnections.
	MaxConnections int32

	// SendBufferSize is the per-connection request staging buffer size.
	// Defaults to DefaultBufferSize.
	SendBufferSize int

	// RecvBufferSize is the per-connection receive buffer size.
	// Defaults to DefaultBufferSize.
	RecvBufferSize int

	// NoDelay sets TCP_NODELAY on new connections.
	NoDelay bool

	// ReclaimInterval is how often idle connections above MinConnections
	// are trimmed. Zero uses DefaultReclaimInterval, negative disables.
	ReclaimInterval time.Duration

	// Dialer is the net.Dialer used to create new connections.
	// If nil, the default net.Dialer is used.
	Dialer *net.Dialer

	// Pool is the connection pool factory function.
	// If nil, uses the channel-based pool. To use puddle: Pool: redis.NewPuddlePool
	Pool PoolFactory

	// NewCircuitBreaker creates a circuit breaker for a server.
	// Called once per server address, on first use.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(serverAddr string) *gobreaker.CircuitBreaker[resp.Reply]

	// Logger receives connection lifecycle events. Defaults to slog.Default().
	Logger *slog.Logger

	// for testing purposes only
	constructor func(ctx context.Context) (*Connection, error)
}

// Client issues SET, GET and DEL commands over a pool of connections spread
// round-robin across its servers. It is safe for concurrent use.
type Client struct {
	servers Servers
	pool    Pool
	connCfg ConnectionConfig
	logger  *slog.Logger

	// Round-robin cursor for new connections
	next atomic.Uint64

	newCircuitBreaker func(serverAddr string) *gobreaker.CircuitBreaker[resp.Reply]
	breakersMu        sync.RWMutex
	breakers          map[string]*gobreaker.CircuitBreaker[resp.Reply]

	stopReclaim chan struct{}
	reclaimDone chan struct{}
	closeOnce   sync.Once
	closed      atomic.Bool

	stats clientStatsCollector
}

// NewClient creates a new redis client with the given servers and configuration.
// For a single server, use: NewClient(NewStaticServers("host:port"), config)
func NewClient(servers Servers, config Config) (*Client, error) {
	serverList := servers.List()
	if len(serverList) == 0 {
		return nil, ErrNoServers
	}
	for _, addr := range serverList {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return nil, fmt.Errorf("redis: invalid server address %q: %w", addr, err)
		}
	}

	if config.MaxConnections == 0 {
		config.MaxConnections = DefaultMaxConnections
	}
	if config.MaxConnections < 0 {
		return nil, fmt.Errorf("redis: MaxConnections must be > 0, got %d", config.MaxConnections)
	}
	if config.MinConnections < 0 || config.MinConnections > config.MaxConnections {
		return nil, fmt.Errorf("redis: MinConnections must be between 0 and MaxConnections (%d), got %d",
			config.MaxConnections, config.MinConnections)
	}
	if config.SendBufferSize == 0 {
		config.SendBufferSize = DefaultBufferSize
	}
	if config.RecvBufferSize == 0 {
		config.RecvBufferSize = DefaultBufferSize
	}
	if config.ReclaimInterval == 0 {
		config.ReclaimInterval = DefaultReclaimInterval
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dialer := config.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}

	client := &Client{
		servers: servers,
		logger:  logger,
		connCfg: ConnectionConfig{
			SendBufferSize: config.SendBufferSize,
			RecvBufferSize: config.RecvBufferSize,
			NoDelay:        config.NoDelay,
			Dial:           dialer.DialContext,
			Logger:         logger,
		},
		newCircuitBreaker: config.NewCircuitBreaker,
		breakers:          make(map[string]*gobreaker.CircuitBreaker[resp.Reply]),
		stopReclaim:       make(chan struct{}),
		reclaimDone:       make(chan struct{}),
	}

	constructor := config.constructor
	if constructor == nil {
		constructor = client.newConnection
	}

	poolFactory := config.Pool
	if poolFactory == nil {
		poolFactory = NewChannelPool
	}

	pool, err := poolFactory(constructor, PoolConfig{
		MinSize: config.MinConnections,
		MaxSize: config.MaxConnections,
	})
	if err != nil {
		return nil, err
	}
	client.pool = pool

	if config.ReclaimInterval > 0 {
		go client.reclaimLoop(config.ReclaimInterval)
	} else {
		close(client.reclaimDone)
	}

	return client, nil
}

// newConnection binds a new, unconnected Connection to the next server in
// round-robin order.
func (c *Client) newConnection(ctx context.Context) (*Connection, error) {
	addrs := c.servers.List()
	if len(addrs) == 0 {
		return nil, ErrNoServers
	}
	i := c.next.Add(1) - 1
	return NewConnection(addrs[i%uint64(len(addrs))], c.connCfg), nil
}

// Close stops idle reclamation and closes the pool. Idle connections are
// closed immediately, connections in use when they are released.
// Commands issued afterwards fail with ErrClientClosed.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.stopReclaim)
		<-c.reclaimDone
		c.pool.Close()
	})
}

// reclaimLoop periodically trims idle connections toward MinConnections.
func (c *Client) reclaimLoop(interval time.Duration) {
	defer close(c.reclaimDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopReclaim:
			return
		case <-ticker.C:
			c.Reclaim()
		}
	}
}

// Reclaim destroys connections that stayed idle since the previous
// reclamation, down to MinConnections. It runs every ReclaimInterval on its
// own; calling it directly is only useful when the interval is disabled.
func (c *Client) Reclaim() int {
	n := c.pool.Reclaim()
	if n > 0 {
		c.logger.Debug("redis: reclaimed idle connections", "count", n)
	}
	return n
}

// circuitBreaker returns the breaker for addr, creating it on first use.
func (c *Client) circuitBreaker(addr string) *gobreaker.CircuitBreaker[resp.Reply] {
	if c.newCircuitBreaker == nil {
		return nil
	}

	c.breakersMu.RLock()
	cb, exists := c.breakers[addr]
	c.breakersMu.RUnlock()
	if exists {
		return cb
	}

	c.breakersMu.Lock()
	defer c.breakersMu.Unlock()

	// Double-check after acquiring write lock
	if cb, exists := c.breakers[addr]; exists {
		return cb
	}
	cb = c.newCircuitBreaker(addr)
	c.breakers[addr] = cb
	return cb
}

// roundTrip sends one command on conn, through the endpoint's breaker if
// one is configured.
func (c *Client) roundTrip(ctx context.Context, conn *Connection, name string, args [][]byte) (resp.Reply, error) {
	cb := c.circuitBreaker(conn.Addr())
	if cb == nil {
		return conn.Do(ctx, name, args...)
	}
	return cb.Execute(func() (resp.Reply, error) {
		return conn.Do(ctx, name, args...)
	})
}

// execute runs a single request-response cycle with proper connection
// management: acquire, send, decode, then release the connection, or destroy
// it when the error says the stream can no longer be trusted.
func execute[T any](ctx context.Context, c *Client, name string, args [][]byte, decode func(resp.Reply) (T, error)) (T, error) {
	var zero T

	if c.closed.Load() {
		c.stats.recordError()
		return zero, ErrClientClosed
	}

	resource, err := c.pool.Acquire(ctx)
	if err != nil {
		c.stats.recordError()
		if errors.Is(err, ErrPoolClosed) {
			return zero, ErrClientClosed
		}
		return zero, err
	}
	conn := resource.Value()

	reply, err := c.roundTrip(ctx, conn, name, args)
	if err == nil {
		var result T
		if result, err = decode(reply); err == nil {
			resource.Release()
			return result, nil
		}
	}

	var serverErr *resp.ServerError
	switch {
	case errors.As(err, &serverErr):
		c.stats.recordServerError()
		resource.Release()
	case isBreakerRejection(err) || !resp.ShouldCloseConnection(err):
		c.stats.recordError()
		resource.Release()
	default:
		c.stats.recordError()
		c.stats.recordDiscard()
		c.logger.Warn("redis: discarding connection",
			"conn", conn.ID(), "addr", conn.Addr(), "command", name, "error", err)
		resource.Destroy()
	}
	return zero, err
}

func decodeOK(name string) func(resp.Reply) (struct{}, error) {
	return func(r resp.Reply) (struct{}, error) {
		switch {
		case r.IsOK():
			return struct{}{}, nil
		case r.Kind == resp.KindError:
			return struct{}{}, r.Err()
		default:
			return struct{}{}, &UnexpectedReplyError{Command: name, Reply: r}
		}
	}
}

func decodeInteger(name string) func(resp.Reply) (int64, error) {
	return func(r resp.Reply) (int64, error) {
		switch r.Kind {
		case resp.KindInteger:
			return r.Int, nil
		case resp.KindError:
			return 0, r.Err()
		default:
			return 0, &UnexpectedReplyError{Command: name, Reply: r}
		}
	}
}

func decodeValue(r resp.Reply) (Value, error) {
	if r.Kind == resp.KindError {
		return Value{}, r.Err()
	}
	v, ok := valueFromReply(r)
	if !ok {
		return Value{}, &UnexpectedReplyError{Command: "GET", Reply: r}
	}
	return v, nil
}

// Set stores value under key. The server must answer +OK.
func (c *Client) Set(ctx context.Context, key, value Value) error {
	if !key.HasValue() || !value.HasValue() {
		c.stats.recordError()
		return ErrAbsentArgument
	}

	_, err := execute(ctx, c, "SET", [][]byte{key.arg(), value.arg()}, decodeOK("SET"))
	if err != nil {
		return err
	}
	c.stats.recordSet()
	return nil
}

// Get returns the value stored under key, or an absent Value when the key
// does not exist.
func (c *Client) Get(ctx context.Context, key Value) (Value, error) {
	if !key.HasValue() {
		c.stats.recordError()
		return Value{}, ErrAbsentArgument
	}

	v, err := execute(ctx, c, "GET", [][]byte{key.arg()}, decodeValue)
	if err != nil {
		return Value{}, err
	}
	c.stats.recordGet(v.HasValue())
	return v, nil
}

// Del removes key and reports whether it existed.
func (c *Client) Del(ctx context.Context, key Value) (bool, error) {
	if !key.HasValue() {
		c.stats.recordError()
		return false, ErrAbsentArgument
	}

	n, err := execute(ctx, c, "DEL", [][]byte{key.arg()}, decodeInteger("DEL"))
	if err != nil {
		return false, err
	}
	c.stats.recordDelete(n)
	return n > 0, nil
}

// DelMany removes every key in one DEL command and returns how many existed.
// An empty key list returns 0 without contacting the server.
func (c *Client) DelMany(ctx context.Context, keys ...Value) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	args := make([][]byte, len(keys))
	for i, key := range keys {
		if !key.HasValue() {
			c.stats.recordError()
			return 0, ErrAbsentArgument
		}
		args[i] = key.arg()
	}

	n, err := execute(ctx, c, "DEL", args, decodeInteger("DEL"))
	if err != nil {
		return 0, err
	}
	c.stats.recordDelete(n)
	return n, nil
}

// SetAsync runs Set on its own goroutine.
func (c *Client) SetAsync(ctx context.Context, key, value Value) *Future[struct{}] {
	return startFuture(func() (struct{}, error) {
		return struct{}{}, c.Set(ctx, key, value)
	})
}

// GetAsync runs Get on its own goroutine.
func (c *Client) GetAsync(ctx context.Context, key Value) *Future[Value] {
	return startFuture(func() (Value, error) {
		return c.Get(ctx, key)
	})
}

// DelAsync runs Del on its own goroutine.
func (c *Client) DelAsync(ctx context.Context, key Value) *Future[bool] {
	return startFuture(func() (bool, error) {
		return c.Del(ctx, key)
	})
}

// DelManyAsync runs DelMany on its own goroutine.
func (c *Client) DelManyAsync(ctx context.Context, keys ...Value) *Future[int64] {
	keys = append([]Value(nil), keys...)
	return startFuture(func() (int64, error) {
		return c.DelMany(ctx, keys...)
	})
}

// Stats returns a snapshot of client statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// PoolStats returns a snapshot of the connection pool statistics.
func (c *Client) PoolStats() PoolStats {
	return c.pool.Stats()
}

// CircuitBreakerStats contains the breaker state of one server.
type CircuitBreakerStats struct {
	Addr   string
	State  gobreaker.State
	Counts gobreaker.Counts
}

// CircuitBreakerStats returns the state of every breaker created so far.
func (c *Client) CircuitBreakerStats() []CircuitBreakerStats {
	c.breakersMu.RLock()
	defer c.breakersMu.RUnlock()

	stats := make([]CircuitBreakerStats, 0, len(c.breakers))
	for addr, cb := range c.breakers {
		stats = append(stats, CircuitBreakerStats{
			Addr:   addr,
			State:  cb.State(),
			Counts: cb.Counts(),
		})
	}
	return stats
}
