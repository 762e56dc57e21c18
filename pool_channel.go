package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pior/redis/internal/coarsetime"
)

// NewChannelPool creates a channel-based connection pool.
// This is the default pool implementation.
//
// Idle connections sit in a buffered channel. A second channel holds one
// token per live connection, so creating a connection blocks exactly when
// MaxSize connections exist, and destroying one wakes a waiter.
func NewChannelPool(constructor func(ctx context.Context) (*Connection, error), cfg PoolConfig) (Pool, error) {
	if cfg.MaxSize <= 0 {
		return nil, errors.New("redis: pool MaxSize must be > 0")
	}
	if cfg.MinSize < 0 || cfg.MinSize > cfg.MaxSize {
		return nil, errors.New("redis: pool MinSize must be between 0 and MaxSize")
	}

	p := &channelPool{
		constructor: constructor,
		minSize:     cfg.MinSize,
		maxSize:     cfg.MaxSize,
		resources:   make(chan *channelResource, cfg.MaxSize),
		slots:       make(chan struct{}, cfg.MaxSize),
		closing:     make(chan struct{}),
	}

	for range cfg.MinSize {
		p.slots <- struct{}{}
		conn, err := constructor(context.Background())
		if err != nil {
			<-p.slots
			p.Close()
			return nil, err
		}
		p.stats.recordCreate(false)
		p.resources <- p.newResource(conn)
	}

	return p, nil
}

// channelResource implements Resource for channel pool.
type channelResource struct {
	conn         *Connection
	pool         *channelPool
	creationTime time.Time
	lastUsedTime time.Time
	checkedOut   bool
}

func (r *channelResource) Value() *Connection {
	return r.conn
}

func (r *channelResource) Release() {
	if !r.checkedOut {
		return
	}
	r.checkedOut = false
	r.lastUsedTime = coarsetime.Now()
	r.pool.put(r)
}

func (r *channelResource) Destroy() {
	if !r.checkedOut {
		return
	}
	r.checkedOut = false
	r.pool.destroy(r, true)
}

// CreationTime returns when the connection was created.
func (r *channelResource) CreationTime() time.Time {
	return r.creationTime
}

// IdleDuration returns how long ago the connection was last released.
func (r *channelResource) IdleDuration() time.Duration {
	return coarsetime.Since(r.lastUsedTime)
}

// channelPool is a simple, allocation-optimized connection pool using Go channels.
type channelPool struct {
	constructor func(ctx context.Context) (*Connection, error)
	minSize     int32
	maxSize     int32

	resources chan *channelResource // idle connections
	slots     chan struct{}         // one token per live connection
	closing   chan struct{}

	mu     sync.Mutex
	closed bool
	low    lowWater

	stats poolStatsCollector
}

func (p *channelPool) newResource(conn *Connection) *channelResource {
	now := coarsetime.Now()
	return &channelResource{
		conn:         conn,
		pool:         p,
		creationTime: now,
		lastUsedTime: now,
	}
}

func (p *channelPool) Acquire(ctx context.Context) (Resource, error) {
	p.stats.recordAcquire()

	select {
	case <-p.closing:
		p.stats.recordAcquireError()
		return nil, ErrPoolClosed
	default:
	}

	// Try to get an idle connection from the pool first
	select {
	case res := <-p.resources:
		return p.checkout(res), nil
	default:
	}
	p.observeIdle()

	// Take a free slot without waiting
	select {
	case p.slots <- struct{}{}:
		return p.create(ctx)
	default:
	}

	// Pool is full, wait for a release, a discard or ctx.
	waitStart := time.Now()
	select {
	case res := <-p.resources:
		p.stats.recordAcquireWait(time.Since(waitStart))
		return p.checkout(res), nil
	case p.slots <- struct{}{}:
		p.stats.recordAcquireWait(time.Since(waitStart))
		return p.create(ctx)
	case <-p.closing:
		p.stats.recordAcquireError()
		return nil, ErrPoolClosed
	case <-ctx.Done():
		p.stats.recordAcquireError()
		return nil, ctx.Err()
	}
}

// create builds a connection in a slot already taken by the caller.
func (p *channelPool) create(ctx context.Context) (Resource, error) {
	conn, err := p.constructor(ctx)
	if err != nil {
		<-p.slots
		p.stats.recordAcquireError()
		return nil, err
	}

	p.stats.recordCreate(true)
	res := p.newResource(conn)
	res.checkedOut = true
	return res, nil
}

func (p *channelPool) checkout(res *channelResource) *channelResource {
	p.stats.recordAcquireFromIdle()
	p.observeIdle()
	res.checkedOut = true
	return res
}

func (p *channelPool) observeIdle() {
	p.mu.Lock()
	p.low.observe(int32(len(p.resources)))
	p.mu.Unlock()
}

func (p *channelPool) put(res *channelResource) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.destroy(res, true)
		return
	}

	select {
	case p.resources <- res:
		p.stats.recordRelease()
		p.mu.Unlock()
	default:
		// Cannot happen while every live connection holds a slot.
		p.mu.Unlock()
		p.destroy(res, true)
	}
}

func (p *channelPool) destroy(res *channelResource, active bool) {
	_ = res.conn.Close()
	<-p.slots
	p.stats.recordDestroy(active)
}

func (p *channelPool) Reclaim() int {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0
	}
	low := p.low.take(int32(len(p.resources)))
	p.mu.Unlock()

	surplus := int32(len(p.slots)) - p.minSize
	n := min(low, surplus)

	reclaimed := 0
	for range n {
		select {
		case res := <-p.resources:
			p.destroy(res, false)
			p.stats.recordReclaim()
			reclaimed++
		default:
			// Connections were checked out in the meantime.
			return reclaimed
		}
	}

	if reclaimed > 0 {
		p.mu.Lock()
		p.low.take(int32(len(p.resources)))
		p.mu.Unlock()
	}
	return reclaimed
}

func (p *channelPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.closing)
	p.mu.Unlock()

	// Close all idle connections; checked out ones are closed on release.
	for {
		select {
		case res := <-p.resources:
			p.destroy(res, false)
		default:
			return
		}
	}
}

// Stats returns a snapshot of pool statistics.
func (p *channelPool) Stats() PoolStats {
	return p.stats.snapshot()
}
