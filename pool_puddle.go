package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jackc/puddle/v2"
)

// NewPuddlePool creates a puddle-based connection pool.
// Pass it as Config.Pool to use github.com/jackc/puddle/v2 instead of the
// channel pool.
func NewPuddlePool(constructor func(ctx context.Context) (*Connection, error), cfg PoolConfig) (Pool, error) {
	if cfg.MinSize < 0 || cfg.MinSize > cfg.MaxSize {
		return nil, errors.New("redis: pool MinSize must be between 0 and MaxSize")
	}

	p := &puddlePool{minSize: cfg.MinSize}

	poolConfig := &puddle.Config[*Connection]{
		Constructor: func(ctx context.Context) (*Connection, error) {
			conn, err := constructor(ctx)
			if err == nil {
				p.createdConns.Add(1)
			}
			return conn, err
		},
		Destructor: func(c *Connection) {
			p.destroyedConns.Add(1)
			_ = c.Close()
		},
		MaxSize: cfg.MaxSize,
	}

	pool, err := puddle.NewPool(poolConfig)
	if err != nil {
		return nil, err
	}
	p.pool = pool

	for range cfg.MinSize {
		if err := pool.CreateResource(context.Background()); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return p, nil
}

// puddlePool wraps puddle.Pool to implement our Pool interface.
type puddlePool struct {
	pool    *puddle.Pool[*Connection]
	minSize int32

	createdConns   atomic.Int64
	destroyedConns atomic.Int64
	reclaimedConns atomic.Int64
	closed         atomic.Bool

	mu  sync.Mutex
	low lowWater
}

func (p *puddlePool) Acquire(ctx context.Context) (Resource, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	res, err := p.pool.Acquire(ctx)
	if err != nil {
		if errors.Is(err, puddle.ErrClosedPool) {
			return nil, ErrPoolClosed
		}
		return nil, err
	}

	idle := p.pool.Stat().IdleResources()
	p.mu.Lock()
	p.low.observe(idle)
	p.mu.Unlock()

	return res, nil
}

func (p *puddlePool) Reclaim() int {
	if p.closed.Load() {
		return 0
	}

	stat := p.pool.Stat()
	p.mu.Lock()
	low := p.low.take(stat.IdleResources())
	p.mu.Unlock()

	n := min(low, stat.TotalResources()-p.minSize)
	if n <= 0 {
		return 0
	}

	reclaimed := 0
	for _, res := range p.pool.AcquireAllIdle() {
		if int32(reclaimed) < n {
			p.discard(res)
			reclaimed++
			continue
		}
		res.ReleaseUnused()
	}
	p.reclaimedConns.Add(int64(reclaimed))

	p.mu.Lock()
	p.low.take(p.pool.Stat().IdleResources())
	p.mu.Unlock()
	return reclaimed
}

func (p *puddlePool) Close() {
	if p.closed.Swap(true) {
		return
	}

	for _, res := range p.pool.AcquireAllIdle() {
		p.discard(res)
	}

	// puddle's Close blocks until acquired resources come back.
	go p.pool.Close()
}

// discard removes an acquired resource from the pool and closes it before
// returning. puddle's Destroy closes in the background.
func (p *puddlePool) discard(res *puddle.Resource[*Connection]) {
	conn := res.Value()
	res.Hijack()
	p.destroyedConns.Add(1)
	_ = conn.Close()
}

// Stats returns a snapshot of pool statistics by converting puddle's stats to our format.
func (p *puddlePool) Stats() PoolStats {
	s := p.pool.Stat()

	// Note: Puddle tracks similar metrics but with different semantics
	return PoolStats{
		TotalConns:        s.TotalResources(),
		IdleConns:         s.IdleResources(),
		ActiveConns:       s.AcquiredResources(),
		AcquireCount:      uint64(s.AcquireCount()),
		AcquireWaitCount:  uint64(s.EmptyAcquireCount()), // Acquires that had to wait (pool was empty)
		CreatedConns:      uint64(p.createdConns.Load()),
		DestroyedConns:    uint64(p.destroyedConns.Load()),
		ReclaimedConns:    uint64(p.reclaimedConns.Load()),
		AcquireErrors:     uint64(s.CanceledAcquireCount()),
		AcquireWaitTimeNs: uint64(s.EmptyAcquireWaitTime().Nanoseconds()),
	}
}
