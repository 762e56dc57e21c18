package redis

import (
	"context"
)

// Resource is a connection checked out of a Pool. Exactly one of Release or
// Destroy must be called when the caller is done with it.
type Resource interface {
	// Value returns the pooled connection.
	Value() *Connection

	// Release returns the connection to the idle set.
	Release()

	// Destroy closes the connection and frees its slot in the pool.
	Destroy()
}

// Pool is a bounded set of connections.
type Pool interface {
	// Acquire returns an idle connection, creates one if the pool is below
	// its maximum size, or waits for one to be released or destroyed.
	// It fails with ctx.Err() if ctx ends first and with ErrPoolClosed once
	// the pool is closed.
	Acquire(ctx context.Context) (Resource, error)

	// Reclaim destroys idle connections that stayed unused since the
	// previous call, never going below the minimum size. It returns the
	// number of connections destroyed.
	Reclaim() int

	// Close disposes idle connections now and in-use ones when they are
	// released.
	Close()

	// Stats returns a snapshot of pool statistics.
	Stats() PoolStats
}

// PoolConfig sizes a Pool.
type PoolConfig struct {
	// MinSize connections are created up front and kept through Reclaim.
	MinSize int32

	// MaxSize bounds the number of live connections. Required: must be > 0.
	MaxSize int32
}

// PoolFactory builds a Pool from a connection constructor.
// The constructor is called whenever the pool needs a new connection.
type PoolFactory func(constructor func(ctx context.Context) (*Connection, error), cfg PoolConfig) (Pool, error)

// lowWater tracks the smallest idle count observed since the last reset.
// Must be used with the owning pool's lock held.
type lowWater struct {
	min int32
	set bool
}

func (w *lowWater) observe(idle int32) {
	if !w.set || idle < w.min {
		w.min = idle
		w.set = true
	}
}

// take returns the low-water mark and starts a new observation window at
// the current idle count.
func (w *lowWater) take(idle int32) int32 {
	m := idle
	if w.set && w.min < idle {
		m = w.min
	}
	w.min = idle
	w.set = true
	return m
}
