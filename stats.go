package redis

import (
	"sync/atomic"
	"time"
)

// PoolStats contains statistics about a connection pool.
//
// For Prometheus integration (see package metrics), these are exposed as:
//   - Gauges: TotalConns, IdleConns, ActiveConns
//   - Counters: AcquireCount, AcquireWaitCount, CreatedConns, DestroyedConns,
//     ReclaimedConns, AcquireErrors, AcquireWaitTimeNs
type PoolStats struct {
	// Lifetime counters
	AcquireCount      uint64 // Total acquire attempts
	AcquireWaitCount  uint64 // Acquires that had to wait for a release or discard
	CreatedConns      uint64 // Total connections created
	DestroyedConns    uint64 // Total connections destroyed, reclaimed ones included
	ReclaimedConns    uint64 // Idle connections destroyed by Reclaim
	AcquireErrors     uint64 // Failed acquire attempts
	AcquireWaitTimeNs uint64 // Total nanoseconds spent waiting

	// Current state gauges
	TotalConns  int32 // Live connections (active + idle)
	IdleConns   int32 // Idle connections available
	ActiveConns int32 // Connections currently checked out
}

// ClientStats contains statistics about client operations.
type ClientStats struct {
	Gets           uint64 // Total GET commands
	GetHits        uint64 // GET commands that found the key
	Sets           uint64 // Total SET commands
	Deletes        uint64 // Total DEL commands, single and multi-key
	DeletedKeys    uint64 // Keys reported removed by DEL
	ServerErrors   uint64 // Error replies ("-ERR ...") from the server
	DiscardedConns uint64 // Connections destroyed after a fatal error
	Errors         uint64 // Total errors across all operations
}

// poolStatsCollector provides internal methods for updating pool stats.
// Not exported - pools update their own stats.
type poolStatsCollector struct {
	acquireCount      atomic.Uint64
	acquireWaitCount  atomic.Uint64
	createdConns      atomic.Uint64
	destroyedConns    atomic.Uint64
	reclaimedConns    atomic.Uint64
	acquireErrors     atomic.Uint64
	acquireWaitTimeNs atomic.Uint64

	totalConns  atomic.Int32
	idleConns   atomic.Int32
	activeConns atomic.Int32
}

func (c *poolStatsCollector) recordAcquire() {
	c.acquireCount.Add(1)
}

func (c *poolStatsCollector) recordAcquireWait(d time.Duration) {
	c.acquireWaitCount.Add(1)
	c.acquireWaitTimeNs.Add(uint64(d.Nanoseconds()))
}

func (c *poolStatsCollector) recordAcquireError() {
	c.acquireErrors.Add(1)
}

// recordCreate counts a new connection, either handed out (active) or
// parked in the idle set.
func (c *poolStatsCollector) recordCreate(active bool) {
	c.createdConns.Add(1)
	c.totalConns.Add(1)
	if active {
		c.activeConns.Add(1)
	} else {
		c.idleConns.Add(1)
	}
}

func (c *poolStatsCollector) recordAcquireFromIdle() {
	c.idleConns.Add(-1)
	c.activeConns.Add(1)
}

func (c *poolStatsCollector) recordRelease() {
	c.idleConns.Add(1)
	c.activeConns.Add(-1)
}

// recordDestroy counts a destroyed connection that was either checked out or
// idle.
func (c *poolStatsCollector) recordDestroy(active bool) {
	c.destroyedConns.Add(1)
	c.totalConns.Add(-1)
	if active {
		c.activeConns.Add(-1)
	} else {
		c.idleConns.Add(-1)
	}
}

func (c *poolStatsCollector) recordReclaim() {
	c.reclaimedConns.Add(1)
}

func (c *poolStatsCollector) snapshot() PoolStats {
	return PoolStats{
		AcquireCount:      c.acquireCount.Load(),
		AcquireWaitCount:  c.acquireWaitCount.Load(),
		CreatedConns:      c.createdConns.Load(),
		DestroyedConns:    c.destroyedConns.Load(),
		ReclaimedConns:    c.reclaimedConns.Load(),
		AcquireErrors:     c.acquireErrors.Load(),
		AcquireWaitTimeNs: c.acquireWaitTimeNs.Load(),
		TotalConns:        c.totalConns.Load(),
		IdleConns:         c.idleConns.Load(),
		ActiveConns:       c.activeConns.Load(),
	}
}

// clientStatsCollector provides internal methods for updating client stats.
// Not exported - client updates its own stats.
type clientStatsCollector struct {
	gets           atomic.Uint64
	getHits        atomic.Uint64
	sets           atomic.Uint64
	deletes        atomic.Uint64
	deletedKeys    atomic.Uint64
	serverErrors   atomic.Uint64
	discardedConns atomic.Uint64
	errors         atomic.Uint64
}

func (c *clientStatsCollector) recordGet(found bool) {
	c.gets.Add(1)
	if found {
		c.getHits.Add(1)
	}
}

func (c *clientStatsCollector) recordSet() {
	c.sets.Add(1)
}

func (c *clientStatsCollector) recordDelete(removed int64) {
	c.deletes.Add(1)
	if removed > 0 {
		c.deletedKeys.Add(uint64(removed))
	}
}

func (c *clientStatsCollector) recordServerError() {
	c.serverErrors.Add(1)
	c.errors.Add(1)
}

func (c *clientStatsCollector) recordDiscard() {
	c.discardedConns.Add(1)
}

func (c *clientStatsCollector) recordError() {
	c.errors.Add(1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Gets:           c.gets.Load(),
		GetHits:        c.getHits.Load(),
		Sets:           c.sets.Load(),
		Deletes:        c.deletes.Load(),
		DeletedKeys:    c.deletedKeys.Load(),
		ServerErrors:   c.serverErrors.Load(),
		DiscardedConns: c.discardedConns.Load(),
		Errors:         c.errors.Load(),
	}
}
