// Package metrics exports client, pool and circuit breaker statistics to
// Prometheus.
//
//	registry := prometheus.NewRegistry()
//	registry.MustRegister(metrics.NewCollector(client, "cache"))
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/pior/redis"
)

// Source is the set of statistics a Collector reads on every scrape.
// *redis.Client implements it.
type Source interface {
	Stats() redis.ClientStats
	PoolStats() redis.PoolStats
	CircuitBreakerStats() []redis.CircuitBreakerStats
}

// Collector implements prometheus.Collector over a Source. Values are read at
// scrape time, so nothing needs updating between scrapes.
type Collector struct {
	source Source

	commands       *prometheus.Desc
	getHits        *prometheus.Desc
	deletedKeys    *prometheus.Desc
	errors         *prometheus.Desc
	serverErrors   *prometheus.Desc
	discardedConns *prometheus.Desc

	poolConnections *prometheus.Desc
	poolAcquires    *prometheus.Desc
	poolWaits       *prometheus.Desc
	poolWaitSeconds *prometheus.Desc
	poolErrors      *prometheus.Desc
	poolCreated     *prometheus.Desc
	poolDestroyed   *prometheus.Desc
	poolReclaimed   *prometheus.Desc

	circuitState    *prometheus.Desc
	circuitRequests *prometheus.Desc
	circuitFailures *prometheus.Desc
}

// NewCollector returns a Collector for source. The client label tells
// several clients apart in one registry.
func NewCollector(source Source, client string) *Collector {
	labels := prometheus.Labels{"client": client}
	desc := func(name, help string, variableLabels ...string) *prometheus.Desc {
		return prometheus.NewDesc("redis_"+name, help, variableLabels, labels)
	}

	return &Collector{
		source: source,

		commands:       desc("commands_total", "Commands completed successfully", "command"),
		getHits:        desc("get_hits_total", "GET commands that found the key"),
		deletedKeys:    desc("deleted_keys_total", "Keys reported removed by DEL"),
		errors:         desc("errors_total", "Failed commands, server errors included"),
		serverErrors:   desc("server_errors_total", "Error replies received from servers"),
		discardedConns: desc("discarded_connections_total", "Connections destroyed after a fatal error"),

		poolConnections: desc("pool_connections", "Live connections by state", "state"),
		poolAcquires:    desc("pool_acquires_total", "Connection acquire attempts"),
		poolWaits:       desc("pool_acquire_waits_total", "Acquires that waited for a connection"),
		poolWaitSeconds: desc("pool_acquire_wait_seconds_total", "Time spent waiting for a connection"),
		poolErrors:      desc("pool_acquire_errors_total", "Failed acquire attempts"),
		poolCreated:     desc("pool_connections_created_total", "Connections created"),
		poolDestroyed:   desc("pool_connections_destroyed_total", "Connections destroyed"),
		poolReclaimed:   desc("pool_connections_reclaimed_total", "Idle connections destroyed by reclamation"),

		circuitState:    desc("circuit_breaker_state", "Circuit breaker state (0=closed, 1=half-open, 2=open)", "server"),
		circuitRequests: desc("circuit_breaker_requests", "Requests counted in the current breaker interval", "server"),
		circuitFailures: desc("circuit_breaker_failures", "Breaker failure counts in the current interval", "server", "type"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.commands, c.getHits, c.deletedKeys, c.errors, c.serverErrors, c.discardedConns,
		c.poolConnections, c.poolAcquires, c.poolWaits, c.poolWaitSeconds, c.poolErrors,
		c.poolCreated, c.poolDestroyed, c.poolReclaimed,
		c.circuitState, c.circuitRequests, c.circuitFailures,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	cs := c.source.Stats()
	counter(c.commands, cs.Gets, "get")
	counter(c.commands, cs.Sets, "set")
	counter(c.commands, cs.Deletes, "del")
	counter(c.getHits, cs.GetHits)
	counter(c.deletedKeys, cs.DeletedKeys)
	counter(c.errors, cs.Errors)
	counter(c.serverErrors, cs.ServerErrors)
	counter(c.discardedConns, cs.DiscardedConns)

	ps := c.source.PoolStats()
	gauge(c.poolConnections, float64(ps.TotalConns), "total")
	gauge(c.poolConnections, float64(ps.IdleConns), "idle")
	gauge(c.poolConnections, float64(ps.ActiveConns), "active")
	counter(c.poolAcquires, ps.AcquireCount)
	counter(c.poolWaits, ps.AcquireWaitCount)
	ch <- prometheus.MustNewConstMetric(c.poolWaitSeconds, prometheus.CounterValue, float64(ps.AcquireWaitTimeNs)/1e9)
	counter(c.poolErrors, ps.AcquireErrors)
	counter(c.poolCreated, ps.CreatedConns)
	counter(c.poolDestroyed, ps.DestroyedConns)
	counter(c.poolReclaimed, ps.ReclaimedConns)

	for _, cb := range c.source.CircuitBreakerStats() {
		gauge(c.circuitState, stateValue(cb.State), cb.Addr)
		gauge(c.circuitRequests, float64(cb.Counts.Requests), cb.Addr)
		gauge(c.circuitFailures, float64(cb.Counts.TotalFailures), cb.Addr, "total")
		gauge(c.circuitFailures, float64(cb.Counts.ConsecutiveFailures), cb.Addr, "consecutive")
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
