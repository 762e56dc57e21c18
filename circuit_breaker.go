package redis

import (
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/pior/redis/resp"
)

// NewCircuitBreakerConfig returns a function that creates circuit breakers for servers.
// This is a helper for common use cases.
//
// The breaker trips when at least 3 requests were seen in the interval and
// 60% of them failed. Only errors that break the connection count as
// failures; error replies from the server do not.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) *gobreaker.CircuitBreaker[resp.Reply] {
	return func(serverAddr string) *gobreaker.CircuitBreaker[resp.Reply] {
		settings := gobreaker.Settings{
			Name:        serverAddr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			IsSuccessful: func(err error) bool {
				return !resp.ShouldCloseConnection(err)
			},
		}
		return gobreaker.NewCircuitBreaker[resp.Reply](settings)
	}
}

// isBreakerRejection reports whether err comes from a breaker refusing the
// request, in which case the connection was never used.
func isBreakerRejection(err error) bool {
	return err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests
}
