// Package coarsetime is a clock refreshed every Resolution by a background
// goroutine. Reading it costs an atomic load instead of a time.Now call, for
// timestamps taken on every pool checkout.
package coarsetime

import (
	"sync/atomic"
	"time"
)

// Resolution is how stale Now may be.
const Resolution = 50 * time.Millisecond

var now atomic.Int64 // unix nanoseconds

func init() {
	refresh()

	go func() {
		for range time.Tick(Resolution) {
			refresh()
		}
	}()
}

func refresh() {
	now.Store(time.Now().UnixNano())
}

// Now returns the current time, at most Resolution old. It carries no
// monotonic clock reading.
func Now() time.Time {
	return time.Unix(0, now.Load())
}

// Since returns the time elapsed since t on the coarse clock.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}
