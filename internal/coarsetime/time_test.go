package coarsetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow(t *testing.T) {
	before := time.Now()
	got := Now()

	assert.WithinDuration(t, before, got, 2*Resolution)
}

func TestNow_Advances(t *testing.T) {
	first := Now()
	assert.Eventually(t, func() bool {
		return Now().After(first)
	}, 10*Resolution, Resolution/5)
}

func TestSince(t *testing.T) {
	past := Now().Add(-time.Minute)
	assert.InDelta(t, time.Minute, Since(past), float64(2*Resolution))
}

// BenchmarkTimeNow/time-8         	35926340	         32.82 ns/op	       0 B/op	       0 allocs/op
// BenchmarkTimeNow/coarsetime-8   	609668066	         1.950 ns/op	       0 B/op	       0 allocs/op
func BenchmarkTimeNow(b *testing.B) {
	var t time.Time

	b.Run("time", func(b *testing.B) {
		for b.Loop() {
			t = time.Now()
		}
	})

	b.Run("coarsetime", func(b *testing.B) {
		for b.Loop() {
			t = Now()
		}
	})

	_ = t
}
