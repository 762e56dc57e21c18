package redis

import "context"

// Future is the pending result of an asynchronous command.
//
// The command runs on its own goroutine with the same blocking logic as the
// synchronous call; the Future only carries the outcome back.
type Future[T any] struct {
	ready chan struct{}
	value T
	err   error
}

func startFuture[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{ready: make(chan struct{})}
	go func() {
		f.value, f.err = fn()
		close(f.ready)
	}()
	return f
}

// Done returns a channel closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.ready
}

// Wait blocks until the result is available or ctx ends. A ctx error does
// not cancel the command itself.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.ready:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result blocks until the result is available.
func (f *Future[T]) Result() (T, error) {
	<-f.ready
	return f.value, f.err
}
