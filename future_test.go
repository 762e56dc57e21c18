package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_Result(t *testing.T) {
	f := startFuture(func() (int, error) { return 42, nil })

	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	// Results can be read any number of times.
	v, err = f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestFuture_Error(t *testing.T) {
	boom := errors.New("boom")
	f := startFuture(func() (string, error) { return "", boom })

	_, err := f.Result()
	assert.ErrorIs(t, err, boom)
}

func TestFuture_Done(t *testing.T) {
	release := make(chan struct{})
	f := startFuture(func() (bool, error) {
		<-release
		return true, nil
	})

	select {
	case <-f.Done():
		t.Fatal("future completed early")
	default:
	}

	close(release)

	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("future never completed")
	}
}

func TestFuture_WaitContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	f := startFuture(func() (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
