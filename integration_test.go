package redis

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// newIntegrationClient connects to the server in REDIS_ADDR and skips the
// test when it is unset.
func newIntegrationClient(t *testing.T, config Config) *Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	return newTestClient(t, config, addr)
}

// uniqueKey generates a unique key for testing to avoid collisions.
func uniqueKey(prefix string) Value {
	return String(fmt.Sprintf("%s_%d_%d", prefix, os.Getpid(), time.Now().UnixNano()))
}

func TestIntegration_SetGetDel(t *testing.T) {
	client := newIntegrationClient(t, Config{})
	ctx := context.Background()
	key := uniqueKey("setgetdel")

	require.NoError(t, client.Set(ctx, key, String("hello integration world")))

	v, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "hello integration world", v.Text())

	removed, err := client.Del(ctx, key)
	require.NoError(t, err)
	assert.True(t, removed)

	v, err = client.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, v.HasValue())
}

func TestIntegration_DelMany(t *testing.T) {
	client := newIntegrationClient(t, Config{})
	ctx := context.Background()

	a, b, c := uniqueKey("many_a"), uniqueKey("many_b"), uniqueKey("many_c")
	require.NoError(t, client.Set(ctx, a, Int(1)))
	require.NoError(t, client.Set(ctx, b, Int(2)))

	n, err := client.DelMany(ctx, a, b, c)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestIntegration_LargeValue(t *testing.T) {
	client := newIntegrationClient(t, Config{})
	ctx := context.Background()
	key := uniqueKey("large")
	t.Cleanup(func() { _, _ = client.Del(context.Background(), key) })

	large := bytes.Repeat([]byte{0xAB}, 1<<20)
	require.NoError(t, client.Set(ctx, key, Bytes(large)))

	v, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, large, v.Bytes())
}

func TestIntegration_ServerErrorKeepsConnection(t *testing.T) {
	client := newIntegrationClient(t, Config{})
	ctx := context.Background()

	// Arity errors come back as error replies and keep the connection.
	_, err := execute(ctx, client, "GET", nil, decodeValue)
	require.Error(t, err)

	require.NoError(t, client.Set(ctx, uniqueKey("after_error"), String("ok")))
	assert.Zero(t, client.PoolStats().DestroyedConns)
	assert.EqualValues(t, 1, client.Stats().ServerErrors)
}

func TestIntegration_Concurrent(t *testing.T) {
	client := newIntegrationClient(t, Config{MaxConnections: 8})
	prefix := uniqueKey("concurrent").Text()

	g, ctx := errgroup.WithContext(context.Background())
	for i := range 200 {
		g.Go(func() error {
			key := String(fmt.Sprintf("%s_%d", prefix, i))
			if err := client.Set(ctx, key, Int(int64(i))); err != nil {
				return err
			}
			v, err := client.Get(ctx, key)
			if err != nil {
				return err
			}
			if n, err := v.Int64(); err != nil || n != int64(i) {
				return fmt.Errorf("%s: got %s", key, v)
			}
			_, err = client.Del(ctx, key)
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.LessOrEqual(t, client.PoolStats().TotalConns, int32(8))
}
