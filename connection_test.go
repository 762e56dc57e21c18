package redis

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/redis/internal/redistest"
	"github.com/pior/redis/internal/testutils"
	"github.com/pior/redis/resp"
)

func TestConnection_LazyConnect(t *testing.T) {
	srv := redistest.NewServer(t)

	conn := NewConnection(srv.Addr(), ConnectionConfig{})
	defer conn.Close()

	assert.False(t, conn.IsConnected())
	assert.Equal(t, srv.Addr(), conn.Addr())
	assert.Zero(t, srv.Accepted(), "no dial before first use")

	reply, err := conn.Do(context.Background(), "PING")
	require.NoError(t, err)
	assert.Equal(t, "PONG", reply.Str)
	assert.True(t, conn.IsConnected())

	_, err = conn.Do(context.Background(), "PING")
	require.NoError(t, err)
	assert.EqualValues(t, 1, srv.Accepted(), "dialed once")
}

func TestConnection_EnsureConnectedIdempotent(t *testing.T) {
	srv := redistest.NewServer(t)

	conn := NewConnection(srv.Addr(), ConnectionConfig{NoDelay: true})
	defer conn.Close()

	require.NoError(t, conn.EnsureConnected(context.Background()))
	require.NoError(t, conn.EnsureConnected(context.Background()))
	assert.EqualValues(t, 1, srv.Accepted())
}

func TestConnection_DialFailure(t *testing.T) {
	dialErr := errors.New("connection refused")
	conn := NewConnection("127.0.0.1:1", ConnectionConfig{
		Dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
			assert.Equal(t, "tcp", network)
			assert.Equal(t, "127.0.0.1:1", addr)
			return nil, dialErr
		},
	})

	_, err := conn.Do(context.Background(), "PING")

	var connErr *resp.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "dial", connErr.Op)
	assert.ErrorIs(t, err, dialErr)
	assert.True(t, resp.ShouldCloseConnection(err))
}

func TestConnection_DialHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conn := NewConnection("127.0.0.1:6379", ConnectionConfig{
		Dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return nil, ctx.Err()
		},
	})
	err := conn.EnsureConnected(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConnection_DoWithMock(t *testing.T) {
	mock := testutils.NewConnectionMock("$5\r\nhello\r\n")
	mock.ChunkSize = 1
	conn := NewConnectionFrom(mock, ConnectionConfig{})

	reply, err := conn.Do(context.Background(), "GET", []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), reply.Bulk)
	assert.Equal(t, "*2\r\n$3\r\nGET\r\n$1\r\nk\r\n", mock.GetWrittenRequest())
}

func TestConnection_ErrorReplyIsNotAnError(t *testing.T) {
	mock := testutils.NewConnectionMock("-ERR something\r\n", "+OK\r\n")
	conn := NewConnectionFrom(mock, ConnectionConfig{})

	reply, err := conn.Do(context.Background(), "SET", []byte("k"), []byte("v"))
	require.NoError(t, err)
	assert.Equal(t, resp.KindError, reply.Kind)

	reply, err = conn.Do(context.Background(), "SET", []byte("k"), []byte("v"))
	require.NoError(t, err)
	assert.True(t, reply.IsOK())
}

func TestConnection_CloseIdempotent(t *testing.T) {
	mock := testutils.NewConnectionMock()
	conn := NewConnectionFrom(mock, ConnectionConfig{})

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.True(t, mock.IsClosed())
	assert.False(t, conn.IsConnected())

	_, err := conn.Do(context.Background(), "PING")
	assert.True(t, resp.ShouldCloseConnection(err))
}

func TestConnection_CloseUnconnected(t *testing.T) {
	conn := NewConnection("127.0.0.1:6379", ConnectionConfig{})
	assert.NoError(t, conn.Close())
}

func TestConnection_UniqueIDs(t *testing.T) {
	a := NewConnection("127.0.0.1:6379", ConnectionConfig{})
	b := NewConnection("127.0.0.1:6379", ConnectionConfig{})
	assert.NotEqual(t, a.ID(), b.ID())
}
