package resp

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/redis/internal/testutils"
)

func TestWriteCommand(t *testing.T) {
	tests := []struct {
		name     string
		cmd      string
		args     [][]byte
		expected string
	}{
		{
			name:     "no args",
			cmd:      "PING",
			expected: "*1\r\n$4\r\nPING\r\n",
		},
		{
			name:     "get",
			cmd:      "GET",
			args:     [][]byte{[]byte("mykey")},
			expected: "*2\r\n$3\r\nGET\r\n$5\r\nmykey\r\n",
		},
		{
			name:     "set",
			cmd:      "SET",
			args:     [][]byte{[]byte("mykey"), []byte("hello")},
			expected: "*3\r\n$3\r\nSET\r\n$5\r\nmykey\r\n$5\r\nhello\r\n",
		},
		{
			name:     "empty argument",
			cmd:      "SET",
			args:     [][]byte{[]byte("k"), {}},
			expected: "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$0\r\n\r\n",
		},
		{
			name:     "binary argument",
			cmd:      "SET",
			args:     [][]byte{[]byte("k"), []byte("a\r\nb\x00")},
			expected: "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$5\r\na\r\nb\x00\r\n",
		},
		{
			name: "multi-key del",
			cmd:  "DEL",
			args: [][]byte{[]byte("a"), []byte("b"), []byte("c")},
			expected: "*4\r\n$3\r\nDEL\r\n" +
				"$1\r\na\r\n$1\r\nb\r\n$1\r\nc\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf, 1024)

			err := w.WriteCommand(tt.cmd, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, buf.String())
			assert.Zero(t, w.Buffered())
		})
	}
}

func TestWriteCommand_LargeArgumentWrittenDirectly(t *testing.T) {
	conn := testutils.NewConnectionMock()
	w := NewWriter(conn, 1024)

	payload := bytes.Repeat([]byte("v"), SmallArgMax+1)
	err := w.WriteCommand("SET", []byte("mykey"), payload)
	require.NoError(t, err)

	writes := conn.Writes()
	require.Len(t, writes, 3)
	assert.Equal(t, "*3\r\n$3\r\nSET\r\n$5\r\nmykey\r\n$129\r\n", string(writes[0]))
	assert.Equal(t, payload, writes[1])
	assert.Equal(t, "\r\n", string(writes[2]))

	expected := "*3\r\n$3\r\nSET\r\n$5\r\nmykey\r\n$129\r\n" + string(payload) + "\r\n"
	assert.Equal(t, expected, conn.GetWrittenRequest())
}

func TestWriteCommand_SmallArgumentIsStaged(t *testing.T) {
	conn := testutils.NewConnectionMock()
	w := NewWriter(conn, 1024)

	err := w.WriteCommand("SET", []byte("mykey"), bytes.Repeat([]byte("v"), SmallArgMax))
	require.NoError(t, err)
	assert.Len(t, conn.Writes(), 1)
}

func TestWriteCommand_FlushesWhenStagingIsFull(t *testing.T) {
	conn := testutils.NewConnectionMock()
	w := NewWriter(conn, MinBufferSize)

	var args [][]byte
	var expected strings.Builder
	expected.WriteString("*11\r\n$3\r\nDEL\r\n")
	for i := range 10 {
		arg := bytes.Repeat([]byte{byte('a' + i)}, SmallArgMax)
		args = append(args, arg)
		expected.WriteString("$128\r\n" + string(arg) + "\r\n")
	}

	err := w.WriteCommand("DEL", args...)
	require.NoError(t, err)
	assert.Equal(t, expected.String(), conn.GetWrittenRequest())

	writes := conn.Writes()
	assert.Greater(t, len(writes), 1)
	for _, p := range writes {
		assert.LessOrEqual(t, len(p), MinBufferSize)
	}
	assert.Equal(t, MinBufferSize, w.Size(), "staging buffer must not grow")
}

func TestWriteCommand_LongCommandName(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, MinBufferSize)

	name := strings.Repeat("X", 3*MinBufferSize)
	require.NoError(t, w.WriteCommand(name))
	assert.Equal(t, "*1\r\n$768\r\n"+name+"\r\n", buf.String())
}

func TestWriteCommand_ShortWrites(t *testing.T) {
	conn := testutils.NewConnectionMock()
	conn.MaxWrite = 3
	w := NewWriter(conn, MinBufferSize)

	payload := bytes.Repeat([]byte("p"), 1000)
	require.NoError(t, w.WriteCommand("SET", []byte("k"), payload))
	assert.Equal(t, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1000\r\n"+string(payload)+"\r\n", conn.GetWrittenRequest())
}

func TestWriteCommand_WriteError(t *testing.T) {
	boom := errors.New("broken pipe")
	conn := testutils.NewConnectionMock()
	conn.WriteErr = boom
	w := NewWriter(conn, MinBufferSize)

	err := w.WriteCommand("GET", []byte("k"))

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "write", connErr.Op)
	assert.ErrorIs(t, err, boom)
	assert.True(t, ShouldCloseConnection(err))
	assert.Zero(t, w.Buffered())
}

type zeroWriter struct{}

func (zeroWriter) Write([]byte) (int, error) { return 0, nil }

func TestWriteCommand_ZeroProgressWrite(t *testing.T) {
	w := NewWriter(zeroWriter{}, MinBufferSize)

	err := w.WriteCommand("GET", []byte("k"))
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestWriter_Reset(t *testing.T) {
	var first, second bytes.Buffer
	w := NewWriter(&first, 0)
	assert.Equal(t, MinBufferSize, w.Size())

	w.buf = append(w.buf, "stale"...)
	w.Reset(&second)
	assert.Zero(t, w.Buffered())

	require.NoError(t, w.WriteCommand("PING"))
	assert.Empty(t, first.String())
	assert.Equal(t, "*1\r\n$4\r\nPING\r\n", second.String())
}

func TestWriterReaderRoundTrip(t *testing.T) {
	// A request is an array of bulk strings, so the reader decodes it too.
	var buf bytes.Buffer
	w := NewWriter(&buf, MinBufferSize)

	big := bytes.Repeat([]byte("b"), 5000)
	require.NoError(t, w.WriteCommand("SET", []byte("key"), big))

	r := NewReader(&buf, MinBufferSize)
	reply, err := r.ReadReply()
	require.NoError(t, err)
	require.Len(t, reply.Array, 3)
	assert.Equal(t, "SET", string(reply.Array[0].Bulk))
	assert.Equal(t, "key", string(reply.Array[1].Bulk))
	assert.Equal(t, big, reply.Array[2].Bulk)
}
