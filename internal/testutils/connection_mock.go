package testutils

import (
	"bytes"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// ConnectionMock is a mock implementation of net.Conn for testing.
//
// Reads are served from pre-configured reply data, at most ChunkSize bytes
// per call when ChunkSize is set, so tests can exercise replies that arrive
// split across many reads. Every Write call is recorded.
type ConnectionMock struct {
	// ChunkSize caps the bytes returned by a single Read. Zero means no cap.
	ChunkSize int

	// WriteErr, when set, is returned by every Write.
	WriteErr error

	// MaxWrite caps the bytes accepted by a single Write, to simulate short
	// writes. Zero means no cap.
	MaxWrite int

	mu       sync.Mutex
	readBuf  *bytes.Buffer
	writeBuf bytes.Buffer
	writes   [][]byte
	closed   bool
}

// NewConnectionMock creates a new mock connection with pre-configured reply data
func NewConnectionMock(replyData ...string) *ConnectionMock {
	return &ConnectionMock{
		readBuf: bytes.NewBufferString(strings.Join(replyData, "")),
	}
}

func (m *ConnectionMock) Read(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, net.ErrClosed
	}
	if m.readBuf.Len() == 0 {
		return 0, io.EOF
	}
	if m.ChunkSize > 0 && len(b) > m.ChunkSize {
		b = b[:m.ChunkSize]
	}
	return m.readBuf.Read(b)
}

func (m *ConnectionMock) Write(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, net.ErrClosed
	}
	if m.WriteErr != nil {
		return 0, m.WriteErr
	}
	if m.MaxWrite > 0 && len(b) > m.MaxWrite {
		b = b[:m.MaxWrite]
	}
	m.writes = append(m.writes, bytes.Clone(b))
	return m.writeBuf.Write(b)
}

// AddReply appends more reply data to be read.
func (m *ConnectionMock) AddReply(data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readBuf.WriteString(data)
}

func (m *ConnectionMock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (m *ConnectionMock) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *ConnectionMock) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (m *ConnectionMock) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 6379}
}

func (m *ConnectionMock) SetDeadline(t time.Time) error      { return nil }
func (m *ConnectionMock) SetReadDeadline(t time.Time) error  { return nil }
func (m *ConnectionMock) SetWriteDeadline(t time.Time) error { return nil }

// GetWrittenRequest returns the raw request bytes written to the mock connection
func (m *ConnectionMock) GetWrittenRequest() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeBuf.String()
}

// Writes returns a copy of each Write call's payload, in order.
func (m *ConnectionMock) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.writes...)
}
