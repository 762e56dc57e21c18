// Package redistest provides an in-process RESP server speaking enough of
// the Redis protocol (SET, GET, DEL, PING) to test the client against real
// sockets.
package redistest

import (
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pior/redis/resp"
)

// Server is a fake Redis server listening on a loopback port.
type Server struct {
	ln net.Listener

	mu       sync.Mutex
	data     map[string][]byte
	injected []string // raw replies served instead of the next commands
	conns    map[net.Conn]struct{}
	closed   bool

	accepted atomic.Int64
	commands atomic.Int64

	wg sync.WaitGroup
}

// NewServer starts a Server and stops it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("redistest: failed to listen: %v", err)
	}

	s := &Server{
		ln:    ln,
		data:  make(map[string][]byte),
		conns: make(map[net.Conn]struct{}),
	}

	s.wg.Add(1)
	go s.serve()

	t.Cleanup(s.Close)
	return s
}

// Addr returns the "host:port" the server listens on.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// FailNext makes the next command receive the error reply "-<msg>".
func (s *Server) FailNext(msg string) {
	s.ReplyNext("-" + msg + "\r\n")
}

// ReplyNext makes the next command receive raw bytes as its reply.
// Calls queue up, one reply per command.
func (s *Server) ReplyNext(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.injected = append(s.injected, raw)
}

// Accepted returns the number of connections accepted so far.
func (s *Server) Accepted() int64 {
	return s.accepted.Load()
}

// Active returns the number of currently open client connections.
func (s *Server) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Commands returns the number of commands received so far.
func (s *Server) Commands() int64 {
	return s.commands.Load()
}

// Get returns the value stored under key.
func (s *Server) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Put stores a value directly, bypassing the protocol.
func (s *Server) Put(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// DropConnections closes every open client connection, as a server restart
// would.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
}

// Close stops the listener and closes every client connection.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	_ = s.ln.Close()
	s.DropConnections()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.accepted.Add(1)

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			continue
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	r := resp.NewReader(conn, 4096)
	for {
		req, err := r.ReadReply()
		if err != nil {
			return
		}
		s.commands.Add(1)

		reply := s.execute(req)
		if _, err := conn.Write(reply); err != nil {
			return
		}
	}
}

func (s *Server) execute(req resp.Reply) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.injected) > 0 {
		raw := s.injected[0]
		s.injected = s.injected[1:]
		return []byte(raw)
	}

	args, err := commandArgs(req)
	if err != nil {
		return errorReply("ERR " + err.Error())
	}

	switch name := strings.ToUpper(string(args[0])); name {
	case "PING":
		return []byte("+PONG\r\n")

	case "SET":
		if len(args) != 3 {
			return wrongArity(name)
		}
		s.data[string(args[1])] = args[2]
		return []byte("+OK\r\n")

	case "GET":
		if len(args) != 2 {
			return wrongArity(name)
		}
		v, ok := s.data[string(args[1])]
		if !ok {
			return []byte("$-1\r\n")
		}
		out := []byte{'$'}
		out = resp.AppendInt(out, int64(len(v)))
		out = append(out, resp.CRLF...)
		out = append(out, v...)
		return append(out, resp.CRLF...)

	case "DEL":
		if len(args) < 2 {
			return wrongArity(name)
		}
		var n int64
		for _, key := range args[1:] {
			if _, ok := s.data[string(key)]; ok {
				delete(s.data, string(key))
				n++
			}
		}
		out := []byte{':'}
		out = resp.AppendInt(out, n)
		return append(out, resp.CRLF...)

	default:
		return errorReply("ERR unknown command '" + name + "'")
	}
}

func commandArgs(req resp.Reply) ([][]byte, error) {
	if req.Kind != resp.KindArray || len(req.Array) == 0 {
		return nil, errors.New("protocol error: expected a non-empty array")
	}
	args := make([][]byte, len(req.Array))
	for i, elem := range req.Array {
		if elem.Kind != resp.KindBulkString || elem.Null {
			return nil, errors.New("protocol error: expected bulk strings")
		}
		args[i] = elem.Bulk
	}
	return args, nil
}

func wrongArity(name string) []byte {
	return errorReply("ERR wrong number of arguments for '" + strings.ToLower(name) + "' command")
}

func errorReply(msg string) []byte {
	return []byte("-" + msg + "\r\n")
}
