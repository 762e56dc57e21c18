package redis

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/pior/redis/resp"
)

var (
	// ErrPoolClosed is returned by Acquire once the pool has been closed.
	ErrPoolClosed = errors.New("redis: pool closed")

	// ErrClientClosed is returned by commands issued after Client.Close.
	ErrClientClosed = errors.New("redis: client closed")

	// ErrAbsentArgument is returned when a key or value passed to a command
	// holds no value. Nothing is sent to the server.
	ErrAbsentArgument = errors.New("redis: absent key or value")

	// ErrNoServers is returned by NewClient when the server list is empty.
	ErrNoServers = errors.New("redis: no servers provided")
)

// FormatError is returned when a Value's bytes do not parse as the requested
// number type.
type FormatError struct {
	Input  string
	Target string // "integer", "float" or "decimal"
}

func (e *FormatError) Error() string {
	return "redis: cannot convert " + strconv.Quote(e.Input) + " to " + e.Target
}

// OverflowError is returned when a Value holds an integer outside the range
// of the requested type.
type OverflowError struct {
	Input  string
	Target string
}

func (e *OverflowError) Error() string {
	return "redis: " + e.Input + " overflows " + e.Target
}

// UnexpectedReplyError is returned when the server answers a command with a
// reply of the wrong type, e.g. an integer where "+OK" was expected.
// The request/reply pairing can no longer be trusted.
//
// Connection handling: Connection should be CLOSED
type UnexpectedReplyError struct {
	Command string
	Reply   resp.Reply
}

func (e *UnexpectedReplyError) Error() string {
	return fmt.Sprintf("redis: unexpected reply to %s: %s", e.Command, e.Reply)
}

// ShouldCloseConnection returns true - the reply stream is out of sync
func (e *UnexpectedReplyError) ShouldCloseConnection() bool {
	return true
}
