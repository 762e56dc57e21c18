package resp

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for RESP operations.
// Each one tells the caller whether the connection it came from can still be
// trusted, which drives the release-vs-destroy decision in connection pools.

// ServerError represents a RESP error reply ("-ERR ...").
// The reply was framed correctly, so the connection protocol state is intact.
//
// Common causes:
//   - Wrong number of arguments
//   - WRONGTYPE operation against a key holding another type
//   - OOM, READONLY, LOADING conditions on the server
//
// Connection handling: Connection can be REUSED
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "redis: " + e.Message
}

// Prefix returns the leading error code of the message, e.g. "ERR" or
// "WRONGTYPE". It returns an empty string when the message has none.
func (e *ServerError) Prefix() string {
	code, _, found := strings.Cut(e.Message, " ")
	if !found {
		return ""
	}
	return code
}

// ShouldCloseConnection returns false - error replies don't corrupt protocol state
func (e *ServerError) ShouldCloseConnection() bool {
	return false
}

// ProtocolError represents a reply the client could not decode.
// The byte stream can no longer be framed reliably.
//
// Common causes:
//   - Unknown type byte
//   - Non-numeric length, count or integer field
//   - Bulk payload not followed by CRLF
//
// Connection handling: Connection should be CLOSED
type ProtocolError struct {
	Message string
	Err     error // Underlying error, if any
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return "resp: protocol error: " + e.Message + ": " + e.Err.Error()
	}
	return "resp: protocol error: " + e.Message
}

// Unwrap returns the underlying error for error chain inspection
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - the stream position is unknown
func (e *ProtocolError) ShouldCloseConnection() bool {
	return true
}

// LimitExceededError is returned when a bulk string length, an array count or
// a line length is above the accepted maximum. The decode is aborted before
// anything is allocated for the oversized value.
//
// Connection handling: Connection should be CLOSED (the payload was not consumed)
type LimitExceededError struct {
	Kind  string // "bulk", "array" or "line"
	Size  int64
	Limit int64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("resp: %s length %d exceeds limit %d", e.Kind, e.Size, e.Limit)
}

// ShouldCloseConnection returns true - unread payload is left on the wire
func (e *LimitExceededError) ShouldCloseConnection() bool {
	return true
}

// ConnectionError wraps I/O failures on the underlying connection.
//
// Common causes:
//   - Connection closed by the server
//   - Connection reset
//   - Dial failure
//
// Connection handling: Connection is already broken, CLOSE it
type ConnectionError struct {
	Op  string // Operation that failed (dial, read, write)
	Err error  // Underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("resp: connection error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - connection errors mean connection is broken
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// ErrorWithConnectionState is an interface for errors that indicate
// whether the connection should be closed.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err requires closing the connection
// it was observed on.
//
// Returns false for nil and ServerError, true for ConnectionError,
// ProtocolError and LimitExceededError. Errors that don't implement
// ErrorWithConnectionState are treated as fatal.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	// Unknown error type - be conservative and close connection
	return true
}
