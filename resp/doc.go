// Package resp implements the client side of the Redis Serialization
// Protocol (RESP2) over caller-owned, fixed-size buffers.
//
// It is the wire layer of the redis client: it knows nothing about pooling
// or command semantics, only about framing bytes correctly.
//
// # Writing requests
//
// A Writer stages a command in a fixed buffer and flushes it to the
// underlying connection. Every request is an array of bulk strings:
//
//	w := resp.NewWriter(conn, 1024)
//	err := w.WriteCommand("SET", []byte("mykey"), []byte("hello"))
//	// *3\r\n$3\r\nSET\r\n$5\r\nmykey\r\n$5\r\nhello\r\n
//
// Arguments larger than SmallArgMax bypass the staging buffer and are written
// to the connection directly. Length prefixes come from a precomputed table
// for small magnitudes (see AppendInt).
//
// # Reading replies
//
// A Reader owns a fixed receive buffer and a (start, end) cursor over it.
// The buffer is refilled only once it is fully drained. Lines and bulk
// payloads that are already buffered are sliced in place; anything spanning
// a refill is assembled in a separate slice so the receive buffer never grows.
//
//	r := resp.NewReader(conn, 1024)
//	reply, err := r.ReadReply()
//	if err != nil {
//	    if resp.ShouldCloseConnection(err) {
//	        conn.Close()
//	    }
//	    return err
//	}
//	if err := reply.Err(); err != nil {
//	    // -ERR ... from the server; the connection is still usable
//	}
//
// # Error Handling
//
// Errors returned by this package carry a ShouldCloseConnection method:
//
//   - ConnectionError: read/write failure or unexpected close (close)
//   - ProtocolError: malformed reply (close)
//   - LimitExceededError: bulk or array size above MaxBulkLen/MaxArrayLen (close)
//   - ServerError: a RESP error reply (keep the connection)
//
// ServerError is never returned by ReadReply itself; it is produced by
// Reply.Err so that callers can tell a logical failure from a broken stream.
package resp
