package resp

import (
	"bytes"
	"io"
)

// maxEmptyReads bounds consecutive reads that return neither data nor error.
const maxEmptyReads = 100

// initialScratchSize is the first allocation for a line spanning a refill.
const initialScratchSize = 64

// Reader decodes RESP replies from an io.Reader through a fixed receive
// buffer.
//
// buf[start:end] holds received bytes not yet consumed. The buffer is
// refilled from offset 0 only once it is fully drained, and it never grows:
// values that do not fit are assembled in separately allocated slices.
//
// A Reader is not safe for concurrent use.
type Reader struct {
	rd    io.Reader
	buf   []byte
	start int
	end   int
}

// NewReader returns a Reader with a receive buffer of size bytes.
// Sizes below MinBufferSize are raised to MinBufferSize.
func NewReader(rd io.Reader, size int) *Reader {
	if size < MinBufferSize {
		size = MinBufferSize
	}
	return &Reader{
		rd:  rd,
		buf: make([]byte, size),
	}
}

// Reset discards any buffered data and switches to reading from rd.
func (r *Reader) Reset(rd io.Reader) {
	r.rd = rd
	r.start = 0
	r.end = 0
}

// Buffered returns the number of received bytes not yet consumed.
func (r *Reader) Buffered() int {
	return r.end - r.start
}

// Size returns the capacity of the receive buffer.
func (r *Reader) Size() int {
	return len(r.buf)
}

// fill reads into the drained buffer. It must only be called when
// start == end.
func (r *Reader) fill() error {
	r.start = 0
	r.end = 0

	for range maxEmptyReads {
		n, err := r.rd.Read(r.buf)
		if n > 0 {
			// Data first: an error delivered alongside it surfaces on the next fill.
			r.end = n
			return nil
		}
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return &ConnectionError{Op: "read", Err: err}
		}
	}
	return &ConnectionError{Op: "read", Err: io.ErrNoProgress}
}

func (r *Reader) readByte() (byte, error) {
	if r.start == r.end {
		if err := r.fill(); err != nil {
			return 0, err
		}
	}
	c := r.buf[r.start]
	r.start++
	return c, nil
}

// readLine returns the next line without its CRLF terminator.
//
// When the whole line is buffered the result aliases the receive buffer and
// is only valid until the next read. Otherwise the line is assembled in a
// fresh slice.
func (r *Reader) readLine() ([]byte, error) {
	if r.start == r.end {
		if err := r.fill(); err != nil {
			return nil, err
		}
	}

	// Fast path
	if i := bytes.Index(r.buf[r.start:r.end], crlfBytes); i >= 0 {
		if i > MaxLineLen {
			return nil, &LimitExceededError{Kind: "line", Size: int64(i), Limit: MaxLineLen}
		}
		line := r.buf[r.start : r.start+i]
		r.start += i + 2
		return line, nil
	}

	return r.readLineSlow()
}

func (r *Reader) readLineSlow() ([]byte, error) {
	line := make([]byte, 0, initialScratchSize)

	for {
		chunk := r.buf[r.start:r.end]

		if i := bytes.Index(chunk, crlfBytes); i >= 0 {
			line = append(line, chunk[:i]...)
			r.start += i + 2
			break
		}

		// A trailing '\r' may be completed by a '\n' at the head of the next read.
		if chunk[len(chunk)-1] == '\r' {
			line = append(line, chunk[:len(chunk)-1]...)
			r.start = r.end
			if err := r.fill(); err != nil {
				return nil, err
			}
			if r.buf[r.start] == '\n' {
				r.start++
				break
			}
			line = append(line, '\r')
		} else {
			line = append(line, chunk...)
			r.start = r.end
			if err := r.fill(); err != nil {
				return nil, err
			}
		}

		if len(line) > MaxLineLen {
			return nil, &LimitExceededError{Kind: "line", Size: int64(len(line)), Limit: MaxLineLen}
		}
	}

	if len(line) > MaxLineLen {
		return nil, &LimitExceededError{Kind: "line", Size: int64(len(line)), Limit: MaxLineLen}
	}
	return line[:len(line):len(line)], nil
}

// readBulk reads an n-byte payload and its CRLF terminator.
// borrowed reports whether the result aliases the receive buffer.
func (r *Reader) readBulk(n int) (b []byte, borrowed bool, err error) {
	// Fast path: payload and terminator already buffered.
	if r.end-r.start >= n+2 {
		b = r.buf[r.start : r.start+n]
		if r.buf[r.start+n] != '\r' || r.buf[r.start+n+1] != '\n' {
			return nil, false, &ProtocolError{Message: "bulk string not terminated by CRLF"}
		}
		r.start += n + 2
		return b, true, nil
	}

	b = make([]byte, n)
	copied := 0
	for copied < n {
		if r.start == r.end {
			if err := r.fill(); err != nil {
				return nil, false, err
			}
		}
		k := copy(b[copied:], r.buf[r.start:r.end])
		r.start += k
		copied += k
	}

	for _, want := range crlfBytes {
		c, err := r.readByte()
		if err != nil {
			return nil, false, err
		}
		if c != want {
			return nil, false, &ProtocolError{Message: "bulk string not terminated by CRLF"}
		}
	}
	return b, false, nil
}

// readLength parses the count that follows '$' or '*'.
func (r *Reader) readLength(kind Kind) (int64, error) {
	line, err := r.readLine()
	if err != nil {
		return 0, err
	}
	n, ok := parseInt(line)
	if !ok {
		return 0, &ProtocolError{Message: "invalid " + kind.String() + " length " + quoteField(line)}
	}
	return n, nil
}

// ReadReply reads one complete reply, including every element of nested
// arrays.
//
// Error replies are returned as a Reply of KindError with a nil error; use
// Reply.Err to convert them. A non-nil error means the stream can no longer
// be trusted, except where ShouldCloseConnection says otherwise.
func (r *Reader) ReadReply() (Reply, error) {
	t, err := r.readByte()
	if err != nil {
		return Reply{}, err
	}

	kind := Kind(t)
	switch kind {
	case KindSimpleString, KindError:
		line, err := r.readLine()
		if err != nil {
			return Reply{}, err
		}
		if kind == KindSimpleString && bytes.Equal(line, okBytes) {
			return Reply{Kind: kind, Str: "OK"}, nil
		}
		return Reply{Kind: kind, Str: string(line)}, nil

	case KindInteger:
		line, err := r.readLine()
		if err != nil {
			return Reply{}, err
		}
		n, ok := parseInt(line)
		if !ok {
			return Reply{}, &ProtocolError{Message: "invalid integer " + quoteField(line)}
		}
		return Reply{Kind: kind, Int: n}, nil

	case KindBulkString:
		n, err := r.readLength(kind)
		if err != nil {
			return Reply{}, err
		}
		switch {
		case n == -1:
			return Reply{Kind: kind, Null: true}, nil
		case n < 0:
			return Reply{}, &ProtocolError{Message: "negative bulk string length"}
		case n > MaxBulkLen:
			return Reply{}, &LimitExceededError{Kind: "bulk", Size: n, Limit: MaxBulkLen}
		}
		b, borrowed, err := r.readBulk(int(n))
		if err != nil {
			return Reply{}, err
		}
		if borrowed {
			b = bytes.Clone(b)
		}
		return Reply{Kind: kind, Bulk: b}, nil

	case KindArray:
		n, err := r.readLength(kind)
		if err != nil {
			return Reply{}, err
		}
		switch {
		case n == -1:
			return Reply{Kind: kind, Null: true}, nil
		case n < 0:
			return Reply{}, &ProtocolError{Message: "negative array length"}
		case n > MaxArrayLen:
			return Reply{}, &LimitExceededError{Kind: "array", Size: n, Limit: MaxArrayLen}
		}
		elems := make([]Reply, n)
		for i := range elems {
			if elems[i], err = r.ReadReply(); err != nil {
				return Reply{}, err
			}
		}
		return Reply{Kind: kind, Array: elems}, nil

	default:
		return Reply{}, &ProtocolError{Message: "unknown reply type " + quoteField([]byte{t})}
	}
}

// quoteField renders a short excerpt of malformed input for error messages.
func quoteField(b []byte) string {
	const maxExcerpt = 32
	if len(b) > maxExcerpt {
		b = b[:maxExcerpt]
	}
	return "\"" + string(bytes.ToValidUTF8(b, []byte("?"))) + "\""
}
