package resp

import (
	"io"
)

// Writer encodes RESP requests into a fixed staging buffer and flushes them
// to an io.Writer.
//
// The staging buffer never grows. A chunk that would overflow it triggers a
// flush first, and arguments larger than SmallArgMax skip it entirely.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	wr  io.Writer
	buf []byte // len is the staged byte count, cap is fixed
}

// NewWriter returns a Writer with a staging buffer of size bytes.
// Sizes below MinBufferSize are raised to MinBufferSize.
func NewWriter(wr io.Writer, size int) *Writer {
	if size < MinBufferSize {
		size = MinBufferSize
	}
	return &Writer{
		wr:  wr,
		buf: make([]byte, 0, size),
	}
}

// Reset discards staged bytes and switches to writing to wr.
func (w *Writer) Reset(wr io.Writer) {
	w.wr = wr
	w.buf = w.buf[:0]
}

// Buffered returns the number of staged bytes not yet flushed.
func (w *Writer) Buffered() int {
	return len(w.buf)
}

// Size returns the capacity of the staging buffer.
func (w *Writer) Size() int {
	return cap(w.buf)
}

// Flush writes every staged byte to the underlying writer.
func (w *Writer) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	err := w.writeFull(w.buf)
	w.buf = w.buf[:0]
	return err
}

// writeFull loops until p is fully written.
func (w *Writer) writeFull(p []byte) error {
	for len(p) > 0 {
		n, err := w.wr.Write(p)
		if err != nil {
			return &ConnectionError{Op: "write", Err: err}
		}
		if n <= 0 {
			return &ConnectionError{Op: "write", Err: io.ErrShortWrite}
		}
		p = p[n:]
	}
	return nil
}

// ensure makes room for k more staged bytes, flushing if needed.
// k must not exceed the staging capacity.
func (w *Writer) ensure(k int) error {
	if len(w.buf)+k <= cap(w.buf) {
		return nil
	}
	return w.Flush()
}

func (w *Writer) writeHeader(prefix Kind, n int) error {
	if err := w.ensure(maxHeaderLen); err != nil {
		return err
	}
	w.buf = append(w.buf, byte(prefix))
	w.buf = AppendInt(w.buf, int64(n))
	w.buf = append(w.buf, CRLF...)
	return nil
}

// writeStaged copies p into the staging buffer, flushing as often as needed.
func (w *Writer) writeStaged(p []byte) error {
	for len(p) > 0 {
		if len(w.buf) == cap(w.buf) {
			if err := w.Flush(); err != nil {
				return err
			}
		}
		k := copy(w.buf[len(w.buf):cap(w.buf)], p)
		w.buf = w.buf[:len(w.buf)+k]
		p = p[k:]
	}
	return nil
}

func (w *Writer) writeBulk(arg []byte) error {
	if err := w.writeHeader(KindBulkString, len(arg)); err != nil {
		return err
	}

	if len(arg) > SmallArgMax {
		// Large payloads go straight to the connection after the staged header.
		if err := w.Flush(); err != nil {
			return err
		}
		if err := w.writeFull(arg); err != nil {
			return err
		}
	} else if err := w.writeStaged(arg); err != nil {
		return err
	}

	if err := w.ensure(len(crlfBytes)); err != nil {
		return err
	}
	w.buf = append(w.buf, CRLF...)
	return nil
}

func (w *Writer) writeBulkString(s string) error {
	if err := w.writeHeader(KindBulkString, len(s)); err != nil {
		return err
	}
	for len(s) > 0 {
		if len(w.buf) == cap(w.buf) {
			if err := w.Flush(); err != nil {
				return err
			}
		}
		k := copy(w.buf[len(w.buf):cap(w.buf)], s)
		w.buf = w.buf[:len(w.buf)+k]
		s = s[k:]
	}
	if err := w.ensure(len(crlfBytes)); err != nil {
		return err
	}
	w.buf = append(w.buf, CRLF...)
	return nil
}

// WriteCommand encodes name and args as an array of bulk strings and
// flushes it.
// Format: *<1+len(args)>\r\n$<len(name)>\r\n<name>\r\n[$<len>\r\n<arg>\r\n]*
//
// Any error is a *ConnectionError; the request may have been partially sent
// and the connection must not be reused.
func (w *Writer) WriteCommand(name string, args ...[]byte) error {
	if err := w.writeHeader(KindArray, 1+len(args)); err != nil {
		return err
	}
	if err := w.writeBulkString(name); err != nil {
		return err
	}
	for _, arg := range args {
		if err := w.writeBulk(arg); err != nil {
			return err
		}
	}
	return w.Flush()
}
