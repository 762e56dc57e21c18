package resp

import (
	"bytes"
	"io"
	"testing"
)

// replayReader serves the same payload forever.
type replayReader struct {
	data []byte
	pos  int
}

func (r *replayReader) Read(p []byte) (int, error) {
	if r.pos == len(r.data) {
		r.pos = 0
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func benchmarkWriteCommand(b *testing.B, value []byte) {
	w := NewWriter(io.Discard, 1024)
	key := []byte("benchmark:key")
	b.SetBytes(int64(len(value)))
	b.ResetTimer()

	for b.Loop() {
		if err := w.WriteCommand("SET", key, value); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkWriteCommand_SmallSet(b *testing.B) {
	benchmarkWriteCommand(b, bytes.Repeat([]byte("x"), 100))
}

func BenchmarkWriteCommand_LargeSet(b *testing.B) {
	benchmarkWriteCommand(b, bytes.Repeat([]byte("x"), 10*1024))
}

func BenchmarkWriteCommand_Get(b *testing.B) {
	w := NewWriter(io.Discard, 1024)
	key := []byte("benchmark:key")

	for b.Loop() {
		if err := w.WriteCommand("GET", key); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkReadReply(b *testing.B, payload string) {
	r := NewReader(&replayReader{data: []byte(payload)}, 1024)
	b.SetBytes(int64(len(payload)))
	b.ResetTimer()

	for b.Loop() {
		if _, err := r.ReadReply(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReadReply_OK(b *testing.B) {
	benchmarkReadReply(b, "+OK\r\n")
}

func BenchmarkReadReply_Integer(b *testing.B) {
	benchmarkReadReply(b, ":12345\r\n")
}

func BenchmarkReadReply_SmallBulk(b *testing.B) {
	benchmarkReadReply(b, "$100\r\n"+string(bytes.Repeat([]byte("v"), 100))+"\r\n")
}

func BenchmarkReadReply_LargeBulk(b *testing.B) {
	benchmarkReadReply(b, "$10240\r\n"+string(bytes.Repeat([]byte("v"), 10240))+"\r\n")
}

func BenchmarkAppendInt(b *testing.B) {
	buf := make([]byte, 0, 32)
	for b.Loop() {
		buf = AppendInt(buf[:0], 4096)
	}
}
