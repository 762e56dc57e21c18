package redis

import (
	"bytes"
	"encoding/binary"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/zeebo/xxh3"
	"golang.org/x/exp/constraints"

	"github.com/pior/redis/resp"
)

// ValueKind is the variant held by a Value.
type ValueKind uint8

const (
	// KindAbsent is the zero Value: no value at all, as returned by GET on a
	// missing key.
	KindAbsent ValueKind = iota
	// KindInteger holds a signed 64-bit integer.
	KindInteger
	// KindBytes holds an arbitrary byte string.
	KindBytes
)

func (k ValueKind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindInteger:
		return "integer"
	case KindBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Value is a key or value exchanged with the server: absent, an integer or a
// byte string. The zero Value is absent.
//
// Values are immutable. Constructors copy caller slices and accessors return
// copies, so a Value can be shared between goroutines.
type Value struct {
	kind ValueKind
	i    int64
	b    []byte
}

// Absent returns the absent Value.
func Absent() Value {
	return Value{}
}

// String returns a Value holding the bytes of s.
func String(s string) Value {
	return Value{kind: KindBytes, b: []byte(s)}
}

// Bytes returns a Value holding a copy of b. A nil b yields an empty byte
// string, not an absent Value.
func Bytes(b []byte) Value {
	return Value{kind: KindBytes, b: append([]byte{}, b...)}
}

// Int returns a Value holding n.
func Int(n int64) Value {
	return Value{kind: KindInteger, i: n}
}

// Float returns an integer Value when f is integral and fits in an int64,
// and a byte string holding the shortest decimal form of f otherwise.
func Float(f float64) Value {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return Int(int64(f))
	}
	return Value{kind: KindBytes, b: strconv.AppendFloat(nil, f, 'g', -1, 64)}
}

// Decimal returns an integer Value when d is integral and fits in an int64,
// and a byte string holding d's decimal form otherwise.
func Decimal(d decimal.Decimal) Value {
	if d.IsInteger() {
		if bi := d.BigInt(); bi.IsInt64() {
			return Int(bi.Int64())
		}
	}
	return Value{kind: KindBytes, b: []byte(d.String())}
}

// Number returns a Value for any Go integer or float type. Integers become
// integer Values, except unsigned values above math.MaxInt64 which are kept
// as decimal text. Floats follow Float.
func Number[T constraints.Integer | constraints.Float](n T) Value {
	var zero T
	half := 0.5

	switch {
	case T(half) != zero:
		return Float(float64(n))
	case zero-1 > zero && uint64(n) > math.MaxInt64:
		return Value{kind: KindBytes, b: strconv.AppendUint(nil, uint64(n), 10)}
	default:
		return Int(int64(n))
	}
}

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind {
	return v.kind
}

// HasValue reports whether v is not absent.
func (v Value) HasValue() bool {
	return v.kind != KindAbsent
}

// Int64 returns v as an int64.
//
// Byte strings are parsed as ASCII decimal digits with an optional leading
// '-'. Anything else is a *FormatError, and values beyond the int64 range are
// an *OverflowError. Absent values and empty byte strings convert to 0.
func (v Value) Int64() (int64, error) {
	switch v.kind {
	case KindInteger:
		return v.i, nil
	case KindBytes:
		return parseDecimal(v.b)
	default:
		return 0, nil
	}
}

// Int returns v as an int, failing with *OverflowError where int is narrower
// than the stored integer.
func (v Value) Int() (int, error) {
	n, err := v.Int64()
	if err != nil {
		return 0, err
	}
	if int64(int(n)) != n {
		return 0, &OverflowError{Input: strconv.FormatInt(n, 10), Target: "int"}
	}
	return int(n), nil
}

// Float64 returns v as a float64. Byte strings are parsed with
// strconv.ParseFloat.
func (v Value) Float64() (float64, error) {
	switch v.kind {
	case KindInteger:
		return float64(v.i), nil
	case KindBytes:
		if len(v.b) == 0 {
			return 0, nil
		}
		f, err := strconv.ParseFloat(string(v.b), 64)
		if err != nil {
			return 0, &FormatError{Input: string(v.b), Target: "float"}
		}
		return f, nil
	default:
		return 0, nil
	}
}

// Decimal returns v as an arbitrary-precision decimal.
func (v Value) Decimal() (decimal.Decimal, error) {
	switch v.kind {
	case KindInteger:
		return decimal.NewFromInt(v.i), nil
	case KindBytes:
		if len(v.b) == 0 {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(string(v.b))
		if err != nil {
			return decimal.Zero, &FormatError{Input: string(v.b), Target: "decimal"}
		}
		return d, nil
	default:
		return decimal.Zero, nil
	}
}

// Bytes returns a copy of v's bytes. Integers are rendered in ASCII decimal
// and absent values return nil.
func (v Value) Bytes() []byte {
	switch v.kind {
	case KindInteger:
		return resp.AppendInt(nil, v.i)
	case KindBytes:
		return bytes.Clone(v.b)
	default:
		return nil
	}
}

// Text returns v's bytes as a string, as Bytes does.
func (v Value) Text() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindBytes:
		return string(v.b)
	default:
		return ""
	}
}

// String returns a debug rendering of v: (nil), the integer, or the quoted
// byte string.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindBytes:
		return strconv.Quote(string(v.b))
	default:
		return "(nil)"
	}
}

// Equal reports whether v and o hold the same variant and content.
// An integer never equals a byte string, even Int(1) and String("1").
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == o.i
	case KindBytes:
		return bytes.Equal(v.b, o.b)
	default:
		return true
	}
}

// Hash returns a 64-bit hash of v, consistent with Equal.
func (v Value) Hash() uint64 {
	switch v.kind {
	case KindInteger:
		var buf [9]byte
		buf[0] = byte(KindInteger)
		binary.LittleEndian.PutUint64(buf[1:], uint64(v.i))
		return xxh3.Hash(buf[:])
	case KindBytes:
		return xxh3.Hash(v.b)
	default:
		return 0
	}
}

// arg returns the wire form of v. Byte strings are returned without a copy
// and must not be modified.
func (v Value) arg() []byte {
	if v.kind == KindInteger {
		return resp.AppendInt(nil, v.i)
	}
	return v.b
}

// valueFromReply converts a GET reply into a Value.
func valueFromReply(r resp.Reply) (Value, bool) {
	switch {
	case r.Kind == resp.KindBulkString && r.Null:
		return Value{}, true
	case r.Kind == resp.KindBulkString:
		// Reply bulks are owned copies already.
		return Value{kind: KindBytes, b: r.Bulk}, true
	default:
		return Value{}, false
	}
}

// parseDecimal parses an optional '-' followed by ASCII digits.
func parseDecimal(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, nil
	}

	digits := b
	neg := b[0] == '-'
	if neg {
		digits = b[1:]
		if len(digits) == 0 {
			return 0, &FormatError{Input: string(b), Target: "integer"}
		}
	}

	const cutoff = uint64(1 << 63)
	var n uint64
	overflow := false
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, &FormatError{Input: string(b), Target: "integer"}
		}
		d := uint64(c - '0')
		if n > (cutoff-d)/10 {
			overflow = true
			continue
		}
		n = n*10 + d
	}

	if overflow || (!neg && n == cutoff) {
		return 0, &OverflowError{Input: string(b), Target: "int64"}
	}
	if neg {
		return -int64(n), nil
	}
	return int64(n), nil
}
