package resp

import "strconv"

// smallIntLimit is the exclusive upper bound of the magnitudes served from
// the lookup table, in both signs.
const smallIntLimit = 1 << 16

// smallInts holds the decimal digits of 0..smallIntLimit-1 back to back;
// smallIntEnds[i] is the end offset of i's digits (its start is
// smallIntEnds[i-1], or 0).
var (
	smallInts    string
	smallIntEnds [smallIntLimit]uint32
)

func init() {
	digits := make([]byte, 0, 5*smallIntLimit)
	for i := range smallIntLimit {
		digits = strconv.AppendInt(digits, int64(i), 10)
		smallIntEnds[i] = uint32(len(digits))
	}
	smallInts = string(digits)
}

func smallInt(i int64) string {
	var start uint32
	if i > 0 {
		start = smallIntEnds[i-1]
	}
	return smallInts[start:smallIntEnds[i]]
}

// AppendInt appends the decimal form of v to dst.
// Magnitudes below 65536 are copied from a precomputed table; other values
// fall back to strconv.
func AppendInt(dst []byte, v int64) []byte {
	switch {
	case v >= 0 && v < smallIntLimit:
		return append(dst, smallInt(v)...)
	case v < 0 && v > -smallIntLimit:
		dst = append(dst, '-')
		return append(dst, smallInt(-v)...)
	default:
		return strconv.AppendInt(dst, v, 10)
	}
}

// parseInt parses a RESP integer field: optional '-' followed by ASCII
// digits. It returns ok=false on empty input, stray bytes or overflow.
func parseInt(b []byte) (int64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	neg := b[0] == '-'
	if neg {
		b = b[1:]
		if len(b) == 0 {
			return 0, false
		}
	}

	const cutoff = uint64(1 << 63)
	var n uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		d := uint64(c - '0')
		if n > (cutoff-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}

	if neg {
		return -int64(n), true // -(1<<63) wraps to MinInt64
	}
	if n == cutoff {
		return 0, false
	}
	return int64(n), true
}
