package resp

// Protocol delimiters
const (
	// CRLF terminates every RESP line and bulk payload.
	CRLF = "\r\n"
)

// Kind is the RESP type byte that prefixes every reply.
type Kind byte

// Reply kinds (RESP2)
const (
	KindSimpleString Kind = '+'
	KindError        Kind = '-'
	KindInteger      Kind = ':'
	KindBulkString   Kind = '$'
	KindArray        Kind = '*'
)

func (k Kind) String() string {
	switch k {
	case KindSimpleString:
		return "simple-string"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulkString:
		return "bulk-string"
	case KindArray:
		return "array"
	default:
		return "unknown(" + string(rune(k)) + ")"
	}
}

// Protocol safety limits. Values above these abort the decode with a
// LimitExceededError instead of allocating.
const (
	// MaxBulkLen is the largest accepted bulk string payload (32 MiB).
	MaxBulkLen = 32 * 1024 * 1024

	// MaxArrayLen is the largest accepted array element count.
	MaxArrayLen = 65535

	// MaxLineLen bounds simple strings, errors and numeric lines.
	MaxLineLen = 64 * 1024
)

// Buffer sizing
const (
	// MinBufferSize is the smallest staging or receive buffer accepted by
	// NewWriter and NewReader. Smaller sizes are raised to this value.
	MinBufferSize = 256

	// SmallArgMax is the largest argument copied through the staging buffer.
	// Larger arguments are written straight to the connection.
	SmallArgMax = 128

	// maxHeaderLen is the worst-case length of "$<int64>\r\n".
	maxHeaderLen = 1 + 20 + 2
)

// Pre-allocated byte slices (avoid allocation in hot path)
var (
	crlfBytes = []byte(CRLF)
	okBytes   = []byte("OK")
)
