package resp

import (
	"strconv"
	"strings"
)

// Reply is one decoded RESP value.
// This is a plain container: which fields are meaningful depends on Kind.
//
// Replies own their memory. Bulk payloads are copied out of the Reader's
// receive buffer, so a Reply stays valid after further reads.
type Reply struct {
	// Kind is the RESP type byte of the reply.
	Kind Kind

	// Str is the text of a simple string or error reply.
	Str string

	// Int is the value of an integer reply.
	Int int64

	// Bulk is the payload of a non-null bulk string reply.
	Bulk []byte

	// Null is set for the null bulk string ($-1) and the null array (*-1).
	Null bool

	// Array holds the elements of a non-null array reply, in wire order.
	Array []Reply
}

// IsOK reports whether the reply is the simple string "OK".
func (r Reply) IsOK() bool {
	return r.Kind == KindSimpleString && r.Str == "OK"
}

// IsNull reports whether the reply is a null bulk string or null array.
func (r Reply) IsNull() bool {
	return r.Null
}

// Err returns a *ServerError for error replies and nil otherwise.
func (r Reply) Err() error {
	if r.Kind != KindError {
		return nil
	}
	return &ServerError{Message: r.Str}
}

// String renders the reply in a redis-cli like form, for logs and messages.
func (r Reply) String() string {
	var sb strings.Builder
	r.format(&sb)
	return sb.String()
}

func (r Reply) format(sb *strings.Builder) {
	switch r.Kind {
	case KindSimpleString:
		sb.WriteString(r.Str)
	case KindError:
		sb.WriteString("(error) ")
		sb.WriteString(r.Str)
	case KindInteger:
		sb.WriteString("(integer) ")
		sb.WriteString(strconv.FormatInt(r.Int, 10))
	case KindBulkString:
		if r.Null {
			sb.WriteString("(nil)")
			return
		}
		sb.WriteString(strconv.Quote(string(r.Bulk)))
	case KindArray:
		if r.Null {
			sb.WriteString("(nil)")
			return
		}
		sb.WriteByte('[')
		for i, elem := range r.Array {
			if i > 0 {
				sb.WriteString(", ")
			}
			elem.format(sb)
		}
		sb.WriteByte(']')
	default:
		sb.WriteString("(invalid)")
	}
}
