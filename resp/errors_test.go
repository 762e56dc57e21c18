package resp

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldCloseConnection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &ServerError{Message: "ERR x"}, false},
		{"wrapped server error", fmt.Errorf("get: %w", &ServerError{Message: "ERR x"}), false},
		{"protocol error", &ProtocolError{Message: "bad"}, true},
		{"limit exceeded", &LimitExceededError{Kind: "bulk", Size: 1, Limit: 0}, true},
		{"connection error", &ConnectionError{Op: "read", Err: io.EOF}, true},
		{"unknown error", errors.New("mystery"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldCloseConnection(tt.err))
		})
	}
}

func TestServerError_Prefix(t *testing.T) {
	assert.Equal(t, "ERR", (&ServerError{Message: "ERR something"}).Prefix())
	assert.Equal(t, "WRONGTYPE", (&ServerError{Message: "WRONGTYPE Operation against a key"}).Prefix())
	assert.Equal(t, "", (&ServerError{Message: "LOADING"}).Prefix())
	assert.Equal(t, "redis: ERR something", (&ServerError{Message: "ERR something"}).Error())
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "resp: bulk length 10 exceeds limit 5",
		(&LimitExceededError{Kind: "bulk", Size: 10, Limit: 5}).Error())
	assert.Equal(t, "resp: connection error during read: EOF",
		(&ConnectionError{Op: "read", Err: io.EOF}).Error())
	assert.Equal(t, "resp: protocol error: bad: EOF",
		(&ProtocolError{Message: "bad", Err: io.EOF}).Error())
}
