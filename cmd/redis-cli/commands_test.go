package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/redis/internal/redistest"
)

// run executes the CLI against srv and returns its standard output.
func run(t *testing.T, srv *redistest.Server, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--servers", srv.Addr()}, args...))

	err := root.Execute()
	return out.String(), err
}

func TestCLI_SetGet(t *testing.T) {
	srv := redistest.NewServer(t)

	out, err := run(t, srv, "", "set", "greeting", "hello")
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)

	out, err = run(t, srv, "", "get", "greeting")
	require.NoError(t, err)
	assert.Equal(t, "\"hello\"\n", out)

	out, err = run(t, srv, "", "get", "missing")
	require.NoError(t, err)
	assert.Equal(t, "(nil)\n", out)
}

func TestCLI_GetManyKeepsOrder(t *testing.T) {
	srv := redistest.NewServer(t)
	srv.Put("a", []byte("1"))
	srv.Put("c", []byte("3"))

	out, err := run(t, srv, "", "--pool", "puddle", "get", "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, "a: \"1\"\nb: (nil)\nc: \"3\"\n", out)
}

func TestCLI_Del(t *testing.T) {
	srv := redistest.NewServer(t)
	srv.Put("a", []byte("1"))
	srv.Put("b", []byte("2"))

	out, err := run(t, srv, "", "del", "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, "(integer) 2\n", out)
}

func TestCLI_ServerError(t *testing.T) {
	srv := redistest.NewServer(t)
	srv.FailNext("ERR denied")

	_, err := run(t, srv, "", "set", "k", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR denied")
}

func TestCLI_Stats(t *testing.T) {
	srv := redistest.NewServer(t)

	out, err := run(t, srv, "", "--stats", "set", "k", "v")
	require.NoError(t, err)
	assert.Contains(t, out, "OK\n")
	assert.Contains(t, out, "0 get (0 hits), 1 set")
	assert.Contains(t, out, "pool: 1 total, 1 idle, 0 active")
}

func TestCLI_WrongArgs(t *testing.T) {
	srv := redistest.NewServer(t)

	_, err := run(t, srv, "", "set", "only-key")
	assert.Error(t, err)
	assert.Zero(t, srv.Commands())
}

func TestCLI_Repl(t *testing.T) {
	srv := redistest.NewServer(t)

	input := strings.Join([]string{
		"set k v",
		"get k",
		"get k nope",
		"del k",
		"get",
		"bogus",
		"help",
		"quit",
		"set never sent",
	}, "\n")

	out, err := run(t, srv, input, "repl")
	require.NoError(t, err)

	assert.Contains(t, out, "Connected to "+srv.Addr())
	assert.Contains(t, out, "OK\n")
	assert.Contains(t, out, "\"v\"\n")
	assert.Contains(t, out, "1) \"v\"\n2) (nil)\n")
	assert.Contains(t, out, "(integer) 1\n")
	assert.Contains(t, out, "Usage: get <key> [key...]")
	assert.Contains(t, out, "Unknown command: bogus")
	assert.Contains(t, out, "stats                - Show client and pool statistics")

	_, ok := srv.Get("never")
	assert.False(t, ok, "commands after quit are not run")
}

func TestCLI_Bench(t *testing.T) {
	srv := redistest.NewServer(t)

	out, err := run(t, srv, "", "bench", "--duration", "50ms", "--concurrency", "2")
	require.NoError(t, err)

	for _, w := range workloads {
		assert.Contains(t, out, w.name)
	}
	assert.Contains(t, out, "failures 0  mismatches 0")
	assert.NotContains(t, out, "mismatches 1")
}

func TestCLI_BenchUnknownWorkload(t *testing.T) {
	srv := redistest.NewServer(t)

	_, err := run(t, srv, "", "bench", "--workload", "nope")
	assert.ErrorContains(t, err, "unknown workload")
}
