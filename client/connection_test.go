package client_test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nussjustin/resp3client/adapter"
	"github.com/nussjustin/resp3client/client"
)

// fakeServer accepts exactly one connection on a loopback listener and hands the raw net.Conn to fn,
// letting tests script arbitrary RESP3 byte exchanges without a real Redis-family server.
func fakeServer(t *testing.T, fn func(conn net.Conn)) (host, port string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		fn(conn)
	}()

	_, port, err = net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return "127.0.0.1", port
}

// fakeServerSeq accepts one connection per handler, in order, on a single loopback listener,
// letting a test script a connection-lost followed by a successful reconnect.
func fakeServerSeq(t *testing.T, handlers ...func(conn net.Conn)) (host, port string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for _, fn := range handlers {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			fn(conn)
			_ = conn.Close()
		}
	}()

	_, port, err = net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return "127.0.0.1", port
}

func newTestConnection(t *testing.T, port string) *client.Connection {
	t.Helper()
	return client.New(client.Config{
		Port:           port,
		ConnectTimeout: time.Second,
		ReadTimeout:    time.Second,
		WriteTimeout:   time.Second,
		PingDelay:      time.Hour, // keepalive not under test here
	})
}

// TestExecPing covers S1: a PING request decoded into a string destination yields "PONG".
func TestExecPing(t *testing.T) {
	host, port := fakeServer(t, func(conn net.Conn) {
		buf := make([]byte, 64)
		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte("+PONG\r\n"))
		time.Sleep(50 * time.Millisecond)
	})

	conn := newTestConnection(t, port)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- conn.Run(ctx, host) }()

	req := client.NewRequest()
	require.NoError(t, req.PushCommand(1, 1, []byte("PING")))

	var dst string
	_, err := conn.Exec(ctx, req, &dst)
	require.NoError(t, err)
	require.Equal(t, "PONG", dst)

	require.NoError(t, conn.Close())
	<-runErrCh
}

// TestExecPipelineTuple covers S3: a two-command pipeline decodes its two responses into the
// matching tuple slots.
func TestExecPipelineTuple(t *testing.T) {
	host, port := fakeServer(t, func(conn net.Conn) {
		buf := make([]byte, 64)
		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte("$3\r\nfoo\r\n:42\r\n"))
		time.Sleep(50 * time.Millisecond)
	})

	conn := newTestConnection(t, port)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- conn.Run(ctx, host) }()

	req := client.NewRequest()
	require.NoError(t, req.PushCommand(1, 1, []byte("GET"), []byte("a")))
	require.NoError(t, req.PushCommand(2, 1, []byte("INCR"), []byte("c")))

	var s string
	var n int64
	tuple, err := adapter.NewTuple(&s, &n)
	require.NoError(t, err)

	_, err = conn.Exec(ctx, req, tuple)
	require.NoError(t, err)
	require.Equal(t, "foo", s)
	require.Equal(t, int64(42), n)

	require.NoError(t, conn.Close())
	<-runErrCh
}

// TestExecMGetOptionalBlobs covers S2: MGET of three keys, the middle one missing, decodes into
// ordered-sequence<optional<blob>> as [Some("v1"), None, Some("v3")].
func TestExecMGetOptionalBlobs(t *testing.T) {
	host, port := fakeServer(t, func(conn net.Conn) {
		buf := make([]byte, 64)
		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte("*3\r\n$2\r\nv1\r\n$-1\r\n$2\r\nv3\r\n"))
		time.Sleep(50 * time.Millisecond)
	})

	conn := newTestConnection(t, port)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- conn.Run(ctx, host) }()

	req := client.NewRequest()
	require.NoError(t, req.PushCommand(1, 1, []byte("MGET"), []byte("k1"), []byte("k2"), []byte("k3")))

	var out []*[]byte
	_, err := conn.Exec(ctx, req, &out)
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, []byte("v1"), *out[0])
	require.Nil(t, out[1])
	require.Equal(t, []byte("v3"), *out[2])

	require.NoError(t, conn.Close())
	<-runErrCh
}

// TestExecTupleSizeMismatch covers S4: an aggregate whose effective child count doesn't match the
// tuple's arity fails that request with incompatible-size while leaving the connection usable.
func TestExecTupleSizeMismatch(t *testing.T) {
	host, port := fakeServer(t, func(conn net.Conn) {
		buf := make([]byte, 128)
		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte("*3\r\n:1\r\n:2\r\n:3\r\n"))

		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte("+PONG\r\n"))
		time.Sleep(50 * time.Millisecond)
	})

	conn := newTestConnection(t, port)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- conn.Run(ctx, host) }()

	req := client.NewRequest()
	require.NoError(t, req.PushCommand(1, 1, []byte("BAD")))

	var a, b int64
	tuple, err := adapter.NewTuple(&a, &b)
	require.NoError(t, err)

	_, err = conn.Exec(ctx, req, tuple)
	require.ErrorIs(t, err, adapter.ErrIncompatibleSize)

	ping := client.NewRequest()
	require.NoError(t, ping.PushCommand(2, 1, []byte("PING")))
	var pong string
	_, err = conn.Exec(ctx, ping, &pong)
	require.NoError(t, err)
	require.Equal(t, "PONG", pong)

	require.NoError(t, conn.Close())
	<-runErrCh
}

// TestReadPush covers S5: a push frame delivered after a command's response reaches ReadPush rather
// than the command's own destination.
func TestReadPush(t *testing.T) {
	host, port := fakeServer(t, func(conn net.Conn) {
		buf := make([]byte, 64)
		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte("+OK\r\n"))
		_, _ = conn.Write([]byte(">3\r\n$7\r\nmessage\r\n$1\r\nc\r\n$2\r\nhi\r\n"))
		time.Sleep(50 * time.Millisecond)
	})

	conn := newTestConnection(t, port)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- conn.Run(ctx, host) }()

	sub := client.NewRequest()
	require.NoError(t, sub.PushCommand(1, 1, []byte("SUBSCRIBE"), []byte("c")))
	var ack string
	_, err := conn.Exec(ctx, sub, &ack)
	require.NoError(t, err)

	pctx, pcancel := context.WithTimeout(ctx, 2*time.Second)
	defer pcancel()
	msg, err := conn.ReadPush(pctx)
	require.NoError(t, err)
	require.Len(t, msg.Nodes, 4) // push header + 3 elements

	require.NoError(t, conn.Close())
	<-runErrCh
}

// TestExecCancelUnsent covers cancellation of a request that was never written: with no Run active
// to drain the writable signal, the request sits unsent and cancelling its context removes it from
// the queue instead of waiting forever.
func TestExecCancelUnsent(t *testing.T) {
	conn := client.New(client.Config{Port: "0"})

	req := client.NewRequest()
	require.NoError(t, req.PushCommand(1, 1, []byte("PING")))

	execCtx, execCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer execCancel()

	var dst string
	_, err := conn.Exec(execCtx, req, &dst)
	require.Error(t, err)
}

// TestReconnectPreservesRequest covers invariant 8: a CancelOnConnectionLost = false request
// enqueued before a connection-lost is resent, unduplicated, on the next Run attempt instead of
// being failed.
func TestReconnectPreservesRequest(t *testing.T) {
	var firstSawRequest int32

	host, port := fakeServerSeq(t,
		func(conn net.Conn) {
			// First connection: read the request, then drop the connection without responding,
			// forcing a connection-lost the persisted slot must survive.
			buf := make([]byte, 64)
			if n, _ := conn.Read(buf); n > 0 {
				atomic.StoreInt32(&firstSawRequest, 1)
			}
		},
		func(conn net.Conn) {
			// Second connection: the same request arrives again (resent, not duplicated) and this
			// time gets a real reply.
			buf := make([]byte, 64)
			_, _ = conn.Read(buf)
			_, _ = conn.Write([]byte("+PONG\r\n"))
			time.Sleep(50 * time.Millisecond)
		},
	)

	conn := client.New(client.Config{
		Port:           port,
		ConnectTimeout: time.Second,
		ReadTimeout:    100 * time.Millisecond,
		WriteTimeout:   time.Second,
		PingDelay:      time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run reconnects internally on a fatal, non-closed, non-context-cancelled error, so a single call
	// drives it through both fakeServerSeq connections.
	runErrCh := make(chan error, 1)
	go func() { runErrCh <- conn.Run(ctx, host) }()

	req := client.NewRequest()
	req.CancelOnConnectionLost = false
	require.NoError(t, req.PushCommand(1, 1, []byte("PING")))

	var dst string
	_, err := conn.Exec(ctx, req, &dst)
	require.NoError(t, err)
	require.Equal(t, "PONG", dst)
	require.Equal(t, int32(1), atomic.LoadInt32(&firstSawRequest))

	require.NoError(t, conn.Close())
	<-runErrCh
}
