package client

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestWatchdogIdleTimeout covers S6: with the peer silent, the watchdog fails the run with
// KindIdleTimeout within (2*ping_delay, 2*ping_delay+epsilon) of the last byte read.
func TestWatchdogIdleTimeout(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() { _ = serverConn.Close() })

	const pingDelay = 50 * time.Millisecond

	c := New(Config{
		ConnectTimeout: time.Second,
		ReadTimeout:    time.Second,
		WriteTimeout:   time.Second,
		PingDelay:      pingDelay,
	})

	atomic.StoreInt64(&c.lastData, time.Now().UnixNano())

	start := time.Now()
	err := c.runTasks(context.Background(), clientConn)
	elapsed := time.Since(start)

	require.Error(t, err)
	cerr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, KindIdleTimeout, cerr.Kind)

	require.Greater(t, elapsed, 2*pingDelay)
	require.Less(t, elapsed, 2*pingDelay+150*time.Millisecond)
}

// TestWatchdogPingSuppressed checks the tag recognition behind invariant 6: Request.isPing, which
// sinkFor uses to route the keepalive ping's response to adapter.Ignore, is true for the internally
// issued ping request and false for a caller's own PING command.
func TestWatchdogPingSuppressed(t *testing.T) {
	req := newPingRequest()
	require.True(t, req.isPing())

	plain := NewRequest()
	require.NoError(t, plain.PushCommand(1, 1, []byte("PING")))
	require.False(t, plain.isPing())
}
