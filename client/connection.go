package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nussjustin/resp3client/adapter"
	"github.com/nussjustin/resp3client/resp3log"
)

// Connection is the public core: a request queue bound, one invocation of Run at a time, to a single
// TCP connection to a RESP3 server (spec §6).
//
// A Connection survives across multiple Run calls: Run replays IDLE → RESOLVING → CONNECTING →
// RUNNING → TEARDOWN each time it is invoked, preserving every request slot whose
// Request.CancelOnConnectionLost is false across the boundary (spec §4.8's re-entrancy, invariant 8).
type Connection struct {
	cfg   Config
	queue *requestQueue

	pushCh   chan PushMessage
	writable chan struct{}

	lastData int64 // unix nanos of the last byte read, accessed via atomic

	mu     sync.Mutex
	conn   net.Conn
	cancel context.CancelFunc
	closed bool
}

// New returns a Connection configured by cfg. The connection does nothing until Run is called.
func New(cfg Config) *Connection {
	cfg = cfg.withDefaults()
	return &Connection{
		cfg:      cfg,
		queue:    &requestQueue{},
		pushCh:   make(chan PushMessage, cfg.PushBufferSize),
		writable: make(chan struct{}, 1),
	}
}

// Run resolves and dials host and speaks RESP3 over the connection. When RUNNING ends because a task
// failed, or because Cancel or ResetStream was called, Run tears the connection down and starts again
// from RESOLVING. Run returns the error of a failed resolve or connect (KindCancelled if ctx was done
// by then). Once Close has been called or ctx is done, Run returns when RUNNING ends: nil if it ended
// only through that cancellation, the task error otherwise. Callers that want to run "forever" should
// pass a context that is only cancelled by Close or their own shutdown.
func (c *Connection) Run(ctx context.Context, host string) error {
	log := c.cfg.Logger

	for {
		log.Debug("resolving", resp3log.Transition("resolving", host)...)
		addrs, err := c.resolve(ctx, host)
		if err != nil {
			return err
		}

		log.Debug("connecting", resp3log.Transition("connecting", host)...)
		conn, err := c.connect(ctx, addrs)
		if err != nil {
			return err
		}

		atomic.StoreInt64(&c.lastData, time.Now().UnixNano())

		runCtx, cancel := context.WithCancel(ctx)
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			cancel()
			_ = conn.Close()
			return newError(KindCancelled, ErrCancelled)
		}
		c.conn = conn
		c.cancel = cancel
		c.mu.Unlock()

		log.Debug("running", resp3log.Transition("running", host)...)
		runErr := c.runTasks(runCtx, conn)
		log.Debug("teardown", append(resp3log.Transition("teardown", host), resp3log.Err(runErr))...)

		cancel()
		_ = conn.Close()

		c.mu.Lock()
		c.conn = nil
		c.cancel = nil
		closed := c.closed
		c.mu.Unlock()

		failErr := runErr
		if failErr == nil {
			// RUNNING was ended by Cancel, ResetStream, Close or ctx rather than by a task failure.
			failErr = newError(KindCancelled, ErrCancelled)
		}
		c.queue.failAll(failErr)

		if closed {
			return runErr
		}
		if ctx.Err() != nil {
			return runErr
		}
		// Any other fatal task error, or Cancel/ResetStream: loop back to RESOLVING, per spec §4.8's
		// re-entrancy.
	}
}

func (c *Connection) resolve(ctx context.Context, host string) ([]string, error) {
	rctx, cancel := context.WithTimeout(ctx, c.cfg.ResolveTimeout)
	defer cancel()

	addrs, err := net.DefaultResolver.LookupHost(rctx, host)
	if err != nil {
		if ctx.Err() != nil {
			return nil, newError(KindCancelled, ErrCancelled)
		}
		return nil, newError(KindResolveTimeout, fmt.Errorf("%w: %s", ErrResolveTimeout, err))
	}
	return addrs, nil
}

func (c *Connection) connect(ctx context.Context, addrs []string) (net.Conn, error) {
	cctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	var dialer net.Dialer
	var lastErr error
	for _, addr := range addrs {
		target := net.JoinHostPort(addr, c.cfg.Port)
		conn, err := dialer.DialContext(cctx, "tcp", target)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}

	if ctx.Err() != nil {
		return nil, newError(KindCancelled, ErrCancelled)
	}
	return nil, newError(KindConnectTimeout, fmt.Errorf("%w: %s", ErrConnectTimeout, lastErr))
}

// runTasks launches the reader, writer, watchdog and a cancellation-unblocking goroutine under one
// errgroup, and waits for the first terminal result (spec §4.8's RUNNING state).
func (c *Connection) runTasks(ctx context.Context, conn net.Conn) error {
	g, gctx := errgroup.WithContext(ctx)

	reader := &readerTask{
		conn:        conn,
		queue:       c.queue,
		pushCh:      c.pushCh,
		lastData:    &c.lastData,
		maxReadSize: c.cfg.MaxReadSize,
		readTimeout: c.cfg.ReadTimeout,
	}
	writer := &writerTask{
		conn:         conn,
		queue:        c.queue,
		writable:     c.writable,
		writeTimeout: c.cfg.WriteTimeout,
	}
	watchdog := &watchdogTask{
		queue:     c.queue,
		writable:  c.writable,
		pingDelay: c.cfg.PingDelay,
		lastData:  &c.lastData,
	}

	g.Go(func() error { return reader.run(gctx) })
	g.Go(func() error { return writer.run(gctx) })
	g.Go(func() error { return watchdog.run(gctx) })

	// Reader/writer block in socket calls that don't observe ctx cancellation on their own; this
	// goroutine forces them to return promptly once any other task fails or the caller cancels Run,
	// rather than waiting out a full read/write timeout. It always returns nil, so it never itself
	// decides the errgroup's result.
	g.Go(func() error {
		<-gctx.Done()
		_ = conn.SetDeadline(time.Now())
		return nil
	})

	// If there was nothing queued when RUNNING began, signal once so the writer checks anyway; any
	// requests already enqueued before this Run (reconnection survivors) get written immediately.
	select {
	case c.writable <- struct{}{}:
	default:
	}

	err := g.Wait()
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Exec submits req and blocks until every expected response has been received (or ctx is done, or
// the connection fails), decoding into dest. dest follows adapter.Into's destination shapes, or may
// be an *adapter.Tuple for a pipelined req. Exec returns the number of bytes written for req.
func (c *Connection) Exec(ctx context.Context, req *Request, dest any) (int, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return 0, newError(KindCancelled, ErrCancelled)
	}

	sink, err := adapter.Into(dest)
	if err != nil {
		return 0, newError(KindExpectsScalar, err)
	}

	slot := newRequestSlot(req, sink)
	canWrite := c.queue.enqueue(slot)
	if canWrite {
		select {
		case c.writable <- struct{}{}:
		default:
		}
	}

	select {
	case err := <-slot.done:
		return slot.bytesWritten, err
	case <-ctx.Done():
		c.queue.removeIfUnsent(slot)
		select {
		case err := <-slot.done:
			return slot.bytesWritten, err
		default:
			return 0, newError(KindCancelled, fmt.Errorf("%w: %s", ErrCancelled, ctx.Err()))
		}
	}
}

// ReadPush blocks until the next server push message is available, or ctx is done.
func (c *Connection) ReadPush(ctx context.Context) (PushMessage, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return PushMessage{}, newError(KindCancelled, ErrCancelled)
	}

	select {
	case msg := <-c.pushCh:
		return msg, nil
	case <-ctx.Done():
		return PushMessage{}, newError(KindCancelled, fmt.Errorf("%w: %s", ErrCancelled, ctx.Err()))
	}
}

// Cancel aborts the current Run's RUNNING state, tearing the connection down with KindCancelled; Run
// itself then loops back to RESOLVING unless the caller's own context is also done.
func (c *Connection) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// ResetStream is an alias for Cancel: both force the current connection closed and Run to
// reconnect, the only distinction the source draws being call-site intent.
func (c *Connection) ResetStream() {
	c.Cancel()
}

// Close permanently shuts the Connection down: any in-progress or future Run returns, every queued
// request is failed with KindCancelled, and subsequent Exec/ReadPush calls fail immediately.
func (c *Connection) Close() error {
	c.mu.Lock()
	c.closed = true
	cancel := c.cancel
	conn := c.conn
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.queue.closeAll(newError(KindCancelled, ErrCancelled))
	if conn != nil {
		return conn.Close()
	}
	return nil
}
