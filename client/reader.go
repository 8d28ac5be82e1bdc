package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/nussjustin/resp3client"
	"github.com/nussjustin/resp3client/adapter"
)

// responseState tracks the top-level response currently being decoded, across possibly many reads
// off the socket: Lexer.Next resumes transparently mid-value, but the choice of sink for the current
// response (push vs queue head, which tuple slot) has to survive the same way.
type responseState struct {
	active bool
	isPush bool

	pushNodes []resp3.Node
	pushSink  adapter.Sink

	sink adapter.Sink
	err  error
}

// readerTask is C5: it drains the socket, decodes one top-level response per command, and completes
// requests or routes push frames.
type readerTask struct {
	conn        net.Conn
	queue       *requestQueue
	pushCh      chan<- PushMessage
	lastData    *int64
	maxReadSize int
	readTimeout time.Duration

	lx   *resp3.Lexer
	resp responseState
}

func (rt *readerTask) run(ctx context.Context) error {
	rt.lx = resp3.NewLexer()
	if rt.maxReadSize > 0 {
		rt.lx.MaxSize = rt.maxReadSize
	}

	buf := make([]byte, 32*1024)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := rt.conn.SetReadDeadline(time.Now().Add(rt.readTimeout)); err != nil {
			return newError(KindConnectionLost, fmt.Errorf("%w: %s", ErrConnectionLost, err))
		}

		n, err := rt.conn.Read(buf)
		if n > 0 {
			rt.lx.Feed(buf[:n])
			atomic.StoreInt64(rt.lastData, time.Now().UnixNano())
			if derr := rt.drain(ctx); derr != nil {
				return derr
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return newError(KindReadTimeout, fmt.Errorf("%w: %s", ErrReadTimeout, err))
			}
			if errors.Is(err, io.EOF) {
				return newError(KindConnectionLost, fmt.Errorf("%w: %s", ErrConnectionLost, err))
			}
			return newError(KindConnectionLost, fmt.Errorf("%w: %s", ErrConnectionLost, err))
		}
	}
}

// drain decodes every complete top-level response currently buffered in the lexer, returning nil
// once only a partial value remains (more bytes must be Read before resuming).
func (rt *readerTask) drain(ctx context.Context) error {
	for {
		node, err := rt.lx.Next()
		if errors.Is(err, resp3.ErrIncomplete) {
			return nil
		}
		if errors.Is(err, resp3.ErrReadLimit) {
			return newError(KindReadLimit, err)
		}
		if err != nil {
			return newError(KindParseError, fmt.Errorf("%w: %s", ErrParseError, err))
		}

		if !rt.resp.active {
			if err := rt.beginResponse(node); err != nil {
				return err
			}
		}

		var pushErr error
		if rt.resp.isPush {
			pushErr = rt.resp.pushSink.Push(node)
		} else if rt.resp.err == nil {
			pushErr = rt.resp.sink.Push(node)
		}
		if pushErr != nil && rt.resp.err == nil {
			rt.resp.err = pushErr
		}

		if !rt.lx.AtTopLevel() {
			continue
		}

		if err := rt.endResponse(ctx); err != nil {
			return err
		}
	}
}

func (rt *readerTask) beginResponse(header resp3.Node) error {
	rt.resp = responseState{active: true}

	if header.Depth == 0 && header.Kind == resp3.TypePush {
		rt.resp.isPush = true
		rt.resp.pushNodes = make([]resp3.Node, 0, 4)
		rt.resp.pushSink, _ = adapter.Into(&rt.resp.pushNodes)
		return nil
	}

	slot, idx, ok := rt.queue.headIndex()
	if !ok {
		// A response arrived with nothing queued to attribute it to: the wire and the queue have
		// gone out of sync, which is unrecoverable for this connection.
		return newError(KindParseError, fmt.Errorf("%w: unsolicited top-level response", ErrParseError))
	}
	rt.resp.sink = sinkFor(slot, idx)
	return nil
}

// sinkFor picks the Sink that should receive the response currently at position idx within slot.
// A pipeline (slot.total > 1) decoded into a *adapter.Tuple dispatches each response to its matching
// tuple slot directly; every other case (including the keepalive ping, routed to Ignore) uses
// slot.dest for the whole response.
func sinkFor(slot *requestSlot, idx int) adapter.Sink {
	if slot.req.isPing() {
		return adapter.Ignore()
	}
	if slot.total > 1 {
		if tuple, ok := slot.dest.(*adapter.Tuple); ok && tuple.Len() == slot.total {
			return tuple.Slot(idx)
		}
	}
	return slot.dest
}

func (rt *readerTask) endResponse(ctx context.Context) error {
	defer func() { rt.resp.active = false }()

	if rt.resp.isPush {
		if err := rt.resp.pushSink.Finalize(); err != nil {
			return newError(KindParseError, err)
		}
		select {
		case rt.pushCh <- PushMessage{Nodes: rt.resp.pushNodes}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}

	if rt.resp.err == nil {
		rt.resp.err = rt.resp.sink.Finalize()
	}
	rt.queue.completeResponse(rt.resp.err)
	return nil
}
