package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// writerTask is C6: it wakes on the writable signal, coalesces every consecutive unsent head slot
// into a single write, and marks them sent.
type writerTask struct {
	conn         net.Conn
	queue        *requestQueue
	writable     <-chan struct{}
	writeTimeout time.Duration
}

func (wt *writerTask) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wt.writable:
		}

		for {
			run := wt.queue.headUnsentRun()
			if len(run) == 0 {
				break
			}

			var buf []byte
			for _, s := range run {
				buf = append(buf, s.req.Bytes()...)
			}

			if err := wt.conn.SetWriteDeadline(time.Now().Add(wt.writeTimeout)); err != nil {
				return newError(KindConnectionLost, fmt.Errorf("%w: %s", ErrConnectionLost, err))
			}

			_, err := wt.conn.Write(buf)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					return newError(KindWriteTimeout, fmt.Errorf("%w: %s", ErrWriteTimeout, err))
				}
				return newError(KindConnectionLost, fmt.Errorf("%w: %s", ErrConnectionLost, err))
			}

			for _, s := range run {
				s.bytesWritten = len(s.req.Bytes())
			}
			wt.queue.markSent(run)
		}
	}
}
