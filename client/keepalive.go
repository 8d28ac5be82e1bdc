package client

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nussjustin/resp3client/adapter"
)

// watchdogTask is C7: it issues a PING every pingDelay, and tears the connection down once the
// gap since the last byte was read exceeds 2*pingDelay (spec §4.7/S6).
//
// The idle check polls at pingDelay/5 rather than once per pingDelay so the detected idle timeout
// lands inside the (2*pingDelay, 2*pingDelay+epsilon) window S6 requires instead of a whole
// pingDelay interval beyond it.
type watchdogTask struct {
	queue    *requestQueue
	writable chan<- struct{}

	pingDelay time.Duration
	lastData  *int64
}

func (wt *watchdogTask) run(ctx context.Context) error {
	if wt.pingDelay <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	pingTicker := time.NewTicker(wt.pingDelay)
	defer pingTicker.Stop()

	idleTicker := time.NewTicker(wt.pingDelay / 5)
	defer idleTicker.Stop()

	idleLimit := 2 * wt.pingDelay

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-pingTicker.C:
			slot := newRequestSlot(newPingRequest(), adapter.Ignore())
			wt.queue.enqueue(slot)
			select {
			case wt.writable <- struct{}{}:
			default:
			}

		case <-idleTicker.C:
			last := atomic.LoadInt64(wt.lastData)
			if last == 0 {
				continue
			}
			if time.Since(time.Unix(0, last)) > idleLimit {
				return newError(KindIdleTimeout, ErrIdleTimeout)
			}
		}
	}
}
