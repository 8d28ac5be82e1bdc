package client

import (
	"sync"

	"github.com/nussjustin/resp3client/adapter"
)

// requestSlot is a RequestQueue element (spec §3's RequestSlot, §4.4).
type requestSlot struct {
	req  *Request
	dest adapter.Sink

	total     int // request.ExpectedResponseCount(), immutable
	remaining int // strictly non-increasing while the slot lives
	sent      bool

	err  error // first adapter error observed for this slot, if any
	done chan error
	once sync.Once

	bytesWritten int
}

func newRequestSlot(req *Request, dest adapter.Sink) *requestSlot {
	n := req.ExpectedResponseCount()
	return &requestSlot{
		req:       req,
		dest:      dest,
		total:     n,
		remaining: n,
		done:      make(chan error, 1),
	}
}

func (s *requestSlot) complete(err error) {
	s.once.Do(func() {
		s.done <- err
	})
}

// requestQueue is the FIFO of in-flight requests (C4). Unlike the source, which shares this state
// lock-free across tasks on one executor, Exec, Run and the reader, writer and watchdog goroutines all
// touch this queue from different goroutines, so it carries its own mutex; everything above this file
// only goes through the methods below.
type requestQueue struct {
	mu    sync.Mutex
	slots []*requestSlot
}

// enqueue appends slot to the queue and reports whether the queue was empty beforehand.
func (q *requestQueue) enqueue(slot *requestSlot) (canWrite bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	canWrite = len(q.slots) == 0
	q.slots = append(q.slots, slot)
	return canWrite
}

// headUnsentRun returns every consecutive unsent slot starting at the queue head, stopping at the
// first already-sent (in-flight) slot or the end of the queue.
func (q *requestQueue) headUnsentRun() []*requestSlot {
	q.mu.Lock()
	defer q.mu.Unlock()
	var run []*requestSlot
	for _, s := range q.slots {
		if s.sent {
			break
		}
		run = append(run, s)
	}
	return run
}

// markSent flags every slot in run as sent, then pops and completes any now-sent slot whose request
// was entirely fire-and-forget (remaining == 0), per spec §4.6.
func (q *requestQueue) markSent(run []*requestSlot) {
	q.mu.Lock()
	for _, s := range run {
		s.sent = true
	}
	q.mu.Unlock()

	for {
		q.mu.Lock()
		if len(q.slots) == 0 || !q.slots[0].sent || q.slots[0].remaining > 0 {
			q.mu.Unlock()
			return
		}
		s := q.slots[0]
		q.slots = q.slots[1:]
		q.mu.Unlock()
		s.complete(nil)
	}
}

// headIndex returns the current head slot along with the index of the response it is about to
// receive next (total - remaining), used to dispatch pipeline responses to the matching tuple slot.
func (q *requestQueue) headIndex() (slot *requestSlot, idx int, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.slots) == 0 {
		return nil, 0, false
	}
	s := q.slots[0]
	return s, s.total - s.remaining, true
}

// completeResponse attributes one top-level response, with adapter error adapterErr (nil on
// success), to the queue head, decrementing its remaining count. Once it reaches zero the slot is
// popped and its completion signalled.
func (q *requestQueue) completeResponse(adapterErr error) {
	q.mu.Lock()
	if len(q.slots) == 0 {
		q.mu.Unlock()
		return
	}
	s := q.slots[0]
	if adapterErr != nil && s.err == nil {
		s.err = adapterErr
	}
	s.remaining--
	done := s.remaining <= 0
	if done {
		q.slots = q.slots[1:]
	}
	q.mu.Unlock()

	if done {
		s.complete(s.err)
	}
}

// removeIfUnsent removes target from the queue if it hasn't been written yet (spec §5: cancelling
// exec removes the slot if not yet written; if already written the wait is aborted but the slot
// stays in-flight).
func (q *requestQueue) removeIfUnsent(target *requestSlot) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if target.sent {
		return
	}
	for i, s := range q.slots {
		if s == target {
			q.slots = append(q.slots[:i], q.slots[i+1:]...)
			return
		}
	}
}

// failAll completes every slot with err. Slots whose request opted out of CancelOnConnectionLost are
// retained with sent and remaining reset so the next Run resends them untouched.
func (q *requestQueue) failAll(err error) {
	q.mu.Lock()
	var retained, failed []*requestSlot
	for _, s := range q.slots {
		if s.req.CancelOnConnectionLost {
			failed = append(failed, s)
			continue
		}
		s.sent = false
		s.remaining = s.total
		s.err = nil
		retained = append(retained, s)
	}
	q.slots = retained
	q.mu.Unlock()

	for _, s := range failed {
		s.complete(err)
	}
}

// closeAll completes every slot with err unconditionally, ignoring CancelOnConnectionLost. Used by
// Connection.Close.
func (q *requestQueue) closeAll(err error) {
	q.mu.Lock()
	slots := q.slots
	q.slots = nil
	q.mu.Unlock()

	for _, s := range slots {
		s.complete(err)
	}
}
