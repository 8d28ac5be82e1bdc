package client

import "github.com/nussjustin/resp3client"

// pingCommandTag tags the connection's internally issued keepalive ping so the reader can route its
// response to adapter.Ignore instead of whatever destination a caller might otherwise expect (spec
// §4.7's suppressed ping response; see SPEC_FULL.md's note on aedis's ping-filtering constructor).
const pingCommandTag resp3.CommandTag = -1

// Request wraps a resp3.Request with the reconnection policy the core's configuration attaches to
// each request (spec §6: cancel_on_connection_lost).
type Request struct {
	*resp3.Request

	// CancelOnConnectionLost fails this request with a connection-lost error when the connection
	// drops instead of resending it on the next Run. NewRequest defaults this to true.
	CancelOnConnectionLost bool
}

// NewRequest returns an empty Request ready to have commands pushed onto it.
func NewRequest() *Request {
	return &Request{Request: resp3.NewRequest(), CancelOnConnectionLost: true}
}

func newPingRequest() *Request {
	req := NewRequest()
	_ = req.PushCommand(pingCommandTag, 1, []byte("PING"))
	return req
}

func (r *Request) isPing() bool {
	tags := r.Commands()
	return len(tags) == 1 && tags[0] == pingCommandTag
}
