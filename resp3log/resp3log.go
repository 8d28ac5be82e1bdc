// Package resp3log holds the zap field helpers shared by the client package's connection engine,
// following luma-pharos/internal/env.MakeLogger and the zap.Field usage in luma-pharos/cmd/start.go.
package resp3log

import "go.uber.org/zap"

// Field keys used by the connection engine's state-transition and error logs.
const (
	Addr    = "addr"
	State   = "state"
	Attempt = "attempt"
	Kind    = "kind"
)

// Err wraps err as a zap.Error field, or returns no fields at all when err is nil so call sites can
// pass it unconditionally.
func Err(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.Error(err)
}

// Transition builds the fields for a supervisor state-transition log line (spec §4.8's
// RESOLVING/CONNECTING/RUNNING/TEARDOWN states).
func Transition(state string, addr string) []zap.Field {
	return []zap.Field{zap.String(State, state), zap.String(Addr, addr)}
}
