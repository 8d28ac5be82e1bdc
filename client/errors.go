package client

import (
	"errors"
	"fmt"
)

// Kind classifies a client error per the core's abstract error kinds (spec §7), letting callers
// switch on the failure category without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindIncompatibleSize
	KindExpectsScalar
	KindParseError
	KindResolveTimeout
	KindConnectTimeout
	KindReadTimeout
	KindWriteTimeout
	KindIdleTimeout
	KindConnectionLost
	KindReadLimit
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindIncompatibleSize:
		return "incompatible-size"
	case KindExpectsScalar:
		return "expects-scalar"
	case KindParseError:
		return "parse-error"
	case KindResolveTimeout:
		return "resolve-timeout"
	case KindConnectTimeout:
		return "connect-timeout"
	case KindReadTimeout:
		return "read-timeout"
	case KindWriteTimeout:
		return "write-timeout"
	case KindIdleTimeout:
		return "idle-timeout"
	case KindConnectionLost:
		return "connection-lost"
	case KindReadLimit:
		return "read-limit"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error wraps a client-level error with the Kind that classifies it.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("resp3/client: %s: %s", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

var (
	// ErrResolveTimeout is returned, wrapped in an *Error of KindResolveTimeout, when RESOLVING fails
	// or does not complete within Config.ResolveTimeout.
	ErrResolveTimeout = errors.New("resolve timed out")

	// ErrConnectTimeout is returned, wrapped in an *Error of KindConnectTimeout, when no endpoint can
	// be connected to within Config.ConnectTimeout.
	ErrConnectTimeout = errors.New("connect timed out")

	// ErrReadTimeout is returned, wrapped in an *Error of KindReadTimeout, when a socket read exceeds
	// Config.ReadTimeout.
	ErrReadTimeout = errors.New("read timed out")

	// ErrWriteTimeout is returned, wrapped in an *Error of KindWriteTimeout, when a socket write
	// exceeds Config.WriteTimeout.
	ErrWriteTimeout = errors.New("write timed out")

	// ErrIdleTimeout is returned, wrapped in an *Error of KindIdleTimeout, when no data has been read
	// for longer than twice Config.PingDelay.
	ErrIdleTimeout = errors.New("connection idle beyond threshold")

	// ErrConnectionLost is returned, wrapped in an *Error of KindConnectionLost, when the transport
	// fails or closes unexpectedly.
	ErrConnectionLost = errors.New("connection lost")

	// ErrParseError is returned, wrapped in an *Error of KindParseError, when the wire bytes
	// themselves are malformed RESP3. It is always fatal to the connection.
	ErrParseError = errors.New("malformed RESP3 on the wire")

	// ErrCancelled is returned, wrapped in an *Error of KindCancelled, for requests failed by Close
	// or by their own context being cancelled.
	ErrCancelled = errors.New("cancelled")
)
