package client

import (
	"time"

	"go.uber.org/zap"
)

// Default timeouts, mirroring aedis::generic::connection::config's defaults.
const (
	DefaultResolveTimeout = 5 * time.Second
	DefaultConnectTimeout = 5 * time.Second
	DefaultReadTimeout    = 5 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
	DefaultPingDelay      = 30 * time.Second

	// DefaultPushBufferSize is the default capacity of the push-message channel (C9).
	DefaultPushBufferSize = 64
)

// Config holds the options recognized by Connection.Run (spec §6 Configuration).
type Config struct {
	// Port is the service port or name passed to net.Dialer for every resolved address.
	Port string

	ResolveTimeout time.Duration
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	// PingDelay is the keepalive period; the idle watchdog threshold is 2*PingDelay.
	PingDelay time.Duration

	// MaxReadSize caps any single decoded value, same as resp3.Lexer.MaxSize. Zero means the
	// Lexer's own default; there is no cap disabling sentinel at this layer since an RESP3 client is
	// never a trusted-input scenario the way a server decoding arbitrary input might special-case.
	MaxReadSize int

	// PushBufferSize is the capacity of the push message channel (C9). Zero means
	// DefaultPushBufferSize.
	PushBufferSize int

	// Logger receives Run's state transition logs, the teardown entry carrying the error that ended
	// RUNNING; the child tasks do not log. A nil Logger is replaced with zap.NewNop().
	Logger *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.ResolveTimeout == 0 {
		c.ResolveTimeout = DefaultResolveTimeout
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.PingDelay == 0 {
		c.PingDelay = DefaultPingDelay
	}
	if c.PushBufferSize <= 0 {
		c.PushBufferSize = DefaultPushBufferSize
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
