// Package config loads the connection engine's configuration from the environment, mirroring
// luma-pharos/internal/env.LoadConfig's use of github.com/sethvargo/go-envconfig.
package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap"

	"github.com/nussjustin/resp3client/client"
)

// Config is the plain, envconfig-tagged configuration struct; it can also be built by hand for
// programmatic construction without touching the environment.
type Config struct {
	Host string `env:"RESP3_HOST,default=127.0.0.1"`
	Port string `env:"RESP3_PORT,default=6379"`

	ResolveTimeout time.Duration `env:"RESP3_RESOLVE_TIMEOUT,default=5s"`
	ConnectTimeout time.Duration `env:"RESP3_CONNECT_TIMEOUT,default=5s"`
	ReadTimeout    time.Duration `env:"RESP3_READ_TIMEOUT,default=5s"`
	WriteTimeout   time.Duration `env:"RESP3_WRITE_TIMEOUT,default=5s"`
	PingDelay      time.Duration `env:"RESP3_PING_DELAY,default=30s"`

	MaxReadSize    int `env:"RESP3_MAX_READ_SIZE,default=0"`
	PushBufferSize int `env:"RESP3_PUSH_BUFFER_SIZE,default=64"`
}

// FromEnv loads a Config from the process environment, applying the defaults above for any variable
// left unset.
func FromEnv(ctx context.Context) (*Config, error) {
	cfg := Config{}
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ClientConfig converts c into the client.Config shape Connection.Run expects. logger may be nil, in
// which case client.Config.withDefaults substitutes zap.NewNop().
func (c *Config) ClientConfig(logger *zap.Logger) client.Config {
	return client.Config{
		Port:           c.Port,
		ResolveTimeout: c.ResolveTimeout,
		ConnectTimeout: c.ConnectTimeout,
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
		PingDelay:      c.PingDelay,
		MaxReadSize:    c.MaxReadSize,
		PushBufferSize: c.PushBufferSize,
		Logger:         logger,
	}
}
