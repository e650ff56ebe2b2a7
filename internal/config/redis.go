package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	Stream   string `env:"REDIS_STREAM, default=jukebox_events"`
	MaxLen   int64  `env:"REDIS_STREAM_MAXLEN, default=1000"`
}

// NewRedisConfigFromEnv loads the event stream settings. Redis is optional;
// Enabled reports whether an address was configured.
func NewRedisConfigFromEnv(ctx context.Context) (*RedisConfig, error) {
	var cfg RedisConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	if cfg.Addr != "" && cfg.Stream == "" {
		return nil, fmt.Errorf("REDIS_STREAM must not be empty when REDIS_ADDR is set")
	}
	return &cfg, nil
}

func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}
