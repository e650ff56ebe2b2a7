package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type PlaybackConfig struct {
	FFmpegPath       string        `env:"FFMPEG_PATH, default=ffmpeg"`
	FFprobePath      string        `env:"FFPROBE_PATH, default=ffprobe"`
	TickPeriod       time.Duration `env:"TICK_PERIOD, default=1s"`
	PreloadThreshold time.Duration `env:"PRELOAD_THRESHOLD, default=10s"`
	OpusBitrate      int           `env:"OPUS_BITRATE, default=96000"`
	SendTimeout      time.Duration `env:"SEND_TIMEOUT, default=1m"`
	HTTPChunkSize    int64         `env:"HTTP_CHUNK_SIZE, default=9898989"`
}

func NewPlaybackConfigFromEnv(ctx context.Context) (*PlaybackConfig, error) {
	var cfg PlaybackConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *PlaybackConfig) Validate() error {
	if c.TickPeriod <= 0 {
		return fmt.Errorf("TICK_PERIOD must be positive, got %s", c.TickPeriod)
	}
	if c.PreloadThreshold < 0 {
		return fmt.Errorf("PRELOAD_THRESHOLD must not be negative, got %s", c.PreloadThreshold)
	}
	if c.OpusBitrate < 6000 || c.OpusBitrate > 510000 {
		return fmt.Errorf("OPUS_BITRATE must be between 6000 and 510000, got %d", c.OpusBitrate)
	}
	if c.SendTimeout <= 0 {
		return fmt.Errorf("SEND_TIMEOUT must be positive, got %s", c.SendTimeout)
	}
	if c.HTTPChunkSize < 0 {
		return fmt.Errorf("HTTP_CHUNK_SIZE must not be negative, got %d", c.HTTPChunkSize)
	}
	return nil
}
