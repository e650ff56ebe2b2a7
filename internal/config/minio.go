package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

type MinioConfig struct {
	Endpoint string `env:"MINIO_ENDPOINT"`
	Username string `env:"MINIO_USERNAME"`
	Password string `env:"MINIO_PASSWORD"`
	Bucket   string `env:"MINIO_BUCKET, default=jukebox"`
	Secure   bool   `env:"MINIO_SECURE, default=false"`
}

// NewMinioConfigFromEnv loads the blob storage settings. Blob storage is
// optional; Enabled reports whether an endpoint was configured.
func NewMinioConfigFromEnv(ctx context.Context) (*MinioConfig, error) {
	var cfg MinioConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *MinioConfig) Enabled() bool {
	return c.Endpoint != ""
}
