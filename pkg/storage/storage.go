package storage

import (
	"context"
	"time"
)

// Store keeps small text artifacts (rendered proxy configs) in object
// storage where the proxy fleet picks them up.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Object, error)
}

// Object describes a stored key.
type Object struct {
	LastModified time.Time
	Key          string
	Size         int64
}

// Config holds S3-compatible storage settings. An empty bucket disables
// publishing.
type Config struct {
	Bucket    string `env:"STORAGE_BUCKET" yaml:"bucket"`
	AccessKey string `env:"STORAGE_ACCESS_KEY" yaml:"access_key"`
	SecretKey string `env:"STORAGE_SECRET_KEY" yaml:"secret_key"`
	// Custom endpoint for MinIO, R2 and other S3-compatible services.
	Endpoint  string `env:"STORAGE_ENDPOINT" yaml:"endpoint"`
	Region    string `env:"STORAGE_REGION" envDefault:"us-east-1" yaml:"region"`
	Prefix    string `env:"STORAGE_PREFIX" envDefault:"proxy" yaml:"prefix"`
	PathStyle bool   `env:"STORAGE_PATH_STYLE" yaml:"path_style"`
	// Objects larger than this are refused by Get.
	MaxObjectSize int64 `env:"STORAGE_MAX_OBJECT_SIZE" envDefault:"1048576" yaml:"max_object_size"`
}

const (
	DefaultRegion        = "us-east-1"
	DefaultMaxObjectSize = 1 << 20
)

// Enabled reports whether a bucket is configured.
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

func (c *Config) applyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.MaxObjectSize <= 0 {
		c.MaxObjectSize = DefaultMaxObjectSize
	}
}

func (c *Config) validate() error {
	if c.Bucket == "" || c.AccessKey == "" || c.SecretKey == "" {
		return ErrInvalidConfig
	}
	return nil
}
