// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"tutorcore/internal/blob"
	"tutorcore/internal/core"
	"tutorcore/internal/infra/observability"
)

// Config is the full runtime configuration of the tutorcore binaries.
type Config struct {
	StorageDriver string `env:"TUTORCORE_STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath    string `env:"TUTORCORE_SQLITE_PATH" envDefault:"tutorcore.db"`
	PostgresDSN   string `env:"TUTORCORE_POSTGRES_DSN"`

	HTTPAddr        string        `env:"TUTORCORE_HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"TUTORCORE_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogMode         string        `env:"TUTORCORE_LOG_MODE" envDefault:"production"`

	// RedisAddr switches mutation locking to Redis when set.
	RedisAddr string        `env:"TUTORCORE_REDIS_ADDR"`
	LockTTL   time.Duration `env:"TUTORCORE_LOCK_TTL" envDefault:"10s"`

	BlobDriver string `env:"TUTORCORE_BLOB_DRIVER" envDefault:"fs"`
	BlobFSRoot string `env:"TUTORCORE_BLOB_FS_ROOT" envDefault:"./blobdata"`
	S3         S3

	OTelEndpoint string `env:"TUTORCORE_OTEL_ENDPOINT"`
	OTelStdout   bool   `env:"TUTORCORE_OTEL_STDOUT"`
	ServiceName  string `env:"TUTORCORE_SERVICE_NAME" envDefault:"tutorcore"`

	// AuditJSON, TraceJSON: "stdout", "stderr", "off" or a file path that
	// JSON lines are appended to. A TraceJSON sink replaces OTel catalog spans.
	AuditJSON string `env:"TUTORCORE_AUDIT_JSON" envDefault:"stderr"`
	TraceJSON string `env:"TUTORCORE_TRACE_JSON" envDefault:"off"`
	// MetricsExpvar also records catalog metrics under /debug/vars.
	MetricsExpvar bool `env:"TUTORCORE_METRICS_EXPVAR"`
}

// S3 holds the S3-compatible blob backend settings.
type S3 struct {
	Bucket          string `env:"TUTORCORE_BLOB_S3_BUCKET"`
	Region          string `env:"TUTORCORE_BLOB_S3_REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"TUTORCORE_BLOB_S3_ENDPOINT"`
	PathStyle       bool   `env:"TUTORCORE_BLOB_S3_PATH_STYLE"`
	AccessKeyID     string `env:"TUTORCORE_BLOB_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"TUTORCORE_BLOB_S3_SECRET_ACCESS_KEY"`
	SessionToken    string `env:"TUTORCORE_BLOB_S3_SESSION_TOKEN"`
}

// Load reads the named dotenv files (".env" when none are given) into the
// process environment and parses Config. Missing dotenv files are ignored;
// variables already set in the environment win.
func Load(dotenv ...string) (Config, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, path := range dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return Parse()
}

// Parse reads Config from the current environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Storage returns the persistent store selection.
func (c Config) Storage() core.StorageConfig {
	return core.StorageConfig{
		Driver:      core.StorageDriver(c.StorageDriver),
		SQLitePath:  c.SQLitePath,
		PostgresDSN: c.PostgresDSN,
	}
}

// Blob returns the blob backend selection.
func (c Config) Blob() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.BlobDriver),
		FSRoot: c.BlobFSRoot,
		S3: blob.S3Config{
			Region:          c.S3.Region,
			Bucket:          c.S3.Bucket,
			Endpoint:        c.S3.Endpoint,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			SessionToken:    c.S3.SessionToken,
			PathStyle:       c.S3.PathStyle,
		},
	}
}

// Tracing returns the span exporter selection.
func (c Config) Tracing() observability.TracingConfig {
	return observability.TracingConfig{
		ServiceName: c.ServiceName,
		Endpoint:    c.OTelEndpoint,
		Stdout:      c.OTelStdout,
	}
}
