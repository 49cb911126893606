// Package blob re-exports the blob storage contract and selects a backend.
// It is the only package allowed to import internal/infra/blob.
package blob

import (
	"context"
	"fmt"

	"tutorcore/internal/blob/core"
	"tutorcore/internal/infra/blob/fs"
	memorystore "tutorcore/internal/infra/blob/memory"
	infraS3 "tutorcore/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
	// S3Config configures the S3-compatible backend.
	S3Config = infraS3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrNotFound = core.ErrNotFound
	ErrExists   = core.ErrExists
)

// Config selects and configures a backend.
type Config struct {
	Driver Driver
	// FSRoot is the directory root when Driver is fs; defaults to ./blobdata.
	FSRoot string
	S3     S3Config
}

// Open constructs the Store named by cfg.Driver. An empty driver selects the
// filesystem backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// NewFilesystem constructs a filesystem-backed Store rooted at root.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}

// NewMemory returns an in-memory Store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewS3 constructs an S3-backed Store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}
