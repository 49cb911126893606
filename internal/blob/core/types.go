// Package core defines the blob storage contract shared by the backend
// implementations under internal/infra/blob.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local filesystem (default, dev)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // in-memory (tests)
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
	// Overwrite replaces an existing blob instead of failing with ErrExists.
	Overwrite bool
}

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is a minimal S3-like object store holding theme import and export
// documents.
type Store interface {
	// Put stores r at key. Without opts.Overwrite it fails with ErrExists when
	// the key is taken.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get returns the blob contents; ErrNotFound when missing.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	// Delete reports whether a blob was removed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns blobs under prefix ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

var (
	ErrNotFound = errors.New("blob: not found")
	ErrExists   = errors.New("blob: already exists")
)

// CloneMetadata copies a metadata map; nil stays nil.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
