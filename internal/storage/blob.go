// Package storage abstracts the blob store keeping attachment bytes.
// The service only tracks metadata; the bytes live behind this
// interface so a bucket-backed implementation can replace local disk.
package storage

import (
	"context"
	"io"
)

// BlobStore saves and retrieves attachment payloads by opaque key.
type BlobStore interface {
	Save(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}
