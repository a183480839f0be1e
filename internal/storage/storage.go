package storage

import (
	"context"
	"io"
	"time"
)

// Storage is the blob store consumed by the ingestion pipeline and the access
// gate. Implementations hold a single shared client reused across calls.
type Storage interface {
	Put(ctx context.Context, bucket, key string, data io.Reader, size int64, contentType string) error
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, bucket, key string) error
	// SignedURL mints a time-limited GET-only URL for exactly one object.
	SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}
