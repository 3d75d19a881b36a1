// Package storage provides object storage for moment media and profile photos.
package storage

import (
	"context"
	"io"
	"time"
)

// UploadOptions controls a single upload
type UploadOptions struct {
	ContentType string
	Size        int64
	// Overwrite allows replacing an existing object at the same key
	Overwrite bool
}

// ObjectStore is the object storage contract consumed by the media services.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	// Upload stores body at bucket/key
	Upload(ctx context.Context, bucket, key string, body io.Reader, opts UploadOptions) error

	// PublicURL returns the unsigned URL of an object in a public bucket
	PublicURL(bucket, key string) string

	// SignedURL returns a URL granting read access to a private object for ttl
	SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)

	// Remove deletes the given keys. Missing keys are not an error.
	Remove(ctx context.Context, bucket string, keys ...string) error
}
